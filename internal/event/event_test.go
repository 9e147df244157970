package event

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestDecodeNativeFrame(t *testing.T) {
	raw := []byte("test_category:\t{\"key\":\"value\"}")

	ev, err := Decode(raw)
	if err != nil {
		t.Fatalf(`Decode returned error: %s`, err)
	}
	if ev.Category != `test_category` {
		t.Errorf(`Category = %q, want test_category`, ev.Category)
	}
	v, ok := ev.Get(`key`)
	if !ok || v != `value` {
		t.Errorf(`Extra[key] = %v, want "value"`, v)
	}
}

func TestDecodeMalformedFrame(t *testing.T) {
	if _, err := Decode([]byte(`no colon here`)); err != ErrMalformedFrame {
		t.Fatalf(`expected ErrMalformedFrame, got %v`, err)
	}
}

func TestDecodeMalformedJSON(t *testing.T) {
	_, err := Decode([]byte(`category:{not json`))
	if err == nil {
		t.Fatal(`expected error for malformed JSON`)
	}
	if _, ok := err.(*MalformedJSONError); !ok {
		t.Fatalf(`expected *MalformedJSONError, got %T`, err)
	}
}

func TestDecodeNotAnObject(t *testing.T) {
	if _, err := Decode([]byte(`category:[1,2,3]`)); err != ErrNotAnObject {
		t.Fatalf(`expected ErrNotAnObject, got %v`, err)
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	ev := New(`cat`)
	ev.Message = `hello`
	ev.LogLevel = Info

	raw, err := Encode(ev)
	if err != nil {
		t.Fatalf(`Encode error: %s`, err)
	}

	got, err := Decode(raw)
	if err != nil {
		t.Fatalf(`Decode error: %s`, err)
	}
	if got.Category != `cat` || got.Message != `hello` || got.LogLevel != Info {
		t.Errorf(`round trip mismatch: %+v`, got)
	}
}

func TestMarshalFallsBackToPrintableRepresentation(t *testing.T) {
	ev := New(`cat`)
	ev.Set(`fn`, func() {})
	ev.Set(`ok`, `fine`)

	raw, err := ev.MarshalJSON()
	if err != nil {
		t.Fatalf(`MarshalJSON error: %s`, err)
	}

	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf(`re-unmarshal failed: %s`, err)
	}
	if s, ok := m[`fn`].(string); !ok || s == `` {
		t.Errorf(`expected unencodable value "fn" to be encoded as its printable representation, got %v`, m[`fn`])
	}
	if m[`ok`] != `fine` {
		t.Errorf(`expected ok key to survive, got %v`, m[`ok`])
	}
}

func TestMarshalJSONNoCategoryOmitsCategory(t *testing.T) {
	ev := New(`cat`)
	ev.Message = `hello`

	raw, err := ev.MarshalJSONNoCategory()
	if err != nil {
		t.Fatalf(`MarshalJSONNoCategory error: %s`, err)
	}

	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf(`re-unmarshal failed: %s`, err)
	}
	if _, present := m[`category`]; present {
		t.Errorf(`expected category key to be absent, got %v`, m[`category`])
	}
	if m[`message`] != `hello` {
		t.Errorf(`expected message to survive, got %v`, m[`message`])
	}
}

func TestMarshalJSONStringTimestampStringifiesTimestamp(t *testing.T) {
	ev := New(`cat`)
	ev.Timestamp = 1622505600.5

	raw, err := ev.MarshalJSONStringTimestamp()
	if err != nil {
		t.Fatalf(`MarshalJSONStringTimestamp error: %s`, err)
	}

	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf(`re-unmarshal failed: %s`, err)
	}
	ts, ok := m[`timestamp`].(string)
	if !ok {
		t.Fatalf(`timestamp = %v (%T), want a JSON string`, m[`timestamp`], m[`timestamp`])
	}
	if ts != `1622505600.5` {
		t.Errorf(`timestamp = %q, want "1622505600.5"`, ts)
	}
	if m[`category`] != `cat` {
		t.Errorf(`expected category to survive, got %v`, m[`category`])
	}
}

func TestMetaTruncatesLongMessage(t *testing.T) {
	original := New(`app`)
	original.Message = strings.Repeat(`x`, 300)

	meta := Meta(original, 9000, `too big`)

	if meta.Category != MetaCategory {
		t.Fatalf(`Category = %q, want %q`, meta.Category, MetaCategory)
	}
	if meta.LogLevel != Warning {
		t.Errorf(`LogLevel = %q, want WARNING`, meta.LogLevel)
	}

	origSize, _ := meta.Get(`original_size`)
	if origSize != 9000 {
		t.Errorf(`original_size = %v, want 9000`, origSize)
	}

	inner, ok := meta.Get(`original`)
	if !ok {
		t.Fatal(`missing original field`)
	}
	m, ok := inner.(map[string]interface{})
	if !ok {
		t.Fatalf(`original is %T, want map`, inner)
	}
	msg, _ := m[`message`].(string)
	if len(msg) != MaxTrimmedMessageSize || !strings.HasSuffix(msg, `[..]`) {
		t.Errorf(`truncated message = %q (len %d)`, msg, len(msg))
	}
}

func TestLevelRank(t *testing.T) {
	if Debug.Rank() >= Error.Rank() {
		t.Errorf(`expected DEBUG to rank below ERROR`)
	}
	if LogLevel(`BOGUS`).Rank() != -1 {
		t.Errorf(`expected unknown level to rank -1`)
	}
}

func TestIsErrorCoercion(t *testing.T) {
	raw := []byte(`cat:{"isError":"yes"}`)
	ev, err := Decode(raw)
	if err != nil {
		t.Fatalf(`Decode error: %s`, err)
	}
	if !ev.HasIsError || !ev.IsError {
		t.Errorf(`expected isError to be truthy-coerced, got %+v`, ev)
	}
}
