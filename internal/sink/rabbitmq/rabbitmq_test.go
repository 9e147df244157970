package rabbitmq

import (
	"encoding/json"
	"testing"

	"github.com/mjolnir42/udplogd/internal/event"
)

// TestSendWithoutChannelReturnsError confirms send refuses to publish
// before connect has populated s.channel, rather than panicking on a
// nil channel.
func TestSendWithoutChannelReturnsError(t *testing.T) {
	s := &Sink{name: `rabbitmq-test`}
	if err := s.send(event.New(`test`)); err == nil {
		t.Fatalf(`send() on disconnected sink = nil, want error`)
	}
}

// TestOutgoingBodyIsPlainJSONWithStringTimestamp covers the wire-format
// bug class this sink used to ship: the AMQP message body must be the
// event's plain JSON, not the native frame, and the timestamp field
// must be a JSON string rather than a bare number.
func TestOutgoingBodyIsPlainJSONWithStringTimestamp(t *testing.T) {
	ev := event.New(`app.deploy`)
	ev.Timestamp = 1622505600.5
	ev.Message = `deploy finished`

	raw, err := ev.MarshalJSONStringTimestamp()
	if err != nil {
		t.Fatalf(`MarshalJSONStringTimestamp: %s`, err)
	}

	if raw[0] != '{' {
		t.Fatalf(`body = %q, want plain JSON object with no frame prefix`, raw)
	}

	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf(`body is not valid JSON: %s`, err)
	}

	if m[`category`] != `app.deploy` {
		t.Errorf(`category = %v, want app.deploy`, m[`category`])
	}
	ts, ok := m[`timestamp`].(string)
	if !ok {
		t.Fatalf(`timestamp = %v (%T), want a JSON string`, m[`timestamp`], m[`timestamp`])
	}
	if ts != `1622505600.5` {
		t.Errorf(`timestamp = %q, want "1622505600.5"`, ts)
	}
	if m[`message`] != `deploy finished` {
		t.Errorf(`message = %v, want "deploy finished"`, m[`message`])
	}
}
