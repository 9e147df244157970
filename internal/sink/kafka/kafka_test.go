package kafka

import (
	"encoding/json"
	"testing"

	"github.com/mjolnir42/udplogd/internal/event"
)

// TestOutgoingValueIsPlainJSON covers the wire-format bug class this
// sink used to ship: the Kafka message value must be the event's plain
// JSON, not the native `category:\t{json}` frame.
func TestOutgoingValueIsPlainJSON(t *testing.T) {
	ev := event.New(`app.deploy`)
	ev.Message = `deploy finished`

	raw, err := ev.MarshalJSON()
	if err != nil {
		t.Fatalf(`MarshalJSON: %s`, err)
	}

	if raw[0] != '{' {
		t.Fatalf(`value = %q, want plain JSON object with no frame prefix`, raw)
	}

	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf(`value is not valid JSON: %s`, err)
	}

	if m[`category`] != `app.deploy` {
		t.Errorf(`category = %v, want app.deploy`, m[`category`])
	}
	if m[`message`] != `deploy finished` {
		t.Errorf(`message = %v, want "deploy finished"`, m[`message`])
	}
	if _, ok := m[`timestamp`].(float64); !ok {
		t.Errorf(`timestamp = %v (%T), want a JSON number (kafka has no stringified-timestamp requirement)`, m[`timestamp`], m[`timestamp`])
	}
}
