package wire

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
)

// ErrUnknownKind is returned when an inbound frame names an event kind
// outside the registry. Receivers drop such frames instead of failing,
// so newer servers can ship new kinds without breaking older clients.
var ErrUnknownKind = errors.New("unknown event kind")

// Envelope is the wire format wrapper. Room is set on published frames so
// the gateway knows which subscribers to fan the event out to; it is echoed
// back on delivery and ignored by receivers.
type Envelope struct {
	Type    string          `json:"type"`
	Room    string          `json:"room,omitempty"`
	Payload json.RawMessage `json:"payload"`
}

// Encode wraps an event in an envelope and marshals it.
func Encode(room string, ev Event) ([]byte, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: ev.Kind(), Room: room, Payload: payload})
}

// Decode unmarshals a frame into its typed event.
func Decode(data []byte) (Event, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	return DecodeEnvelope(&env)
}

// DecodeEnvelope resolves the envelope's kind against the registry and
// unmarshals the payload into a fresh instance of the registered type.
func DecodeEnvelope(env *Envelope) (Event, error) {
	typ, ok := typeRegistry[env.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, env.Type)
	}
	ev := reflect.New(typ).Interface().(Event)
	if len(env.Payload) == 0 {
		return ev, nil
	}
	if err := json.Unmarshal(env.Payload, ev); err != nil {
		return nil, err
	}
	return ev, nil
}
