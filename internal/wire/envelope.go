// Package wire implements the daemon's local transport: length-prefixed
// framing, the Envelope wrapper, and the Command/Event payload types carried
// between the daemon and its desktop front-end.
package wire

import (
	jsoniter "github.com/json-iterator/go"
)

// ProtocolVersion is the only wire protocol version this daemon speaks.
const ProtocolVersion uint16 = 1

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Envelope is the uniform wrapper around every message exchanged over the
// transport: a protocol version, a unique message id, the owning session,
// and a typed payload. T is Command on the client→server direction and
// Event on the server→client direction.
type Envelope[T any] struct {
	Protocol  uint16 `json:"protocol"`
	MessageID string `json:"message_id"`
	SessionID string `json:"session_id"`
	Payload   T      `json:"payload"`
}

// RawEnvelope is what gets decoded off the wire before the payload's
// concrete type is known: the payload stays as raw JSON until the
// discriminator tag inside it has been inspected.
type RawEnvelope struct {
	Protocol  uint16          `json:"protocol"`
	MessageID string          `json:"message_id"`
	SessionID string          `json:"session_id"`
	Payload   jsoniter.RawMessage `json:"payload"`
}

// Marshal encodes an envelope to its wire JSON form.
func Marshal[T any](env Envelope[T]) ([]byte, error) {
	return json.Marshal(env)
}

// UnmarshalRaw decodes the envelope shell, leaving Payload as raw JSON.
func UnmarshalRaw(data []byte) (RawEnvelope, error) {
	var raw RawEnvelope
	err := json.Unmarshal(data, &raw)
	return raw, err
}

// UnmarshalPayload decodes a RawEnvelope's payload into its concrete type
// once the caller knows which direction (Command or Event) to expect.
func UnmarshalPayload(raw jsoniter.RawMessage, v any) error {
	return json.Unmarshal(raw, v)
}
