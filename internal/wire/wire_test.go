package wire

import (
	"bytes"
	"testing"
)

func TestFrameRoundTrip(t *testing.T) {
	env := Envelope[Command]{
		Protocol:  ProtocolVersion,
		MessageID: "msg-1",
		SessionID: "sess-1",
		Payload: Command{
			Type:  CmdHello,
			Hello: &HelloCommand{Protocol: ProtocolVersion, ClientID: "gui", ClientVersion: "0.1.0"},
		},
	}

	var buf bytes.Buffer
	fw := NewFrameWriter(&buf)
	if err := WriteEnvelope(fw, env); err != nil {
		t.Fatalf("WriteEnvelope: %v", err)
	}

	fr := NewFrameReader(&buf)
	frame, err := fr.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}

	raw, err := UnmarshalRaw(frame)
	if err != nil {
		t.Fatalf("UnmarshalRaw: %v", err)
	}
	if raw.MessageID != "msg-1" || raw.SessionID != "sess-1" || raw.Protocol != ProtocolVersion {
		t.Fatalf("envelope shell mismatch: %+v", raw)
	}

	var cmd Command
	if err := json.Unmarshal(raw.Payload, &cmd); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if cmd.Type != CmdHello || cmd.Hello == nil || cmd.Hello.ClientID != "gui" {
		t.Fatalf("payload mismatch: %+v", cmd)
	}
}

func TestReadFrameRejectsOversized(t *testing.T) {
	var buf bytes.Buffer
	lenBuf := []byte{0xFF, 0xFF, 0xFF, 0xFF}
	buf.Write(lenBuf)

	fr := NewFrameReader(&buf)
	if _, err := fr.ReadFrame(); err == nil {
		t.Fatalf("expected oversized frame to error")
	}
}
