package router

import (
	"io"
	"net"

	"lunio/internal/wire"
)

// ServeConnection owns one client connection end to end: it performs the
// handshake, starts the write pump draining the session's outbound
// channel, and reads framed commands until the connection closes.
func (r *Router) ServeConnection(conn net.Conn) {
	defer conn.Close()

	fr := wire.NewFrameReader(conn)
	fw := wire.NewFrameWriter(conn)

	helloFrame, err := fr.ReadFrame()
	if err != nil {
		return
	}
	raw, err := wire.UnmarshalRaw(helloFrame)
	if err != nil {
		return
	}
	var cmd wire.Command
	if err := wire.UnmarshalPayload(raw.Payload, &cmd); err != nil || cmd.Type != wire.CmdHello || cmd.Hello == nil {
		return
	}

	sessionID, welcome, ok := r.Hello(*cmd.Hello)
	_ = wire.WriteEnvelope(fw, wire.Envelope[wire.Event]{Protocol: wire.ProtocolVersion, Payload: welcome})
	if !ok {
		return
	}
	defer r.registry.Remove(sessionID)

	cs, ok := r.registry.Get(sessionID)
	if !ok {
		return
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		for env := range cs.Outbound {
			env.SessionID = sessionID
			if err := wire.WriteEnvelope(fw, env); err != nil {
				return
			}
		}
	}()

	for {
		frame, err := fr.ReadFrame()
		if err != nil {
			if err != io.EOF {
				r.log.Warn("router: read error on session %s: %v", sessionID, err)
			}
			break
		}
		raw, err := wire.UnmarshalRaw(frame)
		if err != nil {
			continue
		}
		var next wire.Command
		if err := wire.UnmarshalPayload(raw.Payload, &next); err != nil {
			continue
		}
		r.Dispatch(sessionID, next)
		if next.Type == wire.CmdDisconnect {
			break
		}
	}

	<-done
}
