package wire

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
)

// MaxFrameSize bounds a single frame's payload to guard against a
// malformed or hostile length prefix driving an unbounded allocation.
const MaxFrameSize = 64 * 1024 * 1024

// FrameReader reads length-prefixed frames: a big-endian uint32 byte count
// followed by that many bytes of envelope-encoded JSON.
type FrameReader struct {
	r *bufio.Reader
}

func NewFrameReader(r io.Reader) *FrameReader {
	return &FrameReader{r: bufio.NewReader(r)}
}

// ReadFrame returns the next frame's payload bytes.
func (fr *FrameReader) ReadFrame() ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(fr.r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	if n > MaxFrameSize {
		return nil, fmt.Errorf("wire: frame of %d bytes exceeds max %d", n, MaxFrameSize)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(fr.r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// FrameWriter writes length-prefixed frames. Safe for use by a single
// writer goroutine; callers needing concurrent writes must serialize.
type FrameWriter struct {
	w io.Writer
}

func NewFrameWriter(w io.Writer) *FrameWriter {
	return &FrameWriter{w: w}
}

// WriteFrame writes payload prefixed by its big-endian uint32 length.
func (fw *FrameWriter) WriteFrame(payload []byte) error {
	if len(payload) > MaxFrameSize {
		return fmt.Errorf("wire: frame of %d bytes exceeds max %d", len(payload), MaxFrameSize)
	}
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	if _, err := fw.w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := fw.w.Write(payload)
	return err
}

// WriteEnvelope encodes and frames an envelope in one step.
func WriteEnvelope[T any](fw *FrameWriter, env Envelope[T]) error {
	data, err := Marshal(env)
	if err != nil {
		return err
	}
	return fw.WriteFrame(data)
}
