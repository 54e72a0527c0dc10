package broker

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// maxFrameSize bounds a single request/response body, guarding the Coordinator
// against a peer claiming an absurd length prefix.
const maxFrameSize = 64 << 20

// ReadFrame reads one length-prefixed frame: a big-endian uint32 byte count
// followed by that many bytes. It replaces the zmq multi-part frame scheme the
// original wire framing used for the client-facing socket, per the design note
// that licenses a length-prefixed substitute as long as the action tags survive.
func ReadFrame(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	if n > maxFrameSize {
		return nil, errors.Errorf("frame of %d bytes exceeds limit %d", n, maxFrameSize)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, errors.Wrap(err, "reading frame body")
	}
	return buf, nil
}

// WriteFrame writes data as one length-prefixed frame.
func WriteFrame(w io.Writer, data []byte) error {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(data)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := w.Write(data)
	return errors.Wrap(err, "writing frame body")
}
