// Package framedconn implements a length-delimited framed stream over TCP.
// Each frame is a 4-byte big-endian payload length followed by the payload,
// so every read yields one whole message regardless of how the bytes were
// split on the wire.
package framedconn

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/cyberinferno/movectl/utils"
)

// HeaderSize is the size of the length prefix in bytes.
const HeaderSize = 4

// DefaultMaxFrameSize is the largest payload accepted when no limit is configured.
const DefaultMaxFrameSize = 8 * 1024 * 1024

// ErrFrameTooLarge is returned when a frame length exceeds the configured limit.
var ErrFrameTooLarge = errors.New("frame too large")

// ReadFrame reads one frame from r and returns its payload.
//
// Parameters:
//   - r: The stream to read from
//   - maxSize: Maximum accepted payload length; values <= 0 mean DefaultMaxFrameSize
//
// Returns:
//   - The frame payload
//   - io.EOF if the stream ended cleanly before a new frame started,
//     io.ErrUnexpectedEOF if it ended inside a frame, or ErrFrameTooLarge
func ReadFrame(r io.Reader, maxSize int) ([]byte, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxFrameSize
	}

	var header [HeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}

	length := binary.BigEndian.Uint32(header[:])
	if uint64(length) > uint64(maxSize) {
		return nil, fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrFrameTooLarge, length, maxSize)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.ErrUnexpectedEOF
		}

		return nil, err
	}

	return payload, nil
}

// EncodeFrame returns payload prefixed with its length header.
func EncodeFrame(payload []byte) []byte {
	var header [HeaderSize]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(payload)))
	return utils.JoinBytes(header[:], payload)
}

// WriteFrame writes payload to w as a single frame. Header and payload go out
// in one Write call.
func WriteFrame(w io.Writer, payload []byte) error {
	if uint64(len(payload)) > uint64(^uint32(0)) {
		return fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(payload))
	}

	_, err := w.Write(EncodeFrame(payload))
	return err
}
