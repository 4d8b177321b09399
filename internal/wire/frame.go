// Package wire implements the length-prefixed UTF-8 text frame codec of
// spec.md §4.1: "<decimal-length>.\n<payload-bytes>.\n", where the
// declared length counts the payload's UTF-8 byte length including its
// trailing ".\n".
package wire

import (
	"bufio"
	"fmt"
	"io"

	"github.com/codefionn/queryserverd/internal/consts"
	"github.com/codefionn/queryserverd/internal/protoerr"
)

// Encode writes payload as one frame: the declared length, ".\n", the
// payload, then ".\n". payload must not itself include the trailing
// ".\n" — Encode appends it.
func Encode(w io.Writer, payload []byte) error {
	body := make([]byte, 0, len(payload)+2)
	body = append(body, payload...)
	body = append(body, '.', '\n')

	if _, err := fmt.Fprintf(w, "%d.\n", len(body)); err != nil {
		return fmt.Errorf("wire: write length prefix: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("wire: write payload: %w", err)
	}
	return nil
}

// Decode reads one frame from r and returns its payload with the
// trailing ".\n" stripped. Leading raw '.' heartbeat bytes preceding the
// length prefix are tolerated and skipped, matching the client-side
// contract spec.md §4.1/§9 describes (heartbeats are otherwise only
// written by the server, but the codec is symmetric so the same Decode
// serves a test client reading server frames).
func Decode(r *bufio.Reader) ([]byte, error) {
	length, err := readLengthPrefix(r)
	if err != nil {
		return nil, err
	}
	if length < 2 || length > consts.MaxFrameLength {
		return nil, fmt.Errorf("wire: %w: declared length %d out of range", protoerr.ErrFrame, length)
	}

	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, fmt.Errorf("wire: %w", protoerr.ErrConnectionClosed())
		}
		return nil, fmt.Errorf("wire: read payload: %w", err)
	}

	if buf[length-2] != '.' || buf[length-1] != '\n' {
		return nil, fmt.Errorf("wire: %w: payload missing trailing \".\\n\"", protoerr.ErrFrame)
	}
	return buf[:length-2], nil
}

// readLengthPrefix consumes leading heartbeat '.' bytes, then the
// decimal length digits, then the mandatory "\n" terminator.
func readLengthPrefix(r *bufio.Reader) (int, error) {
	var digits []byte
	for {
		b, err := r.ReadByte()
		if err != nil {
			if err == io.EOF {
				return 0, fmt.Errorf("wire: %w", protoerr.ErrConnectionClosed())
			}
			return 0, fmt.Errorf("wire: read length prefix: %w", err)
		}

		switch {
		case b == '.':
			// Either a heartbeat byte or the '.' that terminates the
			// length prefix itself; both are discarded the same way,
			// matching the reference client's receive loop.
			continue
		case b == '\n':
			if len(digits) == 0 {
				return 0, fmt.Errorf("wire: %w: empty length prefix", protoerr.ErrFrame)
			}
			return parseDecimal(digits)
		case b >= '0' && b <= '9':
			digits = append(digits, b)
			if len(digits) > 10 {
				return 0, fmt.Errorf("wire: %w: length prefix too long", protoerr.ErrFrame)
			}
		default:
			return 0, fmt.Errorf("wire: %w: non-numeric length prefix byte %q", protoerr.ErrFrame, b)
		}
	}
}

func parseDecimal(digits []byte) (int, error) {
	n := 0
	for _, d := range digits {
		n = n*10 + int(d-'0')
	}
	return n, nil
}

// WriteHeartbeat writes the single raw '.' byte that signals liveness
// while the communication worker waits on a synchronous run. It is
// never wrapped in a frame.
func WriteHeartbeat(w io.Writer) error {
	_, err := w.Write([]byte{'.'})
	if err != nil {
		return fmt.Errorf("wire: write heartbeat: %w", err)
	}
	return nil
}
