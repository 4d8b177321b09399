package wire

import "bufio"

// HeartbeatStrippingReader wraps a bufio.Reader acting as the client
// side of the protocol (tests standing in for the external client
// library) so that leading raw '.' heartbeat bytes are invisible to
// Decode. The server's own Decode already discards them inline; this
// wrapper exists because a test client reads frames the same way
// spec.md §9 says the real client must: strip '.' before looking for a
// length prefix.
type HeartbeatStrippingReader struct {
	r *bufio.Reader
}

// NewHeartbeatStrippingReader wraps r.
func NewHeartbeatStrippingReader(r *bufio.Reader) *HeartbeatStrippingReader {
	return &HeartbeatStrippingReader{r: r}
}

// NextIsHeartbeat reports and consumes a single leading '.' byte if
// present, without blocking past the first unavailable byte check is
// left to the caller: Peek itself blocks until at least one byte is
// buffered.
func (h *HeartbeatStrippingReader) NextIsHeartbeat() (bool, error) {
	b, err := h.r.Peek(1)
	if err != nil {
		return false, err
	}
	if b[0] == '.' {
		_, _ = h.r.Discard(1)
		return true, nil
	}
	return false, nil
}

// DecodeFrame strips any number of leading heartbeat bytes, then
// decodes exactly one frame.
func (h *HeartbeatStrippingReader) DecodeFrame() ([]byte, error) {
	for {
		isHB, err := h.NextIsHeartbeat()
		if err != nil {
			return nil, err
		}
		if !isHB {
			break
		}
	}
	return Decode(h.r)
}
