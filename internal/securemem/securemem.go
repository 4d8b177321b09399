// Package securemem stores the server's shared password in memguard's
// locked memory so it is never readable via a debugger, core dump, or
// swapped page, per spec.md invariant I4. Unlike the teacher's generic
// secure-string type (which also offered Clone/Map/byte-slice access
// for arbitrary secrets pooled under string keys), this package holds
// exactly one kind of value — the shared password — compared and
// revealed, never transformed. The pooled multi-secret API and the
// byte-oriented accessors it implied are dropped; see DESIGN.md for
// why.
package securemem

import (
	"crypto/subtle"

	"github.com/awnumar/memguard"
)

// String is the locked-memory holder for the shared password.
type String struct {
	buf     *memguard.LockedBuffer
	invalid bool
}

// NewString moves plaintext into a memguard-backed locked buffer.
func NewString(plaintext string) *String {
	return &String{
		buf: memguard.NewBufferFromBytes([]byte(plaintext)),
	}
}

// String returns a plaintext copy of the password. The copy lives in
// regular (non-secure) memory; only internal/secret.Password.Reveal
// calls this, for the startup connection-values line.
func (s *String) String() string {
	if s == nil || s.invalid || s.buf == nil {
		return ""
	}
	return string(s.buf.Bytes())
}

// Equal performs the constant-time comparison spec.md §9 requires
// between the held password and a client-supplied candidate.
func (s *String) Equal(other string) bool {
	if s == nil || s.invalid || s.buf == nil {
		return other == ""
	}
	return subtle.ConstantTimeCompare(s.buf.Bytes(), []byte(other)) == 1
}

// Destroy wipes the locked buffer. Safe to call more than once; the
// string reads as empty afterward.
func (s *String) Destroy() {
	if s == nil || s.invalid {
		return
	}
	if s.buf != nil {
		s.buf.Destroy()
		s.buf = nil
	}
	s.invalid = true
}
