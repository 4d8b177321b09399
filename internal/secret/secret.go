// Package secret holds the server's shared password as opaque bytes in
// locked memory, per spec.md invariant I4: the password must never be
// converted into a form (such as an interned symbol) that embedded
// user code could scan for.
package secret

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/codefionn/queryserverd/internal/securemem"
)

// Password wraps the shared secret in a securemem.String so it lives in
// a memguard-backed locked buffer rather than the regular Go heap.
type Password struct {
	value *securemem.String
}

// New wraps an explicit password value, e.g. one supplied via
// configuration.
func New(plaintext string) *Password {
	return &Password{value: securemem.NewString(plaintext)}
}

// Generate produces a strong random password the way spec.md §6 says
// the server must when no password option is configured: "strong
// random", 24 bytes of crypto/rand, URL-safe base64 encoded.
func Generate() (*Password, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("secret: generate password: %w", err)
	}
	defer securemem.SecureWipe(buf)
	return &Password{value: securemem.NewString(base64.RawURLEncoding.EncodeToString(buf))}, nil
}

// Equal performs a constant-time comparison between the held password
// and candidate, satisfying spec.md §9's "compare with a constant-time
// byte comparison" note.
func (p *Password) Equal(candidate string) bool {
	if p == nil || p.value == nil {
		return false
	}
	return p.value.Equal(candidate)
}

// Reveal returns a plaintext copy, used only for the startup-output
// line (Supervisor.WriteConnectionValues). Callers must not retain or
// log the result.
func (p *Password) Reveal() string {
	if p == nil || p.value == nil {
		return ""
	}
	return p.value.String()
}

// Destroy wipes the underlying locked buffer. Safe to call multiple
// times.
func (p *Password) Destroy() {
	if p == nil || p.value == nil {
		return
	}
	p.value.Destroy()
}
