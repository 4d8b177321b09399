// Package securemem provides memory-protected storage for sensitive data
// using memguard to prevent data from being read via debugger, memory dump, or swap.
package securemem

import (
	"github.com/awnumar/memguard"
)

// Init initializes the memguard library. This should be called once at
// application startup, preferably in main().
func Init() {
	memguard.CatchInterrupt()
}

// Cleanup purges memguard's internal buffers. Called from
// cmd/queryserverd's shutdown path, after the password's own
// String.Destroy, so nothing memguard-allocated survives the process.
func Cleanup() {
	memguard.Purge()
}

// SecureWipe wipes a byte slice from memory.
// This is a convenience wrapper around memguard.WipeBytes.
func SecureWipe(data []byte) {
	memguard.WipeBytes(data)
}

// SecureWipeString wipes a string from memory.
// Note: Strings in Go are immutable, so this creates a new empty string
// and allows the old one to be garbage collected.
func SecureWipeString(s *string) {
	if s != nil {
		*s = ""
	}
}
