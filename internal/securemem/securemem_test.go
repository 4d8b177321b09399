package securemem

import (
	"testing"
)

func TestNewString(t *testing.T) {
	plaintext := "test-secret-123"
	s := NewString(plaintext)
	defer s.Destroy()

	if s == nil {
		t.Fatal("NewString returned nil")
	}

	if s.String() != plaintext {
		t.Errorf("expected %q, got %q", plaintext, s.String())
	}
}

func TestStringEqual(t *testing.T) {
	s1 := NewString("secret")
	defer s1.Destroy()

	if !s1.Equal("secret") {
		t.Error("Equal should return true for matching strings")
	}

	if s1.Equal("different") {
		t.Error("Equal should return false for non-matching strings")
	}
}

func TestStringDestroy(t *testing.T) {
	s := NewString("to-be-destroyed")
	s.Destroy()

	if !s.invalid {
		t.Error("string should be marked as invalid after destroy")
	}

	if s.String() != "" {
		t.Error("destroyed string should return empty")
	}

	// Destroy must be idempotent: secret.Password.Destroy may be
	// called more than once along different shutdown paths.
	s.Destroy()
}

func TestSecureWipe(t *testing.T) {
	data := []byte{0x01, 0x02, 0x03, 0x04}
	SecureWipe(data)

	for i, b := range data {
		if b != 0 {
			t.Errorf("byte %d should be zero after wipe, got %x", i, b)
		}
	}
}

func TestSecureWipeString(t *testing.T) {
	s := "secret-string"
	SecureWipeString(&s)

	if s != "" {
		t.Errorf("string should be empty after wipe, got '%s'", s)
	}
}
