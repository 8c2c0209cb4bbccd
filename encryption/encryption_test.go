package encryption

import (
	"bytes"
	"errors"
	"testing"
)

var algorithms = []Algorithm{AlgorithmAESGCM, AlgorithmChaCha20}

func TestSealOpen(t *testing.T) {
	tests := []struct {
		name      string
		plaintext []byte
	}{
		{"token", []byte(`{"access_token":"tok-1","token_type":"Bearer"}`)},
		{"empty", []byte{}},
		{"unicode", []byte("こんにちは世界")},
	}
	for _, alg := range algorithms {
		s, err := New("s3cret", alg)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", alg, err)
		}
		for _, tt := range tests {
			t.Run(string(alg)+"/"+tt.name, func(t *testing.T) {
				sealed, err := s.Seal(tt.plaintext, []byte("k1"))
				if err != nil {
					t.Fatalf("Seal failed: %v", err)
				}
				if len(tt.plaintext) > 0 && bytes.Contains(sealed, tt.plaintext) {
					t.Error("expected plaintext to be hidden")
				}
				got, err := s.Open(sealed, []byte("k1"))
				if err != nil {
					t.Fatalf("Open failed: %v", err)
				}
				if !bytes.Equal(got, tt.plaintext) {
					t.Errorf("expected %q, got %q", tt.plaintext, got)
				}
			})
		}
	}
}

func TestSeal_RandomNonce(t *testing.T) {
	s, _ := New("s3cret", AlgorithmAESGCM)
	a, _ := s.Seal([]byte("same"), nil)
	b, _ := s.Seal([]byte("same"), nil)
	if bytes.Equal(a, b) {
		t.Error("expected different ciphertexts for the same plaintext")
	}
}

func TestOpen_Rejects(t *testing.T) {
	for _, alg := range algorithms {
		t.Run(string(alg), func(t *testing.T) {
			s, _ := New("key-one", alg)
			other, _ := New("key-two", alg)
			sealed, err := s.Seal([]byte("tok"), []byte("k1"))
			if err != nil {
				t.Fatalf("Seal failed: %v", err)
			}

			if _, err := other.Open(sealed, []byte("k1")); err == nil {
				t.Error("expected wrong key to be rejected")
			}
			if _, err := s.Open(sealed, []byte("k2")); err == nil {
				t.Error("expected value moved to another key to be rejected")
			}
			tampered := bytes.Clone(sealed)
			tampered[len(tampered)-1] ^= 0xff
			if _, err := s.Open(tampered, []byte("k1")); err == nil {
				t.Error("expected tampered ciphertext to be rejected")
			}
			if _, err := s.Open([]byte{1, 2}, nil); !errors.Is(err, ErrCiphertextTooShort) {
				t.Errorf("expected ErrCiphertextTooShort, got %v", err)
			}
		})
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New("", AlgorithmAESGCM); err == nil {
		t.Error("expected empty key to be rejected")
	}
	if _, err := New("k", "rot13"); err == nil {
		t.Error("expected unknown algorithm to be rejected")
	}
}

func TestParseAlgorithm(t *testing.T) {
	tests := []struct {
		in      string
		want    Algorithm
		wantErr bool
	}{
		{"", AlgorithmAESGCM, false},
		{"aes-256-gcm", AlgorithmAESGCM, false},
		{"chacha20-poly1305", AlgorithmChaCha20, false},
		{"des", "", true},
	}
	for _, tt := range tests {
		got, err := ParseAlgorithm(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseAlgorithm(%q) = %q, %v; expected %q", tt.in, got, err, tt.want)
		}
	}
}
