package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// Algorithm names a supported AEAD.
type Algorithm string

const (
	// AlgorithmAESGCM is AES-256-GCM (default).
	AlgorithmAESGCM Algorithm = "aes-256-gcm"
	// AlgorithmChaCha20 is ChaCha20-Poly1305, fast on CPUs without AES-NI.
	AlgorithmChaCha20 Algorithm = "chacha20-poly1305"
)

// ErrCiphertextTooShort is returned by Open for input shorter than a nonce.
var ErrCiphertextTooShort = errors.New("encryption: ciphertext too short")

// Sealer encrypts and authenticates values.
type Sealer interface {
	// Seal returns nonce || ciphertext.
	Seal(plaintext, additionalData []byte) ([]byte, error)
	// Open reverses Seal. It fails when the data or additionalData changed.
	Open(sealed, additionalData []byte) ([]byte, error)
}

// ParseAlgorithm maps a config value onto an Algorithm. Empty selects
// AES-256-GCM.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch Algorithm(s) {
	case "", AlgorithmAESGCM:
		return AlgorithmAESGCM, nil
	case AlgorithmChaCha20:
		return AlgorithmChaCha20, nil
	}
	return "", fmt.Errorf("encryption: unsupported algorithm %q", s)
}

// New creates a Sealer for passphrase.
func New(passphrase string, alg Algorithm) (Sealer, error) {
	if passphrase == "" {
		return nil, errors.New("encryption: key is required")
	}
	key := sha256.Sum256([]byte(passphrase))

	var (
		a   cipher.AEAD
		err error
	)
	switch alg {
	case AlgorithmAESGCM, "":
		var block cipher.Block
		if block, err = aes.NewCipher(key[:]); err == nil {
			a, err = cipher.NewGCM(block)
		}
	case AlgorithmChaCha20:
		a, err = chacha20poly1305.New(key[:])
	default:
		return nil, fmt.Errorf("encryption: unsupported algorithm %q", alg)
	}
	if err != nil {
		return nil, fmt.Errorf("encryption: %w", err)
	}
	return &aead{aead: a}, nil
}

type aead struct {
	aead cipher.AEAD
}

func (s *aead) Seal(plaintext, additionalData []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(plaintext)+s.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("encryption: generate nonce: %w", err)
	}
	return s.aead.Seal(nonce, nonce, plaintext, additionalData), nil
}

func (s *aead) Open(sealed, additionalData []byte) ([]byte, error) {
	n := s.aead.NonceSize()
	if len(sealed) < n {
		return nil, ErrCiphertextTooShort
	}
	plaintext, err := s.aead.Open(nil, sealed[:n], sealed[n:], additionalData)
	if err != nil {
		return nil, fmt.Errorf("encryption: open: %w", err)
	}
	return plaintext, nil
}
