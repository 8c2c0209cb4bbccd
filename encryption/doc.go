// Package encryption seals small values with an AEAD cipher. It protects
// the application tokens kept in the shared Redis cache.
//
// The key is a passphrase hashed with SHA-256 to the 32 bytes both
// algorithms need. Associated data binds a sealed value to its context,
// e.g. the cache key, so values cannot be swapped between keys.
//
//	s, err := encryption.New(passphrase, encryption.AlgorithmChaCha20)
//	sealed, err := s.Seal(plaintext, []byte(key))
//	plaintext, err := s.Open(sealed, []byte(key))
package encryption
