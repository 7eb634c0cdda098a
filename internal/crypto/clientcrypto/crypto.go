// Package clientcrypto seals locally persisted client state with a passphrase.
package clientcrypto

import (
	"crypto/rand"
	"errors"
	"sync"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// Params
const (
	KeyLen  = 32
	SaltLen = 16

	argonTime    uint32 = 3
	argonMemory  uint32 = 64 * 1024
	argonThreads uint8  = 1
)

// ErrShortBlob is returned for sealed blobs that cannot contain salt and nonce.
var ErrShortBlob = errors.New("sealed blob too short")

func Rand(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	return b, err
}

// DeriveKey derives a sealing key from passphrase and salt using Argon2id.
func DeriveKey(passphrase, salt []byte) []byte {
	return argon2.IDKey(passphrase, salt, argonTime, argonMemory, argonThreads, KeyLen)
}

// Seal encrypts plaintext with XChaCha20-Poly1305; output is nonce||ciphertext.
func Seal(key, aad, plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	nonce, err := Rand(chacha20poly1305.NonceSizeX)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(nonce)+len(plaintext)+aead.Overhead())
	out = append(out, nonce...)
	out = append(out, aead.Seal(nil, nonce, plaintext, aad)...)
	return out, nil
}

// Open decrypts a blob produced by Seal with the same aad.
func Open(key, aad, blob []byte) ([]byte, error) {
	if len(blob) < chacha20poly1305.NonceSizeX {
		return nil, ErrShortBlob
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	nonce := blob[:chacha20poly1305.NonceSizeX]
	ct := blob[chacha20poly1305.NonceSizeX:]
	return aead.Open(nil, nonce, ct, aad)
}

// Sealer seals values under a passphrase. Each sealed value carries its own
// salt (salt||nonce||ciphertext); derived keys are cached per salt.
type Sealer struct {
	pass []byte

	mu   sync.Mutex
	keys map[string][]byte
}

// NewSealer returns a Sealer for passphrase.
func NewSealer(passphrase string) *Sealer {
	return &Sealer{pass: []byte(passphrase), keys: map[string][]byte{}}
}

func (s *Sealer) key(salt []byte) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	if k, ok := s.keys[string(salt)]; ok {
		return k
	}
	k := DeriveKey(s.pass, salt)
	s.keys[string(salt)] = k
	return k
}

// Seal encrypts plaintext bound to aad.
func (s *Sealer) Seal(aad, plaintext []byte) ([]byte, error) {
	salt, err := Rand(SaltLen)
	if err != nil {
		return nil, err
	}
	ct, err := Seal(s.key(salt), aad, plaintext)
	if err != nil {
		return nil, err
	}
	return append(salt, ct...), nil
}

// Open decrypts a value produced by Sealer.Seal.
func (s *Sealer) Open(aad, blob []byte) ([]byte, error) {
	if len(blob) < SaltLen+chacha20poly1305.NonceSizeX {
		return nil, ErrShortBlob
	}
	return Open(s.key(blob[:SaltLen]), aad, blob[SaltLen:])
}
