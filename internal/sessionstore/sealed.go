package sessionstore

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/Skotchmaster/food_delivery/internal/session"
)

const (
	argonTime    uint32 = 3
	argonMemory  uint32 = 64 * 1024
	argonThreads uint8  = 1
	keyLen              = 32
)

var ErrSealed = errors.New("sealed value cannot be opened")

// Sealed encrypts values with XChaCha20-Poly1305 before they reach the
// inner store. The entry key is bound as additional data, so a value
// copied to another key does not open.
type Sealed struct {
	inner session.Store
	aead  cipher.AEAD
}

func NewSealed(inner session.Store, secret, salt string) (*Sealed, error) {
	if secret == "" {
		return nil, errors.New("sealed store needs a secret")
	}
	key := argon2.IDKey([]byte(secret), []byte(salt), argonTime, argonMemory, argonThreads, keyLen)
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	return &Sealed{inner: inner, aead: aead}, nil
}

func (s *Sealed) Get(ctx context.Context, key string) (string, bool, error) {
	v, ok, err := s.inner.Get(ctx, key)
	if err != nil || !ok {
		return "", ok, err
	}

	blob, err := base64.StdEncoding.DecodeString(v)
	if err != nil {
		return "", false, fmt.Errorf("%w: %s: %w", ErrSealed, key, err)
	}
	if len(blob) < chacha20poly1305.NonceSizeX {
		return "", false, fmt.Errorf("%w: %s: blob too short", ErrSealed, key)
	}
	nonce := blob[:chacha20poly1305.NonceSizeX]
	ct := blob[chacha20poly1305.NonceSizeX:]
	plain, err := s.aead.Open(nil, nonce, ct, []byte(key))
	if err != nil {
		return "", false, fmt.Errorf("%w: %s: %w", ErrSealed, key, err)
	}
	return string(plain), true, nil
}

func (s *Sealed) Set(ctx context.Context, key, value string) error {
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("nonce: %w", err)
	}
	out := make([]byte, 0, len(nonce)+len(value)+s.aead.Overhead())
	out = append(out, nonce...)
	out = s.aead.Seal(out, nonce, []byte(value), []byte(key))
	return s.inner.Set(ctx, key, base64.StdEncoding.EncodeToString(out))
}

func (s *Sealed) Delete(ctx context.Context, keys ...string) error {
	return s.inner.Delete(ctx, keys...)
}
