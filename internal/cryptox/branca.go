// Package cryptox holds the cryptographic primitives of Skeleton: the
// Branca token codec used for session and reset tokens, and password
// hashing.
package cryptox

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/skeleton/internal/common"
	"golang.org/x/crypto/chacha20poly1305"
)

const (
	brancaVersion    byte = 0xBA
	brancaHeaderSize      = 1 + 4 + chacha20poly1305.NonceSizeX
	brancaMinSize         = brancaHeaderSize + chacha20poly1305.Overhead
)

// Branca issues and decodes Branca tokens: XChaCha20-Poly1305 ciphertexts
// whose header (version, issue timestamp, nonce) is authenticated as
// associated data, encoded as base62. The key is supplied per call, so a
// single Branca value serves every user's key.
//
// Branca holds no mutable state and is safe for concurrent use.
type Branca struct {
	now  func() time.Time
	rand io.Reader
}

// BrancaOption customises a Branca codec.
type BrancaOption func(*Branca)

// WithClock overrides the wall clock used for issue timestamps and TTL checks.
func WithClock(now func() time.Time) BrancaOption {
	return func(b *Branca) { b.now = now }
}

// WithRand overrides the nonce source.
func WithRand(r io.Reader) BrancaOption {
	return func(b *Branca) { b.rand = r }
}

func NewBranca(opts ...BrancaOption) *Branca {
	b := &Branca{now: time.Now, rand: rand.Reader}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Issue encrypts payload under key (32 bytes) and returns the token.
func (b *Branca) Issue(key, payload []byte) (string, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrorCrypto, err)
	}

	header := make([]byte, brancaHeaderSize, brancaHeaderSize+len(payload)+chacha20poly1305.Overhead)
	header[0] = brancaVersion
	binary.BigEndian.PutUint32(header[1:5], uint32(b.now().Unix()))
	if _, err := io.ReadFull(b.rand, header[5:]); err != nil {
		return "", fmt.Errorf("%w: nonce: %v", common.ErrorCrypto, err)
	}

	nonce := header[5:brancaHeaderSize]
	token := aead.Seal(header, nonce, payload, header)

	return encodeBase62(token), nil
}

// Decode authenticates token under key and returns its payload.
//
// Any encoding, version or authentication failure yields
// common.ErrInvalidToken. When ttl is non-zero and more than ttl seconds
// have passed since issuance, common.ErrTokenExpired is returned. The
// expiry check runs only after the token has been authenticated.
func (b *Branca) Decode(key []byte, token string, ttl uint32) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorCrypto, err)
	}

	raw, err := decodeBase62(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}
	if len(raw) < brancaMinSize {
		return nil, fmt.Errorf("%w: token too short", common.ErrInvalidToken)
	}
	if raw[0] != brancaVersion {
		return nil, fmt.Errorf("%w: unknown version 0x%x", common.ErrInvalidToken, raw[0])
	}

	header := raw[:brancaHeaderSize]
	nonce := header[5:]
	payload, err := aead.Open(nil, nonce, raw[brancaHeaderSize:], header)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}

	if ttl != 0 {
		issued := uint64(binary.BigEndian.Uint32(header[1:5]))
		if issued+uint64(ttl) < uint64(b.now().Unix()) {
			return nil, common.ErrTokenExpired
		}
	}

	return payload, nil
}

// IssuedAt returns the timestamp embedded in token without authenticating
// it. Useful for diagnostics only; never trust it for access decisions.
func IssuedAt(token string) (time.Time, error) {
	raw, err := decodeBase62(token)
	if err != nil || len(raw) < brancaMinSize || raw[0] != brancaVersion {
		return time.Time{}, common.ErrInvalidToken
	}
	return time.Unix(int64(binary.BigEndian.Uint32(raw[1:5])), 0).UTC(), nil
}
