// Package auth contains the credential hasher and the token service used by
// the account flows and the request gate.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Default argon2id parameters (OWASP recommendation).
const (
	DefaultArgon2Time    = 1
	DefaultArgon2Memory  = 64 * 1024
	DefaultArgon2Threads = 4

	argon2SaltLen = 16
	argon2KeyLen  = 32
)

var (
	// ErrEmptyPassword is returned when asked to hash an empty password.
	ErrEmptyPassword = errors.New("password cannot be empty")
	// ErrHashFailed wraps failures of the hashing machinery itself.
	ErrHashFailed = errors.New("password hashing failed")
)

// PasswordHasher turns plaintext passwords into encoded one-way hashes and
// checks candidates against them.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	// Verify reports whether plaintext matches hash. A malformed hash never
	// matches.
	Verify(plaintext, hash string) bool
}

// Argon2idHasher hashes with argon2id and encodes the result in PHC string
// form: $argon2id$v=19$m=65536,t=1,p=4$<salt>$<key>.
type Argon2idHasher struct {
	time    uint32
	memory  uint32
	threads uint8
	rand    io.Reader
}

// NewArgon2idHasher returns a hasher with the default parameters.
func NewArgon2idHasher() *Argon2idHasher {
	return NewArgon2idHasherWithParams(DefaultArgon2Time, DefaultArgon2Memory, DefaultArgon2Threads)
}

// NewArgon2idHasherWithParams returns a hasher with explicit cost
// parameters. Hashes already stored keep verifying regardless, as their
// parameters travel inside the encoded string.
func NewArgon2idHasherWithParams(time, memory uint32, threads uint8) *Argon2idHasher {
	return &Argon2idHasher{time: time, memory: memory, threads: threads, rand: rand.Reader}
}

func (h *Argon2idHasher) Hash(plaintext string) (string, error) {
	if plaintext == "" {
		return "", ErrEmptyPassword
	}

	salt := make([]byte, argon2SaltLen)
	if _, err := io.ReadFull(h.rand, salt); err != nil {
		return "", fmt.Errorf("%w: read salt: %w", ErrHashFailed, err)
	}

	key := argon2.IDKey([]byte(plaintext), salt, h.time, h.memory, h.threads, argon2KeyLen)

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.memory,
		h.time,
		h.threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

func (h *Argon2idHasher) Verify(plaintext, hash string) bool {
	p, err := decodeHash(hash)
	if err != nil {
		return false
	}

	computed := argon2.IDKey([]byte(plaintext), p.salt, p.time, p.memory, p.threads, uint32(len(p.key)))
	return subtle.ConstantTimeCompare(computed, p.key) == 1
}

type argon2Params struct {
	time, memory uint32
	threads      uint8
	salt, key    []byte
}

func decodeHash(encoded string) (*argon2Params, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return nil, errors.New("invalid hash format")
	}
	if parts[1] != "argon2id" {
		return nil, fmt.Errorf("unsupported hash algorithm %q", parts[1])
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, err
	}
	if version != argon2.Version {
		return nil, fmt.Errorf("unsupported argon2 version %d", version)
	}

	var memory, time, threads uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return nil, err
	}
	if time == 0 || memory == 0 || threads == 0 || threads > 255 {
		return nil, errors.New("invalid argon2 parameters")
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, err
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return nil, err
	}
	if len(key) == 0 || len(key) > 1024 {
		return nil, fmt.Errorf("invalid key length %d", len(key))
	}

	return &argon2Params{time: time, memory: memory, threads: uint8(threads), salt: salt, key: key}, nil
}
