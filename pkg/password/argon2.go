package password

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
)

// Hasher derives and checks password hashes. The salt and the hash are
// stored separately on the user record.
type Hasher interface {
	Hash(ctx context.Context, plaintext string) (salt, hash string, err error)
	Compare(ctx context.Context, plaintext, salt, hash string) (bool, error)
}

type Config struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

func DefaultConfig() Config {
	return Config{
		Memory:      64 * 1024,
		Time:        1,
		Parallelism: 4,
		SaltLength:  16,
		KeyLength:   32,
	}
}

type argon2Hasher struct {
	config Config
}

func NewArgon2Hasher(cfg Config) (*argon2Hasher, error) {
	if cfg.Memory == 0 || cfg.Time == 0 || cfg.Parallelism == 0 {
		return nil, errors.New("argon2 cost parameters must be positive")
	}

	if cfg.SaltLength < 8 || cfg.KeyLength < 16 {
		return nil, errors.New("argon2 salt or key length is too short")
	}

	return &argon2Hasher{config: cfg}, nil
}

func (a *argon2Hasher) Hash(ctx context.Context, plaintext string) (string, string, error) {
	if err := ctx.Err(); err != nil {
		return "", "", err
	}

	salt := make([]byte, a.config.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", "", fmt.Errorf("cannot generate salt: %w", err)
	}

	hash := a.derive(plaintext, salt)
	return base64.StdEncoding.EncodeToString(salt), base64.StdEncoding.EncodeToString(hash), nil
}

func (a *argon2Hasher) Compare(ctx context.Context, plaintext, salt, hash string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	rawSalt, err := base64.StdEncoding.DecodeString(salt)
	if err != nil {
		return false, fmt.Errorf("invalid salt encoding: %w", err)
	}

	expected, err := base64.StdEncoding.DecodeString(hash)
	if err != nil {
		return false, fmt.Errorf("invalid hash encoding: %w", err)
	}

	if uint32(len(expected)) != a.config.KeyLength {
		return false, errors.New("hash length does not match the configured key length")
	}

	return subtle.ConstantTimeCompare(a.derive(plaintext, rawSalt), expected) == 1, nil
}

func (a *argon2Hasher) derive(plaintext string, salt []byte) []byte {
	return argon2.IDKey(
		[]byte(plaintext),
		salt,
		a.config.Time,
		a.config.Memory,
		a.config.Parallelism,
		a.config.KeyLength,
	)
}
