package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/mvalverde/agrolink-backend/pkg/config"
	"golang.org/x/crypto/argon2"
)

// ErrInvalidHash signals a malformed Argon2id hash string.
var ErrInvalidHash = errors.New("invalid argon2id hash")

// argonParams are the Argon2id cost parameters embedded in each hash so
// verification works even after the configured costs change.
type argonParams struct {
	memory      uint32
	time        uint32
	parallelism uint8
	saltLen     uint32
	keyLen      uint32
}

// HashPassword derives an Argon2id hash and encodes it in the standard
// $argon2id$ string format.
func HashPassword(password string, cfg config.PasswordConfig) (string, error) {
	if password == "" {
		return "", errors.New("password cannot be empty")
	}

	params := costsFrom(cfg)
	salt := make([]byte, params.saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, params.time, params.memory, params.parallelism, params.keyLen)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, params.memory, params.time, params.parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// VerifyPassword reports whether the password matches the encoded hash.
// The comparison is constant time.
func VerifyPassword(password, encoded string) (bool, error) {
	params, salt, key, err := decodeHash(encoded)
	if err != nil {
		return false, err
	}

	computed := argon2.IDKey([]byte(password), salt, params.time, params.memory, params.parallelism, params.keyLen)
	return subtle.ConstantTimeCompare(key, computed) == 1, nil
}

func costsFrom(cfg config.PasswordConfig) argonParams {
	return argonParams{
		memory:      clamp(cfg.ArgonMemoryKB, 8, 512*1024),
		time:        clamp(cfg.ArgonTime, 1, 10),
		parallelism: uint8(clamp(cfg.ArgonParallelism, 1, 255)),
		saltLen:     clamp(cfg.ArgonSaltLen, 8, 64),
		keyLen:      clamp(cfg.ArgonKeyLen, 16, 64),
	}
}

func decodeHash(encoded string) (argonParams, []byte, []byte, error) {
	var (
		version         int
		params          argonParams
		encSalt, encKey string
	)
	n, err := fmt.Sscanf(encoded, "$argon2id$v=%d$m=%d,t=%d,p=%d$%s",
		&version, &params.memory, &params.time, &params.parallelism, &encSalt)
	if err != nil || n != 5 || version != argon2.Version {
		return argonParams{}, nil, nil, ErrInvalidHash
	}

	// Sscanf's %s is greedy, so the salt token still carries the key.
	i := strings.IndexByte(encSalt, '$')
	if i < 0 {
		return argonParams{}, nil, nil, ErrInvalidHash
	}
	encSalt, encKey = encSalt[:i], encSalt[i+1:]

	salt, err := base64.RawStdEncoding.DecodeString(encSalt)
	if err != nil {
		return argonParams{}, nil, nil, ErrInvalidHash
	}
	key, err := base64.RawStdEncoding.DecodeString(encKey)
	if err != nil {
		return argonParams{}, nil, nil, ErrInvalidHash
	}

	params.saltLen = uint32(len(salt))
	params.keyLen = uint32(len(key))
	return params, salt, key, nil
}

func clamp(value, min, max int) uint32 {
	if value < min {
		value = min
	}
	if value > max {
		value = max
	}
	return uint32(value)
}
