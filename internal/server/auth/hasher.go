package auth

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/filmkeeper/internal/common"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

const (
	// MaxPasswordLength bounds the work an unauthenticated caller can ask for.
	MaxPasswordLength = 1024

	saltLen = 16
	keyLen  = 32
)

// HashParams is the Argon2id work factor. Memory is in KiB.
type HashParams struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
}

// DefaultHashParams: 64 MiB, 3 passes, 1 lane.
var DefaultHashParams = HashParams{Memory: 64 * 1024, Iterations: 3, Parallelism: 1}

// PasswordHasher produces and checks Argon2id hashes in PHC format:
//
//	$argon2id$v=19$m=65536,t=3,p=1$<salt>$<hash>
//
// Legacy bcrypt hashes are still accepted by Verify. At most
// maxConcurrent computations run at once; waiting callers give up when
// their context ends.
type PasswordHasher struct {
	params HashParams
	sem    *semaphore.Weighted
}

func NewPasswordHasher(params HashParams, maxConcurrent int) *PasswordHasher {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &PasswordHasher{
		params: params,
		sem:    semaphore.NewWeighted(int64(maxConcurrent)),
	}
}

// Params returns the parameters new hashes are produced with.
func (h *PasswordHasher) Params() HashParams {
	return h.params
}

// Hash returns the PHC encoding of password with a fresh random salt.
func (h *PasswordHasher) Hash(ctx context.Context, password string) (string, error) {
	if err := checkPassword(password); err != nil {
		return "", err
	}

	salt, err := common.GenerateRandBytes(saltLen)
	if err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer h.sem.Release(1)

	pw := []byte(password)
	defer common.WipeByteArray(pw)

	key := argon2.IDKey(pw, salt, h.params.Iterations, h.params.Memory, h.params.Parallelism, keyLen)

	return encodePHC(h.params, salt, key), nil
}

// Verify reports whether password matches encoded. A mismatch is (false, nil);
// an encoding that is neither Argon2id nor bcrypt is common.ErrMalformedHash.
func (h *PasswordHasher) Verify(ctx context.Context, password, encoded string) (bool, error) {
	if err := checkPassword(password); err != nil {
		return false, err
	}

	if isBcrypt(encoded) {
		return h.verifyBcrypt(ctx, password, encoded)
	}

	params, salt, key, err := decodePHC(encoded)
	if err != nil {
		return false, err
	}

	if err := h.sem.Acquire(ctx, 1); err != nil {
		return false, err
	}
	defer h.sem.Release(1)

	pw := []byte(password)
	defer common.WipeByteArray(pw)

	candidate := argon2.IDKey(pw, salt, params.Iterations, params.Memory, params.Parallelism, uint32(len(key))) //nolint:gosec // key length is bounded by decodePHC

	return subtle.ConstantTimeCompare(key, candidate) == 1, nil
}

func (h *PasswordHasher) verifyBcrypt(ctx context.Context, password, encoded string) (bool, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return false, err
	}
	defer h.sem.Release(1)

	err := bcrypt.CompareHashAndPassword([]byte(encoded), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword), errors.Is(err, bcrypt.ErrPasswordTooLong):
		return false, nil
	default:
		return false, fmt.Errorf("%w: %v", common.ErrMalformedHash, err)
	}
}

// NeedsRehash reports whether encoded was produced by another algorithm
// or with different parameters than the hasher currently uses.
func (h *PasswordHasher) NeedsRehash(encoded string) bool {
	params, _, _, err := decodePHC(encoded)
	if err != nil {
		return true
	}
	return params != h.params
}

func checkPassword(password string) error {
	if password == "" {
		return fmt.Errorf("%w: empty password", common.ErrInvalidInput)
	}
	if len(password) > MaxPasswordLength {
		return fmt.Errorf("%w: password longer than %d bytes", common.ErrInvalidInput, MaxPasswordLength)
	}
	return nil
}

func isBcrypt(encoded string) bool {
	for _, p := range []string{"$2a$", "$2b$", "$2y$"} {
		if strings.HasPrefix(encoded, p) {
			return true
		}
	}
	return false
}

func encodePHC(p HashParams, salt, key []byte) string {
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		p.Memory, p.Iterations, p.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	)
}

func decodePHC(encoded string) (params HashParams, salt, key []byte, err error) {
	malformed := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", common.ErrMalformedHash, fmt.Sprintf(format, args...))
	}

	parts := strings.Split(encoded, "$")
	if len(parts) != 6 {
		return params, nil, nil, malformed("expected 6 fields, got %d", len(parts))
	}
	if parts[1] != "argon2id" {
		return params, nil, nil, malformed("unsupported algorithm %q", parts[1])
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return params, nil, nil, malformed("parsing version: %v", err)
	}
	if version != argon2.Version {
		return params, nil, nil, malformed("unsupported version %d", version)
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &params.Memory, &params.Iterations, &params.Parallelism); err != nil {
		return params, nil, nil, malformed("parsing parameters: %v", err)
	}
	if params.Memory == 0 || params.Iterations == 0 || params.Parallelism == 0 {
		return params, nil, nil, malformed("zero parameter")
	}

	salt, err = base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return params, nil, nil, malformed("decoding salt")
	}

	key, err = base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) < 16 || len(key) > 64 {
		return params, nil, nil, malformed("decoding hash")
	}

	return params, salt, key, nil
}

// IsSupportedHash reports whether encoded is a hash Verify understands.
// It checks the encoding only, not the password.
func IsSupportedHash(encoded string) bool {
	if isBcrypt(encoded) {
		_, err := bcrypt.Cost([]byte(encoded))
		return err == nil
	}
	_, _, _, err := decodePHC(encoded)
	return err == nil
}
