package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/filmkeeper/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims are the verified contents of an access token. Subject is the user
// id; Email is informational only. Roles are never carried in the token.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// IdentityClaims is what the caller supplies when issuing a token.
type IdentityClaims struct {
	Subject string
	Email   string
}

// TokenConfig configures a TokenCodec.
type TokenConfig struct {
	SecretKey []byte
	TTL       time.Duration
	Issuer    string
	ClockSkew time.Duration
}

// TokenCodec issues and verifies HS256-signed access tokens.
type TokenCodec struct {
	key    []byte
	ttl    time.Duration
	issuer string
	skew   time.Duration
	now    func() time.Time
	parser *jwt.Parser
}

type TokenOption func(*TokenCodec)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) TokenOption {
	return func(c *TokenCodec) { c.now = now }
}

func NewTokenCodec(cfg TokenConfig, opts ...TokenOption) (*TokenCodec, error) {
	if len(cfg.SecretKey) == 0 {
		return nil, errors.New("token secret key is empty")
	}
	if cfg.TTL <= 0 {
		return nil, fmt.Errorf("token ttl must be positive, got %s", cfg.TTL)
	}

	c := &TokenCodec{
		key:    append([]byte(nil), cfg.SecretKey...),
		ttl:    cfg.TTL,
		issuer: cfg.Issuer,
		skew:   cfg.ClockSkew,
		now:    time.Now,
	}
	for _, o := range opts {
		o(c)
	}

	popts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithStrictDecoding(),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(c.skew),
		jwt.WithTimeFunc(c.now),
	}
	if c.issuer != "" {
		popts = append(popts, jwt.WithIssuer(c.issuer))
	}
	c.parser = jwt.NewParser(popts...)

	return c, nil
}

// TTL is the lifetime of issued tokens.
func (c *TokenCodec) TTL() time.Duration {
	return c.ttl
}

// Issue signs a token for the given identity, valid from now for TTL.
func (c *TokenCodec) Issue(id IdentityClaims) (string, error) {
	if id.Subject == "" {
		return "", fmt.Errorf("%w: empty subject", common.ErrInvalidInput)
	}

	now := c.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   id.Subject,
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
		Email: id.Email,
	})

	return token.SignedString(c.key)
}

// Verify checks signature, algorithm, issuer and expiry and returns the
// claims. An expired but authentic token yields common.ErrTokenExpired;
// anything else yields common.ErrInvalidSignature.
func (c *TokenCodec) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := c.parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return c.key, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidSignature, err)
	}
	if !token.Valid || claims.Subject == "" {
		return nil, common.ErrInvalidSignature
	}

	return claims, nil
}
