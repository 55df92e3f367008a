package auth

import (
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/signup-forms/internal/domain"
)

// ErrEncoding is returned when no store hash can be extracted from an identity.
var ErrEncoding = errors.New("context encoding failed")

const previewLength = 20

// ContextCodec issues and validates the signed session token handed to the
// dashboard as ?context=. The token carries only the store hash.
type ContextCodec struct {
	secret []byte
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time
}

// NewContextCodec builds a codec signing with HS256 and the shared secret.
func NewContextCodec(secret string, ttl time.Duration, logger *zap.Logger) *ContextCodec {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContextCodec{secret: []byte(secret), ttl: ttl, logger: logger, now: time.Now}
}

// Claims describes the JWT payload.
type Claims struct {
	Context string `json:"context"`
	jwt.RegisteredClaims
}

// Encode signs a token for the store referenced by identity.
func (c *ContextCodec) Encode(identity domain.StoreIdentity) (string, error) {
	storeHash := identity.StoreHash()
	if storeHash == "" {
		c.logger.Warn("cannot encode session without store hash",
			zap.String("context", identity.Context),
			zap.String("sub", identity.Sub),
		)
		return "", fmt.Errorf("%w: missing store hash", ErrEncoding)
	}

	now := c.now()
	claims := &Claims{
		Context: storeHash,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncoding, err)
	}
	return signed, nil
}

// Decode verifies a token and returns the store hash it carries.
// Any failure yields ("", false) and a warning.
func (c *ContextCodec) Decode(token string) (string, bool) {
	if token == "" {
		c.logger.Warn("failed to decode session context", zap.String("reason", "empty token"))
		return "", false
	}

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return c.secret, nil
	}, jwt.WithTimeFunc(c.now), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		c.logger.Warn("failed to decode session context",
			zap.String("token_preview", preview(token)),
			zap.Error(err),
		)
		return "", false
	}

	claims, _ := parsed.Claims.(jwt.MapClaims)
	storeHash, ok := claims["context"].(string)
	if !ok || storeHash == "" {
		c.logger.Warn("session context missing store hash",
			zap.String("token_preview", preview(token)),
		)
		return "", false
	}
	return storeHash, true
}

func preview(token string) string {
	if len(token) <= previewLength {
		return token
	}
	return token[:previewLength] + "..."
}
