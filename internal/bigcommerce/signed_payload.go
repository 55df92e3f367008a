package bigcommerce

import (
	"errors"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/signup-forms/internal/domain"
	apperrors "github.com/spec-kit/signup-forms/pkg/util/errorutil"
)

type signedPayloadClaims struct {
	User  domain.BCUser `json:"user"`
	Owner domain.BCUser `json:"owner"`
	URL   string        `json:"url"`
	jwt.RegisteredClaims
}

// VerifySignedPayload validates the signed_payload_jwt sent on load and
// uninstall and returns the identity it carries.
func (c *Client) VerifySignedPayload(token string) (domain.StoreIdentity, error) {
	if token == "" {
		return domain.StoreIdentity{}, apperrors.NewBadRequest("missing signed_payload_jwt")
	}

	opts := []jwt.ParserOption{jwt.WithExpirationRequired()}
	if c.cfg.ClientID != "" {
		opts = append(opts, jwt.WithAudience(c.cfg.ClientID))
	}

	claims := &signedPayloadClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(c.cfg.ClientSecret), nil
	}, opts...)
	if err != nil || !parsed.Valid {
		return domain.StoreIdentity{}, apperrors.NewUnauthorized("invalid signed payload")
	}

	identity := domain.StoreIdentity{Sub: claims.Subject, User: claims.User, Owner: claims.Owner}
	if identity.StoreHash() == "" {
		return domain.StoreIdentity{}, apperrors.NewUnauthorized("signed payload has no store")
	}
	return identity, nil
}
