package auth

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/signup-forms/internal/domain"
	"github.com/spec-kit/signup-forms/internal/repository"
	apperrors "github.com/spec-kit/signup-forms/pkg/util/errorutil"
)

const sessionKey = "store_session"

// SessionMiddleware resolves ?context= into the store session for admin routes.
type SessionMiddleware struct {
	codec  *ContextCodec
	stores repository.StoreRepository
}

// NewSessionMiddleware constructs middleware.
func NewSessionMiddleware(codec *ContextCodec, stores repository.StoreRepository) *SessionMiddleware {
	return &SessionMiddleware{codec: codec, stores: stores}
}

// Handle rejects requests without a valid context token.
func (m *SessionMiddleware) Handle(c *fiber.Ctx) error {
	token := c.Query("context")
	if token == "" {
		return apperrors.NewUnauthorized("missing context")
	}

	storeHash, ok := m.codec.Decode(token)
	if !ok {
		return apperrors.NewUnauthorized("invalid context")
	}

	store, err := m.stores.GetStore(c.UserContext(), storeHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewUnauthorized("store not installed")
		}
		return apperrors.MapError(err)
	}

	c.Locals(sessionKey, &domain.Session{StoreHash: store.StoreHash, AccessToken: store.AccessToken})
	return c.Next()
}

// SessionFromContext retrieves the session set by SessionMiddleware.
func SessionFromContext(c *fiber.Ctx) (*domain.Session, bool) {
	val := c.Locals(sessionKey)
	if val == nil {
		return nil, false
	}
	session, ok := val.(*domain.Session)
	return session, ok
}
