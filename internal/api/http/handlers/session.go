package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/signup-forms/internal/auth"
	"github.com/spec-kit/signup-forms/internal/domain"
	apperrors "github.com/spec-kit/signup-forms/pkg/util/errorutil"
)

func sessionFrom(c *fiber.Ctx) (domain.Session, error) {
	session, ok := auth.SessionFromContext(c)
	if !ok || session == nil {
		return domain.Session{}, apperrors.NewUnauthorized("missing session")
	}
	return *session, nil
}
