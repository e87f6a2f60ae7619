package poke

import (
	"errors"

	"brief-backend/internal/auth"

	"github.com/gofiber/fiber/v2"
)

type pokeRequest struct {
	UserID string `json:"user_id"`
}

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Post("/", authMiddleware, func(c *fiber.Ctx) error {
		var req pokeRequest
		if err := c.BodyParser(&req); err != nil || req.UserID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "user_id required")
		}
		p, err := svc.Poke(c.UserContext(), auth.UserID(c), req.UserID)
		if err != nil {
			return toHTTP(err)
		}
		return c.Status(fiber.StatusCreated).JSON(p)
	})
}

func toHTTP(err error) error {
	switch {
	case errors.Is(err, ErrSelf):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotFriends):
		return fiber.NewError(fiber.StatusForbidden, err.Error())
	case errors.Is(err, ErrRateLimit):
		return fiber.NewError(fiber.StatusTooManyRequests, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}
