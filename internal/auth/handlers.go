package auth

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service) {
	r.Post("/register", func(c *fiber.Ctx) error {
		var req SignUpRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
		}
		acc, sess, err := svc.SignUp(c.UserContext(), req)
		if err != nil {
			return toHTTP(err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"user": acc, "tokens": sess})
	})

	r.Post("/login", func(c *fiber.Ctx) error {
		var req SignInRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
		}
		acc, sess, err := svc.SignIn(c.UserContext(), req)
		if err != nil {
			return toHTTP(err)
		}
		return c.JSON(fiber.Map{"user": acc, "tokens": sess})
	})

	r.Post("/refresh", func(c *fiber.Ctx) error {
		var req RefreshRequest
		if err := c.BodyParser(&req); err != nil || req.RefreshToken == "" {
			return fiber.NewError(fiber.StatusBadRequest, "refresh_token required")
		}
		sess, err := svc.Refresh(c.UserContext(), req.RefreshToken)
		if err != nil {
			return toHTTP(err)
		}
		return c.JSON(sess)
	})

	r.Post("/logout", func(c *fiber.Ctx) error {
		var req RefreshRequest
		if err := c.BodyParser(&req); err != nil || req.RefreshToken == "" {
			return fiber.NewError(fiber.StatusBadRequest, "refresh_token required")
		}
		if err := svc.Revoke(c.UserContext(), req.RefreshToken); err != nil {
			return toHTTP(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	r.Get("/jwt/verify", func(c *fiber.Ctx) error {
		token := bearerFromHeader(c.Get(fiber.HeaderAuthorization))
		if token == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing bearer token")
		}
		userID, err := svc.Verify(token)
		if err != nil {
			return toHTTP(err)
		}
		return c.JSON(fiber.Map{"user_id": userID})
	})
}

func toHTTP(err error) error {
	switch {
	case errors.Is(err, ErrMissingFields), errors.Is(err, ErrWeakPassword), errors.Is(err, ErrInvalidUsername):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, ErrTaken):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrTokenInvalid):
		return fiber.NewError(fiber.StatusUnauthorized, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}
