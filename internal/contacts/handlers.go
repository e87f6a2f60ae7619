package contacts

import (
	"errors"

	"brief-backend/internal/auth"

	"github.com/gofiber/fiber/v2"
)

type uploadRequest struct {
	PhoneNumbers []string `json:"phone_numbers"`
}

type numberRequest struct {
	PhoneNumber string `json:"phone_number"`
}

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Put("/", authMiddleware, func(c *fiber.Ctx) error {
		var req uploadRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		matches, err := svc.Upload(c.UserContext(), auth.UserID(c), req.PhoneNumbers)
		if err != nil {
			return toHTTP(err)
		}
		return c.JSON(matches)
	})

	r.Get("/matches", authMiddleware, func(c *fiber.Ctx) error {
		matches, err := svc.Matches(c.UserContext(), auth.UserID(c))
		if err != nil {
			return toHTTP(err)
		}
		return c.JSON(matches)
	})

	r.Put("/me", authMiddleware, func(c *fiber.Ctx) error {
		var req numberRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		number, err := svc.RegisterNumber(c.UserContext(), auth.UserID(c), req.PhoneNumber)
		if err != nil {
			return toHTTP(err)
		}
		return c.JSON(fiber.Map{"phone_number": number})
	})
}

func toHTTP(err error) error {
	switch {
	case errors.Is(err, ErrInvalidNumber):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNumberTaken):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}
