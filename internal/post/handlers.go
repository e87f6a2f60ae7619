package post

import (
	"errors"

	"brief-backend/internal/auth"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Post("/", authMiddleware, func(c *fiber.Ctx) error {
		var req CreateRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		p, err := svc.Create(c.UserContext(), auth.UserID(c), req)
		if err != nil {
			return toHTTP(err)
		}
		return c.Status(fiber.StatusCreated).JSON(p)
	})

	r.Get("/mine", authMiddleware, func(c *fiber.Ctx) error {
		posts, err := svc.ListByUser(c.UserContext(), auth.UserID(c))
		if err != nil {
			return toHTTP(err)
		}
		return c.JSON(posts)
	})

	r.Delete("/:id", authMiddleware, func(c *fiber.Ctx) error {
		if err := svc.Delete(c.UserContext(), auth.UserID(c), c.Params("id")); err != nil {
			return toHTTP(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	r.Post("/:id/flag", authMiddleware, func(c *fiber.Ctx) error {
		var body struct {
			Reason string `json:"reason"`
		}
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		flag, err := svc.FlagPost(c.UserContext(), auth.UserID(c), c.Params("id"), body.Reason)
		if err != nil {
			return toHTTP(err)
		}
		return c.Status(fiber.StatusCreated).JSON(flag)
	})
}

func toHTTP(err error) error {
	switch {
	case errors.Is(err, ErrInvalid):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, ErrForbidden):
		return fiber.NewError(fiber.StatusForbidden, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}
