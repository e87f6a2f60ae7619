package circle

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
		circle, err := svc.Create(c.UserContext(), auth.UserID(c), req)
		if err != nil {
			return toHTTP(err)
		}
		return c.Status(fiber.StatusCreated).JSON(circle)
	})

	r.Get("/", authMiddleware, func(c *fiber.Ctx) error {
		circles, err := svc.ListMine(c.UserContext(), auth.UserID(c))
		if err != nil {
			return toHTTP(err)
		}
		return c.JSON(circles)
	})

	r.Put("/:id/members", authMiddleware, func(c *fiber.Ctx) error {
		var req MembersRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		circle, err := svc.UpdateMembers(c.UserContext(), auth.UserID(c), c.Params("id"), req.MemberIDs)
		if err != nil {
			return toHTTP(err)
		}
		return c.JSON(circle)
	})

	r.Delete("/:id", authMiddleware, func(c *fiber.Ctx) error {
		if err := svc.Delete(c.UserContext(), auth.UserID(c), c.Params("id")); err != nil {
			return toHTTP(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
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
	case errors.Is(err, ErrConflict):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}
