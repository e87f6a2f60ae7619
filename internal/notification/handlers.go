package notification

import (
	"time"

	"brief-backend/internal/auth"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Get("/", authMiddleware, func(c *fiber.Ctx) error {
		before, err := parseBefore(c)
		if err != nil {
			return err
		}
		items, err := svc.List(c.UserContext(), auth.UserID(c), before, c.QueryInt("limit"))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(items)
	})

	r.Get("/activities", authMiddleware, func(c *fiber.Ctx) error {
		before, err := parseBefore(c)
		if err != nil {
			return err
		}
		items, err := svc.ListActivities(c.UserContext(), auth.UserID(c), before, c.QueryInt("limit"))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(items)
	})

	r.Get("/unread", authMiddleware, func(c *fiber.Ctx) error {
		count, err := svc.UnreadCount(c.UserContext(), auth.UserID(c))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(fiber.Map{"unread": count})
	})

	r.Post("/read", authMiddleware, func(c *fiber.Ctx) error {
		updated, err := svc.MarkRead(c.UserContext(), auth.UserID(c))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(fiber.Map{"updated": updated})
	})
}

func parseBefore(c *fiber.Ctx) (time.Time, error) {
	raw := c.Query("before")
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fiber.NewError(fiber.StatusBadRequest, "before must be RFC3339")
	}
	return t, nil
}
