package friend

import (
	"errors"

	"brief-backend/internal/auth"

	"github.com/gofiber/fiber/v2"
)

type userBody struct {
	UserID string `json:"user_id"`
}

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Get("/", authMiddleware, func(c *fiber.Ctx) error {
		friends, err := svc.ListFriends(c.UserContext(), auth.UserID(c))
		if err != nil {
			return toHTTP(err)
		}
		return c.JSON(friends)
	})

	r.Delete("/:userID", authMiddleware, func(c *fiber.Ctx) error {
		if err := svc.Remove(c.UserContext(), auth.UserID(c), c.Params("userID")); err != nil {
			return toHTTP(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	r.Post("/requests", authMiddleware, func(c *fiber.Ctx) error {
		var body userBody
		if err := c.BodyParser(&body); err != nil || body.UserID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "user_id required")
		}
		if err := svc.SendRequest(c.UserContext(), auth.UserID(c), body.UserID); err != nil {
			return toHTTP(err)
		}
		return c.SendStatus(fiber.StatusCreated)
	})

	r.Get("/requests/incoming", authMiddleware, func(c *fiber.Ctx) error {
		requests, err := svc.ListIncoming(c.UserContext(), auth.UserID(c))
		if err != nil {
			return toHTTP(err)
		}
		return c.JSON(requests)
	})

	r.Get("/requests/sent", authMiddleware, func(c *fiber.Ctx) error {
		requests, err := svc.ListSent(c.UserContext(), auth.UserID(c))
		if err != nil {
			return toHTTP(err)
		}
		return c.JSON(requests)
	})

	r.Post("/requests/:userID/accept", authMiddleware, func(c *fiber.Ctx) error {
		if err := svc.Accept(c.UserContext(), auth.UserID(c), c.Params("userID")); err != nil {
			return toHTTP(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	r.Post("/requests/:userID/decline", authMiddleware, func(c *fiber.Ctx) error {
		if err := svc.Decline(c.UserContext(), auth.UserID(c), c.Params("userID")); err != nil {
			return toHTTP(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	r.Delete("/requests/:userID", authMiddleware, func(c *fiber.Ctx) error {
		if err := svc.Cancel(c.UserContext(), auth.UserID(c), c.Params("userID")); err != nil {
			return toHTTP(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	r.Get("/blocks", authMiddleware, func(c *fiber.Ctx) error {
		blocked, err := svc.Blocked(c.UserContext(), auth.UserID(c))
		if err != nil {
			return toHTTP(err)
		}
		return c.JSON(blocked)
	})

	r.Post("/blocks", authMiddleware, func(c *fiber.Ctx) error {
		var body userBody
		if err := c.BodyParser(&body); err != nil || body.UserID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "user_id required")
		}
		if err := svc.Block(c.UserContext(), auth.UserID(c), body.UserID); err != nil {
			return toHTTP(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	r.Delete("/blocks/:userID", authMiddleware, func(c *fiber.Ctx) error {
		if err := svc.Unblock(c.UserContext(), auth.UserID(c), c.Params("userID")); err != nil {
			return toHTTP(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	r.Get("/suggestions", authMiddleware, func(c *fiber.Ctx) error {
		userID := auth.UserID(c)
		if requested := c.Query("userId"); requested != "" && requested != userID {
			return fiber.NewError(fiber.StatusForbidden, "suggestions are only available for yourself")
		}
		suggestions, err := svc.Suggestions(c.UserContext(), userID, c.QueryInt("page", 1))
		if err != nil {
			return toHTTP(err)
		}
		return c.JSON(suggestions)
	})
}

func toHTTP(err error) error {
	switch {
	case errors.Is(err, ErrSelf):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, ErrUserNotFound), errors.Is(err, ErrRequestNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, ErrAlreadyFriends):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, ErrBlocked):
		return fiber.NewError(fiber.StatusForbidden, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}
