package engagement

import (
	"errors"

	"brief-backend/internal/auth"
	"brief-backend/internal/post"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Post("/:id/views", authMiddleware, func(c *fiber.Ctx) error {
		recorded, err := svc.RecordView(c.UserContext(), c.Params("id"), auth.UserID(c))
		if err != nil {
			return toHTTP(err)
		}
		return c.JSON(fiber.Map{"recorded": recorded})
	})

	r.Get("/:id/counts", authMiddleware, func(c *fiber.Ctx) error {
		counts, err := svc.CountsFor(c.UserContext(), c.Params("id"), auth.UserID(c))
		if err != nil {
			return toHTTP(err)
		}
		return c.JSON(counts)
	})

	r.Get("/:id/reactions", authMiddleware, func(c *fiber.Ctx) error {
		reactions, err := svc.Reactions(c.UserContext(), c.Params("id"), auth.UserID(c))
		if err != nil {
			return toHTTP(err)
		}
		return c.JSON(reactions)
	})

	r.Put("/:id/reactions", authMiddleware, func(c *fiber.Ctx) error {
		var body struct {
			Emoji string `json:"emoji"`
		}
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		reaction, err := svc.React(c.UserContext(), c.Params("id"), auth.UserID(c), body.Emoji)
		if err != nil {
			return toHTTP(err)
		}
		return c.JSON(reaction)
	})

	r.Delete("/:id/reactions", authMiddleware, func(c *fiber.Ctx) error {
		if err := svc.Unreact(c.UserContext(), c.Params("id"), auth.UserID(c)); err != nil {
			return toHTTP(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	r.Get("/:id/comments", authMiddleware, func(c *fiber.Ctx) error {
		comments, err := svc.Comments(c.UserContext(), c.Params("id"), auth.UserID(c))
		if err != nil {
			return toHTTP(err)
		}
		return c.JSON(comments)
	})

	r.Post("/:id/comments", authMiddleware, func(c *fiber.Ctx) error {
		var body struct {
			Text string `json:"text"`
		}
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		comment, err := svc.AddComment(c.UserContext(), c.Params("id"), auth.UserID(c), body.Text)
		if err != nil {
			return toHTTP(err)
		}
		return c.Status(fiber.StatusCreated).JSON(comment)
	})

	r.Delete("/:id/comments/:commentID", authMiddleware, func(c *fiber.Ctx) error {
		if err := svc.DeleteComment(c.UserContext(), c.Params("id"), c.Params("commentID"), auth.UserID(c)); err != nil {
			return toHTTP(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}

func toHTTP(err error) error {
	switch {
	case errors.Is(err, ErrInvalid):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, post.ErrNotFound), errors.Is(err, ErrCommentNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, ErrForbidden):
		return fiber.NewError(fiber.StatusForbidden, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}
