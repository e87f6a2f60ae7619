package user

import (
	"errors"

	"brief-backend/internal/auth"
	"brief-backend/internal/media"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, uploads *media.Service, authMiddleware fiber.Handler) {
	r.Get("/me", authMiddleware, func(c *fiber.Ctx) error {
		profile, err := svc.Get(c.UserContext(), auth.UserID(c))
		if err != nil {
			return toHTTP(err)
		}
		return c.JSON(profile)
	})

	r.Patch("/me", authMiddleware, func(c *fiber.Ctx) error {
		var req UpdateRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		profile, err := svc.Update(c.UserContext(), auth.UserID(c), req)
		if err != nil {
			return toHTTP(err)
		}
		return c.JSON(profile)
	})

	r.Put("/me/profile-image", authMiddleware, imageHandler(svc, uploads, media.KindProfile))
	r.Put("/me/banner-image", authMiddleware, imageHandler(svc, uploads, media.KindBanner))

	r.Post("/me/push-tokens", authMiddleware, func(c *fiber.Ctx) error {
		var req PushTokenRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := svc.RegisterPushToken(c.UserContext(), auth.UserID(c), req.Token); err != nil {
			return toHTTP(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	r.Delete("/me/push-tokens/:token", authMiddleware, func(c *fiber.Ctx) error {
		if err := svc.DeletePushToken(c.UserContext(), auth.UserID(c), c.Params("token")); err != nil {
			return toHTTP(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	r.Get("/search", authMiddleware, func(c *fiber.Ctx) error {
		profiles, err := svc.Search(c.UserContext(), c.Query("q"))
		if err != nil {
			return toHTTP(err)
		}
		return c.JSON(profiles)
	})

	r.Get("/:id", authMiddleware, func(c *fiber.Ctx) error {
		profile, err := svc.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			return toHTTP(err)
		}
		return c.JSON(profile)
	})
}

func imageHandler(svc *Service, uploads *media.Service, kind string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		obj, err := media.UploadForm(c, uploads, kind)
		if err != nil {
			return err
		}
		if err := svc.SetImage(c.UserContext(), auth.UserID(c), kind, obj.URL); err != nil {
			return toHTTP(err)
		}
		return c.JSON(obj)
	}
}

func toHTTP(err error) error {
	switch {
	case errors.Is(err, ErrInvalid):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, ErrConflict):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}
