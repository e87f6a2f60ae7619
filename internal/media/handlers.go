package media

import (
	"errors"
	"path/filepath"

	"brief-backend/internal/auth"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Post("/upload", authMiddleware, func(c *fiber.Ctx) error {
		kind := c.FormValue("kind", KindPhoto)
		if kind != KindPhoto && kind != KindAudio {
			return fiber.NewError(fiber.StatusBadRequest, "kind must be photo or audio")
		}
		obj, err := UploadForm(c, svc, kind)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(obj)
	})
}

// RegisterObjectRoutes serves objects held by a MemoryStore under GET /objects/*.
func RegisterObjectRoutes(r fiber.Router, store *MemoryStore) {
	r.Get("/objects/*", func(c *fiber.Ctx) error {
		key := c.Params("*")
		body, ok := store.Object(key)
		if !ok {
			return fiber.ErrNotFound
		}
		c.Type(filepath.Ext(key))
		return c.Send(body)
	})
}

// UploadForm reads the "file" field of a multipart request and uploads it as kind.
func UploadForm(c *fiber.Ctx, svc *Service, kind string) (Object, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		return Object{}, fiber.NewError(fiber.StatusBadRequest, "file required")
	}
	f, err := fh.Open()
	if err != nil {
		return Object{}, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	defer f.Close()

	obj, err := svc.Upload(c.UserContext(), auth.UserID(c), kind, fh.Header.Get("Content-Type"), fh.Size, f)
	if err != nil {
		return Object{}, toHTTP(err)
	}
	return obj, nil
}

func toHTTP(err error) error {
	switch {
	case errors.Is(err, ErrInvalidKind), errors.Is(err, ErrInvalidType):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, ErrTooLarge):
		return fiber.NewError(fiber.StatusRequestEntityTooLarge, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}
