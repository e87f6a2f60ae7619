package feed

import (
	"errors"

	"brief-backend/internal/auth"
	"brief-backend/internal/post"
	"brief-backend/internal/shared/geo"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Get("/", authMiddleware, func(c *fiber.Ctx) error {
		opts, err := parseOptions(c)
		if err != nil {
			return err
		}
		feed, err := svc.Feed(c.UserContext(), auth.UserID(c), opts)
		if err != nil {
			return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
		}
		return c.JSON(feed)
	})

	r.Get("/recency", authMiddleware, func(c *fiber.Ctx) error {
		open, err := svc.Recency(c.UserContext(), auth.UserID(c))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(fiber.Map{"recently_posted": open})
	})

	r.Get("/posts/:id", authMiddleware, func(c *fiber.Ctx) error {
		item, err := svc.Item(c.UserContext(), auth.UserID(c), c.Params("id"))
		if err != nil {
			if errors.Is(err, post.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, err.Error())
			}
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(item)
	})
}

func parseOptions(c *fiber.Ctx) (Options, error) {
	if c.Query("lat") == "" && c.Query("lng") == "" {
		return Options{}, nil
	}
	lat := c.QueryFloat("lat", 999)
	lng := c.QueryFloat("lng", 999)
	if !geo.Valid(lat, lng) {
		return Options{}, fiber.NewError(fiber.StatusBadRequest, "lat and lng must be valid coordinates")
	}
	radius := c.QueryFloat("radius_km", 0)
	if radius < 0 {
		return Options{}, fiber.NewError(fiber.StatusBadRequest, "radius_km must not be negative")
	}
	return Options{Near: &post.Location{Lat: lat, Lng: lng}, RadiusKm: radius}, nil
}
