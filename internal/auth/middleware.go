package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const localUserID = "user_id"

// JWTMiddleware validates access tokens and stores user_id in locals.
// Browsers cannot set headers on websocket upgrades, so those requests may
// carry the token in the access_token query parameter instead.
func JWTMiddleware(secret string) fiber.Handler {
	secretBytes := []byte(secret)
	return func(c *fiber.Ctx) error {
		token := requestToken(c)
		if token == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing bearer token")
		}

		parsed, err := parseMiddlewareClaimsFn(token, &Claims{}, func(_ *jwt.Token) (interface{}, error) {
			return secretBytes, nil
		})
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, err.Error())
		}

		claims, ok := parsed.Claims.(*Claims)
		if !ok || !parsed.Valid || claims.UserID == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "token invalid")
		}

		SetUserID(c, claims.UserID)
		return c.Next()
	}
}

// SetUserID stores the authenticated user on the request.
func SetUserID(c *fiber.Ctx, userID string) {
	c.Locals(localUserID, userID)
}

// UserID returns the authenticated user stored by JWTMiddleware.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(localUserID).(string)
	return id
}

var parseMiddlewareClaimsFn = jwt.ParseWithClaims

func requestToken(c *fiber.Ctx) string {
	if token := bearerFromHeader(c.Get(fiber.HeaderAuthorization)); token != "" {
		return token
	}
	if strings.EqualFold(c.Get(fiber.HeaderUpgrade), "websocket") {
		return c.Query("access_token")
	}
	return ""
}

func bearerFromHeader(header string) string {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
