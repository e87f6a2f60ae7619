package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func newPrivateApp() *fiber.App {
	app := fiber.New()
	app.Get("/private", JWTMiddleware("secret"), func(c *fiber.Ctx) error {
		if UserID(c) != "user-1" {
			return fiber.NewError(fiber.StatusUnauthorized)
		}
		return c.SendStatus(http.StatusOK)
	})
	return app
}

func TestJWTMiddleware(t *testing.T) {
	app := newPrivateApp()
	svc := NewService("secret", nil)

	resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/private", nil))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected unauthorized")
	}

	token, _ := svc.signToken("user-1", accessTokenTTL)
	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, _ = app.Test(req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected ok")
	}

	expired, _ := svc.signToken("user-1", -accessTokenTTL)
	req = httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set("Authorization", "Bearer "+expired)
	resp, _ = app.Test(req)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected unauthorized for expired token")
	}
}

func TestJWTMiddlewareQueryTokenOnlyForWebsocket(t *testing.T) {
	app := newPrivateApp()
	svc := NewService("secret", nil)
	token, _ := svc.signToken("user-1", accessTokenTTL)

	req := httptest.NewRequest(http.MethodGet, "/private?access_token="+token, nil)
	resp, _ := app.Test(req)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("query token must be ignored on plain requests, got %d", resp.StatusCode)
	}

	req = httptest.NewRequest(http.MethodGet, "/private?access_token="+token, nil)
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	resp, _ = app.Test(req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected ok for websocket upgrade, got %d", resp.StatusCode)
	}
}

func TestUserIDWithoutMiddleware(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		if UserID(c) != "" {
			t.Errorf("expected empty user id")
		}
		return c.SendStatus(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, err := app.Test(req); err != nil {
		t.Fatalf("request: %v", err)
	}
}
