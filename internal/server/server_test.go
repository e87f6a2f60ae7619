package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"brief-backend/internal/auth"
	"brief-backend/internal/config"

	"github.com/gofiber/fiber/v2"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	return NewServer(config.Config{
		JWTSecret:          "secret",
		ServerPort:         ":0",
		SuggestionCacheDir: t.TempDir(),
	}, nil, nil, Deps{})
}

func TestHealthRoute(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest("GET", "/health", nil)
	resp, err := s.App.Test(req)
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200 status")
	}
}

func TestMetricsRoute(t *testing.T) {
	s := newTestServer(t)

	resp, err := s.App.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/feed", "/friends", "/circles", "/notifications", "/users/me", "/contacts/matches"} {
		resp, err := s.App.Test(httptest.NewRequest(http.MethodGet, path, nil))
		if err != nil {
			t.Fatalf("%s: %v", path, err)
		}
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", path, resp.StatusCode)
		}
	}
}

func TestChannelAuthorizerUserChannel(t *testing.T) {
	s := newTestServer(t)
	allow := s.channelAuthorizer()

	app := fiber.New()
	app.Get("/:channel", func(c *fiber.Ctx) error {
		auth.SetUserID(c, "u1")
		if allow(c, c.Params("channel")) {
			return c.SendStatus(http.StatusOK)
		}
		return c.SendStatus(http.StatusForbidden)
	})

	cases := map[string]int{
		"user:u1":  http.StatusOK,
		"user:u2":  http.StatusForbidden,
		"other:u1": http.StatusForbidden,
	}
	for channel, want := range cases {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/"+channel, nil))
		if err != nil {
			t.Fatalf("%s: %v", channel, err)
		}
		if resp.StatusCode != want {
			t.Fatalf("%s: expected %d, got %d", channel, want, resp.StatusCode)
		}
	}
}
