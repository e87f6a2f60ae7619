package post

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"brief-backend/internal/auth"

	"github.com/gofiber/fiber/v2"
	"github.com/pashagolub/pgxmock/v3"
)

func TestPostHandlers(t *testing.T) {
	mock := newMock(t)
	svc := newTestService(mock, nil)
	app := fiber.New()
	RegisterRoutes(app.Group("/posts"), svc, func(c *fiber.Ctx) error {
		auth.SetUserID(c, "alice")
		return c.Next()
	})

	mock.ExpectExec(`INSERT INTO posts`).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	req := httptest.NewRequest(http.MethodPost, "/posts/", bytes.NewBufferString(`{"text":"hi","distribution_circles":["climbers"]}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status: %v %v", resp, err)
	}

	req = httptest.NewRequest(http.MethodPost, "/posts/", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "application/json")
	resp, _ = app.Test(req)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}

	mock.ExpectQuery(`WHERE user_id=\$1\s+ORDER BY created_at DESC`).
		WithArgs("alice").
		WillReturnRows(pgxmock.NewRows(rowColumns))
	resp, _ = app.Test(httptest.NewRequest(http.MethodGet, "/posts/mine", nil))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("mine status: %d", resp.StatusCode)
	}

	mock.ExpectQuery(`SELECT user_id FROM posts`).
		WithArgs("p9").
		WillReturnRows(pgxmock.NewRows([]string{"user_id"}).AddRow(strPtr("bob")))
	resp, _ = app.Test(httptest.NewRequest(http.MethodDelete, "/posts/p9", nil))
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
