package media

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"brief-backend/internal/auth"

	"github.com/gofiber/fiber/v2"
	"github.com/pashagolub/pgxmock/v3"
)

func multipartBody(t *testing.T, kind, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if kind != "" {
		_ = w.WriteField("kind", kind)
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="upload"`)
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	_, _ = part.Write(data)
	_ = w.Close()
	return &buf, w.FormDataContentType()
}

func TestUploadHandler(t *testing.T) {
	mock := newMock(t)
	svc := newTestService(mock, NewMemoryStore("https://cdn.test"))
	app := fiber.New()
	RegisterRoutes(app.Group("/media"), svc, func(c *fiber.Ctx) error {
		auth.SetUserID(c, "user-1")
		return c.Next()
	})

	mock.ExpectExec(`INSERT INTO storage_objects`).
		WithArgs(pgxmock.AnyArg(), "user-1", pgxmock.AnyArg(), pgxmock.AnyArg(), KindAudio, fixedNow).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	body, ct := multipartBody(t, KindAudio, "audio/mp4", []byte("voice"))
	req := httptest.NewRequest(http.MethodPost, "/media/upload", body)
	req.Header.Set("Content-Type", ct)
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusCreated {
		t.Fatalf("upload status: %v %v", resp, err)
	}

	body, ct = multipartBody(t, KindProfile, "image/jpeg", []byte("x"))
	req = httptest.NewRequest(http.MethodPost, "/media/upload", body)
	req.Header.Set("Content-Type", ct)
	resp, _ = app.Test(req)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for profile kind, got %d", resp.StatusCode)
	}

	req = httptest.NewRequest(http.MethodPost, "/media/upload", nil)
	resp, _ = app.Test(req)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 without file, got %d", resp.StatusCode)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestObjectRoutesServeMemoryStore(t *testing.T) {
	store := NewMemoryStore("/media/objects")
	if err := store.Put(context.Background(), "photos/a.jpg", strings.NewReader("jpg-bytes"), "image/jpeg"); err != nil {
		t.Fatalf("put: %v", err)
	}
	app := fiber.New()
	RegisterObjectRoutes(app.Group("/media"), store)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/media/objects/photos/a.jpg", nil))
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("get object: %v %v", resp, err)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/jpeg" {
		t.Fatalf("unexpected content type %q", ct)
	}

	resp, _ = app.Test(httptest.NewRequest(http.MethodGet, "/media/objects/missing.jpg", nil))
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}
