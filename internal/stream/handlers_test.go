package stream

import (
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gorilla/websocket"
)

func passThrough(c *fiber.Ctx) error { return c.Next() }

func startApp(t *testing.T, hub *Hub, allow Authorizer) string {
	t.Helper()
	app := fiber.New()
	RegisterRoutes(app.Group("/stream"), hub, passThrough, allow)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen error: %v", err)
	}
	go func() {
		_ = app.Listener(ln)
	}()
	t.Cleanup(func() { _ = app.Shutdown() })
	return "ws://" + ln.Addr().String() + "/stream/ws/"
}

func waitSubscribers(t *testing.T, hub *Hub, channel string, n int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for hub.Subscribers(channel) != n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d subscribers on %s", n, channel)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestStreamHandlersUpgradeRequired(t *testing.T) {
	app := fiber.New()
	RegisterRoutes(app.Group("/stream"), NewHub(nil), passThrough, nil)

	req := httptest.NewRequest(http.MethodGet, "/stream/ws/post:1", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request error: %v", err)
	}
	if resp.StatusCode != http.StatusUpgradeRequired {
		t.Fatalf("expected 426, got %d", resp.StatusCode)
	}
}

func TestStreamHandlersRejectsUnknownChannel(t *testing.T) {
	base := startApp(t, NewHub(nil), nil)
	_, resp, err := websocket.DefaultDialer.Dial(base+"session-1", nil)
	if err == nil {
		t.Fatalf("expected dial error")
	}
	if resp == nil || resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 response")
	}
}

func TestStreamHandlersForbidden(t *testing.T) {
	deny := func(*fiber.Ctx, string) bool { return false }
	base := startApp(t, NewHub(nil), deny)
	_, resp, err := websocket.DefaultDialer.Dial(base+"post:1", nil)
	if err == nil {
		t.Fatalf("expected dial error")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 response")
	}
}

func TestStreamHandlersWebsocketBroadcast(t *testing.T) {
	hub := NewHub(nil)
	base := startApp(t, hub, nil)

	conn, _, err := websocket.DefaultDialer.Dial(base+"post:1", nil)
	if err != nil {
		t.Fatalf("dial error: %v", err)
	}
	defer conn.Close()
	waitSubscribers(t, hub, "post:1", 1)

	hub.Broadcast("post:1", []byte("hello"))
	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read error: %v", err)
	}
	if string(msg) != "hello" {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestStreamHandlersCloseUnregisters(t *testing.T) {
	hub := NewHub(nil)
	base := startApp(t, hub, nil)

	conn, _, err := websocket.DefaultDialer.Dial(base+"user:u1", nil)
	if err != nil {
		t.Fatalf("dial error: %v", err)
	}
	waitSubscribers(t, hub, "user:u1", 1)

	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
	conn.Close()
	waitSubscribers(t, hub, "user:u1", 0)

	hub.Broadcast("user:u1", []byte("ping"))
}
