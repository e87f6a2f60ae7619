package stream

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

const localChannel = "stream_channel"

// Authorizer decides whether the authenticated request may listen on a channel.
type Authorizer func(c *fiber.Ctx, channel string) bool

func RegisterRoutes(r fiber.Router, hub *Hub, authMiddleware fiber.Handler, allow Authorizer) {
	r.Get("/ws/:channel", authMiddleware, func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		channel := c.Params("channel")
		if !validChannel(channel) {
			return fiber.NewError(fiber.StatusBadRequest, "unknown channel")
		}
		if allow != nil && !allow(c, channel) {
			return fiber.ErrForbidden
		}
		c.Locals(localChannel, channel)
		return c.Next()
	}, websocket.New(func(c *websocket.Conn) {
		channel, _ := c.Locals(localChannel).(string)
		client := hub.Register(channel)
		defer hub.Unregister(client)

		done := make(chan struct{})
		go func() {
			defer close(done)
			for msg := range client.Send {
				if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
					return
				}
			}
		}()

		for {
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
		}
		hub.Unregister(client)
		<-done
	}))
}

func validChannel(channel string) bool {
	kind, id, ok := strings.Cut(channel, ":")
	if !ok || id == "" {
		return false
	}
	return kind == "post" || kind == "user"
}
