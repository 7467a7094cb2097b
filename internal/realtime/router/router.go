package router

import (
	"context"

	"github.com/LajoLouis/lajospacesbackend-sub000/internal/realtime/app"
	"github.com/LajoLouis/lajospacesbackend-sub000/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"github.com/gofiber/websocket/v2"
)

// RegisterRoutes wires the realtime channel and the query-side REST
// surface onto the fiber app.
// @title LajoSpaces Realtime Service API
// @version 1.0
// @description Conversation, presence and messaging gateway
// @BasePath /
func RegisterRoutes(r *fiber.App, wsHandler *app.RealtimeWebsocketHandler, rest *RestHandler) {
	r.Get("/swagger/*", swagger.HandlerDefault)
	r.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	r.Use(middlewares.JWTMiddleware())

	r.Get("/ws", websocket.New(func(c *websocket.Conn) {
		wsHandler.HandleConnection(context.Background(), c)
	}))

	conversations := r.Group("/conversations")
	conversations.Get("/:id/messages", rest.History)
	conversations.Post("/:id/read", rest.MarkRead)
	conversations.Post("/:id/mute", rest.Mute)

	r.Get("/presence/:id", rest.Presence)
}
