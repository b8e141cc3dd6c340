package handler

import (
	"ai-video-companion/internal/pkg/logger"
	"ai-video-companion/internal/pkg/serverutils"
	internalWS "ai-video-companion/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// StreamHandler serves the live video state stream.
type StreamHandler struct {
	hub    *internalWS.Hub
	logger logger.ILogger
}

func NewStreamHandler(hub *internalWS.Hub, log logger.ILogger) *StreamHandler {
	return &StreamHandler{
		hub:    hub,
		logger: log,
	}
}

// ServeWs upgrades the request and streams state events until the peer
// disconnects.
func (h *StreamHandler) ServeWs(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	return websocket.New(func(conn *websocket.Conn) {
		h.logger.Info("StreamHandler", "Starting WebSocket session", map[string]interface{}{"remote": conn.RemoteAddr().String()})
		internalWS.ServeWs(h.hub, conn)
		h.logger.Info("StreamHandler", "WebSocket session ended", nil)
	})(c)
}

// Clients reports how many state stream subscribers are connected.
func (h *StreamHandler) Clients(c *fiber.Ctx) error {
	return c.JSON(serverutils.SuccessResponse("Success get stream clients", fiber.Map{"clients": h.hub.ClientCount()}))
}

func (h *StreamHandler) RegisterRoutes(router fiber.Router) {
	stream := router.Group("/video/v1")
	stream.Get("/ws", h.ServeWs)
	stream.Get("/ws/clients", h.Clients)
}
