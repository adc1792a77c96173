package handler

import (
	"realtime-chat-be/internal/pkg/logger"
	internalWS "realtime-chat-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// GatewayHandler exposes the chat gateway over a websocket route.
type GatewayHandler struct {
	gateway *internalWS.Gateway
	logger  logger.ILogger
}

func NewGatewayHandler(gateway *internalWS.Gateway, log logger.ILogger) *GatewayHandler {
	return &GatewayHandler{
		gateway: gateway,
		logger:  log,
	}
}

func (h *GatewayHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/ws/chat", h.ServeWs)
}

// ServeWs upgrades the request and hands the connection to the gateway.
// Authentication happens after the upgrade so the client receives a
// structured error event before the transport closes.
func (h *GatewayHandler) ServeWs(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return websocket.New(func(conn *websocket.Conn) {
			h.logger.Info("GatewayHandler", "Starting chat session", nil)
			h.gateway.HandleConnection(conn)
			h.logger.Info("GatewayHandler", "Chat session ended", nil)
		})(c)
	}
	return fiber.ErrUpgradeRequired
}
