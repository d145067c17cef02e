package handlers

import (
	"net/http"

	"mindspark/realtime/internal/hub"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WSHandler upgrades HTTP requests and hands the socket to the hub.
type WSHandler struct {
	hub      *hub.Hub
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

func NewWSHandler(h *hub.Hub, origins *OriginPolicy, logger *zap.Logger) *WSHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WSHandler{
		hub: h,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     origins.Check,
		},
		logger: logger,
	}
}

func (handler *WSHandler) ServeWS(writer http.ResponseWriter, request *http.Request) {
	ws, err := handler.upgrader.Upgrade(writer, request, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		handler.logger.Debug("websocket upgrade failed", zap.String("remote", request.RemoteAddr), zap.Error(err))
		return
	}
	handler.hub.Serve(ws, request.RemoteAddr)
}
