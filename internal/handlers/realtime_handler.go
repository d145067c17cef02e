package handlers

import (
	"context"
	"net/http"
	"strings"

	"mindspark/realtime/internal/hub"
	"mindspark/realtime/internal/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// PresenceLookup resolves cluster-wide presence.
type PresenceLookup interface {
	Lookup(ctx context.Context, userID string) (instanceID string, online bool, err error)
}

type PresenceResponse struct {
	UserID     string `json:"user_id"`
	Online     bool   `json:"online"`
	Local      bool   `json:"local"`
	InstanceID string `json:"instance_id,omitempty"`
}

type RealtimeHandler struct {
	hub      *hub.Hub
	presence PresenceLookup
	logger   *zap.Logger
}

// NewRealtimeHandler serves hub statistics and presence lookups. presence may
// be nil, in which case only this instance's sessions are consulted.
func NewRealtimeHandler(h *hub.Hub, presence PresenceLookup, logger *zap.Logger) *RealtimeHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RealtimeHandler{hub: h, presence: presence, logger: logger}
}

func (handler *RealtimeHandler) StatsHandler(writer http.ResponseWriter, _ *http.Request) {
	utils.JSON(writer, http.StatusOK, handler.hub.Stats())
}

func (handler *RealtimeHandler) PresenceHandler(writer http.ResponseWriter, request *http.Request) {
	userID := strings.TrimSpace(chi.URLParam(request, "userId"))
	if userID == "" {
		utils.JSONError(writer, http.StatusBadRequest, "USER_ID_REQUIRED", "userId is required")
		return
	}

	response := PresenceResponse{UserID: userID, Local: handler.hub.IsOnline(userID)}
	response.Online = response.Local

	if handler.presence != nil {
		instance, online, err := handler.presence.Lookup(request.Context(), userID)
		if err != nil {
			handler.logger.Warn("presence lookup failed", zap.String("user", userID), zap.Error(err))
			if !response.Local {
				utils.JSONError(writer, http.StatusServiceUnavailable, "PRESENCE_UNAVAILABLE", "Presence store unavailable")
				return
			}
		} else if online {
			response.Online = true
			response.InstanceID = instance
		}
	}

	utils.JSON(writer, http.StatusOK, response)
}
