package routers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"mindspark/realtime/internal/handlers"
	"mindspark/realtime/internal/hub"
	"mindspark/realtime/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rejectAll struct{}

func (rejectAll) Verify(string) (string, error) { return "", io.EOF }

func newRouter(t *testing.T) (*chi.Mux, *hub.Hub) {
	t.Helper()
	h := hub.New(rejectAll{}, hub.Stores{}, hub.DefaultOptions(), nil)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = h.Shutdown(ctx)
	})

	router := New(Handlers{
		WS:       handlers.NewWSHandler(h, handlers.NewOriginPolicy([]string{"*"}, nil), nil),
		Health:   handlers.NewHealthHandler(nil),
		Realtime: handlers.NewRealtimeHandler(h, nil, nil),
	}, []string{"http://localhost:5173"})
	return router, h
}

func TestRoutesRegistered(t *testing.T) {
	router, _ := newRouter(t)

	var routes []string
	err := chi.Walk(router, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		routes = append(routes, method+" "+route)
		return nil
	})
	require.NoError(t, err)
	sort.Strings(routes)

	for _, want := range []string{
		"GET /ws",
		"GET /healthz",
		"GET /readyz",
		"GET /api/v1/realtime/healthz",
		"GET /api/v1/realtime/stats",
		"GET /api/v1/realtime/presence/{userId}",
	} {
		assert.Contains(t, routes, want)
	}
}

func TestRouterServesHTTPAndWebSocket(t *testing.T) {
	router, h := newRouter(t)
	srv := httptest.NewServer(router)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer ws.Close()

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	var welcome map[string]any
	require.NoError(t, ws.ReadJSON(&welcome))
	assert.Equal(t, models.TypeConnectionEstablished, welcome["type"])

	resp, err = http.Get(srv.URL + "/api/v1/realtime/stats")
	require.NoError(t, err)
	defer resp.Body.Close()
	var stats hub.Stats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	assert.Equal(t, 1, stats.TotalConnections)
	assert.Equal(t, h.Stats(), stats)

	metricsResp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer metricsResp.Body.Close()
	body, _ := io.ReadAll(metricsResp.Body)
	assert.Contains(t, string(body), "mindspark_realtime_open_connections")
}
