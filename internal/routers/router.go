package routers

import (
	"net/http"
	"time"

	"mindspark/realtime/internal/handlers"
	"mindspark/realtime/internal/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type Handlers struct {
	WS       *handlers.WSHandler
	Health   *handlers.HealthHandler
	Realtime *handlers.RealtimeHandler
}

// New builds the service router. The socket endpoint sits outside the
// request timeout since its handler returns only after the upgrade.
func New(h Handlers, allowedOrigins []string) *chi.Mux {
	router := chi.NewRouter()

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))
	router.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	router.Use(metrics.Middleware("realtime"))

	router.Get("/ws", h.WS.ServeWS)
	router.Handle("/metrics", metrics.Handler())

	router.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(15 * time.Second))
		HealthRoutes(r, h.Health)
		RealtimeRoutes(r, h.Realtime)
	})

	return router
}

func HealthRoutes(router chi.Router, healthHandler *handlers.HealthHandler) {
	router.Get("/healthz", healthHandler.HealthzHandler)
	router.Get("/readyz", healthHandler.ReadyzHandler)
}

func RealtimeRoutes(router chi.Router, realtimeHandler *handlers.RealtimeHandler) {
	router.Route("/api/v1/realtime", func(r chi.Router) {
		r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		})
		r.Get("/stats", realtimeHandler.StatsHandler)
		r.Get("/presence/{userId}", realtimeHandler.PresenceHandler)
	})
}
