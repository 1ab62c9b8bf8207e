package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeNotFound(w, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, ErrCodeMethodNotAllow, "method not allowed")
	})

	// Prometheus scrape endpoint (no auth, like health)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Get("/status", s.handleStatus)

			r.Route("/rooms", func(r chi.Router) {
				r.Get("/", s.handleListRooms)
				r.Get("/{id}", s.handleGetRoom)
			})
			r.Get("/devices", s.handleListDevices)

			r.Route("/actuators/{id}", func(r chi.Router) {
				r.Post("/state", s.handleSetActuatorState)
				r.Put("/mode", s.handleSetActuatorMode)
				r.Post("/color", s.handleSetActuatorColor)
			})

			r.Route("/mcus/{id}", func(r chi.Router) {
				r.Patch("/", s.handleUpdateMCU)
				r.Post("/enable", s.handleEnableMCU)
				r.Post("/disable", s.handleDisableMCU)
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", s.handleListNotifications)
				r.Delete("/", s.handleDeleteNotifications)
				r.Get("/unread-count", s.handleUnreadCount)
				r.Patch("/read-all", s.handleMarkAllRead)
				r.Patch("/{id}/read", s.handleMarkRead)
			})

			r.Route("/automation", func(r chi.Router) {
				r.Get("/mode", s.handleGetAutomationMode)
				r.Put("/mode", s.handleSetAutomationMode)
				r.Get("/thresholds", s.handleGetThresholds)
				r.Get("/history", s.handleAutomationHistory)
			})

			r.Post("/ui/ready", s.handleUIReady)
			r.Post("/stream/simulate", s.handleSimulateStream)
			r.Post("/telemetry/{id}", s.handleInjectTelemetry)

			r.Get("/ws", s.handleWebSocket)
		})
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
		"stream":  s.stream.State().String(),
	})
}

// pathID parses the {id} URL parameter, writing a 400 on failure.
func pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.Atoi(raw)
	if err != nil {
		writeBadRequest(w, "invalid id: "+raw)
		return 0, false
	}
	return id, true
}
