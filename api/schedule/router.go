package schedule

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/portlogistics/portplan/core/logger"
)

// NewRouter mounts every endpoint of h.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(h.log))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", healthz)

	r.Route("/schedule/daily", func(r chi.Router) {
		r.Get("/basic", h.basic)
		r.Get("/multi-crane-comparison", h.compare)
		r.Get("/{algorithm}", h.solve)
	})

	r.Route("/operation-plans", func(r chi.Router) {
		r.Get("/", h.planByDay)
		r.Post("/", h.createPlan)
		r.Put("/vvn", h.updateVvn)
		r.Put("/batch", h.updateBatch)
		r.Get("/{id}", h.plan)
		r.Get("/{id}/audit", h.auditTrail)
	})

	r.Route("/dock-rebalance", func(r chi.Router) {
		r.Get("/proposal", h.proposal)
		r.Post("/apply", h.applyReassignment)
	})
	return r
}

// requestLogger logs one line per request with its route pattern and status.
func requestLogger(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := r.URL.Path
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				route = rc.RoutePattern()
			}
			log.Debugw("http request", map[string]any{
				"method":     r.Method,
				"route":      route,
				"status":     ww.Status(),
				"bytes":      ww.BytesWritten(),
				"latency_ms": time.Since(start).Milliseconds(),
				"request_id": middleware.GetReqID(r.Context()),
			})
		})
	}
}
