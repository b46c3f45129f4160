// Package api exposes BIA generation, review and risk platform sync over
// HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/bia-service/internal/bia"
	"github.com/sells-group/bia-service/internal/monitoring"
	"github.com/sells-group/bia-service/internal/source"
	"github.com/sells-group/bia-service/internal/store"
	"github.com/sells-group/bia-service/internal/workflow"
)

// Options tunes the router's middleware.
type Options struct {
	CORSOrigins    []string
	RateLimitRPS   float64
	RateLimitBurst int
	// StatsLookbackHours is the default window for GET /stats.
	StatsLookbackHours int
}

// Server holds the collaborators behind the HTTP handlers.
type Server struct {
	generator *bia.Generator
	workflow  *workflow.Service
	store     store.Store
	metrics   *monitoring.Collector
	adapters  []source.Adapter
	opts      Options
}

// NewServer creates a Server. The generator's collector supplies the
// adapters reported by GET /sources.
func NewServer(gen *bia.Generator, wf *workflow.Service, st store.Store, metrics *monitoring.Collector, opts Options) *Server {
	s := &Server{
		generator: gen,
		workflow:  wf,
		store:     st,
		metrics:   metrics,
		opts:      opts,
	}
	if gen != nil && gen.Collector() != nil {
		s.adapters = gen.Collector().Adapters()
	}
	return s
}

// Router builds the HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog)
	r.Use(middleware.Recoverer)

	origins := s.opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "Authorization", "X-Request-Id"},
		ExposedHeaders: []string{"Content-Disposition", "X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/health", s.health)

	r.Route("/api/v1", func(r chi.Router) {
		if s.opts.RateLimitRPS > 0 {
			burst := s.opts.RateLimitBurst
			if burst <= 0 {
				burst = 1
			}
			r.Use(rateLimit(rate.NewLimiter(rate.Limit(s.opts.RateLimitRPS), burst)))
		}

		r.Get("/health", s.health)
		r.Get("/sources", s.sources)
		r.Get("/stats", s.stats)

		r.Route("/bia", func(r chi.Router) {
			r.Post("/", s.generate)
			r.Get("/", s.list)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.get)
				r.Get("/audit", s.audit)
				r.Get("/export.xlsx", s.exportXLSX)
				r.Post("/submit", s.transition(workflow.ActionSubmit))
				r.Post("/approve", s.transition(workflow.ActionApprove))
				r.Post("/reject", s.transition(workflow.ActionReject))
				r.Post("/redraft", s.transition(workflow.ActionRedraft))
				r.Post("/archive", s.transition(workflow.ActionArchive))
				r.Post("/fusion/push", s.push)
				r.Post("/fusion/sync", s.sync)
			})
		})

		r.Get("/fusion/existing/{functionName}", s.existing)
	})

	return r
}

func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Info("api: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func rateLimit(l *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow() {
				w.Header().Set("Retry-After", "1")
				writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "rate limit exceeded"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
