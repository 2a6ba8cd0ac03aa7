package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/appunni/llm-ts-worker/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Dispatch(ctx context.Context, req types.Request, emit func(types.Event))
	Models() map[string]types.ModelDescriptor
	Status() types.StatusResponse
	Ready() bool
}

// NewMux builds the router: POST /worker streams protocol events as
// NDJSON; the rest are plain JSON endpoints.
func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	r.Use(MetricsMiddleware)
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type", "X-Log-Level"},
		}))
	}

	r.Get("/models", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(types.ModelsPayload{Models: svc.Models()}); err != nil {
			writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
			return
		}
	})

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(svc.Status()); err != nil {
			writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
			return
		}
	})

	r.Post("/worker", func(w http.ResponseWriter, r *http.Request) {
		ct := r.Header.Get("Content-Type")
		if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
			writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		var req types.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if strings.TrimSpace(req.Type) == "" {
			writeJSONError(w, http.StatusBadRequest, "type is required")
			return
		}

		w.Header().Set("Content-Type", "application/x-ndjson")
		var flush func()
		if f, ok := w.(http.Flusher); ok {
			flush = f.Flush
		}
		start := time.Now()
		lvl := requestLogLevel(r)
		if lvl >= LevelInfo && zlog != nil {
			z := zlog.Info().Str("path", r.URL.Path).Str("type", req.Type)
			if rid := middleware.GetReqID(r.Context()); rid != "" {
				z = z.Str("request_id", rid)
			}
			z.Msg("worker start")
		}

		// Join server base context with request context so shutdown cancels
		// in-flight generations too.
		joinedCtx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()

		enc := json.NewEncoder(w)
		var terminal string
		svc.Dispatch(joinedCtx, req, func(e types.Event) {
			if r.Context().Err() != nil || serverBaseCtx.Err() != nil {
				return
			}
			if err := enc.Encode(e); err != nil {
				return
			}
			if flush != nil {
				flush()
			}
			if lvl >= LevelDebug && zlog != nil {
				zlog.Debug().Str("status", e.Status).Str("type", e.Type).Msg("worker event")
			}
			switch e.Status {
			case types.StatusSuccess, types.StatusReady, types.StatusComplete, types.StatusError:
				terminal = e.Status
			}
		})

		if lvl >= LevelInfo && zlog != nil {
			z := zlog.Info().Str("terminal", terminal).Dur("dur", time.Since(start))
			if rid := middleware.GetReqID(r.Context()); rid != "" {
				z = z.Str("request_id", rid)
			}
			z.Msg("worker end")
		}
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("uninitialized"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)

	return r
}
