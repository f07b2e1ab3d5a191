package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mlserve/internal/manager"
	"mlserve/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
// *manager.Manager satisfies it.
type Service interface {
	Infer(ctx context.Context, model, prompt string) (manager.Prediction, error)
	ListAvailable() []string
	Status() types.StatusResponse
	Ready() bool
}

// LoadHistory is implemented by services that keep a load history. Without
// it GET /loads returns an empty list.
type LoadHistory interface {
	RecentLoads(ctx context.Context, limit int) ([]types.LoadRecord, error)
}

func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
			MaxAge:         300,
		}))
	}
	// Compression for JSON endpoints
	r.Use(middleware.Compress(5))
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	r.Post("/predict", predictHandler(svc))

	r.Get("/models", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, types.ModelsResponse{AvailableModels: svc.ListAvailable()})
	})

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.Status())
	})

	r.Get("/loads", func(w http.ResponseWriter, r *http.Request) {
		limit := defaultLoadsLimit
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				writeJSONError(w, http.StatusBadRequest, "limit must be a positive integer")
				return
			}
			limit = n
		}
		resp := types.LoadsResponse{Loads: []types.LoadRecord{}}
		if h, ok := svc.(LoadHistory); ok {
			recs, err := h.RecentLoads(r.Context(), limit)
			if err != nil {
				zlog.Error().Err(err).Msg("read load history")
				writeJSONError(w, http.StatusInternalServerError, "failed to read load history")
				return
			}
			if recs != nil {
				resp.Loads = recs
			}
		}
		writeJSON(w, http.StatusOK, resp)
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("loading"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)
	return r
}

// predictHandler godoc
// @Summary      Generate text with a loaded model
// @Description  Routes the prompt to the named model and returns the first generated output.
// @Tags         inference
// @Accept       json
// @Produce      json
// @Param        request  body      types.PredictRequest  true  "Model and prompt"
// @Success      200      {object}  types.PredictResponse
// @Failure      400      {object}  types.ErrorResponse
// @Failure      404      {object}  types.ModelNotFoundResponse
// @Failure      415      {object}  types.ErrorResponse
// @Failure      500      {object}  types.ErrorResponse
// @Failure      503      {object}  types.ErrorResponse
// @Router       /predict [post]
func predictHandler(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ct := r.Header.Get("Content-Type")
		if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
			writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		var req types.PredictRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			var mbe *http.MaxBytesError
			if errors.As(err, &mbe) {
				writeJSONError(w, http.StatusRequestEntityTooLarge, "request body too large")
				return
			}
			writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		// Any name is accepted here; the routing table decides whether it exists.

		lvl := requestLogLevel(r)
		start := time.Now()
		if lvl >= LevelDebug {
			zlog.Debug().Str("model", req.Model).Str("prompt", req.Prompt).Msg("predict start")
		}

		// Shutdown of the server cancels in-flight generations too.
		ctx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		if inferTimeout > 0 {
			var tcancel context.CancelFunc
			ctx, tcancel = context.WithTimeout(ctx, time.Duration(inferTimeout)*time.Second)
			defer tcancel()
		}

		pred, err := svc.Infer(ctx, req.Model, req.Prompt)
		if err != nil {
			var nf *manager.ModelNotFoundError
			if errors.As(err, &nf) {
				if ev := requestEvent(r, lvl, http.StatusNotFound); ev != nil {
					ev.Str("model", req.Model).Int("status", http.StatusNotFound).Dur("dur", time.Since(start)).Msg("predict end")
				}
				writeJSON(w, http.StatusNotFound, types.ModelNotFoundResponse{Error: nf.Error(), Available: nf.Available})
				return
			}
			// Client went away; nobody is left to read a response.
			if r.Context().Err() != nil {
				return
			}
			status := statusForError(err)
			if serverBaseCtx.Err() != nil {
				status = http.StatusServiceUnavailable
			}
			if ev := requestEvent(r, lvl, status); ev != nil {
				ev.Str("model", req.Model).Int("status", status).Dur("dur", time.Since(start)).Err(err).Msg("predict end")
			}
			writeJSONError(w, status, err.Error())
			return
		}
		if ev := requestEvent(r, lvl, http.StatusOK); ev != nil {
			ev.Str("model", req.Model).Int("status", http.StatusOK).Dur("dur", time.Since(start)).Msg("predict end")
		}
		if lvl >= LevelDebug {
			zlog.Debug().Str("model", req.Model).Str("response", pred.Text).Msg("predict output")
		}
		writeJSON(w, http.StatusOK, types.PredictResponse{Model: pred.Model, Response: pred.Text})
	}
}
