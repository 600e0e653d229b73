package router

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"taskpulse/internal/types"
)

// maxPushBodySize caps the body of a pushed event.
const maxPushBodySize = 1 << 20

// healthCheckTimeout bounds all health probes together.
const healthCheckTimeout = 2 * time.Second

// HealthProbe checks one dependency (database, queue).
type HealthProbe interface {
	Name() string
	Check(ctx context.Context) error
}

type componentStatus struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type healthResponse struct {
	Status     string                     `json:"status"`
	Components map[string]componentStatus `json:"components,omitempty"`
}

type pushResponse struct {
	Status string `json:"status"`
}

// NewHTTPHandler exposes push delivery and a health check:
//
//	POST /events/{topic}  200 when acknowledged, 500 when the handler failed
//	GET  /healthz         200 healthy, 503 when any probe fails
//
// A body whose event_type differs from {topic} is acknowledged and dropped.
func NewHTTPHandler(r *Router, logger types.Logger, probes ...HealthProbe) http.Handler {
	mux := chi.NewRouter()
	mux.Use(recoverer(logger))
	mux.Use(requestLogger(logger))
	mux.Post("/events/{topic}", func(w http.ResponseWriter, req *http.Request) {
		handlePush(w, req, r, logger)
	})
	mux.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		handleHealth(w, req, probes)
	})
	return mux
}

func handlePush(w http.ResponseWriter, req *http.Request, r *Router, logger types.Logger) {
	topic := types.EventType(chi.URLParam(req, "topic"))

	body, err := io.ReadAll(http.MaxBytesReader(w, req.Body, maxPushBodySize))
	if err != nil {
		logger.Warn("dropping unreadable push body", "topic", string(topic), "error", err)
		writeJSON(w, http.StatusOK, pushResponse{Status: "dropped"})
		return
	}

	env, err := r.Decode(body)
	if err != nil {
		logger.Warn("dropping undecodable push message", "topic", string(topic), "error", err)
		writeJSON(w, http.StatusOK, pushResponse{Status: "dropped"})
		return
	}
	if env.EventType != topic {
		logger.Warn("dropping push message for wrong topic",
			"topic", string(topic),
			"event_type", string(env.EventType),
			"error", types.NewAppError(types.ErrCodeValidationTopicMismatch, "topic mismatch", nil),
		)
		writeJSON(w, http.StatusOK, pushResponse{Status: "dropped"})
		return
	}

	if err := r.RouteEnvelope(req.Context(), env); err != nil {
		writeJSON(w, http.StatusInternalServerError, pushResponse{Status: "retry"})
		return
	}
	writeJSON(w, http.StatusOK, pushResponse{Status: "ok"})
}

// handleHealth runs every probe concurrently under one deadline.
func handleHealth(w http.ResponseWriter, req *http.Request, probes []HealthProbe) {
	if len(probes) == 0 {
		writeJSON(w, http.StatusOK, healthResponse{Status: "healthy"})
		return
	}

	ctx, cancel := context.WithTimeout(req.Context(), healthCheckTimeout)
	defer cancel()

	var (
		mu         sync.Mutex
		wg         sync.WaitGroup
		components = make(map[string]componentStatus, len(probes))
		healthy    = true
	)
	for _, probe := range probes {
		wg.Add(1)
		go func(p HealthProbe) {
			defer wg.Done()
			var err error
			func() {
				defer func() {
					if rec := recover(); rec != nil {
						err = fmt.Errorf("probe panicked: %v", rec)
					}
				}()
				err = p.Check(ctx)
			}()

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				healthy = false
				components[p.Name()] = componentStatus{Status: "unhealthy", Message: err.Error()}
				return
			}
			components[p.Name()] = componentStatus{Status: "healthy"}
		}(probe)
	}
	wg.Wait()

	if !healthy {
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unhealthy", Components: components})
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "healthy", Components: components})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
