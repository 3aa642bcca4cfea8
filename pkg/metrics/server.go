package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/Adithya-Monish-Kumar-K/paper-index-builder/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/paper-index-builder/pkg/middleware"
)

// StatusSource supplies the daemon's view of the last build.
type StatusSource interface {
	Status() any
	ManifestPath() string
}

var routes = []string{"/metrics", "/status", "/manifest", "/health/live", "/health/ready"}

// NewRouter serves the scrape endpoint, the last build status, the current
// manifest and health probes.
func NewRouter(m *Metrics, src StatusSource, checker *health.Checker) http.Handler {
	router := httprouter.New()
	router.Handler(http.MethodGet, "/metrics", m.Handler())
	router.GET("/status", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		writeJSON(w, http.StatusOK, src.Status())
	})
	router.GET("/manifest", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		data, err := os.ReadFile(src.ManifestPath())
		if err != nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "no complete index"})
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	})
	router.HandlerFunc(http.MethodGet, "/health/live", checker.LiveHandler())
	router.HandlerFunc(http.MethodGet, "/health/ready", checker.ReadyHandler())

	return middleware.Metrics(m.HTTPRequestsTotal, m.HTTPRequestDuration, routes...)(router)
}

// StartServer serves handler on port in the background and returns its
// shutdown function.
func StartServer(port int, handler http.Handler) (shutdown func(context.Context) error) {
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("status server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("status server error", "error", err)
		}
	}()

	return server.Shutdown
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
