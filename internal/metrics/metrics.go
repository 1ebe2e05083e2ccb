package metrics

import (
	"context"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	initOnce       sync.Once
	serverMutex    sync.Mutex
	triggerMutex   sync.RWMutex
	currentSrv     *http.Server
	triggerChannel chan struct{}
)

// Init initializes all metrics subsystems and registers them with Prometheus.
// Safe to call multiple times.
func Init() {
	initOnce.Do(func() {
		initCleanupMetrics()
		initDaemonMetrics()

		registerCleanupMetrics()
		registerDaemonMetrics()

		// Export before the first run so scrapes never see a gap
		LastRunTimestamp.Set(0)
	})
}

// SetTriggerChannel sets the channel /trigger sends on to request a run
func SetTriggerChannel(ch chan struct{}) {
	triggerMutex.Lock()
	defer triggerMutex.Unlock()
	triggerChannel = ch
}

// Handler returns the mux served by StartServer
func Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","healthy":true}`))
	})

	mux.HandleFunc("/trigger", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		triggerMutex.RLock()
		ch := triggerChannel
		triggerMutex.RUnlock()

		if ch == nil {
			http.Error(w, "Trigger channel not initialized", http.StatusServiceUnavailable)
			return
		}
		select {
		case ch <- struct{}{}:
			w.WriteHeader(http.StatusAccepted)
			w.Write([]byte("Cleanup triggered"))
		default:
			// a run is already queued
			http.Error(w, "Trigger channel full", http.StatusServiceUnavailable)
		}
	})

	return mux
}

// StartServer starts the metrics HTTP server on the specified address.
// Exposes /metrics, /health and /trigger.
func StartServer(addr string, logger *log.Logger) {
	serverMutex.Lock()
	defer serverMutex.Unlock()

	if currentSrv != nil {
		logger.Printf("metrics server already running on %s", currentSrv.Addr)
		return
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	currentSrv = srv

	go func() {
		logger.Printf("metrics server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Printf("metrics server error: %v", err)
			ErrorsTotal.Inc()
		}
	}()
}

// Shutdown gracefully shuts down the metrics server
func Shutdown(ctx context.Context, logger *log.Logger) {
	serverMutex.Lock()
	defer serverMutex.Unlock()

	if currentSrv == nil {
		return
	}

	if err := currentSrv.Shutdown(ctx); err != nil {
		logger.Printf("metrics server shutdown error: %v", err)
		ErrorsTotal.Inc()
	}
	currentSrv = nil
}
