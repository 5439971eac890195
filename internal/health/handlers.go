package health

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/noah-isme/forneria-pos/internal/common"
)

var ready atomic.Bool

func init() { ready.Store(true) }

// SetReady flips readiness; shutdown sets it to false before draining.
func SetReady(v bool) { ready.Store(v) }

// Checker represents dependencies that can be probed for readiness.
type Checker interface {
	PingStorage(ctx context.Context) error
	PingBackend(ctx context.Context) error
}

// Handler exposes HTTP handlers for health endpoints.
type Handler struct {
	Checker        Checker
	StorageTimeout time.Duration
	BackendTimeout time.Duration
}

// Live reports liveness status.
func (h Handler) Live(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready reports readiness. Only the cart storage gates readiness: without
// the backend the terminal still edits carts, so a failing backend shows up
// as "degraded".
func (h Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if !ready.Load() {
		common.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "shutting_down"})
		return
	}
	if h.Checker == nil {
		common.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "dependencies unavailable"})
		return
	}

	storageStatus := probe(r.Context(), h.storageTimeout(), h.Checker.PingStorage)
	backendStatus := probe(r.Context(), h.backendTimeout(), h.Checker.PingBackend)

	status := map[string]string{
		"status":  "ok",
		"storage": storageStatus,
		"backend": backendStatus,
	}
	code := http.StatusOK
	switch {
	case storageStatus != "ok":
		status["status"] = "unavailable"
		code = http.StatusServiceUnavailable
	case backendStatus != "ok":
		status["status"] = "degraded"
	}
	common.JSON(w, code, status)
}

func probe(ctx context.Context, timeout time.Duration, ping func(context.Context) error) string {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := ping(ctx); err != nil {
		return err.Error()
	}
	return "ok"
}

func (h Handler) storageTimeout() time.Duration {
	if h.StorageTimeout <= 0 {
		return 500 * time.Millisecond
	}
	return h.StorageTimeout
}

func (h Handler) backendTimeout() time.Duration {
	if h.BackendTimeout <= 0 {
		return 2 * time.Second
	}
	return h.BackendTimeout
}
