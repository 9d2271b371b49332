package observability

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Status is the session snapshot served on /status.
type Status struct {
	SimTime    string `json:"sim_time"`
	Steps      uint64 `json:"steps"`
	APIVersion int32  `json:"api_version"`
	Server     string `json:"server"`
	Subscribed int    `json:"subscribed"`
	Managed    int    `json:"managed"`
	Unequipped int    `json:"unequipped"`
	Active     int    `json:"active"`
	Driving    int    `json:"driving"`
	Parking    int    `json:"parking"`
}

// StatusBoard hands the latest Status from the step loop to HTTP handlers.
type StatusBoard struct {
	mu     sync.RWMutex
	status Status
	ready  bool
}

func (b *StatusBoard) Publish(s Status) {
	b.mu.Lock()
	b.status = s
	b.ready = true
	b.mu.Unlock()
}

func (b *StatusBoard) Snapshot() (Status, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.status, b.ready
}

// NewRouter builds the status endpoint: /health, /ready, /status and
// /metrics.
func NewRouter(app string, board *StatusBoard, logger zerolog.Logger) *gin.Engine {
	RegisterMetrics()
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(logger))
	r.Use(RequestMetricsMiddleware())
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	started := time.Now()
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(started).String(),
			"service": app,
		})
	})
	r.GET("/ready", func(c *gin.Context) {
		_, ready := board.Snapshot()
		code := http.StatusOK
		if !ready {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{"ready": ready, "service": app})
	})
	r.GET("/status", func(c *gin.Context) {
		status, ready := board.Snapshot()
		if !ready {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "session not started"})
			return
		}
		c.JSON(http.StatusOK, status)
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return r
}

// Serve runs handler on ln until ctx is cancelled.
func Serve(ctx context.Context, ln net.Listener, handler http.Handler) error {
	srv := &http.Server{Handler: handler, ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		<-errCh
		return nil
	}
}
