// Package http implements the status service's HTTP surface (C21): a
// lifecycle-managed net/http.Server exposing /healthz, /readyz, and /metrics
// for operators running the engine as a long-lived cluster job.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dissolveproject/dissolve/internal/infrastructure/monitoring/logging"
	appmw "github.com/dissolveproject/dissolve/internal/interfaces/http/middleware"
)

// ReadinessCheck reports whether a single backend dependency (checkpoint
// catalog, fast cache, topology store, ...) is ready to serve traffic.
type ReadinessCheck func(ctx context.Context) error

// RouterConfig aggregates the dependencies needed to build the status
// service's route tree.
type RouterConfig struct {
	Logger logging.Logger

	// MetricsHandler serves /metrics; normally the prometheus collector's
	// own Handler() (C14).
	MetricsHandler http.Handler

	// ReadinessChecks are consulted by /readyz, keyed by component name
	// (e.g. "checkpoint_catalog", "fast_cache", "topology_store").
	ReadinessChecks map[string]ReadinessCheck

	// ReadinessTimeout bounds each individual check. Defaults to 2s.
	ReadinessTimeout time.Duration

	// CORS overrides the default CORS policy when non-nil.
	CORS *appmw.CORSConfig

	// GinMode selects gin's run mode ("debug", "release", "test"); see
	// config.HTTPConfig.Mode. Defaults to release.
	GinMode string
}

// NewRouter constructs the complete HTTP route tree: global middleware
// (recovery, CORS, request logging) wrapping the three status endpoints.
func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNopLogger()
	}
	if cfg.ReadinessTimeout == 0 {
		cfg.ReadinessTimeout = 2 * time.Second
	}
	if cfg.MetricsHandler == nil {
		cfg.MetricsHandler = http.NotFoundHandler()
	}

	mode := cfg.GinMode
	if mode == "" {
		mode = gin.ReleaseMode
	}
	gin.SetMode(mode)

	corsCfg := appmw.DefaultCORSConfig()
	if cfg.CORS != nil {
		corsCfg = *cfg.CORS
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(adaptStdMiddleware(appmw.CORS(corsCfg)))
	engine.Use(adaptStdMiddleware(appmw.RequestLogging(cfg.Logger, appmw.DefaultLoggingConfig())))

	engine.GET("/healthz", livenessHandler)
	engine.GET("/readyz", readinessHandler(cfg))
	engine.GET("/metrics", gin.WrapH(cfg.MetricsHandler))

	return engine
}

// livenessHandler always reports OK: the process is running and able to
// accept connections, which is all /healthz is meant to certify.
func livenessHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// readinessHandler runs every configured ReadinessCheck and reports 503 with
// the list of failing components if any check fails.
func readinessHandler(cfg RouterConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.ReadinessTimeout)
		defer cancel()

		failures := make(map[string]string)
		for name, check := range cfg.ReadinessChecks {
			if err := check(ctx); err != nil {
				failures[name] = err.Error()
			}
		}

		if len(failures) > 0 {
			cfg.Logger.Warn("readiness check failed", logging.Any("failures", failures))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "failures": failures})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	}
}

// adaptStdMiddleware lifts a standard func(http.Handler) http.Handler
// middleware into a gin.HandlerFunc so the status router can reuse the same
// CORS and request-logging middleware the plain net/http server would use.
func adaptStdMiddleware(mw func(http.Handler) http.Handler) gin.HandlerFunc {
	return func(c *gin.Context) {
		served := false
		mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			served = true
			c.Request = r
			c.Next()
		})).ServeHTTP(c.Writer, c.Request)
		if !served {
			c.Abort()
		}
	}
}
