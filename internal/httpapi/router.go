package httpapi

import (
	"context"
	"fmt"
	"time"

	"github.com/gorilla/mux"

	"govgateway/internal/auth"
	"govgateway/internal/breaker"
	"govgateway/internal/config"
	"govgateway/internal/csrf"
	"govgateway/internal/logging"
	"govgateway/internal/middleware"
	"govgateway/internal/policy"
	"govgateway/internal/pricing"
	"govgateway/internal/providers"
	"govgateway/internal/proxy"
	"govgateway/internal/queue"
	"govgateway/internal/ratelimit"
	"govgateway/internal/storage"
	"govgateway/internal/telemetry"
	"govgateway/internal/utils"
)

// Dependencies aggregates the services the HTTP layer needs and owns
// their lifecycle.
type Dependencies struct {
	Config   *config.Config
	Adapters *providers.Registry
	Breakers *breaker.Registry
	Limiter  ratelimit.Limiter
	CSRF     *csrf.Codec
	Verifier *auth.Verifier
	Proxy    *proxy.Proxy
	Recorder telemetry.Recorder
	Archive  logging.Sink

	// Nil when no database is configured
	DB     *storage.DB
	Worker *telemetry.Worker

	logger *utils.Logger
}

// NewRouter creates the gateway router with all dependencies wired up.
// Call Dependencies.Start after, and Dependencies.Shutdown on exit.
func NewRouter(cfg *config.Config) (*mux.Router, *Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		logger: utils.NewLogger("httpapi"),
	}

	deps.Adapters = providers.NewRegistry(
		providers.NewOpenAIAdapter(cfg.Provider.OpenAIAPIKey, cfg.Provider.OpenAIBaseURL, cfg.Provider.RequestTimeout),
		providers.NewAnthropicAdapter(cfg.Provider.AnthropicAPIKey, cfg.Provider.AnthropicBaseURL, cfg.Provider.RequestTimeout),
		providers.NewAzureAdapter(cfg.Provider.AzureAPIKey, cfg.Provider.AzureEndpoint, cfg.Provider.AzureAPIVersion, cfg.Provider.RequestTimeout),
		providers.NewGoogleAdapter(cfg.Provider.GoogleAPIKey, cfg.Provider.GoogleBaseURL, cfg.Provider.RequestTimeout),
	)

	deps.Breakers = breaker.NewRegistry(cfg.Breaker.FailureThreshold, cfg.Breaker.OpenTimeout)
	deps.Limiter = ratelimit.NewFixedWindowLimiter(cfg.RateLimit.MaxRequests, cfg.RateLimit.Window)
	deps.CSRF = csrf.NewCodec(cfg.CSRFSecret)
	deps.Verifier = auth.NewVerifier(cfg.JWTSecret)

	// Telemetry persists only when a database is configured; the
	// gateway itself runs fine without one
	deps.Recorder = telemetry.NoopRecorder{}
	if cfg.Database.URL != "" {
		db, err := storage.NewDB(storage.DBConfig{
			URL:             cfg.Database.URL,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		deps.DB = db

		qcfg := queue.DefaultConfig("telemetry")
		qcfg.BatchSize = cfg.Telemetry.BatchSize
		qcfg.BatchTimeout = cfg.Telemetry.BatchTimeout
		qcfg.MaxRetries = cfg.Telemetry.MaxRetries
		qcfg.RetryBackoff = cfg.Telemetry.RetryBackoff
		if cfg.Redis.Address != "" {
			qcfg.UseRedis = true
			qcfg.RedisAddr = cfg.Redis.Address
			qcfg.RedisPassword = cfg.Redis.Password
			qcfg.RedisDB = cfg.Redis.DB
		}

		q, dlq, err := queue.New(qcfg)
		if err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to initialize telemetry queue: %w", err)
		}

		deps.Worker = telemetry.NewWorker(q, dlq, storage.NewTelemetryStore(db), qcfg)
		deps.Recorder = deps.Worker
	}

	deps.Archive = logging.NewNoopSink()
	if cfg.Archive.Enabled {
		writer, err := logging.NewS3Writer(context.Background(),
			cfg.Archive.S3Bucket, cfg.Archive.S3Region, cfg.Archive.S3Prefix, cfg.Archive.PodName)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize archive writer: %w", err)
		}
		deps.Archive = logging.NewS3Sink(writer, cfg.Archive.FlushSize, cfg.Archive.BufferSize, cfg.Archive.FlushInterval)
	}

	deps.Proxy = proxy.New(
		deps.Adapters,
		deps.Breakers,
		pricing.NewTable(),
		policy.Chain{policy.NewMaxTokensChecker(0)},
		deps.Recorder,
		cfg.Provider.RequestTimeout,
	)

	return newRouterWithDeps(deps), deps, nil
}

// newRouterWithDeps mounts the routes and middleware chain. Split out so
// tests can inject fakes.
func newRouterWithDeps(deps *Dependencies) *mux.Router {
	r := mux.NewRouter()

	// Pipeline order is fixed: CSRF, then auth, then rate limiting
	r.Use(middleware.CSRFMiddleware(deps.CSRF, deps.Verifier))
	r.Use(middleware.AuthMiddleware(deps.Verifier))
	r.Use(middleware.RateLimitMiddleware(deps.Limiter))

	r.HandleFunc("/health", deps.HealthHandler).Methods("GET")
	r.HandleFunc("/auth/csrf-token", deps.CSRFTokenHandler).Methods("GET")
	r.HandleFunc("/integrations/proxy", deps.ProxyHandler).Methods("POST")
	r.HandleFunc("/integrations/providers", deps.ProvidersHandler).Methods("GET")
	r.HandleFunc("/integrations/health", deps.BreakerHealthHandler).Methods("GET")

	return r
}

// Start launches the background workers.
func (d *Dependencies) Start(ctx context.Context) {
	if d.Worker != nil {
		d.Worker.Start(ctx)
	}
}

// Shutdown stops workers and closes connections, draining buffers.
func (d *Dependencies) Shutdown(timeout time.Duration) {
	if d.Worker != nil {
		if err := d.Worker.Stop(); err != nil {
			d.logger.Error("Failed to stop telemetry worker", "error", err)
		}
	}
	if err := d.Archive.Shutdown(timeout); err != nil {
		d.logger.Error("Failed to shut down archive sink", "error", err)
	}
	if d.DB != nil {
		if err := d.DB.Close(); err != nil {
			d.logger.Error("Failed to close database", "error", err)
		}
	}
}
