package cli

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/ledgerchat"
	"github.com/aretw0/ledgerchat/internal/logging"
	"github.com/aretw0/ledgerchat/pkg/adapters/file"
	"github.com/aretw0/ledgerchat/pkg/adapters/memory"
	"github.com/aretw0/ledgerchat/pkg/adapters/redis"
	"github.com/aretw0/ledgerchat/pkg/adapters/upstream"
	"github.com/aretw0/ledgerchat/pkg/config"
	"github.com/aretw0/ledgerchat/pkg/flow"
	"github.com/aretw0/ledgerchat/pkg/observability"
	"github.com/aretw0/ledgerchat/pkg/persistence/middleware"
	"github.com/aretw0/ledgerchat/pkg/ports"
)

// App is a fully wired engine plus the resources it owns.
type App struct {
	Engine  *ledgerchat.Engine
	Metrics *observability.Metrics
	Logger  *slog.Logger
	Config  *config.Config

	// Cache is the backend below the state store, after middleware.
	Cache ports.Cache

	closers []func() error
}

// Close releases backend connections.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

// Build wires an engine from cfg.
func Build(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	app := &App{
		Metrics: observability.NewMetrics(),
		Logger:  logger,
		Config:  cfg,
	}

	cache, redisStore, err := app.openCache()
	if err != nil {
		return nil, err
	}
	app.Cache = cache

	opts := []ledgerchat.Option{
		ledgerchat.WithCache(cache),
		ledgerchat.WithLogger(logger),
		ledgerchat.WithMetrics(app.Metrics),
		ledgerchat.WithReporter(logging.NewReporter(logger, app.Metrics)),
		ledgerchat.WithLifecycleHooks(observability.Hooks(logger, app.Metrics)),
		ledgerchat.WithSessionTTL(cfg.Store.SessionTTL),
		ledgerchat.WithKeyPrefix(cfg.Store.KeyPrefix),
		ledgerchat.WithFlowTimeout(cfg.Flow.Timeout),
		ledgerchat.WithMaxInputSize(cfg.Flow.MaxInputSize),
	}

	if cfg.Store.Serialize {
		opts = append(opts, ledgerchat.WithSerialize())
		if redisStore != nil {
			opts = append(opts, ledgerchat.WithLocker(redis.NewLocker(redisStore.Client(), "ledgerchat:"+cfg.Store.KeyPrefix)))
		}
	}

	if cfg.Flow.File != "" {
		registry, err := flow.LoadFile(flow.Default(), cfg.Flow.File)
		if err != nil {
			app.Close()
			return nil, err
		}
		opts = append(opts, ledgerchat.WithRegistry(registry))
	}

	if cfg.API.BaseURL != "" {
		client, err := upstream.New(cfg.API.BaseURL,
			upstream.WithTimeout(cfg.API.Timeout),
			upstream.WithRetry(cfg.API.RetryAttempts, cfg.API.RetryDelay),
			upstream.WithLogger(logger),
		)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("failed to create upstream client: %w", err)
		}
		opts = append(opts, ledgerchat.WithUpstream(client))
	}

	app.Engine = ledgerchat.New(opts...)
	return app, nil
}

// openCache creates the configured backend and wraps it in encryption when a
// key is set. The redis store is returned separately for the locker.
func (a *App) openCache() (ports.Cache, *redis.Store, error) {
	cfg := a.Config

	var (
		cache      ports.Cache
		redisStore *redis.Store
	)
	switch cfg.Store.Backend {
	case config.BackendRedis:
		redisStore = redis.New(cfg.Store.RedisAddr, cfg.Store.RedisPassword, cfg.Store.RedisDB)
		a.closers = append(a.closers, redisStore.Close)
		cache = redisStore
	case config.BackendFile:
		cache = file.New(cfg.Store.FileDir)
	default:
		cache = memory.NewStore()
	}

	active, fallback, err := cfg.Keys()
	if err != nil {
		a.Close()
		return nil, nil, err
	}
	if active != nil {
		enc, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
			ActiveKey:    active,
			FallbackKeys: fallback,
		})
		if err != nil {
			a.Close()
			return nil, nil, err
		}
		cache = middleware.Chain(cache, enc)
	}

	a.Logger.Debug("session cache ready", "backend", cfg.Store.Backend, "encrypted", active != nil)
	return cache, redisStore, nil
}
