package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/forneria-pos/internal/cart"
	"github.com/noah-isme/forneria-pos/internal/catalog"
	"github.com/noah-isme/forneria-pos/internal/checkout"
	"github.com/noah-isme/forneria-pos/internal/config"
	"github.com/noah-isme/forneria-pos/internal/lock"
	"github.com/noah-isme/forneria-pos/internal/posapi"
	"github.com/noah-isme/forneria-pos/internal/resilience"
	"github.com/noah-isme/forneria-pos/internal/storage"
)

// Dependencies holds the terminal's wired components. The HTTP service and
// the CLI build it the same way so both operate on the same cart.
type Dependencies struct {
	Config   *config.Config
	Logger   zerolog.Logger
	Storage  storage.Storage
	Redis    *redis.Client
	Breaker  *resilience.Breaker
	Backend  *posapi.Client
	Cart     *cart.Store
	Checkout *checkout.Service
	Catalog  *catalog.Service
}

// Options tweak how dependencies are built.
type Options struct {
	// Instrument enables redisotel tracing and metrics on the Redis client.
	Instrument bool
	// Storage overrides the configured driver; tests pass storage.NewMemory().
	Storage storage.Storage
}

// Build wires every component from cfg.
func Build(ctx context.Context, cfg *config.Config, logger zerolog.Logger, opts Options) (*Dependencies, error) {
	if cfg == nil {
		return nil, errors.New("app: config is required")
	}
	d := &Dependencies{Config: cfg, Logger: logger}

	if cfg.RedisURL != "" {
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		d.Redis = redis.NewClient(redisOpts)
		if opts.Instrument {
			if err := redisotel.InstrumentTracing(d.Redis); err != nil {
				logger.Error().Err(err).Msg("instrument redis tracing")
			}
			if err := redisotel.InstrumentMetrics(d.Redis); err != nil {
				logger.Error().Err(err).Msg("instrument redis metrics")
			}
		}
	}

	kv := opts.Storage
	if kv == nil {
		var err error
		kv, err = d.openStorage(ctx)
		if err != nil {
			_ = d.Close()
			return nil, err
		}
	}
	d.Storage = kv

	d.Breaker = resilience.NewBreaker(cfg.BreakerMinRequests, cfg.BreakerFailRatio, cfg.BreakerOpenFor).
		WithTarget("pos_backend").
		WithLogger(logger)
	backend, err := posapi.New(posapi.Options{
		BaseURL:     cfg.BackendURL,
		Timeout:     cfg.BackendTimeout,
		MaxAttempts: cfg.BackendMaxAttempts,
		Breaker:     d.Breaker,
		CSRFCookie:  cfg.CSRFCookieName,
		CSRFHeader:  cfg.CSRFHeaderName,
		CSRFToken:   cfg.CSRFToken,
		Logger:      logger,
	})
	if err != nil {
		_ = d.Close()
		return nil, err
	}
	d.Backend = backend

	d.Cart = cart.NewStore(kv, cfg.CartKey, logger)
	if cfg.StorageDriver == config.StorageRedis && d.Redis != nil && opts.Storage == nil {
		d.Cart.WithLocker(lock.Locker{R: d.Redis, Prefix: "pos:" + cfg.TerminalID + ":"})
	}
	d.Checkout = &checkout.Service{
		Store:         d.Cart,
		Gateway:       backend,
		TaxBps:        cfg.TaxRateBPS,
		Channel:       cfg.SalesChannel,
		DefaultMethod: cfg.DefaultPaymentMethod,
		Currency:      cfg.CurrencyCode,
		Logger:        logger.With().Str("component", "checkout").Logger(),
	}
	d.Catalog = &catalog.Service{
		Source: backend,
		Logger: logger.With().Str("component", "catalog").Logger(),
	}
	if d.Redis != nil {
		d.Catalog.Cache = catalog.NewCache(d.Redis, "pos:"+cfg.TerminalID+":product:", cfg.ProductCacheTTL)
	}
	return d, nil
}

func (d *Dependencies) openStorage(ctx context.Context) (storage.Storage, error) {
	cfg := d.Config
	switch cfg.StorageDriver {
	case config.StorageMemory:
		d.Logger.Warn().Msg("memory storage: the cart is lost on restart")
		return storage.NewMemory(), nil
	case config.StorageRedis:
		if d.Redis == nil {
			return nil, errors.New("redis storage selected without REDIS_URL")
		}
		kv := storage.NewRedis(d.Redis, cfg.TerminalID)
		if err := kv.Ping(ctx); err != nil {
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		return kv, nil
	default:
		kv, err := storage.OpenBolt(cfg.StoragePath, cfg.TerminalID)
		if err != nil {
			return nil, fmt.Errorf("open bolt storage %s: %w", cfg.StoragePath, err)
		}
		return kv, nil
	}
}

// Close releases storage and the Redis client.
func (d *Dependencies) Close() error {
	var errs []error
	if d.Storage != nil {
		if err := d.Storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close storage: %w", err))
		}
	}
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	return errors.Join(errs...)
}

// PingStorage implements health.Checker.
func (d *Dependencies) PingStorage(ctx context.Context) error {
	if d.Storage == nil {
		return errors.New("storage not configured")
	}
	return d.Storage.Ping(ctx)
}

// PingBackend implements health.Checker.
func (d *Dependencies) PingBackend(ctx context.Context) error {
	if d.Backend == nil {
		return errors.New("backend not configured")
	}
	return d.Backend.Ping(ctx)
}
