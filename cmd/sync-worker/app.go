package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/BearBump/BrickSync/config"
	"github.com/BearBump/BrickSync/internal/broker/kafka"
	"github.com/BearBump/BrickSync/internal/cache/rediscache"
	"github.com/BearBump/BrickSync/internal/integrations/apiclient"
	"github.com/BearBump/BrickSync/internal/integrations/marketplace"
	"github.com/BearBump/BrickSync/internal/integrations/marketplace/bricklink"
	"github.com/BearBump/BrickSync/internal/integrations/marketplace/brickowl"
	mpfake "github.com/BearBump/BrickSync/internal/integrations/marketplace/fake"
	"github.com/BearBump/BrickSync/internal/integrations/shipping"
	shipfake "github.com/BearBump/BrickSync/internal/integrations/shipping/fake"
	"github.com/BearBump/BrickSync/internal/integrations/shipping/shippo"
	"github.com/BearBump/BrickSync/internal/metrics"
	"github.com/BearBump/BrickSync/internal/models"
	"github.com/BearBump/BrickSync/internal/services/reconciler"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const sandboxOrdersPerMarketplace = 5

type platformDeps struct {
	cfg    *config.Config
	creds  config.Credentials
	rl     apiclient.RateLimiter
	logger *zap.Logger
}

type workerFactories struct {
	newMarketplaces func(d platformDeps) []marketplace.Client
	newShipping     func(d platformDeps) shipping.Client
	newProducer     func(cfg *config.Config) (p reconciler.Producer, closeFn func())
	newRateLimiter  func(cfg *config.Config) apiclient.RateLimiter
	newLocker       func(cfg *config.Config) (l reconciler.Locker, ping func(ctx context.Context) error)
}

func defaultWorkerFactories() workerFactories {
	return workerFactories{
		newMarketplaces: func(d platformDeps) []marketplace.Client {
			bl := bricklink.New(bricklink.Config{
				BaseURL:        d.cfg.BrickLink.BaseURL,
				ConsumerKey:    d.creds[config.KeyBrickLinkConsumerKey],
				ConsumerSecret: d.creds[config.KeyBrickLinkConsumerSecret],
				Token:          d.creds[config.KeyBrickLinkTokenValue],
				TokenSecret:    d.creds[config.KeyBrickLinkTokenSecret],
				Timeout:        d.cfg.HTTPTimeout(),
				ListStatuses:   d.cfg.BrickLink.ListStatuses,
				Policy:         policyFrom(d.cfg.BrickLink),
			}).WithLogger(d.logger)
			bo := brickowl.New(brickowl.Config{
				BaseURL: d.cfg.BrickOwl.BaseURL,
				APIKey:  d.creds[config.KeyBrickOwl],
				Timeout: d.cfg.HTTPTimeout(),
				Policy:  policyFrom(d.cfg.BrickOwl),
			}).WithLogger(d.logger)
			if d.rl != nil {
				bl.WithRateLimit(d.rl, d.cfg.RateLimit(d.cfg.BrickLink))
				bo.WithRateLimit(d.rl, d.cfg.RateLimit(d.cfg.BrickOwl))
			}
			return []marketplace.Client{bl, bo}
		},
		newShipping: func(d platformDeps) shipping.Client {
			c := shippo.New(shippo.Config{
				BaseURL: d.cfg.Shippo.BaseURL,
				APIKey:  d.creds.ShippoKey(d.cfg.BrickSync.ShippoTestMode),
				Timeout: d.cfg.HTTPTimeout(),
			}).WithLogger(d.logger)
			if d.rl != nil {
				c.WithRateLimit(d.rl, d.cfg.RateLimit(d.cfg.Shippo))
			}
			return c
		},
		newProducer: func(cfg *config.Config) (reconciler.Producer, func()) {
			if !cfg.Kafka.Enabled() {
				return nil, nil
			}
			brokers := []string{fmt.Sprintf("%s:%d", cfg.Kafka.Host, cfg.Kafka.Port)}
			p := kafka.NewProducer(brokers)
			return p, func() { _ = p.Close() }
		},
		newRateLimiter: func(cfg *config.Config) apiclient.RateLimiter {
			if !cfg.Redis.Enabled() {
				return nil
			}
			return rediscache.NewRateLimiter(redisAddr(cfg))
		},
		newLocker: func(cfg *config.Config) (reconciler.Locker, func(ctx context.Context) error) {
			if !cfg.Redis.Enabled() {
				return nil, nil
			}
			l := rediscache.NewLocker(redisAddr(cfg))
			return l, l.Ping
		},
	}
}

// sandboxWorkerFactories keeps the infrastructure factories but replaces every
// platform with a seeded in-memory one.
func sandboxWorkerFactories() workerFactories {
	f := defaultWorkerFactories()
	f.newMarketplaces = func(d platformDeps) []marketplace.Client {
		bl := mpfake.New(models.SourceBrickLink, withDefaults(policyFrom(d.cfg.BrickLink), bricklink.DefaultPolicy()), "SHIPPED")
		mpfake.Seed(bl, sandboxOrdersPerMarketplace, "PAID", "PACKED")
		bo := mpfake.New(models.SourceBrickOwl, withDefaults(policyFrom(d.cfg.BrickOwl), brickowl.DefaultPolicy()), "Shipped")
		mpfake.Seed(bo, sandboxOrdersPerMarketplace, "Pending", "Processed")
		return []marketplace.Client{bl, bo}
	}
	f.newShipping = func(d platformDeps) shipping.Client {
		s := shipfake.New()
		s.AutoShip = true
		return s
	}
	return f
}

func redisAddr(cfg *config.Config) string {
	port := cfg.Redis.Port
	if port == 0 {
		port = 6379
	}
	return fmt.Sprintf("%s:%d", cfg.Redis.Host, port)
}

func policyFrom(p config.PlatformConfig) models.StatusPolicy {
	return models.StatusPolicy{Ready: statusSet(p.ReadyStatuses), PreShip: statusSet(p.PreShipStatuses)}
}

// statusSet returns nil for an empty list so adapters keep their defaults.
func statusSet(vals []string) models.StatusSet {
	if len(vals) == 0 {
		return nil
	}
	return models.NewStatusSet(vals...)
}

func withDefaults(p, def models.StatusPolicy) models.StatusPolicy {
	if p.Ready == nil {
		p.Ready = def.Ready
	}
	if p.PreShip == nil {
		p.PreShip = def.PreShip
	}
	return p
}

func closeIfCloser(v any) func() {
	if c, ok := v.(io.Closer); ok {
		return func() { _ = c.Close() }
	}
	return func() {}
}

func plannerConfig(cfg *config.Config) reconciler.PlannerConfig {
	sec := func(n int) time.Duration { return time.Duration(n) * time.Second }
	return reconciler.PlannerConfig{
		IntervalMin: sec(cfg.BrickSync.PollIntervalMinSeconds),
		IntervalMax: sec(cfg.BrickSync.PollIntervalMaxSeconds),
		Backoff1:    sec(cfg.BrickSync.Backoff1Seconds),
		Backoff2:    sec(cfg.BrickSync.Backoff2Seconds),
		Backoff3:    sec(cfg.BrickSync.Backoff3Seconds),
		Backoff4:    sec(cfg.BrickSync.Backoff4Seconds),
	}
}

type runOpts struct {
	swaggerPath string
	onListen    func(httpAddr string)
}

func RunSyncWorker(ctx context.Context, cfg *config.Config, creds config.Credentials, f workerFactories, log *zap.Logger, opts runOpts) error {
	if log == nil {
		log = zap.NewNop()
	}
	topic := cfg.Kafka.OrderSyncedTopicName

	rl := f.newRateLimiter(cfg)
	defer closeIfCloser(rl)()
	deps := platformDeps{cfg: cfg, creds: creds, rl: rl, logger: log}
	marketplaces := f.newMarketplaces(deps)
	shippingClient := f.newShipping(deps)

	reg := metrics.NewRegistry()
	rec := reconciler.New(shippingClient, marketplaces, log).
		WithPlanner(plannerConfig(cfg)).
		WithObserver(reg)

	producer, closeProducer := f.newProducer(cfg)
	if closeProducer != nil {
		defer closeProducer()
	}
	if producer != nil {
		rec.WithProducer(producer, topic)
	}

	var ready func(ctx context.Context) error
	if locker, ping := f.newLocker(cfg); locker != nil {
		defer closeIfCloser(locker)()
		rec.WithLocker(locker, time.Duration(cfg.BrickSync.LockTTLSeconds)*time.Second)
		ready = ping
	}

	if cfg.BrickSync.RunOnce {
		_, err := rec.RunOnce(ctx)
		return err
	}

	if cfg.BrickSync.WorkerHTTPAddr != "" {
		go func() {
			err := runWorkerHTTPServer(ctx, workerHTTPOpts{
				httpAddr:    cfg.BrickSync.WorkerHTTPAddr,
				swaggerPath: opts.swaggerPath,
				onListen:    opts.onListen,
				reconciler:  rec,
				cfg:         cfg,
				metrics:     reg.Handler(),
				ready:       ready,
			})
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("worker http server", zap.Error(err))
			}
		}()
	}

	return rec.Run(ctx)
}
