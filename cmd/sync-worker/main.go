package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/BearBump/BrickSync/config"
	"github.com/BearBump/BrickSync/internal/logger"
	"github.com/BearBump/BrickSync/internal/services/reconciler"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig(os.Getenv("configPath"))
	if err != nil {
		panic(fmt.Sprintf("ошибка парсинга конфига, %v", err))
	}

	log, err := logger.New(cfg.Logger)
	if err != nil {
		panic(fmt.Sprintf("ошибка инициализации логгера, %v", err))
	}
	defer func() { _ = log.Sync() }()

	f := defaultWorkerFactories()
	var creds config.Credentials
	if cfg.BrickSync.Sandbox {
		log.Warn("sandbox mode: marketplaces and shipping are in-memory")
		f = sandboxWorkerFactories()
	} else {
		path := cfg.BrickSync.CredentialsPath
		if path == "" {
			path = "api_keys.json"
		}
		creds, err = config.LoadCredentials(path)
		if err != nil {
			log.Fatal("load credentials", zap.Error(err))
		}
		if err := creds.Validate(cfg.BrickSync.ShippoTestMode); err != nil {
			log.Fatal("invalid credentials", zap.Error(err))
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	err = RunSyncWorker(ctx, cfg, creds, f, log, runOpts{swaggerPath: os.Getenv("swaggerPath")})
	switch {
	case err == nil, errors.Is(err, context.Canceled):
	case errors.Is(err, reconciler.ErrRunInProgress):
		log.Info("another run holds the lock, nothing to do")
	default:
		log.Fatal("sync worker stopped", zap.Error(err))
	}
}
