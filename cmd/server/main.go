package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/npezzotti/go-dm/internal/api"
	"github.com/npezzotti/go-dm/internal/config"
	"github.com/npezzotti/go-dm/internal/database"
	"github.com/npezzotti/go-dm/internal/stats"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		logrus.Fatal("config: ", err)
	}

	logger := config.NewLogger(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if cfg.DefaultSigningKey {
		entry := logger.WithField("driver", cfg.StoreDriver)
		if cfg.StoreDriver != config.DriverMemory {
			entry.Error("using the built-in signing key with a persistent store; sessions can be forged until --signing-key or GODM_SIGNING_KEY is set")
		} else {
			entry.Warn("using the built-in signing key; set --signing-key or GODM_SIGNING_KEY outside development")
		}
	}

	openCtx, cancelOpen := context.WithTimeout(context.Background(), 30*time.Second)
	repo, err := database.Open(openCtx, cfg)
	cancelOpen()
	if err != nil {
		logger.Fatal("db open: ", err)
	}
	defer func() {
		if err := repo.Close(); err != nil {
			logger.Error("db close: ", err)
		}
	}()
	logger.WithField("driver", cfg.StoreDriver).Info("store opened")

	mux := http.NewServeMux()

	statsUpdater := stats.NewStatsUpdater(mux)
	statsUpdater.Run()
	defer statsUpdater.Stop()

	srv := api.NewGoDMApp(mux, logger, repo, statsUpdater, cfg)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		logger.Infof("received signal: %s", sig)
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server: ", err)
		}
	}

	shutDownCtx, cancel := context.WithTimeout(
		context.Background(),
		10*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutDownCtx); err != nil {
		logger.Error("HTTP server shutdown: ", err)
	}

	logger.Info("shutdown complete")
}
