package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/shellrunner/shellrunner-server/internal/env"
	"github.com/shellrunner/shellrunner-server/internal/executor"
	"github.com/shellrunner/shellrunner-server/internal/httpapi"
	"github.com/shellrunner/shellrunner-server/internal/indexmirror"
	"github.com/shellrunner/shellrunner-server/internal/logstore"
	"github.com/shellrunner/shellrunner-server/internal/procrec"
	"github.com/shellrunner/shellrunner-server/internal/supervisor"
)

func buildLogger() *zap.Logger {
	logConfig := zap.NewDevelopmentConfig()
	logConfig.EncoderConfig.TimeKey = ""
	logConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	logConfig.DisableStacktrace = true
	logConfig.DisableCaller = true
	return zap.Must(logConfig.Build())
}

func main() {
	log := buildLogger()
	defer log.Sync()
	log = log.Named("main")

	cfg := env.Load()

	logs := logstore.NewManager(log, supervisor.DefaultBaseDir(), "shellrunner")
	sup := supervisor.New(log, cfg, logs)
	sup.InstallSignalHandler()

	// The process index mirror is optional: it only activates when
	// REDIS_ADDR is set, and its failure never affects the authoritative
	// in-memory supervisor state (internal/indexmirror).
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: addr})
		mirror := indexmirror.New(log, rdb)
		sup.SetChangeHook(func(infos []procrec.Info) {
			mirror.Refresh(context.Background(), infos)
		})
	}

	exec := executor.New(log, cfg, sup)
	server := httpapi.New(log, cfg, exec)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("dashboard listening", zap.String("addr", cfg.DashboardAddr))
	if err := server.ListenAndServe(ctx); err != nil {
		log.Error("dashboard server stopped", zap.Error(err))
	}

	sup.CleanupAll()
}
