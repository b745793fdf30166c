package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gemcove/catalog-intake/config"
	"github.com/gemcove/catalog-intake/internal/service/intake"
	"github.com/gemcove/catalog-intake/pkg/logger"
	"github.com/gemcove/catalog-intake/pkg/worker"
)

func main() {
	log, err := logger.NewLogger(
		logger.WithLevel("info"),
		logger.WithEncoding("json"),
		logger.WithOutputPaths([]string{"stdout", "logs/worker.log"}),
	)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	intakeService, err := intake.GetService(log)
	if err != nil {
		log.Error("Failed to create intake service", logger.Error(err))
		os.Exit(1)
	}

	redisCfg := config.GetRedisConfig()
	workerCfg := &worker.Config{
		RedisAddr:     redisCfg.Addr,
		RedisPassword: redisCfg.Password,
		RedisDB:       redisCfg.DB,
	}

	intakeWorker, err := worker.NewIntakeWorker(workerCfg, intakeService, intakeService, log)
	if err != nil {
		log.Error("Failed to create intake worker", logger.Error(err))
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := intakeWorker.Start(ctx); err != nil {
		log.Error("Failed to start worker", logger.Error(err))
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutting down worker...")
	intakeWorker.Stop()
	log.Info("Worker stopped")
}
