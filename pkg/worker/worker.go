package worker

import (
	"context"
	"sync"

	"github.com/hibiken/asynq"

	"github.com/gemcove/catalog-intake/pkg/logger"
)

type Worker interface {
	Start(ctx context.Context) error
	Stop() error
}

type Config struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

type BaseWorker struct {
	server   *asynq.Server
	mux      *asynq.ServeMux
	logger   logger.Logger
	stopChan chan struct{}
	stopOnce sync.Once
}

// Stop is safe to call more than once; signal handling and context
// cancellation may both reach it.
func (w *BaseWorker) Stop() error {
	w.stopOnce.Do(func() {
		close(w.stopChan)
		w.server.Stop()
	})
	return nil
}
