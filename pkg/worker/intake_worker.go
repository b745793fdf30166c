package worker

import (
	"context"
	"time"

	"github.com/hibiken/asynq"

	"github.com/gemcove/catalog-intake/pkg/logger"
	"github.com/gemcove/catalog-intake/pkg/queue"
)

// Drainer 推进队列直到没有 pending 项（由 intake 服务实现）
type Drainer interface {
	Drain(ctx context.Context) error
}

// StagingSweeper 清理过期的暂存对象（由 intake 服务实现）
type StagingSweeper interface {
	CleanupStaging(ctx context.Context) error
}

// sweepInterval is how often orphaned staged objects are reclaimed; the
// retention window itself lives in the service config.
const sweepInterval = time.Hour

// IntakeWorker 消费 drain kick 的单并发 worker
// Concurrency is pinned to 1: combined with the single intake queue it
// guarantees at most one item is ever in analyzing/saving, and that items
// are drained in strict enqueue order.
type IntakeWorker struct {
	BaseWorker
	drainer Drainer
	sweeper StagingSweeper
}

func NewIntakeWorker(cfg *Config, drainer Drainer, sweeper StagingSweeper, logger logger.Logger) (*IntakeWorker, error) {
	server := asynq.NewServer(
		asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB},
		asynq.Config{
			Concurrency: 1,
			Queues: map[string]int{
				queue.QueueIntake: 1,
			},
		},
	)

	w := &IntakeWorker{
		BaseWorker: BaseWorker{
			server:   server,
			mux:      asynq.NewServeMux(),
			logger:   logger,
			stopChan: make(chan struct{}),
		},
		drainer: drainer,
		sweeper: sweeper,
	}

	w.mux.HandleFunc(queue.TaskTypeDrain, w.handleDrain)
	return w, nil
}

func (w *IntakeWorker) handleDrain(ctx context.Context, t *asynq.Task) error {
	w.logger.Debug("Drain kick received")

	if err := w.drainer.Drain(ctx); err != nil {
		// Item-level failures are already recorded on the items themselves;
		// an error here means the registry itself is unreachable.
		w.logger.Error("Drain aborted", logger.Error(err))
		return err
	}

	return nil
}

func (w *IntakeWorker) Start(ctx context.Context) error {
	go func() {
		if err := w.server.Run(w.mux); err != nil {
			w.logger.Error("Worker server stopped", logger.Error(err))
		}
	}()

	go w.runSweeper(ctx)

	go func() {
		<-ctx.Done()
		w.Stop()
	}()

	return nil
}

func (w *IntakeWorker) runSweeper(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopChan:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.sweeper.CleanupStaging(ctx); err != nil {
				w.logger.Warn("Staging sweep failed", logger.Error(err))
			}
		}
	}
}
