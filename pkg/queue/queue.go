// pkg/queue/queue.go
package queue

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"

	cfg "github.com/gemcove/catalog-intake/config"
)

// TaskTypeDrain 唤醒 drain loop 的任务类型
const TaskTypeDrain = "intake:drain"

// QueueIntake 入库管道使用的唯一 asynq 队列
// A single queue plus worker concurrency 1 is what gives the pipeline its
// strict FIFO, one-item-in-flight behavior.
const QueueIntake = "intake"

// Kicker 通知 drain loop 队列有变化
// Kicks are idempotent wake-ups: one that finds no pending work is a no-op,
// so duplicates are harmless and wake-ups are never lost.
type Kicker interface {
	Kick(ctx context.Context) error
}

// AsynqKicker 实现
type AsynqKicker struct {
	client *asynq.Client
}

func NewAsynqKicker(rc *cfg.RedisConfig) *AsynqKicker {
	return &AsynqKicker{
		client: asynq.NewClient(asynq.RedisClientOpt{
			Addr:     rc.Addr,
			Password: rc.Password,
			DB:       rc.DB,
		}),
	}
}

// GetKicker 获取 kicker 实例
func GetKicker() *AsynqKicker {
	return NewAsynqKicker(cfg.GetRedisConfig())
}

// Kick enqueues one drain wake-up. MaxRetry is zero on purpose: the pipeline
// never retries work automatically, a failed item waits for a human.
func (k *AsynqKicker) Kick(ctx context.Context) error {
	task := asynq.NewTask(TaskTypeDrain, nil,
		asynq.Queue(QueueIntake),
		asynq.MaxRetry(0),
	)
	if _, err := k.client.EnqueueContext(ctx, task); err != nil {
		return fmt.Errorf("failed to enqueue drain kick: %w", err)
	}
	return nil
}

func (k *AsynqKicker) Close() error {
	return k.client.Close()
}
