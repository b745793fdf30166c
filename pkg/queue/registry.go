// pkg/queue/registry.go
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	cfg "github.com/gemcove/catalog-intake/config"
	"github.com/gemcove/catalog-intake/internal/models"
)

const (
	orderKey      = "intake:order"
	itemKeyPrefix = "intake:item:"
)

// Registry 权威队列状态，server 与 worker 进程共享
// Items live here from enqueue until the caller removes them; the pipeline
// itself never deletes an item, so failures stay inspectable.
type Registry interface {
	// Put appends a new item at the tail of the enqueue order.
	Put(ctx context.Context, item *models.QueueItem) error
	// Save overwrites an existing item's state.
	Save(ctx context.Context, item *models.QueueItem) error
	// Get returns the item or nil when absent.
	Get(ctx context.Context, id string) (*models.QueueItem, error)
	// List returns all items in enqueue order.
	List(ctx context.Context) ([]*models.QueueItem, error)
	// NextPending returns the first pending item in enqueue order, or nil.
	NextPending(ctx context.Context) (*models.QueueItem, error)
	// Claim atomically advances the item from one status to another. It
	// returns nil when the item is absent, not in the from status, or when a
	// concurrent writer got to it first. The drain loop and the interactive
	// transform both run their pending check through Claim, so an item can
	// never be picked up twice.
	Claim(ctx context.Context, id string, from, to models.Status) (*models.QueueItem, error)
	// Remove deletes the item and returns it, or nil when absent.
	Remove(ctx context.Context, id string) (*models.QueueItem, error)
	// ClearCompleted deletes and returns every item in the complete status.
	ClearCompleted(ctx context.Context) ([]*models.QueueItem, error)
}

// RedisRegistry 实现
type RedisRegistry struct {
	redis *redis.Client
}

func NewRedisRegistry(rc *cfg.RedisConfig) *RedisRegistry {
	return &RedisRegistry{
		redis: redis.NewClient(&redis.Options{
			Addr:     rc.Addr,
			Password: rc.Password,
			DB:       rc.DB,
		}),
	}
}

// GetRegistry 获取注册表实例
func GetRegistry() *RedisRegistry {
	return NewRedisRegistry(cfg.GetRedisConfig())
}

func itemKey(id string) string {
	return itemKeyPrefix + id
}

func (r *RedisRegistry) Put(ctx context.Context, item *models.QueueItem) error {
	if err := r.Save(ctx, item); err != nil {
		return err
	}
	if err := r.redis.RPush(ctx, orderKey, item.ID).Err(); err != nil {
		return fmt.Errorf("failed to append to queue order: %w", err)
	}
	return nil
}

func (r *RedisRegistry) Save(ctx context.Context, item *models.QueueItem) error {
	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to marshal item: %w", err)
	}
	if err := r.redis.Set(ctx, itemKey(item.ID), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save item: %w", err)
	}
	return nil
}

func (r *RedisRegistry) Get(ctx context.Context, id string) (*models.QueueItem, error) {
	data, err := r.redis.Get(ctx, itemKey(id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}

	var item models.QueueItem
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal item: %w", err)
	}
	return &item, nil
}

func (r *RedisRegistry) List(ctx context.Context) ([]*models.QueueItem, error) {
	ids, err := r.redis.LRange(ctx, orderKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read queue order: %w", err)
	}

	items := make([]*models.QueueItem, 0, len(ids))
	for _, id := range ids {
		item, err := r.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if item == nil {
			// Stale order entry from a partial removal; drop it.
			r.redis.LRem(ctx, orderKey, 1, id)
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

func (r *RedisRegistry) NextPending(ctx context.Context) (*models.QueueItem, error) {
	items, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		if item.Status == models.StatusPending {
			return item, nil
		}
	}
	return nil, nil
}

// Claim uses WATCH so the status check and the write land as one unit; a
// last-write-wins Save here would let the server and worker processes pick
// up the same item.
func (r *RedisRegistry) Claim(ctx context.Context, id string, from, to models.Status) (*models.QueueItem, error) {
	key := itemKey(id)
	var claimed *models.QueueItem

	err := r.redis.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to get item: %w", err)
		}

		var item models.QueueItem
		if err := json.Unmarshal(data, &item); err != nil {
			return fmt.Errorf("failed to unmarshal item: %w", err)
		}
		if item.Status != from {
			return nil
		}

		item.SetStatus(to)
		payload, err := json.Marshal(&item)
		if err != nil {
			return fmt.Errorf("failed to marshal item: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			return nil
		})
		if err != nil {
			return err
		}

		claimed = &item
		return nil
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		// Someone else wrote the item between our read and write.
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (r *RedisRegistry) Remove(ctx context.Context, id string) (*models.QueueItem, error) {
	item, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, nil
	}

	if err := r.redis.Del(ctx, itemKey(id)).Err(); err != nil {
		return nil, fmt.Errorf("failed to delete item: %w", err)
	}
	if err := r.redis.LRem(ctx, orderKey, 1, id).Err(); err != nil {
		return nil, fmt.Errorf("failed to remove from queue order: %w", err)
	}
	return item, nil
}

func (r *RedisRegistry) ClearCompleted(ctx context.Context) ([]*models.QueueItem, error) {
	items, err := r.List(ctx)
	if err != nil {
		return nil, err
	}

	var removed []*models.QueueItem
	for _, item := range items {
		if item.Status != models.StatusComplete {
			continue
		}
		gone, err := r.Remove(ctx, item.ID)
		if err != nil {
			return removed, err
		}
		if gone != nil {
			removed = append(removed, gone)
		}
	}
	return removed, nil
}

func (r *RedisRegistry) Close() error {
	return r.redis.Close()
}
