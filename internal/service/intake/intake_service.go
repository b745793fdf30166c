package intake

import (
	"context"
	"errors"

	"github.com/gemcove/catalog-intake/internal/agent/enrich"
	"github.com/gemcove/catalog-intake/internal/catalog"
	"github.com/gemcove/catalog-intake/internal/media"
	"github.com/gemcove/catalog-intake/internal/models"
)

// 调用方可见的错误
var (
	ErrItemNotFound = errors.New("queue item not found")
	ErrNotPending   = errors.New("queue item is not pending")
	ErrItemInFlight = errors.New("queue item is mid-flight and cannot be removed")
	ErrEmptyAsset   = errors.New("asset has no content")
)

// Asset 一个待入队的原始资产
type Asset struct {
	Filename string
	Data     []byte
}

// TransformOp 交互式图像变换种类
type TransformOp string

const (
	TransformCleanup TransformOp = "cleanup"
	TransformEnhance TransformOp = "enhance"
)

// QueueStatus 给 UI 渲染进度用的快照
type QueueStatus struct {
	Processing bool           `json:"processing"`
	Counts     map[string]int `json:"counts"`
	Total      int            `json:"total"`
}

// Enricher AI 能力边界（由 enrich.Client 实现）
type Enricher interface {
	ExtractMetadata(ctx context.Context, img *media.EncodedImage) (*enrich.PartialRecord, error)
	RemoveWatermark(ctx context.Context, img *media.EncodedImage, promptOverride string) (*media.EncodedImage, error)
	Enhance(ctx context.Context, img *media.EncodedImage, promptOverride string) (*media.EncodedImage, error)
}

// CatalogStore 远端商品库边界（由 catalog.Client 实现）
type CatalogStore interface {
	UploadImage(ctx context.Context, img *media.EncodedImage, opts catalog.UploadOptions) (*models.ImageRef, error)
	CreateRecord(ctx context.Context, record *models.CatalogRecord) (*models.CatalogRecord, error)
}

// IntakeManager 队列管理器的调用方接口
type IntakeManager interface {
	// Enqueue creates one pending QueueItem per asset, stages its bytes and
	// returns immediately; processing happens in the drain loop.
	Enqueue(ctx context.Context, assets []Asset, hints models.ClassificationHints) ([]*models.QueueItem, error)
	// Items is the continuously-current, enqueue-ordered queue view.
	Items(ctx context.Context) ([]*models.QueueItem, error)
	// Status reports whether anything is processing plus per-status counts.
	Status(ctx context.Context) (*QueueStatus, error)
	// Remove deletes one item regardless of terminal status; no-op if absent.
	Remove(ctx context.Context, id string) error
	// ClearCompleted removes every complete item, preserving errored ones.
	ClearCompleted(ctx context.Context) (int, error)

	// Drain advances pending items through the pipeline one at a time until
	// none remain. Called by the worker, never by API callers.
	Drain(ctx context.Context) error
	// CleanupStaging removes staged objects older than the retention window.
	// Called by the worker on a timer.
	CleanupStaging(ctx context.Context) error

	// Transform applies an interactive cleanup/enhancement to one pending
	// item, replacing its working preview on success.
	Transform(ctx context.Context, id string, op TransformOp, promptOverride string) (*models.QueueItem, error)
	// TransformBytes is the pre-submission variant: transform a single image
	// that has no queue entry at all.
	TransformBytes(ctx context.Context, data []byte, op TransformOp, promptOverride string) (*media.EncodedImage, error)
}
