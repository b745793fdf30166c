package intake

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/gemcove/catalog-intake/config"
	"github.com/gemcove/catalog-intake/internal/agent/enrich"
	"github.com/gemcove/catalog-intake/internal/catalog"
	"github.com/gemcove/catalog-intake/internal/media"
	"github.com/gemcove/catalog-intake/internal/models"
	"github.com/gemcove/catalog-intake/pkg/logger"
	"github.com/gemcove/catalog-intake/pkg/queue"
	"github.com/gemcove/catalog-intake/pkg/storage"
)

type IntakeService struct {
	registry     queue.Registry
	kicker       queue.Kicker
	staging      storage.Storage
	preprocessor *media.Processor
	enricher     Enricher
	store        CatalogStore
	logger       logger.Logger
	config       *ServiceConfig
}

type ServiceConfig struct {
	EnrichEnabled      bool
	Contributor        string
	ThumbnailWidth     int
	MaxImageWidth      int
	JPEGQuality        int
	DefaultCategory    string
	DefaultDescription string
	RetentionPeriod    time.Duration
}

func NewService(
	registry queue.Registry,
	kicker queue.Kicker,
	staging storage.Storage,
	preprocessor *media.Processor,
	enricher Enricher,
	store CatalogStore,
	log logger.Logger,
	cfg *ServiceConfig,
) *IntakeService {
	if cfg == nil {
		cfg = &ServiceConfig{
			EnrichEnabled:      true,
			Contributor:        "intake-pipeline",
			ThumbnailWidth:     300,
			MaxImageWidth:      1600,
			JPEGQuality:        85,
			DefaultCategory:    "Other",
			DefaultDescription: "No description available",
			RetentionPeriod:    24 * time.Hour,
		}
	}

	return &IntakeService{
		registry:     registry,
		kicker:       kicker,
		staging:      staging,
		preprocessor: preprocessor,
		enricher:     enricher,
		store:        store,
		logger:       log,
		config:       cfg,
	}
}

// GetService 按环境配置组装完整的入库服务
func GetService(log logger.Logger) (*IntakeService, error) {
	intakeCfg := config.GetIntakeConfig()

	staging, err := storage.NewStorage(storage.StorageType(intakeCfg.StorageType), log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize staging storage: %w", err)
	}

	enricher, err := enrich.GetClient(log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize enrichment client: %w", err)
	}

	catalogCfg := config.GetCatalogConfig()
	store := catalog.NewClient(catalogCfg, log)

	preprocessor := media.NewProcessor(log, intakeCfg.MaxImageWidth, intakeCfg.JPEGQuality)

	svcCfg := &ServiceConfig{
		EnrichEnabled:      config.GetEnrichConfig().Enabled,
		Contributor:        catalogCfg.Contributor,
		ThumbnailWidth:     intakeCfg.ThumbnailWidth,
		MaxImageWidth:      intakeCfg.MaxImageWidth,
		JPEGQuality:        intakeCfg.JPEGQuality,
		DefaultCategory:    intakeCfg.DefaultCategory,
		DefaultDescription: intakeCfg.DefaultDescription,
		RetentionPeriod:    intakeCfg.RetentionPeriod,
	}

	return NewService(queue.GetRegistry(), queue.GetKicker(), staging, preprocessor, enricher, store, log, svcCfg), nil
}

// Enqueue 批量入队
func (s *IntakeService) Enqueue(ctx context.Context, assets []Asset, hints models.ClassificationHints) ([]*models.QueueItem, error) {
	for _, asset := range assets {
		if len(asset.Data) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrEmptyAsset, asset.Filename)
		}
	}

	now := time.Now()
	items := make([]*models.QueueItem, len(assets))
	for i, asset := range assets {
		id := uuid.New().String()
		items[i] = &models.QueueItem{
			ID:         id,
			Filename:   asset.Filename,
			StagingKey: fmt.Sprintf("intake/%s/%s", id, asset.Filename),
			MimeType:   http.DetectContentType(asset.Data),
			SizeBytes:  int64(len(asset.Data)),
			Hints:      hints,
			Status:     models.StatusPending,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
	}

	// Stage all raw bytes before any item becomes visible to the drain loop.
	g, gctx := errgroup.WithContext(ctx)
	for i := range assets {
		i := i
		g.Go(func() error {
			_, err := s.staging.Store(gctx, bytes.NewReader(assets[i].Data), items[i].StagingKey, items[i].MimeType)
			if err != nil {
				return fmt.Errorf("failed to stage %s: %w", assets[i].Filename, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Registry insertion happens in input order; it defines the FIFO order
	// the drain loop honors.
	for _, item := range items {
		if err := s.registry.Put(ctx, item); err != nil {
			return nil, fmt.Errorf("failed to enqueue item: %w", err)
		}
		s.logger.Info("Queued intake item",
			logger.String("itemId", item.ID),
			logger.String("filename", item.Filename),
			logger.Int64("size", item.SizeBytes),
		)
	}

	if err := s.kicker.Kick(ctx); err != nil {
		return nil, fmt.Errorf("failed to wake drain loop: %w", err)
	}

	return items, nil
}

// Items 按入队顺序返回全部队列项
func (s *IntakeService) Items(ctx context.Context) ([]*models.QueueItem, error) {
	return s.registry.List(ctx)
}

// Status 队列快照
func (s *IntakeService) Status(ctx context.Context) (*QueueStatus, error) {
	items, err := s.registry.List(ctx)
	if err != nil {
		return nil, err
	}

	status := &QueueStatus{
		Counts: make(map[string]int),
		Total:  len(items),
	}
	for _, item := range items {
		status.Counts[string(item.Status)]++
		if item.Status.IsInFlight() {
			status.Processing = true
		}
	}
	return status, nil
}

// Remove 删除一个队列项；不存在时为 no-op
func (s *IntakeService) Remove(ctx context.Context, id string) error {
	item, err := s.registry.Get(ctx, id)
	if err != nil {
		return err
	}
	if item == nil {
		return nil
	}
	if item.Status.IsInFlight() {
		return ErrItemInFlight
	}

	removed, err := s.registry.Remove(ctx, id)
	if err != nil {
		return err
	}
	if removed != nil {
		s.dropStaged(ctx, removed)
		s.logger.Info("Removed intake item",
			logger.String("itemId", id),
			logger.String("status", string(removed.Status)),
		)
	}
	return nil
}

// ClearCompleted 清除所有 complete 项，error 项保留供人工检视
func (s *IntakeService) ClearCompleted(ctx context.Context) (int, error) {
	removed, err := s.registry.ClearCompleted(ctx)
	if err != nil {
		return 0, err
	}
	for _, item := range removed {
		s.dropStaged(ctx, item)
	}
	if len(removed) > 0 {
		s.logger.Info("Cleared completed intake items", logger.Int("count", len(removed)))
	}
	return len(removed), nil
}

// CleanupStaging 清理过期的暂存对象
// Live items have their staged bytes rewritten well inside the retention
// window; anything older is an orphan whose best-effort delete was lost when
// its item was removed or cleared.
func (s *IntakeService) CleanupStaging(ctx context.Context) error {
	threshold := time.Now().Add(-s.config.RetentionPeriod)

	if err := s.staging.CleanupBefore(ctx, threshold); err != nil {
		return fmt.Errorf("failed to cleanup staging storage: %w", err)
	}

	s.logger.Info("Completed staging cleanup",
		logger.Time("threshold", threshold),
	)
	return nil
}

// Drain 逐项推进队列直到没有 pending 项
// One item's pipeline failure never blocks the rest: it is written to the
// item and the loop moves on. A registry write failure does abort the drain,
// otherwise the loop would re-pick the same item forever.
func (s *IntakeService) Drain(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		item, err := s.registry.NextPending(ctx)
		if err != nil {
			return fmt.Errorf("failed to pick next pending item: %w", err)
		}
		if item == nil {
			return nil
		}

		// The claim arbitrates against an interactive transform grabbing the
		// same item from the server process between our read and write.
		claimed, err := s.registry.Claim(ctx, item.ID, models.StatusPending, models.StatusAnalyzing)
		if err != nil {
			return fmt.Errorf("failed to claim item: %w", err)
		}
		if claimed == nil {
			continue
		}

		if err := s.processItem(ctx, claimed); err != nil {
			return err
		}
	}
}

// processItem advances one freshly claimed item through the pipeline. The
// returned error is registry-level only; pipeline failures end up on the item.
func (s *IntakeService) processItem(ctx context.Context, item *models.QueueItem) error {
	s.logger.Info("Processing intake item",
		logger.String("itemId", item.ID),
		logger.String("filename", item.Filename),
	)

	raw, err := s.readStaged(ctx, item.StagingKey)
	if err != nil {
		return s.failItem(ctx, item, fmt.Sprintf("staged asset unavailable: %v", err))
	}

	img, err := s.preprocessor.Prepare(raw)
	if err != nil {
		return s.failItem(ctx, item, fmt.Sprintf("could not decode image: %v", err))
	}

	resolved, aiUsed := s.enrichItem(ctx, item, img)

	item.Title = resolved.Title
	item.Category = resolved.Category
	item.Subcategory = resolved.Subcategory
	item.WeightGrams = resolved.WeightGrams
	item.Description = resolved.Description
	item.Tags = resolved.Tags

	item.SetStatus(models.StatusSaving)
	if err := s.registry.Save(ctx, item); err != nil {
		return fmt.Errorf("failed to persist status: %w", err)
	}

	ref, err := s.store.UploadImage(ctx, img, catalog.UploadOptions{
		TargetWidth:    s.config.MaxImageWidth,
		ThumbnailWidth: s.config.ThumbnailWidth,
		Quality:        s.config.JPEGQuality,
		OutputFormat:   "jpeg",
	})
	if err != nil {
		return s.failItem(ctx, item, fmt.Sprintf("image upload rejected: %v", err))
	}

	record := s.buildRecord(item, ref, aiUsed)
	if _, err := s.store.CreateRecord(ctx, record); err != nil {
		return s.failItem(ctx, item, fmt.Sprintf("record rejected: %v", err))
	}

	item.PrimaryURL = ref.PrimaryURL
	item.ThumbnailURL = ref.ThumbnailURL
	item.SetStatus(models.StatusComplete)
	if err := s.registry.Save(ctx, item); err != nil {
		return fmt.Errorf("failed to persist status: %w", err)
	}

	s.logger.Info("Intake item complete",
		logger.String("itemId", item.ID),
		logger.String("title", item.Title),
		logger.String("primaryUrl", item.PrimaryURL),
	)
	return nil
}

// enrichItem runs metadata extraction with the fallback policy applied.
// Transport failures here are non-fatal: metadata is enrichment, not a
// correctness requirement, so the item continues with fallback values.
func (s *IntakeService) enrichItem(ctx context.Context, item *models.QueueItem, img *media.EncodedImage) (*enrich.PartialRecord, bool) {
	var partial *enrich.PartialRecord
	aiUsed := false

	if s.config.EnrichEnabled {
		var err error
		partial, err = s.enricher.ExtractMetadata(ctx, img)
		if err != nil {
			s.logger.Warn("Enrichment unavailable, using fallbacks",
				logger.String("itemId", item.ID),
				logger.Error(err),
			)
			partial = nil
		} else {
			aiUsed = !partial.IsEmpty()
		}
	}

	resolved := enrich.Resolve(partial, item.Filename, item.Hints, enrich.Defaults{
		Category:    s.config.DefaultCategory,
		Description: s.config.DefaultDescription,
	})
	return resolved, aiUsed
}

func (s *IntakeService) buildRecord(item *models.QueueItem, ref *models.ImageRef, aiUsed bool) *models.CatalogRecord {
	metadata := map[string]interface{}{
		"sourceFilename": item.Filename,
		"aiEnriched":     aiUsed,
	}
	if item.Hints.Device != "" {
		metadata["captureDevice"] = item.Hints.Device
	}
	if item.Hints.Category != "" || item.Hints.Subcategory != "" {
		metadata["operatorHints"] = item.Hints
	}

	return &models.CatalogRecord{
		Title:       item.Title,
		Category:    item.Category,
		Subcategory: item.Subcategory,
		WeightGrams: item.WeightGrams,
		Description: item.Description,
		Tags:        item.Tags,
		Images:      []models.ImageRef{*ref},
		Supplier:    item.Hints.Supplier,
		Contributor: s.config.Contributor,
		CreatedAt:   time.Now(),
		CaptureDate: item.CreatedAt,
		Metadata:    metadata,
	}
}

// Transform 对单个 pending 项执行交互式图像变换
// Runs in the API process, outside the drain loop's ordering and its
// one-in-flight budget. The preview is only replaced after the transform
// fully succeeds; on failure the staged bytes are untouched.
func (s *IntakeService) Transform(ctx context.Context, id string, op TransformOp, promptOverride string) (*models.QueueItem, error) {
	// Claiming pending → analyzing here is what keeps the drain loop in the
	// worker process from picking the same item up mid-transform.
	item, err := s.registry.Claim(ctx, id, models.StatusPending, models.StatusAnalyzing)
	if err != nil {
		return nil, err
	}
	if item == nil {
		existing, err := s.registry.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, ErrItemNotFound
		}
		return nil, ErrNotPending
	}

	raw, err := s.readStaged(ctx, item.StagingKey)
	if err != nil {
		item.SetError(fmt.Sprintf("staged asset unavailable: %v", err))
		s.registry.Save(ctx, item)
		return item, err
	}

	out, err := s.applyTransform(ctx, &media.EncodedImage{MimeType: item.MimeType, Data: raw}, op, promptOverride)
	if err != nil {
		item.SetError(fmt.Sprintf("%s failed: %v", op, err))
		s.registry.Save(ctx, item)
		return item, err
	}

	newKey := fmt.Sprintf("intake/%s/working-%d.jpg", item.ID, time.Now().UnixNano())
	if _, err := s.staging.Store(ctx, bytes.NewReader(out.Data), newKey, out.MimeType); err != nil {
		item.SetError(fmt.Sprintf("could not stage transformed image: %v", err))
		s.registry.Save(ctx, item)
		return item, err
	}

	oldKey := item.StagingKey
	item.StagingKey = newKey
	item.MimeType = out.MimeType
	item.SizeBytes = int64(len(out.Data))
	item.SetStatus(models.StatusPending)
	if err := s.registry.Save(ctx, item); err != nil {
		return nil, err
	}

	if oldKey != newKey {
		if err := s.staging.Delete(ctx, oldKey); err != nil {
			s.logger.Warn("Failed to drop replaced preview", logger.String("key", oldKey), logger.Error(err))
		}
	}

	s.logger.Info("Interactive transform applied",
		logger.String("itemId", item.ID),
		logger.String("op", string(op)),
	)

	// The item is pending again; make sure the drain loop notices.
	if err := s.kicker.Kick(ctx); err != nil {
		s.logger.Warn("Failed to wake drain loop after transform", logger.Error(err))
	}

	return item, nil
}

// TransformBytes 队列之外的单图预提交变换
func (s *IntakeService) TransformBytes(ctx context.Context, data []byte, op TransformOp, promptOverride string) (*media.EncodedImage, error) {
	img, err := s.preprocessor.Prepare(data)
	if err != nil {
		return nil, err
	}
	return s.applyTransform(ctx, img, op, promptOverride)
}

func (s *IntakeService) applyTransform(ctx context.Context, img *media.EncodedImage, op TransformOp, promptOverride string) (*media.EncodedImage, error) {
	switch op {
	case TransformCleanup:
		return s.enricher.RemoveWatermark(ctx, img, promptOverride)
	case TransformEnhance:
		return s.enricher.Enhance(ctx, img, promptOverride)
	default:
		return nil, fmt.Errorf("unsupported transform op: %s", op)
	}
}

func (s *IntakeService) failItem(ctx context.Context, item *models.QueueItem, reason string) error {
	item.SetError(reason)
	if err := s.registry.Save(ctx, item); err != nil {
		s.logger.Error("Failed to persist error status",
			logger.String("itemId", item.ID),
			logger.Error(err),
		)
		return fmt.Errorf("failed to persist error status: %w", err)
	}
	s.logger.Error("Intake item failed",
		logger.String("itemId", item.ID),
		logger.String("filename", item.Filename),
		logger.String("reason", reason),
	)
	return nil
}

func (s *IntakeService) readStaged(ctx context.Context, key string) ([]byte, error) {
	reader, err := s.staging.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	return io.ReadAll(reader)
}

func (s *IntakeService) dropStaged(ctx context.Context, item *models.QueueItem) {
	if item.StagingKey == "" {
		return
	}
	if err := s.staging.Delete(ctx, item.StagingKey); err != nil {
		s.logger.Warn("Failed to drop staged bytes",
			logger.String("itemId", item.ID),
			logger.String("key", item.StagingKey),
			logger.Error(err),
		)
	}
}
