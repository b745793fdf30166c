package intake

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gemcove/catalog-intake/internal/agent/enrich"
	"github.com/gemcove/catalog-intake/internal/catalog"
	"github.com/gemcove/catalog-intake/internal/media"
	"github.com/gemcove/catalog-intake/internal/models"
	"github.com/gemcove/catalog-intake/pkg/logger"
	"github.com/gemcove/catalog-intake/pkg/queue"
)

// fakeRegistry keeps queue state in memory with the same copy semantics the
// redis registry gets from JSON round-trips.
type fakeRegistry struct {
	mu    sync.Mutex
	order []string
	items map[string]*models.QueueItem
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{items: make(map[string]*models.QueueItem)}
}

func cloneItem(item *models.QueueItem) *models.QueueItem {
	c := *item
	if item.Tags != nil {
		c.Tags = append([]string(nil), item.Tags...)
	}
	return &c
}

func (r *fakeRegistry) Put(ctx context.Context, item *models.QueueItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[item.ID] = cloneItem(item)
	r.order = append(r.order, item.ID)
	return nil
}

func (r *fakeRegistry) Save(ctx context.Context, item *models.QueueItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[item.ID] = cloneItem(item)
	return nil
}

func (r *fakeRegistry) Get(ctx context.Context, id string) (*models.QueueItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok {
		return nil, nil
	}
	return cloneItem(item), nil
}

func (r *fakeRegistry) List(ctx context.Context) ([]*models.QueueItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.QueueItem, 0, len(r.order))
	for _, id := range r.order {
		if item, ok := r.items[id]; ok {
			out = append(out, cloneItem(item))
		}
	}
	return out, nil
}

func (r *fakeRegistry) NextPending(ctx context.Context) (*models.QueueItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range r.order {
		if item, ok := r.items[id]; ok && item.Status == models.StatusPending {
			return cloneItem(item), nil
		}
	}
	return nil, nil
}

func (r *fakeRegistry) Claim(ctx context.Context, id string, from, to models.Status) (*models.QueueItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok || item.Status != from {
		return nil, nil
	}
	item.SetStatus(to)
	return cloneItem(item), nil
}

func (r *fakeRegistry) Remove(ctx context.Context, id string) (*models.QueueItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok {
		return nil, nil
	}
	delete(r.items, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return item, nil
}

func (r *fakeRegistry) ClearCompleted(ctx context.Context) ([]*models.QueueItem, error) {
	r.mu.Lock()
	ids := append([]string(nil), r.order...)
	r.mu.Unlock()

	var removed []*models.QueueItem
	for _, id := range ids {
		r.mu.Lock()
		item, ok := r.items[id]
		complete := ok && item.Status == models.StatusComplete
		r.mu.Unlock()
		if !complete {
			continue
		}
		gone, err := r.Remove(context.Background(), id)
		if err != nil {
			return removed, err
		}
		if gone != nil {
			removed = append(removed, gone)
		}
	}
	return removed, nil
}

type fakeStaging struct {
	mu               sync.Mutex
	objects          map[string][]byte
	cleanupThreshold time.Time
}

func newFakeStaging() *fakeStaging {
	return &fakeStaging{objects: make(map[string][]byte)}
}

func (s *fakeStaging) Store(ctx context.Context, reader io.Reader, key, contentType string) (string, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	return key, nil
}

func (s *fakeStaging) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, errors.New("object not found: " + key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *fakeStaging) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *fakeStaging) CleanupBefore(ctx context.Context, threshold time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleanupThreshold = threshold
	return nil
}

func (s *fakeStaging) has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	return ok
}

func (s *fakeStaging) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

type fakeKicker struct {
	mu    sync.Mutex
	kicks int
}

func (k *fakeKicker) Kick(ctx context.Context) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.kicks++
	return nil
}

func (k *fakeKicker) count() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.kicks
}

type fakeEnricher struct {
	metadata     *enrich.PartialRecord
	metadataErr  error
	transformOut *media.EncodedImage
	transformErr error
}

func (e *fakeEnricher) ExtractMetadata(ctx context.Context, img *media.EncodedImage) (*enrich.PartialRecord, error) {
	if e.metadataErr != nil {
		return nil, e.metadataErr
	}
	if e.metadata == nil {
		return &enrich.PartialRecord{}, nil
	}
	return e.metadata, nil
}

func (e *fakeEnricher) RemoveWatermark(ctx context.Context, img *media.EncodedImage, promptOverride string) (*media.EncodedImage, error) {
	return e.transformOut, e.transformErr
}

func (e *fakeEnricher) Enhance(ctx context.Context, img *media.EncodedImage, promptOverride string) (*media.EncodedImage, error) {
	return e.transformOut, e.transformErr
}

type fakeStore struct {
	mu        sync.Mutex
	uploads   int
	records   []*models.CatalogRecord
	uploadErr error
	failTitle string
}

func (s *fakeStore) UploadImage(ctx context.Context, img *media.EncodedImage, opts catalog.UploadOptions) (*models.ImageRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.uploadErr != nil {
		return nil, s.uploadErr
	}
	s.uploads++
	return &models.ImageRef{
		PrimaryURL:   "https://cdn.example.com/img.jpg",
		ThumbnailURL: "https://cdn.example.com/img-thumb.jpg",
	}, nil
}

func (s *fakeStore) CreateRecord(ctx context.Context, record *models.CatalogRecord) (*models.CatalogRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failTitle != "" && record.Title == s.failTitle {
		return nil, &catalog.StoreError{Op: "create record", StatusCode: 422, Err: errors.New("rejected")}
	}
	s.records = append(s.records, record)
	return record, nil
}

func (s *fakeStore) recordTitles() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	titles := make([]string, len(s.records))
	for i, r := range s.records {
		titles[i] = r.Title
	}
	return titles
}

type testHarness struct {
	svc      *IntakeService
	registry *fakeRegistry
	staging  *fakeStaging
	kicker   *fakeKicker
	enricher *fakeEnricher
	store    *fakeStore
}

func testServiceConfig(enrichEnabled bool) *ServiceConfig {
	return &ServiceConfig{
		EnrichEnabled:      enrichEnabled,
		Contributor:        "intake-test",
		ThumbnailWidth:     300,
		MaxImageWidth:      1600,
		JPEGQuality:        85,
		DefaultCategory:    "Other",
		DefaultDescription: "No description available",
		RetentionPeriod:    24 * time.Hour,
	}
}

func newHarness(enrichEnabled bool) *testHarness {
	h := &testHarness{
		registry: newFakeRegistry(),
		staging:  newFakeStaging(),
		kicker:   &fakeKicker{},
		enricher: &fakeEnricher{},
		store:    &fakeStore{},
	}
	h.svc = h.serviceWith(h.registry, enrichEnabled)
	return h
}

// serviceWith builds a service over the shared fakes with a replacement
// registry, so tests can interpose on registry calls.
func (h *testHarness) serviceWith(reg queue.Registry, enrichEnabled bool) *IntakeService {
	log := logger.NewTestLogger()
	return NewService(
		reg,
		h.kicker,
		h.staging,
		media.NewProcessor(log, 1600, 85),
		h.enricher,
		h.store,
		log,
		testServiceConfig(enrichEnabled),
	)
}

func jpegBytes(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: 200, G: 180, B: 40, A: 255})
		}
	}
	buf := new(bytes.Buffer)
	require.NoError(t, jpeg.Encode(buf, img, &jpeg.Options{Quality: 90}))
	return buf.Bytes()
}

func (h *testHarness) enqueue(t *testing.T, hints models.ClassificationHints, filenames ...string) []*models.QueueItem {
	t.Helper()
	assets := make([]Asset, len(filenames))
	for i, name := range filenames {
		assets[i] = Asset{Filename: name, Data: jpegBytes(t, 100, 100)}
	}
	items, err := h.svc.Enqueue(context.Background(), assets, hints)
	require.NoError(t, err)
	return items
}

var _ IntakeManager = (*IntakeService)(nil)
var _ queue.Registry = (*fakeRegistry)(nil)

func TestEnqueueStagesBytesAndKicks(t *testing.T) {
	h := newHarness(false)

	items := h.enqueue(t, models.ClassificationHints{Supplier: "acme"}, "ring.jpg", "brooch.jpg")
	require.Len(t, items, 2)

	for _, item := range items {
		assert.Equal(t, models.StatusPending, item.Status)
		assert.True(t, h.staging.has(item.StagingKey))
		assert.Equal(t, "acme", item.Hints.Supplier)
		assert.NotEmpty(t, item.ID)
	}
	assert.Equal(t, 1, h.kicker.count(), "one kick per batch")
}

func TestEnqueueRejectsEmptyAsset(t *testing.T) {
	h := newHarness(false)

	_, err := h.svc.Enqueue(context.Background(), []Asset{
		{Filename: "good.jpg", Data: jpegBytes(t, 50, 50)},
		{Filename: "empty.jpg", Data: nil},
	}, models.ClassificationHints{})

	require.ErrorIs(t, err, ErrEmptyAsset)
	assert.Equal(t, 0, h.staging.count(), "nothing staged when the batch is rejected")

	items, err := h.svc.Items(context.Background())
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestDrainProcessesInEnqueueOrder(t *testing.T) {
	h := newHarness(false)

	h.enqueue(t, models.ClassificationHints{}, "first-ring.jpg", "second-ring.jpg")
	h.enqueue(t, models.ClassificationHints{}, "third-ring.jpg")

	require.NoError(t, h.svc.Drain(context.Background()))

	assert.Equal(t, []string{"first ring", "second ring", "third ring"}, h.store.recordTitles())

	items, err := h.svc.Items(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 3)
	for _, item := range items {
		assert.Equal(t, models.StatusComplete, item.Status)
		assert.Equal(t, "https://cdn.example.com/img.jpg", item.PrimaryURL)
	}
}

func TestDrainWithEnrichmentDisabledUsesFallbacks(t *testing.T) {
	h := newHarness(false)

	h.enqueue(t, models.ClassificationHints{}, "art-deco_emerald.ring.jpg")
	require.NoError(t, h.svc.Drain(context.Background()))

	require.Len(t, h.store.records, 1)
	record := h.store.records[0]
	assert.Equal(t, "art deco emerald ring", record.Title)
	assert.Equal(t, "Other", record.Category)
	assert.Equal(t, "No description available", record.Description)
	assert.Empty(t, record.Tags)
	assert.Equal(t, float64(0), record.WeightGrams)
	assert.Equal(t, false, record.Metadata["aiEnriched"])
	assert.Equal(t, "intake-test", record.Contributor)
}

func TestDrainAppliesHintsOverAI(t *testing.T) {
	h := newHarness(true)
	h.enricher.metadata = &enrich.PartialRecord{
		Title:       "Emerald Ring",
		Category:    "Rings",
		Subcategory: "Gemstone",
		Description: "A ring with an emerald.",
		Tags:        []string{"emerald"},
	}

	h.enqueue(t, models.ClassificationHints{Category: "Necklaces"}, "photo.jpg")
	require.NoError(t, h.svc.Drain(context.Background()))

	require.Len(t, h.store.records, 1)
	record := h.store.records[0]
	assert.Equal(t, "Necklaces", record.Category, "caller hints beat AI output")
	assert.Equal(t, "Gemstone", record.Subcategory, "AI fills fields hints left blank")
	assert.Equal(t, "Emerald Ring", record.Title)
	assert.Equal(t, true, record.Metadata["aiEnriched"])
}

func TestDrainSurvivesEnrichmentTransportFailure(t *testing.T) {
	h := newHarness(true)
	h.enricher.metadataErr = &enrich.TransportError{Op: "metadata extraction", Err: errors.New("connection refused")}

	h.enqueue(t, models.ClassificationHints{}, "pearl-strand.jpg")
	require.NoError(t, h.svc.Drain(context.Background()))

	items, err := h.svc.Items(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, models.StatusComplete, items[0].Status, "enrichment failure must not fail the item")
	assert.Equal(t, "pearl strand", items[0].Title)
	assert.Equal(t, "Other", items[0].Category)
}

func TestDrainPersistenceRejectionFailsOnlyThatItem(t *testing.T) {
	h := newHarness(false)
	h.store.failTitle = "bad ring"

	h.enqueue(t, models.ClassificationHints{}, "good-ring.jpg", "bad-ring.jpg", "other-ring.jpg")
	require.NoError(t, h.svc.Drain(context.Background()))

	items, err := h.svc.Items(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 3)

	assert.Equal(t, models.StatusComplete, items[0].Status)
	assert.Equal(t, models.StatusError, items[1].Status)
	assert.Contains(t, items[1].ErrorReason, "record rejected")
	assert.Equal(t, models.StatusComplete, items[2].Status)

	assert.True(t, h.staging.has(items[1].StagingKey), "failed item keeps its staged bytes")
}

func TestDrainUploadRejectionFailsItem(t *testing.T) {
	h := newHarness(false)
	h.store.uploadErr = &catalog.StoreError{Op: "upload", StatusCode: 403, Err: errors.New("quota exceeded")}

	h.enqueue(t, models.ClassificationHints{}, "ring.jpg")
	require.NoError(t, h.svc.Drain(context.Background()))

	items, err := h.svc.Items(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, models.StatusError, items[0].Status)
	assert.Contains(t, items[0].ErrorReason, "image upload rejected")
	assert.Empty(t, h.store.recordTitles(), "no record is created when the upload fails")
}

func TestDrainCorruptAssetFailsWithDecodeReason(t *testing.T) {
	h := newHarness(false)

	_, err := h.svc.Enqueue(context.Background(), []Asset{
		{Filename: "broken.jpg", Data: []byte("definitely not an image")},
		{Filename: "fine.jpg", Data: jpegBytes(t, 60, 60)},
	}, models.ClassificationHints{})
	require.NoError(t, err)

	require.NoError(t, h.svc.Drain(context.Background()))

	items, err := h.svc.Items(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, models.StatusError, items[0].Status)
	assert.Contains(t, items[0].ErrorReason, "could not decode image")
	assert.Equal(t, models.StatusComplete, items[1].Status)
}

// claimStealingRegistry lets another writer win the pending → analyzing
// transition right after the drain loop has read the item, the narrow window
// between NextPending and Claim.
type claimStealingRegistry struct {
	*fakeRegistry
	stole bool
}

func (r *claimStealingRegistry) NextPending(ctx context.Context) (*models.QueueItem, error) {
	item, err := r.fakeRegistry.NextPending(ctx)
	if err != nil || item == nil {
		return item, err
	}
	if !r.stole {
		r.stole = true
		_, _ = r.fakeRegistry.Claim(ctx, item.ID, models.StatusPending, models.StatusAnalyzing)
	}
	return item, nil
}

func TestDrainSkipsItemClaimedByAnotherWriter(t *testing.T) {
	h := newHarness(false)
	items := h.enqueue(t, models.ClassificationHints{}, "ring.jpg")

	stealing := &claimStealingRegistry{fakeRegistry: h.registry}
	svc := h.serviceWith(stealing, false)

	require.NoError(t, svc.Drain(context.Background()))

	assert.Empty(t, h.store.recordTitles(), "a stolen item must not be processed")

	item, err := h.registry.Get(context.Background(), items[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAnalyzing, item.Status, "the other writer's claim stands")
	assert.Empty(t, item.ErrorReason)
}

func TestTransformConflictsWithInFlightItem(t *testing.T) {
	h := newHarness(true)
	h.enricher.transformOut = &media.EncodedImage{MimeType: "image/jpeg", Data: jpegBytes(t, 80, 80)}
	items := h.enqueue(t, models.ClassificationHints{}, "ring.jpg")

	// The drain loop claimed the item first.
	claimed, err := h.registry.Claim(context.Background(), items[0].ID, models.StatusPending, models.StatusAnalyzing)
	require.NoError(t, err)
	require.NotNil(t, claimed)

	_, err = h.svc.Transform(context.Background(), items[0].ID, TransformCleanup, "")
	require.ErrorIs(t, err, ErrNotPending)

	item, err := h.registry.Get(context.Background(), items[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAnalyzing, item.Status)
	assert.Equal(t, items[0].StagingKey, item.StagingKey, "a refused transform touches nothing")
}

type failingSaveRegistry struct {
	*fakeRegistry
	saveErr error
}

func (r *failingSaveRegistry) Save(ctx context.Context, item *models.QueueItem) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	return r.fakeRegistry.Save(ctx, item)
}

func TestDrainAbortsWhenStatusPersistFails(t *testing.T) {
	h := newHarness(false)
	failing := &failingSaveRegistry{fakeRegistry: h.registry}
	svc := h.serviceWith(failing, false)

	h.enqueue(t, models.ClassificationHints{}, "ring.jpg")
	failing.saveErr = errors.New("read-only replica")

	err := svc.Drain(context.Background())
	require.Error(t, err, "a registry write failure must abort the drain, not spin")
	assert.Contains(t, err.Error(), "persist")
	assert.Empty(t, h.store.recordTitles())
}

func TestCleanupStagingUsesRetentionWindow(t *testing.T) {
	h := newHarness(false)

	before := time.Now().Add(-testServiceConfig(false).RetentionPeriod)
	require.NoError(t, h.svc.CleanupStaging(context.Background()))
	after := time.Now().Add(-testServiceConfig(false).RetentionPeriod)

	threshold := h.staging.cleanupThreshold
	assert.False(t, threshold.Before(before))
	assert.False(t, threshold.After(after))
}

func TestClearCompletedPreservesErrors(t *testing.T) {
	h := newHarness(false)
	h.store.failTitle = "bad ring"

	h.enqueue(t, models.ClassificationHints{}, "good-ring.jpg", "bad-ring.jpg")
	require.NoError(t, h.svc.Drain(context.Background()))

	count, err := h.svc.ClearCompleted(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	items, err := h.svc.Items(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, models.StatusError, items[0].Status)
	assert.Equal(t, 1, h.staging.count(), "only the errored item's bytes remain staged")
}

func TestRemove(t *testing.T) {
	h := newHarness(false)
	items := h.enqueue(t, models.ClassificationHints{}, "ring.jpg")

	require.NoError(t, h.svc.Remove(context.Background(), items[0].ID))
	assert.False(t, h.staging.has(items[0].StagingKey))

	left, err := h.svc.Items(context.Background())
	require.NoError(t, err)
	assert.Empty(t, left)

	// Absent is a no-op.
	require.NoError(t, h.svc.Remove(context.Background(), "no-such-id"))
}

func TestRemoveRefusesInFlightItem(t *testing.T) {
	h := newHarness(false)
	items := h.enqueue(t, models.ClassificationHints{}, "ring.jpg")

	item, err := h.registry.Get(context.Background(), items[0].ID)
	require.NoError(t, err)
	item.SetStatus(models.StatusAnalyzing)
	require.NoError(t, h.registry.Save(context.Background(), item))

	err = h.svc.Remove(context.Background(), items[0].ID)
	require.ErrorIs(t, err, ErrItemInFlight)
}

func TestStatusSnapshot(t *testing.T) {
	h := newHarness(false)
	h.store.failTitle = "bad ring"

	h.enqueue(t, models.ClassificationHints{}, "good-ring.jpg", "bad-ring.jpg")
	require.NoError(t, h.svc.Drain(context.Background()))
	h.enqueue(t, models.ClassificationHints{}, "waiting-ring.jpg")

	status, err := h.svc.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, status.Total)
	assert.False(t, status.Processing)
	assert.Equal(t, 1, status.Counts[string(models.StatusPending)])
	assert.Equal(t, 1, status.Counts[string(models.StatusComplete)])
	assert.Equal(t, 1, status.Counts[string(models.StatusError)])
}

func TestTransformReplacesPreviewAndRequeues(t *testing.T) {
	h := newHarness(true)
	h.enricher.transformOut = &media.EncodedImage{MimeType: "image/jpeg", Data: jpegBytes(t, 80, 80)}

	items := h.enqueue(t, models.ClassificationHints{}, "ring.jpg")
	oldKey := items[0].StagingKey
	kicksBefore := h.kicker.count()

	updated, err := h.svc.Transform(context.Background(), items[0].ID, TransformCleanup, "")
	require.NoError(t, err)

	assert.Equal(t, models.StatusPending, updated.Status)
	assert.NotEqual(t, oldKey, updated.StagingKey)
	assert.True(t, h.staging.has(updated.StagingKey))
	assert.False(t, h.staging.has(oldKey), "replaced preview is dropped")
	assert.Equal(t, kicksBefore+1, h.kicker.count(), "transform re-wakes the drain loop")
}

func TestTransformFailureKeepsPreview(t *testing.T) {
	h := newHarness(true)
	h.enricher.transformErr = &enrich.TransportError{Op: "image transform", Err: errors.New("timeout")}

	items := h.enqueue(t, models.ClassificationHints{}, "ring.jpg")
	oldKey := items[0].StagingKey

	updated, err := h.svc.Transform(context.Background(), items[0].ID, TransformEnhance, "")
	require.Error(t, err)

	assert.Equal(t, models.StatusError, updated.Status)
	assert.Contains(t, updated.ErrorReason, "enhance failed")
	assert.True(t, h.staging.has(oldKey), "staged bytes untouched on failure")
	assert.Equal(t, oldKey, updated.StagingKey)
}

func TestTransformGuards(t *testing.T) {
	h := newHarness(true)
	h.enricher.transformOut = &media.EncodedImage{MimeType: "image/jpeg", Data: jpegBytes(t, 80, 80)}

	_, err := h.svc.Transform(context.Background(), "missing", TransformCleanup, "")
	require.ErrorIs(t, err, ErrItemNotFound)

	items := h.enqueue(t, models.ClassificationHints{}, "ring.jpg")
	item, err := h.registry.Get(context.Background(), items[0].ID)
	require.NoError(t, err)
	item.SetStatus(models.StatusComplete)
	require.NoError(t, h.registry.Save(context.Background(), item))

	_, err = h.svc.Transform(context.Background(), items[0].ID, TransformCleanup, "")
	require.ErrorIs(t, err, ErrNotPending)
}

func TestTransformBytes(t *testing.T) {
	h := newHarness(true)
	h.enricher.transformOut = &media.EncodedImage{MimeType: "image/jpeg", Data: []byte("edited")}

	out, err := h.svc.TransformBytes(context.Background(), jpegBytes(t, 80, 80), TransformCleanup, "")
	require.NoError(t, err)
	assert.Equal(t, []byte("edited"), out.Data)

	_, err = h.svc.TransformBytes(context.Background(), []byte("not an image"), TransformCleanup, "")
	require.ErrorIs(t, err, media.ErrDecode)
}
