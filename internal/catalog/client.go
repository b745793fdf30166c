package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gemcove/catalog-intake/config"
	"github.com/gemcove/catalog-intake/internal/media"
	"github.com/gemcove/catalog-intake/internal/models"
	"github.com/gemcove/catalog-intake/pkg/logger"
)

// StoreError 远端商品库拒绝写入
type StoreError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *StoreError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("catalog %s rejected with status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("catalog %s failed: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// IsStoreError reports whether err came from the catalog store boundary.
func IsStoreError(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}

// UploadOptions 上传图片时传给远端的转换参数
type UploadOptions struct {
	TargetWidth    int
	ThumbnailWidth int
	Quality        int
	OutputFormat   string
}

// Client 远端商品库 REST 适配器
type Client struct {
	baseURL    string
	apiToken   string
	httpClient *http.Client
	logger     logger.Logger
}

func NewClient(cfg *config.CatalogConfig, log logger.Logger) *Client {
	return &Client{
		baseURL:  cfg.BaseURL,
		apiToken: cfg.APIToken,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: log,
	}
}

// UploadImage ships working image bytes to the store and returns the stored
// asset references.
func (c *Client) UploadImage(ctx context.Context, img *media.EncodedImage, opts UploadOptions) (*models.ImageRef, error) {
	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("image", "image.jpg")
	if err != nil {
		return nil, &StoreError{Op: "upload", Err: err}
	}
	if _, err := part.Write(img.Data); err != nil {
		return nil, &StoreError{Op: "upload", Err: err}
	}

	fields := map[string]string{
		"mimeType":       img.MimeType,
		"targetWidth":    strconv.Itoa(opts.TargetWidth),
		"thumbnailWidth": strconv.Itoa(opts.ThumbnailWidth),
		"quality":        strconv.Itoa(opts.Quality),
		"outputFormat":   opts.OutputFormat,
	}
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			return nil, &StoreError{Op: "upload", Err: err}
		}
	}
	if err := writer.Close(); err != nil {
		return nil, &StoreError{Op: "upload", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/assets", body)
	if err != nil {
		return nil, &StoreError{Op: "upload", Err: err}
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &StoreError{Op: "upload", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		data, _ := io.ReadAll(resp.Body)
		return nil, &StoreError{Op: "upload", StatusCode: resp.StatusCode, Err: fmt.Errorf("%s", string(data))}
	}

	var ref models.ImageRef
	if err := json.NewDecoder(resp.Body).Decode(&ref); err != nil {
		return nil, &StoreError{Op: "upload", Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	if ref.PrimaryURL == "" {
		return nil, &StoreError{Op: "upload", Err: fmt.Errorf("store returned no primary url")}
	}

	return &ref, nil
}

// CreateRecord commits a finished catalog record. Ownership passes to the
// store once this returns without error.
func (c *Client) CreateRecord(ctx context.Context, record *models.CatalogRecord) (*models.CatalogRecord, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return nil, &StoreError{Op: "create record", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/records", bytes.NewReader(data))
	if err != nil {
		return nil, &StoreError{Op: "create record", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &StoreError{Op: "create record", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return nil, &StoreError{Op: "create record", StatusCode: resp.StatusCode, Err: fmt.Errorf("%s", string(body))}
	}

	var created models.CatalogRecord
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return nil, &StoreError{Op: "create record", Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	return &created, nil
}

func (c *Client) authorize(req *http.Request) {
	if c.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
	}
}
