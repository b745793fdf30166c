package enrich

import (
	"context"
	"errors"
	"fmt"

	"github.com/gemcove/catalog-intake/config"
	"github.com/gemcove/catalog-intake/internal/media"
	"github.com/gemcove/catalog-intake/pkg/logger"
)

// TransportError 网络/超时类失败，区别于“AI 正常返回但无可用内容”
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("enrichment %s failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransport reports whether err originates from the AI transport boundary.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// Provider 外部 AI 能力的后端实现
type Provider interface {
	// AnalyzeImage sends one still frame plus a text instruction and returns
	// the model's raw text response.
	AnalyzeImage(ctx context.Context, img *media.EncodedImage, prompt string) (string, error)
	// TransformImage sends one still frame plus a text instruction and returns
	// transformed image bytes of the same logical subject.
	TransformImage(ctx context.Context, img *media.EncodedImage, prompt string) (*media.EncodedImage, error)
	Close() error
}

// Client AI 边界适配器
type Client struct {
	provider Provider
	prompts  *config.Prompts
	logger   logger.Logger
}

func NewClient(provider Provider, prompts *config.Prompts, log logger.Logger) *Client {
	return &Client{
		provider: provider,
		prompts:  prompts,
		logger:   log,
	}
}

// GetClient builds a client for the configured provider.
func GetClient(log logger.Logger) (*Client, error) {
	cfg := config.GetEnrichConfig()

	var provider Provider
	switch cfg.Provider {
	case "gemini":
		provider = NewGeminiProvider(cfg)
	case "ollama", "":
		provider = NewOllamaClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported enrichment provider: %s", cfg.Provider)
	}

	return NewClient(provider, config.GetPrompts(), log), nil
}

// ExtractMetadata asks the model for a structured partial record. A response
// that contains no usable structure is not an error: the zero record comes
// back and the caller applies fallbacks.
func (c *Client) ExtractMetadata(ctx context.Context, img *media.EncodedImage) (*PartialRecord, error) {
	text, err := c.provider.AnalyzeImage(ctx, img, c.prompts.Metadata)
	if err != nil {
		return nil, err
	}

	record, ok := parsePartialRecord(text)
	if !ok {
		c.logger.Warn("Enrichment returned no usable structured data",
			logger.Int("responseLength", len(text)),
		)
		return &PartialRecord{}, nil
	}

	return record, nil
}

// RemoveWatermark asks the model to strip watermarks/overlaid text. An empty
// promptOverride uses the configured template.
func (c *Client) RemoveWatermark(ctx context.Context, img *media.EncodedImage, promptOverride string) (*media.EncodedImage, error) {
	prompt := promptOverride
	if prompt == "" {
		prompt = c.prompts.Cleanup
	}
	return c.provider.TransformImage(ctx, img, prompt)
}

// Enhance asks the model for a lighting/quality improvement pass.
func (c *Client) Enhance(ctx context.Context, img *media.EncodedImage, promptOverride string) (*media.EncodedImage, error) {
	prompt := promptOverride
	if prompt == "" {
		prompt = c.prompts.Enhance
	}
	return c.provider.TransformImage(ctx, img, prompt)
}

func (c *Client) Close() error {
	return c.provider.Close()
}
