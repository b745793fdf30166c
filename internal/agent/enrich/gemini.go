package enrich

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/gemcove/catalog-intake/config"
	"github.com/gemcove/catalog-intake/internal/media"
)

// GeminiProvider Google Gemini 后端
type GeminiProvider struct {
	apiKey      string
	model       string
	editModel   string
	temperature float64
}

func NewGeminiProvider(cfg *config.EnrichConfig) *GeminiProvider {
	editModel := cfg.EditModel
	if editModel == "" {
		editModel = cfg.Model
	}
	return &GeminiProvider{
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		editModel:   editModel,
		temperature: cfg.Temperature,
	}
}

// AnalyzeImage implements Provider.AnalyzeImage.
func (g *GeminiProvider) AnalyzeImage(ctx context.Context, img *media.EncodedImage, prompt string) (string, error) {
	resp, err := g.generate(ctx, g.model, img, prompt)
	if err != nil {
		return "", &TransportError{Op: "metadata extraction", Err: err}
	}

	for _, part := range resp {
		if txt, ok := part.(genai.Text); ok {
			return string(txt), nil
		}
	}

	return "", nil
}

// TransformImage implements Provider.TransformImage. Image-capable Gemini
// models return the transformed frame as an inline blob part.
func (g *GeminiProvider) TransformImage(ctx context.Context, img *media.EncodedImage, prompt string) (*media.EncodedImage, error) {
	resp, err := g.generate(ctx, g.editModel, img, prompt)
	if err != nil {
		return nil, &TransportError{Op: "image transform", Err: err}
	}

	for _, part := range resp {
		if blob, ok := part.(genai.Blob); ok && len(blob.Data) > 0 {
			return &media.EncodedImage{
				MimeType: blob.MIMEType,
				Data:     blob.Data,
			}, nil
		}
	}

	return nil, &TransportError{Op: "image transform", Err: fmt.Errorf("no image part in gemini response")}
}

func (g *GeminiProvider) generate(ctx context.Context, model string, img *media.EncodedImage, prompt string) ([]genai.Part, error) {
	if g.apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable not set")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(g.apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	defer client.Close()

	m := client.GenerativeModel(model)
	m.SetTemperature(float32(g.temperature))

	format := strings.TrimPrefix(img.MimeType, "image/")
	resp, err := m.GenerateContent(ctx, genai.ImageData(format, img.Data), genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	if len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("no candidates returned from gemini")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return nil, fmt.Errorf("empty content returned from gemini")
	}

	return candidate.Content.Parts, nil
}

func (g *GeminiProvider) Close() error {
	return nil
}
