package enrich

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gemcove/catalog-intake/config"
	"github.com/gemcove/catalog-intake/internal/media"
)

// OllamaResponse 定义 /api/generate 响应结构
type OllamaResponse struct {
	Response      string `json:"response"`
	Model         string `json:"model"`
	Done          bool   `json:"done"`
	TotalDuration int64  `json:"total_duration,omitempty"`
	EvalCount     int    `json:"eval_count,omitempty"`
	Error         string `json:"error,omitempty"`
}

// OllamaEditResponse 定义 /api/edits 响应结构
type OllamaEditResponse struct {
	Image    string `json:"image"`
	MimeType string `json:"mimeType,omitempty"`
	Error    string `json:"error,omitempty"`
}

// OllamaClient 本地视觉模型端点适配器
type OllamaClient struct {
	endpoint    string
	model       string
	editModel   string
	maxTokens   int
	temperature float64
	httpClient  *http.Client
}

func NewOllamaClient(cfg *config.EnrichConfig) *OllamaClient {
	editModel := cfg.EditModel
	if editModel == "" {
		editModel = cfg.Model
	}
	return &OllamaClient{
		endpoint:    cfg.Endpoint,
		model:       cfg.Model,
		editModel:   editModel,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// AnalyzeImage implements Provider.AnalyzeImage against /api/generate.
func (c *OllamaClient) AnalyzeImage(ctx context.Context, img *media.EncodedImage, prompt string) (string, error) {
	reqBody := map[string]interface{}{
		"model":  c.model,
		"prompt": prompt,
		"images": []string{base64.StdEncoding.EncodeToString(img.Data)},
		"stream": false,
		"options": map[string]interface{}{
			"num_predict": c.maxTokens,
			"temperature": c.temperature,
		},
	}

	var result OllamaResponse
	if err := c.post(ctx, "/api/generate", reqBody, &result); err != nil {
		return "", &TransportError{Op: "metadata extraction", Err: err}
	}

	if result.Error != "" {
		return "", &TransportError{Op: "metadata extraction", Err: fmt.Errorf("ollama error: %s", result.Error)}
	}

	return result.Response, nil
}

// TransformImage implements Provider.TransformImage against /api/edits.
func (c *OllamaClient) TransformImage(ctx context.Context, img *media.EncodedImage, prompt string) (*media.EncodedImage, error) {
	reqBody := map[string]interface{}{
		"model":    c.editModel,
		"prompt":   prompt,
		"image":    base64.StdEncoding.EncodeToString(img.Data),
		"mimeType": img.MimeType,
	}

	var result OllamaEditResponse
	if err := c.post(ctx, "/api/edits", reqBody, &result); err != nil {
		return nil, &TransportError{Op: "image transform", Err: err}
	}

	if result.Error != "" {
		return nil, &TransportError{Op: "image transform", Err: fmt.Errorf("ollama error: %s", result.Error)}
	}

	data, err := base64.StdEncoding.DecodeString(result.Image)
	if err != nil || len(data) == 0 {
		return nil, &TransportError{Op: "image transform", Err: fmt.Errorf("unusable image payload: %v", err)}
	}

	mimeType := result.MimeType
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	return &media.EncodedImage{
		MimeType: mimeType,
		Data:     data,
	}, nil
}

func (c *OllamaClient) post(ctx context.Context, path string, reqBody, out interface{}) error {
	reqData, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.endpoint+path, bytes.NewReader(reqData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

func (c *OllamaClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
