package config

import (
	"os"
	"sync"
	"time"
)

var (
	enrichOnce   sync.Once
	enrichConfig *EnrichConfig
)

// EnrichConfig AI 能力边界配置
// Provider selects the backend: "ollama" (local vision endpoint) or "gemini".
type EnrichConfig struct {
	Enabled     bool
	Provider    string
	Endpoint    string
	Model       string
	EditModel   string
	APIKey      string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

func GetEnrichConfig() *EnrichConfig {
	enrichOnce.Do(func() {
		loadEnv()

		enrichConfig = &EnrichConfig{
			Enabled:     getEnvBool("ENRICH_ENABLED", true),
			Provider:    getEnv("ENRICH_PROVIDER", "ollama"),
			Endpoint:    getEnv("ENRICH_ENDPOINT", "http://localhost:11434"),
			Model:       getEnv("ENRICH_MODEL", "llama3.2-vision"),
			EditModel:   getEnv("ENRICH_EDIT_MODEL", "gemini-2.0-flash-exp"),
			APIKey:      os.Getenv("GEMINI_API_KEY"),
			MaxTokens:   getEnvInt("ENRICH_MAX_TOKENS", 2048),
			Temperature: getEnvFloat("ENRICH_TEMPERATURE", 0.2),
			Timeout:     time.Duration(getEnvInt("ENRICH_TIMEOUT_SECONDS", 120)) * time.Second,
		}
	})
	return enrichConfig
}
