package config

import (
	"os"
	"sync"
	"time"
)

var (
	catalogOnce   sync.Once
	catalogConfig *CatalogConfig
)

// CatalogConfig 远端商品库（外部协作方）配置
type CatalogConfig struct {
	BaseURL     string
	APIToken    string
	Contributor string
	Timeout     time.Duration
}

func GetCatalogConfig() *CatalogConfig {
	catalogOnce.Do(func() {
		loadEnv()

		catalogConfig = &CatalogConfig{
			BaseURL:     getEnv("CATALOG_BASE_URL", "http://localhost:9000"),
			APIToken:    os.Getenv("CATALOG_API_TOKEN"),
			Contributor: getEnv("CATALOG_CONTRIBUTOR", "intake-pipeline"),
			Timeout:     time.Duration(getEnvInt("CATALOG_TIMEOUT_SECONDS", 60)) * time.Second,
		}
	})
	return catalogConfig
}
