package config

import (
	"sync"
	"time"
)

var (
	intakeOnce   sync.Once
	intakeConfig *IntakeConfig
)

// IntakeConfig 入库管道调优参数
type IntakeConfig struct {
	// MaxImageWidth caps the working image; larger sources are scaled down,
	// smaller ones are never upscaled.
	MaxImageWidth int
	// JPEGQuality in (0,100].
	JPEGQuality int
	// ThumbnailWidth requested from the catalog store on upload.
	ThumbnailWidth int

	DefaultCategory    string
	DefaultDescription string

	StorageType string

	// RetentionPeriod bounds how long staged objects may outlive their queue
	// item before the sweep reclaims them.
	RetentionPeriod time.Duration
}

func GetIntakeConfig() *IntakeConfig {
	intakeOnce.Do(func() {
		loadEnv()

		intakeConfig = &IntakeConfig{
			MaxImageWidth:      getEnvInt("INTAKE_MAX_IMAGE_WIDTH", 1600),
			JPEGQuality:        getEnvInt("INTAKE_JPEG_QUALITY", 85),
			ThumbnailWidth:     getEnvInt("INTAKE_THUMBNAIL_WIDTH", 300),
			DefaultCategory:    getEnv("INTAKE_DEFAULT_CATEGORY", "Other"),
			DefaultDescription: getEnv("INTAKE_DEFAULT_DESCRIPTION", "No description available"),
			StorageType:        getEnv("INTAKE_STORAGE_TYPE", "minio"),
			RetentionPeriod:    time.Duration(getEnvInt("INTAKE_RETENTION_HOURS", 24)) * time.Hour,
		}
	})
	return intakeConfig
}
