package config

import (
	"os"
	"sync"
)

var (
	minioOnce   sync.Once
	minioConfig *MinioConfig
)

type MinioConfig struct {
	AccessKey  string
	SecretKey  string
	Endpoint   string
	UseSSL     bool
	Region     string
	BucketName string
}

func GetMinioConfig() *MinioConfig {
	minioOnce.Do(func() {
		loadEnv()

		minioConfig = &MinioConfig{
			AccessKey:  os.Getenv("MINIO_ACCESS_KEY"),
			SecretKey:  os.Getenv("MINIO_SECRET_KEY"),
			Endpoint:   os.Getenv("MINIO_ENDPOINT"),
			UseSSL:     getEnvBool("MINIO_USE_SSL", false),
			Region:     os.Getenv("MINIO_REGION"),
			BucketName: getEnv("MINIO_BUCKET_NAME", "intake-staging"),
		}
	})
	return minioConfig
}
