package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/gemcove/catalog-intake/pkg/logger"
	"github.com/gemcove/catalog-intake/pkg/storage/minio"
	"github.com/gemcove/catalog-intake/pkg/storage/s3"
)

// StorageType 暂存后端类型
type StorageType string

const (
	StorageTypeS3    StorageType = "s3"
	StorageTypeMinio StorageType = "minio"
)

// Storage 入库暂存区：原始字节与工作字节在入队与处理之间的落脚点
type Storage interface {
	// Store writes an object under key and returns the key.
	Store(ctx context.Context, reader io.Reader, key, contentType string) (string, error)
	// Get opens an object for reading.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes an object.
	Delete(ctx context.Context, key string) error
	// CleanupBefore removes objects last modified before threshold. Used to
	// sweep staged bytes orphaned by removed queue items.
	CleanupBefore(ctx context.Context, threshold time.Time) error
}

// NewStorage 创建暂存实例的工厂方法
func NewStorage(storageType StorageType, logger logger.Logger) (Storage, error) {
	switch storageType {
	case StorageTypeS3:
		return s3.GetClient(logger)
	case StorageTypeMinio:
		return minio.GetClient(logger)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storageType)
	}
}
