package models

import (
	"time"
)

// ImageRef 一对已存储的图片地址
type ImageRef struct {
	PrimaryURL   string `json:"primaryUrl"`
	ThumbnailURL string `json:"thumbnailUrl"`
}

// CatalogRecord 管道的最终产物，由远端商品库持久化
type CatalogRecord struct {
	Title       string   `json:"title"`
	Category    string   `json:"category"`
	Subcategory string   `json:"subcategory,omitempty"`
	WeightGrams float64  `json:"weightGrams"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`

	Images   []ImageRef `json:"images"`
	Supplier string     `json:"supplier,omitempty"`

	Contributor string    `json:"contributor"`
	CreatedAt   time.Time `json:"createdAt"`
	CaptureDate time.Time `json:"captureDate"`

	// Metadata carries device info, AI hints and operator overrides verbatim.
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}
