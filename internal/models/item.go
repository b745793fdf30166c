package models

import (
	"time"
)

// Status 队列项生命周期状态
type Status string

const (
	StatusPending   Status = "pending"
	StatusAnalyzing Status = "analyzing"
	StatusSaving    Status = "saving"
	StatusComplete  Status = "complete"
	StatusError     Status = "error"
)

var allStatuses = map[Status]struct{}{
	StatusPending:   {},
	StatusAnalyzing: {},
	StatusSaving:    {},
	StatusComplete:  {},
	StatusError:     {},
}

// ParseStatus converts a raw string into a known Status.
func ParseStatus(value string) (Status, bool) {
	s := Status(value)
	_, ok := allStatuses[s]
	return s, ok
}

// IsTerminal reports whether the pipeline will never advance this status again.
func (s Status) IsTerminal() bool {
	return s == StatusComplete || s == StatusError
}

// IsInFlight reports whether the status reflects an in-progress pipeline step.
func (s Status) IsInFlight() bool {
	return s == StatusAnalyzing || s == StatusSaving
}

// ClassificationHints 入队时调用方提供的分类提示
// Hints always win over AI output; AI may only fill fields left blank here.
type ClassificationHints struct {
	Supplier    string `json:"supplier,omitempty"`
	Category    string `json:"category,omitempty"`
	Subcategory string `json:"subcategory,omitempty"`
	Device      string `json:"device,omitempty"`
}

// QueueItem 一个媒体入库工作单元
type QueueItem struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`

	// StagingKey addresses the current working bytes in staging storage.
	// Interactive cleanup/enhancement replaces it; the drain loop reads it.
	StagingKey string `json:"stagingKey"`
	MimeType   string `json:"mimeType"`
	SizeBytes  int64  `json:"sizeBytes"`

	Hints ClassificationHints `json:"hints"`

	Status Status `json:"status"`
	// ErrorReason is meaningful only when Status is StatusError.
	ErrorReason string `json:"errorReason,omitempty"`

	// Enriched fields, populated during processing.
	Title       string   `json:"title,omitempty"`
	Category    string   `json:"category,omitempty"`
	Subcategory string   `json:"subcategory,omitempty"`
	WeightGrams float64  `json:"weightGrams,omitempty"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`

	// Stored asset references, set once persistence succeeds.
	PrimaryURL   string `json:"primaryUrl,omitempty"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SetError moves the item to the error status with a human-readable reason.
func (i *QueueItem) SetError(reason string) {
	i.Status = StatusError
	i.ErrorReason = reason
	i.UpdatedAt = time.Now()
}

// SetStatus advances the item and clears any stale error reason.
func (i *QueueItem) SetStatus(status Status) {
	i.Status = status
	i.ErrorReason = ""
	i.UpdatedAt = time.Now()
}
