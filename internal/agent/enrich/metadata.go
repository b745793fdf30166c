package enrich

import (
	"encoding/json"
	"strings"
)

// PartialRecord AI 抽取出的部分目录字段，任何字段都可能为空
type PartialRecord struct {
	Title       string   `json:"title"`
	Category    string   `json:"category"`
	Subcategory string   `json:"subcategory"`
	WeightGrams float64  `json:"weightGrams"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// IsEmpty reports whether the record carries no usable field at all.
func (r *PartialRecord) IsEmpty() bool {
	return r.Title == "" && r.Category == "" && r.Subcategory == "" &&
		r.WeightGrams == 0 && r.Description == "" && len(r.Tags) == 0
}

// parsePartialRecord extracts the first JSON object from a model response.
// Models tend to wrap JSON in prose or code fences; anything before the first
// '{' and after the last '}' is discarded.
func parsePartialRecord(text string) (*PartialRecord, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, false
	}

	var record PartialRecord
	if err := json.Unmarshal([]byte(text[start:end+1]), &record); err != nil {
		return nil, false
	}

	if record.IsEmpty() {
		return nil, false
	}

	return &record, true
}
