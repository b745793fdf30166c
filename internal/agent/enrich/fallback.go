package enrich

import (
	"path/filepath"
	"strings"

	"github.com/gemcove/catalog-intake/internal/models"
)

// Defaults 所有回退路径都失败时使用的兜底值
type Defaults struct {
	Category    string
	Description string
}

// Resolve merges AI output, caller hints and defaults into a fully populated
// record. Precedence for category/subcategory is: caller hints, then AI, then
// defaults; AI may only fill a field the caller left blank. A nil ai record
// behaves like an empty one (enrichment disabled or failed).
func Resolve(ai *PartialRecord, filename string, hints models.ClassificationHints, defaults Defaults) *PartialRecord {
	if ai == nil {
		ai = &PartialRecord{}
	}

	resolved := &PartialRecord{
		Title:       ai.Title,
		Category:    hints.Category,
		Subcategory: hints.Subcategory,
		WeightGrams: ai.WeightGrams,
		Description: ai.Description,
		Tags:        ai.Tags,
	}

	if resolved.Title == "" {
		resolved.Title = TitleFromFilename(filename)
	}
	if resolved.Category == "" {
		resolved.Category = ai.Category
	}
	if resolved.Category == "" {
		resolved.Category = defaults.Category
	}
	if resolved.Subcategory == "" {
		resolved.Subcategory = ai.Subcategory
	}
	if resolved.Description == "" {
		resolved.Description = defaults.Description
	}
	if resolved.Tags == nil {
		resolved.Tags = []string{}
	}

	return resolved
}

// TitleFromFilename strips the extension and turns separators into spaces.
// "art-deco_emerald.ring.jpg" becomes "art deco emerald ring".
func TitleFromFilename(name string) string {
	base := filepath.Base(name)
	base = strings.TrimSuffix(base, filepath.Ext(base))

	base = strings.Map(func(r rune) rune {
		switch r {
		case '-', '_', '.':
			return ' '
		}
		return r
	}, base)

	return strings.Join(strings.Fields(base), " ")
}
