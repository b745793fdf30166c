package config

import (
	"log"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

var (
	promptsOnce sync.Once
	prompts     *Prompts
)

// Prompts AI 提示词模板，可用 YAML 文件覆盖默认值
type Prompts struct {
	Metadata string `yaml:"metadata"`
	Cleanup  string `yaml:"cleanup"`
	Enhance  string `yaml:"enhance"`
}

const defaultMetadataPrompt = `You are cataloging a piece of jewelry from a product photo.
Respond with a single JSON object and nothing else, using exactly these keys:
{"title": string, "category": string, "subcategory": string, "weightGrams": number, "description": string, "tags": [string]}
Use empty strings, 0 or [] for anything you cannot determine from the image.`

const defaultCleanupPrompt = `Remove any watermarks, stamps or overlaid text from this jewelry photo.
Keep the jewelry itself, its colors and the background untouched.`

const defaultEnhancePrompt = `Improve the lighting, sharpness and color balance of this jewelry photo.
Do not alter, add or remove any part of the jewelry.`

// GetPrompts loads prompt templates, applying overrides from the YAML file
// named by PROMPTS_FILE when present.
func GetPrompts() *Prompts {
	promptsOnce.Do(func() {
		loadEnv()

		prompts = &Prompts{
			Metadata: defaultMetadataPrompt,
			Cleanup:  defaultCleanupPrompt,
			Enhance:  defaultEnhancePrompt,
		}

		path := os.Getenv("PROMPTS_FILE")
		if path == "" {
			return
		}

		data, err := os.ReadFile(path)
		if err != nil {
			log.Printf("Warning: prompts file %s not readable, using defaults: %v", path, err)
			return
		}

		var overrides Prompts
		if err := yaml.Unmarshal(data, &overrides); err != nil {
			log.Printf("Warning: prompts file %s not valid YAML, using defaults: %v", path, err)
			return
		}

		if overrides.Metadata != "" {
			prompts.Metadata = overrides.Metadata
		}
		if overrides.Cleanup != "" {
			prompts.Cleanup = overrides.Cleanup
		}
		if overrides.Enhance != "" {
			prompts.Enhance = overrides.Enhance
		}
	})
	return prompts
}
