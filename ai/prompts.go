package ai

import (
	"embed"
	"fmt"
	"io/fs"
	"log"
	"strings"
)

//go:embed prompts/*.txt
var embeddedPrompts embed.FS

// PromptManager loads prompt templates by name
type PromptManager struct {
	fsys fs.FS
}

// NewPromptManager creates a prompt manager over the embedded templates
func NewPromptManager() *PromptManager {
	sub, err := fs.Sub(embeddedPrompts, "prompts")
	if err != nil {
		log.Fatalf("[PromptManager] embedded prompts missing: %v", err)
	}
	return &PromptManager{fsys: sub}
}

// LoadPrompt loads a prompt template by name
func (pm *PromptManager) LoadPrompt(name string) (string, error) {
	content, err := fs.ReadFile(pm.fsys, name+".txt")
	if err != nil {
		return "", fmt.Errorf("prompt template not found: %s", name)
	}
	return string(content), nil
}

// RenderPrompt replaces {PLACEHOLDER} with values
func (pm *PromptManager) RenderPrompt(name string, replacements map[string]string) (string, error) {
	template, err := pm.LoadPrompt(name)
	if err != nil {
		return "", err
	}

	result := template
	for placeholder, value := range replacements {
		result = strings.ReplaceAll(result, "{"+placeholder+"}", value)
	}
	return result, nil
}
