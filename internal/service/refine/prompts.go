package refine

import (
	"embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed config/refine.yaml
var configFiles embed.FS

// Prompts holds the refinement prompt and the default model per provider.
type Prompts struct {
	Models       map[string]string `yaml:"models"`
	Instructions string            `yaml:"instructions"`
	Template     string            `yaml:"template"`
}

// LoadPrompts reads the embedded prompt configuration.
func LoadPrompts() (*Prompts, error) {
	data, err := configFiles.ReadFile("config/refine.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to read refine.yaml: %w", err)
	}
	return ParsePrompts(data)
}

// ParsePrompts parses a prompt configuration document.
func ParsePrompts(data []byte) (*Prompts, error) {
	var p Prompts
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal prompts: %w", err)
	}
	if strings.TrimSpace(p.Instructions) == "" {
		return nil, fmt.Errorf("prompts: instructions are empty")
	}
	if !strings.Contains(p.Template, "{{text}}") {
		return nil, fmt.Errorf("prompts: template has no {{text}} placeholder")
	}
	return &p, nil
}

// Model returns the configured default model for a provider.
func (p *Prompts) Model(provider string) (string, error) {
	model, ok := p.Models[provider]
	if !ok || model == "" {
		return "", fmt.Errorf("no default model for provider %s", provider)
	}
	return model, nil
}

// Render builds the user message for text.
func (p *Prompts) Render(text string) string {
	return strings.TrimSpace(p.Instructions) + "\n\n" + strings.ReplaceAll(p.Template, "{{text}}", text)
}
