package promptstyle

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

const PromptFlashcards = "flashcards"

type Parameters struct {
	Temperature *float64 `yaml:"temperature"`
	MaxTokens   *int     `yaml:"max_tokens"`
}

type ResponseFormat struct {
	Name   string         `yaml:"name"`
	Strict bool           `yaml:"strict"`
	Schema map[string]any `yaml:"schema"`
}

type Prompt struct {
	Name           string
	Mode           string          `yaml:"mode"`
	System         string          `yaml:"system"`
	User           string          `yaml:"user"`
	Parameters     Parameters      `yaml:"parameters"`
	ResponseFormat *ResponseFormat `yaml:"response_format"`
}

// SystemMessage is the system prompt with the style block applied.
func (p Prompt) SystemMessage() string {
	return ApplySystem(p.System, p.Mode)
}

// UserMessage fills {{key}} placeholders from vars.
func (p Prompt) UserMessage(vars map[string]string) string {
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{{"+k+"}}", v)
	}
	return strings.TrimSpace(strings.NewReplacer(pairs...).Replace(p.User))
}

type Catalog struct {
	prompts map[string]Prompt
}

// Load parses the embedded catalog.
func Load() (*Catalog, error) {
	return Parse(defaultCatalog)
}

func Parse(raw []byte) (*Catalog, error) {
	var doc struct {
		Prompts map[string]Prompt `yaml:"prompts"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse prompt catalog: %w", err)
	}
	if len(doc.Prompts) == 0 {
		return nil, fmt.Errorf("parse prompt catalog: no prompts")
	}
	c := &Catalog{prompts: make(map[string]Prompt, len(doc.Prompts))}
	for name, p := range doc.Prompts {
		if strings.TrimSpace(p.System) == "" || strings.TrimSpace(p.User) == "" {
			return nil, fmt.Errorf("prompt %q: system and user are required", name)
		}
		if p.ResponseFormat != nil && len(p.ResponseFormat.Schema) == 0 {
			return nil, fmt.Errorf("prompt %q: response_format requires a schema", name)
		}
		p.Name = name
		c.prompts[name] = p
	}
	return c, nil
}

func (c *Catalog) Get(name string) (Prompt, error) {
	p, ok := c.prompts[name]
	if !ok {
		return Prompt{}, fmt.Errorf("prompt %q not found", name)
	}
	return p, nil
}
