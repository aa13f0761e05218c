package meme

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalogYAML []byte

// BaseMeme is one template the workflow can caption.
type BaseMeme struct {
	ID         string   `yaml:"id" json:"id"`
	Name       string   `yaml:"name" json:"name"`
	Default    bool     `yaml:"default" json:"-"`
	Categories []string `yaml:"categories" json:"categories"`
	Keywords   []string `yaml:"keywords" json:"keywords"`
	TopHint    string   `yaml:"top_hint" json:"topHint"`
	BottomHint string   `yaml:"bottom_hint" json:"bottomHint"`
	Background string   `yaml:"background" json:"background"`
	TextColor  string   `yaml:"text_color" json:"textColor"`
}

// Catalog is an ordered list of base memes.
type Catalog struct {
	Memes []BaseMeme `yaml:"memes"`
}

// ParseCatalog decodes a YAML catalog.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse meme catalog: %w", err)
	}

	if len(c.Memes) == 0 {
		return nil, fmt.Errorf("parse meme catalog: no memes")
	}

	seen := make(map[string]bool, len(c.Memes))
	for _, m := range c.Memes {
		if m.ID == "" || m.Name == "" {
			return nil, fmt.Errorf("parse meme catalog: entry %+v needs id and name", m)
		}

		if seen[m.ID] {
			return nil, fmt.Errorf("parse meme catalog: duplicate id %q", m.ID)
		}

		seen[m.ID] = true
	}

	return &c, nil
}

// DefaultCatalog returns the built-in catalog.
func DefaultCatalog() *Catalog {
	c, err := ParseCatalog(defaultCatalogYAML)
	if err != nil {
		panic(err) // embedded file is validated by tests
	}

	return c
}

// Match picks the base meme scoring highest against the frustrations:
// one point per keyword found in the text, two per matching category. Ties
// keep catalog order; without any match the default entry is used.
func (c *Catalog) Match(f Frustrations) BaseMeme {
	text := strings.ToLower(f.Text())
	words := make(map[string]bool)

	for _, w := range strings.FieldsFunc(text, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	}) {
		words[w] = true
	}

	for _, k := range f.Keywords {
		words[strings.ToLower(k)] = true
	}

	categories := make(map[string]bool)
	for _, item := range f.Items {
		categories[strings.ToLower(item.Category)] = true
	}

	best, bestScore := -1, 0

	for i, m := range c.Memes {
		score := 0

		for _, k := range m.Keywords {
			if words[k] {
				score++
			}
		}

		for _, cat := range m.Categories {
			if categories[cat] {
				score += 2
			}
		}

		if score > bestScore {
			best, bestScore = i, score
		}
	}

	if best >= 0 {
		return c.Memes[best]
	}

	for _, m := range c.Memes {
		if m.Default {
			return m
		}
	}

	return c.Memes[0]
}
