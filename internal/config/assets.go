package config

import (
	_ "embed"
	"fmt"
	"io/fs"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/bmatcuk/doublestar/v4"

	"github.com/spachava753/releasekit/internal/models"
)

//go:embed assets.toml
var defaultAssetRules string

// DefaultAssetRules returns the built-in rules: four tags sharing the
// fonts, markdown and PDF patterns, with palette files added to "ai".
func DefaultAssetRules() models.AssetRules {
	rules, err := ParseAssetRules(defaultAssetRules)
	if err != nil {
		panic(fmt.Sprintf("embedded asset rules: %v", err))
	}
	return rules
}

// LoadAssetRules loads and parses a rules file from the given filesystem.
func LoadAssetRules(fsys fs.FS, name string) (models.AssetRules, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return models.AssetRules{}, fmt.Errorf("reading %s: %w", name, err)
	}
	return ParseAssetRules(string(data))
}

// ParseAssetRules decodes and validates TOML asset rules.
func ParseAssetRules(data string) (models.AssetRules, error) {
	var rules models.AssetRules
	if _, err := toml.Decode(data, &rules); err != nil {
		return rules, fmt.Errorf("parsing asset rules: %w", err)
	}
	if err := ValidateAssetRules(rules); err != nil {
		return rules, err
	}
	return rules, nil
}

// ValidateAssetRules rejects empty or duplicate tags and malformed patterns.
func ValidateAssetRules(rules models.AssetRules) error {
	if len(rules.Groups) == 0 {
		return &models.Error{Type: models.ErrInvalidConfig, Op: "asset rules", Err: fmt.Errorf("no groups defined")}
	}

	seen := make(map[string]struct{}, len(rules.Groups))
	for i, g := range rules.Groups {
		tag := strings.TrimSpace(g.Tag)
		if tag == "" {
			return &models.Error{Type: models.ErrInvalidConfig, Op: "asset rules", Err: fmt.Errorf("group[%d]: empty tag", i)}
		}
		if strings.ContainsAny(tag, `/\*?[]{}`) {
			return &models.Error{Type: models.ErrInvalidConfig, Op: "asset rules", Err: fmt.Errorf("group[%d]: tag %q contains path or glob characters", i, tag)}
		}
		if _, ok := seen[tag]; ok {
			return &models.Error{Type: models.ErrInvalidConfig, Op: "asset rules", Err: fmt.Errorf("duplicate tag %q", tag)}
		}
		seen[tag] = struct{}{}

		for _, p := range g.Extra {
			if !doublestar.ValidatePattern(p) {
				return &models.Error{Type: models.ErrInvalidPattern, Op: "asset rules", Err: fmt.Errorf("group %q: bad pattern %q", tag, p)}
			}
		}
	}

	for _, p := range rules.Common {
		if !doublestar.ValidatePattern(p) {
			return &models.Error{Type: models.ErrInvalidPattern, Op: "asset rules", Err: fmt.Errorf("common: bad pattern %q", p)}
		}
	}

	return nil
}
