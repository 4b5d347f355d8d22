package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"newsroom-core/internal/domain/entity"
)

// FeedConfig describes one configured RSS/Atom source (spec.md §4.3). The
// ~100-feed list is operator data, not code, so it is loaded from YAML
// rather than hardcoded.
type FeedConfig struct {
	Source     string             `yaml:"source"`
	SourceTier entity.SourceTier  `yaml:"source_tier"`
	Category   entity.Category    `yaml:"category"`
	URL        string             `yaml:"url"`
}

// feedsFile is the top-level shape of the feed list YAML document.
type feedsFile struct {
	Feeds []FeedConfig `yaml:"feeds"`
}

// LoadFeedConfig loads and validates the static feed list from path.
// The path parameter is expected to come from a trusted source
// (command-line argument or hardcoded default).
func LoadFeedConfig(path string) ([]FeedConfig, error) {
	// #nosec G304 -- path is provided by trusted source (CLI arg or config), not user input
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read feed config file: %w", err)
	}

	var doc feedsFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse feed config: %w", err)
	}

	if err := validateFeedConfig(doc.Feeds); err != nil {
		return nil, fmt.Errorf("feed config validation failed: %w", err)
	}

	return doc.Feeds, nil
}

// validateFeedConfig rejects a feed list with duplicate sources, missing
// required fields, or categories outside the closed set (spec.md §3) --
// mistakes here would otherwise surface only at poll time, feed by feed.
func validateFeedConfig(feeds []FeedConfig) error {
	if len(feeds) == 0 {
		return fmt.Errorf("feed list is empty")
	}

	seen := make(map[string]bool, len(feeds))
	for i, f := range feeds {
		if f.Source == "" {
			return fmt.Errorf("feed[%d]: source is required", i)
		}
		if seen[f.Source] {
			return fmt.Errorf("feed[%d]: duplicate source %q", i, f.Source)
		}
		seen[f.Source] = true

		if f.URL == "" {
			return fmt.Errorf("feed %q: url is required", f.Source)
		}
		if err := entity.ValidateURL(f.URL); err != nil {
			return fmt.Errorf("feed %q: %w", f.Source, err)
		}
		if !entity.ValidCategories[f.Category] {
			return fmt.Errorf("feed %q: category %q is not in the closed set", f.Source, f.Category)
		}
		if f.SourceTier < entity.SourceTierMajor || f.SourceTier > entity.SourceTierNiche {
			return fmt.Errorf("feed %q: source_tier %d out of range", f.Source, f.SourceTier)
		}
	}

	return nil
}
