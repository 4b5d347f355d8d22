package entity

import "time"

// SummaryVersion is the most recent AI-synthesised summary and headline
// candidate for a cluster. It is replaced as a whole on regeneration; no
// history beyond the current version number is retained.
type SummaryVersion struct {
	Version          int
	Text             string
	GeneratedAt      time.Time
	Model            string
	WordCount        int
	PromptTokens     int
	CompletionTokens int
	CachedTokens     int
	CostUSD          float64
	BatchProcessed   bool
	GenerationTimeMS int64
}

// Validate checks the SummaryVersion invariants from spec.md §3: version
// starts at 1 and increases strictly, text is non-empty when present, and
// model identifies the generator.
func (s *SummaryVersion) Validate() error {
	if s.Version < 1 {
		return &ValidationError{Field: "version", Message: "version must be >= 1"}
	}
	if s.Text == "" {
		return &ValidationError{Field: "text", Message: "text must not be empty"}
	}
	if s.Model == "" {
		return &ValidationError{Field: "model", Message: "model is required"}
	}
	return nil
}

// Cluster is a story composed of one or more articles believed to describe
// the same real-world event. source_articles is an ordered, append-only
// (in practice) sequence of article IDs; see entity.go's AddSource and the
// reference-aliasing note in spec.md §9.
type Cluster struct {
	ID                string
	Category          Category
	Title             string
	Summary           *SummaryVersion
	SourceArticles    []string
	Status            Status
	VerificationLevel int
	FirstSeen         time.Time
	LastUpdated       time.Time
	UpdateCount       int
	Entities          []EntityMention
	Fingerprint       string
}

// Validate checks the Cluster invariants from spec.md §3: source_articles
// non-empty, verification_level consistent with unique-source count, and
// last_updated never precedes first_seen.
func (c *Cluster) Validate() error {
	if c.ID == "" {
		return &ValidationError{Field: "id", Message: "cluster id is required"}
	}
	if len(c.SourceArticles) == 0 {
		return &ValidationError{Field: "source_articles", Message: "cluster must reference at least one article"}
	}
	if !ValidCategories[c.Category] {
		return &ValidationError{Field: "category", Message: "category is not in the closed set"}
	}
	if c.LastUpdated.Before(c.FirstSeen) {
		return &ValidationError{Field: "last_updated", Message: "last_updated must not precede first_seen"}
	}
	if want := VerificationLevel(c.UniqueSourceCount(nil)); c.VerificationLevel != want {
		return &ValidationError{Field: "verification_level", Message: "verification_level is not a function of unique source count"}
	}
	return nil
}

// HasArticle reports whether articleID is already a member, making cluster
// membership checks idempotent against change-feed redelivery (spec.md §4.4
// step 5, §8 round-trip law).
func (c *Cluster) HasArticle(articleID string) bool {
	for _, id := range c.SourceArticles {
		if id == articleID {
			return true
		}
	}
	return false
}

// UniqueSourceCount counts distinct source tokens across the cluster's
// member articles. sourceOf maps an article ID to its source token; when
// nil, each article ID is treated as its own source (used only for
// self-consistency checks where membership alone is available).
func (c *Cluster) UniqueSourceCount(sourceOf map[string]string) int {
	seen := make(map[string]struct{}, len(c.SourceArticles))
	for _, id := range c.SourceArticles {
		key := id
		if sourceOf != nil {
			if s, ok := sourceOf[id]; ok {
				key = s
			}
		}
		seen[key] = struct{}{}
	}
	return len(seen)
}
