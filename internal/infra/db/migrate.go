package db

import "database/sql"

// MigrateUp creates the document-store schema: one JSONB payload column
// per container (spec.md §4.1), plus the indexed scalar columns the
// store's typed queries need. Every statement is idempotent so MigrateUp
// is safe to run on every worker/API start, matching the teacher's
// IF NOT EXISTS convention.
func MigrateUp(db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS raw_articles (
    id             TEXT PRIMARY KEY,
    source         TEXT NOT NULL,
    category       TEXT NOT NULL,
    fingerprint    TEXT NOT NULL,
    published_date DATE NOT NULL,
    updated_at     TIMESTAMPTZ NOT NULL,
    payload        JSONB NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_raw_articles_category ON raw_articles(category)`,
		`CREATE INDEX IF NOT EXISTS idx_raw_articles_fingerprint ON raw_articles(fingerprint)`,
		`CREATE INDEX IF NOT EXISTS idx_raw_articles_published_date ON raw_articles(published_date)`,
		`CREATE INDEX IF NOT EXISTS idx_raw_articles_updated_at ON raw_articles(updated_at)`,

		`CREATE TABLE IF NOT EXISTS story_clusters (
    id                 TEXT PRIMARY KEY,
    category           TEXT NOT NULL,
    status             TEXT NOT NULL,
    fingerprint        TEXT NOT NULL,
    last_updated       TIMESTAMPTZ NOT NULL,
    version            BIGINT NOT NULL DEFAULT 1,
    payload            JSONB NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_story_clusters_category ON story_clusters(category)`,
		`CREATE INDEX IF NOT EXISTS idx_story_clusters_status ON story_clusters(status)`,
		`CREATE INDEX IF NOT EXISTS idx_story_clusters_fingerprint ON story_clusters(category, fingerprint)`,
		`CREATE INDEX IF NOT EXISTS idx_story_clusters_last_updated ON story_clusters(last_updated DESC)`,

		`CREATE TABLE IF NOT EXISTS batch_tracking (
    batch_id TEXT PRIMARY KEY,
    status   TEXT NOT NULL,
    payload  JSONB NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_batch_tracking_status ON batch_tracking(status)`,

		`CREATE TABLE IF NOT EXISTS feed_poll_states (
    source  TEXT PRIMARY KEY,
    payload JSONB NOT NULL
)`,

		`CREATE TABLE IF NOT EXISTS user_profiles (
    id      TEXT PRIMARY KEY,
    payload JSONB NOT NULL
)`,

		`CREATE TABLE IF NOT EXISTS user_interactions (
    id         TEXT PRIMARY KEY,
    user_id    TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL,
    payload    JSONB NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_user_interactions_user_id ON user_interactions(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_user_interactions_created_at ON user_interactions(created_at)`,

		// Change-feed cursors: one row per (container, lease) pair, so
		// independent subscribers track independent positions over the
		// same container (spec.md §4.1).
		`CREATE TABLE IF NOT EXISTS leases (
    container TEXT NOT NULL,
    lease     TEXT NOT NULL,
    cursor_at TIMESTAMPTZ NOT NULL,
    last_id   TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (container, lease)
)`,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}

// MigrateDown drops every table MigrateUp creates, in dependency order.
// Use with caution: this deletes all data.
func MigrateDown(db *sql.DB) error {
	statements := []string{
		`DROP TABLE IF EXISTS leases`,
		`DROP TABLE IF EXISTS user_interactions`,
		`DROP TABLE IF EXISTS user_profiles`,
		`DROP TABLE IF EXISTS feed_poll_states`,
		`DROP TABLE IF EXISTS batch_tracking`,
		`DROP TABLE IF EXISTS story_clusters`,
		`DROP TABLE IF EXISTS raw_articles`,
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
