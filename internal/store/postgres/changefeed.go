package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"newsroom-core/internal/domain/entity"
	"newsroom-core/internal/store"
)

// SubscribeChangeFeed polls container for rows more recent than the
// cursor persisted in leases under leaseName, delivers them to handler,
// and only advances the cursor once handler returns nil — so a restart
// always resumes from the last committed position and a handler error
// leaves the same batch available for redelivery (spec.md §4.1, §5).
func (s *Store) SubscribeChangeFeed(ctx context.Context, container, leaseName string, pollInterval time.Duration, handler store.ChangeFeedHandler) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.pollOnce(ctx, container, leaseName, handler); err != nil {
				return err
			}
		}
	}
}

func (s *Store) pollOnce(ctx context.Context, container, leaseName string, handler store.ChangeFeedHandler) error {
	cursor, lastID, err := s.loadLease(ctx, container, leaseName)
	if err != nil {
		return fmt.Errorf("SubscribeChangeFeed: load lease: %w", err)
	}

	batch, newCursor, newLastID, err := s.fetchChanges(ctx, container, cursor, lastID)
	if err != nil {
		return fmt.Errorf("SubscribeChangeFeed: fetch changes: %w", err)
	}
	if len(batch) == 0 {
		return nil
	}

	if err := handler(ctx, batch); err != nil {
		return nil // leave the cursor untouched; the same batch redelivers next tick
	}

	return s.saveLease(ctx, container, leaseName, newCursor, newLastID)
}

func (s *Store) loadLease(ctx context.Context, container, leaseName string) (time.Time, string, error) {
	const query = `SELECT cursor_at, last_id FROM leases WHERE container = $1 AND lease = $2`
	var cursor time.Time
	var lastID string
	err := s.db.QueryRowContext(ctx, query, container, leaseName).Scan(&cursor, &lastID)
	if err == sql.ErrNoRows {
		return time.Time{}, "", nil
	}
	if err != nil {
		return time.Time{}, "", err
	}
	return cursor, lastID, nil
}

func (s *Store) saveLease(ctx context.Context, container, leaseName string, cursor time.Time, lastID string) error {
	const query = `
INSERT INTO leases (container, lease, cursor_at, last_id) VALUES ($1, $2, $3, $4)
ON CONFLICT (container, lease) DO UPDATE SET cursor_at = EXCLUDED.cursor_at, last_id = EXCLUDED.last_id`
	_, err := s.db.ExecContext(ctx, query, container, leaseName, cursor, lastID)
	return err
}

// fetchChanges retrieves up to changeFeedBatchSize rows from container
// ordered after (cursor, lastID) by the container's own timestamp column
// and id, the tie-break that makes the cursor a stable total order.
func (s *Store) fetchChanges(ctx context.Context, container string, cursor time.Time, lastID string) ([]store.ChangeEvent, time.Time, string, error) {
	switch container {
	case "raw_articles":
		return s.fetchArticleChanges(ctx, cursor, lastID)
	case "story_clusters":
		return s.fetchClusterChanges(ctx, cursor, lastID)
	default:
		return nil, cursor, lastID, fmt.Errorf("unknown change-feed container %q", container)
	}
}

func (s *Store) fetchArticleChanges(ctx context.Context, cursor time.Time, lastID string) ([]store.ChangeEvent, time.Time, string, error) {
	const query = `
SELECT id, payload, updated_at FROM raw_articles
WHERE (updated_at, id) > ($1, $2)
ORDER BY updated_at, id
LIMIT ` + itoa(changeFeedBatchSize)

	rows, err := s.db.QueryContext(ctx, query, cursor, lastID)
	if err != nil {
		return nil, cursor, lastID, err
	}
	defer func() { _ = rows.Close() }()

	var batch []store.ChangeEvent
	newCursor, newLastID := cursor, lastID
	for rows.Next() {
		var id string
		var payload []byte
		var updatedAt time.Time
		if err := rows.Scan(&id, &payload, &updatedAt); err != nil {
			return nil, cursor, lastID, err
		}
		var a entity.Article
		if err := json.Unmarshal(payload, &a); err != nil {
			return nil, cursor, lastID, err
		}
		batch = append(batch, store.ChangeEvent{Container: "raw_articles", Article: &a})
		newCursor, newLastID = updatedAt, id
	}
	return batch, newCursor, newLastID, rows.Err()
}

func (s *Store) fetchClusterChanges(ctx context.Context, cursor time.Time, lastID string) ([]store.ChangeEvent, time.Time, string, error) {
	const query = `
SELECT id, payload, last_updated FROM story_clusters
WHERE (last_updated, id) > ($1, $2)
ORDER BY last_updated, id
LIMIT ` + itoa(changeFeedBatchSize)

	rows, err := s.db.QueryContext(ctx, query, cursor, lastID)
	if err != nil {
		return nil, cursor, lastID, err
	}
	defer func() { _ = rows.Close() }()

	var batch []store.ChangeEvent
	newCursor, newLastID := cursor, lastID
	for rows.Next() {
		var id string
		var payload []byte
		var lastUpdated time.Time
		if err := rows.Scan(&id, &payload, &lastUpdated); err != nil {
			return nil, cursor, lastID, err
		}
		var c entity.Cluster
		if err := json.Unmarshal(payload, &c); err != nil {
			return nil, cursor, lastID, err
		}
		batch = append(batch, store.ChangeEvent{Container: "story_clusters", Cluster: &c})
		newCursor, newLastID = lastUpdated, id
	}
	return batch, newCursor, newLastID, rows.Err()
}

func itoa(n int) string {
	return fmt.Sprintf("%d", n)
}
