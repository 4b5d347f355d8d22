// Package postgres implements store.Store against PostgreSQL, following
// the teacher's internal/infra/adapter/persistence/postgres split
// between a thin repo struct wrapping *sql.DB and SQL built inline as
// package-level const strings. The "document database" of spec.md is
// realized as one table per container with a JSONB payload column plus
// the indexed scalar columns each typed query needs (see
// internal/infra/db/migrate.go).
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"newsroom-core/internal/domain/entity"
	"newsroom-core/internal/store"
)

// changeFeedBatchSize bounds how many rows one SubscribeChangeFeed poll
// tick fetches, keeping the dispatch loop's memory bounded regardless of
// backlog size.
const changeFeedBatchSize = 200

// Store is the PostgreSQL-backed store.Store implementation.
type Store struct {
	db *sql.DB
}

// New wraps db as a store.Store. db is expected to already have
// db.MigrateUp applied.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

var _ store.Store = (*Store)(nil)

func (s *Store) UpsertArticle(ctx context.Context, a *entity.Article) (bool, error) {
	payload, err := json.Marshal(a)
	if err != nil {
		return false, fmt.Errorf("UpsertArticle: marshal: %w", err)
	}

	const query = `
INSERT INTO raw_articles (id, source, category, fingerprint, published_date, updated_at, payload)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO UPDATE SET
    source = EXCLUDED.source,
    category = EXCLUDED.category,
    fingerprint = EXCLUDED.fingerprint,
    updated_at = EXCLUDED.updated_at,
    payload = EXCLUDED.payload
RETURNING (xmax = 0) AS inserted`

	var inserted bool
	row := s.db.QueryRowContext(ctx, query, a.ID, a.Source, string(a.Category),
		a.Fingerprint, a.PublishedAt, a.UpdatedAt, payload)
	if err := row.Scan(&inserted); err != nil {
		return false, fmt.Errorf("UpsertArticle: %w", err)
	}
	return inserted, nil
}

func (s *Store) GetArticle(ctx context.Context, id string) (*entity.Article, error) {
	const query = `SELECT payload FROM raw_articles WHERE id = $1`
	var payload []byte
	err := s.db.QueryRowContext(ctx, query, id).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetArticle: %w", err)
	}
	var a entity.Article
	if err := json.Unmarshal(payload, &a); err != nil {
		return nil, fmt.Errorf("GetArticle: unmarshal: %w", err)
	}
	return &a, nil
}

func (s *Store) CreateCluster(ctx context.Context, c *entity.Cluster) (store.ETag, error) {
	payload, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("CreateCluster: marshal: %w", err)
	}

	const query = `
INSERT INTO story_clusters (id, category, status, fingerprint, last_updated, version, payload)
VALUES ($1, $2, $3, $4, $5, 1, $6)
ON CONFLICT (id) DO NOTHING`

	res, err := s.db.ExecContext(ctx, query, c.ID, string(c.Category), string(c.Status),
		c.Fingerprint, c.LastUpdated, payload)
	if err != nil {
		return "", fmt.Errorf("CreateCluster: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("CreateCluster: %w", err)
	}
	if n == 0 {
		return "", entity.ErrConflict
	}
	return etagOf(1), nil
}

func (s *Store) ReadCluster(ctx context.Context, id, category string) (*entity.Cluster, store.ETag, error) {
	const query = `SELECT payload, version FROM story_clusters WHERE id = $1 AND category = $2`
	var payload []byte
	var version int64
	err := s.db.QueryRowContext(ctx, query, id, category).Scan(&payload, &version)
	if err == sql.ErrNoRows {
		return nil, "", entity.ErrNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("ReadCluster: %w", err)
	}
	var c entity.Cluster
	if err := json.Unmarshal(payload, &c); err != nil {
		return nil, "", fmt.Errorf("ReadCluster: unmarshal: %w", err)
	}
	return &c, etagOf(version), nil
}

func (s *Store) ReplaceCluster(ctx context.Context, c *entity.Cluster, etag store.ETag) (store.ETag, error) {
	version, err := parseEtag(etag)
	if err != nil {
		return "", fmt.Errorf("ReplaceCluster: %w", err)
	}
	payload, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("ReplaceCluster: marshal: %w", err)
	}

	const query = `
UPDATE story_clusters
SET status = $1, fingerprint = $2, last_updated = $3, payload = $4, version = version + 1
WHERE id = $5 AND version = $6`

	res, err := s.db.ExecContext(ctx, query, string(c.Status), c.Fingerprint, c.LastUpdated,
		payload, c.ID, version)
	if err != nil {
		return "", fmt.Errorf("ReplaceCluster: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("ReplaceCluster: %w", err)
	}
	if n == 0 {
		return "", entity.ErrConflict
	}
	return etagOf(version + 1), nil
}

func (s *Store) QueryRecentClusters(ctx context.Context, category string, since time.Time, limit int) ([]*entity.Cluster, error) {
	query := `SELECT payload FROM story_clusters WHERE last_updated >= $1`
	args := []any{since}
	if category != "" {
		query += ` AND category = $2`
		args = append(args, category)
	}
	query += ` ORDER BY last_updated DESC LIMIT ` + strconv.Itoa(limitOrDefault(limit))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("QueryRecentClusters: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanClusters(rows)
}

func (s *Store) QueryByFingerprint(ctx context.Context, fp, category string, sinceHours int) ([]*entity.Cluster, error) {
	const query = `
SELECT payload FROM story_clusters
WHERE fingerprint = $1 AND category = $2 AND last_updated >= $3`
	cutoff := time.Now().Add(-time.Duration(sinceHours) * time.Hour)
	rows, err := s.db.QueryContext(ctx, query, fp, category, cutoff)
	if err != nil {
		return nil, fmt.Errorf("QueryByFingerprint: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanClusters(rows)
}

func (s *Store) QueryByStatus(ctx context.Context, status entity.Status, limit int) ([]*entity.Cluster, error) {
	query := `SELECT payload FROM story_clusters WHERE status = $1 ORDER BY last_updated DESC LIMIT ` + strconv.Itoa(limitOrDefault(limit))
	rows, err := s.db.QueryContext(ctx, query, string(status))
	if err != nil {
		return nil, fmt.Errorf("QueryByStatus: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanClusters(rows)
}

// QueryFeed lists clusters with status != MONITORING (spec.md §4.7's
// "feed" content obligation), newest-first, restricted to category when
// non-empty, offset-paginated.
func (s *Store) QueryFeed(ctx context.Context, category string, offset, limit int) ([]*entity.Cluster, error) {
	query := `SELECT payload FROM story_clusters WHERE status != $1`
	args := []any{string(entity.StatusMonitoring)}
	if category != "" {
		query += ` AND category = $2`
		args = append(args, category)
	}
	query += ` ORDER BY last_updated DESC LIMIT ` + strconv.Itoa(limitOrDefault(limit)) + ` OFFSET ` + strconv.Itoa(offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("QueryFeed: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanClusters(rows)
}

// SearchClusters does a simple case-insensitive title match over the
// JSONB payload's "title" field, newest-first. internal/pkg/search's
// keyword-escaping/AND-logic helpers are not available in this
// codebase (see DESIGN.md); a single ILIKE over the whole query string
// is used instead, matching the way the teacher's SearchWithFilters
// degrades when only one keyword is supplied.
func (s *Store) SearchClusters(ctx context.Context, q string, limit int) ([]*entity.Cluster, error) {
	const query = `
SELECT payload FROM story_clusters
WHERE payload->>'Title' ILIKE '%' || $1 || '%'
   OR payload->'Summary'->>'Text' ILIKE '%' || $1 || '%'
ORDER BY last_updated DESC LIMIT ` + `$2`
	rows, err := s.db.QueryContext(ctx, query, escapeILIKE(q), limitOrDefault(limit))
	if err != nil {
		return nil, fmt.Errorf("SearchClusters: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanClusters(rows)
}

// escapeILIKE escapes ILIKE wildcard metacharacters so a search query
// containing '%' or '_' is matched literally rather than as a pattern.
func escapeILIKE(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// GetClusterByID finds a cluster by ID alone, across categories. The
// read API's get/sources/interact endpoints address a cluster by ID
// only (spec.md §4.7), unlike the write path which always knows the
// category up front from the triggering article.
func (s *Store) GetClusterByID(ctx context.Context, id string) (*entity.Cluster, store.ETag, error) {
	const query = `SELECT payload, version FROM story_clusters WHERE id = $1`
	var payload []byte
	var version int64
	err := s.db.QueryRowContext(ctx, query, id).Scan(&payload, &version)
	if err == sql.ErrNoRows {
		return nil, "", entity.ErrNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("GetClusterByID: %w", err)
	}
	var c entity.Cluster
	if err := json.Unmarshal(payload, &c); err != nil {
		return nil, "", fmt.Errorf("GetClusterByID: unmarshal: %w", err)
	}
	return &c, etagOf(version), nil
}

func scanClusters(rows *sql.Rows) ([]*entity.Cluster, error) {
	var out []*entity.Cluster
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scanClusters: Scan: %w", err)
		}
		var c entity.Cluster
		if err := json.Unmarshal(payload, &c); err != nil {
			return nil, fmt.Errorf("scanClusters: unmarshal: %w", err)
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

func (s *Store) UpsertFeedState(ctx context.Context, st *entity.FeedPollState) error {
	payload, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("UpsertFeedState: marshal: %w", err)
	}
	const query = `
INSERT INTO feed_poll_states (source, payload) VALUES ($1, $2)
ON CONFLICT (source) DO UPDATE SET payload = EXCLUDED.payload`
	if _, err := s.db.ExecContext(ctx, query, st.Source, payload); err != nil {
		return fmt.Errorf("UpsertFeedState: %w", err)
	}
	return nil
}

func (s *Store) GetFeedState(ctx context.Context, source string) (*entity.FeedPollState, error) {
	const query = `SELECT payload FROM feed_poll_states WHERE source = $1`
	var payload []byte
	err := s.db.QueryRowContext(ctx, query, source).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetFeedState: %w", err)
	}
	var st entity.FeedPollState
	if err := json.Unmarshal(payload, &st); err != nil {
		return nil, fmt.Errorf("GetFeedState: unmarshal: %w", err)
	}
	return &st, nil
}

func (s *Store) ListFeedStates(ctx context.Context) ([]*entity.FeedPollState, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT payload FROM feed_poll_states`)
	if err != nil {
		return nil, fmt.Errorf("ListFeedStates: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*entity.FeedPollState
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("ListFeedStates: Scan: %w", err)
		}
		var st entity.FeedPollState
		if err := json.Unmarshal(payload, &st); err != nil {
			return nil, fmt.Errorf("ListFeedStates: unmarshal: %w", err)
		}
		out = append(out, &st)
	}
	return out, rows.Err()
}

func (s *Store) UpsertBatchJob(ctx context.Context, j *entity.BatchJob) error {
	payload, err := json.Marshal(j)
	if err != nil {
		return fmt.Errorf("UpsertBatchJob: marshal: %w", err)
	}
	const query = `
INSERT INTO batch_tracking (batch_id, status, payload) VALUES ($1, $2, $3)
ON CONFLICT (batch_id) DO UPDATE SET status = EXCLUDED.status, payload = EXCLUDED.payload`
	if _, err := s.db.ExecContext(ctx, query, j.BatchID, string(j.Status), payload); err != nil {
		return fmt.Errorf("UpsertBatchJob: %w", err)
	}
	return nil
}

func (s *Store) GetBatchJob(ctx context.Context, id string) (*entity.BatchJob, error) {
	const query = `SELECT payload FROM batch_tracking WHERE batch_id = $1`
	var payload []byte
	err := s.db.QueryRowContext(ctx, query, id).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetBatchJob: %w", err)
	}
	var j entity.BatchJob
	if err := json.Unmarshal(payload, &j); err != nil {
		return nil, fmt.Errorf("GetBatchJob: unmarshal: %w", err)
	}
	return &j, nil
}

func (s *Store) ListBatchJobsByStatus(ctx context.Context, status entity.BatchStatus) ([]*entity.BatchJob, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT payload FROM batch_tracking WHERE status = $1`, string(status))
	if err != nil {
		return nil, fmt.Errorf("ListBatchJobsByStatus: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*entity.BatchJob
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("ListBatchJobsByStatus: Scan: %w", err)
		}
		var j entity.BatchJob
		if err := json.Unmarshal(payload, &j); err != nil {
			return nil, fmt.Errorf("ListBatchJobsByStatus: unmarshal: %w", err)
		}
		out = append(out, &j)
	}
	return out, rows.Err()
}

func (s *Store) UpsertUserProfile(ctx context.Context, p *entity.UserProfile) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("UpsertUserProfile: marshal: %w", err)
	}
	const query = `
INSERT INTO user_profiles (id, payload) VALUES ($1, $2)
ON CONFLICT (id) DO UPDATE SET payload = EXCLUDED.payload`
	if _, err := s.db.ExecContext(ctx, query, p.ID, payload); err != nil {
		return fmt.Errorf("UpsertUserProfile: %w", err)
	}
	return nil
}

func (s *Store) GetUserProfile(ctx context.Context, id string) (*entity.UserProfile, error) {
	const query = `SELECT payload FROM user_profiles WHERE id = $1`
	var payload []byte
	err := s.db.QueryRowContext(ctx, query, id).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetUserProfile: %w", err)
	}
	var p entity.UserProfile
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("GetUserProfile: unmarshal: %w", err)
	}
	return &p, nil
}

func (s *Store) RecordInteraction(ctx context.Context, i *entity.UserInteraction) error {
	payload, err := json.Marshal(i)
	if err != nil {
		return fmt.Errorf("RecordInteraction: marshal: %w", err)
	}
	const query = `
INSERT INTO user_interactions (id, user_id, created_at, payload) VALUES ($1, $2, $3, $4)
ON CONFLICT (id) DO NOTHING`
	if _, err := s.db.ExecContext(ctx, query, i.ID, i.UserID, i.CreatedAt, payload); err != nil {
		return fmt.Errorf("RecordInteraction: %w", err)
	}
	return nil
}

func etagOf(version int64) store.ETag {
	return store.ETag(strconv.FormatInt(version, 10))
}

func parseEtag(e store.ETag) (int64, error) {
	v, err := strconv.ParseInt(string(e), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed etag %q: %w", e, err)
	}
	return v, nil
}

func limitOrDefault(limit int) int {
	if limit <= 0 {
		return 100
	}
	return limit
}
