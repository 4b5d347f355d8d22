// Package store exposes the typed document-store operations C3-C6 build
// on (spec.md §4.1): per-partition reads, change-feed subscription and
// ETag-guarded cluster writes. Store is the narrow capability interface;
// postgres.Store and memstore.Store are its two in-process
// implementations (production, test fake), following the teacher's split
// between internal/repository interfaces and internal/infra/adapter
// concrete repos.
package store

import (
	"context"
	"time"

	"newsroom-core/internal/domain/entity"
)

// ETag is the opaque concurrency token returned alongside a cluster read
// and required on ReplaceCluster.
type ETag string

// ChangeEvent is one row delivered by a change-feed subscription: either
// an article or a cluster, keyed by container name so one handler can
// multiplex both feeds if it chooses to.
type ChangeEvent struct {
	Container string
	Article   *entity.Article
	Cluster   *entity.Cluster
	Sequence  int64 // monotonically increasing within a container, used to advance the lease cursor
}

// ChangeFeedHandler processes one batch of change events. Handlers must
// be idempotent: delivery is at-least-once and a restart always replays
// from the last committed cursor (spec.md §4.1, §5).
type ChangeFeedHandler func(ctx context.Context, batch []ChangeEvent) error

// Store is the full set of operations the worker components depend on.
type Store interface {
	ArticleStore
	ClusterStore
	FeedStateStore
	BatchJobStore
	ChangeFeedStore
	UserStore
}

type ArticleStore interface {
	// UpsertArticle inserts or updates by ID, following spec.md §4.3's
	// canonical-URL-derived ID scheme. Returns whether a new row was
	// inserted (false means an existing article was updated in place).
	UpsertArticle(ctx context.Context, a *entity.Article) (inserted bool, err error)
	GetArticle(ctx context.Context, id string) (*entity.Article, error)
}

type ClusterStore interface {
	CreateCluster(ctx context.Context, c *entity.Cluster) (ETag, error)
	// ReadCluster returns the cluster and its current ETag. category is
	// the partition key; passing the wrong one returns entity.ErrNotFound
	// even if the cluster exists under a different category.
	ReadCluster(ctx context.Context, id, category string) (*entity.Cluster, ETag, error)
	// ReplaceCluster performs an ETag-guarded compare-and-swap. Returns
	// entity.ErrConflict if the stored ETag no longer matches etag.
	ReplaceCluster(ctx context.Context, c *entity.Cluster, etag ETag) (ETag, error)
	// QueryRecentClusters lists clusters updated since `since`, optionally
	// restricted to one category, newest first, capped at limit.
	QueryRecentClusters(ctx context.Context, category string, since time.Time, limit int) ([]*entity.Cluster, error)
	// QueryByFingerprint finds candidate clusters sharing fp within the
	// same category and created within the last sinceHours.
	QueryByFingerprint(ctx context.Context, fp, category string, sinceHours int) ([]*entity.Cluster, error)
	QueryByStatus(ctx context.Context, status entity.Status, limit int) ([]*entity.Cluster, error)
	// QueryFeed lists clusters with status != MONITORING (the read API's
	// "feed" content, spec.md §4.7), optionally restricted to one
	// category, newest first, offset-paginated.
	QueryFeed(ctx context.Context, category string, offset, limit int) ([]*entity.Cluster, error)
	// SearchClusters matches clusters by title keyword, newest first,
	// capped at limit.
	SearchClusters(ctx context.Context, q string, limit int) ([]*entity.Cluster, error)
	// GetClusterByID finds a cluster by ID alone, independent of
	// category, for read-API operations (get/sources/interact) that are
	// handed only a cluster ID.
	GetClusterByID(ctx context.Context, id string) (*entity.Cluster, ETag, error)
}

type FeedStateStore interface {
	UpsertFeedState(ctx context.Context, s *entity.FeedPollState) error
	GetFeedState(ctx context.Context, source string) (*entity.FeedPollState, error)
	ListFeedStates(ctx context.Context) ([]*entity.FeedPollState, error)
}

type BatchJobStore interface {
	UpsertBatchJob(ctx context.Context, j *entity.BatchJob) error
	GetBatchJob(ctx context.Context, id string) (*entity.BatchJob, error)
	ListBatchJobsByStatus(ctx context.Context, status entity.BatchStatus) ([]*entity.BatchJob, error)
}

type UserStore interface {
	UpsertUserProfile(ctx context.Context, p *entity.UserProfile) error
	GetUserProfile(ctx context.Context, id string) (*entity.UserProfile, error)
	RecordInteraction(ctx context.Context, i *entity.UserInteraction) error
}

// ChangeFeedStore exposes resumable change-feed subscriptions backed by a
// persisted lease cursor (spec.md §4.1). container is one of
// "raw_articles" or "story_clusters"; leaseName identifies the consumer
// so multiple independent subscribers can each track their own cursor
// over the same container.
type ChangeFeedStore interface {
	SubscribeChangeFeed(ctx context.Context, container, leaseName string, pollInterval time.Duration, handler ChangeFeedHandler) error
}
