package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsroom-core/internal/domain/entity"
	"newsroom-core/internal/store"
)

func sampleCluster(id string) *entity.Cluster {
	now := time.Now()
	return &entity.Cluster{
		ID:                id,
		Category:          entity.CategoryWorld,
		Title:             "Sample Story",
		SourceArticles:    []string{"a1"},
		Status:            entity.StatusMonitoring,
		VerificationLevel: 1,
		FirstSeen:         now,
		LastUpdated:       now,
		Fingerprint:       "abc123",
	}
}

func TestStore_ClusterETagProtocol(t *testing.T) {
	ctx := context.Background()
	s := New()

	etag, err := s.CreateCluster(ctx, sampleCluster("c1"))
	require.NoError(t, err)

	got, readEtag, err := s.ReadCluster(ctx, "c1", "world")
	require.NoError(t, err)
	assert.Equal(t, etag, readEtag)

	got.UpdateCount = 1
	newEtag, err := s.ReplaceCluster(ctx, got, readEtag)
	require.NoError(t, err)
	assert.NotEqual(t, etag, newEtag)

	t.Run("stale etag is rejected", func(t *testing.T) {
		got.UpdateCount = 2
		_, err := s.ReplaceCluster(ctx, got, readEtag)
		assert.ErrorIs(t, err, entity.ErrConflict)
	})

	t.Run("wrong category read misses", func(t *testing.T) {
		_, _, err := s.ReadCluster(ctx, "c1", "tech")
		assert.ErrorIs(t, err, entity.ErrNotFound)
	})
}

func TestStore_ArticleUpsert(t *testing.T) {
	ctx := context.Background()
	s := New()
	a := &entity.Article{ID: "x1", Source: "bbc", Title: "T", URL: "https://example.com/a", Category: entity.CategoryWorld}

	inserted, err := s.UpsertArticle(ctx, a)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = s.UpsertArticle(ctx, a)
	require.NoError(t, err)
	assert.False(t, inserted)

	got, err := s.GetArticle(ctx, "x1")
	require.NoError(t, err)
	assert.Equal(t, "bbc", got.Source)
}

func TestStore_QueryByStatus(t *testing.T) {
	ctx := context.Background()
	s := New()
	c1 := sampleCluster("c1")
	c2 := sampleCluster("c2")
	c2.Status = entity.StatusBreaking
	_, _ = s.CreateCluster(ctx, c1)
	_, _ = s.CreateCluster(ctx, c2)

	breaking, err := s.QueryByStatus(ctx, entity.StatusBreaking, 10)
	require.NoError(t, err)
	require.Len(t, breaking, 1)
	assert.Equal(t, "c2", breaking[0].ID)
}

func TestStore_ChangeFeedIsResumableAndAtLeastOnce(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	s := New()
	_, _ = s.CreateCluster(ctx, sampleCluster("c1"))

	delivered := make(chan int, 10)
	err := s.deliverOnce(ctx, "story_clusters", "worker-a", func(ctx context.Context, batch []store.ChangeEvent) error {
		delivered <- len(batch)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, <-delivered)

	// Redelivering with the same lease after no new writes yields nothing.
	err = s.deliverOnce(ctx, "story_clusters", "worker-a", func(ctx context.Context, batch []store.ChangeEvent) error {
		delivered <- len(batch)
		return nil
	})
	require.NoError(t, err)
	select {
	case n := <-delivered:
		t.Fatalf("expected no further delivery, got batch of %d", n)
	default:
	}

	// A second independent lease starts from the beginning.
	err = s.deliverOnce(ctx, "story_clusters", "worker-b", func(ctx context.Context, batch []store.ChangeEvent) error {
		delivered <- len(batch)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, <-delivered)
}
