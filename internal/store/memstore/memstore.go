// Package memstore is an in-memory store.Store implementation used by
// unit tests of the worker components, mirroring the way the teacher
// keeps a concrete test double alongside its Postgres repositories
// (e.g. internal/infra/adapter/persistence/postgres's tests use
// sqlmock; this package substitutes entirely for the database so
// clustering/lifecycle/summary tests never need one).
package memstore

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"newsroom-core/internal/domain/entity"
	"newsroom-core/internal/store"
)

// Store is a goroutine-safe, in-process implementation of store.Store.
// It is intentionally simple: every query is a linear scan, which is fine
// at test-fixture scale.
type Store struct {
	mu sync.Mutex

	articles map[string]*entity.Article
	articleOrder []string

	clusters map[string]*entity.Cluster
	etags    map[string]int64

	feedStates   map[string]*entity.FeedPollState
	batchJobs    map[string]*entity.BatchJob
	profiles     map[string]*entity.UserProfile
	interactions []*entity.UserInteraction

	seq int64
	articleEvents []store.ChangeEvent
	clusterEvents []store.ChangeEvent
	leases        map[string]int64 // leaseName -> last delivered sequence
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		articles:   make(map[string]*entity.Article),
		clusters:   make(map[string]*entity.Cluster),
		etags:      make(map[string]int64),
		feedStates: make(map[string]*entity.FeedPollState),
		batchJobs:  make(map[string]*entity.BatchJob),
		profiles:   make(map[string]*entity.UserProfile),
		leases:     make(map[string]int64),
	}
}

func (s *Store) nextSeq() int64 {
	s.seq++
	return s.seq
}

func (s *Store) UpsertArticle(ctx context.Context, a *entity.Article) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *a
	_, existed := s.articles[a.ID]
	if !existed {
		s.articleOrder = append(s.articleOrder, a.ID)
	}
	s.articles[a.ID] = &cp
	s.articleEvents = append(s.articleEvents, store.ChangeEvent{
		Container: "raw_articles",
		Article:   &cp,
		Sequence:  s.nextSeq(),
	})
	return !existed, nil
}

func (s *Store) GetArticle(ctx context.Context, id string) (*entity.Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.articles[id]
	if !ok {
		return nil, entity.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *Store) CreateCluster(ctx context.Context, c *entity.Cluster) (store.ETag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.clusters[c.ID]; exists {
		return "", entity.ErrConflict
	}
	cp := *c
	s.clusters[c.ID] = &cp
	s.etags[c.ID] = 1
	s.emitClusterEventLocked(&cp)
	return etagOf(1), nil
}

func (s *Store) ReadCluster(ctx context.Context, id, category string) (*entity.Cluster, store.ETag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.clusters[id]
	if !ok || string(c.Category) != category {
		return nil, "", entity.ErrNotFound
	}
	cp := *c
	return &cp, etagOf(s.etags[id]), nil
}

func (s *Store) ReplaceCluster(ctx context.Context, c *entity.Cluster, etag store.ETag) (store.ETag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.clusters[c.ID]
	if !ok {
		return "", entity.ErrNotFound
	}
	if etagOf(s.etags[c.ID]) != etag {
		return "", entity.ErrConflict
	}
	_ = current
	cp := *c
	s.clusters[c.ID] = &cp
	s.etags[c.ID]++
	s.emitClusterEventLocked(&cp)
	return etagOf(s.etags[c.ID]), nil
}

func (s *Store) emitClusterEventLocked(c *entity.Cluster) {
	cp := *c
	s.clusterEvents = append(s.clusterEvents, store.ChangeEvent{
		Container: "story_clusters",
		Cluster:   &cp,
		Sequence:  s.nextSeq(),
	})
}

func etagOf(v int64) store.ETag {
	return store.ETag(strconv.FormatInt(v, 10))
}

func (s *Store) QueryRecentClusters(ctx context.Context, category string, since time.Time, limit int) ([]*entity.Cluster, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*entity.Cluster
	for _, c := range s.clusters {
		if category != "" && string(c.Category) != category {
			continue
		}
		if c.LastUpdated.Before(since) {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastUpdated.After(out[j].LastUpdated) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) QueryByFingerprint(ctx context.Context, fp, category string, sinceHours int) ([]*entity.Cluster, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := time.Now().Add(-time.Duration(sinceHours) * time.Hour)
	var out []*entity.Cluster
	for _, c := range s.clusters {
		if c.Fingerprint != fp || string(c.Category) != category {
			continue
		}
		if c.FirstSeen.Before(cutoff) {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

func (s *Store) QueryByStatus(ctx context.Context, status entity.Status, limit int) ([]*entity.Cluster, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*entity.Cluster
	for _, c := range s.clusters {
		if c.Status != status {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastUpdated.After(out[j].LastUpdated) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// QueryFeed lists clusters with status != MONITORING (spec.md §4.7's
// "feed" content obligation), newest-first, restricted to category when
// non-empty, with offset/limit applied after sorting so pagination is
// stable across pages.
func (s *Store) QueryFeed(ctx context.Context, category string, offset, limit int) ([]*entity.Cluster, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*entity.Cluster
	for _, c := range s.clusters {
		if c.Status == entity.StatusMonitoring {
			continue
		}
		if category != "" && string(c.Category) != category {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastUpdated.After(out[j].LastUpdated) })
	if offset > 0 {
		if offset >= len(out) {
			return nil, nil
		}
		out = out[offset:]
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// SearchClusters does a simple case-insensitive AND-of-keywords match over
// a cluster's title, newest-first. Ranking beyond this is explicitly left
// unspecified (spec.md §9's "implementers may choose any stable scoring").
func (s *Store) SearchClusters(ctx context.Context, q string, limit int) ([]*entity.Cluster, error) {
	keywords := strings.Fields(strings.ToLower(q))
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*entity.Cluster
	for _, c := range s.clusters {
		haystack := strings.ToLower(c.Title)
		if c.Summary != nil {
			haystack += " " + strings.ToLower(c.Summary.Text)
		}
		matched := true
		for _, kw := range keywords {
			if !strings.Contains(haystack, kw) {
				matched = false
				break
			}
		}
		if !matched {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastUpdated.After(out[j].LastUpdated) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// GetClusterByID finds a cluster by ID alone, scanning across categories.
// The read API's get/sources/interact endpoints address a cluster by ID
// only (spec.md §4.7), unlike the write path which always knows the
// category up front from the triggering article.
func (s *Store) GetClusterByID(ctx context.Context, id string) (*entity.Cluster, store.ETag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.clusters[id]
	if !ok {
		return nil, "", entity.ErrNotFound
	}
	cp := *c
	return &cp, etagOf(s.etags[id]), nil
}

func (s *Store) UpsertFeedState(ctx context.Context, st *entity.FeedPollState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *st
	s.feedStates[st.Source] = &cp
	return nil
}

func (s *Store) GetFeedState(ctx context.Context, source string) (*entity.FeedPollState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.feedStates[source]
	if !ok {
		return nil, entity.ErrNotFound
	}
	cp := *st
	return &cp, nil
}

func (s *Store) ListFeedStates(ctx context.Context) ([]*entity.FeedPollState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*entity.FeedPollState, 0, len(s.feedStates))
	for _, st := range s.feedStates {
		cp := *st
		out = append(out, &cp)
	}
	return out, nil
}

func (s *Store) UpsertBatchJob(ctx context.Context, j *entity.BatchJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *j
	s.batchJobs[j.BatchID] = &cp
	return nil
}

func (s *Store) GetBatchJob(ctx context.Context, id string) (*entity.BatchJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.batchJobs[id]
	if !ok {
		return nil, entity.ErrNotFound
	}
	cp := *j
	return &cp, nil
}

func (s *Store) ListBatchJobsByStatus(ctx context.Context, status entity.BatchStatus) ([]*entity.BatchJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*entity.BatchJob
	for _, j := range s.batchJobs {
		if j.Status == status {
			cp := *j
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *Store) UpsertUserProfile(ctx context.Context, p *entity.UserProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.profiles[p.ID] = &cp
	return nil
}

func (s *Store) GetUserProfile(ctx context.Context, id string) (*entity.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[id]
	if !ok {
		return nil, entity.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *Store) RecordInteraction(ctx context.Context, i *entity.UserInteraction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *i
	s.interactions = append(s.interactions, &cp)
	return nil
}

// ListInteractions returns a copy of every interaction recorded so far, in
// insertion order. Test-only helper: store.Store has no equivalent method
// since nothing in the read API needs to list interactions back out.
func (s *Store) ListInteractions() []*entity.UserInteraction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*entity.UserInteraction, len(s.interactions))
	copy(out, s.interactions)
	return out
}

// SubscribeChangeFeed delivers undelivered events from container to
// handler every pollInterval, advancing leaseName's cursor only after
// handler returns nil, until ctx is cancelled.
func (s *Store) SubscribeChangeFeed(ctx context.Context, container, leaseName string, pollInterval time.Duration, handler store.ChangeFeedHandler) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.deliverOnce(ctx, container, leaseName, handler); err != nil {
				return err
			}
		}
	}
}

func (s *Store) deliverOnce(ctx context.Context, container, leaseName string, handler store.ChangeFeedHandler) error {
	s.mu.Lock()
	var all []store.ChangeEvent
	switch container {
	case "raw_articles":
		all = s.articleEvents
	case "story_clusters":
		all = s.clusterEvents
	}
	last := s.leases[leaseName]
	var batch []store.ChangeEvent
	for _, ev := range all {
		if ev.Sequence > last {
			batch = append(batch, ev)
		}
	}
	s.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}
	if err := handler(ctx, batch); err != nil {
		return err
	}
	s.mu.Lock()
	s.leases[leaseName] = batch[len(batch)-1].Sequence
	s.mu.Unlock()
	return nil
}
