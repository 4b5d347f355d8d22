package story

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsroom-core/internal/domain/entity"
	"newsroom-core/internal/store/memstore"
)

func seedCluster(t *testing.T, st *memstore.Store, id string, category entity.Category, status entity.Status, lastUpdated time.Time) {
	t.Helper()
	_, err := st.CreateCluster(t.Context(), &entity.Cluster{
		ID:                id,
		Category:          category,
		Title:             "Headline for " + id,
		SourceArticles:    []string{id + "_a1"},
		Status:            status,
		VerificationLevel: 1,
		FirstSeen:         lastUpdated,
		LastUpdated:       lastUpdated,
	})
	require.NoError(t, err)
}

func TestFeedHandler_NewestFirstExcludesMonitoring(t *testing.T) {
	st := memstore.New()
	now := time.Now()
	seedCluster(t, st, "c_old", entity.CategoryWorld, entity.StatusVerified, now.Add(-2*time.Hour))
	seedCluster(t, st, "c_new", entity.CategoryWorld, entity.StatusBreaking, now.Add(-1*time.Minute))
	seedCluster(t, st, "c_monitoring", entity.CategoryWorld, entity.StatusMonitoring, now)

	h := FeedHandler{Clusters: st}
	req := httptest.NewRequest(http.MethodGet, "/api/stories/feed", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var out []StoryDTO
	decodeJSON(t, rec, &out)
	require.Len(t, out, 2)
	assert.Equal(t, "c_new", out[0].ID)
	assert.Equal(t, "c_old", out[1].ID)
}

func TestFeedHandler_FiltersByCategory(t *testing.T) {
	st := memstore.New()
	now := time.Now()
	seedCluster(t, st, "c_world", entity.CategoryWorld, entity.StatusVerified, now)
	seedCluster(t, st, "c_tech", entity.CategoryTech, entity.StatusVerified, now)

	h := FeedHandler{Clusters: st}
	req := httptest.NewRequest(http.MethodGet, "/api/stories/feed?category=tech", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var out []StoryDTO
	decodeJSON(t, rec, &out)
	require.Len(t, out, 1)
	assert.Equal(t, "c_tech", out[0].ID)
}

func TestFeedHandler_InvalidCategoryIsBadRequest(t *testing.T) {
	st := memstore.New()
	h := FeedHandler{Clusters: st}
	req := httptest.NewRequest(http.MethodGet, "/api/stories/feed?category=notacategory", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFeedHandler_NoDataReturnsEmptyListNotError(t *testing.T) {
	st := memstore.New()
	h := FeedHandler{Clusters: st}
	req := httptest.NewRequest(http.MethodGet, "/api/stories/feed", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var out []StoryDTO
	decodeJSON(t, rec, &out)
	assert.Empty(t, out)
}
