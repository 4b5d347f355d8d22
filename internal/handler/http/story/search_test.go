package story

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsroom-core/internal/domain/entity"
	"newsroom-core/internal/store/memstore"
)

func TestSearchHandler_MatchesTitleKeyword(t *testing.T) {
	st := memstore.New()
	_, err := st.CreateCluster(context.Background(), &entity.Cluster{
		ID: "c1", Category: entity.CategoryWorld, Title: "Magnitude 7 Earthquake Strikes Eastern Turkey",
		SourceArticles: []string{"a1"}, Status: entity.StatusVerified, VerificationLevel: 1,
		FirstSeen: time.Now(), LastUpdated: time.Now(),
	})
	require.NoError(t, err)
	_, err = st.CreateCluster(context.Background(), &entity.Cluster{
		ID: "c2", Category: entity.CategoryWorld, Title: "Stock Markets Rally on Earnings",
		SourceArticles: []string{"a2"}, Status: entity.StatusVerified, VerificationLevel: 1,
		FirstSeen: time.Now(), LastUpdated: time.Now(),
	})
	require.NoError(t, err)

	h := SearchHandler{Clusters: st}
	req := httptest.NewRequest(http.MethodGet, "/api/stories/search?q=earthquake", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var out []StoryDTO
	decodeJSON(t, rec, &out)
	require.Len(t, out, 1)
	assert.Equal(t, "c1", out[0].ID)
}

func TestSearchHandler_EmptyQueryReturnsEmptyList(t *testing.T) {
	st := memstore.New()
	h := SearchHandler{Clusters: st}
	req := httptest.NewRequest(http.MethodGet, "/api/stories/search", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var out []StoryDTO
	decodeJSON(t, rec, &out)
	assert.Empty(t, out)
}
