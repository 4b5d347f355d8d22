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

func seedClusterWithArticles(t *testing.T, st *memstore.Store, id string, articleSources map[string]string, publishedAt map[string]time.Time) *entity.Cluster {
	t.Helper()
	articleIDs := make([]string, 0, len(articleSources))
	for aid, source := range articleSources {
		articleIDs = append(articleIDs, aid)
		_, err := st.UpsertArticle(context.Background(), &entity.Article{
			ID: aid, Source: source, Category: entity.CategoryWorld, Title: "title " + aid,
			URL: "https://example.com/" + aid, PublishedAt: publishedAt[aid],
			FetchedAt: publishedAt[aid], UpdatedAt: publishedAt[aid],
		})
		require.NoError(t, err)
	}
	c := &entity.Cluster{
		ID: id, Category: entity.CategoryWorld, Title: "Headline", SourceArticles: articleIDs,
		Status: entity.StatusVerified, VerificationLevel: entity.VerificationLevel(len(articleSources)),
		FirstSeen: time.Now(), LastUpdated: time.Now(),
	}
	_, err := st.CreateCluster(context.Background(), c)
	require.NoError(t, err)
	return c
}

func TestGetHandler_DedupesSourcesByMostRecent(t *testing.T) {
	st := memstore.New()
	now := time.Now()
	seedClusterWithArticles(t, st, "c1",
		map[string]string{"a1": "ap", "a2": "ap", "a3": "reuters"},
		map[string]time.Time{"a1": now.Add(-time.Hour), "a2": now, "a3": now.Add(-30 * time.Minute)},
	)

	mux := http.NewServeMux()
	mux.Handle("GET /api/stories/{id}", GetHandler{Clusters: st, Articles: st})

	req := httptest.NewRequest(http.MethodGet, "/api/stories/c1", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var out StoryDetailDTO
	decodeJSON(t, rec, &out)
	assert.Equal(t, 2, out.SourceCount)
	require.Len(t, out.Sources, 2)

	var apSource SourceDTO
	for _, s := range out.Sources {
		if s.Source == "ap" {
			apSource = s
		}
	}
	assert.Equal(t, "a2", extractArticleID(apSource.URL))
}

func TestGetHandler_UnknownClusterIs404(t *testing.T) {
	st := memstore.New()
	mux := http.NewServeMux()
	mux.Handle("GET /api/stories/{id}", GetHandler{Clusters: st, Articles: st})

	req := httptest.NewRequest(http.MethodGet, "/api/stories/nope", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// extractArticleID extracts the trailing "/<id>" segment this test's
// seeded URLs end with.
func extractArticleID(url string) string {
	for i := len(url) - 1; i >= 0; i-- {
		if url[i] == '/' {
			return url[i+1:]
		}
	}
	return url
}
