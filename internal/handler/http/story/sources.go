package story

import (
	"errors"
	"log/slog"
	"net/http"

	"newsroom-core/internal/domain/entity"
	"newsroom-core/internal/handler/http/respond"
	"newsroom-core/internal/observability/logging"
	"newsroom-core/internal/store"
)

// SourcesHandler serves GET /api/stories/{id}/sources (spec.md §4.7):
// the post-deduplication list with display-friendly source names.
type SourcesHandler struct {
	Clusters store.ClusterStore
	Articles store.ArticleStore
	Logger   *slog.Logger
}

func (h SourcesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := logging.WithRequestID(r.Context(), h.Logger)
	id := r.PathValue("id")
	if id == "" {
		respond.SafeError(w, http.StatusBadRequest, errors.New("cluster id is required"))
		return
	}

	c, _, err := h.Clusters.GetClusterByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			respond.SafeError(w, http.StatusNotFound, err)
			return
		}
		logger.Error("get cluster sources failed", "error", err.Error(), "cluster_id", id)
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}

	members := fetchMemberArticles(r.Context(), h.Articles, c)
	deduped := dedupeSources(members)

	respond.JSON(w, http.StatusOK, struct {
		SourceCount int         `json:"source_count"`
		Sources     []SourceDTO `json:"sources"`
	}{
		SourceCount: len(deduped),
		Sources:     toSourceDTOs(deduped),
	})
}
