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

// GetHandler serves GET /api/stories/{id} (spec.md §4.7): the full
// cluster plus its deduplicated sources.
type GetHandler struct {
	Clusters store.ClusterStore
	Articles store.ArticleStore
	Logger   *slog.Logger
}

func (h GetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
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
		logger.Error("get cluster failed", "error", err.Error(), "cluster_id", id)
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}

	respond.JSON(w, http.StatusOK, toStoryDetailDTO(r.Context(), c, h.Articles))
}
