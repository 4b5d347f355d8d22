package story

import (
	"fmt"
	"log/slog"
	"net/http"

	"newsroom-core/internal/domain/entity"
	"newsroom-core/internal/handler/http/respond"
	"newsroom-core/internal/observability/logging"
	"newsroom-core/internal/store"
)

const (
	defaultFeedLimit = 20
	maxFeedLimit     = 100
)

// FeedHandler serves GET /api/stories/feed?offset&limit&category
// (spec.md §4.7): clusters with status != MONITORING, newest-first.
type FeedHandler struct {
	Clusters store.ClusterStore
	Logger   *slog.Logger
}

func (h FeedHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := logging.WithRequestID(r.Context(), h.Logger)

	category := r.URL.Query().Get("category")
	if category != "" && !entity.ValidCategories[entity.Category(category)] {
		respond.SafeError(w, http.StatusBadRequest, fmt.Errorf("invalid category: %q", category))
		return
	}
	offset := queryInt(r, "offset", 0, 0, 0)
	limit := queryInt(r, "limit", defaultFeedLimit, 1, maxFeedLimit)

	clusters, err := h.Clusters.QueryFeed(r.Context(), category, offset, limit)
	if err != nil {
		logger.Error("feed query failed", "error", err.Error())
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}

	out := make([]StoryDTO, 0, len(clusters))
	for _, c := range clusters {
		out = append(out, toStoryDTO(c))
	}
	respond.JSON(w, http.StatusOK, out)
}
