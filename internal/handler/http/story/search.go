package story

import (
	"log/slog"
	"net/http"

	"newsroom-core/internal/handler/http/respond"
	"newsroom-core/internal/observability/logging"
	"newsroom-core/internal/store"
)

const defaultSearchLimit = 20

// SearchHandler serves GET /api/stories/search?q&limit (spec.md §4.7).
// Ranking beyond "full-text over title and summary" is left unspecified
// by spec.md §9; SearchClusters applies a stable newest-first order.
type SearchHandler struct {
	Clusters store.ClusterStore
	Logger   *slog.Logger
}

func (h SearchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := logging.WithRequestID(r.Context(), h.Logger)
	q := r.URL.Query().Get("q")
	limit := queryInt(r, "limit", defaultSearchLimit, 1, maxFeedLimit)

	if q == "" {
		// Policy (spec.md §7): "no data" conditions return 200 with an
		// empty list, never an error.
		respond.JSON(w, http.StatusOK, []StoryDTO{})
		return
	}

	clusters, err := h.Clusters.SearchClusters(r.Context(), q, limit)
	if err != nil {
		logger.Error("search query failed", "error", err.Error())
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}

	out := make([]StoryDTO, 0, len(clusters))
	for _, c := range clusters {
		out = append(out, toStoryDTO(c))
	}
	respond.JSON(w, http.StatusOK, out)
}
