package story

import (
	"log/slog"
	"net/http"

	"newsroom-core/internal/domain/entity"
	"newsroom-core/internal/handler/http/respond"
	"newsroom-core/internal/observability/logging"
	"newsroom-core/internal/store"
)

const defaultBreakingLimit = 20

// BreakingHandler serves GET /api/stories/breaking?limit (spec.md §4.7):
// clusters with status = BREAKING, most recent first.
type BreakingHandler struct {
	Clusters store.ClusterStore
	Logger   *slog.Logger
}

func (h BreakingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := logging.WithRequestID(r.Context(), h.Logger)
	limit := queryInt(r, "limit", defaultBreakingLimit, 1, maxFeedLimit)

	clusters, err := h.Clusters.QueryByStatus(r.Context(), entity.StatusBreaking, limit)
	if err != nil {
		logger.Error("breaking query failed", "error", err.Error())
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}

	out := make([]StoryDTO, 0, len(clusters))
	for _, c := range clusters {
		out = append(out, toStoryDTO(c))
	}
	respond.JSON(w, http.StatusOK, out)
}
