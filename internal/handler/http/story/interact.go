package story

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"newsroom-core/internal/domain/entity"
	"newsroom-core/internal/handler/http/auth"
	"newsroom-core/internal/handler/http/respond"
	"newsroom-core/internal/observability/logging"
	"newsroom-core/internal/store"
)

// interactRequest is the POST /api/stories/{id}/interact body: the kind
// of interaction the authenticated user performed.
type interactRequest struct {
	Kind string `json:"kind"`
}

var validInteractionKinds = map[entity.InteractionKind]bool{
	entity.InteractionLike: true,
	entity.InteractionSave: true,
	entity.InteractionView: true,
}

// InteractHandler serves POST /api/stories/{id}/interact (spec.md §6), an
// authenticated endpoint that records a like/save/view against a cluster.
type InteractHandler struct {
	Clusters store.ClusterStore
	Users    store.UserStore
	Logger   *slog.Logger
}

func (h InteractHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := logging.WithRequestID(r.Context(), h.Logger)

	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == "" {
		respond.SafeError(w, http.StatusUnauthorized, errors.New("missing authenticated user"))
		return
	}

	id := r.PathValue("id")
	if id == "" {
		respond.SafeError(w, http.StatusBadRequest, errors.New("cluster id is required"))
		return
	}

	var body interactRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respond.SafeError(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}
	kind := entity.InteractionKind(body.Kind)
	if !validInteractionKinds[kind] {
		respond.SafeError(w, http.StatusBadRequest, errors.New("kind must be one of like, save, view"))
		return
	}

	if _, _, err := h.Clusters.GetClusterByID(r.Context(), id); err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			respond.SafeError(w, http.StatusNotFound, err)
			return
		}
		logger.Error("interact: cluster lookup failed", "error", err.Error(), "cluster_id", id)
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}

	interaction := &entity.UserInteraction{
		ID:        uuid.New().String(),
		UserID:    user,
		ClusterID: id,
		Kind:      kind,
		CreatedAt: time.Now(),
	}
	if err := h.Users.RecordInteraction(r.Context(), interaction); err != nil {
		logger.Error("interact: record failed", "error", err.Error(), "cluster_id", id)
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}

	respond.JSON(w, http.StatusOK, map[string]string{"status": "recorded"})
}
