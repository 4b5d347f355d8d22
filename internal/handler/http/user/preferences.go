package user

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"newsroom-core/internal/domain/entity"
	"newsroom-core/internal/handler/http/auth"
	"newsroom-core/internal/handler/http/respond"
	"newsroom-core/internal/observability/logging"
	"newsroom-core/internal/store"
)

// preferencesRequest is the PUT /api/users/preferences body: the closed
// set of categories the user wants to follow.
type preferencesRequest struct {
	Categories []string `json:"categories"`
}

// PreferencesHandler serves PUT /api/users/preferences (spec.md §6),
// upserting the authenticated user's followed categories.
type PreferencesHandler struct {
	Users  store.UserStore
	Logger *slog.Logger
}

func (h PreferencesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := logging.WithRequestID(r.Context(), h.Logger)
	uid, ok := auth.UserFromContext(r.Context())
	if !ok || uid == "" {
		respond.SafeError(w, http.StatusUnauthorized, errors.New("missing authenticated user"))
		return
	}

	var body preferencesRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respond.SafeError(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}

	categories := make([]entity.Category, 0, len(body.Categories))
	for _, c := range body.Categories {
		cat := entity.Category(c)
		if !entity.ValidCategories[cat] {
			respond.SafeError(w, http.StatusBadRequest, fmt.Errorf("invalid category: %q", c))
			return
		}
		categories = append(categories, cat)
	}

	p, err := h.Users.GetUserProfile(r.Context(), uid)
	if errors.Is(err, entity.ErrNotFound) {
		p = &entity.UserProfile{ID: uid}
	} else if err != nil {
		logger.Error("get profile failed", "error", err.Error(), "user_id", uid)
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}
	p.Categories = categories

	if err := h.Users.UpsertUserProfile(r.Context(), p); err != nil {
		logger.Error("upsert profile failed", "error", err.Error(), "user_id", uid)
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}

	respond.JSON(w, http.StatusOK, toProfileDTO(p))
}
