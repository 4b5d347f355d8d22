package user

import (
	"errors"
	"log/slog"
	"net/http"

	"newsroom-core/internal/domain/entity"
	"newsroom-core/internal/handler/http/auth"
	"newsroom-core/internal/handler/http/respond"
	"newsroom-core/internal/observability/logging"
	"newsroom-core/internal/store"
)

// ProfileHandler serves GET /api/users/profile (spec.md §6).
type ProfileHandler struct {
	Users  store.UserStore
	Logger *slog.Logger
}

func (h ProfileHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := logging.WithRequestID(r.Context(), h.Logger)
	uid, ok := auth.UserFromContext(r.Context())
	if !ok || uid == "" {
		respond.SafeError(w, http.StatusUnauthorized, errors.New("missing authenticated user"))
		return
	}

	p, err := h.Users.GetUserProfile(r.Context(), uid)
	if errors.Is(err, entity.ErrNotFound) {
		// No profile has been written yet for this identity: the read API
		// treats this as a fresh, empty profile rather than a 404, since
		// the profile is implicitly created by the first preferences
		// update or notification registration.
		p = &entity.UserProfile{ID: uid}
	} else if err != nil {
		logger.Error("get profile failed", "error", err.Error(), "user_id", uid)
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}

	respond.JSON(w, http.StatusOK, toProfileDTO(p))
}
