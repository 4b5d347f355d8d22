package notification

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

// DeleteDeviceTokenHandler serves DELETE
// /api/notifications/device-token/{token} (spec.md §6), removing a
// device token from the authenticated user's profile. Removing a token
// that is not present is not an error (idempotent deletion).
type DeleteDeviceTokenHandler struct {
	Users  store.UserStore
	Logger *slog.Logger
}

func (h DeleteDeviceTokenHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := logging.WithRequestID(r.Context(), h.Logger)
	uid, ok := auth.UserFromContext(r.Context())
	if !ok || uid == "" {
		respond.SafeError(w, http.StatusUnauthorized, errors.New("missing authenticated user"))
		return
	}
	token := r.PathValue("token")
	if token == "" {
		respond.SafeError(w, http.StatusBadRequest, errors.New("token is required"))
		return
	}

	p, err := h.Users.GetUserProfile(r.Context(), uid)
	if errors.Is(err, entity.ErrNotFound) {
		respond.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
		return
	}
	if err != nil {
		logger.Error("get profile failed", "error", err.Error(), "user_id", uid)
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}

	p.DeviceTokens = removeToken(p.DeviceTokens, token)
	if err := h.Users.UpsertUserProfile(r.Context(), p); err != nil {
		logger.Error("upsert profile failed", "error", err.Error(), "user_id", uid)
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}

	respond.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func removeToken(tokens []string, token string) []string {
	out := tokens[:0]
	for _, t := range tokens {
		if t != token {
			out = append(out, t)
		}
	}
	return out
}
