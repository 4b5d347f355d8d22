package notification

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"newsroom-core/internal/domain/entity"
	"newsroom-core/internal/handler/http/auth"
	"newsroom-core/internal/handler/http/respond"
	"newsroom-core/internal/observability/logging"
	"newsroom-core/internal/store"
)

// RegisterDeviceHandler serves POST /api/notifications/register
// (spec.md §6), adding a device token to the authenticated user's
// profile if it is not already present.
type RegisterDeviceHandler struct {
	Users  store.UserStore
	Logger *slog.Logger
}

func (h RegisterDeviceHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := logging.WithRequestID(r.Context(), h.Logger)
	uid, ok := auth.UserFromContext(r.Context())
	if !ok || uid == "" {
		respond.SafeError(w, http.StatusUnauthorized, errors.New("missing authenticated user"))
		return
	}

	var body registerRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.DeviceToken == "" {
		respond.SafeError(w, http.StatusBadRequest, errors.New("device_token is required"))
		return
	}

	p, err := h.Users.GetUserProfile(r.Context(), uid)
	if errors.Is(err, entity.ErrNotFound) {
		p = &entity.UserProfile{ID: uid}
	} else if err != nil {
		logger.Error("get profile failed", "error", err.Error(), "user_id", uid)
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}

	if !containsToken(p.DeviceTokens, body.DeviceToken) {
		p.DeviceTokens = append(p.DeviceTokens, body.DeviceToken)
	}

	if err := h.Users.UpsertUserProfile(r.Context(), p); err != nil {
		logger.Error("upsert profile failed", "error", err.Error(), "user_id", uid)
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}

	respond.JSON(w, http.StatusOK, map[string]string{"status": "registered"})
}

func containsToken(tokens []string, token string) bool {
	for _, t := range tokens {
		if t == token {
			return true
		}
	}
	return false
}
