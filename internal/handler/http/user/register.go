package user

import (
	"log/slog"
	"net/http"

	"newsroom-core/internal/store"
)

// Register wires the authenticated user-profile routes into mux
// (spec.md §6). protect applies authentication and user-tier rate
// limiting; see story.Register's doc comment for why this is passed in
// rather than called directly.
func Register(mux *http.ServeMux, st store.Store, logger *slog.Logger, protect func(http.Handler) http.Handler) {
	mux.Handle("GET /api/users/profile", protect(ProfileHandler{Users: st, Logger: logger}))
	mux.Handle("PUT /api/users/preferences", protect(PreferencesHandler{Users: st, Logger: logger}))
}
