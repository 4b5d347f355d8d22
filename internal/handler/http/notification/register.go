package notification

import (
	"log/slog"
	"net/http"

	"newsroom-core/internal/store"
)

// Register wires the authenticated notification-registration routes
// into mux (spec.md §6). protect applies authentication and user-tier
// rate limiting; see story.Register's doc comment for why this is
// passed in rather than called directly.
func Register(mux *http.ServeMux, st store.Store, logger *slog.Logger, protect func(http.Handler) http.Handler) {
	mux.Handle("POST /api/notifications/register", protect(RegisterDeviceHandler{Users: st, Logger: logger}))
	mux.Handle("DELETE /api/notifications/device-token/{token}", protect(DeleteDeviceTokenHandler{Users: st, Logger: logger}))
}
