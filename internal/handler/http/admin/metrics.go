// Package admin provides the admin-role-gated operational endpoints of
// the read API (spec.md §6: GET /api/admin/metrics).
package admin

import (
	"log/slog"
	"net/http"

	httphandler "newsroom-core/internal/handler/http"
)

// Register wires the admin-only Prometheus metrics snapshot into mux.
// protect enforces authentication and, via auth.RolePermissions, that
// only RoleAdmin may reach this path (the viewer role's AllowedPaths
// does not include /api/admin/*).
func Register(mux *http.ServeMux, logger *slog.Logger, protect func(http.Handler) http.Handler) {
	mux.Handle("GET /api/admin/metrics", protect(httphandler.MetricsHandler()))
}
