package story

import (
	"log/slog"
	"net/http"

	"newsroom-core/internal/handler/http/middleware"
	"newsroom-core/internal/store"
)

// Register wires the story read-API routes into mux (spec.md §4.7, §6).
// feed/breaking/search/get/sources are public; interact requires a
// verified identity token, mirroring the teacher's per-route
// auth wrapping rather than a blanket middleware, since this API's
// public/authenticated split does not fall along a clean path prefix
// (GET /api/stories/{id} is public, POST /api/stories/{id}/interact is
// not, and both share the /api/stories/{id} prefix). protect applies
// authentication (and, after it, user-tier rate limiting) the same way
// the teacher applied its private mux - it is the caller's auth.Authz
// composed with the user rate limiter middleware.
func Register(mux *http.ServeMux, st store.Store, logger *slog.Logger, searchRateLimiter *middleware.RateLimiter, protect func(http.Handler) http.Handler) {
	mux.Handle("GET /api/stories/feed", FeedHandler{Clusters: st, Logger: logger})
	mux.Handle("GET /api/stories/breaking", BreakingHandler{Clusters: st, Logger: logger})
	mux.Handle("GET /api/stories/search", searchRateLimiter.Middleware(SearchHandler{Clusters: st, Logger: logger}))
	mux.Handle("GET /api/stories/{id}", GetHandler{Clusters: st, Articles: st, Logger: logger})
	mux.Handle("GET /api/stories/{id}/sources", SourcesHandler{Clusters: st, Articles: st, Logger: logger})
	mux.Handle("POST /api/stories/{id}/interact", protect(InteractHandler{Clusters: st, Users: st, Logger: logger}))
}
