package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sydlexius/phonyfy/internal/account"
	"github.com/sydlexius/phonyfy/internal/api/middleware"
	"github.com/sydlexius/phonyfy/internal/catalog"
	"github.com/sydlexius/phonyfy/internal/ingest"
	"github.com/sydlexius/phonyfy/internal/logging"
	"github.com/sydlexius/phonyfy/internal/maintenance"
)

// maxImportBytes bounds the body accepted by the catalog import endpoint.
const maxImportBytes = 4 << 20

// RouterDeps bundles all dependencies needed by the HTTP router.
type RouterDeps struct {
	Catalog     *catalog.Coordinator
	Accounts    *account.Service
	Ingester    *ingest.Ingester
	LogManager  *logging.Manager
	Maintenance *maintenance.Service
	Logger      *slog.Logger
	BasePath    string
	// ImportRate is the number of catalog imports allowed per minute per client.
	ImportRate int
}

// Router sets up all HTTP routes for the application.
type Router struct {
	catalog     *catalog.Coordinator
	accounts    *account.Service
	ingester    *ingest.Ingester
	logManager  *logging.Manager
	maintenance *maintenance.Service
	logger      *slog.Logger
	basePath    string
	importRate  int
}

// NewRouter creates a new Router with all routes configured.
func NewRouter(deps RouterDeps) *Router {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	importRate := deps.ImportRate
	if importRate < 1 {
		importRate = 10
	}
	return &Router{
		catalog:     deps.Catalog,
		accounts:    deps.Accounts,
		ingester:    deps.Ingester,
		logManager:  deps.LogManager,
		maintenance: deps.Maintenance,
		logger:      logger.With("component", "api"),
		basePath:    deps.BasePath,
		importRate:  importRate,
	}
}

// Handler returns the root handler. ctx bounds background work owned by the
// router, such as rate-limiter cleanup.
func (r *Router) Handler(ctx context.Context) http.Handler {
	authMw := middleware.Auth(r.accounts)
	loginLimiter := middleware.NewLoginRateLimiter(ctx)
	registerLimiter := middleware.NewLoginRateLimiter(ctx)
	importLimiter := middleware.NewRateLimiter(ctx, r.importRate, r.importRate)
	mux := http.NewServeMux()
	bp := r.basePath + "/api/v1"

	// Public routes (no auth)
	mux.HandleFunc("GET "+bp+"/health", r.handleHealth)
	mux.HandleFunc("POST "+bp+"/auth/login", loginLimiter.Wrap(r.handleLogin))
	mux.HandleFunc("POST "+bp+"/profiles", registerLimiter.Wrap(r.handleRegister))

	mux.HandleFunc("GET "+bp+"/artists", r.handleListArtists)
	mux.HandleFunc("GET "+bp+"/artists/{id}", r.handleGetArtist)
	mux.HandleFunc("GET "+bp+"/artists/{id}/albums", r.handleListArtistAlbums)
	mux.HandleFunc("GET "+bp+"/albums", r.handleListAlbums)
	mux.HandleFunc("GET "+bp+"/albums/{id}", r.handleGetAlbum)
	mux.HandleFunc("GET "+bp+"/songs", r.handleListSongs)
	mux.HandleFunc("GET "+bp+"/songs/{id}", r.handleGetSong)
	mux.HandleFunc("GET "+bp+"/playlists", r.handleListPlaylists)
	mux.HandleFunc("GET "+bp+"/playlists/{id}", r.handleGetPlaylist)
	mux.HandleFunc("GET "+bp+"/playlists/owner/{username}", r.handleListOwnerPlaylists)
	mux.HandleFunc("GET "+bp+"/profiles", r.handleListProfiles)
	mux.HandleFunc("GET "+bp+"/profiles/{username}", r.handleGetProfile)

	// Protected routes (auth required). Users manage their own playlists
	// and profile; catalog curation and operations need the admin role.
	mux.HandleFunc("POST "+bp+"/auth/logout", wrapAuth(r.handleLogout, authMw))
	mux.HandleFunc("GET "+bp+"/auth/me", wrapAuth(r.handleMe, authMw))

	mux.HandleFunc("POST "+bp+"/artists", wrapAdmin(r.handleCreateArtist, authMw))
	mux.HandleFunc("PUT "+bp+"/artists/{id}", wrapAdmin(r.handleUpdateArtist, authMw))
	mux.HandleFunc("DELETE "+bp+"/artists/{id}", wrapAdmin(r.handleDeleteArtist, authMw))

	mux.HandleFunc("POST "+bp+"/albums", wrapAdmin(r.handleCreateAlbum, authMw))
	mux.HandleFunc("PUT "+bp+"/albums/{id}", wrapAdmin(r.handleUpdateAlbum, authMw))
	mux.HandleFunc("DELETE "+bp+"/albums/{id}", wrapAdmin(r.handleDeleteAlbum, authMw))

	mux.HandleFunc("POST "+bp+"/songs", wrapAdmin(r.handleCreateSong, authMw))
	mux.HandleFunc("PUT "+bp+"/songs/{id}", wrapAdmin(r.handleUpdateSong, authMw))
	mux.HandleFunc("DELETE "+bp+"/songs/{id}", wrapAdmin(r.handleDeleteSong, authMw))

	mux.HandleFunc("POST "+bp+"/playlists", wrapAuth(r.handleCreatePlaylist, authMw))
	mux.HandleFunc("PUT "+bp+"/playlists/{id}", wrapAuth(r.handleUpdatePlaylist, authMw))
	mux.HandleFunc("PUT "+bp+"/playlists/{id}/songs", wrapAuth(r.handleSetPlaylistSongs, authMw))
	mux.HandleFunc("DELETE "+bp+"/playlists/{id}", wrapAuth(r.handleDeletePlaylist, authMw))

	mux.HandleFunc("DELETE "+bp+"/profiles/{username}", wrapAuth(r.handleDeleteProfile, authMw))

	mux.HandleFunc("POST "+bp+"/catalog/import", wrapAdmin(importLimiter.Wrap(r.handleImport), authMw))

	mux.HandleFunc("GET "+bp+"/logging", wrapAdmin(r.handleGetLogging, authMw))
	mux.HandleFunc("PUT "+bp+"/logging", wrapAdmin(r.handleUpdateLogging, authMw))

	mux.HandleFunc("GET "+bp+"/maintenance/status", wrapAdmin(r.handleMaintenanceStatus, authMw))
	mux.HandleFunc("POST "+bp+"/maintenance/optimize", wrapAdmin(r.handleMaintenanceOptimize, authMw))
	mux.HandleFunc("GET "+bp+"/maintenance/backups", wrapAdmin(r.handleListBackups, authMw))
	mux.HandleFunc("POST "+bp+"/maintenance/backups", wrapAdmin(r.handleCreateBackup, authMw))

	return middleware.Logging(r.logger)(middleware.SecurityHeaders(mux))
}

// wrapAuth wraps a handler function with auth middleware.
func wrapAuth(fn http.HandlerFunc, authMw func(http.Handler) http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authMw(fn).ServeHTTP(w, r)
	}
}

// wrapAdmin wraps a handler function with auth middleware and an admin check.
func wrapAdmin(fn http.HandlerFunc, authMw func(http.Handler) http.Handler) http.HandlerFunc {
	return wrapAuth(middleware.RequireAdmin(fn), authMw)
}
