package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sydlexius/phonyfy/internal/account"
	"github.com/sydlexius/phonyfy/internal/catalog"
	"github.com/sydlexius/phonyfy/internal/database"
	"github.com/sydlexius/phonyfy/internal/ingest"
	"github.com/sydlexius/phonyfy/internal/logging"
	"github.com/sydlexius/phonyfy/internal/maintenance"
)

const discoveryYAML = `
albums:
  - artist: Daft Punk
    artist_type: Electronic music duo
    name: Discovery
    release_date: 2001-03-12
    tracks:
      - {name: One More Time, genre: Electronic, duration: "5:20"}
      - {name: Aerodynamic, genre: Electronic, duration: "3:32"}
      - {name: Digital Love, genre: Electronic, duration: "5:01"}
`

type testServer struct {
	t       *testing.T
	handler http.Handler
	logs    *bytes.Buffer
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { _ = db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	var logs bytes.Buffer
	logManager, _ := logging.NewManagerWithOutput(logging.DefaultConfig(), &logs)
	t.Cleanup(func() { _ = logManager.Close() })

	coord := catalog.NewCoordinator(db, logger)
	router := NewRouter(RouterDeps{
		Catalog:     coord,
		Accounts:    account.NewService(db, logger),
		Ingester:    ingest.NewIngester(coord, logger),
		LogManager:  logManager,
		Maintenance: maintenance.NewService(db, ":memory:", t.TempDir(), 2, logger),
		Logger:      logger,
		BasePath:    "/phonyfy",
		ImportRate:  10,
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return &testServer{t: t, handler: router.Handler(ctx), logs: &logs}
}

// do sends a request and returns the recorder. body may be nil, a string
// sent verbatim, or any value encoded as JSON.
func (s *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(s.t, err)
		rd = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, "/phonyfy/api/v1"+path, rd)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	return w
}

// user registers an account and returns a bearer token for it.
func (s *testServer) user(name string) string {
	s.t.Helper()
	creds := map[string]string{"username": name, "password": "s3cret-pass"}
	w := s.do(http.MethodPost, "/profiles", "", creds)
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(http.MethodPost, "/auth/login", "", creds)
	require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())
	var out map[string]string
	decode(s.t, w, &out)
	require.Len(s.t, out["token"], 64)
	return out["token"]
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func errorOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	decode(t, w, &body)
	return body["error"]
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w := s.do(http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]string
	decode(t, w, &body)
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
}

func TestMutationsRequireToken(t *testing.T) {
	s := newTestServer(t)
	routes := []struct{ method, path string }{
		{http.MethodPost, "/artists"},
		{http.MethodPut, "/artists/1"},
		{http.MethodDelete, "/albums/1"},
		{http.MethodPost, "/songs"},
		{http.MethodPut, "/playlists/1/songs"},
		{http.MethodDelete, "/profiles/alice"},
		{http.MethodPost, "/catalog/import"},
		{http.MethodPut, "/logging"},
	}
	for _, rt := range routes {
		w := s.do(rt.method, rt.path, "", "{}")
		assert.Equal(t, http.StatusUnauthorized, w.Code, "%s %s", rt.method, rt.path)
	}
	w := s.do(http.MethodPost, "/artists", "not-a-token", map[string]string{"name": "X"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCatalogFlow(t *testing.T) {
	s := newTestServer(t)
	tok := s.user("alice")

	w := s.do(http.MethodPost, "/albums", tok, map[string]any{
		"name":         "Discovery",
		"release_date": "2001-03-12",
		"artist_name":  "Daft Punk",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var raw map[string]any
	decode(t, w, &raw)
	assert.Equal(t, "2001-03-12", raw["release_date"])
	assert.Equal(t, "0:00", raw["total_duration"])
	albumID := int64(raw["id"].(float64))

	for _, d := range []string{"5:20", "3:32", "5:01"} {
		w = s.do(http.MethodPost, "/songs", tok, map[string]any{
			"name":             "Track " + d,
			"genre":            "Electronic",
			"duration":         d,
			"main_artist_name": "daft punk",
			"album_name":       "DISCOVERY",
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	w = s.do(http.MethodGet, "/albums/"+itoa(albumID), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &raw)
	assert.Equal(t, "13:53", raw["total_duration"])
	assert.Equal(t, "Daft Punk", raw["artist_name"])

	w = s.do(http.MethodGet, "/artists", "", nil)
	var artists []catalog.Artist
	decode(t, w, &artists)
	require.Len(t, artists, 1)

	w = s.do(http.MethodGet, "/artists/"+itoa(artists[0].ID)+"/albums", "", nil)
	var albums []map[string]any
	decode(t, w, &albums)
	require.Len(t, albums, 1)

	w = s.do(http.MethodGet, "/songs", "", nil)
	var songs []catalog.Song
	decode(t, w, &songs)
	require.Len(t, songs, 3)
	assert.Equal(t, "Daft Punk", songs[0].ArtistName)

	// Shorten one song; the album total follows.
	w = s.do(http.MethodPut, "/songs/"+itoa(songs[0].ID), tok, map[string]string{"duration": "0:20"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = s.do(http.MethodGet, "/albums/"+itoa(albumID), "", nil)
	decode(t, w, &raw)
	assert.Equal(t, "8:53", raw["total_duration"])

	w = s.do(http.MethodDelete, "/artists/"+itoa(artists[0].ID), tok, nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	w = s.do(http.MethodGet, "/songs", "", nil)
	decode(t, w, &songs)
	assert.Empty(t, songs)
}

func TestErrorMapping(t *testing.T) {
	s := newTestServer(t)
	tok := s.user("alice")

	w := s.do(http.MethodPost, "/artists", tok, map[string]string{"name": "Daft Punk"})
	require.Equal(t, http.StatusCreated, w.Code)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
	}{
		{"missing artist", http.MethodGet, "/artists/999", nil, http.StatusNotFound},
		{"bad id", http.MethodGet, "/songs/abc", nil, http.StatusBadRequest},
		{"duplicate artist", http.MethodPost, "/artists", map[string]string{"name": "daft punk"}, http.StatusConflict},
		{"blank artist", http.MethodPost, "/artists", map[string]string{"name": "  "}, http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/artists", map[string]string{"nom": "x"}, http.StatusBadRequest},
		{"empty body", http.MethodPost, "/artists", "", http.StatusBadRequest},
		{"bad release date", http.MethodPost, "/albums", map[string]any{"name": "A", "artist_name": "X", "release_date": "12/03/2001"}, http.StatusBadRequest},
		{"album artist id missing", http.MethodPost, "/albums", map[string]any{"name": "A", "artist_id": 42, "release_date": "2001-03-12"}, http.StatusNotFound},
		{"song album absent", http.MethodPost, "/songs", map[string]any{"name": "S", "duration": "3:00", "main_artist_name": "Daft Punk", "album_name": "Nope"}, http.StatusNotFound},
		{"song without album", http.MethodPost, "/songs", map[string]any{"name": "S", "duration": "3:00", "main_artist_name": "Daft Punk"}, http.StatusConflict},
		{"missing profile", http.MethodGet, "/profiles/nobody", nil, http.StatusNotFound},
		{"missing owner playlists", http.MethodGet, "/playlists/owner/nobody", nil, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(tt.method, tt.path, tok, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.NotEmpty(t, errorOf(t, w))
		})
	}
}

func TestMalformedDuration(t *testing.T) {
	s := newTestServer(t)
	tok := s.user("alice")

	w := s.do(http.MethodPost, "/albums", tok, map[string]any{"name": "Discovery", "artist_name": "Daft Punk", "release_date": "2001-03-12"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = s.do(http.MethodPost, "/songs", tok, map[string]any{
		"name": "One More Time", "duration": "5:2x",
		"main_artist_name": "Daft Punk", "album_name": "Discovery",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, errorOf(t, w), "5:2x")
}

func TestPlaylists(t *testing.T) {
	s := newTestServer(t)
	alice := s.user("alice")
	bob := s.user("bob")

	w := s.do(http.MethodPost, "/catalog/import", alice, discoveryYAML)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodPost, "/playlists", alice, map[string]any{"name": "Mix", "song_ids": []int64{3, 1}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var p catalog.Playlist
	decode(t, w, &p)
	assert.Equal(t, "alice", p.OwnerUsername)
	assert.Equal(t, []int64{1, 3}, p.SongIDs)
	assert.Equal(t, "10:21", p.TotalDuration)

	// Someone else's playlist.
	w = s.do(http.MethodPost, "/playlists", bob, map[string]any{"name": "Mine", "owner_username": "alice"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = s.do(http.MethodPut, "/playlists/"+itoa(p.ID)+"/songs", bob, map[string]any{"song_ids": []int64{2}})
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = s.do(http.MethodDelete, "/playlists/"+itoa(p.ID), bob, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// A missing song aborts the whole replacement.
	w = s.do(http.MethodPut, "/playlists/"+itoa(p.ID)+"/songs", alice, map[string]any{"song_ids": []int64{2, 99}})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, errorOf(t, w), "99")
	w = s.do(http.MethodGet, "/playlists/"+itoa(p.ID), "", nil)
	decode(t, w, &p)
	assert.Equal(t, []int64{1, 3}, p.SongIDs)
	assert.Equal(t, "10:21", p.TotalDuration)

	w = s.do(http.MethodPut, "/playlists/"+itoa(p.ID), alice, map[string]any{"name": "Renamed", "song_ids": []int64{2}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &p)
	assert.Equal(t, "Renamed", p.Name)
	assert.Equal(t, "3:32", p.TotalDuration)

	w = s.do(http.MethodGet, "/playlists/owner/alice", "", nil)
	var owned []catalog.Playlist
	decode(t, w, &owned)
	require.Len(t, owned, 1)

	w = s.do(http.MethodDelete, "/playlists/"+itoa(p.ID), alice, nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	w = s.do(http.MethodGet, "/profiles/alice", "", nil)
	var prof catalog.UserProfile
	decode(t, w, &prof)
	assert.Empty(t, prof.PlaylistIDs)
}

func TestDeleteProfile(t *testing.T) {
	s := newTestServer(t)
	alice := s.user("alice")
	bob := s.user("bob")

	w := s.do(http.MethodPost, "/playlists", alice, map[string]any{"name": "Empty"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = s.do(http.MethodDelete, "/profiles/alice", bob, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodDelete, "/profiles/alice", alice, nil)
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

	w = s.do(http.MethodGet, "/playlists", "", nil)
	var all []catalog.Playlist
	decode(t, w, &all)
	assert.Empty(t, all)

	// The session went with the account.
	w = s.do(http.MethodGet, "/auth/me", alice, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = s.do(http.MethodPost, "/auth/login", "", map[string]string{"username": "alice", "password": "s3cret-pass"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t)
	tok := s.user("alice")

	w := s.do(http.MethodGet, "/auth/me", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var prof catalog.UserProfile
	decode(t, w, &prof)
	assert.Equal(t, "alice", prof.Username)

	w = s.do(http.MethodPost, "/profiles", "", map[string]string{"username": "alice", "password": "another-pass"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(http.MethodPost, "/auth/login", "", map[string]string{"username": "alice", "password": "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodPost, "/auth/logout", tok, nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	w = s.do(http.MethodGet, "/auth/me", tok, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoginRateLimited(t *testing.T) {
	s := newTestServer(t)
	creds := map[string]string{"username": "ghost", "password": "whatever"}
	for i := 0; i < 5; i++ {
		w := s.do(http.MethodPost, "/auth/login", "", creds)
		require.Equal(t, http.StatusUnauthorized, w.Code)
	}
	w := s.do(http.MethodPost, "/auth/login", "", creds)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestImport(t *testing.T) {
	s := newTestServer(t)
	tok := s.user("alice")

	w := s.do(http.MethodPost, "/catalog/import", tok, discoveryYAML)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res catalog.IngestResult
	decode(t, w, &res)
	assert.Equal(t, catalog.IngestResult{Artists: 1, Albums: 1, Songs: 3}, res)

	w = s.do(http.MethodPost, "/catalog/import", tok, discoveryYAML)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &res)
	assert.Equal(t, catalog.IngestResult{Skipped: 3}, res)

	w = s.do(http.MethodPost, "/catalog/import", tok, "albums: [")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLoggingEndpoint(t *testing.T) {
	s := newTestServer(t)
	tok := s.user("alice")

	w := s.do(http.MethodGet, "/logging", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var cfg logging.Config
	decode(t, w, &cfg)
	assert.Equal(t, "info", cfg.Level)

	w = s.do(http.MethodPut, "/logging", tok, map[string]string{"level": "debug"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &cfg)
	assert.Equal(t, "debug", cfg.Level)
	assert.Equal(t, "json", cfg.Format)

	w = s.do(http.MethodPut, "/logging", tok, map[string]string{"format": "xml"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// The log file location is fixed by the config file.
	foreign := filepath.Join(t.TempDir(), "elsewhere", "nested", "x.log")
	w = s.do(http.MethodPut, "/logging", tok, map[string]string{"file_path": foreign})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, errorOf(t, w), "file_path")
	_, err := os.Stat(filepath.Dir(foreign))
	assert.True(t, os.IsNotExist(err), "no directory may be created for a rejected path")

	w = s.do(http.MethodGet, "/logging", tok, nil)
	decode(t, w, &cfg)
	assert.Empty(t, cfg.FilePath)
	assert.Equal(t, "debug", cfg.Level)
}

func TestAdminRoleRequired(t *testing.T) {
	s := newTestServer(t)
	admin := s.user("alice")
	other := s.user("bob")

	w := s.do(http.MethodPost, "/catalog/import", admin, discoveryYAML)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = s.do(http.MethodPost, "/playlists", admin, map[string]any{"name": "Mix", "song_ids": []int64{1, 2, 3}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var p catalog.Playlist
	decode(t, w, &p)
	require.Equal(t, "13:53", p.TotalDuration)

	var me map[string]any
	decode(t, s.do(http.MethodGet, "/auth/me", admin, nil), &me)
	assert.Equal(t, "admin", me["role"])
	decode(t, s.do(http.MethodGet, "/auth/me", other, nil), &me)
	assert.Equal(t, "user", me["role"])
	assert.Equal(t, "bob", me["username"])

	routes := []struct {
		method, path string
		body         any
	}{
		{http.MethodPost, "/artists", map[string]string{"name": "Air"}},
		{http.MethodPut, "/artists/1", map[string]string{"name": "Air"}},
		{http.MethodDelete, "/artists/1", nil},
		{http.MethodPost, "/albums", map[string]any{"name": "X", "artist_id": 1, "release_date": "2001-03-12"}},
		{http.MethodPut, "/albums/1", map[string]string{"name": "X"}},
		{http.MethodDelete, "/albums/1", nil},
		{http.MethodPost, "/songs", map[string]any{"name": "S", "duration": "1:00", "main_artist_id": 1, "album_id": 1}},
		{http.MethodPut, "/songs/1", map[string]string{"duration": "0:01"}},
		{http.MethodDelete, "/songs/1", nil},
		{http.MethodPost, "/catalog/import", discoveryYAML},
		{http.MethodGet, "/logging", nil},
		{http.MethodPut, "/logging", map[string]string{"level": "debug"}},
		{http.MethodGet, "/maintenance/status", nil},
		{http.MethodPost, "/maintenance/optimize", nil},
		{http.MethodGet, "/maintenance/backups", nil},
		{http.MethodPost, "/maintenance/backups", nil},
	}
	for _, rt := range routes {
		w := s.do(rt.method, rt.path, other, rt.body)
		assert.Equal(t, http.StatusForbidden, w.Code, "%s %s", rt.method, rt.path)
	}

	// Nothing changed for the admin's playlist.
	w = s.do(http.MethodGet, "/playlists/"+itoa(p.ID), "", nil)
	decode(t, w, &p)
	assert.Equal(t, []int64{1, 2, 3}, p.SongIDs)
	assert.Equal(t, "13:53", p.TotalDuration)

	// Users still manage their own playlists.
	w = s.do(http.MethodPost, "/playlists", other, map[string]any{"name": "Mine", "song_ids": []int64{2}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	decode(t, w, &p)
	assert.Equal(t, "bob", p.OwnerUsername)
	assert.Equal(t, "3:32", p.TotalDuration)
}

func TestMaintenanceEndpoints(t *testing.T) {
	s := newTestServer(t)
	tok := s.user("alice")

	w := s.do(http.MethodPost, "/catalog/import", tok, discoveryYAML)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodGet, "/maintenance/status", tok, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var st maintenance.Status
	decode(t, w, &st)
	assert.Equal(t, int64(3), st.SchemaVersion)
	assert.Equal(t, int64(3), st.Rows["songs"])
	assert.Equal(t, int64(1), st.Rows["user_profiles"])

	w = s.do(http.MethodPost, "/maintenance/optimize", tok, nil)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodPost, "/maintenance/backups", tok, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var info maintenance.BackupInfo
	decode(t, w, &info)
	assert.True(t, maintenance.IsValidBackupFilename(info.Filename))

	w = s.do(http.MethodGet, "/maintenance/backups", tok, nil)
	var backups []maintenance.BackupInfo
	decode(t, w, &backups)
	assert.Len(t, backups, 1)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
