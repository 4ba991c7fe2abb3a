package catalog

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/sydlexius/phonyfy/internal/database"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("running migrations: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// addAccount inserts the account row a profile depends on.
func addAccount(t *testing.T, db *sql.DB, username string) {
	t.Helper()
	_, err := db.Exec(`INSERT INTO accounts (username, password_hash, created_at) VALUES (?, 'x', ?)`,
		username, now())
	if err != nil {
		t.Fatalf("inserting account %s: %v", username, err)
	}
}

func date(s string) time.Time {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestArtistStore_PutGetUpdate(t *testing.T) {
	st := NewStores(setupTestDB(t))
	ctx := context.Background()

	a := &Artist{Name: "Daft Punk", Type: "Electronic music duo"}
	if err := st.Artists.Put(ctx, a); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if a.ID == 0 {
		t.Fatal("expected id to be assigned")
	}

	got, err := st.Artists.Get(ctx, a.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Name != "Daft Punk" {
		t.Errorf("Name = %q, want %q", got.Name, "Daft Punk")
	}

	id := a.ID
	a.Type = "Duo"
	if err := st.Artists.Put(ctx, a); err != nil {
		t.Fatalf("Put update: %v", err)
	}
	if a.ID != id {
		t.Errorf("ID changed on update: %d -> %d", id, a.ID)
	}
	got, _ = st.Artists.Get(ctx, id)
	if got.Type != "Duo" {
		t.Errorf("Type = %q, want %q", got.Type, "Duo")
	}
}

func TestArtistStore_NotFound(t *testing.T) {
	st := NewStores(setupTestDB(t))
	ctx := context.Background()

	_, err := st.Artists.Get(ctx, 42)
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("Get error = %v, want NotFoundError", err)
	}
	if nf.Entity != EntityArtist {
		t.Errorf("Entity = %q, want %q", nf.Entity, EntityArtist)
	}
	if err := st.Artists.Delete(ctx, 42); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete error = %v, want ErrNotFound", err)
	}
}

func TestArtistStore_FindByNameCaseInsensitive(t *testing.T) {
	st := NewStores(setupTestDB(t))
	ctx := context.Background()

	if err := st.Artists.Put(ctx, &Artist{Name: "Röyksopp"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := st.Artists.FindByName(ctx, "  RÖYKSOPP ")
	if err != nil {
		t.Fatalf("FindByName: %v", err)
	}
	if got == nil || got.Name != "Röyksopp" {
		t.Fatalf("FindByName = %+v, want Röyksopp", got)
	}

	missing, err := st.Artists.FindByName(ctx, "Air")
	if err != nil {
		t.Fatalf("FindByName missing: %v", err)
	}
	if missing != nil {
		t.Errorf("FindByName missing = %+v, want nil", missing)
	}
}

func TestNameKey_FoldsCase(t *testing.T) {
	tests := []struct{ a, b string }{
		{"Daft Punk", " daft PUNK"},
		{"Röyksopp", "RÖYKSOPP"},
		// Final sigma and capital sigma fold to the same letter.
		{"σίσυφος", "ΣΊΣΥΦΟΣ"},
	}
	for _, tt := range tests {
		if nameKey(tt.a) != nameKey(tt.b) {
			t.Errorf("nameKey(%q) = %q, nameKey(%q) = %q, want equal", tt.a, nameKey(tt.a), tt.b, nameKey(tt.b))
		}
	}
	if nameKey("Air") == nameKey("Aïr") {
		t.Error("folding must not strip accents")
	}
}

func TestArtistStore_FindByNameFinalSigma(t *testing.T) {
	st := NewStores(setupTestDB(t))
	ctx := context.Background()

	if err := st.Artists.Put(ctx, &Artist{Name: "ΣΙΣΥΦΟΣ"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := st.Artists.FindByName(ctx, "σισυφος")
	if err != nil {
		t.Fatalf("FindByName: %v", err)
	}
	if got == nil || got.Name != "ΣΙΣΥΦΟΣ" {
		t.Fatalf("FindByName = %+v, want ΣΙΣΥΦΟΣ", got)
	}
}

func TestArtistStore_UniqueName(t *testing.T) {
	st := NewStores(setupTestDB(t))
	ctx := context.Background()

	if err := st.Artists.Put(ctx, &Artist{Name: "Justice"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	err := st.Artists.Put(ctx, &Artist{Name: "JUSTICE"})
	if !errors.Is(err, ErrIntegrity) {
		t.Fatalf("duplicate Put error = %v, want ErrIntegrity", err)
	}
}

func TestStores_IDsNeverReused(t *testing.T) {
	st := NewStores(setupTestDB(t))
	ctx := context.Background()

	first := &Artist{Name: "First"}
	if err := st.Artists.Put(ctx, first); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := st.Artists.Delete(ctx, first.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	second := &Artist{Name: "Second"}
	if err := st.Artists.Put(ctx, second); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if second.ID <= first.ID {
		t.Errorf("second id %d reused or lower than deleted id %d", second.ID, first.ID)
	}
}

func TestAlbumStore_ListInsertionOrder(t *testing.T) {
	st := NewStores(setupTestDB(t))
	ctx := context.Background()

	a := &Artist{Name: "Air"}
	if err := st.Artists.Put(ctx, a); err != nil {
		t.Fatalf("Put artist: %v", err)
	}
	for _, name := range []string{"Moon Safari", "Talkie Walkie", "10 000 Hz Legend"} {
		al := &Album{Name: name, ReleaseDate: date("1998-01-16"), ArtistID: a.ID}
		if err := st.Albums.Put(ctx, al); err != nil {
			t.Fatalf("Put album %s: %v", name, err)
		}
		if al.TotalDuration != "0:00" {
			t.Errorf("new album TotalDuration = %q, want 0:00", al.TotalDuration)
		}
	}

	albums, err := st.Albums.ListByArtist(ctx, a.ID)
	if err != nil {
		t.Fatalf("ListByArtist: %v", err)
	}
	if len(albums) != 3 {
		t.Fatalf("got %d albums, want 3", len(albums))
	}
	if albums[0].Name != "Moon Safari" || albums[2].Name != "10 000 Hz Legend" {
		t.Errorf("unexpected order: %q, %q", albums[0].Name, albums[2].Name)
	}
	if albums[1].ArtistName != "Air" {
		t.Errorf("ArtistName = %q, want %q", albums[1].ArtistName, "Air")
	}
	if got := albums[0].ReleaseDateString(); got != "1998-01-16" {
		t.Errorf("ReleaseDate = %q, want %q", got, "1998-01-16")
	}
}

func TestPlaylistStore_ReplaceSongsDedupes(t *testing.T) {
	db := setupTestDB(t)
	st := NewStores(db)
	ctx := context.Background()
	addAccount(t, db, "alice")

	a := &Artist{Name: "Air"}
	_ = st.Artists.Put(ctx, a)
	al := &Album{Name: "Moon Safari", ReleaseDate: date("1998-01-16"), ArtistID: a.ID}
	_ = st.Albums.Put(ctx, al)
	var ids []int64
	for _, name := range []string{"La femme d'argent", "Sexy Boy"} {
		s := &Song{Name: name, Duration: "3:00", ArtistID: a.ID, AlbumID: al.ID}
		if err := st.Songs.Put(ctx, s); err != nil {
			t.Fatalf("Put song: %v", err)
		}
		ids = append(ids, s.ID)
	}

	if err := st.Profiles.Put(ctx, &UserProfile{Username: "alice"}); err != nil {
		t.Fatalf("Put profile: %v", err)
	}
	p := &Playlist{Name: "Chill", OwnerUsername: "alice"}
	if err := st.Playlists.Put(ctx, p); err != nil {
		t.Fatalf("Put playlist: %v", err)
	}

	if err := st.Playlists.ReplaceSongs(ctx, p.ID, []int64{ids[1], ids[0], ids[1]}); err != nil {
		t.Fatalf("ReplaceSongs: %v", err)
	}
	got, err := st.Playlists.SongIDs(ctx, p.ID)
	if err != nil {
		t.Fatalf("SongIDs: %v", err)
	}
	if len(got) != 2 || got[0] != ids[0] || got[1] != ids[1] {
		t.Errorf("SongIDs = %v, want %v", got, ids)
	}

	inverse, err := st.Songs.PlaylistIDs(ctx, ids[0])
	if err != nil {
		t.Fatalf("PlaylistIDs: %v", err)
	}
	if len(inverse) != 1 || inverse[0] != p.ID {
		t.Errorf("PlaylistIDs = %v, want [%d]", inverse, p.ID)
	}
}

func TestPlaylistStore_MissingOwner(t *testing.T) {
	st := NewStores(setupTestDB(t))
	err := st.Playlists.Put(context.Background(), &Playlist{Name: "Orphan", OwnerUsername: "nobody"})
	var nf *NotFoundError
	if !errors.As(err, &nf) || nf.Entity != EntityProfile {
		t.Fatalf("Put error = %v, want UserProfile NotFound", err)
	}
}

func TestProfileStore_RequiresAccount(t *testing.T) {
	db := setupTestDB(t)
	st := NewStores(db)
	ctx := context.Background()

	err := st.Profiles.Put(ctx, &UserProfile{Username: "ghost"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Put without account error = %v, want ErrNotFound", err)
	}

	addAccount(t, db, "bob")
	if err := st.Profiles.Put(ctx, &UserProfile{Username: "bob"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	// A second put is a no-op.
	if err := st.Profiles.Put(ctx, &UserProfile{Username: "bob"}); err != nil {
		t.Fatalf("second Put: %v", err)
	}
	profiles, err := st.Profiles.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(profiles) != 1 || profiles[0].Username != "bob" {
		t.Errorf("List = %+v, want [bob]", profiles)
	}
	if profiles[0].PlaylistIDs == nil {
		t.Error("PlaylistIDs should be an empty slice, not nil")
	}
}
