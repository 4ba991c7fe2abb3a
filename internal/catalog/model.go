package catalog

import (
	"encoding/json"
	"time"
)

// Entity names used in NotFound errors.
const (
	EntityArtist   = "Artist"
	EntityAlbum    = "Album"
	EntitySong     = "Song"
	EntityPlaylist = "Playlist"
	EntityProfile  = "UserProfile"
	EntityAccount  = "Account"
)

// DateLayout is the calendar-date layout for album release dates.
const DateLayout = "2006-01-02"

// Artist is a performer or group. Name is the natural key, unique after case folding.
type Artist struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// Album belongs to exactly one artist. TotalDuration is derived from its songs.
type Album struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	ReleaseDate   time.Time `json:"-"`
	TotalDuration string    `json:"total_duration"`
	ArtistID      int64     `json:"artist_id"`
	ArtistName    string    `json:"artist_name"`
}

// ReleaseDateString formats the release date as a calendar date.
func (a *Album) ReleaseDateString() string {
	if a.ReleaseDate.IsZero() {
		return ""
	}
	return a.ReleaseDate.Format(DateLayout)
}

// MarshalJSON renders the release date as a calendar date rather than a timestamp.
func (a Album) MarshalJSON() ([]byte, error) {
	type plain Album
	return json.Marshal(struct {
		plain
		ReleaseDate string `json:"release_date"`
	}{plain: plain(a), ReleaseDate: a.ReleaseDateString()})
}

// Song belongs to one artist and one album and may sit in any number of playlists.
type Song struct {
	ID             int64   `json:"id"`
	Name           string  `json:"name"`
	Genre          string  `json:"genre"`
	FeaturedArtist *string `json:"featured_artist"`
	Duration       string  `json:"duration"`
	ArtistID       int64   `json:"main_artist_id"`
	ArtistName     string  `json:"main_artist_name"`
	AlbumID        int64   `json:"album_id"`
	AlbumName      string  `json:"album_name"`
}

// Playlist is owned by one user profile and holds a set of songs.
type Playlist struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	TotalDuration string  `json:"total_duration"`
	OwnerUsername string  `json:"owner_username"`
	SongIDs       []int64 `json:"song_ids"`
}

// UserProfile is keyed by username and owns playlists.
type UserProfile struct {
	Username    string  `json:"username"`
	PlaylistIDs []int64 `json:"playlist_ids"`
}

// Ref points at an artist or album either by id or by natural key. ID wins
// when both are set.
type Ref struct {
	ID   int64
	Name string
}

// ByID returns a Ref to the entity with the given id.
func ByID(id int64) Ref { return Ref{ID: id} }

// ByName returns a Ref resolved by case-insensitive name.
func ByName(name string) Ref { return Ref{Name: name} }

// IsZero reports whether the ref names nothing.
func (r Ref) IsZero() bool { return r.ID == 0 && r.Name == "" }

// ArtistFields are the caller-supplied attributes of an artist.
type ArtistFields struct {
	Name string
	Type string
}

// AlbumFields are the caller-supplied attributes of an album.
type AlbumFields struct {
	Name        string
	ReleaseDate time.Time
}

// SongFields are the caller-supplied attributes of a song.
type SongFields struct {
	Name           string
	Genre          string
	FeaturedArtist *string
	Duration       string
}

// SongPatch is a partial song update. Nil fields are left unchanged; a
// blank FeaturedArtist clears it.
type SongPatch struct {
	Name           *string
	Genre          *string
	FeaturedArtist *string
	Duration       *string
	AlbumID        *int64
}

// PlaylistPatch is a partial playlist update. Nil fields are left unchanged;
// a non-nil SongIDs replaces the membership wholesale.
type PlaylistPatch struct {
	Name    *string
	SongIDs *[]int64
}
