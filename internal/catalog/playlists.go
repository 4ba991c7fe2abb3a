package catalog

import (
	"context"
	"strings"

	"github.com/sydlexius/phonyfy/internal/event"
)

// CreatePlaylist creates a playlist owned by an existing profile with the
// given initial membership. Every song id must exist.
func (c *Coordinator) CreatePlaylist(ctx context.Context, owner, name string, songIDs []int64) (*Playlist, error) {
	owner = strings.TrimSpace(owner)
	name = strings.TrimSpace(name)
	if owner == "" {
		return nil, required("owner username")
	}
	if name == "" {
		return nil, required("name")
	}

	var out *Playlist
	err := c.run(ctx, "create_playlist", func(u *unit) error {
		exists, err := u.st.Profiles.Exists(u.ctx, owner)
		if err != nil {
			return err
		}
		if !exists {
			return notFound(EntityProfile, owner)
		}

		p := &Playlist{Name: name, OwnerUsername: owner}
		if err := u.st.Playlists.Put(u.ctx, p); err != nil {
			return err
		}
		if err := u.setMembership(p.ID, songIDs); err != nil {
			return err
		}
		u.emit(event.PlaylistCreated, map[string]any{"playlist_id": p.ID, "owner": owner, "songs": len(songIDs)})

		if err := u.flush(); err != nil {
			return err
		}
		out, err = u.st.Playlists.Get(u.ctx, p.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SetPlaylistMembership replaces the song set of a playlist. When any id is
// missing the call fails naming the first one and nothing changes.
func (c *Coordinator) SetPlaylistMembership(ctx context.Context, playlistID int64, songIDs []int64) (*Playlist, error) {
	var out *Playlist
	err := c.run(ctx, "set_playlist_membership", func(u *unit) error {
		if _, err := u.st.Playlists.Get(u.ctx, playlistID); err != nil {
			return err
		}
		if err := u.setMembership(playlistID, songIDs); err != nil {
			return err
		}
		u.emit(event.PlaylistUpdated, map[string]any{"playlist_id": playlistID, "songs": len(songIDs)})

		if err := u.flush(); err != nil {
			return err
		}
		var err error
		out, err = u.st.Playlists.Get(u.ctx, playlistID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// setMembership validates every id in input order before touching the join table.
func (u *unit) setMembership(playlistID int64, songIDs []int64) error {
	for _, id := range songIDs {
		exists, err := u.st.Songs.Exists(u.ctx, id)
		if err != nil {
			return err
		}
		if !exists {
			return notFound(EntitySong, id)
		}
	}
	if err := u.st.Playlists.ReplaceSongs(u.ctx, playlistID, songIDs); err != nil {
		return err
	}
	u.touchPlaylist(playlistID)
	return nil
}

// UpdatePlaylist renames a playlist and, when SongIDs is set, replaces its
// membership. The owner of a playlist never changes.
func (c *Coordinator) UpdatePlaylist(ctx context.Context, id int64, patch PlaylistPatch) (*Playlist, error) {
	var out *Playlist
	err := c.run(ctx, "update_playlist", func(u *unit) error {
		p, err := u.st.Playlists.Get(u.ctx, id)
		if err != nil {
			return err
		}
		if patch.Name != nil {
			name := strings.TrimSpace(*patch.Name)
			if name == "" {
				return required("name")
			}
			p.Name = name
			if err := u.st.Playlists.Put(u.ctx, p); err != nil {
				return err
			}
		}
		if patch.SongIDs != nil {
			if err := u.setMembership(id, *patch.SongIDs); err != nil {
				return err
			}
		}
		u.emit(event.PlaylistUpdated, map[string]any{"playlist_id": id})

		if err := u.flush(); err != nil {
			return err
		}
		out, err = u.st.Playlists.Get(u.ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeletePlaylist deletes a playlist. Its songs are untouched.
func (c *Coordinator) DeletePlaylist(ctx context.Context, id int64) error {
	return c.run(ctx, "delete_playlist", func(u *unit) error {
		return u.deletePlaylist(id)
	})
}

// RemovePlaylistFromOwner detaches a playlist from its owner. A playlist
// cannot exist without one, so it is deleted.
func (c *Coordinator) RemovePlaylistFromOwner(ctx context.Context, id int64) error {
	return c.run(ctx, "remove_playlist_from_owner", func(u *unit) error {
		return u.deletePlaylist(id)
	})
}

func (u *unit) deletePlaylist(id int64) error {
	p, err := u.st.Playlists.Get(u.ctx, id)
	if err != nil {
		return err
	}
	if err := u.st.Playlists.ClearSongs(u.ctx, id); err != nil {
		return err
	}
	if err := u.st.Playlists.Delete(u.ctx, id); err != nil {
		return err
	}
	u.emit(event.PlaylistDeleted, map[string]any{"playlist_id": id, "owner": p.OwnerUsername})
	return nil
}

// CreateUserProfile creates the profile for an existing account. Creating a
// profile that already exists is a no-op.
func (c *Coordinator) CreateUserProfile(ctx context.Context, username string) (*UserProfile, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, required("username")
	}

	var out *UserProfile
	err := c.run(ctx, "create_profile", func(u *unit) error {
		p, err := CreateProfile(u.ctx, u.st, username)
		if err != nil {
			return err
		}
		u.emit(event.ProfileCreated, map[string]any{"username": username})
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CreateProfile creates a profile through stores bound to a caller's
// transaction. Account registration uses it to keep account and profile in
// one commit.
func CreateProfile(ctx context.Context, st *Stores, username string) (*UserProfile, error) {
	if err := st.Profiles.Put(ctx, &UserProfile{Username: username}); err != nil {
		return nil, err
	}
	return st.Profiles.Get(ctx, username)
}

// DeleteUserProfile deletes every playlist the profile owns, then the profile.
func (c *Coordinator) DeleteUserProfile(ctx context.Context, username string) error {
	return c.run(ctx, "delete_profile", func(u *unit) error {
		return u.deleteProfile(username)
	})
}

func (u *unit) deleteProfile(username string) error {
	exists, err := u.st.Profiles.Exists(u.ctx, username)
	if err != nil {
		return err
	}
	if !exists {
		return notFound(EntityProfile, username)
	}

	ids, err := u.st.Playlists.IDsByOwner(u.ctx, username)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := ignoreNotFound(u.deletePlaylist(id)); err != nil {
			return err
		}
	}

	if err := u.st.Profiles.Delete(u.ctx, username); err != nil {
		return err
	}
	u.emit(event.ProfileDeleted, map[string]any{"username": username, "playlists": len(ids)})
	return nil
}
