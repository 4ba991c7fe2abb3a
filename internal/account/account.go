// Package account manages login credentials and sessions. Every account is
// registered together with the user profile that owns playlists.
package account

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/sydlexius/phonyfy/internal/catalog"
	"github.com/sydlexius/phonyfy/internal/database"
)

const (
	sessionDuration   = 24 * time.Hour
	minPasswordLength = 6
)

var (
	// ErrInvalidCredentials is returned for an unknown user or a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidSession is returned for an unknown or expired session token.
	ErrInvalidSession = errors.New("invalid session")
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

// Role controls what a signed-in account may change. Admins curate the
// catalog and run operational endpoints; users manage their own playlists.
type Role string

// Roles.
const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// ParseRole validates a role name.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleAdmin, RoleUser:
		return r, nil
	}
	return "", &catalog.ValidationError{Field: "role", Reason: fmt.Sprintf("unknown role %q: must be admin or user", s)}
}

// Session identifies the account behind a valid session token.
type Session struct {
	Username string
	Role     Role
}

// IsAdmin reports whether the session belongs to an admin.
func (s Session) IsAdmin() bool { return s.Role == RoleAdmin }

// Service provides registration and session operations.
type Service struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewService creates an account service.
func NewService(db *sql.DB, logger *slog.Logger) *Service {
	return &Service{db: db, logger: logger.With("component", "account")}
}

// Register creates an account and its user profile in one transaction. The
// first account ever registered becomes the admin; later ones are users.
func (s *Service) Register(ctx context.Context, username, password string) (*catalog.UserProfile, error) {
	username = strings.TrimSpace(username)
	if !usernamePattern.MatchString(username) {
		return nil, &catalog.ValidationError{Field: "username", Reason: "must be 1-64 letters, digits, dots, dashes or underscores"}
	}
	if len(password) < minPasswordLength {
		return nil, &catalog.ValidationError{Field: "password", Reason: fmt.Sprintf("must be at least %d characters", minPasswordLength)}
	}

	hash, err := bcrypt.GenerateFromPassword(prehashPassword(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	var (
		profile *catalog.UserProfile
		role    Role
	)
	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var exists bool
		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM accounts WHERE username = ?)`, username).Scan(&exists); err != nil {
			return fmt.Errorf("checking account: %w", err)
		}
		if exists {
			return &catalog.IntegrityError{Description: fmt.Sprintf("username %q is taken", username)}
		}

		var count int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&count); err != nil {
			return fmt.Errorf("counting accounts: %w", err)
		}
		role = RoleUser
		if count == 0 {
			role = RoleAdmin
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO accounts (username, password_hash, role, created_at) VALUES (?, ?, ?, ?)`,
			username, string(hash), string(role), time.Now().UTC().Format(time.RFC3339)); err != nil {
			return fmt.Errorf("creating account: %w", err)
		}

		p, err := catalog.CreateProfile(ctx, catalog.NewStores(tx), username)
		if err != nil {
			return err
		}
		profile = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("account registered", "username", username, "role", role)
	return profile, nil
}

// Login verifies credentials and returns a new session token.
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	var hash string
	err := s.db.QueryRowContext(ctx,
		`SELECT password_hash FROM accounts WHERE username = ?`, username).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", fmt.Errorf("querying account: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), prehashPassword(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	token, err := generateToken()
	if err != nil {
		return "", fmt.Errorf("generating session token: %w", err)
	}

	created := time.Now().UTC()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (token, username, created_at, expires_at)
		VALUES (?, ?, ?, ?)
	`, token, username, created.Format(time.RFC3339), created.Add(sessionDuration).Format(time.RFC3339))
	if err != nil {
		return "", fmt.Errorf("creating session: %w", err)
	}

	return token, nil
}

// ValidateSession returns the account a session token belongs to.
func (s *Service) ValidateSession(ctx context.Context, token string) (Session, error) {
	var sess Session
	var role, expiresAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT s.username, a.role, s.expires_at
		FROM sessions s JOIN accounts a ON a.username = s.username
		WHERE s.token = ?
	`, token).Scan(&sess.Username, &role, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrInvalidSession
	}
	if err != nil {
		return Session{}, fmt.Errorf("querying session: %w", err)
	}
	sess.Role = Role(role)

	expires, err := time.Parse(time.RFC3339, expiresAt)
	if err != nil {
		return Session{}, fmt.Errorf("parsing expiry: %w", err)
	}
	if time.Now().UTC().After(expires) {
		_ = s.Logout(ctx, token)
		return Session{}, ErrInvalidSession
	}

	return sess, nil
}

// SetRole changes an account's role. Demoting the last admin is refused so
// the catalog always has someone able to curate it.
func (s *Service) SetRole(ctx context.Context, username string, role Role) error {
	if _, err := ParseRole(string(role)); err != nil {
		return err
	}
	return database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var current string
		err := tx.QueryRowContext(ctx, `SELECT role FROM accounts WHERE username = ?`, username).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return &catalog.NotFoundError{Entity: catalog.EntityAccount, Key: username}
		}
		if err != nil {
			return fmt.Errorf("querying account: %w", err)
		}
		if Role(current) == role {
			return nil
		}

		if Role(current) == RoleAdmin {
			var admins int
			if err := tx.QueryRowContext(ctx,
				`SELECT COUNT(*) FROM accounts WHERE role = ?`, string(RoleAdmin)).Scan(&admins); err != nil {
				return fmt.Errorf("counting admins: %w", err)
			}
			if admins <= 1 {
				return &catalog.IntegrityError{Description: fmt.Sprintf("%q is the last admin", username)}
			}
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE accounts SET role = ? WHERE username = ?`, string(role), username); err != nil {
			return fmt.Errorf("updating role: %w", err)
		}
		s.logger.Info("account role changed", "username", username, "role", role)
		return nil
	})
}

// Logout deletes a session.
func (s *Service) Logout(ctx context.Context, token string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// CleanExpiredSessions removes all expired sessions and reports how many.
func (s *Service) CleanExpiredSessions(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE expires_at < ?`, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("cleaning sessions: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}

// Delete removes an account and its sessions. The user profile must already
// be deleted through the catalog so that its playlists go with it.
func (s *Service) Delete(ctx context.Context, username string) error {
	return database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var hasProfile bool
		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM user_profiles WHERE username = ?)`, username).Scan(&hasProfile); err != nil {
			return fmt.Errorf("checking profile: %w", err)
		}
		if hasProfile {
			return &catalog.IntegrityError{Description: fmt.Sprintf("account %q still has a profile", username)}
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE username = ?`, username); err != nil {
			return fmt.Errorf("deleting sessions: %w", err)
		}
		result, err := tx.ExecContext(ctx, `DELETE FROM accounts WHERE username = ?`, username)
		if err != nil {
			return fmt.Errorf("deleting account: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("checking rows affected: %w", err)
		}
		if n == 0 {
			return &catalog.NotFoundError{Entity: catalog.EntityAccount, Key: username}
		}
		return nil
	})
}

// prehashPassword hashes the password with SHA-256 before bcrypt to support
// passwords longer than bcrypt's 72-byte limit. The hex-encoded SHA-256
// digest is 64 bytes, safely within the limit.
func prehashPassword(password string) []byte {
	h := sha256.Sum256([]byte(password))
	return []byte(hex.EncodeToString(h[:]))
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
