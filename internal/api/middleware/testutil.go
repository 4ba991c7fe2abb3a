package middleware

import (
	"context"

	"github.com/sydlexius/phonyfy/internal/account"
)

// WithTestUsername injects a username into the context. This is intended for
// handler-level unit tests that call handler methods directly (bypassing the
// auth middleware).
func WithTestUsername(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, usernameKey, username)
}

// WithTestRole injects a role alongside the username.
func WithTestRole(ctx context.Context, role account.Role) context.Context {
	return context.WithValue(ctx, roleKey, role)
}
