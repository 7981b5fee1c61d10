package common

import (
	"context"
	"time"
)

// UserContext holds the authenticated user attached to a request by the
// bearer token middleware. When absent (nil), the request is anonymous.
type UserContext struct {
	UserID   string
	Email    string
	Provider string
	AuthTime time.Time
}

type contextKey int

const userContextKey contextKey = iota

// WithUserContext stores a UserContext in the request context.
func WithUserContext(ctx context.Context, uc *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey, uc)
}

// UserContextFromContext retrieves the UserContext from context, or nil if absent.
func UserContextFromContext(ctx context.Context) *UserContext {
	uc, _ := ctx.Value(userContextKey).(*UserContext)
	return uc
}

// ResolveUserID returns the UserID from context, or "" when the request is anonymous.
// Used by services and storage operations that need a user scope.
func ResolveUserID(ctx context.Context) string {
	if uc := UserContextFromContext(ctx); uc != nil {
		return uc.UserID
	}
	return ""
}

// ResolveEmail returns the authenticated user's email, or "" when anonymous.
func ResolveEmail(ctx context.Context) string {
	if uc := UserContextFromContext(ctx); uc != nil {
		return uc.Email
	}
	return ""
}
