package auth

import "context"

type contextKey struct{}

const (
	RoleParent = "parent"
	RoleChild  = "child"
)

// AuthContext identifies the caller for the duration of a request. Parents
// authenticate with a session cookie, children with a device token; exactly
// one of the two IDs is meaningful for a given role.
type AuthContext struct {
	Role     string
	ParentID int64
	ChildID  int64
}

func WithAuth(ctx context.Context, ac AuthContext) context.Context {
	return context.WithValue(ctx, contextKey{}, ac)
}

func FromContext(ctx context.Context) (AuthContext, bool) {
	ac, ok := ctx.Value(contextKey{}).(AuthContext)
	return ac, ok
}

// ParentID returns the authenticated parent's ID, or 0 for child callers.
func ParentID(ctx context.Context) int64 {
	ac, ok := FromContext(ctx)
	if !ok || ac.Role != RoleParent {
		return 0
	}
	return ac.ParentID
}

// ChildID returns the authenticated child's ID, or 0 for parent callers.
func ChildID(ctx context.Context) int64 {
	ac, ok := FromContext(ctx)
	if !ok || ac.Role != RoleChild {
		return 0
	}
	return ac.ChildID
}

func IsParent(ctx context.Context) bool {
	ac, ok := FromContext(ctx)
	return ok && ac.Role == RoleParent
}
