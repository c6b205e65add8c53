// Package auth supplies the identity of the acting customer or staff
// member. The core treats it as an opaque capability check; the HTTP
// adapter in this package is the only place headers are inspected.
package auth

import "context"

// Identity describes who is performing an operation. The zero value is
// anonymous.
type Identity struct {
	CustomerID string
	StaffID    string
}

func (id Identity) Anonymous() bool {
	return id.CustomerID == "" && id.StaffID == ""
}

func (id Identity) Authenticated() bool {
	return !id.Anonymous()
}

func (id Identity) Staff() bool {
	return id.StaffID != ""
}

// Gate resolves the current identity for a request context.
type Gate interface {
	CurrentIdentity(ctx context.Context) Identity
}

type contextKey int

const (
	identityKey contextKey = iota
	sessionKey
)

// WithIdentity returns a context carrying the given identity.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// WithSession returns a context carrying the cart session key.
func WithSession(ctx context.Context, session string) context.Context {
	return context.WithValue(ctx, sessionKey, session)
}

// SessionFromContext returns the cart session key, empty if none.
func SessionFromContext(ctx context.Context) string {
	s, _ := ctx.Value(sessionKey).(string)
	return s
}

// ContextGate reads the identity previously attached by the middleware.
type ContextGate struct{}

func (ContextGate) CurrentIdentity(ctx context.Context) Identity {
	id, _ := ctx.Value(identityKey).(Identity)
	return id
}
