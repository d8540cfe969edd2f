// Package session carries the authenticated identity of a request.
//
// The auth middleware populates it once per request; resolvers only read it.
package session

import "context"

type ctxKey struct{}

// Session is the identity decoded from a verified bearer token.
type Session struct {
	UserID   string
	Username string
	Email    string
}

func (s Session) Authenticated() bool {
	return s.UserID != ""
}

func With(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// From returns the request's session. An anonymous request yields the zero
// Session and false.
func From(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(Session)

	return s, ok && s.Authenticated()
}
