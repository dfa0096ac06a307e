package httputil

import (
	"context"
	"net/http"
)

type userIDKey struct{}

// WithUserID returns r with the authenticated user id attached.
func WithUserID(r *http.Request, userID string) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), userIDKey{}, userID))
}

// GetUserID returns the user id set by the auth middleware, or "".
func GetUserID(r *http.Request) string {
	id, _ := r.Context().Value(userIDKey{}).(string)
	return id
}
