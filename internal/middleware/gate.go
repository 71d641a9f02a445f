package middleware

import (
	"net/http"
	"strings"
)

// Page routes classified by the session gate.
var (
	// ProtectedPrefixes require a session.
	ProtectedPrefixes = []string{"/profile", "/events/new"}
	// AuthOnlyPaths are only useful without a session.
	AuthOnlyPaths = []string{"/login", "/register"}
)

const (
	loginPath = "/login"
	homePath  = "/"
)

// Gate redirects page requests based on the session cookie alone: signed
// in users leave the auth pages for the home page, anonymous users go from
// protected pages to the login page. It does not load the user; handlers
// still resolve identity themselves.
func (s *Sessions) Gate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, authenticated := s.UserID(r)
		path := r.URL.Path

		if authenticated && isAuthOnly(path) {
			http.Redirect(w, r, homePath, http.StatusFound)
			return
		}
		if !authenticated && isProtected(path) {
			http.Redirect(w, r, loginPath, http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func isProtected(path string) bool {
	for _, prefix := range ProtectedPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func isAuthOnly(path string) bool {
	for _, p := range AuthOnlyPaths {
		if path == p {
			return true
		}
	}
	return false
}
