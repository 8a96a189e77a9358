package api

import (
	"net/http"

	"github.com/tendant/media-proxy/pkg/mediaproxy/activity"
)

// sessionCookie is the platform's session cookie name.
const sessionCookie = "session_id"

// TrackActivity records the requesting session in the advisory activity
// registry. The registry tolerates lost updates, so this never blocks or
// fails a request.
func TrackActivity(registry *activity.Registry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if id := sessionID(r); id != "" {
				registry.Touch(id)
			}
			next.ServeHTTP(w, r)
		})
	}
}

func sessionID(r *http.Request) string {
	if id := r.Header.Get("X-Session-ID"); id != "" {
		return id
	}
	if c, err := r.Cookie(sessionCookie); err == nil {
		return c.Value
	}
	return ""
}
