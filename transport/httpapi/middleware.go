package httpapi

import (
	"net"
	"net/http"
	"strings"

	"msgboard/domain"
)

// identityFrom resolves the caller's identity from a bearer token in
// the Authorization header or, for websocket clients that cannot set
// headers, a "token" query parameter. Returns nil for anonymous.
func (s *Server) identityFrom(r *http.Request) *domain.Identity {
	token := r.URL.Query().Get("token")
	if header := r.Header.Get("Authorization"); header != "" {
		if rest, ok := strings.CutPrefix(header, "Bearer "); ok {
			token = rest
		}
	}
	if token == "" {
		return nil
	}
	identity, err := s.tokens.Identify(token)
	if err != nil {
		s.log.Debug("rejected token, continuing as anonymous", "error", err)
		return nil
	}
	return &identity
}

// rateLimit applies a per-remote-IP token bucket to the REST surface.
func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		if !s.limiters.Allow(host) {
			writeJSONError(w, http.StatusTooManyRequests, "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}
