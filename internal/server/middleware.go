package server

import (
	"net/http"
	"slices"

	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-ID"

// withCORS applies a permissive CORS policy: configured origins (all by
// default) may call every route with credentials, any method and any
// header. Preflight requests are answered here.
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		h := w.Header()

		if allowed := s.allowOriginHeader(origin); allowed != "" {
			h.Set("Access-Control-Allow-Origin", allowed)
			if allowed != "*" {
				h.Set("Access-Control-Allow-Credentials", "true")
				h.Add("Vary", "Origin")
			}
		}

		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			if reqHeaders := r.Header.Get("Access-Control-Request-Headers"); reqHeaders != "" {
				h.Set("Access-Control-Allow-Headers", reqHeaders)
			}
			h.Set("Access-Control-Max-Age", "600")
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// allowOriginHeader returns the Access-Control-Allow-Origin value for a
// request from origin, or "" if the origin is not allowed.
//
// With the wildcard policy a concrete origin is echoed back, because
// browsers reject "*" on credentialed requests.
func (s *Server) allowOriginHeader(origin string) string {
	if origin == "" {
		if s.allowsAll() {
			return "*"
		}
		return ""
	}
	if s.originAllowed(origin) {
		return origin
	}
	return ""
}

// originAllowed reports whether origin may use the API and push routes.
// Requests without an Origin header (non-browser clients) are always allowed.
func (s *Server) originAllowed(origin string) bool {
	if origin == "" || s.allowsAll() {
		return true
	}
	return slices.Contains(s.cfg.AllowedOrigins, origin)
}

func (s *Server) allowsAll() bool {
	return len(s.cfg.AllowedOrigins) == 0 || slices.Contains(s.cfg.AllowedOrigins, "*")
}

// withRequestID tags every request with an ID for log correlation. An
// inbound X-Request-ID is kept.
func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		s.logger.Debug("request", "method", r.Method, "path", r.URL.Path, "request_id", id)
		next.ServeHTTP(w, r)
	})
}
