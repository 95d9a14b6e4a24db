package middleware

import (
	"net/http"
	"strconv"
	"strings"
)

const defaultCORSMaxAgeSeconds = 600

var (
	defaultCORSAllowedMethods = []string{
		http.MethodGet,
		http.MethodPost,
		http.MethodOptions,
	}
	defaultCORSAllowedHeaders = []string{
		"Accept",
		"Authorization",
		"Content-Type",
		"Idempotency-Key",
		"X-Request-Id",
	}
)

type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
	MaxAgeSeconds  int
}

type corsPolicy struct {
	origins   []string
	anyOrigin bool
	methods   string
	headers   string
	maxAge    string
}

func newCORSPolicy(cfg CORSConfig) corsPolicy {
	policy := corsPolicy{origins: trimmedNonEmpty(cfg.AllowedOrigins)}
	for _, origin := range policy.origins {
		if origin == "*" {
			policy.anyOrigin = true
		}
	}

	methods := trimmedNonEmpty(cfg.AllowedMethods)
	if len(methods) == 0 {
		methods = defaultCORSAllowedMethods
	}
	headers := trimmedNonEmpty(cfg.AllowedHeaders)
	if len(headers) == 0 {
		headers = defaultCORSAllowedHeaders
	}
	maxAge := cfg.MaxAgeSeconds
	if maxAge <= 0 {
		maxAge = defaultCORSMaxAgeSeconds
	}

	policy.methods = strings.Join(methods, ", ")
	policy.headers = strings.Join(headers, ", ")
	policy.maxAge = strconv.Itoa(maxAge)
	return policy
}

func (p corsPolicy) allows(origin string) bool {
	if p.anyOrigin {
		return true
	}
	for _, allowed := range p.origins {
		if strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

// CORS answers preflights for allowed origins and decorates their actual
// requests. Requests from other origins pass through untouched.
func CORS(cfg CORSConfig) func(http.Handler) http.Handler {
	policy := newCORSPolicy(cfg)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := strings.TrimSpace(r.Header.Get("Origin"))
			if origin == "" || !policy.allows(origin) {
				next.ServeHTTP(w, r)
				return
			}

			header := w.Header()
			header.Add("Vary", "Origin")
			if policy.anyOrigin {
				header.Set("Access-Control-Allow-Origin", "*")
			} else {
				header.Set("Access-Control-Allow-Origin", origin)
			}

			if r.Method != http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			header.Add("Vary", "Access-Control-Request-Method")
			header.Add("Vary", "Access-Control-Request-Headers")
			header.Set("Access-Control-Allow-Methods", policy.methods)
			header.Set("Access-Control-Allow-Headers", policy.headers)
			header.Set("Access-Control-Max-Age", policy.maxAge)
			w.WriteHeader(http.StatusNoContent)
		})
	}
}

func trimmedNonEmpty(values []string) []string {
	result := make([]string, 0, len(values))
	for _, raw := range values {
		if value := strings.TrimSpace(raw); value != "" {
			result = append(result, value)
		}
	}
	return result
}
