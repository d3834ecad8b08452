package httpx

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// CORSPolicy controls which browser origins may call the API. Salon sites
// that embed the booking and queue widgets are usually listed here; an entry
// like "https://*.example.com" admits every subdomain of example.com.
type CORSPolicy struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	AllowCredentials bool
	MaxAge           time.Duration
}

type wildcardOrigin struct {
	scheme string // "https://"
	suffix string // ".example.com"
}

type corsRules struct {
	exact       map[string]bool
	wildcards   []wildcardOrigin
	any         bool
	credentials bool
	methods     string
	headers     string
	maxAge      string
}

func compileCORS(cfg CORSPolicy) corsRules {
	rules := corsRules{
		exact:       map[string]bool{},
		credentials: cfg.AllowCredentials,
		methods:     strings.Join(normalizeList(cfg.AllowedMethods), ", "),
		headers:     strings.Join(normalizeList(cfg.AllowedHeaders), ", "),
	}
	if cfg.MaxAge > 0 {
		rules.maxAge = strconv.Itoa(int(cfg.MaxAge.Seconds()))
	}
	for _, origin := range normalizeList(cfg.AllowedOrigins) {
		origin = strings.ToLower(strings.TrimRight(origin, "/"))
		switch {
		case origin == "*":
			rules.any = true
		case strings.Contains(origin, "://*."):
			scheme, suffix, _ := strings.Cut(origin, "://*")
			rules.wildcards = append(rules.wildcards, wildcardOrigin{scheme: scheme + "://", suffix: suffix})
		default:
			rules.exact[origin] = true
		}
	}
	return rules
}

// allow returns the Access-Control-Allow-Origin value for origin.
func (c corsRules) allow(origin string) (string, bool) {
	lower := strings.ToLower(origin)
	if c.exact[lower] {
		return origin, true
	}
	for _, wc := range c.wildcards {
		host, ok := strings.CutPrefix(lower, wc.scheme)
		if ok && strings.HasSuffix(host, wc.suffix) && len(host) > len(wc.suffix) {
			return origin, true
		}
	}
	if c.any {
		if c.credentials {
			return origin, true
		}
		return "*", true
	}
	return "", false
}

// WithCORS answers preflight requests and decorates responses for allowed
// origins. With no allowed origins it does nothing.
func WithCORS(cfg CORSPolicy) Middleware {
	if len(normalizeList(cfg.AllowedOrigins)) == 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	rules := compileCORS(cfg)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			allowOrigin, ok := rules.allow(origin)
			if origin == "" || !ok {
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Set("Access-Control-Allow-Origin", allowOrigin)
			h.Add("Vary", "Origin")
			if rules.credentials {
				h.Set("Access-Control-Allow-Credentials", "true")
			}
			if r.Method != http.MethodOptions || r.Header.Get("Access-Control-Request-Method") == "" {
				h.Set("Access-Control-Expose-Headers", RequestIDHeader)
				next.ServeHTTP(w, r)
				return
			}

			if rules.methods != "" {
				h.Set("Access-Control-Allow-Methods", rules.methods)
			}
			if rules.headers != "" {
				h.Set("Access-Control-Allow-Headers", rules.headers)
			}
			if rules.maxAge != "" {
				h.Set("Access-Control-Max-Age", rules.maxAge)
			}
			h.Add("Vary", "Access-Control-Request-Method")
			h.Add("Vary", "Access-Control-Request-Headers")
			w.WriteHeader(http.StatusNoContent)
		})
	}
}

func normalizeList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
