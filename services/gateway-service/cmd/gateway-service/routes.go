package main

import (
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"time"

	"github.com/md-rashed-zaman/salonqueue/libs/auth"
	"github.com/md-rashed-zaman/salonqueue/libs/httpx"
	"github.com/md-rashed-zaman/salonqueue/libs/internalapi"
)

const (
	upstreamBusiness = "business"
	upstreamBooking  = "booking"
	upstreamQueue    = "queue"
)

// route maps one gateway path onto an upstream. An empty read action marks a
// public route; write applies to every method other than GET and HEAD.
type route struct {
	path     string
	upstream string
	read     auth.Action
	write    auth.Action
	stream   bool
}

func (rt route) public() bool { return rt.read == "" }

func (rt route) action(method string) auth.Action {
	if method == http.MethodGet || method == http.MethodHead || rt.write == "" {
		return rt.read
	}
	return rt.write
}

var routes = []route{
	{path: "/api/v1/public/business", upstream: upstreamBusiness},
	{path: "/api/v1/public/slots", upstream: upstreamBooking},
	{path: "/api/v1/public/appointments", upstream: upstreamBooking},
	{path: "/api/v1/public/appointments/lookup", upstream: upstreamBooking},
	{path: "/api/v1/public/appointments/cancel", upstream: upstreamBooking},
	{path: "/api/v1/public/queue/join", upstream: upstreamQueue},
	{path: "/api/v1/public/queue/board", upstream: upstreamQueue},
	{path: "/api/v1/public/queue/stream", upstream: upstreamQueue, stream: true},

	{path: "/api/v1/admin/businesses", upstream: upstreamBusiness, read: auth.ActionManageBusinesses},
	{path: "/api/v1/business", upstream: upstreamBusiness, read: auth.ActionViewBusiness, write: auth.ActionManageSettings},
	{path: "/api/v1/business/settings", upstream: upstreamBusiness, read: auth.ActionViewBusiness, write: auth.ActionManageSettings},
	{path: "/api/v1/business/services", upstream: upstreamBusiness, read: auth.ActionViewBusiness, write: auth.ActionManageServices},
	{path: "/api/v1/business/staff", upstream: upstreamBusiness, read: auth.ActionViewBusiness, write: auth.ActionManageStaff},
	{path: "/api/v1/appointments", upstream: upstreamBooking, read: auth.ActionViewAppointments},
	{path: "/api/v1/appointments/status", upstream: upstreamBooking, read: auth.ActionUpdateAppointment},
	{path: "/api/v1/queue", upstream: upstreamQueue, read: auth.ActionViewQueue},
	{path: "/api/v1/queue/call-next", upstream: upstreamQueue, read: auth.ActionManageQueue},
	{path: "/api/v1/queue/status", upstream: upstreamQueue, read: auth.ActionManageQueue},
}

const reminderRunPath = "/api/v1/admin/reminders/run"

type routerConfig struct {
	Upstreams     map[string]*url.URL
	Verifier      verifier
	Timeout       time.Duration
	ReminderToken string
	Transport     http.RoundTripper
	Logger        *slog.Logger
}

func registerRoutes(mux *http.ServeMux, cfg routerConfig) {
	proxies := map[string]*httputil.ReverseProxy{}
	for name, target := range cfg.Upstreams {
		proxy := httputil.NewSingleHostReverseProxy(target)
		proxy.Transport = cfg.Transport
		proxies[name] = proxy
	}
	timeout := httpx.WithTimeout(cfg.Timeout)

	for _, rt := range routes {
		var h http.Handler = proxies[rt.upstream]
		if rt.stream {
			streaming := httputil.NewSingleHostReverseProxy(cfg.Upstreams[rt.upstream])
			streaming.Transport = cfg.Transport
			streaming.FlushInterval = -1
			h = streaming
		} else {
			h = timeout(h)
		}
		if rt.public() {
			h = stripIdentity(h)
		} else {
			h = authorize(h, rt, cfg.Verifier, cfg.Logger)
		}
		mux.Handle(rt.path, h)
	}

	if cfg.ReminderToken != "" {
		rt := route{path: reminderRunPath, upstream: upstreamBooking, read: auth.ActionRunReminders}
		mux.Handle(rt.path, authorize(reminderProxy(cfg.Upstreams[upstreamBooking], cfg.ReminderToken, cfg.Transport), rt, cfg.Verifier, cfg.Logger))
	}
}

// reminderProxy lets a super admin trigger the sweep without knowing the
// internal trigger token.
func reminderProxy(target *url.URL, token string, transport http.RoundTripper) http.Handler {
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.Out.URL.Path = internalapi.RemindersRunPath
			pr.Out.URL.RawPath = ""
			pr.Out.Header.Set("Authorization", "Bearer "+token)
		},
		Transport: transport,
	}
}

var identityHeaders = []string{httpx.UserIDHeader, httpx.RoleHeader}

func stripIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, h := range identityHeaders {
			r.Header.Del(h)
		}
		next.ServeHTTP(w, r)
	})
}

// verifier checks provider tokens: RS256 against the JWKS when configured,
// otherwise HS256 with the shared secret.
type verifier struct {
	secret string
	jwks   *auth.JWKSClient
}

func (v verifier) verify(token string) (*auth.Claims, error) {
	if v.jwks != nil {
		header, err := auth.ParseHeader(token)
		if err != nil {
			return nil, err
		}
		if header.Alg == "RS256" && header.Kid != "" {
			pub, err := v.jwks.Get(header.Kid)
			if err != nil {
				return nil, err
			}
			return auth.VerifyRS256(token, pub)
		}
	}
	if v.secret == "" {
		return nil, auth.ErrInvalidToken
	}
	return auth.ParseAndVerifyHS256(token, v.secret)
}

func authorize(next http.Handler, rt route, v verifier, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if !strings.HasPrefix(authHeader, "Bearer ") || token == "" {
			httpx.WriteError(w, http.StatusUnauthorized, "missing or invalid Authorization header")
			return
		}
		claims, err := v.verify(token)
		if err != nil {
			httpx.WriteError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		action := rt.action(r.Method)
		if !auth.Allowed(claims.Role, action) {
			logger.Warn("forbidden", "user_id", claims.Sub, "role", claims.Role, "action", action)
			httpx.WriteError(w, http.StatusForbidden, "forbidden")
			return
		}

		scope := claims.BusinessID
		if requested := httpx.BusinessID(r); requested != "" {
			if !auth.CanAccessBusiness(claims, requested) {
				httpx.WriteError(w, http.StatusForbidden, "forbidden")
				return
			}
			scope = requested
		}

		r.Header.Del(httpx.UserIDHeader)
		r.Header.Del(httpx.RoleHeader)
		r.Header.Del(httpx.BusinessIDHeader)
		r.Header.Set(httpx.UserIDHeader, claims.Sub)
		r.Header.Set(httpx.RoleHeader, string(claims.Role))
		if scope != "" {
			r.Header.Set(httpx.BusinessIDHeader, scope)
		}
		next.ServeHTTP(w, r)
	})
}
