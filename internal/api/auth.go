package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"net"
	"net/http"
	"strings"

	"hotelbooking/internal/config"
)

const (
	apiKeyHeaderDefault   = "x-api-key"
	apiExtraHeaderDefault = "x-api-extra"
	clientKeyUnknown      = "unknown"

	permReadBookings  = "read:bookings"
	permWriteBookings = "write:bookings"
	permReadRooms     = "read:rooms"
	permWriteRooms    = "write:rooms"
	permReadAudit     = "read:audit"
)

var (
	errMissingAPIKey     = errors.New("missing api key headers")
	errInvalidAPIKey     = errors.New("invalid api key")
	errInvalidExtra      = errors.New("invalid extra header")
	errPermissionDenied  = errors.New("permission denied")
	errRateLimitExceeded = errors.New("rate limit exceeded")
)

type clientContextKey struct{}

// clientFromContext returns the authenticated client. Its name is the actor
// recorded in the audit trail.
func clientFromContext(ctx context.Context) (config.APIClientKey, bool) {
	c, ok := ctx.Value(clientContextKey{}).(config.APIClientKey)
	return c, ok
}

// HTTPAuth provides API-key auth and per-key rate limiting for HTTP endpoints.
type HTTPAuth struct {
	cfg     config.APIConfig
	clients map[string]config.APIClientKey
	limiter *rateLimiter
}

func NewHTTPAuth(cfg config.APIConfig) *HTTPAuth {
	m := make(map[string]config.APIClientKey, len(cfg.Auth.APIKeys))
	for _, k := range cfg.Auth.APIKeys {
		m[k.Key] = k
	}
	return &HTTPAuth{cfg: cfg, clients: m, limiter: newRateLimiter(&cfg)}
}

func (a *HTTPAuth) enabled() bool {
	return a.cfg.Enabled && a.cfg.HTTP.Enabled && a.cfg.Auth.Enabled
}

// Wrap authenticates the caller and applies its rate limit.
func (a *HTTPAuth) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.enabled() {
			client, err := a.authenticate(r)
			if err != nil {
				writeError(w, http.StatusUnauthorized, err.Error())
				return
			}
			r = r.WithContext(context.WithValue(r.Context(), clientContextKey{}, client))
		}

		if err := a.checkRateLimit(r); err != nil {
			writeError(w, http.StatusTooManyRequests, err.Error())
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Require rejects clients lacking permission. A client with no permissions
// configured is allowed everything.
func (a *HTTPAuth) Require(permission string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if a.enabled() {
			client, _ := clientFromContext(r.Context())
			if !hasPermission(client, permission) {
				writeError(w, http.StatusForbidden, errPermissionDenied.Error())
				return
			}
		}
		next(w, r)
	}
}

func (a *HTTPAuth) authenticate(r *http.Request) (config.APIClientKey, error) {
	apiKey := strings.TrimSpace(r.Header.Get(a.apiKeyHeader()))
	if apiKey == "" {
		return config.APIClientKey{}, errMissingAPIKey
	}

	client, ok := a.clients[apiKey]
	if !ok {
		return config.APIClientKey{}, errInvalidAPIKey
	}

	if client.Extra != "" {
		extraHeader := strings.TrimSpace(strings.ToLower(a.cfg.Auth.HeaderExtra))
		if extraHeader == "" {
			extraHeader = apiExtraHeaderDefault
		}
		extra := strings.TrimSpace(r.Header.Get(extraHeader))
		if extra == "" {
			return config.APIClientKey{}, errMissingAPIKey
		}
		if subtle.ConstantTimeCompare([]byte(client.Extra), []byte(extra)) != 1 {
			return config.APIClientKey{}, errInvalidExtra
		}
	}

	return client, nil
}

func hasPermission(client config.APIClientKey, required string) bool {
	if required == "" || len(client.Permissions) == 0 {
		return true
	}
	for _, p := range client.Permissions {
		if strings.TrimSpace(p) == required {
			return true
		}
	}
	return false
}

func (a *HTTPAuth) apiKeyHeader() string {
	h := strings.TrimSpace(strings.ToLower(a.cfg.Auth.HeaderAPIKey))
	if h == "" {
		return apiKeyHeaderDefault
	}
	return h
}

func (a *HTTPAuth) checkRateLimit(r *http.Request) error {
	if a.cfg.RateLimit.RPS <= 0 {
		return nil
	}

	if !a.limiter.allow(a.clientKey(r)) {
		return errRateLimitExceeded
	}
	return nil
}

func (a *HTTPAuth) clientKey(r *http.Request) string {
	if apiKey := strings.TrimSpace(r.Header.Get(a.apiKeyHeader())); apiKey != "" {
		return apiKey
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return clientKeyUnknown
}
