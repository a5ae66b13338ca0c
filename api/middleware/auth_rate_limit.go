package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/mvalverde/agrolink-backend/api/responses"
	pkgerrors "github.com/mvalverde/agrolink-backend/pkg/errors"
	"github.com/mvalverde/agrolink-backend/pkg/logger"
)

type rateLimiterStore interface {
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
}

// AuthRateLimitPolicy defines the throttling parameters for a traffic surface.
type AuthRateLimitPolicy struct {
	name       string
	window     time.Duration
	ipLimit    int
	emailLimit int
}

// NewAuthRateLimitPolicy builds a policy with the supplied window and limits.
func NewAuthRateLimitPolicy(name string, window time.Duration, ipLimit, emailLimit int) AuthRateLimitPolicy {
	return AuthRateLimitPolicy{
		name:       strings.ToLower(strings.TrimSpace(name)),
		window:     window,
		ipLimit:    ipLimit,
		emailLimit: emailLimit,
	}
}

func (p AuthRateLimitPolicy) enabled() bool {
	return p.window > 0 && (p.ipLimit > 0 || p.emailLimit > 0)
}

func (p AuthRateLimitPolicy) label() string {
	if p.name == "" {
		return "auth"
	}
	return p.name
}

// AuthRateLimit throttles credential endpoints with two independent
// counters: one per client IP, one per submitted email. The email is
// hashed before it becomes a Redis key so addresses never appear in
// the store or the logs.
func AuthRateLimit(policy AuthRateLimitPolicy, store rateLimiterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || store == nil {
			return next
		}
		guard := authLimiter{policy: policy, store: store, logg: logg}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if guard.blocked(w, r) {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type authLimiter struct {
	policy AuthRateLimitPolicy
	store  rateLimiterStore
	logg   *logger.Logger
}

// blocked reports whether the request was denied. It writes the
// response itself when it returns true.
func (g authLimiter) blocked(w http.ResponseWriter, r *http.Request) bool {
	ctx := r.Context()

	if g.policy.ipLimit > 0 {
		ip := clientIP(r)
		if ip != "" {
			key := fmt.Sprintf("rl:ip:%s:%s", g.policy.label(), ip)
			count, err := g.store.IncrWithTTL(ctx, key, g.policy.window)
			if err != nil {
				responses.WriteError(ctx, nil, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
				return true
			}
			if count > int64(g.policy.ipLimit) {
				g.deny(ctx, w, "ip", map[string]any{"ip": ip}, count, g.policy.ipLimit)
				return true
			}
		}
	}

	if g.policy.emailLimit > 0 {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, nil, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request"))
			return true
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		if hash := emailHash(body); hash != "" {
			key := fmt.Sprintf("rl:email:%s:%s", g.policy.label(), hash)
			count, err := g.store.IncrWithTTL(ctx, key, g.policy.window)
			if err != nil {
				responses.WriteError(ctx, nil, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
				return true
			}
			if count > int64(g.policy.emailLimit) {
				g.deny(ctx, w, "email", map[string]any{"email_hash": hash}, count, g.policy.emailLimit)
				return true
			}
		}
	}

	return false
}

func (g authLimiter) deny(ctx context.Context, w http.ResponseWriter, scope string, extra map[string]any, count int64, limit int) {
	if g.logg != nil {
		fields := map[string]any{
			"scope":          scope,
			"policy":         g.policy.label(),
			"attempts":       count,
			"limit":          limit,
			"window_seconds": int(g.policy.window.Seconds()),
		}
		for k, v := range extra {
			fields[k] = v
		}
		g.logg.Warn(g.logg.WithFields(ctx, fields), "auth.rate_limit.blocked")
	}
	responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "rate limit exceeded"))
}

func clientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if header := r.Header.Get("X-Forwarded-For"); header != "" {
		for _, part := range strings.Split(header, ",") {
			if ip := strings.TrimSpace(part); ip != "" {
				return ip
			}
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}

// emailHash extracts the email field from a JSON body and returns the
// hex SHA-256 of the lowercased address, or "" when absent.
func emailHash(payload []byte) string {
	var body struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return ""
	}
	email := strings.ToLower(strings.TrimSpace(body.Email))
	if email == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(email))
	return hex.EncodeToString(sum[:])
}
