package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/dishdash-backend/api/responses"
	pkgerrors "github.com/angelmondragon/dishdash-backend/pkg/errors"
	"github.com/angelmondragon/dishdash-backend/pkg/logger"
)

// peekLimit bounds how much of the body is buffered to find the email.
const peekLimit = 16 << 10

// RateLimitStore is the fixed-window surface of pkg/redis.Client.
type RateLimitStore interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// AuthRateLimitPolicy throttles one auth surface by client IP and by account email.
type AuthRateLimitPolicy struct {
	name       string
	window     time.Duration
	ipLimit    int
	emailLimit int
}

func NewAuthRateLimitPolicy(name string, window time.Duration, ipLimit, emailLimit int) AuthRateLimitPolicy {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = "auth"
	}
	return AuthRateLimitPolicy{name: name, window: window, ipLimit: ipLimit, emailLimit: emailLimit}
}

func (p AuthRateLimitPolicy) active() bool {
	if p.window <= 0 {
		return false
	}
	return p.ipLimit > 0 || p.emailLimit > 0
}

func (p AuthRateLimitPolicy) retryAfter() string {
	secs := int(p.window.Round(time.Second) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}

// dimension is one counter checked by the limiter.
type dimension struct {
	kind  string
	value string
	limit int
}

func (d dimension) scope(policy string) string {
	return d.kind + ":" + policy + ":" + d.value
}

type authLimiter struct {
	policy AuthRateLimitPolicy
	store  RateLimitStore
	logg   *logger.Logger
}

// AuthRateLimit rejects auth requests with 429 once the IP or email counter
// for the policy window is exhausted. Redis failures surface as 503.
func AuthRateLimit(policy AuthRateLimitPolicy, store RateLimitStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if store == nil || !policy.active() {
			return next
		}
		l := &authLimiter{policy: policy, store: store, logg: logg}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.check(w, r, dimension{kind: "ip", value: clientIP(r), limit: policy.ipLimit}) {
				return
			}
			if policy.emailLimit > 0 {
				email, err := peekEmail(r)
				if err != nil {
					responses.WriteError(r.Context(), l.logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
					return
				}
				if email != "" && !l.check(w, r, dimension{kind: "email", value: hashValue(email), limit: policy.emailLimit}) {
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// check reports whether the request may continue. On false the response has
// already been written.
func (l *authLimiter) check(w http.ResponseWriter, r *http.Request, d dimension) bool {
	if d.limit <= 0 || d.value == "" {
		return true
	}
	ctx := r.Context()
	allowed, count, err := l.store.FixedWindowAllow(ctx, d.scope(l.policy.name), int64(d.limit), l.policy.window)
	if err != nil {
		responses.WriteError(ctx, l.logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
		return false
	}
	if allowed {
		return true
	}

	if l.logg != nil {
		fields := map[string]any{
			"policy":   l.policy.name,
			"scope":    d.kind,
			"attempts": count,
			"limit":    d.limit,
		}
		if d.kind == "email" {
			fields["email_hash"] = d.value
		} else {
			fields["ip"] = d.value
		}
		l.logg.Warn(l.logg.WithFields(ctx, fields), "auth.rate_limit.blocked")
	}
	w.Header().Set("Retry-After", l.policy.retryAfter())
	responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many attempts, try again later"))
	return false
}

// peekEmail reads up to peekLimit bytes of the body, restores it for the next
// handler and returns the normalized email field if present.
func peekEmail(r *http.Request) (string, error) {
	if r.Body == nil {
		return "", nil
	}
	head, err := io.ReadAll(io.LimitReader(r.Body, peekLimit))
	if err != nil {
		return "", err
	}
	r.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(head), r.Body), r.Body}

	var payload struct {
		Email string `json:"email"`
	}
	if json.Unmarshal(head, &payload) != nil {
		return "", nil
	}
	return strings.ToLower(strings.TrimSpace(payload.Email)), nil
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
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

func hashValue(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
