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

	"github.com/vendorhub/marketplace-backend/api/responses"
	pkgerrors "github.com/vendorhub/marketplace-backend/pkg/errors"
	"github.com/vendorhub/marketplace-backend/pkg/logger"
)

// WindowLimiter is the counter surface the auth rate limit needs.
type WindowLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// AuthRateLimitPolicy bounds attempts per client IP and per submitted email
// within a fixed window. Redis failures fail open so an outage does not lock
// everyone out of authentication.
type AuthRateLimitPolicy struct {
	Scope      string
	Window     time.Duration
	IPLimit    int64
	EmailLimit int64
}

// AuthRateLimit enforces the policy on an authentication endpoint.
func AuthRateLimit(limiter WindowLimiter, policy AuthRateLimitPolicy, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil {
				next.ServeHTTP(w, r)
				return
			}

			ip := clientIP(r)
			if policy.IPLimit > 0 && ip != "" {
				allowed, _, err := limiter.FixedWindowAllow(r.Context(), ipScope(policy.Scope, ip), policy.IPLimit, policy.Window)
				if err != nil {
					logLimiterFailure(r, logg, err)
				} else if !allowed {
					responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many attempts, try again later"))
					return
				}
			}

			email := extractEmail(r)
			if policy.EmailLimit > 0 && email != "" {
				allowed, _, err := limiter.FixedWindowAllow(r.Context(), emailScope(policy.Scope, email), policy.EmailLimit, policy.Window)
				if err != nil {
					logLimiterFailure(r, logg, err)
				} else if !allowed {
					responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many attempts, try again later"))
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func logLimiterFailure(r *http.Request, logg *logger.Logger, err error) {
	if logg == nil {
		return
	}
	ctx := logg.WithField(r.Context(), "path", r.URL.Path)
	logg.Error(ctx, "auth_rate_limit.check_failed", err)
}

func ipScope(scope, ip string) string {
	return fmt.Sprintf("%s:ip:%s", scope, ip)
}

// emailScope hashes the address so raw emails never become redis keys.
func emailScope(scope, email string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(email))))
	return fmt.Sprintf("%s:email:%s", scope, hex.EncodeToString(sum[:]))
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return host
}

// extractEmail peeks the request body for an email field and puts the bytes
// back so the handler can decode the body itself.
func extractEmail(r *http.Request) string {
	if r.Body == nil {
		return ""
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return ""
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	var payload struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return payload.Email
}
