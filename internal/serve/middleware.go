package serve

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/innovinitylabs/onchain-rug-sub004/internal/ratelimit"
)

// walletHeader carries the caller identity for rate limiting. The query
// parameter form exists for clients that cannot set headers.
const (
	walletHeader = "X-Wallet-Address"
	walletQuery  = "wallet"
)

// rateLimitMiddleware enforces the sliding window per wallet identity.
// Requests without an identity pass through unmetered; the governor protects
// against wallet-driven refresh abuse, not anonymous reads.
func rateLimitMiddleware(limiter ratelimit.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil {
				next.ServeHTTP(w, r)
				return
			}

			identity := r.Header.Get(walletHeader)
			if identity == "" {
				identity = r.URL.Query().Get(walletQuery)
			}
			if identity == "" {
				next.ServeHTTP(w, r)
				return
			}

			decision, err := limiter.Check(r.Context(), identity)
			if err != nil {
				if errors.Is(err, ratelimit.ErrBadIdentity) {
					writeError(w, http.StatusBadRequest, "malformed wallet identity")
					return
				}
				// Fail open: a broken limiter store must not take reads down.
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))

			if !decision.Allowed {
				retryAfter := int(time.Until(decision.ResetAt).Seconds())
				if retryAfter < 1 {
					retryAfter = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				writeJSON(w, http.StatusTooManyRequests, map[string]any{
					"error":             "rate limit exceeded",
					"retryAfterSeconds": retryAfter,
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
