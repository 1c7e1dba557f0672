package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ErrBadIdentity rejects identities that are not well-formed addresses.
var ErrBadIdentity = errors.New("malformed rate limit identity")

var addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// Decision is the outcome of one rate limit evaluation.
type Decision struct {
	Allowed   bool      `json:"allowed"`
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"resetAt"`
}

// Limiter is the sliding-window request governor. Check consumes a slot;
// Status observes without consuming.
type Limiter interface {
	Check(ctx context.Context, identity string) (Decision, error)
	Status(ctx context.Context, identity string) (Decision, error)
}

// NormalizeIdentity lowercases a caller address so mixed-case submissions of
// the same wallet share one window. Malformed identities fail closed.
func NormalizeIdentity(identity string) (string, error) {
	identity = strings.TrimSpace(identity)
	if !addressPattern.MatchString(identity) {
		return "", fmt.Errorf("%w: %q", ErrBadIdentity, identity)
	}
	return strings.ToLower(identity), nil
}
