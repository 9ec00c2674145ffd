package account

import (
	"context"

	"github.com/iov-one/stronghold"
	"github.com/iov-one/stronghold/x"
)

type contextKey int // local to the account module

const (
	contextKeySelf contextKey = iota
)

// withSelf is a private method, as only a successful Authorize may grant
// the account's own condition. The returned context is the capability
// that unlocks Install and Uninstall.
func withSelf(ctx stronghold.Context, cond stronghold.Condition) stronghold.Context {
	return context.WithValue(ctx, contextKeySelf, cond)
}

// Authenticate gets/sets permissions on the given context key.
type Authenticate struct{}

var _ x.Authenticator = Authenticate{}

// GetConditions returns permissions previously set on this context.
func (a Authenticate) GetConditions(ctx stronghold.Context) []stronghold.Condition {
	// (val, ok) form to return nil instead of panic if unset
	val, _ := ctx.Value(contextKeySelf).(stronghold.Condition)
	if val == nil {
		return nil
	}
	return []stronghold.Condition{val}
}

// HasAddress returns true iff this address is in GetConditions.
func (a Authenticate) HasAddress(ctx stronghold.Context, addr stronghold.Address) bool {
	for _, s := range a.GetConditions(ctx) {
		if addr.Equals(s.Address()) {
			return true
		}
	}
	return false
}
