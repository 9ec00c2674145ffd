// Package strongholdtest provides mocks and helpers shared by the engine
// tests. Nothing here is safe for production use.
package strongholdtest

import (
	"context"
	"fmt"

	"github.com/iov-one/stronghold"
)

// Auth is a mock implementing the x.Authenticator interface.
//
// This structure authenticates any of the referenced conditions. You can
// use either Signer or Signers (or both) attributes to reference
// conditions. This is for convenience and each time all signers
// (regardless which attribute) are considered.
type Auth struct {
	// Signer represents an authentication of a single signer. This is a
	// convenience attribute when creating an authentication method for
	// a single signer.
	Signer stronghold.Condition

	// Signers represents an authentication of multiple signers.
	Signers []stronghold.Condition
}

func (a *Auth) GetConditions(stronghold.Context) []stronghold.Condition {
	if a.Signer != nil {
		// Copy to keep callers from mutating the Signers backing
		// array through the returned slice.
		out := make([]stronghold.Condition, 0, len(a.Signers)+1)
		out = append(out, a.Signers...)
		return append(out, a.Signer)
	}
	return a.Signers
}

func (a *Auth) HasAddress(ctx stronghold.Context, addr stronghold.Address) bool {
	for _, s := range a.Signers {
		if addr.Equals(s.Address()) {
			return true
		}
	}
	if a.Signer == nil {
		return false
	}
	return addr.Equals(a.Signer.Address())
}

// CtxAuth is a mock implementing the x.Authenticator interface.
//
// This implementation is using context to store and retrieve permissions.
type CtxAuth struct {
	// Key used to set and retrieve conditions from the context. For
	// convenience only string type keys are allowed.
	Key string
}

func (a *CtxAuth) SetConditions(ctx stronghold.Context, permissions ...stronghold.Condition) stronghold.Context {
	return context.WithValue(ctx, ctxAuthKey(a.Key), permissions)
}

func (a *CtxAuth) GetConditions(ctx stronghold.Context) []stronghold.Condition {
	val := ctx.Value(ctxAuthKey(a.Key))
	if val == nil {
		return nil
	}
	conds, ok := val.([]stronghold.Condition)
	if !ok {
		panic(fmt.Sprintf("instead of []stronghold.Condition got %T", val))
	}
	return conds
}

func (a *CtxAuth) HasAddress(ctx stronghold.Context, addr stronghold.Address) bool {
	for _, s := range a.GetConditions(ctx) {
		if addr.Equals(s.Address()) {
			return true
		}
	}
	return false
}

type ctxAuthKey string
