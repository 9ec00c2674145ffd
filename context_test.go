package stronghold

import (
	"context"
	"testing"
	"time"

	"github.com/iov-one/stronghold/errors"
	"github.com/iov-one/stronghold/strongholdtest/assert"
)

func TestChainID(t *testing.T) {
	ctx := context.Background()

	assert.Panics(t, func() { GetChainID(ctx) })
	assert.Panics(t, func() { WithChainID(ctx, "bad") })

	ctx = WithChainID(ctx, "test-chain-1")
	assert.Equal(t, "test-chain-1", GetChainID(ctx))

	// Immutable once set.
	assert.Panics(t, func() { WithChainID(ctx, "test-chain-2") })
}

func TestBlockTime(t *testing.T) {
	_, err := BlockTime(context.Background())
	assert.IsErr(t, errors.ErrHuman, err)

	now := time.Unix(1234567890, 0)
	ctx := WithBlockTime(context.Background(), now)

	got, err := BlockTime(ctx)
	assert.Nil(t, err)
	assert.Equal(t, now, got)
}

func TestLoggerDefaults(t *testing.T) {
	// A context without a logger falls back to the default, it never
	// returns nil.
	if GetLogger(context.Background()) == nil {
		t.Fatal("nil logger")
	}

	ctx := WithLogInfo(context.Background(), "module", "test")
	if GetLogger(ctx) == nil {
		t.Fatal("nil logger")
	}
}
