package strongholdtest

import (
	"encoding/binary"
	"sync/atomic"

	"github.com/iov-one/stronghold"
	"github.com/iov-one/stronghold/crypto"
)

// condCounter delivers unique values for condition generation. Counter is
// globally unique so that no two tests within the same run share an
// identity by accident.
var condCounter int64

// NewCondition returns a stable, unique condition. Use it whenever a test
// needs an identity without caring about the key material behind it.
func NewCondition() stronghold.Condition {
	n := atomic.AddInt64(&condCounter, 1)
	data := make([]byte, 8)
	binary.BigEndian.PutUint64(data, uint64(n))
	return stronghold.NewCondition("test", "seq", data)
}

// NewAddress returns the address of a new unique condition.
func NewAddress() stronghold.Address {
	return NewCondition().Address()
}

// NewKey returns a fresh random key pair.
func NewKey() crypto.PrivateKey {
	return crypto.GenPrivKeyEd25519()
}

// SequenceID returns an id encoded the way sequence counters encode them.
func SequenceID(n int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(n))
	return b
}
