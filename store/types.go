package store

import (
	"github.com/iov-one/stronghold"
)

// Move references for all storage types into this package for shorter
// names everywhere.

type ReadOnlyKVStore = stronghold.ReadOnlyKVStore
type KVStore = stronghold.KVStore
type Iterator = stronghold.Iterator
type CacheableKVStore = stronghold.CacheableKVStore
type KVCacheWrap = stronghold.KVCacheWrap

// SetDeleter is a minimal interface for writing, the write-side subset of
// KVStore.
type SetDeleter interface {
	Set(key, value []byte) error
	Delete(key []byte) error
}

// Batch can write multiple ops to a store and flush them together.
type Batch interface {
	SetDeleter
	Write() error
}

// Op is one queued batch operation.
type Op struct {
	delete bool
	key    []byte
	value  []byte
}

// Apply performs the operation against the given writer.
func (o Op) Apply(out SetDeleter) error {
	if o.delete {
		return out.Delete(o.key)
	}
	return out.Set(o.key, o.value)
}

// SetOp queues setting a key to a value.
func SetOp(key, value []byte) Op {
	return Op{key: key, value: value}
}

// DelOp queues deleting a key.
func DelOp(key []byte) Op {
	return Op{delete: true, key: key}
}

// NonAtomicBatch just writes to the underlying store on flush, with no
// guarantees if a middle write fails. It is only used to move data between
// in-memory layers, where writes cannot fail halfway.
type NonAtomicBatch struct {
	out SetDeleter
	ops []Op
}

var _ Batch = (*NonAtomicBatch)(nil)

// NewNonAtomicBatch creates an empty batch, that writes to out on Write.
func NewNonAtomicBatch(out SetDeleter) *NonAtomicBatch {
	return &NonAtomicBatch{
		out: out,
	}
}

// Set queues setting a key to a value.
func (b *NonAtomicBatch) Set(key, value []byte) error {
	b.ops = append(b.ops, SetOp(key, value))
	return nil
}

// Delete queues deleting a key.
func (b *NonAtomicBatch) Delete(key []byte) error {
	b.ops = append(b.ops, DelOp(key))
	return nil
}

// Write flushes all queued operations in order.
func (b *NonAtomicBatch) Write() error {
	for _, op := range b.ops {
		if err := op.Apply(b.out); err != nil {
			return err
		}
	}
	b.ops = nil
	return nil
}

// EmptyKVStore never holds any data and silently swallows all writes. It
// serves as the backing layer of MemStore, where the cache wrap btree is
// the actual storage.
type EmptyKVStore struct{}

var _ KVStore = EmptyKVStore{}

func (e EmptyKVStore) Get(key []byte) ([]byte, error) { return nil, nil }

func (e EmptyKVStore) Has(key []byte) (bool, error) { return false, nil }

func (e EmptyKVStore) Set(key, value []byte) error { return nil }

func (e EmptyKVStore) Delete(key []byte) error { return nil }

func (e EmptyKVStore) Iterator(start, end []byte) (Iterator, error) {
	return emptyIterator{}, nil
}

func (e EmptyKVStore) ReverseIterator(start, end []byte) (Iterator, error) {
	return emptyIterator{}, nil
}

// NewBatch returns a batch that can write to this store (as a noop).
func (e EmptyKVStore) NewBatch() Batch {
	return NewNonAtomicBatch(e)
}
