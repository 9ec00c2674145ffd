package orm

import (
	"bytes"
	"testing"

	"github.com/iov-one/stronghold/errors"
	"github.com/iov-one/stronghold/store"
)

// payloadModel is a minimal Model for bucket tests.
type payloadModel struct {
	raw []byte
}

func (m *payloadModel) Marshal() ([]byte, error) {
	return m.raw, nil
}

func (m *payloadModel) Unmarshal(raw []byte) error {
	m.raw = append([]byte(nil), raw...)
	return nil
}

func (m *payloadModel) Validate() error {
	if len(m.raw) == 0 {
		return errors.ErrEmpty
	}
	return nil
}

func TestModelBucketPutGetDelete(t *testing.T) {
	db := store.MemStore()
	b := NewModelBucket("paymodel")

	if err := b.Put(db, []byte("k"), &payloadModel{raw: []byte("v")}); err != nil {
		t.Fatalf("cannot put: %+v", err)
	}

	var got payloadModel
	if err := b.One(db, []byte("k"), &got); err != nil {
		t.Fatalf("cannot get: %+v", err)
	}
	if !bytes.Equal(got.raw, []byte("v")) {
		t.Fatalf("want v, got %q", got.raw)
	}

	if err := b.One(db, []byte("missing"), &got); !errors.ErrNotFound.Is(err) {
		t.Fatalf("want not found, got %+v", err)
	}

	if err := b.Delete(db, []byte("k")); err != nil {
		t.Fatalf("cannot delete: %+v", err)
	}
	if err := b.Delete(db, []byte("k")); !errors.ErrNotFound.Is(err) {
		t.Fatalf("want not found, got %+v", err)
	}
}

func TestModelBucketRejectsInvalid(t *testing.T) {
	db := store.MemStore()
	b := NewModelBucket("paymodel")

	if err := b.Put(db, []byte("k"), &payloadModel{}); !errors.ErrEmpty.Is(err) {
		t.Fatalf("want empty error, got %+v", err)
	}
}

func TestModelBucketPrefixIsolation(t *testing.T) {
	db := store.MemStore()
	one := NewModelBucket("bucketone")
	two := NewModelBucket("buckettwo")

	if err := one.Put(db, []byte("k"), &payloadModel{raw: []byte("1")}); err != nil {
		t.Fatalf("cannot put: %+v", err)
	}
	if err := two.Put(db, []byte("k"), &payloadModel{raw: []byte("2")}); err != nil {
		t.Fatalf("cannot put: %+v", err)
	}

	var got payloadModel
	if err := one.One(db, []byte("k"), &got); err != nil {
		t.Fatalf("cannot get: %+v", err)
	}
	if !bytes.Equal(got.raw, []byte("1")) {
		t.Fatalf("buckets overlap: %q", got.raw)
	}
}

func TestModelBucketPrefixIterator(t *testing.T) {
	db := store.MemStore()
	b := NewModelBucket("paymodel")

	keys := [][]byte{
		{1, 0},
		{1, 1},
		{2, 0},
	}
	for _, k := range keys {
		if err := b.Put(db, k, &payloadModel{raw: k}); err != nil {
			t.Fatalf("cannot put: %+v", err)
		}
	}

	iter, err := b.PrefixIterator(db, []byte{1})
	if err != nil {
		t.Fatalf("cannot iterate: %+v", err)
	}
	defer iter.Release()

	var got [][]byte
	for {
		k, _, err := iter.Next()
		if errors.ErrIteratorDone.Is(err) {
			break
		}
		if err != nil {
			t.Fatalf("iteration: %+v", err)
		}
		got = append(got, b.StripDBKey(k))
	}
	if len(got) != 2 {
		t.Fatalf("want 2 keys under prefix, got %d", len(got))
	}
	if !bytes.Equal(got[0], keys[0]) || !bytes.Equal(got[1], keys[1]) {
		t.Fatalf("unexpected keys: %v", got)
	}
}

func TestSequence(t *testing.T) {
	db := store.MemStore()
	seq := NewSequence("paymodel", "id")

	for want := int64(1); want <= 3; want++ {
		got, err := seq.NextInt(db)
		if err != nil {
			t.Fatalf("cannot increment: %+v", err)
		}
		if got != want {
			t.Fatalf("want %d, got %d", want, got)
		}
	}

	latest, raw, err := seq.Latest(db)
	if err != nil {
		t.Fatalf("cannot read: %+v", err)
	}
	if latest != 3 {
		t.Fatalf("want 3, got %d", latest)
	}
	if DecodeSequence(raw) != 3 {
		t.Fatalf("raw state mismatch: %x", raw)
	}

	// A reset sequence starts over.
	if err := seq.Reset(db); err != nil {
		t.Fatalf("cannot reset: %+v", err)
	}
	if got, err := seq.NextInt(db); err != nil || got != 1 {
		t.Fatalf("want a fresh sequence, got %d, %+v", got, err)
	}
}
