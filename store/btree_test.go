package store

import (
	"bytes"
	"testing"

	"github.com/iov-one/stronghold/errors"
)

func TestBTreeCacheGetSet(t *testing.T) {
	db := MemStore()

	k, v := []byte("french"), []byte("fry")

	if got, err := db.Get(k); err != nil || got != nil {
		t.Fatalf("want a miss, got %q, %+v", got, err)
	}
	if err := db.Set(k, v); err != nil {
		t.Fatalf("cannot set: %+v", err)
	}
	if got, err := db.Get(k); err != nil || !bytes.Equal(got, v) {
		t.Fatalf("want %q, got %q, %+v", v, got, err)
	}
	if has, err := db.Has(k); err != nil || !has {
		t.Fatalf("want key present, got %v, %+v", has, err)
	}

	if err := db.Delete(k); err != nil {
		t.Fatalf("cannot delete: %+v", err)
	}
	if has, err := db.Has(k); err != nil || has {
		t.Fatalf("want key gone, got %v, %+v", has, err)
	}
}

func TestCacheWrapWriteAndDiscard(t *testing.T) {
	db := MemStore()
	if err := db.Set([]byte("a"), []byte("1")); err != nil {
		t.Fatalf("cannot set: %+v", err)
	}

	// A discarded wrap leaves no residue.
	cache := db.CacheWrap()
	if err := cache.Set([]byte("b"), []byte("2")); err != nil {
		t.Fatalf("cannot set: %+v", err)
	}
	if err := cache.Delete([]byte("a")); err != nil {
		t.Fatalf("cannot delete: %+v", err)
	}
	cache.Discard()

	if got, _ := db.Get([]byte("a")); !bytes.Equal(got, []byte("1")) {
		t.Fatalf("discarded delete leaked: %q", got)
	}
	if got, _ := db.Get([]byte("b")); got != nil {
		t.Fatalf("discarded write leaked: %q", got)
	}

	// A written wrap applies everything.
	cache = db.CacheWrap()
	if err := cache.Set([]byte("b"), []byte("2")); err != nil {
		t.Fatalf("cannot set: %+v", err)
	}
	if err := cache.Delete([]byte("a")); err != nil {
		t.Fatalf("cannot delete: %+v", err)
	}
	if err := cache.Write(); err != nil {
		t.Fatalf("cannot write: %+v", err)
	}

	if got, _ := db.Get([]byte("a")); got != nil {
		t.Fatalf("delete not applied: %q", got)
	}
	if got, _ := db.Get([]byte("b")); !bytes.Equal(got, []byte("2")) {
		t.Fatalf("write not applied: %q", got)
	}
}

func TestCacheWrapIsolation(t *testing.T) {
	db := MemStore()
	cache := db.CacheWrap()

	if err := cache.Set([]byte("k"), []byte("v")); err != nil {
		t.Fatalf("cannot set: %+v", err)
	}
	// Uncommitted data is visible in the wrap, not below.
	if got, _ := cache.Get([]byte("k")); !bytes.Equal(got, []byte("v")) {
		t.Fatalf("want wrap visibility, got %q", got)
	}
	if got, _ := db.Get([]byte("k")); got != nil {
		t.Fatalf("wrap leaked below: %q", got)
	}
}

func TestMergeIteration(t *testing.T) {
	db := MemStore()
	for _, kv := range [][2]string{{"a", "1"}, {"c", "3"}, {"e", "5"}} {
		if err := db.Set([]byte(kv[0]), []byte(kv[1])); err != nil {
			t.Fatalf("cannot set: %+v", err)
		}
	}

	cache := db.CacheWrap()
	// overwrite, insert, delete
	if err := cache.Set([]byte("c"), []byte("33")); err != nil {
		t.Fatalf("cannot set: %+v", err)
	}
	if err := cache.Set([]byte("b"), []byte("2")); err != nil {
		t.Fatalf("cannot set: %+v", err)
	}
	if err := cache.Delete([]byte("e")); err != nil {
		t.Fatalf("cannot delete: %+v", err)
	}

	assertKeys := func(t *testing.T, iter Iterator, want [][2]string) {
		t.Helper()
		defer iter.Release()
		for _, w := range want {
			k, v, err := iter.Next()
			if err != nil {
				t.Fatalf("want %q, got error %+v", w[0], err)
			}
			if !bytes.Equal(k, []byte(w[0])) || !bytes.Equal(v, []byte(w[1])) {
				t.Fatalf("want %q=%q, got %q=%q", w[0], w[1], k, v)
			}
		}
		if _, _, err := iter.Next(); !errors.ErrIteratorDone.Is(err) {
			t.Fatalf("want iterator done, got %+v", err)
		}
	}

	iter, err := cache.Iterator(nil, nil)
	if err != nil {
		t.Fatalf("cannot iterate: %+v", err)
	}
	assertKeys(t, iter, [][2]string{{"a", "1"}, {"b", "2"}, {"c", "33"}})

	riter, err := cache.ReverseIterator(nil, nil)
	if err != nil {
		t.Fatalf("cannot iterate: %+v", err)
	}
	assertKeys(t, riter, [][2]string{{"c", "33"}, {"b", "2"}, {"a", "1"}})

	bounded, err := cache.Iterator([]byte("b"), []byte("c"))
	if err != nil {
		t.Fatalf("cannot iterate: %+v", err)
	}
	assertKeys(t, bounded, [][2]string{{"b", "2"}})
}
