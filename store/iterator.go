package store

import (
	"bytes"

	"github.com/iov-one/stronghold/errors"
)

// emptyIterator is always done.
type emptyIterator struct{}

var _ Iterator = emptyIterator{}

func (emptyIterator) Next() ([]byte, []byte, error) {
	return nil, nil, errors.ErrIteratorDone
}

func (emptyIterator) Release() {}

// cacheItem is one materialized overlay entry. A deleted item masks the
// same key of the backing store.
type cacheItem struct {
	key     []byte
	value   []byte
	deleted bool
}

// mergeIter combines the materialized overlay entries with the backing
// store iterator, taking into consideration overwrites and deletes.
type mergeIter struct {
	items   []cacheItem
	parent  Iterator
	reverse bool

	parentKey   []byte
	parentValue []byte
	parentDone  bool
	primed      bool
}

var _ Iterator = (*mergeIter)(nil)

func newMergeIter(items []cacheItem, parent Iterator, reverse bool) *mergeIter {
	return &mergeIter{
		items:   items,
		parent:  parent,
		reverse: reverse,
	}
}

// Next returns the next key/value pair in iteration order, overlay
// entries winning over backing entries of the same key.
func (m *mergeIter) Next() ([]byte, []byte, error) {
	if !m.primed {
		if err := m.advanceParent(); err != nil {
			return nil, nil, err
		}
		m.primed = true
	}

	for {
		if len(m.items) == 0 && m.parentDone {
			return nil, nil, errors.ErrIteratorDone
		}

		// Only backing data left.
		if len(m.items) == 0 {
			return m.emitParent()
		}

		item := m.items[0]

		// Only overlay data left.
		if m.parentDone {
			m.items = m.items[1:]
			if item.deleted {
				continue
			}
			return item.key, item.value, nil
		}

		cmp := bytes.Compare(item.key, m.parentKey)
		if m.reverse {
			cmp = -cmp
		}

		switch {
		case cmp == 0:
			// Overlay masks the backing entry.
			m.items = m.items[1:]
			if err := m.advanceParent(); err != nil {
				return nil, nil, err
			}
			if item.deleted {
				continue
			}
			return item.key, item.value, nil
		case cmp < 0:
			m.items = m.items[1:]
			if item.deleted {
				continue
			}
			return item.key, item.value, nil
		default:
			return m.emitParent()
		}
	}
}

func (m *mergeIter) emitParent() ([]byte, []byte, error) {
	key, value := m.parentKey, m.parentValue
	if err := m.advanceParent(); err != nil {
		return nil, nil, err
	}
	return key, value, nil
}

func (m *mergeIter) advanceParent() error {
	if m.parentDone {
		return nil
	}
	key, value, err := m.parent.Next()
	switch {
	case err == nil:
		m.parentKey, m.parentValue = key, value
		return nil
	case errors.ErrIteratorDone.Is(err):
		m.parentDone = true
		m.parentKey, m.parentValue = nil, nil
		return nil
	default:
		return err
	}
}

func (m *mergeIter) Release() {
	m.items = nil
	m.parent.Release()
}
