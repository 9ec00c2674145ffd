/*
Package orm provides an easy to use db wrapper.

Break state space into prefixed sections called buckets. Each bucket
contains only one type of object and operates directly on the KVStore,
with primary key lookups and prefix iteration.
*/
package orm

import (
	"fmt"
	"regexp"

	"github.com/iov-one/stronghold"
	"github.com/iov-one/stronghold/errors"
)

var isBucketName = regexp.MustCompile(`^[a-z_]{3,10}$`).MatchString

// Model is implemented by any entity that can be stored using a
// ModelBucket.
type Model interface {
	stronghold.Persistent
	Validate() error
}

// ModelBucket is a prefixed subspace of the DB holding entities of a
// single type.
type ModelBucket struct {
	name   string
	prefix []byte
}

// NewModelBucket creates a bucket to store data under the given name.
func NewModelBucket(name string) ModelBucket {
	if !isBucketName(name) {
		panic(fmt.Sprintf("illegal bucket: %s", name))
	}

	return ModelBucket{
		name:   name,
		prefix: append([]byte(name), ':'),
	}
}

// DBKey is the full key we store in the db, including prefix. We copy
// into a new array rather than use append, as we don't want consecutive
// calls to overwrite the same byte array.
func (b ModelBucket) DBKey(key []byte) []byte {
	l := len(b.prefix)
	out := make([]byte, l+len(key))
	copy(out, b.prefix)
	copy(out[l:], key)
	return out
}

// One queries the database for a single model instance. Lookup is done by
// the primary key. The result is loaded into dest. This method returns
// ErrNotFound if the entity does not exist in the database.
func (b ModelBucket) One(db stronghold.ReadOnlyKVStore, key []byte, dest Model) error {
	raw, err := db.Get(b.DBKey(key))
	if err != nil {
		return err
	}
	if raw == nil {
		return errors.Wrapf(errors.ErrNotFound, "%T not in the store", dest)
	}
	if err := dest.Unmarshal(raw); err != nil {
		return errors.Wrapf(err, "cannot unmarshal into %T", dest)
	}
	return nil
}

// Put saves given model in the database. The model is validated before
// being written.
func (b ModelBucket) Put(db stronghold.KVStore, key []byte, m Model) error {
	if err := m.Validate(); err != nil {
		return errors.Wrap(err, "invalid model")
	}
	raw, err := m.Marshal()
	if err != nil {
		return errors.Wrapf(err, "cannot marshal %T", m)
	}
	if err := db.Set(b.DBKey(key), raw); err != nil {
		return errors.Wrap(err, "cannot store in the database")
	}
	return nil
}

// Delete removes an entity with given primary key from the database. It
// returns ErrNotFound if an entity with given key does not exist.
func (b ModelBucket) Delete(db stronghold.KVStore, key []byte) error {
	ok, err := b.Has(db, key)
	if err != nil {
		return err
	}
	if !ok {
		return errors.ErrNotFound
	}
	return db.Delete(b.DBKey(key))
}

// Has returns true if an entity with given primary key exists.
func (b ModelBucket) Has(db stronghold.ReadOnlyKVStore, key []byte) (bool, error) {
	return db.Has(b.DBKey(key))
}

// PrefixIterator iterates over all entities whose primary key starts with
// the given prefix, in ascending key order. Returned keys include the
// bucket prefix; use StripDBKey to recover the primary key.
func (b ModelBucket) PrefixIterator(db stronghold.ReadOnlyKVStore, prefix []byte) (stronghold.Iterator, error) {
	start, end := PrefixRange(b.DBKey(prefix))
	return db.Iterator(start, end)
}

// StripDBKey cuts the bucket prefix off a full db key, returning the
// primary key.
func (b ModelBucket) StripDBKey(dbKey []byte) []byte {
	return dbKey[len(b.prefix):]
}
