package account

import (
	"github.com/iov-one/stronghold"
	"github.com/iov-one/stronghold/errors"
	"github.com/iov-one/stronghold/orm"
)

// Registry is the in-process set of validator modules available for
// installation under a name. It is shared between accounts; what a single
// account actually uses is in its persisted bindings.
type Registry struct {
	modules map[string]stronghold.Validator
}

// NewRegistry returns an empty module registry.
func NewRegistry() *Registry {
	return &Registry{
		modules: make(map[string]stronghold.Validator),
	}
}

// Register adds a module under a unique name. Use this function only
// during a program startup phase; it panics on a duplicate.
func (r *Registry) Register(name string, v stronghold.Validator) {
	if name == "" {
		panic("module name must not be empty")
	}
	if v == nil {
		panic("module must not be nil")
	}
	if _, ok := r.modules[name]; ok {
		panic("module already registered: " + name)
	}
	r.modules[name] = v
}

// Module returns the implementation registered under name.
func (r *Registry) Module(name string) (stronghold.Validator, bool) {
	v, ok := r.modules[name]
	return v, ok
}

// bindingPrefix namespaces the persisted routing key bindings:
//    _b.account:<address><validator id>
const bindingPrefix = "_b.account:"

// Binding is one persisted registry entry of an account: a routing key
// bound to a module name.
type Binding struct {
	ID     stronghold.ValidatorID
	Module string
}

func bindingKey(addr stronghold.Address, id stronghold.ValidatorID) []byte {
	out := make([]byte, 0, len(bindingPrefix)+len(addr)+stronghold.ValidatorIDSize)
	out = append(out, bindingPrefix...)
	out = append(out, addr...)
	return append(out, id.Bytes()...)
}

// binding resolves the module name bound to the routing key, or
// ErrNotFound.
func (a *Account) binding(db stronghold.ReadOnlyKVStore, id stronghold.ValidatorID) (string, error) {
	raw, err := db.Get(bindingKey(a.Address(), id))
	if err != nil {
		return "", err
	}
	if raw == nil {
		return "", errors.Wrapf(errors.ErrNotFound, "routing key %d", id)
	}
	return string(raw), nil
}

// Bindings lists all persisted registry entries of the account, so that
// out-of-core tooling can reconstruct the routing table without
// reimplementing the engine.
func (a *Account) Bindings(db stronghold.ReadOnlyKVStore) ([]Binding, error) {
	prefix := bindingKey(a.Address(), 0)[:len(bindingPrefix)+stronghold.AddressLength]
	start, end := orm.PrefixRange(prefix)
	iter, err := db.Iterator(start, end)
	if err != nil {
		return nil, err
	}
	defer iter.Release()

	var out []Binding
	for {
		key, value, err := iter.Next()
		switch {
		case err == nil:
			id := stronghold.ParseValidatorID(key[len(prefix):])
			out = append(out, Binding{ID: id, Module: string(value)})
		case errors.ErrIteratorDone.Is(err):
			return out, nil
		default:
			return nil, err
		}
	}
}
