package stronghold

import (
	"encoding/binary"
)

// ValidatorID is the fixed-width routing key selecting the validator
// module that decides a request. It prefixes the call payload of a
// request in big-endian form.
//
// The zero value is reserved: it selects the default decision arm of the
// account router and can never be bound to a module.
type ValidatorID uint32

// DefaultValidatorID selects the router's built-in signature check.
const DefaultValidatorID ValidatorID = 0

// ValidatorIDSize is the wire width of a ValidatorID in bytes.
const ValidatorIDSize = 4

// Bytes returns the big-endian wire form of the id.
func (id ValidatorID) Bytes() []byte {
	bz := make([]byte, ValidatorIDSize)
	binary.BigEndian.PutUint32(bz, uint32(id))
	return bz
}

// ParseValidatorID reads a routing key from the front of raw. Short input
// selects the default arm.
func ParseValidatorID(raw []byte) ValidatorID {
	if len(raw) < ValidatorIDSize {
		return DefaultValidatorID
	}
	return ValidatorID(binary.BigEndian.Uint32(raw[:ValidatorIDSize]))
}

// Validator is an installable module that an account delegates
// authorization decisions to.
//
// OnInstall and OnUninstall are lifecycle hooks, invoked only by the
// owning account's identity. They behave as constructor/destructor pair:
// a failing hook aborts the whole install/uninstall, leaving no partial
// registration behind.
//
// Decide is a read-only judgement: nil accepts the request, any error
// rejects it with the error's registered code. Decide must not modify the
// store.
type Validator interface {
	OnInstall(ctx Context, db KVStore, data []byte) error
	OnUninstall(ctx Context, db KVStore, data []byte) error
	Decide(ctx Context, db ReadOnlyKVStore, req *Request, requestHash []byte) error
}
