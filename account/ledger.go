package account

import (
	"encoding/binary"
	"math"

	"github.com/iov-one/stronghold"
	"github.com/iov-one/stronghold/errors"
)

// balancePrefix namespaces all ledger keys:
//    _l.account:<address>
const balancePrefix = "_l.account:"

// Ledger tracks native unit balances per address. It backs shortfall
// refunds during Authorize and value transfer during Forward.
type Ledger struct{}

func balanceKey(addr stronghold.Address) []byte {
	out := make([]byte, 0, len(balancePrefix)+len(addr))
	out = append(out, balancePrefix...)
	return append(out, addr...)
}

// Balance returns the native units held by the address. Unknown addresses
// hold zero.
func (Ledger) Balance(db stronghold.ReadOnlyKVStore, addr stronghold.Address) (int64, error) {
	raw, err := db.Get(balanceKey(addr))
	if err != nil {
		return 0, err
	}
	if raw == nil {
		return 0, nil
	}
	return int64(binary.BigEndian.Uint64(raw)), nil
}

// Deposit credits the address with the given amount.
func (l Ledger) Deposit(db stronghold.KVStore, addr stronghold.Address, amount int64) error {
	if err := addr.Validate(); err != nil {
		return errors.Wrap(err, "address")
	}
	if amount <= 0 {
		return errors.Wrap(errors.ErrInput, "non positive amount")
	}
	return l.credit(db, addr, amount)
}

// Move transfers amount native units from src to dst. It fails with
// ErrAmount when src does not hold enough.
func (l Ledger) Move(db stronghold.KVStore, src, dst stronghold.Address, amount int64) error {
	if err := src.Validate(); err != nil {
		return errors.Wrap(err, "source")
	}
	if err := dst.Validate(); err != nil {
		return errors.Wrap(err, "destination")
	}
	if amount <= 0 {
		return errors.Wrap(errors.ErrInput, "non positive amount")
	}

	held, err := l.Balance(db, src)
	if err != nil {
		return err
	}
	if held < amount {
		return errors.Wrapf(errors.ErrAmount, "%d held, %d required", held, amount)
	}
	if err := l.set(db, src, held-amount); err != nil {
		return err
	}
	return l.credit(db, dst, amount)
}

func (l Ledger) credit(db stronghold.KVStore, addr stronghold.Address, amount int64) error {
	held, err := l.Balance(db, addr)
	if err != nil {
		return err
	}
	if held > math.MaxInt64-amount {
		return errors.Wrap(errors.ErrOverflow, "balance")
	}
	return l.set(db, addr, held+amount)
}

func (Ledger) set(db stronghold.KVStore, addr stronghold.Address, amount int64) error {
	raw := make([]byte, 8)
	binary.BigEndian.PutUint64(raw, uint64(amount))
	return db.Set(balanceKey(addr), raw)
}
