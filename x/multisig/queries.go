package multisig

import (
	"github.com/iov-one/stronghold"
	"github.com/iov-one/stronghold/errors"
	"github.com/iov-one/stronghold/orm"
)

// The read only surface. All functions are package level so that other
// extensions and external query servers can compose them without holding
// a controller.

// GetContract returns the contract of the given account.
func GetContract(db stronghold.ReadOnlyKVStore, account stronghold.Address) (*Contract, error) {
	var contract Contract
	if err := NewContractBucket().One(db, account, &contract); err != nil {
		return nil, err
	}
	return &contract, nil
}

// GetTransaction returns one transaction record of the given account.
func GetTransaction(db stronghold.ReadOnlyKVStore, account stronghold.Address, txID int64) (*Transaction, error) {
	var tx Transaction
	if err := NewTransactionBucket().One(db, transactionKey(account, txID), &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

// IsOwner returns true if the address is a current owner of the account's
// contract.
func IsOwner(db stronghold.ReadOnlyKVStore, account, addr stronghold.Address) (bool, error) {
	contract, err := GetContract(db, account)
	if err != nil {
		return false, err
	}
	return contract.HasOwner(addr), nil
}

// HasConfirmed returns true if the owner holds a confirmation bit on the
// transaction.
func HasConfirmed(db stronghold.ReadOnlyKVStore, account stronghold.Address, txID int64, owner stronghold.Address) (bool, error) {
	return db.Has(confirmKey(account, txID, owner))
}

// ConfirmingOwners lists every address holding a confirmation bit on the
// transaction, in ascending address order.
func ConfirmingOwners(db stronghold.ReadOnlyKVStore, account stronghold.Address, txID int64) ([]stronghold.Address, error) {
	start, end := orm.PrefixRange(confirmScanPrefix(account, txID))
	keys, err := collectKeys(db.Iterator(start, end))
	if err != nil {
		return nil, err
	}

	owners := make([]stronghold.Address, 0, len(keys))
	for _, k := range keys {
		owners = append(owners, stronghold.Address(k[len(k)-stronghold.AddressLength:]))
	}
	return owners, nil
}

// PendingTransactions lists the ids of all unexecuted transactions of the
// account, in ascending id order.
func PendingTransactions(db stronghold.ReadOnlyKVStore, account stronghold.Address) ([]int64, error) {
	bucket := NewTransactionBucket()
	iter, err := bucket.PrefixIterator(db, account)
	if err != nil {
		return nil, err
	}
	defer iter.Release()

	var ids []int64
	for {
		k, v, err := iter.Next()
		switch {
		case err == nil:
			var tx Transaction
			if err := tx.Unmarshal(v); err != nil {
				return nil, errors.Wrap(err, "transaction")
			}
			if tx.Executed {
				continue
			}
			key := bucket.StripDBKey(k)
			ids = append(ids, orm.DecodeSequence(key[len(key)-8:]))
		case errors.ErrIteratorDone.Is(err):
			return ids, nil
		default:
			return nil, err
		}
	}
}

// Confirmation references one confirmed transaction via the owner reverse
// index.
type Confirmation struct {
	Account stronghold.Address
	TxID    int64
}

// ConfirmedBy lists everything the owner has confirmed, across all
// accounts.
func ConfirmedBy(db stronghold.ReadOnlyKVStore, owner stronghold.Address) ([]Confirmation, error) {
	start, end := orm.PrefixRange(ownerScanPrefix(owner))
	keys, err := collectKeys(db.Iterator(start, end))
	if err != nil {
		return nil, err
	}

	out := make([]Confirmation, 0, len(keys))
	for _, k := range keys {
		tail := k[len(ownerIndexPrefix)+stronghold.AddressLength:]
		out = append(out, Confirmation{
			Account: stronghold.Address(tail[:stronghold.AddressLength]).Clone(),
			TxID:    orm.DecodeSequence(tail[stronghold.AddressLength:]),
		})
	}
	return out, nil
}
