package multisig

import (
	"github.com/iov-one/stronghold"
	"github.com/iov-one/stronghold/errors"
	"github.com/iov-one/stronghold/orm"
)

const (
	// ContractBucketName is where we store the owner sets.
	ContractBucketName = "contracts"
	// TransactionBucketName is where we store proposed transactions.
	TransactionBucketName = "msigtx"

	// Maximum number of owners a contract may carry. The confirmation
	// counter is a uint32, this bound keeps it far from any overflow.
	maxOwnersAllowed = 100
)

var _ orm.Model = (*Contract)(nil)

// Validate enforces the contract invariant: a non empty, duplicate free
// owner list and a threshold within [1, len(owners)].
func (c *Contract) Validate() error {
	switch n := len(c.Owners); {
	case n == 0:
		return errors.Wrap(errors.ErrModel, "no owners")
	case n > maxOwnersAllowed:
		return errors.Wrap(errors.ErrModel, "too many owners")
	}
	for i, o := range c.Owners {
		if err := o.Validate(); err != nil {
			return errors.Wrapf(err, "owner #%d", i)
		}
		for _, prev := range c.Owners[:i] {
			if o.Equals(prev) {
				return errors.Wrapf(errors.ErrModel, "duplicate owner: %s", o)
			}
		}
	}
	if c.Threshold < 1 {
		return errors.Wrap(errors.ErrModel, "zero threshold")
	}
	if int(c.Threshold) > len(c.Owners) {
		return errors.Wrap(errors.ErrModel, "threshold exceeds owner count")
	}
	return nil
}

// HasOwner returns true if the address is a member of the owner list.
func (c *Contract) HasOwner(addr stronghold.Address) bool {
	for _, o := range c.Owners {
		if o.Equals(addr) {
			return true
		}
	}
	return false
}

var _ orm.Model = (*Transaction)(nil)

// Validate ensures a transaction record is complete before persisting.
func (t *Transaction) Validate() error {
	if err := t.Target.Validate(); err != nil {
		return errors.Wrap(err, "target")
	}
	if t.Amount < 0 {
		return errors.Wrap(errors.ErrModel, "negative amount")
	}
	if len(t.Hash) != 32 {
		return errors.Wrapf(errors.ErrModel, "content hash: %d bytes", len(t.Hash))
	}
	if t.CreatedAt < 0 {
		return errors.Wrap(errors.ErrModel, "negative creation time")
	}
	return nil
}

// NewContractBucket returns the bucket holding one Contract per account
// address.
func NewContractBucket() orm.ModelBucket {
	return orm.NewModelBucket(ContractBucketName)
}

// NewTransactionBucket returns the bucket holding transaction records,
// keyed by account address followed by an 8 byte transaction id.
func NewTransactionBucket() orm.ModelBucket {
	return orm.NewModelBucket(TransactionBucketName)
}

// transactionKey builds the composite primary key of a transaction.
func transactionKey(account stronghold.Address, txID int64) []byte {
	out := make([]byte, 0, len(account)+8)
	out = append(out, account...)
	return append(out, orm.EncodeSequence(txID)...)
}

// txSequence returns the per account id counter. Dropping it on uninstall
// makes a reinstalled contract number from zero again.
func txSequence(account stronghold.Address) orm.Sequence {
	return orm.NewSequence("msig", "tx:"+account.String())
}

const (
	// confirmIndexPrefix keys the confirmation bits:
	//    _i.msigconf:<account><txid><owner>
	confirmIndexPrefix = "_i.msigconf:"
	// ownerIndexPrefix is the reverse index, for listing everything an
	// owner has confirmed:
	//    _i.msigown:<owner><account><txid>
	ownerIndexPrefix = "_i.msigown:"
)

func confirmKey(account stronghold.Address, txID int64, owner stronghold.Address) []byte {
	out := make([]byte, 0, len(confirmIndexPrefix)+len(account)+8+len(owner))
	out = append(out, confirmIndexPrefix...)
	out = append(out, account...)
	out = append(out, orm.EncodeSequence(txID)...)
	return append(out, owner...)
}

// confirmScanPrefix covers all confirmation bits of one transaction.
func confirmScanPrefix(account stronghold.Address, txID int64) []byte {
	out := make([]byte, 0, len(confirmIndexPrefix)+len(account)+8)
	out = append(out, confirmIndexPrefix...)
	out = append(out, account...)
	return append(out, orm.EncodeSequence(txID)...)
}

// confirmAccountPrefix covers all confirmation bits of one account.
func confirmAccountPrefix(account stronghold.Address) []byte {
	out := make([]byte, 0, len(confirmIndexPrefix)+len(account))
	out = append(out, confirmIndexPrefix...)
	return append(out, account...)
}

func ownerKey(owner stronghold.Address, account stronghold.Address, txID int64) []byte {
	out := make([]byte, 0, len(ownerIndexPrefix)+len(owner)+len(account)+8)
	out = append(out, ownerIndexPrefix...)
	out = append(out, owner...)
	out = append(out, account...)
	return append(out, orm.EncodeSequence(txID)...)
}

// ownerScanPrefix covers everything one owner has confirmed, across all
// accounts.
func ownerScanPrefix(owner stronghold.Address) []byte {
	out := make([]byte, 0, len(ownerIndexPrefix)+len(owner))
	out = append(out, ownerIndexPrefix...)
	return append(out, owner...)
}
