package multisig

import (
	"github.com/iov-one/stronghold"
	"github.com/iov-one/stronghold/errors"
	"github.com/iov-one/stronghold/orm"
	"github.com/iov-one/stronghold/x"
)

// Forwarder executes an approved transaction. It is how the approval
// module reaches back into the account router without importing it.
type Forwarder interface {
	Forward(ctx stronghold.Context, db stronghold.CacheableKVStore, target stronghold.Address, amount int64, payload []byte) ([]byte, error)
}

// Controller is the mutating surface of the approval module. Every entry
// point is gated on the caller being a current owner of the account's
// contract, and every entry point runs its writes against a cache wrap
// that is only written on success.
type Controller struct {
	auth      x.Authenticator
	forward   Forwarder
	contracts orm.ModelBucket
	txs       orm.ModelBucket
}

// NewController returns the mutating surface. The forwarder may be nil if
// ExecuteTransaction is never used.
func NewController(auth x.Authenticator, forward Forwarder) *Controller {
	return &Controller{
		auth:      auth,
		forward:   forward,
		contracts: NewContractBucket(),
		txs:       NewTransactionBucket(),
	}
}

// ownerAddress returns the caller's address if the caller is a current
// owner of the contract.
func (c *Controller) ownerAddress(ctx stronghold.Context, contract *Contract) (stronghold.Address, error) {
	for _, addr := range x.GetAddresses(ctx, c.auth) {
		if contract.HasOwner(addr) {
			return addr, nil
		}
	}
	return nil, errors.Wrap(errors.ErrUnauthorized, "not an owner")
}

func (c *Controller) contract(db stronghold.ReadOnlyKVStore, account stronghold.Address) (*Contract, error) {
	var contract Contract
	if err := c.contracts.One(db, account, &contract); err != nil {
		return nil, errors.Wrap(err, "contract")
	}
	return &contract, nil
}

func (c *Controller) transaction(db stronghold.ReadOnlyKVStore, account stronghold.Address, txID int64) (*Transaction, error) {
	var tx Transaction
	if err := c.txs.One(db, transactionKey(account, txID), &tx); err != nil {
		return nil, errors.Wrap(err, "transaction")
	}
	return &tx, nil
}

// SubmitTransaction proposes a new transaction and immediately records
// the submitter's confirmation. The returned id numbers from zero per
// account.
func (c *Controller) SubmitTransaction(ctx stronghold.Context, db stronghold.CacheableKVStore, account, target stronghold.Address, amount int64, payload []byte) (int64, error) {
	contract, err := c.contract(db, account)
	if err != nil {
		return 0, err
	}
	owner, err := c.ownerAddress(ctx, contract)
	if err != nil {
		return 0, err
	}
	if err := target.Validate(); err != nil {
		return 0, errors.Wrap(err, "target")
	}
	if amount < 0 {
		return 0, errors.Wrap(errors.ErrInput, "negative amount")
	}

	cache := db.CacheWrap()
	seq := txSequence(account)
	n, err := seq.NextInt(cache)
	if err != nil {
		cache.Discard()
		return 0, errors.Wrap(err, "id counter")
	}
	txID := n - 1

	tx := &Transaction{
		Target:        target.Clone(),
		Amount:        amount,
		Payload:       payload,
		Hash:          stronghold.ContentHash(target, amount, payload),
		Confirmations: 1,
	}
	if at, err := stronghold.BlockTime(ctx); err == nil {
		tx.CreatedAt = at.Unix()
	}
	if err := c.txs.Put(cache, transactionKey(account, txID), tx); err != nil {
		cache.Discard()
		return 0, err
	}
	if err := c.setConfirmed(cache, account, txID, owner); err != nil {
		cache.Discard()
		return 0, err
	}
	if err := cache.Write(); err != nil {
		return 0, errors.Wrap(err, "writing cache")
	}

	stronghold.GetLogger(ctx).Info("transaction submitted",
		"account", account, "tx", txID, "owner", owner)
	return txID, nil
}

// ConfirmTransaction records the caller's confirmation on a pending
// transaction.
func (c *Controller) ConfirmTransaction(ctx stronghold.Context, db stronghold.CacheableKVStore, account stronghold.Address, txID int64) error {
	contract, err := c.contract(db, account)
	if err != nil {
		return err
	}
	owner, err := c.ownerAddress(ctx, contract)
	if err != nil {
		return err
	}
	tx, err := c.transaction(db, account, txID)
	if err != nil {
		return err
	}
	if tx.Executed {
		return errors.Wrap(errors.ErrState, "already executed")
	}
	switch ok, err := db.Has(confirmKey(account, txID, owner)); {
	case err != nil:
		return err
	case ok:
		return errors.Wrap(errors.ErrState, "already confirmed")
	}

	cache := db.CacheWrap()
	if err := c.setConfirmed(cache, account, txID, owner); err != nil {
		cache.Discard()
		return err
	}
	tx.Confirmations++
	if err := c.txs.Put(cache, transactionKey(account, txID), tx); err != nil {
		cache.Discard()
		return err
	}
	if err := cache.Write(); err != nil {
		return errors.Wrap(err, "writing cache")
	}
	return nil
}

// RevokeConfirmation withdraws the caller's confirmation from a pending
// transaction.
func (c *Controller) RevokeConfirmation(ctx stronghold.Context, db stronghold.CacheableKVStore, account stronghold.Address, txID int64) error {
	contract, err := c.contract(db, account)
	if err != nil {
		return err
	}
	owner, err := c.ownerAddress(ctx, contract)
	if err != nil {
		return err
	}
	tx, err := c.transaction(db, account, txID)
	if err != nil {
		return err
	}
	if tx.Executed {
		return errors.Wrap(errors.ErrState, "already executed")
	}
	switch ok, err := db.Has(confirmKey(account, txID, owner)); {
	case err != nil:
		return err
	case !ok:
		return errors.Wrap(errors.ErrState, "not confirmed")
	}

	cache := db.CacheWrap()
	if err := c.dropConfirmed(cache, account, txID, owner); err != nil {
		cache.Discard()
		return err
	}
	tx.Confirmations--
	if err := c.txs.Put(cache, transactionKey(account, txID), tx); err != nil {
		cache.Discard()
		return err
	}
	if err := cache.Write(); err != nil {
		return errors.Wrap(err, "writing cache")
	}
	return nil
}

func (c *Controller) setConfirmed(db stronghold.KVStore, account stronghold.Address, txID int64, owner stronghold.Address) error {
	if err := db.Set(confirmKey(account, txID, owner), []byte{1}); err != nil {
		return err
	}
	return db.Set(ownerKey(owner, account, txID), []byte{1})
}

func (c *Controller) dropConfirmed(db stronghold.KVStore, account stronghold.Address, txID int64, owner stronghold.Address) error {
	if err := db.Delete(confirmKey(account, txID, owner)); err != nil {
		return err
	}
	return db.Delete(ownerKey(owner, account, txID))
}

// ExecResult reports the outcome of an execution attempt. A failed
// forwarded call is not an error: Executed is false, the transaction can
// be retried without gathering confirmations again, and Diagnostic holds
// the callee's raw failure payload.
type ExecResult struct {
	TxID     int64
	Executed bool
	Output   []byte
	// Diagnostic is only set when the forwarded call failed.
	Diagnostic []byte
}

// ExecuteTransaction executes a sufficiently confirmed transaction by
// forwarding it through the account router. The executed flag and the
// forwarded call commit or roll back together.
//
// The context must satisfy the forwarder's own gate as well, for the
// account router that is the account capability a successful Authorize
// grants.
func (c *Controller) ExecuteTransaction(ctx stronghold.Context, db stronghold.CacheableKVStore, account stronghold.Address, txID int64) (*ExecResult, error) {
	contract, err := c.contract(db, account)
	if err != nil {
		return nil, err
	}
	if _, err := c.ownerAddress(ctx, contract); err != nil {
		return nil, err
	}
	tx, err := c.transaction(db, account, txID)
	if err != nil {
		return nil, err
	}
	if tx.Executed {
		return nil, errors.Wrap(errors.ErrState, "already executed")
	}
	if tx.Confirmations < contract.Threshold {
		return nil, errors.Wrapf(errors.ErrUnauthorized,
			"%d of %d confirmations", tx.Confirmations, contract.Threshold)
	}
	if c.forward == nil {
		return nil, errors.Wrap(errors.ErrHuman, "no forwarder wired")
	}

	cache := db.CacheWrap()
	tx.Executed = true
	if err := c.txs.Put(cache, transactionKey(account, txID), tx); err != nil {
		cache.Discard()
		return nil, err
	}

	out, err := c.forward.Forward(ctx, cache, tx.Target, tx.Amount, tx.Payload)
	if err != nil {
		cache.Discard()
		if !errors.ErrExecution.Is(err) {
			// Not a callee failure but a wiring or gating problem.
			return nil, err
		}
		stronghold.GetLogger(ctx).Info("execution failed",
			"account", account, "tx", txID)
		return &ExecResult{
			TxID:       txID,
			Executed:   false,
			Diagnostic: stronghold.FailurePayload(err),
		}, nil
	}

	if err := cache.Write(); err != nil {
		return nil, errors.Wrap(err, "writing cache")
	}
	stronghold.GetLogger(ctx).Info("transaction executed",
		"account", account, "tx", txID)
	return &ExecResult{
		TxID:     txID,
		Executed: true,
		Output:   out,
	}, nil
}

// AddOwner extends the owner list of the contract.
func (c *Controller) AddOwner(ctx stronghold.Context, db stronghold.CacheableKVStore, account, owner stronghold.Address) error {
	contract, err := c.contract(db, account)
	if err != nil {
		return err
	}
	if _, err := c.ownerAddress(ctx, contract); err != nil {
		return err
	}
	if err := owner.Validate(); err != nil {
		return errors.Wrap(err, "owner")
	}
	if contract.HasOwner(owner) {
		return errors.Wrapf(errors.ErrDuplicate, "owner: %s", owner)
	}

	contract.Owners = append(contract.Owners, owner.Clone())
	return c.contracts.Put(db, account, contract)
}

// RemoveOwner shrinks the owner list. It refuses to leave fewer owners
// than the threshold requires; lower the threshold first.
func (c *Controller) RemoveOwner(ctx stronghold.Context, db stronghold.CacheableKVStore, account, owner stronghold.Address) error {
	contract, err := c.contract(db, account)
	if err != nil {
		return err
	}
	if _, err := c.ownerAddress(ctx, contract); err != nil {
		return err
	}
	if !contract.HasOwner(owner) {
		return errors.Wrapf(errors.ErrNotFound, "owner: %s", owner)
	}
	if len(contract.Owners)-1 < int(contract.Threshold) {
		return errors.Wrap(errors.ErrInput, "fewer owners than the threshold")
	}

	kept := make([]stronghold.Address, 0, len(contract.Owners)-1)
	for _, o := range contract.Owners {
		if !o.Equals(owner) {
			kept = append(kept, o)
		}
	}
	contract.Owners = kept
	return c.contracts.Put(db, account, contract)
}

// ChangeThreshold sets a new confirmation threshold, within
// [1, len(owners)].
func (c *Controller) ChangeThreshold(ctx stronghold.Context, db stronghold.CacheableKVStore, account stronghold.Address, threshold uint32) error {
	contract, err := c.contract(db, account)
	if err != nil {
		return err
	}
	if _, err := c.ownerAddress(ctx, contract); err != nil {
		return err
	}
	if threshold < 1 || int(threshold) > len(contract.Owners) {
		return errors.Wrapf(errors.ErrInput, "threshold: %d", threshold)
	}

	contract.Threshold = threshold
	return c.contracts.Put(db, account, contract)
}
