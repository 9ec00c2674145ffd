package multisig

import (
	"bytes"
	"encoding/binary"

	"github.com/iov-one/stronghold"
	"github.com/iov-one/stronghold/errors"
	"github.com/iov-one/stronghold/orm"
	"github.com/iov-one/stronghold/x"
)

// ModuleName is the name this module registers under in an account
// registry.
const ModuleName = "multisig"

// initThresholdSize is the wire width of the threshold in the install
// payload: a 4 byte big-endian value followed by 20 byte owner addresses.
const initThresholdSize = 4

// Validator is the m-of-n approval module. State is multi-tenant: every
// account that installed the module owns an independent contract and
// transaction space, keyed by the account address.
type Validator struct {
	auth      x.Authenticator
	contracts orm.ModelBucket
	txs       orm.ModelBucket
}

var _ stronghold.Validator = (*Validator)(nil)

// NewValidator returns the approval module. The authenticator must
// resolve the capability context the router grants on install and
// uninstall.
func NewValidator(auth x.Authenticator) *Validator {
	return &Validator{
		auth:      auth,
		contracts: NewContractBucket(),
		txs:       NewTransactionBucket(),
	}
}

// account resolves the account the hook is invoked for.
func (v *Validator) account(ctx stronghold.Context) (stronghold.Address, error) {
	main := x.MainSigner(ctx, v.auth)
	if main == nil {
		return nil, errors.Wrap(errors.ErrUnauthorized, "no account identity")
	}
	return main.Address(), nil
}

// OnInstall initializes the contract of the installing account. The init
// payload is a 4 byte big-endian threshold followed by the owner
// addresses, 20 bytes each.
func (v *Validator) OnInstall(ctx stronghold.Context, db stronghold.KVStore, data []byte) error {
	account, err := v.account(ctx)
	if err != nil {
		return err
	}

	switch ok, err := v.contracts.Has(db, account); {
	case err != nil:
		return err
	case ok:
		return errors.Wrap(errors.ErrState, "already initialized")
	}

	contract, err := parseInitPayload(data)
	if err != nil {
		return err
	}
	return v.contracts.Put(db, account, contract)
}

func parseInitPayload(data []byte) (*Contract, error) {
	if len(data) < initThresholdSize {
		return nil, errors.Wrap(errors.ErrInput, "init payload too short")
	}
	rest := data[initThresholdSize:]
	if len(rest)%stronghold.AddressLength != 0 {
		return nil, errors.Wrap(errors.ErrInput, "malformed owner list")
	}

	contract := Contract{
		Threshold: binary.BigEndian.Uint32(data[:initThresholdSize]),
	}
	for len(rest) > 0 {
		owner := stronghold.Address(rest[:stronghold.AddressLength]).Clone()
		contract.Owners = append(contract.Owners, owner)
		rest = rest[stronghold.AddressLength:]
	}
	if err := contract.Validate(); err != nil {
		return nil, err
	}
	return &contract, nil
}

// OnUninstall tears down the whole state space of the account: the
// contract, every transaction record, all confirmation bits with their
// reverse index entries and the id counter. A reinstall starts from a
// clean slate.
func (v *Validator) OnUninstall(ctx stronghold.Context, db stronghold.KVStore, data []byte) error {
	account, err := v.account(ctx)
	if err != nil {
		return err
	}

	switch ok, err := v.contracts.Has(db, account); {
	case err != nil:
		return err
	case !ok:
		return errors.Wrap(errors.ErrNotFound, "not initialized")
	}

	if err := v.dropTransactions(db, account); err != nil {
		return err
	}
	if err := v.dropConfirmations(db, account); err != nil {
		return err
	}
	seq := txSequence(account)
	if err := seq.Reset(db); err != nil {
		return errors.Wrap(err, "id counter")
	}
	return v.contracts.Delete(db, account)
}

func (v *Validator) dropTransactions(db stronghold.KVStore, account stronghold.Address) error {
	keys, err := collectKeys(v.txs.PrefixIterator(db, account))
	if err != nil {
		return errors.Wrap(err, "transaction scan")
	}
	for _, k := range keys {
		if err := db.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

func (v *Validator) dropConfirmations(db stronghold.KVStore, account stronghold.Address) error {
	start, end := orm.PrefixRange(confirmAccountPrefix(account))
	keys, err := collectKeys(db.Iterator(start, end))
	if err != nil {
		return errors.Wrap(err, "confirmation scan")
	}
	for _, k := range keys {
		// The tail of a confirmation key holds the owner, the middle
		// the transaction id. Both are needed to drop the reverse
		// index entry alongside.
		owner := stronghold.Address(k[len(k)-stronghold.AddressLength:])
		rawID := k[len(k)-stronghold.AddressLength-8 : len(k)-stronghold.AddressLength]
		txID := orm.DecodeSequence(rawID)

		if err := db.Delete(ownerKey(owner, account, txID)); err != nil {
			return err
		}
		if err := db.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

// collectKeys drains an iterator into a key slice, so that the store can
// be mutated afterwards without an open iterator over the domain.
func collectKeys(iter stronghold.Iterator, err error) ([][]byte, error) {
	if err != nil {
		return nil, err
	}
	defer iter.Release()

	var keys [][]byte
	for {
		k, _, err := iter.Next()
		switch {
		case err == nil:
			cpy := make([]byte, len(k))
			copy(cpy, k)
			keys = append(keys, cpy)
		case errors.ErrIteratorDone.Is(err):
			return keys, nil
		default:
			return nil, err
		}
	}
}

// Decide accepts a request iff enough distinct current owners confirmed
// the referenced transaction. The approval blob names the transaction (8
// byte big-endian id) followed by the claimed signer addresses, 20 bytes
// each. Repeating a signer does not raise the count.
//
// The decision is pure: nothing is written, so a rejected request leaves
// no trace and an accepted one can be decided again.
func (v *Validator) Decide(ctx stronghold.Context, db stronghold.ReadOnlyKVStore, req *stronghold.Request, requestHash []byte) error {
	account := req.Sender

	var contract Contract
	if err := v.contracts.One(db, account, &contract); err != nil {
		return errors.Wrap(err, "contract")
	}

	txID, signers, err := parseApprovalPayload(req.Approval)
	if err != nil {
		return err
	}

	var tx Transaction
	if err := v.txs.One(db, transactionKey(account, txID), &tx); err != nil {
		return errors.Wrap(err, "transaction")
	}
	if tx.Executed {
		return errors.Wrap(errors.ErrState, "already executed")
	}

	ins, err := req.Instruction()
	if err != nil {
		return errors.Wrap(err, "instruction")
	}
	if !bytes.Equal(tx.Hash, ins.Hash()) {
		return errors.Wrap(errors.ErrIntegrity, "content hash mismatch")
	}

	confirmed := uint32(0)
	seen := make(map[string]struct{}, len(signers))
	for _, signer := range signers {
		if _, ok := seen[string(signer)]; ok {
			continue
		}
		seen[string(signer)] = struct{}{}
		if !contract.HasOwner(signer) {
			continue
		}
		ok, err := db.Has(confirmKey(account, txID, signer))
		if err != nil {
			return err
		}
		if ok {
			confirmed++
		}
	}
	if confirmed < contract.Threshold {
		return errors.Wrapf(errors.ErrUnauthorized,
			"%d of %d confirmations", confirmed, contract.Threshold)
	}
	return nil
}

func parseApprovalPayload(data []byte) (int64, []stronghold.Address, error) {
	if len(data) < 8 {
		return 0, nil, errors.Wrap(errors.ErrInput, "approval payload too short")
	}
	rest := data[8:]
	if len(rest)%stronghold.AddressLength != 0 {
		return 0, nil, errors.Wrap(errors.ErrInput, "malformed signer list")
	}

	txID := orm.DecodeSequence(data[:8])
	var signers []stronghold.Address
	for len(rest) > 0 {
		signers = append(signers, stronghold.Address(rest[:stronghold.AddressLength]))
		rest = rest[stronghold.AddressLength:]
	}
	return txID, signers, nil
}

// BuildInitPayload is the counterpart of the OnInstall parser, for
// clients and tests constructing an install request.
func BuildInitPayload(threshold uint32, owners ...stronghold.Address) []byte {
	out := make([]byte, initThresholdSize, initThresholdSize+len(owners)*stronghold.AddressLength)
	binary.BigEndian.PutUint32(out, threshold)
	for _, o := range owners {
		out = append(out, o...)
	}
	return out
}

// BuildApprovalPayload encodes the transaction reference and the claimed
// signers for the Decide arm.
func BuildApprovalPayload(txID int64, signers ...stronghold.Address) []byte {
	out := make([]byte, 0, 8+len(signers)*stronghold.AddressLength)
	out = append(out, orm.EncodeSequence(txID)...)
	for _, s := range signers {
		out = append(out, s...)
	}
	return out
}
