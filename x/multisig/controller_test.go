package multisig

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iov-one/stronghold"
	"github.com/iov-one/stronghold/account"
	"github.com/iov-one/stronghold/errors"
	"github.com/iov-one/stronghold/store"
	"github.com/iov-one/stronghold/strongholdtest"
	"github.com/iov-one/stronghold/strongholdtest/assert"
)

// forwarderDouble is a scripted Forwarder.
type forwarderDouble struct {
	out   []byte
	err   error
	calls []fwdCall
}

type fwdCall struct {
	target  stronghold.Address
	amount  int64
	payload []byte
}

var _ Forwarder = (*forwarderDouble)(nil)

func (f *forwarderDouble) Forward(ctx stronghold.Context, db stronghold.CacheableKVStore, target stronghold.Address, amount int64, payload []byte) ([]byte, error) {
	f.calls = append(f.calls, fwdCall{target: target, amount: amount, payload: payload})
	if f.err != nil {
		return nil, f.err
	}
	return f.out, nil
}

type fix struct {
	val      *Validator
	ctrl     *Controller
	fwd      *forwarderDouble
	auth     *strongholdtest.CtxAuth
	db       stronghold.CacheableKVStore
	acctCond stronghold.Condition
	account  stronghold.Address
	owners   []stronghold.Condition
}

// newFix installs a contract with the given number of owners and the
// given threshold, ready to use.
func newFix(t testing.TB, ownerCount int, threshold uint32) *fix {
	t.Helper()

	f := &fix{
		auth:     &strongholdtest.CtxAuth{Key: "auth"},
		fwd:      &forwarderDouble{out: []byte("ok")},
		db:       store.MemStore(),
		acctCond: strongholdtest.NewCondition(),
	}
	f.account = f.acctCond.Address()
	for i := 0; i < ownerCount; i++ {
		f.owners = append(f.owners, strongholdtest.NewCondition())
	}
	f.val = NewValidator(f.auth)
	f.ctrl = NewController(f.auth, f.fwd)

	if err := f.val.OnInstall(f.accountCtx(), f.db, f.initPayload(threshold)); err != nil {
		t.Fatalf("cannot install: %+v", err)
	}
	return f
}

func (f *fix) initPayload(threshold uint32) []byte {
	addrs := make([]stronghold.Address, 0, len(f.owners))
	for _, o := range f.owners {
		addrs = append(addrs, o.Address())
	}
	return BuildInitPayload(threshold, addrs...)
}

// accountCtx is the capability context lifecycle hooks run under.
func (f *fix) accountCtx() stronghold.Context {
	return f.auth.SetConditions(context.Background(), f.acctCond)
}

// asOwner authenticates the i-th owner.
func (f *fix) asOwner(i int) stronghold.Context {
	ctx := stronghold.WithBlockTime(context.Background(), time.Unix(1234567890, 0))
	return f.auth.SetConditions(ctx, f.owners[i])
}

// asStranger authenticates an identity outside the owner set.
func (f *fix) asStranger() stronghold.Context {
	return f.auth.SetConditions(context.Background(), strongholdtest.NewCondition())
}

// decideRequest builds a request routed at this module, carrying the
// given instruction and approval signer list.
func (f *fix) decideRequest(t testing.TB, txID int64, target stronghold.Address, amount int64, payload []byte, signers ...stronghold.Address) *stronghold.Request {
	t.Helper()

	ins := stronghold.Instruction{Target: target, Amount: amount, Payload: payload}
	raw, err := ins.Encode()
	if err != nil {
		t.Fatalf("cannot encode instruction: %+v", err)
	}
	return &stronghold.Request{
		Sender:      f.account,
		CallPayload: append(stronghold.ValidatorID(7).Bytes(), raw...),
		Approval:    BuildApprovalPayload(txID, signers...),
	}
}

func TestSubmitTransaction(t *testing.T) {
	f := newFix(t, 3, 2)
	target := strongholdtest.NewAddress()

	txID, err := f.ctrl.SubmitTransaction(f.asOwner(0), f.db,
		f.account, target, 42, []byte("payload"))
	require.NoError(t, err)
	require.EqualValues(t, 0, txID)

	// Ids number from zero, one per submission.
	second, err := f.ctrl.SubmitTransaction(f.asOwner(1), f.db,
		f.account, target, 1, nil)
	require.NoError(t, err)
	require.EqualValues(t, 1, second)

	tx, err := GetTransaction(f.db, f.account, txID)
	require.NoError(t, err)
	require.Equal(t, target, tx.Target)
	require.EqualValues(t, 42, tx.Amount)
	require.Equal(t, []byte("payload"), tx.Payload)
	require.Equal(t, stronghold.ContentHash(target, 42, []byte("payload")), tx.Hash)
	require.False(t, tx.Executed)
	require.EqualValues(t, 1234567890, tx.CreatedAt)

	// The submitter is confirmed automatically, nobody else is.
	require.EqualValues(t, 1, tx.Confirmations)
	confirmed, err := HasConfirmed(f.db, f.account, txID, f.owners[0].Address())
	require.NoError(t, err)
	require.True(t, confirmed)
	confirmed, err = HasConfirmed(f.db, f.account, txID, f.owners[1].Address())
	require.NoError(t, err)
	require.False(t, confirmed)
}

func TestSubmitTransactionRejects(t *testing.T) {
	f := newFix(t, 3, 2)
	target := strongholdtest.NewAddress()

	_, err := f.ctrl.SubmitTransaction(f.asStranger(), f.db,
		f.account, target, 1, nil)
	assert.IsErr(t, errors.ErrUnauthorized, err)

	_, err = f.ctrl.SubmitTransaction(f.asOwner(0), f.db,
		strongholdtest.NewAddress(), target, 1, nil)
	assert.IsErr(t, errors.ErrNotFound, err)

	_, err = f.ctrl.SubmitTransaction(f.asOwner(0), f.db,
		f.account, nil, 1, nil)
	assert.IsErr(t, errors.ErrInput, err)

	_, err = f.ctrl.SubmitTransaction(f.asOwner(0), f.db,
		f.account, target, -1, nil)
	assert.IsErr(t, errors.ErrInput, err)
}

func TestConfirmAndRevoke(t *testing.T) {
	f := newFix(t, 3, 2)
	target := strongholdtest.NewAddress()

	txID, err := f.ctrl.SubmitTransaction(f.asOwner(0), f.db,
		f.account, target, 1, nil)
	require.NoError(t, err)

	require.NoError(t, f.ctrl.ConfirmTransaction(f.asOwner(1), f.db, f.account, txID))

	tx, err := GetTransaction(f.db, f.account, txID)
	require.NoError(t, err)
	require.EqualValues(t, 2, tx.Confirmations)

	// The counter always equals the number of set bits.
	owners, err := ConfirmingOwners(f.db, f.account, txID)
	require.NoError(t, err)
	require.Len(t, owners, int(tx.Confirmations))

	err = f.ctrl.ConfirmTransaction(f.asOwner(1), f.db, f.account, txID)
	assert.IsErr(t, errors.ErrState, err)
	err = f.ctrl.ConfirmTransaction(f.asStranger(), f.db, f.account, txID)
	assert.IsErr(t, errors.ErrUnauthorized, err)
	err = f.ctrl.ConfirmTransaction(f.asOwner(1), f.db, f.account, txID+1)
	assert.IsErr(t, errors.ErrNotFound, err)

	require.NoError(t, f.ctrl.RevokeConfirmation(f.asOwner(1), f.db, f.account, txID))

	tx, err = GetTransaction(f.db, f.account, txID)
	require.NoError(t, err)
	require.EqualValues(t, 1, tx.Confirmations)

	err = f.ctrl.RevokeConfirmation(f.asOwner(1), f.db, f.account, txID)
	assert.IsErr(t, errors.ErrState, err)
	err = f.ctrl.RevokeConfirmation(f.asStranger(), f.db, f.account, txID)
	assert.IsErr(t, errors.ErrUnauthorized, err)
}

func TestExecuteTransaction(t *testing.T) {
	f := newFix(t, 3, 2)
	target := strongholdtest.NewAddress()

	txID, err := f.ctrl.SubmitTransaction(f.asOwner(0), f.db,
		f.account, target, 42, []byte("payload"))
	require.NoError(t, err)

	// One confirmation is below the threshold of two.
	_, err = f.ctrl.ExecuteTransaction(f.asOwner(0), f.db, f.account, txID)
	assert.IsErr(t, errors.ErrUnauthorized, err)

	require.NoError(t, f.ctrl.ConfirmTransaction(f.asOwner(1), f.db, f.account, txID))

	_, err = f.ctrl.ExecuteTransaction(f.asStranger(), f.db, f.account, txID)
	assert.IsErr(t, errors.ErrUnauthorized, err)

	res, err := f.ctrl.ExecuteTransaction(f.asOwner(2), f.db, f.account, txID)
	require.NoError(t, err)
	require.True(t, res.Executed)
	require.Equal(t, []byte("ok"), res.Output)
	require.Nil(t, res.Diagnostic)

	require.Len(t, f.fwd.calls, 1)
	require.Equal(t, target, f.fwd.calls[0].target)
	require.EqualValues(t, 42, f.fwd.calls[0].amount)
	require.Equal(t, []byte("payload"), f.fwd.calls[0].payload)

	tx, err := GetTransaction(f.db, f.account, txID)
	require.NoError(t, err)
	require.True(t, tx.Executed)

	// Executed transactions are no longer pending and cannot be
	// executed, confirmed or revoked again.
	pending, err := PendingTransactions(f.db, f.account)
	require.NoError(t, err)
	require.Empty(t, pending)

	_, err = f.ctrl.ExecuteTransaction(f.asOwner(0), f.db, f.account, txID)
	assert.IsErr(t, errors.ErrState, err)
	err = f.ctrl.ConfirmTransaction(f.asOwner(2), f.db, f.account, txID)
	assert.IsErr(t, errors.ErrState, err)
	err = f.ctrl.RevokeConfirmation(f.asOwner(1), f.db, f.account, txID)
	assert.IsErr(t, errors.ErrState, err)
}

func TestExecuteFailureKeepsTransactionPending(t *testing.T) {
	f := newFix(t, 2, 1)
	target := strongholdtest.NewAddress()

	txID, err := f.ctrl.SubmitTransaction(f.asOwner(0), f.db,
		f.account, target, 0, []byte("payload"))
	require.NoError(t, err)

	f.fwd.err = &account.ForwardError{Diagnostic: []byte{0xBA, 0xD0}}

	// A failing callee is not an error of the operation.
	res, err := f.ctrl.ExecuteTransaction(f.asOwner(0), f.db, f.account, txID)
	require.NoError(t, err)
	require.False(t, res.Executed)
	require.Equal(t, []byte{0xBA, 0xD0}, res.Diagnostic)

	// The executed mark was rolled back with the rest of the attempt,
	// so a retry needs no new confirmations.
	tx, err := GetTransaction(f.db, f.account, txID)
	require.NoError(t, err)
	require.False(t, tx.Executed)
	pending, err := PendingTransactions(f.db, f.account)
	require.NoError(t, err)
	require.Equal(t, []int64{txID}, pending)

	f.fwd.err = nil
	res, err = f.ctrl.ExecuteTransaction(f.asOwner(0), f.db, f.account, txID)
	require.NoError(t, err)
	require.True(t, res.Executed)
}

func TestOwnerAdministration(t *testing.T) {
	f := newFix(t, 3, 2)
	joining := strongholdtest.NewAddress()

	err := f.ctrl.AddOwner(f.asStranger(), f.db, f.account, joining)
	assert.IsErr(t, errors.ErrUnauthorized, err)
	err = f.ctrl.AddOwner(f.asOwner(0), f.db, f.account, f.owners[1].Address())
	assert.IsErr(t, errors.ErrDuplicate, err)

	require.NoError(t, f.ctrl.AddOwner(f.asOwner(0), f.db, f.account, joining))
	isOwner, err := IsOwner(f.db, f.account, joining)
	require.NoError(t, err)
	require.True(t, isOwner)

	err = f.ctrl.RemoveOwner(f.asOwner(0), f.db, f.account, strongholdtest.NewAddress())
	assert.IsErr(t, errors.ErrNotFound, err)

	require.NoError(t, f.ctrl.RemoveOwner(f.asOwner(0), f.db, f.account, joining))
	require.NoError(t, f.ctrl.RemoveOwner(f.asOwner(0), f.db, f.account, f.owners[2].Address()))

	// Two owners with a threshold of two is the floor now.
	err = f.ctrl.RemoveOwner(f.asOwner(0), f.db, f.account, f.owners[1].Address())
	assert.IsErr(t, errors.ErrInput, err)

	err = f.ctrl.ChangeThreshold(f.asOwner(0), f.db, f.account, 0)
	assert.IsErr(t, errors.ErrInput, err)
	err = f.ctrl.ChangeThreshold(f.asOwner(0), f.db, f.account, 3)
	assert.IsErr(t, errors.ErrInput, err)

	require.NoError(t, f.ctrl.ChangeThreshold(f.asOwner(0), f.db, f.account, 1))
	require.NoError(t, f.ctrl.RemoveOwner(f.asOwner(0), f.db, f.account, f.owners[1].Address()))

	contract, err := GetContract(f.db, f.account)
	require.NoError(t, err)
	require.Len(t, contract.Owners, 1)
	require.EqualValues(t, 1, contract.Threshold)
}

func TestConfirmedByReverseIndex(t *testing.T) {
	f := newFix(t, 2, 1)
	busy := f.owners[0].Address()

	first, err := f.ctrl.SubmitTransaction(f.asOwner(0), f.db,
		f.account, strongholdtest.NewAddress(), 1, nil)
	require.NoError(t, err)
	second, err := f.ctrl.SubmitTransaction(f.asOwner(0), f.db,
		f.account, strongholdtest.NewAddress(), 2, nil)
	require.NoError(t, err)

	confirmed, err := ConfirmedBy(f.db, busy)
	require.NoError(t, err)
	require.Equal(t, []Confirmation{
		{Account: f.account, TxID: first},
		{Account: f.account, TxID: second},
	}, confirmed)

	confirmed, err = ConfirmedBy(f.db, f.owners[1].Address())
	require.NoError(t, err)
	require.Empty(t, confirmed)
}
