package account

import (
	"github.com/iov-one/stronghold"
	"github.com/iov-one/stronghold/crypto"
	"github.com/iov-one/stronghold/errors"
	"github.com/iov-one/stronghold/orm"
	"github.com/iov-one/stronghold/x"
)

// AccountCondition calculates the own identity of an account given its
// stable id.
func AccountCondition(id []byte) stronghold.Condition {
	return stronghold.NewCondition("account", "self", id)
}

// Account is the router of one smart account. It owns the account's
// validator bindings, its sequence counter and its ledger balance, and it
// is the only component that talks to validator modules.
type Account struct {
	self       stronghold.Condition
	dispatcher stronghold.Condition
	auth       x.Authenticator
	registry   *Registry
	invoker    stronghold.Invoker
	seq        orm.Sequence
	ledger     Ledger
}

// NewAccount wires a router for the account with the given stable id. The
// dispatcher condition is immutable for the lifetime of the account: it
// is the sole external identity allowed to trigger Authorize and Forward.
func NewAccount(id []byte, dispatcher stronghold.Condition, auth x.Authenticator, registry *Registry, invoker stronghold.Invoker) (*Account, error) {
	if len(id) == 0 {
		return nil, errors.Wrap(errors.ErrEmpty, "account id")
	}
	if err := dispatcher.Validate(); err != nil {
		return nil, errors.Wrap(err, "dispatcher")
	}
	if auth == nil {
		return nil, errors.Wrap(errors.ErrEmpty, "authenticator")
	}
	if registry == nil {
		return nil, errors.Wrap(errors.ErrEmpty, "registry")
	}
	if invoker == nil {
		return nil, errors.Wrap(errors.ErrEmpty, "invoker")
	}

	self := AccountCondition(id)
	return &Account{
		self:       self,
		dispatcher: dispatcher,
		// The capability granted by Authorize is read through the
		// same authenticator as any external identity.
		auth:     x.ChainAuth(auth, Authenticate{}),
		registry: registry,
		invoker:  invoker,
		seq:      orm.NewSequence("account", "seq:"+self.Address().String()),
	}, nil
}

// Condition is the account's own identity.
func (a *Account) Condition() stronghold.Condition {
	return a.self
}

// Address is the account's stable address.
func (a *Account) Address() stronghold.Address {
	return a.self.Address()
}

// Ledger exposes the native unit ledger of the router.
func (a *Account) Ledger() Ledger {
	return a.ledger
}

// Sequence returns the most recently allocated request sequence value.
func (a *Account) Sequence(db stronghold.ReadOnlyKVStore) (int64, error) {
	val, _, err := a.seq.Latest(db)
	return val, err
}

// Authorize decides whether the requested action is authorized. Only the
// trusted dispatcher may call this.
//
// When shortfall is positive, that amount is first transferred back to
// the dispatcher; a failing transfer is fatal and aborts the whole call.
// The request sequence must match the account's counter or the request
// is rejected without consuming a sequence value.
// The routing key at the front of the call payload selects the deciding
// module; with no module bound, the default arm checks that the auxiliary
// blob holds some valid signature over the domain bound digest of
// (requestHash, account, chain id).
//
// The returned code is zero on acceptance and the rejection class
// otherwise. On acceptance the returned context carries the account's own
// condition: the capability needed for Install and Uninstall.
func (a *Account) Authorize(ctx stronghold.Context, db stronghold.CacheableKVStore, req *stronghold.Request, requestHash []byte, shortfall int64) (stronghold.Context, uint32, error) {
	if !a.auth.HasAddress(ctx, a.dispatcher.Address()) {
		return ctx, 0, errors.Wrap(errors.ErrUnauthorized, "dispatcher only")
	}

	logger := stronghold.GetLogger(ctx)

	if shortfall > 0 {
		if err := a.ledger.Move(db, a.Address(), a.dispatcher.Address(), shortfall); err != nil {
			return ctx, 0, errors.Wrap(err, "shortfall refund")
		}
	}

	// Requests are numbered from zero, so the counter state is exactly
	// the sequence the next request must carry. A replayed or out of
	// order request is rejected before the counter moves, keeping the
	// expected value stable.
	expected, _, err := a.seq.Latest(db)
	if err != nil {
		return ctx, 0, errors.Wrap(err, "sequence")
	}
	if req.Sequence != expected {
		code := errors.Code(errors.Wrapf(errors.ErrState,
			"sequence: want %d, got %d", expected, req.Sequence))
		logger.Info("request rejected",
			"account", a.Address(), "code", code)
		return ctx, code, nil
	}
	if _, err := a.seq.NextInt(db); err != nil {
		return ctx, 0, errors.Wrap(err, "sequence")
	}

	if err := a.decide(ctx, db, req, requestHash); err != nil {
		code := errors.Code(err)
		logger.Info("request rejected",
			"account", a.Address(), "code", code)
		return ctx, code, nil
	}

	logger.Debug("request accepted", "account", a.Address())
	return withSelf(ctx, a.self), 0, nil
}

func (a *Account) decide(ctx stronghold.Context, db stronghold.CacheableKVStore, req *stronghold.Request, requestHash []byte) error {
	if err := req.Validate(); err != nil {
		return errors.Wrap(err, "request")
	}
	if !req.Sender.Equals(a.Address()) {
		return errors.Wrap(errors.ErrUnauthorized, "foreign sender")
	}

	id := req.ValidatorID()
	if name, err := a.binding(db, id); err == nil {
		module, ok := a.registry.Module(name)
		if !ok {
			// A binding referencing an unregistered module means
			// the process was wired differently than when the
			// module was installed.
			return errors.Wrapf(errors.ErrHuman, "module %q not loaded", name)
		}
		return module.Decide(ctx, db, req, requestHash)
	} else if !errors.ErrNotFound.Is(err) {
		return err
	}

	return a.defaultDecide(ctx, req, requestHash)
}

// defaultDecide only checks that some valid signature over the domain
// bound digest exists. It does not check that the signer is an authorized
// owner of anything. This weak fallback is part of the protocol surface:
// do not strengthen it here, install a validator module instead.
func (a *Account) defaultDecide(ctx stronghold.Context, req *stronghold.Request, requestHash []byte) error {
	blob := req.AuxPayload
	if len(blob) != crypto.PublicKeySize+crypto.SignatureSize {
		return errors.Wrapf(errors.ErrInput, "signature blob: %d bytes", len(blob))
	}

	digest, err := stronghold.AuthDigest(requestHash, a.Address(), stronghold.GetChainID(ctx))
	if err != nil {
		return errors.Wrap(err, "digest")
	}

	pub := crypto.PublicKey(blob[:crypto.PublicKeySize])
	if !pub.Verify(digest, blob[crypto.PublicKeySize:]) {
		return errors.Wrap(errors.ErrUnauthorized, "invalid signature")
	}
	return nil
}

// Install binds a routing key to a registered module and runs the
// module's install hook. It is callable only with the capability context
// of a successful Authorize: policy changes pass through the very policy
// they change.
//
// Registration and the hook are one transaction. A failing hook leaves no
// partial registration behind.
func (a *Account) Install(ctx stronghold.Context, db stronghold.CacheableKVStore, id stronghold.ValidatorID, moduleName string, initData []byte) error {
	if !a.auth.HasAddress(ctx, a.Address()) {
		return errors.Wrap(errors.ErrUnauthorized, "account itself only")
	}
	if id == stronghold.DefaultValidatorID {
		return errors.Wrap(errors.ErrInput, "routing key reserved for the default arm")
	}
	if moduleName == "" {
		return errors.Wrap(errors.ErrEmpty, "module name")
	}
	module, ok := a.registry.Module(moduleName)
	if !ok {
		return errors.Wrapf(errors.ErrNotFound, "module %q", moduleName)
	}
	switch _, err := a.binding(db, id); {
	case err == nil:
		return errors.Wrapf(errors.ErrDuplicate, "routing key %d", id)
	case !errors.ErrNotFound.Is(err):
		return err
	}

	cache := db.CacheWrap()
	if err := cache.Set(bindingKey(a.Address(), id), []byte(moduleName)); err != nil {
		cache.Discard()
		return err
	}
	if err := module.OnInstall(ctx, cache, initData); err != nil {
		cache.Discard()
		return errors.Wrap(err, "install hook")
	}
	if err := cache.Write(); err != nil {
		return errors.Wrap(err, "writing cache")
	}

	stronghold.GetLogger(ctx).Info("module installed",
		"account", a.Address(), "key", id, "module", moduleName)
	return nil
}

// Uninstall removes a routing key binding and runs the module's uninstall
// hook. Same gate and same atomicity as Install.
func (a *Account) Uninstall(ctx stronghold.Context, db stronghold.CacheableKVStore, id stronghold.ValidatorID, data []byte) error {
	if !a.auth.HasAddress(ctx, a.Address()) {
		return errors.Wrap(errors.ErrUnauthorized, "account itself only")
	}
	moduleName, err := a.binding(db, id)
	if err != nil {
		return err
	}
	module, ok := a.registry.Module(moduleName)
	if !ok {
		return errors.Wrapf(errors.ErrHuman, "module %q not loaded", moduleName)
	}

	cache := db.CacheWrap()
	if err := cache.Delete(bindingKey(a.Address(), id)); err != nil {
		cache.Discard()
		return err
	}
	if err := module.OnUninstall(ctx, cache, data); err != nil {
		cache.Discard()
		return errors.Wrap(err, "uninstall hook")
	}
	if err := cache.Write(); err != nil {
		return errors.Wrap(err, "writing cache")
	}

	stronghold.GetLogger(ctx).Info("module uninstalled",
		"account", a.Address(), "key", id)
	return nil
}

// Forward transfers amount native units to the target and invokes it with
// the payload. Callable by the account itself or the trusted dispatcher.
//
// On failure all effects are discarded and the callee's raw failure
// payload is re-raised unmodified inside a ForwardError.
func (a *Account) Forward(ctx stronghold.Context, db stronghold.CacheableKVStore, target stronghold.Address, amount int64, payload []byte) ([]byte, error) {
	if !a.canForward(ctx) {
		return nil, errors.Wrap(errors.ErrUnauthorized, "self or dispatcher only")
	}

	cache := db.CacheWrap()
	out, err := a.forward(ctx, cache, target, amount, payload)
	if err != nil {
		cache.Discard()
		return nil, err
	}
	if werr := cache.Write(); werr != nil {
		return nil, errors.Wrap(werr, "writing cache")
	}
	return out, nil
}

// ForwardBatch forwards every sub-call in order. The slices must have
// equal lengths. The batch is atomic: the first failing sub-call aborts
// and discards the whole batch.
func (a *Account) ForwardBatch(ctx stronghold.Context, db stronghold.CacheableKVStore, targets []stronghold.Address, amounts []int64, payloads [][]byte) ([][]byte, error) {
	if !a.canForward(ctx) {
		return nil, errors.Wrap(errors.ErrUnauthorized, "self or dispatcher only")
	}
	if len(targets) != len(amounts) || len(targets) != len(payloads) {
		return nil, errors.Wrap(errors.ErrInput, "length mismatch")
	}

	cache := db.CacheWrap()
	out := make([][]byte, len(targets))
	for i := range targets {
		res, err := a.forward(ctx, cache, targets[i], amounts[i], payloads[i])
		if err != nil {
			cache.Discard()
			return nil, errors.Wrapf(err, "sub-call %d", i)
		}
		out[i] = res
	}
	if err := cache.Write(); err != nil {
		return nil, errors.Wrap(err, "writing cache")
	}
	return out, nil
}

func (a *Account) canForward(ctx stronghold.Context) bool {
	return a.auth.HasAddress(ctx, a.Address()) ||
		a.auth.HasAddress(ctx, a.dispatcher.Address())
}

func (a *Account) forward(ctx stronghold.Context, db stronghold.KVStore, target stronghold.Address, amount int64, payload []byte) ([]byte, error) {
	if err := target.Validate(); err != nil {
		return nil, errors.Wrap(err, "target")
	}
	if amount < 0 {
		return nil, errors.Wrap(errors.ErrInput, "negative amount")
	}
	if amount > 0 {
		if err := a.ledger.Move(db, a.Address(), target, amount); err != nil {
			return nil, err
		}
	}

	out, err := a.invoker.Invoke(ctx, db, target, amount, payload)
	if err != nil {
		return nil, errors.Wrap(&ForwardError{
			Diagnostic: stronghold.FailurePayload(err),
		}, "forward")
	}
	return out, nil
}

// ForwardError carries the raw failure payload of a failed callee. Its
// cause is ErrExecution, so the error codes and classifies as a forwarded
// call failure while the diagnostic blob stays available unmodified.
type ForwardError struct {
	Diagnostic []byte
}

func (e *ForwardError) Error() string {
	return "forwarded call failed"
}

func (e *ForwardError) Cause() error {
	return errors.ErrExecution
}

// FailurePayload returns the callee's raw failure payload.
func (e *ForwardError) FailurePayload() []byte {
	return e.Diagnostic
}
