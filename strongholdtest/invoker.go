package strongholdtest

import (
	"github.com/iov-one/stronghold"
)

// Invoker is a scripted stronghold.Invoker double. Set Err to make every
// call fail with it, otherwise every call returns Output. All received
// calls are recorded.
type Invoker struct {
	// Output is returned by every successful call.
	Output []byte
	// Err, when set, fails every call.
	Err error

	// Calls records every invocation in order.
	Calls []InvokerCall
}

// InvokerCall is the recorded argument set of one Invoke.
type InvokerCall struct {
	Target  stronghold.Address
	Amount  int64
	Payload []byte
}

var _ stronghold.Invoker = (*Invoker)(nil)

func (i *Invoker) Invoke(ctx stronghold.Context, db stronghold.KVStore, target stronghold.Address, amount int64, payload []byte) ([]byte, error) {
	i.Calls = append(i.Calls, InvokerCall{
		Target:  target,
		Amount:  amount,
		Payload: payload,
	})
	if i.Err != nil {
		return nil, i.Err
	}
	return i.Output, nil
}

// CallCount returns how many times the invoker was used.
func (i *Invoker) CallCount() int {
	return len(i.Calls)
}
