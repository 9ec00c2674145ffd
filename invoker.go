package stronghold

// Invoker performs outbound calls to execution targets. It is the boundary
// to everything the engine forwards work to; the engine never interprets
// the payload it hands over.
type Invoker interface {
	// Invoke calls the target with the given payload, after amount
	// native units were already credited to it. The returned bytes are
	// the raw output of the callee.
	Invoke(ctx Context, db KVStore, target Address, amount int64, payload []byte) ([]byte, error)
}

// CallFailure is the error an Invoker returns when the callee itself
// failed. It carries the callee's raw failure payload, which the engine
// re-raises unmodified.
type CallFailure struct {
	Payload []byte
}

func (e *CallFailure) Error() string {
	return "call failed"
}

// FailurePayload implements the payload carrier probed by the package
// level FailurePayload function.
func (e *CallFailure) FailurePayload() []byte {
	return e.Payload
}

// FailurePayload digs through an error chain for the raw diagnostic blob
// of a failed call. When the failure carries no blob, the error text is
// returned so the diagnostic is never empty.
func FailurePayload(err error) []byte {
	for e := err; e != nil; {
		if p, ok := e.(payloader); ok {
			return p.FailurePayload()
		}
		c, ok := e.(causer)
		if !ok {
			break
		}
		e = c.Cause()
	}
	if err == nil {
		return nil
	}
	return []byte(err.Error())
}

type payloader interface {
	FailurePayload() []byte
}

type causer interface {
	Cause() error
}
