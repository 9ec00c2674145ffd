package stronghold

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/binary"

	"github.com/iov-one/stronghold/errors"
)

// Request is the envelope of authorized work a trusted dispatcher submits
// to an account. The core treats it as opaque except for the fields it
// reads: the sender, the sequence, the call payload (routing key plus
// execution instruction) and the two auxiliary blobs. Budget numerics are
// carried through untouched for the outer pipeline.
type Request struct {
	// Sender is the account the work is requested for.
	Sender Address
	// Sequence is the account's replay counter for this request.
	Sequence int64
	// InitPayload optionally carries module initialization data.
	InitPayload []byte
	// CallPayload is the routing key followed by the encoded execution
	// instruction.
	CallPayload []byte

	// Resource budget, passed through untouched.
	CallGasLimit         int64
	VerificationGasLimit int64
	PreVerificationGas   int64
	MaxFeePerUnit        int64
	MaxPriorityFee       int64

	// AuxPayload carries the signature blob for the default decision
	// arm: an ed25519 public key followed by a signature.
	AuxPayload []byte
	// Approval carries the module specific approval blob.
	Approval []byte
}

// Validate ensures the envelope is well formed before any decision is
// attempted.
func (r *Request) Validate() error {
	if err := r.Sender.Validate(); err != nil {
		return errors.Wrap(err, "sender")
	}
	if r.Sequence < 0 {
		return errors.Wrap(errors.ErrInput, "negative sequence")
	}
	for _, n := range []int64{
		r.CallGasLimit, r.VerificationGasLimit, r.PreVerificationGas,
		r.MaxFeePerUnit, r.MaxPriorityFee,
	} {
		if n < 0 {
			return errors.Wrap(errors.ErrInput, "negative budget")
		}
	}
	return nil
}

// ValidatorID extracts the routing key from the front of the call
// payload.
func (r *Request) ValidatorID() ValidatorID {
	return ParseValidatorID(r.CallPayload)
}

// Instruction decodes the execution instruction that follows the routing
// key inside the call payload.
func (r *Request) Instruction() (*Instruction, error) {
	if len(r.CallPayload) < ValidatorIDSize {
		return nil, errors.Wrap(errors.ErrInput, "call payload too short")
	}
	return ParseInstruction(r.CallPayload[ValidatorIDSize:])
}

// Instruction is a single forwarded execution: transfer amount native
// units to target and invoke it with payload.
type Instruction struct {
	Target  Address
	Amount  int64
	Payload []byte
}

// ParseInstruction decodes the fixed-width wire form: a 20 byte target,
// an 8 byte big-endian amount, and the raw payload.
func ParseInstruction(raw []byte) (*Instruction, error) {
	if len(raw) < AddressLength+8 {
		return nil, errors.Wrap(errors.ErrInput, "instruction too short")
	}
	target := Address(raw[:AddressLength]).Clone()
	amount := int64(binary.BigEndian.Uint64(raw[AddressLength : AddressLength+8]))
	if amount < 0 {
		return nil, errors.Wrap(errors.ErrInput, "negative amount")
	}
	payload := make([]byte, len(raw)-AddressLength-8)
	copy(payload, raw[AddressLength+8:])
	return &Instruction{
		Target:  target,
		Amount:  amount,
		Payload: payload,
	}, nil
}

// Encode returns the wire form of the instruction.
func (i *Instruction) Encode() ([]byte, error) {
	if err := i.Target.Validate(); err != nil {
		return nil, errors.Wrap(err, "target")
	}
	if i.Amount < 0 {
		return nil, errors.Wrap(errors.ErrInput, "negative amount")
	}
	out := make([]byte, 0, AddressLength+8+len(i.Payload))
	out = append(out, i.Target...)
	amount := make([]byte, 8)
	binary.BigEndian.PutUint64(amount, uint64(i.Amount))
	out = append(out, amount...)
	out = append(out, i.Payload...)
	return out, nil
}

// ContentHash binds the instruction content: the same digest is stored
// alongside a proposed transaction and recomputed when a decision is
// requested, so that nobody can approve one payload and execute another.
func ContentHash(target Address, amount int64, payload []byte) []byte {
	out := make([]byte, 0, len(target)+8+len(payload))
	out = append(out, target...)
	amt := make([]byte, 8)
	binary.BigEndian.PutUint64(amt, uint64(amount))
	out = append(out, amt...)
	out = append(out, payload...)
	h := sha256.Sum256(out)
	return h[:]
}

// Hash returns the content binding digest of this instruction.
func (i *Instruction) Hash() []byte {
	return ContentHash(i.Target, i.Amount, i.Payload)
}

// authCodeV1 is the current way to prefix the bytes we use to build the
// domain bound authorization digest.
var authCodeV1 = []byte{0, 0xCA, 0xFE, 1}

// AuthDigest combines the request hash with the account identity and the
// chain id before any signature verification.
//
// version | len(chainID) | chainID      | account  | requestHash
// 4bytes  | uint8        | ascii string | 20 bytes | raw
//
// This is then prehashed with sha512 before being fed into the public key
// verification step, so signing devices see a constant length input.
func AuthDigest(requestHash []byte, account Address, chainID string) ([]byte, error) {
	if !IsValidChainID(chainID) {
		return nil, errors.Wrapf(errors.ErrInput, "chain id: %v", chainID)
	}
	if err := account.Validate(); err != nil {
		return nil, errors.Wrap(err, "account")
	}

	out := make([]byte, 0, 4+1+len(chainID)+AddressLength+len(requestHash))
	out = append(out, authCodeV1...)
	out = append(out, uint8(len(chainID)))
	out = append(out, []byte(chainID)...)
	out = append(out, account...)
	out = append(out, requestHash...)

	hashed := sha512.Sum512(out)
	return hashed[:], nil
}
