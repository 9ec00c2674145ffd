package stronghold

import (
	"testing"

	"github.com/iov-one/stronghold/errors"
	"github.com/iov-one/stronghold/strongholdtest/assert"
)

func validRequest() *Request {
	return &Request{
		Sender:      NewAddress([]byte("sender")),
		Sequence:    4,
		CallPayload: DefaultValidatorID.Bytes(),
	}
}

func TestRequestValidate(t *testing.T) {
	assert.Nil(t, validRequest().Validate())

	cases := map[string]struct {
		mod     func(*Request)
		wantErr *errors.Error
	}{
		"missing sender": {
			mod:     func(r *Request) { r.Sender = nil },
			wantErr: errors.ErrInput,
		},
		"short sender": {
			mod:     func(r *Request) { r.Sender = []byte("short") },
			wantErr: errors.ErrInput,
		},
		"negative sequence": {
			mod:     func(r *Request) { r.Sequence = -1 },
			wantErr: errors.ErrInput,
		},
		"negative gas limit": {
			mod:     func(r *Request) { r.CallGasLimit = -1 },
			wantErr: errors.ErrInput,
		},
		"negative fee": {
			mod:     func(r *Request) { r.MaxFeePerUnit = -1 },
			wantErr: errors.ErrInput,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			r := validRequest()
			tc.mod(r)
			assert.IsErr(t, tc.wantErr, r.Validate())
		})
	}
}

func TestRequestValidatorID(t *testing.T) {
	r := validRequest()
	assert.Equal(t, DefaultValidatorID, r.ValidatorID())

	r.CallPayload = append(ValidatorID(70000).Bytes(), []byte("rest")...)
	assert.Equal(t, ValidatorID(70000), r.ValidatorID())

	// A short payload selects the default arm.
	r.CallPayload = []byte{1, 2}
	assert.Equal(t, DefaultValidatorID, r.ValidatorID())
}

func TestRequestInstruction(t *testing.T) {
	target := NewAddress([]byte("target"))
	ins := &Instruction{Target: target, Amount: 13, Payload: []byte("do it")}
	raw, err := ins.Encode()
	assert.Nil(t, err)

	r := validRequest()
	r.CallPayload = append(ValidatorID(3).Bytes(), raw...)

	got, err := r.Instruction()
	assert.Nil(t, err)
	assert.Equal(t, ins, got)

	r.CallPayload = []byte{0, 0}
	_, err = r.Instruction()
	assert.IsErr(t, errors.ErrInput, err)

	// Routing key alone is not an instruction.
	r.CallPayload = ValidatorID(3).Bytes()
	_, err = r.Instruction()
	assert.IsErr(t, errors.ErrInput, err)
}

func TestInstructionEncodeRejectsBadInput(t *testing.T) {
	_, err := (&Instruction{Target: Address("short"), Amount: 1}).Encode()
	assert.IsErr(t, errors.ErrInput, err)

	_, err = (&Instruction{Target: NewAddress([]byte("x")), Amount: -1}).Encode()
	assert.IsErr(t, errors.ErrInput, err)
}

func TestContentHash(t *testing.T) {
	target := NewAddress([]byte("target"))

	a := ContentHash(target, 13, []byte("do it"))
	assert.Equal(t, 32, len(a))
	assert.Equal(t, a, ContentHash(target, 13, []byte("do it")))

	// Any component change must change the digest.
	if b := ContentHash(target, 14, []byte("do it")); string(a) == string(b) {
		t.Fatal("amount is not bound")
	}
	if b := ContentHash(target, 13, []byte("do not")); string(a) == string(b) {
		t.Fatal("payload is not bound")
	}
	if b := ContentHash(NewAddress([]byte("other")), 13, []byte("do it")); string(a) == string(b) {
		t.Fatal("target is not bound")
	}
}

func TestAuthDigest(t *testing.T) {
	acct := NewAddress([]byte("account"))
	hash := []byte("request-hash")

	a, err := AuthDigest(hash, acct, "test-chain-1")
	assert.Nil(t, err)
	assert.Equal(t, 64, len(a))

	b, err := AuthDigest(hash, acct, "test-chain-1")
	assert.Nil(t, err)
	assert.Equal(t, a, b)

	// The digest is domain bound: chain and account both matter.
	c, err := AuthDigest(hash, acct, "test-chain-2")
	assert.Nil(t, err)
	if string(a) == string(c) {
		t.Fatal("chain id is not bound")
	}
	d, err := AuthDigest(hash, NewAddress([]byte("other")), "test-chain-1")
	assert.Nil(t, err)
	if string(a) == string(d) {
		t.Fatal("account is not bound")
	}

	_, err = AuthDigest(hash, acct, "x")
	assert.IsErr(t, errors.ErrInput, err)
	_, err = AuthDigest(hash, Address("short"), "test-chain-1")
	assert.IsErr(t, errors.ErrInput, err)
}
