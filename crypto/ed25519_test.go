package crypto

import (
	"testing"
)

func TestSignVerify(t *testing.T) {
	priv := GenPrivKeyEd25519()
	pub := priv.PublicKey()

	msg := []byte("the quick brown fox")
	sig, err := priv.Sign(msg)
	if err != nil {
		t.Fatalf("cannot sign: %+v", err)
	}

	if !pub.Verify(msg, sig) {
		t.Fatal("signature must verify")
	}
	if pub.Verify([]byte("another message"), sig) {
		t.Fatal("signature must not verify foreign message")
	}

	other := GenPrivKeyEd25519().PublicKey()
	if other.Verify(msg, sig) {
		t.Fatal("signature must not verify under foreign key")
	}
}

func TestConditionIsStable(t *testing.T) {
	priv := GenPrivKeyEd25519()
	pub := priv.PublicKey()

	cond := pub.Condition()
	if err := cond.Validate(); err != nil {
		t.Fatalf("invalid condition: %+v", err)
	}
	if !cond.Address().Equals(pub.Address()) {
		t.Fatal("address must derive from the condition")
	}

	ext, typ, data, err := cond.Parse()
	if err != nil {
		t.Fatalf("cannot parse: %+v", err)
	}
	if ext != "sigs" || typ != "ed25519" {
		t.Fatalf("unexpected namespace: %s/%s", ext, typ)
	}
	if len(data) != len(pub) {
		t.Fatalf("unexpected data: %x", data)
	}
}
