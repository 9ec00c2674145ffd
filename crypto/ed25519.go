package crypto

import (
	"crypto/rand"

	"github.com/iov-one/stronghold"
	"github.com/iov-one/stronghold/errors"
	"golang.org/x/crypto/ed25519"
)

// ExtensionName is the condition namespace all signature identities live
// under.
const ExtensionName = "sigs"

// Wire sizes of the raw key material.
const (
	PublicKeySize = ed25519.PublicKeySize
	SignatureSize = ed25519.SignatureSize
)

// PublicKey wraps a raw ed25519 public key.
type PublicKey []byte

// Validate ensures the key has the proper length.
func (p PublicKey) Validate() error {
	if len(p) != ed25519.PublicKeySize {
		return errors.Wrapf(errors.ErrInput, "invalid key size: %d", len(p))
	}
	return nil
}

// Verify checks the signature of the given (prehashed) message.
func (p PublicKey) Verify(message, sig []byte) bool {
	if len(p) != ed25519.PublicKeySize || len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(p), message, sig)
}

// Condition is the identity this public key can authorize for.
func (p PublicKey) Condition() stronghold.Condition {
	return stronghold.NewCondition(ExtensionName, "ed25519", p)
}

// Address is the short digest of the key's condition.
func (p PublicKey) Address() stronghold.Address {
	return p.Condition().Address()
}

// PrivateKey wraps a raw ed25519 private key.
type PrivateKey []byte

// Sign produces a signature over the given (prehashed) message.
func (p PrivateKey) Sign(message []byte) ([]byte, error) {
	if len(p) != ed25519.PrivateKeySize {
		return nil, errors.Wrapf(errors.ErrInput, "invalid key size: %d", len(p))
	}
	return ed25519.Sign(ed25519.PrivateKey(p), message), nil
}

// PublicKey returns the verification half of the key pair.
func (p PrivateKey) PublicKey() PublicKey {
	priv := ed25519.PrivateKey(p)
	return PublicKey(priv.Public().(ed25519.PublicKey))
}

// Signer is anything that can authorize a message, usually backed by a
// private key.
type Signer interface {
	Sign(message []byte) ([]byte, error)
	PublicKey() PublicKey
}

var _ Signer = PrivateKey{}

// GenPrivKeyEd25519 creates a random new private key.
func GenPrivKeyEd25519() PrivateKey {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		panic(err)
	}
	return PrivateKey(priv)
}
