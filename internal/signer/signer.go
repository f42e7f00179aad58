// Package signer signs ledger operations with secp256k1 keys and recovers the
// sending account from a signature.
package signer

import (
	"crypto/ecdsa"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"

	"github.com/sheikh-saqib/custom-token-ledger/internal/models"
)

// Signer holds a private key and the address derived from it.
type Signer struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// FromHex parses a hex private key, with or without the 0x prefix.
func FromHex(hexKey string) (*Signer, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, errors.Wrap(err, "invalid private key")
	}
	return New(key), nil
}

// New wraps an existing key.
func New(key *ecdsa.PrivateKey) *Signer {
	return &Signer{key: key, address: crypto.PubkeyToAddress(key.PublicKey)}
}

// Generate creates a signer with a fresh random key.
func Generate() (*Signer, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	return New(key), nil
}

func (s *Signer) Address() common.Address { return s.address }

// Sign stamps op with the signer's address and signs its hash.
func (s *Signer) Sign(op models.Operation) (models.SignedOperation, error) {
	op.From = s.address
	hash, err := op.Hash()
	if err != nil {
		return models.SignedOperation{}, err
	}
	sig, err := crypto.Sign(hash.Bytes(), s.key)
	if err != nil {
		return models.SignedOperation{}, errors.Wrap(err, "sign operation")
	}
	return models.SignedOperation{Operation: op, Signature: sig}, nil
}

// Sender recovers the account that signed the operation and returns it with
// the operation hash.
func Sender(signed models.SignedOperation) (common.Address, common.Hash, error) {
	hash, err := signed.Operation.Hash()
	if err != nil {
		return common.Address{}, common.Hash{}, err
	}
	if len(signed.Signature) != crypto.SignatureLength {
		return common.Address{}, hash, errors.Errorf("signature must be %d bytes", crypto.SignatureLength)
	}
	pub, err := crypto.SigToPub(hash.Bytes(), signed.Signature)
	if err != nil {
		return common.Address{}, hash, errors.Wrap(err, "recover signer")
	}
	return crypto.PubkeyToAddress(*pub), hash, nil
}
