package signer

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/layer-3/subkit/core"
	"github.com/layer-3/subkit/internal/eth"
	"github.com/layer-3/subkit/ports"
)

// EthereumSigner signs personal messages with a locally held key
type EthereumSigner struct {
	privateKey *ecdsa.PrivateKey
	address    core.Address
	chainID    int64
}

var _ ports.SigningProvider = (*EthereumSigner)(nil)

// NewEthereumSigner creates a signer from a hex-encoded private key
func NewEthereumSigner(privateKeyHex string, chainID int64) (*EthereumSigner, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(privateKeyHex), "0x"))
	if err != nil {
		return nil, fmt.Errorf("could not parse ethereum private key: %w", err)
	}
	return NewEthereumSignerFromKey(key, chainID), nil
}

// NewEthereumSignerFromKey wraps an existing key
func NewEthereumSignerFromKey(key *ecdsa.PrivateKey, chainID int64) *EthereumSigner {
	addr := crypto.PubkeyToAddress(key.PublicKey)
	return &EthereumSigner{
		privateKey: key,
		address:    core.Address(strings.ToLower(addr.Hex())),
		chainID:    chainID,
	}
}

func (s *EthereumSigner) Address() core.Address { return s.address }

func (s *EthereumSigner) ChainID() int64 { return s.chainID }

// SignMessage produces an EIP-191 personal_sign signature over message
func (s *EthereumSigner) SignMessage(ctx context.Context, message string) (core.Signature, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sig, err := eth.SignPersonal(s.privateKey, message)
	if err != nil {
		return nil, fmt.Errorf("failed to sign message: %w", err)
	}
	return core.Signature(sig), nil
}
