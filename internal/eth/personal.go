// Package eth holds the Ethereum signing primitives shared by signers and
// verifiers: EIP-191 personal message hashing and signer recovery.
package eth

import (
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// SignatureLength is the length of an r || s || v signature.
const SignatureLength = 65

var ErrSignatureLength = errors.New("signature must be 65 bytes")

// PersonalHash returns keccak256("\x19Ethereum Signed Message:\n" + len + msg).
func PersonalHash(message string) []byte {
	return accounts.TextHash([]byte(message))
}

// SignPersonal signs message the way personal_sign does, with V in 27/28.
func SignPersonal(key *ecdsa.PrivateKey, message string) ([]byte, error) {
	sig, err := crypto.Sign(PersonalHash(message), key)
	if err != nil {
		return nil, err
	}
	// Adjust V from 0/1 to 27/28 for Ethereum compatibility.
	if sig[64] < 27 {
		sig[64] += 27
	}
	return sig, nil
}

// RecoverPersonalSigner returns the address that produced sig over message.
func RecoverPersonalSigner(message string, sig []byte) (common.Address, error) {
	if len(sig) != SignatureLength {
		return common.Address{}, ErrSignatureLength
	}
	localSig := make([]byte, SignatureLength)
	copy(localSig, sig)
	if localSig[64] >= 27 {
		localSig[64] -= 27
	}
	pub, err := crypto.SigToPub(PersonalHash(message), localSig)
	if err != nil {
		return common.Address{}, fmt.Errorf("signature recovery failed: %w", err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// VerifyPersonal reports whether sig over message was produced by address.
func VerifyPersonal(message string, sig []byte, address common.Address) (bool, error) {
	recovered, err := RecoverPersonalSigner(message, sig)
	if err != nil {
		return false, err
	}
	return recovered == address, nil
}
