package signer

import (
	"context"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/subkit/internal/eth"
)

// Well known test key (hardhat account #0).
const testKey = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

func TestEthereumSigner_Address(t *testing.T) {
	s, err := NewEthereumSigner(testKey, 1)
	require.NoError(t, err)

	assert.Equal(t, strings.ToLower("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"), s.Address().String())
	assert.Equal(t, int64(1), s.ChainID())
}

func TestEthereumSigner_SignMessageRecovers(t *testing.T) {
	s, err := NewEthereumSigner(testKey, 1)
	require.NoError(t, err)

	sig, err := s.SignMessage(context.Background(), "sign me")
	require.NoError(t, err)
	require.Len(t, sig, eth.SignatureLength)

	ok, err := eth.VerifyPersonal("sign me", sig, common.HexToAddress(s.Address().String()))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEthereumSigner_CanceledContext(t *testing.T) {
	s, err := NewEthereumSigner(testKey, 1)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.SignMessage(ctx, "sign me")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewEthereumSigner_BadKey(t *testing.T) {
	_, err := NewEthereumSigner("not-a-key", 1)
	assert.Error(t, err)
}
