package core

import (
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Challenge represents a sign-in challenge issued by the claim service
type Challenge struct {
	ID        string    // Unique identifier for the challenge
	Address   Address   // Account the challenge was issued to
	Nonce     string    // Random nonce to be embedded in the signed message
	IssuedAt  time.Time // When the challenge was created
	ExpiresAt time.Time // When the challenge expires
}

// Session represents an authenticated wallet session
type Session struct {
	ID           string    // Unique session identifier
	Address      Address   // Account that signed in
	IssuedAt     time.Time // When the session was created
	AccessExpiry time.Time // When the access token expires
}

// Network is a metadata service chain environment.
type Network string

const (
	NetworkMainnet Network = "mainnet"
	NetworkSepolia Network = "sepolia"
	NetworkHolesky Network = "holesky"
)

var networkChainIDs = map[Network]int64{
	NetworkMainnet: 1,
	NetworkSepolia: 11155111,
	NetworkHolesky: 17000,
}

// ParseNetwork validates s against the known networks.
func ParseNetwork(s string) (Network, error) {
	n := Network(s)
	if _, ok := networkChainIDs[n]; !ok {
		return "", ErrInvalidNetwork
	}
	return n, nil
}

// ChainID returns the chain id of the network, or 0 when unknown.
func (n Network) ChainID() int64 {
	return networkChainIDs[n]
}

// Scope is the permission requested with a nonce.
type Scope string

const (
	ScopeAvatar          Scope = "avatar"
	ScopeHeader          Scope = "header"
	ScopeAvatarAndHeader Scope = "avatar+header"

	DefaultScope = ScopeAvatarAndHeader
)

// Valid reports whether s is one of the known scopes.
func (s Scope) Valid() bool {
	switch s {
	case ScopeAvatar, ScopeHeader, ScopeAvatarAndHeader:
		return true
	}
	return false
}

// OrDefault returns DefaultScope for the empty scope.
func (s Scope) OrDefault() Scope {
	if s == "" {
		return DefaultScope
	}
	return s
}

// Nonce is a single use value issued by the metadata service.
type Nonce struct {
	Value     string
	ExpiresAt time.Time
}

// Expired reports whether the nonce is past its server-declared expiry.
func (n Nonce) Expired(now time.Time) bool {
	return !n.ExpiresAt.IsZero() && now.After(n.ExpiresAt)
}

// Signature is an opaque wallet signature.
type Signature []byte

// String returns the 0x-prefixed hex encoding.
func (s Signature) String() string {
	return hexutil.Encode(s)
}
