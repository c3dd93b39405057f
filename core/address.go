package core

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ZeroAddress is the all-zero account.
const ZeroAddress Address = "0x0000000000000000000000000000000000000000"

// Address is a lowercase 0x-prefixed 20 byte account identifier.
type Address string

// ParseAddress trims and lowercases s and checks it is a 0x-prefixed
// 40 hex character account.
func ParseAddress(s string) (Address, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if !strings.HasPrefix(s, "0x") || !common.IsHexAddress(s) {
		return "", ErrInvalidAddress
	}
	return Address(s), nil
}

func (a Address) String() string { return string(a) }

// Checksum returns the EIP-55 mixed case form.
func (a Address) Checksum() string {
	return common.HexToAddress(string(a)).Hex()
}

// IsZero reports whether a is the zero account.
func (a Address) IsZero() bool {
	return a == ZeroAddress
}

// Truncate shortens the address for display, e.g. 0x1234...abcd.
func (a Address) Truncate() string {
	s := string(a)
	if len(s) < 10 {
		return s
	}
	return s[:6] + "..." + s[len(s)-4:]
}
