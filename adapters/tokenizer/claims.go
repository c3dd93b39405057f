package tokenizer

import "github.com/golang-jwt/jwt/v5"

// ChallengeClaims combines standard claims with the sign-in nonce
type ChallengeClaims struct {
	jwt.RegisteredClaims
	Nonce string `json:"nonce"`
}

// AccessClaims are the standard claims of a wallet session
type AccessClaims struct {
	jwt.RegisteredClaims
}
