package core

import (
	"errors"
	"fmt"
)

var (
	ErrTokenExpired     = errors.New("token has expired")
	ErrTokenInvalidated = errors.New("token has been invalidated")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrInvalidToken     = errors.New("invalid token")
	ErrInvalidChallenge = errors.New("invalid challenge")

	ErrInvalidAddress  = errors.New("invalid ethereum address")
	ErrZeroAddress     = errors.New("cannot use the zero address")
	ErrInvalidScope    = errors.New("invalid nonce scope")
	ErrInvalidNetwork  = errors.New("invalid network")
	ErrNetworkMismatch = errors.New("signer chain does not match network")
	ErrInvalidSubname  = errors.New("invalid subname")
	ErrInvalidLabel    = errors.New("invalid label")
	ErrInvalidFile     = errors.New("invalid avatar file")
	ErrFileType        = errors.New("file type not allowed")
	ErrFileTooLarge    = errors.New("file exceeds size limit")

	ErrChallengeUnavailable = errors.New("authentication challenge unavailable")
	ErrSigningDeclined      = errors.New("signing declined")
	ErrProofNotSigned       = errors.New("proof has not been signed")
	ErrProofConsumed        = errors.New("proof nonce already submitted")
	ErrUploadFailed         = errors.New("upload failed")
	ErrDeleteFailed         = errors.New("delete failed")
	ErrOperationInFlight    = errors.New("operation already in flight")

	ErrSubnameTaken      = errors.New("subname with this label already exists")
	ErrAddressHasSubname = errors.New("address already has a subname")
	ErrNotFound          = errors.New("not found")
)

// ChallengeError reports a failed nonce request.
type ChallengeError struct {
	Status int
	Body   string
	Err    error
}

func (e *ChallengeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to get nonce: %v", e.Err)
	}
	return fmt.Sprintf("failed to get nonce: %d %s", e.Status, e.Body)
}

func (e *ChallengeError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrChallengeUnavailable, e.Err}
	}
	return []error{ErrChallengeUnavailable}
}

// SigningError wraps a wallet failure to sign.
type SigningError struct {
	Err error
}

func (e *SigningError) Error() string {
	return fmt.Sprintf("signing declined: %v", e.Err)
}

func (e *SigningError) Unwrap() []error {
	return []error{ErrSigningDeclined, e.Err}
}

// ServerError is a non-success response from the metadata service.
// Body holds the upstream body or a generic message.
type ServerError struct {
	Op     string
	Status int
	Body   string
}

func (e *ServerError) Error() string {
	return e.Body
}

func (e *ServerError) Unwrap() error {
	switch e.Op {
	case "delete":
		return ErrDeleteFailed
	default:
		return ErrUploadFailed
	}
}

// ConflictError reports that a subname cannot be claimed. Existing names
// the subname or owner record that blocks the claim.
type ConflictError struct {
	Err      error
	Existing string
}

func (e *ConflictError) Error() string {
	return e.Err.Error()
}

func (e *ConflictError) Unwrap() error {
	return e.Err
}
