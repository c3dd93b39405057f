package core

import "sync"

// ProofState tracks a nonce through the sign-in handshake.
type ProofState uint8

const (
	ProofIssued ProofState = iota
	ProofSigned
	ProofSubmitted
)

func (s ProofState) String() string {
	switch s {
	case ProofIssued:
		return "issued"
	case ProofSigned:
		return "signed"
	case ProofSubmitted:
		return "submitted"
	default:
		return "unknown"
	}
}

// Proof carries one nonce from issuance to submission. The message stored at
// signing time is the one submitted; it is never rebuilt.
type Proof struct {
	Address Address
	Scope   Scope
	ChainID int64
	Nonce   Nonce

	mu        sync.Mutex
	state     ProofState
	message   string
	signature Signature
}

// NewProof starts a proof in the issued state.
func NewProof(address Address, scope Scope, chainID int64, nonce Nonce) *Proof {
	return &Proof{
		Address: address,
		Scope:   scope,
		ChainID: chainID,
		Nonce:   nonce,
	}
}

// Signed records the exact message and its signature.
func (p *Proof) Signed(message string, signature Signature) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != ProofIssued {
		return ErrProofConsumed
	}
	p.message = message
	p.signature = signature
	p.state = ProofSigned
	return nil
}

// MarkSubmitted consumes the proof. It succeeds at most once.
func (p *Proof) MarkSubmitted() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.state {
	case ProofIssued:
		return ErrProofNotSigned
	case ProofSubmitted:
		return ErrProofConsumed
	}
	p.state = ProofSubmitted
	return nil
}

// State returns the current state.
func (p *Proof) State() ProofState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Message returns the signed message.
func (p *Proof) Message() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.message
}

// Signature returns the wallet signature.
func (p *Proof) Signature() Signature {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.signature
}
