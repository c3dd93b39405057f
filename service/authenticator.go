package service

import (
	"context"
	"fmt"

	"github.com/layer-3/subkit/core"
	"github.com/layer-3/subkit/internal/log"
	"github.com/layer-3/subkit/internal/metrics"
	"github.com/layer-3/subkit/internal/siwe"
	"github.com/layer-3/subkit/ports"
)

// Authenticator obtains a nonce, renders the sign-in message and has the
// wallet sign it. Every call requests a fresh nonce.
type Authenticator struct {
	metadata ports.MetadataService
	signer   ports.SigningProvider
	builder  *siwe.Builder
	logger   log.Logger
	metrics  *metrics.Metrics
}

// NewAuthenticator creates an Authenticator for signer.
func NewAuthenticator(
	metadata ports.MetadataService,
	signer ports.SigningProvider,
	builder *siwe.Builder,
	lg log.Logger,
	m *metrics.Metrics,
) *Authenticator {
	return &Authenticator{
		metadata: metadata,
		signer:   signer,
		builder:  builder,
		logger:   lg.Named("authenticator"),
		metrics:  m,
	}
}

// Address returns the signing account.
func (a *Authenticator) Address() core.Address {
	return a.signer.Address()
}

// Authorize returns a signed proof for scope on network, ready to submit.
func (a *Authenticator) Authorize(ctx context.Context, network core.Network, scope core.Scope) (*core.Proof, error) {
	scope = scope.OrDefault()
	if !scope.Valid() {
		return nil, core.ErrInvalidScope
	}
	chainID := network.ChainID()
	if chainID == 0 {
		return nil, core.ErrInvalidNetwork
	}
	if a.signer.ChainID() != chainID {
		return nil, fmt.Errorf("%w: signer on chain %d, %s is chain %d",
			core.ErrNetworkMismatch, a.signer.ChainID(), network, chainID)
	}
	address, err := core.ParseAddress(a.signer.Address().String())
	if err != nil {
		return nil, err
	}

	nonce, err := a.metadata.RequestNonce(ctx, address, scope)
	if err != nil {
		a.metrics.NonceRequests.WithLabelValues(string(scope), "failure").Inc()
		return nil, err
	}
	a.metrics.NonceRequests.WithLabelValues(string(scope), "success").Inc()

	msg, err := a.builder.Build(siwe.Params{
		Address: address.String(),
		ChainID: chainID,
		Nonce:   nonce.Value,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build message: %w", err)
	}

	// The exact text signed here is the text submitted later.
	text := msg.String()
	sig, err := a.signer.SignMessage(ctx, text)
	if err != nil {
		a.logger.Debug("wallet did not sign", "address", address, "error", err)
		return nil, &core.SigningError{Err: err}
	}

	proof := core.NewProof(address, scope, chainID, nonce)
	if err := proof.Signed(text, sig); err != nil {
		return nil, err
	}
	return proof, nil
}
