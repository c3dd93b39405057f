package ports

import (
	"context"

	"github.com/layer-3/subkit/core"
)

// SigningProvider signs UTF-8 messages with a connected wallet account.
// SignMessage may block on user interaction for as long as ctx allows.
type SigningProvider interface {
	Address() core.Address
	ChainID() int64
	SignMessage(ctx context.Context, message string) (core.Signature, error)
}
