package ports

import (
	"context"
	"time"

	"github.com/layer-3/subkit/core"
)

// SubnameCache holds recent subname lookups keyed by owner address
type SubnameCache interface {
	// Get returns the cached page and whether it was present.
	Get(ctx context.Context, owner core.Address) (*core.SubnamePage, bool, error)
	Set(ctx context.Context, owner core.Address, page *core.SubnamePage, ttl time.Duration) error
	Invalidate(ctx context.Context, owner core.Address) error
}
