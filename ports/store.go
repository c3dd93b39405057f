package ports

import (
	"context"
	"time"
)

// Store records single use keys such as consumed challenge ids
type Store interface {
	// ConsumeOnce marks key as used for ttl. It returns false when the key
	// was already consumed.
	ConsumeOnce(ctx context.Context, key string, ttl time.Duration) (bool, error)
}
