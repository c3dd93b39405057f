package ports

import (
	"context"

	"github.com/layer-3/subkit/core"
)

// NameDirectory is the naming service holding subnames and their records
type NameDirectory interface {
	IsSubnameAvailable(ctx context.Context, fullName string) (bool, error)
	FindSubnames(ctx context.Context, filter core.SubnameFilter) (*core.SubnamePage, error)
	CreateSubname(ctx context.Context, req core.NewSubname) (*core.Subname, error)
	SetTextRecord(ctx context.Context, fullName, key, value string) error
	DeleteTextRecord(ctx context.Context, fullName, key string) error
}
