package ports

import (
	"context"

	"github.com/layer-3/subkit/core"
)

// UploadRequest is an authenticated avatar upload
type UploadRequest struct {
	Subname string
	Network core.Network
	File    core.AvatarFile
	Proof   *core.Proof
}

// DeleteRequest is an authenticated avatar deletion
type DeleteRequest struct {
	Subname string
	Network core.Network
	Proof   *core.Proof
}

// MetadataService issues nonces and stores avatars
type MetadataService interface {
	RequestNonce(ctx context.Context, address core.Address, scope core.Scope) (core.Nonce, error)
	UploadAvatar(ctx context.Context, req UploadRequest) (*core.UploadResult, error)
	DeleteAvatar(ctx context.Context, req DeleteRequest) (*core.DeleteResult, error)
}
