package ports

import (
	"context"

	"github.com/layer-3/subkit/core"
)

// EventPublisher publishes domain events for other instances and telemetry
type EventPublisher interface {
	PublishAvatarUploaded(ctx context.Context, result core.UploadResult) error
	PublishAvatarDeleted(ctx context.Context, result core.DeleteResult) error
	PublishTextRecordSyncFailed(ctx context.Context, subname, key string, cause error) error
	PublishSubnameClaimed(ctx context.Context, subname core.Subname) error
}
