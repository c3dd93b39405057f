package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/layer-3/subkit/core"
	"github.com/layer-3/subkit/ports"
)

const (
	TopicAvatarUploaded       = "subkit.avatar.uploaded"
	TopicAvatarDeleted        = "subkit.avatar.deleted"
	TopicTextRecordSyncFailed = "subkit.text_record.sync_failed"
	TopicSubnameClaimed       = "subkit.subname.claimed"
)

// AvatarEvent describes a committed avatar change
type AvatarEvent struct {
	Subname   string       `json:"subname"`
	Network   core.Network `json:"network"`
	AvatarURL string       `json:"avatar_url,omitempty"`
	IsUpdate  bool         `json:"is_update,omitempty"`
	At        string       `json:"at"`
}

// SyncFailedEvent reports a text record write that did not follow its avatar change
type SyncFailedEvent struct {
	Subname string `json:"subname"`
	Key     string `json:"key"`
	Error   string `json:"error"`
	At      string `json:"at"`
}

// SubnameClaimedEvent reports a newly created subname
type SubnameClaimedEvent struct {
	FullName string       `json:"full_name"`
	Owner    core.Address `json:"owner"`
}

// WatermillPublisher implements the EventPublisher interface using Watermill
type WatermillPublisher struct {
	publisher message.Publisher
	now       func() time.Time
}

// NewWatermillPublisher creates a new Watermill publisher
func NewWatermillPublisher(publisher message.Publisher) *WatermillPublisher {
	return &WatermillPublisher{
		publisher: publisher,
		now:       time.Now,
	}
}

var _ ports.EventPublisher = (*WatermillPublisher)(nil)

// PublishAvatarUploaded publishes an upload event
func (p *WatermillPublisher) PublishAvatarUploaded(ctx context.Context, result core.UploadResult) error {
	return p.publish(ctx, TopicAvatarUploaded, AvatarEvent{
		Subname:   result.Subname,
		Network:   result.Network,
		AvatarURL: result.AvatarURL,
		IsUpdate:  result.IsUpdate,
		At:        result.UploadedAt,
	})
}

// PublishAvatarDeleted publishes a delete event
func (p *WatermillPublisher) PublishAvatarDeleted(ctx context.Context, result core.DeleteResult) error {
	return p.publish(ctx, TopicAvatarDeleted, AvatarEvent{
		Subname: result.Subname,
		Network: result.Network,
		At:      result.DeletedAt,
	})
}

// PublishTextRecordSyncFailed publishes a failed secondary write
func (p *WatermillPublisher) PublishTextRecordSyncFailed(ctx context.Context, subname, key string, cause error) error {
	event := SyncFailedEvent{
		Subname: subname,
		Key:     key,
		At:      p.now().UTC().Format(time.RFC3339),
	}
	if cause != nil {
		event.Error = cause.Error()
	}
	return p.publish(ctx, TopicTextRecordSyncFailed, event)
}

// PublishSubnameClaimed publishes a claim event
func (p *WatermillPublisher) PublishSubnameClaimed(ctx context.Context, subname core.Subname) error {
	return p.publish(ctx, TopicSubnameClaimed, SubnameClaimedEvent{
		FullName: subname.FullName,
		Owner:    subname.Owner,
	})
}

func (p *WatermillPublisher) publish(ctx context.Context, topic string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)

	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}
