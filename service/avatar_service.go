package service

import (
	"context"
	"errors"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/layer-3/subkit/core"
	"github.com/layer-3/subkit/internal/log"
	"github.com/layer-3/subkit/internal/metrics"
	"github.com/layer-3/subkit/ports"
)

// UploadParams describes an avatar upload
type UploadParams struct {
	File    core.AvatarFile `validate:"-"`
	Subname string          `validate:"required"`
	Network core.Network    `validate:"required,oneof=mainnet sepolia holesky"`
	Scope   core.Scope      `validate:"omitempty,oneof=avatar header avatar+header"`
}

// DeleteParams describes an avatar deletion
type DeleteParams struct {
	Subname string       `validate:"required"`
	Network core.Network `validate:"required,oneof=mainnet sepolia holesky"`
}

// AvatarState is a snapshot of the avatar operations. Data and Err describe
// the latest upload.
type AvatarState struct {
	IsUploading bool
	IsDeleting  bool
	Data        *core.UploadResult
	Err         error
	DeleteErr   error
}

// AvatarOption configures AvatarService.
type AvatarOption func(*AvatarService)

// WithDirectory enables the avatar text record update after each
// successful upload or delete.
func WithDirectory(d ports.NameDirectory) AvatarOption {
	return func(s *AvatarService) { s.directory = d }
}

// WithSubnameCache invalidates cached lookups of the signer after changes.
func WithSubnameCache(c ports.SubnameCache) AvatarOption {
	return func(s *AvatarService) { s.cache = c }
}

// WithEvents publishes avatar events.
func WithEvents(p ports.EventPublisher) AvatarOption {
	return func(s *AvatarService) { s.events = p }
}

// OnUploaded registers a callback run after every successful upload.
func OnUploaded(fn func(core.UploadResult)) AvatarOption {
	return func(s *AvatarService) { s.onUploaded = fn }
}

// OnDeleted registers a callback run after every successful delete.
func OnDeleted(fn func(core.DeleteResult)) AvatarOption {
	return func(s *AvatarService) { s.onDeleted = fn }
}

// AvatarService uploads and deletes avatars on behalf of one signer.
type AvatarService struct {
	auth     *Authenticator
	metadata ports.MetadataService
	validate *validator.Validate
	logger   log.Logger
	metrics  *metrics.Metrics

	directory ports.NameDirectory
	cache     ports.SubnameCache
	events    ports.EventPublisher

	onUploaded func(core.UploadResult)
	onDeleted  func(core.DeleteResult)

	mu    sync.Mutex
	state AvatarState
}

// NewAvatarService creates an AvatarService.
func NewAvatarService(
	auth *Authenticator,
	metadata ports.MetadataService,
	lg log.Logger,
	m *metrics.Metrics,
	opts ...AvatarOption,
) *AvatarService {
	s := &AvatarService{
		auth:     auth,
		metadata: metadata,
		validate: validator.New(),
		logger:   lg.Named("avatar"),
		metrics:  m,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns a snapshot of the current state.
func (s *AvatarService) State() AvatarState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Upload authenticates and uploads p.File as the avatar of p.Subname.
func (s *AvatarService) Upload(ctx context.Context, p UploadParams) (*core.UploadResult, error) {
	if err := s.validateParams(p); err != nil {
		return nil, err
	}
	if err := p.File.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.state.IsUploading {
		s.mu.Unlock()
		return nil, core.ErrOperationInFlight
	}
	s.state.IsUploading = true
	s.state.Err = nil
	s.mu.Unlock()

	res, err := s.upload(ctx, p)

	s.mu.Lock()
	s.state.IsUploading = false
	s.state.Data = res
	s.state.Err = err
	s.mu.Unlock()

	if err != nil {
		s.metrics.AvatarOperations.WithLabelValues("upload", "failure").Inc()
		s.logger.Warn("avatar upload failed", "subname", p.Subname, "network", p.Network, "error", err)
		return nil, err
	}
	s.metrics.AvatarOperations.WithLabelValues("upload", "success").Inc()
	s.logger.Info("avatar uploaded", "subname", res.Subname, "network", res.Network, "update", res.IsUpdate)

	if s.directory != nil {
		s.syncTextRecord(ctx, "upload", p.Subname, func() error {
			return s.directory.SetTextRecord(ctx, p.Subname, core.TextAvatar, res.AvatarURL)
		})
	}
	s.invalidate(ctx)
	if s.events != nil {
		if err := s.events.PublishAvatarUploaded(ctx, *res); err != nil {
			s.logger.Warn("failed to publish upload event", "error", err)
		}
	}
	if s.onUploaded != nil {
		s.onUploaded(*res)
	}
	return res, nil
}

func (s *AvatarService) upload(ctx context.Context, p UploadParams) (*core.UploadResult, error) {
	scope := p.Scope
	if scope == "" {
		scope = core.ScopeAvatarAndHeader
	}
	proof, err := s.auth.Authorize(ctx, p.Network, scope)
	if err != nil {
		return nil, err
	}
	return s.metadata.UploadAvatar(ctx, ports.UploadRequest{
		Subname: p.Subname,
		Network: p.Network,
		File:    p.File,
		Proof:   proof,
	})
}

// Delete authenticates and removes the avatar of p.Subname.
func (s *AvatarService) Delete(ctx context.Context, p DeleteParams) (*core.DeleteResult, error) {
	if err := s.validateParams(p); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.state.IsDeleting {
		s.mu.Unlock()
		return nil, core.ErrOperationInFlight
	}
	s.state.IsDeleting = true
	s.state.DeleteErr = nil
	s.mu.Unlock()

	res, err := s.delete(ctx, p)

	s.mu.Lock()
	s.state.IsDeleting = false
	s.state.DeleteErr = err
	s.mu.Unlock()

	if err != nil {
		s.metrics.AvatarOperations.WithLabelValues("delete", "failure").Inc()
		s.logger.Warn("avatar delete failed", "subname", p.Subname, "network", p.Network, "error", err)
		return nil, err
	}
	s.metrics.AvatarOperations.WithLabelValues("delete", "success").Inc()
	s.logger.Info("avatar deleted", "subname", res.Subname, "network", res.Network)

	if s.directory != nil {
		s.syncTextRecord(ctx, "delete", p.Subname, func() error {
			return s.directory.DeleteTextRecord(ctx, p.Subname, core.TextAvatar)
		})
	}
	s.invalidate(ctx)
	if s.events != nil {
		if err := s.events.PublishAvatarDeleted(ctx, *res); err != nil {
			s.logger.Warn("failed to publish delete event", "error", err)
		}
	}
	if s.onDeleted != nil {
		s.onDeleted(*res)
	}
	return res, nil
}

func (s *AvatarService) delete(ctx context.Context, p DeleteParams) (*core.DeleteResult, error) {
	proof, err := s.auth.Authorize(ctx, p.Network, core.ScopeAvatar)
	if err != nil {
		return nil, err
	}
	return s.metadata.DeleteAvatar(ctx, ports.DeleteRequest{
		Subname: p.Subname,
		Network: p.Network,
		Proof:   proof,
	})
}

// syncTextRecord runs a best effort text record write. The avatar
// operation has already succeeded, so failures are only reported.
func (s *AvatarService) syncTextRecord(ctx context.Context, op, subname string, write func() error) {
	err := write()
	if err == nil {
		return
	}
	s.metrics.TextRecordSyncFailures.WithLabelValues(op).Inc()
	s.logger.Warn("failed to update avatar text record", "op", op, "subname", subname, "error", err)
	if s.events != nil {
		if perr := s.events.PublishTextRecordSyncFailed(ctx, subname, core.TextAvatar, err); perr != nil {
			s.logger.Warn("failed to publish sync failure event", "error", perr)
		}
	}
}

func (s *AvatarService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, s.auth.Address()); err != nil {
		s.logger.Warn("failed to invalidate subname cache", "address", s.auth.Address(), "error", err)
	}
}

func (s *AvatarService) validateParams(p any) error {
	err := s.validate.Struct(p)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	switch verrs[0].Field() {
	case "Subname":
		return core.ErrInvalidSubname
	case "Network":
		return core.ErrInvalidNetwork
	case "Scope":
		return core.ErrInvalidScope
	default:
		return err
	}
}
