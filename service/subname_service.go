package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/layer-3/subkit/core"
	"github.com/layer-3/subkit/internal/log"
	"github.com/layer-3/subkit/internal/metrics"
	"github.com/layer-3/subkit/ports"
)

// Coin types of the address records written for new subnames.
const (
	CoinEthereum = "60"
	CoinBase     = "2147492101"
)

var labelPattern = regexp.MustCompile(`^[a-z0-9-]+$`)

// ClaimRequest asks for a subname for Address
type ClaimRequest struct {
	Label       string
	Address     string
	DisplayName string
	AvatarURL   string
}

// SubnameService claims subnames under a fixed parent name
type SubnameService struct {
	directory  ports.NameDirectory
	cache      ports.SubnameCache
	events     ports.EventPublisher
	parentName string
	logger     log.Logger
	metrics    *metrics.Metrics
}

// NewSubnameService creates a SubnameService. cache and events may be nil.
func NewSubnameService(
	directory ports.NameDirectory,
	cache ports.SubnameCache,
	events ports.EventPublisher,
	parentName string,
	lg log.Logger,
	m *metrics.Metrics,
) *SubnameService {
	return &SubnameService{
		directory:  directory,
		cache:      cache,
		events:     events,
		parentName: parentName,
		logger:     lg.Named("subname"),
		metrics:    m,
	}
}

// ParentName returns the name subnames are created under.
func (s *SubnameService) ParentName() string {
	return s.parentName
}

// NormalizeLabel lowercases and trims label and checks it is a valid
// single DNS label. Only ASCII letters, digits and inner hyphens are
// accepted; Unicode and emoji labels are rejected rather than normalized.
func NormalizeLabel(label string) (string, error) {
	label = strings.ToLower(strings.TrimSpace(label))
	if label == "" || !labelPattern.MatchString(label) ||
		strings.HasPrefix(label, "-") || strings.HasSuffix(label, "-") {
		return "", core.ErrInvalidLabel
	}
	return label, nil
}

// FullName returns label.parent.
func (s *SubnameService) FullName(label string) string {
	return label + "." + s.parentName
}

// Available reports whether label is free under the parent name.
func (s *SubnameService) Available(ctx context.Context, label string) (string, bool, error) {
	label, err := NormalizeLabel(label)
	if err != nil {
		return "", false, err
	}
	fullName := s.FullName(label)
	ok, err := s.directory.IsSubnameAvailable(ctx, fullName)
	if err != nil {
		return fullName, false, fmt.Errorf("failed to check subname availability: %w", err)
	}
	return fullName, ok, nil
}

// Claim creates a subname for req.Address. An address holds at most one
// subname under the parent name.
func (s *SubnameService) Claim(ctx context.Context, req ClaimRequest) (*core.Subname, error) {
	subname, err := s.claim(ctx, req)
	if err != nil {
		var conflict *core.ConflictError
		switch {
		case errors.As(err, &conflict):
			s.metrics.SubnameClaims.WithLabelValues("conflict").Inc()
		case errors.Is(err, core.ErrInvalidLabel), errors.Is(err, core.ErrInvalidAddress), errors.Is(err, core.ErrZeroAddress):
			s.metrics.SubnameClaims.WithLabelValues("invalid").Inc()
		default:
			s.metrics.SubnameClaims.WithLabelValues("failure").Inc()
			s.logger.Error("error creating subname", "label", req.Label, "error", err)
		}
		return nil, err
	}
	s.metrics.SubnameClaims.WithLabelValues("success").Inc()
	s.logger.Info("subname claimed", "name", subname.FullName, "owner", subname.Owner)
	return subname, nil
}

func (s *SubnameService) claim(ctx context.Context, req ClaimRequest) (*core.Subname, error) {
	if strings.TrimSpace(req.Label) == "" {
		return nil, core.ErrInvalidLabel
	}
	if strings.TrimSpace(req.Address) == "" {
		return nil, core.ErrInvalidAddress
	}
	address, err := core.ParseAddress(req.Address)
	if err != nil {
		return nil, err
	}
	if address.IsZero() {
		return nil, core.ErrZeroAddress
	}
	label, err := NormalizeLabel(req.Label)
	if err != nil {
		return nil, err
	}
	fullName := s.FullName(label)

	available, err := s.directory.IsSubnameAvailable(ctx, fullName)
	if err != nil {
		return nil, fmt.Errorf("failed to check subname availability: %w", err)
	}
	if !available {
		return nil, &core.ConflictError{Err: core.ErrSubnameTaken, Existing: fullName}
	}

	existing, err := s.directory.FindSubnames(ctx, core.SubnameFilter{
		ParentName: s.parentName,
		Owner:      address,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to look up existing subnames: %w", err)
	}
	if first := existing.First(); first != nil && first.FullName != "" {
		return nil, &core.ConflictError{Err: core.ErrAddressHasSubname, Existing: first.FullName}
	}

	created, err := s.directory.CreateSubname(ctx, core.NewSubname{
		Label:      label,
		ParentName: s.parentName,
		Addresses: []core.AddressRecord{
			{Chain: CoinBase, Value: address.String()},
			{Chain: CoinEthereum, Value: address.String()},
		},
		Texts: []core.Record{
			{Key: core.TextAvatar, Value: req.AvatarURL},
			{Key: core.TextName, Value: req.DisplayName},
		},
		Metadata: []core.Record{
			{Key: "sender", Value: address.String()},
		},
		Owner: address,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create subname: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, address); err != nil {
			s.logger.Warn("failed to invalidate subname cache", "address", address, "error", err)
		}
	}
	if s.events != nil {
		if err := s.events.PublishSubnameClaimed(ctx, *created); err != nil {
			s.logger.Warn("failed to publish claim event", "error", err)
		}
	}
	return created, nil
}
