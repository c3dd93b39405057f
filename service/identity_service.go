package service

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/layer-3/subkit/core"
	"github.com/layer-3/subkit/internal/log"
	"github.com/layer-3/subkit/internal/metrics"
	"github.com/layer-3/subkit/ports"
)

// DefaultIdentityCacheTTL keeps lookups fresh for one second.
const DefaultIdentityCacheTTL = time.Second

// truncatedAddress matches display names that are just a shortened
// address, like 0x92…5a3e.
var truncatedAddress = regexp.MustCompile(`^0x[a-fA-F0-9]{2,6}[….]{1,3}[a-fA-F0-9]{2,6}$`)

// IdentityQuery asks for the display identity of Address
type IdentityQuery struct {
	Address        string
	FallbackName   string
	FallbackAvatar string
}

// IdentityService resolves the display name and avatar of an address
type IdentityService struct {
	directory  ports.NameDirectory
	cache      ports.SubnameCache
	parentName string
	ttl        time.Duration
	logger     log.Logger
	metrics    *metrics.Metrics
}

// NewIdentityService creates an IdentityService. Lookups are restricted to
// subnames of parentName unless it is empty. A nil cache disables caching.
func NewIdentityService(
	directory ports.NameDirectory,
	cache ports.SubnameCache,
	parentName string,
	ttl time.Duration,
	lg log.Logger,
	m *metrics.Metrics,
) *IdentityService {
	if ttl <= 0 {
		ttl = DefaultIdentityCacheTTL
	}
	return &IdentityService{
		directory:  directory,
		cache:      cache,
		parentName: parentName,
		ttl:        ttl,
		logger:     lg.Named("identity"),
		metrics:    m,
	}
}

// Resolve returns the preferred identity for q. Naming service failures
// resolve as an address without subnames.
func (s *IdentityService) Resolve(ctx context.Context, q IdentityQuery) (core.Identity, error) {
	address := core.Address(strings.ToLower(strings.TrimSpace(q.Address)))
	if address != "" {
		if _, err := core.ParseAddress(address.String()); err != nil {
			return core.Identity{}, err
		}
	}

	page := s.lookup(ctx, address)
	return buildIdentity(address, page, q.FallbackName, q.FallbackAvatar), nil
}

// Refresh drops the cached lookup for address and resolves it again.
func (s *IdentityService) Refresh(ctx context.Context, q IdentityQuery) (core.Identity, error) {
	address, err := core.ParseAddress(q.Address)
	if err != nil {
		return core.Identity{}, err
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, address); err != nil {
			s.logger.Warn("failed to invalidate subname cache", "address", address, "error", err)
		}
	}
	return s.Resolve(ctx, q)
}

func (s *IdentityService) lookup(ctx context.Context, address core.Address) *core.SubnamePage {
	if address == "" {
		return nil
	}

	if s.cache != nil {
		page, ok, err := s.cache.Get(ctx, address)
		if err != nil {
			s.logger.Warn("subname cache read failed", "address", address, "error", err)
		} else if ok {
			s.metrics.IdentityLookups.WithLabelValues("cache").Inc()
			return page
		}
	}

	page, err := s.directory.FindSubnames(ctx, core.SubnameFilter{
		ParentName: s.parentName,
		Owner:      address,
	})
	if err != nil {
		s.metrics.IdentityLookups.WithLabelValues("error").Inc()
		s.logger.Warn("subname lookup failed", "address", address, "error", err)
		return nil
	}
	s.metrics.IdentityLookups.WithLabelValues("directory").Inc()

	if s.cache != nil {
		if err := s.cache.Set(ctx, address, page, s.ttl); err != nil {
			s.logger.Warn("subname cache write failed", "address", address, "error", err)
		}
	}
	return page
}

// buildIdentity picks the name as subname, then a meaningful fallback name,
// then the shortened address. An avatar that does not look like a URL
// counts as absent, so the subname avatar is tried next.
func buildIdentity(address core.Address, page *core.SubnamePage, fallbackName, fallbackAvatar string) core.Identity {
	subname := page.First()
	id := core.Identity{
		Subname:     subname,
		HasSubnames: page != nil && page.TotalItems > 0,
	}

	switch {
	case subname != nil && subname.FullName != "":
		id.Name = subname.FullName
	case fallbackName != "" && !truncatedAddress.MatchString(fallbackName):
		id.Name = fallbackName
	case address != "":
		id.Name = address.Truncate()
	}

	switch {
	case isAvatarURL(fallbackAvatar):
		id.AvatarSrc = fallbackAvatar
	case isAvatarURL(subname.Avatar()):
		id.AvatarSrc = subname.Avatar()
	}
	return id
}

func isAvatarURL(s string) bool {
	if strings.TrimSpace(s) == "" {
		return false
	}
	return strings.HasPrefix(s, "http") || strings.HasPrefix(s, "data:")
}
