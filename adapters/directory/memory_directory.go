package directory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/layer-3/subkit/core"
	"github.com/layer-3/subkit/ports"
)

// MemoryDirectory is an in-process NameDirectory for development and tests.
type MemoryDirectory struct {
	mu       sync.RWMutex
	subnames map[string]core.Subname
}

// NewMemoryDirectory creates an empty directory.
func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{subnames: make(map[string]core.Subname)}
}

var _ ports.NameDirectory = (*MemoryDirectory)(nil)

func (d *MemoryDirectory) IsSubnameAvailable(_ context.Context, fullName string) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, taken := d.subnames[strings.ToLower(fullName)]
	return !taken, nil
}

// FindSubnames returns the matching subnames ordered by full name.
func (d *MemoryDirectory) FindSubnames(_ context.Context, filter core.SubnameFilter) (*core.SubnamePage, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	items := []core.Subname{}
	for _, s := range d.subnames {
		if filter.ParentName != "" && s.ParentName != filter.ParentName {
			continue
		}
		if filter.Owner != "" && !strings.EqualFold(s.Owner.String(), filter.Owner.String()) {
			continue
		}
		items = append(items, s.Clone())
	}
	sort.Slice(items, func(i, j int) bool { return items[i].FullName < items[j].FullName })

	return &core.SubnamePage{
		Page:       1,
		Size:       len(items),
		TotalItems: len(items),
		Items:      items,
	}, nil
}

func (d *MemoryDirectory) CreateSubname(_ context.Context, req core.NewSubname) (*core.Subname, error) {
	fullName := strings.ToLower(req.Label + "." + req.ParentName)

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.subnames[fullName]; ok {
		return nil, fmt.Errorf("%w: %s", core.ErrSubnameTaken, fullName)
	}

	s := core.Subname{
		ID:         uuid.NewString(),
		FullName:   fullName,
		ParentName: req.ParentName,
		Label:      req.Label,
		Texts:      recordMap(req.Texts),
		Addresses:  make(map[string]string, len(req.Addresses)),
		Metadata:   recordMap(req.Metadata),
		Owner:      req.Owner,
	}
	for _, a := range req.Addresses {
		s.Addresses[a.Chain] = a.Value
	}
	d.subnames[fullName] = s

	out := s.Clone()
	return &out, nil
}

func (d *MemoryDirectory) SetTextRecord(_ context.Context, fullName, key, value string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.subnames[strings.ToLower(fullName)]
	if !ok {
		return fmt.Errorf("%w: %s", core.ErrNotFound, fullName)
	}
	s.Texts[key] = value
	return nil
}

func (d *MemoryDirectory) DeleteTextRecord(_ context.Context, fullName, key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.subnames[strings.ToLower(fullName)]
	if !ok {
		return fmt.Errorf("%w: %s", core.ErrNotFound, fullName)
	}
	delete(s.Texts, key)
	return nil
}

func recordMap(records []core.Record) map[string]string {
	m := make(map[string]string, len(records))
	for _, r := range records {
		m[r.Key] = r.Value
	}
	return m
}
