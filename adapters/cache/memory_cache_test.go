package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/subkit/core"
)

const owner = core.Address("0x1234567890123456789012345678901234567890")

func TestMemoryCache_SetGetInvalidate(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	_, ok, err := c.Get(ctx, owner)
	require.NoError(t, err)
	assert.False(t, ok)

	page := &core.SubnamePage{TotalItems: 1, Items: []core.Subname{{FullName: "alice.example.eth"}}}
	require.NoError(t, c.Set(ctx, owner, page, time.Minute))

	got, ok, err := c.Get(ctx, owner)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "alice.example.eth", got.First().FullName)

	require.NoError(t, c.Invalidate(ctx, owner))
	_, ok, _ = c.Get(ctx, owner)
	assert.False(t, ok)
}

func TestMemoryCache_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewMemoryCache()
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, owner, &core.SubnamePage{}, time.Second))
	_, ok, _ := c.Get(ctx, owner)
	assert.True(t, ok)

	now = now.Add(time.Second)
	_, ok, _ = c.Get(ctx, owner)
	assert.False(t, ok)
}

func TestMemoryCache_ZeroTTLSkipsWrite(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	require.NoError(t, c.Set(ctx, owner, &core.SubnamePage{}, 0))
	_, ok, _ := c.Get(ctx, owner)
	assert.False(t, ok)
}

func TestMemoryCache_PagesAreCopied(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	page := &core.SubnamePage{TotalItems: 1, Items: []core.Subname{{
		FullName: "alice.example.eth",
		Texts:    map[string]string{core.TextAvatar: "https://cdn.example/alice.png"},
	}}}
	require.NoError(t, c.Set(ctx, owner, page, time.Minute))
	page.Items[0].Texts[core.TextAvatar] = "changed after set"

	got, ok, err := c.Get(ctx, owner)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "https://cdn.example/alice.png", got.First().Avatar())

	got.First().FullName = "mallory.example.eth"
	got.First().Texts[core.TextAvatar] = "changed after get"
	got.Items = append(got.Items, core.Subname{FullName: "extra.example.eth"})

	again, ok, err := c.Get(ctx, owner)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, again.Items, 1)
	assert.Equal(t, "alice.example.eth", again.First().FullName)
	assert.Equal(t, "https://cdn.example/alice.png", again.First().Avatar())
}
