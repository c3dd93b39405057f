package service

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/subkit/adapters/cache"
	"github.com/layer-3/subkit/adapters/directory"
	"github.com/layer-3/subkit/core"
	"github.com/layer-3/subkit/internal/log"
	"github.com/layer-3/subkit/internal/metrics"
	"github.com/layer-3/subkit/internal/siwe"
)

const testSubname = "alice.example.eth"

type avatarFixture struct {
	svc     *AvatarService
	md      *fakeMetadata
	dir     *flakyDirectory
	cache   *cache.MemoryCache
	events  *recordingEvents
	metrics *metrics.Metrics

	mu       sync.Mutex
	uploaded []core.UploadResult
	deleted  []core.DeleteResult
}

func newAvatarFixture(t *testing.T) *avatarFixture {
	t.Helper()
	f := &avatarFixture{
		md:      newFakeMetadata(),
		dir:     &flakyDirectory{MemoryDirectory: directory.NewMemoryDirectory()},
		cache:   cache.NewMemoryCache(),
		events:  &recordingEvents{},
		metrics: metrics.Discard(),
	}
	_, err := f.dir.CreateSubname(context.Background(), core.NewSubname{
		Label:      "alice",
		ParentName: "example.eth",
		Texts:      []core.Record{{Key: core.TextAvatar, Value: "https://old.example/a.png"}},
		Owner:      testAddress,
	})
	require.NoError(t, err)

	auth := NewAuthenticator(f.md, newTestSigner(t, core.NetworkSepolia.ChainID()), siwe.NewBuilder("", "", ""), log.NoopLogger{}, f.metrics)
	f.svc = NewAvatarService(auth, f.md, log.NoopLogger{}, f.metrics,
		WithDirectory(f.dir),
		WithSubnameCache(f.cache),
		WithEvents(f.events),
		OnUploaded(func(r core.UploadResult) {
			f.mu.Lock()
			f.uploaded = append(f.uploaded, r)
			f.mu.Unlock()
		}),
		OnDeleted(func(r core.DeleteResult) {
			f.mu.Lock()
			f.deleted = append(f.deleted, r)
			f.mu.Unlock()
		}),
	)
	return f
}

func pngFile(size int) core.AvatarFile {
	return core.AvatarFile{
		Name:        "avatar.png",
		ContentType: "image/png",
		Size:        int64(size),
		Content:     bytes.NewReader(make([]byte, size)),
	}
}

func (f *avatarFixture) avatarText(t *testing.T) string {
	t.Helper()
	page, err := f.dir.FindSubnames(context.Background(), core.SubnameFilter{Owner: testAddress})
	require.NoError(t, err)
	return page.First().Avatar()
}

func TestAvatarService_Upload(t *testing.T) {
	f := newAvatarFixture(t)
	ctx := context.Background()
	require.NoError(t, f.cache.Set(ctx, testAddress, &core.SubnamePage{TotalItems: 1}, time.Minute))

	res, err := f.svc.Upload(ctx, UploadParams{File: pngFile(512), Subname: testSubname, Network: core.NetworkSepolia})
	require.NoError(t, err)
	assert.False(t, res.IsUpdate)
	assert.Equal(t, []core.Scope{core.ScopeAvatarAndHeader}, f.md.scopes)

	state := f.svc.State()
	assert.False(t, state.IsUploading)
	assert.NoError(t, state.Err)
	assert.Equal(t, res, state.Data)

	assert.Equal(t, res.AvatarURL, f.avatarText(t))
	_, cached, err := f.cache.Get(ctx, testAddress)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Len(t, f.events.uploaded, 1)
	assert.Len(t, f.uploaded, 1)

	res, err = f.svc.Upload(ctx, UploadParams{File: pngFile(512), Subname: testSubname, Network: core.NetworkSepolia})
	require.NoError(t, err)
	assert.True(t, res.IsUpdate)
	assert.Equal(t, float64(2), testutil.ToFloat64(f.metrics.AvatarOperations.WithLabelValues("upload", "success")))
}

func TestAvatarService_UploadValidation(t *testing.T) {
	f := newAvatarFixture(t)
	ctx := context.Background()

	badType := pngFile(10)
	badType.ContentType = "application/pdf"
	big := pngFile(10)
	big.Size = core.MaxAvatarSize + 1

	cases := []struct {
		name   string
		params UploadParams
		want   error
	}{
		{"file type", UploadParams{File: badType, Subname: testSubname, Network: core.NetworkMainnet}, core.ErrFileType},
		{"file size", UploadParams{File: big, Subname: testSubname, Network: core.NetworkMainnet}, core.ErrFileTooLarge},
		{"no file", UploadParams{Subname: testSubname, Network: core.NetworkMainnet}, core.ErrInvalidFile},
		{"no subname", UploadParams{File: pngFile(10), Network: core.NetworkMainnet}, core.ErrInvalidSubname},
		{"bad network", UploadParams{File: pngFile(10), Subname: testSubname, Network: "ropsten"}, core.ErrInvalidNetwork},
		{"bad scope", UploadParams{File: pngFile(10), Subname: testSubname, Network: core.NetworkMainnet, Scope: "banner"}, core.ErrInvalidScope},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Upload(ctx, tc.params)
			assert.ErrorIs(t, err, tc.want)
		})
	}
	assert.Zero(t, f.md.nonceCalls)
}

func TestAvatarService_TextRecordFailureIsSwallowed(t *testing.T) {
	f := newAvatarFixture(t)
	f.dir.err = errors.New("naming service down")

	res, err := f.svc.Upload(context.Background(), UploadParams{File: pngFile(64), Subname: testSubname, Network: core.NetworkSepolia})
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.Equal(t, res, f.svc.State().Data)
	assert.Len(t, f.uploaded, 1)
	assert.Equal(t, []string{testSubname + "/avatar"}, f.events.syncFailed)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.TextRecordSyncFailures.WithLabelValues("upload")))

	_, err = f.svc.Delete(context.Background(), DeleteParams{Subname: testSubname, Network: core.NetworkSepolia})
	require.NoError(t, err)
	assert.Len(t, f.deleted, 1)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.TextRecordSyncFailures.WithLabelValues("delete")))
}

func TestAvatarService_Delete(t *testing.T) {
	f := newAvatarFixture(t)
	ctx := context.Background()

	res, err := f.svc.Delete(ctx, DeleteParams{Subname: testSubname, Network: core.NetworkSepolia})
	require.NoError(t, err)
	assert.Equal(t, testSubname, res.Subname)
	assert.Equal(t, []core.Scope{core.ScopeAvatar}, f.md.scopes)
	assert.Empty(t, f.avatarText(t))
	assert.Len(t, f.deleted, 1)
	assert.Len(t, f.events.deleted, 1)
	assert.NoError(t, f.svc.State().DeleteErr)
}

func TestAvatarService_DeleteExpiredNonce(t *testing.T) {
	f := newAvatarFixture(t)
	f.md.nonceTTL = -time.Second

	res, err := f.svc.Delete(context.Background(), DeleteParams{Subname: testSubname, Network: core.NetworkSepolia})
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, core.ErrDeleteFailed)
	assert.EqualError(t, err, "Nonce expired")

	state := f.svc.State()
	assert.False(t, state.IsDeleting)
	assert.ErrorIs(t, state.DeleteErr, core.ErrDeleteFailed)
	assert.Empty(t, f.deleted)
	assert.Equal(t, "https://old.example/a.png", f.avatarText(t))
}

func TestAvatarService_UploadFailureClearsData(t *testing.T) {
	f := newAvatarFixture(t)
	ctx := context.Background()

	_, err := f.svc.Upload(ctx, UploadParams{File: pngFile(64), Subname: testSubname, Network: core.NetworkSepolia})
	require.NoError(t, err)

	f.md.uploadErr = &core.ServerError{Op: "upload", Status: 500, Body: "upload failed"}
	_, err = f.svc.Upload(ctx, UploadParams{File: pngFile(64), Subname: testSubname, Network: core.NetworkSepolia})
	assert.ErrorIs(t, err, core.ErrUploadFailed)

	state := f.svc.State()
	assert.Nil(t, state.Data)
	assert.ErrorIs(t, state.Err, core.ErrUploadFailed)
	assert.Len(t, f.uploaded, 1)
}

func TestAvatarService_UploadInFlight(t *testing.T) {
	f := newAvatarFixture(t)
	f.md.block = make(chan struct{})
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := f.svc.Upload(ctx, UploadParams{File: pngFile(64), Subname: testSubname, Network: core.NetworkSepolia})
		done <- err
	}()

	require.Eventually(t, func() bool { return f.svc.State().IsUploading }, time.Second, 5*time.Millisecond)

	_, err := f.svc.Upload(ctx, UploadParams{File: pngFile(64), Subname: testSubname, Network: core.NetworkSepolia})
	assert.ErrorIs(t, err, core.ErrOperationInFlight)

	close(f.md.block)
	require.NoError(t, <-done)
	assert.False(t, f.svc.State().IsUploading)
}
