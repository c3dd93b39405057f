package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/layer-3/subkit/adapters/directory"
	"github.com/layer-3/subkit/adapters/signer"
	"github.com/layer-3/subkit/core"
	"github.com/layer-3/subkit/internal/eth"
	"github.com/layer-3/subkit/internal/siwe"
	"github.com/layer-3/subkit/ports"
)

// Well known test key (hardhat account #0).
const (
	testKey     = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testAddress = core.Address("0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266")
)

func newTestSigner(t *testing.T, chainID int64) *signer.EthereumSigner {
	t.Helper()
	s, err := signer.NewEthereumSigner(testKey, chainID)
	require.NoError(t, err)
	return s
}

// fakeMetadata is an in-memory metadata service that checks every
// submitted message against the nonces it issued.
type fakeMetadata struct {
	mu         sync.Mutex
	seq        int
	nonceTTL   time.Duration
	nonces     map[string]time.Time
	scopes     []core.Scope
	avatars    map[string]bool
	nonceErr   error
	uploadErr  error
	block      chan struct{}
	nonceCalls int
}

func newFakeMetadata() *fakeMetadata {
	return &fakeMetadata{
		nonceTTL: 5 * time.Minute,
		nonces:   make(map[string]time.Time),
		avatars:  make(map[string]bool),
	}
}

var _ ports.MetadataService = (*fakeMetadata)(nil)

func (f *fakeMetadata) RequestNonce(_ context.Context, _ core.Address, scope core.Scope) (core.Nonce, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nonceCalls++
	if f.nonceErr != nil {
		return core.Nonce{}, f.nonceErr
	}
	f.seq++
	n := core.Nonce{Value: fmt.Sprintf("nonce%04d", f.seq), ExpiresAt: time.Now().Add(f.nonceTTL)}
	f.nonces[n.Value] = n.ExpiresAt
	f.scopes = append(f.scopes, scope)
	return n, nil
}

func (f *fakeMetadata) verify(proof *core.Proof) error {
	if err := proof.MarkSubmitted(); err != nil {
		return err
	}
	msg, err := siwe.Parse(proof.Message())
	if err != nil {
		return err
	}
	addr, err := eth.RecoverPersonalSigner(proof.Message(), proof.Signature())
	if err != nil {
		return err
	}
	if !strings.EqualFold(addr.Hex(), proof.Address.String()) {
		return errors.New("signer mismatch")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	expires, ok := f.nonces[msg.Nonce]
	delete(f.nonces, msg.Nonce)
	if !ok {
		return errors.New("unknown nonce")
	}
	if time.Now().After(expires) {
		return errors.New("Nonce expired")
	}
	return nil
}

func (f *fakeMetadata) UploadAvatar(ctx context.Context, req ports.UploadRequest) (*core.UploadResult, error) {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := f.verify(req.Proof); err != nil {
		return nil, &core.ServerError{Op: "upload", Status: 401, Body: err.Error()}
	}
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}

	f.mu.Lock()
	existed := f.avatars[req.Subname]
	f.avatars[req.Subname] = true
	f.mu.Unlock()
	return &core.UploadResult{
		Subname:    req.Subname,
		Network:    req.Network,
		AvatarURL:  "https://cdn.example/" + req.Subname,
		UploadedAt: time.Now().UTC().Format(time.RFC3339),
		FileSize:   req.File.Size,
		IsUpdate:   existed,
	}, nil
}

func (f *fakeMetadata) DeleteAvatar(_ context.Context, req ports.DeleteRequest) (*core.DeleteResult, error) {
	if err := f.verify(req.Proof); err != nil {
		return nil, &core.ServerError{Op: "delete", Status: 401, Body: err.Error()}
	}
	f.mu.Lock()
	delete(f.avatars, req.Subname)
	f.mu.Unlock()
	return &core.DeleteResult{
		Subname:   req.Subname,
		Network:   req.Network,
		Message:   "Avatar deleted successfully",
		DeletedAt: time.Now().UTC().Format(time.RFC3339),
	}, nil
}

// flakyDirectory fails the text record writes with err.
type flakyDirectory struct {
	*directory.MemoryDirectory
	err error
}

func (d *flakyDirectory) SetTextRecord(ctx context.Context, fullName, key, value string) error {
	if d.err != nil {
		return d.err
	}
	return d.MemoryDirectory.SetTextRecord(ctx, fullName, key, value)
}

func (d *flakyDirectory) DeleteTextRecord(ctx context.Context, fullName, key string) error {
	if d.err != nil {
		return d.err
	}
	return d.MemoryDirectory.DeleteTextRecord(ctx, fullName, key)
}

type failingDirectory struct {
	*directory.MemoryDirectory
}

func (failingDirectory) FindSubnames(context.Context, core.SubnameFilter) (*core.SubnamePage, error) {
	return nil, errors.New("naming service unavailable")
}

func (failingDirectory) IsSubnameAvailable(context.Context, string) (bool, error) {
	return false, errors.New("naming service unavailable")
}

// recordingEvents keeps the published events.
type recordingEvents struct {
	mu         sync.Mutex
	uploaded   []core.UploadResult
	deleted    []core.DeleteResult
	syncFailed []string
	claimed    []core.Subname
}

var _ ports.EventPublisher = (*recordingEvents)(nil)

func (r *recordingEvents) PublishAvatarUploaded(_ context.Context, res core.UploadResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.uploaded = append(r.uploaded, res)
	return nil
}

func (r *recordingEvents) PublishAvatarDeleted(_ context.Context, res core.DeleteResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted = append(r.deleted, res)
	return nil
}

func (r *recordingEvents) PublishTextRecordSyncFailed(_ context.Context, subname, key string, _ error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.syncFailed = append(r.syncFailed, subname+"/"+key)
	return nil
}

func (r *recordingEvents) PublishSubnameClaimed(_ context.Context, s core.Subname) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.claimed = append(r.claimed, s)
	return nil
}

// decliningSigner refuses to sign.
type decliningSigner struct {
	chainID int64
}

func (decliningSigner) Address() core.Address { return testAddress }
func (s decliningSigner) ChainID() int64 { return s.chainID }
func (decliningSigner) SignMessage(context.Context, string) (core.Signature, error) {
	return nil, errors.New("user rejected the request")
}
