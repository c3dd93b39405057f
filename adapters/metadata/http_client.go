package metadata

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/layer-3/subkit/core"
	"github.com/layer-3/subkit/internal/log"
	"github.com/layer-3/subkit/ports"
)

// Default configuration values.
const (
	DefaultBaseURL = "https://metadata.namespace.ninja"
	DefaultTimeout = 30 * time.Second

	maxErrorBody = 64 << 10
)

// Client talks to the avatar metadata service. It never retries: a failed
// submission needs a fresh nonce and signature.
type Client struct {
	baseURL string
	client  *http.Client
	logger  log.Logger
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.client.Timeout = d
	}
}

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// WithLogger sets the logger.
func WithLogger(lg log.Logger) ClientOption {
	return func(c *Client) {
		c.logger = lg
	}
}

// NewClient creates a metadata service client for baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: DefaultTimeout},
		logger:  log.NoopLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ ports.MetadataService = (*Client)(nil)

type nonceRequest struct {
	Address core.Address `json:"address"`
	Scope   core.Scope   `json:"scope"`
}

type nonceResponse struct {
	Nonce     string `json:"nonce"`
	ExpiresAt int64  `json:"expiresAt"`
}

// RequestNonce asks for a single use nonce for address and scope.
func (c *Client) RequestNonce(ctx context.Context, address core.Address, scope core.Scope) (core.Nonce, error) {
	if _, err := core.ParseAddress(address.String()); err != nil {
		return core.Nonce{}, err
	}
	scope = scope.OrDefault()
	if !scope.Valid() {
		return core.Nonce{}, core.ErrInvalidScope
	}

	body, err := json.Marshal(nonceRequest{Address: address, Scope: scope})
	if err != nil {
		return core.Nonce{}, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/nonce", bytes.NewReader(body))
	if err != nil {
		return core.Nonce{}, &core.ChallengeError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return core.Nonce{}, &core.ChallengeError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text := readErrorBody(resp.Body, "Unknown error")
		c.logger.Warn("nonce request failed", "status", resp.StatusCode, "body", text)
		return core.Nonce{}, &core.ChallengeError{Status: resp.StatusCode, Body: text}
	}

	var out nonceResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return core.Nonce{}, &core.ChallengeError{Status: resp.StatusCode, Err: fmt.Errorf("decode nonce: %w", err)}
	}
	if out.Nonce == "" {
		return core.Nonce{}, &core.ChallengeError{Status: resp.StatusCode, Body: "empty nonce"}
	}

	nonce := core.Nonce{Value: out.Nonce}
	if out.ExpiresAt > 0 {
		nonce.ExpiresAt = time.UnixMilli(out.ExpiresAt)
	}
	c.logger.Debug("received nonce", "scope", scope, "expires_at", nonce.ExpiresAt)
	return nonce, nil
}

// UploadAvatar submits a multipart upload authenticated by req.Proof.
func (c *Client) UploadAvatar(ctx context.Context, req ports.UploadRequest) (*core.UploadResult, error) {
	if req.Proof == nil {
		return nil, core.ErrProofNotSigned
	}
	if err := req.File.Validate(); err != nil {
		return nil, err
	}

	body, contentType, err := encodeUpload(req)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.avatarURL(req.Network, req.Subname), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "application/json")

	var out core.UploadResult
	if err := c.submit(httpReq, req.Proof, "upload", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type deleteBody struct {
	SiweMessage   string       `json:"siweMessage"`
	SiweSignature string       `json:"siweSignature"`
	Address       core.Address `json:"address"`
}

// DeleteAvatar submits an avatar deletion authenticated by req.Proof.
func (c *Client) DeleteAvatar(ctx context.Context, req ports.DeleteRequest) (*core.DeleteResult, error) {
	if req.Proof == nil {
		return nil, core.ErrProofNotSigned
	}

	body, err := json.Marshal(deleteBody{
		SiweMessage:   req.Proof.Message(),
		SiweSignature: req.Proof.Signature().String(),
		Address:       req.Proof.Address,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.avatarURL(req.Network, req.Subname), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	var out core.DeleteResult
	if err := c.submit(httpReq, req.Proof, "delete", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// submit consumes the proof and sends req. The proof is spent whether or
// not the request succeeds.
func (c *Client) submit(req *http.Request, proof *core.Proof, op string, out any) error {
	if err := proof.MarkSubmitted(); err != nil {
		return err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s request: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text := readErrorBody(resp.Body, op+" failed")
		c.logger.Warn("avatar request failed", "op", op, "status", resp.StatusCode, "body", text)
		return &core.ServerError{Op: op, Status: resp.StatusCode, Body: text}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", op, err)
	}
	return nil
}

func (c *Client) avatarURL(network core.Network, subname string) string {
	return fmt.Sprintf("%s/profile/%s/%s/avatar", c.baseURL, url.PathEscape(string(network)), url.PathEscape(subname))
}

// encodeUpload writes the form fields in the order the service expects:
// address, siweMessage, siweSignature, avatar.
func encodeUpload(req ports.UploadRequest) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := []struct{ name, value string }{
		{"address", req.Proof.Address.String()},
		{"siweMessage", req.Proof.Message()},
		{"siweSignature", req.Proof.Signature().String()},
	}
	for _, f := range fields {
		if err := w.WriteField(f.name, f.value); err != nil {
			return nil, "", fmt.Errorf("write %s: %w", f.name, err)
		}
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="avatar"; filename="%s"`, quoteEscaper.Replace(req.File.Name)))
	h.Set("Content-Type", req.File.ContentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("create file part: %w", err)
	}
	n, err := io.Copy(part, io.LimitReader(req.File.Content, core.MaxAvatarSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("read avatar: %w", err)
	}
	if n > core.MaxAvatarSize {
		return nil, "", fmt.Errorf("%w: more than %d bytes", core.ErrFileTooLarge, core.MaxAvatarSize)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close form: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func readErrorBody(r io.Reader, fallback string) string {
	b, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil && !errors.Is(err, io.EOF) {
		return fallback
	}
	text := strings.TrimSpace(string(b))
	if text == "" {
		return fallback
	}
	return text
}
