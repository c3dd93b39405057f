// Package siwe builds and parses EIP-4361 sign-in messages.
//
// A Message keeps the exact text it was rendered to. Callers sign that text
// and submit the same text; rendering again would capture a new issuance
// time and invalidate the signature.
package siwe

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

const (
	DefaultDomain    = "offchain-next-rainbowkit-template.vercel.app"
	DefaultURI       = "https://offchain-next-rainbowkit-template.vercel.app"
	DefaultStatement = "Sign in to Avatar Service"
	DefaultVersion   = "1"

	// IssuedAtLayout is the seconds granularity ISO-8601 form used for Issued At.
	IssuedAtLayout = "2006-01-02T15:04:05Z"

	header = " wants you to sign in with your Ethereum account:"
)

var (
	ErrMalformed   = errors.New("malformed sign-in message")
	ErrExpired     = errors.New("sign-in message expired")
	ErrNotYetValid = errors.New("sign-in message not yet valid")
)

// Message is a rendered sign-in message and the fields it was built from
type Message struct {
	Scheme    string // optional, e.g. https
	Domain    string
	Address   string // EIP-55 checksummed
	Statement string
	URI       string
	Version   string
	ChainID   int64
	Nonce     string
	IssuedAt  time.Time

	// Optional fields. Zero values are not rendered.
	ExpirationTime time.Time
	NotBefore      time.Time
	RequestID      string
	Resources      []string

	text string
}

// String returns the rendered text.
func (m *Message) String() string {
	return m.text
}

// Params are the per-request inputs to Build
type Params struct {
	Address   string
	ChainID   int64
	Nonce     string
	Statement string // optional, overrides Builder.Statement

	ExpirationTime time.Time
	NotBefore      time.Time
	RequestID      string
	Resources      []string
}

// Builder renders messages with fixed application constants
type Builder struct {
	Domain    string
	URI       string
	Statement string
	Version   string
	Now       func() time.Time
}

// NewBuilder returns a Builder using the defaults for any empty value.
func NewBuilder(domain, uri, statement string) *Builder {
	b := &Builder{
		Domain:    domain,
		URI:       uri,
		Statement: statement,
		Version:   DefaultVersion,
		Now:       time.Now,
	}
	if b.Domain == "" {
		b.Domain = DefaultDomain
	}
	if b.URI == "" {
		b.URI = DefaultURI
	}
	if b.Statement == "" {
		b.Statement = DefaultStatement
	}
	return b
}

// Build renders the message for p, capturing the issuance time once.
func (b *Builder) Build(p Params) (*Message, error) {
	if !common.IsHexAddress(p.Address) {
		return nil, fmt.Errorf("%w: invalid address", ErrMalformed)
	}
	if p.Nonce == "" {
		return nil, fmt.Errorf("%w: empty nonce", ErrMalformed)
	}
	if p.ChainID <= 0 {
		return nil, fmt.Errorf("%w: invalid chain id", ErrMalformed)
	}
	statement := b.Statement
	if p.Statement != "" {
		statement = p.Statement
	}
	if strings.Contains(statement, "\n") || strings.Contains(p.RequestID, "\n") {
		return nil, fmt.Errorf("%w: fields must be single lines", ErrMalformed)
	}
	for _, r := range p.Resources {
		if r == "" || strings.Contains(r, "\n") {
			return nil, fmt.Errorf("%w: invalid resource", ErrMalformed)
		}
	}
	now := time.Now
	if b.Now != nil {
		now = b.Now
	}
	version := b.Version
	if version == "" {
		version = DefaultVersion
	}

	m := &Message{
		Domain:    b.Domain,
		Address:   common.HexToAddress(p.Address).Hex(),
		Statement: statement,
		URI:       b.URI,
		Version:   version,
		ChainID:   p.ChainID,
		Nonce:     p.Nonce,
		IssuedAt:  now().UTC().Truncate(time.Second),

		ExpirationTime: p.ExpirationTime,
		NotBefore:      p.NotBefore,
		RequestID:      p.RequestID,
		Resources:      p.Resources,
	}
	m.text = m.render()
	return m, nil
}

func (m *Message) render() string {
	var sb strings.Builder
	if m.Scheme != "" {
		sb.WriteString(m.Scheme)
		sb.WriteString("://")
	}
	sb.WriteString(m.Domain)
	sb.WriteString(header)
	sb.WriteString("\n")
	sb.WriteString(m.Address)
	sb.WriteString("\n\n")
	if m.Statement != "" {
		sb.WriteString(m.Statement)
		sb.WriteString("\n\n")
	} else {
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "URI: %s\n", m.URI)
	fmt.Fprintf(&sb, "Version: %s\n", m.Version)
	fmt.Fprintf(&sb, "Chain ID: %d\n", m.ChainID)
	fmt.Fprintf(&sb, "Nonce: %s\n", m.Nonce)
	fmt.Fprintf(&sb, "Issued At: %s", m.IssuedAt.Format(IssuedAtLayout))
	if !m.ExpirationTime.IsZero() {
		fmt.Fprintf(&sb, "\nExpiration Time: %s", m.ExpirationTime.UTC().Format(time.RFC3339))
	}
	if !m.NotBefore.IsZero() {
		fmt.Fprintf(&sb, "\nNot Before: %s", m.NotBefore.UTC().Format(time.RFC3339))
	}
	if m.RequestID != "" {
		fmt.Fprintf(&sb, "\nRequest ID: %s", m.RequestID)
	}
	if len(m.Resources) > 0 {
		sb.WriteString("\nResources:")
		for _, r := range m.Resources {
			fmt.Fprintf(&sb, "\n- %s", r)
		}
	}
	return sb.String()
}

// ValidAt checks t against the optional Not Before and Expiration Time.
func (m *Message) ValidAt(t time.Time) error {
	if !m.ExpirationTime.IsZero() && !t.Before(m.ExpirationTime) {
		return ErrExpired
	}
	if !m.NotBefore.IsZero() && t.Before(m.NotBefore) {
		return ErrNotYetValid
	}
	return nil
}

// Parse reads an EIP-4361 message, including the optional trailing fields.
// The returned Message keeps text unchanged.
func Parse(text string) (*Message, error) {
	lines := strings.Split(text, "\n")
	if len(lines) < 8 || !strings.HasSuffix(lines[0], header) {
		return nil, ErrMalformed
	}
	m := &Message{
		Domain:  strings.TrimSuffix(lines[0], header),
		Address: lines[1],
		text:    text,
	}
	if scheme, domain, ok := strings.Cut(m.Domain, "://"); ok {
		m.Scheme, m.Domain = scheme, domain
	}
	if m.Domain == "" || !common.IsHexAddress(m.Address) || lines[2] != "" {
		return nil, ErrMalformed
	}

	r := &lineReader{lines: lines[3:]}
	switch line := r.peek(); {
	case strings.HasPrefix(line, "URI: "):
		// no statement and no second blank line
	case line == "":
		r.pos++
	default:
		m.Statement = line
		r.pos++
		if r.peek() != "" {
			return nil, fmt.Errorf("%w: statement must be followed by a blank line", ErrMalformed)
		}
		r.pos++
	}

	var chainID, issuedAt string
	for _, f := range []struct {
		key string
		dst *string
	}{
		{"URI", &m.URI},
		{"Version", &m.Version},
		{"Chain ID", &chainID},
		{"Nonce", &m.Nonce},
		{"Issued At", &issuedAt},
	} {
		v, ok := r.field(f.key)
		if !ok || v == "" {
			return nil, fmt.Errorf("%w: expected %s", ErrMalformed, f.key)
		}
		*f.dst = v
	}
	if m.Version != DefaultVersion {
		return nil, fmt.Errorf("%w: unsupported version %q", ErrMalformed, m.Version)
	}

	id, err := strconv.ParseInt(chainID, 10, 64)
	if err != nil || id <= 0 {
		return nil, fmt.Errorf("%w: chain id", ErrMalformed)
	}
	m.ChainID = id
	if m.IssuedAt, err = parseTime("Issued At", issuedAt); err != nil {
		return nil, err
	}

	if v, ok := r.field("Expiration Time"); ok {
		if m.ExpirationTime, err = parseTime("Expiration Time", v); err != nil {
			return nil, err
		}
	}
	if v, ok := r.field("Not Before"); ok {
		if m.NotBefore, err = parseTime("Not Before", v); err != nil {
			return nil, err
		}
	}
	if v, ok := r.field("Request ID"); ok {
		m.RequestID = v
	}
	if r.peek() == "Resources:" {
		r.pos++
		for !r.done() {
			res, ok := strings.CutPrefix(r.peek(), "- ")
			if !ok || res == "" {
				return nil, fmt.Errorf("%w: resource", ErrMalformed)
			}
			m.Resources = append(m.Resources, res)
			r.pos++
		}
	}
	if !r.done() {
		return nil, fmt.Errorf("%w: unexpected line %q", ErrMalformed, r.peek())
	}
	return m, nil
}

func parseTime(key, value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s", ErrMalformed, strings.ToLower(key))
	}
	return t, nil
}

type lineReader struct {
	lines []string
	pos   int
}

func (r *lineReader) done() bool { return r.pos >= len(r.lines) }

func (r *lineReader) peek() string {
	if r.done() {
		return ""
	}
	return r.lines[r.pos]
}

// field consumes the next line when it is "key: value".
func (r *lineReader) field(key string) (string, bool) {
	v, ok := strings.CutPrefix(r.peek(), key+": ")
	if !ok {
		return "", false
	}
	r.pos++
	return v, true
}
