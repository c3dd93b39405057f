package siwe

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAddress = "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed"

func fixedBuilder(t time.Time) *Builder {
	b := NewBuilder("", "", "")
	b.Now = func() time.Time { return t }
	return b
}

func TestBuild_Format(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 30, 45, 123456789, time.UTC)
	msg, err := fixedBuilder(at).Build(Params{Address: testAddress, ChainID: 1, Nonce: "abc123"})
	require.NoError(t, err)

	want := "offchain-next-rainbowkit-template.vercel.app wants you to sign in with your Ethereum account:\n" +
		"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed\n" +
		"\n" +
		"Sign in to Avatar Service\n" +
		"\n" +
		"URI: https://offchain-next-rainbowkit-template.vercel.app\n" +
		"Version: 1\n" +
		"Chain ID: 1\n" +
		"Nonce: abc123\n" +
		"Issued At: 2024-05-01T12:30:45Z"
	assert.Equal(t, want, msg.String())
}

func TestBuild_Deterministic(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 30, 45, 0, time.UTC)
	b := fixedBuilder(at)
	p := Params{Address: testAddress, ChainID: 11155111, Nonce: "n-1"}

	first, err := b.Build(p)
	require.NoError(t, err)
	second, err := b.Build(p)
	require.NoError(t, err)
	assert.Equal(t, []byte(first.String()), []byte(second.String()))
}

func TestBuild_TimestampDriftChangesText(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 30, 45, 0, time.UTC)
	p := Params{Address: testAddress, ChainID: 1, Nonce: "n-1"}

	first, err := fixedBuilder(at).Build(p)
	require.NoError(t, err)
	later, err := fixedBuilder(at.Add(time.Second)).Build(p)
	require.NoError(t, err)
	assert.NotEqual(t, first.String(), later.String())
}

func TestBuild_StatementOverride(t *testing.T) {
	msg, err := NewBuilder("", "", "").Build(Params{Address: testAddress, ChainID: 1, Nonce: "n", Statement: "Delete my avatar"})
	require.NoError(t, err)
	assert.Contains(t, msg.String(), "\n\nDelete my avatar\n\n")
}

func TestBuild_Invalid(t *testing.T) {
	b := NewBuilder("", "", "")
	cases := map[string]Params{
		"address":   {Address: "0x123", ChainID: 1, Nonce: "n"},
		"nonce":     {Address: testAddress, ChainID: 1},
		"chain":     {Address: testAddress, Nonce: "n"},
		"statement": {Address: testAddress, ChainID: 1, Nonce: "n", Statement: "two\nlines"},
	}
	for name, p := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := b.Build(p)
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestParse_RoundTrip(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 30, 45, 0, time.UTC)
	built, err := fixedBuilder(at).Build(Params{Address: testAddress, ChainID: 17000, Nonce: "xyz"})
	require.NoError(t, err)

	parsed, err := Parse(built.String())
	require.NoError(t, err)
	assert.Equal(t, built.Domain, parsed.Domain)
	assert.Equal(t, built.Address, parsed.Address)
	assert.Equal(t, built.Statement, parsed.Statement)
	assert.Equal(t, built.URI, parsed.URI)
	assert.Equal(t, int64(17000), parsed.ChainID)
	assert.Equal(t, "xyz", parsed.Nonce)
	assert.True(t, at.Equal(parsed.IssuedAt))
	assert.Equal(t, built.String(), parsed.String())
}

func TestParse_NoStatement(t *testing.T) {
	built, err := (&Builder{Domain: "example.com", URI: "https://example.com", Version: "1"}).Build(Params{Address: testAddress, ChainID: 1, Nonce: "n"})
	require.NoError(t, err)

	parsed, err := Parse(built.String())
	require.NoError(t, err)
	assert.Empty(t, parsed.Statement)
	assert.Equal(t, "n", parsed.Nonce)
}

func TestParse_Malformed(t *testing.T) {
	for _, text := range []string{
		"",
		"hello world",
		"example.com wants you to sign in with your Ethereum account:\nnot-an-address\n\nURI: x\nVersion: 1\nChain ID: 1\nNonce: n\nIssued At: 2024-05-01T12:30:45Z",
		"example.com wants you to sign in with your Ethereum account:\n" + testAddress + "\n\n\nURI: x\nVersion: 1\nChain ID: one\nNonce: n\nIssued At: 2024-05-01T12:30:45Z",
	} {
		_, err := Parse(text)
		assert.ErrorIs(t, err, ErrMalformed, text)
	}
}

func TestParse_OptionalFields(t *testing.T) {
	text := "https://example.com wants you to sign in with your Ethereum account:\n" +
		"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed\n" +
		"\n" +
		"Sign in to Avatar Service\n" +
		"\n" +
		"URI: https://example.com/login\n" +
		"Version: 1\n" +
		"Chain ID: 1\n" +
		"Nonce: 32891756\n" +
		"Issued At: 2024-01-01T00:00:00.123Z\n" +
		"Expiration Time: 2024-01-01T00:05:00Z\n" +
		"Not Before: 2023-12-31T23:59:00Z\n" +
		"Request ID: req-7\n" +
		"Resources:\n" +
		"- ipfs://bafybeiemxf5abjwjbikoz4mc3a3dla6ual3jsgpdr4cjr3oz3evfyavhwq/\n" +
		"- https://example.com/my-web2-claim.json"

	m, err := Parse(text)
	require.NoError(t, err)
	assert.Equal(t, "https", m.Scheme)
	assert.Equal(t, "example.com", m.Domain)
	assert.Equal(t, "32891756", m.Nonce)
	assert.True(t, time.Date(2024, 1, 1, 0, 0, 0, 123000000, time.UTC).Equal(m.IssuedAt))
	assert.True(t, time.Date(2024, 1, 1, 0, 5, 0, 0, time.UTC).Equal(m.ExpirationTime))
	assert.True(t, time.Date(2023, 12, 31, 23, 59, 0, 0, time.UTC).Equal(m.NotBefore))
	assert.Equal(t, "req-7", m.RequestID)
	assert.Equal(t, []string{
		"ipfs://bafybeiemxf5abjwjbikoz4mc3a3dla6ual3jsgpdr4cjr3oz3evfyavhwq/",
		"https://example.com/my-web2-claim.json",
	}, m.Resources)
	assert.Equal(t, text, m.String())
}

func TestParse_ExpirationOnly(t *testing.T) {
	text := "example.com wants you to sign in with your Ethereum account:\n" +
		"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed\n" +
		"\n" +
		"Sign in\n" +
		"\n" +
		"URI: https://example.com\n" +
		"Version: 1\n" +
		"Chain ID: 1\n" +
		"Nonce: abcdefgh\n" +
		"Issued At: 2024-01-01T00:00:00.123Z\n" +
		"Expiration Time: 2024-01-01T00:05:00Z"

	m, err := Parse(text)
	require.NoError(t, err)
	assert.False(t, m.ExpirationTime.IsZero())
	assert.True(t, m.NotBefore.IsZero())
	assert.Empty(t, m.Resources)
}

func TestParse_NoStatementSingleBlankLine(t *testing.T) {
	text := "example.com wants you to sign in with your Ethereum account:\n" +
		"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed\n" +
		"\n" +
		"URI: https://example.com\n" +
		"Version: 1\n" +
		"Chain ID: 5\n" +
		"Nonce: abcdefgh\n" +
		"Issued At: 2024-01-01T00:00:00Z"

	m, err := Parse(text)
	require.NoError(t, err)
	assert.Empty(t, m.Statement)
	assert.Equal(t, int64(5), m.ChainID)
}

func TestBuild_OptionalFieldsRoundTrip(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 30, 45, 0, time.UTC)
	built, err := fixedBuilder(at).Build(Params{
		Address:        testAddress,
		ChainID:        1,
		Nonce:          "n-1",
		ExpirationTime: at.Add(5 * time.Minute),
		NotBefore:      at,
		RequestID:      "req-1",
		Resources:      []string{"https://example.com/a"},
	})
	require.NoError(t, err)
	assert.Contains(t, built.String(), "\nExpiration Time: 2024-05-01T12:35:45Z\nNot Before: 2024-05-01T12:30:45Z\nRequest ID: req-1\nResources:\n- https://example.com/a")

	parsed, err := Parse(built.String())
	require.NoError(t, err)
	assert.True(t, built.ExpirationTime.Equal(parsed.ExpirationTime))
	assert.True(t, built.NotBefore.Equal(parsed.NotBefore))
	assert.Equal(t, built.RequestID, parsed.RequestID)
	assert.Equal(t, built.Resources, parsed.Resources)
}

func TestParse_MalformedOptionalFields(t *testing.T) {
	base := "example.com wants you to sign in with your Ethereum account:\n" +
		"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed\n" +
		"\n" +
		"Sign in\n" +
		"\n" +
		"URI: https://example.com\n" +
		"Version: 1\n" +
		"Chain ID: 1\n" +
		"Nonce: abcdefgh\n" +
		"Issued At: 2024-01-01T00:00:00Z"

	for name, tail := range map[string]string{
		"bad expiration":  "\nExpiration Time: tomorrow",
		"bad not before":  "\nNot Before: 2024-13-01T00:00:00Z",
		"unknown field":   "\nFoo: bar",
		"out of order":    "\nRequest ID: x\nExpiration Time: 2024-01-01T00:05:00Z",
		"bad resource":    "\nResources:\nhttps://example.com",
		"trailing blank":  "\n",
		"unsupported ver": "",
	} {
		t.Run(name, func(t *testing.T) {
			text := base + tail
			if name == "unsupported ver" {
				text = strings.Replace(base, "Version: 1", "Version: 2", 1)
			}
			_, err := Parse(text)
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestMessage_ValidAt(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	m := &Message{NotBefore: at, ExpirationTime: at.Add(time.Minute)}

	assert.ErrorIs(t, m.ValidAt(at.Add(-time.Second)), ErrNotYetValid)
	assert.NoError(t, m.ValidAt(at))
	assert.NoError(t, m.ValidAt(at.Add(59*time.Second)))
	assert.ErrorIs(t, m.ValidAt(at.Add(time.Minute)), ErrExpired)

	assert.NoError(t, (&Message{}).ValidAt(at), "messages without bounds are always valid")
}
