package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/google/uuid"

	"github.com/layer-3/subkit/core"
	"github.com/layer-3/subkit/internal/eth"
	"github.com/layer-3/subkit/internal/log"
	"github.com/layer-3/subkit/internal/metrics"
	"github.com/layer-3/subkit/internal/siwe"
	"github.com/layer-3/subkit/ports"
)

// AuthConfig holds the sign-in settings of AuthService.
type AuthConfig struct {
	// Domain must match the domain line of every signed message.
	Domain       string
	ChallengeTTL time.Duration
	AccessTTL    time.Duration
}

// AuthService handles wallet sign-in for the claim service
type AuthService struct {
	tokenizer ports.Tokenizer
	store     ports.Store
	logger    log.Logger
	metrics   *metrics.Metrics

	domain       string
	challengeTTL time.Duration
	accessTTL    time.Duration
}

// NewAuthService creates a new authentication service
func NewAuthService(
	tokenizer ports.Tokenizer,
	store ports.Store,
	conf AuthConfig,
	lg log.Logger,
	m *metrics.Metrics,
) *AuthService {
	s := &AuthService{
		tokenizer:    tokenizer,
		store:        store,
		logger:       lg.Named("auth"),
		metrics:      m,
		domain:       conf.Domain,
		challengeTTL: conf.ChallengeTTL,
		accessTTL:    conf.AccessTTL,
	}
	if s.domain == "" {
		s.domain = siwe.DefaultDomain
	}
	if s.challengeTTL <= 0 {
		s.challengeTTL = 5 * time.Minute
	}
	if s.accessTTL <= 0 {
		s.accessTTL = 15 * time.Minute
	}
	return s
}

// CreateChallenge generates a new authentication challenge for address
func (s *AuthService) CreateChallenge(address string) (string, *core.Challenge, error) {
	addr, err := core.ParseAddress(address)
	if err != nil {
		return "", nil, err
	}

	// Generate random nonce
	nonceBytes := make([]byte, 32)
	if _, err := rand.Read(nonceBytes); err != nil {
		return "", nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	now := time.Now()
	challenge := &core.Challenge{
		ID:        uuid.New().String(),
		Address:   addr,
		Nonce:     hex.EncodeToString(nonceBytes),
		IssuedAt:  now,
		ExpiresAt: now.Add(s.challengeTTL),
	}

	token, err := s.tokenizer.ChallengeToToken(challenge)
	if err != nil {
		return "", nil, fmt.Errorf("failed to create token: %w", err)
	}
	return token, challenge, nil
}

// Login checks a sign-in message signed over a challenge and opens a
// session. Each challenge can be used once.
func (s *AuthService) Login(ctx context.Context, challengeToken, message, signature string) (string, *core.Session, error) {
	token, session, err := s.login(ctx, challengeToken, message, signature)
	if err != nil {
		s.metrics.AuthAttempts.WithLabelValues("failure").Inc()
		s.logger.Debug("login failed", "error", err)
		return "", nil, err
	}
	s.metrics.AuthAttempts.WithLabelValues("success").Inc()
	s.logger.Info("wallet signed in", "address", session.Address)
	return token, session, nil
}

func (s *AuthService) login(ctx context.Context, challengeToken, message, signature string) (string, *core.Session, error) {
	challenge, err := s.tokenizer.TokenToChallenge(challengeToken)
	if err != nil {
		return "", nil, fmt.Errorf("invalid challenge token: %w", err)
	}

	msg, err := siwe.Parse(message)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", core.ErrInvalidChallenge, err)
	}
	if msg.Domain != s.domain {
		return "", nil, fmt.Errorf("%w: unexpected domain %q", core.ErrInvalidChallenge, msg.Domain)
	}
	if msg.Nonce != challenge.Nonce {
		return "", nil, fmt.Errorf("%w: nonce mismatch", core.ErrInvalidChallenge)
	}
	signer, err := core.ParseAddress(msg.Address)
	if err != nil || signer != challenge.Address {
		return "", nil, fmt.Errorf("%w: address mismatch", core.ErrInvalidChallenge)
	}
	if err := msg.ValidAt(time.Now()); err != nil {
		if errors.Is(err, siwe.ErrExpired) {
			return "", nil, fmt.Errorf("%w: %v", core.ErrTokenExpired, err)
		}
		return "", nil, fmt.Errorf("%w: %v", core.ErrInvalidChallenge, err)
	}

	sig, err := hexutil.Decode(signature)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", core.ErrInvalidSignature, err)
	}
	ok, err := eth.VerifyPersonal(message, sig, common.HexToAddress(challenge.Address.String()))
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", core.ErrInvalidSignature, err)
	}
	if !ok {
		return "", nil, core.ErrInvalidSignature
	}

	ttl := time.Until(challenge.ExpiresAt)
	if ttl <= 0 {
		return "", nil, core.ErrTokenExpired
	}
	fresh, err := s.store.ConsumeOnce(ctx, "challenge:"+challenge.ID, ttl)
	if err != nil {
		return "", nil, fmt.Errorf("failed to consume challenge: %w", err)
	}
	if !fresh {
		return "", nil, core.ErrTokenInvalidated
	}

	now := time.Now()
	session := &core.Session{
		ID:           uuid.New().String(),
		Address:      challenge.Address,
		IssuedAt:     now,
		AccessExpiry: now.Add(s.accessTTL),
	}
	accessToken, err := s.tokenizer.SessionToAccessToken(session)
	if err != nil {
		return "", nil, fmt.Errorf("failed to create access token: %w", err)
	}
	return accessToken, session, nil
}

// ValidateAccessToken returns the session behind a live access token.
func (s *AuthService) ValidateAccessToken(ctx context.Context, accessToken string) (*core.Session, error) {
	session, err := s.tokenizer.AccessTokenToSession(accessToken)
	if err != nil {
		return nil, fmt.Errorf("invalid access token: %w", err)
	}
	if time.Now().After(session.AccessExpiry) {
		return nil, core.ErrTokenExpired
	}
	return session, nil
}
