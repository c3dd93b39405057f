package main

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/redis/go-redis/v9"

	"github.com/layer-3/subkit/adapters/cache"
	"github.com/layer-3/subkit/adapters/directory"
	"github.com/layer-3/subkit/adapters/events"
	"github.com/layer-3/subkit/adapters/store"
	"github.com/layer-3/subkit/adapters/tokenizer"
	"github.com/layer-3/subkit/config"
	"github.com/layer-3/subkit/internal/log"
	"github.com/layer-3/subkit/internal/metrics"
	"github.com/layer-3/subkit/ports"
	"github.com/layer-3/subkit/service"
	transport "github.com/layer-3/subkit/transport/http"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := log.NewZapLogger(cfg.Log)
	defer logger.Sync()
	lg := logger.Named("subnamed")

	if err := run(cfg, lg); err != nil {
		lg.Error("subnamed stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, lg log.Logger) error {
	signKey, err := loadSigningKey(cfg.Auth.SigningKey)
	if err != nil {
		return err
	}
	if cfg.Auth.SigningKey == "" {
		lg.Warn("no signing key configured, sessions will not survive a restart")
	}

	m := metrics.NewMetrics()

	var (
		sessionStore ports.Store
		subnameCache ports.SubnameCache
		publisher    message.Publisher
	)
	wmLogger := watermill.NewStdLogger(false, false)

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to parse Redis URL: %w", err)
		}
		redisClient := redis.NewClient(opts)
		defer redisClient.Close()

		publisher, err = redisstream.NewPublisher(redisstream.PublisherConfig{Client: redisClient}, wmLogger)
		if err != nil {
			return fmt.Errorf("failed to create Redis publisher: %w", err)
		}
		sessionStore = store.NewRedisStore(redisClient)
		subnameCache = cache.NewRedisCache(redisClient)
		lg.Info("using redis backends")
	} else {
		publisher = gochannel.NewGoChannel(gochannel.Config{}, wmLogger)
		sessionStore = store.NewMemoryStore()
		subnameCache = cache.NewMemoryCache()
		lg.Info("using in-memory backends")
	}
	defer publisher.Close()

	var dir ports.NameDirectory
	if cfg.Namespace.APIKey != "" {
		dir = directory.NewNamespaceClient(cfg.Namespace.BaseURL, cfg.Namespace.APIKey,
			directory.WithLogger(lg.Named("namespace")))
	} else {
		lg.Warn("NAMESPACE_API_KEY not set, using in-memory directory")
		dir = directory.NewMemoryDirectory()
	}
	if cfg.Namespace.ParentName == "" {
		return errors.New("ENS_NAME is required")
	}

	eventPub := events.NewWatermillPublisher(publisher)
	authService := service.NewAuthService(
		tokenizer.NewJWTTokenizer(signKey),
		sessionStore,
		service.AuthConfig{
			Domain:       cfg.SIWE.Domain,
			ChallengeTTL: cfg.Auth.ChallengeTTL,
			AccessTTL:    cfg.Auth.AccessTTL,
		},
		lg, m,
	)
	subnames := service.NewSubnameService(dir, subnameCache, eventPub, cfg.Namespace.ParentName, lg, m)
	identities := service.NewIdentityService(dir, subnameCache, cfg.Namespace.PublicParentName, cfg.IdentityCacheTTL, lg, m)

	router := transport.SetupRouter(transport.Services{
		Auth:       authService,
		Subnames:   subnames,
		Identities: identities,
	}, nil, lg.Named("http"))

	srv := &http.Server{
		Addr:              cfg.HTTPAddress,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		lg.Info("listening", "address", cfg.HTTPAddress, "parent", cfg.Namespace.ParentName)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("failed to start server: %w", err)
	case <-ctx.Done():
	}

	lg.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// loadSigningKey parses a hex P-256 private scalar. An empty value
// generates a fresh key.
func loadSigningKey(hexKey string) (*ecdsa.PrivateKey, error) {
	if hexKey == "" {
		return ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	}
	if !strings.HasPrefix(hexKey, "0x") {
		hexKey = "0x" + hexKey
	}
	b, err := hexutil.Decode(hexKey)
	if err != nil {
		return nil, fmt.Errorf("invalid SUBKIT_SIGNING_KEY: %w", err)
	}

	curve := elliptic.P256()
	d := new(big.Int).SetBytes(b)
	if d.Sign() == 0 || d.Cmp(curve.Params().N) >= 0 {
		return nil, errors.New("invalid SUBKIT_SIGNING_KEY: scalar out of range")
	}
	key := &ecdsa.PrivateKey{D: d}
	key.PublicKey.Curve = curve
	key.PublicKey.X, key.PublicKey.Y = curve.ScalarBaseMult(b)
	return key, nil
}
