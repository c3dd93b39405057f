// Package config loads subkit settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"

	"github.com/layer-3/subkit/internal/log"
)

// Config is the environment driven configuration shared by subnamed and
// avatarctl.
type Config struct {
	Log log.Config

	HTTPAddress string `env:"SUBKIT_HTTP_ADDRESS" env-default:":9000"`
	// RedisURL selects the redis backed cache, store and event stream.
	// Empty runs everything in memory.
	RedisURL string `env:"REDIS_URL"`

	Metadata  MetadataConfig
	Namespace NamespaceConfig
	SIWE      SIWEConfig
	Auth      AuthConfig

	IdentityCacheTTL time.Duration `env:"SUBKIT_IDENTITY_CACHE_TTL" env-default:"1s"`
}

// MetadataConfig points at the avatar metadata service.
type MetadataConfig struct {
	BaseURL string        `env:"METADATA_URL" env-default:"https://metadata.namespace.ninja"`
	Timeout time.Duration `env:"METADATA_TIMEOUT" env-default:"30s"`
}

// NamespaceConfig configures the naming service.
type NamespaceConfig struct {
	BaseURL string `env:"NAMESPACE_API_URL" env-default:"https://offchain-manager.namespace.ninja"`
	APIKey  string `env:"NAMESPACE_API_KEY"`
	// ParentName is the name subnames are created under.
	ParentName string `env:"ENS_NAME"`
	// PublicParentName filters identity lookups. Defaults to ParentName.
	PublicParentName string `env:"PUBLIC_ENS_NAME"`
}

// SIWEConfig holds the sign-in message constants.
type SIWEConfig struct {
	Domain    string `env:"SIWE_DOMAIN" env-default:"offchain-next-rainbowkit-template.vercel.app"`
	URI       string `env:"SIWE_URI" env-default:"https://offchain-next-rainbowkit-template.vercel.app"`
	Statement string `env:"SIWE_STATEMENT" env-default:"Sign in to Avatar Service"`
}

// AuthConfig configures wallet sessions on the claim service.
type AuthConfig struct {
	// SigningKey is a hex P-256 private key for session tokens. A random key
	// is generated when empty.
	SigningKey   string        `env:"SUBKIT_SIGNING_KEY"`
	ChallengeTTL time.Duration `env:"SUBKIT_CHALLENGE_TTL" env-default:"5m"`
	AccessTTL    time.Duration `env:"SUBKIT_ACCESS_TTL" env-default:"15m"`
}

// Load reads dotEnvPath when it exists, then the process environment.
// Variables already set in the environment win over the file.
func Load(dotEnvPath string) (*Config, error) {
	if dotEnvPath != "" {
		if err := godotenv.Load(dotEnvPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", dotEnvPath, err)
		}
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read env: %w", err)
	}
	if cfg.Namespace.PublicParentName == "" {
		cfg.Namespace.PublicParentName = cfg.Namespace.ParentName
	}
	return &cfg, nil
}
