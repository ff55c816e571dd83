package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/internal/logging"
	"github.com/MrEthical07/goSession/keyring"
	"github.com/MrEthical07/goSession/protect"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DefaultEnvPrefix is the default environment variable prefix.
const DefaultEnvPrefix = "GOSESSION_"

// envSeparator separates config sections in environment variable names. A single
// underscore stays part of the key, as in same_site.
const envSeparator = "__"

const (
	KDFScrypt   = "scrypt"
	KDFArgon2id = "argon2id"
	KDFHKDF     = "hkdf"
)

var (
	// ErrNoKeys is returned when the document lists no keys.
	ErrNoKeys = errors.New("config: at least one key is required")
	// ErrKeyMaterial is returned for a key entry without usable secret material.
	ErrKeyMaterial = errors.New("config: invalid key material")
)

// Loaded is the result of Load: an engine configuration and the key ring it starts with.
type Loaded struct {
	Engine       goSession.Config
	Ring         *keyring.Ring
	Log          logging.Config
	Distribution DistributionFile
	Source       FileConfig
}

// Loader merges defaults, a YAML file and the environment.
type Loader struct {
	k         *koanf.Koanf
	envPrefix string
	filePath  string
}

// Option configures a Loader.
type Option func(*Loader)

// WithEnvPrefix sets the environment variable prefix.
func WithEnvPrefix(prefix string) Option {
	return func(l *Loader) {
		l.envPrefix = prefix
	}
}

// WithConfigFile sets the configuration file path.
func WithConfigFile(path string) Option {
	return func(l *Loader) {
		l.filePath = path
	}
}

// NewLoader creates a loader seeded with goSession.DefaultConfig.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		envPrefix: DefaultEnvPrefix,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads configuration with the package's default sources and builds the key ring.
func Load(path string) (*Loaded, error) {
	return NewLoader(WithConfigFile(path)).Load()
}

// Load reads every source in priority order and builds the engine config and key ring.
// Each call starts from a clean slate, so a Loader can be reused after the file changes.
func (l *Loader) Load() (*Loaded, error) {
	l.k = koanf.New(".")

	if err := l.k.Load(mapProvider(defaults()), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}
	if l.filePath != "" {
		if err := l.k.Load(file.Provider(l.filePath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load file %s: %w", l.filePath, err)
		}
	}
	if err := l.loadEnv(); err != nil {
		return nil, err
	}

	var fc FileConfig
	if err := l.k.Unmarshal("", &fc); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return fc.Resolve()
}

// Get returns a merged value by dotted key. Valid after Load.
func (l *Loader) Get(key string) any {
	if l.k == nil {
		return nil
	}
	return l.k.Get(key)
}

func (l *Loader) loadEnv() error {
	// GOSESSION_COOKIE__SAME_SITE -> cookie.same_site
	transform := func(s string) string {
		s = strings.TrimPrefix(s, l.envPrefix)
		s = strings.ToLower(s)
		return strings.ReplaceAll(s, envSeparator, ".")
	}
	if err := l.k.Load(env.Provider(l.envPrefix, ".", transform), nil); err != nil {
		return fmt.Errorf("load env: %w", err)
	}
	return nil
}

// defaults is nested because koanf merges provider maps as-is; dotted keys would not
// reach Unmarshal.
func defaults() map[string]any {
	cfg := goSession.DefaultConfig()
	log := logging.DefaultConfig()
	return map[string]any{
		"mode": cfg.Mode.String(),
		"signing": map[string]any{
			"algorithm": cfg.Signing.Algorithm,
		},
		"encryption": map[string]any{
			"cipher": cfg.Encryption.Cipher,
		},
		"session": map[string]any{
			"ttl":                cfg.Session.TTL,
			"sliding_expiration": cfg.Session.SlidingExpiration,
			"serializer":         cfg.Session.Serializer,
			"alphabet":           cfg.Session.Alphabet,
			"max_cookie_size":    cfg.Session.MaxCookieSize,
		},
		"cookie": map[string]any{
			"name":      cfg.Cookie.Name,
			"path":      cfg.Cookie.Path,
			"secure":    cfg.Cookie.Secure,
			"http_only": cfg.Cookie.HTTPOnly,
			"same_site": "lax",
		},
		"audit": map[string]any{
			"enabled":      cfg.Audit.Enabled,
			"buffer_size":  cfg.Audit.BufferSize,
			"drop_if_full": cfg.Audit.DropIfFull,
		},
		"metrics": map[string]any{
			"enabled":            cfg.Metrics.Enabled,
			"latency_histograms": cfg.Metrics.EnableLatencyHistograms,
		},
		"log": map[string]any{
			"level":  log.Level,
			"format": log.Format,
		},
	}
}

/*
====================================
RESOLUTION
====================================
*/

// Resolve converts the document into a validated engine config and key ring.
func (fc FileConfig) Resolve() (*Loaded, error) {
	cfg, err := fc.EngineConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ring, err := fc.KeyRing()
	if err != nil {
		return nil, err
	}
	if err := goSession.ValidateRing(strategyFor(cfg), ring); err != nil {
		return nil, err
	}
	return &Loaded{
		Engine: cfg,
		Ring:   ring,
		Log: logging.Config{
			Level:  fc.Log.Level,
			Format: fc.Log.Format,
		},
		Distribution: fc.Distribution,
		Source:       fc,
	}, nil
}

// EngineConfig maps the document onto goSession.Config. It does not validate the result.
func (fc FileConfig) EngineConfig() (goSession.Config, error) {
	cfg := goSession.DefaultConfig()

	mode, err := protect.ParseMode(fc.Mode)
	if err != nil {
		return cfg, fmt.Errorf("%w: %v", goSession.ErrInvalidConfig, err)
	}
	sameSite, err := goSession.ParseSameSite(fc.Cookie.SameSite)
	if err != nil {
		return cfg, fmt.Errorf("%w: %v", goSession.ErrInvalidConfig, err)
	}

	cfg.Mode = mode
	cfg.Signing.Algorithm = fc.Signing.Algorithm
	cfg.Encryption.Cipher = fc.Encryption.Cipher
	cfg.Session = goSession.SessionConfig{
		TTL:               fc.Session.TTL,
		SlidingExpiration: fc.Session.SlidingExpiration,
		RenewWindow:       fc.Session.RenewWindow,
		Serializer:        fc.Session.Serializer,
		Alphabet:          fc.Session.Alphabet,
		MaxCookieSize:     fc.Session.MaxCookieSize,
	}
	if cfg.Session.SlidingExpiration && cfg.Session.RenewWindow == 0 {
		cfg.Session.RenewWindow = goSession.DefaultRenewWindow(cfg.Session.TTL)
	}
	cfg.Cookie = goSession.CookieConfig{
		Name:        fc.Cookie.Name,
		Path:        fc.Cookie.Path,
		Domain:      fc.Cookie.Domain,
		Secure:      fc.Cookie.Secure,
		HTTPOnly:    fc.Cookie.HTTPOnly,
		SameSite:    sameSite,
		HostPrefix:  fc.Cookie.HostPrefix,
		Partitioned: fc.Cookie.Partitioned,
	}
	cfg.Audit = goSession.AuditConfig{
		Enabled:    fc.Audit.Enabled,
		BufferSize: fc.Audit.BufferSize,
		DropIfFull: fc.Audit.DropIfFull,
	}
	cfg.Metrics = goSession.MetricsConfig{
		Enabled:                 fc.Metrics.Enabled,
		EnableLatencyHistograms: fc.Metrics.LatencyHistograms,
	}
	return cfg, nil
}

// KeyRing builds the ring from the key entries, oldest first. Keys are sized and
// tagged for the configured mode.
func (fc FileConfig) KeyRing() (*keyring.Ring, error) {
	if len(fc.Keys) == 0 {
		return nil, ErrNoKeys
	}
	cfg, err := fc.EngineConfig()
	if err != nil {
		return nil, err
	}
	strategy := strategyFor(cfg)
	if strategy == nil {
		return nil, fmt.Errorf("%w: unsupported algorithm for mode %s", goSession.ErrInvalidConfig, cfg.Mode)
	}

	keys := make([]keyring.Key, 0, len(fc.Keys))
	for i, kf := range fc.Keys {
		key, err := kf.Build(strategy.Purpose(), strategy.KeySize())
		if err != nil {
			return nil, fmt.Errorf("keys[%d]: %w", i, err)
		}
		keys = append(keys, key)
	}
	return keyring.NewRing(keys...)
}

// Build turns one entry into a key of the given purpose and size.
func (kf KeyFile) Build(purpose keyring.Purpose, size int) (keyring.Key, error) {
	hasSecret := kf.Secret != ""
	hasPassphrase := kf.Passphrase != ""
	switch {
	case hasSecret && hasPassphrase:
		return keyring.Key{}, fmt.Errorf("%w: key %q sets both secret and passphrase", ErrKeyMaterial, kf.ID)
	case hasSecret:
		secret, err := DecodeSecret(kf.Secret)
		if err != nil {
			return keyring.Key{}, fmt.Errorf("%w: key %q: %v", ErrKeyMaterial, kf.ID, err)
		}
		if len(secret) != size {
			return keyring.Key{}, fmt.Errorf("%w: key %q is %d bytes, want %d", ErrKeyMaterial, kf.ID, len(secret), size)
		}
		return keyring.NewKey(kf.ID, purpose, secret)
	case hasPassphrase:
		passphrase, salt := []byte(kf.Passphrase), []byte(kf.Salt)
		switch strings.ToLower(kf.KDF) {
		case "", KDFScrypt:
			return keyring.DeriveScrypt(kf.ID, purpose, passphrase, salt, size)
		case KDFArgon2id:
			return keyring.DeriveArgon2id(kf.ID, purpose, passphrase, salt, size, keyring.DefaultArgon2Params())
		case KDFHKDF:
			return keyring.DeriveHKDF(kf.ID, purpose, passphrase, salt, []byte(kf.ID), size)
		default:
			return keyring.Key{}, fmt.Errorf("%w: key %q: unknown kdf %q", ErrKeyMaterial, kf.ID, kf.KDF)
		}
	default:
		return keyring.Key{}, fmt.Errorf("%w: key %q has no secret or passphrase", ErrKeyMaterial, kf.ID)
	}
}

// DecodeSecret decodes base64url key material, padded or not.
func DecodeSecret(s string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(strings.TrimRight(strings.TrimSpace(s), "="))
}

// EncodeSecret is the inverse of DecodeSecret.
func EncodeSecret(secret []byte) string {
	return base64.RawURLEncoding.EncodeToString(secret)
}

// DecodeKEK decodes the distribution key-encryption key. An empty KEK returns nil.
func (d DistributionFile) DecodeKEK() ([]byte, error) {
	if d.KEK == "" {
		return nil, nil
	}
	kek, err := DecodeSecret(d.KEK)
	if err != nil {
		return nil, fmt.Errorf("%w: distribution kek: %v", ErrKeyMaterial, err)
	}
	return kek, nil
}

func strategyFor(cfg goSession.Config) protect.Strategy {
	strategy, err := cfg.Strategy()
	if err != nil {
		return nil
	}
	return strategy
}
