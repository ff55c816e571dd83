package config

import "time"

// FileConfig is the on-disk configuration document.
type FileConfig struct {
	Mode         string           `koanf:"mode"`
	Signing      SigningFile      `koanf:"signing"`
	Encryption   EncryptionFile   `koanf:"encryption"`
	Session      SessionFile      `koanf:"session"`
	Cookie       CookieFile       `koanf:"cookie"`
	Audit        AuditFile        `koanf:"audit"`
	Metrics      MetricsFile      `koanf:"metrics"`
	Log          LogFile          `koanf:"log"`
	Distribution DistributionFile `koanf:"distribution"`
	Keys         []KeyFile        `koanf:"keys"`
}

type SigningFile struct {
	Algorithm string `koanf:"algorithm"`
}

type EncryptionFile struct {
	Cipher string `koanf:"cipher"`
}

// SessionFile is the session section. An unset renew_window follows the TTL; see
// goSession.DefaultRenewWindow.
type SessionFile struct {
	TTL               time.Duration `koanf:"ttl"`
	SlidingExpiration bool          `koanf:"sliding_expiration"`
	RenewWindow       time.Duration `koanf:"renew_window"`
	Serializer        string        `koanf:"serializer"`
	Alphabet          string        `koanf:"alphabet"`
	MaxCookieSize     int           `koanf:"max_cookie_size"`
}

type CookieFile struct {
	Name        string `koanf:"name"`
	Path        string `koanf:"path"`
	Domain      string `koanf:"domain"`
	Secure      bool   `koanf:"secure"`
	HTTPOnly    bool   `koanf:"http_only"`
	SameSite    string `koanf:"same_site"`
	HostPrefix  bool   `koanf:"host_prefix"`
	Partitioned bool   `koanf:"partitioned"`
}

type AuditFile struct {
	Enabled    bool `koanf:"enabled"`
	BufferSize int  `koanf:"buffer_size"`
	DropIfFull bool `koanf:"drop_if_full"`
}

type MetricsFile struct {
	Enabled           bool `koanf:"enabled"`
	LatencyHistograms bool `koanf:"latency_histograms"`
}

type LogFile struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// DistributionFile configures Redis ring distribution. KEK is base64url and must
// decode to 32 bytes.
type DistributionFile struct {
	Addr   string `koanf:"addr"`
	Prefix string `koanf:"prefix"`
	KEK    string `koanf:"kek"`
}

// KeyFile is one key entry. Exactly one of Secret or Passphrase is set.
type KeyFile struct {
	ID         string `koanf:"id" yaml:"id" json:"id"`
	Secret     string `koanf:"secret" yaml:"secret,omitempty" json:"secret,omitempty"`
	Passphrase string `koanf:"passphrase" yaml:"passphrase,omitempty" json:"passphrase,omitempty"`
	Salt       string `koanf:"salt" yaml:"salt,omitempty" json:"salt,omitempty"`
	// KDF is "scrypt" (default), "argon2id" or "hkdf".
	KDF string `koanf:"kdf" yaml:"kdf,omitempty" json:"kdf,omitempty"`
}
