package config

import (
	"bytes"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/keyring"
	"github.com/MrEthical07/goSession/session"
)

func secretFor(fill byte, size int) string {
	return EncodeSecret(bytes.Repeat([]byte{fill}, size))
}

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "gosession.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func signedDoc(ids ...string) string {
	var b strings.Builder
	b.WriteString("mode: signed\nkeys:\n")
	for i, id := range ids {
		b.WriteString("  - id: " + id + "\n")
		b.WriteString("    secret: " + secretFor(byte('a'+i), 32) + "\n")
	}
	return b.String()
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, t.TempDir(), signedDoc("k1"))

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := goSession.DefaultConfig()
	if loaded.Engine != want {
		t.Errorf("Load() engine = %+v, want defaults %+v", loaded.Engine, want)
	}
	if loaded.Ring.Len() != 1 || loaded.Ring.Active().ID() != "k1" {
		t.Errorf("Load() ring ids = %v, want [k1]", loaded.Ring.IDs())
	}
	if loaded.Ring.Purpose() != keyring.PurposeSigning {
		t.Errorf("ring purpose = %v, want signing", loaded.Ring.Purpose())
	}
	if loaded.Log.Level != "info" || loaded.Log.Format != "json" {
		t.Errorf("log = %+v, want info/json", loaded.Log)
	}
}

func TestLoad_File(t *testing.T) {
	doc := `
mode: encrypted
encryption:
  cipher: aes-256-gcm
session:
  ttl: 2h
  renew_window: 30m
  serializer: msgpack
cookie:
  name: sid
  same_site: strict
  host_prefix: true
audit:
  enabled: true
log:
  level: debug
keys:
  - id: k1
    secret: ` + secretFor(1, 32) + `
  - id: k2
    passphrase: correct horse battery staple
    salt: 0123456789abcdef
`
	path := writeConfig(t, t.TempDir(), doc)

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	cfg := loaded.Engine
	if cfg.Mode != goSession.ModeEncrypted || cfg.Encryption.Cipher != "aes-256-gcm" {
		t.Errorf("mode = %v/%s, want encrypted/aes-256-gcm", cfg.Mode, cfg.Encryption.Cipher)
	}
	if cfg.Session.TTL != 2*time.Hour || cfg.Session.RenewWindow != 30*time.Minute {
		t.Errorf("session lifetime = %v/%v, want 2h/30m", cfg.Session.TTL, cfg.Session.RenewWindow)
	}
	if cfg.Session.Serializer != session.EncodingMsgpack {
		t.Errorf("serializer = %q, want msgpack", cfg.Session.Serializer)
	}
	if !cfg.Session.SlidingExpiration {
		t.Error("sliding expiration default lost")
	}
	if cfg.Cookie.Name != "sid" || cfg.Cookie.SameSite != http.SameSiteStrictMode || !cfg.Cookie.HostPrefix {
		t.Errorf("cookie = %+v", cfg.Cookie)
	}
	if !cfg.Cookie.HTTPOnly || !cfg.Cookie.Secure {
		t.Error("cookie flag defaults lost")
	}
	if !cfg.Audit.Enabled || cfg.Audit.BufferSize != 1024 {
		t.Errorf("audit = %+v", cfg.Audit)
	}
	if loaded.Log.Level != "debug" {
		t.Errorf("log level = %q, want debug", loaded.Log.Level)
	}

	if got := loaded.Ring.IDs(); len(got) != 2 {
		t.Fatalf("ring ids = %v, want 2 keys", got)
	}
	if loaded.Ring.Active().ID() != "k2" {
		t.Errorf("active key = %q, want the last entry k2", loaded.Ring.Active().ID())
	}
	if loaded.Ring.Purpose() != keyring.PurposeEncryption {
		t.Errorf("ring purpose = %v, want encryption", loaded.Ring.Purpose())
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, t.TempDir(), signedDoc("k1")+"session:\n  ttl: 2h\n")

	t.Setenv("GOSESSION_SESSION__TTL", "3h")
	t.Setenv("GOSESSION_COOKIE__SAME_SITE", "none")
	t.Setenv("GOSESSION_METRICS__ENABLED", "true")

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Engine.Session.TTL != 3*time.Hour {
		t.Errorf("ttl = %v, want env value 3h", loaded.Engine.Session.TTL)
	}
	if want := 45 * time.Minute; loaded.Engine.Session.RenewWindow != want {
		t.Errorf("renew window = %v, want %v derived from ttl", loaded.Engine.Session.RenewWindow, want)
	}
	if loaded.Engine.Cookie.SameSite != http.SameSiteNoneMode {
		t.Errorf("same_site = %v, want none", loaded.Engine.Cookie.SameSite)
	}
	if !loaded.Engine.Metrics.Enabled {
		t.Error("metrics.enabled from env not applied")
	}
}

func TestLoad_CustomEnvPrefix(t *testing.T) {
	path := writeConfig(t, t.TempDir(), signedDoc("k1"))
	t.Setenv("APP_COOKIE__NAME", "app_session")

	l := NewLoader(WithConfigFile(path), WithEnvPrefix("APP_"))
	loaded, err := l.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Engine.Cookie.Name != "app_session" {
		t.Errorf("cookie name = %q, want app_session", loaded.Engine.Cookie.Name)
	}
	if got := l.Get("cookie.name"); got != "app_session" {
		t.Errorf("Get(cookie.name) = %v", got)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Load() expected error for missing file")
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want error
	}{
		{
			name: "no keys",
			doc:  "mode: signed\n",
			want: ErrNoKeys,
		},
		{
			name: "unknown mode",
			doc:  "mode: sealed\n" + strings.TrimPrefix(signedDoc("k1"), "mode: signed\n"),
			want: goSession.ErrInvalidConfig,
		},
		{
			name: "invalid same_site",
			doc:  signedDoc("k1") + "cookie:\n  same_site: sometimes\n",
			want: goSession.ErrInvalidConfig,
		},
		{
			name: "ttl not positive",
			doc:  signedDoc("k1") + "session:\n  ttl: 0s\n",
			want: goSession.ErrInvalidConfig,
		},
		{
			name: "renew window not shorter than ttl",
			doc:  signedDoc("k1") + "session:\n  ttl: 1h\n  renew_window: 1h\n",
			want: goSession.ErrInvalidConfig,
		},
		{
			name: "secret wrong size",
			doc:  "mode: signed\nkeys:\n  - id: k1\n    secret: " + secretFor(1, 16) + "\n",
			want: ErrKeyMaterial,
		},
		{
			name: "secret and passphrase",
			doc:  "mode: signed\nkeys:\n  - id: k1\n    secret: " + secretFor(1, 32) + "\n    passphrase: long enough phrase\n    salt: 0123456789abcdef\n",
			want: ErrKeyMaterial,
		},
		{
			name: "no material",
			doc:  "mode: signed\nkeys:\n  - id: k1\n",
			want: ErrKeyMaterial,
		},
		{
			name: "unknown kdf",
			doc:  "mode: signed\nkeys:\n  - id: k1\n    passphrase: long enough phrase\n    salt: 0123456789abcdef\n    kdf: md5\n",
			want: ErrKeyMaterial,
		},
		{
			name: "short salt",
			doc:  "mode: signed\nkeys:\n  - id: k1\n    passphrase: long enough phrase\n    salt: short\n",
			want: keyring.ErrShortSalt,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, t.TempDir(), tt.doc)
			_, err := Load(path)
			if !errors.Is(err, tt.want) {
				t.Errorf("Load() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestKeyFile_BuildHKDF(t *testing.T) {
	kf := KeyFile{
		ID:         "k1",
		Passphrase: "master secret material",
		Salt:       "0123456789abcdef",
		KDF:        KDFHKDF,
	}
	a, err := kf.Build(keyring.PurposeSigning, 48)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	b, err := kf.Build(keyring.PurposeSigning, 48)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if a.Len() != 48 || !bytes.Equal(a.Bytes(), b.Bytes()) {
		t.Error("HKDF derivation is not deterministic at the requested size")
	}
}

func TestDecodeSecret_AcceptsPadding(t *testing.T) {
	raw := bytes.Repeat([]byte{0xfb}, 31)
	padded := EncodeSecret(raw) + "="
	got, err := DecodeSecret(padded)
	if err != nil {
		t.Fatalf("DecodeSecret() error = %v", err)
	}
	if !bytes.Equal(got, raw) {
		t.Error("DecodeSecret() did not round trip")
	}
}

func TestDistributionFile_DecodeKEK(t *testing.T) {
	kek, err := DistributionFile{}.DecodeKEK()
	if err != nil || kek != nil {
		t.Errorf("empty DecodeKEK() = %v, %v", kek, err)
	}
	kek, err = DistributionFile{KEK: secretFor(7, 32)}.DecodeKEK()
	if err != nil || len(kek) != 32 {
		t.Errorf("DecodeKEK() = %d bytes, %v", len(kek), err)
	}
	if _, err := (DistributionFile{KEK: "!!"}).DecodeKEK(); !errors.Is(err, ErrKeyMaterial) {
		t.Errorf("DecodeKEK() error = %v, want ErrKeyMaterial", err)
	}
}
