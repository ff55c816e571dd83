package command

import (
	"fmt"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/config"
	"github.com/urfave/cli/v2"
)

// ReportView is the printable form of goSession.SecurityReport.
type ReportView struct {
	Mode              string        `json:"mode" yaml:"mode"`
	Algorithm         string        `json:"algorithm" yaml:"algorithm"`
	PayloadVisible    bool          `json:"payload_visible" yaml:"payload_visible"`
	Serializer        string        `json:"serializer" yaml:"serializer"`
	Alphabet          string        `json:"alphabet" yaml:"alphabet"`
	TTL               string        `json:"ttl" yaml:"ttl"`
	SlidingExpiration bool          `json:"sliding_expiration" yaml:"sliding_expiration"`
	RenewWindow       string        `json:"renew_window" yaml:"renew_window"`
	MaxCookieSize     int           `json:"max_cookie_size" yaml:"max_cookie_size"`
	ActiveKeyID       string        `json:"active_key_id" yaml:"active_key_id"`
	AcceptedKeys      int           `json:"accepted_keys" yaml:"accepted_keys"`
	Cookie            CookieView    `json:"cookie" yaml:"cookie"`
	AuditEnabled      bool          `json:"audit_enabled" yaml:"audit_enabled"`
	MetricsEnabled    bool          `json:"metrics_enabled" yaml:"metrics_enabled"`
	Findings          []FindingView `json:"findings" yaml:"findings"`
}

// CookieView lists the Set-Cookie attributes.
type CookieView struct {
	Name        string `json:"name" yaml:"name"`
	Secure      bool   `json:"secure" yaml:"secure"`
	HTTPOnly    bool   `json:"http_only" yaml:"http_only"`
	SameSite    string `json:"same_site" yaml:"same_site"`
	HostPrefix  bool   `json:"host_prefix" yaml:"host_prefix"`
	Partitioned bool   `json:"partitioned" yaml:"partitioned"`
}

// FindingView is one lint warning.
type FindingView struct {
	Code     string `json:"code" yaml:"code"`
	Severity string `json:"severity" yaml:"severity"`
	Message  string `json:"message" yaml:"message"`
}

// ConfigCommand returns the config subcommand group.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration management",
		Subcommands: []*cli.Command{
			{
				Name:  "check",
				Usage: "Validate the configuration and report its security posture",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "fail-on",
						Usage: "Exit non-zero on findings at or above: info, warn, high, never",
						Value: "high",
					},
				},
				Action: configCheck,
			},
			{
				Name:   "show",
				Usage:  "Show the merged configuration with secrets redacted",
				Action: configShow,
			},
		},
	}
}

func configCheck(c *cli.Context) error {
	engine, loaded, err := BuildEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	cfg := loaded.Engine
	lint := cfg.Lint()
	view := reportView(engine.SecurityReport(), lint)
	if err := Print(c, view); err != nil {
		return err
	}

	failOn := c.String("fail-on")
	if failOn == "never" {
		return nil
	}
	min, err := parseSeverity(failOn)
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	if n := len(lint.AtLeast(min)); n > 0 {
		return cli.Exit(fmt.Sprintf("%d finding(s) at or above %s", n, min), 1)
	}
	return nil
}

func configShow(c *cli.Context) error {
	loaded, err := LoadConfig(c)
	if err != nil {
		return err
	}
	return Print(c, redacted(loaded))
}

func reportView(r goSession.SecurityReport, lint goSession.LintResult) ReportView {
	view := ReportView{
		Mode:              r.Mode,
		Algorithm:         r.Algorithm,
		PayloadVisible:    r.PayloadVisible,
		Serializer:        r.Serializer,
		Alphabet:          r.Alphabet,
		TTL:               r.TTL.String(),
		SlidingExpiration: r.SlidingExpiration,
		RenewWindow:       r.RenewWindow.String(),
		MaxCookieSize:     r.MaxCookieSize,
		ActiveKeyID:       r.ActiveKeyID,
		AcceptedKeys:      r.AcceptedKeys,
		Cookie: CookieView{
			Name:        r.Cookie.Name,
			Secure:      r.Cookie.Secure,
			HTTPOnly:    r.Cookie.HTTPOnly,
			SameSite:    r.Cookie.SameSite,
			HostPrefix:  r.Cookie.HostPrefix,
			Partitioned: r.Cookie.Partitioned,
		},
		AuditEnabled:   r.AuditEnabled,
		MetricsEnabled: r.MetricsEnabled,
		Findings:       []FindingView{},
	}
	for _, w := range lint {
		view.Findings = append(view.Findings, FindingView{
			Code:     w.Code,
			Severity: w.Severity.String(),
			Message:  w.Message,
		})
	}
	return view
}

func parseSeverity(s string) (goSession.LintSeverity, error) {
	for _, sev := range []goSession.LintSeverity{goSession.LintInfo, goSession.LintWarn, goSession.LintHigh} {
		if sev.String() == s {
			return sev, nil
		}
	}
	return 0, fmt.Errorf("unknown severity %q", s)
}

const redactedSecret = "***REDACTED***"

// ShownConfig is the merged configuration as config show prints it.
type ShownConfig struct {
	Mode         string           `yaml:"mode" json:"mode"`
	Algorithm    string           `yaml:"algorithm" json:"algorithm"`
	Cipher       string           `yaml:"cipher" json:"cipher"`
	TTL          string           `yaml:"ttl" json:"ttl"`
	RenewWindow  string           `yaml:"renew_window" json:"renew_window"`
	Cookie       string           `yaml:"cookie" json:"cookie"`
	Distribution string           `yaml:"distribution,omitempty" json:"distribution,omitempty"`
	Keys         []config.KeyFile `yaml:"keys" json:"keys"`
}

func redacted(loaded *config.Loaded) ShownConfig {
	fc := loaded.Source
	shown := ShownConfig{
		Mode:         fc.Mode,
		Algorithm:    fc.Signing.Algorithm,
		Cipher:       fc.Encryption.Cipher,
		TTL:          fc.Session.TTL.String(),
		RenewWindow:  loaded.Engine.Session.RenewWindow.String(),
		Cookie:       fc.Cookie.Name,
		Distribution: fc.Distribution.Addr,
	}
	for _, k := range fc.Keys {
		if k.Secret != "" {
			k.Secret = redactedSecret
		}
		if k.Passphrase != "" {
			k.Passphrase = redactedSecret
		}
		shown.Keys = append(shown.Keys, k)
	}
	return shown
}
