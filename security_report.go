package goSession

import "time"

// SecurityReport summarizes the protection posture of a running Engine. It carries no
// key material.
type SecurityReport struct {
	Mode              string
	Algorithm         string
	PayloadVisible    bool
	Serializer        string
	Alphabet          string
	TTL               time.Duration
	SlidingExpiration bool
	RenewWindow       time.Duration
	MaxCookieSize     int
	ActiveKeyID       string
	AcceptedKeys      int
	Cookie            CookieReport
	AuditEnabled      bool
	MetricsEnabled    bool
}

// CookieReport lists the Set-Cookie attributes the middleware writes.
type CookieReport struct {
	Name        string
	Secure      bool
	HTTPOnly    bool
	SameSite    string
	HostPrefix  bool
	Partitioned bool
}

func (e *Engine) SecurityReport() SecurityReport {
	if e.ready() != nil {
		return SecurityReport{}
	}

	ring := e.holder.Load()
	return SecurityReport{
		Mode:              e.config.Mode.String(),
		Algorithm:         e.codec.Strategy().Algorithm(),
		PayloadVisible:    e.config.Mode == ModeSigned,
		Serializer:        e.codec.Serializer().Name(),
		Alphabet:          e.codec.Encoding().Name(),
		TTL:               e.config.Session.TTL,
		SlidingExpiration: e.config.Session.SlidingExpiration,
		RenewWindow:       e.config.Session.RenewWindow,
		MaxCookieSize:     e.codec.MaxValueSize(),
		ActiveKeyID:       ring.Active().ID(),
		AcceptedKeys:      ring.Len(),
		Cookie: CookieReport{
			Name:        e.config.Cookie.CookieName(),
			Secure:      e.config.Cookie.Secure,
			HTTPOnly:    e.config.Cookie.HTTPOnly,
			SameSite:    sameSiteName(e.config.Cookie.SameSite),
			HostPrefix:  e.config.Cookie.HostPrefix,
			Partitioned: e.config.Cookie.Partitioned,
		},
		AuditEnabled:   e.config.Audit.Enabled,
		MetricsEnabled: e.config.Metrics.Enabled,
	}
}
