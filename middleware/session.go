package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/session"
)

type stateContextKey struct{}

// FromContext returns the session state installed by Sessions.
func FromContext(ctx context.Context) (*State, bool) {
	st, ok := ctx.Value(stateContextKey{}).(*State)
	return st, ok
}

// State is the per-request view of the session cookie.
type State struct {
	mu sync.Mutex

	engine  *goSession.Engine
	cookies *Cookies
	writer  CookieWriter
	now     time.Time

	session   *session.Session
	keyID     string
	isNew     bool
	modified  bool
	destroyed bool
	committed bool
	err       error
}

// Session returns the session. Mutating it does not mark the state modified; call
// MarkModified after a change that must reach the browser.
func (s *State) Session() *session.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

// MarkModified schedules a Set-Cookie for this response.
func (s *State) MarkModified() {
	s.mu.Lock()
	s.modified = true
	s.mu.Unlock()
}

// Destroy discards the session and schedules an expiring Set-Cookie. Later calls to
// Session return a fresh empty session that is not persisted unless modified.
func (s *State) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.destroyed = true
	s.modified = false
	s.session = s.engine.NewSession(s.now)
}

// IsNew reports whether the request carried no acceptable cookie.
func (s *State) IsNew() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isNew
}

// KeyID returns the identifier of the key that authenticated the incoming cookie.
func (s *State) KeyID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keyID
}

// Err returns the error of the last commit, if any.
func (s *State) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// commit writes the Set-Cookie header once. It is a no-op after the first call.
func (s *State) commit(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.committed {
		return s.err
	}
	s.committed = true

	if s.destroyed && !s.modified {
		s.cookies.Clear(s.writer)
		return nil
	}

	renew := s.engine.NeedsRenewal(s.session, s.now)
	retired := s.keyID != "" && s.engine.IsRetired(s.keyID)
	fresh := s.isNew && s.session.Len() > 0
	if !s.modified && !renew && !retired && !fresh {
		return nil
	}

	var (
		value string
		err   error
	)
	if renew {
		value, err = s.engine.Renew(ctx, s.session, s.now)
	} else {
		value, err = s.engine.Encode(ctx, s.session)
	}
	if err == nil {
		err = s.cookies.Set(s.writer, value, s.session.ExpiresAt)
	}
	s.err = err
	return err
}

// Save writes the Set-Cookie header for the request's session now, before the
// handler writes its response. Later commits are no-ops.
func Save(w http.ResponseWriter, r *http.Request) error {
	st, ok := FromContext(r.Context())
	if !ok {
		return errors.New("middleware: no session state in request context")
	}
	return st.commit(r.Context())
}

// Options customizes Sessions.
type Options struct {
	// OnError receives commit failures. Defaults to logging through slog.Default().
	OnError func(r *http.Request, err error)
	// ClientIP extracts the address recorded in audit events. Defaults to RemoteAddr.
	ClientIP func(r *http.Request) string
}

// Sessions decodes the session cookie on every request and installs a *State in the
// request context.
//
// A cookie the engine rejects is dropped and the request continues with a fresh
// anonymous session. A fatal engine error responds 500. Set-Cookie is written before
// the first header write when the session was modified, newly created and non-empty,
// due for sliding renewal, or authenticated by a retired key.
func Sessions(engine *goSession.Engine, opts ...Options) func(http.Handler) http.Handler {
	var opt Options
	if len(opts) > 0 {
		opt = opts[0]
	}
	if opt.OnError == nil {
		opt.OnError = func(r *http.Request, err error) {
			slog.Default().ErrorContext(r.Context(), "session cookie not written", "error", err)
		}
	}
	if opt.ClientIP == nil {
		opt.ClientIP = remoteIP
	}

	cookies := NewCookies(engine.Config().Cookie, engine.Now)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := goSession.WithClientIP(r.Context(), opt.ClientIP(r))
			ctx = goSession.WithUserAgent(ctx, r.UserAgent())

			now := engine.Now()
			st := &State{
				engine:  engine,
				cookies: cookies,
				writer:  NewResponseCookieWriter(w),
				now:     now,
			}

			if value := cookies.Read(r); value != "" {
				s, keyID, err := engine.DecodeKey(ctx, value, now)
				switch {
				case err == nil:
					st.session, st.keyID = s, keyID
				case errors.Is(err, goSession.ErrRejected):
					// rejected cookies are replaced by a fresh session
				default:
					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
					return
				}
			}
			if st.session == nil {
				st.session = engine.NewSession(now)
				st.isNew = true
			}

			r = r.WithContext(context.WithValue(ctx, stateContextKey{}, st))
			sw := &stateWriter{ResponseWriter: w, state: st, request: r, onError: opt.OnError}
			next.ServeHTTP(sw, r)
			sw.commit()
		})
	}
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// stateWriter commits the session cookie before the first header write.
type stateWriter struct {
	http.ResponseWriter
	state   *State
	request *http.Request
	onError func(r *http.Request, err error)
	done    bool
}

func (w *stateWriter) commit() {
	if w.done {
		return
	}
	w.done = true
	if err := w.state.commit(w.request.Context()); err != nil {
		w.onError(w.request, err)
	}
}

func (w *stateWriter) WriteHeader(code int) {
	w.commit()
	w.ResponseWriter.WriteHeader(code)
}

func (w *stateWriter) Write(b []byte) (int, error) {
	w.commit()
	return w.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *stateWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func (w *stateWriter) Flush() {
	w.commit()
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
