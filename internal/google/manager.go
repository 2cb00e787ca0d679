package google

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/aiemployee/mailgate/internal/logging"
	"github.com/aiemployee/mailgate/internal/mailerr"
)

// RefreshWindow is how close to expiry a token may get before the next
// authenticated call triggers a refresh.
const RefreshWindow = 60 * time.Second

// Manager owns the credential/token pair and the authenticated Gmail
// service handle. It is constructed once at startup and passed by
// reference to every caller; the handle is never rebuilt, a refresh
// swaps credentials underneath it.
type Manager struct {
	conf      *oauth2.Config
	tokenPath string
	logger    *slog.Logger
	now       func() time.Time

	mu  sync.Mutex
	tok *oauth2.Token
	svc *gmail.Service

	sf singleflight.Group

	// refreshFn exchanges the current token for a fresh one. Replaced
	// in tests to avoid the network.
	refreshFn func(ctx context.Context, cur *oauth2.Token) (*oauth2.Token, error)
}

// NewManager loads the credentials and persisted token and returns a
// ready Manager. Both files must exist: producing the initial token is
// the external bootstrap flow's job.
func NewManager(credentialsPath, tokenPath string, logger *slog.Logger) (*Manager, error) {
	conf, err := LoadCredentials(credentialsPath)
	if err != nil {
		return nil, mailerr.Wrap(mailerr.KindAuthFailed, err)
	}
	tok, err := LoadToken(tokenPath)
	if err != nil {
		return nil, mailerr.Wrap(mailerr.KindAuthFailed, err)
	}
	m := &Manager{
		conf:      conf,
		tokenPath: tokenPath,
		logger:    logger,
		now:       time.Now,
		tok:       tok,
	}
	m.refreshFn = m.exchangeRefresh
	return m, nil
}

// Token returns a valid access token, refreshing it first when less
// than RefreshWindow remains before expiry. Concurrent callers that
// observe a near-expired token share one in-flight refresh instead of
// issuing redundant ones.
func (m *Manager) Token(ctx context.Context) (*oauth2.Token, error) {
	m.mu.Lock()
	tok := m.tok
	m.mu.Unlock()

	if tok.Expiry.IsZero() || tok.Expiry.Sub(m.now()) >= RefreshWindow {
		return tok, nil
	}
	if tok.RefreshToken == "" {
		return nil, mailerr.New(mailerr.KindTokenExpired,
			"access token expired and no refresh token is available; re-run the bootstrap authorization flow")
	}

	v, err, _ := m.sf.Do("refresh", func() (interface{}, error) {
		return m.refresh(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*oauth2.Token), nil
}

// refresh runs under the single-flight guard. A requester that queued
// behind a completed refresh sees the already-renewed token and
// returns without another provider call.
func (m *Manager) refresh(ctx context.Context) (*oauth2.Token, error) {
	m.mu.Lock()
	cur := m.tok
	m.mu.Unlock()

	if cur.Expiry.Sub(m.now()) >= RefreshWindow {
		return cur, nil
	}

	fresh, err := m.refreshFn(ctx, cur)
	if err != nil {
		return nil, mailerr.Wrap(mailerr.KindAuthFailed,
			&refreshError{cause: err})
	}
	if fresh.RefreshToken == "" {
		fresh.RefreshToken = cur.RefreshToken
	}

	if err := SaveToken(m.tokenPath, fresh); err != nil {
		// The in-memory token is still good; the next refresh will
		// retry the persist.
		m.logger.Warn("failed to persist refreshed token",
			logging.Err(err))
	}

	m.mu.Lock()
	m.tok = fresh
	m.mu.Unlock()

	m.logger.Info("access token refreshed",
		slog.Time("expiry", fresh.Expiry))
	return fresh, nil
}

// exchangeRefresh performs the provider's refresh flow. Only the
// refresh token is handed to the token source: oauth2 treats a token
// with an access token as reusable until 10s before expiry, which
// would skip the exchange for most of RefreshWindow.
func (m *Manager) exchangeRefresh(ctx context.Context, cur *oauth2.Token) (*oauth2.Token, error) {
	return m.conf.TokenSource(ctx, &oauth2.Token{RefreshToken: cur.RefreshToken}).Token()
}

// Service lazily builds and caches the authenticated Gmail service.
// The handle lives for the process lifetime; refreshed tokens flow
// through the token source without reconstructing it.
func (m *Manager) Service(ctx context.Context) (*gmail.Service, error) {
	m.mu.Lock()
	svc := m.svc
	m.mu.Unlock()
	if svc != nil {
		return svc, nil
	}

	svc, err := gmail.NewService(ctx, option.WithTokenSource(m.TokenSource(ctx)))
	if err != nil {
		return nil, mailerr.Wrap(mailerr.KindAuthFailed, err)
	}

	m.mu.Lock()
	if m.svc == nil {
		m.svc = svc
	}
	svc = m.svc
	m.mu.Unlock()
	return svc, nil
}

// TokenSource adapts the Manager to oauth2.TokenSource for the Google
// API client, binding ctx for the refresh call.
func (m *Manager) TokenSource(ctx context.Context) oauth2.TokenSource {
	return tokenSource{ctx: ctx, m: m}
}

// Close persists the current token so a restart resumes from the
// latest credentials. The explicit teardown counterpart to NewManager.
func (m *Manager) Close() error {
	m.mu.Lock()
	tok := m.tok
	m.mu.Unlock()
	return SaveToken(m.tokenPath, tok)
}

type tokenSource struct {
	ctx context.Context
	m   *Manager
}

func (ts tokenSource) Token() (*oauth2.Token, error) {
	return ts.m.Token(ts.ctx)
}

// refreshError adds the remediation guidance the caller needs when a
// refresh fails terminally.
type refreshError struct {
	cause error
}

func (e *refreshError) Error() string {
	return "token refresh failed: " + e.cause.Error() + "; re-run the bootstrap authorization flow to obtain a new token"
}

func (e *refreshError) Unwrap() error { return e.cause }
