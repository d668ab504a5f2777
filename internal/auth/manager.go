package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/rakshitha2207/spotify-mcp/internal/instrumentation"
	"github.com/rakshitha2207/spotify-mcp/internal/logging"
)

// Endpoint is the Spotify accounts service OAuth2 endpoint.
var Endpoint = oauth2.Endpoint{
	AuthURL:  "https://accounts.spotify.com/authorize",
	TokenURL: "https://accounts.spotify.com/api/token",
}

const (
	// DefaultSafetyMargin is how long before its nominal expiry a token
	// is already treated as stale and refreshed.
	DefaultSafetyMargin = 5 * time.Minute

	// DefaultGrantTimeout bounds how long the interactive grant waits
	// for the authorization callback before failing.
	DefaultGrantTimeout = 5 * time.Minute
)

// ErrRefreshRejected signals that the refresh token itself was rejected
// by the authorization server. The manager falls back to a full
// interactive grant when it sees this.
var ErrRefreshRejected = errors.New("refresh token rejected")

// AuthenticationError reports a failed grant or refresh. It is fatal to
// the current request but not to the process; the next request triggers
// re-authentication.
type AuthenticationError struct {
	Reason string
	Err    error
}

func (e *AuthenticationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authentication failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("authentication failed: %s", e.Reason)
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

// Config holds the settings for a credential Manager.
type Config struct {
	// ClientID is the Spotify application client identifier. Required.
	ClientID string

	// ClientSecret is the Spotify application client secret. Required.
	ClientSecret string

	// RedirectURI is the registered OAuth redirect URI. Its host, port
	// and path determine where the local callback listener binds. Required.
	RedirectURI string

	// Scopes requested during the interactive grant.
	// Defaults to DefaultScopes.
	Scopes []string

	// Endpoint is the OAuth2 endpoint. Defaults to the Spotify accounts
	// service; tests point it at a fake.
	Endpoint oauth2.Endpoint

	// SafetyMargin overrides DefaultSafetyMargin when positive.
	SafetyMargin time.Duration

	// GrantTimeout overrides DefaultGrantTimeout when positive.
	GrantTimeout time.Duration

	// OpenBrowser opportunistically opens the authorization URL in a
	// local browser. Defaults to OpenBrowser; a failure here is never
	// fatal, the operator can always follow the logged URL by hand.
	OpenBrowser func(url string) error

	// Logger defaults to slog.Default.
	Logger *slog.Logger

	// Metrics records refresh and grant outcomes. Optional; nil means
	// nothing is recorded.
	Metrics *instrumentation.Metrics
}

// Manager is the process-wide OAuth2 credential state machine:
// Unauthenticated -> Authenticating -> Authenticated -> Refreshing ->
// Authenticated, with Refreshing falling back to Authenticating when the
// refresh token is rejected.
type Manager struct {
	cfg          *oauth2.Config
	safetyMargin time.Duration
	grantTimeout time.Duration
	openBrowser  func(string) error
	callbackAddr string
	callbackPath string
	logger       *slog.Logger
	metrics      *instrumentation.Metrics

	now func() time.Time

	group singleflight.Group
	mu    sync.Mutex
	token *oauth2.Token
}

// NewManager creates a credential manager. The redirect URI must be a
// valid URL whose host/port the interactive callback listener can bind.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RedirectURI == "" {
		return nil, fmt.Errorf("client id, client secret and redirect URI are required")
	}

	u, err := url.Parse(cfg.RedirectURI)
	if err != nil {
		return nil, fmt.Errorf("invalid redirect URI %q: %w", cfg.RedirectURI, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("redirect URI %q has no host", cfg.RedirectURI)
	}
	callbackPath := u.Path
	if callbackPath == "" {
		callbackPath = "/callback"
	}

	scopes := cfg.Scopes
	if scopes == nil {
		scopes = DefaultScopes
	}
	endpoint := cfg.Endpoint
	if endpoint.AuthURL == "" {
		endpoint = Endpoint
	}
	safetyMargin := cfg.SafetyMargin
	if safetyMargin <= 0 {
		safetyMargin = DefaultSafetyMargin
	}
	grantTimeout := cfg.GrantTimeout
	if grantTimeout <= 0 {
		grantTimeout = DefaultGrantTimeout
	}
	opener := cfg.OpenBrowser
	if opener == nil {
		opener = OpenBrowser
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = &instrumentation.Metrics{}
	}

	return &Manager{
		cfg: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       scopes,
			Endpoint:     endpoint,
		},
		safetyMargin: safetyMargin,
		grantTimeout: grantTimeout,
		openBrowser:  opener,
		callbackAddr: u.Host,
		callbackPath: callbackPath,
		logger:       logger,
		metrics:      metrics,
		now:          time.Now,
	}, nil
}

// EnsureValid returns an access token that is valid for at least the
// safety margin, performing a silent refresh or an interactive grant
// first when needed. It is idempotent and safe to call before every
// remote operation: concurrent callers seeing a stale token share one
// in-flight refresh/grant instead of racing their own.
func (m *Manager) EnsureValid(ctx context.Context) (string, error) {
	if tok := m.current(); m.fresh(tok) {
		return tok.AccessToken, nil
	}

	v, err, _ := m.group.Do("credential", func() (interface{}, error) {
		// Another caller may have finished the exchange while this one
		// was queued on the flight group.
		tok := m.current()
		if m.fresh(tok) {
			return tok.AccessToken, nil
		}

		if tok != nil && tok.RefreshToken != "" {
			refreshed, err := m.refresh(ctx, tok.RefreshToken)
			if err == nil {
				return refreshed.AccessToken, nil
			}
			if !errors.Is(err, ErrRefreshRejected) {
				return nil, err
			}
			m.logger.Warn("refresh token rejected, falling back to interactive grant",
				logging.Operation("refresh"), logging.Err(err))
		}

		granted, err := m.InteractiveGrant(ctx)
		if err != nil {
			return nil, err
		}
		return granted.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Refresh silently exchanges the stored refresh token for a new access
// token. It fails with ErrRefreshRejected (wrapped) when the refresh
// token itself is no longer accepted.
func (m *Manager) Refresh(ctx context.Context) (*oauth2.Token, error) {
	tok := m.current()
	if tok == nil || tok.RefreshToken == "" {
		return nil, &AuthenticationError{Reason: "no refresh token available"}
	}
	return m.refresh(ctx, tok.RefreshToken)
}

func (m *Manager) refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	seed := &oauth2.Token{RefreshToken: refreshToken}
	tok, err := m.cfg.TokenSource(ctx, seed).Token()
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil &&
			(retrieveErr.Response.StatusCode == http.StatusBadRequest ||
				retrieveErr.Response.StatusCode == http.StatusUnauthorized) {
			m.metrics.RecordTokenRefresh(ctx, "rejected")
			return nil, fmt.Errorf("%w: %v", ErrRefreshRejected, err)
		}
		m.metrics.RecordTokenRefresh(ctx, "error")
		return nil, &AuthenticationError{Reason: "token refresh failed", Err: err}
	}

	// Spotify omits the refresh token from refresh responses; keep the
	// one that worked.
	if tok.RefreshToken == "" {
		tok.RefreshToken = refreshToken
	}

	m.setToken(tok)
	m.metrics.RecordTokenRefresh(ctx, "success")
	m.logger.Debug("access token refreshed",
		logging.Operation("refresh"),
		slog.Time("expires_at", tok.Expiry))
	return tok, nil
}

// InteractiveGrant runs the full authorization-code flow: it binds a
// one-shot callback listener at the redirect URI, surfaces the
// authorization URL to the operator (opening a browser as a best
// effort), blocks until the authorization code arrives or the grant
// timeout elapses, and exchanges the code for tokens.
func (m *Manager) InteractiveGrant(ctx context.Context) (*oauth2.Token, error) {
	tok, err := m.interactiveGrant(ctx)
	if err != nil {
		m.metrics.RecordGrant(ctx, "failure")
		return nil, err
	}
	m.metrics.RecordGrant(ctx, "success")
	return tok, nil
}

func (m *Manager) interactiveGrant(ctx context.Context) (*oauth2.Token, error) {
	state, err := randomState()
	if err != nil {
		return nil, &AuthenticationError{Reason: "cannot generate state", Err: err}
	}

	srv, err := newCallbackServer(m.callbackAddr, m.callbackPath, state)
	if err != nil {
		return nil, &AuthenticationError{Reason: "cannot bind callback listener", Err: err}
	}
	defer srv.Close()

	authURL := m.cfg.AuthCodeURL(state)
	fmt.Fprintf(os.Stderr, "Authorize spotify-mcp by visiting:\n\n  %s\n\n", authURL)
	m.logger.Info("waiting for authorization callback",
		logging.Operation("interactive_grant"),
		slog.String("callback", m.callbackAddr+m.callbackPath))

	if err := m.openBrowser(authURL); err != nil {
		m.logger.Debug("could not open browser", logging.Err(err))
	}

	ctx, cancel := context.WithTimeout(ctx, m.grantTimeout)
	defer cancel()

	select {
	case res := <-srv.Result():
		if res.err != nil {
			return nil, &AuthenticationError{Reason: "authorization callback failed", Err: res.err}
		}
		tok, err := m.cfg.Exchange(ctx, res.code)
		if err != nil {
			return nil, &AuthenticationError{Reason: "authorization code exchange rejected", Err: err}
		}
		m.setToken(tok)
		m.logger.Info("authorization complete",
			logging.Operation("interactive_grant"),
			slog.Time("expires_at", tok.Expiry))
		return tok, nil
	case <-ctx.Done():
		return nil, &AuthenticationError{Reason: "authorization callback never arrived", Err: ctx.Err()}
	}
}

// HasToken reports whether any token (fresh or stale) is held.
func (m *Manager) HasToken() bool {
	return m.current() != nil
}

func (m *Manager) current() *oauth2.Token {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

func (m *Manager) setToken(tok *oauth2.Token) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = tok
}

// fresh reports whether the token is usable: present and not inside the
// safety margin of its expiry. A token with no recorded expiry is
// treated as stale.
func (m *Manager) fresh(tok *oauth2.Token) bool {
	if tok == nil || tok.AccessToken == "" {
		return false
	}
	return m.now().Before(tok.Expiry.Add(-m.safetyMargin))
}

func randomState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
