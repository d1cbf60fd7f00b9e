// internal/common/auth/session.go
package auth

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"

	"loan-workbench/internal/common/errors"
	apihttp "loan-workbench/internal/common/http"
	"loan-workbench/internal/common/logger"
	"loan-workbench/internal/common/metrics"
	"loan-workbench/internal/models"
	"loan-workbench/internal/storage"
)

// DefaultRefreshInterval is how often a live session renews its token.
const DefaultRefreshInterval = 10 * time.Minute

const sessionExpiredNotice = "Your session has expired. Please log in again."

// Manager holds the signed-in session, mirrors it to local storage and
// keeps its token fresh. It is the API client's TokenSource.
type Manager struct {
	client   *apihttp.Client
	store    *storage.SessionStore
	logger   logger.Logger
	interval time.Duration

	mu      sync.RWMutex
	session *models.Session

	refreshGroup singleflight.Group
	notices      chan errors.Notice
}

func NewManager(client *apihttp.Client, store *storage.SessionStore, log logger.Logger, refreshInterval time.Duration) *Manager {
	if refreshInterval <= 0 {
		refreshInterval = DefaultRefreshInterval
	}
	m := &Manager{
		client:   client,
		store:    store,
		logger:   log,
		interval: refreshInterval,
		notices:  make(chan errors.Notice, 8),
	}
	client.SetTokenSource(m)
	client.OnAuthError(m.HandleAuthError)
	return m
}

// Restore loads a previously saved session.
func (m *Manager) Restore(ctx context.Context) (*models.Session, error) {
	s, err := m.store.Load(ctx)
	if err != nil {
		return nil, errors.NewStorageError("load_session", err)
	}
	m.mu.Lock()
	m.session = s
	m.mu.Unlock()
	return m.Session(), nil
}

// Session returns a copy of the current session, or nil when signed out.
func (m *Manager) Session() *models.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil {
		return nil
	}
	cp := *m.session
	return &cp
}

// Token implements apihttp.TokenSource.
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil {
		return ""
	}
	return m.session.Token
}

// Login exchanges credentials for a token with the password grant.
func (m *Manager) Login(ctx context.Context, username, password string) (*models.Session, error) {
	username = strings.TrimSpace(username)

	var resp models.TokenResponse
	err := m.client.Do(ctx, &apihttp.Request{
		Method: http.MethodPost,
		Path:   "/auth/login",
		Form: url.Values{
			"username":   {username},
			"password":   {password},
			"grant_type": {"password"},
		},
		SkipAuth: true,
	}, &resp)
	if err != nil {
		if se, ok := errors.As(err); ok && se.Code != errors.ErrCodeNetwork {
			return nil, errors.NewAuthenticationFailedError(se.Message, se.StatusCode)
		}
		return nil, err
	}
	if resp.AccessToken == "" {
		return nil, errors.NewAuthenticationFailedError("No access token returned from server", 0)
	}

	fullName := resp.FullName
	if fullName == "" {
		fullName = username
	}
	session := &models.Session{
		Token:    resp.AccessToken,
		Email:    username,
		FullName: fullName,
	}
	applyClaims(session)

	m.setSession(ctx, session)
	m.logger.Info("Signed in", map[string]interface{}{"email": username})
	return m.Session(), nil
}

// Signup registers an account. It does not sign in.
func (m *Manager) Signup(ctx context.Context, req models.SignupRequest) error {
	return m.client.Do(ctx, &apihttp.Request{
		Method:   http.MethodPost,
		Path:     "/auth/signup",
		JSON:     req,
		SkipAuth: true,
	}, nil)
}

// Logout clears the session from memory and storage.
func (m *Manager) Logout(ctx context.Context) {
	m.mu.Lock()
	m.session = nil
	m.mu.Unlock()

	if err := m.store.Clear(ctx); err != nil {
		m.logger.Warn("Failed to clear stored session", map[string]interface{}{"error": err.Error()})
	}
}

// Refresh renews the access token. Concurrent callers share one request.
func (m *Manager) Refresh(ctx context.Context) (string, error) {
	v, err, _ := m.refreshGroup.Do("refresh", func() (interface{}, error) {
		return m.refresh(ctx)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (m *Manager) refresh(ctx context.Context) (string, error) {
	old := m.Token()
	if old == "" {
		return "", errors.NewAuthenticationRequiredError()
	}

	var resp models.TokenResponse
	err := m.client.Do(ctx, &apihttp.Request{
		Method:   http.MethodPost,
		Path:     "/auth/refresh",
		Header:   http.Header{"Authorization": {apihttp.BearerToken(old)}},
		SkipAuth: true,
	}, &resp)
	if err == nil && resp.AccessToken == "" {
		err = errors.NewAuthenticationFailedError("refresh returned no access token", 0)
	}
	if err != nil {
		metrics.TokenRefreshes.WithLabelValues(metrics.OutcomeFailure).Inc()
		return "", err
	}
	metrics.TokenRefreshes.WithLabelValues(metrics.OutcomeSuccess).Inc()

	m.mu.RLock()
	current := m.session
	m.mu.RUnlock()
	if current == nil {
		// Logged out while the refresh was in flight.
		return "", errors.NewAuthenticationRequiredError()
	}
	updated := *current
	updated.Token = resp.AccessToken
	applyClaims(&updated)
	m.setSession(ctx, &updated)

	return resp.AccessToken, nil
}

// Start runs the proactive refresh loop until ctx is done. A failed refresh
// signs the user out.
func (m *Manager) Start(ctx context.Context) {
	go m.run(ctx)
}

func (m *Manager) run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if m.Token() == "" {
				continue
			}
			if _, err := m.Refresh(ctx); err != nil {
				if ctx.Err() != nil {
					return
				}
				m.logger.Warn("Token refresh failed, signing out", map[string]interface{}{
					"error": err.Error(),
				})
				m.Logout(ctx)
			}
		}
	}
}

// HandleAuthError is the API client's terminal auth-failure hook: sign out
// and tell the user.
func (m *Manager) HandleAuthError(err error) {
	m.Logout(context.Background())

	notice := errors.Notice{
		Category: errors.CategoryAuthentication,
		Code:     errors.ErrCodeSessionExpired,
		Message:  sessionExpiredNotice,
	}
	select {
	case m.notices <- notice:
	default:
		// Nobody is draining; the user already has one pending notice.
	}
}

// Notices delivers user-visible session notices.
func (m *Manager) Notices() <-chan errors.Notice {
	return m.notices
}

func (m *Manager) setSession(ctx context.Context, s *models.Session) {
	m.mu.Lock()
	m.session = s
	m.mu.Unlock()

	if err := m.store.Save(ctx, s); err != nil {
		m.logger.Warn("Failed to persist session", map[string]interface{}{"error": err.Error()})
	}
}

// applyClaims copies exp and sub from the token without verifying it. The
// backend remains the verifier; this only informs local display and expiry.
func applyClaims(s *models.Session) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(s.Token, claims); err != nil {
		return
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		s.ExpiresAt = exp.Time.UTC()
	}
	if sub, err := claims.GetSubject(); err == nil {
		s.Subject = sub
	}
}
