package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loan-workbench/internal/common/database"
	"loan-workbench/internal/common/errors"
	apihttp "loan-workbench/internal/common/http"
	"loan-workbench/internal/common/logger"
	"loan-workbench/internal/models"
	"loan-workbench/internal/storage"
)

func signedToken(t *testing.T, sub string, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": sub,
		"exp": exp.Unix(),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return tok
}

type fixture struct {
	manager *Manager
	client  *apihttp.Client
	store   *storage.SessionStore
	kv      storage.KV
}

func newFixture(t *testing.T, handler http.HandlerFunc) *fixture {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	db, err := database.NewSQLite(database.MemoryDSN)
	require.NoError(t, err)
	kv, err := storage.NewSQLStore(context.Background(), db.DB, storage.DialectSQLite)
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })

	log := logger.NewTestLogger(t)
	client := apihttp.NewClient(srv.URL, 5*time.Second, log)
	store := storage.NewSessionStore(kv)
	return &fixture{
		manager: NewManager(client, store, log, time.Hour),
		client:  client,
		store:   store,
		kv:      kv,
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ==========================================
// Login / signup / logout
// ==========================================

func TestLogin(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	token := signedToken(t, "officer-7", exp)

	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/login", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "ana@lender.ph", r.PostForm.Get("username"))
		assert.Equal(t, "secret", r.PostForm.Get("password"))
		assert.Equal(t, "password", r.PostForm.Get("grant_type"))
		writeJSON(w, 200, map[string]string{"access_token": token, "token_type": "bearer", "full_name": "Ana Reyes"})
	})

	s, err := f.manager.Login(context.Background(), " ana@lender.ph ", "secret")
	require.NoError(t, err)
	assert.Equal(t, token, s.Token)
	assert.Equal(t, "ana@lender.ph", s.Email)
	assert.Equal(t, "Ana Reyes", s.FullName)
	assert.Equal(t, "officer-7", s.Subject)
	assert.True(t, exp.Equal(s.ExpiresAt))
	assert.Equal(t, token, f.manager.Token())

	stored, err := f.store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, token, stored.Token)
}

func TestLogin_FullNameDefaultsToUsername(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, map[string]string{"access_token": "opaque-token"})
	})
	s, err := f.manager.Login(context.Background(), "ana@lender.ph", "pw")
	require.NoError(t, err)
	assert.Equal(t, "ana@lender.ph", s.FullName)
	assert.True(t, s.ExpiresAt.IsZero())
}

func TestLogin_Failures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    interface{}
		wantMsg string
	}{
		{"bad credentials", 401, map[string]string{"detail": "Incorrect username or password"}, "Incorrect username or password"},
		{"no token", 200, map[string]string{"token_type": "bearer"}, "No access token returned from server"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, tt.body)
			})
			_, err := f.manager.Login(context.Background(), "ana@lender.ph", "bad")
			se, ok := errors.As(err)
			require.True(t, ok)
			assert.Equal(t, errors.ErrCodeAuthenticationFailed, se.Code)
			assert.Equal(t, tt.wantMsg, se.Details)
			assert.Nil(t, f.manager.Session())
		})
	}
}

func TestSignup(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/signup", r.URL.Path)
		var req models.SignupRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Ana Reyes", req.FullName)
		writeJSON(w, 201, map[string]string{"email": req.Email})
	})

	err := f.manager.Signup(context.Background(), models.SignupRequest{Email: "ana@lender.ph", FullName: "Ana Reyes", Password: "pw"})
	require.NoError(t, err)
	assert.Nil(t, f.manager.Session(), "signup does not sign in")
}

func TestRestoreAndLogout(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {})
	ctx := context.Background()
	require.NoError(t, f.store.Save(ctx, &models.Session{Token: "saved", Email: "a@b.c"}))

	s, err := f.manager.Restore(ctx)
	require.NoError(t, err)
	assert.Equal(t, "saved", s.Token)

	f.manager.Logout(ctx)
	assert.Empty(t, f.manager.Token())
	_, found, _ := f.kv.Get(ctx, storage.KeySession)
	assert.False(t, found)
}

// ==========================================
// Refresh
// ==========================================

func TestRefresh_SendsOldTokenAndStoresNew(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/auth/refresh", r.URL.Path)
		assert.Equal(t, "Bearer old", r.Header.Get("Authorization"))
		writeJSON(w, 200, map[string]string{"access_token": "new"})
	})
	ctx := context.Background()
	require.NoError(t, f.store.Save(ctx, &models.Session{Token: "old", Email: "a@b.c", FullName: "A"}))
	_, err := f.manager.Restore(ctx)
	require.NoError(t, err)

	tok, err := f.manager.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, "new", tok)
	assert.Equal(t, "A", f.manager.Session().FullName)

	stored, _ := f.store.Load(ctx)
	assert.Equal(t, "new", stored.Token)
}

func TestRefresh_WithoutSession(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})
	_, err := f.manager.Refresh(context.Background())
	assert.True(t, errors.Is(err, errors.ErrAuthenticationRequired))
}

func TestRefresh_ConcurrentCallersShareOneRequest(t *testing.T) {
	var refreshes int32
	release := make(chan struct{})
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&refreshes, 1)
		<-release
		writeJSON(w, 200, map[string]string{"access_token": "new"})
	})
	ctx := context.Background()
	require.NoError(t, f.store.Save(ctx, &models.Session{Token: "old"}))
	_, _ = f.manager.Restore(ctx)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tok, err := f.manager.Refresh(ctx)
			assert.NoError(t, err)
			assert.Equal(t, "new", tok)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&refreshes))
}

// ==========================================
// Expired session through the API client
// ==========================================

func TestAuthErrorSignsOutAndNotifies(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	ctx := context.Background()
	require.NoError(t, f.store.Save(ctx, &models.Session{Token: "old"}))
	_, _ = f.manager.Restore(ctx)

	err := f.client.Do(ctx, &apihttp.Request{Path: "/loans/applications"}, nil)
	require.True(t, errors.Is(err, errors.ErrSessionExpired))

	assert.Nil(t, f.manager.Session())
	select {
	case n := <-f.manager.Notices():
		assert.Equal(t, "Your session has expired. Please log in again.", n.Message)
		assert.Equal(t, errors.ErrCodeSessionExpired, n.Code)
	default:
		t.Fatal("expected a session notice")
	}
}

func TestStart_FailedRefreshSignsOut(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	f.manager.interval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, f.store.Save(ctx, &models.Session{Token: "old"}))
	_, _ = f.manager.Restore(ctx)

	f.manager.Start(ctx)
	assert.Eventually(t, func() bool { return f.manager.Token() == "" }, time.Second, 10*time.Millisecond)
}
