package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loan-workbench/internal/common/errors"
)

// fakeLoanService serves the handful of endpoints the CLI walk-through uses.
type fakeLoanService struct {
	mu       sync.Mutex
	statuses map[string]string
}

func (f *fakeLoanService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeJSON := func(status int, v interface{}) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}

	switch {
	case r.URL.Path == "/loans/health":
		writeJSON(200, map[string]interface{}{
			"status":   "healthy",
			"version":  "1.4.0",
			"services": map[string]string{"database": "up"},
		})
	case r.URL.Path == "/auth/login":
		_ = r.ParseForm()
		if r.PostForm.Get("password") != "secret" {
			writeJSON(401, map[string]string{"detail": "Incorrect username or password"})
			return
		}
		writeJSON(200, map[string]string{"access_token": "tok-1", "full_name": "Ana Reyes"})
	case r.Header.Get("Authorization") != "Bearer tok-1":
		w.WriteHeader(http.StatusUnauthorized)
	case r.Method == http.MethodGet && r.URL.Path == "/loans/applications":
		f.mu.Lock()
		status := f.statuses["rec-1"]
		f.mu.Unlock()
		writeJSON(200, map[string]interface{}{
			"data": []map[string]interface{}{{
				"_id":            map[string]string{"$oid": "rec-1"},
				"application_id": "APP-1",
				"status":         status,
				"applicant_info": map[string]string{
					"full_name":      "Juan Dela Cruz",
					"contact_number": "09171234567",
					"address":        "12 Rizal St, Makati, Metro Manila",
					"salary":         "30000",
					"job":            "Teacher",
				},
			}},
			"total":  1,
			"page":   1,
			"pages":  1,
			"counts": map[string]int{"total": 1, "pending": 1},
		})
	case r.Method == http.MethodPut && r.URL.Path == "/loans/applications/rec-1/status":
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.statuses["rec-1"] = body["status"]
		f.mu.Unlock()
		writeJSON(200, map[string]string{"message": "ok"})
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeLoanService) status(id string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statuses[id]
}

func writeConfig(t *testing.T, baseURL string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "api:\n  base_url: " + baseURL + "\n" +
		"storage:\n  driver: sqlite\n  sqlite_path: " + filepath.Join(dir, "state.db") + "\n" +
		"logging:\n  level: error\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// execute runs one loanctl invocation the way main does, minus os.Exit.
func execute(t *testing.T, cfgPath string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(""))
	rootCmd.SetArgs(append([]string{"--config", cfgPath}, args...))

	env = nil
	_, err := rootCmd.ExecuteC()
	if env != nil {
		env.close()
	}
	return out.String(), err
}

// ==========================================
// End-to-end walk through the CLI
// ==========================================

func TestLoanctl_SignInReviewAndSignOut(t *testing.T) {
	svc := &fakeLoanService{statuses: map[string]string{"rec-1": "Pending"}}
	srv := httptest.NewServer(svc)
	defer srv.Close()
	cfgPath := writeConfig(t, srv.URL)

	out, err := execute(t, cfgPath, "health")
	require.NoError(t, err)
	assert.Contains(t, out, "Loan service: healthy (version 1.4.0)")
	assert.Contains(t, out, "database  up")

	_, err = execute(t, cfgPath, "applicants", "list")
	assert.True(t, errors.Is(err, errors.ErrAuthenticationRequired), "list needs a session")

	_, err = execute(t, cfgPath, "login", "--email", "ana@lender.ph", "--password", "wrong")
	se, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeAuthenticationFailed, se.Code)

	out, err = execute(t, cfgPath, "login", "--email", "ana@lender.ph", "--password", "secret")
	require.NoError(t, err)
	assert.Equal(t, "Signed in as Ana Reyes (ana@lender.ph)\n", out)

	out, err = execute(t, cfgPath, "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "Ana Reyes <ana@lender.ph>")

	out, err = execute(t, cfgPath, "applicants", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "rec-1")
	assert.Contains(t, out, "Juan Dela Cruz")
	assert.Contains(t, out, "Makati")
	assert.Contains(t, out, "Page 1 of 1 (1 total)")

	out, err = execute(t, cfgPath, "applicants", "approve", "rec-1")
	require.NoError(t, err)
	assert.Equal(t, "Application rec-1: approve done\n", out)
	assert.Equal(t, "Approved", svc.status("rec-1"))

	out, err = execute(t, cfgPath, "logout")
	require.NoError(t, err)
	assert.Equal(t, "Signed out\n", out)

	out, err = execute(t, cfgPath, "whoami")
	require.NoError(t, err)
	assert.Equal(t, "Not signed in\n", out)
}

func TestLoanctl_BadConfig(t *testing.T) {
	_, err := execute(t, filepath.Join(t.TempDir(), "missing.yaml"), "health")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load config")
}
