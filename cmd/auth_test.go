package cmd

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/factor591/aisheets/config"
)

func TestAuthLogin_FromFlagThenLogout(t *testing.T) {
	dir := isolate(t)

	if _, _, err := execute(t, "", "auth", "login", "--api-key", "sk-flag", "--model", "gpt-4o", "--no-verify"); err != nil {
		t.Fatalf("login: %v", err)
	}
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIKey != "sk-flag" || cfg.Model != "gpt-4o" {
		t.Fatalf("unexpected saved config %+v", cfg)
	}

	_, stderr, err := execute(t, "", "auth", "logout")
	if err != nil {
		t.Fatalf("logout: %v", err)
	}
	if stderr != "✓ Logged out\n" {
		t.Fatalf("unexpected stderr %q", stderr)
	}
	// The model setting survives logout.
	cfg, err = config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIKey != "" || cfg.Model != "gpt-4o" {
		t.Fatalf("unexpected config after logout %+v", cfg)
	}
	if _, err := os.Stat(filepath.Join(dir, "config.json")); err != nil {
		t.Fatalf("config.json should remain: %v", err)
	}
}

func TestAuthLogin_PromptsAndVerifies(t *testing.T) {
	dir := isolate(t)

	var gotAuth, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		w.Write([]byte(`{"object":"list","data":[{"id":"gpt-4","object":"model"}]}`))
	}))
	defer srv.Close()

	if _, _, err := execute(t, "sk-typed\n", "auth", "login", "--api-url", srv.URL); err != nil {
		t.Fatalf("login: %v", err)
	}
	if gotPath != "/models" || gotAuth != "Bearer sk-typed" {
		t.Fatalf("verification request: path=%q auth=%q", gotPath, gotAuth)
	}
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIKey != "sk-typed" || cfg.APIURL != srv.URL {
		t.Fatalf("unexpected saved config %+v", cfg)
	}

	// Nothing but the key was stored, so logout removes the file.
	cfg.APIURL = ""
	if err := config.Save(cfg); err != nil {
		t.Fatal(err)
	}
	if _, _, err := execute(t, "", "auth", "logout"); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "config.json")); !os.IsNotExist(err) {
		t.Fatalf("config.json should be deleted, stat err = %v", err)
	}
}

func TestAuthLogin_RejectedKeyIsNotSaved(t *testing.T) {
	isolate(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error","code":"invalid_api_key"}}`))
	}))
	defer srv.Close()

	if _, _, err := execute(t, "", "auth", "login", "--api-key", "sk-bad", "--api-url", srv.URL); err == nil {
		t.Fatal("expected rejected key to fail login")
	}
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIKey != "" {
		t.Fatalf("rejected key was saved: %+v", cfg)
	}
}

func TestAuthLogin_EmptyKey(t *testing.T) {
	isolate(t)
	if _, _, err := execute(t, "\n", "auth", "login", "--no-verify"); err == nil {
		t.Fatal("expected error for empty key")
	}
}

func TestAuthLogout_NotLoggedIn(t *testing.T) {
	isolate(t)
	_, stderr, err := execute(t, "", "auth", "logout")
	if err != nil {
		t.Fatalf("logout: %v", err)
	}
	if stderr != "Not logged in.\n" {
		t.Fatalf("unexpected stderr %q", stderr)
	}
}
