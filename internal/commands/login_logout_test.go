package commands_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"tasktree/internal/commands"
	"tasktree/internal/config"
	"tasktree/internal/exitcode"
)

// authStore serves the account endpoints of the REST store. It accepts the
// single account ann/secret.
func authStore(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["username"] != "ann" || body["password"] != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"Invalid credentials"}`))
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "s3ss10n", Path: "/"})
		w.Write([]byte(`{"message":"Logged in successfully"}`))
	})
	mux.HandleFunc("POST /api/register", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["username"] == "ann" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"Username already exists"}`))
			return
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"message":"User created successfully"}`))
	})
	mux.HandleFunc("GET /api/lists", func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("session"); err != nil || c.Value != "s3ss10n" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"Unauthorized"}`))
			return
		}
		w.Write([]byte(`[]`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func restConfig(t *testing.T, baseURL string) *config.Config {
	cfg := newConfig(t, false)
	cfg.BaseURL = baseURL
	return cfg
}

func TestLoginCommand_REST(t *testing.T) {
	srv := authStore(t)
	cfg := restConfig(t, srv.URL)

	cmd := &commands.LoginCmd{}
	cmd.SetInput(strings.NewReader("ann\nsecret\n"))

	var outBuf, errBuf bytes.Buffer
	code := cmd.Run(context.Background(), cfg, nil, nil, &outBuf, &errBuf)

	expectCode(t, exitcode.Success, code)
	expectOutput(t, "stdout", "ok\n", outBuf.String())
	expectOutput(t, "stderr", "username: password: ", errBuf.String())

	if got := cfg.Session(); got != "s3ss10n" {
		t.Errorf("expected saved session, got %q", got)
	}
	info, err := os.Stat(cfg.SessionPath())
	if err != nil {
		t.Fatalf("session file: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("expected mode 0600, got %v", info.Mode().Perm())
	}
}

func TestLoginCommand_RESTBadCredentials(t *testing.T) {
	srv := authStore(t)
	cfg := restConfig(t, srv.URL)

	cmd := &commands.LoginCmd{}
	cmd.SetInput(strings.NewReader("ann\nwrong\n"))

	var outBuf, errBuf bytes.Buffer
	code := cmd.Run(context.Background(), cfg, nil, nil, &outBuf, &errBuf)

	expectCode(t, exitcode.AuthError, code)
	expectOutput(t, "stdout", "", outBuf.String())
	if !strings.Contains(errBuf.String(), "Invalid credentials") {
		t.Errorf("expected store message, got %q", errBuf.String())
	}
	if cfg.HasSession() {
		t.Error("no session should be saved")
	}
}

func TestLoginCommand_RESTAlreadyLoggedIn(t *testing.T) {
	srv := authStore(t)
	cfg := restConfig(t, srv.URL)
	if err := cfg.SaveSession("s3ss10n"); err != nil {
		t.Fatal(err)
	}

	var outBuf, errBuf bytes.Buffer
	code := (&commands.LoginCmd{}).Run(context.Background(), cfg, nil, nil, &outBuf, &errBuf)

	expectCode(t, exitcode.Success, code)
	expectOutput(t, "stdout", "already logged in\n", outBuf.String())
}

func TestLoginCommand_RESTExpiredSessionPrompts(t *testing.T) {
	srv := authStore(t)
	cfg := restConfig(t, srv.URL)
	if err := cfg.SaveSession("stale"); err != nil {
		t.Fatal(err)
	}

	cmd := &commands.LoginCmd{}
	cmd.SetInput(strings.NewReader("secret\n"))
	cmd.SetUser("ann")

	var outBuf, errBuf bytes.Buffer
	code := cmd.Run(context.Background(), cfg, nil, nil, &outBuf, &errBuf)

	expectCode(t, exitcode.Success, code)
	expectOutput(t, "stderr", "password: ", errBuf.String())
	if got := cfg.Session(); got != "s3ss10n" {
		t.Errorf("expected refreshed session, got %q", got)
	}
}

func TestLoginCommand_RESTEmptyUsername(t *testing.T) {
	cfg := restConfig(t, "http://127.0.0.1:1")

	cmd := &commands.LoginCmd{}
	cmd.SetInput(strings.NewReader("\n"))

	var outBuf, errBuf bytes.Buffer
	code := cmd.Run(context.Background(), cfg, nil, nil, &outBuf, &errBuf)

	expectCode(t, exitcode.UserError, code)
	if !strings.HasSuffix(errBuf.String(), "error: username required\n") {
		t.Errorf("unexpected stderr %q", errBuf.String())
	}
}

func TestRegisterCommand(t *testing.T) {
	srv := authStore(t)
	cfg := restConfig(t, srv.URL)

	cmd := &commands.RegisterCmd{}
	cmd.SetInput(strings.NewReader("bob\nhunter2\n"))

	var outBuf, errBuf bytes.Buffer
	code := cmd.Run(context.Background(), cfg, nil, nil, &outBuf, &errBuf)

	expectCode(t, exitcode.Success, code)
	expectOutput(t, "stdout", "ok\n", outBuf.String())
	if cfg.HasSession() {
		t.Error("register must not log in")
	}
}

func TestRegisterCommand_Duplicate(t *testing.T) {
	srv := authStore(t)
	cfg := restConfig(t, srv.URL)

	cmd := &commands.RegisterCmd{}
	cmd.SetInput(strings.NewReader("ann\nx\n"))

	var outBuf, errBuf bytes.Buffer
	code := cmd.Run(context.Background(), cfg, nil, nil, &outBuf, &errBuf)

	expectCode(t, exitcode.UserError, code)
	if !strings.Contains(errBuf.String(), "Username already exists") {
		t.Errorf("expected store message, got %q", errBuf.String())
	}
}

func TestRegisterCommand_GoogleBackend(t *testing.T) {
	cfg := newConfig(t, false)
	cfg.Backend = config.BackendGoogle

	var outBuf, errBuf bytes.Buffer
	code := (&commands.RegisterCmd{}).Run(context.Background(), cfg, nil, nil, &outBuf, &errBuf)

	expectCode(t, exitcode.UserError, code)
	expectOutput(t, "stderr", "error: register is not supported by the google backend\n", errBuf.String())
}

// TestLoginCommand_NoOAuthClient verifies Google login fails without oauth_client.json
func TestLoginCommand_NoOAuthClient(t *testing.T) {
	cfg := newConfig(t, false)
	cfg.Backend = config.BackendGoogle

	var outBuf, errBuf bytes.Buffer
	code := (&commands.LoginCmd{}).Run(context.Background(), cfg, nil, nil, &outBuf, &errBuf)

	expectCode(t, exitcode.AuthError, code)
	expectOutput(t, "stdout", "", outBuf.String())
	if !strings.Contains(errBuf.String(), "oauth_client.json not found") {
		t.Errorf("expected missing oauth_client.json message, got %q", errBuf.String())
	}
}

// TestLoginCommand_NoRefreshToken verifies Google login proceeds when the
// stored token cannot be refreshed
func TestLoginCommand_NoRefreshToken(t *testing.T) {
	cfg := newConfig(t, false)
	cfg.Backend = config.BackendGoogle

	oauthClient := `{"installed":{"client_id":"test","client_secret":"test","redirect_uris":["http://localhost"]}}`
	if err := os.WriteFile(filepath.Join(cfg.Dir, "oauth_client.json"), []byte(oauthClient), 0600); err != nil {
		t.Fatalf("failed to write oauth_client.json: %v", err)
	}
	token := `{"access_token":"expired","token_type":"Bearer"}`
	if err := os.WriteFile(filepath.Join(cfg.Dir, "token.json"), []byte(token), 0600); err != nil {
		t.Fatalf("failed to write token.json: %v", err)
	}

	// Cancel up front so the command never waits for the OAuth callback
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var outBuf, errBuf bytes.Buffer
	code := (&commands.LoginCmd{}).Run(ctx, cfg, nil, nil, &outBuf, &errBuf)

	expectCode(t, exitcode.AuthError, code)
	if outBuf.String() == "already logged in\n" {
		t.Error("should not say 'already logged in' without a refresh token")
	}
}

func TestLogoutCommand_REST(t *testing.T) {
	cfg := newConfig(t, false)
	if err := cfg.SaveSession("s3ss10n"); err != nil {
		t.Fatal(err)
	}

	var outBuf, errBuf bytes.Buffer
	code := (&commands.LogoutCmd{}).Run(context.Background(), cfg, nil, nil, &outBuf, &errBuf)

	expectCode(t, exitcode.Success, code)
	expectOutput(t, "stdout", "ok\n", outBuf.String())
	if cfg.HasSession() {
		t.Error("session file should be removed")
	}
}

func TestLogoutCommand_NotLoggedIn(t *testing.T) {
	for _, backend := range []string{config.BackendREST, config.BackendGoogle} {
		cfg := newConfig(t, false)
		cfg.Backend = backend

		var outBuf, errBuf bytes.Buffer
		code := (&commands.LogoutCmd{}).Run(context.Background(), cfg, nil, nil, &outBuf, &errBuf)

		expectCode(t, exitcode.Success, code)
		expectOutput(t, "stdout", "not logged in\n", outBuf.String())
	}
}

func TestLogoutCommand_Google(t *testing.T) {
	cfg := newConfig(t, true)
	cfg.Backend = config.BackendGoogle
	if err := os.WriteFile(cfg.TokenPath(), []byte(`{}`), 0600); err != nil {
		t.Fatal(err)
	}
	// A REST session is left alone
	if err := cfg.SaveSession("s3ss10n"); err != nil {
		t.Fatal(err)
	}

	var outBuf, errBuf bytes.Buffer
	code := (&commands.LogoutCmd{}).Run(context.Background(), cfg, nil, nil, &outBuf, &errBuf)

	expectCode(t, exitcode.Success, code)
	expectOutput(t, "stdout", "", outBuf.String())
	if cfg.HasToken() {
		t.Error("token file should be removed")
	}
	if !cfg.HasSession() {
		t.Error("session file should be kept")
	}
}
