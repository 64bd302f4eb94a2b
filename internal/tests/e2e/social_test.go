//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/socialnote/apiserver/config"
	"github.com/socialnote/apiserver/internal/db"
	"github.com/socialnote/apiserver/internal/server"
	"go.uber.org/zap"
)

const (
	serverPort = 18080
)

var baseURL = fmt.Sprintf("http://localhost:%d", serverPort)

// TestMain starts a real server. The store backend follows STORE_BACKEND;
// it defaults to a file in a temporary directory. With the postgres backend
// the DB_* variables must point at a reachable database.
func TestMain(m *testing.M) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	dir, err := os.MkdirTemp("", "socialnote-e2e")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create temp dir: %v\n", err)
		os.Exit(1)
	}
	defer os.RemoveAll(dir)

	cfg, err := testConfig(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if cfg.Store.Backend == config.StoreBackendPostgres {
		if err := db.MigrateUp(cfg.Database); err != nil {
			fmt.Fprintf(os.Stderr, "failed to run migrations: %v\n", err)
			os.Exit(1)
		}
	}

	srv, err := server.New(ctx, cfg, zap.NewNop())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start server: %v\n", err)
		os.Exit(1)
	}
	serverCtx, stopServer := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = srv.Start(serverCtx)
		close(done)
	}()

	if err := waitForHealth(ctx, baseURL+"/healthz"); err != nil {
		fmt.Fprintf(os.Stderr, "server not healthy: %v\n", err)
		stopServer()
		os.Exit(1)
	}

	code := m.Run()

	stopServer()
	<-done
	os.Exit(code)
}

func TestFriendshipLifecycle(t *testing.T) {
	suffix := time.Now().UnixNano()
	alice := register(t, fmt.Sprintf("alice_%d", suffix))
	bob := register(t, fmt.Sprintf("bob_%d", suffix))

	expectStatus(t, call(t, http.MethodPost, "/friends/requests", alice.Token, map[string]string{"target_id": bob.User.ID}), http.StatusAccepted)
	expectStatus(t, call(t, http.MethodPost, "/friends/requests", alice.Token, map[string]string{"target_id": bob.User.ID}), http.StatusConflict)

	resp := call(t, http.MethodGet, "/notifications", bob.Token, nil)
	var pending struct {
		Items []struct {
			From struct {
				ID string `json:"id"`
			} `json:"from_user"`
		} `json:"items"`
	}
	decode(t, resp, &pending)
	if len(pending.Items) != 1 || pending.Items[0].From.ID != alice.User.ID {
		t.Fatalf("unexpected notifications: %+v", pending)
	}

	expectStatus(t, call(t, http.MethodPost, "/friends/requests/"+alice.User.ID+"/accept", bob.Token, nil), http.StatusNoContent)

	resp = call(t, http.MethodGet, "/friends", alice.Token, nil)
	var friends struct {
		Items []struct {
			ID string `json:"id"`
		} `json:"items"`
	}
	decode(t, resp, &friends)
	if len(friends.Items) != 1 || friends.Items[0].ID != bob.User.ID {
		t.Fatalf("unexpected friends: %+v", friends)
	}

	expectStatus(t, call(t, http.MethodPost, "/friends/requests", bob.Token, map[string]string{"target_id": alice.User.ID}), http.StatusConflict)
}

func TestNoteLifecycle(t *testing.T) {
	user := register(t, fmt.Sprintf("noter_%d", time.Now().UnixNano()))

	expectStatus(t, call(t, http.MethodPut, "/profile/note", user.Token, map[string]string{"note": "first draft"}), http.StatusNoContent)

	var profile struct {
		Note string `json:"note"`
	}
	decode(t, call(t, http.MethodGet, "/profile", user.Token, nil), &profile)
	if profile.Note != "first draft" {
		t.Fatalf("unexpected note: %q", profile.Note)
	}
}

type authResponse struct {
	Token string `json:"token"`
	User  struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	} `json:"user"`
}

func testConfig(dir string) (config.Config, error) {
	_ = os.Setenv("JWT_SECRET", "test-secret")
	_ = os.Setenv("SERVER_PORT", fmt.Sprintf("%d", serverPort))
	if os.Getenv("STORE_BACKEND") == "" {
		_ = os.Setenv("STORE_BACKEND", config.StoreBackendFile)
	}
	_ = os.Setenv("STORE_FILE_PATH", filepath.Join(dir, "users.json"))
	_ = os.Setenv("EVENTS_BACKEND", config.EventsBackendNone)
	return config.LoadConfig()
}

func register(t *testing.T, username string) authResponse {
	t.Helper()
	resp := call(t, http.MethodPost, "/auth/register", "", map[string]string{
		"username":         username,
		"password":         "testpass123!",
		"confirm_password": "testpass123!",
	})
	var parsed authResponse
	if resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		t.Fatalf("register status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	decode(t, resp, &parsed)
	if parsed.Token == "" {
		t.Fatalf("missing token in register response")
	}
	return parsed
}

func call(t *testing.T, method, path, token string, payload any) *http.Response {
	t.Helper()
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, baseURL+path, body)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	defer resp.Body.Close()
	if resp.StatusCode != want {
		msg, _ := io.ReadAll(resp.Body)
		t.Fatalf("%s %s: status %d, want %d: %s", resp.Request.Method, resp.Request.URL.Path, resp.StatusCode, want, strings.TrimSpace(string(msg)))
	}
}

func decode(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func waitForHealth(ctx context.Context, url string) error {
	client := &http.Client{Timeout: 2 * time.Second}
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			if err != nil {
				return fmt.Errorf("health check failed: %w", err)
			}
			return fmt.Errorf("health check failed with status")
		case <-ticker.C:
		}
	}
}
