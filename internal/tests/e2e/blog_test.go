//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/inkpress/apiserver/config"
	"github.com/inkpress/apiserver/internal/db"
	"github.com/inkpress/apiserver/internal/kv"
	"github.com/inkpress/apiserver/internal/server"
	"github.com/inkpress/apiserver/internal/store"
	"github.com/inkpress/apiserver/types"
	_ "github.com/lib/pq"
)

const (
	serverPort = 18080
)

var baseURL = fmt.Sprintf("http://localhost:%d", serverPort)

func TestMain(m *testing.M) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	root, err := repoRoot()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to locate repo root: %v\n", err)
		os.Exit(1)
	}

	setEnv()

	if err := dockerCompose(ctx, root, "up", "-d"); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start docker compose: %v\n", err)
		os.Exit(1)
	}

	if err := waitForPostgres(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "postgres not ready: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	if err := runMigrations(root); err != nil {
		fmt.Fprintf(os.Stderr, "failed to run migrations: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	srv, err := startServer(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start server: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	if err := waitForHealth(ctx, baseURL+"/healthz"); err != nil {
		fmt.Fprintf(os.Stderr, "server not healthy: %v\n", err)
		_ = srv.Shutdown(context.Background())
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	code := m.Run()

	_ = srv.Shutdown(context.Background())
	_ = dockerCompose(context.Background(), root, "down")
	os.Exit(code)
}

func TestBlogLifecycle(t *testing.T) {
	author := fmt.Sprintf("author_%d", time.Now().UnixNano())
	reader := fmt.Sprintf("reader_%d", time.Now().UnixNano())

	authorID, authorToken := signupAndLogin(t, author)
	_, readerToken := signupAndLogin(t, reader)

	var post types.Post
	status := call(t, http.MethodPost, "/posts", authorToken, map[string]any{
		"title":      "Hello e2e",
		"content":    "<p>Stored in postgres</p>",
		"tags":       []string{"e2e"},
		"categories": []string{"Testing"},
	}, &post)
	if status != http.StatusCreated {
		t.Fatalf("create post status %d", status)
	}
	if post.AuthorID != authorID || post.Status != types.PostStatusDraft {
		t.Fatalf("unexpected post: %+v", post)
	}
	if post.Excerpt != "Stored in postgres" {
		t.Fatalf("unexpected excerpt %q", post.Excerpt)
	}

	var anonymous []types.Post
	call(t, http.MethodGet, "/posts?tag=e2e", "", nil, &anonymous)
	for _, p := range anonymous {
		if p.ID == post.ID {
			t.Fatalf("draft %s visible to anonymous caller", post.ID)
		}
	}

	if status := call(t, http.MethodPut, "/posts/"+post.ID, readerToken, map[string]string{"title": "stolen"}, nil); status != http.StatusForbidden {
		t.Fatalf("non-author update status %d", status)
	}

	var published types.Post
	call(t, http.MethodPut, "/posts/"+post.ID, authorToken, map[string]string{"status": "published"}, &published)
	if published.Status != types.PostStatusPublished {
		t.Fatalf("expected published, got %q", published.Status)
	}

	var likes struct {
		Likes int64 `json:"likes"`
	}
	call(t, http.MethodPost, "/posts/"+post.ID+"/like", "", nil, &likes)
	if likes.Likes != 1 {
		t.Fatalf("expected 1 like, got %d", likes.Likes)
	}

	var comment types.Comment
	status = call(t, http.MethodPost, "/comments", readerToken, map[string]string{"postId": post.ID, "content": "great post"}, &comment)
	if status != http.StatusCreated {
		t.Fatalf("create comment status %d", status)
	}

	var comments []types.Comment
	call(t, http.MethodGet, "/posts/"+post.ID+"/comments", "", nil, &comments)
	if len(comments) != 1 || comments[0].ID != comment.ID {
		t.Fatalf("unexpected comments: %+v", comments)
	}

	if status := call(t, http.MethodDelete, "/posts/"+post.ID, authorToken, nil, nil); status != http.StatusOK {
		t.Fatalf("delete post status %d", status)
	}
	if status := call(t, http.MethodGet, "/posts/"+post.ID, "", nil, nil); status != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", status)
	}
}

func TestAdminAndUploads(t *testing.T) {
	admin := fmt.Sprintf("admin_%d", time.Now().UnixNano())
	adminID, token := signupAndLogin(t, admin)

	if status := call(t, http.MethodGet, "/admin/stats", token, nil, nil); status != http.StatusForbidden {
		t.Fatalf("expected 403 before promotion, got %d", status)
	}
	if err := promoteUserToAdmin(adminID); err != nil {
		t.Fatalf("promote user: %v", err)
	}

	var stats types.Stats
	if status := call(t, http.MethodGet, "/admin/stats", token, nil, &stats); status != http.StatusOK {
		t.Fatalf("stats status %d", status)
	}
	if stats.AdminUsers < 1 {
		t.Fatalf("expected at least one admin, got %+v", stats)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "pixel.png")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	_, _ = part.Write([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"))
	_ = writer.Close()

	req, err := http.NewRequest(http.MethodPost, baseURL+"/uploads", &body)
	if err != nil {
		t.Fatalf("build upload request: %v", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(resp.Body)
		t.Fatalf("upload status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	var upload struct {
		URL string `json:"url"`
		Key string `json:"key"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&upload); err != nil {
		t.Fatalf("decode upload: %v", err)
	}
	if !strings.HasPrefix(upload.Key, "uploads/"+adminID+"/") || upload.URL == "" {
		t.Fatalf("unexpected upload: %+v", upload)
	}
}

func signupAndLogin(t *testing.T, username string) (string, string) {
	t.Helper()
	email := username + "@example.com"

	var signup struct {
		ID string `json:"id"`
	}
	status := call(t, http.MethodPost, "/auth/signup", "", map[string]string{
		"email":    email,
		"password": "testpass123!",
		"username": username,
	}, &signup)
	if status != http.StatusCreated || signup.ID == "" {
		t.Fatalf("signup status %d", status)
	}

	var login struct {
		Token string `json:"token"`
	}
	status = call(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email":    email,
		"password": "testpass123!",
	}, &login)
	if status != http.StatusOK || login.Token == "" {
		t.Fatalf("login status %d", status)
	}
	return signup.ID, login.Token
}

// call sends a JSON request and decodes a 2xx response into out.
func call(t *testing.T, method, path, token string, payload any, out any) int {
	t.Helper()

	var reader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("encode payload: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, baseURL+path, reader)
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
	defer resp.Body.Close()

	if out != nil && resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func promoteUserToAdmin(id string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	kvStore, err := kv.Open(ctx, config.LoadConfig())
	if err != nil {
		return err
	}
	defer kvStore.Close()

	users := store.NewUserRepository(kvStore)
	user, err := users.GetByID(ctx, id)
	if err != nil {
		return err
	}
	user.Role = types.RoleAdmin
	_, err = users.Update(ctx, user)
	return err
}

func setEnv() {
	_ = os.Setenv("JWT_SECRET", "test-secret")
	_ = os.Setenv("SERVER_PORT", fmt.Sprintf("%d", serverPort))
	_ = os.Setenv("KV_BACKEND", "postgres")
	_ = os.Setenv("KV_NAMESPACE", fmt.Sprintf("e2e_%d", time.Now().Unix()))
	_ = os.Setenv("DB_HOST", "localhost")
	_ = os.Setenv("DB_PORT", "5432")
	_ = os.Setenv("DB_USER", "inkpress")
	_ = os.Setenv("DB_PASSWORD", "inkpress")
	_ = os.Setenv("DB_NAME", "inkpress")
	_ = os.Setenv("DB_USE_SSL", "false")
	_ = os.Setenv("STORAGE_BACKEND", "minio")
	_ = os.Setenv("MINIO_ACCESS_KEY", "minioadmin")
	_ = os.Setenv("MINIO_SECRET_KEY", "minioadmin")
	_ = os.Setenv("MINIO_BUCKET", "inkpress-e2e")
	_ = os.Setenv("MQ_BACKEND", "rabbitmq")
}

func waitForPostgres(ctx context.Context) error {
	conn, err := sql.Open("postgres", db.URL(config.LoadConfig().Database))
	if err != nil {
		return err
	}
	defer conn.Close()

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := conn.PingContext(pingCtx)
		cancel()
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("postgres ping timeout: %w", err)
		case <-ticker.C:
		}
	}
}

func waitForHealth(ctx context.Context, url string) error {
	client := &http.Client{Timeout: 2 * time.Second}
	ticker := time.NewTicker(500 * time.Millisecond)
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

func runMigrations(root string) error {
	migrationsURL := "file://" + filepath.Join(root, "internal", "db", "migrations")

	migrator, err := migrate.New(migrationsURL, db.URL(config.LoadConfig().Database))
	if err != nil {
		return err
	}
	defer func() {
		_, _ = migrator.Close()
	}()

	if err := migrator.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

// startServer retries while the broker and object store finish booting.
func startServer(ctx context.Context) (*server.Server, error) {
	cfg := config.LoadConfig()

	var lastErr error
	for attempt := 0; attempt < 30; attempt++ {
		srv, err := server.New(ctx, cfg)
		if err == nil {
			go func() {
				_ = srv.Start()
			}()
			return srv, nil
		}
		lastErr = err
		select {
		case <-ctx.Done():
			return nil, lastErr
		case <-time.After(time.Second):
		}
	}
	return nil, lastErr
}

func dockerCompose(ctx context.Context, root string, args ...string) error {
	composeFile := filepath.Join(root, "development", "docker-compose.yml")
	baseArgs := append([]string{"compose", "-f", composeFile}, args...)
	cmd := exec.CommandContext(ctx, "docker", baseArgs...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func repoRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found")
		}
		dir = parent
	}
}
