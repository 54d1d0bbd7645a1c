package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"studyhub/internal/core"
)

const testToken = "tok_abc123"

// fakeServer mimics the studyhub HTTP API closely enough for the client.
type fakeServer struct {
	mu       sync.Mutex
	uploads  map[string][]byte
	names    map[string]string
	order    []string
	loggedIn bool
}

func newFakeServer(t *testing.T) (*httptest.Server, *fakeServer) {
	t.Helper()
	fs := &fakeServer{uploads: map[string][]byte{}, names: map[string]string{}}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /register", fs.register)
	mux.HandleFunc("POST /login", fs.login)
	mux.HandleFunc("POST /logout", fs.logout)
	mux.HandleFunc("GET /files", fs.requireSession(fs.list))
	mux.HandleFunc("POST /upload", fs.requireSession(fs.upload))
	mux.HandleFunc("GET /download/{id}", fs.requireSession(fs.download))

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, fs
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (fs *fakeServer) requireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookieName)
		if err != nil || cookie.Value != testToken {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
			return
		}
		next(w, r)
	}
}

func (fs *fakeServer) register(w http.ResponseWriter, r *http.Request) {
	var body map[string]string
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if body["email"] == "taken@example.com" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "email already registered"})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": "user-1", "message": "user registered successfully"})
}

func (fs *fakeServer) login(w http.ResponseWriter, r *http.Request) {
	if r.FormValue("password") != "Secret1!x" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
		return
	}
	fs.mu.Lock()
	fs.loggedIn = true
	fs.mu.Unlock()
	http.SetCookie(w, &http.Cookie{Name: sessionCookieName, Value: testToken, HttpOnly: true})
	http.Redirect(w, r, "/notes", http.StatusSeeOther)
}

func (fs *fakeServer) logout(w http.ResponseWriter, r *http.Request) {
	fs.mu.Lock()
	fs.loggedIn = false
	fs.mu.Unlock()
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (fs *fakeServer) list(w http.ResponseWriter, r *http.Request) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	files := []FileInfo{}
	for _, id := range fs.order {
		files = append(files, FileInfo{ID: id, OriginalName: fs.names[id], Size: int64(len(fs.uploads[id]))})
	}
	writeJSON(w, http.StatusOK, files)
}

func (fs *fakeServer) upload(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "file is required (use form field 'file')"})
		return
	}
	defer file.Close()
	data, _ := io.ReadAll(file)

	fs.mu.Lock()
	id := "file-" + header.Filename
	fs.uploads[id] = data
	if _, seen := fs.names[id]; !seen {
		fs.order = append(fs.order, id)
	}
	fs.names[id] = header.Filename
	fs.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "file uploaded successfully",
		"file":    FileInfo{ID: id, OriginalName: header.Filename, Size: int64(len(data))},
	})
}

func (fs *fakeServer) download(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	fs.mu.Lock()
	data, ok := fs.uploads[id]
	name := fs.names[id]
	fs.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "file not found"})
		return
	}
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	w.Write(data)
}

func newTestClient(t *testing.T, srv *httptest.Server) (*Client, *TokenFile) {
	t.Helper()
	tokens := NewTokenFile(filepath.Join(t.TempDir(), "studyhub", "session"))
	return New(srv.URL+"/", tokens), tokens
}

func TestClient_RegisterAndLogin(t *testing.T) {
	srv, _ := newFakeServer(t)
	c, tokens := newTestClient(t, srv)
	ctx := context.Background()

	id, err := c.Register(ctx, "Ann", "ann@example.com", "Secret1!x")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if id != "user-1" {
		t.Errorf("expected id user-1, got %s", id)
	}

	_, err = c.Register(ctx, "Ann", "taken@example.com", "Secret1!x")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusBadRequest || apiErr.Message != "email already registered" {
		t.Errorf("expected 400 email already registered, got %v", err)
	}

	if err := c.Login(ctx, "ann@example.com", "wrong"); err == nil {
		t.Fatal("expected login with wrong password to fail")
	}
	if _, err := tokens.Load(); !errors.Is(err, ErrNotLoggedIn) {
		t.Errorf("expected no token after failed login, got %v", err)
	}

	if err := c.Login(ctx, "ann@example.com", "Secret1!x"); err != nil {
		t.Fatalf("login: %v", err)
	}
	token, err := tokens.Load()
	if err != nil || token != testToken {
		t.Errorf("expected saved token %q, got %q (%v)", testToken, token, err)
	}

	info, err := os.Stat(tokens.Path())
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("expected session file mode 0600, got %o", perm)
	}
}

func TestClient_RequiresLogin(t *testing.T) {
	srv, _ := newFakeServer(t)
	c, tokens := newTestClient(t, srv)

	if _, err := c.List(context.Background()); !errors.Is(err, ErrNotLoggedIn) {
		t.Errorf("expected ErrNotLoggedIn, got %v", err)
	}

	if err := tokens.Save("stale"); err != nil {
		t.Fatal(err)
	}
	_, err := c.List(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized {
		t.Errorf("expected 401 for stale token, got %v", err)
	}
}

func TestClient_UploadListDownload(t *testing.T) {
	srv, _ := newFakeServer(t)
	c, _ := newTestClient(t, srv)
	ctx := context.Background()

	if err := c.Login(ctx, "ann@example.com", "Secret1!x"); err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	src := filepath.Join(dir, "chapter1.txt")
	if err := os.WriteFile(src, []byte("mitochondria"), 0644); err != nil {
		t.Fatal(err)
	}
	payloads, err := core.NewPayloads([]core.ParsedPath{{FullPath: src, Kind: core.PathFile}}, false)
	if err != nil {
		t.Fatal(err)
	}

	rec, err := c.Upload(ctx, payloads[0])
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if rec.OriginalName != "chapter1.txt" || rec.Size != 12 {
		t.Errorf("unexpected upload record: %+v", rec)
	}

	files, err := c.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(files) != 1 || files[0].ID != rec.ID {
		t.Errorf("unexpected list: %+v", files)
	}

	t.Run("into directory", func(t *testing.T) {
		out := t.TempDir()
		path, err := c.Download(ctx, rec.ID, out)
		if err != nil {
			t.Fatalf("download: %v", err)
		}
		if path != filepath.Join(out, "chapter1.txt") {
			t.Errorf("unexpected path %s", path)
		}
		data, _ := os.ReadFile(path)
		if string(data) != "mitochondria" {
			t.Errorf("unexpected content %q", data)
		}
	})

	t.Run("explicit file name", func(t *testing.T) {
		target := filepath.Join(t.TempDir(), "copy.txt")
		path, err := c.Download(ctx, rec.ID, target)
		if err != nil {
			t.Fatalf("download: %v", err)
		}
		if path != target {
			t.Errorf("expected %s, got %s", target, path)
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := c.Download(ctx, "missing", t.TempDir())
		var apiErr *APIError
		if !errors.As(err, &apiErr) || apiErr.Status != http.StatusNotFound {
			t.Errorf("expected 404, got %v", err)
		}
	})
}

func TestClient_ListKeepsUploadOrder(t *testing.T) {
	srv, _ := newFakeServer(t)
	c, _ := newTestClient(t, srv)
	ctx := context.Background()

	if err := c.Login(ctx, "ann@example.com", "Secret1!x"); err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	names := []string{"week1.txt", "week2.txt", "week3.txt"}
	for _, name := range names {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(name), 0644); err != nil {
			t.Fatal(err)
		}
		payloads, err := core.NewPayloads([]core.ParsedPath{{FullPath: path, Kind: core.PathFile}}, false)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := c.Upload(ctx, payloads[0]); err != nil {
			t.Fatalf("upload %s: %v", name, err)
		}
	}

	files, err := c.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(files) != len(names) {
		t.Fatalf("expected %d files, got %d", len(names), len(files))
	}
	for i, f := range files {
		if f.OriginalName != names[i] {
			t.Errorf("position %d: expected %s, got %s", i, names[i], f.OriginalName)
		}
	}
}

func TestClient_Logout(t *testing.T) {
	srv, fs := newFakeServer(t)
	c, tokens := newTestClient(t, srv)
	ctx := context.Background()

	if err := c.Logout(ctx); err != nil {
		t.Errorf("logout without session should be a no-op, got %v", err)
	}

	if err := c.Login(ctx, "ann@example.com", "Secret1!x"); err != nil {
		t.Fatal(err)
	}
	if err := c.Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := tokens.Load(); !errors.Is(err, ErrNotLoggedIn) {
		t.Errorf("expected token removed, got %v", err)
	}
	if fs.loggedIn {
		t.Error("expected server session to end")
	}

	t.Run("server unreachable", func(t *testing.T) {
		tokens.Save(testToken)
		offline := New("http://127.0.0.1:1", tokens)
		if err := offline.Logout(ctx); err == nil {
			t.Error("expected transport error")
		}
		if _, err := tokens.Load(); !errors.Is(err, ErrNotLoggedIn) {
			t.Error("expected token removed even when server is unreachable")
		}
	})
}

func TestAttachmentName(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{`attachment; filename="notes.pdf"`, "notes.pdf"},
		{`attachment; filename*=utf-8''%C3%BCbung.txt`, "übung.txt"},
		{`attachment; filename="../../etc/passwd"`, "passwd"},
		{`attachment`, "fallback"},
		{``, "fallback"},
	}
	for _, tt := range tests {
		if got := attachmentName(tt.header, "fallback"); got != tt.want {
			t.Errorf("attachmentName(%q) = %q, want %q", tt.header, got, tt.want)
		}
	}
}
