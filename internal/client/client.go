// Package client talks to a studyhub server on behalf of the CLI.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"studyhub/internal/core"
)

// sessionCookieName must match the cookie set by the server.
const sessionCookieName = "studyhub_session"

var ErrNotLoggedIn = errors.New("not logged in (run 'studyhub login' first)")

// APIError is a non-success response from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// FileInfo is one entry of the server's file list.
type FileInfo struct {
	ID           string    `json:"id"`
	OriginalName string    `json:"original_name"`
	ContentType  string    `json:"content_type"`
	Size         int64     `json:"size"`
	UploadedBy   string    `json:"uploaded_by,omitempty"`
	UploadedAt   time.Time `json:"uploaded_at"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     *TokenFile
}

// New creates a client for the server at baseURL. The session token is kept
// in tokens between invocations.
func New(baseURL string, tokens *TokenFile) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			// redirects carry the session cookie and the outcome; read them directly
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		tokens: tokens,
	}
}

// Register creates an account and returns its id.
func (c *Client) Register(ctx context.Context, name, email, password string) (string, error) {
	body, err := json.Marshal(map[string]string{
		"name":     name,
		"email":    email,
		"password": password,
	})
	if err != nil {
		return "", err
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/register", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("register request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return "", readAPIError(resp)
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode register response: %w", err)
	}
	return out.ID, nil
}

// Login exchanges credentials for a session and stores its token.
func (c *Client) Login(ctx context.Context, email, password string) error {
	form := url.Values{"email": {email}, "password": {password}}

	req, err := c.newRequest(ctx, http.MethodPost, "/login", strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("login request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusSeeOther {
		return readAPIError(resp)
	}

	for _, cookie := range resp.Cookies() {
		if cookie.Name == sessionCookieName && cookie.Value != "" {
			return c.tokens.Save(cookie.Value)
		}
	}
	return errors.New("login succeeded but no session cookie was returned")
}

// Logout ends the server session. The local token is removed even when the
// server cannot be reached.
func (c *Client) Logout(ctx context.Context) error {
	req, err := c.newAuthRequest(ctx, http.MethodPost, "/logout", nil)
	if err != nil {
		if errors.Is(err, ErrNotLoggedIn) {
			return nil
		}
		return err
	}

	resp, doErr := c.httpClient.Do(req)
	if doErr == nil {
		resp.Body.Close()
	}

	if err := c.tokens.Clear(); err != nil {
		return err
	}
	if doErr != nil {
		return fmt.Errorf("logout request: %w", doErr)
	}
	return nil
}

// List returns every uploaded file in upload order, oldest first.
func (c *Client) List(ctx context.Context) ([]FileInfo, error) {
	req, err := c.newAuthRequest(ctx, http.MethodGet, "/files", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, readAPIError(resp)
	}

	var files []FileInfo
	if err := json.NewDecoder(resp.Body).Decode(&files); err != nil {
		return nil, fmt.Errorf("decode file list: %w", err)
	}
	return files, nil
}

// Upload streams a payload as the "file" part of a multipart request.
func (c *Client) Upload(ctx context.Context, p *core.Payload) (*FileInfo, error) {
	src, err := p.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", p.Name, err)
	}
	defer src.Close()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		part, err := mw.CreateFormFile("file", p.Name)
		if err == nil {
			_, err = io.Copy(part, src)
		}
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	req, err := c.newAuthRequest(ctx, http.MethodPost, "/upload", pr)
	if err != nil {
		pr.CloseWithError(err)
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		pr.CloseWithError(err)
		return nil, fmt.Errorf("upload request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		pr.CloseWithError(io.ErrClosedPipe)
		return nil, readAPIError(resp)
	}

	var out struct {
		File FileInfo `json:"file"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode upload response: %w", err)
	}
	return &out.File, nil
}

// Download saves the file with the given id. When dest is empty or a
// directory, the server's original file name is used. It returns the path
// written.
func (c *Client) Download(ctx context.Context, id, dest string) (string, error) {
	req, err := c.newAuthRequest(ctx, http.MethodGet, "/download/"+url.PathEscape(id), nil)
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("download request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", readAPIError(resp)
	}

	target := resolveDest(dest, attachmentName(resp.Header.Get("Content-Disposition"), id))

	tmp, err := os.CreateTemp(filepath.Dir(target), ".studyhub-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write %s: %w", target, err)
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return "", fmt.Errorf("move into place: %w", err)
	}
	return target, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	return http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
}

func (c *Client) newAuthRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	token, err := c.tokens.Load()
	if err != nil {
		return nil, err
	}

	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: token})
	return req, nil
}

// readAPIError turns a failed response into an *APIError, keeping the
// server's {"error": ...} message when there is one.
func readAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}

	var body struct {
		Error string `json:"error"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if json.Unmarshal(data, &body) == nil {
		apiErr.Message = body.Error
	}
	return apiErr
}

func attachmentName(disposition, fallback string) string {
	_, params, err := mime.ParseMediaType(disposition)
	if err != nil {
		return fallback
	}
	name := filepath.Base(params["filename"])
	if name == "." || name == "/" || name == "" {
		return fallback
	}
	return name
}

func resolveDest(dest, name string) string {
	if dest == "" {
		return name
	}
	if info, err := os.Stat(dest); err == nil && info.IsDir() {
		return filepath.Join(dest, name)
	}
	return dest
}
