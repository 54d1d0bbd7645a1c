package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"time"

	"studyhub/internal/server/config"
	"studyhub/internal/server/service"
	"studyhub/internal/server/session"
	"studyhub/internal/server/web"

	"github.com/labstack/echo/v4"
)

// Room for multipart boundaries and part headers on top of the file itself.
const multipartOverhead = 1 << 20

const loginFailedHTML = `<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>Log in · StudyHub</title><link rel="stylesheet" href="/static/app.css"></head>
<body><main class="card"><p class="result error">Invalid credentials. <a href="/login">Try again</a></p></main></body>
</html>
`

// Pinger reports whether the database is reachable.
type Pinger interface {
	HealthCheck(ctx context.Context) error
}

// Handler contains the HTTP handlers for StudyHub.
type Handler struct {
	accounts      *service.AccountService
	files         *service.FileService
	db            Pinger
	cookieSecure  bool
	maxUploadSize int64
}

// NewHandler creates a new handler with its service dependencies.
func NewHandler(accounts *service.AccountService, files *service.FileService, db Pinger, cfg *config.Config) *Handler {
	return &Handler{
		accounts:      accounts,
		files:         files,
		db:            db,
		cookieSecure:  cfg.CookieSecure,
		maxUploadSize: cfg.MaxFileSize,
	}
}

type credentialsRequest struct {
	Name     string `json:"name" form:"name"`
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// HandlePage serves one of the embedded HTML pages.
func (h *Handler) HandlePage(name string) echo.HandlerFunc {
	return func(c echo.Context) error {
		data, err := web.Page(name)
		if err != nil {
			slog.Error("failed to load page", "page", name, "error", err)
			return c.String(http.StatusInternalServerError, "internal server error")
		}
		return c.HTMLBlob(http.StatusOK, data)
	}
}

// HandleRegister handles POST /register.
// Accepts a form or JSON body with name, email and password.
func (h *Handler) HandleRegister(c echo.Context) error {
	var req credentialsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	user, err := h.accounts.Register(c.Request().Context(), req.Name, req.Email, req.Password)
	recordAuth("register", err)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"id":      user.ID,
		"message": "user registered successfully",
	})
}

// HandleLogin handles POST /login.
// On success the session cookie is set and the client is sent to /notes.
func (h *Handler) HandleLogin(c echo.Context) error {
	var req credentialsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	sess, err := h.accounts.Login(c.Request().Context(), req.Email, req.Password)
	recordAuth("login", err)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) && !prefersJSON(c.Request().Header.Get(echo.HeaderAccept)) {
			return c.HTML(http.StatusUnauthorized, loginFailedHTML)
		}
		return mapServiceError(c, err)
	}

	h.setSessionCookie(c, sess)
	return c.Redirect(http.StatusSeeOther, "/notes")
}

// HandleLogout handles POST /logout. The cookie is always cleared, even when
// the server-side session could not be destroyed.
func (h *Handler) HandleLogout(c echo.Context) error {
	var token string
	if cookie, err := c.Cookie(sessionCookieName); err == nil {
		token = cookie.Value
	}

	err := h.accounts.Logout(c.Request().Context(), token)
	recordAuth("logout", err)
	if err != nil {
		slog.Warn("failed to destroy session on logout", "error", err)
	}

	h.clearSessionCookie(c)
	return c.Redirect(http.StatusSeeOther, "/login")
}

// HandleUpload handles POST /upload.
// The "file" part of the multipart body is streamed straight to storage.
func (h *Handler) HandleUpload(c echo.Context) error {
	req := c.Request()
	req.Body = http.MaxBytesReader(c.Response(), req.Body, h.maxUploadSize+multipartOverhead)

	mr, err := req.MultipartReader()
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "multipart form with a 'file' field is required",
		})
	}

	var userID string
	if sess, ok := SessionFromContext(c); ok {
		userID = sess.UserID
	}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return c.JSON(http.StatusBadRequest, echo.Map{
				"error": "file is required (use form field 'file')",
			})
		}
		if err != nil {
			if isTooLarge(err) {
				return mapServiceError(c, err)
			}
			return malformedMultipart(c, err)
		}

		if part.FormName() != "file" || part.FileName() == "" {
			part.Close()
			continue
		}

		body := &limitedReader{r: part, limit: h.maxUploadSize}
		rec, err := h.files.Upload(req.Context(), userID, part.FileName(), part.Header.Get(echo.HeaderContentType), body)
		part.Close()
		if err != nil {
			// a broken request body is the client's fault, not the store's
			if body.err != nil && !isTooLarge(body.err) {
				return malformedMultipart(c, body.err)
			}
			return mapServiceError(c, err)
		}

		uploadedBytesTotal.Add(float64(rec.Size))
		return c.JSON(http.StatusOK, echo.Map{
			"message": "file uploaded successfully",
			"file":    rec,
		})
	}
}

// HandleListFiles handles GET /files.
func (h *Handler) HandleListFiles(c echo.Context) error {
	records, err := h.files.List(c.Request().Context())
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, records)
}

// HandleDownload handles GET /download/:id.
// Streams the file back as an attachment under its original name.
func (h *Handler) HandleDownload(c echo.Context) error {
	rec, rc, err := h.files.Open(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			downloadsTotal.WithLabelValues("not_found").Inc()
		} else {
			downloadsTotal.WithLabelValues("error").Inc()
		}
		return mapServiceError(c, err)
	}
	defer rc.Close()

	downloadsTotal.WithLabelValues("success").Inc()

	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": rec.OriginalName})
	if disposition == "" {
		disposition = "attachment"
	}
	header := c.Response().Header()
	header.Set(echo.HeaderContentDisposition, disposition)
	if rec.Size > 0 {
		header.Set(echo.HeaderContentLength, strconv.FormatInt(rec.Size, 10))
	}

	return c.Stream(http.StatusOK, rec.ContentType, rc)
}

// HandleHealth handles GET /health.
// Returns the health status of the server, including database connectivity.
func (h *Handler) HandleHealth(c echo.Context) error {
	status := "healthy"
	dbStatus := "connected"

	if err := h.db.HealthCheck(c.Request().Context()); err != nil {
		status = "degraded"
		dbStatus = fmt.Sprintf("error: %v", err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"status":          status,
		"database":        dbStatus,
		"max_upload_size": humanizeBytes(h.maxUploadSize),
	})
}

func (h *Handler) setSessionCookie(c echo.Context, sess *session.Session) {
	c.SetCookie(&http.Cookie{
		Name:     sessionCookieName,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		MaxAge:   int(time.Until(sess.ExpiresAt).Seconds()),
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearSessionCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// limitedReader fails with *http.MaxBytesError once more than limit bytes
// have been read. The first read error other than io.EOF is kept in err.
type limitedReader struct {
	r     io.Reader
	read  int64
	limit int64
	err   error
}

func (l *limitedReader) Read(p []byte) (int, error) {
	n, err := l.r.Read(p)
	l.read += int64(n)
	if l.read > l.limit {
		err = &http.MaxBytesError{Limit: l.limit}
	}
	if err != nil && err != io.EOF && l.err == nil {
		l.err = err
	}
	return n, err
}

func isTooLarge(err error) bool {
	var maxBytesErr *http.MaxBytesError
	return errors.As(err, &maxBytesErr)
}

func malformedMultipart(c echo.Context, err error) error {
	slog.Warn("rejected malformed upload body", "path", c.Request().URL.Path, "error", err)
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "malformed multipart body"})
}

// mapServiceError translates service-layer errors into appropriate HTTP responses.
func mapServiceError(c echo.Context, err error) error {
	var maxBytesErr *http.MaxBytesError

	switch {
	case errors.As(err, &maxBytesErr):
		return c.JSON(http.StatusRequestEntityTooLarge, echo.Map{
			"error": "file exceeds maximum allowed size",
		})
	case errors.Is(err, service.ErrInvalidEmail):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": service.ErrInvalidEmail.Error()})
	case errors.Is(err, service.ErrWeakPassword):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": service.ErrWeakPassword.Error()})
	case errors.Is(err, service.ErrEmailTaken):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": service.ErrEmailTaken.Error()})
	case errors.Is(err, service.ErrInvalidCredentials):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": service.ErrInvalidCredentials.Error()})
	case errors.Is(err, service.ErrUnauthenticated):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": service.ErrUnauthenticated.Error()})
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": service.ErrNotFound.Error()})
	case errors.Is(err, service.ErrStorageFailure):
		slog.Error("storage failure", "path", c.Request().URL.Path, "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "storage failure"})
	default:
		slog.Error("request failed", "path", c.Request().URL.Path, "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
	}
}

// humanizeBytes formats a byte count into a human-readable string.
func humanizeBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}
