package api

import (
	"context"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"studyhub/internal/server/service"
	"studyhub/internal/server/session"

	"github.com/labstack/echo/v4"
)

const (
	sessionCookieName = "studyhub_session"
	sessionContextKey = "studyhub.session"
)

// Authenticator resolves a session token to a live session.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*session.Session, error)
}

// RequireSession rejects requests that do not carry a valid session cookie.
// Clients preferring JSON get a 401, everyone else is redirected to /login.
// The downstream handler is never called for rejected requests.
func RequireSession(auth Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			var token string
			if cookie, err := c.Cookie(sessionCookieName); err == nil {
				token = cookie.Value
			}

			sess, err := auth.Authenticate(c.Request().Context(), token)
			if err != nil {
				// A bare ErrUnauthenticated is an ordinary miss; anything
				// wrapped or different is a session store fault.
				if err != service.ErrUnauthenticated {
					slog.Error("session lookup failed", "path", c.Request().URL.Path, "error", err)
				}
				if prefersJSON(c.Request().Header.Get(echo.HeaderAccept)) {
					return c.JSON(http.StatusUnauthorized, echo.Map{"error": service.ErrUnauthenticated.Error()})
				}
				return c.Redirect(http.StatusFound, "/login")
			}

			c.Set(sessionContextKey, sess)
			return next(c)
		}
	}
}

// SessionFromContext returns the session stored by RequireSession.
func SessionFromContext(c echo.Context) (*session.Session, bool) {
	sess, ok := c.Get(sessionContextKey).(*session.Session)
	return sess, ok
}

// RequestLogger returns an echo middleware that logs requests using slog.
func RequestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				// Commit the error response now so the logged status is the real one.
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()

			attrs := []any{
				"method", req.Method,
				"path", req.URL.Path,
				"status", res.Status,
				"latency_ms", time.Since(start).Milliseconds(),
				"ip", c.RealIP(),
				"user_agent", req.UserAgent(),
				"bytes_out", res.Size,
			}
			if sess, ok := SessionFromContext(c); ok {
				attrs = append(attrs, "user_id", sess.UserID)
			}
			slog.Info("request", attrs...)

			return err
		}
	}
}

// prefersJSON reports whether an Accept header ranks application/json above
// text/html.
func prefersJSON(accept string) bool {
	jsonQ, htmlQ := -1.0, -1.0
	for _, part := range strings.Split(accept, ",") {
		mediaType, params, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		q := 1.0
		if v, ok := params["q"]; ok {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				q = f
			}
		}
		switch mediaType {
		case echo.MIMEApplicationJSON:
			jsonQ = max(jsonQ, q)
		case "text/html":
			htmlQ = max(htmlQ, q)
		}
	}
	return jsonQ > 0 && jsonQ > htmlQ
}
