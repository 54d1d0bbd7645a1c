package api

import (
	"net/http"

	"studyhub/internal/server/config"
	"studyhub/internal/server/web"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRouter creates and configures the echo router with all routes and middleware.
func SetupRouter(handler *Handler, cfg *config.Config) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	// Global middleware
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{cfg.BaseURL},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderAccept},
		AllowCredentials: true,
	}))
	e.Use(Metrics())
	e.Use(RequestLogger())

	// Health, metrics & assets
	e.GET("/health", handler.HandleHealth)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.StaticFS("/static", web.Static())

	// Public pages and auth
	e.GET("/", handler.HandlePage("home.html"))
	e.GET("/register", handler.HandlePage("register.html"))
	e.POST("/register", handler.HandleRegister)
	e.GET("/login", handler.HandlePage("login.html"))
	e.POST("/login", handler.HandleLogin)

	// Everything below needs a session
	guard := RequireSession(handler.accounts)

	e.POST("/logout", handler.HandleLogout, guard)
	e.GET("/notes", handler.HandlePage("notes.html"), guard)
	e.POST("/upload", handler.HandleUpload, guard)
	e.GET("/files", handler.HandleListFiles, guard)
	e.GET("/download/:id", handler.HandleDownload, guard)

	return e
}
