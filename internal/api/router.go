package api

import (
	"strings"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/bongocat/webapp/docs"
	"github.com/bongocat/webapp/internal/api/handler"
	"github.com/bongocat/webapp/internal/api/middleware"
	"github.com/bongocat/webapp/internal/api/session"
	"github.com/bongocat/webapp/internal/api/view"
	"github.com/bongocat/webapp/internal/core/ports"
)

// bodyLimit caps form and sync bodies.
const bodyLimit = "64K"

// Deps are the collaborators the router hands to its handlers.
type Deps struct {
	Accounts ports.AccountService
	Scores   ports.ScoreService
	Sessions *session.Manager
	// Health is checked by /health/ready, keyed by dependency name.
	Health map[string]handler.Pinger
	// PublicBaseURL prefixes mailed reset links. Empty means the request's
	// own scheme and host.
	PublicBaseURL string
	Log           zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) (*echo.Echo, error) {
	renderer, err := view.NewRenderer()
	if err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Renderer = renderer
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.RequestLogger(d.Log))
	e.Use(echomiddleware.BodyLimit(bodyLimit))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem: "bongocat",
		Skipper:   skipOps,
	}))
	e.Use(d.Sessions.Middleware())
	e.Use(middleware.Session(d.Sessions))

	// --- Ops (no session needed, but harmless) ---
	health := handler.NewHealthHandler(d.Health)
	e.GET("/health", health.Liveness)
	e.GET("/health/ready", health.Readiness)
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// --- Pages ---
	pages := handler.NewPageHandler(d.Sessions)
	e.GET("/", pages.Home)
	e.GET("/about/", pages.About)

	// --- Accounts ---
	users := handler.NewUserHandler(d.Accounts, d.Sessions, d.PublicBaseURL, d.Log)
	u := e.Group("/user")
	u.GET("/", users.Index)
	u.GET("/register", users.RegisterForm)
	u.POST("/register", users.Register)
	u.GET("/login", users.LoginForm)
	u.POST("/login", users.Login)
	u.GET("/logout", users.Logout)
	u.GET("/reset", users.ResetRequestForm)
	u.POST("/reset", users.ResetRequest)
	u.GET("/reset/:token", users.ResetForm)
	u.POST("/reset/:token", users.ResetConfirm)
	u.GET("/delete", users.DeleteForm)
	u.POST("/delete", users.Delete)

	// --- Bongo cat ---
	bongo := handler.NewBongoHandler(d.Scores, d.Sessions, d.Log)
	b := e.Group("/bongo_cat")
	b.GET("/", bongo.Game)
	b.POST("/sync", bongo.Sync)
	b.GET("/leaderboard", bongo.Leaderboard)

	return e, nil
}

func skipOps(c echo.Context) bool {
	p := c.Path()
	return p == "/metrics" || strings.HasPrefix(p, "/health") || strings.HasPrefix(p, "/swagger")
}
