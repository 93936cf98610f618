package main

import (
	"fmt"
	"io"

	"gemsmith/internal/apiserver"
	"gemsmith/internal/config"
	"gemsmith/internal/logger"
	"gemsmith/internal/utils"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	logger.SetLevel(cfg.Logging.Level)

	app := newApp(cfg)

	logger.Info("starting server", zap.String("address", cfg.GetAddress()))

	if err := app.Start(); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

// App bundles the configuration and HTTP server.
type App struct {
	config *config.Config
	server *echo.Echo
}

// newApp builds the application instance.
func newApp(cfg *config.Config) *App {
	utils.InitHTTPClients(cfg)

	e := echo.New()
	e.Logger.SetOutput(io.Discard)
	e.HideBanner = true

	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout
	e.Server.IdleTimeout = cfg.Server.IdleTimeout

	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.RequestID())

	apiserver.RegisterRoutes(e, cfg)

	return &App{
		config: cfg,
		server: e,
	}
}

// Start runs the HTTP server.
func (a *App) Start() error {
	return a.server.Start(a.config.GetAddress())
}
