package router

import (
	"fmt"
	"net/http"
	"taskreminder/internal/interfaces/api/handler"
	"taskreminder/internal/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Config holds the dependencies for the router.
type Config struct {
	// LineHandler serves the webhook. The /callback route is omitted when nil.
	LineHandler *handler.LineHandler
	TaskHandler *handler.TaskHandler
	// APIToken guards /api. The API routes are not registered when it is empty.
	APIToken string
	Logger   logger.Logger
}

// NewRouter creates and configures a new Echo router.
func NewRouter(cfg *Config) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			cfg.Logger.Info(fmt.Sprintf("REQUEST: method=%s, uri=%s, status=%d, latency=%s, req_id=%s",
				v.Method, v.URI, v.Status, v.Latency, v.RequestID,
			))
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, "X-Line-Signature"},
		MaxAge:       300,
	}))

	e.GET("/healthz", cfg.TaskHandler.Health)

	if cfg.APIToken != "" {
		api := e.Group("/api/users/:user_id/tasks", handler.APIAuth(cfg.APIToken))
		api.GET("", cfg.TaskHandler.List)
		api.POST("", cfg.TaskHandler.Add)
		api.DELETE("/:name", cfg.TaskHandler.Remove)
	} else {
		cfg.Logger.Warn("API_TOKEN is not set. The task API is disabled.")
	}

	// LINE Platform requires POST for webhook
	if cfg.LineHandler != nil {
		e.POST("/callback", cfg.LineHandler.HandleWebhook)
	}

	cfg.Logger.Info("Router initialized with routes.")
	return e
}
