// Package router assembles the gin engine for the connector.
package router

import (
	"github.com/erp/connector/internal/infrastructure/logger"
	"github.com/erp/connector/internal/interfaces/http/handler"
	"github.com/erp/connector/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Config holds router construction settings
type Config struct {
	// MaxBodySize caps inbound delivery bodies, in bytes.
	MaxBodySize int64
	// TrustedProxies are the proxy addresses ClientIP may trust. Empty means
	// none, so the peer address is used as-is for the IP allow-list.
	TrustedProxies []string
}

// Handlers bundles the route handlers the router mounts
type Handlers struct {
	Command *handler.CommandHandler
	Pull    *handler.PullHandler
	System  *handler.SystemHandler
}

// New builds the engine with the connector's middleware chain and routes
func New(cfg Config, log *zap.Logger, h Handlers) (*gin.Engine, error) {
	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, err
	}

	middleware.SetupValidator()

	engine.Use(logger.Recovery(log))
	engine.Use(middleware.RequestID())
	engine.Use(logger.GinMiddleware(log, "/healthz", "/readyz"))
	engine.Use(middleware.Secure())

	engine.GET("/healthz", h.System.Healthz)
	engine.GET("/readyz", h.System.Readyz)

	maxBody := cfg.MaxBodySize
	if maxBody <= 0 {
		maxBody = 10 << 20
	}

	api := engine.Group("/api/v1")
	{
		api.GET("/system/info", h.System.Info)
		api.POST("/commands/receive", middleware.BodyLimit(maxBody), h.Command.Receive)
		api.POST("/pull/request", middleware.BodyLimit(maxBody), h.Pull.Request)
	}

	return engine, nil
}
