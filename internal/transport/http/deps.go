package http

import (
	"github.com/go-signup-nosql/internal/application/auth"
	"github.com/go-signup-nosql/internal/transport/http/handler"
	appmiddleware "github.com/go-signup-nosql/internal/transport/http/middleware"
	"go.uber.org/zap"
)

// Deps holds the services the router exposes. main builds them.
type Deps struct {
	Auth     auth.Service
	Sessions appmiddleware.SessionValidator
	// Health maps a dependency name to its probe, e.g. "dynamodb", "redis".
	Health map[string]handler.Check
	Logger *zap.Logger
}
