package server

import (
	"context"
	"sync"

	"github.com/aiemployee/mailgate/internal/config"
	"github.com/aiemployee/mailgate/internal/google"
	"github.com/aiemployee/mailgate/internal/service"
)

// ServerContext holds the shared state for the MCP server: the mail
// service facade, the token manager behind it, and shutdown handling.
type ServerContext struct {
	ctx      context.Context
	cancel   context.CancelFunc
	cfg      *config.Config
	mail     *service.Service
	tokens   *google.Manager
	readOnly bool
	mu       sync.RWMutex
	shutdown bool
}

// NewServerContext creates a new server context around an initialized
// mail service.
func NewServerContext(ctx context.Context, cfg *config.Config, mail *service.Service, tokens *google.Manager, readOnly bool) *ServerContext {
	shutdownCtx, cancel := context.WithCancel(ctx)

	return &ServerContext{
		ctx:      shutdownCtx,
		cancel:   cancel,
		cfg:      cfg,
		mail:     mail,
		tokens:   tokens,
		readOnly: readOnly,
	}
}

// Context returns the server context
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Config returns the loaded configuration.
func (sc *ServerContext) Config() *config.Config {
	return sc.cfg
}

// Mail returns the mail service facade.
func (sc *ServerContext) Mail() *service.Service {
	return sc.mail
}

// ReadOnly reports whether write tools (send, reply, draft) are disabled.
func (sc *ServerContext) ReadOnly() bool {
	return sc.readOnly
}

// IsShutdown returns whether the server has been shutdown
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown shuts down the server context and persists token state.
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.cancel()

	if sc.tokens != nil {
		return sc.tokens.Close()
	}
	return nil
}
