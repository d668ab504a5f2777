package server

import (
	"context"
	"sync"

	"github.com/rakshitha2207/spotify-mcp/internal/governor"
	"github.com/rakshitha2207/spotify-mcp/internal/instrumentation"
	"github.com/rakshitha2207/spotify-mcp/internal/spotify"
)

// CredentialSource hands out valid bearer credentials. The auth manager
// implements it; tests substitute a stub.
type CredentialSource interface {
	EnsureValid(ctx context.Context) (string, error)
}

// ServerContext holds the context for the MCP server.
type ServerContext struct {
	ctx     context.Context
	cancel  context.CancelFunc
	auth    CredentialSource
	gov     *governor.Governor
	spotify *spotify.Client
	metrics *instrumentation.Metrics

	mu       sync.RWMutex
	shutdown bool
}

// NewServerContext creates a new server context around the given
// collaborators. A nil metrics recorder is replaced with a no-op one.
func NewServerContext(ctx context.Context, auth CredentialSource, gov *governor.Governor, client *spotify.Client, metrics *instrumentation.Metrics) *ServerContext {
	shutdownCtx, cancel := context.WithCancel(ctx)
	if metrics == nil {
		metrics = &instrumentation.Metrics{}
	}
	return &ServerContext{
		ctx:     shutdownCtx,
		cancel:  cancel,
		auth:    auth,
		gov:     gov,
		spotify: client,
		metrics: metrics,
	}
}

// Context returns the server context.
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Auth returns the credential source.
func (sc *ServerContext) Auth() CredentialSource {
	return sc.auth
}

// Governor returns the call governor.
func (sc *ServerContext) Governor() *governor.Governor {
	return sc.gov
}

// Spotify returns the Web API client.
func (sc *ServerContext) Spotify() *spotify.Client {
	return sc.spotify
}

// Metrics returns the metrics recorder. Never nil.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	return sc.metrics
}

// IsShutdown returns whether the server has been shut down.
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown shuts down the server context. Idempotent.
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}
	sc.shutdown = true
	sc.cancel()
	return nil
}
