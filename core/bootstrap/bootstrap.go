package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"appserver/core/deploy"
	"appserver/core/handler"
	"appserver/core/server"
	"appserver/core/webapp"

	"go.uber.org/zap"
)

const defaultShutdownTimeout = 10 * time.Second

// ListenerFactory builds the listener serving chain on addr.
type ListenerFactory func(addr string, chain *handler.Chain, l *zap.Logger) server.Listener

// Option customises a Bootstrap.
type Option func(*Bootstrap)

// WithListenerFactory replaces the Fiber listener.
func WithListenerFactory(f ListenerFactory) Option {
	return func(b *Bootstrap) { b.newListener = f }
}

func fiberListener(addr string, chain *handler.Chain, l *zap.Logger) server.Listener {
	return server.NewFiberListener(addr, chain, l)
}

// Bootstrap owns the server lifecycle: configure, create, start, join, stop.
type Bootstrap struct {
	cfg         server.Config
	deployCfg   deploy.Config
	servlets    *webapp.Registry
	logger      *zap.Logger
	newListener ListenerFactory

	mu       sync.Mutex
	state    server.State
	watcher  deploy.WatcherConfig
	chain    *handler.Chain
	manager  *deploy.Manager
	listener server.Listener
}

// New creates a bootstrap in the Created state.
func New(cfg server.Config, deployCfg deploy.Config, servlets *webapp.Registry, logger *zap.Logger, opts ...Option) *Bootstrap {
	if servlets == nil {
		servlets = webapp.NewRegistry()
	}
	b := &Bootstrap{
		cfg:         cfg,
		deployCfg:   deployCfg,
		servlets:    servlets,
		logger:      logger,
		newListener: fiberListener,
		state:       server.StateCreated,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Configure applies startup parameters. Unrecognised arguments are logged
// and returned.
func (b *Bootstrap) Configure(args []string) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.listener != nil {
		return nil, errors.New("server already created")
	}

	cfg, rest, err := ParseArgs(b.cfg, args)
	if err != nil {
		return nil, err
	}
	for _, arg := range rest {
		b.logger.Warn("Ignoring unknown startup parameter", zap.String("arg", arg))
	}
	b.cfg = cfg
	return rest, nil
}

// Config returns the server configuration.
func (b *Bootstrap) Config() server.Config {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cfg
}

// WatcherConfig returns the deployment watcher configuration derived from
// the base directory.
func (b *Bootstrap) WatcherConfig() deploy.WatcherConfig {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.manager != nil {
		return b.watcher
	}
	return deploy.NewWatcherConfig(b.cfg.Base, b.deployCfg)
}

// CreateServer builds the listener, the handler chain and the deployment
// manager. Nothing is bound yet.
func (b *Bootstrap) CreateServer() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.listener != nil {
		return errors.New("server already created")
	}
	if b.cfg.Port < 0 || b.cfg.Port > 65535 {
		return &ConfigError{Arg: fmt.Sprintf("port=%d", b.cfg.Port), Err: errors.New("port out of range")}
	}

	watcher := deploy.NewWatcherConfig(b.cfg.Base, b.deployCfg)
	provider, err := deploy.NewWebAppProvider(watcher, b.servlets, b.logger)
	if err != nil {
		return &StartupError{Op: "deploy", Err: err}
	}

	dispatcher := handler.NewDispatcher(b.logger)
	chain := handler.NewChain(dispatcher, handler.NewFallback(dispatcher))

	manager := deploy.NewManager(dispatcher, b.logger)
	manager.AddAppProvider(provider)

	b.watcher = watcher
	b.chain = chain
	b.manager = manager
	b.listener = b.newListener(b.cfg.Addr(), chain, b.logger)
	return nil
}

// StartServer binds the socket, deploys the packages present and starts
// serving. On failure everything acquired is released.
func (b *Bootstrap) StartServer() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.listener == nil {
		return errors.New("server not created")
	}
	if b.state != server.StateCreated {
		return fmt.Errorf("cannot start server in state %s", b.state)
	}

	if err := b.listener.Bind(); err != nil {
		return &StartupError{Op: "bind", Err: err}
	}
	if err := b.manager.Start(); err != nil {
		_ = b.listener.Stop(context.Background())
		return &StartupError{Op: "deploy", Err: err}
	}
	if err := b.listener.Start(); err != nil {
		_ = b.manager.Stop()
		_ = b.listener.Stop(context.Background())
		return &StartupError{Op: "serve", Err: err}
	}

	b.state = server.StateStarted
	b.logger.Info("Server started",
		zap.String("addr", b.listener.Addr().String()),
		zap.String("webapps", b.watcher.MonitoredDir),
		zap.Int("contexts", len(b.chain.Dispatcher().Contexts())))
	return nil
}

// Join blocks until the listener stops serving.
func (b *Bootstrap) Join() error {
	b.mu.Lock()
	l := b.listener
	b.mu.Unlock()
	if l == nil {
		return errors.New("server not created")
	}
	return l.Join()
}

// StopServer shuts the listener down within the shutdown timeout and
// undeploys every context. Stopping twice is a no-op.
func (b *Bootstrap) StopServer() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == server.StateStopped {
		return nil
	}
	b.state = server.StateStopped
	if b.listener == nil {
		return nil
	}

	b.logger.Info("Shutting down server...")
	timeout := b.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var errs []error
	if err := b.listener.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("listener: %w", err))
	}
	if err := b.manager.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("deployment manager: %w", err))
	}
	return errors.Join(errs...)
}

// State returns the lifecycle state.
func (b *Bootstrap) State() server.State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Chain returns the handler chain, nil before CreateServer.
func (b *Bootstrap) Chain() *handler.Chain {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.chain
}

// Addr returns the bound address, empty before StartServer.
func (b *Bootstrap) Addr() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.listener == nil || b.listener.Addr() == nil {
		return ""
	}
	return b.listener.Addr().String()
}

// Run configures, creates and starts the server, then blocks until it stops.
// Cancelling ctx stops the server.
func (b *Bootstrap) Run(ctx context.Context, args []string) error {
	if _, err := b.Configure(args); err != nil {
		return err
	}
	if err := b.CreateServer(); err != nil {
		return err
	}
	if err := b.StartServer(); err != nil {
		_ = b.StopServer()
		return err
	}

	stop := context.AfterFunc(ctx, func() {
		if err := b.StopServer(); err != nil {
			b.logger.Error("Shutdown failed", zap.Error(err))
		}
	})
	defer stop()

	joinErr := b.Join()
	return errors.Join(joinErr, b.StopServer())
}
