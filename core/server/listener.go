package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"appserver/core/handler"
	"appserver/core/logger"
	"appserver/core/middleware/rayid"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Listener owns the listening socket and the serving loop.
type Listener interface {
	// Bind opens the socket without serving yet.
	Bind() error
	// Start begins accepting connections on the bound socket.
	Start() error
	// Stop stops accepting, waits for in-flight requests until ctx is done
	// and closes the socket. Stopping twice is a no-op.
	Stop(ctx context.Context) error
	// Join blocks until the serving loop has ended.
	Join() error
	// Addr is the bound address, nil before Bind.
	Addr() net.Addr
}

// FiberListener serves the handler chain with Fiber.
type FiberListener struct {
	addr   string
	app    *fiber.App
	logger *zap.Logger

	ln       net.Listener
	serving  bool
	done     chan struct{}
	serveErr error
	stopped  atomic.Bool
	stopOnce sync.Once
	stopErr  error
}

// NewFiberListener builds the Fiber app for addr: ray ids, request logging,
// then the chain.
func NewFiberListener(addr string, chain *handler.Chain, l *zap.Logger) *FiberListener {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true, // We will log our own startup message
		UnescapePath:          true,
	})
	app.Use(rayid.New())
	app.Use(logger.Middleware(l))
	chain.Install(app)

	return &FiberListener{addr: addr, app: app, logger: l}
}

// App exposes the underlying Fiber app.
func (f *FiberListener) App() *fiber.App { return f.app }

// Bind opens the TCP socket on the configured address.
func (f *FiberListener) Bind() error {
	if f.ln != nil {
		return errors.New("listener already bound")
	}
	ln, err := net.Listen("tcp4", f.addr)
	if err != nil {
		return fmt.Errorf("failed to bind %s: %w", f.addr, err)
	}
	f.ln = ln
	return nil
}

// Start serves the bound socket in a background goroutine.
func (f *FiberListener) Start() error {
	if f.ln == nil {
		return errors.New("listener not bound")
	}
	if f.serving {
		return nil
	}
	f.serving = true
	f.done = make(chan struct{})

	go func() {
		defer close(f.done)
		f.serveErr = f.app.Listener(f.ln)
	}()
	f.logger.Info("Listening", zap.String("addr", f.ln.Addr().String()))
	return nil
}

// Stop shuts the app down within ctx and closes the socket.
func (f *FiberListener) Stop(ctx context.Context) error {
	f.stopOnce.Do(func() {
		f.stopped.Store(true)
		if f.ln == nil {
			return
		}
		var errs []error
		if f.serving {
			errs = append(errs, f.app.ShutdownWithContext(ctx))
		}
		// The serve goroutine may not have reached Accept yet, in which case
		// shutdown saw no listener. A closed socket makes a late Serve return.
		if err := f.ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			errs = append(errs, err)
		}
		f.stopErr = errors.Join(errs...)
	})
	return f.stopErr
}

// Join waits for the serve goroutine. It returns nil once Stop was called.
func (f *FiberListener) Join() error {
	if f.done == nil {
		return nil
	}
	<-f.done
	if f.stopped.Load() {
		// errors from the closed socket are expected after Stop
		return nil
	}
	return f.serveErr
}

// Addr returns the bound address or nil.
func (f *FiberListener) Addr() net.Addr {
	if f.ln == nil {
		return nil
	}
	return f.ln.Addr()
}
