package deploy

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"appserver/core/webapp"

	"go.uber.org/zap"
)

// PackageRegistry makes deployed contexts routable.
type PackageRegistry interface {
	Register(ctx *webapp.Context) error
	Unregister(contextPath string) (*webapp.Context, bool)
}

// AppProvider discovers applications and hands them to the manager.
type AppProvider interface {
	Name() string
	Start(m *Manager) error
	Stop() error
}

// Manager tracks deployed contexts and registers them with the registry.
type Manager struct {
	registry  PackageRegistry
	logger    *zap.Logger
	providers []AppProvider
	started   []AppProvider

	mu   sync.Mutex
	apps map[string]*webapp.Context // keyed by package path
}

// NewManager creates a manager deploying into registry.
func NewManager(registry PackageRegistry, logger *zap.Logger) *Manager {
	return &Manager{
		registry: registry,
		logger:   logger,
		apps:     make(map[string]*webapp.Context),
	}
}

// AddAppProvider attaches a provider. Providers start in the order added.
func (m *Manager) AddAppProvider(p AppProvider) {
	m.providers = append(m.providers, p)
}

// Start starts every provider. If one fails, those already started are
// stopped and their applications undeployed.
func (m *Manager) Start() error {
	for _, p := range m.providers {
		if err := p.Start(m); err != nil {
			_ = m.Stop()
			return fmt.Errorf("app provider %s: %w", p.Name(), err)
		}
		m.started = append(m.started, p)
		m.logger.Debug("App provider started", zap.String("provider", p.Name()))
	}
	return nil
}

// Stop stops the providers in reverse order and undeploys everything.
func (m *Manager) Stop() error {
	var errs []error
	for i := len(m.started) - 1; i >= 0; i-- {
		if err := m.started[i].Stop(); err != nil {
			errs = append(errs, fmt.Errorf("app provider %s: %w", m.started[i].Name(), err))
		}
	}
	m.started = nil

	m.mu.Lock()
	origins := make([]string, 0, len(m.apps))
	for origin := range m.apps {
		origins = append(origins, origin)
	}
	m.mu.Unlock()

	for _, origin := range origins {
		if err := m.Undeploy(origin); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Deploy registers ctx. On error the caller still owns ctx.
func (m *Manager) Deploy(ctx *webapp.Context) error {
	pkg := ctx.Package()

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.apps[pkg.Path]; exists {
		return &DeploymentError{Package: pkg.Name, Err: errors.New("already deployed")}
	}
	if err := m.registry.Register(ctx); err != nil {
		return &DeploymentError{Package: pkg.Name, Err: err}
	}
	m.apps[pkg.Path] = ctx

	m.logger.Info("Deployed application",
		zap.String("context", ctx.Path()),
		zap.String("name", ctx.Name()),
		zap.String("package", pkg.Path),
		zap.Bool("archive", pkg.Archive))
	return nil
}

// Undeploy unregisters the context loaded from the package at origin and
// closes it once its in-flight requests are done. Unknown origins are ignored.
func (m *Manager) Undeploy(origin string) error {
	m.mu.Lock()
	ctx, ok := m.apps[origin]
	delete(m.apps, origin)
	m.mu.Unlock()
	if !ok {
		return nil
	}

	m.registry.Unregister(ctx.Path())
	if err := ctx.Close(); err != nil {
		return fmt.Errorf("failed to release %s: %w", ctx.Path(), err)
	}
	m.logger.Info("Undeployed application", zap.String("context", ctx.Path()), zap.String("package", origin))
	return nil
}

// Apps returns the deployed contexts ordered by context path.
func (m *Manager) Apps() []*webapp.Context {
	m.mu.Lock()
	out := make([]*webapp.Context, 0, len(m.apps))
	for _, ctx := range m.apps {
		out = append(out, ctx)
	}
	m.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Path() < out[j].Path() })
	return out
}
