package deploy

import (
	"fmt"

	"appserver/core/webapp"

	"go.uber.org/zap"
)

// WebAppProvider deploys the packages found in the monitored directory.
type WebAppProvider struct {
	cfg      WatcherConfig
	defaults *webapp.Descriptor
	servlets *webapp.Registry
	logger   *zap.Logger

	manager *Manager
	scanner *Scanner
}

// NewWebAppProvider validates cfg and loads the defaults descriptor.
func NewWebAppProvider(cfg WatcherConfig, servlets *webapp.Registry, logger *zap.Logger) (*WebAppProvider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	defaults, err := webapp.LoadDescriptorFile(cfg.DefaultsDescriptor)
	if err != nil {
		return nil, fmt.Errorf("defaults descriptor: %w", err)
	}
	if err := webapp.Merge(defaults, nil).Validate(); err != nil {
		return nil, fmt.Errorf("defaults descriptor %s: %w", cfg.DefaultsDescriptor, err)
	}

	return &WebAppProvider{
		cfg:      cfg,
		defaults: defaults,
		servlets: servlets,
		logger:   logger,
	}, nil
}

// Name identifies the provider.
func (p *WebAppProvider) Name() string { return "webapps" }

// Config returns the watcher configuration.
func (p *WebAppProvider) Config() WatcherConfig { return p.cfg }

// Start performs the initial scan, deploying what is present, and keeps
// watching the monitored directory.
func (p *WebAppProvider) Start(m *Manager) error {
	p.manager = m
	p.scanner = NewScanner(p.cfg.MonitoredDir, p.cfg.ScanInterval, p.handle, p.logger)
	p.logger.Info("Watching for applications",
		zap.String("dir", p.cfg.MonitoredDir),
		zap.String("defaults", p.cfg.DefaultsDescriptor),
		zap.Bool("extract", p.cfg.ExtractPackages),
		zap.Duration("interval", p.cfg.ScanInterval))
	return p.scanner.Start()
}

// Stop stops watching. Deployed contexts are undeployed by the manager.
func (p *WebAppProvider) Stop() error {
	if p.scanner != nil {
		p.scanner.Stop()
	}
	return nil
}

func (p *WebAppProvider) handle(ev Event) {
	switch ev.Change {
	case Removed:
		p.undeploy(ev.Package)
	case Changed:
		p.undeploy(ev.Package)
		p.deploy(ev.Package)
	case Added:
		p.deploy(ev.Package)
	}
}

func (p *WebAppProvider) undeploy(pkg webapp.Package) {
	if err := p.manager.Undeploy(pkg.Path); err != nil {
		p.logger.Warn("Undeploy failed", zap.String("package", pkg.Name), zap.Error(err))
	}
}

func (p *WebAppProvider) deploy(pkg webapp.Package) {
	ctx, err := webapp.Load(pkg, webapp.Options{
		Defaults: p.defaults,
		Servlets: p.servlets,
		Extract:  p.cfg.ExtractPackages,
		TempDir:  p.cfg.TempDir,
		Logger:   p.logger,
	})
	if err != nil {
		p.logger.Error("Skipping package", zap.Error(&DeploymentError{Package: pkg.Name, Err: err}))
		return
	}
	if err := p.manager.Deploy(ctx); err != nil {
		_ = ctx.Close()
		p.logger.Error("Skipping package", zap.Error(err))
	}
}
