package deploy

import (
	"fmt"
	"os"
	"time"

	"appserver/core/utils"
)

const (
	// MonitoredDirName is the directory below base that holds packages.
	MonitoredDirName = "webapps"
	// DefaultsDescriptorName is the shared descriptor below base.
	DefaultsDescriptorName = "webdefault.xml"
)

// Config holds deployment settings loaded from the environment.
type Config struct {
	// ScanInterval is how often the monitored directory is rescanned.
	ScanInterval time.Duration `mapstructure:"scan_interval" default:"1s"`
	// Extract unpacks archives into TempDir instead of serving them in place.
	Extract bool `mapstructure:"extract" default:"false"`
	// TempDir is the parent of extraction directories.
	TempDir string `mapstructure:"temp_dir" default:""`
}

// WatcherConfig describes what the web-app provider watches.
type WatcherConfig struct {
	MonitoredDir       string
	DefaultsDescriptor string
	ExtractPackages    bool
	ScanInterval       time.Duration
	TempDir            string
}

// NewWatcherConfig derives the watcher paths from the base directory.
func NewWatcherConfig(base string, cfg Config) WatcherConfig {
	return WatcherConfig{
		MonitoredDir:       utils.JoinPath(base, MonitoredDirName),
		DefaultsDescriptor: utils.JoinPath(base, DefaultsDescriptorName),
		ExtractPackages:    cfg.Extract,
		ScanInterval:       cfg.ScanInterval,
		TempDir:            cfg.TempDir,
	}
}

// Validate checks that the monitored directory and the defaults
// descriptor exist.
func (w WatcherConfig) Validate() error {
	info, err := os.Stat(w.MonitoredDir)
	if err != nil {
		return fmt.Errorf("monitored directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("monitored directory %s is not a directory", w.MonitoredDir)
	}

	info, err = os.Stat(w.DefaultsDescriptor)
	if err != nil {
		return fmt.Errorf("defaults descriptor: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("defaults descriptor %s is a directory", w.DefaultsDescriptor)
	}

	if w.ScanInterval <= 0 {
		return fmt.Errorf("scan interval must be positive, got %s", w.ScanInterval)
	}
	return nil
}
