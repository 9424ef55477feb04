package deploy

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"appserver/core/webapp"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Change classifies a scan result.
type Change int

const (
	Added Change = iota
	Changed
	Removed
)

func (c Change) String() string {
	switch c {
	case Added:
		return "added"
	case Changed:
		return "changed"
	case Removed:
		return "removed"
	default:
		return "unknown"
	}
}

// Event is one package change reported by the scanner.
type Event struct {
	Change  Change
	Package webapp.Package
}

// maxSettle bounds the quiet period after a filesystem notification before
// the directory is rescanned.
const maxSettle = 100 * time.Millisecond

type fingerprint struct {
	modTime    int64
	size       int64
	descriptor int64
}

type entry struct {
	pkg webapp.Package
	fp  fingerprint
}

// Scanner watches one directory for deployable packages. Changes are
// reported to handle from a single goroutine.
type Scanner struct {
	dir      string
	interval time.Duration
	handle   func(Event)
	logger   *zap.Logger

	known   map[string]entry
	pending map[string]fingerprint

	cancel context.CancelFunc
	done   chan struct{}
}

// NewScanner creates a scanner for dir.
func NewScanner(dir string, interval time.Duration, handle func(Event), logger *zap.Logger) *Scanner {
	return &Scanner{
		dir:      dir,
		interval: interval,
		handle:   handle,
		logger:   logger.With(zap.String("dir", dir)),
		known:    make(map[string]entry),
		pending:  make(map[string]fingerprint),
	}
}

// Start reports every package already present, then keeps watching in the
// background until Stop.
func (s *Scanner) Start() error {
	if err := s.Scan(true); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err == nil {
		if err = watcher.Add(s.dir); err != nil {
			_ = watcher.Close()
			watcher = nil
		}
	}
	if err != nil {
		s.logger.Warn("Filesystem notifications unavailable, polling only", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.run(ctx, watcher)
	return nil
}

// Stop ends background watching and waits for the loop to exit.
func (s *Scanner) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.cancel = nil
}

func (s *Scanner) run(ctx context.Context, watcher *fsnotify.Watcher) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	settleFor := min(s.interval, maxSettle)
	settle := time.NewTimer(settleFor)
	settle.Stop()
	defer settle.Stop()

	var events <-chan fsnotify.Event
	var errs <-chan error
	if watcher != nil {
		defer watcher.Close()
		events = watcher.Events
		errs = watcher.Errors
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.rescan()
		case <-settle.C:
			s.rescan()
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			s.logger.Debug("Filesystem event", zap.String("name", ev.Name), zap.String("op", ev.Op.String()))
			settle.Reset(settleFor)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			s.logger.Warn("Filesystem watcher error", zap.Error(err))
		}
	}
}

func (s *Scanner) rescan() {
	if err := s.Scan(false); err != nil {
		s.logger.Warn("Scan failed", zap.Error(err))
	}
}

// Scan compares the directory against the last committed state and reports
// the differences. Outside the initial scan a new or modified entry is only
// reported once it looks the same on two consecutive scans. Scan must not be
// called concurrently with the background loop.
func (s *Scanner) Scan(initial bool) error {
	current, err := discover(s.dir)
	if err != nil {
		return err
	}

	var removed []string
	for name := range s.known {
		if _, ok := current[name]; !ok {
			removed = append(removed, name)
		}
	}
	sort.Strings(removed)
	for name := range s.pending {
		if _, ok := current[name]; !ok {
			delete(s.pending, name)
		}
	}

	names := make([]string, 0, len(current))
	for name := range current {
		names = append(names, name)
	}
	sort.Strings(names)

	var events []Event
	for _, name := range removed {
		events = append(events, Event{Change: Removed, Package: s.known[name].pkg})
		delete(s.known, name)
	}
	for _, name := range names {
		cur := current[name]
		prev, deployed := s.known[name]
		if deployed && prev.fp == cur.fp {
			delete(s.pending, name)
			continue
		}
		if !initial {
			if fp, ok := s.pending[name]; !ok || fp != cur.fp {
				s.pending[name] = cur.fp
				continue
			}
		}
		delete(s.pending, name)
		s.known[name] = cur

		change := Added
		if deployed {
			change = Changed
		}
		events = append(events, Event{Change: change, Package: cur.pkg})
	}

	for _, ev := range events {
		s.logger.Debug("Package change", zap.String("package", ev.Package.Name), zap.Stringer("change", ev.Change))
		s.handle(ev)
	}
	return nil
}

// discover lists deployable entries keyed by name. When a directory and an
// archive map to the same context path the archive wins.
func discover(dir string) (map[string]entry, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	found := make(map[string]entry)
	byContext := make(map[string]string)
	for _, de := range dirEntries {
		name := de.Name()
		if skipEntry(name) {
			continue
		}
		full := filepath.Join(dir, name)
		info, err := os.Stat(full)
		if err != nil {
			// removed while scanning
			continue
		}

		var pkg webapp.Package
		switch {
		case info.IsDir():
			pkg = webapp.Package{Name: name, Path: full}
		case strings.EqualFold(filepath.Ext(name), webapp.ArchiveExt):
			pkg = webapp.Package{Name: name, Path: full, Archive: true}
		default:
			continue
		}

		fp := fingerprint{modTime: info.ModTime().UnixNano(), size: info.Size()}
		if !pkg.Archive {
			if di, err := os.Stat(filepath.Join(full, filepath.FromSlash(webapp.DescriptorPath))); err == nil {
				fp.descriptor = di.ModTime().UnixNano()
			}
		}

		cp := pkg.ContextPath()
		if other, ok := byContext[cp]; ok {
			if found[other].pkg.Archive || !pkg.Archive {
				continue
			}
			delete(found, other)
		}
		byContext[cp] = name
		found[name] = entry{pkg: pkg, fp: fp}
	}
	return found, nil
}

func skipEntry(name string) bool {
	return strings.HasPrefix(name, ".") ||
		strings.HasSuffix(strings.ToLower(name), ".d") ||
		strings.EqualFold(name, "CVS")
}
