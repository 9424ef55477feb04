package packages

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"appserver/core/storage"
	"appserver/core/webapp"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// Report summarises one sync run.
type Report struct {
	Downloaded []string
	UpToDate   []string
	Removed    []string
	Failed     []string
}

// Service copies archives from a bucket into a directory.
type Service struct {
	client storage.Client
	bucket string
	prefix string
	dir    string
	logger *zap.Logger
}

// NewService creates a sync service writing into dir.
func NewService(client storage.Client, cfg storage.Config, dir string, logger *zap.Logger) *Service {
	return &Service{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
		dir:    dir,
		logger: logger,
	}
}

type remoteArchive struct {
	key      string
	size     int64
	modified time.Time
}

// Sync downloads missing or changed archives. Individual download failures
// are collected and do not stop the run.
func (s *Service) Sync(ctx context.Context, prune bool) (*Report, error) {
	if info, err := os.Stat(s.dir); err != nil {
		return nil, fmt.Errorf("monitored directory: %w", err)
	} else if !info.IsDir() {
		return nil, fmt.Errorf("monitored directory %s is not a directory", s.dir)
	}

	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("bucket %s does not exist", s.bucket)
	}

	remote, err := s.list(ctx)
	if err != nil {
		return nil, err
	}

	report := &Report{}
	var errs []error
	for _, name := range sortedKeys(remote) {
		obj := remote[name]
		target := filepath.Join(s.dir, name)
		if upToDate(target, obj) {
			report.UpToDate = append(report.UpToDate, name)
			continue
		}
		if err := s.download(ctx, obj, target); err != nil {
			s.logger.Error("Download failed", zap.String("key", obj.key), zap.Error(err))
			report.Failed = append(report.Failed, name)
			errs = append(errs, fmt.Errorf("%s: %w", obj.key, err))
			continue
		}
		s.logger.Info("Downloaded package", zap.String("key", obj.key), zap.Int64("size", obj.size))
		report.Downloaded = append(report.Downloaded, name)
	}

	if prune {
		removed, err := s.prune(remote)
		report.Removed = removed
		if err != nil {
			errs = append(errs, err)
		}
	}

	return report, errors.Join(errs...)
}

// list returns the archives below the prefix keyed by file name. When two
// keys share a base name the first listed wins.
func (s *Service) list(ctx context.Context) (map[string]remoteArchive, error) {
	opts := minio.ListObjectsOptions{Prefix: s.prefix, Recursive: true}

	out := make(map[string]remoteArchive)
	for obj := range s.client.ListObjects(ctx, s.bucket, opts) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", obj.Err)
		}
		name := path.Base(obj.Key)
		if !isArchive(name) || strings.HasSuffix(obj.Key, "/") {
			continue
		}
		if prev, dup := out[name]; dup {
			s.logger.Warn("Ignoring duplicate package name",
				zap.String("key", obj.Key), zap.String("kept", prev.key))
			continue
		}
		out[name] = remoteArchive{key: obj.Key, size: obj.Size, modified: obj.LastModified}
	}
	return out, nil
}

func (s *Service) download(ctx context.Context, obj remoteArchive, target string) error {
	body, err := s.client.GetObject(ctx, s.bucket, obj.key, minio.GetObjectOptions{})
	if err != nil {
		return err
	}
	defer body.Close()

	// hidden, so the watcher ignores it until the rename
	tmp, err := os.CreateTemp(s.dir, ".sync-*.part")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, body)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return err
	}
	if n != obj.size {
		return fmt.Errorf("short download: got %d of %d bytes", n, obj.size)
	}

	if !obj.modified.IsZero() {
		if err := os.Chtimes(tmp.Name(), obj.modified, obj.modified); err != nil {
			return err
		}
	}
	return os.Rename(tmp.Name(), target)
}

func (s *Service) prune(remote map[string]remoteArchive) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}

	var removed []string
	var errs []error
	for _, e := range entries {
		name := e.Name()
		if !e.Type().IsRegular() || !isArchive(name) {
			continue
		}
		if _, ok := remote[name]; ok {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil {
			errs = append(errs, err)
			continue
		}
		s.logger.Info("Removed package", zap.String("name", name))
		removed = append(removed, name)
	}
	return removed, errors.Join(errs...)
}

func isArchive(name string) bool {
	return !strings.HasPrefix(name, ".") && strings.HasSuffix(strings.ToLower(name), webapp.ArchiveExt)
}

func upToDate(target string, obj remoteArchive) bool {
	info, err := os.Stat(target)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	return info.Size() == obj.size &&
		info.ModTime().Truncate(time.Second).Equal(obj.modified.Truncate(time.Second))
}

func sortedKeys(m map[string]remoteArchive) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
