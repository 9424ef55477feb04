package deploy

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) handle(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// take returns the recorded events as "change:name" and resets the log.
func (r *recorder) take() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Change.String()+":"+ev.Package.Name)
	}
	r.events = nil
	return out
}

func mkdir(t *testing.T, parts ...string) string {
	t.Helper()
	p := filepath.Join(parts...)
	require.NoError(t, os.MkdirAll(p, 0o755))
	return p
}

func touch(t *testing.T, p string, content string, mod time.Time) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	require.NoError(t, os.Chtimes(p, mod, mod))
}

func TestScanner_Scan(t *testing.T) {
	dir := t.TempDir()
	past := time.Now().Add(-time.Hour)

	mkdir(t, dir, "app1")
	touch(t, filepath.Join(dir, "shop.war"), "zip", past)
	mkdir(t, dir, ".hidden")
	mkdir(t, dir, "conf.d")
	mkdir(t, dir, "CVS")
	touch(t, filepath.Join(dir, "notes.txt"), "x", past)

	rec := &recorder{}
	s := NewScanner(dir, time.Second, rec.handle, zap.NewNop())

	require.NoError(t, s.Scan(true))
	assert.Equal(t, []string{"added:app1", "added:shop.war"}, rec.take())

	t.Run("NothingChanged", func(t *testing.T) {
		require.NoError(t, s.Scan(false))
		assert.Empty(t, rec.take())
	})

	t.Run("AddedAfterStable", func(t *testing.T) {
		mkdir(t, dir, "app2")
		require.NoError(t, s.Scan(false))
		assert.Empty(t, rec.take(), "first sighting is only pending")
		require.NoError(t, s.Scan(false))
		assert.Equal(t, []string{"added:app2"}, rec.take())
	})

	t.Run("GrowingArchiveWaits", func(t *testing.T) {
		war := filepath.Join(dir, "big.war")
		touch(t, war, "part", past)
		require.NoError(t, s.Scan(false))
		touch(t, war, "partial-more", past.Add(time.Second))
		require.NoError(t, s.Scan(false))
		assert.Empty(t, rec.take())
		require.NoError(t, s.Scan(false))
		assert.Equal(t, []string{"added:big.war"}, rec.take())
	})

	t.Run("DescriptorChanged", func(t *testing.T) {
		touch(t, filepath.Join(dir, "app1", "WEB-INF", "web.xml"), "<web-app/>", time.Now().Add(time.Minute))
		require.NoError(t, s.Scan(false))
		require.NoError(t, s.Scan(false))
		assert.Equal(t, []string{"changed:app1"}, rec.take())
	})

	t.Run("Removed", func(t *testing.T) {
		require.NoError(t, os.Remove(filepath.Join(dir, "shop.war")))
		require.NoError(t, s.Scan(false))
		assert.Equal(t, []string{"removed:shop.war"}, rec.take())
	})
}

func TestScanner_ArchiveWinsOverDirectory(t *testing.T) {
	dir := t.TempDir()
	mkdir(t, dir, "store")
	touch(t, filepath.Join(dir, "store.war"), "zip", time.Now())
	mkdir(t, dir, "ROOT")

	found, err := discover(dir)
	require.NoError(t, err)
	assert.Len(t, found, 2)
	assert.Contains(t, found, "store.war")
	assert.Contains(t, found, "ROOT")
	assert.Equal(t, "/", found["ROOT"].pkg.ContextPath())
}

func TestScanner_MissingDir(t *testing.T) {
	s := NewScanner(filepath.Join(t.TempDir(), "gone"), time.Second, func(Event) {}, zap.NewNop())
	assert.Error(t, s.Start())
}

func TestScanner_Background(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	s := NewScanner(dir, 20*time.Millisecond, rec.handle, zap.NewNop())
	require.NoError(t, s.Start())
	defer s.Stop()

	mkdir(t, dir, "late")

	var got []string
	require.Eventually(t, func() bool {
		got = append(got, rec.take()...)
		return len(got) > 0
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"added:late"}, got)

	s.Stop()
	s.Stop()
}
