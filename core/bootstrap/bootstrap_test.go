package bootstrap_test

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"appserver/core/bootstrap"
	"appserver/core/deploy"
	"appserver/core/handler"
	"appserver/core/server"
	"appserver/core/webapp"
	"appserver/feature/webtest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const defaultsXML = `<web-app>
  <servlet><servlet-name>default</servlet-name><servlet-class>static</servlet-class></servlet>
  <servlet-mapping><servlet-name>default</servlet-name><url-pattern>/</url-pattern></servlet-mapping>
  <welcome-file-list><welcome-file>index.html</welcome-file></welcome-file-list>
</web-app>`

const webtestXML = `<web-app>
  <servlet><servlet-name>webtest</servlet-name><servlet-class>webtest</servlet-class></servlet>
  <servlet-mapping><servlet-name>webtest</servlet-name><url-pattern>/diagnostic</url-pattern></servlet-mapping>
</web-app>`

type fakeListener struct {
	addr    string
	bindErr error

	mu      sync.Mutex
	bound   bool
	started bool
	stops   int
	done    chan struct{}
	once    sync.Once
}

func (f *fakeListener) Bind() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.bindErr != nil {
		return f.bindErr
	}
	f.bound = true
	return nil
}

func (f *fakeListener) Start() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = true
	return nil
}

func (f *fakeListener) Stop(context.Context) error {
	f.mu.Lock()
	f.stops++
	f.mu.Unlock()
	f.once.Do(func() { close(f.done) })
	return nil
}

func (f *fakeListener) Join() error {
	<-f.done
	return nil
}

func (f *fakeListener) Addr() net.Addr {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.bound {
		return nil
	}
	addr, _ := net.ResolveTCPAddr("tcp4", f.addr)
	return addr
}

type recorder struct {
	calls    int
	addr     string
	chain    *handler.Chain
	listener *fakeListener
	bindErr  error
}

func (r *recorder) factory(addr string, chain *handler.Chain, _ *zap.Logger) server.Listener {
	r.calls++
	r.addr = addr
	r.chain = chain
	r.listener = &fakeListener{addr: addr, bindErr: r.bindErr, done: make(chan struct{})}
	return r.listener
}

func write(t *testing.T, p, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

func setupBase(t *testing.T) string {
	t.Helper()
	base := t.TempDir()
	write(t, filepath.Join(base, "webdefault.xml"), defaultsXML)
	write(t, filepath.Join(base, "webapps", "app1", "index.html"), "<p>app1</p>")
	write(t, filepath.Join(base, "webapps", "webtest", "WEB-INF", "web.xml"), webtestXML)
	return base
}

func defaultConfig() server.Config {
	return server.Config{Port: server.DefaultPort, ShutdownTimeout: time.Second}
}

func deployConfig() deploy.Config {
	return deploy.Config{ScanInterval: 50 * time.Millisecond}
}

func servlets(t *testing.T) *webapp.Registry {
	t.Helper()
	r := webapp.NewRegistry()
	require.NoError(t, webtest.NewFeature(true, zap.NewNop()).Load(r))
	return r
}

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantPort int
		wantBase string
		wantRest []string
		wantErr  bool
	}{
		{name: "Empty", args: nil, wantPort: 8080},
		{name: "Port", args: []string{"port=9090"}, wantPort: 9090},
		{name: "PortZero", args: []string{"port=0"}, wantPort: 0},
		{name: "PortMax", args: []string{"port=65535"}, wantPort: 65535},
		{name: "Base", args: []string{"base=/tmp/site"}, wantPort: 8080, wantBase: "/tmp/site"},
		{name: "BaseTrimmed", args: []string{"base= /tmp/site "}, wantPort: 8080, wantBase: "/tmp/site"},
		{name: "LegacyBase", args: []string{"jetty:base=/srv"}, wantPort: 8080, wantBase: "/srv"},
		{name: "Both", args: []string{"base=/a", "port=1"}, wantPort: 1, wantBase: "/a"},
		{name: "Unknown", args: []string{"--verbose", "xport=1"}, wantPort: 8080, wantRest: []string{"--verbose", "xport=1"}},
		{name: "NonNumericPort", args: []string{"port=abc"}, wantErr: true},
		{name: "NegativePort", args: []string{"port=-1"}, wantErr: true},
		{name: "PortOutOfRange", args: []string{"port=65536"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, rest, err := bootstrap.ParseArgs(defaultConfig(), tt.args)
			if tt.wantErr {
				var cfgErr *bootstrap.ConfigError
				require.ErrorAs(t, err, &cfgErr)
				assert.Equal(t, tt.args[0], cfgErr.Arg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantPort, cfg.Port)
			assert.Equal(t, tt.wantBase, cfg.Base)
			assert.Equal(t, tt.wantRest, rest)
		})
	}
}

func TestBootstrap_CreateStartStop(t *testing.T) {
	base := setupBase(t)
	rec := &recorder{}
	b := bootstrap.New(defaultConfig(), deployConfig(), servlets(t), zap.NewNop(), bootstrap.WithListenerFactory(rec.factory))

	rest, err := b.Configure([]string{"port=9123", "base=" + base, "extra"})
	require.NoError(t, err)
	assert.Equal(t, []string{"extra"}, rest)
	assert.Equal(t, 9123, b.Config().Port)
	assert.Equal(t, server.StateCreated, b.State())

	w := b.WatcherConfig()
	assert.Equal(t, base+"/webapps", w.MonitoredDir)
	assert.Equal(t, base+"/webdefault.xml", w.DefaultsDescriptor)
	assert.False(t, w.ExtractPackages)

	require.NoError(t, b.CreateServer())
	assert.Equal(t, 1, rec.calls)
	assert.Equal(t, "127.0.0.1:9123", rec.addr)

	handlers := b.Chain().Handlers()
	require.Len(t, handlers, 2)
	assert.Equal(t, "contexts", handlers[0].Name())
	assert.Equal(t, "fallback", handlers[1].Name())

	require.NoError(t, b.StartServer())
	assert.Equal(t, server.StateStarted, b.State())
	assert.True(t, rec.listener.started)
	assert.Equal(t, "127.0.0.1:9123", b.Addr())

	var paths []string
	for _, c := range b.Chain().Dispatcher().Contexts() {
		paths = append(paths, c.Path())
	}
	assert.Equal(t, []string{"/app1", "/webtest"}, paths)

	require.NoError(t, b.StopServer())
	assert.Equal(t, server.StateStopped, b.State())
	require.NoError(t, b.StopServer())
	assert.Equal(t, server.StateStopped, b.State())
	assert.Equal(t, 1, rec.listener.stops)
	assert.Empty(t, b.Chain().Dispatcher().Contexts())
}

func TestBootstrap_InvalidPortOpensNothing(t *testing.T) {
	rec := &recorder{}
	b := bootstrap.New(defaultConfig(), deployConfig(), nil, zap.NewNop(), bootstrap.WithListenerFactory(rec.factory))

	err := b.Run(context.Background(), []string{"port=abc", "base=" + setupBase(t)})
	var cfgErr *bootstrap.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, 0, rec.calls)
	assert.Equal(t, server.StateCreated, b.State())
}

func TestBootstrap_MissingBase(t *testing.T) {
	rec := &recorder{}
	b := bootstrap.New(defaultConfig(), deployConfig(), nil, zap.NewNop(), bootstrap.WithListenerFactory(rec.factory))

	_, err := b.Configure([]string{"base=" + filepath.Join(t.TempDir(), "missing")})
	require.NoError(t, err)

	err = b.CreateServer()
	var startErr *bootstrap.StartupError
	require.ErrorAs(t, err, &startErr)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Equal(t, 0, rec.calls)
}

func TestBootstrap_BindFailure(t *testing.T) {
	rec := &recorder{bindErr: errors.New("address in use")}
	b := bootstrap.New(defaultConfig(), deployConfig(), nil, zap.NewNop(), bootstrap.WithListenerFactory(rec.factory))

	err := b.Run(context.Background(), []string{"base=" + setupBase(t)})
	var startErr *bootstrap.StartupError
	require.ErrorAs(t, err, &startErr)
	assert.Equal(t, "bind", startErr.Op)
	assert.Equal(t, server.StateStopped, b.State())
	assert.Empty(t, b.Chain().Dispatcher().Contexts())
}

func TestBootstrap_StopBeforeCreate(t *testing.T) {
	b := bootstrap.New(defaultConfig(), deployConfig(), nil, zap.NewNop())
	require.NoError(t, b.StopServer())
	assert.Equal(t, server.StateStopped, b.State())
	require.NoError(t, b.StopServer())
	assert.Equal(t, server.StateStopped, b.State())
}

func TestBootstrap_RunCancelled(t *testing.T) {
	rec := &recorder{}
	b := bootstrap.New(defaultConfig(), deployConfig(), nil, zap.NewNop(), bootstrap.WithListenerFactory(rec.factory))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- b.Run(ctx, []string{"base=" + setupBase(t)}) }()

	require.Eventually(t, func() bool { return b.State() == server.StateStarted }, 5*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Equal(t, server.StateStopped, b.State())
}

func TestBootstrap_StopRightAfterStart(t *testing.T) {
	b := bootstrap.New(defaultConfig(), deployConfig(), servlets(t), zap.NewNop())
	_, err := b.Configure([]string{"port=0", "base=" + setupBase(t)})
	require.NoError(t, err)
	require.NoError(t, b.CreateServer())
	require.NoError(t, b.StartServer())
	addr := b.Addr()

	require.NoError(t, b.StopServer())
	assert.Equal(t, server.StateStopped, b.State())

	joined := make(chan error, 1)
	go func() { joined <- b.Join() }()
	select {
	case err := <-joined:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Join did not return after StopServer")
	}

	conn, err := net.DialTimeout("tcp4", addr, 200*time.Millisecond)
	if err == nil {
		conn.Close()
	}
	assert.Error(t, err, "socket still accepting after StopServer")
}

func TestBootstrap_EndToEnd(t *testing.T) {
	base := setupBase(t)
	b := bootstrap.New(defaultConfig(), deployConfig(), servlets(t), zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- b.Run(ctx, []string{"port=0", "base=" + base}) }()
	t.Cleanup(func() {
		cancel()
		<-errCh
	})

	require.Eventually(t, func() bool { return b.State() == server.StateStarted }, 5*time.Second, 10*time.Millisecond)
	addr := b.Addr()
	require.NotEmpty(t, addr)

	get := func(path string) (int, string) {
		resp, err := http.Get("http://" + addr + path)
		require.NoError(t, err)
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return resp.StatusCode, string(body)
	}

	status, body := get("/app1/index.html")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "<p>app1</p>", body)

	status, body = get("/webtest/diagnostic?hello=%E4%BD%A0%E5%A5%BD")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "你好")

	status, _ = get("/webtest/WEB-INF/web.xml")
	assert.Equal(t, http.StatusNotFound, status)

	status, body = get("/nowhere")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, body, "/app1")

	// hot deployment
	write(t, filepath.Join(base, "webapps", "app2", "index.html"), "<p>app2</p>")
	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/app2/index.html")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)
}
