package webtest_test

import (
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"appserver/core/handler"
	"appserver/core/webapp"
	"appserver/feature/webtest"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const defaultsXML = `<web-app>
  <servlet><servlet-name>default</servlet-name><servlet-class>static</servlet-class></servlet>
  <servlet-mapping><servlet-name>default</servlet-name><url-pattern>/</url-pattern></servlet-mapping>
</web-app>`

const appXML = `<web-app>
  <servlet><servlet-name>webtest</servlet-name><servlet-class>webtest</servlet-class></servlet>
  <servlet-mapping><servlet-name>webtest</servlet-name><url-pattern>/diagnostic</url-pattern></servlet-mapping>
</web-app>`

func setup(t *testing.T) *fiber.App {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "webtest")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "WEB-INF"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, webapp.DescriptorPath), []byte(appXML), 0o644))

	defaults, err := webapp.ParseDescriptor(strings.NewReader(defaultsXML))
	require.NoError(t, err)

	servlets := webapp.NewRegistry()
	feature := webtest.NewFeature(true, zap.NewNop())
	require.True(t, feature.IsEnabled())
	require.NoError(t, feature.Load(servlets))

	ctx, err := webapp.Load(webapp.Package{Name: "webtest", Path: dir}, webapp.Options{
		Defaults: defaults,
		Servlets: servlets,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = ctx.Close() })

	d := handler.NewDispatcher(zap.NewNop())
	require.NoError(t, d.Register(ctx))

	app := fiber.New(fiber.Config{UnescapePath: true})
	handler.NewChain(d, handler.NewFallback(d)).Install(app)
	return app
}

func TestServlet_EchoUTF8(t *testing.T) {
	app := setup(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/webtest/diagnostic?hello=%E4%BD%A0%E5%A5%BD", nil))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/html; charset=UTF-8", resp.Header.Get(fiber.HeaderContentType))
	assert.Equal(t, "<h1>You say:你好</h1>\n", string(body))
}

func TestServlet_EscapesMarkup(t *testing.T) {
	app := setup(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/webtest/diagnostic?hello=%3Cscript%3E", nil))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "&lt;script&gt;")
	assert.NotContains(t, string(body), "<script>")
}

func TestServlet_MissingParameter(t *testing.T) {
	app := setup(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/webtest/diagnostic", nil))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "<h1>You say:</h1>\n", string(body))
}

func TestServlet_RejectsPost(t *testing.T) {
	app := setup(t)

	resp, err := app.Test(httptest.NewRequest("POST", "/webtest/diagnostic?hello=x", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusMethodNotAllowed, resp.StatusCode)
	assert.Equal(t, "GET, HEAD", resp.Header.Get(fiber.HeaderAllow))
}

func TestFeature_Disabled(t *testing.T) {
	f := webtest.NewFeature(false, zap.NewNop())
	assert.Equal(t, "webtest", f.Name())
	assert.False(t, f.IsEnabled())
}
