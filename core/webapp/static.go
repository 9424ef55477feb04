package webapp

import (
	"errors"
	"fmt"
	"html"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"time"

	"appserver/core/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// StaticClass is the servlet class serving package files.
const StaticClass = "static"

// Init params understood by the static servlet.
const (
	ParamDirAllowed = "dirAllowed"
	ParamMaxAge     = "maxAge"
)

type staticServlet struct {
	ctx        *Context
	dirAllowed bool
	maxAge     int
	logger     *zap.Logger
}

func newStaticServlet(cfg ServletConfig) (Servlet, error) {
	if cfg.Context == nil {
		return nil, errors.New("static servlet needs a context")
	}
	return &staticServlet{
		ctx:        cfg.Context,
		dirAllowed: utils.ToBool(cfg.InitParameter(ParamDirAllowed, ""), false),
		maxAge:     utils.ToInt(cfg.InitParameter(ParamMaxAge, ""), 0),
		logger:     cfg.Logger,
	}, nil
}

func (s *staticServlet) Serve(c *fiber.Ctx, r *Request) error {
	if c.Method() != fiber.MethodGet && c.Method() != fiber.MethodHead {
		c.Set(fiber.HeaderAllow, "GET, HEAD")
		return c.SendStatus(fiber.StatusMethodNotAllowed)
	}

	reqPath := r.PathInContext()
	name, ok := resourceName(reqPath)
	if !ok {
		return c.SendStatus(fiber.StatusNotFound)
	}

	fsys := s.ctx.FS()
	info, err := fs.Stat(fsys, name)
	if errors.Is(err, fs.ErrNotExist) {
		return c.SendStatus(fiber.StatusNotFound)
	}
	if err != nil {
		return err
	}

	if !info.IsDir() {
		return s.sendFile(c, name, info)
	}

	if !strings.HasSuffix(reqPath, "/") {
		return c.Redirect(s.redirectTarget(c, reqPath+"/"), fiber.StatusFound)
	}
	for _, welcome := range s.ctx.WelcomeFiles() {
		candidate := path.Join(name, welcome)
		if wi, err := fs.Stat(fsys, candidate); err == nil && !wi.IsDir() {
			return s.sendFile(c, candidate, wi)
		}
	}
	if s.dirAllowed {
		return s.sendListing(c, name, reqPath)
	}
	return c.SendStatus(fiber.StatusForbidden)
}

// resourceName maps a context-relative request path to an fs.FS name.
// Paths inside WEB-INF or META-INF are reported as absent.
func resourceName(p string) (string, bool) {
	name := strings.TrimPrefix(path.Clean("/"+p), "/")
	if name == "" {
		return ".", true
	}
	if !fs.ValidPath(name) {
		return "", false
	}
	first, _, _ := strings.Cut(name, "/")
	if strings.EqualFold(first, "WEB-INF") || strings.EqualFold(first, "META-INF") {
		return "", false
	}
	return name, true
}

func (s *staticServlet) redirectTarget(c *fiber.Ctx, reqPath string) string {
	target := strings.TrimSuffix(s.ctx.Path(), "/") + reqPath
	if q := c.Request().URI().QueryString(); len(q) > 0 {
		target += "?" + string(q)
	}
	return target
}

func (s *staticServlet) sendFile(c *fiber.Ctx, name string, info fs.FileInfo) error {
	mod := info.ModTime()
	if !mod.IsZero() {
		if ims := c.Get(fiber.HeaderIfModifiedSince); ims != "" {
			if t, err := http.ParseTime(ims); err == nil && !mod.Truncate(time.Second).After(t) {
				return c.SendStatus(fiber.StatusNotModified)
			}
		}
		c.Set(fiber.HeaderLastModified, mod.UTC().Format(http.TimeFormat))
	}
	if s.maxAge > 0 {
		c.Set(fiber.HeaderCacheControl, fmt.Sprintf("max-age=%d", s.maxAge))
	}

	// the whole read happens under the context's read lock
	data, err := fs.ReadFile(s.ctx.FS(), name)
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, s.ctx.ContentType(name))
	return c.Status(fiber.StatusOK).Send(data)
}

func (s *staticServlet) sendListing(c *fiber.Ctx, name, reqPath string) error {
	entries, err := fs.ReadDir(s.ctx.FS(), name)
	if err != nil {
		return err
	}
	base := strings.TrimSuffix(s.ctx.Path(), "/") + reqPath
	title := html.EscapeString(base)

	var b strings.Builder
	fmt.Fprintf(&b, "<html><head><title>Directory: %s</title></head><body><h1>Directory: %s</h1><ul>\n", title, title)
	for _, e := range entries {
		entry := e.Name()
		if strings.EqualFold(entry, "WEB-INF") || strings.EqualFold(entry, "META-INF") {
			continue
		}
		if e.IsDir() {
			entry += "/"
		}
		fmt.Fprintf(&b, "<li><a href=\"%s\">%s</a></li>\n", html.EscapeString(base+entry), html.EscapeString(entry))
	}
	b.WriteString("</ul></body></html>\n")

	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	s.logger.Debug("Serving directory listing", zap.String("path", base))
	return c.Status(fiber.StatusOK).SendString(b.String())
}
