package webapp

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"path"
	"strings"
	"sync"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Options controls how a package becomes a Context.
type Options struct {
	// Defaults is the shared descriptor layered under every package.
	Defaults *Descriptor
	// Servlets resolves servlet-class names.
	Servlets *Registry
	// Extract unpacks archives instead of serving them in place.
	Extract bool
	// TempDir is the parent of extraction directories, os.TempDir when empty.
	TempDir string
	Logger  *zap.Logger
}

// Context is a deployed web application.
type Context struct {
	pkg        Package
	path       string
	descriptor *Descriptor
	fsys       fs.FS
	closer     io.Closer
	mapper     *Mapper
	servlets   map[string]Servlet
	mimeTypes  map[string]string
	params     map[string]string
	logger     *zap.Logger

	// mu is held shared by requests and exclusively by Close, so closing
	// waits for in-flight requests.
	mu     sync.RWMutex
	closed bool
}

// Load opens pkg, layers its descriptor over the defaults and instantiates
// its servlets.
func Load(pkg Package, opts Options) (*Context, error) {
	if opts.Servlets == nil {
		opts.Servlets = NewRegistry()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	fsys, closer, err := pkg.Open(opts.Extract, opts.TempDir)
	if err != nil {
		return nil, err
	}

	ctx, err := newContext(pkg, fsys, closer, opts)
	if err != nil {
		_ = closer.Close()
		return nil, err
	}
	return ctx, nil
}

func newContext(pkg Package, fsys fs.FS, closer io.Closer, opts Options) (*Context, error) {
	own, err := readDescriptor(fsys)
	if err != nil {
		return nil, err
	}

	desc := Merge(opts.Defaults, own)
	if err := desc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid descriptor: %w", err)
	}

	c := &Context{
		pkg:        pkg,
		path:       pkg.ContextPath(),
		descriptor: desc,
		fsys:       fsys,
		closer:     closer,
		mapper:     NewMapper(desc.Mappings),
		servlets:   make(map[string]Servlet, len(desc.Servlets)),
		mimeTypes:  make(map[string]string, len(desc.MimeMappings)),
		params:     InitParams(desc.ContextParams),
	}
	c.logger = opts.Logger.With(zap.String("context", c.path))
	for _, mm := range desc.MimeMappings {
		c.mimeTypes[mm.Extension] = mm.MimeType
	}

	for _, def := range desc.Servlets {
		s, err := opts.Servlets.New(def.Class, ServletConfig{
			Name:       def.Name,
			InitParams: InitParams(def.InitParams),
			Context:    c,
			Logger:     c.logger.With(zap.String("servlet", def.Name)),
		})
		if err != nil {
			return nil, fmt.Errorf("servlet %q: %w", def.Name, err)
		}
		c.servlets[def.Name] = s
	}
	return c, nil
}

func readDescriptor(fsys fs.FS) (*Descriptor, error) {
	f, err := fsys.Open(DescriptorPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	d, err := ParseDescriptor(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", DescriptorPath, err)
	}
	return d, nil
}

// Path returns the context path, "/" for the root context.
func (c *Context) Path() string { return c.path }

// Package returns the package the context was loaded from.
func (c *Context) Package() Package { return c.pkg }

// Name is the display name, falling back to the package name.
func (c *Context) Name() string {
	if c.descriptor.DisplayName != "" {
		return c.descriptor.DisplayName
	}
	return c.pkg.Name
}

// FS returns the package content.
func (c *Context) FS() fs.FS { return c.fsys }

// Descriptor returns the layered descriptor.
func (c *Context) Descriptor() *Descriptor { return c.descriptor }

// InitParameter returns a context-param value.
func (c *Context) InitParameter(name string) string { return c.params[name] }

// WelcomeFiles lists the welcome files in resolution order.
func (c *Context) WelcomeFiles() []string { return c.descriptor.WelcomeFiles }

// RequestEncoding is the declared request character encoding, if any.
func (c *Context) RequestEncoding() string { return c.descriptor.RequestEncoding }

// ResponseEncoding is the declared response character encoding, if any.
func (c *Context) ResponseEncoding() string { return c.descriptor.ResponseEncoding }

// ContentType resolves the content type for a resource name: descriptor
// mime mappings first, then the system table. Text types get the declared
// response encoding when they carry no charset.
func (c *Context) ContentType(name string) string {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
	ct, ok := c.mimeTypes[ext]
	if !ok && ext != "" {
		ct = mime.TypeByExtension("." + ext)
	}
	if ct == "" {
		return fiber.MIMEOctetStream
	}
	if enc := c.ResponseEncoding(); enc != "" && strings.HasPrefix(ct, "text/") && !strings.Contains(ct, "charset=") {
		ct += "; charset=" + enc
	}
	return ct
}

// Serve dispatches a request whose path, relative to the context, is
// pathInContext. It reports false when the context has been closed and the
// request should fall through to the next handler.
func (c *Context) Serve(fc *fiber.Ctx, pathInContext string) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return false, nil
	}

	m, ok := c.mapper.Match(pathInContext)
	if !ok {
		return true, fc.SendStatus(fiber.StatusNotFound)
	}
	s := c.servlets[m.Servlet]
	return true, s.Serve(fc, &Request{Context: c, ServletPath: m.ServletPath, PathInfo: m.PathInfo})
}

// Close waits for in-flight requests, then releases the package content.
// Requests arriving afterwards fall through.
func (c *Context) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.closer.Close()
}
