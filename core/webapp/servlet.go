package webapp

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ErrUnknownServletClass is returned when a descriptor names a class that
// no feature registered.
var ErrUnknownServletClass = errors.New("unknown servlet class")

// Request carries the servlet view of a dispatched request.
type Request struct {
	Context     *Context
	ServletPath string
	PathInfo    string
}

// PathInContext is the request path relative to the context path.
func (r *Request) PathInContext() string {
	return r.ServletPath + r.PathInfo
}

// Servlet handles requests mapped to it within one context.
type Servlet interface {
	Serve(c *fiber.Ctx, r *Request) error
}

// ServletFunc adapts a function to the Servlet interface.
type ServletFunc func(c *fiber.Ctx, r *Request) error

// Serve calls f(c, r).
func (f ServletFunc) Serve(c *fiber.Ctx, r *Request) error {
	return f(c, r)
}

// ServletConfig is handed to a factory when a context instantiates a servlet.
type ServletConfig struct {
	Name       string
	InitParams map[string]string
	Context    *Context
	Logger     *zap.Logger
}

// InitParameter returns the named init-param or def when unset.
func (c ServletConfig) InitParameter(name, def string) string {
	if v, ok := c.InitParams[name]; ok {
		return v
	}
	return def
}

// Factory builds a servlet instance for a context.
type Factory func(cfg ServletConfig) (Servlet, error)

// Registry maps servlet class names to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates a registry holding the built-in static class.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	r.factories[StaticClass] = newStaticServlet
	return r
}

// Register adds a servlet class. Registering a class twice is an error.
func (r *Registry) Register(class string, f Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if class == "" || f == nil {
		return errors.New("servlet class needs a name and a factory")
	}
	if _, exists := r.factories[class]; exists {
		return fmt.Errorf("servlet class %q already registered", class)
	}
	r.factories[class] = f
	return nil
}

// New instantiates class with cfg.
func (r *Registry) New(class string, cfg ServletConfig) (Servlet, error) {
	r.mu.RLock()
	f, ok := r.factories[class]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownServletClass, class)
	}
	return f(cfg)
}

// Classes lists the registered class names in order.
func (r *Registry) Classes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.factories))
	for class := range r.factories {
		out = append(out, class)
	}
	sort.Strings(out)
	return out
}
