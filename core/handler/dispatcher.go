package handler

import (
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"appserver/core/logger"
	"appserver/core/webapp"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Dispatcher routes requests to registered contexts.
type Dispatcher struct {
	logger *zap.Logger

	mu sync.RWMutex
	// contexts is sorted by descending path length for longest-prefix lookup.
	contexts []*webapp.Context
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher(logger *zap.Logger) *Dispatcher {
	return &Dispatcher{logger: logger}
}

// Name identifies the handler in the chain.
func (d *Dispatcher) Name() string { return "contexts" }

// Register makes ctx routable. Context paths are unique.
func (d *Dispatcher) Register(ctx *webapp.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, existing := range d.contexts {
		if existing.Path() == ctx.Path() {
			return fmt.Errorf("context path %s already served by %s", ctx.Path(), existing.Package().Name)
		}
	}
	contexts := append(append([]*webapp.Context(nil), d.contexts...), ctx)
	sort.SliceStable(contexts, func(i, j int) bool {
		return len(contexts[i].Path()) > len(contexts[j].Path())
	})
	d.contexts = contexts
	return nil
}

// Unregister removes the context serving contextPath and returns it.
func (d *Dispatcher) Unregister(contextPath string) (*webapp.Context, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i, ctx := range d.contexts {
		if ctx.Path() == contextPath {
			contexts := append([]*webapp.Context(nil), d.contexts[:i]...)
			d.contexts = append(contexts, d.contexts[i+1:]...)
			return ctx, true
		}
	}
	return nil, false
}

// Contexts returns the registered contexts ordered by path.
func (d *Dispatcher) Contexts() []*webapp.Context {
	d.mu.RLock()
	out := append([]*webapp.Context(nil), d.contexts...)
	d.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Path() < out[j].Path() })
	return out
}

// Lookup returns the context whose path is the longest prefix of p.
func (d *Dispatcher) Lookup(p string) *webapp.Context {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, ctx := range d.contexts {
		cp := ctx.Path()
		if cp == "/" || p == cp || strings.HasPrefix(p, cp+"/") {
			return ctx
		}
	}
	return nil
}

// Handle serves the request from the matching context or passes it on.
func (d *Dispatcher) Handle(c *fiber.Ctx) error {
	p := cleanPath(c.Path())
	ctx := d.Lookup(p)
	if ctx == nil {
		return c.Next()
	}

	cp := ctx.Path()
	if cp != "/" && p == cp {
		target := cp + "/"
		if q := c.Request().URI().QueryString(); len(q) > 0 {
			target += "?" + string(q)
		}
		return c.Redirect(target, fiber.StatusFound)
	}

	inContext := p
	if cp != "/" {
		inContext = p[len(cp):]
	}

	served, err := ctx.Serve(c, inContext)
	if !served {
		// undeployed between lookup and serve
		logger.WithRayID(d.logger, c).Debug("Context went away, falling through", zap.String("context", cp))
		return c.Next()
	}
	return err
}

// cleanPath resolves dot segments and repeated slashes, keeping a trailing
// slash.
func cleanPath(p string) string {
	if p == "" {
		return "/"
	}
	cleaned := path.Clean("/" + p)
	if strings.HasSuffix(p, "/") && cleaned != "/" {
		cleaned += "/"
	}
	return cleaned
}
