package handler

import (
	"fmt"
	"html"
	"strings"

	"appserver/core/webapp"

	"github.com/gofiber/fiber/v2"
)

// ContextLister exposes the deployed contexts to the fallback page.
type ContextLister interface {
	Contexts() []*webapp.Context
}

// Fallback answers requests no context claimed.
type Fallback struct {
	contexts ContextLister
}

// NewFallback creates the fallback handler. contexts may be nil to hide the
// context listing.
func NewFallback(contexts ContextLister) *Fallback {
	return &Fallback{contexts: contexts}
}

// Name identifies the handler in the chain.
func (f *Fallback) Name() string { return "fallback" }

// Handle always responds 404. GET requests get a page listing the
// deployed contexts.
func (f *Fallback) Handle(c *fiber.Ctx) error {
	c.Status(fiber.StatusNotFound)
	if c.Method() != fiber.MethodGet || f.contexts == nil {
		return nil
	}

	var b strings.Builder
	b.WriteString("<html><head><title>Error 404 - Not Found</title></head><body>\n")
	b.WriteString("<h2>Error 404 - Not Found.</h2>\n")
	fmt.Fprintf(&b, "No context on this server matched or handled this request: %s\n", html.EscapeString(c.Path()))

	contexts := f.contexts.Contexts()
	if len(contexts) > 0 {
		b.WriteString("<p>Contexts known to this server are:</p>\n<ul>\n")
		for _, ctx := range contexts {
			href := ctx.Path()
			if href != "/" {
				href += "/"
			}
			fmt.Fprintf(&b, "<li><a href=\"%s\">%s</a> ---&gt; %s</li>\n",
				html.EscapeString(href), html.EscapeString(ctx.Path()), html.EscapeString(ctx.Name()))
		}
		b.WriteString("</ul>\n")
	}
	b.WriteString("</body></html>\n")

	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.SendString(b.String())
}
