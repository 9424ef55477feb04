package webtest

import (
	"html"

	"appserver/core/webapp"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Class is the servlet class name descriptors refer to.
const Class = "webtest"

const (
	encoding    = "UTF-8"
	contentType = "text/html; charset=UTF-8"
)

// Servlet echoes the hello parameter.
type Servlet struct {
	logger *zap.Logger
}

// NewServlet is the factory registered for Class.
func NewServlet(cfg webapp.ServletConfig) (webapp.Servlet, error) {
	l := cfg.Logger
	if l == nil {
		l = zap.NewNop()
	}
	return &Servlet{logger: l.With(zap.String("servlet", cfg.Name))}, nil
}

// Serve writes the escaped hello parameter inside an h1 element.
func (s *Servlet) Serve(c *fiber.Ctx, r *webapp.Request) error {
	if c.Method() != fiber.MethodGet && c.Method() != fiber.MethodHead {
		c.Set(fiber.HeaderAllow, "GET, HEAD")
		return c.SendStatus(fiber.StatusMethodNotAllowed)
	}

	// fasthttp percent-decodes the value, the bytes are taken as UTF-8.
	hello := c.Query("hello")

	s.logger.Debug("Echo request",
		zap.String("context", r.Context.Path()),
		zap.String("declared_request_encoding", r.Context.RequestEncoding()),
		zap.String("request_encoding", encoding),
		zap.String("response_encoding", encoding),
		zap.String("hello", hello),
	)

	c.Set(fiber.HeaderContentType, contentType)
	return c.Status(fiber.StatusOK).SendString("<h1>You say:" + html.EscapeString(hello) + "</h1>\n")
}
