package handler

import "github.com/gofiber/fiber/v2"

// Handler is a named member of the chain.
type Handler interface {
	Name() string
	Handle(c *fiber.Ctx) error
}

// Chain is the ordered pair [dispatcher, fallback].
type Chain struct {
	dispatcher *Dispatcher
	fallback   Handler
}

// NewChain builds the chain. The fallback is always installed after the
// dispatcher.
func NewChain(dispatcher *Dispatcher, fallback Handler) *Chain {
	return &Chain{dispatcher: dispatcher, fallback: fallback}
}

// Dispatcher returns the context dispatcher.
func (c *Chain) Dispatcher() *Dispatcher { return c.dispatcher }

// Handlers returns the chain members in installation order.
func (c *Chain) Handlers() []Handler {
	return []Handler{c.dispatcher, c.fallback}
}

// Install registers the chain on r.
func (c *Chain) Install(r fiber.Router) {
	for _, h := range c.Handlers() {
		r.Use(h.Handle)
	}
}
