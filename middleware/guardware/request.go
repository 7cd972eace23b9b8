package guardware

import (
	"github.com/gofiber/fiber/v2"
)

// Request adapts a fiber context to bridge.Request.
type Request struct {
	c *fiber.Ctx
}

// NewRequest wraps c.
func NewRequest(c *fiber.Ctx) Request {
	return Request{c: c}
}

func (r Request) Header(name string) string {
	return r.c.Get(name)
}

func (r Request) Cookie(name string) string {
	return r.c.Cookies(name)
}

// Input reads the query string first, then the form body.
func (r Request) Input(name string) string {
	if v := r.c.Query(name); v != "" {
		return v
	}
	return r.c.FormValue(name)
}
