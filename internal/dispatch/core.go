package dispatch

import (
	"context"
	"fmt"
	"log"

	"github.com/standardbeagle/droidctl/internal/registry"
)

// Core turns one Request into one Response: registry lookup, parameter
// validation, handler execution, result encoding. It is stateless and
// shared by every transport (stdio, socket, websocket, MCP facade).
type Core struct {
	registry *registry.Registry
}

// NewCore creates a Core over a fully populated registry.
func NewCore(r *registry.Registry) *Core {
	return &Core{registry: r}
}

// Registry exposes the read-only operation catalog.
func (c *Core) Registry() *registry.Registry { return c.registry }

// Handle processes a single request. It never panics: a panicking handler
// is recovered into an InternalError response so one bad operation cannot
// take down the connection.
func (c *Core) Handle(ctx context.Context, req Request) (resp Response) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("operation %q panicked: %v", req.Op, r)
			resp = errResponse(fmt.Errorf("operation %q: internal failure: %v", req.Op, r))
		}
	}()

	result, err := c.registry.Invoke(ctx, req.Op, req.Args)
	if err != nil {
		return errResponse(err)
	}
	return okResponse(result)
}
