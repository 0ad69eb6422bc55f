package dispatch

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"strings"
	"sync"
)

// MaxRequestBytes bounds one framed request, sized generously so pushed
// files fit as base64 payloads.
const MaxRequestBytes = 32 << 20

// Connection runs the dispatch loop over one newline-delimited JSON
// transport. Requests are strictly sequential: the next request is not
// read until the current response is fully written.
type Connection struct {
	id      int64
	scanner *bufio.Scanner
	core    *Core

	mu     sync.Mutex // protects writes and close
	w      io.Writer
	closer io.Closer
	closed bool
}

// NewConnection wraps a transport stream. closer may be nil for streams
// the caller owns (e.g. stdio).
func NewConnection(id int64, r io.Reader, w io.Writer, closer io.Closer, core *Core) *Connection {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), MaxRequestBytes)
	return &Connection{
		id:      id,
		scanner: scanner,
		core:    core,
		w:       w,
		closer:  closer,
	}
}

// Handle processes requests until the transport closes or the context is
// cancelled. Handler failures produce error responses and the loop
// continues; only transport failure ends it.
func (c *Connection) Handle(ctx context.Context) {
	defer c.Close()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := c.readFrame()
		if err != nil {
			if errors.Is(err, io.EOF) || isClosedError(err) {
				return
			}
			// Scanner errors are sticky: an oversized or half-read
			// frame cannot be skipped, so answer once and close.
			if errors.Is(err, bufio.ErrTooLong) {
				c.writeResponse(Response{OK: false, Error: &ErrorDetail{ //nolint:errcheck
					Kind:    KindValidation,
					Message: fmt.Sprintf("request frame exceeds %d bytes", MaxRequestBytes),
				}})
			} else {
				log.Printf("client %d: read error: %v", c.id, err)
			}
			return
		}

		req, err := decodeRequest(line)
		if err != nil {
			// Malformed frame: answer with a validation error and
			// keep reading.
			if writeErr := c.writeResponse(Response{OK: false, Error: &ErrorDetail{
				Kind:    KindValidation,
				Message: err.Error(),
			}}); writeErr != nil {
				return
			}
			continue
		}

		resp := c.core.Handle(ctx, req)
		if err := c.writeResponse(resp); err != nil {
			if !isClosedError(err) {
				log.Printf("client %d: write error: %v", c.id, err)
			}
			return
		}
	}
}

// Close closes the underlying transport once.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if c.closer != nil {
		return c.closer.Close()
	}
	return nil
}

// readFrame reads one raw line off the transport. A scanner error here
// is fatal for the connection.
func (c *Connection) readFrame() (string, error) {
	if !c.scanner.Scan() {
		if err := c.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimSpace(c.scanner.Text()), nil
}

// decodeRequest parses one framed request.
func decodeRequest(line string) (Request, error) {
	if line == "" {
		return Request{}, fmt.Errorf("empty request frame")
	}

	var req Request
	if err := json.Unmarshal([]byte(line), &req); err != nil {
		return Request{}, fmt.Errorf("malformed request: %v", err)
	}
	if req.Op == "" {
		return Request{}, fmt.Errorf("request missing \"op\"")
	}
	return req, nil
}

// writeResponse encodes one response as a single frame.
func (c *Connection) writeResponse(resp Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		// Payload that cannot marshal is an internal defect; still
		// answer the request.
		data, _ = json.Marshal(Response{OK: false, Error: &ErrorDetail{
			Kind:    KindInternal,
			Message: fmt.Sprintf("encoding response: %v", err),
		}})
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return net.ErrClosed
	}
	if _, err := c.w.Write(append(data, '\n')); err != nil {
		return err
	}
	return nil
}

func isClosedError(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, net.ErrClosed) ||
		strings.Contains(err.Error(), "use of closed network connection")
}
