package dispatch

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync/atomic"

	"github.com/gorilla/websocket"
)

// WSHandler serves the dispatch protocol over websocket: one request per
// text frame, one response frame per request, strictly sequential within
// a connection. Each websocket connection gets its own loop, sharing only
// the read-only registry.
type WSHandler struct {
	core     *Core
	upgrader websocket.Upgrader
	nextID   atomic.Int64
}

// NewWSHandler creates the websocket endpoint handler.
func NewWSHandler(core *Core) *WSHandler {
	return &WSHandler{
		core: core,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
		},
	}
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}
	id := h.nextID.Add(1)
	h.serve(r.Context(), id, conn)
}

func (h *WSHandler) serve(ctx context.Context, id int64, conn *websocket.Conn) {
	defer conn.Close()
	conn.SetReadLimit(MaxRequestBytes)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		msgType, frame, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && !isClosedError(err) {
				log.Printf("ws client %d: read error: %v", id, err)
			}
			return
		}
		if msgType != websocket.TextMessage {
			if err := writeWSResponse(conn, Response{OK: false, Error: &ErrorDetail{
				Kind:    KindValidation,
				Message: "expected a text frame containing one JSON request",
			}}); err != nil {
				return
			}
			continue
		}

		var req Request
		if err := json.Unmarshal(frame, &req); err != nil || req.Op == "" {
			msg := "request missing \"op\""
			if err != nil {
				msg = "malformed request: " + err.Error()
			}
			if err := writeWSResponse(conn, Response{OK: false, Error: &ErrorDetail{
				Kind:    KindValidation,
				Message: msg,
			}}); err != nil {
				return
			}
			continue
		}

		resp := h.core.Handle(ctx, req)
		if err := writeWSResponse(conn, resp); err != nil {
			return
		}
	}
}

func writeWSResponse(conn *websocket.Conn, resp Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		data, _ = json.Marshal(Response{OK: false, Error: &ErrorDetail{
			Kind:    KindInternal,
			Message: "encoding response: " + err.Error(),
		}})
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}
