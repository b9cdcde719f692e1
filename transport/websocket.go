package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
)

// WebSocket implements Transport over a WebSocket connection. Only the
// request/response calling convention is supported; responses are matched
// to callers by request id.
type WebSocket struct {
	url    string
	conn   *websocket.Conn
	mu     sync.Mutex
	nextID atomic.Uint64

	// connection management
	connOnce sync.Once
	connErr  error

	// in-flight request routing
	pendingMu sync.Mutex
	pending   map[uint64]chan []byte

	closed    chan struct{}
	closeOnce sync.Once
}

// NewWebSocket creates a WebSocket transport.
// The connection is established lazily on the first Call.
func NewWebSocket(url string) *WebSocket {
	return &WebSocket{
		url:     url,
		pending: make(map[uint64]chan []byte),
		closed:  make(chan struct{}),
	}
}

// connect establishes the WebSocket connection (called lazily, at most once).
func (ws *WebSocket) connect(ctx context.Context) error {
	ws.connOnce.Do(func() {
		dialer := websocket.Dialer{}
		conn, _, err := dialer.DialContext(ctx, ws.url, nil)
		if err != nil {
			ws.connErr = fmt.Errorf("transport/ws: dial: %w", err)
			return
		}
		ws.conn = conn
		go ws.readLoop()
	})
	return ws.connErr
}

// Call sends a JSON-RPC request over WebSocket and waits for the response.
func (ws *WebSocket) Call(ctx context.Context, method string, params ...interface{}) ([]byte, error) {
	if err := ws.connect(ctx); err != nil {
		return nil, err
	}

	if params == nil {
		params = []interface{}{}
	}

	id := ws.nextID.Add(1)
	req := jsonRPCRequest{
		JSONRPC: "2.0",
		ID:      id,
		Method:  method,
		Params:  params,
	}

	ch := make(chan []byte, 1)
	ws.pendingMu.Lock()
	ws.pending[id] = ch
	ws.pendingMu.Unlock()

	defer func() {
		ws.pendingMu.Lock()
		delete(ws.pending, id)
		ws.pendingMu.Unlock()
	}()

	ws.mu.Lock()
	err := ws.conn.WriteJSON(req)
	ws.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("transport/ws: write: %w", err)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case data := <-ch:
		var rpcResp jsonRPCResponse
		if err := json.Unmarshal(data, &rpcResp); err != nil {
			return nil, fmt.Errorf("transport/ws: unmarshal: %w", err)
		}
		if rpcResp.Error != nil {
			return nil, rpcResp.Error
		}
		return rpcResp.Result, nil
	case <-ws.closed:
		return nil, fmt.Errorf("transport/ws: connection closed")
	}
}

// Close terminates the WebSocket connection.
func (ws *WebSocket) Close() error {
	ws.closeOnce.Do(func() {
		close(ws.closed)
	})
	if ws.conn != nil {
		return ws.conn.Close()
	}
	return nil
}

// readLoop reads messages from the WebSocket and routes them to waiting callers.
func (ws *WebSocket) readLoop() {
	for {
		select {
		case <-ws.closed:
			return
		default:
		}

		_, message, err := ws.conn.ReadMessage()
		if err != nil {
			ws.closeOnce.Do(func() {
				close(ws.closed)
			})
			return
		}

		var envelope struct {
			ID uint64 `json:"id"`
		}
		if err := json.Unmarshal(message, &envelope); err != nil {
			continue // not a response we can route
		}

		ws.pendingMu.Lock()
		ch, ok := ws.pending[envelope.ID]
		ws.pendingMu.Unlock()
		if ok {
			select {
			case ch <- message:
			default:
			}
		}
	}
}
