package chat

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// Liveness states driven by the heartbeat cycle.
const (
	StateAlive int32 = iota
	StateAwaitingPong
	StateDead
)

const writeWait = 10 * time.Second

// Transport is the slice of *websocket.Conn the gateway actually uses.
// 单测用 fake 实现。
type Transport interface {
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// WsConn is one client connection. A user may hold several at once (multiple
// tabs/devices); each is registered and probed independently.
type WsConn struct {
	ConnID string

	mu       sync.RWMutex
	userID   string
	username string
	bound    bool

	state atomic.Int32

	ws   Transport
	Send chan []byte // 每连接独立发送队列（单写协程消费）

	closeOnce sync.Once
	done      chan struct{}
}

func NewWsConn(connID string, ws Transport, sendQueueSize int) *WsConn {
	if sendQueueSize <= 0 {
		sendQueueSize = 256
	}
	return &WsConn{
		ConnID: connID,
		ws:     ws,
		Send:   make(chan []byte, sendQueueSize),
		done:   make(chan struct{}),
	}
}

// BindIdentity attaches a verified identity. Last write wins; rebinding the
// same identity is a no-op.
func (c *WsConn) BindIdentity(userID, username string) {
	c.mu.Lock()
	c.userID, c.username, c.bound = userID, username, true
	c.mu.Unlock()
}

// Identity returns the bound identity; ok=false while anonymous.
func (c *WsConn) Identity() (userID, username string, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID, c.username, c.bound
}

func (c *WsConn) State() int32     { return c.state.Load() }
func (c *WsConn) setState(s int32) { c.state.Store(s) }

// Enqueue hands a payload to the write pump without blocking. Slow clients
// drop frames rather than stalling the caller.
func (c *WsConn) Enqueue(payload []byte) bool {
	select {
	case c.Send <- payload:
		return true
	default:
		return false
	}
}

// Close tears down the transport exactly once and stops the write pump.
func (c *WsConn) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

func (c *WsConn) Done() <-chan struct{} { return c.done }

// WritePump 单写协程：排空 Send 队列；gorilla 的 WriteMessage 不能并发调用。
func (c *WsConn) WritePump() {
	defer func() { _ = c.ws.Close() }()
	for {
		select {
		case <-c.done:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.ws.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case payload := <-c.Send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		}
	}
}
