package chat

import (
	"sync"
	"time"

	"ChatRelay/logger"

	"github.com/gorilla/websocket"
)

// 默认心跳参数：5s 探测一次，1s 内必须回 pong
const (
	DefaultPingInterval = 5 * time.Second
	DefaultPongGrace    = 1 * time.Second
)

type LivenessConf struct {
	PingInterval time.Duration
	PongGrace    time.Duration
}

func (c *LivenessConf) norm() {
	if c.PingInterval <= 0 {
		c.PingInterval = DefaultPingInterval
	}
	if c.PongGrace <= 0 {
		c.PongGrace = DefaultPongGrace
	}
}

// Monitor probes one connection: Alive -> ping -> AwaitingPong -> pong -> Alive,
// or AwaitingPong -> grace expiry -> Dead -> evicted. The grace timer only
// exists inside a probe window, so a pong can never race a stale timer from an
// earlier cycle, and Stop() releases everything immediately.
type Monitor struct {
	conn *WsConn
	conf LivenessConf

	pong     chan struct{}
	stop     chan struct{}
	stopOnce sync.Once

	onEvict func(*WsConn)
}

func NewMonitor(conn *WsConn, conf LivenessConf, onEvict func(*WsConn)) *Monitor {
	conf.norm()
	return &Monitor{
		conn:    conn,
		conf:    conf,
		pong:    make(chan struct{}, 1),
		stop:    make(chan struct{}),
		onEvict: onEvict,
	}
}

func (m *Monitor) Start() { go m.run() }

// Pong records a liveness proof. Non-blocking: wired into gorilla's
// PongHandler, which runs on the read loop.
func (m *Monitor) Pong() {
	select {
	case m.pong <- struct{}{}:
	default:
	}
}

// Stop ends the probe cycle. Idempotent; must be called on every close path so
// no timer keeps running against a stale handle.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })
}

func (m *Monitor) run() {
	ticker := time.NewTicker(m.conf.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-m.pong:
			// pong 在探测窗口外到达：已是 Alive，忽略
		case <-ticker.C:
			deadline := time.Now().Add(m.conf.PongGrace)
			if err := m.conn.ws.WriteControl(websocket.PingMessage, []byte("ping"), deadline); err != nil {
				logger.Infof("[heartbeat] ping write failed conn=%s err=%v", m.conn.ConnID, err)
				m.evict()
				return
			}
			m.conn.setState(StateAwaitingPong)

			grace := time.NewTimer(m.conf.PongGrace)
			select {
			case <-m.stop:
				grace.Stop()
				return
			case <-m.pong:
				grace.Stop()
				m.conn.setState(StateAlive)
			case <-grace.C:
				m.conn.setState(StateDead)
				m.evict()
				return
			}
		}
	}
}

func (m *Monitor) evict() {
	if m.onEvict != nil {
		m.onEvict(m.conn)
	}
}
