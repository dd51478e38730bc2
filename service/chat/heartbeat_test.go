package chat

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// probeTransport counts pings and optionally answers them.
type probeTransport struct {
	mu     sync.Mutex
	pings  int
	onPing func()
	closed atomic.Bool
}

func (p *probeTransport) WriteMessage(int, []byte) error { return nil }

func (p *probeTransport) WriteControl(mt int, _ []byte, _ time.Time) error {
	if mt != websocket.PingMessage {
		return nil
	}
	p.mu.Lock()
	p.pings++
	cb := p.onPing
	p.mu.Unlock()
	if cb != nil {
		cb()
	}
	return nil
}

func (p *probeTransport) SetWriteDeadline(time.Time) error { return nil }
func (p *probeTransport) Close() error                     { p.closed.Store(true); return nil }

func (p *probeTransport) pingCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pings
}

const (
	testInterval = 20 * time.Millisecond
	testGrace    = 10 * time.Millisecond
)

func TestHealthyConnectionNeverEvicted(t *testing.T) {
	tr := &probeTransport{}
	conn := NewWsConn("c1", tr, 16)

	var evictions atomic.Int32
	mon := NewMonitor(conn, LivenessConf{PingInterval: testInterval, PongGrace: testGrace},
		func(*WsConn) { evictions.Add(1) })

	// 每次探测立刻回 pong
	tr.onPing = func() { mon.Pong() }

	mon.Start()
	defer mon.Stop()

	// 跑满多个探测周期
	time.Sleep(10 * testInterval)

	if n := evictions.Load(); n != 0 {
		t.Fatalf("healthy connection evicted %d times, want 0", n)
	}
	if tr.pingCount() < 5 {
		t.Fatalf("expected several probes, got %d", tr.pingCount())
	}
	if conn.State() == StateDead {
		t.Fatalf("healthy connection marked Dead")
	}
}

func TestSilentConnectionEvictedExactlyOnce(t *testing.T) {
	tr := &probeTransport{}
	conn := NewWsConn("c1", tr, 16)

	var evictions atomic.Int32
	mon := NewMonitor(conn, LivenessConf{PingInterval: testInterval, PongGrace: testGrace},
		func(c *WsConn) {
			evictions.Add(1)
			c.Close()
		})

	mon.Start()

	// 第一次探测 + 宽限期之后必须被踢
	time.Sleep(testInterval + 4*testGrace)

	if n := evictions.Load(); n != 1 {
		t.Fatalf("evictions = %d, want exactly 1", n)
	}
	if conn.State() != StateDead {
		t.Fatalf("state = %d, want Dead", conn.State())
	}

	// 踢掉之后不允许再探测：定时器必须全部释放
	before := tr.pingCount()
	time.Sleep(3 * testInterval)
	if after := tr.pingCount(); after != before {
		t.Fatalf("probes continued after eviction: %d -> %d", before, after)
	}
}

func TestLatePongWithinGraceKeepsAlive(t *testing.T) {
	tr := &probeTransport{}
	conn := NewWsConn("c1", tr, 16)

	var evictions atomic.Int32
	mon := NewMonitor(conn, LivenessConf{PingInterval: testInterval, PongGrace: testGrace},
		func(*WsConn) { evictions.Add(1) })

	// pong 晚到但仍在宽限期内
	tr.onPing = func() {
		go func() {
			time.Sleep(testGrace / 2)
			mon.Pong()
		}()
	}

	mon.Start()
	defer mon.Stop()

	time.Sleep(6 * testInterval)

	if n := evictions.Load(); n != 0 {
		t.Fatalf("late-but-in-grace pong still evicted %d times", n)
	}
}

func TestStopReleasesProbeCycle(t *testing.T) {
	tr := &probeTransport{}
	conn := NewWsConn("c1", tr, 16)

	mon := NewMonitor(conn, LivenessConf{PingInterval: testInterval, PongGrace: testGrace}, nil)
	mon.Start()
	time.Sleep(testInterval / 2)
	mon.Stop()
	mon.Stop() // idempotent

	before := tr.pingCount()
	time.Sleep(3 * testInterval)
	if after := tr.pingCount(); after != before {
		t.Fatalf("probes continued after Stop: %d -> %d", before, after)
	}
}
