package chat

import (
	"context"
	"net"
	"net/http"
	"time"

	"ChatRelay/logger"
	"ChatRelay/middleware"
	"ChatRelay/service/storage"
	"ChatRelay/tools/ids"
	security "ChatRelay/tools/security"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type ServerConf struct {
	GatewayID     string
	PingInterval  time.Duration
	PongGrace     time.Duration
	SendQueueSize int
}

// Server owns the websocket endpoint: it registers connections, binds the
// handshake identity, runs the heartbeat, announces presence and feeds
// inbound frames to the router.
type Server struct {
	conf     ServerConf
	reg      *Registry
	router   *Router
	presence *Broadcaster
	mirror   *storage.Presence
	jwtOpts  security.Options
}

func NewServer(conf ServerConf, reg *Registry, router *Router, presence *Broadcaster,
	mirror *storage.Presence, jwtOpts security.Options) *Server {
	return &Server{
		conf:     conf,
		reg:      reg,
		router:   router,
		presence: presence,
		mirror:   mirror,
		jwtOpts:  jwtOpts,
	}
}

func (s *Server) Registry() *Registry { return s.reg }

// HandleWS 升级连接并一直驻留在读循环里，直到对端断开或被心跳踢掉。
func (s *Server) HandleWS(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Infof("[ws] upgrade failed: %v", err)
		return
	}

	connID := ids.GenerateString()
	conn := NewWsConn(connID, ws, s.conf.SendQueueSize)
	if err := s.reg.Add(conn); err != nil {
		logger.Errorf("[ws] register failed conn=%s err=%v", connID, err)
		_ = ws.Close()
		return
	}

	// token 只在握手时取一次，之后不再复查。
	// 无 token / 校验失败 => 匿名连接，照常保活，不参与路由与花名册。
	if token, cerr := c.Cookie(middleware.TokenCookie); cerr == nil {
		if claims, verr := security.Verify(s.jwtOpts, token); verr == nil {
			_ = s.reg.BindUser(connID, claims.UserID, claims.Username)
			s.mirror.Online(context.Background(), claims.UserID)
			logger.Infof("[ws] connected user=%s conn=%s gw=%s", claims.Username, connID, s.conf.GatewayID)
		} else {
			logger.Infof("[ws] invalid handshake token, staying anonymous conn=%s", connID)
		}
	}

	mon := NewMonitor(conn, LivenessConf{
		PingInterval: s.conf.PingInterval,
		PongGrace:    s.conf.PongGrace,
	}, s.evict)

	ws.SetPongHandler(func(string) error {
		mon.Pong()
		if userID, _, ok := conn.Identity(); ok {
			s.mirror.Refresh(context.Background(), userID)
		}
		return nil
	})

	go conn.WritePump()
	mon.Start()
	s.presence.Announce()

	s.readLoop(ws, conn)

	// 正常/异常断开统一走这里；被心跳踢掉时 evict 已清理过，全部幂等。
	mon.Stop()
	s.teardown(conn)
}

func (s *Server) readLoop(ws *websocket.Conn, conn *WsConn) {
	for {
		mt, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Infof("[ws] peer closed conn=%s", conn.ConnID)
			} else if ne, ok := err.(net.Error); ok && ne.Timeout() {
				logger.Infof("[ws] read timeout conn=%s err=%v", conn.ConnID, err)
			} else {
				logger.Infof("[ws] read err conn=%s err=%v", conn.ConnID, err)
			}
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}
		// 持久化不用请求上下文：发送方断开不应取消进行中的写入
		if rerr := s.router.HandleInbound(context.Background(), conn, data); rerr != nil {
			logger.Infof("[ws] frame dropped conn=%s err=%v", conn.ConnID, rerr)
		}
	}
}

// evict is the heartbeat's dead-connection path: terminate the transport so
// the read loop unblocks, then clean up.
func (s *Server) evict(conn *WsConn) {
	logger.Infof("[ws] liveness timeout, evicting conn=%s", conn.ConnID)
	s.teardown(conn)
}

func (s *Server) teardown(conn *WsConn) {
	conn.Close()
	if userID, _, ok := conn.Identity(); ok {
		s.mirror.Offline(context.Background(), userID)
	}
	s.reg.Remove(conn.ConnID)
	s.presence.Announce()
}
