// Package websocket_router pushes store events to connected clients
// over WebSocket. The feed is one-way: clients receive notes:* and
// migration:* events as they are emitted, they never send commands.
package websocket_router

import (
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/lxzan/gws"
	"go.uber.org/zap"

	"github.com/anchored-notes/anchored-sync-service/internal/app"
	"github.com/anchored-notes/anchored-sync-service/internal/domain"
)

const (
	// PingInterval 服务端 Ping 间隔（秒）
	PingInterval = 25
	// PingWait 客户端响应等待时间（秒）
	PingWait = 40
)

// EventServer WebSocket 事件推送服务
// 订阅事件总线并将事件广播给所有已连接客户端
type EventServer struct {
	app     *app.App
	logger  *zap.Logger
	up      *gws.Upgrader
	mu      sync.Mutex
	clients map[*gws.Conn]struct{}

	unsubscribe func()
}

// NewEventServer 创建 EventServer 实例并订阅事件总线
func NewEventServer(a *app.App) *EventServer {
	s := &EventServer{
		app:     a,
		logger:  a.Logger(),
		clients: make(map[*gws.Conn]struct{}),
	}

	s.up = gws.NewUpgrader(s, &gws.ServerOption{
		CheckUtf8Enabled:    true,
		ParallelEnabled:     true,
		Recovery:            gws.Recovery,
		PermessageDeflate:   gws.PermessageDeflate{Enabled: true},
		ReadMaxPayloadSize:  1024 * 1024,
		WriteMaxPayloadSize: 1024 * 1024 * 64,
	})

	s.unsubscribe = a.EventBus.SubscribeAll(s.push)

	return s
}

// Run 返回处理 WebSocket 升级的 gin.HandlerFunc
func (s *EventServer) Run() gin.HandlerFunc {
	return func(c *gin.Context) {
		socket, err := s.up.Upgrade(c.Writer, c.Request)
		if err != nil {
			s.logger.Error("EventServer upgrade err", zap.Error(err))
			return
		}
		s.addClient(socket)
		go socket.ReadLoop()
		go s.pingLoop(socket)
	}
}

// Close 取消事件订阅并断开所有客户端
func (s *EventServer) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}

	s.mu.Lock()
	conns := make([]*gws.Conn, 0, len(s.clients))
	for conn := range s.clients {
		conns = append(conns, conn)
	}
	s.mu.Unlock()

	for _, conn := range conns {
		conn.WriteClose(1000, []byte("ServerClose"))
	}
}

// ClientCount 当前连接数
func (s *EventServer) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// push 将一条事件广播给所有客户端
func (s *EventServer) push(event domain.Event) {
	payload, err := sonic.Marshal(event)
	if err != nil {
		s.logger.Error("EventServer marshal event err",
			zap.String("event", string(event.Type)), zap.Error(err))
		return
	}

	s.mu.Lock()
	conns := make([]*gws.Conn, 0, len(s.clients))
	for conn := range s.clients {
		conns = append(conns, conn)
	}
	s.mu.Unlock()

	if len(conns) == 0 {
		return
	}

	b := gws.NewBroadcaster(gws.OpcodeText, payload)
	defer b.Close()
	for _, conn := range conns {
		_ = b.Broadcast(conn)
	}
}

func (s *EventServer) pingLoop(conn *gws.Conn) {
	ticker := time.NewTicker(PingInterval * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		s.mu.Lock()
		_, ok := s.clients[conn]
		s.mu.Unlock()
		if !ok {
			return
		}
		if err := conn.WritePing(nil); err != nil {
			return
		}
	}
}

func (s *EventServer) addClient(conn *gws.Conn) {
	s.mu.Lock()
	s.clients[conn] = struct{}{}
	count := len(s.clients)
	s.mu.Unlock()
	s.logger.Info("EventServer client connect", zap.Int("count", count))
}

func (s *EventServer) removeClient(conn *gws.Conn) {
	s.mu.Lock()
	delete(s.clients, conn)
	count := len(s.clients)
	s.mu.Unlock()
	s.logger.Info("EventServer client leave", zap.Int("count", count))
}

// OnOpen 实现 gws.Event
func (s *EventServer) OnOpen(conn *gws.Conn) {
	_ = conn.SetDeadline(time.Now().Add(PingWait * time.Second))
}

// OnClose 实现 gws.Event
func (s *EventServer) OnClose(conn *gws.Conn, err error) {
	s.removeClient(conn)
}

// OnPing 实现 gws.Event
func (s *EventServer) OnPing(socket *gws.Conn, payload []byte) {
	_ = socket.SetDeadline(time.Now().Add(PingWait * time.Second))
	_ = socket.WritePong(nil)
}

// OnPong 实现 gws.Event
func (s *EventServer) OnPong(socket *gws.Conn, payload []byte) {
	_ = socket.SetDeadline(time.Now().Add(PingWait * time.Second))
}

// OnMessage 实现 gws.Event
// 事件流是单向的，客户端只允许发送 close 指令
func (s *EventServer) OnMessage(conn *gws.Conn, message *gws.Message) {
	defer message.Close()
	if message.Opcode != gws.OpcodeText {
		return
	}
	if message.Data.String() == "close" {
		conn.WriteClose(1000, []byte("ClientClose"))
	}
}
