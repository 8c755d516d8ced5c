// services/game_service.go
package services

import (
	"time"

	"github.com/wfunc/gridserver/broadcast"
	"github.com/wfunc/gridserver/logger"
	"github.com/wfunc/gridserver/models"
	"github.com/wfunc/gridserver/network"
	"github.com/wfunc/gridserver/session"
	"github.com/wfunc/gridserver/state"
)

// FleetNotifier 玩家数变化通知（由 fleet.Adapter 实现）
type FleetNotifier interface {
	PlayerJoined(id models.PlayerID)
	PlayerLeft(id models.PlayerID)
}

// Metrics 连接与消息指标（由 monitor.Monitor 实现）
type Metrics interface {
	IncOnlinePlayers()
	DecOnlinePlayers()
	IncMessagesReceived()
	IncMessagesIgnored()
	ObserveMoveLatency(d time.Duration)
}

// GameService 连接生命周期的业务部分，与网络 I/O 无关：
// 打开时注册并广播，收到消息时移动并广播，关闭时注销并广播。
type GameService struct {
	registry    *session.Registry
	broadcaster *broadcast.Broadcaster
	fleet       FleetNotifier
	metrics     Metrics
	journal     *Recorder
}

func NewGameService(registry *session.Registry, broadcaster *broadcast.Broadcaster, fleet FleetNotifier, metrics Metrics, journal *Recorder) *GameService {
	return &GameService{
		registry:    registry,
		broadcaster: broadcaster,
		fleet:       fleet,
		metrics:     metrics,
		journal:     journal,
	}
}

// Open 注册玩家，先单独发送 init，再标记连接就绪并广播，最后通知编排系统
func (s *GameService) Open(conn network.Connection, kind models.PlayerKind) models.PlayerID {
	id, snap := s.registry.Register(conn, kind)

	data, err := network.EncodeInit(id, snap)
	if err != nil {
		logger.Log.Errorw("failed to encode init message", "player", id, "error", err)
	} else if err := conn.Send(data); err != nil {
		logger.Log.Warnw("failed to send init message", "player", id, "error", err)
	}
	conn.MarkReady()

	// 就绪之后再取快照，确保新连接不会错过标记前发生的变化
	s.broadcaster.Broadcast(s.registry.Snapshot())

	if s.metrics != nil {
		s.metrics.IncOnlinePlayers()
	}
	if s.journal != nil {
		s.journal.Joined(models.SessionRecord{
			PlayerID:   string(id),
			Kind:       string(kind),
			RemoteAddr: remoteAddr(conn),
			JoinedAt:   time.Now(),
		})
	}
	logger.Log.Infow("player joined", "player", id, "kind", kind, "remote", remoteAddr(conn), "players", snap.Count())

	if s.fleet != nil {
		s.fleet.PlayerJoined(id)
	}
	return id
}

// HandleMessage 解析客户端消息；任何格式问题都只是忽略，连接保持打开
func (s *GameService) HandleMessage(conn network.Connection, data []byte) {
	if s.metrics != nil {
		s.metrics.IncMessagesReceived()
	}

	msg, ok := network.DecodeClientMessage(data)
	if !ok {
		s.ignored(conn)
		return
	}

	switch m := msg.(type) {
	case network.MoveCommand:
		start := time.Now()
		id, exists := s.registry.Lookup(conn)
		if !exists {
			s.ignored(conn)
			return
		}
		snap, exists := s.registry.ApplyMove(id, m.Direction)
		if !exists {
			s.ignored(conn)
			return
		}
		s.broadcaster.Broadcast(snap)
		if s.metrics != nil {
			s.metrics.ObserveMoveLatency(time.Since(start))
		}
	default:
		s.ignored(conn)
	}
}

func (s *GameService) ignored(conn network.Connection) {
	if s.metrics != nil {
		s.metrics.IncMessagesIgnored()
	}
	logger.Log.Debugw("ignored client message", "remote", remoteAddr(conn))
}

// Close 在断开时按连接查询当前玩家并注销；未知连接（重复或迟到的关闭）不做任何事
func (s *GameService) Close(conn network.Connection) {
	dep, ok := s.registry.Unregister(conn)
	if !ok {
		return
	}

	s.broadcaster.Broadcast(dep.Snapshot)

	if s.metrics != nil {
		s.metrics.DecOnlinePlayers()
	}
	if s.journal != nil {
		left := time.Now()
		s.journal.Left(models.SessionRecord{
			PlayerID: string(dep.ID),
			LeftAt:   &left,
			Moves:    dep.Moves,
			FinalX:   dep.Final.X,
			FinalY:   dep.Final.Y,
		})
	}
	logger.Log.Infow("player left", "player", dep.ID, "moves", dep.Moves, "players", dep.Snapshot.Count())

	if s.fleet != nil {
		s.fleet.PlayerLeft(dep.ID)
	}
}

// Snapshot 当前全量状态
func (s *GameService) Snapshot() models.GameState {
	return s.registry.Snapshot()
}

// Bind 为单个连接生成状态机钩子
func (s *GameService) Bind(conn network.Connection, kind models.PlayerKind) state.ConnContext {
	return &connContext{svc: s, conn: conn, kind: kind}
}

type connContext struct {
	svc  *GameService
	conn network.Connection
	kind models.PlayerKind
}

func (c *connContext) Open()                     { c.svc.Open(c.conn, c.kind) }
func (c *connContext) HandleMessage(data []byte) { c.svc.HandleMessage(c.conn, data) }
func (c *connContext) Close()                    { c.svc.Close(c.conn) }

func remoteAddr(conn network.Connection) string {
	if addr := conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}
