package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/wfunc/gridserver/logger"
	"github.com/wfunc/gridserver/models"
	"github.com/wfunc/gridserver/network"
	"github.com/wfunc/gridserver/services"
	"github.com/wfunc/gridserver/state"
)

type Options struct {
	Address string
	Conn    network.Options
}

type tracked struct {
	machine *state.ConnectionMachine
	conn    *network.WSConnection
}

// GameServer 对外的 HTTP 入口：websocket 游戏连接、健康检查、指标与协议描述
type GameServer struct {
	opts       Options
	upgrader   websocket.Upgrader
	service    *services.GameService
	metrics    http.Handler
	httpServer *http.Server

	mutex    sync.Mutex
	conns    map[*network.WSConnection]*tracked
	shutdown bool
	handlers sync.WaitGroup
}

func NewGameServer(opts Options, service *services.GameService, metrics http.Handler) *GameServer {
	s := &GameServer{
		opts:    opts,
		service: service,
		metrics: metrics,
		conns:   make(map[*network.WSConnection]*tracked),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // 允许所有跨域请求
			},
		},
	}
	s.httpServer = &http.Server{
		Addr:              opts.Address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *GameServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleWebSocket)
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/protocol", s.handleProtocol)
	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics)
	}
	return mux
}

// Start 阻塞直到监听失败或 Shutdown 被调用
func (s *GameServer) Start() error {
	listener, err := net.Listen("tcp", s.opts.Address)
	if err != nil {
		return err
	}
	return s.Serve(listener)
}

func (s *GameServer) Serve(listener net.Listener) error {
	logger.Log.Infof("Game server listening on %s", listener.Addr())
	if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown 停止接受新连接，关闭所有现存连接（各自走完关闭流程），等待处理协程退出
func (s *GameServer) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)

	s.mutex.Lock()
	s.shutdown = true
	active := make([]*tracked, 0, len(s.conns))
	for _, t := range s.conns {
		active = append(active, t)
	}
	s.mutex.Unlock()

	for _, t := range active {
		_ = t.machine.BeginClose()
		t.conn.Close()
	}

	done := make(chan struct{})
	go func() {
		s.handlers.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		if err == nil {
			err = ctx.Err()
		}
	}
	logger.Log.Infow("game server stopped", "closed_connections", len(active))
	return err
}

func (s *GameServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *GameServer) handleProtocol(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(network.ProtocolSchema()); err != nil {
		logger.Log.Errorw("failed to encode protocol schema", "error", err)
	}
}

func (s *GameServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if !websocket.IsWebSocketUpgrade(r) {
		http.Error(w, "websocket upgrade required", http.StatusUpgradeRequired)
		return
	}
	kind := models.ParseKind(r.URL.Query().Get("type"))

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}
	s.handleConnection(network.NewWSConnection(conn, s.opts.Conn), kind)
}

func (s *GameServer) handleConnection(wsConn *network.WSConnection, kind models.PlayerKind) {
	machine := state.NewConnectionMachine(s.service.Bind(wsConn, kind))

	s.mutex.Lock()
	if s.shutdown {
		s.mutex.Unlock()
		wsConn.Close()
		return
	}
	s.conns[wsConn] = &tracked{machine: machine, conn: wsConn}
	s.handlers.Add(1)
	s.mutex.Unlock()

	logger.Log.Debugw("connection opened", "remote", wsConn.RemoteAddr(), "kind", kind)

	defer func() {
		_ = machine.BeginClose()
		if err := machine.Close(); err != nil {
			logger.Log.Errorw("failed to close connection state", "remote", wsConn.RemoteAddr(), "error", err)
		}
		wsConn.Close()

		s.mutex.Lock()
		delete(s.conns, wsConn)
		s.mutex.Unlock()
		s.handlers.Done()
		logger.Log.Debugw("connection closed", "remote", wsConn.RemoteAddr())
	}()

	if err := machine.Open(); err != nil {
		logger.Log.Errorw("failed to open connection state", "remote", wsConn.RemoteAddr(), "error", err)
		return
	}

	for {
		data, err := wsConn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				logger.Log.Debugw("connection read error", "remote", wsConn.RemoteAddr(), "error", err)
			}
			return
		}
		machine.Dispatch(data)
	}
}

// ActiveConnections 当前处理中的连接数
func (s *GameServer) ActiveConnections() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.conns)
}
