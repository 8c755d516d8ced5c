// session/session.go
package session

import (
	"math/rand"
	"sync"
	"time"

	"github.com/wfunc/gridserver/models"
	"github.com/wfunc/gridserver/movement"
	"github.com/wfunc/gridserver/network"
)

// Session 一个已注册连接的元数据
type Session struct {
	ID       models.PlayerID
	Conn     network.Connection
	JoinedAt time.Time
	Moves    int
}

type entry struct {
	session Session
	state   models.PlayerState
}

// Departure 注销结果：被移除的会话、它的最终状态以及移除后的快照
type Departure struct {
	Session
	Final    models.PlayerState
	Snapshot models.GameState
}

// Registry 持有全部可变游戏状态：玩家状态表与连接表。
// 两张表由同一把锁保护，任何时刻一一对应。
type Registry struct {
	mu      sync.RWMutex
	players map[models.PlayerID]*entry
	conns   map[network.Connection]models.PlayerID
	version uint64
	ids     IDGenerator
	rng     *rand.Rand
	now     func() time.Time
}

type Option func(*Registry)

func WithIDGenerator(g IDGenerator) Option {
	return func(r *Registry) { r.ids = g }
}

func WithRand(rng *rand.Rand) Option {
	return func(r *Registry) { r.rng = rng }
}

func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		players: make(map[models.PlayerID]*entry),
		conns:   make(map[network.Connection]models.PlayerID),
		ids:     UUIDGenerator{},
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register 为连接分配新玩家，随机落点，返回玩家标识与注册后的快照。
// 同一连接重复注册时返回已有标识。
func (r *Registry) Register(conn network.Connection, kind models.PlayerKind) (models.PlayerID, models.GameState) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, exists := r.conns[conn]; exists {
		return id, r.snapshotLocked()
	}

	id := r.ids.NewID()
	for id == "" || r.players[id] != nil {
		id = r.ids.NewID()
	}

	r.players[id] = &entry{
		session: Session{ID: id, Conn: conn, JoinedAt: r.now()},
		state:   movement.RandomPosition(r.rng, kind),
	}
	r.conns[conn] = id
	r.version++
	return id, r.snapshotLocked()
}

// Unregister 移除连接及其玩家状态；未知连接返回 ok=false 且不改变任何状态
func (r *Registry) Unregister(conn network.Connection) (Departure, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, exists := r.conns[conn]
	if !exists {
		return Departure{}, false
	}
	e := r.players[id]
	delete(r.conns, conn)
	delete(r.players, id)
	r.version++

	return Departure{
		Session:  e.session,
		Final:    e.state,
		Snapshot: r.snapshotLocked(),
	}, true
}

// ApplyMove 对玩家执行一次移动并返回移动后的快照；玩家不存在时 ok=false
func (r *Registry) ApplyMove(id models.PlayerID, dir models.Direction) (models.GameState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, exists := r.players[id]
	if !exists {
		return models.GameState{}, false
	}
	e.state = movement.Move(e.state, dir)
	e.session.Moves++
	r.version++
	return r.snapshotLocked(), true
}

// Snapshot 返回某一时刻的一致副本
func (r *Registry) Snapshot() models.GameState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshotLocked()
}

func (r *Registry) snapshotLocked() models.GameState {
	players := make(map[models.PlayerID]models.PlayerState, len(r.players))
	for id, e := range r.players {
		players[id] = e.state
	}
	return models.GameState{Players: players, Version: r.version}
}

// Lookup 查询连接当前绑定的玩家
func (r *Registry) Lookup(conn network.Connection) (models.PlayerID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, exists := r.conns[conn]
	return id, exists
}

// Get 返回玩家会话信息的副本
func (r *Registry) Get(id models.PlayerID) (Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, exists := r.players[id]
	if !exists {
		return Session{}, false
	}
	return e.session, true
}

// Connections 返回当前所有已注册连接的副本
func (r *Registry) Connections() []network.Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]network.Connection, 0, len(r.conns))
	for c := range r.conns {
		conns = append(conns, c)
	}
	return conns
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.players)
}
