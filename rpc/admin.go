package rpc

import (
	"context"
	"errors"
	"time"

	"github.com/wfunc/gridserver/models"
)

// StateSource 提供当前游戏状态（由 services.GameService 实现）
type StateSource interface {
	Snapshot() models.GameState
}

// SessionSource 提供会话记录（由 services.Recorder 实现）
type SessionSource interface {
	Recent(ctx context.Context, limit int) ([]models.SessionRecord, error)
}

// FleetStatus 编排适配器的本地视图（由 fleet.Adapter 实现）
type FleetStatus interface {
	Count() int64
	ShutdownRequested() bool
}

var ErrNoSessionStore = errors.New("session journal not configured")

const maxRecentSessions = 100

// AdminService is the struct that exposes RPC methods.
// Methods follow the net/rpc signature: exported args, pointer reply, error return.
type AdminService struct {
	state    StateSource
	sessions SessionSource
	fleet    FleetStatus
}

func NewAdminService(state StateSource, sessions SessionSource, fleet FleetStatus) *AdminService {
	return &AdminService{state: state, sessions: sessions, fleet: fleet}
}

type Empty struct{}

type SnapshotReply struct {
	Version uint64
	Players map[string]models.PlayerState
}

func (a *AdminService) Snapshot(args *Empty, reply *SnapshotReply) error {
	gs := a.state.Snapshot()
	reply.Version = gs.Version
	reply.Players = make(map[string]models.PlayerState, len(gs.Players))
	for id, p := range gs.Players {
		reply.Players[string(id)] = p
	}
	return nil
}

type PlayerCountReply struct {
	Players           int
	FleetCount        int64
	ShutdownRequested bool
}

func (a *AdminService) PlayerCount(args *Empty, reply *PlayerCountReply) error {
	reply.Players = a.state.Snapshot().Count()
	if a.fleet != nil {
		reply.FleetCount = a.fleet.Count()
		reply.ShutdownRequested = a.fleet.ShutdownRequested()
	}
	return nil
}

type RecentSessionsArgs struct {
	Limit int
}

type RecentSessionsReply struct {
	Sessions []models.SessionRecord
}

func (a *AdminService) RecentSessions(args *RecentSessionsArgs, reply *RecentSessionsReply) error {
	if a.sessions == nil {
		return ErrNoSessionStore
	}
	limit := args.Limit
	if limit <= 0 || limit > maxRecentSessions {
		limit = maxRecentSessions
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	recs, err := a.sessions.Recent(ctx, limit)
	if err != nil {
		return err
	}
	reply.Sessions = recs
	return nil
}
