// models/models.go
package models

// GridSize 网格边长，所有玩家坐标都落在 [0, GridSize) 内
const GridSize = 10

// PlayerID 玩家标识，连接建立时生成，仅在该连接生命周期内有效
type PlayerID string

// PlayerKind 玩家类型
type PlayerKind string

const (
	KindHuman PlayerKind = "human"
	KindAI    PlayerKind = "ai"
)

// ParseKind 解析连接参数 type，只有 "ai" 表示非人类玩家
func ParseKind(raw string) PlayerKind {
	if raw == string(KindAI) {
		return KindAI
	}
	return KindHuman
}

// Direction 移动方向
type Direction string

const (
	DirUp    Direction = "up"
	DirDown  Direction = "down"
	DirLeft  Direction = "left"
	DirRight Direction = "right"
)

// PlayerState 服务端权威的玩家状态
type PlayerState struct {
	X    int        `json:"x"`
	Y    int        `json:"y"`
	Kind PlayerKind `json:"type"`
}

// InBounds reports whether the position lies on the grid.
func (p PlayerState) InBounds() bool {
	return p.X >= 0 && p.X < GridSize && p.Y >= 0 && p.Y < GridSize
}

// GameState 全量共享状态快照
type GameState struct {
	Players map[PlayerID]PlayerState `json:"players"`
	// Version 每次注册/注销/移动递增，用于广播去旧
	Version uint64 `json:"-"`
}

// Count 返回快照中的玩家数
func (g GameState) Count() int {
	return len(g.Players)
}

// Player 返回指定玩家的状态
func (g GameState) Player(id PlayerID) (PlayerState, bool) {
	p, ok := g.Players[id]
	return p, ok
}
