package fleet

// SDK 编排 sidecar 的协议面：就绪、健康、玩家计数、关闭
type SDK interface {
	Ready() error
	Health() error
	Shutdown() error
	SetPlayerCapacity(capacity int64) error
	PlayerConnect(playerID string) (bool, error)
	PlayerDisconnect(playerID string) (bool, error)
	GetPlayerCount() (int64, error)
}
