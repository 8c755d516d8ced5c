// state/interfaces.go
package state

// ConnContext 连接状态机驱动的业务钩子（由 services.GameService 针对单个连接实现）。
// 定义在这里以避免 state 与 services 互相引用。
type ConnContext interface {
	// Open 进入 open 状态时调用：注册玩家、发送 init、广播
	Open()
	// HandleMessage 仅在 open 状态下被调用
	HandleMessage(data []byte)
	// Close 进入 closed 状态时调用，每个连接至多一次
	Close()
}
