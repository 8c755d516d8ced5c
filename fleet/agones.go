package fleet

import (
	"fmt"

	agonessdk "agones.dev/agones/sdks/go"
)

// AgonesSDK 通过 gRPC 连接本 Pod 内的 Agones sidecar
type AgonesSDK struct {
	sdk *agonessdk.SDK
}

// ConnectAgones 建立到 sidecar 的连接；失败意味着进程不受编排管理，应直接退出
func ConnectAgones() (*AgonesSDK, error) {
	s, err := agonessdk.NewSDK()
	if err != nil {
		return nil, fmt.Errorf("connect agones sidecar: %w", err)
	}
	return &AgonesSDK{sdk: s}, nil
}

func (a *AgonesSDK) Ready() error {
	return a.sdk.Ready()
}

func (a *AgonesSDK) Health() error {
	return a.sdk.Health()
}

func (a *AgonesSDK) Shutdown() error {
	return a.sdk.Shutdown()
}

func (a *AgonesSDK) SetPlayerCapacity(capacity int64) error {
	return a.sdk.Alpha().SetPlayerCapacity(capacity)
}

func (a *AgonesSDK) PlayerConnect(playerID string) (bool, error) {
	return a.sdk.Alpha().PlayerConnect(playerID)
}

func (a *AgonesSDK) PlayerDisconnect(playerID string) (bool, error) {
	return a.sdk.Alpha().PlayerDisconnect(playerID)
}

func (a *AgonesSDK) GetPlayerCount() (int64, error) {
	return a.sdk.Alpha().GetPlayerCount()
}
