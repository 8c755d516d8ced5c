package network

import (
	"encoding/json"

	"github.com/wfunc/gridserver/models"
	"github.com/wfunc/gridserver/movement"
)

const (
	MsgTypeInit      = "init"
	MsgTypeGameState = "gameState"
	MsgTypeMove      = "move"
)

// InitMessage 仅发送给新连接：你是谁 + 当前全量状态
type InitMessage struct {
	Type      string           `json:"type" jsonschema:"enum=init"`
	PlayerID  models.PlayerID  `json:"playerId"`
	GameState models.GameState `json:"gameState"`
}

// StateMessage 状态变化时广播给所有连接
type StateMessage struct {
	Type      string           `json:"type" jsonschema:"enum=gameState"`
	GameState models.GameState `json:"gameState"`
}

// MoveMessage 客户端移动指令
type MoveMessage struct {
	Type      string `json:"type" jsonschema:"enum=move"`
	Direction string `json:"direction" jsonschema:"enum=up,enum=down,enum=left,enum=right"`
}

func EncodeInit(id models.PlayerID, gs models.GameState) ([]byte, error) {
	return json.Marshal(InitMessage{Type: MsgTypeInit, PlayerID: id, GameState: gs})
}

func EncodeState(gs models.GameState) ([]byte, error) {
	return json.Marshal(StateMessage{Type: MsgTypeGameState, GameState: gs})
}

// ClientMessage 客户端消息的封闭变体，目前只有 MoveCommand
type ClientMessage interface {
	isClientMessage()
}

type MoveCommand struct {
	Direction models.Direction
}

func (MoveCommand) isClientMessage() {}

type envelope struct {
	Type string `json:"type"`
}

// DecodeClientMessage 解析并校验客户端消息。
// 不可解析、缺少 type、未知 type、方向非法时返回 ok=false，调用方直接忽略。
func DecodeClientMessage(data []byte) (ClientMessage, bool) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, false
	}
	switch env.Type {
	case MsgTypeMove:
		var m MoveMessage
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, false
		}
		dir, ok := movement.ParseDirection(m.Direction)
		if !ok {
			return nil, false
		}
		return MoveCommand{Direction: dir}, true
	default:
		return nil, false
	}
}
