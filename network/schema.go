package network

import (
	"github.com/invopop/jsonschema"
)

// ProtocolSchema 返回每种消息类型的 JSON Schema，供客户端开发对照
func ProtocolSchema() map[string]*jsonschema.Schema {
	return map[string]*jsonschema.Schema{
		MsgTypeInit:      jsonschema.Reflect(&InitMessage{}),
		MsgTypeGameState: jsonschema.Reflect(&StateMessage{}),
		MsgTypeMove:      jsonschema.Reflect(&MoveMessage{}),
	}
}
