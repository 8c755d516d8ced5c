package network

import (
	"encoding/json"
	"testing"

	"github.com/wfunc/gridserver/models"
)

func TestDecodeClientMessage_Move(t *testing.T) {
	msg, ok := DecodeClientMessage([]byte(`{"type":"move","direction":"up"}`))
	if !ok {
		t.Fatal("expected valid move to decode")
	}
	move, isMove := msg.(MoveCommand)
	if !isMove {
		t.Fatalf("expected MoveCommand, got %T", msg)
	}
	if move.Direction != models.DirUp {
		t.Errorf("expected direction up, got %q", move.Direction)
	}
}

func TestDecodeClientMessage_IgnoresMalformed(t *testing.T) {
	payloads := []string{
		`{}`,
		`{"type":"move"}`,
		`{"type":"move","direction":"north"}`,
		`{"type":"move","direction":5}`,
		`{"type":"jump","direction":"up"}`,
		`{"direction":"up"}`,
		`not json`,
		``,
		`[]`,
		`null`,
	}
	for _, p := range payloads {
		if msg, ok := DecodeClientMessage([]byte(p)); ok {
			t.Errorf("payload %q should be ignored, decoded as %#v", p, msg)
		}
	}
}

func TestEncodeInit_WireShape(t *testing.T) {
	gs := models.GameState{Players: map[models.PlayerID]models.PlayerState{
		"abc": {X: 1, Y: 2, Kind: models.KindAI},
	}}
	data, err := EncodeInit("abc", gs)
	if err != nil {
		t.Fatalf("EncodeInit failed: %v", err)
	}

	var decoded struct {
		Type      string `json:"type"`
		PlayerID  string `json:"playerId"`
		GameState struct {
			Players map[string]struct {
				X    int    `json:"x"`
				Y    int    `json:"y"`
				Type string `json:"type"`
			} `json:"players"`
		} `json:"gameState"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("init payload is not valid json: %v", err)
	}
	if decoded.Type != "init" || decoded.PlayerID != "abc" {
		t.Errorf("unexpected header: %s", data)
	}
	p, ok := decoded.GameState.Players["abc"]
	if !ok || p.X != 1 || p.Y != 2 || p.Type != "ai" {
		t.Errorf("unexpected players payload: %s", data)
	}
}

func TestEncodeState_Discriminator(t *testing.T) {
	data, err := EncodeState(models.GameState{Players: map[models.PlayerID]models.PlayerState{}})
	if err != nil {
		t.Fatalf("EncodeState failed: %v", err)
	}
	if string(data) != `{"type":"gameState","gameState":{"players":{}}}` {
		t.Errorf("unexpected state payload: %s", data)
	}
}

func TestProtocolSchema(t *testing.T) {
	schemas := ProtocolSchema()
	for _, key := range []string{MsgTypeInit, MsgTypeGameState, MsgTypeMove} {
		s, ok := schemas[key]
		if !ok || s == nil {
			t.Fatalf("missing schema for %q", key)
		}
		if _, err := json.Marshal(s); err != nil {
			t.Errorf("schema for %q does not marshal: %v", key, err)
		}
	}
}
