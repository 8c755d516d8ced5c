package main

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/pflag"
	"github.com/wfunc/gridserver/logger"
	"github.com/wfunc/gridserver/models"
	"github.com/wfunc/gridserver/network"
)

var directions = []string{"up", "down", "left", "right"}

// Bot 以 ai 身份连接服务器，定时随机移动，断线后自动重连
type Bot struct {
	url      string
	interval time.Duration
	retry    time.Duration
	rng      *rand.Rand

	mu       sync.Mutex
	playerID models.PlayerID
	position models.PlayerState
}

func NewBot(addr string, interval, retry time.Duration) *Bot {
	u := url.URL{Scheme: "ws", Host: addr, Path: "/", RawQuery: "type=ai"}
	return &Bot{
		url:      u.String(),
		interval: interval,
		retry:    retry,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Run 直到 ctx 结束
func (b *Bot) Run(ctx context.Context) error {
	for {
		err := b.session(ctx)
		if ctx.Err() != nil {
			return nil
		}
		logger.Log.Warnw("connection lost, reconnecting", "error", err, "retry", b.retry)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(b.retry):
		}
	}
}

func (b *Bot) session(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, b.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	logger.Log.Infow("connected to game server", "url", b.url)

	readErr := make(chan error, 1)
	go func() {
		readErr <- b.readLoop(conn)
	}()

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return ctx.Err()
		case err := <-readErr:
			return err
		case <-ticker.C:
			direction := directions[b.rng.Intn(len(directions))]
			data, _ := json.Marshal(network.MoveMessage{Type: network.MsgTypeMove, Direction: direction})
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return err
			}
			logger.Log.Infow("moving", "direction", direction)
		}
	}
}

type serverFrame struct {
	Type      string           `json:"type"`
	PlayerID  models.PlayerID  `json:"playerId"`
	GameState models.GameState `json:"gameState"`
}

func (b *Bot) readLoop(conn *websocket.Conn) error {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var frame serverFrame
		if err := json.Unmarshal(message, &frame); err != nil {
			logger.Log.Warnw("failed to decode server message", "error", err)
			continue
		}
		b.handle(frame)
	}
}

func (b *Bot) handle(frame serverFrame) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch frame.Type {
	case network.MsgTypeInit:
		b.playerID = frame.PlayerID
		logger.Log.Infow("initialized", "player", b.playerID)
	case network.MsgTypeGameState:
		if pos, ok := frame.GameState.Player(b.playerID); ok {
			b.position = pos
			logger.Log.Infow("current position", "x", pos.X, "y", pos.Y, "players", frame.GameState.Count())
		}
	}
}

// Position 最近一次广播中自己的位置
func (b *Bot) Position() (models.PlayerID, models.PlayerState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.playerID, b.position
}

func main() {
	fs := pflag.NewFlagSet("gridbot", pflag.ExitOnError)
	addr := fs.String("addr", "localhost:3000", "game server host:port")
	interval := fs.Duration("interval", 5*time.Second, "time between moves")
	retry := fs.Duration("retry", 5*time.Second, "delay before reconnecting")
	level := fs.String("log-level", "info", "log level")
	_ = fs.Parse(os.Args[1:])

	if err := logger.Init(logger.Options{Level: *level}); err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bot := NewBot(*addr, *interval, *retry)
	if err := bot.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Log.Fatalf("bot stopped: %v", err)
	}
	logger.Log.Info("bot stopped")
}
