// network/connection.go
package network

import (
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/wfunc/gridserver/logger"
)

// MaxFrameSize 传输层硬上限，超过时由 websocket 库以 1009 关闭连接。
// ReadLimit 以内的消息交给上层，介于两者之间的消息读完丢弃，连接保持打开。
const MaxFrameSize = 1 << 20

var (
	ErrClosed         = errors.New("connection closed")
	ErrSendBufferFull = errors.New("send buffer full")
)

// Connection 一条客户端连接。Send 只入队不阻塞，实际写出由连接自己的写协程完成。
type Connection interface {
	Send(data []byte) error
	ReadMessage() ([]byte, error)
	Close() error
	RemoteAddr() net.Addr
	// Ready 为 true 时才接收广播；新连接在收到 init 之后才会被标记
	Ready() bool
	MarkReady()
}

type Options struct {
	SendBuffer int
	WriteWait  time.Duration
	PongWait   time.Duration
	ReadLimit  int64
}

func (o Options) withDefaults() Options {
	if o.SendBuffer <= 0 {
		o.SendBuffer = 64
	}
	if o.WriteWait <= 0 {
		o.WriteWait = 10 * time.Second
	}
	if o.PongWait <= 0 {
		o.PongWait = 60 * time.Second
	}
	if o.ReadLimit <= 0 {
		o.ReadLimit = 4096
	}
	return o
}

type WSConnection struct {
	conn      *websocket.Conn
	opts      Options
	send      chan []byte
	done      chan struct{}
	ready     atomic.Bool
	closed    atomic.Bool
	closeOnce sync.Once
}

func NewWSConnection(conn *websocket.Conn, opts Options) *WSConnection {
	opts = opts.withDefaults()
	c := &WSConnection{
		conn: conn,
		opts: opts,
		send: make(chan []byte, opts.SendBuffer),
		done: make(chan struct{}),
	}
	frameLimit := int64(MaxFrameSize)
	if opts.ReadLimit >= frameLimit {
		frameLimit = opts.ReadLimit + 1
	}
	conn.SetReadLimit(frameLimit)
	_ = conn.SetReadDeadline(time.Now().Add(opts.PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(opts.PongWait))
	})
	go c.writePump()
	return c
}

func (c *WSConnection) Send(data []byte) error {
	if c.closed.Load() {
		return ErrClosed
	}
	select {
	case c.send <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// ReadMessage 返回下一条不超过 ReadLimit 的消息，超长消息被丢弃
func (c *WSConnection) ReadMessage() ([]byte, error) {
	for {
		_, r, err := c.conn.NextReader()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(io.LimitReader(r, c.opts.ReadLimit+1))
		if err != nil {
			return nil, err
		}
		if int64(len(data)) <= c.opts.ReadLimit {
			_ = c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
			return data, nil
		}

		discarded, err := io.Copy(io.Discard, r)
		if err != nil {
			return nil, err
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
		logger.Log.Debugw("discarded oversized message", "remote", c.RemoteAddr(), "bytes", int64(len(data))+discarded, "limit", c.opts.ReadLimit)
	}
}

func (c *WSConnection) Ready() bool {
	return c.ready.Load() && !c.closed.Load()
}

func (c *WSConnection) MarkReady() {
	c.ready.Store(true)
}

func (c *WSConnection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.done)
		err = c.conn.Close()
	})
	return err
}

func (c *WSConnection) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// writePump 独立协程，从发送队列写出，并定期发送 ping
func (c *WSConnection) writePump() {
	ticker := time.NewTicker(c.opts.PongWait * 9 / 10)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}
