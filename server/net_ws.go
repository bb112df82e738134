package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// ClientConn 负责发送（写）数据到客户端的轻量包装
type ClientConn struct {
	id   string
	ws   *websocket.Conn
	send chan []byte
	once sync.Once
	done chan struct{}
}

func NewClientConn(ws *websocket.Conn, queueSize int) *ClientConn {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &ClientConn{
		id:   uuid.NewString(),
		ws:   ws,
		send: make(chan []byte, queueSize),
		done: make(chan struct{}),
	}
}

// ID 连接标识
func (c *ClientConn) ID() string { return c.id }

// Enqueue 将要发送的消息压入队列（非阻塞，满则丢弃）
func (c *ClientConn) Enqueue(b []byte) {
	select {
	case <-c.done:
		return
	default:
	}
	select {
	case c.send <- b:
	default:
		// 为了实时性，丢弃新消息（防止阻塞 Tick）
		Log.Debugf("client %s: send queue full, dropping frame", c.id)
	}
}

// Close 通知写协程退出并关闭底层连接（幂等）
func (c *ClientConn) Close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.ws.Close()
	})
}

// writePump 独立协程，负责从 send 队列写出到 WS，并定期 ping
func (c *ClientConn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()
	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump 读取客户端消息，转换为输入事件或迁移注入会话
func (c *ClientConn) readPump(s *Session, keys KeyBindings) {
	defer c.Close()
	// 读泵退出时，通知会话在 Tick 协程中移除该连接
	defer s.Leave(c.id)
	c.ws.SetReadLimit(1 << 16)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error { c.ws.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		_, payload, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				Log.Warnf("client %s: read: %v", c.id, err)
			}
			return
		}
		var msg ClientMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			Log.Debugf("client %s: bad message: %v", c.id, err)
			continue
		}
		if err := dispatch(s, keys, msg); err != nil {
			if errors.Is(err, ErrSessionClosed) {
				return
			}
			Log.Debugf("client %s: %v", c.id, err)
		}
	}
}

// dispatch 将一条客户端消息交给会话
func dispatch(s *Session, keys KeyBindings, msg ClientMessage) error {
	switch strings.ToLower(msg.Type) {
	case "input":
		a, err := ParseInputAction(msg.Action)
		if err != nil {
			return err
		}
		return s.SetInput(a, msg.Held)
	case "key":
		a, err := keys.Lookup(msg.Key)
		if err != nil {
			return err
		}
		return s.SetInput(a, msg.Down)
	case "pause":
		return s.Submit(TogglePause())
	case "action":
		// 外部协作方可提交任意种类，未实现的种类为空操作
		return s.Submit(Action{Type: ActionType(strings.ToUpper(msg.Action))})
	default:
		return errors.New("unknown message type " + msg.Type)
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// 演示环境：允许所有来源（生产环境需严格限制）
		return true
	},
}

// HandleWS WebSocket 接入：/ws?session=session-1
func HandleWS(mgr *SessionManager) http.HandlerFunc {
	keys := DefaultKeyBindings()
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.URL.Query().Get("session")
		if sessionID == "" {
			sessionID = mgr.cfg.Server.DefaultSession
		}

		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			Log.Warnf("upgrade error: %v", err)
			return
		}

		s := mgr.GetOrCreate(sessionID)
		client := NewClientConn(ws, mgr.cfg.Session.SendQueueSize)
		if err := s.Join(client); err != nil {
			Log.Warnf("session %s: join %s: %v", s.ID, client.ID(), err)
			client.Close()
			return
		}

		go client.writePump()
		go client.readPump(s, keys)
	}
}
