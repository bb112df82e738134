package server

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// SessionManager 管理多个会话的生命周期
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	cfg      *Config
	gameMap  *GameMap

	// newSource 为新会话提供帧源；为空时每个会话使用自己的 TickerSource
	newSource func() TickSource
}

// NewSessionManager 加载配置中的地图并创建管理器
func NewSessionManager(cfg *Config) (*SessionManager, error) {
	m, err := LoadMap(cfg.Map.Name)
	if err != nil {
		return nil, fmt.Errorf("session manager: %w", err)
	}
	return &SessionManager{
		sessions: make(map[string]*Session),
		cfg:      cfg,
		gameMap:  m,
	}, nil
}

// GetOrCreate 获取或创建会话，并确保开始 Tick；id 为空时生成随机 ID
func (m *SessionManager) GetOrCreate(id string) *Session {
	if id == "" {
		id = uuid.NewString()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if ok && !s.Closed() {
		return s
	}
	s = NewSession(id, m.sessionOptions())
	m.sessions[id] = s
	s.Start()
	return s
}

// Get 查找已存在的会话
func (m *SessionManager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Close 关闭并移除单个会话
func (m *SessionManager) Close(id string) bool {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if ok {
		s.Close()
	}
	return ok
}

// CloseAll 关闭全部会话（进程退出时调用）
func (m *SessionManager) CloseAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()
	for _, s := range sessions {
		s.Close()
	}
}

// IDs 返回排序后的会话 ID
func (m *SessionManager) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (m *SessionManager) sessionOptions() SessionOptions {
	opts := SessionOptions{
		Map:    m.gameMap,
		Config: m.cfg.Session,
		Tunables: Tunables{
			FrameInterval:  m.cfg.Animation.FrameInterval.Duration,
			BroadcastEvery: m.cfg.Session.BroadcastEvery,
		},
		TraceTicks: m.cfg.Telemetry.TraceTicks,
	}
	if m.cfg.Session.ClampToMap {
		opts.MoveFilter = ClampToMap
	}
	if m.newSource != nil {
		opts.Source = m.newSource()
	}
	return opts
}
