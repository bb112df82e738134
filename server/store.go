package server

import "sync"

// Store 持有唯一的 GameState 快照，所有修改经由 Apply 串行执行
type Store struct {
	mu      sync.Mutex
	state   *GameState
	subs    []func(*GameState)
	applied int64
}

// NewStore 以初始状态创建 Store
func NewStore(initial *GameState) *Store {
	return &Store{state: initial}
}

// State 返回当前快照（只读）。未初始化即读取属于接线错误
func (s *Store) State() *GameState {
	if s == nil {
		panic("server: read from nil Store")
	}
	s.mu.Lock()
	st := s.state
	s.mu.Unlock()
	if st == nil {
		panic("server: Store read before initialization")
	}
	return st
}

// Apply 执行一次迁移并原子替换快照。状态未变化时不通知订阅者
func (s *Store) Apply(a Action) *GameState {
	s.mu.Lock()
	if s.state == nil {
		s.mu.Unlock()
		panic("server: Store apply before initialization")
	}
	prev := s.state
	next := Reduce(prev, a)
	if next == prev {
		s.mu.Unlock()
		return prev
	}
	s.state = next
	s.applied++
	subs := s.subs
	s.mu.Unlock()

	for _, fn := range subs {
		fn(next)
	}
	return next
}

// Subscribe 注册快照回调，在 Apply 的调用方协程中执行
func (s *Store) Subscribe(fn func(*GameState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	subs := make([]func(*GameState), len(s.subs), len(s.subs)+1)
	copy(subs, s.subs)
	s.subs = append(subs, fn)
}

// Applied 返回产生了新快照的迁移次数
func (s *Store) Applied() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applied
}
