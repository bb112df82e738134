package server

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var (
	// ErrSessionClosed 会话已关闭
	ErrSessionClosed = errors.New("session closed")
	// ErrQueueFull 入站队列已满，消息被丢弃
	ErrQueueFull = errors.New("queue full")
)

// Subscriber 快照接收方（WebSocket 连接等）
type Subscriber interface {
	ID() string
	Enqueue(b []byte)
	Close()
}

// MoveFilter 在移动迁移应用前介入（例如碰撞或边界），返回 false 丢弃该迁移
type MoveFilter func(st *GameState, proposed Action) (Action, bool)

// ClampToMap 将候选位置裁剪到地图像素范围内
func ClampToMap(st *GameState, proposed Action) (Action, bool) {
	p, ok := proposed.Payload.(MovePlayerPayload)
	if !ok || st.Map == nil {
		return proposed, true
	}
	w, h := st.Map.PixelSize()
	if p.Position.X < 0 {
		p.Position.X = 0
	}
	if p.Position.Y < 0 {
		p.Position.Y = 0
	}
	if p.Position.X > w {
		p.Position.X = w
	}
	if p.Position.Y > h {
		p.Position.Y = h
	}
	proposed.Payload = p
	return proposed, true
}

// Tunables 可热更新的会话参数
type Tunables struct {
	FrameInterval  time.Duration
	BroadcastEvery int
}

// SessionOptions 会话构造参数
type SessionOptions struct {
	Map        *GameMap
	Source     TickSource // 为空时使用 TickerSource(Config.FrameRate)
	Config     SessionConfig
	Tunables   Tunables
	MoveFilter MoveFilter
	TraceTicks bool
}

// StateMessage 出站状态广播
type StateMessage struct {
	Type  string     `json:"type"`
	Tick  int64      `json:"tick"`
	State *GameState `json:"state"`
}

// Session 一局游戏：持有 Store、输入状态与时钟，单协程 Tick 推进
type Session struct {
	ID string

	store    *Store
	input    InputState // 仅在 Tick 协程内读写
	animator *Animator
	clock    *Clock
	ticker   *TickerSource // 自有帧源，关闭时释放

	inputChan  chan InputEvent
	actionChan chan Action
	joinChan   chan Subscriber
	leaveChan  chan string

	clients       map[string]Subscriber // 仅在 Tick 协程内读写
	lastBroadcast *GameState

	tunMu    sync.Mutex
	tunables Tunables

	moveFilter MoveFilter
	tracer     trace.Tracer
	traceTicks bool

	metrics *SessionMetrics
	tickSeq int64
	closed  atomic.Bool
	once    sync.Once

	// joinMu 保证 Close 之后不会再有订阅者进入 joinChan
	joinMu sync.Mutex
}

// NewSession 创建会话（尚未开始 Tick）
func NewSession(id string, opts SessionOptions) *Session {
	cfg := opts.Config
	if cfg.InputQueueSize <= 0 {
		cfg.InputQueueSize = 256
	}
	if cfg.ActionQueueSize <= 0 {
		cfg.ActionQueueSize = 64
	}
	tun := opts.Tunables
	if tun.FrameInterval <= 0 {
		tun.FrameInterval = DefaultFrameInterval
	}
	if tun.BroadcastEvery <= 0 {
		tun.BroadcastEvery = 1
	}

	s := &Session{
		ID:         id,
		store:      NewStore(NewInitialState(opts.Map)),
		animator:   NewAnimator(tun.FrameInterval),
		inputChan:  make(chan InputEvent, cfg.InputQueueSize),
		actionChan: make(chan Action, cfg.ActionQueueSize),
		joinChan:   make(chan Subscriber, 16),
		leaveChan:  make(chan string, 64),
		clients:    make(map[string]Subscriber),
		tunables:   tun,
		moveFilter: opts.MoveFilter,
		tracer:     Tracer("session"),
		traceTicks: opts.TraceTicks,
		metrics:    &SessionMetrics{},
	}

	src := opts.Source
	if src == nil {
		s.ticker = NewTickerSource(cfg.FrameRate)
		src = s.ticker
	}
	s.clock = NewClock(src, s.tick)
	return s
}

// Start 开始 Tick 循环
func (s *Session) Start() {
	_, span := s.tracer.Start(context.Background(), "session.start",
		trace.WithAttributes(
			attribute.String("session.id", s.ID),
			attribute.String("map.id", s.Snapshot().CurrentMapID),
		))
	defer span.End()
	s.clock.Start()
	Log.Infof("session %s started", s.ID)
}

// Close 停止时钟并断开所有订阅者；返回后不会再有迁移被应用（幂等）
func (s *Session) Close() {
	s.once.Do(func() {
		_, span := s.tracer.Start(context.Background(), "session.close",
			trace.WithAttributes(attribute.String("session.id", s.ID)))
		defer span.End()

		s.joinMu.Lock()
		s.closed.Store(true)
		s.joinMu.Unlock()
		s.clock.Stop()
		if s.ticker != nil {
			s.ticker.Close()
		}
		for len(s.joinChan) > 0 {
			(<-s.joinChan).Close()
		}
		for id, c := range s.clients {
			c.Close()
			delete(s.clients, id)
		}
		Log.Infof("session %s closed after %d ticks", s.ID, atomic.LoadInt64(&s.tickSeq))
	})
}

// Closed 会话是否已关闭
func (s *Session) Closed() bool {
	return s.closed.Load()
}

// Snapshot 当前只读快照
func (s *Session) Snapshot() *GameState {
	return s.store.State()
}

// Store 暴露给渲染方订阅快照
func (s *Session) Store() *Store {
	return s.store
}

// Metrics 运行指标
func (s *Session) Metrics() *SessionMetrics {
	return s.metrics
}

// TickSeq 已执行的 Tick 数
func (s *Session) TickSeq() int64 {
	return atomic.LoadInt64(&s.tickSeq)
}

// Tunables 当前可调参数
func (s *Session) Tunables() Tunables {
	s.tunMu.Lock()
	defer s.tunMu.Unlock()
	return s.tunables
}

// SetTunables 热更新参数，非正值字段保持原值
func (s *Session) SetTunables(t Tunables) Tunables {
	s.tunMu.Lock()
	defer s.tunMu.Unlock()
	if t.FrameInterval > 0 {
		s.tunables.FrameInterval = t.FrameInterval
	}
	if t.BroadcastEvery > 0 {
		s.tunables.BroadcastEvery = t.BroadcastEvery
	}
	return s.tunables
}

// SetInput 入站输入（不立即生效），在下一次 Tick 开始时写入 InputState
func (s *Session) SetInput(a InputAction, held bool) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	if a < 0 || a >= numInputActions {
		return ErrUnknownInput
	}
	select {
	case s.inputChan <- InputEvent{Action: a, Held: held}:
		s.metrics.IncInputsAccepted()
		return nil
	default:
		// 为了实时性，丢弃而不是阻塞
		s.metrics.IncInputsDropped()
		return ErrQueueFull
	}
}

// Submit 外部协作方提交的迁移，在下一次 Tick 中应用
func (s *Session) Submit(a Action) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	select {
	case s.actionChan <- a:
		s.metrics.IncActionsAccepted()
		return nil
	default:
		s.metrics.IncActionsDropped()
		return ErrQueueFull
	}
}

// Join 订阅快照；加入后立即收到一次完整状态
func (s *Session) Join(c Subscriber) error {
	s.joinMu.Lock()
	defer s.joinMu.Unlock()
	if s.closed.Load() {
		return ErrSessionClosed
	}
	select {
	case s.joinChan <- c:
		return nil
	default:
		return ErrQueueFull
	}
}

// Leave 请求在 Tick 协程中移除订阅者
func (s *Session) Leave(id string) {
	if s.closed.Load() {
		return
	}
	// 通道有容量，满时丢弃由 Close 兜底清理
	select {
	case s.leaveChan <- id:
	default:
	}
}

// tick 核心循环：处理成员与输入 → 移动 → 时间 → 动画 → 广播
func (s *Session) tick(elapsedMs float64) {
	start := time.Now()
	seq := atomic.AddInt64(&s.tickSeq, 1)
	if s.traceTicks {
		_, span := s.tracer.Start(context.Background(), "session.tick",
			trace.WithAttributes(
				attribute.Int64("tick", seq),
				attribute.Float64("elapsed_ms", elapsedMs),
			))
		defer span.End()
	}
	before := s.store.Applied()

	tun := s.Tunables()
	s.animator.SetInterval(tun.FrameInterval)

	s.processMembership()
	s.processInputs()
	s.processActions()
	s.step(elapsedMs)
	if seq%int64(tun.BroadcastEvery) == 0 {
		s.broadcast(seq)
	}

	s.metrics.AddTransitions(s.store.Applied() - before)
	s.metrics.AddTick(time.Since(start).Nanoseconds())
}

func (s *Session) processMembership() {
	for {
		select {
		case c := <-s.joinChan:
			s.clients[c.ID()] = c
			s.send(c, s.TickSeq(), s.store.State())
			Log.Infof("session %s: client %s joined (%d clients)", s.ID, c.ID(), len(s.clients))
		case id := <-s.leaveChan:
			if c, ok := s.clients[id]; ok {
				c.Close()
				delete(s.clients, id)
				Log.Infof("session %s: client %s left", s.ID, id)
			}
		default:
			return
		}
	}
}

// processInputs 非阻塞 drain，写入本 Tick 使用的 InputState
func (s *Session) processInputs() {
	for {
		select {
		case ev := <-s.inputChan:
			s.input.Set(ev.Action, ev.Held)
		default:
			return
		}
	}
}

func (s *Session) processActions() {
	for {
		select {
		case a := <-s.actionChan:
			s.store.Apply(a)
		default:
			return
		}
	}
}

// step 推进一次模拟；暂停时时间与动画都冻结
func (s *Session) step(elapsedMs float64) {
	st := s.store.State()
	if a, ok := ResolveMovement(s.input, st.Player, st.Paused); ok {
		if s.moveFilter != nil {
			a, ok = s.moveFilter(st, a)
		}
		if ok {
			st = s.store.Apply(a)
		}
	}
	if st.Paused {
		return
	}
	st = s.store.Apply(AdvanceTime(elapsedMs))
	for _, a := range s.animator.Advance(st, elapsedMs) {
		st = s.store.Apply(a)
	}
}

// broadcast 快照变化时发送给所有订阅者
func (s *Session) broadcast(seq int64) {
	st := s.store.State()
	if st == s.lastBroadcast {
		return
	}
	s.lastBroadcast = st
	if len(s.clients) == 0 {
		return
	}
	b, ok := s.encode(seq, st)
	if !ok {
		return
	}
	for _, c := range s.clients {
		c.Enqueue(b)
	}
	s.metrics.IncSnapshotsBroadcast()
}

func (s *Session) send(c Subscriber, seq int64, st *GameState) {
	if b, ok := s.encode(seq, st); ok {
		c.Enqueue(b)
	}
}

func (s *Session) encode(seq int64, st *GameState) ([]byte, bool) {
	b, err := json.Marshal(StateMessage{Type: "state", Tick: seq, State: st})
	if err != nil {
		Log.Errorf("session %s: marshal state: %v", s.ID, err)
		return nil, false
	}
	return b, true
}
