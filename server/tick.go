package server

import (
	"sync"
	"time"
)

const (
	// DefaultFrameRate 默认每秒帧数（模拟浏览器刷新节奏）
	DefaultFrameRate = 60
)

// TickSource 帧信号来源：Next 预约下一帧回调，返回取消函数
type TickSource interface {
	Next(fn func(now time.Time)) (cancel func())
}

// TickerSource 基于 time.Ticker 的真实帧源。
// 每个 ticker 周期最多触发一次已预约的回调，未预约时跳过。
type TickerSource struct {
	interval time.Duration

	mu      sync.Mutex
	pending func(time.Time)
	seq     uint64
	started bool
	stop    chan struct{}
	once    sync.Once
}

// NewTickerSource 以帧率创建帧源
func NewTickerSource(frameRate int) *TickerSource {
	if frameRate <= 0 {
		frameRate = DefaultFrameRate
	}
	return &TickerSource{
		interval: time.Second / time.Duration(frameRate),
		stop:     make(chan struct{}),
	}
}

// Next 预约下一帧
func (s *TickerSource) Next(fn func(time.Time)) func() {
	s.mu.Lock()
	s.seq++
	id := s.seq
	s.pending = fn
	if !s.started {
		s.started = true
		go s.run()
	}
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		if s.seq == id {
			s.pending = nil
		}
		s.mu.Unlock()
	}
}

func (s *TickerSource) run() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case now := <-ticker.C:
			s.mu.Lock()
			fn := s.pending
			s.pending = nil
			s.mu.Unlock()
			if fn != nil {
				fn(now)
			}
		}
	}
}

// Close 停止底层 ticker 协程（幂等）
func (s *TickerSource) Close() {
	s.once.Do(func() { close(s.stop) })
}

// ManualSource 手动帧源，测试中按任意步长推进时间
type ManualSource struct {
	mu      sync.Mutex
	now     time.Time
	pending func(time.Time)
	seq     uint64
}

// NewManualSource 从给定时刻开始
func NewManualSource(start time.Time) *ManualSource {
	return &ManualSource{now: start}
}

// Next 预约下一帧
func (s *ManualSource) Next(fn func(time.Time)) func() {
	s.mu.Lock()
	s.seq++
	id := s.seq
	s.pending = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		if s.seq == id {
			s.pending = nil
		}
		s.mu.Unlock()
	}
}

// Advance 推进 d 并触发已预约的回调；返回是否触发
func (s *ManualSource) Advance(d time.Duration) bool {
	s.mu.Lock()
	s.now = s.now.Add(d)
	now := s.now
	fn := s.pending
	s.pending = nil
	s.mu.Unlock()
	if fn == nil {
		return false
	}
	fn(now)
	return true
}

// Pending 是否有已预约的回调
func (s *ManualSource) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending != nil
}

// Clock 模拟时钟：每帧回调一次，传入距上一帧的毫秒数（首帧为 0）
type Clock struct {
	src    TickSource
	onTick func(elapsedMs float64)

	mu        sync.Mutex
	last      time.Time
	started   bool
	cancelled bool
	cancel    func()

	// running 在回调执行期间持有，Stop 借此等待进行中的 Tick
	running sync.Mutex
}

// NewClock 创建时钟，Start 前不会触发任何回调
func NewClock(src TickSource, onTick func(elapsedMs float64)) *Clock {
	return &Clock{src: src, onTick: onTick}
}

// Start 预约首帧（重复调用无效）
func (c *Clock) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started || c.cancelled {
		return
	}
	c.started = true
	c.cancel = c.src.Next(c.frame)
}

func (c *Clock) frame(now time.Time) {
	c.running.Lock()
	defer c.running.Unlock()

	c.mu.Lock()
	if c.cancelled {
		c.mu.Unlock()
		return
	}
	elapsed := 0.0
	if !c.last.IsZero() {
		elapsed = float64(now.Sub(c.last)) / float64(time.Millisecond)
		if elapsed < 0 {
			elapsed = 0
		}
	}
	c.last = now
	c.mu.Unlock()

	c.onTick(elapsed)

	c.mu.Lock()
	if !c.cancelled {
		c.cancel = c.src.Next(c.frame)
	}
	c.mu.Unlock()
}

// Stop 取消后续帧并等待进行中的回调结束（幂等）。
// 不能在 onTick 内调用。
func (c *Clock) Stop() {
	c.mu.Lock()
	if c.cancelled {
		c.mu.Unlock()
		return
	}
	c.cancelled = true
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.mu.Unlock()

	c.running.Lock()
	c.running.Unlock() //nolint:staticcheck // 仅用于等待
}

// Stopped 是否已停止
func (c *Clock) Stopped() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancelled
}
