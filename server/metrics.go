package server

import (
	"sync/atomic"
)

// SessionMetrics 记录会话运行期的关键指标（用于监控与调试）
type SessionMetrics struct {
	TickCount          int64 // Tick 次数
	Transitions        int64 // 产生新快照的迁移数
	InputsAccepted     int64 // 进入队列的输入事件
	InputsDropped      int64 // 因通道满被丢弃的输入事件
	ActionsAccepted    int64 // 外部提交的迁移
	ActionsDropped     int64 // 因通道满被丢弃的迁移
	SnapshotsBroadcast int64 // 广播的快照数
	TotalTickNs        int64 // Tick 累计耗时（纳秒）
}

func (m *SessionMetrics) IncInputsAccepted()     { atomic.AddInt64(&m.InputsAccepted, 1) }
func (m *SessionMetrics) IncInputsDropped()      { atomic.AddInt64(&m.InputsDropped, 1) }
func (m *SessionMetrics) IncActionsAccepted()    { atomic.AddInt64(&m.ActionsAccepted, 1) }
func (m *SessionMetrics) IncActionsDropped()     { atomic.AddInt64(&m.ActionsDropped, 1) }
func (m *SessionMetrics) IncSnapshotsBroadcast() { atomic.AddInt64(&m.SnapshotsBroadcast, 1) }
func (m *SessionMetrics) AddTransitions(n int64) { atomic.AddInt64(&m.Transitions, n) }
func (m *SessionMetrics) AddTick(ns int64) {
	atomic.AddInt64(&m.TickCount, 1)
	atomic.AddInt64(&m.TotalTickNs, ns)
}

// Snapshot 返回只读副本，便于 HTTP 输出
func (m *SessionMetrics) Snapshot() map[string]any {
	tick := atomic.LoadInt64(&m.TickCount)
	total := atomic.LoadInt64(&m.TotalTickNs)
	var avgMs float64
	if tick > 0 {
		avgMs = float64(total) / float64(tick) / 1e6
	}
	return map[string]any{
		"tick_count":          tick,
		"transitions":         atomic.LoadInt64(&m.Transitions),
		"inputs_accepted":     atomic.LoadInt64(&m.InputsAccepted),
		"inputs_dropped":      atomic.LoadInt64(&m.InputsDropped),
		"actions_accepted":    atomic.LoadInt64(&m.ActionsAccepted),
		"actions_dropped":     atomic.LoadInt64(&m.ActionsDropped),
		"snapshots_broadcast": atomic.LoadInt64(&m.SnapshotsBroadcast),
		"avg_tick_ms":         avgMs,
	}
}
