package server

import (
	"encoding/json"
	"net/http"
	"time"
)

func sessionFor(mgr *SessionManager, r *http.Request) *Session {
	id := r.URL.Query().Get("session")
	if id == "" {
		id = mgr.cfg.Server.DefaultSession
	}
	return mgr.GetOrCreate(id)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// HandleAdminConfig 提供会话参数的读取与热更新
// GET /admin/config?session=session-1  返回当前参数
// POST /admin/config?session=session-1 以 JSON 载荷更新部分字段
func HandleAdminConfig(mgr *SessionManager) http.HandlerFunc {
	type cfg struct {
		FrameIntervalMs *int `json:"frameIntervalMs,omitempty"`
		BroadcastEvery  *int `json:"broadcastEvery,omitempty"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		s := sessionFor(mgr, r)
		switch r.Method {
		case http.MethodGet:
			t := s.Tunables()
			ms := int(t.FrameInterval / time.Millisecond)
			writeJSON(w, cfg{FrameIntervalMs: &ms, BroadcastEvery: &t.BroadcastEvery})
		case http.MethodPost:
			var body cfg
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				http.Error(w, "invalid json", http.StatusBadRequest)
				return
			}
			var upd Tunables
			if body.FrameIntervalMs != nil {
				if *body.FrameIntervalMs <= 0 {
					http.Error(w, "frameIntervalMs must be positive", http.StatusBadRequest)
					return
				}
				upd.FrameInterval = time.Duration(*body.FrameIntervalMs) * time.Millisecond
			}
			if body.BroadcastEvery != nil {
				if *body.BroadcastEvery <= 0 {
					http.Error(w, "broadcastEvery must be positive", http.StatusBadRequest)
					return
				}
				upd.BroadcastEvery = *body.BroadcastEvery
			}
			t := s.SetTunables(upd)
			writeJSON(w, map[string]any{"ok": true})
			Log.Infof("config updated: session=%s frameInterval=%s broadcastEvery=%d",
				s.ID, t.FrameInterval, t.BroadcastEvery)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

// HandleMetrics 输出指定会话的运行指标
// GET /metrics?session=session-1
func HandleMetrics(mgr *SessionManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := sessionFor(mgr, r)
		writeJSON(w, map[string]any{
			"session": s.ID,
			"tick":    s.TickSeq(),
			"metrics": s.Metrics().Snapshot(),
		})
	}
}

// HandleState 输出当前快照
// GET /state?session=session-1
func HandleState(mgr *SessionManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := sessionFor(mgr, r)
		writeJSON(w, StateMessage{Type: "state", Tick: s.TickSeq(), State: s.Snapshot()})
	}
}
