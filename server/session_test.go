package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

type fakeSub struct {
	id     string
	mu     sync.Mutex
	msgs   [][]byte
	closed bool
}

func (f *fakeSub) ID() string { return f.id }

func (f *fakeSub) Enqueue(b []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, b)
}

func (f *fakeSub) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeSub) last(t *testing.T) StateMessage {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.msgs) == 0 {
		t.Fatal("no messages received")
	}
	var msg struct {
		Type  string `json:"type"`
		Tick  int64  `json:"tick"`
		State struct {
			Player struct {
				Position Position `json:"position"`
			} `json:"player"`
			Paused bool `json:"isGamePaused"`
		} `json:"state"`
	}
	if err := json.Unmarshal(f.msgs[len(f.msgs)-1], &msg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	st := &GameState{Paused: msg.State.Paused}
	st.Player.Position = msg.State.Player.Position
	return StateMessage{Type: msg.Type, Tick: msg.Tick, State: st}
}

func newManualSession(t *testing.T, opts SessionOptions) (*Session, *ManualSource) {
	t.Helper()
	src := NewManualSource(time.Unix(0, 0))
	if opts.Map == nil {
		opts.Map = MustLoadMap("initial")
	}
	opts.Source = src
	s := NewSession("test", opts)
	s.Start()
	t.Cleanup(s.Close)
	return s, src
}

const frame16 = 16 * time.Millisecond

func TestSessionMovesPlayer(t *testing.T) {
	s, src := newManualSession(t, SessionOptions{})

	if err := s.SetInput(InputMoveRight, true); err != nil {
		t.Fatal(err)
	}
	src.Advance(frame16)
	src.Advance(frame16)

	p := s.Snapshot().Player
	if p.Position != (Position{X: 406, Y: 300}) || p.Direction != DirRight || !p.IsMoving {
		t.Fatalf("player = %+v", p)
	}
	if s.TickSeq() != 2 {
		t.Fatalf("tickSeq = %d, want 2", s.TickSeq())
	}

	_ = s.SetInput(InputMoveRight, false)
	src.Advance(frame16)
	p = s.Snapshot().Player
	if p.IsMoving || p.Position.X != 406 {
		t.Fatalf("after release player = %+v", p)
	}
}

func TestSessionAdvancesGameTimeAndAnimation(t *testing.T) {
	s, src := newManualSession(t, SessionOptions{})
	_ = s.SetInput(InputMoveDown, true)

	src.Advance(frame16) // 首帧 elapsed = 0
	for i := 0; i < 10; i++ {
		src.Advance(frame16)
	}
	st := s.Snapshot()
	if st.GameTime != 160 {
		t.Fatalf("gameTime = %v, want 160", st.GameTime)
	}
	if st.Player.CurrentFrame != 1 {
		t.Fatalf("player frame = %d, want 1", st.Player.CurrentFrame)
	}
	if e, _ := st.Enemy("enemy1"); e.CurrentFrame != 1 {
		t.Fatalf("enemy frame = %d, want 1", e.CurrentFrame)
	}
}

func TestSessionPauseFreezesEverything(t *testing.T) {
	s, src := newManualSession(t, SessionOptions{})
	src.Advance(frame16)
	src.Advance(frame16)

	if err := s.Submit(TogglePause()); err != nil {
		t.Fatal(err)
	}
	_ = s.SetInput(InputMoveRight, true)
	src.Advance(frame16)
	before := s.Snapshot()
	if !before.Paused {
		t.Fatal("expected paused")
	}
	for i := 0; i < 20; i++ {
		src.Advance(frame16)
	}
	after := s.Snapshot()
	if after != before {
		t.Fatal("no transitions expected while paused")
	}
	if after.Player.Position.X != 400 || after.GameTime != 16 {
		t.Fatalf("player=%+v gameTime=%v", after.Player.Position, after.GameTime)
	}
}

func TestSessionBroadcastsToSubscribers(t *testing.T) {
	s, src := newManualSession(t, SessionOptions{})
	sub := &fakeSub{id: "c1"}
	if err := s.Join(sub); err != nil {
		t.Fatal(err)
	}

	src.Advance(frame16)
	if msg := sub.last(t); msg.Type != "state" || msg.Tick != 1 {
		t.Fatalf("join message = %+v", msg)
	}

	_ = s.SetInput(InputMoveUp, true)
	src.Advance(frame16)
	if got := sub.last(t).State.Player.Position; got != (Position{X: 400, Y: 297}) {
		t.Fatalf("broadcast position = %+v", got)
	}

	s.Leave("c1")
	src.Advance(frame16)
	sub.mu.Lock()
	closed := sub.closed
	sub.mu.Unlock()
	if !closed {
		t.Fatal("subscriber not closed after Leave")
	}
	if s.Metrics().SnapshotsBroadcast < 1 {
		t.Fatal("expected broadcast metric")
	}
}

func TestSessionBroadcastEvery(t *testing.T) {
	s, src := newManualSession(t, SessionOptions{Tunables: Tunables{BroadcastEvery: 3}})
	sub := &fakeSub{id: "c1"}
	_ = s.Join(sub)
	_ = s.SetInput(InputMoveLeft, true)

	for i := 0; i < 6; i++ {
		src.Advance(frame16)
	}
	sub.mu.Lock()
	n := len(sub.msgs)
	sub.mu.Unlock()
	// 加入时 1 条 + 第 3、6 帧广播
	if n != 3 {
		t.Fatalf("messages = %d, want 3", n)
	}
}

func TestSessionCloseStopsTransitions(t *testing.T) {
	s, src := newManualSession(t, SessionOptions{})
	sub := &fakeSub{id: "c1"}
	_ = s.Join(sub)
	src.Advance(frame16)

	s.Close()
	s.Close()
	before := s.Snapshot()
	if src.Advance(frame16) {
		t.Fatal("tick fired after Close")
	}
	if s.Snapshot() != before {
		t.Fatal("state changed after Close")
	}
	if !errors.Is(s.SetInput(InputMoveUp, true), ErrSessionClosed) {
		t.Fatal("SetInput after Close should fail")
	}
	if !errors.Is(s.Submit(TogglePause()), ErrSessionClosed) {
		t.Fatal("Submit after Close should fail")
	}
	if !errors.Is(s.Join(&fakeSub{id: "late"}), ErrSessionClosed) {
		t.Fatal("Join after Close should fail")
	}
	if !sub.closed {
		t.Fatal("subscriber not closed")
	}
}

func TestSessionJoinRacingClose(t *testing.T) {
	for round := 0; round < 50; round++ {
		s := NewSession("race", SessionOptions{
			Map:    MustLoadMap("initial"),
			Source: NewManualSource(time.Unix(0, 0)),
		})
		subs := make([]*fakeSub, 8)
		errs := make([]error, len(subs))
		var wg sync.WaitGroup
		for i := range subs {
			subs[i] = &fakeSub{id: fmt.Sprintf("c%d", i)}
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs[i] = s.Join(subs[i])
			}(i)
		}
		s.Close()
		wg.Wait()

		for i, sub := range subs {
			sub.mu.Lock()
			closed := sub.closed
			sub.mu.Unlock()
			// 加入成功的订阅者必须被 Close 回收
			if errs[i] == nil && !closed {
				t.Fatalf("round %d: subscriber %s joined but never closed", round, sub.id)
			}
			if errs[i] != nil && !errors.Is(errs[i], ErrSessionClosed) {
				t.Fatalf("round %d: join err = %v", round, errs[i])
			}
		}
	}
}

func TestSessionQueueFull(t *testing.T) {
	s := NewSession("full", SessionOptions{
		Map:    MustLoadMap("initial"),
		Source: NewManualSource(time.Unix(0, 0)),
		Config: SessionConfig{InputQueueSize: 1, ActionQueueSize: 1},
	})
	defer s.Close()

	if err := s.SetInput(InputMoveUp, true); err != nil {
		t.Fatal(err)
	}
	if err := s.SetInput(InputMoveDown, true); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("err = %v, want ErrQueueFull", err)
	}
	_ = s.Submit(TogglePause())
	if err := s.Submit(TogglePause()); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("err = %v, want ErrQueueFull", err)
	}
	if err := s.SetInput(numInputActions, true); !errors.Is(err, ErrUnknownInput) {
		t.Fatalf("err = %v, want ErrUnknownInput", err)
	}

	m := s.Metrics().Snapshot()
	if m["inputs_dropped"].(int64) != 1 || m["actions_dropped"].(int64) != 1 {
		t.Fatalf("metrics = %v", m)
	}
}

func TestSessionClampToMap(t *testing.T) {
	s, src := newManualSession(t, SessionOptions{MoveFilter: ClampToMap})
	if err := s.Submit(MovePlayer(Position{X: 1, Y: 1}, DirUpLeft, false)); err != nil {
		t.Fatal(err)
	}
	src.Advance(frame16)
	_ = s.SetInput(InputMoveUp, true)
	_ = s.SetInput(InputMoveLeft, true)
	src.Advance(frame16)

	p := s.Snapshot().Player
	if p.Position != (Position{X: 0, Y: 0}) || p.Direction != DirUpLeft {
		t.Fatalf("player = %+v", p)
	}
}

func TestClampToMapBounds(t *testing.T) {
	st := testState(t)
	tests := []struct {
		in, want Position
	}{
		{Position{X: -5, Y: 10}, Position{X: 0, Y: 10}},
		{Position{X: 2000, Y: 1700}, Position{X: 1600, Y: 1600}},
		{Position{X: 800, Y: 600}, Position{X: 800, Y: 600}},
	}
	for _, tt := range tests {
		a, ok := ClampToMap(st, MovePlayer(tt.in, DirUp, true))
		if !ok {
			t.Fatal("clamp should never reject")
		}
		if got := a.Payload.(MovePlayerPayload).Position; got != tt.want {
			t.Errorf("clamp(%+v) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestSessionTunables(t *testing.T) {
	s, _ := newManualSession(t, SessionOptions{})
	tun := s.Tunables()
	if tun.FrameInterval != DefaultFrameInterval || tun.BroadcastEvery != 1 {
		t.Fatalf("defaults = %+v", tun)
	}
	tun = s.SetTunables(Tunables{BroadcastEvery: 5})
	if tun.FrameInterval != DefaultFrameInterval || tun.BroadcastEvery != 5 {
		t.Fatalf("after update = %+v", tun)
	}
}
