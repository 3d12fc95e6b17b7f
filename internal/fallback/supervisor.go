// Package fallback は初期表示の縮退モード監視を提供する。
//
// 起動からの待機窓内に最初の描画準備が整わない場合、無期限の
// ローディング表示の代わりに復帰手段付きの縮退表示へ切り替える。
// 準備完了は永続的であり、一度Readyになった後に縮退することはない。
package fallback

import (
	"log/slog"
	"sync"
	"time"
)

// State は縮退監視の状態。
type State int

const (
	// StateWaiting は待機窓の中にいる状態。ローディング表示を継続する。
	StateWaiting State = iota
	// StateReady は最初の描画準備が完了した状態。
	StateReady
	// StateDegraded は待機窓を超過し、縮退表示へ切り替えた状態。
	StateDegraded
)

// String はStateの表示名を返す。
func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateDegraded:
		return "degraded"
	default:
		return "waiting"
	}
}

// Action は縮退表示でユーザーに提示する復帰手段。
type Action struct {
	ID    string
	Label string
}

// recoveryActions は縮退表示の復帰手段。再読み込みとホームへの移動。
var recoveryActions = []Action{
	{ID: "reload", Label: "再読み込み"},
	{ID: "home", Label: "ホームへ戻る"},
}

// Supervisor は初期表示の準備完了を待機窓付きで監視する。
type Supervisor struct {
	window time.Duration

	mu         sync.Mutex
	state      State
	timer      *time.Timer
	started    time.Time
	onDegraded func()
}

// NewSupervisor は待機窓を指定してSupervisorを生成する。
// 監視はStartの呼び出しで開始される。
func NewSupervisor(window time.Duration) *Supervisor {
	return &Supervisor{
		window: window,
		state:  StateWaiting,
	}
}

// OnDegraded は縮退切り替え時に1回だけ呼ばれるコールバックを設定する。
// Startの前に設定すること。
func (s *Supervisor) OnDegraded(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onDegraded = fn
}

// Start は待機窓のカウントを開始する。2回目以降の呼び出しは無視される。
func (s *Supervisor) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil || s.state != StateWaiting {
		return
	}
	s.started = time.Now()
	s.timer = time.AfterFunc(s.window, s.expire)
}

// MarkReady は最初の描画準備の完了を通知する。
// 待機窓のタイマーは停止され、以降縮退することはない。
// 縮退後に呼ばれた場合も準備完了が優先される（遅れて復帰したケース）。
func (s *Supervisor) MarkReady() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateReady {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	if s.state == StateDegraded {
		slog.Info("縮退表示後に描画準備が完了しました",
			slog.Duration("elapsed", time.Since(s.started)),
		)
	}
	s.state = StateReady
}

// expire は待機窓の超過時に呼ばれる。
func (s *Supervisor) expire() {
	s.mu.Lock()
	if s.state != StateWaiting {
		s.mu.Unlock()
		return
	}
	s.state = StateDegraded
	fn := s.onDegraded
	s.mu.Unlock()

	slog.Warn("待機窓内に描画準備が完了しなかったため縮退表示へ切り替えます",
		slog.Duration("window", s.window),
	)
	if fn != nil {
		fn()
	}
}

// State は現在の状態を返す。
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Actions は縮退表示で提示する復帰手段を返す。
// 縮退状態でない場合は空を返す。
func (s *Supervisor) Actions() []Action {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateDegraded {
		return nil
	}
	actions := make([]Action, len(recoveryActions))
	copy(actions, recoveryActions)
	return actions
}
