// Package session は認証状態の解決とルート保護を提供する。
//
// 起動時・ナビゲーション時のセッション確認は期限付きで行い、確認が
// 完了するまで保護判定は保留される。期限超過時は未認証として扱う
// （安全側への倒し込み）。
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/drinkscart/internal/gateway"
	"github.com/hitoshi/drinkscart/internal/loader"
	"github.com/hitoshi/drinkscart/internal/metrics"
	"github.com/hitoshi/drinkscart/internal/model"
)

// State は認証状態。
type State int

const (
	// StateUnknown は初期状態。まだ確認を開始していない。
	StateUnknown State = iota
	// StateChecking はセッション確認中。保護判定は保留される。
	StateChecking
	// StateAuthenticated は認証済み。
	StateAuthenticated
	// StateUnauthenticated は未認証（確認の期限超過を含む）。
	StateUnauthenticated
)

// String はStateの表示名を返す。
func (s State) String() string {
	switch s {
	case StateChecking:
		return "checking"
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// Requirement はルートが要求する認証レベル。
type Requirement int

const (
	// RequireNone は誰でもアクセス可能なルート。
	RequireNone Requirement = iota
	// RequireAuth は認証済みユーザーのみアクセス可能なルート。
	RequireAuth
	// RequireAdmin は管理者のみアクセス可能なルート。
	RequireAdmin
)

// Decision はルート保護の判定結果。
type Decision int

const (
	// DecisionAllow はアクセスを許可する。
	DecisionAllow Decision = iota
	// DecisionPending は確認未完了のため判定を保留する。
	DecisionPending
	// DecisionRedirectLogin はログイン画面へ誘導する。
	DecisionRedirectLogin
	// DecisionRedirectHome はホーム画面へ誘導する（権限不足）。
	DecisionRedirectHome
)

// Config はGateの設定。
type Config struct {
	// AdminEmail は管理者として扱うメールアドレス。
	// プロフィールの管理者フラグとのORで判定される。
	AdminEmail string
	// SessionCheckTimeout はセッション存在確認の期限。
	SessionCheckTimeout time.Duration
	// ProfileFetchTimeout は確認時のプロフィール取得の期限。
	ProfileFetchTimeout time.Duration
	// SignInProfileTimeout はサインイン直後のプロフィール取得の期限。
	SignInProfileTimeout time.Duration
}

// Gate は認証状態を解決し、ルート保護の判定を行う。
type Gate struct {
	auth     gateway.AuthGateway
	profiles gateway.ProfileGateway
	cfg      Config
	mc       metrics.Collector

	mu          sync.RWMutex
	state       State
	current     *model.CurrentUser
	unsubscribe func()
}

// NewGate は新しいGateを生成する。mcはnil可。
func NewGate(auth gateway.AuthGateway, profiles gateway.ProfileGateway, cfg Config, mc metrics.Collector) *Gate {
	return &Gate{
		auth:     auth,
		profiles: profiles,
		cfg:      cfg,
		mc:       mc,
		state:    StateUnknown,
	}
}

// Start はセッション変化の購読を開始し、初回の状態解決を行う。
func (g *Gate) Start(ctx context.Context) {
	g.mu.Lock()
	if g.unsubscribe == nil {
		g.unsubscribe = g.auth.OnSessionChange(func(s *model.Session) {
			// 別タブ相当のサインイン・サインアウトを反映する
			go g.applySession(context.Background(), s)
		})
	}
	g.mu.Unlock()

	g.Resolve(ctx)
}

// Stop はセッション変化の購読を解除する。
func (g *Gate) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.unsubscribe != nil {
		g.unsubscribe()
		g.unsubscribe = nil
	}
}

// Resolve はセッションの存在を期限付きで確認し、認証状態を更新する。
// 確認が期限を超過した場合は未認証として扱う。
func (g *Gate) Resolve(ctx context.Context) {
	g.setState(StateChecking, nil)

	session, ok := loader.Fetch(ctx, "session_check", g.cfg.SessionCheckTimeout, nil, g.mc,
		func(ctx context.Context) (*model.Session, error) {
			return g.auth.Session(ctx)
		})
	if !ok || session == nil {
		g.setState(StateUnauthenticated, nil)
		return
	}

	g.applySession(ctx, session)
}

// applySession はセッションからCurrentUserを構築し、状態を更新する。
// プロフィール取得は期限付きで行い、超過してもセッション自体は有効のままになる。
func (g *Gate) applySession(ctx context.Context, session *model.Session) {
	if session == nil {
		g.setState(StateUnauthenticated, nil)
		return
	}
	g.resolveUser(ctx, *session, g.cfg.ProfileFetchTimeout)
}

func (g *Gate) resolveUser(ctx context.Context, session model.Session, profileTimeout time.Duration) {
	profile, ok := loader.Fetch(ctx, "profile_fetch", profileTimeout, nil, g.mc,
		func(ctx context.Context) (*model.UserProfile, error) {
			return g.profiles.Find(ctx, session.SubjectID)
		})

	session.IsAdmin = g.resolveAdmin(session.Email, profile)

	current := &model.CurrentUser{
		Session:    session,
		Profile:    profile,
		HasProfile: ok && profile != nil,
	}
	if !current.HasProfile {
		slog.Warn("プロフィールなしで認証状態を確定します",
			slog.String("subject_id", session.SubjectID),
		)
	}
	g.setState(StateAuthenticated, current)
}

// resolveAdmin は管理者権限を判定する唯一の箇所。
// プロフィールの管理者フラグ、または設定された管理者メールとの一致で判定する。
// プロフィールが取得できなくてもメール一致だけで管理者になり得る。
func (g *Gate) resolveAdmin(email string, profile *model.UserProfile) bool {
	if profile != nil && profile.IsAdmin {
		return true
	}
	return g.cfg.AdminEmail != "" && email == g.cfg.AdminEmail
}

// SignIn はサインインし、プロフィール付きのCurrentUserを返す。
// プロフィール取得が期限超過した場合でもサインイン自体は成功する。
func (g *Gate) SignIn(ctx context.Context, email, password string) (*model.CurrentUser, error) {
	session, err := g.auth.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}

	g.resolveUser(ctx, *session, g.cfg.SignInProfileTimeout)

	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.current, nil
}

// SignUp は新規アカウントを登録する。自動サインインは行わない。
func (g *Gate) SignUp(ctx context.Context, email, password string, profile model.SignUpProfile) error {
	return g.auth.SignUp(ctx, email, password, profile)
}

// SignOut はサインアウトする。リモート呼び出しが失敗しても
// ローカルの認証状態は必ず未認証になる。
func (g *Gate) SignOut(ctx context.Context) {
	if err := g.auth.SignOut(ctx); err != nil {
		slog.Warn("サインアウトのリモート呼び出しに失敗しました",
			slog.String("error", err.Error()),
		)
	}
	g.setState(StateUnauthenticated, nil)
}

// State は現在の認証状態を返す。
func (g *Gate) State() State {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state
}

// Current は現在のユーザーを返す。未認証の場合はnil。
func (g *Gate) Current() *model.CurrentUser {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.current
}

// Authorize はルートの認証要求に対する判定を返す。
// 確認が完了していない間は保留（DecisionPending）を返し、
// コンテンツも判定結果も先出ししない。
func (g *Gate) Authorize(req Requirement) Decision {
	g.mu.RLock()
	state := g.state
	current := g.current
	g.mu.RUnlock()

	if req == RequireNone {
		return DecisionAllow
	}

	switch state {
	case StateUnknown, StateChecking:
		return DecisionPending
	case StateUnauthenticated:
		return DecisionRedirectLogin
	}

	if req == RequireAdmin && (current == nil || !current.Session.IsAdmin) {
		return DecisionRedirectHome
	}
	return DecisionAllow
}

func (g *Gate) setState(state State, current *model.CurrentUser) {
	g.mu.Lock()
	g.state = state
	g.current = current
	g.mu.Unlock()
}
