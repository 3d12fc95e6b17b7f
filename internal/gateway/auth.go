package gateway

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/hitoshi/drinkscart/internal/model"
)

// authGateway はAuthGatewayの実装。
// セッションはプロセス内に保持し、変化を購読者へ通知する。
type authGateway struct {
	c *Client

	mu      sync.Mutex
	session *model.Session
	subs    map[int]func(*model.Session)
	nextSub int
}

// NewAuthGateway は新しいAuthGatewayを生成する。
func NewAuthGateway(c *Client) AuthGateway {
	return &authGateway{
		c:    c,
		subs: make(map[int]func(*model.Session)),
	}
}

// tokenResponse はトークンエンドポイントの応答。
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	User        struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

// SignIn はメールとパスワードでサインインし、セッションを確立する。
func (g *authGateway) SignIn(ctx context.Context, email, password string) (*model.Session, error) {
	var tr tokenResponse
	err := g.c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/token",
		query:  url.Values{"grant_type": {"password"}},
		body: map[string]string{
			"email":    email,
			"password": password,
		},
	}, &tr)
	if err != nil {
		if se, ok := err.(*StatusError); ok {
			// 資格情報誤りは400または401で返る
			if se.Status == http.StatusBadRequest || se.Status == http.StatusUnauthorized {
				return nil, model.NewInvalidCredentialsError()
			}
		}
		return nil, toRemoteError(err)
	}

	session := &model.Session{
		SubjectID: tr.User.ID,
		Email:     tr.User.Email,
		ExpiresAt: time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second),
	}

	g.c.SetToken(tr.AccessToken)
	g.setSession(session)
	return session, nil
}

// SignUp は新規アカウントとプロフィール項目を登録する。
func (g *authGateway) SignUp(ctx context.Context, email, password string, profile model.SignUpProfile) error {
	err := g.c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/signup",
		body: map[string]any{
			"email":    email,
			"password": password,
			"data": map[string]string{
				"username": profile.Username,
				"phone":    profile.Phone,
				"address":  profile.Address,
				"country":  profile.Country,
			},
		},
	}, nil)
	if err != nil {
		if se, ok := err.(*StatusError); ok && se.Status == http.StatusUnprocessableEntity {
			return model.NewValidationError("email", se.Message)
		}
		return toRemoteError(err)
	}
	return nil
}

// SignOut はセッションを破棄する。
// リモート呼び出しの成否に関わらずローカルのセッション状態は必ずクリアされる。
func (g *authGateway) SignOut(ctx context.Context) error {
	err := g.c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/logout",
	}, nil)

	g.c.ClearToken()
	g.setSession(nil)

	if err != nil {
		slog.Warn("リモートのサインアウトに失敗しましたがローカルセッションは破棄しました",
			slog.String("error", err.Error()),
		)
		return toRemoteError(err)
	}
	return nil
}

// userResponse はユーザーエンドポイントの応答。
type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session は現在のセッションを返す。
// トークンを保持している場合はバックエンドで有効性を検証する。
func (g *authGateway) Session(ctx context.Context) (*model.Session, error) {
	if !g.c.HasToken() {
		return nil, nil
	}

	g.mu.Lock()
	local := g.session
	g.mu.Unlock()

	if local != nil && local.Expired(time.Now()) {
		g.c.ClearToken()
		g.setSession(nil)
		return nil, nil
	}

	var ur userResponse
	err := g.c.do(ctx, request{
		method: http.MethodGet,
		path:   "/auth/v1/user",
	}, &ur)
	if err != nil {
		if se, ok := err.(*StatusError); ok &&
			(se.Status == http.StatusUnauthorized || se.Status == http.StatusForbidden) {
			g.c.ClearToken()
			g.setSession(nil)
			return nil, nil
		}
		return nil, toRemoteError(err)
	}

	if local != nil {
		return local, nil
	}
	return &model.Session{SubjectID: ur.ID, Email: ur.Email}, nil
}

// OnSessionChange はセッション変化の通知を購読する。
func (g *authGateway) OnSessionChange(fn func(*model.Session)) func() {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.nextSub
	g.nextSub++
	g.subs[id] = fn
	return func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		delete(g.subs, id)
	}
}

// setSession はセッションを更新し、購読者へ通知する。
func (g *authGateway) setSession(s *model.Session) {
	g.mu.Lock()
	g.session = s
	fns := make([]func(*model.Session), 0, len(g.subs))
	for _, fn := range g.subs {
		fns = append(fns, fn)
	}
	g.mu.Unlock()

	for _, fn := range fns {
		fn(s)
	}
}
