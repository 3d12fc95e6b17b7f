package gateway

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/hitoshi/drinkscart/internal/model"
)

// profileGateway はProfileGatewayの実装。
type profileGateway struct {
	c *Client
}

// NewProfileGateway は新しいProfileGatewayを生成する。
func NewProfileGateway(c *Client) ProfileGateway {
	return &profileGateway{c: c}
}

// profileRow はユーザープロフィールテーブルの1行。
type profileRow struct {
	ID        string    `json:"id"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Address   string    `json:"address"`
	Country   string    `json:"country"`
	AvatarURL string    `json:"avatar_url"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (r profileRow) toModel() model.UserProfile {
	return model.UserProfile{
		ID:        r.ID,
		FullName:  r.FullName,
		Email:     r.Email,
		Phone:     r.Phone,
		Address:   r.Address,
		Country:   r.Country,
		AvatarURL: r.AvatarURL,
		IsAdmin:   r.IsAdmin,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// Find は指定IDのプロフィールを取得する。見つからない場合はnilを返す。
func (g *profileGateway) Find(ctx context.Context, id string) (*model.UserProfile, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("id", "eq."+id)

	var rows []profileRow
	if err := g.c.do(ctx, request{
		method: http.MethodGet,
		path:   "/rest/v1/users",
		query:  q,
	}, &rows); err != nil {
		return nil, toRemoteError(err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	p := rows[0].toModel()
	return &p, nil
}

// Update はプロフィールを更新し、更新された行を返す。
// メールアドレスと管理者フラグはここからは変更できない。
func (g *profileGateway) Update(ctx context.Context, id string, u model.ProfileUpdate) (*model.UserProfile, error) {
	q := url.Values{}
	q.Set("id", "eq."+id)

	var rows []profileRow
	if err := g.c.do(ctx, request{
		method:  http.MethodPatch,
		path:    "/rest/v1/users",
		query:   q,
		headers: map[string]string{"Prefer": "return=representation"},
		body: map[string]any{
			"full_name":  u.FullName,
			"phone":      u.Phone,
			"address":    u.Address,
			"country":    u.Country,
			"updated_at": time.Now().UTC().Format(time.RFC3339),
		},
	}, &rows); err != nil {
		return nil, toRemoteError(err)
	}
	if len(rows) == 0 {
		return nil, model.NewRemoteError(model.ErrCodeNotFound, "更新対象のプロフィールが見つかりませんでした")
	}
	p := rows[0].toModel()
	return &p, nil
}

// Count は登録ユーザー数を返す。
func (g *profileGateway) Count(ctx context.Context) (int, error) {
	q := url.Values{}
	q.Set("select", "id")

	n, err := g.c.count(ctx, "/rest/v1/users", q)
	if err != nil {
		return 0, toRemoteError(err)
	}
	return n, nil
}
