package gateway

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/hitoshi/drinkscart/internal/model"
)

// cartGateway はCartGatewayの実装。
type cartGateway struct {
	c *Client
}

// NewCartGateway は新しいCartGatewayを生成する。
func NewCartGateway(c *Client) CartGateway {
	return &cartGateway{c: c}
}

// cartRow はカートテーブルの1行。
type cartRow struct {
	ID           string      `json:"id"`
	UserID       string      `json:"user_id"`
	ProductID    string      `json:"product_id"`
	Quantity     int         `json:"quantity"`
	SelectedSize string      `json:"selected_size"`
	UpdatedAt    time.Time   `json:"updated_at"`
	Product      *productRow `json:"products"`
}

func (r cartRow) toModel() model.CartItem {
	item := model.CartItem{
		ID:           r.ID,
		UserID:       r.UserID,
		ProductID:    r.ProductID,
		Quantity:     r.Quantity,
		SelectedSize: r.SelectedSize,
		UpdatedAt:    r.UpdatedAt,
	}
	if r.Product != nil {
		p := r.Product.toModel()
		item.Product = &p
	}
	return item
}

const cartSelect = "*,products(*,brands(name),categories(name))"

// ListByUser はユーザーのカート行を商品情報付きで返す。
func (g *cartGateway) ListByUser(ctx context.Context, userID string) ([]model.CartItem, error) {
	q := url.Values{}
	q.Set("select", cartSelect)
	q.Set("user_id", "eq."+userID)
	q.Set("order", "updated_at.desc")

	var rows []cartRow
	if err := g.c.do(ctx, request{
		method: http.MethodGet,
		path:   "/rest/v1/cart_items",
		query:  q,
	}, &rows); err != nil {
		return nil, toRemoteError(err)
	}

	items := make([]model.CartItem, 0, len(rows))
	for _, r := range rows {
		items = append(items, r.toModel())
	}
	return items, nil
}

// Upsert はカート行を追加する。
// (user, product, selected_size)が既存の場合は上書きされる。
func (g *cartGateway) Upsert(ctx context.Context, item *model.CartItem) (*model.CartItem, error) {
	q := url.Values{}
	q.Set("select", cartSelect)
	q.Set("on_conflict", "user_id,product_id,selected_size")

	var rows []cartRow
	if err := g.c.do(ctx, request{
		method: http.MethodPost,
		path:   "/rest/v1/cart_items",
		query:  q,
		headers: map[string]string{
			"Prefer": "resolution=merge-duplicates,return=representation",
		},
		body: map[string]any{
			"user_id":       item.UserID,
			"product_id":    item.ProductID,
			"quantity":      item.Quantity,
			"selected_size": item.SelectedSize,
		},
	}, &rows); err != nil {
		return nil, toRemoteError(err)
	}
	if len(rows) == 0 {
		return nil, model.NewRemoteError(model.ErrCodeRemoteUnavailable, "upsertされたカート行が返されませんでした")
	}
	upserted := rows[0].toModel()
	return &upserted, nil
}

// UpdateQuantity はカート行の数量を更新し、更新された行を返す。
func (g *cartGateway) UpdateQuantity(ctx context.Context, id string, quantity int) (*model.CartItem, error) {
	q := url.Values{}
	q.Set("select", cartSelect)
	q.Set("id", "eq."+id)

	var rows []cartRow
	if err := g.c.do(ctx, request{
		method:  http.MethodPatch,
		path:    "/rest/v1/cart_items",
		query:   q,
		headers: map[string]string{"Prefer": "return=representation"},
		body: map[string]any{
			"quantity":   quantity,
			"updated_at": time.Now().UTC().Format(time.RFC3339),
		},
	}, &rows); err != nil {
		return nil, toRemoteError(err)
	}
	if len(rows) == 0 {
		return nil, model.NewRemoteError(model.ErrCodeNotFound, "更新対象のカート行が見つかりませんでした")
	}
	updated := rows[0].toModel()
	return &updated, nil
}

// Delete は指定IDのカート行を削除する。
func (g *cartGateway) Delete(ctx context.Context, id string) error {
	q := url.Values{}
	q.Set("id", "eq."+id)
	if err := g.c.do(ctx, request{
		method: http.MethodDelete,
		path:   "/rest/v1/cart_items",
		query:  q,
	}, nil); err != nil {
		return toRemoteError(err)
	}
	return nil
}

// Clear はユーザーの全カート行を削除する。
func (g *cartGateway) Clear(ctx context.Context, userID string) error {
	q := url.Values{}
	q.Set("user_id", "eq."+userID)
	if err := g.c.do(ctx, request{
		method: http.MethodDelete,
		path:   "/rest/v1/cart_items",
		query:  q,
	}, nil); err != nil {
		return toRemoteError(err)
	}
	return nil
}

// CountByUser はユーザーのカート行数を返す。
func (g *cartGateway) CountByUser(ctx context.Context, userID string) (int, error) {
	q := url.Values{}
	q.Set("select", "id")
	q.Set("user_id", "eq."+userID)

	n, err := g.c.count(ctx, "/rest/v1/cart_items", q)
	if err != nil {
		return 0, toRemoteError(err)
	}
	return n, nil
}
