package gateway

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/hitoshi/drinkscart/internal/model"
)

// orderGateway はOrderGatewayの実装。
type orderGateway struct {
	c *Client
}

// NewOrderGateway は新しいOrderGatewayを生成する。
func NewOrderGateway(c *Client) OrderGateway {
	return &orderGateway{c: c}
}

// orderItemRow は注文明細テーブルの1行。
type orderItemRow struct {
	ID           string  `json:"id"`
	OrderID      string  `json:"order_id"`
	ProductID    string  `json:"product_id"`
	ProductName  string  `json:"product_name"`
	Quantity     int     `json:"quantity"`
	Price        float64 `json:"price"`
	SelectedSize string  `json:"selected_size"`
}

// orderRow は注文テーブルの1行。
type orderRow struct {
	ID             string         `json:"id"`
	OrderNumber    string         `json:"order_number"`
	UserID         string         `json:"user_id"`
	TotalAmount    float64        `json:"total_amount"`
	Status         string         `json:"status"`
	TrackingNumber string         `json:"tracking_number"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	Items          []orderItemRow `json:"order_items"`
}

func (r orderRow) toModel() model.Order {
	o := model.Order{
		ID:             r.ID,
		OrderNumber:    r.OrderNumber,
		UserID:         r.UserID,
		TotalAmount:    r.TotalAmount,
		Status:         model.OrderStatus(r.Status),
		TrackingNumber: r.TrackingNumber,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
	for _, it := range r.Items {
		o.Items = append(o.Items, model.OrderItem{
			ID:           it.ID,
			OrderID:      it.OrderID,
			ProductID:    it.ProductID,
			ProductName:  it.ProductName,
			Quantity:     it.Quantity,
			Price:        it.Price,
			SelectedSize: it.SelectedSize,
		})
	}
	return o
}

// ListByUser はユーザーの注文を明細付き・created_at降順で返す。
func (g *orderGateway) ListByUser(ctx context.Context, userID string) ([]model.Order, error) {
	q := url.Values{}
	q.Set("select", "*,order_items(*)")
	q.Set("user_id", "eq."+userID)
	q.Set("order", "created_at.desc")
	return g.list(ctx, q)
}

// ListAll は全注文をcreated_at降順で返す。
func (g *orderGateway) ListAll(ctx context.Context) ([]model.Order, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("order", "created_at.desc")
	return g.list(ctx, q)
}

func (g *orderGateway) list(ctx context.Context, q url.Values) ([]model.Order, error) {
	var rows []orderRow
	if err := g.c.do(ctx, request{
		method: http.MethodGet,
		path:   "/rest/v1/orders",
		query:  q,
	}, &rows); err != nil {
		return nil, toRemoteError(err)
	}
	orders := make([]model.Order, 0, len(rows))
	for _, r := range rows {
		orders = append(orders, r.toModel())
	}
	return orders, nil
}

// Get は指定IDの注文を明細付きで取得する。見つからない場合はnilを返す。
func (g *orderGateway) Get(ctx context.Context, id string) (*model.Order, error) {
	q := url.Values{}
	q.Set("select", "*,order_items(*)")
	q.Set("id", "eq."+id)

	var rows []orderRow
	if err := g.c.do(ctx, request{
		method: http.MethodGet,
		path:   "/rest/v1/orders",
		query:  q,
	}, &rows); err != nil {
		return nil, toRemoteError(err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	o := rows[0].toModel()
	return &o, nil
}

// UpdateStatus は注文ステータスを更新し、更新された行を返す。
func (g *orderGateway) UpdateStatus(ctx context.Context, id string, status model.OrderStatus) (*model.Order, error) {
	q := url.Values{}
	q.Set("select", "*,order_items(*)")
	q.Set("id", "eq."+id)

	var rows []orderRow
	if err := g.c.do(ctx, request{
		method:  http.MethodPatch,
		path:    "/rest/v1/orders",
		query:   q,
		headers: map[string]string{"Prefer": "return=representation"},
		body: map[string]any{
			"status":     string(status),
			"updated_at": time.Now().UTC().Format(time.RFC3339),
		},
	}, &rows); err != nil {
		return nil, toRemoteError(err)
	}
	if len(rows) == 0 {
		return nil, model.NewRemoteError(model.ErrCodeNotFound, "更新対象の注文が見つかりませんでした")
	}
	o := rows[0].toModel()
	return &o, nil
}

// totalRow は統計集計用の縮小行。
type totalRow struct {
	TotalAmount float64 `json:"total_amount"`
	Status      string  `json:"status"`
}

// ListTotals は統計集計用に全注文の金額とステータスのみを返す。
func (g *orderGateway) ListTotals(ctx context.Context) ([]OrderTotal, error) {
	q := url.Values{}
	q.Set("select", "total_amount,status")

	var rows []totalRow
	if err := g.c.do(ctx, request{
		method: http.MethodGet,
		path:   "/rest/v1/orders",
		query:  q,
	}, &rows); err != nil {
		return nil, toRemoteError(err)
	}
	totals := make([]OrderTotal, 0, len(rows))
	for _, r := range rows {
		totals = append(totals, OrderTotal{
			TotalAmount: r.TotalAmount,
			Status:      model.OrderStatus(r.Status),
		})
	}
	return totals, nil
}
