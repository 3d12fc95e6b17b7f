package gateway

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/hitoshi/drinkscart/internal/model"
)

// productGateway はProductGatewayの実装。
type productGateway struct {
	c *Client
}

// NewProductGateway は新しいProductGatewayを生成する。
func NewProductGateway(c *Client) ProductGateway {
	return &productGateway{c: c}
}

// nameRef は結合取得で解決される参照先の表示名。
type nameRef struct {
	Name string `json:"name"`
}

// productRow は商品テーブルの1行。
type productRow struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	Stock       int       `json:"stock"`
	Sizes       []string  `json:"sizes"`
	Images      []string  `json:"images"`
	BrandID     string    `json:"brand_id"`
	CategoryID  string    `json:"category_id"`
	Featured    bool      `json:"featured"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Brand       *nameRef  `json:"brands"`
	Category    *nameRef  `json:"categories"`
}

func (r productRow) toModel() model.Product {
	p := model.Product{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Price:       r.Price,
		Stock:       r.Stock,
		Sizes:       r.Sizes,
		Images:      r.Images,
		BrandID:     r.BrandID,
		CategoryID:  r.CategoryID,
		Featured:    r.Featured,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if r.Brand != nil {
		p.BrandName = r.Brand.Name
	}
	if r.Category != nil {
		p.CategoryName = r.Category.Name
	}
	return p
}

const productSelect = "*,brands(name),categories(name)"

// List はフィルタに合致する商品をcreated_at降順で返す。
func (g *productGateway) List(ctx context.Context, filter model.ProductFilter) ([]model.Product, error) {
	q := url.Values{}
	q.Set("select", productSelect)
	q.Set("order", "created_at.desc")
	if filter.CategoryID != "" {
		q.Set("category_id", "eq."+filter.CategoryID)
	}
	if filter.BrandID != "" {
		q.Set("brand_id", "eq."+filter.BrandID)
	}
	if filter.Search != "" {
		q.Set("name", "ilike.*"+filter.Search+"*")
	}
	if filter.Featured {
		q.Set("featured", "eq.true")
	}

	var rows []productRow
	if err := g.c.do(ctx, request{
		method: http.MethodGet,
		path:   "/rest/v1/products",
		query:  q,
	}, &rows); err != nil {
		return nil, toRemoteError(err)
	}

	products := make([]model.Product, 0, len(rows))
	for _, r := range rows {
		products = append(products, r.toModel())
	}
	return products, nil
}

// Get は指定IDの商品を取得する。見つからない場合はnilを返す。
func (g *productGateway) Get(ctx context.Context, id string) (*model.Product, error) {
	q := url.Values{}
	q.Set("select", productSelect)
	q.Set("id", "eq."+id)

	var rows []productRow
	if err := g.c.do(ctx, request{
		method: http.MethodGet,
		path:   "/rest/v1/products",
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

func productBody(p *model.Product) map[string]any {
	return map[string]any{
		"name":        p.Name,
		"description": p.Description,
		"price":       p.Price,
		"stock":       p.Stock,
		"sizes":       p.Sizes,
		"images":      p.Images,
		"brand_id":    p.BrandID,
		"category_id": p.CategoryID,
		"featured":    p.Featured,
	}
}

// Create は商品を作成し、作成された行を返す。
func (g *productGateway) Create(ctx context.Context, p *model.Product) (*model.Product, error) {
	q := url.Values{}
	q.Set("select", productSelect)

	var rows []productRow
	if err := g.c.do(ctx, request{
		method:  http.MethodPost,
		path:    "/rest/v1/products",
		query:   q,
		headers: map[string]string{"Prefer": "return=representation"},
		body:    productBody(p),
	}, &rows); err != nil {
		return nil, toRemoteError(err)
	}
	if len(rows) == 0 {
		return nil, model.NewRemoteError(model.ErrCodeRemoteUnavailable, "作成された商品行が返されませんでした")
	}
	created := rows[0].toModel()
	return &created, nil
}

// Update は商品を更新し、更新された行を返す。
func (g *productGateway) Update(ctx context.Context, id string, p *model.Product) (*model.Product, error) {
	q := url.Values{}
	q.Set("select", productSelect)
	q.Set("id", "eq."+id)

	body := productBody(p)
	body["updated_at"] = time.Now().UTC().Format(time.RFC3339)

	var rows []productRow
	if err := g.c.do(ctx, request{
		method:  http.MethodPatch,
		path:    "/rest/v1/products",
		query:   q,
		headers: map[string]string{"Prefer": "return=representation"},
		body:    body,
	}, &rows); err != nil {
		return nil, toRemoteError(err)
	}
	if len(rows) == 0 {
		return nil, model.NewRemoteError(model.ErrCodeNotFound, "更新対象の商品が見つかりませんでした")
	}
	updated := rows[0].toModel()
	return &updated, nil
}

// Delete は指定IDの商品を削除する。
func (g *productGateway) Delete(ctx context.Context, id string) error {
	q := url.Values{}
	q.Set("id", "eq."+id)
	if err := g.c.do(ctx, request{
		method: http.MethodDelete,
		path:   "/rest/v1/products",
		query:  q,
	}, nil); err != nil {
		return toRemoteError(err)
	}
	return nil
}

// idNameRow はブランド・カテゴリテーブルの1行。
type idNameRow struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Brands は全ブランドを名前順で返す。
func (g *productGateway) Brands(ctx context.Context) ([]model.Brand, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("order", "name.asc")

	var rows []idNameRow
	if err := g.c.do(ctx, request{
		method: http.MethodGet,
		path:   "/rest/v1/brands",
		query:  q,
	}, &rows); err != nil {
		return nil, toRemoteError(err)
	}
	brands := make([]model.Brand, 0, len(rows))
	for _, r := range rows {
		brands = append(brands, model.Brand{ID: r.ID, Name: r.Name})
	}
	return brands, nil
}

// Categories は全カテゴリを名前順で返す。
func (g *productGateway) Categories(ctx context.Context) ([]model.Category, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("order", "name.asc")

	var rows []idNameRow
	if err := g.c.do(ctx, request{
		method: http.MethodGet,
		path:   "/rest/v1/categories",
		query:  q,
	}, &rows); err != nil {
		return nil, toRemoteError(err)
	}
	categories := make([]model.Category, 0, len(rows))
	for _, r := range rows {
		categories = append(categories, model.Category{ID: r.ID, Name: r.Name})
	}
	return categories, nil
}
