// Package admin は管理画面のビューステートを管理する。
//
// 初期読み込みはジョイント期限付きで並行実行され、期限到来時点で
// 完了していない取得は安全デフォルトのまま画面が描画される。
// 商品の保存は検証とサニタイズを通過したものだけがゲートウェイへ送られる。
package admin

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hitoshi/drinkscart/internal/gateway"
	"github.com/hitoshi/drinkscart/internal/loader"
	"github.com/hitoshi/drinkscart/internal/metrics"
	"github.com/hitoshi/drinkscart/internal/model"
	"github.com/hitoshi/drinkscart/internal/security"
)

// Snapshot は管理画面が保持するエンティティのスナップショット。
type Snapshot struct {
	Products   []model.Product
	Brands     []model.Brand
	Categories []model.Category
	Orders     []model.Order
}

// Config は管理画面の期限設定。
type Config struct {
	// JointDeadline は初期読み込みのジョイント期限。
	JointDeadline time.Duration
	// StatsOrdersTimeout は統計用注文集計の期限。
	StatsOrdersTimeout time.Duration
	// StatsCustomersTimeout は統計用顧客数カウントの期限。
	StatsCustomersTimeout time.Duration
}

// Screen は管理画面のビューステート。
type Screen struct {
	products  gateway.ProductGateway
	orders    gateway.OrderGateway
	profiles  gateway.ProfileGateway
	validator security.ImageURLValidator
	sanitizer security.DescriptionSanitizer
	cfg       Config
	mc        metrics.Collector

	gen loader.Generation

	mu       sync.RWMutex
	snapshot Snapshot
	stats    model.DashboardStats
	pending  map[string]bool
	loading  bool
}

// NewScreen は新しい管理画面を生成する。mcはnil可。
func NewScreen(
	products gateway.ProductGateway,
	orders gateway.OrderGateway,
	profiles gateway.ProfileGateway,
	validator security.ImageURLValidator,
	sanitizer security.DescriptionSanitizer,
	cfg Config,
	mc metrics.Collector,
) *Screen {
	return &Screen{
		products:  products,
		orders:    orders,
		profiles:  profiles,
		validator: validator,
		sanitizer: sanitizer,
		cfg:       cfg,
		mc:        mc,
		pending:   make(map[string]bool),
	}
}

// Load は商品・ブランド・カテゴリ・注文をジョイント期限付きで並行取得し、
// スナップショットを丸ごと置き換える。期限到来時点で完了済みの取得は
// 実値を、未完了の取得は安全デフォルト（空リスト）を持つ。
func (s *Screen) Load(ctx context.Context) {
	gen := s.gen.Next()

	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()

	g := loader.NewGroup(ctx, s.cfg.JointDeadline, s.mc)
	products := loader.Go(g, "admin_products", nil, func(ctx context.Context) ([]model.Product, error) {
		return s.products.List(ctx, model.ProductFilter{})
	})
	brands := loader.Go(g, "admin_brands", nil, func(ctx context.Context) ([]model.Brand, error) {
		return s.products.Brands(ctx)
	})
	categories := loader.Go(g, "admin_categories", nil, func(ctx context.Context) ([]model.Category, error) {
		return s.products.Categories(ctx)
	})
	orders := loader.Go(g, "admin_orders", nil, func(ctx context.Context) ([]model.Order, error) {
		return s.orders.ListAll(ctx)
	})
	g.Wait()

	if !s.gen.Matches(gen) {
		return
	}

	ps, _ := products.Value()
	bs, _ := brands.Value()
	cs, _ := categories.Value()
	os, _ := orders.Value()

	s.mu.Lock()
	s.snapshot = Snapshot{Products: ps, Brands: bs, Categories: cs, Orders: os}
	s.loading = false
	s.mu.Unlock()
}

// LoadStats はダッシュボード統計を計算する。
// 合計売上は配達完了注文の合計金額。注文集計と顧客数カウントは
// それぞれ独立した期限を持ち、失敗・期限超過はゼロ値に置き換えられる。
// 統計は派生データであり、画面のライフタイムを超えてキャッシュされない。
func (s *Screen) LoadStats(ctx context.Context) {
	gen := s.gen.Current()

	totals, _ := loader.Fetch(ctx, "admin_stats_orders", s.cfg.StatsOrdersTimeout, nil, s.mc,
		func(ctx context.Context) ([]gateway.OrderTotal, error) {
			return s.orders.ListTotals(ctx)
		})
	customers, _ := loader.Fetch(ctx, "admin_stats_customers", s.cfg.StatsCustomersTimeout, 0, s.mc,
		func(ctx context.Context) (int, error) {
			return s.profiles.Count(ctx)
		})

	if !s.gen.Matches(gen) {
		return
	}

	var totalSales float64
	for _, t := range totals {
		if t.Status == model.OrderStatusDelivered {
			totalSales += t.TotalAmount
		}
	}

	s.mu.Lock()
	s.stats = model.DashboardStats{
		TotalSalesFormatted: fmt.Sprintf("P%.2f", totalSales),
		TotalOrders:         len(totals),
		TotalCustomers:      customers,
	}
	s.mu.Unlock()
}

// Loading は読み込み中かどうかを返す。
func (s *Screen) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Snapshot は現在のスナップショットを返す。
func (s *Screen) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// Stats は計算済みのダッシュボード統計を返す。
func (s *Screen) Stats() model.DashboardStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

// BrandOptions は商品フォームのブランド選択肢を返す。
func (s *Screen) BrandOptions() []model.Brand {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Brand, len(s.snapshot.Brands))
	copy(out, s.snapshot.Brands)
	return out
}

// CategoryOptions は商品フォームのカテゴリ選択肢を返す。
func (s *Screen) CategoryOptions() []model.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Category, len(s.snapshot.Categories))
	copy(out, s.snapshot.Categories)
	return out
}

// IsPending は指定注文のステータス変更が確定待ちかどうかを返す。
func (s *Screen) IsPending(orderID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pending[orderID]
}

// validateProduct は商品保存前の入力検証を行う。
func (s *Screen) validateProduct(p *model.Product) error {
	if strings.TrimSpace(p.Name) == "" {
		return model.NewValidationError("name", "商品名を入力してください")
	}
	if p.Price < 0 {
		return model.NewValidationError("price", "価格は0以上で入力してください")
	}
	if p.Stock < 0 {
		return model.NewValidationError("stock", "在庫数は0以上で入力してください")
	}
	if p.BrandID == "" {
		return model.NewValidationError("brand_id", "ブランドを選択してください")
	}
	if p.CategoryID == "" {
		return model.NewValidationError("category_id", "カテゴリを選択してください")
	}
	if s.validator != nil {
		for _, img := range p.Images {
			if err := s.validator.ValidateURL(img); err != nil {
				return model.NewValidationError("images", err.Error())
			}
		}
	}
	return nil
}

// SaveProduct は商品を検証・サニタイズのうえ保存する。
// IDが空の場合は作成、指定されている場合は更新になる。
// 確定後にスナップショットへ反映し、失敗時はローカル状態を変更しない。
func (s *Screen) SaveProduct(ctx context.Context, p *model.Product) (*model.Product, error) {
	if err := s.validateProduct(p); err != nil {
		return nil, err
	}
	if s.sanitizer != nil {
		p.Description = s.sanitizer.Sanitize(p.Description)
	}

	var saved *model.Product
	var err error
	if p.ID == "" {
		saved, err = s.products.Create(ctx, p)
	} else {
		saved, err = s.products.Update(ctx, p.ID, p)
	}
	if err != nil {
		s.recordMutationFailure("admin_save_product")
		return nil, err
	}

	s.mu.Lock()
	replaced := false
	for i := range s.snapshot.Products {
		if s.snapshot.Products[i].ID == saved.ID {
			s.snapshot.Products[i] = *saved
			replaced = true
			break
		}
	}
	if !replaced {
		// 一覧はcreatedAt降順なので新規作成は先頭に入る
		s.snapshot.Products = append([]model.Product{*saved}, s.snapshot.Products...)
	}
	s.mu.Unlock()

	return saved, nil
}

// DeleteProduct は商品を削除する。確定後にスナップショットから取り除く。
func (s *Screen) DeleteProduct(ctx context.Context, id string) error {
	if err := s.products.Delete(ctx, id); err != nil {
		s.recordMutationFailure("admin_delete_product")
		return err
	}

	s.mu.Lock()
	for i := range s.snapshot.Products {
		if s.snapshot.Products[i].ID == id {
			s.snapshot.Products = append(s.snapshot.Products[:i], s.snapshot.Products[i+1:]...)
			break
		}
	}
	s.mu.Unlock()
	return nil
}

// UpdateOrderStatus は注文ステータスを変更する。
// ステータス値のメンバーシップのみを検証し、遷移の妥当性は検証しない
// （任意の状態から任意の状態へ変更可能）。
// 確定後にスナップショットへ反映し、失敗時はローカル状態を変更しない。
func (s *Screen) UpdateOrderStatus(ctx context.Context, orderID string, status model.OrderStatus) error {
	if !model.ValidOrderStatus(status) {
		return model.NewValidationError("status", fmt.Sprintf("不正なステータスです: %s", status))
	}

	s.mu.Lock()
	s.pending[orderID] = true
	s.mu.Unlock()

	updated, err := s.orders.UpdateStatus(ctx, orderID, status)

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, orderID)
	if err != nil {
		s.recordMutationFailure("admin_update_order_status")
		return err
	}

	// 同一注文への並行変更は直列化しない。後から確定した書き込みが勝つ。
	for i := range s.snapshot.Orders {
		if s.snapshot.Orders[i].ID == orderID {
			s.snapshot.Orders[i].Status = updated.Status
			s.snapshot.Orders[i].UpdatedAt = updated.UpdatedAt
			break
		}
	}
	return nil
}

func (s *Screen) recordMutationFailure(op string) {
	if s.mc != nil {
		s.mc.RecordMutationFailure(op)
	}
}
