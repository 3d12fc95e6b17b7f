// Package shop はストア画面のビューステートを管理する。
//
// 画面はナビゲーションごとに生成され、スナップショットは画面の
// ライフタイムでのみ有効。読み込みはスナップショットを丸ごと置き換え、
// 部分マージは行わない。
package shop

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hitoshi/drinkscart/internal/gateway"
	"github.com/hitoshi/drinkscart/internal/loader"
	"github.com/hitoshi/drinkscart/internal/metrics"
	"github.com/hitoshi/drinkscart/internal/model"
)

// Snapshot はストア画面が保持するエンティティのスナップショット。
type Snapshot struct {
	Products   []model.Product
	Brands     []model.Brand
	Categories []model.Category
}

// Screen はストア画面のビューステート。
type Screen struct {
	products     gateway.ProductGateway
	loadDeadline time.Duration
	mc           metrics.Collector

	gen loader.Generation

	mu       sync.RWMutex
	snapshot Snapshot
	filter   model.ProductFilter
	loading  bool
}

// NewScreen は新しいストア画面を生成する。mcはnil可。
func NewScreen(products gateway.ProductGateway, loadDeadline time.Duration, mc metrics.Collector) *Screen {
	return &Screen{
		products:     products,
		loadDeadline: loadDeadline,
		mc:           mc,
	}
}

// Load は商品・ブランド・カテゴリを並行取得し、スナップショットを
// 丸ごと置き換える。個々の取得の失敗・期限超過は安全デフォルト
// （空リスト）に置き換えられ、画面は必ず描画可能な状態になる。
// 読み込み中に画面が再生成された場合、遅延結果は破棄される。
func (s *Screen) Load(ctx context.Context) {
	gen := s.gen.Next()

	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()

	g := loader.NewGroup(ctx, s.loadDeadline, s.mc)
	products := loader.Go(g, "shop_products", nil, func(ctx context.Context) ([]model.Product, error) {
		return s.products.List(ctx, model.ProductFilter{})
	})
	brands := loader.Go(g, "shop_brands", nil, func(ctx context.Context) ([]model.Brand, error) {
		return s.products.Brands(ctx)
	})
	categories := loader.Go(g, "shop_categories", nil, func(ctx context.Context) ([]model.Category, error) {
		return s.products.Categories(ctx)
	})
	g.Wait()

	if !s.gen.Matches(gen) {
		// 画面が作り直された後の遅延結果は適用しない
		return
	}

	ps, _ := products.Value()
	bs, _ := brands.Value()
	cs, _ := categories.Value()

	s.mu.Lock()
	s.snapshot = Snapshot{Products: ps, Brands: bs, Categories: cs}
	s.loading = false
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

// SetFilter は絞り込み条件を設定する。ラウンドトリップは発生しない。
func (s *Screen) SetFilter(f model.ProductFilter) {
	s.mu.Lock()
	s.filter = f
	s.mu.Unlock()
}

// Filter は現在の絞り込み条件を返す。
func (s *Screen) Filter() model.ProductFilter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter
}

// Products は絞り込み適用後の商品リストを返す。
func (s *Screen) Products() []model.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ApplyFilter(s.snapshot.Products, s.filter)
}

// ApplyFilter はスナップショットに対する純粋な絞り込み関数。
//
// 検索文字列が指定されている場合、商品名・説明・ブランド名・カテゴリ名への
// 大文字小文字無視の部分一致で絞り込み、カテゴリ・ブランドの選択は
// 適用されない（検索は絞り込みを置き換える）。
// 検索文字列が空の場合はカテゴリ・ブランド・注目フラグの完全一致で絞り込む。
// 空フィルタの場合はcreatedAt降順で全件を返す。
// 結果は常に入力の部分集合であり、相対順序を保つ。
func ApplyFilter(products []model.Product, f model.ProductFilter) []model.Product {
	if f.Empty() {
		sorted := make([]model.Product, len(products))
		copy(sorted, products)
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
		})
		return sorted
	}

	result := make([]model.Product, 0, len(products))

	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		for _, p := range products {
			if matchesSearch(p, needle) {
				result = append(result, p)
			}
		}
		return result
	}

	for _, p := range products {
		if f.CategoryID != "" && p.CategoryID != f.CategoryID {
			continue
		}
		if f.BrandID != "" && p.BrandID != f.BrandID {
			continue
		}
		if f.Featured && !p.Featured {
			continue
		}
		result = append(result, p)
	}
	return result
}

func matchesSearch(p model.Product, needle string) bool {
	for _, field := range []string{p.Name, p.Description, p.BrandName, p.CategoryName} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}
