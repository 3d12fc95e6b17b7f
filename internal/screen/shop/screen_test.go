package shop

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/hitoshi/drinkscart/internal/model"
)

// mockProductGateway はProductGatewayのモック。
type mockProductGateway struct {
	listFn       func(ctx context.Context, filter model.ProductFilter) ([]model.Product, error)
	getFn        func(ctx context.Context, id string) (*model.Product, error)
	createFn     func(ctx context.Context, p *model.Product) (*model.Product, error)
	updateFn     func(ctx context.Context, id string, p *model.Product) (*model.Product, error)
	deleteFn     func(ctx context.Context, id string) error
	brandsFn     func(ctx context.Context) ([]model.Brand, error)
	categoriesFn func(ctx context.Context) ([]model.Category, error)
}

func (m *mockProductGateway) List(ctx context.Context, filter model.ProductFilter) ([]model.Product, error) {
	return m.listFn(ctx, filter)
}

func (m *mockProductGateway) Get(ctx context.Context, id string) (*model.Product, error) {
	return m.getFn(ctx, id)
}

func (m *mockProductGateway) Create(ctx context.Context, p *model.Product) (*model.Product, error) {
	return m.createFn(ctx, p)
}

func (m *mockProductGateway) Update(ctx context.Context, id string, p *model.Product) (*model.Product, error) {
	return m.updateFn(ctx, id, p)
}

func (m *mockProductGateway) Delete(ctx context.Context, id string) error {
	return m.deleteFn(ctx, id)
}

func (m *mockProductGateway) Brands(ctx context.Context) ([]model.Brand, error) {
	return m.brandsFn(ctx)
}

func (m *mockProductGateway) Categories(ctx context.Context) ([]model.Category, error) {
	return m.categoriesFn(ctx)
}

func fiveProducts() []model.Product {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return []model.Product{
		{ID: "p-1", Name: "Yeti Tumbler", BrandID: "b-yeti", BrandName: "Yeti", CategoryID: "c-1", CategoryName: "Outdoor", CreatedAt: base.Add(4 * time.Hour)},
		{ID: "p-2", Name: "Hydro Bottle", BrandID: "b-hydro", BrandName: "Hydro", CategoryID: "c-1", CategoryName: "Outdoor", CreatedAt: base.Add(3 * time.Hour)},
		{ID: "p-3", Name: "Yeti Jug", BrandID: "b-yeti", BrandName: "Yeti", CategoryID: "c-2", CategoryName: "Kitchen", CreatedAt: base.Add(2 * time.Hour)},
		{ID: "p-4", Name: "Thermo Mug", BrandID: "b-thermo", BrandName: "Thermo", CategoryID: "c-2", CategoryName: "Kitchen", Featured: true, CreatedAt: base.Add(1 * time.Hour)},
		{ID: "p-5", Name: "Steel Flask", BrandID: "b-hydro", BrandName: "Hydro", CategoryID: "c-1", CategoryName: "Outdoor", CreatedAt: base},
	}
}

func TestApplyFilter_EmptyFilterReturnsAllSortedByCreatedAtDesc(t *testing.T) {
	products := fiveProducts()
	// 順序を崩した入力
	shuffled := []model.Product{products[2], products[0], products[4], products[1], products[3]}

	got := ApplyFilter(shuffled, model.ProductFilter{})

	if len(got) != 5 {
		t.Fatalf("件数 = %d, want 5", len(got))
	}
	wantOrder := []string{"p-1", "p-2", "p-3", "p-4", "p-5"}
	for i, want := range wantOrder {
		if got[i].ID != want {
			t.Errorf("位置%dのID = %s, want %s", i, got[i].ID, want)
		}
	}
}

func TestApplyFilter_BrandFilterKeepsRelativeOrder(t *testing.T) {
	got := ApplyFilter(fiveProducts(), model.ProductFilter{BrandID: "b-yeti"})

	if len(got) != 2 {
		t.Fatalf("件数 = %d, want 2", len(got))
	}
	if got[0].ID != "p-1" || got[1].ID != "p-3" {
		t.Errorf("結果 = [%s, %s], want [p-1, p-3]", got[0].ID, got[1].ID)
	}
}

func TestApplyFilter_ResultIsSubsetSatisfyingPredicates(t *testing.T) {
	products := fiveProducts()
	filters := []model.ProductFilter{
		{CategoryID: "c-1"},
		{BrandID: "b-hydro"},
		{CategoryID: "c-2", BrandID: "b-thermo"},
		{Featured: true},
		{Search: "yeti"},
	}

	byID := make(map[string]model.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	for _, f := range filters {
		got := ApplyFilter(products, f)
		if len(got) > len(products) {
			t.Errorf("フィルタ %+v の結果が入力より大きい", f)
		}
		for _, p := range got {
			if _, exists := byID[p.ID]; !exists {
				t.Errorf("フィルタ %+v の結果に入力にない要素が含まれる: %s", f, p.ID)
			}
			if f.Search == "" {
				if f.CategoryID != "" && p.CategoryID != f.CategoryID {
					t.Errorf("フィルタ %+v の結果にカテゴリ不一致の要素: %s", f, p.ID)
				}
				if f.BrandID != "" && p.BrandID != f.BrandID {
					t.Errorf("フィルタ %+v の結果にブランド不一致の要素: %s", f, p.ID)
				}
				if f.Featured && !p.Featured {
					t.Errorf("フィルタ %+v の結果に非注目の要素: %s", f, p.ID)
				}
			}
		}
	}
}

func TestApplyFilter_SearchReplacesCategoryAndBrand(t *testing.T) {
	// 検索文字列が指定されると、カテゴリ・ブランドの選択は適用されない
	f := model.ProductFilter{
		CategoryID: "c-1",
		BrandID:    "b-hydro",
		Search:     "yeti",
	}
	got := ApplyFilter(fiveProducts(), f)

	// "yeti" は c-1/b-hydro に属さない p-1, p-3 に一致する
	if len(got) != 2 {
		t.Fatalf("件数 = %d, want 2", len(got))
	}
	if got[0].ID != "p-1" || got[1].ID != "p-3" {
		t.Errorf("結果 = [%s, %s], want [p-1, p-3]", got[0].ID, got[1].ID)
	}
}

func TestApplyFilter_SearchMatchesDescriptionAndNames(t *testing.T) {
	products := []model.Product{
		{ID: "p-1", Name: "Tumbler", Description: "真空断熱で保冷24時間"},
		{ID: "p-2", Name: "Bottle", BrandName: "Yeti"},
		{ID: "p-3", Name: "Mug", CategoryName: "Outdoor"},
		{ID: "p-4", Name: "Flask"},
	}

	if got := ApplyFilter(products, model.ProductFilter{Search: "保冷"}); len(got) != 1 || got[0].ID != "p-1" {
		t.Errorf("説明への一致結果 = %+v", got)
	}
	if got := ApplyFilter(products, model.ProductFilter{Search: "YETI"}); len(got) != 1 || got[0].ID != "p-2" {
		t.Errorf("ブランド名への大文字小文字無視一致結果 = %+v", got)
	}
	if got := ApplyFilter(products, model.ProductFilter{Search: "outdoor"}); len(got) != 1 || got[0].ID != "p-3" {
		t.Errorf("カテゴリ名への一致結果 = %+v", got)
	}
}

func TestScreen_Load_ReplacesSnapshotWholesale(t *testing.T) {
	products := fiveProducts()
	pg := &mockProductGateway{
		listFn: func(ctx context.Context, filter model.ProductFilter) ([]model.Product, error) {
			return products, nil
		},
		brandsFn: func(ctx context.Context) ([]model.Brand, error) {
			return []model.Brand{{ID: "b-yeti", Name: "Yeti"}}, nil
		},
		categoriesFn: func(ctx context.Context) ([]model.Category, error) {
			return []model.Category{{ID: "c-1", Name: "Outdoor"}}, nil
		},
	}
	s := NewScreen(pg, time.Second, nil)

	s.Load(context.Background())

	snap := s.Snapshot()
	if len(snap.Products) != 5 {
		t.Errorf("商品数 = %d, want 5", len(snap.Products))
	}
	if len(snap.Brands) != 1 || len(snap.Categories) != 1 {
		t.Errorf("ブランド数 = %d, カテゴリ数 = %d", len(snap.Brands), len(snap.Categories))
	}
	if s.Loading() {
		t.Error("読み込み完了後も Loading が true")
	}
}

func TestScreen_Load_IsIdempotent(t *testing.T) {
	pg := &mockProductGateway{
		listFn: func(ctx context.Context, filter model.ProductFilter) ([]model.Product, error) {
			return fiveProducts(), nil
		},
		brandsFn: func(ctx context.Context) ([]model.Brand, error) {
			return []model.Brand{{ID: "b-yeti", Name: "Yeti"}}, nil
		},
		categoriesFn: func(ctx context.Context) ([]model.Category, error) {
			return nil, nil
		},
	}
	s := NewScreen(pg, time.Second, nil)

	s.Load(context.Background())
	first := s.Snapshot()
	s.Load(context.Background())
	second := s.Snapshot()

	if !reflect.DeepEqual(first, second) {
		t.Error("書き込みなしの連続 Load でスナップショットが一致しない")
	}
}

func TestScreen_Load_FailedFetchFallsBackToEmpty(t *testing.T) {
	pg := &mockProductGateway{
		listFn: func(ctx context.Context, filter model.ProductFilter) ([]model.Product, error) {
			return fiveProducts(), nil
		},
		brandsFn: func(ctx context.Context) ([]model.Brand, error) {
			return nil, model.NewRemoteError("", "connection refused")
		},
		categoriesFn: func(ctx context.Context) ([]model.Category, error) {
			return []model.Category{{ID: "c-1", Name: "Outdoor"}}, nil
		},
	}
	s := NewScreen(pg, time.Second, nil)

	s.Load(context.Background())

	snap := s.Snapshot()
	if len(snap.Products) != 5 {
		t.Errorf("兄弟の失敗が商品取得に影響した: 商品数 = %d", len(snap.Products))
	}
	if snap.Brands != nil {
		t.Errorf("失敗した取得が安全デフォルトにならなかった: %+v", snap.Brands)
	}
	if len(snap.Categories) != 1 {
		t.Errorf("カテゴリ数 = %d, want 1", len(snap.Categories))
	}
}

func TestScreen_SetFilter_AppliesLocally(t *testing.T) {
	var listCalls int
	pg := &mockProductGateway{
		listFn: func(ctx context.Context, filter model.ProductFilter) ([]model.Product, error) {
			listCalls++
			return fiveProducts(), nil
		},
		brandsFn:     func(ctx context.Context) ([]model.Brand, error) { return nil, nil },
		categoriesFn: func(ctx context.Context) ([]model.Category, error) { return nil, nil },
	}
	s := NewScreen(pg, time.Second, nil)
	s.Load(context.Background())

	s.SetFilter(model.ProductFilter{BrandID: "b-yeti"})
	got := s.Products()

	if len(got) != 2 {
		t.Errorf("絞り込み結果 = %d件, want 2", len(got))
	}
	if listCalls != 1 {
		t.Errorf("絞り込みでラウンドトリップが発生した: List呼び出し = %d回", listCalls)
	}
}
