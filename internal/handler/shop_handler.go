package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/drinkscart/internal/gateway"
	"github.com/hitoshi/drinkscart/internal/middleware"
	"github.com/hitoshi/drinkscart/internal/model"
	"github.com/hitoshi/drinkscart/internal/screen/shop"
)

// ShopHandler はストア画面のHTTPハンドラー。
// 画面インスタンスはリクエストごとに生成される。
type ShopHandler struct {
	newScreen func() *shop.Screen
	products  gateway.ProductGateway
}

// NewShopHandler はShopHandlerの新しいインスタンスを生成する。
// newScreenはリクエストごとの画面ファクトリ。
func NewShopHandler(newScreen func() *shop.Screen, products gateway.ProductGateway) *ShopHandler {
	return &ShopHandler{newScreen: newScreen, products: products}
}

type shopResponse struct {
	Products   []productDTO  `json:"products"`
	Brands     []brandDTO    `json:"brands"`
	Categories []categoryDTO `json:"categories"`
}

// List はストア画面の表示データを返す。
// 絞り込みはクエリパラメータ（category_id, brand_id, search, featured）で
// 指定し、取得済みスナップショットへのローカル適用で処理される。
// 読み取りの失敗は安全デフォルトに吸収されるため、このエンドポイントは
// バックエンド障害時も空リストで200を返す。
func (h *ShopHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := model.ProductFilter{
		CategoryID: q.Get("category_id"),
		BrandID:    q.Get("brand_id"),
		Search:     q.Get("search"),
		Featured:   q.Get("featured") == "true",
	}

	s := h.newScreen()
	s.Load(r.Context())
	s.SetFilter(filter)

	snap := s.Snapshot()
	writeJSON(w, http.StatusOK, shopResponse{
		Products:   toProductDTOs(s.Products()),
		Brands:     toBrandDTOs(snap.Brands),
		Categories: toCategoryDTOs(snap.Categories),
	})
}

// Detail は指定IDの商品を返す。見つからない場合は404。
func (h *ShopHandler) Detail(w http.ResponseWriter, r *http.Request) {
	product, err := h.products.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		middleware.WriteErrorResponse(w, err)
		return
	}
	if product == nil {
		middleware.WriteErrorResponse(w, model.NewRemoteError(model.ErrCodeNotFound, "商品が見つかりません"))
		return
	}
	writeJSON(w, http.StatusOK, toProductDTO(*product))
}
