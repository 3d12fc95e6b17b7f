package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hitoshi/drinkscart/internal/gateway"
	"github.com/hitoshi/drinkscart/internal/middleware"
	"github.com/hitoshi/drinkscart/internal/model"
	"github.com/hitoshi/drinkscart/internal/screen/admin"
)

// productImageBucket は商品画像の保存先バケット。
const productImageBucket = "product-images"

// maxImageUploadBytes は商品画像アップロードの上限サイズ。
const maxImageUploadBytes = 5 << 20

// AdminHandler は管理画面のHTTPハンドラー。
// 画面インスタンスはリクエストごとに生成される。
type AdminHandler struct {
	newScreen func() *admin.Screen
	storage   gateway.StorageGateway
}

// NewAdminHandler はAdminHandlerの新しいインスタンスを生成する。
func NewAdminHandler(newScreen func() *admin.Screen, storage gateway.StorageGateway) *AdminHandler {
	return &AdminHandler{newScreen: newScreen, storage: storage}
}

type dashboardStatsDTO struct {
	TotalSales     string `json:"total_sales"`
	TotalOrders    int    `json:"total_orders"`
	TotalCustomers int    `json:"total_customers"`
}

type adminOverviewResponse struct {
	Products   []productDTO      `json:"products"`
	Brands     []brandDTO        `json:"brands"`
	Categories []categoryDTO     `json:"categories"`
	Orders     []orderDTO        `json:"orders"`
	Stats      dashboardStatsDTO `json:"stats"`
}

// Overview は管理画面の表示データと統計を返す。
// 取得はジョイント期限付きで並行実行され、期限内に完了しなかった
// 部分は空のまま200を返す。
func (h *AdminHandler) Overview(w http.ResponseWriter, r *http.Request) {
	s := h.newScreen()
	s.Load(r.Context())
	s.LoadStats(r.Context())

	snap := s.Snapshot()
	stats := s.Stats()
	writeJSON(w, http.StatusOK, adminOverviewResponse{
		Products:   toProductDTOs(snap.Products),
		Brands:     toBrandDTOs(snap.Brands),
		Categories: toCategoryDTOs(snap.Categories),
		Orders:     toOrderDTOs(snap.Orders),
		Stats: dashboardStatsDTO{
			TotalSales:     stats.TotalSalesFormatted,
			TotalOrders:    stats.TotalOrders,
			TotalCustomers: stats.TotalCustomers,
		},
	})
}

type productRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Price       float64  `json:"price"`
	Stock       int      `json:"stock"`
	Sizes       []string `json:"sizes"`
	Images      []string `json:"images"`
	BrandID     string   `json:"brand_id"`
	CategoryID  string   `json:"category_id"`
	Featured    bool     `json:"featured"`
}

func (req *productRequest) toModel(id string) *model.Product {
	return &model.Product{
		ID:          id,
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		Sizes:       req.Sizes,
		Images:      req.Images,
		BrandID:     req.BrandID,
		CategoryID:  req.CategoryID,
		Featured:    req.Featured,
	}
}

// CreateProduct は商品を新規作成する。
func (h *AdminHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, model.NewValidationError("body", "リクエストボディを解釈できません"))
		return
	}

	s := h.newScreen()
	saved, err := s.SaveProduct(r.Context(), req.toModel(""))
	if err != nil {
		middleware.WriteErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toProductDTO(*saved))
}

// UpdateProduct は既存商品を更新する。
func (h *AdminHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, model.NewValidationError("body", "リクエストボディを解釈できません"))
		return
	}

	s := h.newScreen()
	saved, err := s.SaveProduct(r.Context(), req.toModel(chi.URLParam(r, "id")))
	if err != nil {
		middleware.WriteErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductDTO(*saved))
}

// DeleteProduct は商品を削除する。
func (h *AdminHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	s := h.newScreen()
	if err := s.DeleteProduct(r.Context(), chi.URLParam(r, "id")); err != nil {
		middleware.WriteErrorResponse(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type updateOrderStatusRequest struct {
	Status string `json:"status"`
}

// UpdateOrderStatus は注文のステータスを変更する。
// ステータス値のメンバーシップのみを検証する。
func (h *AdminHandler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req updateOrderStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, model.NewValidationError("body", "リクエストボディを解釈できません"))
		return
	}

	s := h.newScreen()
	if err := s.UpdateOrderStatus(r.Context(), chi.URLParam(r, "id"), model.OrderStatus(req.Status)); err != nil {
		middleware.WriteErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": req.Status})
}

// UploadImage は商品画像をストレージへアップロードし、公開URLを返す。
// ファイル名の拡張子は元のファイル名から引き継ぎ、キーはランダムに採番する。
func (h *AdminHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		middleware.WriteErrorResponse(w, model.NewValidationError("content_type", "画像ファイルのみアップロードできます"))
		return
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, maxImageUploadBytes+1))
	if err != nil {
		middleware.WriteErrorResponse(w, model.NewValidationError("body", "リクエストボディを読み取れません"))
		return
	}
	if len(data) == 0 {
		middleware.WriteErrorResponse(w, model.NewValidationError("body", "ファイルが空です"))
		return
	}
	if len(data) > maxImageUploadBytes {
		middleware.WriteErrorResponse(w, model.NewValidationError("body", "ファイルサイズが上限を超えています"))
		return
	}

	ext := path.Ext(r.URL.Query().Get("filename"))
	key := fmt.Sprintf("%s%s", uuid.NewString(), ext)

	url, err := h.storage.Upload(r.Context(), productImageBucket, key, data, contentType)
	if err != nil {
		middleware.WriteErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"url": url})
}
