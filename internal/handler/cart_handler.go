package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/drinkscart/internal/badge"
	"github.com/hitoshi/drinkscart/internal/middleware"
	"github.com/hitoshi/drinkscart/internal/model"
	"github.com/hitoshi/drinkscart/internal/screen/cart"
	"github.com/hitoshi/drinkscart/internal/session"
)

// CartHandler はカート画面のHTTPハンドラー。
// 画面インスタンスはリクエストごとに生成される。
type CartHandler struct {
	gate      *session.Gate
	newScreen func() *cart.Screen
	poller    *badge.Poller
}

// NewCartHandler はCartHandlerの新しいインスタンスを生成する。pollerはnil可。
func NewCartHandler(gate *session.Gate, newScreen func() *cart.Screen, poller *badge.Poller) *CartHandler {
	return &CartHandler{gate: gate, newScreen: newScreen, poller: poller}
}

func (h *CartHandler) userID() string {
	current := h.gate.Current()
	if current == nil {
		return ""
	}
	return current.Session.SubjectID
}

// loadScreen はリクエストごとの画面を生成してカートを読み込む。
func (h *CartHandler) loadScreen(r *http.Request) *cart.Screen {
	s := h.newScreen()
	s.Load(r.Context(), h.userID())
	return s
}

type cartResponse struct {
	Items   []cartItemDTO `json:"items"`
	Summary summaryDTO    `json:"summary"`
}

type summaryDTO struct {
	Subtotal    float64 `json:"subtotal"`
	ShippingFee float64 `json:"shipping_fee"`
	Total       float64 `json:"total"`
	ItemCount   int     `json:"item_count"`
}

func (h *CartHandler) respondCart(w http.ResponseWriter, s *cart.Screen) {
	items := s.Items()
	dtos := make([]cartItemDTO, 0, len(items))
	for i := range items {
		dto := cartItemDTO{
			ID:           items[i].ID,
			ProductID:    items[i].ProductID,
			Quantity:     items[i].Quantity,
			SelectedSize: items[i].SelectedSize,
			Selected:     s.IsSelected(items[i].ID),
			Pending:      s.IsPending(items[i].ID),
			LineTotal:    items[i].LineTotal(),
		}
		if items[i].Product != nil {
			p := toProductDTO(*items[i].Product)
			dto.Product = &p
		}
		dtos = append(dtos, dto)
	}

	summary := s.Summarize()
	writeJSON(w, http.StatusOK, cartResponse{
		Items: dtos,
		Summary: summaryDTO{
			Subtotal:    summary.Subtotal,
			ShippingFee: summary.ShippingFee,
			Total:       summary.Total,
			ItemCount:   summary.ItemCount,
		},
	})
}

// Get はカートの内容と注文サマリーを返す。
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.respondCart(w, h.loadScreen(r))
}

type addItemRequest struct {
	ProductID    string `json:"product_id"`
	Quantity     int    `json:"quantity"`
	SelectedSize string `json:"selected_size"`
}

// AddItem は商品をカートに追加する。
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, model.NewValidationError("body", "リクエストボディを解釈できません"))
		return
	}
	if req.ProductID == "" {
		middleware.WriteErrorResponse(w, model.NewValidationError("product_id", "商品を指定してください"))
		return
	}

	s := h.loadScreen(r)
	if err := s.Add(r.Context(), req.ProductID, req.Quantity, req.SelectedSize); err != nil {
		middleware.WriteErrorResponse(w, err)
		return
	}
	h.respondCart(w, s)
}

type changeQuantityRequest struct {
	Delta int `json:"delta"`
}

// ChangeQuantity はカート行の数量を差分で変更する。
func (h *CartHandler) ChangeQuantity(w http.ResponseWriter, r *http.Request) {
	var req changeQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, model.NewValidationError("body", "リクエストボディを解釈できません"))
		return
	}

	s := h.loadScreen(r)
	if err := s.ChangeQuantity(r.Context(), chi.URLParam(r, "id"), req.Delta); err != nil {
		middleware.WriteErrorResponse(w, err)
		return
	}
	h.respondCart(w, s)
}

// RemoveItem はカート行を削除する。
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	s := h.loadScreen(r)
	if err := s.Remove(r.Context(), chi.URLParam(r, "id")); err != nil {
		middleware.WriteErrorResponse(w, err)
		return
	}
	h.respondCart(w, s)
}

type checkoutRequest struct {
	SelectedIDs []string `json:"selected_ids"`
}

type checkoutResponse struct {
	OrderNumber string     `json:"order_number"`
	Summary     summaryDTO `json:"summary"`
}

// Checkout は選択中アイテムのチェックアウトを行う。
// 決済は実装されておらず、注文番号の採番のみが行われる。
func (h *CartHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, model.NewValidationError("body", "リクエストボディを解釈できません"))
		return
	}

	s := h.loadScreen(r)
	if req.SelectedIDs != nil {
		selected := make(map[string]struct{}, len(req.SelectedIDs))
		for _, id := range req.SelectedIDs {
			selected[id] = struct{}{}
		}
		for _, item := range s.Items() {
			if _, ok := selected[item.ID]; !ok {
				s.Deselect(item.ID)
			}
		}
	}

	orderNumber, err := s.Checkout(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, err)
		return
	}

	summary := s.Summarize()
	writeJSON(w, http.StatusOK, checkoutResponse{
		OrderNumber: orderNumber,
		Summary: summaryDTO{
			Subtotal:    summary.Subtotal,
			ShippingFee: summary.ShippingFee,
			Total:       summary.Total,
			ItemCount:   summary.ItemCount,
		},
	})
}

// Count はヘッダーバッジ用のカート件数を返す。
func (h *CartHandler) Count(w http.ResponseWriter, r *http.Request) {
	count := 0
	if h.poller != nil {
		count = h.poller.Count()
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": count})
}
