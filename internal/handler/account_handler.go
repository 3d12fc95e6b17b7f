package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/drinkscart/internal/middleware"
	"github.com/hitoshi/drinkscart/internal/model"
	"github.com/hitoshi/drinkscart/internal/screen/account"
	"github.com/hitoshi/drinkscart/internal/session"
)

// AccountHandler はアカウント画面のHTTPハンドラー。
// 画面インスタンスはリクエストごとに生成される。
type AccountHandler struct {
	gate      *session.Gate
	newScreen func() *account.Screen
}

// NewAccountHandler はAccountHandlerの新しいインスタンスを生成する。
func NewAccountHandler(gate *session.Gate, newScreen func() *account.Screen) *AccountHandler {
	return &AccountHandler{gate: gate, newScreen: newScreen}
}

func (h *AccountHandler) userID() string {
	current := h.gate.Current()
	if current == nil {
		return ""
	}
	return current.Session.SubjectID
}

type accountResponse struct {
	Profile *profileDTO `json:"profile"`
	Orders  []orderDTO  `json:"orders"`
}

// Get はプロフィールと注文履歴を返す。
// 片方の取得失敗はもう片方に影響せず、取得できなかった側は
// 安全デフォルト（プロフィールはnull、注文は空リスト）になる。
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	s := h.newScreen()
	s.Load(r.Context(), h.userID())

	writeJSON(w, http.StatusOK, accountResponse{
		Profile: toProfileDTO(s.Profile()),
		Orders:  toOrderDTOs(s.Orders()),
	})
}

type updateProfileRequest struct {
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	Country  string `json:"country"`
}

// UpdateProfile はプロフィールを保存する。
// 検証はゲートウェイ呼び出しの前に行われ、不備がある場合は400を返す。
func (h *AccountHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, model.NewValidationError("body", "リクエストボディを解釈できません"))
		return
	}

	s := h.newScreen()
	err := s.SaveProfile(r.Context(), h.userID(), model.ProfileUpdate{
		FullName: req.FullName,
		Phone:    req.Phone,
		Address:  req.Address,
		Country:  req.Country,
	})
	if err != nil {
		middleware.WriteErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProfileDTO(s.Profile()))
}

// OrderDetail は注文の明細を返す。
func (h *AccountHandler) OrderDetail(w http.ResponseWriter, r *http.Request) {
	s := h.newScreen()
	s.Load(r.Context(), h.userID())

	order, err := s.OrderDetail(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		middleware.WriteErrorResponse(w, err)
		return
	}
	if order == nil {
		middleware.WriteErrorResponse(w, model.NewRemoteError(model.ErrCodeNotFound, "注文が見つかりません"))
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTO(*order))
}
