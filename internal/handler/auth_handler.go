package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/hitoshi/drinkscart/internal/middleware"
	"github.com/hitoshi/drinkscart/internal/model"
	"github.com/hitoshi/drinkscart/internal/screen/account"
	"github.com/hitoshi/drinkscart/internal/session"
)

// AuthHandler は認証関連のHTTPハンドラー。
type AuthHandler struct {
	gate *session.Gate
}

// NewAuthHandler はAuthHandlerの新しいインスタンスを生成する。
func NewAuthHandler(gate *session.Gate) *AuthHandler {
	return &AuthHandler{gate: gate}
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignIn はサインインを処理する。
// 資格情報誤りは401でフォームのインラインエラーとして表示される。
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, model.NewValidationError("body", "リクエストボディを解釈できません"))
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		middleware.WriteErrorResponse(w, model.NewValidationError("email", "メールアドレスを入力してください"))
		return
	}
	if req.Password == "" {
		middleware.WriteErrorResponse(w, model.NewValidationError("password", "パスワードを入力してください"))
		return
	}

	current, err := h.gate.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		middleware.WriteErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCurrentUserDTO(current))
}

type signUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	Country  string `json:"country"`
}

// SignUp は新規アカウント登録を処理する。
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, model.NewValidationError("body", "リクエストボディを解釈できません"))
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		middleware.WriteErrorResponse(w, model.NewValidationError("email", "メールアドレスを入力してください"))
		return
	}
	if len(req.Password) < 6 {
		middleware.WriteErrorResponse(w, model.NewValidationError("password", "パスワードは6文字以上で入力してください"))
		return
	}
	if req.Country != "" && !account.ValidCountry(req.Country) {
		middleware.WriteErrorResponse(w, model.NewValidationError("country", "選択できない国です"))
		return
	}

	err := h.gate.SignUp(r.Context(), req.Email, req.Password, model.SignUpProfile{
		Username: req.Username,
		Phone:    req.Phone,
		Address:  req.Address,
		Country:  req.Country,
	})
	if err != nil {
		middleware.WriteErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "created"})
}

// SignOut はサインアウトを処理する。リモート呼び出しの成否に関わらず
// ローカルの認証状態は破棄されるため、常に204を返す。
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	h.gate.SignOut(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// Me は現在の認証状態を返す。未認証の場合は401。
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	if h.gate.State() == session.StateUnknown {
		h.gate.Resolve(r.Context())
	}
	current := h.gate.Current()
	if current == nil {
		middleware.WriteErrorResponse(w, &model.AuthError{
			Code:    model.ErrCodeNoSession,
			Message: "サインインしていません。",
		})
		return
	}
	writeJSON(w, http.StatusOK, toCurrentUserDTO(current))
}

// Countries はサインアップとプロフィール編集で選択可能な国のリストを返す。
func (h *AuthHandler) Countries(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"countries": account.Countries()})
}
