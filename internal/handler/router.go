package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/drinkscart/internal/badge"
	"github.com/hitoshi/drinkscart/internal/fallback"
	"github.com/hitoshi/drinkscart/internal/gateway"
	"github.com/hitoshi/drinkscart/internal/metrics"
	"github.com/hitoshi/drinkscart/internal/middleware"
	"github.com/hitoshi/drinkscart/internal/model"
	"github.com/hitoshi/drinkscart/internal/screen/account"
	"github.com/hitoshi/drinkscart/internal/screen/admin"
	"github.com/hitoshi/drinkscart/internal/screen/cart"
	"github.com/hitoshi/drinkscart/internal/screen/shop"
	"github.com/hitoshi/drinkscart/internal/session"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	CORSAllowedOrigin string
	Logger            *slog.Logger

	// 認証・ルート保護
	Gate *session.Gate

	// 画面ファクトリ（リクエストごとに画面を生成する）
	Products         gateway.ProductGateway
	NewShopScreen    func() *shop.Screen
	NewCartScreen    func() *cart.Screen
	NewAccountScreen func() *account.Screen
	NewAdminScreen   func() *admin.Screen

	// カート件数バッジ
	BadgePoller *badge.Poller

	// 初期表示の縮退監視
	Supervisor *fallback.Supervisor

	// ストレージ（商品画像アップロード）
	Storage gateway.StorageGateway

	// メトリクス公開
	Gatherer prometheus.Gatherer
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RecoveryMiddleware → CORSMiddleware → LoggingMiddleware
//
// 保護が必要なルートグループにはGateによるガードが追加で適用される。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	if deps.Logger != nil {
		r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	}

	authHandler := NewAuthHandler(deps.Gate)
	shopHandler := NewShopHandler(deps.NewShopScreen, deps.Products)
	cartHandler := NewCartHandler(deps.Gate, deps.NewCartScreen, deps.BadgePoller)
	accountHandler := NewAccountHandler(deps.Gate, deps.NewAccountScreen)
	adminHandler := NewAdminHandler(deps.NewAdminScreen, deps.Storage)

	// --- 認証不要のルート ---

	r.Get("/health", NewHealthHandler(deps.Supervisor).Health)
	if deps.Gatherer != nil {
		r.Get("/metrics", metrics.Handler(deps.Gatherer).ServeHTTP)
	}

	r.Route("/auth", func(r chi.Router) {
		r.Post("/signin", authHandler.SignIn)
		r.Post("/signup", authHandler.SignUp)
		r.Post("/signout", authHandler.SignOut)
		r.Get("/me", authHandler.Me)
		r.Get("/countries", authHandler.Countries)
	})

	// ストア閲覧は未認証でも可能
	r.Get("/api/shop", shopHandler.List)
	r.Get("/api/shop/products/{id}", shopHandler.Detail)

	// --- 認証が必要なルート ---
	r.Group(func(r chi.Router) {
		r.Use(NewGuardMiddleware(deps.Gate, session.RequireAuth))

		r.Route("/api/cart", func(r chi.Router) {
			r.Get("/", cartHandler.Get)
			r.Get("/count", cartHandler.Count)
			r.Post("/items", cartHandler.AddItem)
			r.Patch("/items/{id}/quantity", cartHandler.ChangeQuantity)
			r.Delete("/items/{id}", cartHandler.RemoveItem)
			r.Post("/checkout", cartHandler.Checkout)
		})

		r.Route("/api/account", func(r chi.Router) {
			r.Get("/", accountHandler.Get)
			r.Put("/profile", accountHandler.UpdateProfile)
			r.Get("/orders/{id}", accountHandler.OrderDetail)
		})
	})

	// --- 管理者のみのルート ---
	r.Group(func(r chi.Router) {
		r.Use(NewGuardMiddleware(deps.Gate, session.RequireAdmin))

		r.Route("/api/admin", func(r chi.Router) {
			r.Get("/overview", adminHandler.Overview)
			r.Post("/products", adminHandler.CreateProduct)
			r.Put("/products/{id}", adminHandler.UpdateProduct)
			r.Delete("/products/{id}", adminHandler.DeleteProduct)
			r.Patch("/orders/{id}/status", adminHandler.UpdateOrderStatus)
			r.Post("/images", adminHandler.UploadImage)
		})
	})

	return r
}

// NewGuardMiddleware はルート保護のミドルウェアを返す。
// 認証状態の確認が未完了の場合はその場で解決してから判定する。
// 判定結果が出るまでコンテンツは一切返さない。
func NewGuardMiddleware(gate *session.Gate, req session.Requirement) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			decision := gate.Authorize(req)
			if decision == session.DecisionPending {
				gate.Resolve(r.Context())
				decision = gate.Authorize(req)
			}

			switch decision {
			case session.DecisionAllow:
				next.ServeHTTP(w, r)
			case session.DecisionRedirectLogin:
				writeJSON(w, http.StatusUnauthorized, middleware.ErrorResponseBody{
					Code:    model.ErrCodeNoSession,
					Message: "サインインが必要です。",
				})
			case session.DecisionRedirectHome:
				writeJSON(w, http.StatusForbidden, middleware.ErrorResponseBody{
					Code:    "FORBIDDEN",
					Message: "このページへのアクセス権限がありません。",
				})
			default:
				// 解決を試みても保留のままになることはないが、念のため
				writeJSON(w, http.StatusServiceUnavailable, middleware.ErrorResponseBody{
					Code:    "SESSION_PENDING",
					Message: "認証状態を確認中です。",
				})
			}
		})
	}
}

// HealthHandler はヘルスチェックのHTTPハンドラー。
type HealthHandler struct {
	supervisor *fallback.Supervisor
}

// NewHealthHandler はHealthHandlerの新しいインスタンスを生成する。supervisorはnil可。
func NewHealthHandler(supervisor *fallback.Supervisor) *HealthHandler {
	return &HealthHandler{supervisor: supervisor}
}

type healthResponse struct {
	Status    string   `json:"status"`
	Readiness string   `json:"readiness,omitempty"`
	Actions   []string `json:"actions,omitempty"`
}

// Health はサービスの稼働状態を返す。
// 初期表示の縮退監視が縮退状態の場合は復帰手段も含める。
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok"}
	if h.supervisor != nil {
		resp.Readiness = h.supervisor.State().String()
		for _, a := range h.supervisor.Actions() {
			resp.Actions = append(resp.Actions, a.ID)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
