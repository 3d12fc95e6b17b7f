// Package account はアカウント画面のビューステートを管理する。
package account

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/hitoshi/drinkscart/internal/gateway"
	"github.com/hitoshi/drinkscart/internal/loader"
	"github.com/hitoshi/drinkscart/internal/metrics"
	"github.com/hitoshi/drinkscart/internal/model"
)

// countries はサインアップとプロフィール編集で選択可能な国のリスト。
var countries = []string{
	"Japan",
	"Philippines",
	"Singapore",
	"Thailand",
	"Vietnam",
	"United States",
	"Australia",
}

// Countries は選択可能な国のリストを返す。
func Countries() []string {
	out := make([]string, len(countries))
	copy(out, countries)
	return out
}

// ValidCountry は国名がリストのメンバーかどうかを返す。
func ValidCountry(country string) bool {
	for _, c := range countries {
		if c == country {
			return true
		}
	}
	return false
}

// Config はアカウント画面の期限設定。
type Config struct {
	ProfileTimeout time.Duration
	OrdersTimeout  time.Duration
}

// Screen はアカウント画面のビューステート。
// プロフィールと注文履歴を保持する。読み取りの失敗は安全デフォルトへ
// 吸収され、画面は常に描画可能になる。
type Screen struct {
	profiles gateway.ProfileGateway
	orders   gateway.OrderGateway
	cfg      Config
	mc       metrics.Collector

	gen loader.Generation

	mu      sync.RWMutex
	profile *model.UserProfile
	history []model.Order
	loading bool
}

// NewScreen は新しいアカウント画面を生成する。mcはnil可。
func NewScreen(profiles gateway.ProfileGateway, orders gateway.OrderGateway, cfg Config, mc metrics.Collector) *Screen {
	return &Screen{
		profiles: profiles,
		orders:   orders,
		cfg:      cfg,
		mc:       mc,
	}
}

// Load はプロフィールと注文履歴を期限付きで取得する。
// それぞれの失敗・期限超過は独立しており、片方の失敗がもう片方に影響しない。
func (s *Screen) Load(ctx context.Context, userID string) {
	gen := s.gen.Next()

	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()

	profile, _ := loader.Fetch(ctx, "account_profile", s.cfg.ProfileTimeout, nil, s.mc,
		func(ctx context.Context) (*model.UserProfile, error) {
			return s.profiles.Find(ctx, userID)
		})
	history, _ := loader.Fetch(ctx, "account_orders", s.cfg.OrdersTimeout, nil, s.mc,
		func(ctx context.Context) ([]model.Order, error) {
			return s.orders.ListByUser(ctx, userID)
		})

	if !s.gen.Matches(gen) {
		return
	}

	s.mu.Lock()
	s.profile = profile
	s.history = history
	s.loading = false
	s.mu.Unlock()
}

// Loading は読み込み中かどうかを返す。
func (s *Screen) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Profile は現在のプロフィールを返す。取得できなかった場合はnil。
func (s *Screen) Profile() *model.UserProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile
}

// Orders は注文履歴を返す。
func (s *Screen) Orders() []model.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	history := make([]model.Order, len(s.history))
	copy(history, s.history)
	return history
}

// OrderDetail は注文履歴から指定IDの注文を探し、なければゲートウェイに
// 明細付きで問い合わせる。
func (s *Screen) OrderDetail(ctx context.Context, id string) (*model.Order, error) {
	s.mu.RLock()
	for i := range s.history {
		if s.history[i].ID == id && len(s.history[i].Items) > 0 {
			order := s.history[i]
			s.mu.RUnlock()
			return &order, nil
		}
	}
	s.mu.RUnlock()

	return s.orders.Get(ctx, id)
}

// ValidateProfile はプロフィール保存前の入力検証を行う。
// 不備がある場合はValidationErrorを返し、ゲートウェイは呼ばれない。
func ValidateProfile(u model.ProfileUpdate) error {
	if strings.TrimSpace(u.FullName) == "" {
		return model.NewValidationError("full_name", "氏名を入力してください")
	}
	if u.Country != "" && !ValidCountry(u.Country) {
		return model.NewValidationError("country", "選択できない国です")
	}
	return nil
}

// SaveProfile はプロフィールを検証のうえ保存する。
// 確定後にローカルのプロフィールを置き換える。失敗時はローカル状態を
// 変更せず、エラーを呼び出し元へ返す。
func (s *Screen) SaveProfile(ctx context.Context, userID string, u model.ProfileUpdate) error {
	if err := ValidateProfile(u); err != nil {
		return err
	}

	updated, err := s.profiles.Update(ctx, userID, u)
	if err != nil {
		if s.mc != nil {
			s.mc.RecordMutationFailure("account_save_profile")
		}
		return err
	}

	s.mu.Lock()
	s.profile = updated
	s.mu.Unlock()
	return nil
}
