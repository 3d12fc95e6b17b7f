// Package cart はカート画面のビューステートを管理する。
//
// 変更系の操作は先にゲートウェイで確定させ、成功後にローカルの
// スナップショットへ反映する（確定前の先行適用は行わない）。
// 失敗時はローカル状態を変更せず、エラーを呼び出し元へ返す。
package cart

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/drinkscart/internal/gateway"
	"github.com/hitoshi/drinkscart/internal/loader"
	"github.com/hitoshi/drinkscart/internal/metrics"
	"github.com/hitoshi/drinkscart/internal/model"
)

// CountRefresher はカート件数バッジの即時更新を要求するインターフェース。
type CountRefresher interface {
	Trigger()
}

// Summary は選択中アイテムの注文サマリー。
type Summary struct {
	Subtotal    float64
	ShippingFee float64
	Total       float64
	ItemCount   int
}

// Screen はカート画面のビューステート。
type Screen struct {
	carts        gateway.CartGateway
	refresher    CountRefresher
	shippingFee  float64
	loadDeadline time.Duration
	mc           metrics.Collector

	gen loader.Generation

	mu        sync.RWMutex
	userID    string
	items     []model.CartItem
	selection map[string]struct{}
	pending   map[string]bool
	loading   bool
}

// NewScreen は新しいカート画面を生成する。refresherとmcはnil可。
func NewScreen(carts gateway.CartGateway, refresher CountRefresher, shippingFee float64, loadDeadline time.Duration, mc metrics.Collector) *Screen {
	return &Screen{
		carts:        carts,
		refresher:    refresher,
		shippingFee:  shippingFee,
		loadDeadline: loadDeadline,
		mc:           mc,
		selection:    make(map[string]struct{}),
		pending:      make(map[string]bool),
	}
}

// Load はユーザーのカート行を期限付きで取得し、スナップショットを
// 丸ごと置き換える。取得後は全行が選択状態になる。
// 失敗・期限超過時は空のカートとして描画される。
func (s *Screen) Load(ctx context.Context, userID string) {
	gen := s.gen.Next()

	s.mu.Lock()
	s.userID = userID
	s.loading = true
	s.mu.Unlock()

	items, _ := loader.Fetch(ctx, "cart_load", s.loadDeadline, nil, s.mc,
		func(ctx context.Context) ([]model.CartItem, error) {
			return s.carts.ListByUser(ctx, userID)
		})

	if !s.gen.Matches(gen) {
		return
	}

	selection := make(map[string]struct{}, len(items))
	for _, item := range items {
		selection[item.ID] = struct{}{}
	}

	s.mu.Lock()
	s.items = items
	s.selection = selection
	s.pending = make(map[string]bool)
	s.loading = false
	s.mu.Unlock()
}

// Loading は読み込み中かどうかを返す。
func (s *Screen) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Items は現在のカート行を返す。
func (s *Screen) Items() []model.CartItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]model.CartItem, len(s.items))
	copy(items, s.items)
	return items
}

// Add は商品をカートに追加する。同一(商品, サイズ)の行が既存の場合は
// ゲートウェイのupsertにより上書きされる。
func (s *Screen) Add(ctx context.Context, productID string, quantity int, selectedSize string) error {
	if quantity < 1 {
		quantity = 1
	}

	s.mu.RLock()
	userID := s.userID
	s.mu.RUnlock()

	upserted, err := s.carts.Upsert(ctx, &model.CartItem{
		UserID:       userID,
		ProductID:    productID,
		Quantity:     quantity,
		SelectedSize: selectedSize,
	})
	if err != nil {
		s.recordMutationFailure("cart_add")
		return err
	}

	s.mu.Lock()
	replaced := false
	for i := range s.items {
		if s.items[i].ID == upserted.ID {
			s.items[i] = *upserted
			replaced = true
			break
		}
	}
	if !replaced {
		s.items = append(s.items, *upserted)
		s.selection[upserted.ID] = struct{}{}
	}
	s.mu.Unlock()

	s.triggerRefresh()
	return nil
}

// ChangeQuantity はカート行の数量を差分で変更する。
// 数量の下限は1であり、数量1の行への減算はゲートウェイを呼ばずに
// 何もしない（行の削除には明示的なRemoveを使う）。
// 確定後にローカルへ反映し、失敗時はローカル状態を変更しない。
func (s *Screen) ChangeQuantity(ctx context.Context, id string, delta int) error {
	s.mu.Lock()
	var current *model.CartItem
	for i := range s.items {
		if s.items[i].ID == id {
			current = &s.items[i]
			break
		}
	}
	if current == nil {
		s.mu.Unlock()
		return model.NewValidationError("id", "カートに存在しない行です")
	}
	next := current.Quantity + delta
	if next < 1 {
		next = 1
	}
	if next == current.Quantity {
		s.mu.Unlock()
		return nil
	}
	s.pending[id] = true
	s.mu.Unlock()

	updated, err := s.carts.UpdateQuantity(ctx, id, next)

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, id)
	if err != nil {
		s.recordMutationFailure("cart_change_quantity")
		return err
	}

	// 同一行への並行変更は直列化しない。後から確定した書き込みが勝つ。
	for i := range s.items {
		if s.items[i].ID == id {
			s.items[i].Quantity = updated.Quantity
			s.items[i].UpdatedAt = updated.UpdatedAt
			break
		}
	}
	return nil
}

// Remove はカート行を削除する。確定後、スナップショットと選択集合の
// 両方から同時に取り除く（選択集合が存在しない行を指す状態を作らない）。
func (s *Screen) Remove(ctx context.Context, id string) error {
	if err := s.carts.Delete(ctx, id); err != nil {
		s.recordMutationFailure("cart_remove")
		return err
	}

	s.mu.Lock()
	for i := range s.items {
		if s.items[i].ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			break
		}
	}
	delete(s.selection, id)
	delete(s.pending, id)
	s.mu.Unlock()

	s.triggerRefresh()
	return nil
}

// Select はカート行をチェックアウト候補に加える。
// スナップショットに存在しない行は選択できない。
func (s *Screen) Select(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == id {
			s.selection[id] = struct{}{}
			return
		}
	}
}

// Deselect はカート行をチェックアウト候補から外す。
func (s *Screen) Deselect(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.selection, id)
}

// SelectAll は全行をチェックアウト候補にする。
func (s *Screen) SelectAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range s.items {
		s.selection[item.ID] = struct{}{}
	}
}

// Selected は選択中のカート行を表示順で返す。
func (s *Screen) Selected() []model.CartItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	selected := make([]model.CartItem, 0, len(s.selection))
	for _, item := range s.items {
		if _, ok := s.selection[item.ID]; ok {
			selected = append(selected, item)
		}
	}
	return selected
}

// IsSelected は指定行が選択中かどうかを返す。
func (s *Screen) IsSelected(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.selection[id]
	return ok
}

// IsPending は指定行の変更が確定待ちかどうかを返す。
func (s *Screen) IsPending(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pending[id]
}

// Summarize は選択中アイテムの注文サマリーを計算する。
// 選択がない場合は小計0に送料のみが加算される。
func (s *Screen) Summarize() Summary {
	selected := s.Selected()
	var subtotal float64
	for i := range selected {
		subtotal += selected[i].LineTotal()
	}
	return Summary{
		Subtotal:    subtotal,
		ShippingFee: s.shippingFee,
		Total:       subtotal + s.shippingFee,
		ItemCount:   len(selected),
	}
}

// Checkout は選択中アイテムのチェックアウトを行うスタブ。
// 決済処理は実装されておらず、注文番号の採番と選択検証のみを行う。
// 選択が空の場合はValidationErrorを返す。
func (s *Screen) Checkout(ctx context.Context) (string, error) {
	selected := s.Selected()
	if len(selected) == 0 {
		return "", model.NewValidationError("selection", "チェックアウトする商品を選択してください")
	}

	orderNumber := fmt.Sprintf("ORD-%s", strings.ToUpper(uuid.NewString()[:8]))
	return orderNumber, nil
}

func (s *Screen) triggerRefresh() {
	if s.refresher != nil {
		s.refresher.Trigger()
	}
}

func (s *Screen) recordMutationFailure(op string) {
	if s.mc != nil {
		s.mc.RecordMutationFailure(op)
	}
}
