// Package model はドメインモデルを定義する。
package model

import "time"

// CartItem はカート内の1行を表す。
// (user, product, selected_size) の組み合わせごとに最大1件。
// 一意性はゲートウェイのupsert-on-conflictでストレージ境界にて保証される。
type CartItem struct {
	ID           string
	UserID       string
	ProductID    string
	Quantity     int
	SelectedSize string
	Product      *Product // ゲートウェイの結合取得で解決される
	UpdatedAt    time.Time
}

// LineTotal はこの行の小計（単価 × 数量）を返す。
// 商品情報が未解決の場合は0を返す。
func (c *CartItem) LineTotal() float64 {
	if c.Product == nil {
		return 0
	}
	return c.Product.Price * float64(c.Quantity)
}
