// Package model はドメインモデルを定義する。
package model

import "time"

// OrderStatus は注文の状態を表す。
type OrderStatus string

const (
	// OrderStatusPending は注文受付済み・未処理の状態。
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusProcessing は処理中の状態。
	OrderStatusProcessing OrderStatus = "processing"
	// OrderStatusShipped は発送済みの状態。
	OrderStatusShipped OrderStatus = "shipped"
	// OrderStatusDelivered は配達完了の状態。
	OrderStatusDelivered OrderStatus = "delivered"
	// OrderStatusCancelled はキャンセル済みの状態。
	OrderStatusCancelled OrderStatus = "cancelled"
)

// ValidOrderStatus はステータス値がenumのメンバーかどうかを返す。
// 状態遷移の妥当性は検証しない（任意の状態から任意の状態へ変更可能）。
func ValidOrderStatus(s OrderStatus) bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// Order は注文を表す。ステータス変更は管理者のみが行う。
type Order struct {
	ID             string
	OrderNumber    string
	UserID         string
	Items          []OrderItem
	TotalAmount    float64
	Status         OrderStatus
	TrackingNumber string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// OrderItem は注文内の1商品行を表す。
type OrderItem struct {
	ID           string
	OrderID      string
	ProductID    string
	ProductName  string
	Quantity     int
	Price        float64
	SelectedSize string
}

// DashboardStats は管理ダッシュボードの集計値。
// 派生データであり永続化されない。画面のライフタイムを超えてキャッシュしない。
type DashboardStats struct {
	TotalSalesFormatted string // 配達完了注文の合計金額（"P%.2f"形式）
	TotalOrders         int
	TotalCustomers      int
}
