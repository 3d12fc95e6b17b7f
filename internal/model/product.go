// Package model はドメインモデルを定義する。
package model

import "time"

// Product は商品を表す。
// BrandName/CategoryNameはゲートウェイの結合取得で解決された表示名。
type Product struct {
	ID           string
	Name         string
	Description  string
	Price        float64
	Stock        int
	Sizes        []string
	Images       []string
	BrandID      string
	BrandName    string
	CategoryID   string
	CategoryName string
	Featured     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Brand は商品ブランドを表す。
type Brand struct {
	ID   string
	Name string
}

// Category は商品カテゴリを表す。
type Category struct {
	ID   string
	Name string
}

// ProductFilter は商品一覧の絞り込み条件。
// ゼロ値のフィールドは制約を課さない。
type ProductFilter struct {
	CategoryID string // 完全一致
	BrandID    string // 完全一致
	Search     string // 商品名への大文字小文字無視の部分一致
	Featured   bool   // trueの場合、注目商品のみ
}

// Empty はフィルタが何の制約も課さないかどうかを返す。
func (f ProductFilter) Empty() bool {
	return f.CategoryID == "" && f.BrandID == "" && f.Search == "" && !f.Featured
}
