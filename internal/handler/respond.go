// Package handler はプレゼンテーション層へのHTTP APIを提供する。
//
// 画面のビューステートはリクエストごとに生成される（ナビゲーションごとに
// 作り直されるスナップショットに対応する）。ハンドラーは薄く、状態管理は
// screenパッケージ群が担う。
package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/hitoshi/drinkscart/internal/model"
)

func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}

// productDTO は商品のAPI表現。
type productDTO struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Price        float64   `json:"price"`
	Stock        int       `json:"stock"`
	Sizes        []string  `json:"sizes"`
	Images       []string  `json:"images"`
	BrandID      string    `json:"brand_id"`
	BrandName    string    `json:"brand_name"`
	CategoryID   string    `json:"category_id"`
	CategoryName string    `json:"category_name"`
	Featured     bool      `json:"featured"`
	CreatedAt    time.Time `json:"created_at"`
}

func toProductDTO(p model.Product) productDTO {
	return productDTO{
		ID:           p.ID,
		Name:         p.Name,
		Description:  p.Description,
		Price:        p.Price,
		Stock:        p.Stock,
		Sizes:        p.Sizes,
		Images:       p.Images,
		BrandID:      p.BrandID,
		BrandName:    p.BrandName,
		CategoryID:   p.CategoryID,
		CategoryName: p.CategoryName,
		Featured:     p.Featured,
		CreatedAt:    p.CreatedAt,
	}
}

func toProductDTOs(products []model.Product) []productDTO {
	out := make([]productDTO, 0, len(products))
	for _, p := range products {
		out = append(out, toProductDTO(p))
	}
	return out
}

// brandDTO はブランドのAPI表現。
type brandDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func toBrandDTOs(brands []model.Brand) []brandDTO {
	out := make([]brandDTO, 0, len(brands))
	for _, b := range brands {
		out = append(out, brandDTO{ID: b.ID, Name: b.Name})
	}
	return out
}

// categoryDTO はカテゴリのAPI表現。
type categoryDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func toCategoryDTOs(categories []model.Category) []categoryDTO {
	out := make([]categoryDTO, 0, len(categories))
	for _, c := range categories {
		out = append(out, categoryDTO{ID: c.ID, Name: c.Name})
	}
	return out
}

// cartItemDTO はカート行のAPI表現。
type cartItemDTO struct {
	ID           string      `json:"id"`
	ProductID    string      `json:"product_id"`
	Quantity     int         `json:"quantity"`
	SelectedSize string      `json:"selected_size,omitempty"`
	Selected     bool        `json:"selected"`
	Pending      bool        `json:"pending"`
	LineTotal    float64     `json:"line_total"`
	Product      *productDTO `json:"product,omitempty"`
}

// orderItemDTO は注文明細のAPI表現。
type orderItemDTO struct {
	ID           string  `json:"id"`
	ProductID    string  `json:"product_id"`
	ProductName  string  `json:"product_name"`
	Quantity     int     `json:"quantity"`
	Price        float64 `json:"price"`
	SelectedSize string  `json:"selected_size,omitempty"`
}

// orderDTO は注文のAPI表現。
type orderDTO struct {
	ID             string         `json:"id"`
	OrderNumber    string         `json:"order_number"`
	TotalAmount    float64        `json:"total_amount"`
	Status         string         `json:"status"`
	TrackingNumber string         `json:"tracking_number,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	Items          []orderItemDTO `json:"items,omitempty"`
}

func toOrderDTO(o model.Order) orderDTO {
	dto := orderDTO{
		ID:             o.ID,
		OrderNumber:    o.OrderNumber,
		TotalAmount:    o.TotalAmount,
		Status:         string(o.Status),
		TrackingNumber: o.TrackingNumber,
		CreatedAt:      o.CreatedAt,
	}
	for _, it := range o.Items {
		dto.Items = append(dto.Items, orderItemDTO{
			ID:           it.ID,
			ProductID:    it.ProductID,
			ProductName:  it.ProductName,
			Quantity:     it.Quantity,
			Price:        it.Price,
			SelectedSize: it.SelectedSize,
		})
	}
	return dto
}

func toOrderDTOs(orders []model.Order) []orderDTO {
	out := make([]orderDTO, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderDTO(o))
	}
	return out
}

// profileDTO はプロフィールのAPI表現。
type profileDTO struct {
	ID        string `json:"id"`
	FullName  string `json:"full_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
	Address   string `json:"address,omitempty"`
	Country   string `json:"country,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
	IsAdmin   bool   `json:"is_admin"`
}

func toProfileDTO(p *model.UserProfile) *profileDTO {
	if p == nil {
		return nil
	}
	return &profileDTO{
		ID:        p.ID,
		FullName:  p.FullName,
		Email:     p.Email,
		Phone:     p.Phone,
		Address:   p.Address,
		Country:   p.Country,
		AvatarURL: p.AvatarURL,
		IsAdmin:   p.IsAdmin,
	}
}

// currentUserDTO は認証済みユーザーのAPI表現。
type currentUserDTO struct {
	SubjectID  string      `json:"subject_id"`
	Email      string      `json:"email"`
	IsAdmin    bool        `json:"is_admin"`
	HasProfile bool        `json:"has_profile"`
	Profile    *profileDTO `json:"profile,omitempty"`
}

func toCurrentUserDTO(u *model.CurrentUser) *currentUserDTO {
	if u == nil {
		return nil
	}
	return &currentUserDTO{
		SubjectID:  u.Session.SubjectID,
		Email:      u.Session.Email,
		IsAdmin:    u.Session.IsAdmin,
		HasProfile: u.HasProfile,
		Profile:    toProfileDTO(u.Profile),
	}
}
