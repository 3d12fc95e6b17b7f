package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/drinkscart/internal/model"
)

func newTestClient(serverURL string) *Client {
	return NewClient(ClientConfig{
		BaseURL: serverURL,
		AnonKey: "test-anon-key",
	})
}

func TestAuthGateway_SignIn_Success(t *testing.T) {
	var gotAuthz string
	r := chi.NewRouter()
	r.Post("/auth/v1/token", func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Query().Get("grant_type") != "password" {
			t.Errorf("grant_type = %s, want password", req.URL.Query().Get("grant_type"))
		}
		var body map[string]string
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			t.Fatalf("リクエストボディのデコードに失敗した: %v", err)
		}
		if body["email"] != "user@example.com" {
			t.Errorf("email = %s, want user@example.com", body["email"])
		}
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "jwt-token",
			"expires_in":   3600,
			"user": map[string]string{
				"id":    "user-1",
				"email": "user@example.com",
			},
		})
	})
	r.Get("/auth/v1/user", func(w http.ResponseWriter, req *http.Request) {
		gotAuthz = req.Header.Get("Authorization")
		json.NewEncoder(w).Encode(map[string]string{"id": "user-1", "email": "user@example.com"})
	})
	server := httptest.NewServer(r)
	defer server.Close()

	c := newTestClient(server.URL)
	g := NewAuthGateway(c)

	session, err := g.SignIn(context.Background(), "user@example.com", "password123")
	if err != nil {
		t.Fatalf("SignIn がエラーを返した: %v", err)
	}
	if session.SubjectID != "user-1" {
		t.Errorf("SubjectID = %s, want user-1", session.SubjectID)
	}
	if session.Email != "user@example.com" {
		t.Errorf("Email = %s, want user@example.com", session.Email)
	}

	// サインイン後のリクエストは取得したトークンを使う
	if _, err := g.Session(context.Background()); err != nil {
		t.Fatalf("Session がエラーを返した: %v", err)
	}
	if gotAuthz != "Bearer jwt-token" {
		t.Errorf("Authorization = %s, want Bearer jwt-token", gotAuthz)
	}
}

func TestAuthGateway_SignIn_InvalidCredentials(t *testing.T) {
	r := chi.NewRouter()
	r.Post("/auth/v1/token", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{
			"error":             "invalid_grant",
			"error_description": "Invalid login credentials",
		})
	})
	server := httptest.NewServer(r)
	defer server.Close()

	g := NewAuthGateway(newTestClient(server.URL))

	_, err := g.SignIn(context.Background(), "user@example.com", "wrong")
	if err == nil {
		t.Fatal("資格情報誤りでエラーが返らなかった")
	}
	var ae *model.AuthError
	if !errors.As(err, &ae) {
		t.Fatalf("エラー型 = %T, want *model.AuthError", err)
	}
	if ae.Code != model.ErrCodeInvalidCredentials {
		t.Errorf("Code = %s, want %s", ae.Code, model.ErrCodeInvalidCredentials)
	}
}

func TestAuthGateway_SignOut_ClearsLocalStateEvenOnRemoteFailure(t *testing.T) {
	r := chi.NewRouter()
	r.Post("/auth/v1/logout", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	server := httptest.NewServer(r)
	defer server.Close()

	c := newTestClient(server.URL)
	c.SetToken("jwt-token")
	g := NewAuthGateway(c)

	if err := g.SignOut(context.Background()); err == nil {
		t.Error("リモート障害時に SignOut がエラーを返さなかった")
	}
	if c.HasToken() {
		t.Error("リモート障害後もローカルトークンが残っている")
	}
	session, err := g.Session(context.Background())
	if err != nil {
		t.Fatalf("Session がエラーを返した: %v", err)
	}
	if session != nil {
		t.Error("サインアウト後もセッションが残っている")
	}
}

func TestAuthGateway_OnSessionChange_NotifiesAndUnsubscribes(t *testing.T) {
	r := chi.NewRouter()
	r.Post("/auth/v1/token", func(w http.ResponseWriter, req *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "jwt-token",
			"expires_in":   3600,
			"user":         map[string]string{"id": "user-1", "email": "user@example.com"},
		})
	})
	r.Post("/auth/v1/logout", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	server := httptest.NewServer(r)
	defer server.Close()

	g := NewAuthGateway(newTestClient(server.URL))

	var notifications []*model.Session
	unsubscribe := g.OnSessionChange(func(s *model.Session) {
		notifications = append(notifications, s)
	})

	if _, err := g.SignIn(context.Background(), "user@example.com", "password123"); err != nil {
		t.Fatalf("SignIn がエラーを返した: %v", err)
	}
	if len(notifications) != 1 || notifications[0] == nil {
		t.Fatalf("サインイン通知が届いていない: %v", notifications)
	}

	if err := g.SignOut(context.Background()); err != nil {
		t.Fatalf("SignOut がエラーを返した: %v", err)
	}
	if len(notifications) != 2 || notifications[1] != nil {
		t.Fatalf("サインアウト通知が届いていない: %v", notifications)
	}

	unsubscribe()
	if _, err := g.SignIn(context.Background(), "user@example.com", "password123"); err != nil {
		t.Fatalf("SignIn がエラーを返した: %v", err)
	}
	if len(notifications) != 2 {
		t.Errorf("購読解除後も通知が届いた: 通知数 = %d, want 2", len(notifications))
	}
}

func TestProductGateway_List_ResolvesJoinedNames(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/rest/v1/products", func(w http.ResponseWriter, req *http.Request) {
		q := req.URL.Query()
		if q.Get("order") != "created_at.desc" {
			t.Errorf("order = %s, want created_at.desc", q.Get("order"))
		}
		if q.Get("brand_id") != "eq.brand-yeti" {
			t.Errorf("brand_id = %s, want eq.brand-yeti", q.Get("brand_id"))
		}
		json.NewEncoder(w).Encode([]map[string]any{
			{
				"id":         "p-1",
				"name":       "Yeti Tumbler",
				"price":      150.0,
				"stock":      12,
				"brand_id":   "brand-yeti",
				"brands":     map[string]string{"name": "Yeti"},
				"categories": map[string]string{"name": "Outdoor"},
			},
		})
	})
	server := httptest.NewServer(r)
	defer server.Close()

	g := NewProductGateway(newTestClient(server.URL))

	products, err := g.List(context.Background(), model.ProductFilter{BrandID: "brand-yeti"})
	if err != nil {
		t.Fatalf("List がエラーを返した: %v", err)
	}
	if len(products) != 1 {
		t.Fatalf("商品数 = %d, want 1", len(products))
	}
	if products[0].BrandName != "Yeti" {
		t.Errorf("BrandName = %s, want Yeti", products[0].BrandName)
	}
	if products[0].CategoryName != "Outdoor" {
		t.Errorf("CategoryName = %s, want Outdoor", products[0].CategoryName)
	}
}

func TestProductGateway_Get_NotFoundReturnsNil(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/rest/v1/products", func(w http.ResponseWriter, req *http.Request) {
		json.NewEncoder(w).Encode([]map[string]any{})
	})
	server := httptest.NewServer(r)
	defer server.Close()

	g := NewProductGateway(newTestClient(server.URL))

	p, err := g.Get(context.Background(), "missing")
	if err != nil {
		t.Fatalf("Get がエラーを返した: %v", err)
	}
	if p != nil {
		t.Errorf("存在しない商品で nil 以外が返った: %+v", p)
	}
}

func TestCartGateway_Upsert_SendsOnConflictKey(t *testing.T) {
	r := chi.NewRouter()
	r.Post("/rest/v1/cart_items", func(w http.ResponseWriter, req *http.Request) {
		if got := req.URL.Query().Get("on_conflict"); got != "user_id,product_id,selected_size" {
			t.Errorf("on_conflict = %s, want user_id,product_id,selected_size", got)
		}
		if prefer := req.Header.Get("Prefer"); prefer != "resolution=merge-duplicates,return=representation" {
			t.Errorf("Prefer = %s", prefer)
		}
		var body map[string]any
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			t.Fatalf("リクエストボディのデコードに失敗した: %v", err)
		}
		json.NewEncoder(w).Encode([]map[string]any{
			{
				"id":            "cart-1",
				"user_id":       body["user_id"],
				"product_id":    body["product_id"],
				"quantity":      body["quantity"],
				"selected_size": body["selected_size"],
			},
		})
	})
	server := httptest.NewServer(r)
	defer server.Close()

	g := NewCartGateway(newTestClient(server.URL))

	item, err := g.Upsert(context.Background(), &model.CartItem{
		UserID:       "user-1",
		ProductID:    "p-1",
		Quantity:     2,
		SelectedSize: "500ml",
	})
	if err != nil {
		t.Fatalf("Upsert がエラーを返した: %v", err)
	}
	if item.ID != "cart-1" {
		t.Errorf("ID = %s, want cart-1", item.ID)
	}
	if item.Quantity != 2 {
		t.Errorf("Quantity = %d, want 2", item.Quantity)
	}
}

func TestCartGateway_CountByUser_ParsesContentRange(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/rest/v1/cart_items", func(w http.ResponseWriter, req *http.Request) {
		if prefer := req.Header.Get("Prefer"); prefer != "count=exact" {
			t.Errorf("Prefer = %s, want count=exact", prefer)
		}
		w.Header().Set("Content-Range", "0-0/7")
		json.NewEncoder(w).Encode([]map[string]any{{"id": "cart-1"}})
	})
	server := httptest.NewServer(r)
	defer server.Close()

	g := NewCartGateway(newTestClient(server.URL))

	n, err := g.CountByUser(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("CountByUser がエラーを返した: %v", err)
	}
	if n != 7 {
		t.Errorf("件数 = %d, want 7", n)
	}
}

func TestOrderGateway_UpdateStatus(t *testing.T) {
	r := chi.NewRouter()
	r.Patch("/rest/v1/orders", func(w http.ResponseWriter, req *http.Request) {
		if got := req.URL.Query().Get("id"); got != "eq.order-1" {
			t.Errorf("id = %s, want eq.order-1", got)
		}
		var body map[string]any
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			t.Fatalf("リクエストボディのデコードに失敗した: %v", err)
		}
		if body["status"] != "shipped" {
			t.Errorf("status = %v, want shipped", body["status"])
		}
		json.NewEncoder(w).Encode([]map[string]any{
			{"id": "order-1", "status": "shipped", "total_amount": 250.0},
		})
	})
	server := httptest.NewServer(r)
	defer server.Close()

	g := NewOrderGateway(newTestClient(server.URL))

	o, err := g.UpdateStatus(context.Background(), "order-1", model.OrderStatusShipped)
	if err != nil {
		t.Fatalf("UpdateStatus がエラーを返した: %v", err)
	}
	if o.Status != model.OrderStatusShipped {
		t.Errorf("Status = %s, want shipped", o.Status)
	}
}

func TestProfileGateway_Find_NotFoundReturnsNil(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/rest/v1/users", func(w http.ResponseWriter, req *http.Request) {
		json.NewEncoder(w).Encode([]map[string]any{})
	})
	server := httptest.NewServer(r)
	defer server.Close()

	g := NewProfileGateway(newTestClient(server.URL))

	p, err := g.Find(context.Background(), "missing")
	if err != nil {
		t.Fatalf("Find がエラーを返した: %v", err)
	}
	if p != nil {
		t.Errorf("存在しないプロフィールで nil 以外が返った: %+v", p)
	}
}

func TestStorageGateway_PublicURL(t *testing.T) {
	c := newTestClient("https://backend.example.com")
	g := NewStorageGateway(c)

	got := g.PublicURL("product-images", "p-1/main.png")
	want := "https://backend.example.com/storage/v1/object/public/product-images/p-1/main.png"
	if got != want {
		t.Errorf("PublicURL = %s, want %s", got, want)
	}
}

func TestToRemoteError_ConstraintViolation(t *testing.T) {
	err := toRemoteError(&StatusError{Status: http.StatusConflict, Code: "23505", Message: "duplicate key"})
	var re *model.RemoteError
	if !errors.As(err, &re) {
		t.Fatalf("エラー型 = %T, want *model.RemoteError", err)
	}
	if re.Code != model.ErrCodeConstraintViolated {
		t.Errorf("Code = %s, want %s", re.Code, model.ErrCodeConstraintViolated)
	}
}

func TestClient_NetworkFailureReturnsRemoteError(t *testing.T) {
	// 接続先のないアドレス
	g := NewProductGateway(newTestClient("http://127.0.0.1:1"))

	_, err := g.List(context.Background(), model.ProductFilter{})
	if err == nil {
		t.Fatal("接続失敗でエラーが返らなかった")
	}
	var re *model.RemoteError
	if !errors.As(err, &re) {
		t.Fatalf("エラー型 = %T, want *model.RemoteError", err)
	}
	if re.Code != model.ErrCodeRemoteUnavailable {
		t.Errorf("Code = %s, want %s", re.Code, model.ErrCodeRemoteUnavailable)
	}
}
