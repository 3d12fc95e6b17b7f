package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/drinkscart/internal/model"
)

func TestRecoveryMiddleware_RecoversFromPanic(t *testing.T) {
	mw := NewRecoveryMiddleware()
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestCORSMiddleware_SetsHeadersAndHandlesPreflight(t *testing.T) {
	mw := NewCORSMiddleware("http://localhost:3000")
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Allow-Origin = %s", got)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/", nil))
	if rec.Code != http.StatusNoContent {
		t.Errorf("プリフライトのstatus = %d, want 204", rec.Code)
	}
}

func TestLoggingMiddleware_LogsMethodPathStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	mw := NewLoggingMiddleware(logger)
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/cart", nil))

	logged := buf.String()
	for _, want := range []string{`"method":"POST"`, `"path":"/api/cart"`, `"status":201`} {
		if !strings.Contains(logged, want) {
			t.Errorf("ログに %s が含まれない: %s", want, logged)
		}
	}
}

func TestWriteErrorResponse_MapsTaxonomyToStatus(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"検証エラー", model.NewValidationError("name", "商品名を入力してください"), http.StatusBadRequest, "VALIDATION_ERROR"},
		{"資格情報誤り", model.NewInvalidCredentialsError(), http.StatusUnauthorized, model.ErrCodeInvalidCredentials},
		{"セッション期限切れ", model.NewSessionExpiredError(), http.StatusUnauthorized, model.ErrCodeSessionExpired},
		{"期限超過", model.NewTimeoutError("orders", 0), http.StatusGatewayTimeout, "TIMEOUT"},
		{"未発見", model.NewRemoteError(model.ErrCodeNotFound, "missing"), http.StatusNotFound, model.ErrCodeNotFound},
		{"制約違反", model.NewRemoteError(model.ErrCodeConstraintViolated, "dup"), http.StatusConflict, model.ErrCodeConstraintViolated},
		{"バックエンド障害", model.NewRemoteError("", "down"), http.StatusBadGateway, model.ErrCodeRemoteUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteErrorResponse(rec, tt.err)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var body ErrorResponseBody
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("レスポンスのデコードに失敗した: %v", err)
			}
			if body.Code != tt.wantCode {
				t.Errorf("code = %s, want %s", body.Code, tt.wantCode)
			}
		})
	}
}

func TestWriteErrorResponse_ValidationErrorIncludesField(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteErrorResponse(rec, model.NewValidationError("price", "価格は0以上で入力してください"))

	var body ErrorResponseBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("レスポンスのデコードに失敗した: %v", err)
	}
	if body.Field != "price" {
		t.Errorf("field = %s, want price", body.Field)
	}
}
