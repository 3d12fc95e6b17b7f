package middleware

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/drinkscart/internal/model"
)

// ErrorResponseBody はAPIエラーレスポンスの統一フォーマット。
type ErrorResponseBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// WriteErrorResponse はドメインエラーをHTTPステータスと統一フォーマットへ
// 写像して書き込む。
//
//   - ValidationError -> 400（フィールド名付きのインラインエラー）
//   - AuthError       -> 401
//   - TimeoutError    -> 504
//   - RemoteError     -> コードに応じて 404 / 409 / 502
//
// 未知のエラーは詳細をログのみに記録し、500の一般メッセージを返す。
func WriteErrorResponse(w http.ResponseWriter, err error) {
	var ve *model.ValidationError
	if errors.As(err, &ve) {
		writeJSONError(w, http.StatusBadRequest, ErrorResponseBody{
			Code:    "VALIDATION_ERROR",
			Message: ve.Message,
			Field:   ve.Field,
		})
		return
	}

	var ae *model.AuthError
	if errors.As(err, &ae) {
		writeJSONError(w, http.StatusUnauthorized, ErrorResponseBody{
			Code:    ae.Code,
			Message: ae.Message,
		})
		return
	}

	var te *model.TimeoutError
	if errors.As(err, &te) {
		writeJSONError(w, http.StatusGatewayTimeout, ErrorResponseBody{
			Code:    "TIMEOUT",
			Message: te.Error(),
		})
		return
	}

	var re *model.RemoteError
	if errors.As(err, &re) {
		status := http.StatusBadGateway
		switch re.Code {
		case model.ErrCodeNotFound:
			status = http.StatusNotFound
		case model.ErrCodeConstraintViolated:
			status = http.StatusConflict
		}
		writeJSONError(w, status, ErrorResponseBody{
			Code:    re.Code,
			Message: re.Message,
		})
		return
	}

	slog.Error("unhandled error",
		slog.String("error", err.Error()),
	)
	writeJSONError(w, http.StatusInternalServerError, ErrorResponseBody{
		Code:    "INTERNAL_ERROR",
		Message: "内部エラーが発生しました。しばらく待ってから再度お試しください。",
	})
}

func writeJSONError(w http.ResponseWriter, statusCode int, body ErrorResponseBody) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}
