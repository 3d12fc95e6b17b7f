// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
	"time"
)

// AuthError は認証の失敗を表す。
// 資格情報の誤り、セッション期限切れなどが該当する。
type AuthError struct {
	Code    string
	Message string
}

// Error はerrorインターフェースを実装する。
func (e *AuthError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// RemoteError は外部バックエンドの呼び出し失敗を表す。
// トランスポート障害・制約違反など。空の結果は正常でありエラーではない。
type RemoteError struct {
	Code    string
	Message string
}

// Error はerrorインターフェースを実装する。
func (e *RemoteError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// TimeoutError は期限超過を表す合成エラー。
// トランスポートではなく期限付きローダーが生成する。
type TimeoutError struct {
	Op       string
	Deadline time.Duration
}

// Error はerrorインターフェースを実装する。
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: %v以内に完了しませんでした", e.Op, e.Deadline)
}

// ValidationError は書き込み前にクライアント側で検出した入力不備を表す。
// ゲートウェイには送信されず、フォームのインラインエラーとして表示される。
type ValidationError struct {
	Field   string
	Message string
}

// Error はerrorインターフェースを実装する。
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeSessionExpired     = "SESSION_EXPIRED"
	ErrCodeNoSession          = "NO_SESSION"
	ErrCodeRemoteUnavailable  = "REMOTE_UNAVAILABLE"
	ErrCodeConstraintViolated = "CONSTRAINT_VIOLATED"
	ErrCodeNotFound           = "NOT_FOUND"
)

// NewInvalidCredentialsError は資格情報誤りのエラーを生成する。
func NewInvalidCredentialsError() *AuthError {
	return &AuthError{
		Code:    ErrCodeInvalidCredentials,
		Message: "メールアドレスまたはパスワードが正しくありません。",
	}
}

// NewSessionExpiredError はセッション期限切れのエラーを生成する。
func NewSessionExpiredError() *AuthError {
	return &AuthError{
		Code:    ErrCodeSessionExpired,
		Message: "セッションの有効期限が切れました。ログインし直してください。",
	}
}

// NewRemoteError は外部バックエンド障害のエラーを生成する。
func NewRemoteError(code, message string) *RemoteError {
	if code == "" {
		code = ErrCodeRemoteUnavailable
	}
	return &RemoteError{Code: code, Message: message}
}

// NewTimeoutError は期限超過エラーを生成する。
func NewTimeoutError(op string, deadline time.Duration) *TimeoutError {
	return &TimeoutError{Op: op, Deadline: deadline}
}

// NewValidationError は入力検証エラーを生成する。
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// IsAuthError はエラーがAuthErrorかどうかを返す。
func IsAuthError(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

// IsTimeout はエラーがTimeoutErrorかどうかを返す。
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// IsValidationError はエラーがValidationErrorかどうかを返す。
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
