// Package model はドメインモデルを定義する。
package model

import "time"

// Session は認証済みユーザーのセッションを表す。
// IsAdminはSessionGateが解決する（プロフィールのフラグ OR 管理者メール一致）。
type Session struct {
	SubjectID string
	Email     string
	IsAdmin   bool
	ExpiresAt time.Time
}

// Expired はセッションが期限切れかどうかを返す。
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// UserProfile はユーザーの拡張プロフィールを表す。
// Sessionの主体と1対1で対応する。明示的な保存操作でのみ更新される。
type UserProfile struct {
	ID        string
	FullName  string
	Email     string
	Phone     string
	Address   string
	Country   string
	AvatarURL string
	IsAdmin   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CurrentUser はセッションと（取得できた場合の）プロフィールを束ねた現在ユーザー。
// プロフィール取得がタイムアウトした場合、ProfileはnilでHasProfileはfalseになる。
type CurrentUser struct {
	Session    Session
	Profile    *UserProfile
	HasProfile bool
}

// SignUpProfile はサインアップ時に登録するプロフィール項目。
type SignUpProfile struct {
	Username string
	Phone    string
	Address  string
	Country  string
}

// ProfileUpdate はプロフィール保存で更新されるフィールド。
// Emailは認証基盤が所有するため、ここからは変更できない。
type ProfileUpdate struct {
	FullName string
	Phone    string
	Address  string
	Country  string
}
