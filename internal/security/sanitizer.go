package security

import (
	"github.com/microcosm-cc/bluemonday"
)

// DescriptionSanitizer は商品説明文のサニタイズ機能のインターフェース。
// 管理画面での商品保存前に使用され、XSSを持ち込み得るマークアップを除去する。
type DescriptionSanitizer interface {
	// Sanitize は商品説明文をサニタイズして安全なHTMLを返す。
	// 基本的な整形タグ（p, br, ul, ol, li, strong, em）のみを通過させ、
	// script, iframe, styleタグおよびon*イベント属性を除去する。
	// 空文字列の入力には空文字列を返す。同一入力に対して常に同一出力を返す。
	Sanitize(description string) string
}

// descriptionSanitizer はDescriptionSanitizerの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type descriptionSanitizer struct {
	policy *bluemonday.Policy
}

// NewDescriptionSanitizer はDescriptionSanitizerの新しいインスタンスを生成する。
// 商品説明文は整形タグのみを想定しており、リンクや画像は許可しない。
// 画像は商品のImagesフィールドで別管理されるため説明文には埋め込ませない。
func NewDescriptionSanitizer() *descriptionSanitizer {
	p := bluemonday.NewPolicy()
	p.AllowElements(
		"p", "br", "ul", "ol", "li",
		"strong", "em",
	)
	return &descriptionSanitizer{
		policy: p,
	}
}

// Sanitize は商品説明文をサニタイズして安全なHTMLを返す。
func (s *descriptionSanitizer) Sanitize(description string) string {
	return s.policy.Sanitize(description)
}
