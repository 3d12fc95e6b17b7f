// Package security は商品コンテンツのセキュリティ機能を提供する。
package security

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/doyensec/safeurl"
)

// ImageURLValidator は商品画像・アバター画像URLの検証機能のインターフェース。
// 管理画面での商品保存前およびプロフィール保存前に使用される。
type ImageURLValidator interface {
	// ValidateURL は画像URLの安全性を検証する。
	// スキーム、ホスト、IPアドレスを静的に検証し、内部ネットワークや
	// メタデータIPを指すURLを拒否する。
	ValidateURL(rawURL string) error

	// NewSafeClient は外部画像の取り込み用にSSRF防止付きHTTPクライアントを生成する。
	// DNS解決後のIPアドレスもDialerレベルで検証される。
	NewSafeClient(timeout time.Duration) *http.Client
}

// allowedImageSchemes は画像URLで許可されるスキーム。
var allowedImageSchemes = []string{"http", "https"}

// blockedNetworks は画像URLとして拒否されるネットワーク範囲。
var blockedNetworks []net.IPNet

func init() {
	cidrs := []string{
		// プライベートIPアドレス (RFC 1918)
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		// ループバック (RFC 1122)
		"127.0.0.0/8",
		// リンクローカル (RFC 3927) - クラウドメタデータIP (169.254.169.254) を含む
		"169.254.0.0/16",
		// カレントネットワーク
		"0.0.0.0/8",
		// IPv6ループバック
		"::1/128",
		// IPv6リンクローカル
		"fe80::/10",
		// IPv6ユニークローカル
		"fc00::/7",
	}
	for _, cidr := range cidrs {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			panic(fmt.Sprintf("invalid CIDR in blockedNetworks: %s: %v", cidr, err))
		}
		blockedNetworks = append(blockedNetworks, *network)
	}
}

// imageURLValidator はImageURLValidatorの実装。
type imageURLValidator struct{}

// NewImageURLValidator はImageURLValidatorの新しいインスタンスを生成する。
func NewImageURLValidator() *imageURLValidator {
	return &imageURLValidator{}
}

// ValidateURL は画像URLの安全性を検証する。
// DNS解決を伴わない静的な検証のみを行う。DNS再バインディング攻撃は
// NewSafeClientが生成するクライアント側のDialer検証で防止される。
func (v *imageURLValidator) ValidateURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("画像URLが空です")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("画像URLを解釈できません: %w", err)
	}

	scheme := strings.ToLower(parsed.Scheme)
	if !isAllowedImageScheme(scheme) {
		return fmt.Errorf("許可されていないスキームです: %s (許可: %v)", scheme, allowedImageSchemes)
	}

	host := parsed.Hostname()
	if host == "" {
		return fmt.Errorf("ホストが空のURLです: %s", rawURL)
	}

	// ホストがIPアドレスリテラルの場合はブロック範囲を検証する
	if ip := net.ParseIP(host); ip != nil {
		if isBlockedIP(ip) {
			return fmt.Errorf("内部ネットワークを指す画像URLは使用できません: %s", host)
		}
	}

	return nil
}

// NewSafeClient は外部画像の取り込み用にSSRF防止付きHTTPクライアントを生成する。
func (v *imageURLValidator) NewSafeClient(timeout time.Duration) *http.Client {
	config := safeurl.GetConfigBuilder().
		SetTimeout(timeout).
		SetAllowedSchemes(allowedImageSchemes...).
		SetAllowedPorts(80, 443).
		Build()

	wrapped := safeurl.Client(config)
	return wrapped.Client
}

func isAllowedImageScheme(scheme string) bool {
	for _, s := range allowedImageSchemes {
		if scheme == s {
			return true
		}
	}
	return false
}

func isBlockedIP(ip net.IP) bool {
	for _, network := range blockedNetworks {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}
