// Package config はアプリケーション設定の読み込みを提供する。
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Backend（ホスト型バックエンドサービス）
	BackendURL     string
	BackendAnonKey string

	// Auth
	AdminEmail string

	// 期限（読み取り操作ごとの固定値）
	SessionCheckTimeout  time.Duration // セッション存在確認
	ProfileFetchTimeout  time.Duration // SessionGateのプロフィール取得
	SignInProfileTimeout time.Duration // サインイン直後のプロフィール取得
	ShopLoadTimeout      time.Duration // ストア画面のジョイント期限
	CartLoadTimeout      time.Duration // カート画面の初期ロード
	OrderHistoryTimeout  time.Duration // アカウント画面の注文履歴取得
	StatsOrdersTimeout   time.Duration // 統計用注文集計
	StatsCustomersTimeout time.Duration // 統計用顧客数カウント
	AdminLoadTimeout     time.Duration // 管理画面のジョイント期限
	FallbackWindow       time.Duration // 縮退表示切り替えまでの待機窓

	// Cart
	ShippingFee float64

	// Badge（カート件数ポーリング）
	BadgePollInterval time.Duration

	// Gateway
	GatewayRequestTimeout time.Duration
	GatewayRatePerSec     float64
	GatewayBurst          int

	// Server
	ServerPort        string
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// カレントディレクトリに.envがあれば先に読み込む（なければ無視）。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.BackendURL = os.Getenv("BACKEND_URL")
	if cfg.BackendURL == "" {
		missing = append(missing, "BACKEND_URL")
	}

	cfg.BackendAnonKey = os.Getenv("BACKEND_ANON_KEY")
	if cfg.BackendAnonKey == "" {
		missing = append(missing, "BACKEND_ANON_KEY")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.AdminEmail = getEnvString("ADMIN_EMAIL", "admin@gmail.com")
	cfg.SessionCheckTimeout = getEnvDuration("SESSION_CHECK_TIMEOUT", 2*time.Second)
	cfg.ProfileFetchTimeout = getEnvDuration("PROFILE_FETCH_TIMEOUT", 1500*time.Millisecond)
	cfg.SignInProfileTimeout = getEnvDuration("SIGNIN_PROFILE_TIMEOUT", 3*time.Second)
	cfg.ShopLoadTimeout = getEnvDuration("SHOP_LOAD_TIMEOUT", 8*time.Second)
	cfg.CartLoadTimeout = getEnvDuration("CART_LOAD_TIMEOUT", 5*time.Second)
	cfg.OrderHistoryTimeout = getEnvDuration("ORDER_HISTORY_TIMEOUT", 5*time.Second)
	cfg.StatsOrdersTimeout = getEnvDuration("STATS_ORDERS_TIMEOUT", 3*time.Second)
	cfg.StatsCustomersTimeout = getEnvDuration("STATS_CUSTOMERS_TIMEOUT", 2*time.Second)
	cfg.AdminLoadTimeout = getEnvDuration("ADMIN_LOAD_TIMEOUT", 10*time.Second)
	cfg.FallbackWindow = getEnvDuration("FALLBACK_WINDOW", 8*time.Second)
	cfg.ShippingFee = getEnvFloat("SHIPPING_FEE", 50)
	cfg.BadgePollInterval = getEnvDuration("BADGE_POLL_INTERVAL", 1*time.Minute)
	cfg.GatewayRequestTimeout = getEnvDuration("GATEWAY_REQUEST_TIMEOUT", 10*time.Second)
	cfg.GatewayRatePerSec = getEnvFloat("GATEWAY_RATE_PER_SEC", 20)
	cfg.GatewayBurst = getEnvInt("GATEWAY_BURST", 40)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvFloat(key string, defaultVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
