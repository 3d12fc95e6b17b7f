// Package app はアプリケーションの起動と依存関係のワイヤリングを行う。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/drinkscart/internal/badge"
	"github.com/hitoshi/drinkscart/internal/config"
	"github.com/hitoshi/drinkscart/internal/fallback"
	"github.com/hitoshi/drinkscart/internal/gateway"
	"github.com/hitoshi/drinkscart/internal/handler"
	"github.com/hitoshi/drinkscart/internal/logger"
	"github.com/hitoshi/drinkscart/internal/metrics"
	"github.com/hitoshi/drinkscart/internal/screen/account"
	"github.com/hitoshi/drinkscart/internal/screen/admin"
	"github.com/hitoshi/drinkscart/internal/screen/cart"
	"github.com/hitoshi/drinkscart/internal/screen/shop"
	"github.com/hitoshi/drinkscart/internal/security"
	"github.com/hitoshi/drinkscart/internal/session"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("backend_url", cfg.BackendURL),
	)

	return runServe(cfg)
}

// runServe はAPIサーバーモードで起動する。
// バックエンドゲートウェイと全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. メトリクス
	registry := prometheus.NewRegistry()
	mc := metrics.NewCollector(registry)

	// 2. バックエンドゲートウェイ
	client := gateway.NewClient(gateway.ClientConfig{
		BaseURL:        cfg.BackendURL,
		AnonKey:        cfg.BackendAnonKey,
		RequestTimeout: cfg.GatewayRequestTimeout,
		RatePerSec:     cfg.GatewayRatePerSec,
		Burst:          cfg.GatewayBurst,
		Metrics:        mc,
	})
	authGw := gateway.NewAuthGateway(client)
	productGw := gateway.NewProductGateway(client)
	cartGw := gateway.NewCartGateway(client)
	orderGw := gateway.NewOrderGateway(client)
	profileGw := gateway.NewProfileGateway(client)
	storageGw := gateway.NewStorageGateway(client)

	// 3. セキュリティサービス
	imageValidator := security.NewImageURLValidator()
	sanitizer := security.NewDescriptionSanitizer()

	// 4. 認証ゲート
	gate := session.NewGate(authGw, profileGw, session.Config{
		AdminEmail:           cfg.AdminEmail,
		SessionCheckTimeout:  cfg.SessionCheckTimeout,
		ProfileFetchTimeout:  cfg.ProfileFetchTimeout,
		SignInProfileTimeout: cfg.SignInProfileTimeout,
	}, mc)

	// 5. カート件数ポーラーと縮退監視
	poller := badge.NewPoller(cartGw, gate, slog.Default())
	supervisor := fallback.NewSupervisor(cfg.FallbackWindow)

	// バックグラウンド処理のライフサイクル
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go poller.Start(ctx, cfg.BadgePollInterval)

	// 6. ルーターの構築
	deps := &handler.RouterDeps{
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		Logger:            slog.Default(),

		Gate: gate,

		Products: productGw,
		NewShopScreen: func() *shop.Screen {
			return shop.NewScreen(productGw, cfg.ShopLoadTimeout, mc)
		},
		NewCartScreen: func() *cart.Screen {
			return cart.NewScreen(cartGw, poller, cfg.ShippingFee, cfg.CartLoadTimeout, mc)
		},
		NewAccountScreen: func() *account.Screen {
			return account.NewScreen(profileGw, orderGw, account.Config{
				ProfileTimeout: cfg.ProfileFetchTimeout,
				OrdersTimeout:  cfg.OrderHistoryTimeout,
			}, mc)
		},
		NewAdminScreen: func() *admin.Screen {
			return admin.NewScreen(productGw, orderGw, profileGw, imageValidator, sanitizer, admin.Config{
				JointDeadline:         cfg.AdminLoadTimeout,
				StatsOrdersTimeout:    cfg.StatsOrdersTimeout,
				StatsCustomersTimeout: cfg.StatsCustomersTimeout,
			}, mc)
		},

		BadgePoller: poller,
		Supervisor:  supervisor,
		Storage:     storageGw,
		Gatherer:    registry,
	}

	router := handler.NewRouter(deps)

	// 7. 初期状態の解決と縮退監視の開始
	// セッション確認は期限付きのため、起動をブロックし続けることはない
	supervisor.Start()
	gate.Start(ctx)
	supervisor.MarkReady()
	defer gate.Stop()

	// 8. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}
