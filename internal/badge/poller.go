// Package badge はヘッダーのカート件数バッジの更新処理を提供する。
//
// 件数はティッカーによる定期ポーリングと、カート変更直後の
// 明示トリガーの両方で更新される。取得失敗時は直前の値を維持する。
package badge

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/drinkscart/internal/gateway"
	"github.com/hitoshi/drinkscart/internal/session"
)

// Poller はカート件数を定期的に取得し、最新値を保持する。
type Poller struct {
	carts  gateway.CartGateway
	gate   *session.Gate
	logger *slog.Logger

	trigger chan struct{}

	mu    sync.RWMutex
	count int
}

// NewPoller はPollerの新しいインスタンスを生成する。
func NewPoller(carts gateway.CartGateway, gate *session.Gate, logger *slog.Logger) *Poller {
	return &Poller{
		carts:   carts,
		gate:    gate,
		logger:  logger,
		trigger: make(chan struct{}, 1),
	}
}

// Start は指定間隔のティッカーでポーリングを起動する。
// コンテキストがキャンセルされるまで実行を継続する。
func (p *Poller) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.logger.Info("カート件数ポーラーを開始しました",
		slog.Duration("interval", interval),
	)

	// 起動直後に1回実行
	p.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("カート件数ポーラーを停止しました")
			return
		case <-ticker.C:
			p.RunOnce(ctx)
		case <-p.trigger:
			p.RunOnce(ctx)
		}
	}
}

// Trigger はカート変更直後の即時更新を要求する。
// 更新要求が既に滞留している場合は重ねて積まない。
func (p *Poller) Trigger() {
	select {
	case p.trigger <- struct{}{}:
	default:
	}
}

// RunOnce はカート件数を1回取得して保持値を更新する。
// 未認証の場合は0にリセットする。取得失敗時は直前の値を維持する。
func (p *Poller) RunOnce(ctx context.Context) {
	current := p.gate.Current()
	if current == nil {
		p.set(0)
		return
	}

	n, err := p.carts.CountByUser(ctx, current.Session.SubjectID)
	if err != nil {
		p.logger.Warn("カート件数の取得に失敗したため直前の値を維持します",
			slog.String("user_id", current.Session.SubjectID),
			slog.String("error", err.Error()),
		)
		return
	}
	p.set(n)
}

// Count は保持している最新のカート件数を返す。
func (p *Poller) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.count
}

func (p *Poller) set(n int) {
	p.mu.Lock()
	p.count = n
	p.mu.Unlock()
}
