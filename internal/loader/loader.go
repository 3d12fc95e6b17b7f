// Package loader は期限付きデータ読み込みのポリシーを提供する。
//
// ゲートウェイ呼び出しを期限でラップし、期限超過・失敗時には呼び出し元を
// 失敗させる代わりに安全デフォルト（リストなら空、単一エンティティならnil、
// 統計ならゼロ値）へ置き換える。置き換えは警告ログとメトリクスに記録される。
// 可用性を一貫性より優先する設計であり、画面は部分データでも必ず描画できる。
//
// 期限超過した操作は切り離される（fire and forget）。トランスポートレベルの
// キャンセルは行わず、遅延して届いた結果は破棄される。破棄の保証は
// Generationによる画面インスタンス識別で行う。
package loader

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hitoshi/drinkscart/internal/metrics"
	"github.com/hitoshi/drinkscart/internal/model"
)

// Generation は画面インスタンスの世代カウンタ。
// load()のたびにNext()で世代を進め、非同期結果の適用時にMatches()で
// 画面が破棄済みでないかを確認する。
type Generation struct {
	n atomic.Int64
}

// Next は世代を1つ進め、新しい世代番号を返す。
func (g *Generation) Next() int64 {
	return g.n.Add(1)
}

// Current は現在の世代番号を返す。
func (g *Generation) Current() int64 {
	return g.n.Load()
}

// Matches は指定された世代が現在の世代と一致するかどうかを返す。
// 一致しない結果は遅延到着であり、適用してはならない。
func (g *Generation) Matches(gen int64) bool {
	return g.n.Load() == gen
}

// Fetch は単一の読み取り操作を期限付きで実行する。
// 期限内に完了すればその値を、失敗または期限超過なら安全デフォルトを返す。
// 第2戻り値は実値が得られたかどうか。エラーを返すことはない。
// 期限超過後も操作自体は打ち切られず、結果は破棄される。
func Fetch[T any](ctx context.Context, op string, deadline time.Duration, fallback T, mc metrics.Collector, fn func(context.Context) (T, error)) (T, bool) {
	type result struct {
		val T
		err error
	}
	ch := make(chan result, 1)
	start := time.Now()

	go func() {
		v, err := fn(ctx)
		ch <- result{val: v, err: err}
	}()

	timer := time.NewTimer(deadline)
	defer timer.Stop()

	select {
	case r := <-ch:
		recordLatency(mc, op, time.Since(start))
		if r.err != nil {
			slog.Warn("読み取りに失敗したため安全デフォルトを返します",
				slog.String("op", op),
				slog.String("error", r.err.Error()),
			)
			recordFallback(mc, op, "error")
			return fallback, false
		}
		recordSuccess(mc, op)
		return r.val, true
	case <-timer.C:
		te := model.NewTimeoutError(op, deadline)
		slog.Warn("読み取りが期限を超過したため安全デフォルトを返します",
			slog.String("op", op),
			slog.String("error", te.Error()),
		)
		recordFallback(mc, op, "timeout")
		return fallback, false
	case <-ctx.Done():
		slog.Warn("読み取りが中断されたため安全デフォルトを返します",
			slog.String("op", op),
			slog.String("error", ctx.Err().Error()),
		)
		recordFallback(mc, op, "timeout")
		return fallback, false
	}
}

// finalizer はWait時にFutureの結果を確定するための非ジェネリックなインターフェース。
type finalizer interface {
	finalize(mc metrics.Collector, deadline time.Duration)
}

// Group は複数の独立した読み取り操作をジョイント期限付きで実行する。
// 期限到来時点で完了済みの操作は実値を、未完了の操作は安全デフォルトを持つ。
// 未完了の操作は切り離され、その後の結果は破棄される。
type Group struct {
	ctx      context.Context
	deadline time.Duration
	mc       metrics.Collector

	wg     sync.WaitGroup
	sealed atomic.Bool

	mu      sync.Mutex
	futures []finalizer
}

// NewGroup はジョイント期限付きのGroupを生成する。
// mcはnil可（その場合メトリクスは記録されない）。
func NewGroup(ctx context.Context, deadline time.Duration, mc metrics.Collector) *Group {
	return &Group{
		ctx:      ctx,
		deadline: deadline,
		mc:       mc,
	}
}

// Future はGroup内の1操作の結果を保持する。
// Group.Waitの完了後にValueで取り出す。
type Future[T any] struct {
	op       string
	fallback T
	group    *Group

	mu       sync.Mutex
	settled  bool
	val      T
	err      error
	started  time.Time
	duration time.Duration
}

// Go はGroupに読み取り操作を追加し、直ちに並行実行を開始する。
// fnにはGroup生成時のコンテキストが渡される。ジョイント期限は
// トランスポートをキャンセルしない（切り離しのみ）。
func Go[T any](g *Group, op string, fallback T, fn func(context.Context) (T, error)) *Future[T] {
	f := &Future[T]{
		op:       op,
		fallback: fallback,
		group:    g,
		started:  time.Now(),
	}

	g.mu.Lock()
	g.futures = append(g.futures, f)
	g.mu.Unlock()

	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		v, err := fn(g.ctx)

		f.mu.Lock()
		defer f.mu.Unlock()
		if g.sealed.Load() {
			// 遅延到着。Waitが確定済みのため破棄する。
			return
		}
		f.settled = true
		f.val = v
		f.err = err
		f.duration = time.Since(f.started)
	}()

	return f
}

// Wait は全操作の完了またはジョイント期限の到来まで待機する。
// 戻り後、各FutureのValueが確定する。兄弟操作の失敗は互いに影響しない。
func (g *Group) Wait() {
	allDone := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(allDone)
	}()

	timer := time.NewTimer(g.deadline)
	defer timer.Stop()

	select {
	case <-allDone:
	case <-timer.C:
	case <-g.ctx.Done():
	}

	g.sealed.Store(true)

	g.mu.Lock()
	futures := g.futures
	g.mu.Unlock()

	for _, f := range futures {
		f.finalize(g.mc, g.deadline)
	}
}

// finalize は結果を確定し、ログとメトリクスに記録する。
func (f *Future[T]) finalize(mc metrics.Collector, deadline time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case f.settled && f.err == nil:
		recordSuccess(mc, f.op)
		recordLatency(mc, f.op, f.duration)
	case f.settled:
		slog.Warn("読み取りに失敗したため安全デフォルトを返します",
			slog.String("op", f.op),
			slog.String("error", f.err.Error()),
		)
		recordFallback(mc, f.op, "error")
	default:
		te := model.NewTimeoutError(f.op, deadline)
		slog.Warn("ジョイント期限までに完了しなかったため安全デフォルトを返します",
			slog.String("op", f.op),
			slog.String("error", te.Error()),
		)
		recordFallback(mc, f.op, "timeout")
	}
}

// Value は確定した結果を返す。Group.Waitの完了後にのみ呼ぶこと。
// 第2戻り値は実値が得られたかどうか（失敗・期限超過ならfalseで安全デフォルト）。
func (f *Future[T]) Value() (T, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.settled && f.err == nil {
		return f.val, true
	}
	return f.fallback, false
}

func recordSuccess(mc metrics.Collector, op string) {
	if mc != nil {
		mc.RecordLoadSuccess(op)
	}
}

func recordFallback(mc metrics.Collector, op, reason string) {
	if mc != nil {
		mc.RecordLoadFallback(op, reason)
	}
}

func recordLatency(mc metrics.Collector, op string, d time.Duration) {
	if mc != nil {
		mc.RecordLoadLatency(op, d)
	}
}
