package loader

import (
	"context"
	"testing"
	"time"

	"github.com/hitoshi/drinkscart/internal/model"
)

func TestFetch_ReturnsValueWithinDeadline(t *testing.T) {
	got, ok := Fetch(context.Background(), "test_op", time.Second, nil, nil,
		func(ctx context.Context) ([]string, error) {
			return []string{"a", "b"}, nil
		})
	if !ok {
		t.Fatal("期限内の成功で ok が false")
	}
	if len(got) != 2 {
		t.Errorf("結果 = %v, want [a b]", got)
	}
}

func TestFetch_TimeoutReturnsFallbackWithinDeadlinePlusEpsilon(t *testing.T) {
	deadline := 100 * time.Millisecond
	start := time.Now()

	got, ok := Fetch(context.Background(), "test_op", deadline, []string{}, nil,
		func(ctx context.Context) ([]string, error) {
			time.Sleep(5 * time.Second)
			return []string{"late"}, nil
		})
	elapsed := time.Since(start)

	if ok {
		t.Error("期限超過で ok が true")
	}
	if len(got) != 0 {
		t.Errorf("安全デフォルトが返らなかった: %v", got)
	}
	if elapsed > deadline+500*time.Millisecond {
		t.Errorf("期限+εを超えて待機した: %v", elapsed)
	}
}

func TestFetch_ErrorReturnsFallback(t *testing.T) {
	got, ok := Fetch(context.Background(), "test_op", time.Second, 0, nil,
		func(ctx context.Context) (int, error) {
			return 99, model.NewRemoteError("", "connection refused")
		})
	if ok {
		t.Error("失敗で ok が true")
	}
	if got != 0 {
		t.Errorf("安全デフォルト = %d, want 0", got)
	}
}

func TestGroup_SiblingFailureDoesNotAffectOthers(t *testing.T) {
	g := NewGroup(context.Background(), time.Second, nil)

	good := Go(g, "good_op", nil, func(ctx context.Context) ([]int, error) {
		return []int{1, 2, 3}, nil
	})
	bad := Go(g, "bad_op", nil, func(ctx context.Context) ([]int, error) {
		return nil, model.NewRemoteError("", "connection refused")
	})
	g.Wait()

	if v, ok := good.Value(); !ok || len(v) != 3 {
		t.Errorf("兄弟の失敗が成功した操作に影響した: ok=%v, v=%v", ok, v)
	}
	if _, ok := bad.Value(); ok {
		t.Error("失敗した操作で ok が true")
	}
}

func TestGroup_JointDeadlineSettledKeepsValuePendingGetsFallback(t *testing.T) {
	g := NewGroup(context.Background(), 100*time.Millisecond, nil)

	fast := Go(g, "fast_op", nil, func(ctx context.Context) ([]string, error) {
		return []string{"settled"}, nil
	})
	slow := Go(g, "slow_op", []string{}, func(ctx context.Context) ([]string, error) {
		time.Sleep(5 * time.Second)
		return []string{"late"}, nil
	})

	start := time.Now()
	g.Wait()
	elapsed := time.Since(start)

	if elapsed > time.Second {
		t.Errorf("ジョイント期限を大きく超えて待機した: %v", elapsed)
	}
	if v, ok := fast.Value(); !ok || len(v) != 1 {
		t.Errorf("完了済みの操作が実値を持たない: ok=%v, v=%v", ok, v)
	}
	if v, ok := slow.Value(); ok || len(v) != 0 {
		t.Errorf("未完了の操作が安全デフォルトにならなかった: ok=%v, v=%v", ok, v)
	}
}

func TestGroup_LateResultIsDiscardedAfterSeal(t *testing.T) {
	done := make(chan struct{})
	g := NewGroup(context.Background(), 50*time.Millisecond, nil)

	slow := Go(g, "slow_op", 0, func(ctx context.Context) (int, error) {
		defer close(done)
		time.Sleep(300 * time.Millisecond)
		return 42, nil
	})
	g.Wait()

	// 切り離された操作の完了を待ってから確認する
	<-done
	time.Sleep(50 * time.Millisecond)

	if v, ok := slow.Value(); ok || v != 0 {
		t.Errorf("遅延到着した結果が適用された: ok=%v, v=%d", ok, v)
	}
}

func TestGeneration_MatchesOnlyCurrent(t *testing.T) {
	var g Generation

	first := g.Next()
	if !g.Matches(first) {
		t.Error("現在の世代が一致しない")
	}

	second := g.Next()
	if g.Matches(first) {
		t.Error("古い世代が一致した")
	}
	if !g.Matches(second) {
		t.Error("新しい世代が一致しない")
	}
	if g.Current() != second {
		t.Errorf("Current = %d, want %d", g.Current(), second)
	}
}
