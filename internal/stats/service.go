package stats

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/brewlog/internal/model"
)

// DrinkLister は集計に必要なドリンク読み出しのインターフェース。
// repository.DrinkRepositoryの部分集合として定義する。
type DrinkLister interface {
	ListForStats(ctx context.Context, userID string) ([]model.DrinkWithCafe, error)
}

// ComputeObserver は集計時間の記録先。metrics.Collectorが実装する。
type ComputeObserver interface {
	ObserveStatsCompute(d time.Duration)
}

// Service はユーザーのドリンクを読み出して統計サマリーを返す。
type Service struct {
	drinks   DrinkLister
	loc      *time.Location
	observer ComputeObserver
	now      func() time.Time
}

// NewService はServiceを生成する。locは暦計算に使うタイムゾーン。
// observerはnilでもよい。
func NewService(drinks DrinkLister, loc *time.Location, observer ComputeObserver) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		drinks:   drinks,
		loc:      loc,
		observer: observer,
		now:      time.Now,
	}
}

// Summary は指定ユーザーの統計サマリーを返す。
// 読み出しに失敗した場合はリトライせずエラーを返す。
func (s *Service) Summary(ctx context.Context, userID string) (*Summary, error) {
	rows, err := s.drinks.ListForStats(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list drinks for stats: %w", err)
	}

	input := make([]Drink, len(rows))
	for i, r := range rows {
		input[i] = Drink{
			ID:         r.ID,
			CafeID:     r.CafeID,
			CafeName:   r.CafeName,
			Rating:     r.Rating,
			DrinkType:  r.DrinkType,
			LoggedAt:   r.LoggedAt,
			Price:      r.Price,
			FlavorTags: r.FlavorTags,
		}
	}

	start := time.Now()
	summary := Compute(input, s.now().In(s.loc))
	if s.observer != nil {
		s.observer.ObserveStatsCompute(time.Since(start))
	}

	if summary.ExcludedCount > 0 {
		slog.Warn("stats excluded malformed drinks",
			slog.String("user_id", userID),
			slog.Int("excluded", summary.ExcludedCount),
		)
	}

	return summary, nil
}
