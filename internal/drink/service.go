// Package drink はドリンク記録のドメインロジックを提供する。
package drink

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/brewlog/internal/model"
	"github.com/hitoshi/brewlog/internal/repository"
	"github.com/hitoshi/brewlog/internal/security"
)

// LogRecorder はドリンク記録数の記録先。metrics.Collectorが実装する。
type LogRecorder interface {
	RecordDrinkLogged()
}

// CafeFinder はカフェの所有者確認に使う読み出しインターフェース。
type CafeFinder interface {
	FindByID(ctx context.Context, userID string, id int64) (*model.Cafe, error)
}

// Service はドリンク記録のサービス層。
type Service struct {
	drinkRepo repository.DrinkRepository
	cafes     CafeFinder
	sanitizer *security.TextSanitizer
	recorder  LogRecorder
	now       func() time.Time
}

// maxClockSkew はlogged_atとして受け付ける未来方向の許容幅。端末時計のずれを吸収する。
const maxClockSkew = 5 * time.Minute

// NewService はServiceの新しいインスタンスを生成する。recorderはnilでもよい。
func NewService(
	drinkRepo repository.DrinkRepository,
	cafes CafeFinder,
	sanitizer *security.TextSanitizer,
	recorder LogRecorder,
) *Service {
	if sanitizer == nil {
		sanitizer = security.NewTextSanitizer()
	}
	return &Service{
		drinkRepo: drinkRepo,
		cafes:     cafes,
		sanitizer: sanitizer,
		recorder:  recorder,
		now:       time.Now,
	}
}

// List はドリンク一覧をカフェ情報付きで返す。
// 並び替えキーが許可リストにない場合はlogged_atを使う。
func (s *Service) List(ctx context.Context, userID string, filter model.DrinkFilter) ([]model.DrinkWithCafe, error) {
	if !filter.Sort.IsValid() {
		filter.Sort = model.DrinkSortLoggedAt
	}
	drinks, err := s.drinkRepo.List(ctx, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list drinks: %w", err)
	}
	return drinks, nil
}

// Get は指定IDのドリンクを返す。
func (s *Service) Get(ctx context.Context, userID string, id int64) (*model.DrinkWithCafe, error) {
	d, err := s.drinkRepo.FindByID(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get drink: %w", err)
	}
	if d == nil {
		return nil, model.NewDrinkNotFoundError()
	}
	return d, nil
}

// Last は最も新しく記録されたドリンクを返す。1件もない場合はNO_DRINKSエラーになる。
func (s *Service) Last(ctx context.Context, userID string) (*model.DrinkWithCafe, error) {
	d, err := s.drinkRepo.Last(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get last drink: %w", err)
	}
	if d == nil {
		return nil, model.NewNoDrinksError()
	}
	return d, nil
}

// Types はドリンク種別を記録数の多い順で返す。
func (s *Service) Types(ctx context.Context, userID string) ([]model.DrinkTypeCount, error) {
	types, err := s.drinkRepo.Types(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list drink types: %w", err)
	}
	return types, nil
}

// Create はドリンクを記録する。
// cafe_idがユーザー自身のカフェでない場合はINVALID_CAFEになる。
// メモはHTMLを除去し、フレーバータグは語彙内のものだけを正規表記で保存する。
func (s *Service) Create(ctx context.Context, userID string, in model.NewDrink) (*model.DrinkWithCafe, error) {
	in.DrinkType = s.sanitizer.CleanLimited(in.DrinkType, 100)
	if in.DrinkType == "" {
		return nil, model.NewValidationError("drink_type is required")
	}
	if in.Rating < 0 || in.Rating > 5 {
		return nil, model.NewValidationError("rating must be between 0 and 5")
	}
	if in.Price != nil && *in.Price < 0 {
		return nil, model.NewValidationError("price must not be negative")
	}
	if in.LoggedAt != nil && in.LoggedAt.After(s.now().Add(maxClockSkew)) {
		return nil, model.NewValidationError("logged_at must not be in the future")
	}
	if in.PhotoURL != nil {
		if *in.PhotoURL == "" {
			in.PhotoURL = nil
		} else if err := security.ValidatePhotoURL(*in.PhotoURL); err != nil {
			return nil, model.NewValidationError("photo_url must be a public https URL")
		}
	}

	cafe, err := s.cafes.FindByID(ctx, userID, in.CafeID)
	if err != nil {
		return nil, fmt.Errorf("failed to check cafe ownership: %w", err)
	}
	if cafe == nil {
		return nil, model.NewInvalidCafeError()
	}

	if in.Notes != nil {
		notes := security.Truncate(s.sanitizer.Clean(*in.Notes), security.MaxTextLength)
		if notes == "" {
			in.Notes = nil
		} else {
			in.Notes = &notes
		}
	}
	if in.FlavorTags != nil {
		in.FlavorTags = model.FilterFlavorTags(in.FlavorTags)
	}

	d, err := s.drinkRepo.Create(ctx, userID, in)
	if err != nil {
		return nil, fmt.Errorf("failed to create drink: %w", err)
	}

	if s.recorder != nil {
		s.recorder.RecordDrinkLogged()
	}
	slog.Info("drink logged",
		slog.String("user_id", userID),
		slog.Int64("drink_id", d.ID),
		slog.Int64("cafe_id", d.CafeID),
	)
	return d, nil
}

// Delete はドリンクを削除する。見つからない、または他ユーザーのドリンクの場合はDRINK_NOT_FOUNDになる。
func (s *Service) Delete(ctx context.Context, userID string, id int64) error {
	deleted, err := s.drinkRepo.Delete(ctx, userID, id)
	if err != nil {
		return fmt.Errorf("failed to delete drink: %w", err)
	}
	if !deleted {
		return model.NewDrinkNotFoundError()
	}

	slog.Info("drink deleted",
		slog.String("user_id", userID),
		slog.Int64("drink_id", id),
	)
	return nil
}
