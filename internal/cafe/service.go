// Package cafe は訪問済みカフェ管理のドメインロジックを提供する。
package cafe

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/brewlog/internal/model"
	"github.com/hitoshi/brewlog/internal/repository"
	"github.com/hitoshi/brewlog/internal/security"
)

// Service はカフェ管理のサービス層。
type Service struct {
	cafeRepo  repository.CafeRepository
	sanitizer *security.TextSanitizer
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(cafeRepo repository.CafeRepository, sanitizer *security.TextSanitizer) *Service {
	if sanitizer == nil {
		sanitizer = security.NewTextSanitizer()
	}
	return &Service{cafeRepo: cafeRepo, sanitizer: sanitizer}
}

// List はユーザーのカフェ一覧を訪問集計付きで返す。
func (s *Service) List(ctx context.Context, userID string) ([]model.CafeWithVisits, error) {
	cafes, err := s.cafeRepo.ListWithVisits(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cafes: %w", err)
	}
	return cafes, nil
}

// Get は指定IDのカフェを返す。他ユーザーのカフェは存在しないものとして扱う。
func (s *Service) Get(ctx context.Context, userID string, id int64) (*model.Cafe, error) {
	c, err := s.cafeRepo.FindByID(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get cafe: %w", err)
	}
	if c == nil {
		return nil, model.NewCafeNotFoundError()
	}
	return c, nil
}

// Create はカフェを作成する。
// 同じplace_idのカフェが既にある場合は新規作成せず既存のカフェを返し、createdはfalseになる。
func (s *Service) Create(ctx context.Context, userID string, place model.PlaceFields) (c *model.Cafe, created bool, err error) {
	place = SanitizePlace(s.sanitizer, place)
	if place.Name == "" {
		return nil, false, model.NewValidationError("name is required")
	}

	if place.PlaceID != nil {
		existing, err := s.cafeRepo.FindByPlaceID(ctx, userID, *place.PlaceID)
		if err != nil {
			return nil, false, fmt.Errorf("failed to find cafe by place_id: %w", err)
		}
		if existing != nil {
			return existing, false, nil
		}
	}

	c, err = s.cafeRepo.Create(ctx, userID, place)
	if err != nil {
		// 同時作成で一意制約に当たった場合は先に作られた行を返す
		if place.PlaceID != nil {
			if existing, findErr := s.cafeRepo.FindByPlaceID(ctx, userID, *place.PlaceID); findErr == nil && existing != nil {
				return existing, false, nil
			}
		}
		return nil, false, fmt.Errorf("failed to create cafe: %w", err)
	}

	slog.Info("cafe created",
		slog.String("user_id", userID),
		slog.Int64("cafe_id", c.ID),
	)
	return c, true, nil
}

// SanitizePlace は場所情報のテキスト項目からHTMLを除去する。
// 空になった任意項目はnilにする。
func SanitizePlace(sanitizer *security.TextSanitizer, place model.PlaceFields) model.PlaceFields {
	place.Name = sanitizer.Clean(place.Name)
	place.Address = sanitizer.CleanPtr(place.Address)
	place.City = sanitizer.CleanPtr(place.City)
	if place.PlaceID != nil && *place.PlaceID == "" {
		place.PlaceID = nil
	}
	if place.PhotoReference != nil && *place.PhotoReference == "" {
		place.PhotoReference = nil
	}
	return place
}
