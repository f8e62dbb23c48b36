// Package wishlist は行ってみたいカフェのリスト管理を提供する。
package wishlist

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/brewlog/internal/cafe"
	"github.com/hitoshi/brewlog/internal/model"
	"github.com/hitoshi/brewlog/internal/repository"
	"github.com/hitoshi/brewlog/internal/security"
)

// VisitedFinder はplace_idで訪問済みカフェを引くインターフェース。
type VisitedFinder interface {
	FindByPlaceID(ctx context.Context, userID, placeID string) (*model.Cafe, error)
}

// Service はウィッシュリストのサービス層。
type Service struct {
	wishlistRepo repository.WishlistRepository
	visited      VisitedFinder
	sanitizer    *security.TextSanitizer
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	wishlistRepo repository.WishlistRepository,
	visited VisitedFinder,
	sanitizer *security.TextSanitizer,
) *Service {
	if sanitizer == nil {
		sanitizer = security.NewTextSanitizer()
	}
	return &Service{
		wishlistRepo: wishlistRepo,
		visited:      visited,
		sanitizer:    sanitizer,
	}
}

// List はウィッシュリストを追加日の新しい順で返す。
func (s *Service) List(ctx context.Context, userID string) ([]model.WishlistItem, error) {
	items, err := s.wishlistRepo.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list wishlist: %w", err)
	}
	return items, nil
}

// Add はウィッシュリストに項目を追加する。
// place_idが既にウィッシュリストにある場合はALREADY_IN_WISHLIST、
// 同じplace_idのカフェを訪問済みの場合はALREADY_VISITEDになる。
func (s *Service) Add(ctx context.Context, userID string, place model.PlaceFields, notes *string) (*model.WishlistItem, error) {
	place = cafe.SanitizePlace(s.sanitizer, place)
	if place.Name == "" {
		return nil, model.NewValidationError("name is required")
	}
	if notes != nil {
		cleaned := security.Truncate(s.sanitizer.Clean(*notes), security.MaxTextLength)
		notes = nil
		if cleaned != "" {
			notes = &cleaned
		}
	}

	if place.PlaceID != nil {
		existing, err := s.wishlistRepo.FindByPlaceID(ctx, userID, *place.PlaceID)
		if err != nil {
			return nil, fmt.Errorf("failed to check wishlist: %w", err)
		}
		if existing != nil {
			return nil, model.NewAlreadyInWishlistError()
		}

		visited, err := s.visited.FindByPlaceID(ctx, userID, *place.PlaceID)
		if err != nil {
			return nil, fmt.Errorf("failed to check visited cafes: %w", err)
		}
		if visited != nil {
			return nil, model.NewAlreadyVisitedError()
		}
	}

	item, err := s.wishlistRepo.Create(ctx, userID, place, notes)
	if err != nil {
		return nil, fmt.Errorf("failed to add wishlist item: %w", err)
	}

	slog.Info("wishlist item added",
		slog.String("user_id", userID),
		slog.Int64("wishlist_id", item.ID),
	)
	return item, nil
}

// Remove はウィッシュリストから項目を削除する。
func (s *Service) Remove(ctx context.Context, userID string, id int64) error {
	deleted, err := s.wishlistRepo.Delete(ctx, userID, id)
	if err != nil {
		return fmt.Errorf("failed to remove wishlist item: %w", err)
	}
	if !deleted {
		return model.NewWishlistItemNotFoundError()
	}
	return nil
}

// Visit はウィッシュリストの項目を訪問済みカフェに変換する。
// 変換と削除は1つのトランザクションで行われ、2回目の呼び出しはWISHLIST_ITEM_NOT_FOUNDになる。
func (s *Service) Visit(ctx context.Context, userID string, id int64) (*model.Cafe, error) {
	c, err := s.wishlistRepo.ConvertToCafe(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to convert wishlist item: %w", err)
	}
	if c == nil {
		return nil, model.NewWishlistItemNotFoundError()
	}

	slog.Info("wishlist item visited",
		slog.String("user_id", userID),
		slog.Int64("wishlist_id", id),
		slog.Int64("cafe_id", c.ID),
	)
	return c, nil
}
