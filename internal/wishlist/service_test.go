package wishlist

import (
	"context"
	"errors"
	"testing"

	"github.com/hitoshi/brewlog/internal/model"
)

// --- モック ---

type mockWishlistRepo struct {
	findByPlaceIDFn func(ctx context.Context, userID, placeID string) (*model.WishlistItem, error)
	createFn        func(ctx context.Context, userID string, place model.PlaceFields, notes *string) (*model.WishlistItem, error)
	deleteFn        func(ctx context.Context, userID string, id int64) (bool, error)
	convertFn       func(ctx context.Context, userID string, id int64) (*model.Cafe, error)
}

func (m *mockWishlistRepo) List(ctx context.Context, userID string) ([]model.WishlistItem, error) {
	return []model.WishlistItem{}, nil
}
func (m *mockWishlistRepo) FindByPlaceID(ctx context.Context, userID, placeID string) (*model.WishlistItem, error) {
	if m.findByPlaceIDFn != nil {
		return m.findByPlaceIDFn(ctx, userID, placeID)
	}
	return nil, nil
}
func (m *mockWishlistRepo) Create(ctx context.Context, userID string, place model.PlaceFields, notes *string) (*model.WishlistItem, error) {
	return m.createFn(ctx, userID, place, notes)
}
func (m *mockWishlistRepo) Delete(ctx context.Context, userID string, id int64) (bool, error) {
	return m.deleteFn(ctx, userID, id)
}
func (m *mockWishlistRepo) ConvertToCafe(ctx context.Context, userID string, id int64) (*model.Cafe, error) {
	return m.convertFn(ctx, userID, id)
}

type mockVisitedFinder struct {
	cafe *model.Cafe
}

func (m *mockVisitedFinder) FindByPlaceID(ctx context.Context, userID, placeID string) (*model.Cafe, error) {
	return m.cafe, nil
}

func strPtr(s string) *string { return &s }

func createEcho() func(ctx context.Context, userID string, place model.PlaceFields, notes *string) (*model.WishlistItem, error) {
	return func(ctx context.Context, userID string, place model.PlaceFields, notes *string) (*model.WishlistItem, error) {
		return &model.WishlistItem{ID: 1, UserID: userID, PlaceFields: place, Notes: notes}, nil
	}
}

// --- テスト ---

func TestService_Add(t *testing.T) {
	item, err := NewService(&mockWishlistRepo{createFn: createEcho()}, &mockVisitedFinder{}, nil).
		Add(context.Background(), "user-1", model.PlaceFields{Name: "Sey", PlaceID: strPtr("p1")}, strPtr("  try the filter  "))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if item.Name != "Sey" {
		t.Errorf("Name = %q, want Sey", item.Name)
	}
	if item.Notes == nil || *item.Notes != "try the filter" {
		t.Errorf("Notes = %v, want trimmed notes", item.Notes)
	}
}

func TestService_Add_DuplicateRules(t *testing.T) {
	tests := []struct {
		name     string
		inList   *model.WishlistItem
		visited  *model.Cafe
		wantCode string
	}{
		{"already in wishlist", &model.WishlistItem{ID: 2}, nil, model.ErrCodeAlreadyInWishlist},
		{"already visited", nil, &model.Cafe{ID: 3}, model.ErrCodeAlreadyVisited},
		{"wishlist wins over visited", &model.WishlistItem{ID: 2}, &model.Cafe{ID: 3}, model.ErrCodeAlreadyInWishlist},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockWishlistRepo{
				findByPlaceIDFn: func(ctx context.Context, userID, placeID string) (*model.WishlistItem, error) {
					return tt.inList, nil
				},
				createFn: func(ctx context.Context, userID string, place model.PlaceFields, notes *string) (*model.WishlistItem, error) {
					t.Fatal("Create should not be called for a duplicate")
					return nil, nil
				},
			}

			_, err := NewService(repo, &mockVisitedFinder{cafe: tt.visited}, nil).
				Add(context.Background(), "user-1", model.PlaceFields{Name: "Sey", PlaceID: strPtr("p1")}, nil)

			var apiErr *model.APIError
			if !errors.As(err, &apiErr) || apiErr.Code != tt.wantCode {
				t.Fatalf("expected %s, got %v", tt.wantCode, err)
			}
			if apiErr.Category != model.CategoryValidation {
				t.Errorf("Category = %q, want validation", apiErr.Category)
			}
		})
	}
}

func TestService_Add_WithoutPlaceIDSkipsDuplicateChecks(t *testing.T) {
	repo := &mockWishlistRepo{
		findByPlaceIDFn: func(ctx context.Context, userID, placeID string) (*model.WishlistItem, error) {
			t.Fatal("FindByPlaceID should not be called without place_id")
			return nil, nil
		},
		createFn: createEcho(),
	}

	if _, err := NewService(repo, &mockVisitedFinder{}, nil).
		Add(context.Background(), "user-1", model.PlaceFields{Name: "Corner Cafe"}, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestService_Visit(t *testing.T) {
	calls := 0
	repo := &mockWishlistRepo{
		convertFn: func(ctx context.Context, userID string, id int64) (*model.Cafe, error) {
			calls++
			if calls == 1 {
				return &model.Cafe{ID: 10, Name: "Sey"}, nil
			}
			return nil, nil
		},
	}
	svc := NewService(repo, &mockVisitedFinder{}, nil)

	c, err := svc.Visit(context.Background(), "user-1", 4)
	if err != nil {
		t.Fatalf("first visit: unexpected error: %v", err)
	}
	if c.ID != 10 {
		t.Errorf("cafe ID = %d, want 10", c.ID)
	}

	_, err = svc.Visit(context.Background(), "user-1", 4)
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeWishlistItemNotFound {
		t.Fatalf("second visit: expected WISHLIST_ITEM_NOT_FOUND, got %v", err)
	}
}

func TestService_Remove_NotFound(t *testing.T) {
	repo := &mockWishlistRepo{
		deleteFn: func(ctx context.Context, userID string, id int64) (bool, error) { return false, nil },
	}

	err := NewService(repo, &mockVisitedFinder{}, nil).Remove(context.Background(), "user-1", 1)

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeWishlistItemNotFound {
		t.Fatalf("expected WISHLIST_ITEM_NOT_FOUND, got %v", err)
	}
}
