package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/hitoshi/brewlog/internal/model"
)

// WishlistServiceInterface はウィッシュリストハンドラーが必要とするサービスインターフェース。
type WishlistServiceInterface interface {
	List(ctx context.Context, userID string) ([]model.WishlistItem, error)
	Add(ctx context.Context, userID string, place model.PlaceFields, notes *string) (*model.WishlistItem, error)
	Remove(ctx context.Context, userID string, id int64) error
	// Visit は項目をカフェに変換し、ウィッシュリストから削除する。
	Visit(ctx context.Context, userID string, id int64) (*model.Cafe, error)
}

// WishlistHandler はウィッシュリストのHTTPハンドラー。
type WishlistHandler struct {
	service WishlistServiceInterface
}

// NewWishlistHandler はWishlistHandlerを生成する。
func NewWishlistHandler(service WishlistServiceInterface) *WishlistHandler {
	return &WishlistHandler{service: service}
}

// wishlistItemResponse はウィッシュリスト項目のAPIレスポンス。
type wishlistItemResponse struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Address        *string   `json:"address"`
	City           *string   `json:"city"`
	PlaceID        *string   `json:"place_id"`
	PhotoReference *string   `json:"photo_reference"`
	Lat            *float64  `json:"lat"`
	Lng            *float64  `json:"lng"`
	Notes          *string   `json:"notes"`
	CreatedAt      time.Time `json:"created_at"`
}

// addWishlistRequest はウィッシュリスト追加リクエストのボディ。
type addWishlistRequest struct {
	placeRequest
	Notes *string `json:"notes" validate:"omitempty,max=1000"`
}

func toWishlistItemResponse(item *model.WishlistItem) wishlistItemResponse {
	return wishlistItemResponse{
		ID:             item.ID,
		Name:           item.Name,
		Address:        item.Address,
		City:           item.City,
		PlaceID:        item.PlaceID,
		PhotoReference: item.PhotoReference,
		Lat:            item.Lat,
		Lng:            item.Lng,
		Notes:          item.Notes,
		CreatedAt:      item.CreatedAt,
	}
}

// ListWishlist はウィッシュリストを返す。
// GET /api/wishlist
func (h *WishlistHandler) ListWishlist(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	items, err := h.service.List(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]wishlistItemResponse, len(items))
	for i := range items {
		resp[i] = toWishlistItemResponse(&items[i])
	}
	writeJSON(w, http.StatusOK, resp)
}

// AddToWishlist はウィッシュリストに項目を追加する。
// POST /api/wishlist
func (h *WishlistHandler) AddToWishlist(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req addWishlistRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	item, err := h.service.Add(r.Context(), userID, req.toPlaceFields(), req.Notes)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toWishlistItemResponse(item))
}

// RemoveFromWishlist はウィッシュリストから項目を削除する。
// DELETE /api/wishlist/{id}
func (h *WishlistHandler) RemoveFromWishlist(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	id, ok := parseIDParam(w, r, model.NewWishlistItemNotFoundError)
	if !ok {
		return
	}

	if err := h.service.Remove(r.Context(), userID, id); err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Removed from wishlist"})
}

// VisitWishlistItem は項目を訪問済みにし、作成したカフェを返す。
// POST /api/wishlist/{id}/visit
func (h *WishlistHandler) VisitWishlistItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	id, ok := parseIDParam(w, r, model.NewWishlistItemNotFoundError)
	if !ok {
		return
	}

	c, err := h.service.Visit(r.Context(), userID, id)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCafeResponse(c))
}
