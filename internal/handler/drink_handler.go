package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/hitoshi/brewlog/internal/model"
)

// DrinkServiceInterface はドリンクハンドラーが必要とするサービスインターフェース。
type DrinkServiceInterface interface {
	List(ctx context.Context, userID string, filter model.DrinkFilter) ([]model.DrinkWithCafe, error)
	Get(ctx context.Context, userID string, id int64) (*model.DrinkWithCafe, error)
	Last(ctx context.Context, userID string) (*model.DrinkWithCafe, error)
	Types(ctx context.Context, userID string) ([]model.DrinkTypeCount, error)
	Create(ctx context.Context, userID string, in model.NewDrink) (*model.DrinkWithCafe, error)
	Delete(ctx context.Context, userID string, id int64) error
}

// DrinkHandler はドリンク記録のHTTPハンドラー。
type DrinkHandler struct {
	service DrinkServiceInterface
}

// NewDrinkHandler はDrinkHandlerを生成する。
func NewDrinkHandler(service DrinkServiceInterface) *DrinkHandler {
	return &DrinkHandler{service: service}
}

// drinkResponse はドリンクのAPIレスポンス。カフェの表示用フィールドを含む。
type drinkResponse struct {
	ID          int64     `json:"id"`
	CafeID      int64     `json:"cafe_id"`
	DrinkType   string    `json:"drink_type"`
	Rating      float64   `json:"rating"`
	Notes       *string   `json:"notes"`
	Price       *float64  `json:"price"`
	FlavorTags  []string  `json:"flavor_tags"`
	PhotoURL    *string   `json:"photo_url"`
	LoggedAt    time.Time `json:"logged_at"`
	CreatedAt   time.Time `json:"created_at"`
	CafeName    string    `json:"cafe_name"`
	CafeAddress *string   `json:"cafe_address"`
	CafeCity    *string   `json:"cafe_city"`
}

// createDrinkRequest はドリンク記録リクエストのボディ。
type createDrinkRequest struct {
	CafeID     int64      `json:"cafe_id" validate:"required,gt=0"`
	DrinkType  string     `json:"drink_type" validate:"required,max=100"`
	Rating     *float64   `json:"rating" validate:"required,gte=0,lte=5"`
	Notes      *string    `json:"notes" validate:"omitempty,max=1000"`
	Price      *float64   `json:"price" validate:"omitempty,gte=0,lte=1000"`
	FlavorTags []string   `json:"flavor_tags" validate:"omitempty,max=15,dive,flavortag"`
	PhotoURL   *string    `json:"photo_url" validate:"omitempty,max=2048,url,startswith=https://"`
	LoggedAt   *time.Time `json:"logged_at"`
}

func toDrinkResponse(d *model.DrinkWithCafe) drinkResponse {
	tags := d.FlavorTags
	if tags == nil {
		tags = []string{}
	}
	return drinkResponse{
		ID:          d.ID,
		CafeID:      d.CafeID,
		DrinkType:   d.DrinkType,
		Rating:      d.Rating,
		Notes:       d.Notes,
		Price:       d.Price,
		FlavorTags:  tags,
		PhotoURL:    d.PhotoURL,
		LoggedAt:    d.LoggedAt,
		CreatedAt:   d.CreatedAt,
		CafeName:    d.CafeName,
		CafeAddress: d.CafeAddress,
		CafeCity:    d.CafeCity,
	}
}

// parseDrinkFilter はクエリパラメータ cafe_id, sort, order を解析する。
func parseDrinkFilter(r *http.Request) (model.DrinkFilter, *model.APIError) {
	q := r.URL.Query()
	filter := model.DrinkFilter{Sort: model.DrinkSortLoggedAt}

	if raw := q.Get("cafe_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return filter, model.NewValidationError("cafe_id must be a positive integer")
		}
		filter.CafeID = &id
	}

	if raw := q.Get("sort"); raw != "" {
		sort := model.DrinkSort(raw)
		if !sort.IsValid() {
			return filter, model.NewValidationError("sort must be one of logged_at, rating, created_at, price")
		}
		filter.Sort = sort
	}

	switch q.Get("order") {
	case "", "desc":
	case "asc":
		filter.Ascending = true
	default:
		return filter, model.NewValidationError("order must be asc or desc")
	}
	return filter, nil
}

// ListDrinks はドリンク一覧を返す。
// GET /api/drinks?cafe_id=&sort=&order=
func (h *DrinkHandler) ListDrinks(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	filter, apiErr := parseDrinkFilter(r)
	if apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	drinks, err := h.service.List(r.Context(), userID, filter)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]drinkResponse, len(drinks))
	for i := range drinks {
		resp[i] = toDrinkResponse(&drinks[i])
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListDrinkTypes はドリンク種別を記録数の多い順に返す（入力補完用）。
// GET /api/drinks/types
func (h *DrinkHandler) ListDrinkTypes(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	types, err := h.service.Types(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	names := make([]string, len(types))
	for i, t := range types {
		names[i] = t.DrinkType
	}
	writeJSON(w, http.StatusOK, names)
}

// GetLastDrink は最も新しく記録されたドリンクを返す（クイック記録用）。
// GET /api/drinks/last
func (h *DrinkHandler) GetLastDrink(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	d, err := h.service.Last(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDrinkResponse(d))
}

// GetDrink は1件のドリンクを返す。
// GET /api/drinks/{id}
func (h *DrinkHandler) GetDrink(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	id, ok := parseIDParam(w, r, model.NewDrinkNotFoundError)
	if !ok {
		return
	}

	d, err := h.service.Get(r.Context(), userID, id)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDrinkResponse(d))
}

// CreateDrink はドリンクを記録する。
// POST /api/drinks
func (h *DrinkHandler) CreateDrink(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req createDrinkRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	d, err := h.service.Create(r.Context(), userID, model.NewDrink{
		CafeID:     req.CafeID,
		DrinkType:  req.DrinkType,
		Rating:     *req.Rating,
		Notes:      req.Notes,
		Price:      req.Price,
		FlavorTags: req.FlavorTags,
		PhotoURL:   req.PhotoURL,
		LoggedAt:   req.LoggedAt,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toDrinkResponse(d))
}

// DeleteDrink はドリンクを削除する。
// DELETE /api/drinks/{id}
func (h *DrinkHandler) DeleteDrink(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	id, ok := parseIDParam(w, r, model.NewDrinkNotFoundError)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), userID, id); err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Drink deleted"})
}
