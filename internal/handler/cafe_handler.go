package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/hitoshi/brewlog/internal/model"
)

// CafeServiceInterface はカフェハンドラーが必要とするサービスインターフェース。
type CafeServiceInterface interface {
	// List はカフェ一覧を訪問集計付きで返す。
	List(ctx context.Context, userID string) ([]model.CafeWithVisits, error)
	// Get は指定IDのカフェを返す。
	Get(ctx context.Context, userID string, id int64) (*model.Cafe, error)
	// Create はカフェを作成する。同じplace_idのカフェがあればそれを返し、createdはfalseになる。
	Create(ctx context.Context, userID string, place model.PlaceFields) (*model.Cafe, bool, error)
}

// CafeHandler はカフェ管理のHTTPハンドラー。
type CafeHandler struct {
	service CafeServiceInterface
}

// NewCafeHandler はCafeHandlerを生成する。
func NewCafeHandler(service CafeServiceInterface) *CafeHandler {
	return &CafeHandler{service: service}
}

// cafeResponse はカフェのAPIレスポンス。
type cafeResponse struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Address        *string   `json:"address"`
	City           *string   `json:"city"`
	PlaceID        *string   `json:"place_id"`
	PhotoReference *string   `json:"photo_reference"`
	Lat            *float64  `json:"lat"`
	Lng            *float64  `json:"lng"`
	CreatedAt      time.Time `json:"created_at"`
}

// cafeWithVisitsResponse は一覧用に訪問集計を付与したレスポンス。
type cafeWithVisitsResponse struct {
	cafeResponse
	DrinkCount int        `json:"drink_count"`
	LastVisit  *time.Time `json:"last_visit"`
}

// placeRequest はカフェ作成とウィッシュリスト追加で共通の場所フィールド。
type placeRequest struct {
	Name           string   `json:"name" validate:"required,max=255"`
	Address        *string  `json:"address" validate:"omitempty,max=500"`
	City           *string  `json:"city" validate:"omitempty,max=255"`
	PlaceID        *string  `json:"place_id" validate:"omitempty,max=255"`
	PhotoReference *string  `json:"photo_reference" validate:"omitempty,max=2000"`
	Lat            *float64 `json:"lat" validate:"omitempty,gte=-90,lte=90"`
	Lng            *float64 `json:"lng" validate:"omitempty,gte=-180,lte=180"`
}

func (p placeRequest) toPlaceFields() model.PlaceFields {
	return model.PlaceFields{
		Name:           p.Name,
		Address:        p.Address,
		City:           p.City,
		PlaceID:        p.PlaceID,
		PhotoReference: p.PhotoReference,
		Lat:            p.Lat,
		Lng:            p.Lng,
	}
}

func toCafeResponse(c *model.Cafe) cafeResponse {
	return cafeResponse{
		ID:             c.ID,
		Name:           c.Name,
		Address:        c.Address,
		City:           c.City,
		PlaceID:        c.PlaceID,
		PhotoReference: c.PhotoReference,
		Lat:            c.Lat,
		Lng:            c.Lng,
		CreatedAt:      c.CreatedAt,
	}
}

// ListCafes はカフェ一覧を返す。
// GET /api/cafes
func (h *CafeHandler) ListCafes(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	cafes, err := h.service.List(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]cafeWithVisitsResponse, len(cafes))
	for i := range cafes {
		resp[i] = cafeWithVisitsResponse{
			cafeResponse: toCafeResponse(&cafes[i].Cafe),
			DrinkCount:   cafes[i].DrinkCount,
			LastVisit:    cafes[i].LastVisit,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetCafe は1件のカフェを返す。
// GET /api/cafes/{id}
func (h *CafeHandler) GetCafe(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	id, ok := parseIDParam(w, r, model.NewCafeNotFoundError)
	if !ok {
		return
	}

	c, err := h.service.Get(r.Context(), userID, id)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCafeResponse(c))
}

// CreateCafe はカフェを作成する。
// 同じplace_idのカフェが既にある場合は作成せず200で既存のカフェを返す。
// POST /api/cafes
func (h *CafeHandler) CreateCafe(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req placeRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	c, created, err := h.service.Create(r.Context(), userID, req.toPlaceFields())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, toCafeResponse(c))
}
