package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/brewlog/internal/model"
)

// PlacesServiceInterface は場所検索ハンドラーが必要とするサービスインターフェース。
type PlacesServiceInterface interface {
	Autocomplete(ctx context.Context, input string) ([]predictionResponse, error)
	Details(ctx context.Context, placeID string) (*model.PlaceFields, error)
}

// PlacesHandler は地図APIを中継するHTTPハンドラー。APIキーはサーバー側に留める。
type PlacesHandler struct {
	service PlacesServiceInterface
}

// NewPlacesHandler はPlacesHandlerを生成する。
func NewPlacesHandler(service PlacesServiceInterface) *PlacesHandler {
	return &PlacesHandler{service: service}
}

// predictionResponse は入力補完の候補1件。
type predictionResponse struct {
	PlaceID       string `json:"place_id"`
	Description   string `json:"description"`
	MainText      string `json:"main_text"`
	SecondaryText string `json:"secondary_text"`
}

// placeDetailsResponse は場所詳細のAPIレスポンス。カフェ作成リクエストにそのまま使える。
type placeDetailsResponse struct {
	Name           string   `json:"name"`
	Address        *string  `json:"address"`
	City           *string  `json:"city"`
	PlaceID        *string  `json:"place_id"`
	PhotoReference *string  `json:"photo_reference"`
	Lat            *float64 `json:"lat"`
	Lng            *float64 `json:"lng"`
}

// Autocomplete はカフェ名の入力補完候補を返す。
// GET /api/places/autocomplete?input=
func (h *PlacesHandler) Autocomplete(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUserID(w, r); !ok {
		return
	}

	input := strings.TrimSpace(r.URL.Query().Get("input"))
	if input == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("input is required"))
		return
	}
	if len([]rune(input)) > 200 {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("input must be at most 200 characters"))
		return
	}

	predictions, err := h.service.Autocomplete(r.Context(), input)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, predictions)
}

// GetPlace は場所の詳細を返す。
// GET /api/places/{placeID}
func (h *PlacesHandler) GetPlace(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUserID(w, r); !ok {
		return
	}

	placeID := chi.URLParam(r, "placeID")
	if placeID == "" || len(placeID) > 255 {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewPlaceNotFoundError())
		return
	}

	p, err := h.service.Details(r.Context(), placeID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, placeDetailsResponse{
		Name:           p.Name,
		Address:        p.Address,
		City:           p.City,
		PlaceID:        p.PlaceID,
		PhotoReference: p.PhotoReference,
		Lat:            p.Lat,
		Lng:            p.Lng,
	})
}
