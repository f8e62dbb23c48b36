package handler

import (
	"context"
	"net/http"
)

// AIServiceInterface はAIハンドラーが必要とするサービスインターフェース。
type AIServiceInterface interface {
	// ParseDrink は自然文からドリンク記録の下書きを作る。
	ParseDrink(ctx context.Context, userID, text string) (*parseDrinkResponse, error)
	// Recommend は記録履歴から次に試すドリンクを提案する。
	Recommend(ctx context.Context, userID string) (*recommendationsResponse, error)
}

// AIHandler はAI機能のHTTPハンドラー。
type AIHandler struct {
	service AIServiceInterface
}

// NewAIHandler はAIHandlerを生成する。
func NewAIHandler(service AIServiceInterface) *AIHandler {
	return &AIHandler{service: service}
}

// parseDrinkRequest は自然文解析リクエストのボディ。
type parseDrinkRequest struct {
	Text string `json:"text" validate:"required,max=1000"`
}

// drinkDraftResponse はフォームに流し込むドリンク下書き。
type drinkDraftResponse struct {
	DrinkType         *string  `json:"drink_type"`
	CafeName          *string  `json:"cafe_name"`
	CafeID            *int64   `json:"cafe_id"`
	MatchedCafeName   *string  `json:"matched_cafe_name"`
	LocationHint      *string  `json:"location_hint"`
	PlacesSearchQuery *string  `json:"places_search_query"`
	FlavorTags        []string `json:"flavor_tags"`
	Price             *float64 `json:"price"`
	Rating            *float64 `json:"rating"`
	Notes             *string  `json:"notes"`
}

// parseDrinkResponse は自然文解析のAPIレスポンス。
type parseDrinkResponse struct {
	Data              drinkDraftResponse `json:"data"`
	RawInterpretation string             `json:"raw_interpretation"`
}

// recommendationResponse はLLMの提案内容。
type recommendationResponse struct {
	Suggestion      string   `json:"suggestion"`
	Reasoning       string   `json:"reasoning"`
	RecommendedTags []string `json:"recommended_tags"`
	TryNextDrink    *string  `json:"try_next_drink"`
}

// userProfileResponse は提案の根拠となった嗜好の要約。
type userProfileResponse struct {
	FavoriteTags        []string `json:"favorite_tags"`
	HighRatedTags       []string `json:"high_rated_tags"`
	UnexploredTags      []string `json:"unexplored_tags"`
	TotalDrinksAnalyzed int      `json:"total_drinks_analyzed"`
}

// recommendationsResponse は提案APIのレスポンス。
type recommendationsResponse struct {
	Recommendation recommendationResponse `json:"recommendation"`
	UserProfile    userProfileResponse    `json:"user_profile"`
}

// ParseDrink は自然文を解析してドリンクの下書きを返す。
// POST /api/ai/parse
func (h *AIHandler) ParseDrink(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req parseDrinkRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	resp, err := h.service.ParseDrink(r.Context(), userID, req.Text)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Recommend は次に試すドリンクの提案を返す。
// POST /api/ai/recommendations
func (h *AIHandler) Recommend(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	resp, err := h.service.Recommend(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
