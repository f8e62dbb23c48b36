package handler

import (
	"context"

	"github.com/hitoshi/brewlog/internal/assistant"
	"github.com/hitoshi/brewlog/internal/cafe"
	"github.com/hitoshi/brewlog/internal/drink"
	"github.com/hitoshi/brewlog/internal/model"
	"github.com/hitoshi/brewlog/internal/places"
	"github.com/hitoshi/brewlog/internal/stats"
	"github.com/hitoshi/brewlog/internal/user"
	"github.com/hitoshi/brewlog/internal/wishlist"
)

// ドメイン型をそのまま返すサービスはアダプタなしでインターフェースを満たす。
var (
	_ CafeServiceInterface     = (*cafe.Service)(nil)
	_ DrinkServiceInterface    = (*drink.Service)(nil)
	_ WishlistServiceInterface = (*wishlist.Service)(nil)
	_ StatsServiceInterface    = (*stats.Service)(nil)
	_ UserServiceInterface     = (*user.Service)(nil)
)

// AssistantAdapter は assistant.Parser と assistant.Recommender を AIServiceInterface に適合させるアダプタ。
type AssistantAdapter struct {
	parser      *assistant.Parser
	recommender *assistant.Recommender
}

// NewAssistantAdapter はAssistantAdapterを生成する。
func NewAssistantAdapter(parser *assistant.Parser, recommender *assistant.Recommender) *AssistantAdapter {
	return &AssistantAdapter{parser: parser, recommender: recommender}
}

// ParseDrink は解析結果をhandlerレスポンス型で返す。
func (a *AssistantAdapter) ParseDrink(ctx context.Context, userID, text string) (*parseDrinkResponse, error) {
	res, err := a.parser.Parse(ctx, userID, text)
	if err != nil {
		return nil, err
	}

	d := res.Draft
	tags := d.FlavorTags
	if tags == nil {
		tags = []string{}
	}
	return &parseDrinkResponse{
		Data: drinkDraftResponse{
			DrinkType:         d.DrinkType,
			CafeName:          d.CafeName,
			CafeID:            d.CafeID,
			MatchedCafeName:   d.MatchedCafeName,
			LocationHint:      d.LocationHint,
			PlacesSearchQuery: d.PlacesSearchQuery,
			FlavorTags:        tags,
			Price:             d.Price,
			Rating:            d.Rating,
			Notes:             d.Notes,
		},
		RawInterpretation: res.Interpretation,
	}, nil
}

// Recommend は提案結果をhandlerレスポンス型で返す。
func (a *AssistantAdapter) Recommend(ctx context.Context, userID string) (*recommendationsResponse, error) {
	res, err := a.recommender.Recommend(ctx, userID)
	if err != nil {
		return nil, err
	}

	rec := res.Recommendation
	p := res.Profile
	return &recommendationsResponse{
		Recommendation: recommendationResponse{
			Suggestion:      rec.Suggestion,
			Reasoning:       rec.Reasoning,
			RecommendedTags: nonNil(rec.RecommendedTags),
			TryNextDrink:    rec.TryNextDrink,
		},
		UserProfile: userProfileResponse{
			FavoriteTags:        nonNil(p.FavoriteTags),
			HighRatedTags:       nonNil(p.HighRatedTags),
			UnexploredTags:      nonNil(p.UnexploredTags),
			TotalDrinksAnalyzed: p.TotalDrinks,
		},
	}, nil
}

// PlacesAdapter は places.Client を PlacesServiceInterface に適合させるアダプタ。
type PlacesAdapter struct {
	client *places.Client
}

// NewPlacesAdapter はPlacesAdapterを生成する。
func NewPlacesAdapter(client *places.Client) *PlacesAdapter {
	return &PlacesAdapter{client: client}
}

// Autocomplete は入力補完候補をhandlerレスポンス型で返す。
func (a *PlacesAdapter) Autocomplete(ctx context.Context, input string) ([]predictionResponse, error) {
	preds, err := a.client.Autocomplete(ctx, input)
	if err != nil {
		return nil, err
	}

	results := make([]predictionResponse, len(preds))
	for i, p := range preds {
		results[i] = predictionResponse{
			PlaceID:       p.PlaceID,
			Description:   p.Description,
			MainText:      p.MainText,
			SecondaryText: p.SecondaryText,
		}
	}
	return results, nil
}

// Details は場所の詳細を返す。
func (a *PlacesAdapter) Details(ctx context.Context, placeID string) (*model.PlaceFields, error) {
	return a.client.Details(ctx, placeID)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
