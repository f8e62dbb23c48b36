package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/brewlog/internal/assistant"
	"github.com/hitoshi/brewlog/internal/model"
	"github.com/hitoshi/brewlog/internal/places"
)

type stubDrinkLister struct {
	drinks []model.DrinkWithCafe
}

func (s stubDrinkLister) ListForStats(ctx context.Context, userID string) ([]model.DrinkWithCafe, error) {
	return s.drinks, nil
}

type stubCafeNames struct{}

func (stubCafeNames) ListNames(ctx context.Context, userID string) ([]model.CafeName, error) {
	return nil, nil
}

func TestAssistantAdapter_Recommend_CannedForNewUser(t *testing.T) {
	adapter := NewAssistantAdapter(
		assistant.NewParser(nil, stubCafeNames{}, nil, nil),
		assistant.NewRecommender(nil, stubDrinkLister{}, nil, nil),
	)

	resp, err := adapter.Recommend(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if resp.Recommendation.Suggestion == "" {
		t.Error("canned suggestion should not be empty")
	}
	if resp.UserProfile.TotalDrinksAnalyzed != 0 {
		t.Errorf("TotalDrinksAnalyzed = %d, want 0", resp.UserProfile.TotalDrinksAnalyzed)
	}

	// 空のリストはnullではなく[]として出力する
	b, _ := json.Marshal(resp)
	var got map[string]map[string]any
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	for _, key := range []string{"favorite_tags", "high_rated_tags", "unexplored_tags"} {
		if _, ok := got["user_profile"][key].([]any); !ok {
			t.Errorf("user_profile.%s = %v, want array", key, got["user_profile"][key])
		}
	}
}

func TestAssistantAdapter_ParseDrink_NotConfigured(t *testing.T) {
	adapter := NewAssistantAdapter(
		assistant.NewParser(nil, stubCafeNames{}, nil, nil),
		assistant.NewRecommender(nil, stubDrinkLister{}, nil, nil),
	)

	_, err := adapter.ParseDrink(context.Background(), "user-1", "a latte")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeAINotConfigured {
		t.Errorf("err = %v, want AI_NOT_CONFIGURED", err)
	}
}

func TestPlacesAdapter_Autocomplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"OK","predictions":[{"place_id":"p-1","description":"Onyx Coffee Lab, Rogers","structured_formatting":{"main_text":"Onyx Coffee Lab","secondary_text":"Rogers"}}]}`))
	}))
	defer srv.Close()

	adapter := NewPlacesAdapter(places.NewClient(srv.Client(), nil, srv.URL, "test-key"))

	preds, err := adapter.Autocomplete(context.Background(), "onyx")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(preds) != 1 || preds[0].PlaceID != "p-1" || preds[0].MainText != "Onyx Coffee Lab" {
		t.Errorf("predictions = %+v", preds)
	}
}
