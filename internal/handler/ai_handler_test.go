package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/brewlog/internal/model"
)

func TestAIHandler_ParseDrink_Success(t *testing.T) {
	svc := &mockAIService{
		parseFn: func(ctx context.Context, userID, text string) (*parseDrinkResponse, error) {
			if text != "oat flat white at sey, 4 stars" {
				t.Errorf("text = %q", text)
			}
			id := int64(1)
			return &parseDrinkResponse{
				Data: drinkDraftResponse{
					DrinkType:  strPtr("Flat White"),
					CafeID:     &id,
					FlavorTags: []string{},
					Rating:     floatPtr(4),
				},
				RawInterpretation: "Flat white at Sey",
			}, nil
		},
	}
	h := NewAIHandler(svc)

	req := withUserID(httptest.NewRequest(http.MethodPost, "/api/ai/parse", strings.NewReader(`{"text":"oat flat white at sey, 4 stars"}`)), "user-1")
	w := httptest.NewRecorder()
	h.ParseDrink(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var got struct {
		Data struct {
			DrinkType string `json:"drink_type"`
			CafeID    int64  `json:"cafe_id"`
		} `json:"data"`
		RawInterpretation string `json:"raw_interpretation"`
	}
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.Data.DrinkType != "Flat White" || got.Data.CafeID != 1 || got.RawInterpretation != "Flat white at Sey" {
		t.Errorf("response = %+v", got)
	}
}

func TestAIHandler_ParseDrink_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing text", `{}`},
		{"too long", `{"text":"` + strings.Repeat("a", 1001) + `"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewAIHandler(&mockAIService{})

			req := withUserID(httptest.NewRequest(http.MethodPost, "/api/ai/parse", strings.NewReader(tt.body)), "user-1")
			w := httptest.NewRecorder()
			h.ParseDrink(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestAIHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not configured", model.NewAINotConfiguredError(), http.StatusServiceUnavailable, model.ErrCodeAINotConfigured},
		{"upstream failure", model.NewUpstreamError("AI service"), http.StatusInternalServerError, model.ErrCodeUpstream},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockAIService{
				recommendFn: func(ctx context.Context, userID string) (*recommendationsResponse, error) {
					return nil, tt.err
				},
			}
			h := NewAIHandler(svc)

			req := withUserID(httptest.NewRequest(http.MethodPost, "/api/ai/recommendations", nil), "user-1")
			w := httptest.NewRecorder()
			h.Recommend(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if body := parseAPIErrorResponse(t, w); body["code"] != tt.wantCode {
				t.Errorf("code = %q, want %q", body["code"], tt.wantCode)
			}
		})
	}
}

func TestAIHandler_Recommend_Success(t *testing.T) {
	svc := &mockAIService{
		recommendFn: func(ctx context.Context, userID string) (*recommendationsResponse, error) {
			return &recommendationsResponse{
				Recommendation: recommendationResponse{
					Suggestion:      "Try a washed Ethiopian pour over",
					RecommendedTags: []string{"Floral"},
				},
				UserProfile: userProfileResponse{
					FavoriteTags:        []string{"Fruity"},
					HighRatedTags:       []string{},
					UnexploredTags:      []string{"Floral"},
					TotalDrinksAnalyzed: 4,
				},
			}, nil
		},
	}
	h := NewAIHandler(svc)

	req := withUserID(httptest.NewRequest(http.MethodPost, "/api/ai/recommendations", nil), "user-1")
	w := httptest.NewRecorder()
	h.Recommend(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var got map[string]map[string]any
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got["recommendation"]["suggestion"] != "Try a washed Ethiopian pour over" {
		t.Errorf("suggestion = %v", got["recommendation"]["suggestion"])
	}
	if got["user_profile"]["total_drinks_analyzed"] != float64(4) {
		t.Errorf("total_drinks_analyzed = %v, want 4", got["user_profile"]["total_drinks_analyzed"])
	}
}
