package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/brewlog/internal/middleware"
	"github.com/hitoshi/brewlog/internal/model"
	"github.com/hitoshi/brewlog/internal/repository"
	"github.com/hitoshi/brewlog/internal/stats"
)

// withUserID はテスト用にコンテキストにユーザーIDを注入するヘルパー。
func withUserID(r *http.Request, userID string) *http.Request {
	ctx := middleware.ContextWithUserID(r.Context(), userID)
	return r.WithContext(ctx)
}

// withChiURLParam はテスト用にchiのURLパラメータを注入するヘルパー。
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	return r.WithContext(ctx)
}

// parseAPIErrorResponse はレスポンスボディからAPIErrorレスポンスをパースするヘルパー。
func parseAPIErrorResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var result map[string]string
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return result
}

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }

// --- モック ---

type mockCafeService struct {
	listFn   func(ctx context.Context, userID string) ([]model.CafeWithVisits, error)
	getFn    func(ctx context.Context, userID string, id int64) (*model.Cafe, error)
	createFn func(ctx context.Context, userID string, place model.PlaceFields) (*model.Cafe, bool, error)
}

func (m *mockCafeService) List(ctx context.Context, userID string) ([]model.CafeWithVisits, error) {
	return m.listFn(ctx, userID)
}

func (m *mockCafeService) Get(ctx context.Context, userID string, id int64) (*model.Cafe, error) {
	return m.getFn(ctx, userID, id)
}

func (m *mockCafeService) Create(ctx context.Context, userID string, place model.PlaceFields) (*model.Cafe, bool, error) {
	return m.createFn(ctx, userID, place)
}

type mockDrinkService struct {
	listFn   func(ctx context.Context, userID string, filter model.DrinkFilter) ([]model.DrinkWithCafe, error)
	getFn    func(ctx context.Context, userID string, id int64) (*model.DrinkWithCafe, error)
	lastFn   func(ctx context.Context, userID string) (*model.DrinkWithCafe, error)
	typesFn  func(ctx context.Context, userID string) ([]model.DrinkTypeCount, error)
	createFn func(ctx context.Context, userID string, in model.NewDrink) (*model.DrinkWithCafe, error)
	deleteFn func(ctx context.Context, userID string, id int64) error
}

func (m *mockDrinkService) List(ctx context.Context, userID string, filter model.DrinkFilter) ([]model.DrinkWithCafe, error) {
	return m.listFn(ctx, userID, filter)
}

func (m *mockDrinkService) Get(ctx context.Context, userID string, id int64) (*model.DrinkWithCafe, error) {
	return m.getFn(ctx, userID, id)
}

func (m *mockDrinkService) Last(ctx context.Context, userID string) (*model.DrinkWithCafe, error) {
	return m.lastFn(ctx, userID)
}

func (m *mockDrinkService) Types(ctx context.Context, userID string) ([]model.DrinkTypeCount, error) {
	return m.typesFn(ctx, userID)
}

func (m *mockDrinkService) Create(ctx context.Context, userID string, in model.NewDrink) (*model.DrinkWithCafe, error) {
	return m.createFn(ctx, userID, in)
}

func (m *mockDrinkService) Delete(ctx context.Context, userID string, id int64) error {
	return m.deleteFn(ctx, userID, id)
}

type mockStatsService struct {
	summaryFn func(ctx context.Context, userID string) (*stats.Summary, error)
}

func (m *mockStatsService) Summary(ctx context.Context, userID string) (*stats.Summary, error) {
	return m.summaryFn(ctx, userID)
}

type mockWishlistService struct {
	listFn   func(ctx context.Context, userID string) ([]model.WishlistItem, error)
	addFn    func(ctx context.Context, userID string, place model.PlaceFields, notes *string) (*model.WishlistItem, error)
	removeFn func(ctx context.Context, userID string, id int64) error
	visitFn  func(ctx context.Context, userID string, id int64) (*model.Cafe, error)
}

func (m *mockWishlistService) List(ctx context.Context, userID string) ([]model.WishlistItem, error) {
	return m.listFn(ctx, userID)
}

func (m *mockWishlistService) Add(ctx context.Context, userID string, place model.PlaceFields, notes *string) (*model.WishlistItem, error) {
	return m.addFn(ctx, userID, place, notes)
}

func (m *mockWishlistService) Remove(ctx context.Context, userID string, id int64) error {
	return m.removeFn(ctx, userID, id)
}

func (m *mockWishlistService) Visit(ctx context.Context, userID string, id int64) (*model.Cafe, error) {
	return m.visitFn(ctx, userID, id)
}

type mockUserService struct {
	wipeDataFn func(ctx context.Context, userID string) (*repository.DeletedCounts, error)
}

func (m *mockUserService) WipeData(ctx context.Context, userID string) (*repository.DeletedCounts, error) {
	return m.wipeDataFn(ctx, userID)
}

type mockAIService struct {
	parseFn     func(ctx context.Context, userID, text string) (*parseDrinkResponse, error)
	recommendFn func(ctx context.Context, userID string) (*recommendationsResponse, error)
}

func (m *mockAIService) ParseDrink(ctx context.Context, userID, text string) (*parseDrinkResponse, error) {
	return m.parseFn(ctx, userID, text)
}

func (m *mockAIService) Recommend(ctx context.Context, userID string) (*recommendationsResponse, error) {
	return m.recommendFn(ctx, userID)
}

type mockPlacesService struct {
	autocompleteFn func(ctx context.Context, input string) ([]predictionResponse, error)
	detailsFn      func(ctx context.Context, placeID string) (*model.PlaceFields, error)
}

func (m *mockPlacesService) Autocomplete(ctx context.Context, input string) ([]predictionResponse, error) {
	return m.autocompleteFn(ctx, input)
}

func (m *mockPlacesService) Details(ctx context.Context, placeID string) (*model.PlaceFields, error) {
	return m.detailsFn(ctx, placeID)
}
