package assistant

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"

	"github.com/hitoshi/brewlog/internal/metrics"
	"github.com/hitoshi/brewlog/internal/model"
)

// fakeGenerator は固定の応答を返し、受け取ったメッセージを記録する。
type fakeGenerator struct {
	content  string
	err      error
	calls    int
	messages []llms.MessageContent
}

func (f *fakeGenerator) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.calls++
	f.messages = messages
	if f.err != nil {
		return nil, f.err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: f.content}}}, nil
}

func (f *fakeGenerator) text(i int) string {
	var b strings.Builder
	for _, p := range f.messages[i].Parts {
		if tp, ok := p.(llms.TextContent); ok {
			b.WriteString(tp.Text)
		}
	}
	return b.String()
}

type fakeCafes struct {
	names []model.CafeName
	err   error
}

func (f *fakeCafes) ListNames(ctx context.Context, userID string) ([]model.CafeName, error) {
	return f.names, f.err
}

type fakeDrinks struct {
	rows []model.DrinkWithCafe
	err  error
}

func (f *fakeDrinks) ListForStats(ctx context.Context, userID string) ([]model.DrinkWithCafe, error) {
	return f.rows, f.err
}

type outcomeRecorder struct {
	outcomes []string
}

func (r *outcomeRecorder) RecordAIRequest(operation, outcome string) {
	r.outcomes = append(r.outcomes, operation+":"+outcome)
}

func requireAPIError(t *testing.T, err error, code string) {
	t.Helper()
	var apiErr *model.APIError
	require.True(t, errors.As(err, &apiErr), "expected APIError, got %v", err)
	assert.Equal(t, code, apiErr.Code)
}

// --- MatchCafe ---

func TestMatchCafe(t *testing.T) {
	cafes := []model.CafeName{
		{ID: 1, Name: "Blue Bottle Coffee"},
		{ID: 2, Name: "Blue Bottle"},
		{ID: 3, Name: "Stumptown Coffee Roasters"},
		{ID: 4, Name: "Sightglass"},
	}

	tests := []struct {
		name   string
		input  string
		wantID int64
	}{
		{"exact beats earlier substring", "blue bottle", 2},
		{"case and whitespace", "  SIGHTGLASS ", 4},
		{"input contains cafe name", "sightglass on 7th", 4},
		{"cafe name contains input", "stumptown", 3},
		{"word overlap", "Roasters Stumptown Portland", 3},
		{"short words ignored", "to go", 0},
		{"no match", "Ritual", 0},
		{"empty", "   ", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MatchCafe(tt.input, cafes)
			if tt.wantID == 0 {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.wantID, got.ID)
		})
	}
}

func TestMatchCafe_SubstringPrefersListOrder(t *testing.T) {
	cafes := []model.CafeName{
		{ID: 7, Name: "Verve Coffee"},
		{ID: 8, Name: "Verve"},
	}
	got := MatchCafe("verve coffee roasters", cafes)
	require.NotNil(t, got)
	assert.Equal(t, int64(7), got.ID)
}

func TestMatchCafe_StoredNameWithSurroundingSpaces(t *testing.T) {
	cafes := []model.CafeName{
		{ID: 1, Name: "Blue Bottle Coffee"},
		{ID: 2, Name: " Blue Bottle "},
	}
	got := MatchCafe("Blue Bottle", cafes)
	require.NotNil(t, got)
	assert.Equal(t, int64(2), got.ID)
}

// --- Parser ---

func TestParser_Parse_MatchesExistingCafe(t *testing.T) {
	gen := &fakeGenerator{content: "Here you go:\n```json\n" + `{
		"drink_type": "Cortado",
		"cafe_name": "blue bottle",
		"location_hint": "Oakland",
		"flavor_tags": ["chocolatey", "Smoky", "Nutty", "Nutty"],
		"price": 4.75,
		"rating": 4.6,
		"notes": "<b>sat</b> by the window",
		"interpretation": "A cortado at Blue Bottle"
	}` + "\n```"}
	rec := &outcomeRecorder{}
	p := NewParser(gen, &fakeCafes{names: []model.CafeName{{ID: 2, Name: "Blue Bottle"}}}, nil, rec)

	res, err := p.Parse(context.Background(), "user-1", "great cortado at blue bottle oakland, $4.75")
	require.NoError(t, err)

	d := res.Draft
	require.NotNil(t, d.DrinkType)
	assert.Equal(t, "Cortado", *d.DrinkType)
	require.NotNil(t, d.CafeID)
	assert.Equal(t, int64(2), *d.CafeID)
	assert.Equal(t, "Blue Bottle", *d.MatchedCafeName)
	assert.Nil(t, d.PlacesSearchQuery)
	assert.Equal(t, []string{"Chocolatey", "Nutty"}, d.FlavorTags)
	assert.Equal(t, 5.0, *d.Rating)
	assert.Equal(t, 4.75, *d.Price)
	assert.Equal(t, "sat by the window", *d.Notes)
	assert.Equal(t, "A cortado at Blue Bottle", res.Interpretation)
	assert.Equal(t, []string{"parse:" + metrics.OutcomeSuccess}, rec.outcomes)

	require.Len(t, gen.messages, 2)
	assert.Equal(t, schema.ChatMessageTypeSystem, gen.messages[0].Role)
	assert.Contains(t, gen.text(0), "Blue Bottle")
	assert.Contains(t, gen.text(0), "Creamy")
	assert.Equal(t, "great cortado at blue bottle oakland, $4.75", gen.text(1))
}

func TestParser_Parse_NewCafeBuildsPlacesQuery(t *testing.T) {
	gen := &fakeGenerator{content: `{"cafe_name": "Ritual Coffee", "location_hint": "Mission District", "rating": 0.2, "price": 250}`}
	p := NewParser(gen, &fakeCafes{}, nil, nil)

	res, err := p.Parse(context.Background(), "user-1", "bad coffee at ritual")
	require.NoError(t, err)

	d := res.Draft
	assert.Nil(t, d.CafeID)
	require.NotNil(t, d.PlacesSearchQuery)
	assert.Equal(t, "Ritual Coffee Mission District", *d.PlacesSearchQuery)
	assert.Equal(t, 1.0, *d.Rating)
	assert.Equal(t, 100.0, *d.Price)
	assert.Empty(t, d.FlavorTags)
	assert.Nil(t, d.DrinkType)
	assert.Equal(t, defaultInterpretation, res.Interpretation)
	assert.Contains(t, gen.text(0), "no saved cafes")
}

func TestParser_Parse_PlacesQueryWithoutLocation(t *testing.T) {
	gen := &fakeGenerator{content: `{"cafe_name": "Ritual"}`}
	res, err := NewParser(gen, &fakeCafes{}, nil, nil).Parse(context.Background(), "user-1", "ritual")
	require.NoError(t, err)
	assert.Equal(t, "Ritual", *res.Draft.PlacesSearchQuery)
	assert.Nil(t, res.Draft.Rating)
	assert.Nil(t, res.Draft.Price)
}

func TestParser_Parse_InputValidation(t *testing.T) {
	gen := &fakeGenerator{content: `{}`}
	p := NewParser(gen, &fakeCafes{}, nil, nil)

	_, err := p.Parse(context.Background(), "user-1", "   ")
	requireAPIError(t, err, model.ErrCodeValidationFailed)

	_, err = p.Parse(context.Background(), "user-1", strings.Repeat("é", 1001))
	requireAPIError(t, err, model.ErrCodeValidationFailed)

	_, err = p.Parse(context.Background(), "user-1", strings.Repeat("é", 1000))
	require.NoError(t, err)
	assert.Equal(t, 1, gen.calls)
}

func TestParser_Parse_NotConfigured(t *testing.T) {
	_, err := NewParser(nil, &fakeCafes{}, nil, nil).Parse(context.Background(), "user-1", "latte")
	requireAPIError(t, err, model.ErrCodeAINotConfigured)
}

func TestParser_Parse_UpstreamFailures(t *testing.T) {
	tests := []struct {
		name string
		gen  *fakeGenerator
	}{
		{"provider error", &fakeGenerator{err: errors.New("anthropic: 529 overloaded, request id abc")}},
		{"empty content", &fakeGenerator{content: "  "}},
		{"not json", &fakeGenerator{content: "Sorry, I can't help with that."}},
		{"broken json", &fakeGenerator{content: `{"drink_type": }`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &outcomeRecorder{}
			_, err := NewParser(tt.gen, &fakeCafes{}, nil, rec).Parse(context.Background(), "user-1", "latte")

			requireAPIError(t, err, model.ErrCodeUpstream)
			assert.NotContains(t, err.Error(), "529")
			assert.Equal(t, []string{"parse:" + metrics.OutcomeError}, rec.outcomes)
		})
	}
}

func TestParser_Parse_CafeListError(t *testing.T) {
	gen := &fakeGenerator{content: `{}`}
	_, err := NewParser(gen, &fakeCafes{err: errors.New("db down")}, nil, nil).Parse(context.Background(), "user-1", "latte")
	require.Error(t, err)
	assert.Equal(t, 0, gen.calls)
}

// --- Recommender ---

func drinkRows() []model.DrinkWithCafe {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	mk := func(id int64, typ string, rating float64, day int, tags ...string) model.DrinkWithCafe {
		return model.DrinkWithCafe{
			Drink: model.Drink{
				ID: id, CafeID: 1, DrinkType: typ, Rating: rating,
				FlavorTags: tags, LoggedAt: base.AddDate(0, 0, day),
			},
			CafeName: "Sey",
		}
	}
	return []model.DrinkWithCafe{
		mk(1, "Latte", 3, 0, "Creamy", "Sweet"),
		mk(2, "Pour Over", 5, 1, "Fruity", "Bright"),
		mk(3, "Pour Over", 4.5, 2, "Fruity", "Floral"),
		mk(4, "Latte", 2, 3, "Creamy"),
	}
}

func TestRecommender_CannedBelowThreshold(t *testing.T) {
	gen := &fakeGenerator{content: `{}`}
	rec := &outcomeRecorder{}
	r := NewRecommender(gen, &fakeDrinks{rows: drinkRows()[:2]}, nil, rec)

	res, err := r.Recommend(context.Background(), "user-1")
	require.NoError(t, err)

	assert.Equal(t, 0, gen.calls)
	assert.Equal(t, []string{"Smooth", "Chocolatey", "Caramel"}, res.Recommendation.RecommendedTags)
	assert.Nil(t, res.Recommendation.TryNextDrink)
	assert.Equal(t, 2, res.Profile.TotalDrinks)
	assert.Empty(t, res.Profile.FavoriteTags)
	assert.Equal(t, []string{"recommend:" + metrics.OutcomeFallback}, rec.outcomes)
}

func TestRecommender_CannedEvenWhenNotConfigured(t *testing.T) {
	res, err := NewRecommender(nil, &fakeDrinks{}, nil, nil).Recommend(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 0, res.Profile.TotalDrinks)

	_, err = NewRecommender(nil, &fakeDrinks{rows: drinkRows()}, nil, nil).Recommend(context.Background(), "user-1")
	requireAPIError(t, err, model.ErrCodeAINotConfigured)
}

func TestRecommender_Recommend(t *testing.T) {
	gen := &fakeGenerator{content: `{
		"suggestion": "Try a washed Ethiopian pour over.",
		"reasoning": "You rate fruity, bright cups highest.",
		"recommended_tags": ["floral", "Berry", "Umami"],
		"try_next_drink": "Pour Over"
	}`}
	rec := &outcomeRecorder{}
	r := NewRecommender(gen, &fakeDrinks{rows: drinkRows()}, nil, rec)

	res, err := r.Recommend(context.Background(), "user-1")
	require.NoError(t, err)

	assert.Equal(t, "Try a washed Ethiopian pour over.", res.Recommendation.Suggestion)
	assert.Equal(t, []string{"Floral", "Berry"}, res.Recommendation.RecommendedTags)
	require.NotNil(t, res.Recommendation.TryNextDrink)
	assert.Equal(t, "Pour Over", *res.Recommendation.TryNextDrink)

	// Creamy 2回、Fruity 2回（同数はタグ名順）、その後は1回ずつ
	assert.Equal(t, []string{"Creamy", "Fruity", "Bright"}, res.Profile.FavoriteTags)
	assert.Equal(t, []string{"Fruity", "Bright", "Floral"}, res.Profile.HighRatedTags)
	assert.NotContains(t, res.Profile.UnexploredTags, "Fruity")
	assert.Contains(t, res.Profile.UnexploredTags, "Nutty")
	assert.Len(t, res.Profile.UnexploredTags, len(model.FlavorTags)-5)
	assert.Equal(t, 4, res.Profile.TotalDrinks)
	assert.Equal(t, []string{"recommend:" + metrics.OutcomeSuccess}, rec.outcomes)

	prompt := gen.text(1)
	assert.Contains(t, prompt, "Total drinks logged: 4")
	assert.Contains(t, prompt, "Fruity (2x, avg 4.75)")
	assert.Contains(t, prompt, "Latte (2x), Pour Over (2x)")
	assert.Contains(t, prompt, "Pour Over at Sey (4.5/5), Pour Over at Sey (5.0/5)")
}

func TestRecommender_UpstreamFailures(t *testing.T) {
	tests := []struct {
		name string
		gen  *fakeGenerator
	}{
		{"provider error", &fakeGenerator{err: errors.New("openai: 401 invalid key sk-123")}},
		{"missing suggestion", &fakeGenerator{content: `{"reasoning": "x"}`}},
		{"not json", &fakeGenerator{content: "no"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRecommender(tt.gen, &fakeDrinks{rows: drinkRows()}, nil, nil).Recommend(context.Background(), "user-1")
			requireAPIError(t, err, model.ErrCodeUpstream)
			assert.NotContains(t, err.Error(), "sk-123")
		})
	}
}

func TestRecommender_DrinkListError(t *testing.T) {
	_, err := NewRecommender(&fakeGenerator{}, &fakeDrinks{err: errors.New("db")}, nil, nil).Recommend(context.Background(), "user-1")
	require.Error(t, err)
	var apiErr *model.APIError
	assert.False(t, errors.As(err, &apiErr))
}

// --- NewModel ---

func TestNewModel(t *testing.T) {
	for _, provider := range []string{"anthropic", "OpenAI", ""} {
		m, err := NewModel(ProviderConfig{Provider: provider, APIKey: "test-key", Model: "m"}, nil)
		require.NoError(t, err, provider)
		assert.NotNil(t, m)
	}

	_, err := NewModel(ProviderConfig{Provider: "cohere", APIKey: "k"}, nil)
	assert.Error(t, err)
}

func TestExtractJSON(t *testing.T) {
	got, err := extractJSON("prefix {\"a\": {\"b\": 1}} suffix")
	require.NoError(t, err)
	assert.Equal(t, `{"a": {"b": 1}}`, got)

	_, err = extractJSON("} nothing {")
	assert.Error(t, err)
}
