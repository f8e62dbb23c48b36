package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/hitoshi/brewlog/internal/metrics"
	"github.com/hitoshi/brewlog/internal/model"
	"github.com/hitoshi/brewlog/internal/security"
)

// MinDrinksForRecommendation はLLMに問い合わせるのに必要な最小記録数。
const MinDrinksForRecommendation = 3

// DrinkLister はプロフィール作成に使うドリンク読み出しのインターフェース。
type DrinkLister interface {
	ListForStats(ctx context.Context, userID string) ([]model.DrinkWithCafe, error)
}

// Recommendation はユーザーへの提案。
type Recommendation struct {
	Suggestion      string
	Reasoning       string
	RecommendedTags []string
	TryNextDrink    *string
}

// Profile はおすすめの根拠にしたユーザーの傾向。
type Profile struct {
	FavoriteTags   []string
	HighRatedTags  []string
	UnexploredTags []string
	TotalDrinks    int
}

// RecommendResult はおすすめとプロフィールの組。
type RecommendResult struct {
	Recommendation Recommendation
	Profile        Profile
}

type tagStat struct {
	tag   string
	count int
	sum   float64
}

func (s tagStat) avg() float64 { return s.sum / float64(s.count) }

type typeStat struct {
	drinkType string
	count     int
}

// tasteProfile はドリンク履歴から組み立てたプロンプト用の集計。
type tasteProfile struct {
	total       int
	tags        []tagStat
	types       []typeStat
	recentLiked []model.DrinkWithCafe
	unexplored  []string
}

// Recommender はドリンク履歴からおすすめを生成する。
type Recommender struct {
	gen       Generator
	drinks    DrinkLister
	sanitizer *security.TextSanitizer
	recorder  Recorder
}

// NewRecommender はRecommenderを生成する。
// genがnilの場合、記録数が十分でもAI_NOT_CONFIGUREDを返す。
func NewRecommender(gen Generator, drinks DrinkLister, sanitizer *security.TextSanitizer, recorder Recorder) *Recommender {
	if sanitizer == nil {
		sanitizer = security.NewTextSanitizer()
	}
	return &Recommender{gen: gen, drinks: drinks, sanitizer: sanitizer, recorder: recorder}
}

// Recommend はユーザーへのおすすめを返す。
// 記録が3件未満の場合はLLMを呼ばずに定型の提案を返す。
func (r *Recommender) Recommend(ctx context.Context, userID string) (*RecommendResult, error) {
	rows, err := r.drinks.ListForStats(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list drinks for recommendation: %w", err)
	}

	if len(rows) < MinDrinksForRecommendation {
		r.record(metrics.OutcomeFallback)
		return cannedRecommendation(len(rows)), nil
	}
	if r.gen == nil {
		return nil, model.NewAINotConfiguredError()
	}

	profile := buildProfile(rows)

	out, err := complete(ctx, r.gen, recommendSystemPrompt, profile.summary())
	if err != nil {
		r.record(metrics.OutcomeError)
		slog.Error("llm recommendation failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return nil, model.NewUpstreamError("AI service")
	}

	var rec struct {
		Suggestion      string   `json:"suggestion"`
		Reasoning       string   `json:"reasoning"`
		RecommendedTags []string `json:"recommended_tags"`
		TryNextDrink    string   `json:"try_next_drink"`
	}
	raw, err := extractJSON(out)
	if err == nil {
		err = json.Unmarshal([]byte(raw), &rec)
	}
	suggestion := r.sanitizer.CleanLimited(rec.Suggestion, security.MaxTextLength)
	if err == nil && suggestion == "" {
		err = fmt.Errorf("recommendation without suggestion")
	}
	if err != nil {
		r.record(metrics.OutcomeError)
		slog.Error("llm recommendation returned malformed output",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return nil, model.NewUpstreamError("AI service")
	}

	r.record(metrics.OutcomeSuccess)

	result := &RecommendResult{
		Recommendation: Recommendation{
			Suggestion:      suggestion,
			Reasoning:       r.sanitizer.CleanLimited(rec.Reasoning, security.MaxTextLength),
			RecommendedTags: model.FilterFlavorTags(rec.RecommendedTags),
		},
		Profile: profile.public(),
	}
	if next := r.sanitizer.CleanLimited(rec.TryNextDrink, 100); next != "" {
		result.Recommendation.TryNextDrink = &next
	}
	return result, nil
}

func (r *Recommender) record(outcome string) {
	if r.recorder != nil {
		r.recorder.RecordAIRequest(OperationRecommend, outcome)
	}
}

func cannedRecommendation(total int) *RecommendResult {
	return &RecommendResult{
		Recommendation: Recommendation{
			Suggestion:      "Log a few more drinks to get personalized recommendations! Try different flavor profiles to help us understand your preferences.",
			Reasoning:       fmt.Sprintf("You need at least %d logged drinks for personalized recommendations.", MinDrinksForRecommendation),
			RecommendedTags: []string{"Smooth", "Chocolatey", "Caramel"},
		},
		Profile: Profile{
			FavoriteTags:   []string{},
			HighRatedTags:  []string{},
			UnexploredTags: []string{},
			TotalDrinks:    total,
		},
	}
}

// buildProfile はタグ・ドリンク種別の頻度と最近の高評価ドリンクを集計する。
func buildProfile(rows []model.DrinkWithCafe) tasteProfile {
	p := tasteProfile{total: len(rows)}

	tagIdx := make(map[string]int)
	typeIdx := make(map[string]int)
	for _, d := range rows {
		seen := make(map[string]bool, len(d.FlavorTags))
		for _, t := range model.FilterFlavorTags(d.FlavorTags) {
			if seen[t] {
				continue
			}
			seen[t] = true
			i, ok := tagIdx[t]
			if !ok {
				i = len(p.tags)
				tagIdx[t] = i
				p.tags = append(p.tags, tagStat{tag: t})
			}
			p.tags[i].count++
			p.tags[i].sum += d.Rating
		}

		i, ok := typeIdx[d.DrinkType]
		if !ok {
			i = len(p.types)
			typeIdx[d.DrinkType] = i
			p.types = append(p.types, typeStat{drinkType: d.DrinkType})
		}
		p.types[i].count++

		if d.Rating >= 4 {
			p.recentLiked = append(p.recentLiked, d)
		}
	}

	sort.Slice(p.tags, func(i, j int) bool {
		if p.tags[i].count != p.tags[j].count {
			return p.tags[i].count > p.tags[j].count
		}
		return p.tags[i].tag < p.tags[j].tag
	})
	sort.Slice(p.types, func(i, j int) bool {
		if p.types[i].count != p.types[j].count {
			return p.types[i].count > p.types[j].count
		}
		return p.types[i].drinkType < p.types[j].drinkType
	})
	sort.SliceStable(p.recentLiked, func(i, j int) bool {
		a, b := p.recentLiked[i], p.recentLiked[j]
		if !a.LoggedAt.Equal(b.LoggedAt) {
			return a.LoggedAt.After(b.LoggedAt)
		}
		return a.ID > b.ID
	})
	if len(p.recentLiked) > 5 {
		p.recentLiked = p.recentLiked[:5]
	}

	for _, t := range model.FlavorTags {
		if _, ok := tagIdx[t]; !ok {
			p.unexplored = append(p.unexplored, t)
		}
	}
	return p
}

func (p tasteProfile) highRated() []string {
	out := []string{}
	for _, s := range p.tags {
		if s.avg() >= 4 {
			out = append(out, s.tag)
		}
	}
	return out
}

func (p tasteProfile) public() Profile {
	favorite := []string{}
	for i := 0; i < len(p.tags) && i < 3; i++ {
		favorite = append(favorite, p.tags[i].tag)
	}
	high := p.highRated()
	if len(high) > 5 {
		high = high[:5]
	}
	unexplored := append([]string{}, p.unexplored...)
	return Profile{
		FavoriteTags:   favorite,
		HighRatedTags:  high,
		UnexploredTags: unexplored,
		TotalDrinks:    p.total,
	}
}

// summary はLLMに渡すプロフィールの文章を組み立てる。
func (p tasteProfile) summary() string {
	var tags []string
	for i := 0; i < len(p.tags) && i < 5; i++ {
		s := p.tags[i]
		tags = append(tags, fmt.Sprintf("%s (%dx, avg %.2f)", s.tag, s.count, s.avg()))
	}
	var types []string
	for i := 0; i < len(p.types) && i < 3; i++ {
		types = append(types, fmt.Sprintf("%s (%dx)", p.types[i].drinkType, p.types[i].count))
	}
	var liked []string
	for _, d := range p.recentLiked {
		liked = append(liked, fmt.Sprintf("%s at %s (%.1f/5)", d.DrinkType, d.CafeName, d.Rating))
	}
	high := p.highRated()
	if len(high) > 3 {
		high = high[:3]
	}
	unexplored := p.unexplored
	if len(unexplored) > 5 {
		unexplored = unexplored[:5]
	}

	var b strings.Builder
	b.WriteString("User coffee profile:\n")
	fmt.Fprintf(&b, "- Total drinks logged: %d\n", p.total)
	fmt.Fprintf(&b, "- Most used flavor tags: %s\n", joinOr(tags, "None yet"))
	fmt.Fprintf(&b, "- Highest rated tags: %s\n", joinOr(high, "Not enough data"))
	fmt.Fprintf(&b, "- Tags not yet explored: %s\n", joinOr(unexplored, "All explored"))
	fmt.Fprintf(&b, "- Favorite drink types: %s\n", joinOr(types, "Varied"))
	fmt.Fprintf(&b, "- Recent highly rated drinks: %s\n", joinOr(liked, "None recently"))
	return b.String()
}

func joinOr(items []string, fallback string) string {
	if len(items) == 0 {
		return fallback
	}
	return strings.Join(items, ", ")
}

var recommendSystemPrompt = `You recommend coffee to a regular cafe visitor based on their journal.
Be encouraging and specific. Either suggest exploring flavor profiles they have not tried,
or doubling down on what they love.
Reply with a single JSON object and nothing else, using these keys:
  "suggestion": a friendly, personal recommendation of one or two sentences
  "reasoning": a short explanation of why it fits this drinker
  "recommended_tags": array of flavor tags to try next, only from: ` + strings.Join(model.FlavorTags, ", ") + `
  "try_next_drink": one specific drink to order next, for example "Cortado"`
