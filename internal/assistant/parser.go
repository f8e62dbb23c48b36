package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/hitoshi/brewlog/internal/metrics"
	"github.com/hitoshi/brewlog/internal/model"
	"github.com/hitoshi/brewlog/internal/security"
)

// CafeNameLister はカフェ名の一覧を返すインターフェース。
// repository.CafeRepositoryが実装する。
type CafeNameLister interface {
	ListNames(ctx context.Context, userID string) ([]model.CafeName, error)
}

// DrinkDraft は自然文から組み立てたドリンク記録の下書き。
// 抽出できなかった項目はnilになる。
type DrinkDraft struct {
	DrinkType         *string
	CafeName          *string
	CafeID            *int64
	MatchedCafeName   *string
	LocationHint      *string
	PlacesSearchQuery *string
	FlavorTags        []string
	Price             *float64
	Rating            *float64
	Notes             *string
}

// ParseResult は解析結果とモデルによる解釈の説明。
type ParseResult struct {
	Draft          DrinkDraft
	Interpretation string
}

// parsedDrink はモデルに返させるJSONの形。
type parsedDrink struct {
	DrinkType      string   `json:"drink_type"`
	CafeName       string   `json:"cafe_name"`
	LocationHint   string   `json:"location_hint"`
	FlavorTags     []string `json:"flavor_tags"`
	Price          *float64 `json:"price"`
	Rating         *float64 `json:"rating"`
	Notes          string   `json:"notes"`
	Interpretation string   `json:"interpretation"`
}

const defaultInterpretation = "Parsed coffee drink entry"

// Parser は自然文のドリンク記録を構造化する。
type Parser struct {
	gen       Generator
	cafes     CafeNameLister
	sanitizer *security.TextSanitizer
	recorder  Recorder
}

// NewParser はParserを生成する。
// genがnilの場合、ParseはAI_NOT_CONFIGUREDを返す。recorderはnilでもよい。
func NewParser(gen Generator, cafes CafeNameLister, sanitizer *security.TextSanitizer, recorder Recorder) *Parser {
	if sanitizer == nil {
		sanitizer = security.NewTextSanitizer()
	}
	return &Parser{gen: gen, cafes: cafes, sanitizer: sanitizer, recorder: recorder}
}

// Parse はtextをLLMで解析し、ユーザーのカフェと突き合わせた下書きを返す。
func (p *Parser) Parse(ctx context.Context, userID, text string) (*ParseResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, model.NewValidationError("text is required")
	}
	if utf8.RuneCountInString(text) > security.MaxTextLength {
		return nil, model.NewValidationError(fmt.Sprintf("text must be at most %d characters", security.MaxTextLength))
	}
	if p.gen == nil {
		return nil, model.NewAINotConfiguredError()
	}

	cafes, err := p.cafes.ListNames(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cafe names: %w", err)
	}

	out, err := complete(ctx, p.gen, parseSystemPrompt(cafes), text)
	if err != nil {
		p.record(OperationParse, metrics.OutcomeError)
		slog.Error("llm parse failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return nil, model.NewUpstreamError("AI service")
	}

	var parsed parsedDrink
	raw, err := extractJSON(out)
	if err == nil {
		err = json.Unmarshal([]byte(raw), &parsed)
	}
	if err != nil {
		p.record(OperationParse, metrics.OutcomeError)
		slog.Error("llm parse returned malformed output",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return nil, model.NewUpstreamError("AI service")
	}

	p.record(OperationParse, metrics.OutcomeSuccess)
	return p.buildResult(parsed, cafes), nil
}

func (p *Parser) buildResult(parsed parsedDrink, cafes []model.CafeName) *ParseResult {
	d := DrinkDraft{
		DrinkType:    p.optional(parsed.DrinkType, 100),
		CafeName:     p.optional(parsed.CafeName, 255),
		LocationHint: p.optional(parsed.LocationHint, 255),
		Notes:        p.optional(parsed.Notes, security.MaxTextLength),
		FlavorTags:   model.FilterFlavorTags(parsed.FlavorTags),
	}

	if parsed.Rating != nil {
		r := math.Max(1, math.Min(5, math.Round(*parsed.Rating)))
		d.Rating = &r
	}
	if parsed.Price != nil {
		price := math.Max(0, math.Min(100, *parsed.Price))
		d.Price = &price
	}

	if d.CafeName != nil {
		if match := MatchCafe(*d.CafeName, cafes); match != nil {
			id, name := match.ID, match.Name
			d.CafeID = &id
			d.MatchedCafeName = &name
		} else {
			query := *d.CafeName
			if d.LocationHint != nil {
				query += " " + *d.LocationHint
			}
			d.PlacesSearchQuery = &query
		}
	}

	interpretation := p.sanitizer.CleanLimited(parsed.Interpretation, security.MaxTextLength)
	if interpretation == "" {
		interpretation = defaultInterpretation
	}
	return &ParseResult{Draft: d, Interpretation: interpretation}
}

func (p *Parser) optional(s string, maxRunes int) *string {
	cleaned := p.sanitizer.CleanLimited(s, maxRunes)
	if cleaned == "" {
		return nil
	}
	return &cleaned
}

func (p *Parser) record(operation, outcome string) {
	if p.recorder != nil {
		p.recorder.RecordAIRequest(operation, outcome)
	}
}

func parseSystemPrompt(cafes []model.CafeName) string {
	var b strings.Builder
	b.WriteString(`You turn a short coffee journal entry into structured data.
Reply with a single JSON object and nothing else, using these keys:
  "drink_type": the drink, capitalized like a menu item ("Flat White", "Pour Over", "Cold Brew")
  "cafe_name": the cafe, capitalized as a business name ("Blue Bottle", "Stumptown Coffee")
  "location_hint": any city, neighborhood, street or landmark that helps find the cafe on a map
  "flavor_tags": array of flavor words, only from the allowed list below
  "price": number in dollars, only if a price is mentioned
  "rating": number from 1 to 5 inferred from sentiment, omit when no sentiment is expressed
  "notes": only extra context not already captured by the other keys, otherwise ""
  "interpretation": one sentence describing how you read the entry
Omit keys you cannot fill.

Rating guide: amazing, perfect, loved it = 5; great, really good, enjoyed = 4;
good, decent, fine = 3; mediocre, meh, disappointing = 2; bad, awful, couldn't finish = 1.

`)
	b.WriteString("Allowed flavor tags: ")
	b.WriteString(strings.Join(model.FlavorTags, ", "))
	b.WriteString("\n")

	if len(cafes) == 0 {
		b.WriteString("The user has no saved cafes yet.\n")
	} else {
		names := make([]string, len(cafes))
		for i, c := range cafes {
			names[i] = c.Name
		}
		b.WriteString("The user's saved cafes: ")
		b.WriteString(strings.Join(names, ", "))
		b.WriteString("\n")
	}
	return b.String()
}
