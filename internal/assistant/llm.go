// Package assistant はLLMを使った自然文のドリンク解析とおすすめ生成を提供する。
//
// LLMとのやり取りはlangchaingoのllms.Modelを通して行い、応答はJSONとして受け取る。
// モデルの出力は信頼せず、評価値・価格の範囲、フレーバータグの語彙、
// 自由記述のHTMLをすべて検証してから返す。
package assistant

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
)

// AIリクエストの操作ラベル
const (
	OperationParse     = "parse"
	OperationRecommend = "recommend"
)

// ErrNoContent はLLMが空の応答を返した場合のエラー。
var ErrNoContent = errors.New("llm returned no content")

// Generator はLLM呼び出しのインターフェース。llms.Modelの部分集合。
type Generator interface {
	GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error)
}

// Recorder はAI呼び出し結果の記録先。metrics.Collectorが実装する。
type Recorder interface {
	RecordAIRequest(operation, outcome string)
}

// ProviderConfig はLLMプロバイダーの接続設定。
type ProviderConfig struct {
	Provider string // "anthropic" または "openai"
	APIKey   string
	Model    string
	BaseURL  string // 空の場合はプロバイダーの既定値
}

// NewModel は設定に応じたlangchaingoのモデルを生成する。
// clientには呼び出し元でタイムアウトを設定したHTTPクライアントを渡す。
func NewModel(cfg ProviderConfig, client *http.Client) (llms.Model, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "anthropic":
		opts := []anthropic.Option{
			anthropic.WithToken(cfg.APIKey),
			anthropic.WithModel(cfg.Model),
		}
		if cfg.BaseURL != "" {
			opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
		}
		if client != nil {
			opts = append(opts, anthropic.WithHTTPClient(client))
		}
		llm, err := anthropic.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("creating anthropic client: %w", err)
		}
		return llm, nil

	case "openai":
		opts := []openai.Option{
			openai.WithToken(cfg.APIKey),
			openai.WithModel(cfg.Model),
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		if client != nil {
			opts = append(opts, openai.WithHTTPClient(client))
		}
		llm, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("creating openai client: %w", err)
		}
		return llm, nil
	}
	return nil, fmt.Errorf("unsupported llm provider %q", cfg.Provider)
}

// complete はシステムプロンプトとユーザー入力を送り、最初の候補のテキストを返す。
func complete(ctx context.Context, gen Generator, system, user string) (string, error) {
	resp, err := gen.GenerateContent(ctx,
		[]llms.MessageContent{
			llms.TextParts(schema.ChatMessageTypeSystem, system),
			llms.TextParts(schema.ChatMessageTypeHuman, user),
		},
		llms.WithMaxTokens(1024),
		llms.WithTemperature(0.2),
	)
	if err != nil {
		return "", err
	}
	if resp == nil || len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Content) == "" {
		return "", ErrNoContent
	}
	return resp.Choices[0].Content, nil
}

// extractJSON はモデル出力から最初のJSONオブジェクトを切り出す。
// コードフェンスや前置きの文章が付いていても取り出せる。
func extractJSON(text string) (string, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", fmt.Errorf("no JSON object in llm output")
	}
	return text[start : end+1], nil
}
