// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizer はユーザー入力やLLMの出力に含まれるHTMLを除去し、
// プレーンテキストとして保存・返却できる形にする。
package security

import (
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// MaxTextLength はメモや自然文入力の最大文字数（rune数）。
const MaxTextLength = 1000

// TextSanitizer はプレーンテキスト用のサニタイズ機能を提供する。
// bluemondayのStrictPolicyで全タグを除去し、エスケープされた実体参照を元に戻す。
// ポリシーはスレッドセーフなので1つのインスタンスを共有してよい。
type TextSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerを生成する。
func NewTextSanitizer() *TextSanitizer {
	return &TextSanitizer{policy: bluemonday.StrictPolicy()}
}

// Clean はタグを除去し、前後の空白を取り除いたテキストを返す。
func (s *TextSanitizer) Clean(text string) string {
	if text == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(text)))
}

// CleanLimited はCleanした上でmaxRunes文字に切り詰める。
func (s *TextSanitizer) CleanLimited(text string, maxRunes int) string {
	return Truncate(s.Clean(text), maxRunes)
}

// CleanPtr はnilを保ったままCleanする。結果が空の場合はnilを返す。
func (s *TextSanitizer) CleanPtr(text *string) *string {
	if text == nil {
		return nil
	}
	cleaned := s.Clean(*text)
	if cleaned == "" {
		return nil
	}
	return &cleaned
}

// Truncate は文字列をrune単位でmaxRunes文字に切り詰める。
func Truncate(text string, maxRunes int) string {
	if maxRunes <= 0 || utf8.RuneCountInString(text) <= maxRunes {
		return text
	}
	runes := []rune(text)
	return strings.TrimSpace(string(runes[:maxRunes]))
}
