package assistant

import (
	"strings"

	"github.com/hitoshi/brewlog/internal/model"
)

// MatchCafe はLLMが抽出したカフェ名をユーザーのカフェ一覧と突き合わせる。
// 比較は小文字化・前後空白除去した名前で行い、次の順に最初に見つかったものを返す。
//  1. 完全一致
//  2. どちらか一方が他方を含む
//  3. 入力の3文字以上の単語がカフェ名のいずれかの単語と部分一致する
//
// 各段階では一覧の先頭に近いカフェを優先する。見つからない場合はnilを返す。
func MatchCafe(name string, cafes []model.CafeName) *model.CafeName {
	input := normalizeCafeName(name)
	if input == "" {
		return nil
	}

	names := make([]string, len(cafes))
	for i := range cafes {
		names[i] = normalizeCafeName(cafes[i].Name)
	}

	for i := range cafes {
		if names[i] == input {
			return &cafes[i]
		}
	}

	for i := range cafes {
		if names[i] == "" {
			continue
		}
		if strings.Contains(names[i], input) || strings.Contains(input, names[i]) {
			return &cafes[i]
		}
	}

	var inputWords []string
	for _, w := range strings.Fields(input) {
		if len([]rune(w)) > 2 {
			inputWords = append(inputWords, w)
		}
	}
	if len(inputWords) == 0 {
		return nil
	}

	for i := range cafes {
		for _, cw := range strings.Fields(names[i]) {
			for _, iw := range inputWords {
				if strings.Contains(cw, iw) || strings.Contains(iw, cw) {
					return &cafes[i]
				}
			}
		}
	}
	return nil
}

func normalizeCafeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
