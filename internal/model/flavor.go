package model

import "strings"

// FlavorTags はドリンクに付与できるフレーバータグの語彙。
// 表示順もこの並びに従う。
var FlavorTags = []string{
	"Fruity", "Nutty", "Chocolatey", "Caramel", "Floral",
	"Bright", "Smooth", "Bold", "Bitter", "Sweet",
	"Earthy", "Spicy", "Citrus", "Berry", "Creamy",
}

var flavorTagIndex = func() map[string]string {
	m := make(map[string]string, len(FlavorTags))
	for _, t := range FlavorTags {
		m[strings.ToLower(t)] = t
	}
	return m
}()

// CanonicalFlavorTag は大文字小文字を無視して語彙内のタグを引き、正規の表記を返す。
// 語彙にない場合はfalseを返す。
func CanonicalFlavorTag(tag string) (string, bool) {
	t, ok := flavorTagIndex[strings.ToLower(strings.TrimSpace(tag))]
	return t, ok
}

// IsFlavorTag はタグが語彙に含まれるか（表記完全一致）を返す。
func IsFlavorTag(tag string) bool {
	t, ok := flavorTagIndex[strings.ToLower(tag)]
	return ok && t == tag
}

// FilterFlavorTags は語彙外のタグを除外し、正規表記にそろえて重複を取り除く。
// 入力順は保持する。
func FilterFlavorTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, raw := range tags {
		t, ok := CanonicalFlavorTag(raw)
		if !ok || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
