package stats

// milestoneDef は節目の定義。
type milestoneDef struct {
	typ   string
	value int
	label string
}

// milestoneDefs は判定順。到達済みのものはすべてこの順で返す。
var milestoneDefs = []milestoneDef{
	{"drinks", 1, "First Sip"},
	{"drinks", 10, "Regular"},
	{"drinks", 50, "Coffee Enthusiast"},
	{"drinks", 100, "Centurion"},
	{"drinks", 500, "Caffeine Legend"},
	{"cafes", 5, "Explorer"},
	{"cafes", 10, "Cafe Hopper"},
	{"cafes", 25, "Cafe Connoisseur"},
	{"types", 5, "Adventurous Palate"},
	{"types", 10, "Menu Master"},
	{"streak", 7, "Week Warrior"},
	{"streak", 30, "Monthly Devotee"},
}

// milestones は到達済みの節目を返す。streak は最長の日次ストリークで判定する。
func milestones(drinks, cafes, types, longestStreak int) []Milestone {
	got := map[string]int{
		"drinks": drinks,
		"cafes":  cafes,
		"types":  types,
		"streak": longestStreak,
	}

	out := make([]Milestone, 0, len(milestoneDefs))
	for _, m := range milestoneDefs {
		if got[m.typ] >= m.value {
			out = append(out, Milestone{Type: m.typ, Value: m.value, Label: m.label})
		}
	}
	return out
}
