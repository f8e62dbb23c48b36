// Package stats はユーザーのドリンク記録から統計サマリーを集計する。
//
// Compute は純粋関数で、同じ入力と同じ基準時刻に対して常に同じ結果を返す。
// 暦の計算（週・月・曜日・時間帯・日次ストリーク）は基準時刻のタイムゾーンで行う。
// 週は月曜始まり、曜日インデックスは 0=日曜 〜 6=土曜。
package stats

import (
	"math"
	"sort"
	"strconv"
	"time"
)

const (
	// trendWeeks は評価トレンドに含める週数。
	trendWeeks = 12
	// topCafesLimit はよく行くカフェの最大件数。
	topCafesLimit = 5
	// priceByCafeLimit はカフェ別価格の最大件数。
	priceByCafeLimit = 5
	// maxRating は評価の上限。範囲外の評価を持つ記録は集計から除外する。
	maxRating = 5.0
)

// Drink は集計エンジンへの入力となる1件の記録。
type Drink struct {
	ID         int64
	CafeID     int64
	CafeName   string
	Rating     float64
	DrinkType  string
	LoggedAt   time.Time
	Price      *float64
	FlavorTags []string
}

// Decimal1 は小数第1位まで丸めた値で、JSONでは常に小数1桁で出力する（例: 4.0）。
type Decimal1 float64

// MarshalJSON は小数1桁の数値としてエンコードする。
func (d Decimal1) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatFloat(float64(d), 'f', 1, 64)), nil
}

// TypeCount はドリンク種別ごとの件数。
type TypeCount struct {
	DrinkType string `json:"drink_type"`
	Count     int    `json:"count"`
}

// CafeVisits はカフェごとの訪問（記録）数。
type CafeVisits struct {
	CafeID     int64  `json:"cafe_id"`
	CafeName   string `json:"cafe_name"`
	VisitCount int    `json:"visit_count"`
}

// WeekTrend は1週間分の平均評価と件数。記録のない週は0で埋める。
type WeekTrend struct {
	Week       string  `json:"week"`
	AvgRating  float64 `json:"avg_rating"`
	DrinkCount int     `json:"drink_count"`
}

// DayRating は曜日ごとの平均評価。
type DayRating struct {
	Day        string  `json:"day"`
	DayIndex   int     `json:"day_index"`
	AvgRating  float64 `json:"avg_rating"`
	DrinkCount int     `json:"drink_count"`
}

// BestDay は平均評価が最も高い曜日と、曜日別の内訳。
type BestDay struct {
	DayRating
	AllDays []DayRating `json:"all_days"`
}

// TimeRating は時間帯ごとの平均評価。
type TimeRating struct {
	Time       string  `json:"time"`
	AvgRating  float64 `json:"avg_rating"`
	DrinkCount int     `json:"drink_count"`
}

// BestTime は平均評価が最も高い時間帯と、時間帯別の内訳。
type BestTime struct {
	TimeRating
	AllTimes []TimeRating `json:"all_times"`
}

// CafeStreak は同じカフェでの連続記録。
type CafeStreak struct {
	CafeID   int64  `json:"cafe_id"`
	CafeName string `json:"cafe_name"`
	Count    int    `json:"count"`
}

// Milestone は到達済みの節目。
type Milestone struct {
	Type  string `json:"type"`
	Value int    `json:"value"`
	Label string `json:"label"`
}

// CafePrice はカフェごとの価格集計（価格つきの記録のみ）。
type CafePrice struct {
	CafeID   int64   `json:"cafe_id"`
	CafeName string  `json:"cafe_name"`
	AvgPrice float64 `json:"avg_price"`
	Count    int     `json:"count"`
	Total    float64 `json:"total"`
}

// TagCount はフレーバータグの出現数。
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// Summary は統計APIのレスポンス全体。
type Summary struct {
	TotalDrinks     int      `json:"total_drinks"`
	AverageRating   Decimal1 `json:"average_rating"`
	CafesVisited    int      `json:"cafes_visited"`
	DrinkTypesTried int      `json:"drink_types_tried"`
	DrinksThisWeek  int      `json:"drinks_this_week"`
	DrinksThisMonth int      `json:"drinks_this_month"`

	CurrentStreak int `json:"current_streak"`
	LongestStreak int `json:"longest_streak"`

	DrinkTypeBreakdown []TypeCount  `json:"drink_type_breakdown"`
	TopCafes           []CafeVisits `json:"top_cafes"`
	RatingTrends       []WeekTrend  `json:"rating_trends"`
	BestDay            *BestDay     `json:"best_day"`
	BestTime           *BestTime    `json:"best_time"`

	CafeStreak        *CafeStreak `json:"cafe_streak"`
	LongestCafeStreak *CafeStreak `json:"longest_cafe_streak"`

	Milestones []Milestone `json:"milestones"`

	TotalSpent      float64     `json:"total_spent"`
	SpentThisMonth  float64     `json:"spent_this_month"`
	AvgPrice        float64     `json:"avg_price"`
	DrinksWithPrice int         `json:"drinks_with_price"`
	PriceByCafe     []CafePrice `json:"price_by_cafe"`

	TopFlavorTags []TagCount `json:"top_flavor_tags"`

	// ExcludedCount は評価が範囲外などの理由で集計から除外した記録数。
	ExcludedCount int `json:"excluded_count"`
}

// Compute はドリンク記録から統計サマリーを集計する。
// 入力の並び順は問わない。入力スライスは変更しない。
func Compute(drinks []Drink, now time.Time) *Summary {
	loc := now.Location()

	valid := make([]Drink, 0, len(drinks))
	for _, d := range drinks {
		if isValid(d) {
			valid = append(valid, d)
		}
	}
	sort.SliceStable(valid, func(i, j int) bool {
		if !valid[i].LoggedAt.Equal(valid[j].LoggedAt) {
			return valid[i].LoggedAt.Before(valid[j].LoggedAt)
		}
		return valid[i].ID < valid[j].ID
	})

	s := &Summary{
		TotalDrinks:   len(valid),
		ExcludedCount: len(drinks) - len(valid),
	}

	weekStart := startOfWeek(now)
	weekEnd := addDays(weekStart, 7)
	monthStart := startOfMonth(now)
	monthEnd := monthStart.AddDate(0, 1, 0)

	var ratingSum float64
	cafes := make(map[int64]bool)
	types := make(map[string]int)
	days := make(map[int64]bool)
	for _, d := range valid {
		ratingSum += d.Rating
		cafes[d.CafeID] = true
		types[d.DrinkType]++
		days[civilDay(d.LoggedAt, loc)] = true
		if inWindow(d.LoggedAt, weekStart, weekEnd) {
			s.DrinksThisWeek++
		}
		if inWindow(d.LoggedAt, monthStart, monthEnd) {
			s.DrinksThisMonth++
		}
	}
	if len(valid) > 0 {
		s.AverageRating = Decimal1(round(ratingSum/float64(len(valid)), 1))
	}
	s.CafesVisited = len(cafes)
	s.DrinkTypesTried = len(types)

	s.DrinkTypeBreakdown = typeBreakdown(types)
	s.TopCafes = topCafes(valid)
	s.RatingTrends = ratingTrends(valid, weekStart)
	s.BestDay = bestDay(valid, loc)
	s.BestTime = bestTime(valid, loc)

	sortedDays := make([]int64, 0, len(days))
	for d := range days {
		sortedDays = append(sortedDays, d)
	}
	sort.Slice(sortedDays, func(i, j int) bool { return sortedDays[i] < sortedDays[j] })
	s.CurrentStreak, s.LongestStreak = dayStreaks(sortedDays, civilDay(now, loc))
	s.CafeStreak, s.LongestCafeStreak = cafeStreaks(valid)

	s.Milestones = milestones(s.TotalDrinks, s.CafesVisited, s.DrinkTypesTried, s.LongestStreak)

	spending(s, valid, monthStart, monthEnd)
	s.TopFlavorTags = flavorTagCounts(valid)

	return s
}

// isValid は集計対象にできる記録かを判定する。
// 範囲外の評価や価格、カフェ未設定の記録は除外する。
func isValid(d Drink) bool {
	if math.IsNaN(d.Rating) || d.Rating < 0 || d.Rating > maxRating {
		return false
	}
	if d.CafeID == 0 {
		return false
	}
	if d.Price != nil && (math.IsNaN(*d.Price) || *d.Price < 0) {
		return false
	}
	return true
}

func typeBreakdown(types map[string]int) []TypeCount {
	out := make([]TypeCount, 0, len(types))
	for t, c := range types {
		out = append(out, TypeCount{DrinkType: t, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].DrinkType < out[j].DrinkType
	})
	return out
}

// topCafes は記録数の多いカフェを返す。同数の場合はカフェIDの昇順。
func topCafes(sorted []Drink) []CafeVisits {
	byCafe := make(map[int64]*CafeVisits)
	for _, d := range sorted {
		cv, ok := byCafe[d.CafeID]
		if !ok {
			cv = &CafeVisits{CafeID: d.CafeID}
			byCafe[d.CafeID] = cv
		}
		cv.VisitCount++
		// 名前は最新の記録のものを採用する
		cv.CafeName = d.CafeName
	}

	out := make([]CafeVisits, 0, len(byCafe))
	for _, cv := range byCafe {
		out = append(out, *cv)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].VisitCount != out[j].VisitCount {
			return out[i].VisitCount > out[j].VisitCount
		}
		return out[i].CafeID < out[j].CafeID
	})
	if len(out) > topCafesLimit {
		out = out[:topCafesLimit]
	}
	return out
}

// ratingTrends は今週を末尾とする直近12週の週別平均評価を古い順に返す。
func ratingTrends(sorted []Drink, currentWeek time.Time) []WeekTrend {
	type acc struct {
		sum   float64
		count int
	}

	first := addDays(currentWeek, -7*(trendWeeks-1))
	end := addDays(currentWeek, 7)
	buckets := make(map[string]*acc, trendWeeks)
	for _, d := range sorted {
		if !inWindow(d.LoggedAt, first, end) {
			continue
		}
		key := startOfWeek(d.LoggedAt.In(currentWeek.Location())).Format(time.DateOnly)
		a, ok := buckets[key]
		if !ok {
			a = &acc{}
			buckets[key] = a
		}
		a.sum += d.Rating
		a.count++
	}

	out := make([]WeekTrend, trendWeeks)
	for i := 0; i < trendWeeks; i++ {
		key := addDays(first, 7*i).Format(time.DateOnly)
		out[i] = WeekTrend{Week: key}
		if a, ok := buckets[key]; ok {
			out[i].AvgRating = round(a.sum/float64(a.count), 2)
			out[i].DrinkCount = a.count
		}
	}
	return out
}

// bestDay は曜日別の平均評価を集計し、最も高い曜日を返す。
// 平均が同じなら件数の多い方、さらに同じなら曜日インデックスの小さい方を採る。
func bestDay(sorted []Drink, loc *time.Location) *BestDay {
	if len(sorted) == 0 {
		return nil
	}

	var sums [7]float64
	var counts [7]int
	for _, d := range sorted {
		wd := int(d.LoggedAt.In(loc).Weekday())
		sums[wd] += d.Rating
		counts[wd]++
	}

	all := make([]DayRating, 0, 7)
	for i := 0; i < 7; i++ {
		if counts[i] == 0 {
			continue
		}
		all = append(all, DayRating{
			Day:        time.Weekday(i).String(),
			DayIndex:   i,
			AvgRating:  round(sums[i]/float64(counts[i]), 2),
			DrinkCount: counts[i],
		})
	}

	best := 0
	for i := 1; i < len(all); i++ {
		if ranksHigher(all[i].AvgRating, all[i].DrinkCount, all[best].AvgRating, all[best].DrinkCount) {
			best = i
		}
	}
	return &BestDay{DayRating: all[best], AllDays: all}
}

// timeBuckets は時間帯の区切り。hour < upTo を満たす最初の区分に属する。
var timeBuckets = []struct {
	name string
	upTo int
}{
	{"morning", 12},
	{"afternoon", 17},
	{"evening", 24},
}

func timeBucket(hour int) int {
	for i, b := range timeBuckets {
		if hour < b.upTo {
			return i
		}
	}
	return len(timeBuckets) - 1
}

// bestTime は時間帯別の平均評価を集計し、最も高い時間帯を返す。
// 同順位は bestDay と同じ規則で、最後は morning < afternoon < evening の順。
func bestTime(sorted []Drink, loc *time.Location) *BestTime {
	if len(sorted) == 0 {
		return nil
	}

	sums := make([]float64, len(timeBuckets))
	counts := make([]int, len(timeBuckets))
	for _, d := range sorted {
		b := timeBucket(d.LoggedAt.In(loc).Hour())
		sums[b] += d.Rating
		counts[b]++
	}

	all := make([]TimeRating, 0, len(timeBuckets))
	for i, b := range timeBuckets {
		if counts[i] == 0 {
			continue
		}
		all = append(all, TimeRating{
			Time:       b.name,
			AvgRating:  round(sums[i]/float64(counts[i]), 2),
			DrinkCount: counts[i],
		})
	}

	best := 0
	for i := 1; i < len(all); i++ {
		if ranksHigher(all[i].AvgRating, all[i].DrinkCount, all[best].AvgRating, all[best].DrinkCount) {
			best = i
		}
	}
	return &BestTime{TimeRating: all[best], AllTimes: all}
}

// ranksHigher は (平均, 件数) の組が現在の最良より厳密に上位かを返す。
// 同点の場合は先に現れた方が残る。
func ranksHigher(avg float64, count int, bestAvg float64, bestCount int) bool {
	if avg != bestAvg {
		return avg > bestAvg
	}
	return count > bestCount
}

// spending は価格つきの記録だけを対象に支出を集計する。
func spending(s *Summary, sorted []Drink, monthStart, monthEnd time.Time) {
	byCafe := make(map[int64]*CafePrice)
	var total, month float64
	count := 0
	for _, d := range sorted {
		if d.Price == nil {
			continue
		}
		p := *d.Price
		count++
		total += p
		if inWindow(d.LoggedAt, monthStart, monthEnd) {
			month += p
		}
		cp, ok := byCafe[d.CafeID]
		if !ok {
			cp = &CafePrice{CafeID: d.CafeID}
			byCafe[d.CafeID] = cp
		}
		cp.CafeName = d.CafeName
		cp.Count++
		cp.Total += p
	}

	s.DrinksWithPrice = count
	s.TotalSpent = round(total, 2)
	s.SpentThisMonth = round(month, 2)
	if count > 0 {
		s.AvgPrice = round(total/float64(count), 2)
	}

	out := make([]CafePrice, 0, len(byCafe))
	for _, cp := range byCafe {
		cp.AvgPrice = round(cp.Total/float64(cp.Count), 2)
		cp.Total = round(cp.Total, 2)
		out = append(out, *cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].CafeID < out[j].CafeID
	})
	if len(out) > priceByCafeLimit {
		out = out[:priceByCafeLimit]
	}
	s.PriceByCafe = out
}

// flavorTagCounts はタグの出現数を集計する。1件の記録内の重複は1回と数える。
func flavorTagCounts(sorted []Drink) []TagCount {
	counts := make(map[string]int)
	for _, d := range sorted {
		seen := make(map[string]bool, len(d.FlavorTags))
		for _, t := range d.FlavorTags {
			if t == "" || seen[t] {
				continue
			}
			seen[t] = true
			counts[t]++
		}
	}

	out := make([]TagCount, 0, len(counts))
	for t, c := range counts {
		out = append(out, TagCount{Tag: t, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Tag < out[j].Tag
	})
	return out
}

// startOfWeek は t を含む週の月曜0時を t のタイムゾーンで返す。
func startOfWeek(t time.Time) time.Time {
	y, m, d := t.Date()
	offset := (int(t.Weekday()) + 6) % 7
	return time.Date(y, m, d-offset, 0, 0, 0, 0, t.Location())
}

// startOfMonth は t を含む月の1日0時を返す。
func startOfMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
}

// addDays は暦日で n 日ずらす。DSTの切り替えがあっても0時を保つ。
func addDays(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d+n, 0, 0, 0, 0, t.Location())
}

// inWindow は t が [start, end) に含まれるかを返す。
func inWindow(t, start, end time.Time) bool {
	return !t.Before(start) && t.Before(end)
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
