package stats

import (
	"sort"
	"time"
)

// span は並び上の連続区間 [start, start+length) を表す。
type span struct {
	start  int
	length int
}

// end は区間の最後の要素のインデックスを返す。
func (s span) end() int {
	return s.start + s.length - 1
}

// scan は順序付きキー列を走査し、隣接判定が成り立ち続ける区間を求める。
// last は列末尾を含む区間、longest は最長区間（同長なら最も早い区間）。
// 日次ストリークとカフェ連続訪問の両方がこの走査を共有する。
func scan[K any](keys []K, adjacent func(prev, next K) bool) (last, longest span) {
	if len(keys) == 0 {
		return span{}, span{}
	}

	cur := span{start: 0, length: 1}
	longest = cur
	for i := 1; i < len(keys); i++ {
		if adjacent(keys[i-1], keys[i]) {
			cur.length++
		} else {
			cur = span{start: i, length: 1}
		}
		if cur.length > longest.length {
			longest = cur
		}
	}
	return cur, longest
}

// civilDay はタイムゾーン上の暦日を通し番号に変換する。
// DSTで1日が23/25時間になっても隣接日の差は常に1になる。
func civilDay(t time.Time, loc *time.Location) int64 {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400
}

// dayStreaks は記録のある暦日列から現在と最長の日次ストリークを求める。
// days は昇順かつ重複なし。現在のストリークは今日より後の日を除いた列で求め、
// 今日か昨日で終わっている場合のみ有効。
func dayStreaks(days []int64, today int64) (current, longest int) {
	consecutive := func(prev, next int64) bool {
		return next == prev+1
	}
	_, long := scan(days, consecutive)

	upToToday := days[:sort.Search(len(days), func(i int) bool { return days[i] > today })]
	if len(upToToday) > 0 {
		last, _ := scan(upToToday, consecutive)
		if end := upToToday[last.end()]; end == today || end == today-1 {
			current = last.length
		}
	}
	return current, long.length
}

// cafeStreaks は時系列順のドリンクから同じカフェでの連続記録を求める。
// 現在のストリークは最新の記録を含む区間、最長は最初に現れた最長区間。
func cafeStreaks(sorted []Drink) (current, longest *CafeStreak) {
	if len(sorted) == 0 {
		return nil, nil
	}

	ids := make([]int64, len(sorted))
	for i, d := range sorted {
		ids[i] = d.CafeID
	}
	last, long := scan(ids, func(prev, next int64) bool {
		return prev == next
	})

	current = &CafeStreak{
		CafeID:   sorted[last.end()].CafeID,
		CafeName: sorted[last.end()].CafeName,
		Count:    last.length,
	}
	longest = &CafeStreak{
		CafeID:   sorted[long.end()].CafeID,
		CafeName: sorted[long.end()].CafeName,
		Count:    long.length,
	}
	return current, longest
}
