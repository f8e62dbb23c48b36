package model

import "time"

// Drink はカフェで記録した1杯を表す。
type Drink struct {
	ID         int64
	UserID     string
	CafeID     int64
	DrinkType  string
	Rating     float64
	Notes      *string
	Price      *float64
	FlavorTags []string
	PhotoURL   *string
	LoggedAt   time.Time
	CreatedAt  time.Time
}

// DrinkWithCafe はドリンクにカフェの表示用フィールドを結合したもの。
type DrinkWithCafe struct {
	Drink
	CafeName    string
	CafeAddress *string
	CafeCity    *string
}

// DrinkSort は一覧の並び替えキー。
type DrinkSort string

const (
	DrinkSortLoggedAt  DrinkSort = "logged_at"
	DrinkSortRating    DrinkSort = "rating"
	DrinkSortCreatedAt DrinkSort = "created_at"
	DrinkSortPrice     DrinkSort = "price"
)

// IsValid は並び替えキーが許可リストに含まれるかを返す。
func (s DrinkSort) IsValid() bool {
	switch s {
	case DrinkSortLoggedAt, DrinkSortRating, DrinkSortCreatedAt, DrinkSortPrice:
		return true
	}
	return false
}

// DrinkFilter はドリンク一覧の絞り込みと並び順。
// CafeIDがnilの場合は全カフェを対象にする。
type DrinkFilter struct {
	CafeID    *int64
	Sort      DrinkSort
	Ascending bool
}

// DrinkTypeCount はドリンク種別ごとの記録数。
type DrinkTypeCount struct {
	DrinkType string
	Count     int
}

// NewDrink はドリンク作成時の入力値。
type NewDrink struct {
	CafeID     int64
	DrinkType  string
	Rating     float64
	Notes      *string
	Price      *float64
	FlavorTags []string
	PhotoURL   *string
	LoggedAt   *time.Time
}
