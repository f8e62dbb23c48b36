package model

import "time"

// WishlistItem は行ってみたいカフェを表す。
// 訪問時にCafeへ変換され、ウィッシュリストからは削除される。
type WishlistItem struct {
	ID     int64
	UserID string
	PlaceFields
	Notes     *string
	CreatedAt time.Time
}
