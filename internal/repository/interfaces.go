// Package repository はデータ永続化のインターフェースとPostgreSQL実装を提供する。
// すべての読み出しは呼び出し元のユーザーIDで絞り込み、書き込みはそのユーザーIDで保存する。
package repository

import (
	"context"
	"database/sql"

	"github.com/hitoshi/brewlog/internal/model"
)

// CafeRepository はカフェデータの永続化インターフェース。
type CafeRepository interface {
	// ListWithVisits はユーザーのカフェ一覧をドリンク数と最終訪問日時付きで返す。
	// 最終訪問の新しい順（未訪問は末尾）、同順位は名前の昇順。
	ListWithVisits(ctx context.Context, userID string) ([]model.CafeWithVisits, error)

	// FindByID は指定IDのカフェを取得する。見つからない、または他ユーザーのカフェの場合はnilを返す。
	FindByID(ctx context.Context, userID string, id int64) (*model.Cafe, error)

	// FindByPlaceID は地図APIのplace_idでカフェを検索する。見つからない場合はnilを返す。
	FindByPlaceID(ctx context.Context, userID, placeID string) (*model.Cafe, error)

	// Create はカフェを作成し、作成された行を返す。
	Create(ctx context.Context, userID string, place model.PlaceFields) (*model.Cafe, error)

	// ListNames はファジーマッチ用にカフェのIDと名前を名前順で返す。
	ListNames(ctx context.Context, userID string) ([]model.CafeName, error)
}

// DrinkRepository はドリンクデータの永続化インターフェース。
type DrinkRepository interface {
	// List はドリンク一覧をカフェ情報付きで返す。
	List(ctx context.Context, userID string, filter model.DrinkFilter) ([]model.DrinkWithCafe, error)

	// FindByID は指定IDのドリンクを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, userID string, id int64) (*model.DrinkWithCafe, error)

	// Last は最も新しく記録されたドリンクを返す。1件もない場合はnilを返す。
	Last(ctx context.Context, userID string) (*model.DrinkWithCafe, error)

	// Types はドリンク種別を記録数の多い順（同数は名前順）で返す。
	Types(ctx context.Context, userID string) ([]model.DrinkTypeCount, error)

	// Create はドリンクを作成し、カフェ情報付きで返す。
	// カフェの所有者チェックは呼び出し元で行う。
	Create(ctx context.Context, userID string, d model.NewDrink) (*model.DrinkWithCafe, error)

	// Delete は指定IDのドリンクを削除する。削除対象がなかった場合はfalseを返す。
	Delete(ctx context.Context, userID string, id int64) (bool, error)

	// ListForStats は統計集計に必要な列だけを全件返す。
	ListForStats(ctx context.Context, userID string) ([]model.DrinkWithCafe, error)
}

// WishlistRepository はウィッシュリストの永続化インターフェース。
type WishlistRepository interface {
	// List はウィッシュリストを追加日の新しい順で返す。
	List(ctx context.Context, userID string) ([]model.WishlistItem, error)

	// FindByPlaceID はplace_idで項目を検索する。見つからない場合はnilを返す。
	FindByPlaceID(ctx context.Context, userID, placeID string) (*model.WishlistItem, error)

	// Create は項目を作成し、作成された行を返す。
	Create(ctx context.Context, userID string, place model.PlaceFields, notes *string) (*model.WishlistItem, error)

	// Delete は指定IDの項目を削除する。削除対象がなかった場合はfalseを返す。
	Delete(ctx context.Context, userID string, id int64) (bool, error)

	// ConvertToCafe は項目をカフェに変換し、ウィッシュリストから削除する。
	// 挿入と削除は同一トランザクションで行う。項目が見つからない場合はnilを返す。
	ConvertToCafe(ctx context.Context, userID string, id int64) (*model.Cafe, error)
}

// UserDataRepository はユーザー単位の一括操作のインターフェース。
type UserDataRepository interface {
	// DeleteAll はユーザーのドリンクとカフェを同一トランザクションで削除する。
	DeleteAll(ctx context.Context, userID string) (*DeletedCounts, error)
}

// DeletedCounts は一括削除で削除した件数。
type DeletedCounts struct {
	Drinks int64
	Cafes  int64
}

// TxBeginner はトランザクション開始用のインターフェース。
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// rowScanner は*sql.Rowと*sql.Rowsの共通部分。
type rowScanner interface {
	Scan(dest ...any) error
}
