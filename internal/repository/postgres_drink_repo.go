package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/brewlog/internal/model"
)

// drinkWithCafeSelect はドリンクにカフェの表示用列を結合したSELECT句。
const drinkWithCafeSelect = `
	SELECT d.id, d.user_id, d.cafe_id, d.drink_type, d.rating, d.notes, d.price,
	       d.flavor_tags, d.photo_url, d.logged_at, d.created_at,
	       c.name, c.address, c.city
	FROM drinks d
	JOIN cafes c ON c.id = d.cafe_id`

// PostgresDrinkRepo はPostgreSQLを使用したドリンクリポジトリ。
type PostgresDrinkRepo struct {
	db *sql.DB
}

// NewPostgresDrinkRepo はPostgresDrinkRepoを生成する。
func NewPostgresDrinkRepo(db *sql.DB) *PostgresDrinkRepo {
	return &PostgresDrinkRepo{db: db}
}

func scanDrinkWithCafe(row rowScanner) (*model.DrinkWithCafe, error) {
	d := &model.DrinkWithCafe{}
	var tags pq.StringArray
	err := row.Scan(
		&d.ID, &d.UserID, &d.CafeID, &d.DrinkType, &d.Rating, &d.Notes, &d.Price,
		&tags, &d.PhotoURL, &d.LoggedAt, &d.CreatedAt,
		&d.CafeName, &d.CafeAddress, &d.CafeCity,
	)
	if err != nil {
		return nil, err
	}
	d.FlavorTags = []string(tags)
	return d, nil
}

// orderByClause は並び替えキーをSQLのORDER BY句に変換する。
// キーは許可リストで検証済みのもののみを受け付け、それ以外はlogged_atにする。
func orderByClause(f model.DrinkFilter) string {
	col := "d.logged_at"
	switch f.Sort {
	case model.DrinkSortRating:
		col = "d.rating"
	case model.DrinkSortCreatedAt:
		col = "d.created_at"
	case model.DrinkSortPrice:
		col = "d.price"
	}

	dir := "DESC"
	if f.Ascending {
		dir = "ASC"
	}
	return " ORDER BY " + col + " " + dir + " NULLS LAST, d.id " + dir
}

// List はドリンク一覧をカフェ情報付きで返す。
func (r *PostgresDrinkRepo) List(ctx context.Context, userID string, filter model.DrinkFilter) ([]model.DrinkWithCafe, error) {
	query := drinkWithCafeSelect + ` WHERE d.user_id = $1`
	args := []any{userID}
	if filter.CafeID != nil {
		query += ` AND d.cafe_id = $2`
		args = append(args, *filter.CafeID)
	}
	query += orderByClause(filter)

	return r.queryDrinks(ctx, query, args...)
}

func (r *PostgresDrinkRepo) queryDrinks(ctx context.Context, query string, args ...any) ([]model.DrinkWithCafe, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query drinks: %w", err)
	}
	defer rows.Close()

	result := make([]model.DrinkWithCafe, 0)
	for rows.Next() {
		d, err := scanDrinkWithCafe(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan drink: %w", err)
		}
		result = append(result, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate drinks: %w", err)
	}
	return result, nil
}

// FindByID は指定IDのドリンクを取得する。見つからない場合はnilを返す。
func (r *PostgresDrinkRepo) FindByID(ctx context.Context, userID string, id int64) (*model.DrinkWithCafe, error) {
	d, err := scanDrinkWithCafe(r.db.QueryRowContext(ctx,
		drinkWithCafeSelect+` WHERE d.id = $1 AND d.user_id = $2`,
		id, userID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find drink by ID: %w", err)
	}
	return d, nil
}

// Last は最も新しく記録されたドリンクを返す。1件もない場合はnilを返す。
func (r *PostgresDrinkRepo) Last(ctx context.Context, userID string) (*model.DrinkWithCafe, error) {
	d, err := scanDrinkWithCafe(r.db.QueryRowContext(ctx,
		drinkWithCafeSelect+` WHERE d.user_id = $1 ORDER BY d.logged_at DESC, d.id DESC LIMIT 1`,
		userID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find last drink: %w", err)
	}
	return d, nil
}

// Types はドリンク種別を記録数の多い順（同数は名前順）で返す。
func (r *PostgresDrinkRepo) Types(ctx context.Context, userID string) ([]model.DrinkTypeCount, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT drink_type, COUNT(*) AS count
		 FROM drinks
		 WHERE user_id = $1
		 GROUP BY drink_type
		 ORDER BY count DESC, drink_type ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list drink types: %w", err)
	}
	defer rows.Close()

	result := make([]model.DrinkTypeCount, 0)
	for rows.Next() {
		var tc model.DrinkTypeCount
		if err := rows.Scan(&tc.DrinkType, &tc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan drink type: %w", err)
		}
		result = append(result, tc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate drink types: %w", err)
	}
	return result, nil
}

// Create はドリンクを作成し、カフェ情報付きで返す。
// logged_atが未指定の場合はDBの現在時刻を使う。
func (r *PostgresDrinkRepo) Create(ctx context.Context, userID string, in model.NewDrink) (*model.DrinkWithCafe, error) {
	var tags any
	if in.FlavorTags != nil {
		tags = pq.StringArray(in.FlavorTags)
	}

	d, err := scanDrinkWithCafe(r.db.QueryRowContext(ctx,
		`WITH d AS (
			INSERT INTO drinks (user_id, cafe_id, drink_type, rating, notes, price, flavor_tags, photo_url, logged_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, COALESCE($9, NOW()))
			RETURNING id, user_id, cafe_id, drink_type, rating, notes, price, flavor_tags, photo_url, logged_at, created_at
		)
		SELECT d.id, d.user_id, d.cafe_id, d.drink_type, d.rating, d.notes, d.price,
		       d.flavor_tags, d.photo_url, d.logged_at, d.created_at,
		       c.name, c.address, c.city
		FROM d
		JOIN cafes c ON c.id = d.cafe_id`,
		userID, in.CafeID, in.DrinkType, in.Rating, in.Notes, in.Price, tags, in.PhotoURL, in.LoggedAt,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to insert drink: %w", err)
	}
	return d, nil
}

// Delete は指定IDのドリンクを削除する。削除対象がなかった場合はfalseを返す。
func (r *PostgresDrinkRepo) Delete(ctx context.Context, userID string, id int64) (bool, error) {
	var deletedID int64
	err := r.db.QueryRowContext(ctx,
		`DELETE FROM drinks WHERE id = $1 AND user_id = $2 RETURNING id`,
		id, userID,
	).Scan(&deletedID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to delete drink: %w", err)
	}
	return true, nil
}

// ListForStats は統計集計に必要な列だけを全件返す。
func (r *PostgresDrinkRepo) ListForStats(ctx context.Context, userID string) ([]model.DrinkWithCafe, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT d.id, d.cafe_id, c.name, d.rating, d.drink_type, d.logged_at, d.price, d.flavor_tags
		 FROM drinks d
		 JOIN cafes c ON c.id = d.cafe_id
		 WHERE d.user_id = $1`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list drinks for stats: %w", err)
	}
	defer rows.Close()

	result := make([]model.DrinkWithCafe, 0)
	for rows.Next() {
		var d model.DrinkWithCafe
		var tags pq.StringArray
		if err := rows.Scan(&d.ID, &d.CafeID, &d.CafeName, &d.Rating, &d.DrinkType, &d.LoggedAt, &d.Price, &tags); err != nil {
			return nil, fmt.Errorf("failed to scan drink for stats: %w", err)
		}
		d.UserID = userID
		d.FlavorTags = []string(tags)
		result = append(result, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate drinks for stats: %w", err)
	}
	return result, nil
}

// compile-time interface check
var _ DrinkRepository = (*PostgresDrinkRepo)(nil)
