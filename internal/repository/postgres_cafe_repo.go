package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/brewlog/internal/model"
)

const cafeColumns = `id, user_id, name, address, city, place_id, photo_reference, lat, lng, created_at`

// PostgresCafeRepo はPostgreSQLを使用したカフェリポジトリ。
type PostgresCafeRepo struct {
	db *sql.DB
}

// NewPostgresCafeRepo はPostgresCafeRepoを生成する。
func NewPostgresCafeRepo(db *sql.DB) *PostgresCafeRepo {
	return &PostgresCafeRepo{db: db}
}

// scanCafe はcafeColumnsの並びで1行を読み取る。
func scanCafe(row rowScanner, extra ...any) (*model.Cafe, error) {
	c := &model.Cafe{}
	dest := []any{
		&c.ID, &c.UserID, &c.Name, &c.Address, &c.City,
		&c.PlaceID, &c.PhotoReference, &c.Lat, &c.Lng, &c.CreatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return c, nil
}

// ListWithVisits はユーザーのカフェ一覧をドリンク数と最終訪問日時付きで返す。
func (r *PostgresCafeRepo) ListWithVisits(ctx context.Context, userID string) ([]model.CafeWithVisits, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT c.id, c.user_id, c.name, c.address, c.city, c.place_id, c.photo_reference, c.lat, c.lng, c.created_at,
		        COUNT(d.id) AS drink_count, MAX(d.logged_at) AS last_visit
		 FROM cafes c
		 LEFT JOIN drinks d ON d.cafe_id = c.id AND d.user_id = c.user_id
		 WHERE c.user_id = $1
		 GROUP BY c.id
		 ORDER BY last_visit DESC NULLS LAST, c.name ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list cafes: %w", err)
	}
	defer rows.Close()

	result := make([]model.CafeWithVisits, 0)
	for rows.Next() {
		var cv model.CafeWithVisits
		c, err := scanCafe(rows, &cv.DrinkCount, &cv.LastVisit)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cafe: %w", err)
		}
		cv.Cafe = *c
		result = append(result, cv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cafes: %w", err)
	}
	return result, nil
}

// FindByID は指定IDのカフェを取得する。見つからない場合はnilを返す。
func (r *PostgresCafeRepo) FindByID(ctx context.Context, userID string, id int64) (*model.Cafe, error) {
	c, err := scanCafe(r.db.QueryRowContext(ctx,
		`SELECT `+cafeColumns+` FROM cafes WHERE id = $1 AND user_id = $2`,
		id, userID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find cafe by ID: %w", err)
	}
	return c, nil
}

// FindByPlaceID は地図APIのplace_idでカフェを検索する。見つからない場合はnilを返す。
func (r *PostgresCafeRepo) FindByPlaceID(ctx context.Context, userID, placeID string) (*model.Cafe, error) {
	c, err := scanCafe(r.db.QueryRowContext(ctx,
		`SELECT `+cafeColumns+` FROM cafes WHERE user_id = $1 AND place_id = $2`,
		userID, placeID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find cafe by place ID: %w", err)
	}
	return c, nil
}

// Create はカフェを作成し、作成された行を返す。
func (r *PostgresCafeRepo) Create(ctx context.Context, userID string, place model.PlaceFields) (*model.Cafe, error) {
	c, err := insertCafe(ctx, r.db, userID, place)
	if err != nil {
		return nil, fmt.Errorf("failed to insert cafe: %w", err)
	}
	return c, nil
}

// queryRower はsql.DBとsql.Txの共通部分。
type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// insertCafe はカフェを挿入する。ウィッシュリスト変換のトランザクション内からも使う。
func insertCafe(ctx context.Context, q queryRower, userID string, p model.PlaceFields) (*model.Cafe, error) {
	return scanCafe(q.QueryRowContext(ctx,
		`INSERT INTO cafes (user_id, name, address, city, place_id, photo_reference, lat, lng)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING `+cafeColumns,
		userID, p.Name, p.Address, p.City, p.PlaceID, p.PhotoReference, p.Lat, p.Lng,
	))
}

// ListNames はファジーマッチ用にカフェのIDと名前を名前順で返す。
func (r *PostgresCafeRepo) ListNames(ctx context.Context, userID string) ([]model.CafeName, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name FROM cafes WHERE user_id = $1 ORDER BY name ASC, id ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list cafe names: %w", err)
	}
	defer rows.Close()

	result := make([]model.CafeName, 0)
	for rows.Next() {
		var n model.CafeName
		if err := rows.Scan(&n.ID, &n.Name); err != nil {
			return nil, fmt.Errorf("failed to scan cafe name: %w", err)
		}
		result = append(result, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cafe names: %w", err)
	}
	return result, nil
}

// compile-time interface check
var _ CafeRepository = (*PostgresCafeRepo)(nil)
