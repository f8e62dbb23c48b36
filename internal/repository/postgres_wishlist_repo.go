package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/brewlog/internal/model"
)

const wishlistColumns = `id, user_id, name, address, city, place_id, photo_reference, lat, lng, notes, created_at`

// PostgresWishlistRepo はPostgreSQLを使用したウィッシュリストリポジトリ。
type PostgresWishlistRepo struct {
	db *sql.DB
}

// NewPostgresWishlistRepo はPostgresWishlistRepoを生成する。
func NewPostgresWishlistRepo(db *sql.DB) *PostgresWishlistRepo {
	return &PostgresWishlistRepo{db: db}
}

func scanWishlistItem(row rowScanner) (*model.WishlistItem, error) {
	w := &model.WishlistItem{}
	err := row.Scan(
		&w.ID, &w.UserID, &w.Name, &w.Address, &w.City, &w.PlaceID,
		&w.PhotoReference, &w.Lat, &w.Lng, &w.Notes, &w.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return w, nil
}

// List はウィッシュリストを追加日の新しい順で返す。
func (r *PostgresWishlistRepo) List(ctx context.Context, userID string) ([]model.WishlistItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+wishlistColumns+` FROM wishlist WHERE user_id = $1 ORDER BY created_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list wishlist: %w", err)
	}
	defer rows.Close()

	result := make([]model.WishlistItem, 0)
	for rows.Next() {
		w, err := scanWishlistItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan wishlist item: %w", err)
		}
		result = append(result, *w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate wishlist: %w", err)
	}
	return result, nil
}

// FindByPlaceID はplace_idで項目を検索する。見つからない場合はnilを返す。
func (r *PostgresWishlistRepo) FindByPlaceID(ctx context.Context, userID, placeID string) (*model.WishlistItem, error) {
	w, err := scanWishlistItem(r.db.QueryRowContext(ctx,
		`SELECT `+wishlistColumns+` FROM wishlist WHERE user_id = $1 AND place_id = $2`,
		userID, placeID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find wishlist item by place ID: %w", err)
	}
	return w, nil
}

// Create は項目を作成し、作成された行を返す。
func (r *PostgresWishlistRepo) Create(ctx context.Context, userID string, p model.PlaceFields, notes *string) (*model.WishlistItem, error) {
	w, err := scanWishlistItem(r.db.QueryRowContext(ctx,
		`INSERT INTO wishlist (user_id, name, address, city, place_id, photo_reference, lat, lng, notes)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING `+wishlistColumns,
		userID, p.Name, p.Address, p.City, p.PlaceID, p.PhotoReference, p.Lat, p.Lng, notes,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to insert wishlist item: %w", err)
	}
	return w, nil
}

// Delete は指定IDの項目を削除する。削除対象がなかった場合はfalseを返す。
func (r *PostgresWishlistRepo) Delete(ctx context.Context, userID string, id int64) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM wishlist WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete wishlist item: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n > 0, nil
}

// ConvertToCafe は項目をカフェに変換し、ウィッシュリストから削除する。
// 同じplace_idのカフェが既にある場合は新規作成せず既存のカフェを返す。
// 項目が見つからない場合はnilを返す。
func (r *PostgresWishlistRepo) ConvertToCafe(ctx context.Context, userID string, id int64) (*model.Cafe, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// 同時に訪問済みにされないよう行をロックする
	item, err := scanWishlistItem(tx.QueryRowContext(ctx,
		`SELECT `+wishlistColumns+` FROM wishlist WHERE id = $1 AND user_id = $2 FOR UPDATE`,
		id, userID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock wishlist item: %w", err)
	}

	cafe, err := upsertCafe(ctx, tx, userID, item.PlaceFields)
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM wishlist WHERE id = $1 AND user_id = $2`,
		id, userID,
	); err != nil {
		return nil, fmt.Errorf("failed to delete wishlist item: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return cafe, nil
}

// upsertCafe はplace_idが一致するカフェがあればそれを返し、なければ作成する。
func upsertCafe(ctx context.Context, tx *sql.Tx, userID string, p model.PlaceFields) (*model.Cafe, error) {
	if p.PlaceID == nil {
		c, err := insertCafe(ctx, tx, userID, p)
		if err != nil {
			return nil, fmt.Errorf("failed to insert cafe: %w", err)
		}
		return c, nil
	}

	c, err := scanCafe(tx.QueryRowContext(ctx,
		`INSERT INTO cafes (user_id, name, address, city, place_id, photo_reference, lat, lng)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (user_id, place_id) WHERE place_id IS NOT NULL DO NOTHING
		 RETURNING `+cafeColumns,
		userID, p.Name, p.Address, p.City, p.PlaceID, p.PhotoReference, p.Lat, p.Lng,
	))
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to insert cafe: %w", err)
	}

	c, err = scanCafe(tx.QueryRowContext(ctx,
		`SELECT `+cafeColumns+` FROM cafes WHERE user_id = $1 AND place_id = $2`,
		userID, *p.PlaceID,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to find existing cafe: %w", err)
	}
	return c, nil
}

// compile-time interface check
var _ WishlistRepository = (*PostgresWishlistRepo)(nil)
