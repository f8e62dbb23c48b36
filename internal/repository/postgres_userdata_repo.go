package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresUserDataRepo はユーザー単位の一括操作を行うリポジトリ。
type PostgresUserDataRepo struct {
	db *sql.DB
}

// NewPostgresUserDataRepo はPostgresUserDataRepoを生成する。
func NewPostgresUserDataRepo(db *sql.DB) *PostgresUserDataRepo {
	return &PostgresUserDataRepo{db: db}
}

// DeleteAll はユーザーのドリンクとカフェを同一トランザクションで削除する。
// ドリンクはカフェを参照するため先に削除する。ウィッシュリストは削除対象外。
func (r *PostgresUserDataRepo) DeleteAll(ctx context.Context, userID string) (*DeletedCounts, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	counts := &DeletedCounts{}
	steps := []struct {
		table string
		dest  *int64
	}{
		{"drinks", &counts.Drinks},
		{"cafes", &counts.Cafes},
	}
	for _, s := range steps {
		result, err := tx.ExecContext(ctx, `DELETE FROM `+s.table+` WHERE user_id = $1`, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to delete %s: %w", s.table, err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("failed to get rows affected: %w", err)
		}
		*s.dest = n
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return counts, nil
}

// compile-time interface check
var _ UserDataRepository = (*PostgresUserDataRepo)(nil)
