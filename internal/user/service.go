// Package user はユーザー単位のデータ管理を提供する。
// ユーザー自体はIdPが管理するため、ここで扱うのはユーザーが所有するデータだけ。
package user

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/brewlog/internal/repository"
)

// Service はユーザーデータ管理のサービス層。
type Service struct {
	dataRepo repository.UserDataRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(dataRepo repository.UserDataRepository) *Service {
	return &Service{dataRepo: dataRepo}
}

// WipeData はユーザーのドリンクとカフェをすべて削除する。ウィッシュリストは残る。
// 削除は1つのトランザクションで行われ、途中で失敗した場合は何も削除されない。
// 元に戻すことはできない。
func (s *Service) WipeData(ctx context.Context, userID string) (*repository.DeletedCounts, error) {
	slog.Info("wiping user data",
		slog.String("user_id", userID),
	)

	counts, err := s.dataRepo.DeleteAll(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to delete user data: %w", err)
	}

	slog.Info("user data wiped",
		slog.String("user_id", userID),
		slog.Int64("drinks", counts.Drinks),
		slog.Int64("cafes", counts.Cafes),
	)
	return counts, nil
}
