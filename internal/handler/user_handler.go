package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/brewlog/internal/repository"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	// WipeData はユーザーのドリンクとカフェを一括削除する。
	WipeData(ctx context.Context, userID string) (*repository.DeletedCounts, error)
}

// UserHandler はユーザーデータ管理のHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface) *UserHandler {
	return &UserHandler{
		service: service,
	}
}

// wipeDataResponse はデータ全削除のAPIレスポンス。
type wipeDataResponse struct {
	Message string       `json:"message"`
	Deleted deletedCount `json:"deleted"`
}

type deletedCount struct {
	Drinks int64 `json:"drinks"`
	Cafes  int64 `json:"cafes"`
}

// DeleteData はユーザーの全データを削除する。元に戻すことはできない。
// DELETE /api/user/data
func (h *UserHandler) DeleteData(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	counts, err := h.service.WipeData(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, wipeDataResponse{
		Message: "All data deleted successfully",
		Deleted: deletedCount{
			Drinks: counts.Drinks,
			Cafes:  counts.Cafes,
		},
	})
}
