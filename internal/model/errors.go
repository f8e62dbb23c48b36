// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// クライアントに返す原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, not_found, upstream, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// エラーカテゴリ。HTTPステータスへの対応はhandler層が決める。
const (
	CategoryAuth        = "auth"
	CategoryValidation  = "validation"
	CategoryNotFound    = "not_found"
	CategoryUpstream    = "upstream"
	CategoryUnavailable = "unavailable"
	CategorySystem      = "system"
)

// 定義済みエラーコード
const (
	ErrCodeUnauthorized         = "UNAUTHORIZED"
	ErrCodeValidationFailed     = "VALIDATION_FAILED"
	ErrCodeInvalidRequest       = "INVALID_REQUEST"
	ErrCodeInvalidCafe          = "INVALID_CAFE"
	ErrCodeAlreadyInWishlist    = "ALREADY_IN_WISHLIST"
	ErrCodeAlreadyVisited       = "ALREADY_VISITED"
	ErrCodeCafeNotFound         = "CAFE_NOT_FOUND"
	ErrCodeDrinkNotFound        = "DRINK_NOT_FOUND"
	ErrCodeWishlistItemNotFound = "WISHLIST_ITEM_NOT_FOUND"
	ErrCodeNoDrinks             = "NO_DRINKS"
	ErrCodePlaceNotFound        = "PLACE_NOT_FOUND"
	ErrCodeUpstream             = "UPSTREAM_ERROR"
	ErrCodeAINotConfigured      = "AI_NOT_CONFIGURED"
	ErrCodeMapsNotConfigured    = "MAPS_NOT_CONFIGURED"
	ErrCodeRateLimitExceeded    = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternal             = "INTERNAL_ERROR"
)

// NewUnauthorizedError は認証失敗エラーを生成する。
// 失敗理由（トークン欠落、署名不正、期限切れ）はクライアントに区別して返さない。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "Unauthorized",
		Category: CategoryAuth,
		Action:   "Sign in again and retry with a valid bearer token.",
	}
}

// NewValidationError は入力検証エラーを生成する。
func NewValidationError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  message,
		Category: CategoryValidation,
		Action:   "Fix the highlighted field and submit again.",
	}
}

// NewInvalidRequestError はリクエストボディやクエリの解析失敗エラーを生成する。
func NewInvalidRequestError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  message,
		Category: CategoryValidation,
		Action:   "Send a well-formed JSON request.",
	}
}

// NewInvalidCafeError は他ユーザーのカフェや存在しないカフェを参照した場合のエラーを生成する。
func NewInvalidCafeError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCafe,
		Message:  "Invalid cafe_id",
		Category: CategoryValidation,
		Action:   "Choose one of your saved cafes.",
	}
}

// NewAlreadyInWishlistError は同じplace_idが既にウィッシュリストにある場合のエラーを生成する。
func NewAlreadyInWishlistError() *APIError {
	return &APIError{
		Code:     ErrCodeAlreadyInWishlist,
		Message:  "Already in wishlist",
		Category: CategoryValidation,
		Action:   "Open your wishlist to find this cafe.",
	}
}

// NewAlreadyVisitedError は同じplace_idのカフェを既に訪問済みの場合のエラーを生成する。
func NewAlreadyVisitedError() *APIError {
	return &APIError{
		Code:     ErrCodeAlreadyVisited,
		Message:  "Already visited this cafe",
		Category: CategoryValidation,
		Action:   "Log a drink at this cafe instead.",
	}
}

// NewCafeNotFoundError はカフェ未検出エラーを生成する。
func NewCafeNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeCafeNotFound,
		Message:  "Cafe not found",
		Category: CategoryNotFound,
		Action:   "Check the cafe id.",
	}
}

// NewDrinkNotFoundError はドリンク未検出エラーを生成する。
func NewDrinkNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeDrinkNotFound,
		Message:  "Drink not found",
		Category: CategoryNotFound,
		Action:   "Check the drink id.",
	}
}

// NewWishlistItemNotFoundError はウィッシュリスト項目未検出エラーを生成する。
func NewWishlistItemNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeWishlistItemNotFound,
		Message:  "Wishlist item not found",
		Category: CategoryNotFound,
		Action:   "Refresh your wishlist.",
	}
}

// NewNoDrinksError はドリンクが1件も記録されていない場合のエラーを生成する。
func NewNoDrinksError() *APIError {
	return &APIError{
		Code:     ErrCodeNoDrinks,
		Message:  "No drinks found",
		Category: CategoryNotFound,
		Action:   "Log your first drink.",
	}
}

// NewPlaceNotFoundError は地図APIが場所を返さなかった場合のエラーを生成する。
func NewPlaceNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodePlaceNotFound,
		Message:  "Place not found",
		Category: CategoryNotFound,
		Action:   "Search for the cafe again.",
	}
}

// NewUpstreamError は外部サービス（LLM、地図API）の失敗エラーを生成する。
// プロバイダーの詳細はログにのみ記録し、メッセージは汎用のものにする。
func NewUpstreamError(service string) *APIError {
	return &APIError{
		Code:     ErrCodeUpstream,
		Message:  fmt.Sprintf("Failed to reach %s", service),
		Category: CategoryUpstream,
		Action:   "Try again in a moment.",
	}
}

// NewAINotConfiguredError はLLMのAPIキーが未設定の場合のエラーを生成する。
func NewAINotConfiguredError() *APIError {
	return &APIError{
		Code:     ErrCodeAINotConfigured,
		Message:  "AI features are not configured",
		Category: CategoryUnavailable,
		Action:   "Log the drink manually.",
	}
}

// NewMapsNotConfiguredError は地図APIキーが未設定の場合のエラーを生成する。
func NewMapsNotConfiguredError() *APIError {
	return &APIError{
		Code:     ErrCodeMapsNotConfigured,
		Message:  "Place search is not configured",
		Category: CategoryUnavailable,
		Action:   "Enter the cafe details manually.",
	}
}

// NewInternalError は内部エラーを生成する。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "Internal server error",
		Category: CategorySystem,
		Action:   "Try again in a moment.",
	}
}
