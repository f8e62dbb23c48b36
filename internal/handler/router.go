package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/brewlog/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	Verifier          middleware.TokenVerifier
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	RequestObserver   middleware.RequestObserver

	// 公開エンドポイント
	HealthChecker  HealthChecker
	MetricsHandler http.Handler

	CafeService     CafeServiceInterface
	DrinkService    DrinkServiceInterface
	StatsService    StatsServiceInterface
	WishlistService WishlistServiceInterface
	UserService     UserServiceInterface
	AIService       AIServiceInterface
	PlacesService   PlacesServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → Recovery → Logging → Metrics → SecurityHeaders → CORS
//	  /api/*:    Auth → RateLimit(General)
//	  /api/ai/*: Auth → RateLimit(General) → RateLimit(AI)
//
// /health と /metrics は認証の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(middleware.NewRequestIDMiddleware())
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	if deps.RequestObserver != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.RequestObserver))
	}
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	cafeHandler := NewCafeHandler(deps.CafeService)
	drinkHandler := NewDrinkHandler(deps.DrinkService)
	statsHandler := NewStatsHandler(deps.StatsService)
	wishlistHandler := NewWishlistHandler(deps.WishlistService)
	userHandler := NewUserHandler(deps.UserService)
	aiHandler := NewAIHandler(deps.AIService)
	placesHandler := NewPlacesHandler(deps.PlacesService)

	// --- 認証不要のルート ---
	r.Get("/health", healthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// --- 認証が必要なルート ---
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAuthMiddleware(deps.Verifier))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Route("/api/cafes", func(r chi.Router) {
			r.Get("/", cafeHandler.ListCafes)
			r.Post("/", cafeHandler.CreateCafe)
			r.Get("/{id}", cafeHandler.GetCafe)
		})

		r.Route("/api/drinks", func(r chi.Router) {
			r.Get("/", drinkHandler.ListDrinks)
			r.Post("/", drinkHandler.CreateDrink)
			// 固定パスは{id}より先に登録する
			r.Get("/types", drinkHandler.ListDrinkTypes)
			r.Get("/last", drinkHandler.GetLastDrink)
			r.Get("/{id}", drinkHandler.GetDrink)
			r.Delete("/{id}", drinkHandler.DeleteDrink)
		})

		r.Get("/api/stats", statsHandler.GetStats)

		r.Route("/api/wishlist", func(r chi.Router) {
			r.Get("/", wishlistHandler.ListWishlist)
			r.Post("/", wishlistHandler.AddToWishlist)
			r.Route("/{id}", func(r chi.Router) {
				r.Delete("/", wishlistHandler.RemoveFromWishlist)
				r.Post("/visit", wishlistHandler.VisitWishlistItem)
			})
		})

		r.Delete("/api/user/data", userHandler.DeleteData)

		// AI系は全般の上限に加えて専用の上限を適用する
		r.Route("/api/ai", func(r chi.Router) {
			r.Use(deps.RateLimiter.AIMiddleware())
			r.Post("/parse", aiHandler.ParseDrink)
			r.Post("/recommendations", aiHandler.Recommend)
		})

		r.Route("/api/places", func(r chi.Router) {
			r.Get("/autocomplete", placesHandler.Autocomplete)
			r.Get("/{placeID}", placesHandler.GetPlace)
		})
	})

	return r
}
