// Package app はbrewlogのサブコマンドと依存関係のワイヤリングを提供する。
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hitoshi/brewlog/internal/assistant"
	"github.com/hitoshi/brewlog/internal/auth"
	"github.com/hitoshi/brewlog/internal/cafe"
	"github.com/hitoshi/brewlog/internal/config"
	"github.com/hitoshi/brewlog/internal/database"
	"github.com/hitoshi/brewlog/internal/drink"
	"github.com/hitoshi/brewlog/internal/handler"
	"github.com/hitoshi/brewlog/internal/logger"
	"github.com/hitoshi/brewlog/internal/metrics"
	"github.com/hitoshi/brewlog/internal/middleware"
	"github.com/hitoshi/brewlog/internal/places"
	"github.com/hitoshi/brewlog/internal/repository"
	"github.com/hitoshi/brewlog/internal/security"
	"github.com/hitoshi/brewlog/internal/stats"
	"github.com/hitoshi/brewlog/internal/user"
	"github.com/hitoshi/brewlog/internal/wishlist"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// jwksFetchTimeout はJWKS取得のタイムアウト。
const jwksFetchTimeout = 10 * time.Second

// rateLimitCleanupInterval はレート制限エントリのクリーンアップ間隔。
const rateLimitCleanupInterval = 5 * time.Minute

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, slog.LevelInfo)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. LOG_LEVELを反映する
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: LOG_LEVEL: %w", err)
	}
	logger.SetupDefault(w, level)

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// argsにはos.Args[1:]を渡す。サブコマンド省略時はserveとして起動する。
func Run(w io.Writer, args []string) error {
	root := NewRootCommand(w)
	root.SetArgs(args)
	return root.Execute()
}

func serve(w io.Writer) error {
	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(CommandServe)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
		slog.String("version", version),
	)
	return runServe(cfg)
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL, database.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	err = db.PingContext(pingCtx)
	cancelPing()
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. 依存関係の構築
	srv, err := buildServer(cfg, db)
	if err != nil {
		return err
	}
	defer srv.rateLimiter.Stop()

	// 3. HTTPサーバーの起動
	httpServer := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      srv.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.LLMTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("API server starting",
			slog.String("addr", httpServer.Addr),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-stop:
	case err := <-serveErr:
		return fmt.Errorf("server listen error: %w", err)
	}
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// server はワイヤリング済みのHTTPハンドラーと、停止が必要な部品を保持する。
type server struct {
	handler     http.Handler
	rateLimiter *middleware.RateLimiter
}

// buildServer はリポジトリ、サービス、ハンドラーを組み立てる。
// DBへの接続は行わない（*sql.DBは遅延接続）。
func buildServer(cfg *config.Config, db *sql.DB) (*server, error) {
	// リポジトリ
	cafeRepo := repository.NewPostgresCafeRepo(db)
	drinkRepo := repository.NewPostgresDrinkRepo(db)
	wishlistRepo := repository.NewPostgresWishlistRepo(db)
	userDataRepo := repository.NewPostgresUserDataRepo(db)

	// メトリクス
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(reg)

	// セキュリティ
	ssrfGuard := security.NewSSRFGuard()
	sanitizer := security.NewTextSanitizer()
	if err := validateEndpoints(cfg, ssrfGuard); err != nil {
		return nil, err
	}

	// 認証
	if cfg.AuthInsecureDev {
		slog.Warn("AUTH_INSECURE_DEV is enabled: bearer token signatures are NOT verified")
	}
	verifier := newVerifier(cfg, ssrfGuard.NewSafeClient(jwksFetchTimeout))

	// ドメインサービス
	cafeService := cafe.NewService(cafeRepo, sanitizer)
	drinkService := drink.NewService(drinkRepo, cafeRepo, sanitizer, collector)
	wishlistService := wishlist.NewService(wishlistRepo, cafeRepo, sanitizer)
	userService := user.NewService(userDataRepo)
	statsService := stats.NewService(drinkRepo, cfg.StatsLocation(), collector)

	// AI（APIキー未設定の場合はgenをnilのままにし、AI_NOT_CONFIGUREDを返す）
	var gen assistant.Generator
	if cfg.AIEnabled() {
		llm, err := assistant.NewModel(assistant.ProviderConfig{
			Provider: cfg.LLMProvider,
			APIKey:   cfg.LLMAPIKey,
			Model:    cfg.LLMModel,
			BaseURL:  cfg.LLMBaseURL,
		}, &http.Client{Timeout: cfg.LLMTimeout})
		if err != nil {
			return nil, fmt.Errorf("failed to create LLM client: %w", err)
		}
		gen = llm
		slog.Info("AI features enabled",
			slog.String("provider", cfg.LLMProvider),
			slog.String("model", cfg.LLMModel),
		)
	} else {
		slog.Warn("LLM_API_KEY is not set: AI features are disabled")
	}
	parser := assistant.NewParser(gen, cafeRepo, sanitizer, collector)
	recommender := assistant.NewRecommender(gen, drinkRepo, sanitizer, collector)

	// 場所検索
	if !cfg.PlacesEnabled() {
		slog.Warn("MAPS_API_KEY is not set: place search is disabled")
	}
	placesClient := places.NewClient(
		ssrfGuard.NewSafeClient(cfg.MapsTimeout),
		slog.Default(),
		cfg.MapsBaseURL,
		cfg.MapsAPIKey,
	)

	// レート制限
	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		Window:          cfg.RateLimitWindow,
		GeneralLimit:    cfg.RateLimitGeneral,
		AILimit:         cfg.RateLimitAI,
		CleanupInterval: rateLimitCleanupInterval,
	})

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:            slog.Default(),
		Verifier:          verifier,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		RequestObserver:   collector,

		HealthChecker:  db,
		MetricsHandler: metrics.Handler(reg),

		CafeService:     cafeService,
		DrinkService:    drinkService,
		StatsService:    statsService,
		WishlistService: wishlistService,
		UserService:     userService,
		AIService:       handler.NewAssistantAdapter(parser, recommender),
		PlacesService:   handler.NewPlacesAdapter(placesClient),
	})

	return &server{handler: router, rateLimiter: rateLimiter}, nil
}

// validateEndpoints はSSRF防止クライアントで呼び出す外部エンドポイントの設定を起動時に検証する。
func validateEndpoints(cfg *config.Config, guard security.SSRFGuardService) error {
	if cfg.AuthJWKSURL != "" {
		if err := guard.ValidateEndpoint("AUTH_JWKS_URL", cfg.AuthJWKSURL); err != nil {
			return fmt.Errorf("invalid endpoint: %w", err)
		}
	}
	if cfg.PlacesEnabled() {
		if err := guard.ValidateEndpoint("MAPS_BASE_URL", cfg.MapsBaseURL); err != nil {
			return fmt.Errorf("invalid endpoint: %w", err)
		}
	}
	return nil
}

// newVerifier は設定に応じたトークン検証器を生成する。
// JWKS URLがある場合のみ非対称鍵の検証を有効にする。
func newVerifier(cfg *config.Config, client *http.Client) *auth.JWTVerifier {
	var keys auth.KeySet
	if cfg.AuthJWKSURL != "" {
		keys = auth.NewKeyCache(cfg.AuthJWKSURL, client, cfg.AuthJWKSTTL, cfg.AuthJWKSMinRefresh)
	}
	return auth.NewJWTVerifier(auth.VerifierConfig{
		Keys:        keys,
		Secret:      cfg.AuthSigningSecret,
		Issuer:      cfg.AuthIssuer,
		Leeway:      cfg.AuthLeeway,
		InsecureDev: cfg.AuthInsecureDev,
	})
}

// migrateOptions はmigrateサブコマンドのフラグ。
type migrateOptions struct {
	down        int
	showVersion bool
}

// runMigrate はデータベースマイグレーションを実行する。
// 既定ではすべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config, opts migrateOptions) error {
	dbURL := maskDatabaseURL(cfg.DatabaseURL)

	switch {
	case opts.showVersion:
		v, dirty, err := database.MigrationVersion(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("migration version failed: %w", err)
		}
		slog.Info("current schema version",
			slog.Uint64("version", uint64(v)),
			slog.Bool("dirty", dirty),
		)
		return nil

	case opts.down > 0:
		slog.Info("rolling back database migrations",
			slog.String("database_url", dbURL),
			slog.Int("steps", opts.down),
		)
		if err := database.RollbackMigrations(cfg.DatabaseURL, opts.down); err != nil {
			return fmt.Errorf("migration rollback failed: %w", err)
		}
		slog.Info("database migrations rolled back successfully")
		return nil
	}

	slog.Info("running database migrations",
		slog.String("database_url", dbURL),
	)
	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	target := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(target)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLのパスワードをマスクする。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	return u.Redacted()
}
