// Package main はAPIサーバーのエントリーポイントです。
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/bookshelf/internal/auth"
	"github.com/yourusername/bookshelf/internal/catalog"
	"github.com/yourusername/bookshelf/internal/config"
	"github.com/yourusername/bookshelf/internal/jobs"
	"github.com/yourusername/bookshelf/internal/reviews"
	"github.com/yourusername/bookshelf/internal/storage"
	"github.com/yourusername/bookshelf/internal/users"
)

func main() {
	// 設定の読み込み
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Ginのモードを設定
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := newApp(ctx, cfg, log.Default())
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer app.Close()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           app.router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting API server on %s (mode: %s)", srv.Addr, cfg.GinMode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Printf("Shutting down API server")
	case err := <-errCh:
		log.Fatalf("Failed to start server: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown failed: %v", err)
	}
}

// app はサーバーが使う依存関係をまとめたものです。
type app struct {
	cfg      *config.Config
	logger   *log.Logger
	keys     auth.Keys
	store    storage.Store
	catalog  *catalog.Catalog
	registry *users.Registry
	auth     *auth.Manager
	reviews  *reviews.Service
	history  *jobs.Manager // 無効時は nil
}

func newApp(ctx context.Context, cfg *config.Config, logger *log.Logger) (*app, error) {
	secret := []byte(cfg.SessionSecret)
	if len(secret) == 0 {
		// 開発モードのみ（release では Validate で弾かれる）
		logger.Printf("SESSION_SECRET is not set; using a random secret, sessions will not survive restarts")
		random, err := auth.RandomSecret()
		if err != nil {
			return nil, err
		}
		secret = random
	}
	keys, err := auth.DeriveKeys(secret)
	if err != nil {
		return nil, err
	}

	books, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return nil, err
	}

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		logger:  logger,
		keys:    keys,
		store:   store,
		catalog: books,
	}

	var recorder reviews.ChangeRecorder
	if cfg.QueueRedisURL != "" {
		manager, err := setupJobs(cfg, logger)
		if err != nil {
			store.Close()
			return nil, err
		}
		manager.StartWorkers()
		a.history = manager
		recorder = &reviewHistoryRecorder{manager: manager}
	}

	tokens, err := auth.NewJWTIssuer(keys.Token, cfg.TokenTTL)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.registry = users.NewRegistry(store)
	a.auth = auth.NewManager(a.registry, store, tokens, auth.Options{
		SessionTTL:   cfg.SessionMaxAge,
		RejectStatus: cfg.LoginRejectStatus,
		Logger:       logger,
	})
	a.reviews = reviews.NewService(books, store, recorder, logger)
	return a, nil
}

func openStore(ctx context.Context, cfg *config.Config, logger *log.Logger) (storage.Store, error) {
	if cfg.RedisURL == "" {
		logger.Printf("REDIS_URL is not set; using in-memory storage")
		return storage.NewMemory(), nil
	}
	return storage.OpenRedis(ctx, cfg.RedisURL)
}

// Close はワーカーとストアを閉じます。
func (a *app) Close() {
	if a.history != nil {
		if err := a.history.Shutdown(context.Background()); err != nil {
			a.logger.Printf("failed to shutdown history workers: %v", err)
		}
	}
	if err := a.store.Close(); err != nil {
		a.logger.Printf("failed to close storage: %v", err)
	}
}

// router はミドルウェアとルーティングを設定したエンジンを返します。
func (a *app) router() *gin.Engine {
	// Ginルーターの初期化（デフォルトミドルウェア: Logger, Recovery）
	router := gin.Default()

	// セッションCookieにはセッションIDのみを保持し、署名鍵はシークレットから導出
	store := cookie.NewStore(a.keys.Cookie)
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int(a.cfg.SessionMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   a.cfg.GinMode == gin.ReleaseMode,
		SameSite: http.SameSiteStrictMode,
	})
	router.Use(sessions.Sessions(auth.SessionCookieName, store))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = strings.Split(a.cfg.CORSAllowedOrigins, ",")
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{
		"Origin",
		"Content-Type",
		"Accept",
	}
	router.Use(cors.New(corsConfig))

	a.setupRoutes(router)
	return router
}

// handleHealth はヘルスチェックエンドポイントのハンドラーです。
func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "bookshelf-api",
		"version": "0.1.0",
	})
}

// setupRoutes は公開ルートと認証が必要なルートを登録します。
func (a *app) setupRoutes(router *gin.Engine) {
	router.GET("/health", handleHealth)

	catalog.NewHandler(a.catalog, a.store, a.logger).Register(router)
	router.GET("/review/:isbn", reviews.ListHandler(a.reviews))
	router.GET("/review/:isbn/history", reviewHistoryHandler(a.history, a.catalog))
	router.POST("/register", users.RegisterHandler(a.registry, a.logger))

	customer := router.Group("/customer")
	{
		customer.POST("/login", a.auth.Login)

		protected := customer.Group("/auth")
		protected.Use(a.auth.RequireLogin())
		{
			protected.PUT("/review/:isbn", reviews.UpsertHandler(a.reviews))
			protected.DELETE("/review/:isbn", reviews.DeleteHandler(a.reviews))
			protected.POST("/logout", a.auth.Logout)
		}
	}
}
