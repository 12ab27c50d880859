package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/tokenbay/tokenbay-api/internal/config"
	"github.com/tokenbay/tokenbay-api/internal/domain/deposit"
	"github.com/tokenbay/tokenbay-api/internal/domain/ledger"
	"github.com/tokenbay/tokenbay-api/internal/domain/order"
	"github.com/tokenbay/tokenbay-api/internal/domain/settlement"
	"github.com/tokenbay/tokenbay-api/internal/domain/wallet"
	"github.com/tokenbay/tokenbay-api/internal/middleware"
	"github.com/tokenbay/tokenbay-api/internal/pkg/database"
	"github.com/tokenbay/tokenbay-api/internal/pkg/jwt"
	pkgresponse "github.com/tokenbay/tokenbay-api/internal/pkg/response"
	"github.com/tokenbay/tokenbay-api/internal/pkg/tron"
)

func main() {
	cfg := config.Load()
	setupLogger(cfg)

	log.Info().
		Str("env", cfg.Env).
		Str("port", cfg.Port).
		Msg("Starting TokenBay API")

	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	redisClient, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer database.CloseRedis(redisClient)

	jwtService := jwt.NewService(cfg.JWTSecret, cfg.JWTAccessTTL)

	custody, err := wallet.NewCustody(cfg.WalletMasterSecret)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize wallet custody")
	}

	chainClient := tron.NewClient(tron.Config{
		BaseURL:  cfg.TronAPIURL,
		APIKey:   cfg.TronAPIKey,
		Contract: cfg.TokenContract,
		Timeout:  cfg.ChainCallTimeout,
	})

	withdrawalMin, err := decimal.NewFromString(cfg.WithdrawalMin)
	if err != nil {
		log.Fatal().Str("value", cfg.WithdrawalMin).Msg("Invalid WITHDRAWAL_MIN")
	}
	withdrawalMax, err := decimal.NewFromString(cfg.WithdrawalMax)
	if err != nil {
		log.Fatal().Str("value", cfg.WithdrawalMax).Msg("Invalid WITHDRAWAL_MAX")
	}

	// ---------- Repositories ----------
	walletRepo := wallet.NewRepository(db)
	ledgerRepo := ledger.NewRepository(db)
	orderRepo := order.NewRepository(db)
	depositStore := deposit.NewPostgresStore(db, walletRepo, ledgerRepo)

	// ---------- Services ----------
	walletService := wallet.NewService(walletRepo, custody)
	settlementService := settlement.NewService(db, walletRepo, ledgerRepo, settlement.Bounds{
		Min: withdrawalMin,
		Max: withdrawalMax,
	})
	orderService := order.NewService(orderRepo, settlementService)
	depositService := deposit.NewService(depositStore, chainClient, deposit.Config{
		Token:       cfg.TokenSymbol,
		Network:     cfg.TokenNetwork,
		IntentTTL:   cfg.IntentTTL,
		CallTimeout: cfg.ChainCallTimeout,
		BatchSize:   cfg.ScanBatchSize,
	})

	// ---------- Handlers ----------
	walletHandler := wallet.NewHandler(walletService)
	ledgerHandler := ledger.NewHandler(ledgerRepo)
	depositHandler := deposit.NewHandler(depositService)
	settlementHandler := settlement.NewHandler(settlementService)
	orderHandler := order.NewHandler(orderService)

	authMiddleware := middleware.Auth(jwtService)

	// ---------- Router ----------
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recover)
	r.Use(middleware.CORSHandler(cfg.AllowedOrigins))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		pkgresponse.OK(w, map[string]string{
			"status":  "ok",
			"version": "1.0.0",
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/wallet", func(r chi.Router) {
			r.Mount("/transactions", ledgerHandler.Routes(authMiddleware))
			r.Group(func(r chi.Router) {
				r.Use(authMiddleware)
				r.Post("/", walletHandler.Create)
				r.Get("/", walletHandler.Get)
				r.With(middleware.RequireAdmin()).Get("/{userID}/key", walletHandler.RevealKey)
			})
		})
		r.Mount("/deposits", depositHandler.Routes(authMiddleware))
		r.Mount("/withdrawals", settlementHandler.Routes(authMiddleware))
		r.Mount("/orders", orderHandler.Routes(authMiddleware))
	})

	// ---------- Deposit reconciliation loop ----------
	scanCtx, stopScanner := context.WithCancel(context.Background())
	defer stopScanner()
	if !cfg.ScannerDisabled {
		reconciler := deposit.NewReconciler(depositService, redisClient, cfg.ScanInterval)
		go reconciler.Run(scanCtx)
	}

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	stopScanner()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited properly")
}

func setupLogger(cfg *config.Config) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.IsDevelopment() {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: "15:04:05",
		})
	}
}
