// cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"loanpay-service/config"
	"loanpay-service/internal/domain"
	"loanpay-service/internal/handler"
	"loanpay-service/internal/provider/paynow"
	"loanpay-service/internal/rate"
	"loanpay-service/internal/repository"
	"loanpay-service/internal/repository/memory"
	"loanpay-service/internal/router"
	"loanpay-service/internal/usecase"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func main() {
	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	logger.Info("starting loan payment service")

	if err := godotenv.Load(); err != nil {
		logger.Debug("no .env file found, using environment")
	}

	cfg := config.Load()

	logger.Info("configuration loaded",
		zap.String("environment", cfg.Server.Env),
		zap.String("port", cfg.Server.Port))

	// Storage: Postgres when configured, in-memory otherwise.
	var (
		txRepo   repository.TransactionRepository
		loanRepo repository.LoanRepository
	)
	if cfg.Database.Enabled() {
		dbPool, err := pgxpool.New(context.Background(), cfg.Database.ConnString())
		if err != nil {
			logger.Fatal("failed to connect to database", zap.Error(err))
		}
		defer dbPool.Close()

		logger.Info("connected to database",
			zap.String("database", cfg.Database.DBName))

		txRepo = repository.NewTransactionRepository(dbPool)
		loanRepo = repository.NewLoanRepository(dbPool)
	} else {
		logger.Warn("no database configured, using in-memory storage")
		txRepo = memory.NewTransactionStore()
		loanRepo = memory.NewLoanStore()
	}

	// OTP attempt counter: Redis when configured, in-memory otherwise.
	var attempts rate.Counter
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer rdb.Close()

		attempts = rate.NewRedisCounter(rdb, 15*time.Minute)
		logger.Info("connected to redis", zap.String("addr", cfg.Redis.Addr))
	} else {
		logger.Warn("no redis configured, using in-memory attempt counter")
		attempts = memory.NewAttemptCounter()
	}

	if cfg.Server.Env == "development" {
		seedDemoLoans(loanRepo, logger)
	}

	// Gateway
	gateway := paynow.NewClient(cfg.Paynow, logger)

	// Usecases
	paymentUC := usecase.NewPaymentUsecase(txRepo, loanRepo, gateway, logger)
	reconcileUC := usecase.NewReconcileUsecase(txRepo, loanRepo, gateway, logger)
	otpUC := usecase.NewOtpUsecase(txRepo, gateway, attempts, logger)
	loanUC := usecase.NewLoanUsecase(loanRepo, txRepo, logger)

	// Handlers
	paymentHandler := handler.NewPaymentHandler(paymentUC, reconcileUC, otpUC, logger)
	webhookHandler := handler.NewWebhookHandler(reconcileUC, logger)
	loanHandler := handler.NewLoanHandler(loanUC, logger)

	// Setup routes
	r := router.SetupRoutes(paymentHandler, webhookHandler, loanHandler, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	logger.Info("loan payment service started",
		zap.String("port", cfg.Server.Port),
		zap.String("environment", cfg.Server.Env))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}

// seedDemoLoans provisions sample loans so the API is usable out of the box in
// development. Duplicate loan ids are skipped, so restarts are safe against a
// persistent store.
func seedDemoLoans(loanRepo repository.LoanRepository, logger *zap.Logger) {
	loans := []*domain.Loan{
		{
			LoanID:             "LN-2024-001",
			UserID:             1,
			OriginalAmount:     decimal.NewFromInt(500),
			OutstandingBalance: decimal.NewFromInt(350),
			InterestRate:       decimal.NewFromFloat(12.5),
			TermMonths:         12,
			Status:             domain.LoanStatusActive,
		},
		{
			LoanID:             "LN-2024-002",
			UserID:             1,
			OriginalAmount:     decimal.NewFromInt(1200),
			OutstandingBalance: decimal.NewFromInt(1200),
			InterestRate:       decimal.NewFromFloat(10.0),
			TermMonths:         24,
			Status:             domain.LoanStatusActive,
		},
		{
			LoanID:             "LN-2024-003",
			UserID:             2,
			OriginalAmount:     decimal.NewFromInt(300),
			OutstandingBalance: decimal.NewFromInt(75),
			InterestRate:       decimal.NewFromFloat(15.0),
			TermMonths:         6,
			Status:             domain.LoanStatusActive,
		},
	}

	ctx := context.Background()
	for _, loan := range loans {
		if err := loanRepo.Create(ctx, loan); err != nil {
			if err == repository.ErrDuplicate {
				continue
			}
			logger.Warn("failed to seed demo loan",
				zap.String("loan_id", loan.LoanID),
				zap.Error(err))
			continue
		}
		logger.Info("seeded demo loan",
			zap.String("loan_id", loan.LoanID),
			zap.String("outstanding", loan.OutstandingBalance.StringFixed(2)))
	}
}
