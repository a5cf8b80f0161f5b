package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/spotlyte/spotlyte-api/internal/config"
	"github.com/spotlyte/spotlyte-api/internal/domain/user"
	"github.com/spotlyte/spotlyte-api/internal/domain/wallet"
	"github.com/spotlyte/spotlyte-api/internal/domain/withdrawal"
	"github.com/spotlyte/spotlyte-api/internal/middleware"
	"github.com/spotlyte/spotlyte-api/internal/pkg/database"
	"github.com/spotlyte/spotlyte-api/internal/pkg/jwt"
	"github.com/spotlyte/spotlyte-api/internal/pkg/logger"
	"github.com/spotlyte/spotlyte-api/internal/pkg/paystack"
	pkgresponse "github.com/spotlyte/spotlyte-api/internal/pkg/response"
)

func main() {
	cfg := config.Load()
	logger.Init(logger.Config{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "spotlyte-api",
	})

	log.Info().
		Str("env", cfg.Env).
		Str("port", cfg.Port).
		Msg("Starting Spotlyte API")

	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	redis, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer database.CloseRedis(redis)

	jwtService := jwt.NewService(cfg.JWTSecret, cfg.JWTAccessTTL)

	paystackClient := paystack.NewClient(paystack.Config{
		BaseURL:   cfg.PaystackBaseURL,
		SecretKey: cfg.PaystackSecretKey,
		Timeout:   time.Duration(cfg.PaystackTimeoutSeconds) * time.Second,
	})

	// ---------- Repositories ----------
	userRepo := user.NewRepository(db)
	walletRepo := wallet.NewRepository(db)
	withdrawalRepo := withdrawal.NewRepository(db)
	bankAccountRepo := withdrawal.NewBankAccountRepository(db)

	balanceCache := wallet.NewBalanceCache(redis)

	// ---------- Adapters ----------
	users := &userDirectoryAdapter{repo: userRepo}
	depositGateway := &paystackDepositGateway{client: paystackClient}
	transferGateway := &paystackTransferGateway{client: paystackClient, currency: cfg.DefaultCurrency}

	// ---------- Services ----------
	walletService := wallet.NewService(walletRepo, users, depositGateway, balanceCache, cfg.DefaultCurrency, cfg.PaystackCallbackURL)
	withdrawalService := withdrawal.NewService(withdrawalRepo, bankAccountRepo, walletRepo, balanceCache, transferGateway, cfg.DefaultCurrency)

	// ---------- Handlers ----------
	walletHandler := wallet.NewHandler(walletService)
	withdrawalHandler := withdrawal.NewHandler(withdrawalService)

	authMiddleware := middleware.Auth(jwtService)

	// ---------- Background workers ----------
	sweepWorker := withdrawal.NewWorker(withdrawalService, withdrawalRepo, cfg.WithdrawalSweepInterval, cfg.WithdrawalStuckAfter)
	sweepWorker.Start()
	defer sweepWorker.Stop()

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

	// Payouts are creator earnings; brands only fund wallets.
	creatorOnly := middleware.RequireRole("creator")

	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/wallet", walletHandler.Routes(authMiddleware))
		r.Mount("/withdrawals", withdrawalHandler.Routes(authMiddleware, creatorOnly))
		r.Mount("/bank-accounts", withdrawalHandler.BankAccountRoutes(authMiddleware, creatorOnly))
	})

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

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited properly")
}

// Adapter implementations to bridge interface mismatches

// userDirectoryAdapter adapts user.Repository to wallet.UserDirectory
type userDirectoryAdapter struct {
	repo user.Repository
}

func (a *userDirectoryAdapter) Lookup(ctx context.Context, id uuid.UUID) (*wallet.AccountInfo, error) {
	u, err := a.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return nil, wallet.ErrUserNotFound
		}
		return nil, err
	}
	return &wallet.AccountInfo{ID: u.ID, Email: u.Email}, nil
}

// paystackDepositGateway adapts the Paystack client to wallet.Gateway
type paystackDepositGateway struct {
	client *paystack.Client
}

func (g *paystackDepositGateway) Initialize(ctx context.Context, email string, amountMinor int64, reference, callbackURL string, metadata map[string]string) (*wallet.GatewayInit, error) {
	out, err := g.client.InitializeTransaction(ctx, paystack.InitializeRequest{
		Email:       email,
		Amount:      amountMinor,
		Reference:   reference,
		CallbackURL: callbackURL,
		Metadata:    metadata,
	})
	if err != nil {
		return nil, err
	}
	return &wallet.GatewayInit{
		AuthorizationURL: out.AuthorizationURL,
		AccessCode:       out.AccessCode,
		Reference:        out.Reference,
	}, nil
}

func (g *paystackDepositGateway) Verify(ctx context.Context, reference string) (*wallet.GatewayVerification, error) {
	out, err := g.client.VerifyTransaction(ctx, reference)
	if err != nil {
		return nil, err
	}
	return &wallet.GatewayVerification{
		Success:     out.Success(),
		AmountMinor: out.Amount,
		Currency:    out.Currency,
	}, nil
}

// paystackTransferGateway adapts the Paystack client to withdrawal.Gateway.
// Paystack transfers need a recipient first, so each transfer registers the
// destination and then moves the funds under the withdrawal's reference.
type paystackTransferGateway struct {
	client   *paystack.Client
	currency string
}

func (g *paystackTransferGateway) Transfer(ctx context.Context, req withdrawal.TransferRequest) (*withdrawal.TransferResult, error) {
	currency := req.Currency
	if currency == "" {
		currency = g.currency
	}

	recipient, err := g.client.CreateTransferRecipient(ctx, req.AccountName, req.AccountNumber, req.BankCode, currency)
	if err != nil {
		return nil, fmt.Errorf("create transfer recipient: %w", err)
	}

	out, err := g.client.InitiateTransfer(ctx, recipient.RecipientCode, req.AmountMinor, req.Reference, req.Reason)
	if err != nil {
		return nil, fmt.Errorf("initiate transfer: %w", err)
	}
	return &withdrawal.TransferResult{
		TransferCode: out.TransferCode,
		Reference:    out.Reference,
	}, nil
}
