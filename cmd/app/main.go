package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"iptv-client-portal/internal/config"
	pg "iptv-client-portal/internal/infra/db/postgres"
	"iptv-client-portal/internal/infra/logging"
	"iptv-client-portal/internal/infra/metrics"
	mp "iptv-client-portal/internal/infra/payment"
	red "iptv-client-portal/internal/infra/redis"
	"iptv-client-portal/internal/infra/sched"
	"iptv-client-portal/internal/infra/web"
	"iptv-client-portal/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, sandbox checkout)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	metrics.MustRegister()

	// ---- Postgres ----
	if cfg.Database.MigrationsDir != "" {
		if err := pg.RunMigrations(cfg.Database.URL, cfg.Database.MigrationsDir); err != nil {
			logger.Fatal().Err(err).Msg("migrations")
		}
	}
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()
	locker := red.NewLocker(redisClient)

	// ---- Repositories ----
	txManager := pg.NewTxManager(pool)
	userRepo := pg.NewUserRepo(pool)
	subRepo := pg.NewSubscriptionRepo(pool)
	txRepo := pg.NewTransactionRepo(pool)
	ledgerRepo := pg.NewLedgerRepo(pool)
	referralRepo := pg.NewReferralRepo(pool)
	raffleRepo := pg.NewRaffleRepo(pool)
	optionRepo := red.NewCachedRechargeOptionRepo(pg.NewRechargeOptionRepo(pool), redisClient, cfg.Redis.TTL)

	// ---- Payment gateway ----
	gateway := mp.NewMercadoPagoGateway(cfg.Payment.MercadoPago.AccessToken, cfg.Payment.MercadoPago.BaseURL)

	// ---- Use cases ----
	raffleUC := usecase.NewRaffleUseCase(raffleRepo, cfg.Raffle.PrizeAmount, logger)
	referralUC := usecase.NewReferralUseCase(referralRepo, userRepo, txRepo, subRepo, txManager, raffleUC,
		cfg.Referral.CommissionRate, cfg.Referral.MinPayoutAmount, logger)
	userUC := usecase.NewUserUseCase(userRepo, referralUC, logger)
	subUC := usecase.NewSubscriptionUseCase(subRepo, txManager, logger)
	paymentUC := usecase.NewPaymentUseCase(txRepo, subRepo, userRepo, optionRepo, gateway,
		cfg.Payment.MinAmount, cfg.Payment.MaxAmount, logger)
	webhookUC := usecase.NewWebhookUseCase(txRepo, subRepo, userRepo, ledgerRepo, txManager, gateway,
		referralUC, raffleUC, locker, logger)

	// ---- HTTP server ----
	tokens := web.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	server := web.NewServer(cfg, userUC, subUC, paymentUC, webhookUC, referralUC, raffleUC, tokens, logger)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server")
		}
	}()

	// ---- Workers ----
	expiry := sched.NewExpiryWorker(cfg.Worker.ExpiryInterval, subUC, logger)
	go func() { _ = expiry.Run(ctx) }()
	reconciler := sched.NewPaymentReconciler(webhookUC, txRepo, cfg.Worker.ReconcileInterval, cfg.Worker.ReconcileStaleAfter, logger)
	go func() { _ = reconciler.Run(ctx) }()

	// ---- Shutdown ----
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info().Msg("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
}
