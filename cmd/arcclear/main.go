package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/efreitasn/arcclear/internal/config"
	"github.com/efreitasn/arcclear/internal/engine"
	"github.com/efreitasn/arcclear/internal/handler"
	"github.com/efreitasn/arcclear/internal/index"
	"github.com/efreitasn/arcclear/internal/ledger"
	"github.com/efreitasn/arcclear/internal/metrics"
	"github.com/efreitasn/arcclear/internal/service"
	"github.com/efreitasn/arcclear/internal/store"
)

func main() {
	healthcheck := flag.Bool("healthcheck", false, "Run health check against running server")
	flag.Parse()

	// Handle -healthcheck flag: HTTP GET to localhost:PORT/healthz, exit 0/1.
	if *healthcheck {
		port := os.Getenv("PORT")
		if port == "" {
			port = "8080"
		}
		resp, err := http.Get(fmt.Sprintf("http://localhost:%s/healthz", port))
		if err != nil || resp.StatusCode != http.StatusOK {
			os.Exit(1)
		}
		os.Exit(0)
	}

	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Set up slog logger with configured level.
	var logLevel slog.Level
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("server stopped")
}

// defaultGenesis is used without GENESIS_PATH: no owner, no oracles and a
// single USDC asset, enough to submit and match intents locally.
func defaultGenesis() *config.Genesis {
	return &config.Genesis{
		Owner:  "0x0000000000000000000000000000000000000000",
		Assets: []config.GenesisAsset{{Symbol: "USDC", Decimals: 6}},
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Genesis.
	genesis := defaultGenesis()
	if cfg.GenesisPath != "" {
		g, err := config.LoadGenesis(cfg.GenesisPath)
		if err != nil {
			return err
		}
		genesis = g
	} else {
		logger.Warn("GENESIS_PATH not set, starting an unowned ledger")
	}
	assets, err := genesis.AssetRegistry()
	if err != nil {
		return err
	}
	ledgerCfg, err := genesis.Ledger(cfg, assets)
	if err != nil {
		return err
	}

	// Ledger.
	reg := metrics.New()
	l, err := ledger.New(ledgerCfg, ledger.SystemClock{}, reg)
	if err != nil {
		return err
	}
	logger.Info("ledger ready",
		slog.String("owner", ledgerCfg.Owner.Hex()),
		slog.Int("oracles", len(ledgerCfg.Oracles)),
		slog.Int("matchers", len(ledgerCfg.Matchers)),
		slog.Int("assets", len(assets.List())),
	)

	// Intent index.
	var quotes index.Index
	if cfg.IndexDSN != "" {
		pg, err := index.NewPostgresIndex(ctx, cfg.IndexDSN)
		if err != nil {
			return err
		}
		defer pg.Close()
		quotes = pg
		logger.Info("using postgres intent index")
	} else {
		quotes = index.NewMemoryIndex()
	}

	// Services (webhook first, needed by the expiry manager).
	webhookSvc := service.NewWebhookService(store.NewWebhookStore(), cfg.WebhookTimeout, reg, logger)
	expiryMgr := engine.NewExpiryManager(cfg.ExpiryInterval, l, quotes, webhookSvc, logger)
	intentSvc := service.NewIntentService(l, quotes, expiryMgr, assets, logger)
	settleSvc := service.NewSettlementService(l, assets, logger)
	paymentSvc := service.NewPaymentService(l, assets, logger)

	// The engine proposes as the first genesis matcher, or as the owner
	// while match creation is open.
	operator := ledgerCfg.Owner
	if len(ledgerCfg.Matchers) > 0 {
		operator = ledgerCfg.Matchers[0]
	}
	eng := engine.New(engine.Config{
		Operator:     operator,
		Interval:     cfg.MatchInterval,
		IterationCap: cfg.MatchIterationCap,
	}, l, quotes, reg, logger)
	projector := index.NewProjector(l, quotes, logger)

	// Router.
	router := handler.NewRouter(handler.Deps{
		Intents:    intentSvc,
		Settlement: settleSvc,
		Payments:   paymentSvc,
		Webhooks:   webhookSvc,
		Books:      eng,
		Assets:     assets,
		Auth:       handler.NewAuthenticator(cfg.AuthMaxSkew, time.Now),
		Metrics:    reg,
		Logger:     logger,
	})

	// Configure HTTP server.
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return projector.Run(gctx) })
	g.Go(func() error { return expiryMgr.Run(gctx) })
	g.Go(func() error { return webhookSvc.Run(gctx, l) })
	g.Go(func() error { return eng.Run(gctx) })
	g.Go(func() error {
		logger.Info("server starting", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		// Graceful shutdown: drain HTTP requests, then in-flight webhooks.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown error", slog.String("error", err.Error()))
		}
		webhookSvc.Wait()
		return nil
	})

	return g.Wait()
}
