package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alejandrodnm/ladderbot/config"
	"github.com/alejandrodnm/ladderbot/internal/adapters/notify"
	"github.com/alejandrodnm/ladderbot/internal/adapters/polymarket"
	"github.com/alejandrodnm/ladderbot/internal/adapters/storage"
	"github.com/alejandrodnm/ladderbot/internal/application/engine"
	"github.com/alejandrodnm/ladderbot/internal/domain"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	once := flag.Bool("once", false, "run one tick and exit")
	report := flag.Bool("report", false, "print persisted ladder state and exit")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	slog.Info("ladderbot starting",
		"config", *configPath,
		"interval", cfg.TickInterval(),
		"markets", len(cfg.Trading.Markets),
		"once", *once,
	)

	store, err := storage.NewSQLiteStore(cfg.Storage.DSN)
	if err != nil {
		slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
		os.Exit(1)
	}
	defer store.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	markets, err := seedMarkets(ctx, cfg, store)
	if err != nil {
		slog.Error("failed to restore market state", "err", err)
		os.Exit(1)
	}

	if *report {
		notify.NewConsole().Report(markets)
		return
	}

	if len(markets) == 0 {
		slog.Error("no markets configured — add entries under trading.markets")
		os.Exit(1)
	}

	creds := config.LoadCredentials()
	if creds.APIKey == "" || creds.Secret == "" || creds.Passphrase == "" || creds.Address == "" {
		slog.Error("missing CLOB credentials — set POLY_API_KEY, POLY_API_SECRET, POLY_API_PASSPHRASE, POLY_ADDRESS")
		os.Exit(1)
	}

	client := polymarket.NewClient(cfg.API.CLOBBase, cfg.API.DataBase).
		WithAuth(creds.APIKey, creds.Secret, creds.Passphrase, creds.Address)

	eng := engine.New(
		polymarket.NewGateway(client),
		polymarket.NewLiquidator(client),
		store,
		markets,
		engine.Config{
			OrderSizeUSD:      cfg.Trading.OrderSizeUSD,
			DepthThresholdUSD: cfg.Trading.DepthThresholdUSD,
			ShiftLiquidityUSD: cfg.Trading.ShiftLiquidityUSD,
		},
	)

	if *once {
		runTick(ctx, eng, 1)
		slog.Info("ladderbot stopped cleanly")
		return
	}

	runLoop(ctx, eng, cfg.TickInterval())
	slog.Info("ladderbot stopped cleanly")
}

// runLoop ejecuta un tick inmediato y después uno por intervalo hasta que
// el contexto se cancele.
func runLoop(ctx context.Context, eng *engine.Engine, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	cycle := 1
	runTick(ctx, eng, cycle)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cycle++
			runTick(ctx, eng, cycle)
		}
	}
}

func runTick(ctx context.Context, eng *engine.Engine, cycle int) {
	start := time.Now()
	result, err := eng.RunOnce(ctx)
	if err != nil {
		slog.Error("tick failed", "cycle", cycle, "err", err)
		return
	}

	slog.Info("tick complete",
		"cycle", cycle,
		"took", time.Since(start).Round(time.Millisecond),
		"liquidated", result.Liquidated,
		"reopened", result.Reopened,
		"reconciled", result.Reconciled,
		"placed", result.Placed,
		"cancelled", result.Cancelled,
		"cooldown", result.MarketsCooldown,
		"warnings", len(result.Warnings),
	)
}

// seedMarkets construye los mercados trackeados: la lista viene del config,
// los contadores de cooldown y las órdenes vienen de SQLite. Lo que diga
// el gateway en la primera reconciliación manda sobre lo persistido.
func seedMarkets(ctx context.Context, cfg *config.Config, store *storage.SQLiteStore) ([]*domain.TrackedMarket, error) {
	byID := make(map[string]*domain.TrackedMarket)
	var markets []*domain.TrackedMarket
	for _, mc := range cfg.Trading.Markets {
		m := &domain.TrackedMarket{ID: mc.ID, Title: mc.Title}
		byID[mc.ID] = m
		markets = append(markets, m)
	}

	states, err := store.LoadMarkets(ctx)
	if err != nil {
		return nil, err
	}
	for _, st := range states {
		m, ok := byID[st.MarketID]
		if !ok {
			continue // mercado retirado del config: ignorar su estado
		}
		if m.Title == "" {
			m.Title = st.Title
		}
		m.CancelCount = st.CancelCount
		m.CooldownUntil = st.CooldownUntil
	}

	records, err := store.LoadOrders(ctx)
	if err != nil {
		return nil, err
	}
	restored := 0
	for _, rec := range records {
		m, ok := byID[rec.MarketID]
		if !ok {
			continue
		}
		m.AddOrder(domain.TrackedOrder{Price: rec.Price, Ref: rec.Ref, NegRisk: rec.NegRisk})
		restored++
	}

	if restored > 0 || len(states) > 0 {
		slog.Info("restored state from storage", "markets", len(states), "orders", restored)
	}
	return markets, nil
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
