package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ctrader-smc-engine/internal/adapter"
	"ctrader-smc-engine/internal/balance"
	"ctrader-smc-engine/internal/config"
	"ctrader-smc-engine/internal/engine"
	"ctrader-smc-engine/internal/events"
	"ctrader-smc-engine/internal/monitor"
	"ctrader-smc-engine/internal/mtf"
	"ctrader-smc-engine/internal/reconciliation"
	"ctrader-smc-engine/internal/risk"
	"ctrader-smc-engine/internal/smc"
	"ctrader-smc-engine/internal/store"
	"ctrader-smc-engine/internal/strategy"
	"ctrader-smc-engine/internal/telemetry"
	"ctrader-smc-engine/pkg/ctrader"
	"ctrader-smc-engine/pkg/protocol"
)

const (
	userID = "default"
	botID  = "default"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	log.Println("🚀 starting ctrader-smc-engine")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ config load failed: %v", err)
	}
	log.Printf("✓ config loaded: symbols=%v strategy=%s live=%v", cfg.Symbols, cfg.StrategyType, cfg.IsLive)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("❌ store open failed: %v", err)
	}
	defer st.Close()
	log.Printf("✓ store opened at %s", cfg.DBPath)

	bus := events.NewBus()

	batchedSink := store.NewBatchedLogSink(st, userID, botID, 50, 2*time.Second)
	defer batchedSink.Close()
	logger := telemetry.New(batchedSink)

	client := ctrader.New(ctrader.Config{URL: cfg.BrokerURL})
	creds := protocol.Credentials{
		ClientID:            cfg.ClientID,
		ClientSecret:        cfg.ClientSecret,
		AccessToken:         cfg.AccessToken,
		CtidTraderAccountID: cfg.CtidTraderAccountID,
		IsLive:              cfg.IsLive,
	}
	if err := client.Connect(ctx, creds); err != nil {
		log.Fatalf("❌ broker connect failed: %v", err)
	}
	log.Println("✓ broker session authenticated")

	brokerAdapter := adapter.New(client, cfg.CtidTraderAccountID)
	for _, symbol := range cfg.Symbols {
		if err := brokerAdapter.SubscribePrice(ctx, symbol, nil); err != nil {
			log.Printf("⚠️ subscribe %s failed: %v", symbol, err)
		}
	}

	riskCfg := risk.DefaultConfig()
	riskCfg.RiskPercentage = cfg.RiskPercentage
	riskCfg.DailyLossLimitPercent = cfg.DailyLossLimitPercent
	riskCfg.MaxOpenTrades = cfg.MaxPositions
	riskMgr := risk.NewManager(riskCfg, st, userID, botID)

	acct, err := brokerAdapter.GetAccountInfo(ctx)
	if err != nil {
		log.Fatalf("❌ initial account info failed: %v", err)
	}
	if err := riskMgr.Initialize(acct.Equity.InexactFloat64()); err != nil {
		log.Fatalf("❌ risk baseline init failed: %v", err)
	}
	log.Printf("✓ risk manager initialized: equity=%.2f", acct.Equity.InexactFloat64())

	mtfStore := mtf.New()

	smcEngines := make(map[string]*strategy.SMC, len(cfg.Symbols))
	for _, symbol := range cfg.Symbols {
		sweepMinPips, chochMinPips, fvgMinGapPips := cfg.SweepMinPips, cfg.CHOCHMinPips, cfg.FVGMinGapPips
		if ov, ok := cfg.Overlay(symbol); ok {
			if ov.SweepMinPips != nil {
				sweepMinPips = *ov.SweepMinPips
			}
			if ov.CHOCHMinPips != nil {
				chochMinPips = *ov.CHOCHMinPips
			}
			if ov.FVGMinGapPips != nil {
				fvgMinGapPips = *ov.FVGMinGapPips
			}
		}
		smcCfg := smc.SymbolConfig{
			PipSize:             protocol.PipSize(symbol).InexactFloat64(),
			SweepMinPips:        sweepMinPips,
			CHOCHMinPips:        chochMinPips,
			FVGMinGapPips:       fvgMinGapPips,
			MaxTradesPerSession: cfg.MaxTradesPerSymbol,
			Session:             smc.DefaultSessionConfig(),
		}
		smcEngines[symbol] = strategy.NewSMC(symbol, smcCfg, func(decisions []*smc.Decision) {
			for _, d := range decisions {
				logger.Info(telemetry.CategorySMCDecision, d.Symbol, d.Reason, map[string]any{"type": d.Type, "direction": d.Direction})
			}
		})
	}

	var rsiStrategy strategy.Strategy
	if cfg.EnableIndicatorWorker {
		worker, err := strategy.NewWorker(cfg.IndicatorWorkerAddr)
		if err != nil {
			log.Printf("⚠️ indicator worker dial failed, falling back to built-in RSI+VWAP: %v", err)
			rsiStrategy = strategy.NewRSIVWAP(cfg.RSIPeriod, cfg.VWAPWindow)
		} else {
			log.Printf("✓ external indicator worker connected at %s", cfg.IndicatorWorkerAddr)
			rsiStrategy = worker
		}
	} else {
		rsiStrategy = strategy.NewRSIVWAP(cfg.RSIPeriod, cfg.VWAPWindow)
	}

	metrics := monitor.NewSystemMetrics()

	eng := engine.New(engine.Config{
		UserID:  userID,
		BotID:   botID,
		Symbols: cfg.Symbols,

		Adapter: brokerAdapter,
		MTF:     mtfStore,
		Risk:    riskMgr,
		Store:   st,
		Bus:     bus,
		Log:     logger,

		SMC: smcEngines,
		RSI: rsiStrategy,

		Symbol: engine.SymbolConfig{
			CooldownMs:         cfg.CooldownMs,
			MaxSpreadPips:      cfg.MaxSpreadPips,
			MaxTradesPerSymbol: cfg.MaxTradesPerSymbol,
			MaxPositions:       cfg.MaxPositions,
			StopLossPips:       cfg.StopLossPips,
			TakeProfitPips:     cfg.TakeProfitPips,
		},
		Metrics: metrics,
	})
	eng.Start(ctx)
	log.Println("✓ trading engine started")

	balanceMgr := balance.NewManager(adapter.BalanceView{Adapter: brokerAdapter}, 30*time.Second, riskMgr.UpdateEquity)
	balanceMgr.Start(ctx)

	reconSvc := reconciliation.NewService(adapter.ReconcileView{Adapter: brokerAdapter}, st, userID, botID, 5*time.Minute)
	reconSvc.Start(ctx)

	mon := &monitor.Monitor{
		Bus: bus,
		AlertFn: func(msg string) {
			log.Printf("🚨 %s", msg)
		},
	}
	mon.Start(ctx)

	go statusLoop(ctx, eng, cfg.IsLive, metrics)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Println("⏹ shutting down")
	cancel()
	eng.Stop()
	if err := client.Disconnect(); err != nil {
		log.Printf("⚠️ broker disconnect error: %v", err)
	}
	log.Println("✓ shutdown complete")
}

// statusLoop periodically logs the engine's status snapshot (spec.md
// §7's documented status shape) since this deliverable has no HTTP
// admin surface to serve it on demand.
func statusLoop(ctx context.Context, eng *engine.Engine, isLive bool, metrics *monitor.SystemMetrics) {
	mode := "demo"
	if isLive {
		mode = "live"
	}
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			snap := metrics.GetSnapshot()
			status := eng.Status(mode, &snap.AnalysisCount)
			log.Printf("📊 status: symbols=%v trades=%v inFlight=%d dailyPnL=%.2f%% blocked=%v",
				status.Symbols, status.TradesExecuted, len(status.InFlightOrders),
				status.RiskState.DailyPnLPercent, status.RiskState.TradingBlocked)
		case <-ctx.Done():
			return
		}
	}
}
