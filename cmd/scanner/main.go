package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"MarketScanner/internal/api"
	"MarketScanner/internal/collector"
	"MarketScanner/internal/config"
	"MarketScanner/internal/logger"
	"MarketScanner/internal/metrics"
	"MarketScanner/internal/notifier"
	"MarketScanner/internal/orchestrator"
	"MarketScanner/internal/publisher"
	"MarketScanner/internal/recorder"
	"MarketScanner/internal/report"
	"MarketScanner/internal/scheduler"
	"MarketScanner/internal/strategy"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("load .env")
	}

	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}
	if _, err := logger.Setup(cfg.Log); err != nil {
		log.Fatal().Err(err).Msg("init logger")
	}
	log.Info().Msg("MarketScanner starting")

	rec := metrics.New()

	// Data source
	var provider collector.Provider
	switch cfg.DataSource.Provider {
	case "rest":
		provider = collector.NewRESTProvider(cfg.DataSource.BaseURL, cfg.DataSource.APIKey, cfg.DataSource.Proxy,
			cfg.DataSource.RequestTimeout, cfg.DataSource.MaxRetries)
	case "static":
		provider = &collector.StaticProvider{Price: cfg.DataSource.StaticPrice}
	default:
		provider = collector.NewYahooProvider(cfg.DataSource.Proxy, cfg.DataSource.RequestTimeout, cfg.DataSource.MaxRetries)
	}
	store := collector.NewStore(provider, collector.StoreOptions{
		RateLimitDelay: cfg.DataSource.RateLimitDelay,
		RequestTimeout: cfg.DataSource.RequestTimeout,
		CacheTTL:       cfg.DataSource.CacheTTL,
		Metrics:        rec,
	})
	log.Info().Str("provider", provider.Name()).Int("instruments", len(cfg.Universe.Symbols)).Msg("data source ready")

	detectors := strategy.All()
	if len(cfg.Scanners) > 0 {
		if detectors, err = strategy.Select(cfg.Scanners); err != nil {
			log.Fatal().Err(err).Msg("select scanners")
		}
	}

	orch := orchestrator.New(store, orchestrator.Options{Metrics: rec})

	// History
	var hist recorder.Recorder = recorder.NewNoopRecorder()
	if cfg.Database.SQLitePath != "" {
		if err := os.MkdirAll(dirOf(cfg.Database.SQLitePath), 0o755); err != nil {
			log.Warn().Err(err).Msg("create database dir")
		}
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
		} else {
			hist = sr
		}
	}
	defer hist.Close()
	orch.AddHook(recorder.Hook(hist))

	// Fan-out
	if cfg.Redis.Enabled {
		pub, err := publisher.NewRedisPublisher(publisher.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
			TTL:      cfg.Redis.TTL,
		})
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, results will not be published")
		} else {
			defer pub.Close()
			orch.AddHook(publisher.Hook(pub))
		}
	}
	if cfg.Export.Dir != "" {
		orch.AddHook((&report.Exporter{Dir: cfg.Export.Dir}).Hook())
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched := scheduler.NewScheduler(ctx, orch, scheduler.Options{
		Detectors:       detectors,
		Universe:        cfg.Universe.Symbols,
		MarketHoursOnly: cfg.Schedule.MarketHoursOnly,
	})

	// Telegram
	if cfg.Telegram.Enabled {
		tn := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.DataSource.Proxy)
		rules := notifier.DefaultRules().Merge(notifier.ParseRules(cfg.Telegram.Rules))
		cn := notifier.NewCycleNotifier(tn, rules, rec)
		cn.MinInterval = cfg.Telegram.MinInterval
		orch.AddHook(cn)
		if cfg.Telegram.Polling {
			go tn.StartPolling(ctx, commandHandler(sched, orch, store))
			log.Info().Msg("telegram polling started")
		}
	}

	if err := sched.Register(cfg.Schedule.Cron); err != nil {
		log.Fatal().Err(err).Msg("register scan task")
	}
	sched.Start()
	defer sched.Stop()

	srv := api.NewServer(cfg.HTTP.Addr, api.Deps{
		Cycles:  orch,
		Data:    store,
		History: hist,
		Trigger: sched.RunNow,
		Metrics: rec,
		Busy:    scheduler.ErrBusy,
	})
	srv.Start()

	if cfg.Schedule.RunOnStart {
		log.Info().Msg("run_on_start enabled, scanning now")
		go func() {
			if _, err := sched.RunNow(ctx); err != nil {
				log.Error().Err(err).Msg("initial scan failed")
			}
		}()
	}

	log.Info().Str("cron", cfg.Schedule.Cron).Msg("MarketScanner is running. Press Ctrl+C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info().Msg("shutdown signal received, stopping")
	cancel()
	stopCtx, stopCancel := context.WithTimeout(context.Background(), api.StopTimeout)
	defer stopCancel()
	if err := srv.Stop(stopCtx); err != nil {
		log.Error().Err(err).Msg("stop http server")
	}
	log.Info().Msg("MarketScanner stopped")
}
