package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/souravmenon1999/usdt-scanner/internal/api"
	"github.com/souravmenon1999/usdt-scanner/internal/cache"
	"github.com/souravmenon1999/usdt-scanner/internal/config"
	"github.com/souravmenon1999/usdt-scanner/internal/controller"
	"github.com/souravmenon1999/usdt-scanner/internal/logging"
	"github.com/souravmenon1999/usdt-scanner/internal/scanner"
	"github.com/souravmenon1999/usdt-scanner/internal/telegram"
	"github.com/souravmenon1999/usdt-scanner/internal/transport"
	"github.com/souravmenon1999/usdt-scanner/internal/types"
)

func main() {
	configPath := flag.String("config", "yamls/config.yaml", "Path to config file")
	flag.Parse()

	// Set up logging
	logging.Init("info")

	// .env for secrets like SCANNER_TELEGRAM_BOT_TOKEN; absence is fine.
	if err := godotenv.Load(); err == nil {
		log.Info().Msg(".env loaded")
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	logging.Init(cfg.Log.Level)
	log.Info().Str("mode", cfg.Scanner.Mode).Str("quote_asset", cfg.Scanner.QuoteAsset).
		Msg("Config loaded")

	store := cache.NewStore(cfg.Scanner.QuoteAsset)
	fetcher := transport.NewClient(cfg.Transport.RestURL, cfg.Transport.PingURL,
		time.Duration(cfg.Transport.HTTPTimeoutSeconds)*time.Second)
	streamer := transport.NewStream(cfg.Transport.StreamURL,
		time.Duration(cfg.Transport.HandshakeTimeoutSeconds)*time.Second)

	opts := controller.Options{
		CacheTTL:       time.Duration(cfg.Scanner.CacheTTLSeconds) * time.Second,
		RetryMax:       cfg.Transport.RetryMax,
		RetryBaseDelay: time.Duration(cfg.Transport.RetryBaseDelaySeconds) * time.Second,
		FetchTimeout:   time.Duration(cfg.Transport.HTTPTimeoutSeconds) * time.Second,
		DefaultPolicy: scanner.Policy{
			PMinPct: cfg.Scanner.PMinPct,
			PMaxPct: cfg.Scanner.PMaxPct,
			LMaxPct: cfg.Scanner.LMaxPct,
		},
	}

	if cfg.Telegram.BotToken != "" {
		notifier, err := telegram.NewNotifier(telegram.Config{
			BotToken:  cfg.Telegram.BotToken,
			ChannelID: cfg.Telegram.ChannelID,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize Telegram bot")
		}
		opts.OnIngest = notifier.Notify
	}

	ctrl := controller.New(store, fetcher, streamer, opts)

	if _, err := ctrl.Start(cfg.Mode()); err != nil {
		log.Fatal().Err(err).Msg("Failed to start producer")
	}

	// Pull-mode auto-refresh schedule; the freshness cache still applies.
	if cfg.Mode() == types.ModePull && cfg.Scanner.RefreshCron != "" {
		c := cron.New()
		_, err := c.AddFunc(cfg.Scanner.RefreshCron, func() {
			if _, err := ctrl.Refresh(); err != nil {
				log.Error().Err(err).Msg("Scheduled refresh failed")
			}
		})
		if err != nil {
			log.Fatal().Err(err).Str("spec", cfg.Scanner.RefreshCron).
				Msg("Failed to schedule refresh")
		}
		c.Start()
		defer c.Stop()
	}

	srv := api.NewServer(ctrl)
	go func() {
		if err := srv.ListenAndServe(cfg.API.ListenAddr); err != nil {
			log.Fatal().Err(err).Msg("API server failed")
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)
	<-stopCh
	log.Info().Msg("Shutting down...")
	ctrl.Stop()
}
