package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/nostrlabs/nostroracle/src/ai"
	"github.com/nostrlabs/nostroracle/src/cache"
	"github.com/nostrlabs/nostroracle/src/config"
	"github.com/nostrlabs/nostroracle/src/data"
	"github.com/nostrlabs/nostroracle/src/extractor"
	"github.com/nostrlabs/nostroracle/src/intake"
	"github.com/nostrlabs/nostroracle/src/lightning"
	"github.com/nostrlabs/nostroracle/src/livefeed"
	"github.com/nostrlabs/nostroracle/src/news"
	"github.com/nostrlabs/nostroracle/src/nostr"
	"github.com/nostrlabs/nostroracle/src/notify"
	"github.com/nostrlabs/nostroracle/src/scorer"
	"github.com/nostrlabs/nostroracle/src/types"
	"github.com/nostrlabs/nostroracle/src/verifier"
	"github.com/nostrlabs/nostroracle/src/webserver"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

func main() {
	_ = godotenv.Load()

	db := connectDatabase()
	cfg := config.Load(db)

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		rdb = data.ConnectRedis(cfg.RedisURL)
	}

	store := data.NewStore(db)
	claimCache := cache.New(db, cfg.CacheTTL)

	var completer extractor.Completer
	if aiClient := ai.NewClient(cfg.OpenAIKey, cfg.RequestTimeout); aiClient != nil {
		completer = aiClient
	}
	ext := extractor.New(completer)

	newsClient := news.NewClient(cfg.NewsAPIKey, cfg.RequestTimeout)
	lnService := lightning.New(cfg.LightningAddress, cfg.ZapAmountSats, cfg.ZapThreshold, []byte(cfg.ServiceSecret))
	hub := livefeed.NewHub(rdb)

	announcer, err := notify.NewDiscord(cfg.DiscordToken, cfg.DiscordChannelID)
	if err != nil {
		log.Printf("discord announcer disabled: %v", err)
		announcer = nil
	}

	opts := verifier.Options{
		Extractor: ext,
		Search:    newsClient,
		Policy:    scorer.DefaultPolicy(),
		Cache:     claimCache,
		Store:     store,
		Zapper:    lnService,
		Feed:      hub,
		Timeout:   cfg.RequestTimeout,
	}
	if announcer != nil {
		opts.Announcer = announcer
	}
	pipeline := verifier.New(opts)

	ctx, cancel := context.WithCancel(context.Background())

	limiter := intake.New(cfg.AdmissionInterval, cfg.PollInterval, func(ev types.Event) {
		if _, err := pipeline.Verify(ctx, ev.Content, ev.ID); err != nil {
			log.Printf("pipeline: %v", err)
		}
	})
	go limiter.Start(ctx)

	relays := nostr.NewClient(cfg.Relays)
	relays.Start(ctx, func(ev types.Event) {
		// Raw feed and durable append are unconditional; only the pipeline
		// admission is rate limited.
		if err := store.SaveEvent(ev); err != nil {
			log.Printf("store event: %v", err)
		}
		hub.BroadcastEvent(ev)
		pipeline.TrackAuthor(ev.ID, ev.Pubkey)
		limiter.Submit(ev)
	})

	sched := cron.New()
	_, _ = sched.AddFunc("@daily", func() {
		n, err := claimCache.Cleanup()
		if err != nil {
			log.Printf("cache cleanup: %v", err)
			return
		}
		log.Printf("cache cleanup: purged %d stale entries", n)
	})
	sched.Start()

	router := webserver.New(webserver.NewHandlers(pipeline, store, hub, relays, lnService))
	httpSrv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http: %v", err)
		}
	}()
	log.Printf("NostrOracle listening on %s", cfg.Port)
	hub.Notify("NostrOracle online", "info")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	cancel()
	sched.Stop()
	if announcer != nil {
		announcer.Close()
	}

	shutCtx, cancelShut := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShut()
	_ = httpSrv.Shutdown(shutCtx)
}

func connectDatabase() *gorm.DB {
	db, err := data.ConnectMySQL(config.MySQLDSN())
	if err != nil {
		log.Printf("mysql: %v", err)
		log.Printf("continuing without database persistence")
		return nil
	}
	if err := data.Migrate(db); err != nil {
		log.Printf("migrate: %v", err)
		log.Printf("continuing without database persistence")
		return nil
	}
	return db
}
