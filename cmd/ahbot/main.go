package main

import (
	"context"
	"errors"
	"log"
	"math/rand/v2"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"AuctionBot/internal/admin"
	"AuctionBot/internal/buyer"
	"AuctionBot/internal/config"
	"AuctionBot/internal/model"
	"AuctionBot/internal/notifier"
	"AuctionBot/internal/pricehistory"
	"AuctionBot/internal/pricing"
	"AuctionBot/internal/recorder"
	"AuctionBot/internal/scheduler"
	"AuctionBot/internal/selector"
	"AuctionBot/internal/seller"
	"AuctionBot/internal/state"
	"AuctionBot/internal/store"
)

// marketBackend is what the agent needs from a store adapter.
type marketBackend interface {
	store.MarketStore
	store.Catalog
	store.ConfigStore
	SetDepositPercent(segment string, percent uint32)
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("[INFO] AuctionBot starting...")

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	seed := cfg.Agent.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	log.Printf("[INFO] random seed: %d", seed)

	// Init marketplace store
	var backend marketBackend
	ensureDir(cfg.Database.SQLitePath)
	if sq, err := store.OpenSQLite(cfg.Database.SQLitePath); err != nil {
		log.Printf("[WARN] open sqlite store failed, using in-memory market: %v", err)
		backend = store.NewMemory(rng)
	} else {
		backend = sq
		defer sq.Close()
	}

	// Load catalog
	items, err := config.LoadCatalog(cfg.Agent.CatalogFile)
	if err != nil {
		log.Fatalf("[FATAL] load catalog: %v", err)
	}
	if len(items) > 0 {
		switch b := backend.(type) {
		case *store.SQLite:
			err = b.AddTemplates(ctx, items...)
		case *store.Memory:
			b.AddTemplates(items...)
		}
		if err != nil {
			log.Fatalf("[FATAL] import catalog: %v", err)
		}
		log.Printf("[INFO] imported %d catalog entries", len(items))
	}
	templates, err := backend.Templates(ctx)
	if err != nil {
		log.Fatalf("[FATAL] read catalog: %v", err)
	}
	bins := selector.NewBins(templates, selector.LoadOptions{Disabled: cfg.DisabledItems()})
	log.Printf("[INFO] %d of %d catalog items eligible for listing", bins.Total(), len(templates))
	if bins.Total() == 0 {
		log.Println("[WARN] no eligible items, seller cycles will create nothing")
	}

	// Init price history
	var history pricehistory.Source
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		rh := pricehistory.NewRedis(client, cfg.Redis.TTL)
		if err := rh.Ping(ctx); err != nil {
			log.Printf("[WARN] redis unavailable, using in-memory price history: %v", err)
			client.Close()
			history = pricehistory.NewMemory()
		} else {
			history = rh
			defer client.Close()
		}
	} else {
		history = pricehistory.NewMemory()
	}

	// Init recorder
	rec := openRecorder(ctx, cfg)
	defer rec.Close()

	// Init state manager
	ensureDir(cfg.Agent.StateFile)
	sm, err := state.NewManager(cfg.Agent.StateFile)
	if err != nil {
		log.Fatalf("[FATAL] init state manager: %v", err)
	}

	// Init engines
	self := cfg.Identity()
	policy := pricing.NewPolicy(rng, cfg.Overrides())
	sell := seller.New(seller.Deps{
		Catalog:  backend,
		Market:   backend,
		History:  history,
		Bins:     bins,
		Selector: selector.New(bins, rng),
		Policy:   policy,
		Retry:    selector.RetryPolicy{MaxAttempts: cfg.Agent.SelectionRetries},
		Self:     self,
	})
	buy := buyer.New(backend, backend, policy)
	buy.SetFamily(cfg.Family()...)

	agent := scheduler.NewAgent(scheduler.AgentDeps{
		Market:   backend,
		Configs:  backend,
		Seller:   sell,
		Buyer:    buy,
		Self:     self,
		Recorder: rec,
		State:    sm,
	})
	agent.TwoSideInteraction = cfg.Agent.TwoSideInteraction

	segments, err := cfg.MarketConfigs()
	if err != nil {
		log.Fatalf("[FATAL] build segments: %v", err)
	}
	for _, seg := range segments {
		seg = restoreSegment(ctx, backend, seg)
		backend.SetDepositPercent(seg.Segment, seg.DepositPercent)
		if err := agent.AddSegment(seg); err != nil {
			log.Fatalf("[FATAL] add segment %s: %v", seg.Segment, err)
		}
		log.Printf("[INFO] segment %s: seller=%v buyer=%v max_items=%d", seg.Segment, seg.SellerEnabled, seg.BuyerEnabled, seg.MaxItems)
	}

	// Init notifier
	var sender notifier.Sender = notifier.LogNotifier{}
	var tn *notifier.TelegramNotifier
	if cfg.TelegramEnabled() {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		sender = tn
	}

	// Init scheduler
	sched := scheduler.NewScheduler(ctx, agent, sender)
	if err := sched.RegisterAll(cfg.Agent.Tick, cfg.Telegram.ReportCron); err != nil {
		log.Fatalf("[FATAL] register cron tasks: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	// Start Telegram polling
	if tn != nil {
		go tn.StartPolling(ctx, admin.NewHandler(agent).Handle)
		log.Println("[INFO] Telegram polling started")
	}

	// Optional: run immediately on start
	if cfg.Agent.RunOnStart {
		log.Println("[INFO] RUN_ON_START enabled, executing a tick now")
		go sched.RunNow()
	}

	log.Printf("[INFO] AuctionBot is running as %s (tick %s). Press Ctrl+C to stop.", self.Name, cfg.Agent.Tick)

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[INFO] shutdown signal received, stopping...")
	cancel()
	log.Println("[INFO] AuctionBot stopped")
}

// restoreSegment prefers a configuration saved by an operator command over
// the file defaults.
func restoreSegment(ctx context.Context, configs store.ConfigStore, seg *model.MarketConfig) *model.MarketConfig {
	saved, err := configs.LoadSegment(ctx, seg.Segment)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Printf("[WARN] load saved config for %s: %v", seg.Segment, err)
		}
		return seg
	}
	if err := saved.Validate(); err != nil {
		log.Printf("[WARN] saved config for %s is invalid, using file config: %v", seg.Segment, err)
		return seg
	}
	log.Printf("[INFO] segment %s: restored saved config", seg.Segment)
	return saved
}

func openRecorder(ctx context.Context, cfg *config.Config) recorder.Recorder {
	switch cfg.Database.Recorder {
	case "postgres":
		pr, err := recorder.NewPostgresRecorder(ctx, cfg.Database.PostgresDSN)
		if err != nil {
			log.Printf("[WARN] init postgres recorder failed, using noop: %v", err)
			return recorder.NewNoopRecorder()
		}
		return pr
	case "sqlite":
		ensureDir(cfg.Database.RecorderPath)
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.RecorderPath)
		if err != nil {
			log.Printf("[WARN] init sqlite recorder failed, using noop: %v", err)
			return recorder.NewNoopRecorder()
		}
		return sr
	default:
		return recorder.NewNoopRecorder()
	}
}

func ensureDir(path string) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Printf("[WARN] create %s: %v", dir, err)
		}
	}
}
