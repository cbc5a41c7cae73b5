package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"warungpos/terminal/internal/cache"
	"warungpos/terminal/internal/config"
	"warungpos/terminal/internal/domain"
	"warungpos/terminal/internal/masterdata"
	"warungpos/terminal/internal/remote"
	remotehttp "warungpos/terminal/internal/remote/httpapi"
	remotemem "warungpos/terminal/internal/remote/memory"
	remotepg "warungpos/terminal/internal/remote/postgres"
	"warungpos/terminal/internal/store"
	"warungpos/terminal/internal/store/memory"
	"warungpos/terminal/internal/store/sqlite"
	"warungpos/terminal/internal/syncer"
)

func main() {
	cfg := config.Load()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var repo store.Repository
	closers := make([]func() error, 0, 3)

	if cfg.DBPath != "" {
		db, err := sqlite.Open(cfg.DBPath)
		if err != nil {
			log.Fatalf("sqlite store unavailable: %v", err)
		}
		repo = db
		closers = append(closers, db.Close)
		log.Printf("local store: sqlite (%s)", cfg.DBPath)
	} else {
		repo = memory.New()
		log.Println("local store: in-memory (data is lost on exit; set POS_DB_PATH)")
	}

	domainCache := cache.DomainCache(cache.NoopDomainCache{})
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisDomainCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisCache.Ping(ctx); err != nil {
			log.Printf("redis unavailable (%v), using noop cache", err)
		} else {
			domainCache = redisCache
			closers = append(closers, redisCache.Close)
			log.Println("cache: redis")
		}
	} else {
		log.Println("cache: noop")
	}

	md := masterdata.New(repo, domainCache, time.Duration(cfg.CacheTTLSeconds)*time.Second)
	if cfg.SeedSampleData {
		if _, err := repo.GetMasterData(ctx, domain.DomainProducts); errors.Is(err, store.ErrNotFound) {
			if err := md.LoadSampleData(ctx); err != nil {
				log.Fatalf("sample data load failed: %v", err)
			}
			log.Println("sample data loaded")
		}
	}

	remoteStore := selectRemote(ctx, cfg, &closers)
	processor := syncer.New(repo, remoteStore, nil)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	interval := time.Duration(cfg.SyncIntervalSecs) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	log.Printf("sync agent for %s/%s draining every %s", cfg.StoreID, cfg.TerminalID, interval)

	for {
		select {
		case <-ticker.C:
			drainCtx, drainCancel := context.WithTimeout(context.Background(), interval)
			report, err := processor.Drain(drainCtx)
			drainCancel()
			switch {
			case errors.Is(err, remote.ErrUnavailable):
				log.Printf("remote unavailable, will retry next pass: %v", err)
			case err != nil:
				log.Printf("drain error: %v", err)
			case report.Synced+report.Failed > 0:
				log.Printf("drain complete: synced=%d failed=%d", report.Synced, report.Failed)
			}
		case <-sig:
			for _, closeFn := range closers {
				if err := closeFn(); err != nil {
					log.Printf("close error: %v", err)
				}
			}
			log.Println("sync agent stopped")
			return
		}
	}
}

func selectRemote(ctx context.Context, cfg config.Config, closers *[]func() error) remote.Store {
	switch {
	case cfg.RemoteDatabaseURL != "":
		pg, err := remotepg.New(ctx, cfg.RemoteDatabaseURL, cfg.StoreID)
		if err != nil {
			log.Fatalf("remote postgres: %v", err)
		}
		*closers = append(*closers, pg.Close)
		log.Println("remote store: postgres")
		return pg
	case cfg.RemoteBaseURL != "":
		log.Printf("remote store: http (%s)", cfg.RemoteBaseURL)
		return remotehttp.NewClient(cfg.RemoteBaseURL, cfg.RemoteAuthSecret, cfg.StoreID, cfg.TerminalID)
	default:
		log.Println("remote store: in-memory (no remote configured)")
		return remotemem.New()
	}
}
