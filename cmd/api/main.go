package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"ficore.org/internal/audit"
	"ficore.org/internal/auth"
	"ficore.org/internal/bootstrap"
	"ficore.org/internal/config"
	"ficore.org/internal/credits"
	"ficore.org/internal/httpapi"
	"ficore.org/internal/learning"
	"ficore.org/internal/notify"
	"ficore.org/internal/obs"
	"ficore.org/internal/session"
	"ficore.org/internal/store/mongo"
	"ficore.org/internal/tax"
)

var (
	version = "1.0.0"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	store, err := mongo.Open(ctx, cfg.MongoURI, cfg.Database)
	cancel()
	if err != nil {
		log.Fatalf("mongo: %v", err)
	}

	bootCtx, bootCancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer bootCancel()
	if err := store.EnsureIndexes(bootCtx); err != nil {
		log.Fatalf("indexes: %v", err)
	}

	auditLog := audit.New(store)
	mailer := notify.New(cfg)
	sessions := session.NewManager(store, store)
	ledger := credits.NewLedger(store, auditLog)
	rules := tax.NewRules(store)
	hub := learning.NewEngine(store, store, store, auditLog)
	flows := auth.NewFlows(store, auditLog, mailer, auth.FlowsConfig{
		Secret:         cfg.SecretKey,
		BaseURL:        cfg.BaseURL,
		Enable2FA:      cfg.Enable2FA,
		OTPEmailBypass: cfg.OTPEmailBypass,
	})

	if err := bootstrap.Run(bootCtx, cfg, store, rules, hub, auditLog); err != nil {
		log.Fatalf("bootstrap: %v", err)
	}

	api := httpapi.New(httpapi.Deps{
		Users:         store,
		Sessions:      sessions,
		Flows:         flows,
		Ledger:        ledger,
		Rules:         rules,
		Hub:           hub,
		Audit:         auditLog,
		Notify:        mailer,
		Ready:         store.Ping,
		Version:       version,
		SecureCookies: cfg.Env == "production",
		SetupKey:      cfg.SetupKey,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting ficore-api %s on %s", version, srv.Addr)

	g, gctx := errgroup.WithContext(context.Background())
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		select {
		case <-stop:
		case <-gctx.Done():
		}
		log.Println("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("serve: %v", err)
	}
	closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer closeCancel()
	_ = store.Close(closeCtx)
	log.Println("Stopped")
}
