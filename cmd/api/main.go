package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pt-trader/internal/admin"
	"pt-trader/internal/auth"
	"pt-trader/internal/bridge"
	"pt-trader/internal/bus"
	"pt-trader/internal/config"
	"pt-trader/internal/httpserver"
	"pt-trader/internal/sim"
	"pt-trader/internal/store"
	"pt-trader/internal/tracker"
	"pt-trader/internal/trades"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := store.NewPostgres(ctx, cfg.DBDSN)
	if err != nil {
		log.Fatal(err)
	}
	defer st.Close()

	eventBus := bus.NewBus()
	br := bridge.New(st, eventBus, cfg.ContractSize)
	simCfg := sim.DefaultConfig()
	simCfg.ContractSize = cfg.ContractSize
	simulator := sim.New(simCfg)
	posTracker := tracker.New(br, simulator, eventBus, cfg.SimTick)

	authSvc := auth.NewService(br, cfg.JWTIssuer, []byte(cfg.JWTSecret), cfg.JWTTTL)
	authHandler := auth.NewHandler(authSvc)
	tradeHandler := trades.NewHandler(trades.NewService(br))
	adminHandler := admin.NewHandler(br)
	wsHandler := httpserver.NewWSHandler(eventBus, authSvc, cfg.WSOrigin)

	if cfg.AdminUsername != "" {
		if err := seedAdmin(ctx, br, cfg.AdminUsername, cfg.AdminPassword); err != nil {
			log.Fatal(err)
		}
	}

	router := httpserver.NewRouter(httpserver.RouterDeps{
		AuthHandler:  authHandler,
		TradeHandler: tradeHandler,
		AdminHandler: adminHandler,
		AuthService:  authSvc,
		Bridge:       br,
		Tracker:      posTracker,
		WSHandler:    wsHandler,
	})
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	posTracker.Start(ctx)
	sim.StartQuotePublisher(ctx, eventBus, cfg.QuoteTick)

	log.Printf("server listening on %s", cfg.HTTPAddr)
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stop
		cancel()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}

func seedAdmin(ctx context.Context, br *bridge.Bridge, username, password string) error {
	_, err := br.GetUser(ctx, username)
	if err == nil {
		return nil
	}
	if !errors.Is(err, bridge.ErrUserNotFound) {
		return err
	}
	_, err = br.CreateUser(ctx, bridge.CreateUserParams{
		Username: username,
		Password: password,
		Admin:    true,
	})
	if err != nil {
		return err
	}
	log.Printf("seeded admin user %s", username)
	return nil
}
