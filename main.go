package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wfunc/nightwatch/audit"
	"github.com/wfunc/nightwatch/auth"
	"github.com/wfunc/nightwatch/broadcast"
	"github.com/wfunc/nightwatch/config"
	"github.com/wfunc/nightwatch/logger"
	"github.com/wfunc/nightwatch/monitor"
	"github.com/wfunc/nightwatch/persistence"
	"github.com/wfunc/nightwatch/room"
	"github.com/wfunc/nightwatch/rpc"
	"github.com/wfunc/nightwatch/server"
	"github.com/wfunc/nightwatch/services"
	"github.com/wfunc/nightwatch/session"
	"github.com/wfunc/nightwatch/state"
	"github.com/wfunc/nightwatch/timer"
)

func main() {
	configPath := flag.String("config", ".", "directory containing config.yaml")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.Init(logger.Options{})
		logger.Log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Init(logger.Options{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	defer logger.Sync()

	mon := monitor.NewMonitor("nightwatch")

	// Initialize Database
	store, err := persistence.Open(cfg.Database)
	if err != nil {
		logger.Log.Fatalf("Failed to connect to database: %v", err)
	}

	var sink audit.Sink = audit.Discard{}
	var recorder *audit.Recorder
	var playerService *services.PlayerService
	if store != nil {
		logger.Log.Infof("Database connection successful (%s).", cfg.Database.Driver)
		playerService = services.NewPlayerService(store)
		recorder = audit.NewRecorder(playerService, cfg.Database.AuditBuffer,
			audit.WithErrorHook(func(kind audit.Kind, err error) {
				mon.IncAuditFailure(string(kind))
			}),
		)
		sink = recorder
	} else {
		logger.Log.Warn("No database configured, audit records are discarded.")
	}

	authenticator := auth.New(cfg.Game.AdminPassword, cfg.Auth.Secret, cfg.Auth.TokenTTL)

	hub := broadcast.NewHub(broadcast.WithDropHook(func(string, string) {
		mon.IncMessagesDropped()
	}))

	game := state.NewGame(state.Settings{
		EnergyCeiling: cfg.Game.EnergyCeiling,
		Doors:         cfg.Game.Doors,
		Characters:    cfg.Game.Characters,
		ResetOnStart:  cfg.Game.ResetOnStart,
		NightPolicy:   state.KeepNight{},
	})

	var drain state.DrainPolicy
	if cfg.Game.EnergyDrainInterval > 0 {
		drain = state.DoorDrain{Base: cfg.Game.EnergyDrainBase, PerClosedDoor: cfg.Game.EnergyDrainPerDoor}
	}

	gameRoom := room.New(room.Options{
		Registry:                session.NewRegistry(),
		Game:                    game,
		Transport:               hub,
		Credentials:             authenticator,
		Sink:                    sink,
		Metrics:                 mon,
		Drain:                   drain,
		GuardOnlyDoors:          cfg.Game.GuardOnlyDoors,
		RequireActiveForActions: cfg.Game.RequireActiveForActions,
	})

	timers := timer.NewTimerManager(timer.DefaultResolution)
	if drain != nil {
		timers.Every(cfg.Game.EnergyDrainInterval, gameRoom.DrainEnergy)
	}

	// RPC
	var rpcServer *rpc.Server
	if cfg.Server.RPCAddress != "" {
		var stats rpc.StatsProvider
		if playerService != nil {
			stats = playerService
		}
		rpcServer, err = rpc.NewServer(cfg.Server.RPCAddress, rpc.NewStatusService(gameRoom, stats))
		if err != nil {
			logger.Log.Fatalf("Failed to create RPC server: %v", err)
		}
		go rpcServer.Start()
	}

	var healthServer *rpc.HealthServer
	if cfg.Server.GRPCAddress != "" {
		healthServer, err = rpc.NewHealthServer(cfg.Server.GRPCAddress)
		if err != nil {
			logger.Log.Fatalf("Failed to create gRPC health server: %v", err)
		}
		go healthServer.Start()
	}

	// Initialize Game Server
	gameServer := server.NewGameServer(server.Options{
		Config:             cfg.Server,
		Room:               gameRoom,
		Hub:                hub,
		Metrics:            mon.Handler(),
		Tokens:             authenticator,
		RequireStatusToken: cfg.Auth.RequireStatusToken,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- gameServer.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Log.Infof("Received %s, shutting down.", sig)
	case err := <-errCh:
		if err != nil {
			logger.Log.Errorf("Game server stopped: %v", err)
		}
	}

	if healthServer != nil {
		healthServer.SetServing(false)
	}
	timers.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := gameServer.Shutdown(ctx); err != nil {
		logger.Log.Errorf("HTTP shutdown: %v", err)
	}
	if rpcServer != nil {
		rpcServer.Stop()
	}
	if healthServer != nil {
		healthServer.Stop()
	}
	if recorder != nil {
		recorder.Close()
		logger.Log.Infof("Audit recorder closed, dropped=%d failed=%d", recorder.Dropped(), recorder.Failed())
	}
	if store != nil {
		if err := store.Close(); err != nil {
			logger.Log.Errorf("Closing database: %v", err)
		}
	}
}
