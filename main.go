package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/wfunc/gridserver/broadcast"
	"github.com/wfunc/gridserver/config"
	"github.com/wfunc/gridserver/fleet"
	"github.com/wfunc/gridserver/logger"
	"github.com/wfunc/gridserver/monitor"
	"github.com/wfunc/gridserver/network"
	"github.com/wfunc/gridserver/persistence"
	"github.com/wfunc/gridserver/rpc"
	"github.com/wfunc/gridserver/server"
	"github.com/wfunc/gridserver/services"
	"github.com/wfunc/gridserver/session"
	"github.com/wfunc/gridserver/timer"
)

func main() {
	fs := pflag.NewFlagSet("gridserver", pflag.ExitOnError)
	config.BindFlags(fs)
	_ = fs.Parse(os.Args[1:])

	// Load configuration
	cfg, err := config.LoadConfig(".", fs)
	if err != nil {
		// logger 尚未初始化
		panic(err)
	}

	// Initialize logger
	if err := logger.Init(logger.Options{Level: cfg.Log.Level, File: cfg.Log.File}); err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mon := monitor.NewMonitor("gridserver")
	timers := timer.NewTimerManager(timer.DefaultResolution)
	defer timers.Stop()

	// Fleet sidecar
	var sdk fleet.SDK
	switch cfg.Fleet.Mode {
	case config.FleetModeAgones:
		agones, err := fleet.ConnectAgones()
		if err != nil {
			logger.Log.Fatalf("Failed to connect to fleet sidecar: %v", err)
		}
		sdk = agones
	default:
		// 本地模式下没有编排系统来终止进程，自行退出
		sdk = fleet.NewLocalSDK(stop)
	}
	adapter := fleet.NewAdapter(sdk, timers, fleet.Options{
		HealthInterval:    cfg.Fleet.HealthInterval,
		HealthTimeout:     cfg.Fleet.HealthTimeout,
		IdleShutdownDelay: cfg.Fleet.IdleShutdownDelay,
		PlayerCapacity:    cfg.Fleet.PlayerCapacity,
	}, mon)

	// Initialize Database
	db, err := openDatabase(cfg.Database)
	if err != nil {
		logger.Log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	journal := services.NewRecorder(db, 256)
	defer journal.Close()

	registry := session.NewRegistry()
	broadcaster := broadcast.NewBroadcaster(registry, mon)
	gameService := services.NewGameService(registry, broadcaster, adapter, mon, journal)

	gameServer := server.NewGameServer(server.Options{
		Address: cfg.Server.HTTPAddress(),
		Conn: network.Options{
			SendBuffer: cfg.Server.SendBuffer,
			WriteWait:  cfg.Server.WriteWait,
			PongWait:   cfg.Server.PongWait,
			ReadLimit:  cfg.Server.ReadLimit,
		},
	}, gameService, mon.Handler())

	var rpcServer *rpc.Server
	if cfg.Server.RPCAddress != "" {
		rpcServer, err = rpc.NewServer(cfg.Server.RPCAddress, rpc.NewAdminService(gameService, journal, adapter))
		if err != nil {
			logger.Log.Fatalf("Failed to create RPC server: %v", err)
		}
	}

	// 启动握手失败直接退出，不运行脱离编排的实例
	if err := adapter.Start(); err != nil {
		logger.Log.Fatalf("Failed to start fleet adapter: %v", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(gameServer.Start)
	g.Go(func() error {
		return adapter.Run(gctx)
	})
	if rpcServer != nil {
		g.Go(rpcServer.Start)
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Log.Info("Shutting down game server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if rpcServer != nil {
			rpcServer.Stop()
		}
		return gameServer.Shutdown(shutdownCtx)
	})

	logger.Log.Infow("Starting game server", "address", cfg.Server.HTTPAddress(), "fleet", cfg.Fleet.Mode, "database", cfg.Database.Driver)
	if err := g.Wait(); err != nil {
		logger.Log.Errorf("Game server stopped with error: %v", err)
		return
	}
	logger.Log.Info("Game server stopped")
}

func openDatabase(cfg config.DatabaseConfig) (persistence.Database, error) {
	opts := persistence.PostgresOptions{
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		DBName:   cfg.Postgres.DBName,
	}
	switch cfg.Driver {
	case "gorm":
		return persistence.NewGormPostgreSQL(opts)
	case "pq":
		return persistence.NewPostgreSQL(opts)
	default:
		return persistence.NewMemory(), nil
	}
}
