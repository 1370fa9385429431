package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"roomrelay/internal/auth"
	"roomrelay/internal/config"
	"roomrelay/internal/database/db_client"
	"roomrelay/internal/http/http_server"
	"roomrelay/internal/redis/redis_client"
	"roomrelay/internal/services/rooms"
	"roomrelay/internal/services/users"
	"roomrelay/internal/syncpresence"
	"roomrelay/internal/ws"

	"go.uber.org/zap"
)

var (
	Log, _ = zap.NewDevelopment()
)

// @title						Room relay API
// @version					1.0
// @description				Room catalog, accounts and the /ws messaging relay.
// @securityDefinitions.apikey	BearerAuth
// @in							header
// @name						Authorization
func main() {
	defer Log.Sync()
	zap.ReplaceGlobals(Log)

	// 1. Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		Log.Fatal("Failed to load configuration", zap.Error(err))
	}
	Log.Debug("Configuration loaded successfully", zap.Uint16("port", cfg.HttpServerPort))

	// 2. Context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGINT, syscall.SIGTERM,
	)
	defer stop()

	// 3. Redis
	redisClient, err := redis_client.NewRedisClient(ctx, cfg.RedisHost, int(cfg.RedisPort))
	if err != nil {
		Log.Fatal("Failed to create Redis client", zap.Error(err))
	}
	defer redisClient.Close()

	// 4. Postgres db client + schema
	pgDb, err := db_client.Open(db_client.Options{
		Host:     cfg.PostgresHost,
		Port:     cfg.PostgresPort,
		User:     cfg.PostgresUser,
		Password: cfg.PostgresPassword,
		Database: cfg.PostgresDb,
		SSLMode:  cfg.PostgresSSLMode,
		MaxConns: cfg.PostgresMaxConns,
	})
	if err != nil {
		Log.Fatal("pg-open", zap.Error(err))
	}
	defer pgDb.Close()
	if err := db_client.Migrate(ctx, pgDb); err != nil {
		Log.Fatal("pg-migrate", zap.Error(err))
	}

	// 5. Services
	jwt := auth.New(cfg.SecretKey, cfg.TokenTTL)
	userService := users.NewUserService(pgDb, cfg.BcryptCost)
	roomStore := rooms.NewRoomStore(redisClient, pgDb)

	// 6. Relay core
	registry := ws.NewRegistry()
	wsSrv := ws.NewWsServer(registry, ws.Options{
		SendBuffer:     cfg.WsSendBuffer,
		MaxMessageSize: cfg.WsMaxMessageSize,
		PingPeriod:     cfg.WsPingPeriod,
		IdleTimeout:    cfg.WsIdleTimeout,
		AllowedOrigins: cfg.CorsAllow,
	})

	// 7. Background: presence mirror
	syncpresence.Run(ctx, redisClient, registry, cfg.PresenceSyncInterval)

	// 8. HTTP + WS server
	httpServer := http_server.NewHttpServer(cfg.HttpServerPort, http_server.Deps{
		WsServer:    wsSrv,
		JWT:         jwt,
		UserService: userService,
		RoomStore:   roomStore,
		CorsAllow:   cfg.CorsAllow,
	})

	serveErr := make(chan error, 1)
	go func() { serveErr <- httpServer.Start() }()

	select {
	case <-ctx.Done():
		Log.Info("shutdown_requested")
	case err := <-serveErr:
		if err != nil {
			Log.Error("Failed to start HTTP server", zap.Error(err))
		}
	}

	_ = httpServer.Dispose()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := wsSrv.Shutdown(shutdownCtx); err != nil {
		Log.Warn("relay_shutdown", zap.Error(err))
	}
	Log.Info("shutdown_complete")
}
