package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/Shaytris/Obsidian/internal/config"
	"github.com/Shaytris/Obsidian/internal/handler"
	"github.com/Shaytris/Obsidian/internal/hub"
	"github.com/Shaytris/Obsidian/internal/moderation"
	"github.com/Shaytris/Obsidian/internal/persist"
	"github.com/Shaytris/Obsidian/internal/registry"
	"github.com/Shaytris/Obsidian/internal/service"
	"github.com/Shaytris/Obsidian/internal/session"
	"github.com/Shaytris/Obsidian/internal/store"
	"github.com/Shaytris/Obsidian/pkg/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log.Init(cfg.Log)
	logger := log.L()
	logger.Info().Str("host", cfg.Server.Host).Int("port", cfg.Server.Port).Msg("starting obsidian hub")

	advertiseAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)

	// The chat and game surfaces have separate namespaces and eviction
	// behavior, so each gets its own store and hub.
	chatStore := store.New(cfg.History.MaxLength)
	gameStore := store.New(0)
	chatHub := hub.NewHub(cfg.WebSocket)
	gameHub := hub.NewHub(cfg.WebSocket)

	chatRegistry, gameRegistry := buildRegistries(cfg, advertiseAddr)
	defer chatRegistry.Close()
	defer gameRegistry.Close()

	var sinks []persist.Sink
	var history *persist.GormSink

	if cfg.Database.Enabled {
		gormSink, err := persist.NewGormSink(cfg.Database)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to initialize database sink")
		}
		sinks = append(sinks, gormSink)
		history = gormSink
		logger.Info().Str("driver", cfg.Database.Driver).Msg("database sink enabled")
	}

	if cfg.Kafka.Enabled {
		kafkaSink, err := persist.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.Partitions)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to initialize kafka sink")
		}
		sinks = append(sinks, kafkaSink)
		logger.Info().Str("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("kafka sink enabled")
	}

	policy := moderation.NewPolicy(chatStore, chatHub)
	chatSvc := service.NewChatService(chatStore, chatHub, policy, sinks, chatRegistry)

	machine := session.New(gameStore, gameHub)
	gameSvc := service.NewGameService(machine, gameHub, gameRegistry)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := chatSvc.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to start chat service")
	}
	defer chatSvc.Stop()
	if err := gameRegistry.StartHeartbeat(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to start registry heartbeat")
	}

	wsHandler := handler.NewWSHandler(chatHub, gameHub, chatSvc, gameSvc, cfg.WebSocket)
	mux := http.NewServeMux()
	wsHandler.RegisterRoutes(mux)

	wsServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(log.GinMiddleware(logger), gin.Recovery())
	handler.NewHTTPHandler(chatStore, gameStore, history).RegisterRoutes(engine)

	apiServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.API.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().Str("addr", wsServer.Addr).Msg("websocket server listening")
		if err := wsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("websocket server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		logger.Info().Str("addr", apiServer.Addr).Msg("api server listening")
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info().Str("signal", sig.String()).Msg("shutting down")
		case <-gctx.Done():
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := wsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("websocket server shutdown failed")
		}
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("api server shutdown failed")
		}
		cancel()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Fatal().Err(err).Msg("server error")
	}

	logger.Info().Msg("obsidian hub stopped")
}

// buildRegistries returns the presence registries for the two surfaces.
// The prefixes differ so a chat channel and a game room sharing a name
// never collide in Redis.
func buildRegistries(cfg *config.Config, advertiseAddr string) (registry.Registry, registry.Registry) {
	if !cfg.Redis.Enabled {
		return registry.NewNoop(), registry.NewNoop()
	}

	chatCfg := cfg.Redis
	chatCfg.RegistryPrefix = cfg.Redis.RegistryPrefix + ":chat"
	chatReg, err := registry.NewRedisRegistry(chatCfg, advertiseAddr)
	if err != nil {
		log.L().Fatal().Err(err).Msg("failed to connect to redis")
	}

	gameCfg := cfg.Redis
	gameCfg.RegistryPrefix = cfg.Redis.RegistryPrefix + ":game"
	gameReg, err := registry.NewRedisRegistry(gameCfg, advertiseAddr)
	if err != nil {
		log.L().Fatal().Err(err).Msg("failed to connect to redis")
	}

	return chatReg, gameReg
}
