// teams/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	sharedapi "github.com/mcbzh/teams-service/shared/api"
	"github.com/mcbzh/teams-service/shared/config"
	mongodbu "github.com/mcbzh/teams-service/shared/mongodb"
	redisu "github.com/mcbzh/teams-service/shared/redis"
	"github.com/mcbzh/teams-service/shared/registry"
	teamsapi "github.com/mcbzh/teams-service/teams/api"
	"github.com/mcbzh/teams-service/teams/autosave"
	teamsregistry "github.com/mcbzh/teams-service/teams/registry"
	"github.com/mcbzh/teams-service/teams/service"
	"github.com/mcbzh/teams-service/teams/store"
)

func main() {
	// .env is optional, real deployments configure via the environment.
	_ = godotenv.Load()
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	log.Logger = log.With().Str("service", "teams-service").Logger()

	// --- 1. Load Configuration ---
	cfg, err := config.LoadTeamsServiceConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// --- 2. Connect to MongoDB ---
	mongoClient, err := mongodbu.NewClient(cfg.MongoDBConnStr, cfg.MongoDBDatabase)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to MongoDB")
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			log.Error().Err(err).Msg("Failed to disconnect from MongoDB")
			return
		}
		log.Info().Msg("Disconnected from MongoDB")
	}()

	// --- 3. Connect to Redis ---
	redisClient, err := redisu.NewRedisClusterClient(cfg.RedisAddrs, cfg.RedisPassword)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis Cluster")
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing Redis client")
			return
		}
		log.Info().Msg("Redis client closed")
	}()

	// --- 4. Initialize Data Stores ---
	teamStore := store.NewTeamStore(mongoClient.Database(), mongoClient.RawClient(), cfg.MongoDBTeamsCollection)
	presenceStore := store.NewPresenceStore(redisClient, cfg.RedisOnlineTTL)
	stashStore := store.NewStashStore(redisClient)
	messenger := store.NewRedisMessenger(redisClient)

	// --- 5. Initialize the Registry and Business Logic ---
	teamRegistry := teamsregistry.NewTeamRegistry(clockwork.NewRealClock(), stashStore)
	allianceService := teamsregistry.NewAllianceService(teamRegistry)
	teamService := service.NewTeamService(teamRegistry, allianceService, teamStore, messenger, presenceStore, stashStore)

	// The registry must be warm before the API starts answering.
	if err := teamService.LoadAll(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to load teams from storage")
	}

	// --- 6. Initialize API Handlers ---
	teamAPIHandlers := teamsapi.NewTeamAPIHandlers(teamService)

	// --- 7. Initialize and Start Service Registrar ---
	registrar := registry.NewServiceRegistrar(redisClient, "teams-service", &cfg.CommonConfig)
	go registrar.Start()
	defer registrar.Stop()

	// --- 8. Start the AutoSaver ---
	registryClient := registry.NewRegistryClient(redisClient, cfg.HeartbeatTTL)
	autoSaver := autosave.NewAutoSaver(cfg, teamService, registryClient, registrar)
	go autoSaver.Start()
	defer autoSaver.Stop()

	// --- 9. Setup HTTP Server and Register Routes ---
	baseServer := sharedapi.NewBaseServer(cfg.ListenAddr, log.Logger)
	teamAPIHandlers.RegisterRoutes(baseServer.Router)

	// --- 10. Start HTTP Server ---
	go func() {
		log.Info().Str("addr", cfg.ListenAddr).Msg("HTTP server starting")
		if err := baseServer.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed to start")
		}
	}()

	// --- 11. Graceful Shutdown ---
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info().Msg("Shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := baseServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server graceful shutdown failed")
	}

	// Final flush so nothing mutated since the last autosave is lost.
	if err := teamService.PersistAll(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Final save failed, last autosaved copy remains live")
	} else {
		log.Info().Msg("Final save completed")
	}

	log.Info().Msg("Server gracefully stopped")
}
