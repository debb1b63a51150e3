// teams/autosave/autosaver.go
package autosave

import (
	"context"
	"time"

	"github.com/mcbzh/teams-service/shared/cluster"
	"github.com/mcbzh/teams-service/shared/config"
	"github.com/mcbzh/teams-service/shared/registry"
	"github.com/mcbzh/teams-service/teams/service"
	"github.com/rs/zerolog/log"
)

// autosaveTaskKey is the consistent-hash token for the global autosave task.
// Every instance hashes the same token, so exactly one of them owns the tick.
const autosaveTaskKey = "teams-autosave"

// AutoSaver periodically flushes the full team registry to durable storage.
// It uses the ServiceAssignmentManager so only one instance in the cluster
// performs the save on each tick; the others keep a warm ring and take over
// when the owner disappears.
type AutoSaver struct {
	config            *config.TeamsServiceConfig
	teamService       *service.TeamService
	assignmentManager *cluster.ServiceAssignmentManager
	ctx               context.Context
	cancel            context.CancelFunc
}

// NewAutoSaver creates an AutoSaver bound to the given service instance.
func NewAutoSaver(
	cfg *config.TeamsServiceConfig,
	teamService *service.TeamService,
	registryClient *registry.RegistryClient,
	serviceRegistrar *registry.ServiceRegistrar,
) *AutoSaver {
	ctx, cancel := context.WithCancel(context.Background())

	assignmentManager := cluster.NewServiceAssignmentManager(
		registryClient,
		serviceRegistrar,
		cfg.HeartbeatInterval,
	)

	return &AutoSaver{
		config:            cfg,
		teamService:       teamService,
		assignmentManager: assignmentManager,
		ctx:               ctx,
		cancel:            cancel,
	}
}

// Start runs the autosave loop. Run it in a goroutine.
func (as *AutoSaver) Start() {
	log.Info().Dur("interval", as.config.AutoSaveInterval).Msg("autosaver starting")
	ticker := time.NewTicker(as.config.AutoSaveInterval)
	defer ticker.Stop()

	go as.assignmentManager.Start()

	for {
		select {
		case <-as.ctx.Done():
			log.Info().Msg("autosaver shutting down")
			as.assignmentManager.Stop()
			return
		case <-ticker.C:
			as.tick()
		}
	}
}

// Stop terminates the autosave loop.
func (as *AutoSaver) Stop() {
	as.cancel()
}

// tick performs one autosave round if this instance currently owns the global
// task.
func (as *AutoSaver) tick() {
	isOwner, err := as.assignmentManager.IsResponsible(autosaveTaskKey)
	if err != nil {
		log.Error().Err(err).Msg("autosaver failed to check task ownership")
		return
	}
	if !isOwner {
		return
	}

	saveCtx, cancel := context.WithTimeout(as.ctx, as.config.SaveTimeout)
	defer cancel()

	start := time.Now()
	if err := as.teamService.PersistAll(saveCtx); err != nil {
		log.Error().Err(err).Msg("autosave failed, previous durable copy remains live")
		return
	}
	log.Info().Dur("took", time.Since(start)).Msg("autosave completed")
}
