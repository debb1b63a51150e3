// teams/service/team_service.go
package service

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/mcbzh/teams-service/shared/models"
	"github.com/mcbzh/teams-service/teams/registry"
	"github.com/rs/zerolog/log"
)

// Persister is the durable storage gateway the service saves through.
type Persister interface {
	SaveAll(ctx context.Context, records []models.TeamRecord) error
	LoadAll(ctx context.Context) ([]*models.Team, error)
}

// Messenger delivers chat lines to players. Formatting beyond the plain line
// is the host's concern.
type Messenger interface {
	SendTo(ctx context.Context, playerUUID, line string) error
	Broadcast(ctx context.Context, playerUUIDs []string, line string)
}

// Directory resolves player ids to display names and presence.
type Directory interface {
	GetUsername(ctx context.Context, playerUUID string) (string, error)
	FilterOnline(ctx context.Context, playerUUIDs []string) ([]string, error)
}

// Stash is the per-team side storage of opaque item payloads. Release on team
// destruction is wired separately, through the registry.
type Stash interface {
	PutSlot(ctx context.Context, teamID string, slot int, payload string) error
	GetStash(ctx context.Context, teamID string) (map[string]string, error)
}

// MaxTeamTagLength is the host's command-level limit on team tags.
const MaxTeamTagLength = 8

// chatColors is the palette accepted for team colors.
var chatColors = map[string]struct{}{
	"BLACK": {}, "DARK_BLUE": {}, "DARK_GREEN": {}, "DARK_AQUA": {},
	"DARK_RED": {}, "DARK_PURPLE": {}, "GOLD": {}, "GRAY": {},
	"DARK_GRAY": {}, "BLUE": {}, "GREEN": {}, "AQUA": {},
	"RED": {}, "LIGHT_PURPLE": {}, "YELLOW": {}, "WHITE": {},
}

// TeamService encapsulates the business logic for teams: it drives the
// registry and alliance protocol, notifies affected players, and triggers
// persistence after state-changing operations. Storage failures are logged
// and never roll back or fail the in-memory operation; the previous durable
// copy stays intact until a save succeeds.
type TeamService struct {
	reg       *registry.TeamRegistry
	alliances *registry.AllianceService
	store     Persister
	messenger Messenger
	directory Directory
	stash     Stash
}

// NewTeamService creates a new TeamService instance. The stash may be nil when
// no side storage is wired.
func NewTeamService(reg *registry.TeamRegistry, alliances *registry.AllianceService, store Persister, messenger Messenger, directory Directory, stash Stash) *TeamService {
	return &TeamService{
		reg:       reg,
		alliances: alliances,
		store:     store,
		messenger: messenger,
		directory: directory,
		stash:     stash,
	}
}

// LoadAll rebuilds the registry from durable storage. Called once on startup
// before the API starts serving.
func (s *TeamService) LoadAll(ctx context.Context) error {
	teams, err := s.store.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load teams: %w", err)
	}
	s.reg.Load(teams)
	log.Info().Int("teams", len(teams)).Msg("loaded teams from storage")
	return nil
}

// PersistAll snapshots the registry under its read lock and writes the
// snapshot to durable storage outside it.
func (s *TeamService) PersistAll(ctx context.Context) error {
	return s.store.SaveAll(ctx, s.reg.Snapshot())
}

// persist is the post-mutation save trigger. A failed save only logs: the
// in-memory state is authoritative and the previous durable copy is still
// readable.
func (s *TeamService) persist(ctx context.Context) {
	if err := s.PersistAll(ctx); err != nil {
		log.Error().Err(err).Msg("failed to persist teams after mutation")
	}
}

// --- Team lifecycle ---

// CreateTeam registers a new team with the founder as its leader.
func (s *TeamService) CreateTeam(ctx context.Context, name, founderID string) (*models.Team, error) {
	team, err := s.reg.CreateTeam(name, founderID)
	if err != nil {
		return nil, err
	}
	s.persist(ctx)
	log.Info().Str("team", team.Name()).Str("leader", founderID).Msg("team created")
	return team, nil
}

// DisbandTeam deletes the actor's team (leader only) and tells its former
// members.
func (s *TeamService) DisbandTeam(ctx context.Context, actorID string) error {
	team, err := s.reg.DisbandTeam(ctx, actorID)
	if err != nil {
		return err
	}
	s.persist(ctx)
	s.broadcastOnline(ctx, team.Members(), fmt.Sprintf("Your team %s has been disbanded.", team.DisplayName))
	log.Info().Str("team", team.Name()).Msg("team disbanded")
	return nil
}

// DeleteTeam removes the team by id regardless of roles, for admin tooling.
// Reports whether a team was actually deleted.
func (s *TeamService) DeleteTeam(ctx context.Context, teamID string) bool {
	if !s.reg.DeleteTeam(ctx, teamID) {
		return false
	}
	s.persist(ctx)
	return true
}

// RenameTeam changes the team's unique name. Leader only; uniqueness is
// re-checked against every other team.
func (s *TeamService) RenameTeam(ctx context.Context, actorID, newName string) error {
	team, err := s.reg.RenameTeam(actorID, newName)
	if err != nil {
		return err
	}
	s.persist(ctx)
	s.broadcastOnline(ctx, team.Members(), fmt.Sprintf("Your team is now called %s.", team.Name()))
	return nil
}

// --- Membership ---

// InvitePlayer issues a join invitation to the target and notifies them. The
// invitation itself is ephemeral and is not persisted.
func (s *TeamService) InvitePlayer(ctx context.Context, actorID, targetID string) (*models.Team, error) {
	team, err := s.reg.InvitePlayer(actorID, targetID)
	if err != nil {
		return nil, err
	}
	s.sendTo(ctx, targetID, fmt.Sprintf("You have been invited to join %s! Use /team join %s within 5 minutes.", team.DisplayName, team.Name()))
	return team, nil
}

// JoinTeam accepts a pending invitation and adds the player to the team.
func (s *TeamService) JoinTeam(ctx context.Context, playerID, teamName string) (*models.Team, error) {
	team, err := s.reg.JoinTeam(playerID, teamName)
	if err != nil {
		return nil, err
	}
	s.persist(ctx)
	s.broadcastOnline(ctx, team.Members(), fmt.Sprintf("%s joined the team!", s.displayName(ctx, playerID)))
	return s.reg.GetTeam(team.ID()), nil
}

// LeaveTeam removes the player from their team, promoting a successor or
// deleting the team per the succession rule.
func (s *TeamService) LeaveTeam(ctx context.Context, playerID string) (registry.RemovalResult, error) {
	team, res, err := s.reg.LeaveTeam(ctx, playerID)
	if err != nil {
		return res, err
	}
	s.persist(ctx)

	if res.TeamDeleted {
		log.Info().Str("team", team.Name()).Msg("team deleted after last member left")
		return res, nil
	}

	remaining := make([]string, 0, len(team.Members()))
	for _, m := range team.Members() {
		if m != playerID {
			remaining = append(remaining, m)
		}
	}
	s.broadcastOnline(ctx, remaining, fmt.Sprintf("%s left the team.", s.displayName(ctx, playerID)))
	if res.NewLeader != "" {
		s.sendTo(ctx, res.NewLeader, fmt.Sprintf("You are now the leader of %s.", team.DisplayName))
	}
	return res, nil
}

// KickPlayer removes the target from the actor's team and notifies both
// sides.
func (s *TeamService) KickPlayer(ctx context.Context, actorID, targetID string) error {
	team, err := s.reg.KickPlayer(ctx, actorID, targetID)
	if err != nil {
		return err
	}
	s.persist(ctx)
	s.sendTo(ctx, targetID, fmt.Sprintf("You have been kicked from %s.", team.DisplayName))

	remaining := make([]string, 0, len(team.Members()))
	for _, m := range team.Members() {
		if m != targetID {
			remaining = append(remaining, m)
		}
	}
	s.broadcastOnline(ctx, remaining, fmt.Sprintf("%s was kicked from the team.", s.displayName(ctx, targetID)))
	return nil
}

// --- Roles ---

// PromotePlayer makes the target a team moderator.
func (s *TeamService) PromotePlayer(ctx context.Context, actorID, targetID string) error {
	team, err := s.reg.PromotePlayer(actorID, targetID)
	if err != nil {
		return err
	}
	s.persist(ctx)
	s.sendTo(ctx, targetID, fmt.Sprintf("You are now a moderator of %s.", team.DisplayName))
	return nil
}

// DemotePlayer removes the target's moderator role.
func (s *TeamService) DemotePlayer(ctx context.Context, actorID, targetID string) error {
	team, err := s.reg.DemotePlayer(actorID, targetID)
	if err != nil {
		return err
	}
	s.persist(ctx)
	s.sendTo(ctx, targetID, fmt.Sprintf("You are no longer a moderator of %s.", team.DisplayName))
	return nil
}

// TransferLeadership hands the leader role to another member.
func (s *TeamService) TransferLeadership(ctx context.Context, actorID, targetID string) error {
	team, err := s.reg.TransferLeadership(actorID, targetID)
	if err != nil {
		return err
	}
	s.persist(ctx)
	s.broadcastOnline(ctx, team.Members(), fmt.Sprintf("%s is now the team leader.", s.displayName(ctx, targetID)))
	return nil
}

// --- Settings ---

// SetColor sets the team's chat color. Leader only.
func (s *TeamService) SetColor(ctx context.Context, actorID, color string) error {
	if _, ok := chatColors[color]; !ok {
		return registry.ErrInvalidColor
	}
	_, err := s.reg.UpdateSettings(actorID, false, func(t *models.Team) error {
		t.Color = color
		return nil
	})
	if err != nil {
		return err
	}
	s.persist(ctx)
	return nil
}

// SetTag sets the team's short tag. Leader only.
func (s *TeamService) SetTag(ctx context.Context, actorID, tag string) error {
	if utf8.RuneCountInString(tag) > MaxTeamTagLength {
		return registry.ErrInvalidTag
	}
	_, err := s.reg.UpdateSettings(actorID, false, func(t *models.Team) error {
		t.Tag = tag
		return nil
	})
	if err != nil {
		return err
	}
	s.persist(ctx)
	return nil
}

// SetDescription sets the team description. Moderator or higher.
func (s *TeamService) SetDescription(ctx context.Context, actorID, description string) error {
	_, err := s.reg.UpdateSettings(actorID, true, func(t *models.Team) error {
		t.Description = description
		return nil
	})
	if err != nil {
		return err
	}
	s.persist(ctx)
	return nil
}

// SetMaxMembers changes the team's capacity. Leader only; the new bound must
// not fall below the current member count.
func (s *TeamService) SetMaxMembers(ctx context.Context, actorID string, maxMembers int) error {
	_, err := s.reg.UpdateSettings(actorID, false, func(t *models.Team) error {
		if maxMembers < 1 || maxMembers < t.MemberCount() {
			return registry.ErrInvalidCapacity
		}
		t.MaxMembers = maxMembers
		return nil
	})
	if err != nil {
		return err
	}
	s.persist(ctx)
	return nil
}

// SetFriendlyFire toggles friendly fire. Leader only.
func (s *TeamService) SetFriendlyFire(ctx context.Context, actorID string, enabled bool) error {
	_, err := s.reg.UpdateSettings(actorID, false, func(t *models.Team) error {
		t.FriendlyFire = enabled
		return nil
	})
	if err != nil {
		return err
	}
	s.persist(ctx)
	return nil
}

// SetAllowAlliances toggles whether the team accepts alliance proposals.
// Leader only; existing alliances stay in force.
func (s *TeamService) SetAllowAlliances(ctx context.Context, actorID string, enabled bool) error {
	_, err := s.reg.UpdateSettings(actorID, false, func(t *models.Team) error {
		t.AllowAlliances = enabled
		return nil
	})
	if err != nil {
		return err
	}
	s.persist(ctx)
	return nil
}

// --- Combat ---

// RecordDeath records a death for the victim's team and, when a killer is
// given, a kill for the killer's team under the friendly-fire rule.
func (s *TeamService) RecordDeath(ctx context.Context, victimID, killerID string) {
	s.reg.RecordDeath(victimID, killerID)
	s.persist(ctx)
}

// AreTeammates reports whether both players are on the same team.
func (s *TeamService) AreTeammates(a, b string) bool { return s.reg.AreTeammates(a, b) }

// AreAllies reports whether two players are teammates or on allied teams.
func (s *TeamService) AreAllies(a, b string) bool { return s.reg.AreAllies(a, b) }

// IsPlayerAlliedWith reports whether the player's team is allied with the
// given team.
func (s *TeamService) IsPlayerAlliedWith(playerID, teamID string) bool {
	return s.reg.IsPlayerAlliedWith(playerID, teamID)
}

// --- Queries ---

// GetTeam returns a copy of the team with the given id, or nil.
func (s *TeamService) GetTeam(teamID string) *models.Team { return s.reg.GetTeam(teamID) }

// GetTeamByName returns a copy of the team with the given name, or nil.
func (s *TeamService) GetTeamByName(name string) *models.Team { return s.reg.GetTeamByName(name) }

// GetPlayerTeam returns a copy of the player's team, or nil.
func (s *TeamService) GetPlayerTeam(playerID string) *models.Team {
	return s.reg.GetPlayerTeam(playerID)
}

// AllTeams returns copies of every registered team.
func (s *TeamService) AllTeams() []*models.Team { return s.reg.AllTeams() }

// TopTeamsByKills returns the top n teams by kills.
func (s *TeamService) TopTeamsByKills(n int) []*models.Team { return s.reg.TopTeamsByKills(n) }

// TopTeamsByKD returns the top n teams by kill/death ratio.
func (s *TeamService) TopTeamsByKD(n int) []*models.Team { return s.reg.TopTeamsByKD(n) }

// --- Stash ---

// PutStashSlot stores an opaque payload in the team's stash. An empty payload
// clears the slot. The payload is item data the game server serialized; this
// service never interprets it.
func (s *TeamService) PutStashSlot(ctx context.Context, teamID string, slot int, payload string) error {
	if s.stash == nil {
		return fmt.Errorf("no stash storage configured")
	}
	if s.reg.GetTeam(teamID) == nil {
		return registry.ErrTeamNotFound
	}
	return s.stash.PutSlot(ctx, teamID, slot, payload)
}

// GetStash returns the slot→payload map of the team's stash.
func (s *TeamService) GetStash(ctx context.Context, teamID string) (map[string]string, error) {
	if s.stash == nil {
		return nil, fmt.Errorf("no stash storage configured")
	}
	if s.reg.GetTeam(teamID) == nil {
		return nil, registry.ErrTeamNotFound
	}
	return s.stash.GetStash(ctx, teamID)
}

// --- helpers ---

// displayName resolves a player id through the directory, falling back to the
// raw id when the directory has no entry.
func (s *TeamService) displayName(ctx context.Context, playerID string) string {
	name, err := s.directory.GetUsername(ctx, playerID)
	if err != nil {
		return playerID
	}
	return name
}

// sendTo delivers a line to one player, logging delivery failures.
func (s *TeamService) sendTo(ctx context.Context, playerID, line string) {
	if err := s.messenger.SendTo(ctx, playerID, line); err != nil {
		log.Warn().Err(err).Str("player_id", playerID).Msg("failed to deliver message")
	}
}

// broadcastOnline delivers a line to the online subset of the given players.
func (s *TeamService) broadcastOnline(ctx context.Context, playerIDs []string, line string) {
	online, err := s.directory.FilterOnline(ctx, playerIDs)
	if err != nil {
		log.Warn().Err(err).Msg("failed to resolve online players, broadcasting to all")
		online = playerIDs
	}
	s.messenger.Broadcast(ctx, online, line)
}
