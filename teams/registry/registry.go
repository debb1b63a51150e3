// teams/registry/registry.go
package registry

import (
	"context"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/jonboulle/clockwork"
	"github.com/mcbzh/teams-service/shared/models"
	"github.com/rs/zerolog/log"
)

// MaxTeamNameLength is the host's command-level limit on team names.
const MaxTeamNameLength = 16

// StashReleaser is the collaborator owning per-team side storage. The registry
// notifies it when a team is destroyed so the storage can be released.
type StashReleaser interface {
	RemoveStash(ctx context.Context, teamID string) error
}

// TeamRegistry owns the collection of teams and the player→team index.
//
// A single RWMutex guards the team map, the index, and every Team aggregate
// reachable from them, so any mutation, including both sides of an alliance
// transition, is one atomic unit and the index can never be observed
// disagreeing with a team's member set. Query methods return deep copies taken
// under the read lock; callers never touch a live aggregate.
type TeamRegistry struct {
	mu    sync.RWMutex
	clock clockwork.Clock

	teams       map[string]*models.Team // team id -> team
	playerTeams map[string]string       // player id -> team id

	stash StashReleaser // optional, may be nil
}

// NewTeamRegistry creates an empty registry. The stash releaser may be nil
// when no stash collaborator is wired (tests, tools).
func NewTeamRegistry(clock clockwork.Clock, stash StashReleaser) *TeamRegistry {
	return &TeamRegistry{
		clock:       clock,
		teams:       make(map[string]*models.Team),
		playerTeams: make(map[string]string),
		stash:       stash,
	}
}

// --- Lifecycle ---

// CreateTeam registers a new team with the founder as leader and sole member.
// It is rejected when the founder already belongs to a team or the name
// collides case-insensitively with an existing team.
func (r *TeamRegistry) CreateTeam(name, founderID string) (*models.Team, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" || utf8.RuneCountInString(trimmed) > MaxTeamNameLength {
		return nil, ErrInvalidName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.playerTeams[founderID]; ok {
		return nil, ErrAlreadyInTeam
	}
	if r.findByNameLocked(trimmed) != nil {
		return nil, ErrNameTaken
	}

	team := models.NewTeam(trimmed, founderID, r.clock.Now())
	r.teams[team.ID()] = team
	r.playerTeams[founderID] = team.ID()

	return team.Clone(), nil
}

// DeleteTeam removes the team and every player-index entry pointing to it,
// then notifies the stash collaborator to release the team's storage. Returns
// false if the id is unknown.
func (r *TeamRegistry) DeleteTeam(ctx context.Context, teamID string) bool {
	r.mu.Lock()
	team, ok := r.teams[teamID]
	if !ok {
		r.mu.Unlock()
		return false
	}
	for _, member := range team.Members() {
		delete(r.playerTeams, member)
	}
	delete(r.teams, teamID)
	r.mu.Unlock()

	r.releaseStash(ctx, teamID)
	return true
}

// DisbandTeam deletes the actor's team. Leader only. Returns a copy of the
// team as it was, so callers can notify its former members.
func (r *TeamRegistry) DisbandTeam(ctx context.Context, actorID string) (*models.Team, error) {
	r.mu.Lock()
	team := r.playerTeamLocked(actorID)
	if team == nil {
		r.mu.Unlock()
		return nil, ErrNotInTeam
	}
	if !team.IsLeader(actorID) {
		r.mu.Unlock()
		return nil, ErrInsufficientRole
	}
	before := team.Clone()
	for _, member := range team.Members() {
		delete(r.playerTeams, member)
	}
	delete(r.teams, team.ID())
	r.mu.Unlock()

	r.releaseStash(ctx, before.ID())
	return before, nil
}

// releaseStash tells the stash collaborator to drop a destroyed team's
// storage. Called after the registry lock is released; failures are logged,
// not propagated, since the team is already gone.
func (r *TeamRegistry) releaseStash(ctx context.Context, teamID string) {
	if r.stash == nil {
		return
	}
	if err := r.stash.RemoveStash(ctx, teamID); err != nil {
		log.Error().Err(err).Str("team_id", teamID).Msg("failed to release team stash")
	}
}

// --- Queries ---

// GetTeam returns a copy of the team with the given id, or nil.
func (r *TeamRegistry) GetTeam(teamID string) *models.Team {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if team, ok := r.teams[teamID]; ok {
		return team.Clone()
	}
	return nil
}

// GetTeamByName returns a copy of the team whose name matches
// case-insensitively, or nil.
func (r *TeamRegistry) GetTeamByName(name string) *models.Team {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if team := r.findByNameLocked(name); team != nil {
		return team.Clone()
	}
	return nil
}

// GetPlayerTeam returns a copy of the team the player belongs to, or nil.
func (r *TeamRegistry) GetPlayerTeam(playerID string) *models.Team {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if team := r.playerTeamLocked(playerID); team != nil {
		return team.Clone()
	}
	return nil
}

// AllTeams returns copies of every registered team, ordered by creation time
// then id.
func (r *TeamRegistry) AllTeams() []*models.Team {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.Team, 0, len(r.teams))
	for _, team := range r.teams {
		out = append(out, team.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt().Equal(out[j].CreatedAt()) {
			return out[i].CreatedAt().Before(out[j].CreatedAt())
		}
		return out[i].ID() < out[j].ID()
	})
	return out
}

// TeamCount returns the number of registered teams.
func (r *TeamRegistry) TeamCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.teams)
}

// AreTeammates reports whether both players resolve to the same team.
func (r *TeamRegistry) AreTeammates(a, b string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	teamA, okA := r.playerTeams[a]
	teamB, okB := r.playerTeams[b]
	return okA && okB && teamA == teamB
}

// AreAllies reports whether two players are teammates or belong to mutually
// allied teams.
func (r *TeamRegistry) AreAllies(a, b string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	teamA := r.playerTeamLocked(a)
	teamB := r.playerTeamLocked(b)
	if teamA == nil || teamB == nil {
		return false
	}
	if teamA.ID() == teamB.ID() {
		return true
	}
	return teamA.IsAlly(teamB.ID()) && teamB.IsAlly(teamA.ID())
}

// IsPlayerAlliedWith reports whether the player's team considers the given
// team an ally.
func (r *TeamRegistry) IsPlayerAlliedWith(playerID, teamID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	team := r.playerTeamLocked(playerID)
	if team == nil {
		return false
	}
	return team.IsAlly(teamID)
}

// TopTeamsByKills returns copies of the top n teams by total kills,
// descending. Ties break by earliest creation, then id, so the order is
// reproducible.
func (r *TeamRegistry) TopTeamsByKills(n int) []*models.Team {
	return r.topTeams(n, func(t *models.Team) float64 { return float64(t.TotalKills()) })
}

// TopTeamsByKD returns copies of the top n teams by kill/death ratio,
// descending, with the same deterministic tie-break as TopTeamsByKills.
func (r *TeamRegistry) TopTeamsByKD(n int) []*models.Team {
	return r.topTeams(n, func(t *models.Team) float64 { return t.KDRatio() })
}

func (r *TeamRegistry) topTeams(n int, stat func(*models.Team) float64) []*models.Team {
	if n <= 0 {
		return nil
	}

	r.mu.RLock()
	ranked := make([]*models.Team, 0, len(r.teams))
	for _, team := range r.teams {
		ranked = append(ranked, team)
	}
	sort.Slice(ranked, func(i, j int) bool {
		si, sj := stat(ranked[i]), stat(ranked[j])
		if si != sj {
			return si > sj
		}
		if !ranked[i].CreatedAt().Equal(ranked[j].CreatedAt()) {
			return ranked[i].CreatedAt().Before(ranked[j].CreatedAt())
		}
		return ranked[i].ID() < ranked[j].ID()
	})
	if n > len(ranked) {
		n = len(ranked)
	}
	out := make([]*models.Team, 0, n)
	for _, team := range ranked[:n] {
		out = append(out, team.Clone())
	}
	r.mu.RUnlock()
	return out
}

// --- Membership ---

// AddPlayerToTeam adds a player to the team, clearing any pending invitation
// and updating the index as one atomic unit. It fails when the player already
// belongs to any team or the team is at capacity.
func (r *TeamRegistry) AddPlayerToTeam(playerID, teamID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.addPlayerLocked(playerID, teamID)
}

func (r *TeamRegistry) addPlayerLocked(playerID, teamID string) error {
	team, ok := r.teams[teamID]
	if !ok {
		return ErrTeamNotFound
	}
	if _, ok := r.playerTeams[playerID]; ok {
		return ErrAlreadyInTeam
	}
	if team.IsFull() {
		return ErrTeamFull
	}
	team.AddMember(playerID)
	r.playerTeams[playerID] = teamID
	return nil
}

// RemovalResult describes what happened when a player was removed from a team.
type RemovalResult struct {
	// TeamDeleted is true when the departure destroyed the team (sole member
	// left).
	TeamDeleted bool
	// NewLeader is set when the departing player was the leader and
	// leadership was transferred to a successor.
	NewLeader string
}

// RemovePlayerFromTeam removes a player from the team. If the departing player
// is the leader and other members remain, leadership transfers to the
// lexicographically smallest remaining member id, the deterministic
// succession rule this registry guarantees. If the leader was the sole member,
// the team is deleted instead.
func (r *TeamRegistry) RemovePlayerFromTeam(ctx context.Context, playerID, teamID string) (RemovalResult, error) {
	r.mu.Lock()
	team, ok := r.teams[teamID]
	if !ok {
		r.mu.Unlock()
		return RemovalResult{}, ErrTeamNotFound
	}
	res, err := r.removePlayerLocked(playerID, team)
	r.mu.Unlock()

	if err == nil && res.TeamDeleted {
		r.releaseStash(ctx, teamID)
	}
	return res, err
}

func (r *TeamRegistry) removePlayerLocked(playerID string, team *models.Team) (RemovalResult, error) {
	if !team.IsMember(playerID) {
		return RemovalResult{}, ErrNotInTeam
	}

	var res RemovalResult
	if team.IsLeader(playerID) {
		successor := successorFor(team, playerID)
		if successor == "" {
			// Last member leaving: the team goes with them.
			for _, member := range team.Members() {
				delete(r.playerTeams, member)
			}
			delete(r.teams, team.ID())
			res.TeamDeleted = true
			return res, nil
		}
		team.SetLeader(successor)
		res.NewLeader = successor
	}

	team.RemoveMember(playerID)
	delete(r.playerTeams, playerID)
	return res, nil
}

// successorFor picks the deterministic leadership successor: the
// lexicographically smallest member id other than the departing leader.
// Returns "" when no other member exists.
func successorFor(team *models.Team, departing string) string {
	for _, member := range team.Members() { // sorted
		if member != departing {
			return member
		}
	}
	return ""
}

// --- Invitations ---

// InvitePlayer records a join invitation for the target, issued by an actor
// with moderator-or-higher role. Returns a copy of the inviting team.
func (r *TeamRegistry) InvitePlayer(actorID, targetID string) (*models.Team, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	team := r.playerTeamLocked(actorID)
	if team == nil {
		return nil, ErrNotInTeam
	}
	if !team.IsModerator(actorID) {
		return nil, ErrInsufficientRole
	}
	if _, ok := r.playerTeams[targetID]; ok {
		return nil, ErrAlreadyInTeam
	}
	if team.IsFull() {
		return nil, ErrTeamFull
	}

	team.AddInvitation(targetID, r.clock.Now())
	return team.Clone(), nil
}

// JoinTeam adds the player to the named team, consuming a live invitation.
// The invitation check and the membership/index update are one atomic unit.
func (r *TeamRegistry) JoinTeam(playerID, teamName string) (*models.Team, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	team := r.findByNameLocked(teamName)
	if team == nil {
		return nil, ErrTeamNotFound
	}
	if _, ok := r.playerTeams[playerID]; ok {
		return nil, ErrAlreadyInTeam
	}
	if !team.HasInvitation(playerID, r.clock.Now()) {
		return nil, ErrInvitationExpired
	}
	if err := r.addPlayerLocked(playerID, team.ID()); err != nil {
		return nil, err
	}
	return team.Clone(), nil
}

// LeaveTeam removes the player from their current team, applying the
// leader-succession rule when the leader departs. Returns a copy of the team
// as it was before the removal, so callers can still address its members.
func (r *TeamRegistry) LeaveTeam(ctx context.Context, playerID string) (*models.Team, RemovalResult, error) {
	r.mu.Lock()
	team := r.playerTeamLocked(playerID)
	if team == nil {
		r.mu.Unlock()
		return nil, RemovalResult{}, ErrNotInTeam
	}
	before := team.Clone()
	res, err := r.removePlayerLocked(playerID, team)
	r.mu.Unlock()

	if err == nil && res.TeamDeleted {
		r.releaseStash(ctx, before.ID())
	}
	return before, res, err
}

// --- Roles ---

// KickPlayer removes the target from the actor's team. Moderators may kick
// plain members; only the leader may kick moderators; nobody kicks the leader.
func (r *TeamRegistry) KickPlayer(ctx context.Context, actorID, targetID string) (*models.Team, error) {
	r.mu.Lock()
	team := r.playerTeamLocked(actorID)
	if team == nil {
		r.mu.Unlock()
		return nil, ErrNotInTeam
	}
	if !team.IsModerator(actorID) {
		r.mu.Unlock()
		return nil, ErrInsufficientRole
	}
	if !team.IsMember(targetID) {
		r.mu.Unlock()
		return nil, ErrPlayerNotFound
	}
	if team.IsLeader(targetID) {
		r.mu.Unlock()
		return nil, ErrTargetIsLeader
	}
	if team.IsModerator(targetID) && !team.IsLeader(actorID) {
		r.mu.Unlock()
		return nil, ErrInsufficientRole
	}

	before := team.Clone()
	_, err := r.removePlayerLocked(targetID, team)
	r.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return before, nil
}

// PromotePlayer makes the target a moderator. Leader only.
func (r *TeamRegistry) PromotePlayer(actorID, targetID string) (*models.Team, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	team := r.playerTeamLocked(actorID)
	if team == nil {
		return nil, ErrNotInTeam
	}
	if !team.IsLeader(actorID) {
		return nil, ErrInsufficientRole
	}
	if !team.IsMember(targetID) {
		return nil, ErrPlayerNotFound
	}
	if team.IsLeader(targetID) {
		return nil, ErrTargetIsLeader
	}
	if !team.AddModerator(targetID) {
		return nil, ErrAlreadyModerator
	}
	return team.Clone(), nil
}

// DemotePlayer removes the target from the moderator set. Leader only.
func (r *TeamRegistry) DemotePlayer(actorID, targetID string) (*models.Team, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	team := r.playerTeamLocked(actorID)
	if team == nil {
		return nil, ErrNotInTeam
	}
	if !team.IsLeader(actorID) {
		return nil, ErrInsufficientRole
	}
	if !team.RemoveModerator(targetID) {
		return nil, ErrNotModerator
	}
	return team.Clone(), nil
}

// TransferLeadership hands the leader role to another current member. The old
// leader stays on as a plain member.
func (r *TeamRegistry) TransferLeadership(actorID, targetID string) (*models.Team, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	team := r.playerTeamLocked(actorID)
	if team == nil {
		return nil, ErrNotInTeam
	}
	if !team.IsLeader(actorID) {
		return nil, ErrInsufficientRole
	}
	if !team.IsMember(targetID) {
		return nil, ErrPlayerNotFound
	}
	team.SetLeader(targetID)
	return team.Clone(), nil
}

// --- Settings ---

// UpdateSettings applies fn to the actor's team under the write lock.
// Settings changes require the leader role unless moderatorOK is set.
func (r *TeamRegistry) UpdateSettings(actorID string, moderatorOK bool, fn func(*models.Team) error) (*models.Team, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	team := r.playerTeamLocked(actorID)
	if team == nil {
		return nil, ErrNotInTeam
	}
	if moderatorOK {
		if !team.IsModerator(actorID) {
			return nil, ErrInsufficientRole
		}
	} else if !team.IsLeader(actorID) {
		return nil, ErrInsufficientRole
	}
	if err := fn(team); err != nil {
		return nil, err
	}
	return team.Clone(), nil
}

// RenameTeam changes the team's name, re-checking case-insensitive uniqueness
// against every other registered team. Leader only.
func (r *TeamRegistry) RenameTeam(actorID, newName string) (*models.Team, error) {
	trimmed := strings.TrimSpace(newName)
	if trimmed == "" || utf8.RuneCountInString(trimmed) > MaxTeamNameLength {
		return nil, ErrInvalidName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	team := r.playerTeamLocked(actorID)
	if team == nil {
		return nil, ErrNotInTeam
	}
	if !team.IsLeader(actorID) {
		return nil, ErrInsufficientRole
	}
	if existing := r.findByNameLocked(trimmed); existing != nil && existing.ID() != team.ID() {
		return nil, ErrNameTaken
	}
	team.SetName(trimmed)
	return team.Clone(), nil
}

// --- Statistics ---

// RecordDeath increments the victim team's death counter and, when a killer
// is given, the killer team's kill counter. A kill against a teammate only
// counts when the team has friendly fire enabled, matching the combat rules.
// Both counters move under one lock acquisition.
func (r *TeamRegistry) RecordDeath(victimID, killerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	victimTeam := r.playerTeamLocked(victimID)
	if victimTeam != nil {
		victimTeam.AddDeath()
	}

	if killerID == "" {
		return
	}
	killerTeam := r.playerTeamLocked(killerID)
	if killerTeam == nil {
		return
	}
	if victimTeam != nil && victimTeam.ID() == killerTeam.ID() && !killerTeam.FriendlyFire {
		return
	}
	killerTeam.AddKill()
}

// --- Persistence support ---

// Snapshot returns the durable records of every team, taken under the read
// lock. Serialization and the actual write happen outside the lock.
func (r *TeamRegistry) Snapshot() []models.TeamRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	records := make([]models.TeamRecord, 0, len(r.teams))
	for _, team := range r.teams {
		records = append(records, team.Record())
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records
}

// Load replaces the registry contents with the given teams and derives the
// player index from their member lists. A player appearing in more than one
// team keeps the first mapping (by team creation order) and the conflict is
// logged; the later team keeps the member, so the index invariant is restored
// on the next save.
func (r *TeamRegistry) Load(teams []*models.Team) {
	ordered := make([]*models.Team, len(teams))
	copy(ordered, teams)
	sort.Slice(ordered, func(i, j int) bool {
		if !ordered[i].CreatedAt().Equal(ordered[j].CreatedAt()) {
			return ordered[i].CreatedAt().Before(ordered[j].CreatedAt())
		}
		return ordered[i].ID() < ordered[j].ID()
	})

	r.mu.Lock()
	defer r.mu.Unlock()

	r.teams = make(map[string]*models.Team, len(ordered))
	r.playerTeams = make(map[string]string)

	for _, team := range ordered {
		r.teams[team.ID()] = team
		for _, member := range team.Members() {
			if existing, ok := r.playerTeams[member]; ok {
				log.Warn().
					Str("player_id", member).
					Str("kept_team", existing).
					Str("conflicting_team", team.ID()).
					Msg("player indexed in multiple teams, keeping first")
				continue
			}
			r.playerTeams[member] = team.ID()
		}
	}
}

// --- internal helpers (callers hold r.mu) ---

func (r *TeamRegistry) findByNameLocked(name string) *models.Team {
	for _, team := range r.teams {
		if strings.EqualFold(team.Name(), name) {
			return team
		}
	}
	return nil
}

func (r *TeamRegistry) playerTeamLocked(playerID string) *models.Team {
	teamID, ok := r.playerTeams[playerID]
	if !ok {
		return nil
	}
	return r.teams[teamID]
}
