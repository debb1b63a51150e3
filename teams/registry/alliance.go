// teams/registry/alliance.go
package registry

import (
	"github.com/mcbzh/teams-service/shared/models"
)

// AllianceService enforces the two-sided alliance contract over pairs of
// teams. The relation is stored as two independent per-team ally sets, so
// every transition here mutates both aggregates inside one critical section
// of the registry lock. The raw single-sided mutators on Team are never
// exposed to callers.
//
// Alliance eligibility (AllowAlliances) is checked only at proposal time. An
// already-formed alliance is not dissolved when one side later disables
// alliances; that is deliberate, non-retroactive policy.
type AllianceService struct {
	reg *TeamRegistry
}

// NewAllianceService creates an AllianceService over the given registry.
func NewAllianceService(reg *TeamRegistry) *AllianceService {
	return &AllianceService{reg: reg}
}

// AlliancePair carries copies of both teams touched by a transition, for
// callers that need to notify their members.
type AlliancePair struct {
	Actor  *models.Team
	Target *models.Team
}

// Propose records an alliance proposal from the actor's team to the named
// team. Requires moderator-or-higher role, both teams open to alliances,
// distinct teams, and no existing alliance. The pending invite is recorded on
// BOTH teams as a single atomic step: the requester notes "I invited X", the
// target notes "X invited me".
func (as *AllianceService) Propose(actorID, targetTeamName string) (AlliancePair, error) {
	r := as.reg
	r.mu.Lock()
	defer r.mu.Unlock()

	team := r.playerTeamLocked(actorID)
	if team == nil {
		return AlliancePair{}, ErrNotInTeam
	}
	if !team.IsModerator(actorID) {
		return AlliancePair{}, ErrInsufficientRole
	}
	if !team.AllowAlliances {
		return AlliancePair{}, ErrAlliancesDisabled
	}

	target := r.findByNameLocked(targetTeamName)
	if target == nil {
		return AlliancePair{}, ErrTeamNotFound
	}
	if target.ID() == team.ID() {
		return AlliancePair{}, ErrSelfAlliance
	}
	if team.IsAlly(target.ID()) {
		return AlliancePair{}, ErrAlreadyAllied
	}
	if !target.AllowAlliances {
		return AlliancePair{}, ErrAlliancesDisabled
	}

	now := r.clock.Now()
	team.AddAllyInvite(target.ID(), now)
	target.AddAllyInvite(team.ID(), now)

	return AlliancePair{Actor: team.Clone(), Target: target.Clone()}, nil
}

// Accept forms the alliance proposed by the named team. The accepting side
// must hold a live ally invite from the requester (within the TTL); on
// success both teams gain each other in their ally sets and both pending
// invite entries are cleared, all in one critical section.
func (as *AllianceService) Accept(actorID, requesterTeamName string) (AlliancePair, error) {
	r := as.reg
	r.mu.Lock()
	defer r.mu.Unlock()

	team := r.playerTeamLocked(actorID)
	if team == nil {
		return AlliancePair{}, ErrNotInTeam
	}
	if !team.IsModerator(actorID) {
		return AlliancePair{}, ErrInsufficientRole
	}

	requester := r.findByNameLocked(requesterTeamName)
	if requester == nil {
		return AlliancePair{}, ErrTeamNotFound
	}
	if requester.ID() == team.ID() {
		return AlliancePair{}, ErrSelfAlliance
	}
	if team.IsAlly(requester.ID()) {
		return AlliancePair{}, ErrAlreadyAllied
	}
	if !team.HasAllyInvite(requester.ID(), r.clock.Now()) {
		return AlliancePair{}, ErrInvitationExpired
	}

	// AddAlly also clears each side's pending invite entry.
	team.AddAlly(requester.ID())
	requester.AddAlly(team.ID())

	return AlliancePair{Actor: team.Clone(), Target: requester.Clone()}, nil
}

// Break dissolves an existing alliance. Both teams lose each other from their
// ally sets in the same operation.
func (as *AllianceService) Break(actorID, targetTeamName string) (AlliancePair, error) {
	r := as.reg
	r.mu.Lock()
	defer r.mu.Unlock()

	team := r.playerTeamLocked(actorID)
	if team == nil {
		return AlliancePair{}, ErrNotInTeam
	}
	if !team.IsModerator(actorID) {
		return AlliancePair{}, ErrInsufficientRole
	}

	target := r.findByNameLocked(targetTeamName)
	if target == nil {
		return AlliancePair{}, ErrTeamNotFound
	}
	if !team.IsAlly(target.ID()) {
		return AlliancePair{}, ErrNotAllied
	}

	team.RemoveAlly(target.ID())
	target.RemoveAlly(team.ID())

	return AlliancePair{Actor: team.Clone(), Target: target.Clone()}, nil
}

// ListAllies returns copies of every team currently allied with the player's
// team. Ally entries pointing at teams that no longer exist are skipped.
func (as *AllianceService) ListAllies(playerID string) ([]*models.Team, error) {
	r := as.reg
	r.mu.RLock()
	defer r.mu.RUnlock()

	team := r.playerTeamLocked(playerID)
	if team == nil {
		return nil, ErrNotInTeam
	}

	allies := make([]*models.Team, 0, len(team.Allies()))
	for _, allyID := range team.Allies() {
		if ally, ok := r.teams[allyID]; ok {
			allies = append(allies, ally.Clone())
		}
	}
	return allies, nil
}

// SetAllyPermissions replaces the team-wide ally permission flags. The change
// applies immediately to every current ally. Moderator-or-higher role.
func (as *AllianceService) SetAllyPermissions(actorID string, perms models.AllyPermissions) (*models.Team, error) {
	r := as.reg
	r.mu.Lock()
	defer r.mu.Unlock()

	team := r.playerTeamLocked(actorID)
	if team == nil {
		return nil, ErrNotInTeam
	}
	if !team.IsModerator(actorID) {
		return nil, ErrInsufficientRole
	}
	team.AllyPermissions = perms
	return team.Clone(), nil
}
