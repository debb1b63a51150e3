// teams/service/alliance_ops.go
package service

import (
	"context"
	"fmt"

	"github.com/mcbzh/teams-service/shared/models"
)

// leadership returns the leader plus moderators of a team, for notifications
// that only concern people who can act on them.
func leadership(t *models.Team) []string {
	ids := make([]string, 0, len(t.Moderators())+1)
	ids = append(ids, t.Leader())
	ids = append(ids, t.Moderators()...)
	return ids
}

// ProposeAlliance records an alliance proposal toward the named team and tells
// its leadership. The pending proposal is ephemeral and not persisted.
func (s *TeamService) ProposeAlliance(ctx context.Context, actorID, targetTeamName string) error {
	pair, err := s.alliances.Propose(actorID, targetTeamName)
	if err != nil {
		return err
	}
	s.broadcastOnline(ctx, leadership(pair.Target),
		fmt.Sprintf("%s wants to form an alliance with your team! Use /team ally accept %s within 5 minutes.",
			pair.Actor.DisplayName, pair.Actor.Name()))
	return nil
}

// AcceptAlliance forms the alliance proposed by the named team and announces
// it to both teams.
func (s *TeamService) AcceptAlliance(ctx context.Context, actorID, requesterTeamName string) error {
	pair, err := s.alliances.Accept(actorID, requesterTeamName)
	if err != nil {
		return err
	}
	s.persist(ctx)
	s.broadcastOnline(ctx, pair.Actor.Members(), fmt.Sprintf("Your team is now allied with %s!", pair.Target.DisplayName))
	s.broadcastOnline(ctx, pair.Target.Members(), fmt.Sprintf("Your team is now allied with %s!", pair.Actor.DisplayName))
	return nil
}

// BreakAlliance dissolves an existing alliance and announces it to both
// teams.
func (s *TeamService) BreakAlliance(ctx context.Context, actorID, targetTeamName string) error {
	pair, err := s.alliances.Break(actorID, targetTeamName)
	if err != nil {
		return err
	}
	s.persist(ctx)
	s.broadcastOnline(ctx, pair.Actor.Members(), fmt.Sprintf("Your alliance with %s has ended.", pair.Target.DisplayName))
	s.broadcastOnline(ctx, pair.Target.Members(), fmt.Sprintf("Your alliance with %s has ended.", pair.Actor.DisplayName))
	return nil
}

// ListAllies returns copies of every team allied with the player's team.
func (s *TeamService) ListAllies(playerID string) ([]*models.Team, error) {
	return s.alliances.ListAllies(playerID)
}

// SetAllyPermissions replaces the team-wide ally permission flags.
func (s *TeamService) SetAllyPermissions(ctx context.Context, actorID string, perms models.AllyPermissions) error {
	if _, err := s.alliances.SetAllyPermissions(actorID, perms); err != nil {
		return err
	}
	s.persist(ctx)
	return nil
}
