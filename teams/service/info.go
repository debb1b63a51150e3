// teams/service/info.go
package service

import (
	"context"
	"fmt"

	"github.com/mcbzh/teams-service/shared/models"
	"github.com/mcbzh/teams-service/teams/registry"
)

// TeamInfo is the read-model projection of a team for display surfaces:
// player ids are resolved to names and the K/D ratio is pre-formatted.
type TeamInfo struct {
	ID           string                 `json:"id"`
	Name         string                 `json:"name"`
	DisplayName  string                 `json:"display_name"`
	Tag          string                 `json:"tag,omitempty"`
	Color        string                 `json:"color"`
	Description  string                 `json:"description"`
	LeaderName   string                 `json:"leader_name"`
	Members      []string               `json:"members"`
	Moderators   []string               `json:"moderators"`
	Allies       []string               `json:"allies"`
	MemberCount  int                    `json:"member_count"`
	MaxMembers   int                    `json:"max_members"`
	FriendlyFire bool                   `json:"friendly_fire"`
	TotalKills   int                    `json:"total_kills"`
	TotalDeaths  int                    `json:"total_deaths"`
	KDRatio      string                 `json:"kd_ratio"`
	AllyPerms    models.AllyPermissions `json:"ally_permissions"`
	CreatedAtMs  int64                  `json:"created_at_ms"`
}

// TeamInfoByName builds the display projection for the named team.
func (s *TeamService) TeamInfoByName(ctx context.Context, name string) (*TeamInfo, error) {
	team := s.reg.GetTeamByName(name)
	if team == nil {
		return nil, registry.ErrTeamNotFound
	}
	return s.buildInfo(ctx, team), nil
}

// TeamInfoForPlayer builds the display projection for the player's own team.
func (s *TeamService) TeamInfoForPlayer(ctx context.Context, playerID string) (*TeamInfo, error) {
	team := s.reg.GetPlayerTeam(playerID)
	if team == nil {
		return nil, registry.ErrNotInTeam
	}
	return s.buildInfo(ctx, team), nil
}

func (s *TeamService) buildInfo(ctx context.Context, team *models.Team) *TeamInfo {
	members := make([]string, 0, team.MemberCount())
	for _, id := range team.Members() {
		members = append(members, s.displayName(ctx, id))
	}
	mods := make([]string, 0, len(team.Moderators()))
	for _, id := range team.Moderators() {
		mods = append(mods, s.displayName(ctx, id))
	}
	allies := make([]string, 0, len(team.Allies()))
	for _, allyID := range team.Allies() {
		if ally := s.reg.GetTeam(allyID); ally != nil {
			allies = append(allies, ally.DisplayName)
		}
	}

	return &TeamInfo{
		ID:           team.ID(),
		Name:         team.Name(),
		DisplayName:  team.DisplayName,
		Tag:          team.Tag,
		Color:        team.Color,
		Description:  team.Description,
		LeaderName:   s.displayName(ctx, team.Leader()),
		Members:      members,
		Moderators:   mods,
		Allies:       allies,
		MemberCount:  team.MemberCount(),
		MaxMembers:   team.MaxMembers,
		FriendlyFire: team.FriendlyFire,
		TotalKills:   team.TotalKills(),
		TotalDeaths:  team.TotalDeaths(),
		KDRatio:      fmt.Sprintf("%.2f", team.KDRatio()),
		AllyPerms:    team.AllyPermissions,
		CreatedAtMs:  team.CreatedAt().UnixMilli(),
	}
}
