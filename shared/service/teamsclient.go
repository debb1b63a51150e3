// shared/service/teamsclient.go
package service

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/mcbzh/teams-service/shared/api"
	"github.com/mcbzh/teams-service/shared/models"
)

// TeamsServiceClient is a client for the Teams Service. Game servers use it
// to drive team commands and to answer combat-relation checks.
type TeamsServiceClient struct {
	apiClient *api.Client
}

// NewTeamsClient creates a new Teams Service client for the given base URL.
func NewTeamsClient(baseURL string) *TeamsServiceClient {
	return &TeamsServiceClient{
		apiClient: api.NewClient(baseURL, api.NewDefaultHTTPClient()),
	}
}

// --- Request/Response DTOs for Teams Service Communication ---
// These mirror the DTOs defined in teams/api/handler.go.

type CreateTeamRequest struct {
	Name       string `json:"name"`
	PlayerUUID string `json:"playerUuid"`
}

type PlayerActionRequest struct {
	PlayerUUID string `json:"playerUuid"`
}

type JoinTeamRequest struct {
	PlayerUUID string `json:"playerUuid"`
	TeamName   string `json:"teamName"`
}

type TargetActionRequest struct {
	ActorUUID  string `json:"actorUuid"`
	TargetUUID string `json:"targetUuid"`
}

type TeamNameActionRequest struct {
	ActorUUID string `json:"actorUuid"`
	TeamName  string `json:"teamName"`
}

type RecordDeathRequest struct {
	VictimUUID string `json:"victimUuid"`
	KillerUUID string `json:"killerUuid,omitempty"`
}

type LeaveTeamResponse struct {
	TeamDeleted bool   `json:"teamDeleted"`
	NewLeader   string `json:"newLeader,omitempty"`
}

type RelationResponse struct {
	Result bool `json:"result"`
}

// --- Client Methods for Teams Service API Endpoints ---

// CreateTeam founds a new team with the player as its leader.
// Calls POST /teams. Returns api.ErrConflict when the name is taken or the
// player already has a team.
func (c *TeamsServiceClient) CreateTeam(ctx context.Context, name, playerUUID string) (*models.TeamRecord, error) {
	if _, err := uuid.Parse(playerUUID); err != nil {
		return nil, fmt.Errorf("invalid player UUID format: %w", err)
	}

	record := &models.TeamRecord{}
	err := c.apiClient.Post(ctx, "/teams", CreateTeamRequest{Name: name, PlayerUUID: playerUUID}, record)
	if err != nil {
		if apiErr, ok := err.(*api.HTTPError); ok && apiErr.StatusCode == http.StatusConflict {
			return nil, fmt.Errorf("%w: %s", api.ErrConflict, apiErr.Message)
		}
		return nil, fmt.Errorf("failed to create team %q in Teams Service: %w", name, err)
	}
	return record, nil
}

// GetTeam fetches the display projection of the named team.
// Calls GET /teams/{name}. Returns api.ErrNotFound when no such team exists.
func (c *TeamsServiceClient) GetTeam(ctx context.Context, name string, result interface{}) error {
	err := c.apiClient.Get(ctx, fmt.Sprintf("/teams/%s", url.PathEscape(name)), result)
	if err != nil {
		if apiErr, ok := err.(*api.HTTPError); ok && apiErr.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: team %s", api.ErrNotFound, name)
		}
		return fmt.Errorf("failed to get team %q from Teams Service: %w", name, err)
	}
	return nil
}

// GetPlayerTeam fetches the player's team projection.
// Calls GET /players/{uuid}/team. Returns api.ErrNotFound when the player is
// teamless.
func (c *TeamsServiceClient) GetPlayerTeam(ctx context.Context, playerUUID string, result interface{}) error {
	parsed, err := uuid.Parse(playerUUID)
	if err != nil {
		return fmt.Errorf("invalid player UUID format: %w", err)
	}

	err = c.apiClient.Get(ctx, fmt.Sprintf("/players/%s/team", parsed.String()), result)
	if err != nil {
		if apiErr, ok := err.(*api.HTTPError); ok && apiErr.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: player %s has no team", api.ErrNotFound, playerUUID)
		}
		return fmt.Errorf("failed to get team of player %s from Teams Service: %w", playerUUID, err)
	}
	return nil
}

// InvitePlayer has the actor invite the target onto their team.
// Calls POST /teams/invites.
func (c *TeamsServiceClient) InvitePlayer(ctx context.Context, actorUUID, targetUUID string) error {
	err := c.apiClient.Post(ctx, "/teams/invites", TargetActionRequest{ActorUUID: actorUUID, TargetUUID: targetUUID}, nil)
	if err != nil {
		return fmt.Errorf("failed to send team invitation: %w", err)
	}
	return nil
}

// JoinTeam accepts a pending invitation to the named team.
// Calls POST /teams/join.
func (c *TeamsServiceClient) JoinTeam(ctx context.Context, playerUUID, teamName string) (*models.TeamRecord, error) {
	record := &models.TeamRecord{}
	err := c.apiClient.Post(ctx, "/teams/join", JoinTeamRequest{PlayerUUID: playerUUID, TeamName: teamName}, record)
	if err != nil {
		return nil, fmt.Errorf("failed to join team %q: %w", teamName, err)
	}
	return record, nil
}

// LeaveTeam removes the player from their current team.
// Calls POST /teams/leave. The response reports whether the team was deleted
// and who, if anyone, became the new leader.
func (c *TeamsServiceClient) LeaveTeam(ctx context.Context, playerUUID string) (*LeaveTeamResponse, error) {
	resp := &LeaveTeamResponse{}
	err := c.apiClient.Post(ctx, "/teams/leave", PlayerActionRequest{PlayerUUID: playerUUID}, resp)
	if err != nil {
		return nil, fmt.Errorf("failed to leave team: %w", err)
	}
	return resp, nil
}

// KickPlayer removes the target from the actor's team.
// Calls POST /teams/kick.
func (c *TeamsServiceClient) KickPlayer(ctx context.Context, actorUUID, targetUUID string) error {
	err := c.apiClient.Post(ctx, "/teams/kick", TargetActionRequest{ActorUUID: actorUUID, TargetUUID: targetUUID}, nil)
	if err != nil {
		return fmt.Errorf("failed to kick player: %w", err)
	}
	return nil
}

// ProposeAlliance proposes an alliance with the named team.
// Calls POST /alliances/propose.
func (c *TeamsServiceClient) ProposeAlliance(ctx context.Context, actorUUID, teamName string) error {
	err := c.apiClient.Post(ctx, "/alliances/propose", TeamNameActionRequest{ActorUUID: actorUUID, TeamName: teamName}, nil)
	if err != nil {
		return fmt.Errorf("failed to propose alliance with %q: %w", teamName, err)
	}
	return nil
}

// AcceptAlliance accepts the alliance proposed by the named team.
// Calls POST /alliances/accept.
func (c *TeamsServiceClient) AcceptAlliance(ctx context.Context, actorUUID, teamName string) error {
	err := c.apiClient.Post(ctx, "/alliances/accept", TeamNameActionRequest{ActorUUID: actorUUID, TeamName: teamName}, nil)
	if err != nil {
		return fmt.Errorf("failed to accept alliance with %q: %w", teamName, err)
	}
	return nil
}

// BreakAlliance dissolves the alliance with the named team.
// Calls POST /alliances/break.
func (c *TeamsServiceClient) BreakAlliance(ctx context.Context, actorUUID, teamName string) error {
	err := c.apiClient.Post(ctx, "/alliances/break", TeamNameActionRequest{ActorUUID: actorUUID, TeamName: teamName}, nil)
	if err != nil {
		return fmt.Errorf("failed to break alliance with %q: %w", teamName, err)
	}
	return nil
}

// RecordDeath reports a player death, optionally crediting the killer's team.
// Calls POST /combat/deaths.
func (c *TeamsServiceClient) RecordDeath(ctx context.Context, victimUUID, killerUUID string) error {
	err := c.apiClient.Post(ctx, "/combat/deaths", RecordDeathRequest{VictimUUID: victimUUID, KillerUUID: killerUUID}, nil)
	if err != nil {
		return fmt.Errorf("failed to record death: %w", err)
	}
	return nil
}

// AreTeammates reports whether both players are on the same team.
// Calls GET /relations/teammates. Game servers hit this on every hit event,
// so callers should keep a short local cache.
func (c *TeamsServiceClient) AreTeammates(ctx context.Context, a, b string) (bool, error) {
	resp := &RelationResponse{}
	err := c.apiClient.Get(ctx, fmt.Sprintf("/relations/teammates?a=%s&b=%s", url.QueryEscape(a), url.QueryEscape(b)), resp)
	if err != nil {
		return false, fmt.Errorf("failed to check teammate relation: %w", err)
	}
	return resp.Result, nil
}

// AreAllies reports whether two players are teammates or on allied teams.
// Calls GET /relations/allies.
func (c *TeamsServiceClient) AreAllies(ctx context.Context, a, b string) (bool, error) {
	resp := &RelationResponse{}
	err := c.apiClient.Get(ctx, fmt.Sprintf("/relations/allies?a=%s&b=%s", url.QueryEscape(a), url.QueryEscape(b)), resp)
	if err != nil {
		return false, fmt.Errorf("failed to check ally relation: %w", err)
	}
	return resp.Result, nil
}
