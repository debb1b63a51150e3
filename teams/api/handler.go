// teams/api/handler.go
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/mcbzh/teams-service/shared/api"
	"github.com/mcbzh/teams-service/shared/models"
	"github.com/mcbzh/teams-service/teams/registry"
	"github.com/mcbzh/teams-service/teams/service"
	"github.com/rs/zerolog/log"
)

// TeamAPIHandlers holds the service that handles business logic.
type TeamAPIHandlers struct {
	TeamService *service.TeamService
}

// NewTeamAPIHandlers is the constructor for the API handlers.
func NewTeamAPIHandlers(ts *service.TeamService) *TeamAPIHandlers {
	return &TeamAPIHandlers{TeamService: ts}
}

// --- Request/Response DTOs ---

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

type UpdateColorRequest struct {
	ActorUUID string `json:"actorUuid"`
	Color     string `json:"color"`
}

type UpdateNameRequest struct {
	ActorUUID string `json:"actorUuid"`
	Name      string `json:"name"`
}

type PutStashSlotRequest struct {
	Payload string `json:"payload"`
}

type UpdateTagRequest struct {
	ActorUUID string `json:"actorUuid"`
	Tag       string `json:"tag"`
}

type UpdateDescriptionRequest struct {
	ActorUUID   string `json:"actorUuid"`
	Description string `json:"description"`
}

type UpdateMaxMembersRequest struct {
	ActorUUID  string `json:"actorUuid"`
	MaxMembers int    `json:"maxMembers"`
}

type UpdateToggleRequest struct {
	ActorUUID string `json:"actorUuid"`
	Enabled   bool   `json:"enabled"`
}

type UpdateAllyPermissionsRequest struct {
	ActorUUID   string                 `json:"actorUuid"`
	Permissions models.AllyPermissions `json:"permissions"`
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

// writeTeamError maps the registry's sentinel errors to HTTP status codes.
func writeTeamError(w http.ResponseWriter, err error) {
	switch {
	case isAny(err, registry.ErrTeamNotFound, registry.ErrPlayerNotFound, registry.ErrNotInTeam):
		api.WriteError(w, http.StatusNotFound, err.Error())
	case isAny(err, registry.ErrNameTaken, registry.ErrAlreadyInTeam, registry.ErrTeamFull,
		registry.ErrAlreadyModerator, registry.ErrNotModerator,
		registry.ErrAlreadyAllied, registry.ErrNotAllied):
		api.WriteError(w, http.StatusConflict, err.Error())
	case isAny(err, registry.ErrInsufficientRole, registry.ErrTargetIsLeader, registry.ErrAlliancesDisabled):
		api.WriteError(w, http.StatusForbidden, err.Error())
	case isAny(err, registry.ErrInvitationExpired):
		api.WriteError(w, http.StatusGone, err.Error())
	case isAny(err, registry.ErrInvalidName, registry.ErrInvalidColor, registry.ErrInvalidTag,
		registry.ErrInvalidCapacity, registry.ErrSelfAlliance):
		api.WriteError(w, http.StatusBadRequest, err.Error())
	default:
		log.Error().Err(err).Msg("unhandled team service error")
		api.WriteError(w, http.StatusInternalServerError, "internal error")
	}
}

// isAny reports whether err matches any of the given sentinels.
func isAny(err error, sentinels ...error) bool {
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return true
		}
	}
	return false
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		api.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// --- Team lifecycle ---

// CreateTeamHandler handles requests to found a new team.
// POST /teams
func (tah *TeamAPIHandlers) CreateTeamHandler(w http.ResponseWriter, r *http.Request) {
	var req CreateTeamRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Name == "" || req.PlayerUUID == "" {
		api.WriteError(w, http.StatusBadRequest, "Team name and player UUID are required")
		return
	}

	team, err := tah.TeamService.CreateTeam(r.Context(), req.Name, req.PlayerUUID)
	if err != nil {
		writeTeamError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusCreated, team.Record())
}

// DisbandTeamHandler handles requests by a leader to delete their team.
// POST /teams/disband
func (tah *TeamAPIHandlers) DisbandTeamHandler(w http.ResponseWriter, r *http.Request) {
	var req PlayerActionRequest
	if !decode(w, r, &req) {
		return
	}
	if req.PlayerUUID == "" {
		api.WriteError(w, http.StatusBadRequest, "Player UUID is required")
		return
	}

	if err := tah.TeamService.DisbandTeam(r.Context(), req.PlayerUUID); err != nil {
		writeTeamError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]string{"message": "Team disbanded"})
}

// ListTeamsHandler returns every registered team.
// GET /teams
func (tah *TeamAPIHandlers) ListTeamsHandler(w http.ResponseWriter, r *http.Request) {
	teams := tah.TeamService.AllTeams()
	records := make([]models.TeamRecord, 0, len(teams))
	for _, t := range teams {
		records = append(records, t.Record())
	}
	api.WriteJSON(w, http.StatusOK, records)
}

// GetTeamHandler returns the display projection of the named team.
// GET /teams/{name}
func (tah *TeamAPIHandlers) GetTeamHandler(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	info, err := tah.TeamService.TeamInfoByName(r.Context(), name)
	if err != nil {
		writeTeamError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, info)
}

// GetPlayerTeamHandler returns the display projection of the player's team.
// GET /players/{uuid}/team
func (tah *TeamAPIHandlers) GetPlayerTeamHandler(w http.ResponseWriter, r *http.Request) {
	uuid := mux.Vars(r)["uuid"]
	info, err := tah.TeamService.TeamInfoForPlayer(r.Context(), uuid)
	if err != nil {
		writeTeamError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, info)
}

// --- Membership ---

// InvitePlayerHandler issues a join invitation.
// POST /teams/invites
func (tah *TeamAPIHandlers) InvitePlayerHandler(w http.ResponseWriter, r *http.Request) {
	var req TargetActionRequest
	if !decode(w, r, &req) {
		return
	}
	if req.ActorUUID == "" || req.TargetUUID == "" {
		api.WriteError(w, http.StatusBadRequest, "Actor and target UUIDs are required")
		return
	}

	if _, err := tah.TeamService.InvitePlayer(r.Context(), req.ActorUUID, req.TargetUUID); err != nil {
		writeTeamError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]string{"message": "Invitation sent"})
}

// JoinTeamHandler accepts a pending invitation.
// POST /teams/join
func (tah *TeamAPIHandlers) JoinTeamHandler(w http.ResponseWriter, r *http.Request) {
	var req JoinTeamRequest
	if !decode(w, r, &req) {
		return
	}
	if req.PlayerUUID == "" || req.TeamName == "" {
		api.WriteError(w, http.StatusBadRequest, "Player UUID and team name are required")
		return
	}

	team, err := tah.TeamService.JoinTeam(r.Context(), req.PlayerUUID, req.TeamName)
	if err != nil {
		writeTeamError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, team.Record())
}

// LeaveTeamHandler removes the player from their team.
// POST /teams/leave
func (tah *TeamAPIHandlers) LeaveTeamHandler(w http.ResponseWriter, r *http.Request) {
	var req PlayerActionRequest
	if !decode(w, r, &req) {
		return
	}
	if req.PlayerUUID == "" {
		api.WriteError(w, http.StatusBadRequest, "Player UUID is required")
		return
	}

	res, err := tah.TeamService.LeaveTeam(r.Context(), req.PlayerUUID)
	if err != nil {
		writeTeamError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, LeaveTeamResponse{TeamDeleted: res.TeamDeleted, NewLeader: res.NewLeader})
}

// KickPlayerHandler removes another member from the actor's team.
// POST /teams/kick
func (tah *TeamAPIHandlers) KickPlayerHandler(w http.ResponseWriter, r *http.Request) {
	var req TargetActionRequest
	if !decode(w, r, &req) {
		return
	}
	if req.ActorUUID == "" || req.TargetUUID == "" {
		api.WriteError(w, http.StatusBadRequest, "Actor and target UUIDs are required")
		return
	}

	if err := tah.TeamService.KickPlayer(r.Context(), req.ActorUUID, req.TargetUUID); err != nil {
		writeTeamError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]string{"message": "Player kicked"})
}

// --- Roles ---

// PromotePlayerHandler grants the target the moderator role.
// POST /teams/promote
func (tah *TeamAPIHandlers) PromotePlayerHandler(w http.ResponseWriter, r *http.Request) {
	tah.roleAction(w, r, tah.TeamService.PromotePlayer, "Player promoted")
}

// DemotePlayerHandler removes the target's moderator role.
// POST /teams/demote
func (tah *TeamAPIHandlers) DemotePlayerHandler(w http.ResponseWriter, r *http.Request) {
	tah.roleAction(w, r, tah.TeamService.DemotePlayer, "Player demoted")
}

// TransferLeadershipHandler hands the leader role to another member.
// POST /teams/transfer
func (tah *TeamAPIHandlers) TransferLeadershipHandler(w http.ResponseWriter, r *http.Request) {
	tah.roleAction(w, r, tah.TeamService.TransferLeadership, "Leadership transferred")
}

func (tah *TeamAPIHandlers) roleAction(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, actorID, targetID string) error, msg string) {
	var req TargetActionRequest
	if !decode(w, r, &req) {
		return
	}
	if req.ActorUUID == "" || req.TargetUUID == "" {
		api.WriteError(w, http.StatusBadRequest, "Actor and target UUIDs are required")
		return
	}

	if err := fn(r.Context(), req.ActorUUID, req.TargetUUID); err != nil {
		writeTeamError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]string{"message": msg})
}

// --- Settings ---

// UpdateColorHandler sets the team's chat color.
// PUT /teams/settings/color
func (tah *TeamAPIHandlers) UpdateColorHandler(w http.ResponseWriter, r *http.Request) {
	var req UpdateColorRequest
	if !decode(w, r, &req) {
		return
	}
	if err := tah.TeamService.SetColor(r.Context(), req.ActorUUID, req.Color); err != nil {
		writeTeamError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]string{"message": "Team color updated"})
}

// UpdateTagHandler sets the team's short tag.
// PUT /teams/settings/tag
func (tah *TeamAPIHandlers) UpdateTagHandler(w http.ResponseWriter, r *http.Request) {
	var req UpdateTagRequest
	if !decode(w, r, &req) {
		return
	}
	if err := tah.TeamService.SetTag(r.Context(), req.ActorUUID, req.Tag); err != nil {
		writeTeamError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]string{"message": "Team tag updated"})
}

// UpdateDescriptionHandler sets the team's description.
// PUT /teams/settings/description
func (tah *TeamAPIHandlers) UpdateDescriptionHandler(w http.ResponseWriter, r *http.Request) {
	var req UpdateDescriptionRequest
	if !decode(w, r, &req) {
		return
	}
	if err := tah.TeamService.SetDescription(r.Context(), req.ActorUUID, req.Description); err != nil {
		writeTeamError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]string{"message": "Team description updated"})
}

// UpdateMaxMembersHandler changes the team's member capacity.
// PUT /teams/settings/max-members
func (tah *TeamAPIHandlers) UpdateMaxMembersHandler(w http.ResponseWriter, r *http.Request) {
	var req UpdateMaxMembersRequest
	if !decode(w, r, &req) {
		return
	}
	if err := tah.TeamService.SetMaxMembers(r.Context(), req.ActorUUID, req.MaxMembers); err != nil {
		writeTeamError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]string{"message": "Team capacity updated"})
}

// UpdateFriendlyFireHandler toggles friendly fire.
// PUT /teams/settings/friendly-fire
func (tah *TeamAPIHandlers) UpdateFriendlyFireHandler(w http.ResponseWriter, r *http.Request) {
	var req UpdateToggleRequest
	if !decode(w, r, &req) {
		return
	}
	if err := tah.TeamService.SetFriendlyFire(r.Context(), req.ActorUUID, req.Enabled); err != nil {
		writeTeamError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]string{"message": "Friendly fire updated"})
}

// UpdateAllowAlliancesHandler toggles whether the team accepts alliances.
// PUT /teams/settings/allow-alliances
func (tah *TeamAPIHandlers) UpdateAllowAlliancesHandler(w http.ResponseWriter, r *http.Request) {
	var req UpdateToggleRequest
	if !decode(w, r, &req) {
		return
	}
	if err := tah.TeamService.SetAllowAlliances(r.Context(), req.ActorUUID, req.Enabled); err != nil {
		writeTeamError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]string{"message": "Alliance availability updated"})
}

// UpdateNameHandler renames the team.
// PUT /teams/settings/name
func (tah *TeamAPIHandlers) UpdateNameHandler(w http.ResponseWriter, r *http.Request) {
	var req UpdateNameRequest
	if !decode(w, r, &req) {
		return
	}
	if err := tah.TeamService.RenameTeam(r.Context(), req.ActorUUID, req.Name); err != nil {
		writeTeamError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]string{"message": "Team renamed"})
}

// DeleteTeamHandler removes a team by id. Admin tooling only; role checks are
// the caller's problem.
// DELETE /teams/{id}
func (tah *TeamAPIHandlers) DeleteTeamHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !tah.TeamService.DeleteTeam(r.Context(), id) {
		api.WriteError(w, http.StatusNotFound, "Team not found")
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]string{"message": "Team deleted"})
}

// --- Stash ---

// PutStashSlotHandler stores an opaque payload in a team stash slot.
// PUT /teams/{id}/stash/{slot}
func (tah *TeamAPIHandlers) PutStashSlotHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	slot, err := strconv.Atoi(vars["slot"])
	if err != nil || slot < 0 {
		api.WriteError(w, http.StatusBadRequest, "Slot must be a non-negative integer")
		return
	}
	var req PutStashSlotRequest
	if !decode(w, r, &req) {
		return
	}
	if err := tah.TeamService.PutStashSlot(r.Context(), vars["id"], slot, req.Payload); err != nil {
		writeTeamError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]string{"message": "Stash slot updated"})
}

// GetStashHandler returns the full slot→payload map of a team stash.
// GET /teams/{id}/stash
func (tah *TeamAPIHandlers) GetStashHandler(w http.ResponseWriter, r *http.Request) {
	stash, err := tah.TeamService.GetStash(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeTeamError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, stash)
}

// --- Alliances ---

// ProposeAllianceHandler records an alliance proposal toward the named team.
// POST /alliances/propose
func (tah *TeamAPIHandlers) ProposeAllianceHandler(w http.ResponseWriter, r *http.Request) {
	var req TeamNameActionRequest
	if !decode(w, r, &req) {
		return
	}
	if err := tah.TeamService.ProposeAlliance(r.Context(), req.ActorUUID, req.TeamName); err != nil {
		writeTeamError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]string{"message": "Alliance proposed"})
}

// AcceptAllianceHandler forms the alliance proposed by the named team.
// POST /alliances/accept
func (tah *TeamAPIHandlers) AcceptAllianceHandler(w http.ResponseWriter, r *http.Request) {
	var req TeamNameActionRequest
	if !decode(w, r, &req) {
		return
	}
	if err := tah.TeamService.AcceptAlliance(r.Context(), req.ActorUUID, req.TeamName); err != nil {
		writeTeamError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]string{"message": "Alliance formed"})
}

// BreakAllianceHandler dissolves an existing alliance.
// POST /alliances/break
func (tah *TeamAPIHandlers) BreakAllianceHandler(w http.ResponseWriter, r *http.Request) {
	var req TeamNameActionRequest
	if !decode(w, r, &req) {
		return
	}
	if err := tah.TeamService.BreakAlliance(r.Context(), req.ActorUUID, req.TeamName); err != nil {
		writeTeamError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]string{"message": "Alliance dissolved"})
}

// ListAlliesHandler returns every team allied with the player's team.
// GET /players/{uuid}/allies
func (tah *TeamAPIHandlers) ListAlliesHandler(w http.ResponseWriter, r *http.Request) {
	uuid := mux.Vars(r)["uuid"]
	allies, err := tah.TeamService.ListAllies(uuid)
	if err != nil {
		writeTeamError(w, err)
		return
	}
	records := make([]models.TeamRecord, 0, len(allies))
	for _, t := range allies {
		records = append(records, t.Record())
	}
	api.WriteJSON(w, http.StatusOK, records)
}

// UpdateAllyPermissionsHandler replaces the team-wide ally permission flags.
// PUT /alliances/permissions
func (tah *TeamAPIHandlers) UpdateAllyPermissionsHandler(w http.ResponseWriter, r *http.Request) {
	var req UpdateAllyPermissionsRequest
	if !decode(w, r, &req) {
		return
	}
	if err := tah.TeamService.SetAllyPermissions(r.Context(), req.ActorUUID, req.Permissions); err != nil {
		writeTeamError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]string{"message": "Ally permissions updated"})
}

// --- Combat ---

// RecordDeathHandler records a death and, when a killer is given, a kill.
// POST /combat/deaths
func (tah *TeamAPIHandlers) RecordDeathHandler(w http.ResponseWriter, r *http.Request) {
	var req RecordDeathRequest
	if !decode(w, r, &req) {
		return
	}
	if req.VictimUUID == "" {
		api.WriteError(w, http.StatusBadRequest, "Victim UUID is required")
		return
	}
	tah.TeamService.RecordDeath(r.Context(), req.VictimUUID, req.KillerUUID)
	api.WriteJSON(w, http.StatusOK, map[string]string{"message": "Death recorded"})
}

// TeammatesHandler reports whether two players are on the same team.
// GET /relations/teammates?a={uuid}&b={uuid}
func (tah *TeamAPIHandlers) TeammatesHandler(w http.ResponseWriter, r *http.Request) {
	a, b := r.URL.Query().Get("a"), r.URL.Query().Get("b")
	if a == "" || b == "" {
		api.WriteError(w, http.StatusBadRequest, "Both player UUIDs are required")
		return
	}
	api.WriteJSON(w, http.StatusOK, RelationResponse{Result: tah.TeamService.AreTeammates(a, b)})
}

// AlliesHandler reports whether two players are teammates or allied.
// GET /relations/allies?a={uuid}&b={uuid}
func (tah *TeamAPIHandlers) AlliesHandler(w http.ResponseWriter, r *http.Request) {
	a, b := r.URL.Query().Get("a"), r.URL.Query().Get("b")
	if a == "" || b == "" {
		api.WriteError(w, http.StatusBadRequest, "Both player UUIDs are required")
		return
	}
	api.WriteJSON(w, http.StatusOK, RelationResponse{Result: tah.TeamService.AreAllies(a, b)})
}

// --- Leaderboards ---

// TopKillsHandler returns the top teams by total kills.
// GET /teams/top/kills?limit=10
func (tah *TeamAPIHandlers) TopKillsHandler(w http.ResponseWriter, r *http.Request) {
	tah.writeTop(w, r, tah.TeamService.TopTeamsByKills)
}

// TopKDHandler returns the top teams by kill/death ratio.
// GET /teams/top/kd?limit=10
func (tah *TeamAPIHandlers) TopKDHandler(w http.ResponseWriter, r *http.Request) {
	tah.writeTop(w, r, tah.TeamService.TopTeamsByKD)
}

func (tah *TeamAPIHandlers) writeTop(w http.ResponseWriter, r *http.Request, top func(int) []*models.Team) {
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			api.WriteError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	teams := top(limit)
	records := make([]models.TeamRecord, 0, len(teams))
	for _, t := range teams {
		records = append(records, t.Record())
	}
	api.WriteJSON(w, http.StatusOK, records)
}

// RegisterRoutes registers all API endpoints for the Teams Service.
// This method is called from main.go to set up the HTTP routes.
func (tah *TeamAPIHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/teams", tah.CreateTeamHandler).Methods("POST")
	router.HandleFunc("/teams", tah.ListTeamsHandler).Methods("GET")
	router.HandleFunc("/teams/disband", tah.DisbandTeamHandler).Methods("POST")
	router.HandleFunc("/teams/invites", tah.InvitePlayerHandler).Methods("POST")
	router.HandleFunc("/teams/join", tah.JoinTeamHandler).Methods("POST")
	router.HandleFunc("/teams/leave", tah.LeaveTeamHandler).Methods("POST")
	router.HandleFunc("/teams/kick", tah.KickPlayerHandler).Methods("POST")
	router.HandleFunc("/teams/promote", tah.PromotePlayerHandler).Methods("POST")
	router.HandleFunc("/teams/demote", tah.DemotePlayerHandler).Methods("POST")
	router.HandleFunc("/teams/transfer", tah.TransferLeadershipHandler).Methods("POST")
	router.HandleFunc("/teams/top/kills", tah.TopKillsHandler).Methods("GET")
	router.HandleFunc("/teams/top/kd", tah.TopKDHandler).Methods("GET")
	router.HandleFunc("/teams/settings/name", tah.UpdateNameHandler).Methods("PUT")
	router.HandleFunc("/teams/settings/color", tah.UpdateColorHandler).Methods("PUT")
	router.HandleFunc("/teams/settings/tag", tah.UpdateTagHandler).Methods("PUT")
	router.HandleFunc("/teams/settings/description", tah.UpdateDescriptionHandler).Methods("PUT")
	router.HandleFunc("/teams/settings/max-members", tah.UpdateMaxMembersHandler).Methods("PUT")
	router.HandleFunc("/teams/settings/friendly-fire", tah.UpdateFriendlyFireHandler).Methods("PUT")
	router.HandleFunc("/teams/settings/allow-alliances", tah.UpdateAllowAlliancesHandler).Methods("PUT")
	router.HandleFunc("/teams/{id}/stash", tah.GetStashHandler).Methods("GET")
	router.HandleFunc("/teams/{id}/stash/{slot}", tah.PutStashSlotHandler).Methods("PUT")
	router.HandleFunc("/teams/{id}", tah.DeleteTeamHandler).Methods("DELETE")
	router.HandleFunc("/teams/{name}", tah.GetTeamHandler).Methods("GET")

	router.HandleFunc("/players/{uuid}/team", tah.GetPlayerTeamHandler).Methods("GET")
	router.HandleFunc("/players/{uuid}/allies", tah.ListAlliesHandler).Methods("GET")

	router.HandleFunc("/alliances/propose", tah.ProposeAllianceHandler).Methods("POST")
	router.HandleFunc("/alliances/accept", tah.AcceptAllianceHandler).Methods("POST")
	router.HandleFunc("/alliances/break", tah.BreakAllianceHandler).Methods("POST")
	router.HandleFunc("/alliances/permissions", tah.UpdateAllyPermissionsHandler).Methods("PUT")

	router.HandleFunc("/combat/deaths", tah.RecordDeathHandler).Methods("POST")
	router.HandleFunc("/relations/teammates", tah.TeammatesHandler).Methods("GET")
	router.HandleFunc("/relations/allies", tah.AlliesHandler).Methods("GET")
}
