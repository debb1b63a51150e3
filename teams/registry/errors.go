// teams/registry/errors.go
package registry

import "errors"

// Domain rejection reasons. Every expected failure of a registry or alliance
// operation resolves to exactly one of these; callers map them to transport
// status codes at the edge. Check with errors.Is.
var (
	ErrAlreadyInTeam     = errors.New("player is already in a team")
	ErrNotInTeam         = errors.New("player is not in a team")
	ErrNameTaken         = errors.New("a team with that name already exists")
	ErrTeamFull          = errors.New("team is at member capacity")
	ErrTeamNotFound      = errors.New("team not found")
	ErrPlayerNotFound    = errors.New("player not found in team")
	ErrInsufficientRole  = errors.New("insufficient role for this action")
	ErrTargetIsLeader    = errors.New("target player is the team leader")
	ErrInvitationExpired = errors.New("invitation missing or expired")
	ErrAlreadyModerator  = errors.New("player is already a moderator")
	ErrNotModerator      = errors.New("player is not a moderator")
	ErrSelfAlliance      = errors.New("a team cannot ally with itself")
	ErrAlreadyAllied     = errors.New("teams are already allied")
	ErrAlliancesDisabled = errors.New("team does not allow alliances")
	ErrNotAllied         = errors.New("teams are not allied")
	ErrInvalidName       = errors.New("team name must be 1-16 characters")
	ErrInvalidColor      = errors.New("unknown team color")
	ErrInvalidTag        = errors.New("team tag must be 8 characters or less")
	ErrInvalidCapacity   = errors.New("team capacity must be at least 1 and cover the current members")
)
