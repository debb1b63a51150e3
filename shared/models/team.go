// shared/models/team.go
package models

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

const (
	// InviteTTL is how long a pending player invitation or ally invite stays
	// valid. Expiry is evaluated lazily on read; nothing sweeps the tables.
	InviteTTL = 300 * time.Second

	// DefaultMaxMembers is the member capacity a freshly created team gets.
	DefaultMaxMembers = 10

	// DefaultDescription is assigned to newly created teams.
	DefaultDescription = "A new team"

	// DefaultColor is the chat color name assigned to newly created teams.
	DefaultColor = "WHITE"
)

// AllyPermissions holds the team-wide flags governing what allied players may
// do inside this team's claims. They apply uniformly to every current ally;
// there is no per-ally override.
type AllyPermissions struct {
	BreakBlocks      bool `bson:"break_blocks" json:"canBreakBlocks"`
	PlaceBlocks      bool `bson:"place_blocks" json:"canPlaceBlocks"`
	UseContainers    bool `bson:"use_containers" json:"canUseContainers"`
	UseDoors         bool `bson:"use_doors" json:"canUseDoors"`
	InteractEntities bool `bson:"interact_entities" json:"canInteractEntities"`
	UseBuckets       bool `bson:"use_buckets" json:"canUseBuckets"`
	UseButtons       bool `bson:"use_buttons" json:"canUseButtons"`
}

// DefaultAllyPermissions returns the restrictive default set: allies may use
// doors and buttons, nothing else.
func DefaultAllyPermissions() AllyPermissions {
	return AllyPermissions{
		UseDoors:   true,
		UseButtons: true,
	}
}

// Team is the aggregate for a persistent player group: membership, roles,
// time-boxed invitations, the one-sided half of the alliance relation, settings
// and combat statistics.
//
// A Team is NOT safe for concurrent use on its own. Every instance is owned by
// a TeamRegistry, and all access goes through the registry's lock.
type Team struct {
	id   string
	name string

	DisplayName string
	Tag         string
	Color       string
	Description string

	FriendlyFire   bool
	AllowAlliances bool
	MaxMembers     int

	AllyPermissions AllyPermissions

	leader      string
	members     map[string]struct{}
	moderators  map[string]struct{}
	invitations map[string]time.Time

	allies      map[string]struct{}
	allyInvites map[string]time.Time

	totalKills  int
	totalDeaths int

	createdAt time.Time
}

// NewTeam creates a team with a freshly minted id, the founder as its sole
// member and leader, and default settings.
func NewTeam(name, leaderID string, now time.Time) *Team {
	t := &Team{
		id:              uuid.New().String(),
		name:            name,
		DisplayName:     name,
		Color:           DefaultColor,
		Description:     DefaultDescription,
		AllowAlliances:  true,
		MaxMembers:      DefaultMaxMembers,
		AllyPermissions: DefaultAllyPermissions(),
		leader:          leaderID,
		members:         map[string]struct{}{leaderID: {}},
		moderators:      make(map[string]struct{}),
		invitations:     make(map[string]time.Time),
		allies:          make(map[string]struct{}),
		allyInvites:     make(map[string]time.Time),
		createdAt:       now,
	}
	return t
}

// ID returns the immutable team id.
func (t *Team) ID() string { return t.id }

// Name returns the team's unique name.
func (t *Team) Name() string { return t.name }

// SetName changes the team's name. Uniqueness against other registered teams
// is the registry's job; the entity does not check it.
func (t *Team) SetName(name string) { t.name = name }

// CreatedAt returns the immutable creation timestamp.
func (t *Team) CreatedAt() time.Time { return t.createdAt }

// --- Membership ---

// Leader returns the player id of the current leader.
func (t *Team) Leader() string { return t.leader }

// SetLeader reassigns leadership. If the new leader is not currently a member
// it is silently added; callers are expected to have verified membership
// already. The previous leader keeps plain membership. A leader is never kept
// in the moderator set, so any explicit moderator entry for the new leader is
// dropped.
func (t *Team) SetLeader(playerID string) {
	t.leader = playerID
	t.members[playerID] = struct{}{}
	delete(t.moderators, playerID)
}

// Members returns the member ids in sorted order.
func (t *Team) Members() []string {
	out := make([]string, 0, len(t.members))
	for id := range t.members {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// MemberCount returns the current number of members.
func (t *Team) MemberCount() int { return len(t.members) }

// IsFull reports whether the team is at capacity.
func (t *Team) IsFull() bool { return len(t.members) >= t.MaxMembers }

// IsMember reports whether the player belongs to the team.
func (t *Team) IsMember(playerID string) bool {
	_, ok := t.members[playerID]
	return ok
}

// IsLeader reports whether the player is the team leader.
func (t *Team) IsLeader(playerID string) bool { return t.leader == playerID }

// AddMember adds a player, clearing any pending invitation for them. It fails
// when the team is at capacity. Adding an existing member is a no-op returning
// false.
func (t *Team) AddMember(playerID string) bool {
	if len(t.members) >= t.MaxMembers {
		return false
	}
	if _, ok := t.members[playerID]; ok {
		return false
	}
	delete(t.invitations, playerID)
	t.members[playerID] = struct{}{}
	return true
}

// RemoveMember removes a player from the team, demoting them from moderator
// if applicable. The leader cannot be removed this way; transfer leadership
// first.
func (t *Team) RemoveMember(playerID string) bool {
	if playerID == t.leader {
		return false
	}
	if _, ok := t.members[playerID]; !ok {
		return false
	}
	delete(t.moderators, playerID)
	delete(t.members, playerID)
	return true
}

// --- Roles ---

// IsModerator reports moderator-or-above capability: true for the leader and
// for any player in the explicit moderator set. The leader itself never
// appears in that set.
func (t *Team) IsModerator(playerID string) bool {
	if t.IsLeader(playerID) {
		return true
	}
	_, ok := t.moderators[playerID]
	return ok
}

// Moderators returns the explicit moderator set in sorted order. The leader is
// not included.
func (t *Team) Moderators() []string {
	out := make([]string, 0, len(t.moderators))
	for id := range t.moderators {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// AddModerator promotes a member to moderator. It fails for non-members, for
// the leader, and for players who already are moderators.
func (t *Team) AddModerator(playerID string) bool {
	if !t.IsMember(playerID) || t.IsLeader(playerID) {
		return false
	}
	if _, ok := t.moderators[playerID]; ok {
		return false
	}
	t.moderators[playerID] = struct{}{}
	return true
}

// RemoveModerator demotes a moderator. Returns false if the player was not in
// the moderator set; calling it repeatedly has no further effect.
func (t *Team) RemoveModerator(playerID string) bool {
	if _, ok := t.moderators[playerID]; !ok {
		return false
	}
	delete(t.moderators, playerID)
	return true
}

// --- Invitations ---

// AddInvitation records (or refreshes) a pending join invitation for the
// player, stamped at now.
func (t *Team) AddInvitation(playerID string, now time.Time) {
	t.invitations[playerID] = now
}

// HasInvitation reports whether the player holds a live invitation. An entry
// older than InviteTTL is evicted on the spot and reported as absent.
func (t *Team) HasInvitation(playerID string, now time.Time) bool {
	issued, ok := t.invitations[playerID]
	if !ok {
		return false
	}
	if now.Sub(issued) > InviteTTL {
		delete(t.invitations, playerID)
		return false
	}
	return true
}

// RemoveInvitation clears a pending invitation, typically on accept or
// decline.
func (t *Team) RemoveInvitation(playerID string) {
	delete(t.invitations, playerID)
}

// --- Alliance (one side of the mutual relation) ---
//
// The entity only tracks this team's half. True alliance state is the
// conjunction of both teams' ally sets; the AllianceService is the only caller
// allowed to mutate these, and always mutates both sides together.

// AddAlly records the other team as an ally and clears any pending ally
// invite from it.
func (t *Team) AddAlly(teamID string) bool {
	delete(t.allyInvites, teamID)
	if _, ok := t.allies[teamID]; ok {
		return false
	}
	t.allies[teamID] = struct{}{}
	return true
}

// RemoveAlly drops the other team from the ally set.
func (t *Team) RemoveAlly(teamID string) bool {
	if _, ok := t.allies[teamID]; !ok {
		return false
	}
	delete(t.allies, teamID)
	return true
}

// IsAlly reports whether this side currently considers the team an ally.
func (t *Team) IsAlly(teamID string) bool {
	_, ok := t.allies[teamID]
	return ok
}

// Allies returns the allied team ids in sorted order.
func (t *Team) Allies() []string {
	out := make([]string, 0, len(t.allies))
	for id := range t.allies {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// AddAllyInvite records a pending alliance proposal involving the other team,
// stamped at now.
func (t *Team) AddAllyInvite(teamID string, now time.Time) {
	t.allyInvites[teamID] = now
}

// HasAllyInvite reports whether a live ally invite involving the team exists,
// evicting it when older than InviteTTL.
func (t *Team) HasAllyInvite(teamID string, now time.Time) bool {
	issued, ok := t.allyInvites[teamID]
	if !ok {
		return false
	}
	if now.Sub(issued) > InviteTTL {
		delete(t.allyInvites, teamID)
		return false
	}
	return true
}

// RemoveAllyInvite clears a pending ally invite.
func (t *Team) RemoveAllyInvite(teamID string) {
	delete(t.allyInvites, teamID)
}

// --- Statistics ---

// AddKill increments the team kill counter. There is no decrement.
func (t *Team) AddKill() { t.totalKills++ }

// AddDeath increments the team death counter. There is no decrement.
func (t *Team) AddDeath() { t.totalDeaths++ }

// TotalKills returns the lifetime kill count.
func (t *Team) TotalKills() int { return t.totalKills }

// TotalDeaths returns the lifetime death count.
func (t *Team) TotalDeaths() int { return t.totalDeaths }

// KDRatio returns kills/deaths. With zero deaths the ratio is defined as the
// kill count itself, so a fresh 0/0 team reports 0.
func (t *Team) KDRatio() float64 {
	if t.totalDeaths == 0 {
		return float64(t.totalKills)
	}
	return float64(t.totalKills) / float64(t.totalDeaths)
}

// Clone returns a deep copy of the team. The auto-saver snapshots the registry
// with this so serialization can happen outside the registry lock.
func (t *Team) Clone() *Team {
	c := &Team{
		id:              t.id,
		name:            t.name,
		DisplayName:     t.DisplayName,
		Tag:             t.Tag,
		Color:           t.Color,
		Description:     t.Description,
		FriendlyFire:    t.FriendlyFire,
		AllowAlliances:  t.AllowAlliances,
		MaxMembers:      t.MaxMembers,
		AllyPermissions: t.AllyPermissions,
		leader:          t.leader,
		members:         make(map[string]struct{}, len(t.members)),
		moderators:      make(map[string]struct{}, len(t.moderators)),
		invitations:     make(map[string]time.Time, len(t.invitations)),
		allies:          make(map[string]struct{}, len(t.allies)),
		allyInvites:     make(map[string]time.Time, len(t.allyInvites)),
		totalKills:      t.totalKills,
		totalDeaths:     t.totalDeaths,
		createdAt:       t.createdAt,
	}
	for id := range t.members {
		c.members[id] = struct{}{}
	}
	for id := range t.moderators {
		c.moderators[id] = struct{}{}
	}
	for id, ts := range t.invitations {
		c.invitations[id] = ts
	}
	for id := range t.allies {
		c.allies[id] = struct{}{}
	}
	for id, ts := range t.allyInvites {
		c.allyInvites[id] = ts
	}
	return c
}
