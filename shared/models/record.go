// shared/models/record.go
package models

import (
	"fmt"
	"time"
)

// TeamRecord is the flat, durable representation of a Team. One document per
// team, keyed by the team id. The invitation and ally-invite tables are
// deliberately absent: they are ephemeral, and a restart invalidating pending
// invites is acceptable given the 5-minute TTL.
type TeamRecord struct {
	ID              string          `bson:"_id" json:"id"`
	Name            string          `bson:"name" json:"name"`
	DisplayName     string          `bson:"display_name" json:"displayName"`
	Tag             string          `bson:"tag,omitempty" json:"tag,omitempty"`
	Color           string          `bson:"color" json:"color"`
	Description     string          `bson:"description" json:"description"`
	Leader          string          `bson:"leader" json:"leader"`
	Members         []string        `bson:"members" json:"members"`
	Moderators      []string        `bson:"moderators" json:"moderators"`
	Allies          []string        `bson:"allies" json:"allies"`
	AllyPermissions AllyPermissions `bson:"ally_permissions" json:"allyPermissions"`
	FriendlyFire    bool            `bson:"friendly_fire" json:"friendlyFire"`
	AllowAlliances  bool            `bson:"allow_alliances" json:"allowAlliances"`
	MaxMembers      int             `bson:"max_members" json:"maxMembers"`
	TotalKills      int             `bson:"total_kills" json:"totalKills"`
	TotalDeaths     int             `bson:"total_deaths" json:"totalDeaths"`
	CreatedAt       time.Time       `bson:"created_at" json:"createdAt"`
}

// Record flattens the team into its durable form. Member, moderator and ally
// lists come out sorted so the record is byte-stable for a given state.
func (t *Team) Record() TeamRecord {
	return TeamRecord{
		ID:              t.id,
		Name:            t.name,
		DisplayName:     t.DisplayName,
		Tag:             t.Tag,
		Color:           t.Color,
		Description:     t.Description,
		Leader:          t.leader,
		Members:         t.Members(),
		Moderators:      t.Moderators(),
		Allies:          t.Allies(),
		AllyPermissions: t.AllyPermissions,
		FriendlyFire:    t.FriendlyFire,
		AllowAlliances:  t.AllowAlliances,
		MaxMembers:      t.MaxMembers,
		TotalKills:      t.totalKills,
		TotalDeaths:     t.totalDeaths,
		CreatedAt:       t.createdAt,
	}
}

// RehydrateTeam reconstructs a Team from its durable record, preserving the
// stored id exactly instead of minting a fresh one. This is the only path that
// sets a team's identity from the outside.
//
// Rehydration repairs what it can: a leader missing from the member list is
// re-added, moderator entries for non-members or for the leader are dropped,
// and a non-positive capacity falls back to the default. Records missing
// identity fields are rejected so a corrupt document can be skipped without
// aborting a bulk load.
func RehydrateTeam(rec TeamRecord) (*Team, error) {
	if rec.ID == "" {
		return nil, fmt.Errorf("team record has no id")
	}
	if rec.Name == "" {
		return nil, fmt.Errorf("team record %s has no name", rec.ID)
	}
	if rec.Leader == "" {
		return nil, fmt.Errorf("team record %s has no leader", rec.ID)
	}

	t := &Team{
		id:              rec.ID,
		name:            rec.Name,
		DisplayName:     rec.DisplayName,
		Tag:             rec.Tag,
		Color:           rec.Color,
		Description:     rec.Description,
		FriendlyFire:    rec.FriendlyFire,
		AllowAlliances:  rec.AllowAlliances,
		MaxMembers:      rec.MaxMembers,
		AllyPermissions: rec.AllyPermissions,
		leader:          rec.Leader,
		members:         make(map[string]struct{}, len(rec.Members)),
		moderators:      make(map[string]struct{}),
		invitations:     make(map[string]time.Time),
		allies:          make(map[string]struct{}, len(rec.Allies)),
		allyInvites:     make(map[string]time.Time),
		totalKills:      rec.TotalKills,
		totalDeaths:     rec.TotalDeaths,
		createdAt:       rec.CreatedAt,
	}
	if t.DisplayName == "" {
		t.DisplayName = rec.Name
	}
	if t.Color == "" {
		t.Color = DefaultColor
	}
	if t.Description == "" {
		t.Description = DefaultDescription
	}
	if t.MaxMembers <= 0 {
		t.MaxMembers = DefaultMaxMembers
	}

	for _, m := range rec.Members {
		t.members[m] = struct{}{}
	}
	t.members[rec.Leader] = struct{}{}

	for _, m := range rec.Moderators {
		if _, ok := t.members[m]; !ok || m == rec.Leader {
			continue
		}
		t.moderators[m] = struct{}{}
	}

	for _, a := range rec.Allies {
		t.allies[a] = struct{}{}
	}

	if t.MaxMembers < len(t.members) {
		t.MaxMembers = len(t.members)
	}

	return t, nil
}
