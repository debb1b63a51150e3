// teams/registry/registry_test.go
package registry

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcbzh/teams-service/shared/models"
)

func newTestRegistry(t *testing.T) (*TeamRegistry, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	return NewTeamRegistry(clock, nil), clock
}

// mustCreate builds a team with the given members, first one leading.
func mustCreate(t *testing.T, r *TeamRegistry, name string, members ...string) *models.Team {
	t.Helper()
	team, err := r.CreateTeam(name, members[0])
	if err != nil {
		t.Fatalf("CreateTeam(%s): %v", name, err)
	}
	for _, m := range members[1:] {
		if err := r.AddPlayerToTeam(m, team.ID()); err != nil {
			t.Fatalf("AddPlayerToTeam(%s): %v", m, err)
		}
	}
	return r.GetTeam(team.ID())
}

func TestCreateTeam(t *testing.T) {
	r, _ := newTestRegistry(t)

	team, err := r.CreateTeam("Red", "alice")
	if err != nil {
		t.Fatalf("CreateTeam: %v", err)
	}
	if team.Leader() != "alice" || team.MemberCount() != 1 {
		t.Errorf("founder should lead a one-member team, got leader=%q count=%d", team.Leader(), team.MemberCount())
	}
	if got := r.GetPlayerTeam("alice"); got == nil || got.ID() != team.ID() {
		t.Error("the player index should resolve the founder to the new team")
	}

	if _, err := r.CreateTeam("Blue", "alice"); !errors.Is(err, ErrAlreadyInTeam) {
		t.Errorf("second team for alice: err = %v, want ErrAlreadyInTeam", err)
	}
	if _, err := r.CreateTeam("red", "bob"); !errors.Is(err, ErrNameTaken) {
		t.Errorf("case-insensitive duplicate: err = %v, want ErrNameTaken", err)
	}
}

func TestCreateTeamRejectsBadNames(t *testing.T) {
	r, _ := newTestRegistry(t)

	for _, name := range []string{"", "   ", "ThisNameIsWayTooLong"} {
		if _, err := r.CreateTeam(name, "alice"); !errors.Is(err, ErrInvalidName) {
			t.Errorf("CreateTeam(%q): err = %v, want ErrInvalidName", name, err)
		}
	}
	if _, err := r.CreateTeam("  Red  ", "alice"); err != nil {
		t.Errorf("a trimmed name within the limit should be accepted: %v", err)
	}
	if r.GetTeamByName("Red") == nil {
		t.Error("the stored name should be the trimmed form")
	}
}

func TestTeamNameLengthCountsRunes(t *testing.T) {
	r, _ := newTestRegistry(t)

	// 16 runes but 32 bytes. The limit is on characters, not encoding size.
	name := strings.Repeat("é", 16)
	if _, err := r.CreateTeam(name, "alice"); err != nil {
		t.Fatalf("a 16-rune multibyte name should be accepted: %v", err)
	}
	if _, err := r.CreateTeam(strings.Repeat("é", 17), "bob"); !errors.Is(err, ErrInvalidName) {
		t.Errorf("a 17-rune name: err = %v, want ErrInvalidName", err)
	}
}

func TestGetTeamReturnsCopies(t *testing.T) {
	r, _ := newTestRegistry(t)
	team := mustCreate(t, r, "Red", "alice")

	copy1 := r.GetTeam(team.ID())
	copy1.DisplayName = "mutated"
	copy1.AddMember("intruder")

	copy2 := r.GetTeam(team.ID())
	if copy2.DisplayName == "mutated" || copy2.IsMember("intruder") {
		t.Error("mutating a returned team must not touch registry state")
	}
}

func TestInviteAndJoinFlow(t *testing.T) {
	r, clock := newTestRegistry(t)
	team := mustCreate(t, r, "Red", "alice")

	if _, err := r.InvitePlayer("alice", "bob"); err != nil {
		t.Fatalf("InvitePlayer: %v", err)
	}
	joined, err := r.JoinTeam("bob", "red") // name lookup is case-insensitive
	if err != nil {
		t.Fatalf("JoinTeam: %v", err)
	}
	if joined.ID() != team.ID() {
		t.Error("bob should have joined alice's team")
	}
	if !r.AreTeammates("alice", "bob") {
		t.Error("alice and bob should be teammates after the join")
	}

	// A second join without a fresh invitation must fail.
	if _, _, err := r.LeaveTeam(context.Background(), "bob"); err != nil {
		t.Fatalf("LeaveTeam: %v", err)
	}
	if _, err := r.JoinTeam("bob", "Red"); !errors.Is(err, ErrInvitationExpired) {
		t.Errorf("join without invitation: err = %v, want ErrInvitationExpired", err)
	}

	// And an expired one is no better.
	if _, err := r.InvitePlayer("alice", "bob"); err != nil {
		t.Fatalf("re-invite: %v", err)
	}
	clock.Advance(models.InviteTTL + time.Second)
	if _, err := r.JoinTeam("bob", "Red"); !errors.Is(err, ErrInvitationExpired) {
		t.Errorf("expired invitation: err = %v, want ErrInvitationExpired", err)
	}
}

func TestInvitePermissions(t *testing.T) {
	r, _ := newTestRegistry(t)
	mustCreate(t, r, "Red", "alice", "bob")
	mustCreate(t, r, "Blue", "zoe")

	if _, err := r.InvitePlayer("bob", "carol"); !errors.Is(err, ErrInsufficientRole) {
		t.Errorf("plain member inviting: err = %v, want ErrInsufficientRole", err)
	}
	if _, err := r.InvitePlayer("ghost", "carol"); !errors.Is(err, ErrNotInTeam) {
		t.Errorf("teamless inviter: err = %v, want ErrNotInTeam", err)
	}
	if _, err := r.InvitePlayer("alice", "zoe"); !errors.Is(err, ErrAlreadyInTeam) {
		t.Errorf("inviting a teamed player: err = %v, want ErrAlreadyInTeam", err)
	}

	if _, err := r.PromotePlayer("alice", "bob"); err != nil {
		t.Fatalf("PromotePlayer: %v", err)
	}
	if _, err := r.InvitePlayer("bob", "carol"); err != nil {
		t.Errorf("moderator inviting should succeed: %v", err)
	}
}

func TestInviteRespectsCapacity(t *testing.T) {
	r, _ := newTestRegistry(t)
	team := mustCreate(t, r, "Red", "alice")
	if _, err := r.UpdateSettings("alice", false, func(tm *models.Team) error {
		tm.MaxMembers = 1
		return nil
	}); err != nil {
		t.Fatalf("UpdateSettings: %v", err)
	}

	if _, err := r.InvitePlayer("alice", "bob"); !errors.Is(err, ErrTeamFull) {
		t.Errorf("inviting into a full team: err = %v, want ErrTeamFull", err)
	}
	_ = team
}

func TestLeaderSuccessionIsDeterministic(t *testing.T) {
	r, _ := newTestRegistry(t)
	mustCreate(t, r, "Red", "mallory", "zoe", "bob", "carol")

	_, res, err := r.LeaveTeam(context.Background(), "mallory")
	if err != nil {
		t.Fatalf("LeaveTeam: %v", err)
	}
	if res.TeamDeleted {
		t.Fatal("three members remain, the team must survive")
	}
	if res.NewLeader != "bob" {
		t.Errorf("new leader = %q, want bob (smallest remaining id)", res.NewLeader)
	}
	team := r.GetPlayerTeam("bob")
	if team == nil || !team.IsLeader("bob") {
		t.Error("the successor should actually lead the team")
	}
	if team.IsMember("mallory") {
		t.Error("the departed leader must be gone")
	}
}

func TestLastMemberLeavingDeletesTeam(t *testing.T) {
	r, _ := newTestRegistry(t)
	team := mustCreate(t, r, "Red", "alice")

	_, res, err := r.LeaveTeam(context.Background(), "alice")
	if err != nil {
		t.Fatalf("LeaveTeam: %v", err)
	}
	if !res.TeamDeleted {
		t.Error("the sole member leaving must delete the team")
	}
	if r.GetTeam(team.ID()) != nil {
		t.Error("the team should be gone from the registry")
	}
	if r.GetPlayerTeam("alice") != nil {
		t.Error("the player index entry should be gone")
	}
	if r.TeamCount() != 0 {
		t.Errorf("TeamCount = %d, want 0", r.TeamCount())
	}
}

func TestDisbandTeam(t *testing.T) {
	r, _ := newTestRegistry(t)
	team := mustCreate(t, r, "Red", "alice", "bob")

	if _, err := r.DisbandTeam(context.Background(), "bob"); !errors.Is(err, ErrInsufficientRole) {
		t.Errorf("member disbanding: err = %v, want ErrInsufficientRole", err)
	}

	before, err := r.DisbandTeam(context.Background(), "alice")
	if err != nil {
		t.Fatalf("DisbandTeam: %v", err)
	}
	if !before.IsMember("bob") {
		t.Error("the returned copy should still show the full roster")
	}
	if r.GetTeam(team.ID()) != nil || r.GetPlayerTeam("bob") != nil {
		t.Error("disband must clear the team and every index entry")
	}
}

func TestKickRules(t *testing.T) {
	r, _ := newTestRegistry(t)
	mustCreate(t, r, "Red", "alice", "bob", "carol", "dave")
	if _, err := r.PromotePlayer("alice", "bob"); err != nil {
		t.Fatal(err)
	}
	if _, err := r.PromotePlayer("alice", "carol"); err != nil {
		t.Fatal(err)
	}

	if _, err := r.KickPlayer(context.Background(), "dave", "bob"); !errors.Is(err, ErrInsufficientRole) {
		t.Errorf("member kicking: err = %v, want ErrInsufficientRole", err)
	}
	if _, err := r.KickPlayer(context.Background(), "bob", "alice"); !errors.Is(err, ErrTargetIsLeader) {
		t.Errorf("kicking the leader: err = %v, want ErrTargetIsLeader", err)
	}
	if _, err := r.KickPlayer(context.Background(), "bob", "carol"); !errors.Is(err, ErrInsufficientRole) {
		t.Errorf("moderator kicking a moderator: err = %v, want ErrInsufficientRole", err)
	}
	if _, err := r.KickPlayer(context.Background(), "bob", "ghost"); !errors.Is(err, ErrPlayerNotFound) {
		t.Errorf("kicking a non-member: err = %v, want ErrPlayerNotFound", err)
	}

	if _, err := r.KickPlayer(context.Background(), "bob", "dave"); err != nil {
		t.Errorf("moderator kicking a plain member should succeed: %v", err)
	}
	if _, err := r.KickPlayer(context.Background(), "alice", "carol"); err != nil {
		t.Errorf("the leader kicking a moderator should succeed: %v", err)
	}
	if r.GetPlayerTeam("dave") != nil || r.GetPlayerTeam("carol") != nil {
		t.Error("kicked players must leave the index")
	}
}

func TestPromoteDemote(t *testing.T) {
	r, _ := newTestRegistry(t)
	mustCreate(t, r, "Red", "alice", "bob", "carol")
	if _, err := r.PromotePlayer("alice", "bob"); err != nil {
		t.Fatal(err)
	}

	if _, err := r.PromotePlayer("bob", "carol"); !errors.Is(err, ErrInsufficientRole) {
		t.Errorf("moderator promoting: err = %v, want ErrInsufficientRole", err)
	}
	if _, err := r.PromotePlayer("alice", "bob"); !errors.Is(err, ErrAlreadyModerator) {
		t.Errorf("double promote: err = %v, want ErrAlreadyModerator", err)
	}
	if _, err := r.PromotePlayer("alice", "alice"); !errors.Is(err, ErrTargetIsLeader) {
		t.Errorf("promoting the leader: err = %v, want ErrTargetIsLeader", err)
	}
	if _, err := r.DemotePlayer("alice", "carol"); !errors.Is(err, ErrNotModerator) {
		t.Errorf("demoting a plain member: err = %v, want ErrNotModerator", err)
	}
	if _, err := r.DemotePlayer("alice", "bob"); err != nil {
		t.Errorf("demote should succeed: %v", err)
	}
	if _, err := r.DemotePlayer("alice", "bob"); !errors.Is(err, ErrNotModerator) {
		t.Errorf("repeated demote: err = %v, want ErrNotModerator", err)
	}
}

func TestTransferLeadership(t *testing.T) {
	r, _ := newTestRegistry(t)
	mustCreate(t, r, "Red", "alice", "bob")

	if _, err := r.TransferLeadership("bob", "alice"); !errors.Is(err, ErrInsufficientRole) {
		t.Errorf("non-leader transferring: err = %v, want ErrInsufficientRole", err)
	}
	if _, err := r.TransferLeadership("alice", "ghost"); !errors.Is(err, ErrPlayerNotFound) {
		t.Errorf("transfer to non-member: err = %v, want ErrPlayerNotFound", err)
	}

	team, err := r.TransferLeadership("alice", "bob")
	if err != nil {
		t.Fatalf("TransferLeadership: %v", err)
	}
	if !team.IsLeader("bob") || !team.IsMember("alice") {
		t.Error("bob should lead and alice should stay a member")
	}
}

func TestRenameTeam(t *testing.T) {
	r, _ := newTestRegistry(t)
	mustCreate(t, r, "Red", "alice")
	mustCreate(t, r, "Blue", "zoe")

	if _, err := r.RenameTeam("alice", "BLUE"); !errors.Is(err, ErrNameTaken) {
		t.Errorf("rename onto another team's name: err = %v, want ErrNameTaken", err)
	}
	// Renaming to a different casing of your own name is allowed.
	if _, err := r.RenameTeam("alice", "RED"); err != nil {
		t.Errorf("recasing own name should succeed: %v", err)
	}
	if r.GetTeamByName("red") == nil {
		t.Error("lookups by the new name should work")
	}
}

func TestRecordDeath(t *testing.T) {
	r, _ := newTestRegistry(t)
	red := mustCreate(t, r, "Red", "alice", "bob")
	mustCreate(t, r, "Blue", "zoe")

	// Cross-team kill: both counters move.
	r.RecordDeath("alice", "zoe")
	if got := r.GetTeam(red.ID()).TotalDeaths(); got != 1 {
		t.Errorf("red deaths = %d, want 1", got)
	}
	if got := r.GetTeamByName("Blue").TotalKills(); got != 1 {
		t.Errorf("blue kills = %d, want 1", got)
	}

	// Environmental death: only the victim's counter moves.
	r.RecordDeath("alice", "")
	if got := r.GetTeam(red.ID()).TotalDeaths(); got != 2 {
		t.Errorf("red deaths = %d, want 2", got)
	}

	// Teammate kill without friendly fire: no kill credit.
	r.RecordDeath("alice", "bob")
	if got := r.GetTeam(red.ID()).TotalKills(); got != 0 {
		t.Errorf("red kills = %d, want 0 (friendly fire off)", got)
	}

	// With friendly fire on the kill counts.
	if _, err := r.UpdateSettings("alice", false, func(tm *models.Team) error {
		tm.FriendlyFire = true
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	r.RecordDeath("alice", "bob")
	if got := r.GetTeam(red.ID()).TotalKills(); got != 1 {
		t.Errorf("red kills = %d, want 1 (friendly fire on)", got)
	}

	// Teamless players never panic and never move counters.
	r.RecordDeath("ghost", "phantom")
}

func TestAreAllies(t *testing.T) {
	r, _ := newTestRegistry(t)
	mustCreate(t, r, "Red", "alice")
	mustCreate(t, r, "Blue", "zoe")
	as := NewAllianceService(r)

	if r.AreAllies("alice", "zoe") {
		t.Error("unrelated teams are not allies")
	}
	if !r.AreAllies("alice", "alice") {
		t.Error("a player is trivially allied with themself via their own team")
	}

	if _, err := as.Propose("alice", "Blue"); err != nil {
		t.Fatal(err)
	}
	if _, err := as.Accept("zoe", "Red"); err != nil {
		t.Fatal(err)
	}
	if !r.AreAllies("alice", "zoe") {
		t.Error("allied teams' players should count as allies")
	}
	blue := r.GetTeamByName("Blue")
	if !r.IsPlayerAlliedWith("alice", blue.ID()) {
		t.Error("IsPlayerAlliedWith should see the alliance")
	}
}

func TestTopTeams(t *testing.T) {
	r, _ := newTestRegistry(t)
	mustCreate(t, r, "Red", "alice")
	mustCreate(t, r, "Blue", "zoe")
	mustCreate(t, r, "Green", "bob")

	// Red ends at 4 kills / 0 deaths (KD 4), Blue at 6 kills / 4 deaths
	// (KD 1.5), Green at 0 kills / 6 deaths (KD 0).
	for i := 0; i < 4; i++ {
		r.RecordDeath("zoe", "alice")
	}
	for i := 0; i < 6; i++ {
		r.RecordDeath("bob", "zoe")
	}

	byKills := r.TopTeamsByKills(2)
	if len(byKills) != 2 || byKills[0].Name() != "Blue" || byKills[1].Name() != "Red" {
		t.Errorf("TopTeamsByKills order wrong: %v", teamNames(byKills))
	}
	byKD := r.TopTeamsByKD(3)
	if len(byKD) != 3 || byKD[0].Name() != "Red" || byKD[1].Name() != "Blue" || byKD[2].Name() != "Green" {
		t.Errorf("TopTeamsByKD order wrong: %v", teamNames(byKD))
	}
	if got := r.TopTeamsByKills(10); len(got) != 3 {
		t.Errorf("asking for more than exists should cap at %d, got %d", 3, len(got))
	}
	if got := r.TopTeamsByKills(0); got != nil {
		t.Errorf("n<=0 should return nil, got %v", teamNames(got))
	}
}

func teamNames(teams []*models.Team) []string {
	out := make([]string, len(teams))
	for i, tm := range teams {
		out[i] = tm.Name()
	}
	return out
}

func TestSnapshotAndLoad(t *testing.T) {
	r, clock := newTestRegistry(t)
	mustCreate(t, r, "Red", "alice", "bob")
	clock.Advance(time.Minute)
	mustCreate(t, r, "Blue", "zoe")

	records := r.Snapshot()
	if len(records) != 2 {
		t.Fatalf("snapshot size = %d, want 2", len(records))
	}
	for i := 1; i < len(records); i++ {
		if records[i-1].ID >= records[i].ID {
			t.Error("snapshot must be sorted by team id")
		}
	}

	teams := make([]*models.Team, 0, len(records))
	for _, rec := range records {
		team, err := models.RehydrateTeam(rec)
		if err != nil {
			t.Fatalf("RehydrateTeam: %v", err)
		}
		teams = append(teams, team)
	}

	fresh, _ := newTestRegistry(t)
	fresh.Load(teams)

	if fresh.TeamCount() != 2 {
		t.Errorf("TeamCount = %d, want 2", fresh.TeamCount())
	}
	if !fresh.AreTeammates("alice", "bob") {
		t.Error("the player index must be rebuilt from member lists")
	}
	if got := fresh.GetPlayerTeam("zoe"); got == nil || got.Name() != "Blue" {
		t.Error("zoe should resolve to Blue after the load")
	}
}

func TestLoadKeepsFirstMappingOnConflict(t *testing.T) {
	r, _ := newTestRegistry(t)

	older, err := models.RehydrateTeam(models.TeamRecord{
		ID: "team-a", Name: "Red", Leader: "alice",
		Members:   []string{"alice", "bob"},
		CreatedAt: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatal(err)
	}
	newer, err := models.RehydrateTeam(models.TeamRecord{
		ID: "team-b", Name: "Blue", Leader: "zoe",
		Members:   []string{"zoe", "bob"},
		CreatedAt: time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatal(err)
	}

	r.Load([]*models.Team{newer, older})

	if got := r.GetPlayerTeam("bob"); got == nil || got.ID() != "team-a" {
		t.Error("the earlier-created team wins the index on a membership conflict")
	}
}

type stashRecorder struct {
	released []string
}

func (s *stashRecorder) RemoveStash(ctx context.Context, teamID string) error {
	s.released = append(s.released, teamID)
	return nil
}

func TestStashReleasedOnTeamDestruction(t *testing.T) {
	clock := clockwork.NewFakeClock()
	stash := &stashRecorder{}
	r := NewTeamRegistry(clock, stash)

	team, err := r.CreateTeam("Red", "alice")
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := r.LeaveTeam(context.Background(), "alice"); err != nil {
		t.Fatal(err)
	}
	if len(stash.released) != 1 || stash.released[0] != team.ID() {
		t.Errorf("stash released for %v, want exactly [%s]", stash.released, team.ID())
	}

	team2, err := r.CreateTeam("Blue", "zoe")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.DisbandTeam(context.Background(), "zoe"); err != nil {
		t.Fatal(err)
	}
	if len(stash.released) != 2 || stash.released[1] != team2.ID() {
		t.Errorf("stash released for %v, want disband to release %s", stash.released, team2.ID())
	}
}
