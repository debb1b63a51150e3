// teams/service/team_service_test.go
package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcbzh/teams-service/shared/models"
	"github.com/mcbzh/teams-service/teams/registry"
)

// fakeStore records saves in memory and can be told to fail.
type fakeStore struct {
	saved   [][]models.TeamRecord
	seed    []*models.Team
	saveErr error
}

func (f *fakeStore) SaveAll(ctx context.Context, records []models.TeamRecord) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, records)
	return nil
}

func (f *fakeStore) LoadAll(ctx context.Context) ([]*models.Team, error) {
	return f.seed, nil
}

// fakeMessenger collects delivered lines per player.
type fakeMessenger struct {
	sent map[string][]string
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{sent: make(map[string][]string)}
}

func (f *fakeMessenger) SendTo(ctx context.Context, playerUUID, line string) error {
	f.sent[playerUUID] = append(f.sent[playerUUID], line)
	return nil
}

func (f *fakeMessenger) Broadcast(ctx context.Context, playerUUIDs []string, line string) {
	for _, id := range playerUUIDs {
		f.sent[id] = append(f.sent[id], line)
	}
}

// fakeDirectory resolves names from a fixed map and treats every player as
// online.
type fakeDirectory struct {
	names map[string]string
}

func (f *fakeDirectory) GetUsername(ctx context.Context, playerUUID string) (string, error) {
	if name, ok := f.names[playerUUID]; ok {
		return name, nil
	}
	return "", errors.New("unknown player")
}

func (f *fakeDirectory) FilterOnline(ctx context.Context, playerUUIDs []string) ([]string, error) {
	return playerUUIDs, nil
}

type fixture struct {
	svc       *TeamService
	store     *fakeStore
	messenger *fakeMessenger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	reg := registry.NewTeamRegistry(clockwork.NewFakeClockAt(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)), nil)
	store := &fakeStore{}
	messenger := newFakeMessenger()
	directory := &fakeDirectory{names: map[string]string{
		"alice": "Alice", "bob": "Bob", "zoe": "Zoe",
	}}
	svc := NewTeamService(reg, registry.NewAllianceService(reg), store, messenger, directory, nil)
	return &fixture{svc: svc, store: store, messenger: messenger}
}

func TestCreateTeamPersists(t *testing.T) {
	f := newFixture(t)

	team, err := f.svc.CreateTeam(context.Background(), "Red", "alice")
	if err != nil {
		t.Fatalf("CreateTeam: %v", err)
	}
	if team.Name() != "Red" {
		t.Errorf("team name = %q, want Red", team.Name())
	}
	if len(f.store.saved) != 1 {
		t.Fatalf("save count = %d, want 1", len(f.store.saved))
	}
	if got := f.store.saved[0]; len(got) != 1 || got[0].Name != "Red" {
		t.Errorf("persisted snapshot = %+v, want one Red record", got)
	}
}

func TestSaveFailureDoesNotFailOperation(t *testing.T) {
	f := newFixture(t)
	f.store.saveErr = errors.New("mongo down")

	if _, err := f.svc.CreateTeam(context.Background(), "Red", "alice"); err != nil {
		t.Fatalf("CreateTeam should survive a save failure: %v", err)
	}
	if f.svc.GetTeamByName("Red") == nil {
		t.Error("the in-memory team must exist despite the failed save")
	}
}

func TestInviteNotifiesButDoesNotPersist(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.CreateTeam(context.Background(), "Red", "alice"); err != nil {
		t.Fatal(err)
	}
	savesBefore := len(f.store.saved)

	if _, err := f.svc.InvitePlayer(context.Background(), "alice", "bob"); err != nil {
		t.Fatalf("InvitePlayer: %v", err)
	}
	if len(f.store.saved) != savesBefore {
		t.Error("invitations are ephemeral and must not trigger a save")
	}
	lines := f.messenger.sent["bob"]
	if len(lines) != 1 || !strings.Contains(lines[0], "Red") {
		t.Errorf("bob should be told about the invitation, got %v", lines)
	}
}

func TestJoinBroadcastsToTeam(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.CreateTeam(context.Background(), "Red", "alice"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.InvitePlayer(context.Background(), "alice", "bob"); err != nil {
		t.Fatal(err)
	}

	team, err := f.svc.JoinTeam(context.Background(), "bob", "Red")
	if err != nil {
		t.Fatalf("JoinTeam: %v", err)
	}
	if !team.IsMember("bob") {
		t.Error("the returned team should include the new member")
	}

	found := false
	for _, line := range f.messenger.sent["alice"] {
		if strings.Contains(line, "Bob") && strings.Contains(line, "joined") {
			found = true
		}
	}
	if !found {
		t.Errorf("alice should hear that Bob joined, got %v", f.messenger.sent["alice"])
	}
}

func TestLeaveNotifiesSuccessor(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.CreateTeam(context.Background(), "Red", "alice"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.InvitePlayer(context.Background(), "alice", "bob"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.JoinTeam(context.Background(), "bob", "Red"); err != nil {
		t.Fatal(err)
	}

	res, err := f.svc.LeaveTeam(context.Background(), "alice")
	if err != nil {
		t.Fatalf("LeaveTeam: %v", err)
	}
	if res.NewLeader != "bob" {
		t.Fatalf("new leader = %q, want bob", res.NewLeader)
	}

	found := false
	for _, line := range f.messenger.sent["bob"] {
		if strings.Contains(line, "now the leader") {
			found = true
		}
	}
	if !found {
		t.Errorf("the successor should be told about the promotion, got %v", f.messenger.sent["bob"])
	}
}

func TestKickNotifiesTarget(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.CreateTeam(context.Background(), "Red", "alice"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.InvitePlayer(context.Background(), "alice", "bob"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.JoinTeam(context.Background(), "bob", "Red"); err != nil {
		t.Fatal(err)
	}

	if err := f.svc.KickPlayer(context.Background(), "alice", "bob"); err != nil {
		t.Fatalf("KickPlayer: %v", err)
	}
	lines := f.messenger.sent["bob"]
	kicked := false
	for _, line := range lines {
		if strings.Contains(line, "kicked") {
			kicked = true
		}
	}
	if !kicked {
		t.Errorf("bob should be told about the kick, got %v", lines)
	}
	if f.svc.GetPlayerTeam("bob") != nil {
		t.Error("bob should be teamless after the kick")
	}
}

func TestSetColorValidatesPalette(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.CreateTeam(context.Background(), "Red", "alice"); err != nil {
		t.Fatal(err)
	}

	if err := f.svc.SetColor(context.Background(), "alice", "MAGENTA"); !errors.Is(err, registry.ErrInvalidColor) {
		t.Errorf("unknown color: err = %v, want ErrInvalidColor", err)
	}
	if err := f.svc.SetColor(context.Background(), "alice", "DARK_RED"); err != nil {
		t.Fatalf("SetColor: %v", err)
	}
	if got := f.svc.GetTeamByName("Red").Color; got != "DARK_RED" {
		t.Errorf("color = %q, want DARK_RED", got)
	}
}

func TestSetMaxMembersBounds(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.CreateTeam(context.Background(), "Red", "alice"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.InvitePlayer(context.Background(), "alice", "bob"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.JoinTeam(context.Background(), "bob", "Red"); err != nil {
		t.Fatal(err)
	}

	if err := f.svc.SetMaxMembers(context.Background(), "alice", 1); !errors.Is(err, registry.ErrInvalidCapacity) {
		t.Errorf("shrinking below the member count: err = %v, want ErrInvalidCapacity", err)
	}
	if err := f.svc.SetMaxMembers(context.Background(), "alice", 0); !errors.Is(err, registry.ErrInvalidCapacity) {
		t.Errorf("non-positive capacity: err = %v, want ErrInvalidCapacity", err)
	}
	if err := f.svc.SetMaxMembers(context.Background(), "alice", 20); err != nil {
		t.Fatalf("SetMaxMembers: %v", err)
	}
	if got := f.svc.GetTeamByName("Red").MaxMembers; got != 20 {
		t.Errorf("max members = %d, want 20", got)
	}
}

func TestAllianceFlowNotifiesLeadership(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.CreateTeam(context.Background(), "Red", "alice"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.CreateTeam(context.Background(), "Blue", "zoe"); err != nil {
		t.Fatal(err)
	}
	savesBefore := len(f.store.saved)

	if err := f.svc.ProposeAlliance(context.Background(), "alice", "Blue"); err != nil {
		t.Fatalf("ProposeAlliance: %v", err)
	}
	if len(f.store.saved) != savesBefore {
		t.Error("pending proposals must not trigger a save")
	}
	proposalSeen := false
	for _, line := range f.messenger.sent["zoe"] {
		if strings.Contains(line, "alliance") {
			proposalSeen = true
		}
	}
	if !proposalSeen {
		t.Errorf("the target leader should hear the proposal, got %v", f.messenger.sent["zoe"])
	}

	if err := f.svc.AcceptAlliance(context.Background(), "zoe", "Red"); err != nil {
		t.Fatalf("AcceptAlliance: %v", err)
	}
	if len(f.store.saved) != savesBefore+1 {
		t.Error("forming the alliance must persist")
	}
	if !f.svc.AreAllies("alice", "zoe") {
		t.Error("alice and zoe should now be allies")
	}

	if err := f.svc.BreakAlliance(context.Background(), "alice", "Blue"); err != nil {
		t.Fatalf("BreakAlliance: %v", err)
	}
	if f.svc.AreAllies("alice", "zoe") {
		t.Error("the alliance should be gone")
	}
}

func TestTeamInfoProjection(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.CreateTeam(context.Background(), "Red", "alice"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.CreateTeam(context.Background(), "Blue", "zoe"); err != nil {
		t.Fatal(err)
	}
	if err := f.svc.ProposeAlliance(context.Background(), "alice", "Blue"); err != nil {
		t.Fatal(err)
	}
	if err := f.svc.AcceptAlliance(context.Background(), "zoe", "Red"); err != nil {
		t.Fatal(err)
	}
	f.svc.RecordDeath(context.Background(), "zoe", "alice")

	info, err := f.svc.TeamInfoByName(context.Background(), "red")
	if err != nil {
		t.Fatalf("TeamInfoByName: %v", err)
	}
	if info.LeaderName != "Alice" {
		t.Errorf("leader name = %q, want Alice", info.LeaderName)
	}
	if len(info.Allies) != 1 || info.Allies[0] != "Blue" {
		t.Errorf("allies = %v, want [Blue]", info.Allies)
	}
	if info.TotalKills != 1 || info.KDRatio != "1.00" {
		t.Errorf("stats = %d kills, KD %q; want 1 kill, KD 1.00", info.TotalKills, info.KDRatio)
	}

	if _, err := f.svc.TeamInfoForPlayer(context.Background(), "ghost"); !errors.Is(err, registry.ErrNotInTeam) {
		t.Errorf("teamless player info: err = %v, want ErrNotInTeam", err)
	}
}

func TestLoadAllSeedsRegistry(t *testing.T) {
	f := newFixture(t)
	seedTeam, err := models.RehydrateTeam(models.TeamRecord{
		ID: "team-1", Name: "Red", Leader: "alice",
		Members:   []string{"alice"},
		CreatedAt: time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatal(err)
	}
	f.store.seed = []*models.Team{seedTeam}

	if err := f.svc.LoadAll(context.Background()); err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if got := f.svc.GetPlayerTeam("alice"); got == nil || got.Name() != "Red" {
		t.Error("the loaded team should be queryable through the index")
	}
}
