// teams/api/handler_test.go
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/jonboulle/clockwork"
	"github.com/mcbzh/teams-service/shared/models"
	"github.com/mcbzh/teams-service/teams/registry"
	"github.com/mcbzh/teams-service/teams/service"
)

// nullStore accepts every save and loads nothing.
type nullStore struct{}

func (nullStore) SaveAll(ctx context.Context, records []models.TeamRecord) error { return nil }

func (nullStore) LoadAll(ctx context.Context) ([]*models.Team, error) { return nil, nil }

// nullMessenger drops every line.
type nullMessenger struct{}

func (nullMessenger) SendTo(ctx context.Context, playerUUID, line string) error { return nil }

func (nullMessenger) Broadcast(ctx context.Context, playerUUIDs []string, line string) {}

// nullDirectory echoes ids as names and treats everyone as online.
type nullDirectory struct{}

func (nullDirectory) GetUsername(ctx context.Context, playerUUID string) (string, error) {
	return playerUUID, nil
}

func (nullDirectory) FilterOnline(ctx context.Context, playerUUIDs []string) ([]string, error) {
	return playerUUIDs, nil
}

// newTestRouter wires a fresh service with a one-member team led by alice and
// returns the routed handler set.
func newTestRouter(t *testing.T) *mux.Router {
	t.Helper()
	reg := registry.NewTeamRegistry(clockwork.NewFakeClockAt(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)), nil)
	svc := service.NewTeamService(reg, registry.NewAllianceService(reg), nullStore{}, nullMessenger{}, nullDirectory{}, nil)
	if _, err := svc.CreateTeam(context.Background(), "Red", "alice"); err != nil {
		t.Fatalf("CreateTeam: %v", err)
	}
	router := mux.NewRouter()
	NewTeamAPIHandlers(svc).RegisterRoutes(router)
	return router
}

func doRequest(t *testing.T, router *mux.Router, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestSettingsRejectionsAreBadRequests(t *testing.T) {
	router := newTestRouter(t)

	cases := []struct {
		name string
		path string
		body any
		want string
	}{
		{
			name: "unknown color",
			path: "/teams/settings/color",
			body: UpdateColorRequest{ActorUUID: "alice", Color: "MAGENTA"},
			want: registry.ErrInvalidColor.Error(),
		},
		{
			name: "overlong tag",
			path: "/teams/settings/tag",
			body: UpdateTagRequest{ActorUUID: "alice", Tag: "WAYTOOLONG"},
			want: registry.ErrInvalidTag.Error(),
		},
		{
			name: "capacity below one",
			path: "/teams/settings/max-members",
			body: UpdateMaxMembersRequest{ActorUUID: "alice", MaxMembers: 0},
			want: registry.ErrInvalidCapacity.Error(),
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doRequest(t, router, http.MethodPut, tc.path, tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, http.StatusBadRequest, rec.Body.String())
			}
			var resp struct {
				Message string `json:"message"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if resp.Message != tc.want {
				t.Errorf("message = %q, want %q", resp.Message, tc.want)
			}
		})
	}
}

func TestSettingsAcceptValidValues(t *testing.T) {
	router := newTestRouter(t)

	rec := doRequest(t, router, http.MethodPut, "/teams/settings/color",
		UpdateColorRequest{ActorUUID: "alice", Color: "GOLD"})
	if rec.Code != http.StatusOK {
		t.Errorf("color update status = %d, want %d (body %s)", rec.Code, http.StatusOK, rec.Body.String())
	}

	rec = doRequest(t, router, http.MethodPut, "/teams/settings/max-members",
		UpdateMaxMembersRequest{ActorUUID: "alice", MaxMembers: 5})
	if rec.Code != http.StatusOK {
		t.Errorf("capacity update status = %d, want %d (body %s)", rec.Code, http.StatusOK, rec.Body.String())
	}
}

func TestWriteTeamErrorMatchesWrappedSentinels(t *testing.T) {
	rec := httptest.NewRecorder()
	writeTeamError(rec, fmt.Errorf("renaming: %w", registry.ErrNameTaken))
	if rec.Code != http.StatusConflict {
		t.Errorf("wrapped ErrNameTaken status = %d, want %d", rec.Code, http.StatusConflict)
	}

	rec = httptest.NewRecorder()
	writeTeamError(rec, fmt.Errorf("lookup: %w", registry.ErrTeamNotFound))
	if rec.Code != http.StatusNotFound {
		t.Errorf("wrapped ErrTeamNotFound status = %d, want %d", rec.Code, http.StatusNotFound)
	}

	rec = httptest.NewRecorder()
	writeTeamError(rec, fmt.Errorf("some backend failure"))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("unknown error status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
	if !strings.Contains(rec.Body.String(), "internal error") {
		t.Errorf("unknown error body = %s, want internal error", rec.Body.String())
	}
}
