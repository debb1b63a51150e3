// teams/store/stash_store.go
package store

import (
	"context"
	"fmt"

	redisu "github.com/mcbzh/teams-service/shared/redis"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// StashStore owns the per-team shared stash storage: one Redis hash per team,
// slot index → payload. Payloads are opaque strings supplied by the host (the
// service never interprets item data). The registry calls RemoveStash when a
// team is destroyed so the hash does not leak.
type StashStore struct {
	client *redis.ClusterClient
}

// NewStashStore creates a new StashStore instance.
func NewStashStore(client *redis.ClusterClient) *StashStore {
	return &StashStore{client: client}
}

// PutSlot stores an opaque payload in the team's stash at the given slot.
// An empty payload clears the slot.
func (ss *StashStore) PutSlot(ctx context.Context, teamID string, slot int, payload string) error {
	key := fmt.Sprintf(redisu.TeamStashKeyPrefix, teamID)
	field := fmt.Sprintf("%d", slot)
	if payload == "" {
		if err := ss.client.HDel(ctx, key, field).Err(); err != nil {
			return fmt.Errorf("failed to clear stash slot %d for team %s: %w", slot, teamID, err)
		}
		return nil
	}
	if err := ss.client.HSet(ctx, key, field, payload).Err(); err != nil {
		return fmt.Errorf("failed to write stash slot %d for team %s: %w", slot, teamID, err)
	}
	return nil
}

// GetStash returns the full slot→payload map of the team's stash. Missing
// stashes come back as an empty map.
func (ss *StashStore) GetStash(ctx context.Context, teamID string) (map[string]string, error) {
	key := fmt.Sprintf(redisu.TeamStashKeyPrefix, teamID)
	stash, err := ss.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read stash for team %s: %w", teamID, err)
	}
	return stash, nil
}

// RemoveStash releases a destroyed team's stash storage.
func (ss *StashStore) RemoveStash(ctx context.Context, teamID string) error {
	key := fmt.Sprintf(redisu.TeamStashKeyPrefix, teamID)
	deleted, err := ss.client.Del(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("failed to delete stash for team %s: %w", teamID, err)
	}
	if deleted > 0 {
		log.Info().Str("team_id", teamID).Msg("released team stash")
	}
	return nil
}
