// teams/store/presence_store.go
package store

import (
	"context"
	"fmt"
	"time"

	redisu "github.com/mcbzh/teams-service/shared/redis"
	"github.com/redis/go-redis/v9"
)

// PresenceStore is the player directory: it resolves player ids to display
// names and tracks online presence in Redis. Presence keys carry a TTL and
// act as a heartbeat; the host proxy refreshes them while the player is
// connected.
type PresenceStore struct {
	client    *redis.ClusterClient
	onlineTTL time.Duration
}

// NewPresenceStore creates a new PresenceStore instance.
func NewPresenceStore(client *redis.ClusterClient, onlineTTL time.Duration) *PresenceStore {
	return &PresenceStore{
		client:    client,
		onlineTTL: onlineTTL,
	}
}

// SetUsername records the display name for a player id. Usernames have no
// TTL; the mapping survives until overwritten.
func (ps *PresenceStore) SetUsername(ctx context.Context, playerUUID, username string) error {
	key := fmt.Sprintf(redisu.UsernameKeyPrefix, playerUUID)
	if err := ps.client.Set(ctx, key, username, 0).Err(); err != nil {
		return fmt.Errorf("failed to set username for player %s: %w", playerUUID, err)
	}
	return nil
}

// GetUsername resolves a player id to its display name. Returns
// ErrRedisKeyNotFound when the player is unknown to the directory.
func (ps *PresenceStore) GetUsername(ctx context.Context, playerUUID string) (string, error) {
	key := fmt.Sprintf(redisu.UsernameKeyPrefix, playerUUID)
	val, err := ps.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", fmt.Errorf("no username recorded for player %s: %w", playerUUID, redisu.ErrRedisKeyNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to get username for player %s: %w", playerUUID, err)
	}
	return val, nil
}

// SetPlayerOnline marks a player as present. The key expires after the
// configured TTL unless refreshed.
func (ps *PresenceStore) SetPlayerOnline(ctx context.Context, playerUUID string, sessionStart time.Time) error {
	key := fmt.Sprintf(redisu.OnlineKeyPrefix, playerUUID)
	if err := ps.client.Set(ctx, key, sessionStart.Unix(), ps.onlineTTL).Err(); err != nil {
		return fmt.Errorf("failed to set player %s online status: %w", playerUUID, err)
	}
	return nil
}

// RemovePlayerOnline explicitly clears a player's presence key on logout.
func (ps *PresenceStore) RemovePlayerOnline(ctx context.Context, playerUUID string) error {
	key := fmt.Sprintf(redisu.OnlineKeyPrefix, playerUUID)
	if err := ps.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to remove player %s online status: %w", playerUUID, err)
	}
	return nil
}

// IsPlayerOnline checks whether a player's presence key currently exists.
func (ps *PresenceStore) IsPlayerOnline(ctx context.Context, playerUUID string) (bool, error) {
	key := fmt.Sprintf(redisu.OnlineKeyPrefix, playerUUID)
	exists, err := ps.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check online status for player %s: %w", playerUUID, err)
	}
	return exists == 1, nil
}

// FilterOnline returns the subset of the given player ids that are currently
// present. Used to narrow broadcast targets.
func (ps *PresenceStore) FilterOnline(ctx context.Context, playerUUIDs []string) ([]string, error) {
	online := make([]string, 0, len(playerUUIDs))
	for _, id := range playerUUIDs {
		ok, err := ps.IsPlayerOnline(ctx, id)
		if err != nil {
			return nil, err
		}
		if ok {
			online = append(online, id)
		}
	}
	return online, nil
}
