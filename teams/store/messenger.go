// teams/store/messenger.go
package store

import (
	"context"
	"fmt"

	redisu "github.com/mcbzh/teams-service/shared/redis"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// RedisMessenger delivers chat lines to players by publishing on per-player
// pub/sub channels. The host proxy subscribes to its connected players'
// channels and forwards lines to the wire; formatting beyond the plain line
// is the host's concern.
type RedisMessenger struct {
	client *redis.ClusterClient
}

// NewRedisMessenger creates a new RedisMessenger instance.
func NewRedisMessenger(client *redis.ClusterClient) *RedisMessenger {
	return &RedisMessenger{client: client}
}

// SendTo delivers a single line to one player.
func (m *RedisMessenger) SendTo(ctx context.Context, playerUUID, line string) error {
	channel := fmt.Sprintf(redisu.PlayerChannelPrefix, playerUUID)
	if err := m.client.Publish(ctx, channel, line).Err(); err != nil {
		return fmt.Errorf("failed to publish message to player %s: %w", playerUUID, err)
	}
	return nil
}

// Broadcast delivers a line to every listed player. Delivery is best effort
// per target; individual publish failures are logged and do not stop the
// rest of the broadcast.
func (m *RedisMessenger) Broadcast(ctx context.Context, playerUUIDs []string, line string) {
	for _, id := range playerUUIDs {
		if err := m.SendTo(ctx, id, line); err != nil {
			log.Warn().Err(err).Str("player_id", id).Msg("failed to deliver broadcast line")
		}
	}
}
