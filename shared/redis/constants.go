// shared/redis/constants.go
package redis

import "fmt"

const (
	// UsernameKeyPrefix maps a player uuid to its display name: username:{uuid}
	UsernameKeyPrefix = "username:{%s}:"

	// OnlineKeyPrefix marks a player as present: online:{uuid}
	OnlineKeyPrefix = "online:{%s}:"

	// TeamStashKeyPrefix is the hash holding a team's stash slots: teamstash:{teamID}
	TeamStashKeyPrefix = "teamstash:{%s}:"

	// PlayerChannelPrefix is the pub/sub channel the host proxy subscribes to
	// for per-player message delivery: msg:{uuid}
	PlayerChannelPrefix = "msg:{%s}:"
)

// ErrRedisKeyNotFound is returned when a looked-up key does not exist.
var ErrRedisKeyNotFound = fmt.Errorf("redis key not found")
