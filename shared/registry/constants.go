// shared/registry/constants.go
package registry

const (
	// RedisRegistryHashPrefix is the prefix used for Redis hash keys that store
	// service registration data. The full key format is
	// "services:<serviceType>", e.g. "services:teams-service".
	RedisRegistryHashPrefix = "services:"
)
