// shared/config/config.go
package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// CommonConfig holds configuration fields that are shared across services.
type CommonConfig struct {
	RedisAddrs              []string      `env:"REDIS_ADDRS" envSeparator:"," envDefault:"redis-cluster-headless.minecraft-cluster.svc.cluster.local:6379"`
	RedisPassword           string        `env:"REDIS_PASSWORD"`
	HeartbeatInterval       time.Duration `env:"SERVICE_HEARTBEAT_INTERVAL" envDefault:"5s"`
	HeartbeatTTL            time.Duration `env:"SERVICE_HEARTBEAT_TTL" envDefault:"15s"`
	RegistryCleanupInterval time.Duration `env:"SERVICE_REGISTRY_CLEANUP_INTERVAL" envDefault:"30s"`

	// ServiceIP is the address this instance advertises for registration.
	// Injected by Kubernetes as the pod IP; 0.0.0.0 outside the cluster.
	ServiceIP string `env:"POD_IP" envDefault:"0.0.0.0"`

	// ServicePort is derived from the service's listen address after parsing.
	ServicePort int `env:"-"`
}

// TeamsServiceConfig holds configuration specific to the teams-service.
type TeamsServiceConfig struct {
	CommonConfig

	ListenAddr string `env:"TEAMS_SERVICE_LISTEN_ADDR" envDefault:":8083"`

	MongoDBConnStr         string `env:"MONGODB_CONN_STR" envDefault:"mongodb://mongodb-service:27017"`
	MongoDBDatabase        string `env:"MONGODB_DATABASE" envDefault:"minestom"`
	MongoDBTeamsCollection string `env:"MONGODB_TEAMS_COLLECTION" envDefault:"teams"`

	// RedisOnlineTTL bounds how long a presence key lives without a refresh.
	RedisOnlineTTL time.Duration `env:"REDIS_ONLINE_TTL" envDefault:"15s"`

	// AutoSaveInterval is the period of the bulk-save tick.
	AutoSaveInterval time.Duration `env:"TEAMS_AUTOSAVE_INTERVAL" envDefault:"5m"`

	// SaveTimeout bounds a single bulk-save round trip against MongoDB.
	SaveTimeout time.Duration `env:"TEAMS_SAVE_TIMEOUT" envDefault:"60s"`

	// ShutdownTimeout bounds the HTTP drain plus the final save on SIGTERM.
	ShutdownTimeout time.Duration `env:"TEAMS_SHUTDOWN_TIMEOUT" envDefault:"15s"`
}

// LoadTeamsServiceConfig loads configuration for the teams-service from the
// environment and derives the advertised service port from the listen address.
func LoadTeamsServiceConfig() (*TeamsServiceConfig, error) {
	cfg := &TeamsServiceConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse teams-service environment: %w", err)
	}

	for i, addr := range cfg.RedisAddrs {
		cfg.RedisAddrs[i] = strings.TrimSpace(addr)
	}

	port, err := extractPort(cfg.ListenAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to extract port from TEAMS_SERVICE_LISTEN_ADDR %q: %w", cfg.ListenAddr, err)
	}
	cfg.ServicePort = port

	if cfg.AutoSaveInterval <= 0 {
		return nil, fmt.Errorf("TEAMS_AUTOSAVE_INTERVAL must be positive (got %v)", cfg.AutoSaveInterval)
	}
	if cfg.SaveTimeout <= 0 {
		return nil, fmt.Errorf("TEAMS_SAVE_TIMEOUT must be positive (got %v)", cfg.SaveTimeout)
	}

	return cfg, nil
}

// extractPort extracts the numeric port from a listen address
// (e.g., ":8083" -> 8083, "0.0.0.0:8083" -> 8083).
func extractPort(listenAddr string) (int, error) {
	_, portStr, err := net.SplitHostPort(listenAddr)
	if err != nil {
		if strings.HasPrefix(listenAddr, ":") {
			portStr = strings.TrimPrefix(listenAddr, ":")
		} else {
			return 0, fmt.Errorf("invalid listen address format: %w", err)
		}
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return 0, fmt.Errorf("invalid port number %q: %w", portStr, err)
	}
	return port, nil
}
