package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds every tunable of the server
type Config struct {
	Host      string
	Port      int
	ClientDir string
	PublicURL string

	WorldWidth  float64
	WorldHeight float64
	IslandCount int
	Seed        int64

	GracePeriod       time.Duration
	HeartbeatInterval time.Duration
	HeartbeatTimeout  time.Duration
	RespawnDelay      time.Duration
	ShootCooldown     time.Duration
	CollisionCooldown time.Duration

	Authoritative         bool
	RequireReconnectToken bool
	JWTSecret             string
	AdminUser             string
	AdminPasswordHash     string

	DBPath   string
	LogLevel string
}

// DefaultConfig returns the built-in settings
func DefaultConfig() Config {
	return Config{
		Host:              "0.0.0.0",
		Port:              8080,
		WorldWidth:        3000,
		WorldHeight:       2000,
		IslandCount:       10,
		GracePeriod:       10 * time.Second,
		HeartbeatInterval: 5 * time.Second,
		HeartbeatTimeout:  15 * time.Second,
		RespawnDelay:      3 * time.Second,
		ShootCooldown:     time.Second,
		CollisionCooldown: time.Second,
		AdminUser:         "admin",
		LogLevel:          "info",
	}
}

// Addr returns the listen address
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LoadConfig reads configuration from an optional file and the environment.
// Environment variables use the ARENA_ prefix (ARENA_WORLD_WIDTH); HOST and
// PORT are honoured as well.
func LoadConfig(path string) (Config, error) {
	d := DefaultConfig()
	v := viper.New()

	v.SetDefault("server.host", d.Host)
	v.SetDefault("server.port", d.Port)
	v.SetDefault("server.clientDir", d.ClientDir)
	v.SetDefault("server.publicURL", d.PublicURL)

	v.SetDefault("world.width", d.WorldWidth)
	v.SetDefault("world.height", d.WorldHeight)
	v.SetDefault("world.islands", d.IslandCount)
	v.SetDefault("world.seed", d.Seed)

	v.SetDefault("timing.gracePeriod", d.GracePeriod)
	v.SetDefault("timing.heartbeatInterval", d.HeartbeatInterval)
	v.SetDefault("timing.heartbeatTimeout", d.HeartbeatTimeout)
	v.SetDefault("timing.respawnDelay", d.RespawnDelay)
	v.SetDefault("timing.shootCooldown", d.ShootCooldown)
	v.SetDefault("timing.collisionCooldown", d.CollisionCooldown)

	v.SetDefault("sim.authoritative", d.Authoritative)
	v.SetDefault("auth.requireReconnectToken", d.RequireReconnectToken)
	v.SetDefault("auth.jwtSecret", d.JWTSecret)
	v.SetDefault("admin.user", d.AdminUser)
	v.SetDefault("admin.passwordHash", d.AdminPasswordHash)

	v.SetDefault("db.path", d.DBPath)
	v.SetDefault("log.level", d.LogLevel)

	v.SetEnvPrefix("arena")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("server.host", "ARENA_SERVER_HOST", "HOST"); err != nil {
		return Config{}, err
	}
	if err := v.BindEnv("server.port", "ARENA_SERVER_PORT", "PORT"); err != nil {
		return Config{}, err
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := Config{
		Host:      v.GetString("server.host"),
		Port:      v.GetInt("server.port"),
		ClientDir: v.GetString("server.clientDir"),
		PublicURL: v.GetString("server.publicURL"),

		WorldWidth:  v.GetFloat64("world.width"),
		WorldHeight: v.GetFloat64("world.height"),
		IslandCount: v.GetInt("world.islands"),
		Seed:        v.GetInt64("world.seed"),

		GracePeriod:       v.GetDuration("timing.gracePeriod"),
		HeartbeatInterval: v.GetDuration("timing.heartbeatInterval"),
		HeartbeatTimeout:  v.GetDuration("timing.heartbeatTimeout"),
		RespawnDelay:      v.GetDuration("timing.respawnDelay"),
		ShootCooldown:     v.GetDuration("timing.shootCooldown"),
		CollisionCooldown: v.GetDuration("timing.collisionCooldown"),

		Authoritative:         v.GetBool("sim.authoritative"),
		RequireReconnectToken: v.GetBool("auth.requireReconnectToken"),
		JWTSecret:             v.GetString("auth.jwtSecret"),
		AdminUser:             v.GetString("admin.user"),
		AdminPasswordHash:     v.GetString("admin.passwordHash"),

		DBPath:   v.GetString("db.path"),
		LogLevel: v.GetString("log.level"),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the relay cannot run with
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.WorldWidth <= 0 || c.WorldHeight <= 0 {
		return fmt.Errorf("invalid world size %.0fx%.0f", c.WorldWidth, c.WorldHeight)
	}
	if c.IslandCount < 0 {
		return fmt.Errorf("invalid island count %d", c.IslandCount)
	}
	if c.HeartbeatInterval <= 0 || c.HeartbeatTimeout <= 0 {
		return fmt.Errorf("heartbeat interval and timeout must be positive")
	}
	if c.GracePeriod < 0 || c.RespawnDelay < 0 || c.ShootCooldown < 0 || c.CollisionCooldown < 0 {
		return fmt.Errorf("timing values must not be negative")
	}
	return nil
}
