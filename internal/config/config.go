// Package config loads the broker's environment-driven configuration,
// following the teacher's config.Load() shape.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"matchbroker/internal/logging"
)

var log = logging.For("config")

func init() {
	if err := godotenv.Load(); err != nil {
		log.Debug("no .env file found, relying on process environment")
	}
}

// Config holds every recognized environment option from spec §6 plus the
// ambient/domain-stack additions from SPEC_FULL.md §6.
type Config struct {
	Port         string
	SocketIOPath string

	RedisURL string
	MongoURL string
	MongoDB  string

	GameTurnURL       string
	GameTurnSecret    string
	VideoTurnURL      string
	VideoTurnSecret   string

	MatchmakingServerKey string
	JWTSecret            string

	ProfileServiceURL   string
	ProfileServiceToken string

	TickInterval      time.Duration
	TickLeaseTTL      time.Duration
	MatchBatchSize    int
	PendingRoomTTL    time.Duration
	ReaperInterval    time.Duration
}

// Load reads the process environment (after an optional .env is merged by
// init) into a Config, applying the spec's nominal defaults.
func Load() *Config {
	return &Config{
		Port:         getEnv("PORT", "8080"),
		SocketIOPath: getEnv("SOCKET_IO_PATH", "/socket.io"),

		RedisURL: os.Getenv("REDIS_URL"),
		MongoURL: getEnv("MONGO_URL", "mongodb://localhost:27017"),
		MongoDB:  getEnv("MONGO_DB", "matchbroker"),

		GameTurnURL:     os.Getenv("GAME_TURN_URL"),
		GameTurnSecret:  os.Getenv("GAME_TURN_SECRET"),
		VideoTurnURL:    os.Getenv("VIDEO_TURN_URL"),
		VideoTurnSecret: os.Getenv("VIDEO_TURN_SECRET"),

		MatchmakingServerKey: os.Getenv("MATCHMAKING_SERVER_KEY"),
		JWTSecret:            getEnv("JWT_SECRET", "super-secret-key-change-in-production"),

		ProfileServiceURL:   os.Getenv("PROFILE_SERVICE_URL"),
		ProfileServiceToken: os.Getenv("PROFILE_SERVICE_TOKEN"),

		TickInterval:   getEnvDuration("TICK_INTERVAL_MS", 2000),
		TickLeaseTTL:   getEnvDuration("TICK_LEASE_TTL_MS", 3000),
		MatchBatchSize: getEnvInt("MATCH_BATCH_SIZE", 100),
		PendingRoomTTL: getEnvSeconds("PENDING_ROOM_TTL_SEC", 30),
		ReaperInterval: getEnvSeconds("REAPER_INTERVAL_SEC", 5),
	}
}

// SingleNode reports whether REDIS_URL is unset. Only fan-out changes in
// that case (it delivers locally instead of over pub/sub); the stores and
// the tick lease still use Redis, at localhost:6379.
func (c *Config) SingleNode() bool {
	return strings.TrimSpace(c.RedisURL) == ""
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvDuration(key string, defMillis int) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return time.Duration(n) * time.Millisecond
		}
	}
	return time.Duration(defMillis) * time.Millisecond
}

func getEnvSeconds(key string, defSeconds int) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return time.Duration(n) * time.Second
		}
	}
	return time.Duration(defSeconds) * time.Second
}
