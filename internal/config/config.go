// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ericfisherdev/forumfilter/internal/domain/model"
)

// Store backends selectable with FORUMFILTER_STORE.
const (
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	ListenAddr string
	Store      string
	DBPath     string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string

	UpstreamURL string
	ForumDomain string
	ReflowDelay time.Duration
	Sanitize    bool
	Profile     model.Profile

	// HostURL is the content host forumctl talks to.
	HostURL string
}

// Load reads configuration from environment variables and returns a validated Config.
// Every variable is optional:
// FORUMFILTER_LISTEN_ADDR (127.0.0.1:8080), FORUMFILTER_STORE (sqlite),
// FORUMFILTER_DB_PATH (forumfilter.db), FORUMFILTER_REDIS_ADDR (localhost:6379),
// FORUMFILTER_REDIS_PASSWORD, FORUMFILTER_REDIS_DB (0),
// FORUMFILTER_REDIS_PREFIX (forumfilter:), FORUMFILTER_UPSTREAM_URL
// (https://www.flashback.org), FORUMFILTER_FORUM_DOMAIN (flashback.org),
// FORUMFILTER_REFLOW_DELAY (150ms), FORUMFILTER_PROFILE (built-in profile),
// FORUMFILTER_SANITIZE (true), FORUMFILTER_HOST_URL (http://127.0.0.1:8080).
func Load() (*Config, error) {
	cfg := &Config{
		ListenAddr:    envOr("FORUMFILTER_LISTEN_ADDR", "127.0.0.1:8080"),
		Store:         strings.ToLower(envOr("FORUMFILTER_STORE", StoreSQLite)),
		DBPath:        envOr("FORUMFILTER_DB_PATH", "forumfilter.db"),
		RedisAddr:     envOr("FORUMFILTER_REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("FORUMFILTER_REDIS_PASSWORD"),
		RedisPrefix:   envOr("FORUMFILTER_REDIS_PREFIX", "forumfilter:"),
		UpstreamURL:   strings.TrimRight(envOr("FORUMFILTER_UPSTREAM_URL", "https://www.flashback.org"), "/"),
		ForumDomain:   envOr("FORUMFILTER_FORUM_DOMAIN", "flashback.org"),
		ReflowDelay:   150 * time.Millisecond,
		Sanitize:      true,
		Profile:       model.DefaultProfile(),
		HostURL:       strings.TrimRight(envOr("FORUMFILTER_HOST_URL", "http://127.0.0.1:8080"), "/"),
	}

	switch cfg.Store {
	case StoreSQLite, StoreRedis, StoreMemory:
	default:
		return nil, fmt.Errorf("FORUMFILTER_STORE has unknown backend %q", cfg.Store)
	}

	if v, ok := os.LookupEnv("FORUMFILTER_REDIS_DB"); ok {
		db, err := strconv.Atoi(v)
		if err != nil || db < 0 {
			return nil, fmt.Errorf("FORUMFILTER_REDIS_DB has invalid database number %q", v)
		}
		cfg.RedisDB = db
	}

	if v, ok := os.LookupEnv("FORUMFILTER_REFLOW_DELAY"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("FORUMFILTER_REFLOW_DELAY has invalid duration %q: %w", v, err)
		}
		if d < 0 {
			return nil, fmt.Errorf("FORUMFILTER_REFLOW_DELAY must not be negative, got %s", d)
		}
		cfg.ReflowDelay = d
	}

	if v, ok := os.LookupEnv("FORUMFILTER_SANITIZE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("FORUMFILTER_SANITIZE has invalid boolean %q: %w", v, err)
		}
		cfg.Sanitize = b
	}

	u, err := url.Parse(cfg.UpstreamURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("FORUMFILTER_UPSTREAM_URL must be an absolute URL, got %q", cfg.UpstreamURL)
	}

	if path := os.Getenv("FORUMFILTER_PROFILE"); path != "" {
		p, err := LoadProfile(path)
		if err != nil {
			return nil, fmt.Errorf("FORUMFILTER_PROFILE: %w", err)
		}
		cfg.Profile = p
	}

	return cfg, nil
}

// LoadProfile reads a YAML forum profile. Fields the file leaves out keep
// the built-in defaults.
func LoadProfile(path string) (model.Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Profile{}, fmt.Errorf("reading profile: %w", err)
	}
	return ParseProfile(data)
}

// ParseProfile decodes a YAML profile over model.DefaultProfile.
func ParseProfile(data []byte) (model.Profile, error) {
	p := model.DefaultProfile()
	if err := yaml.Unmarshal(data, &p); err != nil {
		return model.Profile{}, fmt.Errorf("decoding profile: %w", err)
	}
	return p, nil
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
