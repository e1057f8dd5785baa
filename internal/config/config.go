package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server     Server     `yaml:"server"`
	Database   Database   `yaml:"database"`
	Session    Session    `yaml:"session"`
	Log        Log        `yaml:"log"`
	Auth       Auth       `yaml:"auth"`
	Tournament Tournament `yaml:"tournament"`
	Rating     Rating     `yaml:"rating"`
}

type Server struct {
	Addr string `yaml:"addr"`
}

type Database struct {
	Path string `yaml:"path"`
}

type Session struct {
	Lifetime time.Duration `yaml:"lifetime"`
}

type Log struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// Auth holds the OAuth client of each login provider. A provider without a key is disabled.
type Auth struct {
	Discord OAuthProvider `yaml:"discord"`
	Google  OAuthProvider `yaml:"google"`
}

type OAuthProvider struct {
	Key         string `yaml:"key"`
	Secret      string `yaml:"secret"`
	CallbackURL string `yaml:"callback_url"`
}

// Tournament holds the thresholds the stage machine and bracket builder work with.
type Tournament struct {
	// Tournaments with at most this many participants skip the group stages.
	EliminationThreshold int `yaml:"elimination_threshold"`
	// Group stages hand over to elimination once this many players or fewer compete.
	GroupStageThreshold int `yaml:"group_stage_threshold"`
	SmallGroupSize      int `yaml:"small_group_size"`
	LargeGroupSize      int `yaml:"large_group_size"`
	QualifiersPerGroup  int `yaml:"qualifiers_per_group"`
}

type Rating struct {
	Baseline float64 `yaml:"baseline"`
	KFactor  float64 `yaml:"k_factor"`
}

func Default() Config {
	return Config{
		Server:   Server{Addr: ":8080"},
		Database: Database{Path: "chess_club.db"},
		Session:  Session{Lifetime: 24 * time.Hour},
		Log:      Log{Level: "info"},
		Tournament: Tournament{
			EliminationThreshold: 16,
			GroupStageThreshold:  32,
			SmallGroupSize:       4,
			LargeGroupSize:       6,
			QualifiersPerGroup:   2,
		},
		Rating: Rating{Baseline: 1000, KFactor: 32},
	}
}

// Load builds the configuration from defaults, an optional YAML file at path and the
// environment, in that order. A missing .env or config file is not an error.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	if v := os.Getenv("SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	overrideProvider(&cfg.Auth.Discord, "DISCORD")
	overrideProvider(&cfg.Auth.Google, "GOOGLE")
	if v := os.Getenv("SESSION_LIFETIME"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid SESSION_LIFETIME: %w", err)
		}
		cfg.Session.Lifetime = d
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func overrideProvider(p *OAuthProvider, prefix string) {
	if v := os.Getenv(prefix + "_KEY"); v != "" {
		p.Key = v
	}
	if v := os.Getenv(prefix + "_SECRET"); v != "" {
		p.Secret = v
	}
	if v := os.Getenv(prefix + "_CALLBACK_URL"); v != "" {
		p.CallbackURL = v
	}
}

func (c *Config) Validate() error {
	t := c.Tournament
	if t.EliminationThreshold < 2 {
		return fmt.Errorf("tournament.elimination_threshold must be at least 2, got %d", t.EliminationThreshold)
	}
	if t.GroupStageThreshold < t.EliminationThreshold {
		return fmt.Errorf("tournament.group_stage_threshold must not be below elimination_threshold")
	}
	if t.QualifiersPerGroup < 1 {
		return fmt.Errorf("tournament.qualifiers_per_group must be positive, got %d", t.QualifiersPerGroup)
	}
	if t.SmallGroupSize <= t.QualifiersPerGroup || t.LargeGroupSize < t.SmallGroupSize {
		return fmt.Errorf("tournament group sizes must exceed qualifiers_per_group and large_group_size must not be below small_group_size")
	}
	if c.Rating.KFactor <= 0 {
		return fmt.Errorf("rating.k_factor must be positive, got %v", c.Rating.KFactor)
	}
	for name, p := range map[string]OAuthProvider{"discord": c.Auth.Discord, "google": c.Auth.Google} {
		if p.Key != "" && (p.Secret == "" || p.CallbackURL == "") {
			return fmt.Errorf("auth.%s needs a secret and a callback_url", name)
		}
	}
	if c.Session.Lifetime <= 0 {
		return fmt.Errorf("session.lifetime must be positive")
	}
	return nil
}
