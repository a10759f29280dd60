package config

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/keshon/server-herald/internal/commandsync"
)

// AppName is used in logs and the bot's presence.
const AppName = "Server Herald"

// Config is read once at startup and never mutated afterwards.
type Config struct {
	DiscordToken  string `env:"DISCORD_TOKEN,required,notEmpty"`
	StorageDSN    string `env:"STORAGE_DSN" envDefault:"data/usage.db"`
	BlacklistPath string `env:"BLACKLIST_PATH" envDefault:"data/blacklist.yaml"`

	RegisterGlobal bool          `env:"REGISTER_GLOBAL"`
	RegisterGuilds []string      `env:"REGISTER_GUILDS" envSeparator:","`
	SyncOnStartup  bool          `env:"SYNC_ON_STARTUP" envDefault:"true"`
	SyncRateQuota  int           `env:"SYNC_RATE_QUOTA" envDefault:"5"`
	SyncRateWindow time.Duration `env:"SYNC_RATE_WINDOW" envDefault:"5s"`

	DefaultCooldown       time.Duration `env:"DEFAULT_COOLDOWN" envDefault:"3s"`
	CooldownSweepInterval time.Duration `env:"COOLDOWN_SWEEP_INTERVAL" envDefault:"1m"`
	OwnerIDs              []string      `env:"OWNER_IDS" envSeparator:","`
	OwnerCommandPrefix    string        `env:"OWNER_COMMAND_PREFIX" envDefault:"dev-"`
	BlacklistCacheTTL     time.Duration `env:"BLACKLIST_CACHE_TTL" envDefault:"5m"`

	AckTimeout  time.Duration `env:"ACK_TIMEOUT" envDefault:"2s"`
	ExecTimeout time.Duration `env:"EXEC_TIMEOUT" envDefault:"15m"`
}

// Load reads a .env file if one exists, then the environment.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil {
		log.Println("[INFO] No .env file found, falling back to system environment variables")
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if err := c.SyncPlan().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("REGISTER_GLOBAL and REGISTER_GUILDS: %w", err))
	}
	if c.SyncRateQuota < 1 {
		errs = append(errs, errors.New("SYNC_RATE_QUOTA must be at least 1"))
	}
	if c.SyncRateWindow <= 0 {
		errs = append(errs, errors.New("SYNC_RATE_WINDOW must be positive"))
	}
	if c.AckTimeout <= 0 || c.AckTimeout >= 3*time.Second {
		errs = append(errs, errors.New("ACK_TIMEOUT must be between 0 and 3s"))
	}
	if c.DefaultCooldown < 0 {
		errs = append(errs, errors.New("DEFAULT_COOLDOWN cannot be negative"))
	}
	return errors.Join(errs...)
}

// SyncPlan is the registration scope assignment the synchronizer enforces.
func (c *Config) SyncPlan() commandsync.Plan {
	return commandsync.Plan{Global: c.RegisterGlobal, Guilds: c.RegisterGuilds}
}
