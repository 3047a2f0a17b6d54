package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"condo/internal/condominium/models"
	"condo/internal/residence"
	id "condo/pkg/domain"
)

// devSigningKey is used when CONDO_JWT_SIGNING_KEY is unset.
const devSigningKey = "dev-secret-key-change-in-production"

// Server captures HTTP server level configuration.
type Server struct {
	Addr          string        `env:"CONDO_ADDR"            envDefault:":8080"`
	JWTSigningKey string        `env:"CONDO_JWT_SIGNING_KEY" envDefault:"dev-secret-key-change-in-production"`
	TokenTTL      time.Duration `env:"CONDO_TOKEN_TTL"       envDefault:"1h"`
	Debug         bool          `env:"CONDO_DEBUG"`

	// RateLimit is requests per caller per RateLimitWindow; 0 disables it.
	RateLimit       int           `env:"CONDO_RATE_LIMIT"        envDefault:"120"`
	RateLimitWindow time.Duration `env:"CONDO_RATE_LIMIT_WINDOW" envDefault:"1m"`
}

// RedisConfig configures the optional Redis client.
type RedisConfig struct {
	URL          string        `env:"CONDO_REDIS_URL"`
	PoolSize     int           `env:"CONDO_REDIS_POOL_SIZE"      envDefault:"10"`
	MinIdleConns int           `env:"CONDO_REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"CONDO_REDIS_DIAL_TIMEOUT"   envDefault:"5s"`
	ReadTimeout  time.Duration `env:"CONDO_REDIS_READ_TIMEOUT"   envDefault:"3s"`
	WriteTimeout time.Duration `env:"CONDO_REDIS_WRITE_TIMEOUT"  envDefault:"3s"`
}

// PostgresConfig configures the optional database.
type PostgresConfig struct {
	URL          string        `env:"CONDO_DATABASE_URL"`
	MaxOpenConns int           `env:"CONDO_DATABASE_MAX_OPEN_CONNS" envDefault:"10"`
	MaxIdleConns int           `env:"CONDO_DATABASE_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLife  time.Duration `env:"CONDO_DATABASE_CONN_MAX_LIFE"  envDefault:"30m"`
}

// KafkaConfig configures the optional event stream.
type KafkaConfig struct {
	Brokers []string `env:"CONDO_KAFKA_BROKERS" envSeparator:","`
	Topic   string   `env:"CONDO_KAFKA_TOPIC"   envDefault:"condo.events"`
}

// Condominium holds the deploy-time parameters of new backends.
type Condominium struct {
	Owner         string        `env:"CONDO_OWNER"`
	AutoDeploy    bool          `env:"CONDO_AUTO_DEPLOY"       envDefault:"true"`
	Blocks        int           `env:"CONDO_BLOCKS"            envDefault:"2"`
	Floors        int           `env:"CONDO_FLOORS"            envDefault:"4"`
	UnitsPerFloor int           `env:"CONDO_UNITS_PER_FLOOR"   envDefault:"5"`
	MonthlyQuota  id.Amount     `env:"CONDO_MONTHLY_QUOTA"     envDefault:"10000000000000000"`
	QuotaPeriod   time.Duration `env:"CONDO_QUOTA_PERIOD"      envDefault:"720h"`

	DecisionQuorumFloor    int `env:"CONDO_QUORUM_DECISION_FLOOR"     envDefault:"5"`
	SpentQuorumFloor       int `env:"CONDO_QUORUM_SPENT_FLOOR"        envDefault:"10"`
	ChangeManagerQuorumBps int `env:"CONDO_QUORUM_CHANGE_MANAGER_BPS" envDefault:"3750"`
	ChangeQuotaQuorumBps   int `env:"CONDO_QUORUM_CHANGE_QUOTA_BPS"   envDefault:"5000"`
}

// Config is the full process configuration.
type Config struct {
	Server      Server
	Redis       RedisConfig
	Postgres    PostgresConfig
	Kafka       KafkaConfig
	Condominium Condominium
}

// Load reads an optional .env file and then the process environment.
// Variables already set in the environment win over the file.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints env tags cannot express.
func (c Config) Validate() error {
	if c.Server.JWTSigningKey == "" {
		return errors.New("CONDO_JWT_SIGNING_KEY must not be empty")
	}
	if err := c.Condominium.Layout().Validate(); err != nil {
		return err
	}
	if c.Condominium.QuotaPeriod <= 0 {
		return errors.New("CONDO_QUOTA_PERIOD must be positive")
	}
	if c.Condominium.Owner != "" {
		if _, err := id.ParseParticipantID(c.Condominium.Owner); err != nil {
			return fmt.Errorf("CONDO_OWNER: %w", err)
		}
	}
	return c.Condominium.Quorum().Validate()
}

// UsingDevSigningKey reports whether the built-in development key is active.
func (s Server) UsingDevSigningKey() bool {
	return s.JWTSigningKey == devSigningKey
}

// Layout returns the residence directory shape.
func (c Condominium) Layout() residence.Layout {
	return residence.Layout{Blocks: c.Blocks, Floors: c.Floors, UnitsPerFloor: c.UnitsPerFloor}
}

// Quorum returns the configured quorum policy.
func (c Condominium) Quorum() models.QuorumPolicy {
	return models.QuorumPolicy{
		models.CategoryDecision:      {Floor: c.DecisionQuorumFloor},
		models.CategorySpent:         {Floor: c.SpentQuorumFloor},
		models.CategoryChangeManager: {Bps: c.ChangeManagerQuorumBps},
		models.CategoryChangeQuota:   {Bps: c.ChangeQuotaQuorumBps},
	}
}
