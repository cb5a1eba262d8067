package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// Config holds all application configuration
type Config struct {
	// Chain configuration
	EthereumRPCURL     string
	PlayGameAddress    string
	TokenStoreAddress  string
	StartBlock         uint64
	Confirmations      uint64
	BackfillChunkSize  uint64
	CheckpointInterval time.Duration
	GapTimeout         time.Duration
	GTDecimals         int32
	USDTDecimals       int32

	// Ingestion limits
	DedupRetentionBlocks uint64
	DedupMaxEntries      int
	PredecessorHorizon   time.Duration
	MaxPendingEvents     int
	EventBufferSize      int
	StaleAfter           time.Duration

	// HTTP
	HTTPPort int

	// Database configuration. Empty means in-memory only.
	DatabaseURL  string
	DatabaseName string

	// Discord configuration, optional
	DiscordToken          string
	DiscordGuildID        string
	DiscordAlertChannelID string

	// NATS servers for publishing updates, optional
	NATSURL string

	LogLevel    string
	Environment string // "development", "production" or "test"
}

var (
	instance *Config
	once     sync.Once
)

// Get returns the global configuration instance
func Get() *Config {
	once.Do(func() {
		var err error
		instance, err = Load()
		if err != nil {
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
	})
	return instance
}

// Load reads configuration from the environment, after applying a local
// .env file if one exists
func Load() (*Config, error) {
	if err := godotenv.Load(); err == nil {
		log.Debug("Loaded environment from .env")
	}

	config := &Config{
		EthereumRPCURL:    os.Getenv("ETHEREUM_RPC_URL"),
		PlayGameAddress:   strings.ToLower(strings.TrimSpace(os.Getenv("PLAY_GAME_ADDRESS"))),
		TokenStoreAddress: strings.ToLower(strings.TrimSpace(os.Getenv("TOKEN_STORE_ADDRESS"))),

		DatabaseURL:  os.Getenv("DATABASE_URL"),
		DatabaseName: os.Getenv("DATABASE_NAME"),

		DiscordToken:          os.Getenv("DISCORD_TOKEN"),
		DiscordGuildID:        os.Getenv("DISCORD_GUILD_ID"),
		DiscordAlertChannelID: os.Getenv("DISCORD_ALERT_CHANNEL_ID"),

		NATSURL: os.Getenv("NATS_URL"),

		LogLevel:    os.Getenv("LOG_LEVEL"),
		Environment: os.Getenv("ENVIRONMENT"),
	}

	p := parser{}
	config.StartBlock = p.uint64("START_BLOCK", 0)
	config.Confirmations = p.uint64("CONFIRMATIONS", 0)
	config.BackfillChunkSize = p.uint64("BACKFILL_CHUNK_SIZE", 2000)
	config.CheckpointInterval = p.duration("CHECKPOINT_INTERVAL", 30*time.Second)
	config.GapTimeout = p.duration("GAP_TIMEOUT", 10*time.Minute)
	config.GTDecimals = int32(p.int("GT_DECIMALS", 18))
	config.USDTDecimals = int32(p.int("USDT_DECIMALS", 6))
	config.DedupRetentionBlocks = p.uint64("DEDUP_RETENTION_BLOCKS", 10000)
	config.DedupMaxEntries = p.int("DEDUP_MAX_ENTRIES", 1000000)
	config.PredecessorHorizon = p.duration("PREDECESSOR_HORIZON", 5*time.Minute)
	config.MaxPendingEvents = p.int("MAX_PENDING_EVENTS", 10000)
	config.EventBufferSize = p.int("EVENT_BUFFER_SIZE", 1024)
	config.StaleAfter = p.duration("STALE_AFTER", 2*time.Minute)
	config.HTTPPort = p.int("HTTP_PORT", 3002)
	if p.err != nil {
		return nil, p.err
	}

	if config.Environment == "" {
		config.Environment = "development"
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}

	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) validate() error {
	if c.BackfillChunkSize == 0 {
		return fmt.Errorf("BACKFILL_CHUNK_SIZE must be positive")
	}
	if c.EventBufferSize <= 0 {
		return fmt.Errorf("EVENT_BUFFER_SIZE must be positive")
	}
	if c.DedupMaxEntries <= 0 {
		return fmt.Errorf("DEDUP_MAX_ENTRIES must be positive")
	}
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.HTTPPort)
	}
	if c.GTDecimals < 0 || c.USDTDecimals < 0 {
		return fmt.Errorf("token decimals must not be negative")
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	if c.DiscordAlertChannelID != "" && c.DiscordToken == "" {
		return fmt.Errorf("DISCORD_ALERT_CHANNEL_ID requires DISCORD_TOKEN")
	}

	if c.Environment == "test" {
		return nil
	}

	// Validate required configuration
	if c.EthereumRPCURL == "" {
		return fmt.Errorf("ETHEREUM_RPC_URL is required")
	}
	if !common.IsHexAddress(c.PlayGameAddress) {
		return fmt.Errorf("PLAY_GAME_ADDRESS must be a hex address, got %q", c.PlayGameAddress)
	}
	if !common.IsHexAddress(c.TokenStoreAddress) {
		return fmt.Errorf("TOKEN_STORE_ADDRESS must be a hex address, got %q", c.TokenStoreAddress)
	}
	return nil
}

// PersistenceEnabled reports whether a database is configured
func (c *Config) PersistenceEnabled() bool {
	return c.DatabaseURL != ""
}

// DiscordEnabled reports whether the Discord bot should start
func (c *Config) DiscordEnabled() bool {
	return c.DiscordToken != ""
}

// MessagingEnabled reports whether updates are published to NATS
func (c *Config) MessagingEnabled() bool {
	return c.NATSURL != ""
}

// parser keeps the first error across optional variables
type parser struct {
	err error
}

func (p *parser) lookup(key string) (string, bool) {
	if p.err != nil {
		return "", false
	}
	v := strings.TrimSpace(os.Getenv(key))
	return v, v != ""
}

func (p *parser) uint64(key string, def uint64) uint64 {
	v, ok := p.lookup(key)
	if !ok {
		return def
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		p.err = fmt.Errorf("invalid %s: %w", key, err)
		return def
	}
	return n
}

func (p *parser) int(key string, def int) int {
	v, ok := p.lookup(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.err = fmt.Errorf("invalid %s: %w", key, err)
		return def
	}
	return n
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	v, ok := p.lookup(key)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.err = fmt.Errorf("invalid %s: %w", key, err)
		return def
	}
	if d < 0 {
		p.err = fmt.Errorf("%s must not be negative", key)
		return def
	}
	return d
}
