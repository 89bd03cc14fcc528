package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gofiber/fiber/v2/log"
	"github.com/joho/godotenv"
)

const (
	NetworkSepolia   = "sepolia"
	NetworkSimulated = "simulated"
)

type Config struct {
	Env          string `env:"ENV" envDefault:"development"`
	Port         string `env:"PORT" envDefault:"443"`
	InsecureHTTP bool   `env:"SECRETCHAT_INSECURE_HTTP"`
	LogLevel     string `env:"SECRETCHAT_LOG_LEVEL" envDefault:"info"`

	Network         string `env:"SECRETCHAT_NETWORK" envDefault:"sepolia"`
	RPCURL          string `env:"SECRETCHAT_RPC_URL"`
	ChainID         int64  `env:"SECRETCHAT_CHAIN_ID" envDefault:"11155111"`
	ContractAddress string `env:"SECRETCHAT_CONTRACT_ADDRESS" envDefault:"0x1F1B4D5D42caFc496E81DBfbbF7285075be3a8FF"`
	PrivateKey      string `env:"SECRETCHAT_PRIVATE_KEY"`

	RelayerURL          string        `env:"SECRETCHAT_RELAYER_URL"`
	RelayerKeys         []string      `env:"SECRETCHAT_RELAYER_KEYS" envSeparator:","`
	RelayerTimeout      time.Duration `env:"SECRETCHAT_RELAYER_TIMEOUT" envDefault:"30s"`
	DecryptionAddress   string        `env:"SECRETCHAT_DECRYPTION_ADDRESS" envDefault:"0xb6E160B1ff80D67Bfe90A85eE06Ce0A2613607D1"`
	DecryptDurationDays int           `env:"SECRETCHAT_DECRYPT_DURATION_DAYS" envDefault:"7"`
	DecryptCacheSize    int           `env:"SECRETCHAT_DECRYPT_CACHE_SIZE" envDefault:"1024"`

	APIKeys        []string `env:"SECRETCHAT_API_KEYS" envSeparator:","`
	StorageBackend string   `env:"SECRETCHAT_STORAGE_BACKEND" envDefault:"memory"`
	MongoURL       string   `env:"SECRETCHAT_MONGO_URL"`
}

// LoadEnv loads the .env cascade for $ENV without overriding variables that
// are already set.
func LoadEnv() {
	if _, ok := os.LookupEnv("ENV"); !ok {
		os.Setenv("ENV", "development")
	}

	e := os.Getenv("ENV")
	for _, filename := range []string{".env." + e + ".local", ".env." + e, ".env.local", ".env"} {
		if s, err := os.Stat(filename); err == nil && !s.IsDir() {
			if err := godotenv.Load(filename); err != nil {
				log.Warnf("unable to load %s: %v", filename, err)
			}
		}
	}
}

// Parse reads the configuration from environment, or from the process
// environment when environment is nil.
func Parse(environment map[string]string) (Config, error) {
	var cfg Config

	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environment}); err != nil {
		return Config{}, fmt.Errorf("error getting env configs: %w", err)
	} else if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Network {
	case NetworkSepolia, NetworkSimulated:
	default:
		return fmt.Errorf("invalid network: %q, set SECRETCHAT_NETWORK to %s or %s", c.Network, NetworkSepolia, NetworkSimulated)
	}

	if c.ChainID <= 0 {
		return fmt.Errorf("invalid chain id: %d", c.ChainID)
	} else if !common.IsHexAddress(c.ContractAddress) {
		return fmt.Errorf("invalid contract address: %q", c.ContractAddress)
	} else if c.DecryptionAddress != "" && !common.IsHexAddress(c.DecryptionAddress) {
		return fmt.Errorf("invalid decryption address: %q", c.DecryptionAddress)
	} else if c.DecryptDurationDays <= 0 {
		return fmt.Errorf("decrypt duration must be at least one day, got %d", c.DecryptDurationDays)
	} else if c.DecryptCacheSize <= 0 {
		return fmt.Errorf("decrypt cache size must be positive, got %d", c.DecryptCacheSize)
	} else if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}

	return nil
}

func (c Config) Contract() common.Address {
	return common.HexToAddress(c.ContractAddress)
}

func ParseLogLevel(level string) (log.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return log.LevelTrace, nil
	case "debug":
		return log.LevelDebug, nil
	case "", "info":
		return log.LevelInfo, nil
	case "warn", "warning":
		return log.LevelWarn, nil
	case "error":
		return log.LevelError, nil
	default:
		return log.LevelInfo, fmt.Errorf("invalid log level: %q", level)
	}
}
