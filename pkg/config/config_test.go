package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gofiber/fiber/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse(map[string]string{})
	require.NoError(t, err)

	assert.Equal(t, "443", cfg.Port)
	assert.Equal(t, NetworkSepolia, cfg.Network)
	assert.Equal(t, int64(11155111), cfg.ChainID)
	assert.Equal(t, common.HexToAddress("0x1F1B4D5D42caFc496E81DBfbbF7285075be3a8FF"), cfg.Contract())
	assert.Equal(t, 7, cfg.DecryptDurationDays)
	assert.Equal(t, 1024, cfg.DecryptCacheSize)
	assert.Equal(t, 30*time.Second, cfg.RelayerTimeout)
	assert.Equal(t, "memory", cfg.StorageBackend)
	assert.Empty(t, cfg.APIKeys)
}

func TestParse_AllFields(t *testing.T) {
	cfg, err := Parse(map[string]string{
		"PORT":                             "8080",
		"SECRETCHAT_INSECURE_HTTP":         "true",
		"SECRETCHAT_NETWORK":               "simulated",
		"SECRETCHAT_RPC_URL":               "http://localhost:8545",
		"SECRETCHAT_CHAIN_ID":              "31337",
		"SECRETCHAT_CONTRACT_ADDRESS":      "0x00000000000000000000000000000000000000c0",
		"SECRETCHAT_RELAYER_URL":           "https://relayer.example",
		"SECRETCHAT_RELAYER_KEYS":          "a,b",
		"SECRETCHAT_RELAYER_TIMEOUT":       "5s",
		"SECRETCHAT_DECRYPT_DURATION_DAYS": "1",
		"SECRETCHAT_DECRYPT_CACHE_SIZE":    "16",
		"SECRETCHAT_API_KEYS":              "k1,k2",
		"SECRETCHAT_STORAGE_BACKEND":       "mongo",
		"SECRETCHAT_MONGO_URL":             "mongodb://localhost/secretchat",
		"SECRETCHAT_LOG_LEVEL":             "debug",
	})
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.True(t, cfg.InsecureHTTP)
	assert.Equal(t, NetworkSimulated, cfg.Network)
	assert.Equal(t, int64(31337), cfg.ChainID)
	assert.Equal(t, []string{"a", "b"}, cfg.RelayerKeys)
	assert.Equal(t, 5*time.Second, cfg.RelayerTimeout)
	assert.Equal(t, 1, cfg.DecryptDurationDays)
	assert.Equal(t, 16, cfg.DecryptCacheSize)
	assert.Equal(t, []string{"k1", "k2"}, cfg.APIKeys)
	assert.Equal(t, "mongo", cfg.StorageBackend)
	assert.Equal(t, "mongodb://localhost/secretchat", cfg.MongoURL)
}

func TestParse_Invalid(t *testing.T) {
	for name, environment := range map[string]map[string]string{
		"network":   {"SECRETCHAT_NETWORK": "mainnet"},
		"chain id":  {"SECRETCHAT_CHAIN_ID": "0"},
		"contract":  {"SECRETCHAT_CONTRACT_ADDRESS": "0x1234"},
		"duration":  {"SECRETCHAT_DECRYPT_DURATION_DAYS": "0"},
		"cache":     {"SECRETCHAT_DECRYPT_CACHE_SIZE": "-1"},
		"log level": {"SECRETCHAT_LOG_LEVEL": "loud"},
		"not a int": {"SECRETCHAT_CHAIN_ID": "sepolia"},
	} {
		_, err := Parse(environment)
		assert.Error(t, err, name)
	}
}

func TestParseLogLevel(t *testing.T) {
	level, err := ParseLogLevel("WARN")
	require.NoError(t, err)
	assert.Equal(t, log.LevelWarn, level)

	level, err = ParseLogLevel("")
	require.NoError(t, err)
	assert.Equal(t, log.LevelInfo, level)
}

func TestLoadEnv_Cascade(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(wd) })

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env.test.local"), []byte("SECRETCHAT_TEST_CASCADE=local\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("SECRETCHAT_TEST_CASCADE=base\nSECRETCHAT_TEST_BASE=1\n"), 0o600))

	t.Setenv("ENV", "test")
	t.Setenv("SECRETCHAT_TEST_CASCADE", "")
	os.Unsetenv("SECRETCHAT_TEST_CASCADE")
	t.Cleanup(func() { os.Unsetenv("SECRETCHAT_TEST_BASE") })

	LoadEnv()

	assert.Equal(t, "local", os.Getenv("SECRETCHAT_TEST_CASCADE"))
	assert.Equal(t, "1", os.Getenv("SECRETCHAT_TEST_BASE"))
}
