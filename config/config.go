package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"

	"randomnft/crypto"
)

const (
	OracleModeMock    = "mock"
	OracleModeWebhook = "webhook"
)

// placeholderTokenURI stands in until `nftctl upload` pins the collection.
const placeholderTokenURI = "https://ipfs.io/ipfs/QmYwAPJzv5CZsnA8DzPAg8ePQZkzRcY5zT2hcVLDV7xymu"

type Config struct {
	ListenAddress string `toml:"ListenAddress"`
	DataDir       string `toml:"DataDir"`
	DBBackend     string `toml:"DBBackend"`
	Network       string `toml:"Network"`

	Mint      Mint      `toml:"Mint"`
	Oracle    Oracle    `toml:"Oracle"`
	Auth      Auth      `toml:"Auth"`
	RateLimit RateLimit `toml:"RateLimit"`
	Logging   Logging   `toml:"Logging"`
	Telemetry Telemetry `toml:"Telemetry"`
	Indexer   Indexer   `toml:"Indexer"`
	Notify    Notify    `toml:"Notify"`
}

// Load loads the configuration from the given path. A missing file is
// replaced by a freshly generated local configuration.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	cfg.applyNetworkDefaults()

	if cfg.Oracle.Mode == OracleModeMock {
		if err := ensureKeystore(path, cfg); err != nil {
			return nil, err
		}
	}
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (cfg *Config) applyNetworkDefaults() {
	if strings.TrimSpace(cfg.Network) == "" {
		cfg.Network = "local"
	}
	if strings.TrimSpace(cfg.DBBackend) == "" {
		cfg.DBBackend = "leveldb"
	}
	if strings.TrimSpace(cfg.Oracle.Mode) == "" {
		cfg.Oracle.Mode = OracleModeMock
	}
	preset, ok := Networks[cfg.Network]
	if !ok {
		return
	}
	if cfg.Mint.Fee == "" {
		cfg.Mint.Fee = preset.MintFee
	}
	if cfg.Oracle.GasLane == "" {
		cfg.Oracle.GasLane = preset.GasLane
	}
	if cfg.Oracle.CallbackGasLimit == 0 {
		cfg.Oracle.CallbackGasLimit = preset.CallbackGasLimit
	}
	if cfg.Oracle.SubscriptionFund == "" {
		cfg.Oracle.SubscriptionFund = preset.SubscriptionFund
	}
	if cfg.Oracle.NumWords == 0 {
		cfg.Oracle.NumWords = 1
	}
	if cfg.Oracle.MinConfirmations == 0 {
		cfg.Oracle.MinConfirmations = 3
	}
	if cfg.Oracle.Mode == OracleModeWebhook {
		if cfg.Oracle.Coordinator == "" {
			cfg.Oracle.Coordinator = preset.Coordinator
		}
		if cfg.Oracle.SubscriptionID == 0 {
			cfg.Oracle.SubscriptionID = preset.SubscriptionID
		}
	}
}

// Passphrase returns the coordinator keystore passphrase from the configured
// environment variable.
func (cfg *Config) Passphrase() string {
	if cfg.Oracle.PassphraseEnv == "" {
		return ""
	}
	return os.Getenv(cfg.Oracle.PassphraseEnv)
}

func ensureKeystore(configPath string, cfg *Config) error {
	keystorePath := cfg.Oracle.KeystorePath
	if keystorePath == "" {
		keystorePath = defaultKeystorePath(configPath)
	}

	if _, err := os.Stat(keystorePath); os.IsNotExist(err) {
		if _, err := crypto.CreateKeystore(keystorePath, cfg.Passphrase()); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	if cfg.Oracle.KeystorePath != keystorePath {
		cfg.Oracle.KeystorePath = keystorePath
		return persist(configPath, cfg)
	}
	return nil
}

// createDefault creates and saves a default configuration file for the local
// network. The generated coordinator key also owns the treasury.
func createDefault(path string) (*Config, error) {
	keystorePath := defaultKeystorePath(path)
	var owner common.Address
	key, err := crypto.CreateKeystore(keystorePath, "")
	switch {
	case err == nil:
		owner = key.Address()
	case errors.Is(err, crypto.ErrKeystoreExists):
		if owner, err = crypto.KeystoreAddress(keystorePath); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	cfg := &Config{
		ListenAddress: ":8080",
		DataDir:       "./randomnft-data",
		DBBackend:     "leveldb",
		Network:       "local",
		Mint: Mint{
			Owner:              crypto.FormatAddress(owner),
			CategoryBoundaries: []uint64{10, 30, 100},
			TokenURIs: []string{
				placeholderTokenURI,
				placeholderTokenURI,
				placeholderTokenURI,
			},
			FaucetAmount: "1000000000000000000",
		},
		Oracle: Oracle{
			Mode:                OracleModeMock,
			KeystorePath:        keystorePath,
			SubscriptionID:      1,
			FulfillDelaySeconds: 2,
			RatePerSecond:       5,
		},
		Auth: Auth{
			HMACSecretEnv:   "RANDOMNFT_JWT_SECRET",
			Issuer:          "randomnft",
			Audience:        "randomnft-api",
			TokenTTLSeconds: 3600,
		},
		RateLimit: RateLimit{RequestsPerSecond: 10, Burst: 20},
		Logging:   Logging{Env: "local"},
	}
	cfg.applyNetworkDefaults()

	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

// Save writes cfg back to path.
func Save(path string, cfg *Config) error {
	return persist(path, cfg)
}

func defaultKeystorePath(configPath string) string {
	dir := filepath.Dir(configPath)
	if dir == "." || dir == "" {
		dir = ""
	}
	return filepath.Join(dir, "coordinator.keystore")
}
