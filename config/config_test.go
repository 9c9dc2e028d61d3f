package config

import (
	"context"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"randomnft/core/state"
	"randomnft/crypto"
	"randomnft/native/randomnft"
	"randomnft/storage"
)

const webhookConfig = `ListenAddress = ":9000"
DataDir = "./data"
DBBackend = "bolt"
Network = "rinkeby"

[Mint]
Owner = "0x00000000000000000000000000000000000000aa"
CategoryBoundaries = [10, 30, 100]
TokenURIs = ["ipfs://a", "ipfs://b", "ipfs://c"]

[Oracle]
Mode = "webhook"
Coordinator = "0x00000000000000000000000000000000000000cc"
WebhookURL = "https://oracle.example/requests"
SubscriptionID = 7

[Auth]
HMACSecret = "inline-secret"
Issuer = "randomnft"
Audience = "randomnft-api"
`

func TestLoadCreatesDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	if _, err := os.Stat(cfg.Oracle.KeystorePath); err != nil {
		t.Fatalf("keystore not written: %v", err)
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Mint.Fee != "10000000000000000" {
		t.Fatalf("unexpected default fee: %s", cfg.Mint.Fee)
	}

	key, err := crypto.LoadFromKeystore(cfg.Oracle.KeystorePath, "")
	if err != nil {
		t.Fatalf("load keystore: %v", err)
	}
	if crypto.FormatAddress(key.Address()) != cfg.Mint.Owner {
		t.Fatalf("owner %s does not match generated key %s", cfg.Mint.Owner, key.Address())
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Mint.Owner != cfg.Mint.Owner || reloaded.Oracle.KeystorePath != cfg.Oracle.KeystorePath {
		t.Fatalf("reload mismatch: %+v vs %+v", reloaded.Mint, cfg.Mint)
	}
}

func TestLoadAppliesNetworkPreset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(webhookConfig), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Mint.Fee != Networks["rinkeby"].MintFee {
		t.Fatalf("fee not defaulted: %q", cfg.Mint.Fee)
	}
	if cfg.Oracle.CallbackGasLimit != 500000 || cfg.Oracle.NumWords != 1 {
		t.Fatalf("oracle defaults not applied: %+v", cfg.Oracle)
	}

	params, err := cfg.LedgerParams([20]byte{0xcc})
	if err != nil {
		t.Fatalf("ledger params: %v", err)
	}
	if params.MintFee.String() != "10000000000000000" || params.Owner != ([20]byte(common.HexToAddress("0xaa"))) {
		t.Fatalf("unexpected params: %+v", params)
	}
	settings := cfg.OracleSettings(common.Address{0x01})
	if settings.SubscriptionID != 7 || settings.KeyHash != common.HexToHash(Networks["rinkeby"].GasLane) {
		t.Fatalf("unexpected oracle settings: %+v", settings)
	}
	secret, err := cfg.JWTSecret()
	if err != nil || string(secret) != "inline-secret" {
		t.Fatalf("unexpected secret %q: %v", secret, err)
	}
}

func TestJWTSecretPrefersEnvironment(t *testing.T) {
	t.Setenv("RANDOMNFT_TEST_SECRET", "from-env")
	cfg := &Config{Auth: Auth{HMACSecret: "inline", HMACSecretEnv: "RANDOMNFT_TEST_SECRET"}}
	secret, err := cfg.JWTSecret()
	if err != nil || string(secret) != "from-env" {
		t.Fatalf("unexpected secret %q: %v", secret, err)
	}
	if _, err := (&Config{}).JWTSecret(); err == nil {
		t.Fatalf("expected error without secret")
	}
}

func TestValidateRejectsBadConfig(t *testing.T) {
	base := func() *Config {
		cfg := &Config{
			Network:   "local",
			DBBackend: "memory",
			Mint: Mint{
				Fee:                "1",
				Owner:              "0x00000000000000000000000000000000000000aa",
				CategoryBoundaries: []uint64{50, 100},
				TokenURIs:          []string{"a", "b"},
			},
			Oracle: Oracle{Mode: OracleModeMock},
		}
		return cfg
	}
	if err := Validate(base()); err != nil {
		t.Fatalf("base config invalid: %v", err)
	}

	cases := map[string]func(*Config){
		"network":    func(c *Config) { c.Network = "mainnet" },
		"backend":    func(c *Config) { c.DBBackend = "redis" },
		"fee":        func(c *Config) { c.Mint.Fee = "-1" },
		"owner":      func(c *Config) { c.Mint.Owner = "0x0000000000000000000000000000000000000000" },
		"boundaries": func(c *Config) { c.Mint.CategoryBoundaries = []uint64{50, 90} },
		"uris":       func(c *Config) { c.Mint.TokenURIs = []string{"a"} },
		"mode":       func(c *Config) { c.Oracle.Mode = "chainlink" },
		"webhook":    func(c *Config) { c.Oracle.Mode = OracleModeWebhook },
		"faucet": func(c *Config) {
			c.Network = "rinkeby"
			c.Mint.FaucetAmount = "1"
		},
		"indexer": func(c *Config) { c.Indexer.Driver = "sqlite" },
		"gaslane": func(c *Config) { c.Oracle.GasLane = "0x1234" },
		"notify":  func(c *Config) { c.Notify.URL = "https://hooks.example" },
	}
	for name, mutate := range cases {
		cfg := base()
		mutate(cfg)
		if err := Validate(cfg); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(webhookConfig), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg.Mint.TokenURIs = []string{"ipfs://x", "ipfs://y", "ipfs://z"}
	if err := Save(path, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(raw), "ipfs://y") {
		t.Fatalf("saved config missing token uri:\n%s", raw)
	}
}

func TestWebhookModeFillsNetworkCoordinator(t *testing.T) {
	cfg := &Config{Network: "rinkeby", Oracle: Oracle{Mode: OracleModeWebhook}}
	cfg.applyNetworkDefaults()
	if cfg.Oracle.Coordinator != Networks["rinkeby"].Coordinator || cfg.Oracle.SubscriptionID != 5959 {
		t.Fatalf("preset not applied: %+v", cfg.Oracle)
	}

	mock := &Config{Network: "rinkeby", Oracle: Oracle{Mode: OracleModeMock}}
	mock.applyNetworkDefaults()
	if mock.Oracle.Coordinator != "" {
		t.Fatalf("mock mode must not inherit the external coordinator")
	}
}

func TestNotifySecret(t *testing.T) {
	cfg := &Config{Notify: Notify{URL: "https://hooks.example", Secret: "inline", SecretEnv: "RANDOMNFT_TEST_NOTIFY"}}
	t.Setenv("RANDOMNFT_TEST_NOTIFY", "")
	secret, err := cfg.NotifySecret()
	if err != nil || string(secret) != "inline" {
		t.Fatalf("inline secret: %q %v", secret, err)
	}
	t.Setenv("RANDOMNFT_TEST_NOTIFY", "from-env")
	secret, err = cfg.NotifySecret()
	if err != nil || string(secret) != "from-env" {
		t.Fatalf("env secret: %q %v", secret, err)
	}
	if _, err := (&Config{}).NotifySecret(); err == nil {
		t.Fatalf("expected missing secret error")
	}
}

func TestRinkebyRequestsSettleWithoutFaucet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(webhookConfig), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg.Oracle.WebhookTimeout = 2
	params, err := cfg.LedgerParams([20]byte{0xcc})
	if err != nil {
		t.Fatalf("ledger params: %v", err)
	}
	if !params.ExternalPayments {
		t.Fatalf("rinkeby must settle payments externally")
	}
	if got := cfg.OracleSettings(common.Address{0x01}).CallTimeout; got != 2*time.Second {
		t.Fatalf("unexpected call timeout %s", got)
	}

	engine, err := randomnft.NewEngine(params)
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	engine.SetState(state.NewManager(storage.NewMemDB()))
	fee, _ := new(big.Int).SetString(cfg.Mint.Fee, 10)
	id, err := engine.RequestAsset(context.Background(), [20]byte{0xa1}, fee)
	if err != nil {
		t.Fatalf("request with exact fee: %v", err)
	}
	if id != 1 {
		t.Fatalf("unexpected request id %d", id)
	}

	local := &Config{Network: "local", Mint: cfg.Mint}
	localParams, err := local.LedgerParams([20]byte{0xcc})
	if err != nil {
		t.Fatalf("local params: %v", err)
	}
	if localParams.ExternalPayments {
		t.Fatalf("local network debits faucet-funded accounts")
	}
}
