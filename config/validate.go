package config

import (
	"fmt"
	"math/big"
	"strings"

	"randomnft/crypto"
	"randomnft/native/randomnft"
)

// Validate checks the configuration before any component is built from it.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config: nil")
	}
	if _, ok := Networks[cfg.Network]; !ok {
		return fmt.Errorf("network: unknown %q", cfg.Network)
	}
	switch strings.ToLower(cfg.DBBackend) {
	case "leveldb", "bolt", "memory":
	default:
		return fmt.Errorf("DBBackend: unsupported %q", cfg.DBBackend)
	}
	if _, err := parseUintAmount(cfg.Mint.Fee); err != nil {
		return fmt.Errorf("mint: Fee: %w", err)
	}
	if _, err := crypto.ParseAddress(cfg.Mint.Owner); err != nil {
		return fmt.Errorf("mint: Owner: %w", err)
	}
	if _, err := randomnft.NewSelector(cfg.Mint.CategoryBoundaries); err != nil {
		return fmt.Errorf("mint: CategoryBoundaries: %w", err)
	}
	if len(cfg.Mint.TokenURIs) != len(cfg.Mint.CategoryBoundaries) {
		return fmt.Errorf("mint: %d TokenURIs for %d categories", len(cfg.Mint.TokenURIs), len(cfg.Mint.CategoryBoundaries))
	}
	if cfg.Mint.FaucetAmount != "" {
		if !Networks[cfg.Network].Faucet {
			return fmt.Errorf("mint: FaucetAmount not allowed on network %s", cfg.Network)
		}
		if _, err := parseUintAmount(cfg.Mint.FaucetAmount); err != nil {
			return fmt.Errorf("mint: FaucetAmount: %w", err)
		}
	}

	switch cfg.Oracle.Mode {
	case OracleModeMock:
		if cfg.Oracle.SubscriptionFund != "" {
			if _, err := parseUintAmount(cfg.Oracle.SubscriptionFund); err != nil {
				return fmt.Errorf("oracle: SubscriptionFund: %w", err)
			}
		}
	case OracleModeWebhook:
		if strings.TrimSpace(cfg.Oracle.WebhookURL) == "" {
			return fmt.Errorf("oracle: WebhookURL required in webhook mode")
		}
		if _, err := crypto.ParseAddress(cfg.Oracle.Coordinator); err != nil {
			return fmt.Errorf("oracle: Coordinator: %w", err)
		}
	default:
		return fmt.Errorf("oracle: unsupported mode %q", cfg.Oracle.Mode)
	}
	if cfg.Oracle.GasLane != "" && len(strings.TrimPrefix(cfg.Oracle.GasLane, "0x")) != 64 {
		return fmt.Errorf("oracle: GasLane must be a 32-byte hex hash")
	}
	if cfg.RateLimit.RequestsPerSecond < 0 || cfg.RateLimit.Burst < 0 {
		return fmt.Errorf("ratelimit: values must be non-negative")
	}

	switch cfg.Indexer.Driver {
	case "", "sqlite", "postgres":
	default:
		return fmt.Errorf("indexer: unsupported driver %q", cfg.Indexer.Driver)
	}
	if cfg.Indexer.Driver != "" && strings.TrimSpace(cfg.Indexer.DSN) == "" {
		return fmt.Errorf("indexer: DSN required for driver %s", cfg.Indexer.Driver)
	}
	if strings.TrimSpace(cfg.Notify.URL) != "" {
		if cfg.Notify.Secret == "" && cfg.Notify.SecretEnv == "" {
			return fmt.Errorf("notify: Secret or SecretEnv required with URL")
		}
		if cfg.Notify.MaxAttempts < 0 {
			return fmt.Errorf("notify: MaxAttempts must be non-negative")
		}
	}
	return nil
}

func parseUintAmount(raw string) (*big.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("amount required")
	}
	value, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", raw)
	}
	if value.Sign() < 0 {
		return nil, fmt.Errorf("amount must be non-negative")
	}
	return value, nil
}
