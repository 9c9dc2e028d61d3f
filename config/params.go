package config

import (
	"fmt"
	"math/big"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"randomnft/crypto"
	"randomnft/native/randomnft"
)

// LedgerParams converts the mint section into engine parameters. The
// coordinator is resolved by the caller since in mock mode it is the address
// of the keystore key.
func (cfg *Config) LedgerParams(coordinator [20]byte) (randomnft.Params, error) {
	fee, err := parseUintAmount(cfg.Mint.Fee)
	if err != nil {
		return randomnft.Params{}, fmt.Errorf("invalid Mint.Fee: %w", err)
	}
	owner, err := crypto.ParseAddress(cfg.Mint.Owner)
	if err != nil {
		return randomnft.Params{}, fmt.Errorf("invalid Mint.Owner: %w", err)
	}
	params := randomnft.Params{
		MintFee:          fee,
		Owner:            owner,
		Coordinator:      coordinator,
		Boundaries:       append([]uint64(nil), cfg.Mint.CategoryBoundaries...),
		TokenURIs:        append([]string(nil), cfg.Mint.TokenURIs...),
		ExternalPayments: !Networks[cfg.Network].Accounts,
	}
	if err := params.Validate(); err != nil {
		return randomnft.Params{}, err
	}
	return params, nil
}

// OracleSettings builds the request template sent to the coordinator on
// behalf of consumer.
func (cfg *Config) OracleSettings(consumer common.Address) randomnft.OracleSettings {
	return randomnft.OracleSettings{
		Consumer:         consumer,
		KeyHash:          common.HexToHash(cfg.Oracle.GasLane),
		SubscriptionID:   cfg.Oracle.SubscriptionID,
		MinConfirmations: cfg.Oracle.MinConfirmations,
		CallbackGasLimit: cfg.Oracle.CallbackGasLimit,
		NumWords:         cfg.Oracle.NumWords,
		CallTimeout:      time.Duration(cfg.Oracle.WebhookTimeout) * time.Second,
	}
}

// CoordinatorAddress parses the configured external coordinator.
func (cfg *Config) CoordinatorAddress() ([20]byte, error) {
	return crypto.ParseAddress(cfg.Oracle.Coordinator)
}

// SubscriptionFund returns the amount used to fund the mock subscription.
func (cfg *Config) SubscriptionFund() (*big.Int, error) {
	if cfg.Oracle.SubscriptionFund == "" {
		return big.NewInt(0), nil
	}
	return parseUintAmount(cfg.Oracle.SubscriptionFund)
}

// FaucetAmount returns the faucet grant, or nil when the faucet is disabled.
func (cfg *Config) FaucetAmount() (*big.Int, error) {
	if cfg.Mint.FaucetAmount == "" {
		return nil, nil
	}
	return parseUintAmount(cfg.Mint.FaucetAmount)
}

// JWTSecret resolves the token signing secret, preferring the environment
// variable over the inline value.
func (cfg *Config) JWTSecret() ([]byte, error) {
	if env := strings.TrimSpace(cfg.Auth.HMACSecretEnv); env != "" {
		if secret := strings.TrimSpace(os.Getenv(env)); secret != "" {
			return []byte(secret), nil
		}
	}
	if secret := strings.TrimSpace(cfg.Auth.HMACSecret); secret != "" {
		return []byte(secret), nil
	}
	return nil, fmt.Errorf("auth: HMAC secret not configured")
}

// NotifySecret resolves the webhook signing secret, preferring the
// environment variable over the inline value.
func (cfg *Config) NotifySecret() ([]byte, error) {
	if env := strings.TrimSpace(cfg.Notify.SecretEnv); env != "" {
		if secret := strings.TrimSpace(os.Getenv(env)); secret != "" {
			return []byte(secret), nil
		}
	}
	if secret := strings.TrimSpace(cfg.Notify.Secret); secret != "" {
		return []byte(secret), nil
	}
	return nil, fmt.Errorf("notify: secret not configured")
}
