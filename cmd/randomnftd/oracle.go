package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"randomnft/config"
	"randomnft/crypto"
	"randomnft/native/randomnft"
	"randomnft/oracle"
)

type coordinatorSetup struct {
	coordinator oracle.Coordinator
	mock        *oracle.MockCoordinator
	address     common.Address
	settings    randomnft.OracleSettings
}

func buildCoordinator(cfg *config.Config, logger *slog.Logger) (*coordinatorSetup, error) {
	settings := cfg.OracleSettings(randomnft.ConsumerAddress)
	switch cfg.Oracle.Mode {
	case config.OracleModeWebhook:
		addr, err := cfg.CoordinatorAddress()
		if err != nil {
			return nil, fmt.Errorf("oracle coordinator: %w", err)
		}
		timeout := time.Duration(cfg.Oracle.WebhookTimeout) * time.Second
		wc, err := oracle.NewWebhookCoordinator(cfg.Oracle.WebhookURL, cfg.Oracle.WebhookToken, timeout)
		if err != nil {
			return nil, err
		}
		return &coordinatorSetup{coordinator: wc, address: addr, settings: settings}, nil
	case config.OracleModeMock:
		key, err := crypto.LoadFromKeystore(cfg.Oracle.KeystorePath, cfg.Passphrase())
		if err != nil {
			return nil, fmt.Errorf("coordinator key: %w", err)
		}
		mock := oracle.NewMockCoordinator(key,
			oracle.WithFulfillDelay(time.Duration(cfg.Oracle.FulfillDelaySeconds)*time.Second),
			oracle.WithDeliveryRate(cfg.Oracle.RatePerSecond, 1),
			oracle.WithLogger(logger),
		)
		subID := mock.CreateSubscription()
		fund, err := cfg.SubscriptionFund()
		if err != nil {
			return nil, err
		}
		if fund.Sign() > 0 {
			if err := mock.FundSubscription(subID, fund); err != nil {
				return nil, err
			}
		}
		if err := mock.AddConsumer(subID, randomnft.ConsumerAddress); err != nil {
			return nil, err
		}
		settings.SubscriptionID = subID
		logger.Info("mock coordinator ready",
			"address", mock.Address().Hex(),
			"subscriptionId", subID,
			"fund", fund.String(),
		)
		return &coordinatorSetup{coordinator: mock, mock: mock, address: mock.Address(), settings: settings}, nil
	default:
		return nil, fmt.Errorf("oracle: unsupported mode %q", cfg.Oracle.Mode)
	}
}
