package randomnft

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"randomnft/oracle"
)

// ConsumerAddress identifies the ledger to randomness coordinators.
var ConsumerAddress = common.BytesToAddress(ethcrypto.Keccak256([]byte("randomnft/consumer"))[12:])

func (e *Engine) outbound(id uint64) oracle.Request {
	return oracle.Request{
		RequestID:        id,
		Consumer:         e.oracleCfg.Consumer,
		KeyHash:          e.oracleCfg.KeyHash,
		SubscriptionID:   e.oracleCfg.SubscriptionID,
		MinConfirmations: e.oracleCfg.MinConfirmations,
		CallbackGasLimit: e.oracleCfg.CallbackGasLimit,
		NumWords:         e.oracleCfg.NumWords,
	}
}

// ResubmitPending hands every unfulfilled request back to the coordinator,
// typically after a restart emptied its queue. Coordinators implementing
// oracle.Requeuer take them back without a new charge; others receive a
// fresh RequestRandomness call. It returns the number of requests handed
// over.
func (e *Engine) ResubmitPending(ctx context.Context) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return 0, ErrNilState
	}
	if e.coordinator == nil {
		return 0, nil
	}
	pending, err := e.pendingLocked()
	if err != nil {
		return 0, err
	}
	requeuer, canRequeue := e.coordinator.(oracle.Requeuer)
	for i, req := range pending {
		out := e.outbound(req.ID)
		if canRequeue {
			err = requeuer.Requeue(out)
		} else {
			callCtx, cancel := context.WithTimeout(ctx, e.coordinatorTimeout())
			err = e.coordinator.RequestRandomness(callCtx, out)
			cancel()
		}
		if err != nil && !errors.Is(err, oracle.ErrDuplicateRequest) {
			return i, fmt.Errorf("randomnft: resubmit request %d: %w", req.ID, err)
		}
	}
	return len(pending), nil
}

// FulfillmentObserver is notified of every fulfillment outcome.
type FulfillmentObserver interface {
	ObserveFulfillment(outcome string)
}

// OracleConsumer verifies signed fulfillments from the coordinator and
// applies them to the engine. The recovered signer is the caller the engine
// checks against its configured coordinator.
type OracleConsumer struct {
	engine   *Engine
	logger   *slog.Logger
	observer FulfillmentObserver
}

// NewOracleConsumer binds a consumer to engine.
func NewOracleConsumer(engine *Engine, logger *slog.Logger, observer FulfillmentObserver) *OracleConsumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &OracleConsumer{engine: engine, logger: logger, observer: observer}
}

// FulfillRandomness implements oracle.Consumer.
func (c *OracleConsumer) FulfillRandomness(_ context.Context, f oracle.Fulfillment) error {
	signer, err := oracle.VerifyFulfillment(f)
	if err != nil {
		c.reject(f.RequestID, "invalid_signature", err)
		return err
	}
	if len(f.Words) == 0 {
		c.reject(f.RequestID, "missing_randomness", ErrMissingRandomness)
		return ErrMissingRandomness
	}
	asset, err := c.engine.FulfillRandomness(signer, f.RequestID, f.Words[0])
	if err != nil {
		c.reject(f.RequestID, ErrorCode(err), err)
		return err
	}
	c.observe("minted")
	c.logger.Info("asset minted",
		"requestId", f.RequestID,
		"assetId", asset.ID,
		"category", asset.Category,
	)
	return nil
}

func (c *OracleConsumer) reject(requestID uint64, outcome string, err error) {
	c.observe(outcome)
	c.logger.Warn("fulfillment rejected", "requestId", requestID, "reason", outcome, "error", err)
}

func (c *OracleConsumer) observe(outcome string) {
	if c.observer != nil {
		c.observer.ObserveFulfillment(outcome)
	}
}
