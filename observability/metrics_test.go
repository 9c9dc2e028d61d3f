package observability

import (
	"math/big"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"randomnft/core/events"
)

func TestLedgerMetricsFollowEvents(t *testing.T) {
	m := Ledger()
	m.Seed(0, big.NewInt(0))
	before := testutil.ToFloat64(m.requests)

	m.Emit(events.AssetRequested{RequestID: 1, Paid: big.NewInt(100)})
	m.Emit(events.AssetRequested{RequestID: 2, Paid: big.NewInt(150)})
	require.Equal(t, before+2, testutil.ToFloat64(m.requests))
	require.Equal(t, float64(2), testutil.ToFloat64(m.pending))
	require.Equal(t, float64(250), testutil.ToFloat64(m.treasury))

	m.Emit(events.AssetMinted{RequestID: 1})
	require.Equal(t, float64(1), testutil.ToFloat64(m.pending))

	withdrawals := testutil.ToFloat64(m.withdrawals)
	m.Emit(events.TreasuryWithdrawn{Amount: big.NewInt(250)})
	require.Equal(t, withdrawals+1, testutil.ToFloat64(m.withdrawals))
	require.Zero(t, testutil.ToFloat64(m.treasury))
}

func TestLedgerMetricsSeed(t *testing.T) {
	m := Ledger()
	m.Seed(4, big.NewInt(1_000))
	require.Equal(t, float64(4), testutil.ToFloat64(m.pending))
	require.Equal(t, float64(1_000), testutil.ToFloat64(m.treasury))
}

func TestObserveFulfillment(t *testing.T) {
	m := Ledger()
	minted := m.fulfillments.WithLabelValues("minted")
	before := testutil.ToFloat64(minted)
	m.ObserveFulfillment("minted")
	require.Equal(t, before+1, testutil.ToFloat64(minted))

	unknown := m.fulfillments.WithLabelValues("unknown")
	before = testutil.ToFloat64(unknown)
	m.ObserveFulfillment("  ")
	require.Equal(t, before+1, testutil.ToFloat64(unknown))
}

func TestModuleMetricsObserve(t *testing.T) {
	m := ModuleMetrics()
	errs := m.errors.WithLabelValues("/v1/requests", "POST", "402")
	before := testutil.ToFloat64(errs)
	m.Observe("/v1/requests", "POST", 402, time.Millisecond)
	require.Equal(t, before+1, testutil.ToFloat64(errs))

	var nilMetrics *LedgerMetrics
	nilMetrics.Emit(events.AssetMinted{})
	nilMetrics.ObserveFulfillment("minted")
}
