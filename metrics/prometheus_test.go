package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRecordTroveOp(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())

	c.RecordTroveOp("open", nil, 1.5)
	c.RecordTroveOp("open", errors.New("boom"), 0.5)
	c.RecordTroveOp("open", nil, 2)

	require.Equal(t, 2.0, testutil.ToFloat64(c.TroveOpsTotal.WithLabelValues("open", "ok")))
	require.Equal(t, 1.0, testutil.ToFloat64(c.TroveOpsTotal.WithLabelValues("open", "error")))
}

func TestRecordFeesAndLiquidation(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())

	c.RecordFees(20, 5)
	c.RecordFees(20, 5)
	c.RecordLiquidation(300, 100)

	require.Equal(t, 40.0, testutil.ToFloat64(c.FeesCollected.WithLabelValues("depositor")))
	require.Equal(t, 10.0, testutil.ToFloat64(c.FeesCollected.WithLabelValues("team")))
	require.Equal(t, 1.0, testutil.ToFloat64(c.LiquidationsTotal))
	require.Equal(t, 300.0, testutil.ToFloat64(c.CollateralSeized))
}

func TestRecordTroveBook(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())

	c.RecordTroveBook(4, 1, 1000, 400)
	require.Equal(t, 4.0, testutil.ToFloat64(c.TrovesOpen))
	require.Equal(t, 1.0, testutil.ToFloat64(c.TrovesAtRisk))

	c.RecordWSConnection(1)
	c.RecordWSConnection(1)
	c.RecordWSConnection(-1)
	require.Equal(t, 1.0, testutil.ToFloat64(c.WSConnectionsActive))
}
