package observability

import (
	"context"
	"testing"
	"time"

	"raffler/config"
	"raffler/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newRecordingProvider(t *testing.T) (*MetricsProvider, *sdkmetric.ManualReader) {
	t.Helper()
	cfg := config.NewTestConfig()
	cfg.OTelEnabled = true

	reader := sdkmetric.NewManualReader()
	mp := NewMetricsProvider(cfg)
	require.NoError(t, mp.initializeWithReader(context.Background(), reader))
	t.Cleanup(func() {
		_ = mp.Shutdown(context.Background())
	})
	return mp, reader
}

// sumOf adds up every data point of the named counter whose attributes contain kv
func sumOf(t *testing.T, reader *sdkmetric.ManualReader, name string, kv attribute.KeyValue) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	var total int64
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "metric %s is not an int64 sum", name)
			for _, dp := range sum.DataPoints {
				if v, found := dp.Attributes.Value(kv.Key); found && v.Emit() == kv.Value.Emit() {
					total += dp.Value
				}
			}
		}
	}
	return total
}

func TestMetricsProvider_Disabled(t *testing.T) {
	t.Parallel()

	mp := NewMetricsProvider(config.NewTestConfig())
	require.NoError(t, mp.Initialize(context.Background()))
	assert.False(t, mp.isEnabled())

	// Recording on a disabled or nil provider is a no-op
	mp.RecordRaffleCreated("token")
	var nilProvider *MetricsProvider
	nilProvider.RecordNATSMessagePublished("raffle.created")
	assert.NoError(t, nilProvider.Shutdown(context.Background()))
}

func TestMetricsProvider_ExporterSelection(t *testing.T) {
	t.Parallel()

	cfg := config.NewTestConfig()
	cfg.OTelEnabled = true
	cfg.OTelExporterType = "none"
	mp := NewMetricsProvider(cfg)
	require.NoError(t, mp.Initialize(context.Background()))
	assert.False(t, mp.isEnabled())

	cfg = config.NewTestConfig()
	cfg.OTelEnabled = true
	cfg.OTelExporterType = "carrier-pigeon"
	assert.Error(t, NewMetricsProvider(cfg).Initialize(context.Background()))
}

func TestMetricsProvider_RecordsCounters(t *testing.T) {
	t.Parallel()
	mp, reader := newRecordingProvider(t)

	mp.RecordRaffleCreated("token")
	mp.RecordRaffleCreated("token")
	mp.RecordRaffleCreated("unique_asset")
	mp.RecordTicketsSold(5, false)
	mp.RecordTicketsSold(1, true)
	mp.RecordSettlement(PathClaim, 7, 293)
	mp.RecordRandomnessRequested(false)
	mp.RecordRandomnessRequested(true)
	mp.RecordRandomnessFulfilment(OutcomeConsumed)

	assert.Equal(t, int64(2), sumOf(t, reader, RafflesCreatedTotal, attribute.String(LabelPayment, "token")))
	assert.Equal(t, int64(1), sumOf(t, reader, RafflesCreatedTotal, attribute.String(LabelPayment, "unique_asset")))
	assert.Equal(t, int64(5), sumOf(t, reader, TicketsSoldTotal, attribute.String(LabelEntry, "spend")))
	assert.Equal(t, int64(1), sumOf(t, reader, TicketsSoldTotal, attribute.String(LabelEntry, "burn")))
	assert.Equal(t, int64(1), sumOf(t, reader, SettlementsTotal, attribute.String(LabelPath, PathClaim)))
	assert.Equal(t, int64(7), sumOf(t, reader, ProceedsSettled, attribute.String(LabelShare, ShareFee)))
	assert.Equal(t, int64(293), sumOf(t, reader, ProceedsSettled, attribute.String(LabelShare, ShareTreasury)))
	assert.Equal(t, int64(1), sumOf(t, reader, RandomnessRequestsTotal, attribute.Bool(LabelRetry, true)))
	assert.Equal(t, int64(1), sumOf(t, reader, RandomnessFulfilmentsTotal, attribute.String(LabelOutcome, OutcomeConsumed)))
}

func TestMetricsProvider_AttachRecordsCommittedEvents(t *testing.T) {
	t.Parallel()
	mp, reader := newRecordingProvider(t)

	bus := events.NewBus()
	mp.Attach(bus)

	ctx := context.Background()
	bus.Emit(ctx, events.TicketsPurchasedEvent{Amount: 3})
	bus.Emit(ctx, events.PrizeCollectedEvent{Proceeds: 200, Fee: 5})

	assert.Eventually(t, func() bool {
		return sumOf(t, reader, TicketsSoldTotal, attribute.String(LabelEntry, "spend")) == 3 &&
			sumOf(t, reader, ProceedsSettled, attribute.String(LabelShare, ShareTreasury)) == 195
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, int64(1), sumOf(t, reader, SettlementsTotal, attribute.String(LabelPath, PathCollect)))
}
