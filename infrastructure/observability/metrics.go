package observability

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"raffler/config"
	"raffler/events"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const exportInterval = 30 * time.Second

// MetricsProvider manages OpenTelemetry metrics for the raffle service.
// A nil provider records nothing.
type MetricsProvider struct {
	config        *config.Config
	meterProvider *sdkmetric.MeterProvider
	meter         metric.Meter
	initialized   bool
	recording     bool
	mu            sync.RWMutex

	// Metric instruments
	rafflesCreatedCounter       metric.Int64Counter
	ticketsSoldCounter          metric.Int64Counter
	settlementsCounter          metric.Int64Counter
	proceedsCounter             metric.Int64Counter
	randomnessRequestsCounter   metric.Int64Counter
	randomnessFulfilmentCounter metric.Int64Counter
	natsReceivedCounter         metric.Int64Counter
	natsPublishedCounter        metric.Int64Counter
}

// NewMetricsProvider creates a new metrics provider
func NewMetricsProvider(cfg *config.Config) *MetricsProvider {
	return &MetricsProvider{
		config: cfg,
	}
}

// Initialize sets up the OpenTelemetry metrics provider
func (mp *MetricsProvider) Initialize(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.initialized {
		log.Debug("Metrics provider already initialized")
		return nil
	}

	if !mp.config.OTelEnabled {
		log.Info("OpenTelemetry metrics disabled")
		mp.initialized = true
		return nil
	}

	var exporter sdkmetric.Exporter
	var err error
	switch mp.config.OTelExporterType {
	case "console":
		exporter, err = stdoutmetric.New()
		if err != nil {
			return fmt.Errorf("failed to create console exporter: %w", err)
		}
		log.Info("Using console metric exporter")

	case "otlp":
		dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		exporter, err = otlpmetricgrpc.New(dialCtx,
			otlpmetricgrpc.WithEndpoint(mp.config.OTelEndpoint),
			otlpmetricgrpc.WithInsecure(),
		)
		if err != nil {
			return fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		log.WithField("endpoint", mp.config.OTelEndpoint).Info("Using OTLP metric exporter")

	case "none":
		log.Info("Metrics export disabled (exporter_type='none')")
		mp.initialized = true
		return nil

	default:
		return fmt.Errorf("unknown exporter type: %s", mp.config.OTelExporterType)
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(exportInterval))
	if err := mp.initializeWithReader(ctx, reader); err != nil {
		return err
	}
	otel.SetMeterProvider(mp.meterProvider)

	log.Info("Metrics provider initialized successfully")
	return nil
}

// initializeWithReader builds the meter provider around reader. Callers hold mp.mu.
func (mp *MetricsProvider) initializeWithReader(ctx context.Context, reader sdkmetric.Reader) error {
	res, err := resource.New(ctx,
		resource.WithTelemetrySDK(),
		resource.WithAttributes(
			semconv.ServiceName(mp.config.OTelServiceName),
			attribute.String("environment", mp.config.Environment),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	mp.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
	mp.meter = mp.meterProvider.Meter("raffler")

	if err := mp.createInstruments(); err != nil {
		return fmt.Errorf("failed to create instruments: %w", err)
	}

	mp.initialized = true
	mp.recording = true
	return nil
}

// createInstruments creates all metric instruments
func (mp *MetricsProvider) createInstruments() error {
	counters := []struct {
		target      *metric.Int64Counter
		name        string
		description string
		unit        string
	}{
		{&mp.rafflesCreatedCounter, RafflesCreatedTotal, "Total number of raffles created", "1"},
		{&mp.ticketsSoldCounter, TicketsSoldTotal, "Total number of tickets sold", "1"},
		{&mp.settlementsCounter, SettlementsTotal, "Total number of settled raffles", "1"},
		{&mp.proceedsCounter, ProceedsSettled, "Ticket proceeds paid out, in base units", "1"},
		{&mp.randomnessRequestsCounter, RandomnessRequestsTotal, "Total number of randomness requests published", "1"},
		{&mp.randomnessFulfilmentCounter, RandomnessFulfilmentsTotal, "Total number of oracle replies handled", "1"},
		{&mp.natsReceivedCounter, NATSMessagesReceivedTotal, "Total number of NATS messages received", "1"},
		{&mp.natsPublishedCounter, NATSMessagesPublishedTotal, "Total number of NATS messages published", "1"},
	}

	for _, c := range counters {
		counter, err := mp.meter.Int64Counter(
			c.name,
			metric.WithDescription(c.description),
			metric.WithUnit(c.unit),
		)
		if err != nil {
			return fmt.Errorf("failed to create %s counter: %w", c.name, err)
		}
		*c.target = counter
	}
	return nil
}

// Shutdown gracefully shuts down the metrics provider
func (mp *MetricsProvider) Shutdown(ctx context.Context) error {
	if mp == nil {
		return nil
	}
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.recording = false
	if mp.meterProvider != nil {
		return mp.meterProvider.Shutdown(ctx)
	}
	return nil
}

// Attach records lifecycle metrics from committed raffle events
func (mp *MetricsProvider) Attach(bus *events.Bus) {
	bus.Subscribe(events.EventTypeRaffleCreated, func(ctx context.Context, e events.Event) {
		if created, ok := e.(events.RaffleCreatedEvent); ok {
			mp.RecordRaffleCreated(string(created.Payment))
		}
	})
	bus.Subscribe(events.EventTypeTicketsPurchased, func(ctx context.Context, e events.Event) {
		if purchased, ok := e.(events.TicketsPurchasedEvent); ok {
			mp.RecordTicketsSold(purchased.Amount, purchased.Burned)
		}
	})
	bus.Subscribe(events.EventTypePrizeClaimed, func(ctx context.Context, e events.Event) {
		if claimed, ok := e.(events.PrizeClaimedEvent); ok {
			mp.RecordSettlement(PathClaim, claimed.Fee, claimed.Treasury)
		}
	})
	bus.Subscribe(events.EventTypePrizeCollected, func(ctx context.Context, e events.Event) {
		if collected, ok := e.(events.PrizeCollectedEvent); ok {
			mp.RecordSettlement(PathCollect, collected.Fee, collected.Proceeds-collected.Fee)
		}
	})
}

// RecordRaffleCreated records a new raffle by payment kind
func (mp *MetricsProvider) RecordRaffleCreated(payment string) {
	if !mp.isEnabled() {
		return
	}
	mp.rafflesCreatedCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String(LabelPayment, payment)),
	)
}

// RecordTicketsSold records tickets appended to a ledger
func (mp *MetricsProvider) RecordTicketsSold(amount uint32, burned bool) {
	if !mp.isEnabled() {
		return
	}
	entry := "spend"
	if burned {
		entry = "burn"
	}
	mp.ticketsSoldCounter.Add(context.Background(), int64(amount),
		metric.WithAttributes(attribute.String(LabelEntry, entry)),
	)
}

// RecordSettlement records a settled raffle and the proceeds split
func (mp *MetricsProvider) RecordSettlement(path string, fee, treasury uint64) {
	if !mp.isEnabled() {
		return
	}
	ctx := context.Background()
	mp.settlementsCounter.Add(ctx, 1, metric.WithAttributes(attribute.String(LabelPath, path)))
	mp.proceedsCounter.Add(ctx, clampInt64(fee), metric.WithAttributes(attribute.String(LabelShare, ShareFee)))
	mp.proceedsCounter.Add(ctx, clampInt64(treasury), metric.WithAttributes(attribute.String(LabelShare, ShareTreasury)))
}

// RecordRandomnessRequested records a request handed to the oracle
func (mp *MetricsProvider) RecordRandomnessRequested(retry bool) {
	if !mp.isEnabled() {
		return
	}
	mp.randomnessRequestsCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.Bool(LabelRetry, retry)),
	)
}

// RecordRandomnessFulfilment records how an oracle reply was handled
func (mp *MetricsProvider) RecordRandomnessFulfilment(outcome string) {
	if !mp.isEnabled() {
		return
	}
	mp.randomnessFulfilmentCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String(LabelOutcome, outcome)),
	)
}

// RecordNATSMessageReceived records a NATS message being received
func (mp *MetricsProvider) RecordNATSMessageReceived(subject string) {
	if !mp.isEnabled() {
		return
	}
	mp.natsReceivedCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String(LabelSubject, subject)),
	)
}

// RecordNATSMessagePublished records a NATS message being published
func (mp *MetricsProvider) RecordNATSMessagePublished(subject string) {
	if !mp.isEnabled() {
		return
	}
	mp.natsPublishedCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String(LabelSubject, subject)),
	)
}

// isEnabled checks if instruments exist and the provider is not shut down
func (mp *MetricsProvider) isEnabled() bool {
	if mp == nil {
		return false
	}
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	return mp.initialized && mp.recording
}

func clampInt64(v uint64) int64 {
	if v > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(v)
}
