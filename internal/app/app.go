// Package app wires configuration into the running taskpulse components:
// the database pool, the event bus, the notification pipeline, and the
// scheduled jobs. Every cmd/ entry point builds one App and uses the parts
// it needs.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"

	"taskpulse/internal/config"
	"taskpulse/internal/db"
	"taskpulse/internal/events"
	"taskpulse/internal/external"
	"taskpulse/internal/notifications/core"
	"taskpulse/internal/notifications/email"
	"taskpulse/internal/notifications/router"
	"taskpulse/internal/scheduler"
	"taskpulse/internal/types"
)

// ledgerBudget is the time a tracked dispatch gets on top of the delivery
// timeout for its ledger reads and writes.
const ledgerBudget = 5 * time.Second

// Metrics is every telemetry hook the components record through.
type Metrics interface {
	core.NotificationMetrics
	events.Metrics
	scheduler.CycleMetrics
}

// App holds the long-lived dependencies of a taskpulse process.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	Pool      *pgxpool.Pool
	AWS       aws.Config
	SQS       *sqs.Client
	Metrics   Metrics
	Publisher *events.Publisher

	Dispatcher *core.Dispatcher
	Tracker    *core.Tracker
	Router     *router.Router
	Notifier   *core.MutationNotifier
}

// New connects to the database and AWS and builds the components. The
// caller must Close the App.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	typed := types.NewSlogLogger(logger)

	pool, err := db.NewPool(ctx, db.PoolConfig{
		URL:             cfg.Database.URL.Unmask(),
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	if cfg.Database.MigrateOnStart {
		if err := db.Migrate(ctx, pool, "up", logger); err != nil {
			pool.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}

	awsCfg, err := config.LoadAWSConfig(ctx, cfg.AWS)
	if err != nil {
		pool.Close()
		return nil, err
	}
	sqsClient := sqs.NewFromConfig(awsCfg)

	bus, err := newBus(cfg.AWS, sqsClient, sns.NewFromConfig(awsCfg))
	if err != nil {
		pool.Close()
		return nil, err
	}

	metrics := newMetrics(cfg.Observability, cloudwatch.NewFromConfig(awsCfg), typed)
	publisher := events.NewPublisher(bus, bucketsFor(cfg.Scheduler), nil, logger.With("component", "publisher")).
		WithMetrics(metrics)

	renderer, err := email.NewRenderer(time.UTC)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("loading email templates: %w", err)
	}

	dispatcher := core.NewDispatcher(core.DispatcherConfig{
		Ledger:     core.NewLedger(db.NewDeliveryRepository(pool), nil, typed),
		Recipients: db.NewUserRepository(pool),
		Renderer:   renderer,
		Deliverer:  newDeliverer(cfg.Delivery, logger),
		Metrics:    metrics,
		Timeout:    cfg.Delivery.Timeout,
		Logger:     typed.With("component", "dispatcher"),
	})
	tracker := core.NewTracker(int64(cfg.Delivery.MaxInFlight), cfg.Delivery.Timeout+ledgerBudget, typed.With("component", "tracker"))

	return &App{
		Config:     cfg,
		Logger:     logger,
		Pool:       pool,
		AWS:        awsCfg,
		SQS:        sqsClient,
		Metrics:    metrics,
		Publisher:  publisher,
		Dispatcher: dispatcher,
		Tracker:    tracker,
		Router:     router.New(router.RouteAll(dispatcher.Dispatch), typed.With("component", "router")),
		Notifier:   core.NewMutationNotifier(publisher, dispatcher, tracker, typed.With("component", "mutations")),
	}, nil
}

// Jobs returns the scheduled jobs keyed by the task name external triggers
// use.
func (a *App) Jobs() map[scheduler.TaskType]scheduler.Job {
	s := a.Config.Scheduler
	return map[scheduler.TaskType]scheduler.Job{
		scheduler.TaskScanDueTasks: scheduler.NewDueScanner(
			db.NewTaskRepository(a.Pool), a.Publisher, s.DueThreshold(), s.BatchSize,
			a.Logger.With("job", string(scheduler.TaskScanDueTasks))),
		scheduler.TaskProcessRecurring: scheduler.NewRecurringProcessor(
			db.NewTemplateRepository(a.Pool), a.Publisher, s.BatchSize,
			a.Logger.With("job", string(scheduler.TaskProcessRecurring))),
		scheduler.TaskPruneLedger: scheduler.NewLedgerPruner(
			db.NewDeliveryRepository(a.Pool), s.LedgerRetention,
			a.Logger.With("job", string(scheduler.TaskPruneLedger))),
	}
}

// HealthProbes returns the dependency checks for GET /healthz.
func (a *App) HealthProbes() []router.HealthProbe {
	probes := []router.HealthProbe{poolProbe{pool: a.Pool}}
	if a.Config.AWS.EventsQueue != "" {
		probes = append(probes, queueProbe{client: a.SQS, queueURL: a.Config.AWS.EventsQueue})
	}
	return probes
}

// Close drains tracked dispatches within the configured grace period and
// closes the pool. It returns the number of abandoned dispatches.
func (a *App) Close() int64 {
	abandoned := a.Tracker.Drain(a.Config.Delivery.DrainGrace)
	a.Pool.Close()
	return abandoned
}

// newBus selects the event bus backend.
func newBus(c config.AWSConfig, sqsClient events.SQSSender, snsClient events.SNSPublisher) (events.Bus, error) {
	switch c.BusDriver {
	case "", "sqs":
		if c.EventsQueue == "" {
			return nil, fmt.Errorf("SQS_EVENTS is required for the sqs event bus")
		}
		return events.NewSQSBus(sqsClient, c.EventsQueue), nil
	case "sns":
		if c.EventsTopicARN == "" {
			return nil, fmt.Errorf("SNS_EVENTS_TOPIC_ARN is required for the sns event bus")
		}
		return events.NewSNSBus(snsClient, c.EventsTopicARN), nil
	default:
		return nil, fmt.Errorf("unknown event bus driver %q", c.BusDriver)
	}
}

// newDeliverer returns the HTTP delivery client, or the logging stub when no
// endpoint is configured.
func newDeliverer(c config.DeliveryConfig, logger *slog.Logger) external.Deliverer {
	if c.Endpoint == "" {
		logger.Warn("DELIVERY_ENDPOINT not set, using stub delivery client")
		return external.NewStubDeliveryClient(logger)
	}
	return external.NewDeliveryClient(external.DeliveryClientConfig{
		Endpoint:      c.Endpoint,
		APIKey:        c.APIKey,
		Timeout:       c.Timeout,
		RatePerSecond: c.RatePerSecond,
		Burst:         c.Burst,
		Logger:        logger,
	})
}

// newMetrics returns CloudWatch metrics when enabled and no-op metrics
// otherwise.
func newMetrics(c config.ObservabilityConfig, client core.CloudWatchClient, logger types.Logger) Metrics {
	if !c.MetricsEnabled {
		return core.NoopMetrics{}
	}
	return core.NewCloudWatchMetrics(client, c.MetricNamespace, logger)
}

// bucketsFor derives event-id buckets from the scanner intervals, so a
// publish retried within one cycle keeps its event_id.
func bucketsFor(s config.SchedulerConfig) events.Buckets {
	return events.Buckets{
		DueSoon:      s.DueCheckInterval(),
		RecurringDue: s.RecurringCheckInterval(),
		Mutation:     s.MutationEventBucket,
	}
}
