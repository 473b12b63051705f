package bootstrap

import (
	"context"
	"fmt"

	"avnotify/internal/broker"
	"avnotify/internal/config"
	"avnotify/internal/dispatch"
	"avnotify/internal/logger"
	"avnotify/internal/notifier"
	"avnotify/internal/reporter"
	"avnotify/pkg/tracing"
)

// Base holds the pieces shared by every avnotify command.
type Base struct {
	Config         *config.Config
	Logger         logger.Logger
	Producer       broker.Producer
	Consumer       broker.Consumer
	TracerProvider *tracing.TracerProvider
}

func NewBase(cfg *config.Config, log logger.Logger) *Base {
	return &Base{
		Config: cfg,
		Logger: log,
	}
}

func (b *Base) InitTracing(serviceName string) error {
	tp, err := tracing.Init(b.Config.Tracing, serviceName)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	b.TracerProvider = tp
	return nil
}

// InitDispatcher wires the Datadog reporter and the Slack notifier from
// configuration. Either side may be disabled.
func (b *Base) InitDispatcher() (*dispatch.Service, error) {
	rep := reporter.NewFromConfig(b.Config.Datadog, b.Logger)

	notif, err := notifier.New(b.Config.Slack, notifier.WithLogger(b.Logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create notifier: %w", err)
	}

	if !rep.Enabled() {
		b.Logger.Warnw("Datadog API key not set, metrics reporting disabled")
	}
	if !notif.Enabled() {
		b.Logger.Warnw("Slack webhook URL not set, chat alerts disabled")
	}

	return dispatch.NewService(rep, notif, b.Logger), nil
}

func (b *Base) InitProducer() error {
	producer, err := broker.NewProducer(b.Config.Broker, b.Logger)
	if err != nil {
		return fmt.Errorf("failed to create producer: %w", err)
	}
	b.Producer = producer
	return nil
}

func (b *Base) InitConsumer(serviceName string) error {
	consumer, err := broker.NewConsumer(b.Config.Broker, b.Logger)
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}
	if serviceName != "" {
		consumer.SetServiceName(serviceName)
	}
	b.Consumer = consumer
	return nil
}

func (b *Base) ShutdownBroker() []error {
	var errs []error

	if b.Producer != nil {
		if err := b.Producer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("producer close error: %w", err))
		}
	}

	if b.Consumer != nil {
		if err := b.Consumer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("consumer close error: %w", err))
		}
	}

	return errs
}

func (b *Base) Shutdown(ctx context.Context, additionalShutdown func(ctx context.Context) []error) error {
	b.Logger.Info("Shutting down application...")

	var errs []error

	errs = append(errs, b.ShutdownBroker()...)

	if additionalShutdown != nil {
		errs = append(errs, additionalShutdown(ctx)...)
	}

	if b.TracerProvider != nil {
		if err := b.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown error: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}

	b.Logger.Info("Application exited successfully")
	return nil
}
