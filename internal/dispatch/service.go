package dispatch

import (
	"context"
	"errors"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"avnotify/internal/logger"
	"avnotify/internal/scan"
	"avnotify/pkg/metrics"
	"avnotify/pkg/tracing"
)

type MetricsReporter interface {
	Enabled() bool
	Report(ctx context.Context, res scan.Result) error
}

type AlertNotifier interface {
	Notify(ctx context.Context, res scan.Result) (int, error)
}

// Outcome summarises one dispatch. StatusCode is zero when no chat message
// was posted.
type Outcome struct {
	Notified   bool
	StatusCode int
}

type Service struct {
	reporter MetricsReporter
	notifier AlertNotifier
	logger   logger.Logger
}

func NewService(reporter MetricsReporter, notifier AlertNotifier, log logger.Logger) *Service {
	return &Service{
		reporter: reporter,
		notifier: notifier,
		logger:   log,
	}
}

// Dispatch validates res and then reports metrics and posts the chat alert
// concurrently. Both are always attempted; their errors are joined.
func (s *Service) Dispatch(ctx context.Context, res scan.Result) (Outcome, error) {
	if err := res.Validate(); err != nil {
		return Outcome{}, err
	}

	ctx, span := tracing.GetTracer("avnotify-dispatch").Start(ctx, "dispatch.scan_result")
	defer span.End()
	span.SetAttributes(
		attribute.String("scan.environment", res.Environment),
		attribute.String("scan.bucket", res.Bucket),
		attribute.String("scan.status", res.Status.String()),
	)

	start := time.Now()
	metrics.ScanResultsTotal.WithLabelValues(res.Status.String()).Inc()

	var (
		outcome   Outcome
		reportErr error
		notifyErr error
	)

	var g errgroup.Group
	g.Go(func() error {
		reportErr = s.report(ctx, res)
		return nil
	})
	g.Go(func() error {
		outcome, notifyErr = s.notify(ctx, res)
		return nil
	})
	_ = g.Wait()

	metrics.DispatchDuration.WithLabelValues(res.Status.String()).Observe(float64(time.Since(start).Milliseconds()))

	err := errors.Join(reportErr, notifyErr)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.ErrorwCtx(ctx, "Scan result dispatch failed",
			"bucket", res.Bucket,
			"key", res.ObjectKey,
			"status", res.Status,
			"error", err,
		)
	} else {
		s.logger.InfowCtx(ctx, "Scan result dispatched",
			"bucket", res.Bucket,
			"key", res.ObjectKey,
			"status", res.Status,
			"notified", outcome.Notified,
		)
	}

	return outcome, err
}

func (s *Service) report(ctx context.Context, res scan.Result) error {
	if !s.reporter.Enabled() {
		metrics.DispatchTotal.WithLabelValues(metrics.ChannelDatadog, metrics.OutcomeSkipped).Inc()
		return nil
	}
	if err := s.reporter.Report(ctx, res); err != nil {
		metrics.DispatchTotal.WithLabelValues(metrics.ChannelDatadog, metrics.OutcomeFailed).Inc()
		return err
	}
	metrics.DispatchTotal.WithLabelValues(metrics.ChannelDatadog, metrics.OutcomeSent).Inc()
	return nil
}

func (s *Service) notify(ctx context.Context, res scan.Result) (Outcome, error) {
	code, err := s.notifier.Notify(ctx, res)
	if err != nil {
		metrics.DispatchTotal.WithLabelValues(metrics.ChannelSlack, metrics.OutcomeFailed).Inc()
		return Outcome{}, err
	}
	if code == 0 {
		metrics.DispatchTotal.WithLabelValues(metrics.ChannelSlack, metrics.OutcomeSkipped).Inc()
		return Outcome{}, nil
	}

	metrics.DispatchTotal.WithLabelValues(metrics.ChannelSlack, metrics.OutcomeSent).Inc()
	metrics.WebhookResponsesTotal.WithLabelValues(strconv.Itoa(code)).Inc()
	if code >= 300 {
		s.logger.WarnwCtx(ctx, "Slack webhook returned non-success status",
			"http_status", code,
			"key", res.ObjectKey,
		)
	}
	return Outcome{Notified: true, StatusCode: code}, nil
}
