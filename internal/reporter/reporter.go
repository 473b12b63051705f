// Package reporter turns scan results into Datadog counters and, for infected
// objects, a security event.
package reporter

import (
	"context"
	"errors"
	"fmt"

	"avnotify/internal/constants"
	"avnotify/internal/logger"
	"avnotify/internal/scan"
	apperrors "avnotify/pkg/errors"
)

const MetricTypeCounter = "counter"

// MetricEvent is one counter increment in the client-level wire form.
type MetricEvent struct {
	Metric string   `json:"metric"`
	Type   string   `json:"type"`
	Points int64    `json:"points"`
	Tags   []string `json:"tags"`
}

type SecurityEvent struct {
	Title string   `json:"title"`
	Text  string   `json:"text"`
	Tags  []string `json:"tags"`
}

// Client is the metrics backend. SendMetrics submits every metric in a
// single request.
type Client interface {
	SendMetrics(ctx context.Context, metrics []MetricEvent) error
	CreateEvent(ctx context.Context, event SecurityEvent) error
}

type Reporter struct {
	client Client
	logger logger.Logger
}

// New returns a Reporter. A nil client disables reporting.
func New(client Client, log logger.Logger) *Reporter {
	if log == nil {
		log = logger.NopLogger()
	}
	return &Reporter{client: client, logger: log}
}

func (r *Reporter) Enabled() bool {
	return r.client != nil
}

// Report emits the scanned and per-status counters for res, preceded by a
// security event when the object is infected. It is a no-op when disabled.
func (r *Reporter) Report(ctx context.Context, res scan.Result) error {
	if !r.Enabled() {
		return nil
	}

	name, err := resultMetricName(res.Status)
	if err != nil {
		return err
	}

	tags := res.Tags()
	var errs []error

	if res.Status == scan.StatusInfected {
		event := SecurityEvent{
			Title: constants.InfectedEventTitle,
			Text:  fmt.Sprintf("Virus found in %s.", res.Location()),
			Tags:  tags,
		}
		if err := r.client.CreateEvent(ctx, event); err != nil {
			errs = append(errs, apperrors.ErrTransport.WithCause(fmt.Errorf("create datadog event: %w", err)))
		}
	}

	batch := []MetricEvent{
		counter(constants.MetricScanned, tags),
		counter(constants.MetricPrefix+"."+name, tags),
	}

	r.logger.InfowCtx(ctx, "Sending metrics to Datadog",
		"bucket", res.Bucket,
		"key", res.ObjectKey,
		"status", res.Status,
	)
	if err := r.client.SendMetrics(ctx, batch); err != nil {
		errs = append(errs, apperrors.ErrTransport.WithCause(fmt.Errorf("send datadog metrics: %w", err)))
	}

	return errors.Join(errs...)
}

func resultMetricName(status scan.Status) (string, error) {
	switch status {
	case scan.StatusClean:
		return "clean", nil
	case scan.StatusInfected:
		return "infected", nil
	default:
		return "", status.Validate()
	}
}

func counter(name string, tags []string) MetricEvent {
	return MetricEvent{
		Metric: name,
		Type:   MetricTypeCounter,
		Points: 1,
		Tags:   append([]string(nil), tags...),
	}
}
