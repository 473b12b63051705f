package reporter

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/DataDog/datadog-api-client-go/v2/api/datadog"
	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV1"

	"avnotify/internal/config"
	"avnotify/internal/logger"
)

// seriesTypeCount is the v1 series type used for counter metrics.
const seriesTypeCount = "count"

// DatadogClient submits metrics and events through the Datadog v1 API.
type DatadogClient struct {
	apiKey  string
	site    string
	metrics *datadogV1.MetricsApi
	events  *datadogV1.EventsApi
	now     func() time.Time
}

func NewDatadogClient(cfg config.DatadogConfig) *DatadogClient {
	apiClient := datadog.NewAPIClient(datadog.NewConfiguration())
	return &DatadogClient{
		apiKey:  cfg.APIKey,
		site:    cfg.Site,
		metrics: datadogV1.NewMetricsApi(apiClient),
		events:  datadogV1.NewEventsApi(apiClient),
		now:     time.Now,
	}
}

// NewFromConfig builds a Reporter backed by Datadog, or a disabled Reporter
// when no API key is configured.
func NewFromConfig(cfg config.DatadogConfig, log logger.Logger) *Reporter {
	if !cfg.Enabled() {
		return New(nil, log)
	}
	return New(NewDatadogClient(cfg), log)
}

func (c *DatadogClient) authContext(ctx context.Context) context.Context {
	ctx = context.WithValue(ctx, datadog.ContextAPIKeys, map[string]datadog.APIKey{
		"apiKeyAuth": {Key: c.apiKey},
	})
	if c.site != "" {
		ctx = context.WithValue(ctx, datadog.ContextServerVariables, map[string]string{
			"site": c.site,
		})
	}
	return ctx
}

func (c *DatadogClient) SendMetrics(ctx context.Context, metrics []MetricEvent) error {
	payload := datadogV1.MetricsPayload{Series: toSeries(metrics, c.now())}

	_, httpResp, err := c.metrics.SubmitMetrics(c.authContext(ctx), payload)
	if err != nil {
		return fmt.Errorf("submit metrics%s: %w", statusSuffix(httpResp), err)
	}
	return nil
}

func (c *DatadogClient) CreateEvent(ctx context.Context, event SecurityEvent) error {
	alertType := datadogV1.EVENTALERTTYPE_ERROR
	body := datadogV1.EventCreateRequest{
		Title:     event.Title,
		Text:      event.Text,
		Tags:      event.Tags,
		AlertType: &alertType,
	}

	_, httpResp, err := c.events.CreateEvent(c.authContext(ctx), body)
	if err != nil {
		return fmt.Errorf("create event%s: %w", statusSuffix(httpResp), err)
	}
	return nil
}

// toSeries expands each counter into a single-point count series stamped at
// now.
func toSeries(metrics []MetricEvent, now time.Time) []datadogV1.Series {
	ts := float64(now.Unix())
	series := make([]datadogV1.Series, 0, len(metrics))
	for _, m := range metrics {
		seriesType := m.Type
		if seriesType == MetricTypeCounter {
			seriesType = seriesTypeCount
		}
		series = append(series, datadogV1.Series{
			Metric: m.Metric,
			Type:   datadog.PtrString(seriesType),
			Points: [][]*float64{{datadog.PtrFloat64(ts), datadog.PtrFloat64(float64(m.Points))}},
			Tags:   m.Tags,
		})
	}
	return series
}

func statusSuffix(resp *http.Response) string {
	if resp == nil {
		return ""
	}
	return fmt.Sprintf(" (HTTP %d)", resp.StatusCode)
}
