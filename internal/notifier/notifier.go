// Package notifier posts scan results to a Slack incoming webhook.
//
// Infected results are always posted. Clean results are posted only when
// slack.notify_on_clean is enabled. With no webhook URL configured nothing is
// ever sent.
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
	_ "time/tzdata"

	"avnotify/internal/config"
	"avnotify/internal/constants"
	"avnotify/internal/logger"
	"avnotify/internal/scan"
	apperrors "avnotify/pkg/errors"
)

type Notifier struct {
	webhookURL    string
	notifyOnClean bool
	client        *http.Client
	location      *time.Location
	now           func() time.Time
	logger        logger.Logger
}

type Option func(*Notifier)

func WithHTTPClient(client *http.Client) Option {
	return func(n *Notifier) {
		n.client = client
	}
}

func WithClock(now func() time.Time) Option {
	return func(n *Notifier) {
		n.now = now
	}
}

func WithLogger(log logger.Logger) Option {
	return func(n *Notifier) {
		n.logger = log
	}
}

func New(cfg config.SlackConfig, opts ...Option) (*Notifier, error) {
	loc, err := time.LoadLocation(constants.AlertTimeZone)
	if err != nil {
		return nil, fmt.Errorf("failed to load time zone %s: %w", constants.AlertTimeZone, err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = constants.DefaultHTTPTimeout
	}

	n := &Notifier{
		webhookURL:    cfg.WebhookURL,
		notifyOnClean: cfg.NotifyOnClean,
		client:        &http.Client{Timeout: timeout},
		location:      loc,
		now:           time.Now,
		logger:        logger.NopLogger(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n, nil
}

func (n *Notifier) Enabled() bool {
	return n.webhookURL != ""
}

// Notify posts res to the webhook and returns the HTTP status code of the
// response. It returns 0 when nothing was posted. Non-2xx responses are not
// errors; only transport failures and invalid statuses are.
func (n *Notifier) Notify(ctx context.Context, res scan.Result) (int, error) {
	if !n.Enabled() {
		return 0, nil
	}
	if res.Status == scan.StatusClean && !n.notifyOnClean {
		n.logger.DebugwCtx(ctx, "Clean result notification suppressed", "key", res.ObjectKey)
		return 0, nil
	}

	msg, err := BuildMessage(res, n.now(), n.location)
	if err != nil {
		return 0, err
	}

	body, err := json.Marshal(msg.payload())
	if err != nil {
		return 0, apperrors.ErrInternal.WithCause(fmt.Errorf("failed to marshal slack payload: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return 0, apperrors.ErrInternal.WithCause(fmt.Errorf("failed to build slack request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return 0, apperrors.ErrTransport.WithCause(fmt.Errorf("slack webhook post: %w", err))
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	n.logger.InfowCtx(ctx, "Slack notification posted",
		"status", res.Status,
		"key", res.ObjectKey,
		"http_status", resp.StatusCode,
	)

	return resp.StatusCode, nil
}
