package dispatch

import (
	"context"

	"avnotify/internal/logger"
	"avnotify/internal/scan"
	"avnotify/pkg/errors"
	"avnotify/pkg/models"
)

type Dispatcher interface {
	Dispatch(ctx context.Context, res scan.Result) (Outcome, error)
}

// ResultFromPayload converts the wire payload, rejecting unknown statuses.
func ResultFromPayload(p models.ScanResultPayload) (scan.Result, error) {
	status, err := scan.ParseStatus(p.Status)
	if err != nil {
		return scan.Result{}, err
	}
	return scan.Result{
		Environment: p.Environment,
		Bucket:      p.Bucket,
		ObjectKey:   p.Key,
		Status:      status,
	}, nil
}

// Handler consumes scan result envelopes from the broker.
type Handler struct {
	dispatcher Dispatcher
	logger     logger.Logger
}

func NewHandler(dispatcher Dispatcher, log logger.Logger) *Handler {
	return &Handler{
		dispatcher: dispatcher,
		logger:     log,
	}
}

// HandleScanResult dispatches one envelope. Malformed payloads are logged and
// dropped so they do not block the partition; delivery failures are returned.
func (h *Handler) HandleScanResult(ctx context.Context, msg models.MessageEnvelope) error {
	res, err := ResultFromPayload(msg.Payload)
	if err != nil {
		h.logger.WarnwCtx(ctx, "Dropping invalid scan result",
			"source", msg.Source,
			"error", err,
		)
		return nil
	}

	_, err = h.dispatcher.Dispatch(ctx, res)
	if err != nil && errors.IsValidation(err) {
		return nil
	}
	return err
}
