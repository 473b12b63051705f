package models

import (
	"time"

	"github.com/google/uuid"
)

// NewScanResultEnvelope wraps a payload with a fresh ID and timestamp.
func NewScanResultEnvelope(source string, payload ScanResultPayload) MessageEnvelope {
	return MessageEnvelope{
		ID:        uuid.New().String(),
		Source:    source,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}
