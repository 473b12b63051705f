package models

import "time"

// MessageEnvelope is the JSON document carried on the scan results topic.
type MessageEnvelope struct {
	ID        string            `json:"id"`
	Source    string            `json:"source"`
	Timestamp time.Time         `json:"timestamp"`
	Payload   ScanResultPayload `json:"payload"`
	Metadata  Metadata          `json:"metadata"`
}

// ScanResultPayload is the wire form of a scan result. Status is kept as a
// string so malformed producers can be rejected with a clear error.
type ScanResultPayload struct {
	Environment string `json:"environment" binding:"required"`
	Bucket      string `json:"bucket" binding:"required"`
	Key         string `json:"key" binding:"required"`
	Status      string `json:"status" binding:"required"`
}

type Metadata struct {
	TraceID string `json:"trace_id,omitempty"`
	Engine  string `json:"engine,omitempty"`
}
