package constants

import "time"

const (
	ServiceName = "avnotify"
)

const (
	KafkaBatchTimeout = 10 * time.Millisecond
	KafkaWriteTimeout = 10 * time.Second
	KafkaFetchBackoff = time.Second
)

const (
	DefaultGroupID    = "avnotify"
	DefaultInputTopic = "scan_results"
)

const (
	DefaultHTTPTimeout   = 10 * time.Second
	DefaultServerPort    = 8080
	DefaultServerTimeout = 15 * time.Second
	HealthCheckTimeout   = 5 * time.Second
)

const (
	ShutdownTimeout = 5 * time.Second
)

// Datadog metric and event names.
const (
	MetricPrefix       = "s3_antivirus"
	MetricScanned      = MetricPrefix + ".scanned"
	InfectedEventTitle = "Infected S3 Object Found"
)

// Scan timestamps in chat alerts are always rendered for the operations team.
const (
	AlertTimeZone   = "Australia/Sydney"
	AlertTimeLayout = "01-02-2006 15:04:05"
)
