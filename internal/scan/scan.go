// Package scan holds the scan result produced by the upstream antivirus engine
// for a single stored object.
package scan

import (
	"fmt"
	"strings"

	"avnotify/pkg/errors"
)

type Status string

const (
	StatusClean    Status = "CLEAN"
	StatusInfected Status = "INFECTED"
)

// ParseStatus accepts the two known statuses, ignoring case and surrounding
// whitespace. Anything else is a validation error.
func ParseStatus(s string) (Status, error) {
	status := Status(strings.ToUpper(strings.TrimSpace(s)))
	if err := status.Validate(); err != nil {
		return "", err
	}
	return status, nil
}

func (s Status) Validate() error {
	switch s {
	case StatusClean, StatusInfected:
		return nil
	default:
		return errors.ErrValidation.
			WithMessage("invalid scan status %q: want %s or %s", string(s), StatusClean, StatusInfected).
			WithDetail("status", string(s))
	}
}

func (s Status) String() string {
	return string(s)
}

type Result struct {
	Environment string
	Bucket      string
	ObjectKey   string
	Status      Status
}

func (r Result) Validate() error {
	return r.Status.Validate()
}

// Tags returns the env, bucket and object tags in that order.
func (r Result) Tags() []string {
	return []string{
		"env:" + r.Environment,
		"bucket:" + r.Bucket,
		"object:" + r.ObjectKey,
	}
}

// Location renders the object as an s3:// URI.
func (r Result) Location() string {
	return fmt.Sprintf("s3://%s/%s", r.Bucket, r.ObjectKey)
}
