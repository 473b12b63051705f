package health

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubChecker struct {
	name string
	err  error
}

func (s stubChecker) Name() string                { return s.name }
func (s stubChecker) Check(context.Context) error { return s.err }

func TestRegistryStatus(t *testing.T) {
	tests := []struct {
		name     string
		required []Checker
		optional []Checker
		want     Status
	}{
		{name: "no checkers", want: StatusHealthy},
		{name: "all healthy", required: []Checker{stubChecker{name: "a"}}, optional: []Checker{stubChecker{name: "b"}}, want: StatusHealthy},
		{name: "optional failing", required: []Checker{stubChecker{name: "a"}}, optional: []Checker{stubChecker{name: "b", err: fmt.Errorf("down")}}, want: StatusDegraded},
		{name: "required failing", required: []Checker{stubChecker{name: "a", err: fmt.Errorf("down")}}, optional: []Checker{stubChecker{name: "b", err: fmt.Errorf("down")}}, want: StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewCheckerRegistry()
			for _, c := range tt.required {
				r.Register(c)
			}
			for _, c := range tt.optional {
				r.RegisterOptional(c)
			}

			h := r.Check(context.Background())
			assert.Equal(t, tt.want, h.Status)
			assert.Len(t, h.Checks, len(tt.required)+len(tt.optional))
		})
	}
}

func TestRegistryReportsMessage(t *testing.T) {
	r := NewCheckerRegistry()
	r.Register(stubChecker{name: "kafka", err: fmt.Errorf("connection refused")})

	h := r.Check(context.Background())
	assert.Equal(t, StatusUnhealthy, h.Checks["kafka"].Status)
	assert.Equal(t, "connection refused", h.Checks["kafka"].Message)
}

func TestKafkaCheckerWithoutBrokers(t *testing.T) {
	err := NewKafkaChecker(nil).Check(context.Background())
	assert.EqualError(t, err, "no kafka brokers configured")
}

func TestKafkaCheckerUnreachable(t *testing.T) {
	err := NewKafkaChecker([]string{"127.0.0.1:1"}).Check(context.Background())
	assert.Error(t, err)
}

func TestWebhookChecker(t *testing.T) {
	assert.NoError(t, NewWebhookChecker("https://hooks.slack.com/services/T/B/X").Check(context.Background()))
	assert.Error(t, NewWebhookChecker("hooks.slack.com/services").Check(context.Background()))
	assert.Error(t, NewWebhookChecker("ftp://example.com").Check(context.Background()))
}
