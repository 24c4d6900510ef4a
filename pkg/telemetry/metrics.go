// SPDX-License-Identifier: Apache-2.0
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// WorkflowMetrics tracks stage runs, member failures, unit health, and
// notification volume for production monitoring.
type WorkflowMetrics struct {
	// memberCounter tracks member invocations by unit and outcome
	memberCounter metric.Int64Counter

	// stageDuration tracks stage execution time by kind
	stageDuration metric.Float64Histogram

	// stageFailures tracks failed members per stage run
	stageFailures metric.Int64Counter

	// unitStatusGauge tracks unit health (0=unavailable, 1=degraded, 2=available)
	unitStatusGauge metric.Int64Gauge

	// notificationCounter tracks notifications persisted by priority
	notificationCounter metric.Int64Counter
}

// NewWorkflowMetrics creates a workflow metrics tracker with OTEL meters.
func NewWorkflowMetrics() (*WorkflowMetrics, error) {
	meter := otel.Meter("adjutant/workflow")

	memberCounter, err := meter.Int64Counter(
		"adjutant.workflow.members.total",
		metric.WithDescription("Member invocations by unit and outcome"),
	)
	if err != nil {
		return nil, err
	}

	stageDuration, err := meter.Float64Histogram(
		"adjutant.workflow.stage.duration_ms",
		metric.WithDescription("Stage execution duration by kind"),
	)
	if err != nil {
		return nil, err
	}

	stageFailures, err := meter.Int64Counter(
		"adjutant.workflow.stage.failed_members",
		metric.WithDescription("Failed members per stage run"),
	)
	if err != nil {
		return nil, err
	}

	unitStatusGauge, err := meter.Int64Gauge(
		"adjutant.registry.unit.status",
		metric.WithDescription("Unit status (0=unavailable, 1=degraded, 2=available)"),
	)
	if err != nil {
		return nil, err
	}

	notificationCounter, err := meter.Int64Counter(
		"adjutant.notify.sent.total",
		metric.WithDescription("Notifications persisted by priority"),
	)
	if err != nil {
		return nil, err
	}

	return &WorkflowMetrics{
		memberCounter:       memberCounter,
		stageDuration:       stageDuration,
		stageFailures:       stageFailures,
		unitStatusGauge:     unitStatusGauge,
		notificationCounter: notificationCounter,
	}, nil
}

// RecordMember records one member invocation outcome.
func (m *WorkflowMetrics) RecordMember(ctx context.Context, unit string, failed bool) {
	if m == nil {
		return
	}
	outcome := "success"
	if failed {
		outcome = "failed"
	}
	m.memberCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("unit", unit),
		attribute.String("outcome", outcome),
	))
}

// RecordStage records a completed stage run.
func (m *WorkflowMetrics) RecordStage(ctx context.Context, kind string, duration time.Duration, failedMembers int) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("kind", kind))
	m.stageDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
	if failedMembers > 0 {
		m.stageFailures.Add(ctx, int64(failedMembers), attrs)
	}
}

// RecordUnitStatus records a unit's health after a registry load.
func (m *WorkflowMetrics) RecordUnitStatus(ctx context.Context, unit string, status string) {
	if m == nil {
		return
	}
	var value int64
	switch status {
	case "AVAILABLE":
		value = 2
	case "DEGRADED":
		value = 1
	default:
		value = 0
	}
	m.unitStatusGauge.Record(ctx, value, metric.WithAttributes(
		attribute.String("unit", unit),
	))
}

// RecordNotification records a persisted notification.
func (m *WorkflowMetrics) RecordNotification(ctx context.Context, priority string) {
	if m == nil {
		return
	}
	m.notificationCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("priority", priority),
	))
}
