// SPDX-License-Identifier: Apache-2.0
package telemetry

import (
	"go.opentelemetry.io/otel/attribute"

	"github.com/dmoret/adjutant/pkg/errors"
)

// Semantic conventions for Adjutant telemetry.
const (
	// Unit attributes
	AttrUnitName   = "adjutant.unit.name"
	AttrUnitStatus = "adjutant.unit.status"
	AttrUnitReason = "adjutant.unit.reason"

	// Stage attributes
	AttrStageKind    = "adjutant.stage.kind"
	AttrStageState   = "adjutant.stage.state"
	AttrStageMembers = "adjutant.stage.members"

	// Run attributes
	AttrRunID   = "adjutant.run.id"
	AttrRequest = "adjutant.run.request"

	// Notification attributes
	AttrNotificationID       = "adjutant.notification.id"
	AttrNotificationPriority = "adjutant.notification.priority"

	// Error attributes
	AttrErrorCode        = "adjutant.error.code"
	AttrErrorRecoverable = "adjutant.error.recoverable"
)

// UnitAttributes returns common attributes for unit spans.
func UnitAttributes(name, status, reason string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(AttrUnitName, name),
		attribute.String(AttrUnitStatus, status),
	}
	if reason != "" {
		attrs = append(attrs, attribute.String(AttrUnitReason, reason))
	}
	return attrs
}

// StageAttributes returns attributes for stage spans.
func StageAttributes(kind, state string, members []string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(AttrStageKind, kind),
		attribute.String(AttrStageState, state),
	}
	if len(members) > 0 {
		attrs = append(attrs, attribute.StringSlice(AttrStageMembers, members))
	}
	return attrs
}

// RunAttributes returns attributes for workflow run spans. Long requests
// are truncated.
func RunAttributes(runID, request string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(AttrRunID, runID),
	}
	if request != "" {
		if len(request) > 200 {
			request = request[:200] + "..."
		}
		attrs = append(attrs, attribute.String(AttrRequest, request))
	}
	return attrs
}

// ErrorAttributes converts a typed error to span attributes.
func ErrorAttributes(err *errors.AdjutantError) []attribute.KeyValue {
	if err == nil {
		return nil
	}
	attrs := []attribute.KeyValue{
		attribute.String(AttrErrorCode, string(err.Code)),
		attribute.Bool(AttrErrorRecoverable, err.Recoverable),
	}
	for k, v := range err.Attributes {
		attrs = append(attrs, attribute.String(k, v))
	}
	return attrs
}
