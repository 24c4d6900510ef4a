// SPDX-License-Identifier: Apache-2.0
// Package workflow arranges capability units into parallel and sequential
// stages and executes them with partial-failure tolerance.
package workflow

import "fmt"

// StageKind selects the execution model of a stage.
type StageKind string

const (
	// StageParallel runs members concurrently and joins before the next stage.
	StageParallel StageKind = "parallel"

	// StageSequential runs members one after another on the calling goroutine.
	StageSequential StageKind = "sequential"
)

// Stage groups unit names for execution. For sequential stages the member
// order is the execution order; for parallel stages it fixes the result
// order regardless of completion order.
type Stage struct {
	Name    string    `json:"name,omitempty" yaml:"name,omitempty"`
	Kind    StageKind `json:"kind" yaml:"kind"`
	Members []string  `json:"members" yaml:"members"`
}

// Workflow is an ordered sequence of stages composing one request.
type Workflow struct {
	ID     string  `json:"id" yaml:"id"`
	Stages []Stage `json:"stages" yaml:"stages"`
}

// Validate ensures the workflow is well-formed for execution.
func (w *Workflow) Validate() error {
	if w == nil {
		return fmt.Errorf("workflow is nil")
	}
	if len(w.Stages) == 0 {
		return fmt.Errorf("workflow has no stages")
	}
	for i, stage := range w.Stages {
		switch stage.Kind {
		case StageParallel, StageSequential:
		default:
			return fmt.Errorf("stage %d has unknown kind %q", i, stage.Kind)
		}
		if len(stage.Members) == 0 {
			return fmt.Errorf("stage %d has no members", i)
		}
		for _, member := range stage.Members {
			if member == "" {
				return fmt.Errorf("stage %d has an empty member name", i)
			}
		}
	}
	return nil
}
