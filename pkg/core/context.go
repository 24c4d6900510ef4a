// SPDX-License-Identifier: Apache-2.0
package core

import (
	"context"

	"github.com/google/uuid"
)

type runIDKey struct{}
type requestKey struct{}

// WithRunID attaches a workflow run id to the context.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}

// RunID returns the run id if present.
func RunID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(runIDKey{}).(string)
	return id, ok
}

// EnsureRunID ensures a run id exists in the context.
func EnsureRunID(ctx context.Context) (context.Context, string) {
	if id, ok := RunID(ctx); ok {
		return ctx, id
	}
	id := "run-" + uuid.NewString()
	return WithRunID(ctx, id), id
}

// WithRequest attaches the free-form workflow request to the context so
// downstream units can read it without threading it through every input.
func WithRequest(ctx context.Context, request string) context.Context {
	return context.WithValue(ctx, requestKey{}, request)
}

// Request returns the workflow request if present.
func Request(ctx context.Context) (string, bool) {
	req, ok := ctx.Value(requestKey{}).(string)
	return req, ok
}
