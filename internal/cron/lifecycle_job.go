package cron

import (
	"context"
	"fmt"
	"time"
)

// lifecycleRunner is the slice of the lifecycle controller the job
// consumes.
type lifecycleRunner interface {
	RunPass(ctx context.Context, now time.Time) error
}

// LifecycleJobParams configure the server lifecycle job.
type LifecycleJobParams struct {
	Controller lifecycleRunner
	Now        func() time.Time
}

// NewLifecycleJob wraps the lifecycle controller as a scheduled job.
func NewLifecycleJob(params LifecycleJobParams) (Job, error) {
	if params.Controller == nil {
		return nil, fmt.Errorf("lifecycle controller required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &lifecycleJob{controller: params.Controller, now: now}, nil
}

type lifecycleJob struct {
	controller lifecycleRunner
	now        func() time.Time
}

func (j *lifecycleJob) Name() string { return "server-lifecycle" }

func (j *lifecycleJob) Run(ctx context.Context) error {
	return j.controller.RunPass(ctx, j.now().UTC())
}
