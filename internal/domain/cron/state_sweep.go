package cron

import (
	"context"
	"time"

	"github.com/questx-lab/authserver/pkg/oauthstate"
	"github.com/questx-lab/authserver/pkg/xcontext"
)

// StateSweepCronJob evicts expired authorization states of a registry living
// in the api process memory.
type StateSweepCronJob struct {
	states   oauthstate.Registry
	interval time.Duration
}

func NewStateSweepCronJob(states oauthstate.Registry, interval time.Duration) *StateSweepCronJob {
	if interval <= 0 {
		interval = time.Minute
	}

	return &StateSweepCronJob{states: states, interval: interval}
}

func (job *StateSweepCronJob) Do(ctx context.Context) {
	if n := job.states.Sweep(ctx); n > 0 {
		xcontext.Logger(ctx).Debugf("Swept %d expired authorization states", n)
	}
}

func (job *StateSweepCronJob) RunNow() bool {
	return false
}

func (job *StateSweepCronJob) Next() time.Time {
	return time.Now().Add(job.interval)
}
