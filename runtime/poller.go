package runtime

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/foldflow/pipeline/types"
)

// JobStatus is one observation of an asynchronous job, normalized from the
// backing service's vocabulary.
type JobStatus struct {
	State    types.JobState
	JobID    string
	Message  string
	Progress float64 // 0-100; <0 when the backend reports none
	Result   types.Data
	Err      string
}

// SubmitFunc performs the initial request of an asynchronous job.
type SubmitFunc func(ctx context.Context) (*JobStatus, error)

// PollFunc checks the job once and returns its current status.
type PollFunc func(ctx context.Context) (*JobStatus, error)

type PollOptions struct {
	// Interval between poll ticks. Zero falls back to 3s.
	Interval time.Duration
	// Timeout bounds total wall-clock polling. Zero falls back to 15m. The
	// remote job is not cancelled on expiry.
	Timeout time.Duration
	// EstimatedDuration drives the heuristic progress percentage when the
	// backend provides none. Zero disables the heuristic.
	EstimatedDuration time.Duration

	OnProgress func(message string, percent float64)
}

const (
	defaultPollInterval = 3 * time.Second
	defaultPollTimeout  = 15 * time.Minute
)

// PollUntilTerminal drives a submit -> poll -> terminal-state loop.
//
// Submit outcomes: completed short-circuits to success; accepted/queued/running
// enters the polling phase; anything else fails immediately. During polling,
// transport errors and not_found are swallowed and retried on the next tick;
// only an explicit terminal error, the timeout budget, or ctx cancellation end
// the loop early.
func PollUntilTerminal(ctx context.Context, submit SubmitFunc, pollOnce PollFunc, opts PollOptions) (*JobStatus, error) {
	interval := opts.Interval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultPollTimeout
	}

	first, err := submit(ctx)
	if err != nil {
		return nil, types.NewAdapterRequestError(err)
	}

	switch first.State {
	case types.JobCompleted:
		return first, nil
	case types.JobAccepted, types.JobQueued, types.JobRunning:
		// fall through to polling
	default:
		return nil, types.NewJobFailedErrorf("job rejected on submit: %s", firstNonEmpty(first.Err, first.Message, string(first.State)))
	}

	start := time.Now()
	deadline := start.Add(timeout)

	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}

		if !time.Now().Before(deadline) {
			return nil, types.NewTimeoutErrorf("job %s still not terminal after %v", first.JobID, timeout)
		}

		status, err := pollOnce(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			// transient poll failure, retry on the next tick
			log.Debugf("poll %s failed, retrying: %v", first.JobID, err)
			status = &JobStatus{State: types.JobRunning, JobID: first.JobID}
		}

		switch status.State {
		case types.JobCompleted:
			if status.JobID == "" {
				status.JobID = first.JobID
			}
			return status, nil

		case types.JobError:
			return nil, types.NewJobFailedErrorf("%s", firstNonEmpty(status.Err, status.Message, "job failed"))

		case types.JobNotFound:
			// the job may not be registered server-side yet, keep polling
			log.Debugf("job %s not found yet, keep polling", first.JobID)

		default:
			if opts.OnProgress != nil {
				opts.OnProgress(status.Message, estimateProgress(status.Progress, time.Since(start), opts.EstimatedDuration))
			}
		}

		timer.Reset(interval)
	}
}

// estimateProgress prefers the backend's explicit percentage and otherwise
// approximates min(90, elapsed/estimated*90). Monotonic is all the UI needs.
func estimateProgress(reported float64, elapsed, estimated time.Duration) float64 {
	if reported >= 0 {
		return reported
	}
	if estimated <= 0 {
		return -1
	}
	p := elapsed.Seconds() / estimated.Seconds() * 90
	if p > 90 {
		p = 90
	}
	return p
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
