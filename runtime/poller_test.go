package runtime

import (
	"context"
	"testing"
	"time"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"

	"github.com/foldflow/pipeline/types"
)

func quickOpts() PollOptions {
	return PollOptions{Interval: 5 * time.Millisecond, Timeout: time.Second}
}

func TestPollSubmitShortCircuitsOnCompleted(t *testing.T) {
	polls := 0
	final, err := PollUntilTerminal(context.Background(),
		func(ctx context.Context) (*JobStatus, error) {
			return &JobStatus{State: types.JobCompleted, Result: types.Data{"output_file": "x.pdb"}}, nil
		},
		func(ctx context.Context) (*JobStatus, error) {
			polls++
			return &JobStatus{State: types.JobRunning}, nil
		},
		quickOpts())

	assert.Nil(t, err)
	assert.Equal(t, 0, polls)
	file, _ := final.Result.GetString("output_file")
	assert.Equal(t, "x.pdb", file)
}

func TestPollAcceptedThenRunningThenCompleted(t *testing.T) {
	polls := 0
	var progress []float64

	opts := quickOpts()
	opts.OnProgress = func(message string, percent float64) {
		progress = append(progress, percent)
	}

	final, err := PollUntilTerminal(context.Background(),
		func(ctx context.Context) (*JobStatus, error) {
			return &JobStatus{State: types.JobAccepted, JobID: "job-1"}, nil
		},
		func(ctx context.Context) (*JobStatus, error) {
			polls++
			switch polls {
			case 1:
				return &JobStatus{State: types.JobRunning, Progress: 30}, nil
			case 2:
				return &JobStatus{State: types.JobRunning, Progress: 60}, nil
			default:
				return &JobStatus{State: types.JobCompleted, Result: types.Data{"output_file": "x.pdb"}}, nil
			}
		},
		opts)

	assert.Nil(t, err)
	assert.Equal(t, 3, polls)
	assert.Equal(t, []float64{30, 60}, progress)
	file, _ := final.Result.GetString("output_file")
	assert.Equal(t, "x.pdb", file)
	assert.Equal(t, "job-1", final.JobID)
}

func TestPollSubmitRejection(t *testing.T) {
	_, err := PollUntilTerminal(context.Background(),
		func(ctx context.Context) (*JobStatus, error) {
			return &JobStatus{State: types.JobError, Err: "bad contigs"}, nil
		},
		nil,
		quickOpts())

	assert.True(t, types.IsJobFailedError(err))
	assert.Contains(t, err.Error(), "bad contigs")
}

func TestPollSubmitTransportFailure(t *testing.T) {
	_, err := PollUntilTerminal(context.Background(),
		func(ctx context.Context) (*JobStatus, error) {
			return nil, errors.New("connection refused")
		},
		nil,
		quickOpts())

	assert.True(t, types.IsAdapterRequestError(err))
}

func TestPollTransientFailuresAreRetried(t *testing.T) {
	polls := 0
	final, err := PollUntilTerminal(context.Background(),
		func(ctx context.Context) (*JobStatus, error) {
			return &JobStatus{State: types.JobQueued, JobID: "job-2"}, nil
		},
		func(ctx context.Context) (*JobStatus, error) {
			polls++
			switch polls {
			case 1:
				return nil, errors.New("network hiccup")
			case 2:
				return &JobStatus{State: types.JobNotFound}, nil
			default:
				return &JobStatus{State: types.JobCompleted}, nil
			}
		},
		quickOpts())

	assert.Nil(t, err)
	assert.Equal(t, 3, polls)
	assert.Equal(t, "job-2", final.JobID)
}

func TestPollTimeoutAtBoundary(t *testing.T) {
	opts := PollOptions{Interval: 5 * time.Millisecond, Timeout: 60 * time.Millisecond}

	start := time.Now()
	_, err := PollUntilTerminal(context.Background(),
		func(ctx context.Context) (*JobStatus, error) {
			return &JobStatus{State: types.JobRunning, JobID: "stuck"}, nil
		},
		func(ctx context.Context) (*JobStatus, error) {
			return &JobStatus{State: types.JobRunning}, nil
		},
		opts)
	elapsed := time.Since(start)

	assert.True(t, types.IsTimeoutError(err))
	assert.GreaterOrEqual(t, elapsed, opts.Timeout)
	assert.Less(t, elapsed, opts.Timeout+20*opts.Interval)
}

func TestPollCancellationAbortsBeforeNextSleep(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	polls := 0
	done := make(chan error, 1)
	go func() {
		_, err := PollUntilTerminal(ctx,
			func(ctx context.Context) (*JobStatus, error) {
				return &JobStatus{State: types.JobRunning}, nil
			},
			func(ctx context.Context) (*JobStatus, error) {
				polls++
				return &JobStatus{State: types.JobRunning}, nil
			},
			PollOptions{Interval: 10 * time.Millisecond, Timeout: time.Minute})
		done <- err
	}()

	time.Sleep(25 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.Equal(t, context.Canceled, err)
	case <-time.After(time.Second):
		t.Fatal("poll loop did not observe cancellation")
	}
}

func TestEstimateProgress(t *testing.T) {
	// explicit backend percentage wins
	assert.Equal(t, 42.0, estimateProgress(42, time.Minute, time.Minute))
	// heuristic is capped at 90
	assert.Equal(t, 90.0, estimateProgress(-1, 2*time.Minute, time.Minute))
	// no estimate means no heuristic
	assert.Equal(t, -1.0, estimateProgress(-1, time.Minute, 0))
	// halfway through the estimate is 45
	assert.InDelta(t, 45.0, estimateProgress(-1, 30*time.Second, time.Minute), 0.01)
}
