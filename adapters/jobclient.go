package adapters

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/juju/errors"
	log "github.com/sirupsen/logrus"

	"github.com/foldflow/pipeline/runtime"
	"github.com/foldflow/pipeline/types"
)

// jobOutcome bundles the final payload of an async job with the captured
// exchanges worth surfacing in the execution log: the submit call always, and
// the last poll exchange when it carried the terminal state.
type jobOutcome struct {
	Data     types.Data
	Request  *types.CapturedRequest
	Response *types.CapturedResponse
}

// runJob drives a bioinformatics job through the generic poller: submit the
// payload to submitPath, poll /jobs/{id}/status on the task's interval, and
// fetch /jobs/{id}/result once the backend reports completion.
func runJob(ctx context.Context, tc types.TaskContext, node *types.PipelineNode, submitPath string, payload types.Data, estimated time.Duration) (*jobOutcome, error) {
	if tc.APIBaseURL == "" {
		return nil, types.NewValidationErrorf("node %s: no API base URL configured for %s", node.ID, node.Type)
	}

	outcome := &jobOutcome{}
	var jobID string

	submit := func(ctx context.Context) (*runtime.JobStatus, error) {
		body := payload.Clone()
		if body == nil {
			body = types.Data{}
		}
		if tc.SessionID != "" {
			body.Set("session_id", tc.SessionID)
		}
		call, err := doJSONCall(ctx, tc.Client, http.MethodPost, joinURL(tc.APIBaseURL, submitPath), nil, body)
		if call != nil {
			outcome.Request = call.Request
			outcome.Response = call.Response
		}
		if err != nil {
			return nil, errors.Trace(err)
		}
		status := jobStatusFromCall(call)
		jobID = status.JobID
		return status, nil
	}

	pollOnce := func(ctx context.Context) (*runtime.JobStatus, error) {
		call, err := doCall(ctx, tc.Client, http.MethodGet, joinURL(tc.APIBaseURL, fmt.Sprintf("jobs/%s/status", jobID)), nil, nil)
		if err != nil {
			return nil, errors.Trace(err)
		}
		status := jobStatusFromCall(call)
		if status.State == types.JobError {
			outcome.Request = call.Request
			outcome.Response = call.Response
		}
		return status, nil
	}

	final, err := runtime.PollUntilTerminal(ctx, submit, pollOnce, runtime.PollOptions{
		Interval:          tc.PollInterval,
		Timeout:           tc.PollTimeout,
		EstimatedDuration: estimated,
		OnProgress: func(message string, percent float64) {
			if tc.OnProgress != nil {
				tc.OnProgress(node.ID, message, percent)
			}
		},
	})
	if err != nil {
		return outcome, errors.Trace(err)
	}

	if final.Result != nil {
		outcome.Data = final.Result
		return outcome, nil
	}

	// terminal status without an inline payload, fetch the result document
	call, err := doCall(ctx, tc.Client, http.MethodGet, joinURL(tc.APIBaseURL, fmt.Sprintf("jobs/%s/result", jobID)), nil, nil)
	if err != nil {
		return outcome, errors.Trace(err)
	}
	if call.StatusCode >= 400 {
		return outcome, types.NewJobFailedErrorf("fetching result of job %s: HTTP %d", jobID, call.StatusCode)
	}
	outcome.Data = call.Body
	log.Debugf("job %s completed for node %s", jobID, node.ID)
	return outcome, nil
}

// jobStatusFromCall normalizes one HTTP exchange into the poller's vocabulary.
func jobStatusFromCall(call *callResult) *runtime.JobStatus {
	status := &runtime.JobStatus{Progress: -1}

	if call.Body != nil {
		if id, ok := call.Body.GetString("job_id"); ok {
			status.JobID = id
		} else if id, ok := call.Body.GetString("id"); ok {
			status.JobID = id
		}
		if msg, ok := call.Body.GetString("message"); ok {
			status.Message = msg
		}
		if p, ok := call.Body.GetFloat64("progress"); ok {
			status.Progress = p
		}
		if errText, ok := call.Body.GetString("error"); ok && errText != "" {
			status.Err = errText
		}
		if result, ok := call.Body.GetData("result"); ok {
			status.Result = result
		} else if result, ok := call.Body.GetData("data"); ok {
			status.Result = result
		}
	}

	switch {
	case call.StatusCode == http.StatusNotFound:
		status.State = types.JobNotFound
	case call.StatusCode >= 400:
		status.State = types.JobError
		if status.Err == "" {
			status.Err = fmt.Sprintf("HTTP %d: %s", call.StatusCode, truncateBody(call.RawBody))
		}
	default:
		raw, _ := call.Body.GetString("status")
		if raw == "" && call.StatusCode == http.StatusAccepted {
			raw = "accepted"
		}
		status.State = types.NormalizeJobState(raw)
	}
	return status
}
