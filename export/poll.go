package export

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/avast/retry-go/v4"
	"github.com/foomo/contentexport/service/vo"
	"github.com/foomo/contentexport/wiki"
	"go.uber.org/zap"
)

var errStillRunning = errors.New("export still running")

type progressResponse struct {
	Progress float64 `json:"progress"`
	State    *string `json:"state"`
	Result   string  `json:"result"`
	Message  string  `json:"message"`
}

func (p progressResponse) apply(job *vo.ExportJob) {
	job.Progress = int(p.Progress)
	job.RawState = string(vo.JobStateUnknown)
	if p.State != nil {
		job.RawState = *p.State
	}
	job.State = vo.ParseJobState(job.RawState)
	job.ResultURL = p.Result
	job.Message = p.Message
}

// poll queries the task progress with a constant interval until the job
// completes, fails or the attempts run out. Transport errors are retried,
// not found and malformed responses are not.
func (d *Driver) poll(ctx context.Context, page vo.PageRef, job *vo.ExportJob, progressURL, referer string) error {
	header := http.Header{
		"Accept":  {"application/json"},
		"Referer": {referer},
	}
	var (
		attempt  uint
		terminal error
	)
	err := retry.Do(
		func() error {
			attempt++
			d.logger.Debug("polling export task",
				zap.String("taskID", job.TaskID),
				zap.Uint("attempt", attempt),
				zap.Uint("maxAttempts", d.cfg.MaxPollAttempts),
			)

			var resp progressResponse
			if err := d.client.GetJSON(ctx, progressURL, nil, header, &resp); err != nil {
				switch {
				case wiki.IsNotFound(err):
					terminal = fmt.Errorf("%w: task %s expired or invalid: %w", ErrTransport, job.TaskID, err)
					return retry.Unrecoverable(terminal)
				case errors.Is(err, wiki.ErrDecode):
					terminal = fmt.Errorf("%w: progress of task %s: %w", ErrParse, job.TaskID, err)
					return retry.Unrecoverable(terminal)
				default:
					d.logger.Warn("polling failed, retrying",
						zap.String("taskID", job.TaskID),
						zap.String("url", progressURL),
						zap.Uint("attempt", attempt),
						zap.Error(err),
					)
					return fmt.Errorf("%w: %w", ErrTransport, err)
				}
			}

			resp.apply(job)
			if d.progress != nil {
				d.progress(page, *job)
			}

			if job.State == vo.JobStateFailed {
				message := job.Message
				if message == "" {
					message = "no message"
				}
				terminal = fmt.Errorf("%w: task %s: %s", ErrJobFailed, job.TaskID, message)
				return retry.Unrecoverable(terminal)
			}
			if job.Done() {
				if job.ResultURL == "" {
					terminal = fmt.Errorf("%w: task %s completed without result url", ErrParse, job.TaskID)
					return retry.Unrecoverable(terminal)
				}
				return nil
			}
			return errStillRunning
		},
		retry.Context(ctx),
		retry.Attempts(d.cfg.MaxPollAttempts),
		retry.Delay(d.cfg.PollInterval),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
	switch {
	case err == nil:
		return nil
	case terminal != nil:
		return terminal
	case ctx.Err() != nil:
		return fmt.Errorf("%w: task %s: %w", ErrTransport, job.TaskID, ctx.Err())
	default:
		return fmt.Errorf("%w: task %s not finished after %d attempts (progress %d%%, state %s): %w",
			ErrTimeout, job.TaskID, attempt, job.Progress, job.RawState, err)
	}
}
