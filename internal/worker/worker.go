package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/abdul-hamid-achik/job-queue/pkg/job"
	"github.com/abdul-hamid-achik/job-queue/pkg/middleware"
	"github.com/google/uuid"
)

// JobTypeProcess is the queue job type for conversion processing. The
// payload only carries the job id; everything else lives in the job store,
// so a stale delivery can never act on stale parameters.
const JobTypeProcess = "process_conversion"

type ProcessPayload struct {
	JobID uuid.UUID `json:"job_id"`
}

// Broker is the enqueue side of the queue, satisfied by the Redis Streams
// broker adapter in the API binary.
type Broker interface {
	Enqueue(jobType string, payload interface{}) (string, error)
}

// EnqueueProcess puts a conversion job on the queue.
func EnqueueProcess(broker Broker, jobID uuid.UUID) (string, error) {
	queueID, err := broker.Enqueue(JobTypeProcess, ProcessPayload{JobID: jobID})
	if err != nil {
		return "", fmt.Errorf("enqueue job %s: %w", jobID, err)
	}
	return queueID, nil
}

// JobRunner drives one conversion job to a terminal state.
type JobRunner interface {
	Run(ctx context.Context, jobID uuid.UUID) error
}

// ProcessHandler adapts the runner to the queue. Malformed payloads are
// permanent failures; anything the runner returns is an infra error the
// queue should retry.
func ProcessHandler(r JobRunner) func(context.Context, *job.Job) error {
	return func(ctx context.Context, j *job.Job) error {
		var payload ProcessPayload
		if err := j.UnmarshalPayload(&payload); err != nil {
			return middleware.Permanent(fmt.Errorf("invalid payload: %w", err))
		}
		if payload.JobID == uuid.Nil {
			return middleware.Permanent(errors.New("payload missing job_id"))
		}
		return r.Run(ctx, payload.JobID)
	}
}
