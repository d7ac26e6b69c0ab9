package pipeline

import (
	"context"
	"fmt"
	"log"

	"clipforge/internal/jobstore"
	"clipforge/internal/models"
	"clipforge/internal/platform"
)

// baseProgress is reported as soon as the job starts running, before
// any target concludes. The remaining range is split evenly across
// targets as they finish.
const baseProgress = 15

// Orchestrator admits a job, fans it out to one worker per target, and
// aggregates outcomes into the job store. Start returns immediately;
// everything after the job entry exists happens off the request path.
type Orchestrator struct {
	jobs     *jobstore.Store
	worker   *TargetWorker
	records  *RecordSync
	registry *platform.Registry
}

// NewOrchestrator creates a new Orchestrator.
func NewOrchestrator(jobs *jobstore.Store, worker *TargetWorker, records *RecordSync, registry *platform.Registry) *Orchestrator {
	return &Orchestrator{
		jobs:     jobs,
		worker:   worker,
		records:  records,
		registry: registry,
	}
}

// Start creates the job entry and kicks off processing in the
// background. The caller is not blocked beyond job creation.
func (o *Orchestrator) Start(jobID, inputPath string, targets []string) {
	o.jobs.Create(jobID, targets)
	go o.run(jobID, inputPath, targets)
}

type targetOutcome struct {
	platform string
	err      error
}

func (o *Orchestrator) run(jobID, inputPath string, targets []string) {
	// A fault during admission or finalization must still land the job
	// in a terminal state, not vanish into a log line.
	defer func() {
		if r := recover(); r != nil {
			log.Printf("job %s: orchestrator panic: %v", jobID, r)
			o.fail(jobID, fmt.Sprintf("internal error: %v", r))
		}
	}()

	ctx := context.Background()

	if err := o.records.MarkAccepted(ctx, jobID); err != nil {
		log.Printf("job %s: failed to mark record accepted: %v", jobID, err)
		o.fail(jobID, "failed to update record: "+err.Error())
		return
	}

	o.jobs.Update(jobID, func(j *jobstore.Job) {
		j.Status = models.JobStatusRunning
		j.Progress = baseProgress
	})

	results := make(chan targetOutcome, len(targets))
	for _, target := range targets {
		go func(target string) {
			defer func() {
				if r := recover(); r != nil {
					results <- targetOutcome{target, fmt.Errorf("worker panic: %v", r)}
				}
			}()
			profile, ok := o.registry.Lookup(target)
			if !ok {
				results <- targetOutcome{target, fmt.Errorf("unknown platform %q", target)}
				return
			}
			results <- targetOutcome{target, o.worker.Run(ctx, jobID, inputPath, profile)}
		}(target)
	}

	succeeded := 0
	for done := 1; done <= len(targets); done++ {
		res := <-results
		if res.err != nil {
			log.Printf("job %s: target %s failed: %v", jobID, res.platform, res.err)
		} else {
			succeeded++
			log.Printf("job %s: target %s completed", jobID, res.platform)
		}

		progress := baseProgress + done*(100-baseProgress)/len(targets)
		if done == len(targets) {
			// 100 is reserved for the terminal transition below.
			progress = 99
		}
		o.jobs.Update(jobID, func(j *jobstore.Job) {
			if res.err != nil {
				j.Failed = append(j.Failed, res.platform)
			} else {
				j.Completed = append(j.Completed, res.platform)
			}
			j.Progress = progress
		})
	}

	if err := o.records.MarkConcluded(ctx, jobID, succeeded > 0); err != nil {
		log.Printf("job %s: failed to mark record concluded: %v", jobID, err)
		o.fail(jobID, "failed to update record: "+err.Error())
		return
	}

	status := models.JobStatusFailed
	if succeeded > 0 {
		status = models.JobStatusCompleted
	}
	o.jobs.Update(jobID, func(j *jobstore.Job) {
		j.Status = status
		j.Progress = 100
	})
	o.jobs.ScheduleEviction(jobID)

	log.Printf("job %s: finished (%d/%d targets succeeded)", jobID, succeeded, len(targets))
}

// fail drives the job and its record to a terminal failed state after
// an unrecoverable fault.
func (o *Orchestrator) fail(jobID, detail string) {
	o.jobs.Update(jobID, func(j *jobstore.Job) {
		j.Status = models.JobStatusFailed
		j.Progress = 100
		j.Error = detail
	})
	o.jobs.ScheduleEviction(jobID)

	if err := o.records.MarkConcluded(context.Background(), jobID, false); err != nil {
		log.Printf("job %s: failed to mark record failed: %v", jobID, err)
	}
}
