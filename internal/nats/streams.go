// Package nats provides stream configuration for perf-test job processing
package nats

import (
	"context"
	"time"
)

// Stream names
const (
	StreamJobs = "LOADLENS_JOBS"
)

// Subject patterns for job routing
const (
	// SubjectJobsAll matches all job subjects
	SubjectJobsAll = "jobs.>"

	// Job type subjects
	SubjectJobGeneration = "jobs.generation"
	SubjectJobExecution  = "jobs.execution"
	SubjectJobAnalysis   = "jobs.analysis"
)

// Consumer names
const (
	ConsumerGeneration = "generation-worker"
	ConsumerExecution  = "execution-worker"
	ConsumerAnalysis   = "analysis-worker"
)

// DefaultStreamConfig returns the default stream configuration for jobs
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		Name:        StreamJobs,
		Subjects:    []string{SubjectJobsAll},
		MaxMsgs:     100000,
		MaxBytes:    1024 * 1024 * 500, // 500MB
		MaxAge:      7 * 24 * time.Hour,
		Replicas:    1,
		Description: "LoadLens job processing stream",
	}
}

// SetupStreams creates all required streams and consumers
func (c *Client) SetupStreams(ctx context.Context) error {
	// Create main jobs stream
	_, err := c.CreateStream(ctx, DefaultStreamConfig())
	if err != nil {
		return err
	}

	// Create consumers for each worker type
	consumers := []struct {
		name    string
		subject string
	}{
		{ConsumerGeneration, SubjectJobGeneration},
		{ConsumerExecution, SubjectJobExecution},
		{ConsumerAnalysis, SubjectJobAnalysis},
	}

	for _, cons := range consumers {
		if _, err := c.CreateConsumer(ctx, StreamJobs, cons.name, cons.subject); err != nil {
			return err
		}
	}

	return nil
}

// SubjectForJobType returns the NATS subject for a job type
func SubjectForJobType(jobType string) string {
	switch jobType {
	case "script_generation":
		return SubjectJobGeneration
	case "execution":
		return SubjectJobExecution
	case "analysis":
		return SubjectJobAnalysis
	default:
		return ""
	}
}

// ConsumerForJobType returns the consumer name for a job type
func ConsumerForJobType(jobType string) string {
	switch jobType {
	case "script_generation":
		return ConsumerGeneration
	case "execution":
		return ConsumerExecution
	case "analysis":
		return ConsumerAnalysis
	default:
		return ""
	}
}
