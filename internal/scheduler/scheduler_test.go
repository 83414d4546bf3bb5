package scheduler

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/networth/pkg/logger"
)

type countingJob struct {
	name string
	runs int
	err  error
}

func (j *countingJob) Run() error {
	j.runs++
	return j.err
}

func (j *countingJob) Name() string { return j.name }

func TestAddJobValidatesSchedule(t *testing.T) {
	s := New(logger.Disabled())

	err := s.AddJob("not a schedule", &countingJob{name: "bad"})
	assert.Error(t, err)

	err = s.AddJob("@hourly", &countingJob{name: "good"})
	assert.NoError(t, err)
}

func TestRunNowExecutesImmediately(t *testing.T) {
	s := New(logger.Disabled())
	job := &countingJob{name: "immediate"}

	require.NoError(t, s.RunNow(job))
	assert.Equal(t, 1, job.runs)
}

func TestRunNowPropagatesJobError(t *testing.T) {
	s := New(logger.Disabled())
	job := &countingJob{name: "failing", err: errors.New("boom")}

	err := s.RunNow(job)
	assert.Error(t, err)
	assert.Equal(t, 1, job.runs)
}

func TestStartStop(t *testing.T) {
	s := New(logger.Disabled())
	require.NoError(t, s.AddJob("@every 1h", &countingJob{name: "periodic"}))

	s.Start()
	s.Stop()
}
