package cron

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/artfolio/storefront-backend/pkg/logger"
	"github.com/artfolio/storefront-backend/pkg/metrics"
)

type fakeLock struct {
	held     bool
	acquires int
	releases int
	err      error
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	f.acquires++
	if f.err != nil {
		return false, f.err
	}
	if f.held {
		return false, nil
	}
	f.held = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error {
	f.releases++
	f.held = false
	return nil
}

type testJob struct {
	name string
	err  error
	runs int
}

func (j *testJob) Name() string { return j.name }

func (j *testJob) Run(context.Context) error {
	j.runs++
	return j.err
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard})
}

func TestRunCycleRunsEveryJobAndRecordsResults(t *testing.T) {
	ok := &testJob{name: "ok"}
	failing := &testJob{name: "failing", err: errors.New("boom")}
	lock := &fakeLock{}
	reg := prometheus.NewRegistry()

	svc, err := NewService(ServiceParams{
		Logger:   testLogger(),
		Registry: NewRegistry(failing, nil, ok),
		Lock:     lock,
		Metrics:  metrics.NewPipelineMetrics(reg),
	})
	require.NoError(t, err)

	require.NoError(t, svc.runCycle(context.Background()))
	require.Equal(t, 1, ok.runs)
	require.Equal(t, 1, failing.runs)
	require.Equal(t, 1, lock.releases)
	require.False(t, lock.held)

	want := `
# HELP maintenance_job_runs_total Maintenance job runs by job and result.
# TYPE maintenance_job_runs_total counter
maintenance_job_runs_total{job="failing",result="failed"} 1
maintenance_job_runs_total{job="ok",result="succeeded"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(want), "maintenance_job_runs_total"))
}

func TestRunCycleSkipsWhenLockHeld(t *testing.T) {
	job := &testJob{name: "job"}
	svc, err := NewService(ServiceParams{
		Logger:   testLogger(),
		Registry: NewRegistry(job),
		Lock:     &fakeLock{held: true},
	})
	require.NoError(t, err)

	require.NoError(t, svc.runCycle(context.Background()))
	require.Zero(t, job.runs)
}

func TestRunCyclePropagatesLockError(t *testing.T) {
	svc, err := NewService(ServiceParams{
		Logger: testLogger(),
		Lock:   &fakeLock{err: errors.New("redis down")},
	})
	require.NoError(t, err)
	require.Error(t, svc.runCycle(context.Background()))
}

type countingJob struct {
	runs atomic.Int32
}

func (j *countingJob) Name() string { return "counting" }

func (j *countingJob) Run(context.Context) error {
	j.runs.Add(1)
	return nil
}

func TestRunStopsOnCancel(t *testing.T) {
	job := &countingJob{}
	svc, err := NewService(ServiceParams{
		Logger:   testLogger(),
		Registry: NewRegistry(job),
		Lock:     &fakeLock{},
		Interval: time.Hour,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	require.Eventually(t, func() bool { return job.runs.Load() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("service did not stop")
	}
}

func TestNewServiceValidation(t *testing.T) {
	_, err := NewService(ServiceParams{})
	require.ErrorContains(t, err, "logger is required")
	require.ErrorContains(t, err, "lock is required")

	svc, err := NewService(ServiceParams{Logger: testLogger(), Lock: &fakeLock{}})
	require.NoError(t, err)
	require.Equal(t, defaultInterval, svc.interval)
	require.Empty(t, svc.jobs.Jobs())
}

type panickyJob struct{}

func (panickyJob) Name() string { return "panicky" }

func (panickyJob) Run(context.Context) error { panic("nil map write") }

func TestRunCycleSurvivesPanickingJob(t *testing.T) {
	after := &testJob{name: "after"}
	lock := &fakeLock{}
	svc, err := NewService(ServiceParams{
		Logger:   testLogger(),
		Registry: NewRegistry(panickyJob{}, after),
		Lock:     lock,
	})
	require.NoError(t, err)

	require.NoError(t, svc.runCycle(context.Background()))
	require.Equal(t, 1, after.runs)
	require.False(t, lock.held)
}
