package scheduler

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"strengths_manager/internal/app"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	outcomes []app.TickOutcome
	err      error
	block    chan struct{}
	started  chan struct{}
	deadline bool
}

func (f *fakeRunner) RunCampaignTick(ctx context.Context) ([]app.TickOutcome, error) {
	_, f.deadline = ctx.Deadline()
	if f.started != nil {
		close(f.started)
	}
	if f.block != nil {
		<-f.block
	}
	return f.outcomes, f.err
}

type fakeReporter struct {
	mu        sync.Mutex
	summaries []app.TickSummary
	errs      []error
}

func (f *fakeReporter) ReportTick(_ context.Context, s app.TickSummary, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.summaries = append(f.summaries, s)
	f.errs = append(f.errs, err)
}

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func TestRunTickReportsSummary(t *testing.T) {
	runner := &fakeRunner{outcomes: []app.TickOutcome{
		{UserID: "a", Status: app.OutcomeSent},
		{UserID: "b", Status: app.OutcomeFailed, Err: errors.New("boom")},
	}}
	reporter := &fakeReporter{}
	s := NewCampaignScheduler(runner, testLogger(), "0 9 * * 1", time.Minute, reporter)

	assert.True(t, s.RunTick(context.Background()))
	assert.True(t, runner.deadline)
	require.Len(t, reporter.summaries, 1)
	assert.Equal(t, 1, reporter.summaries[0].Sent)
	assert.Equal(t, 1, reporter.summaries[0].Failed)
	assert.NoError(t, reporter.errs[0])
}

func TestRunTickReportsError(t *testing.T) {
	reporter := &fakeReporter{}
	s := NewCampaignScheduler(&fakeRunner{err: errors.New("db down")}, testLogger(), "0 9 * * 1", time.Minute, reporter)

	s.RunTick(context.Background())
	require.Len(t, reporter.errs, 1)
	assert.EqualError(t, reporter.errs[0], "db down")
}

func TestRunTickSkipsWhileRunning(t *testing.T) {
	runner := &fakeRunner{block: make(chan struct{}), started: make(chan struct{})}
	s := NewCampaignScheduler(runner, testLogger(), "0 9 * * 1", time.Minute)

	done := make(chan bool)
	go func() { done <- s.RunTick(context.Background()) }()
	<-runner.started

	assert.False(t, s.RunTick(context.Background()))
	close(runner.block)
	assert.True(t, <-done)
}

func TestStartRejectsBadCronExpression(t *testing.T) {
	s := NewCampaignScheduler(&fakeRunner{}, testLogger(), "not a cron expression", time.Minute)
	assert.Error(t, s.Start())
}

func TestStartAndStop(t *testing.T) {
	s := NewCampaignScheduler(&fakeRunner{}, testLogger(), "0 9 * * 1", time.Minute)
	require.NoError(t, s.Start())
	s.Stop()
}
