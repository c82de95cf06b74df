package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/louisbranch/studies/internal/services/studies/agenda"
	"github.com/robfig/cron/v3"
)

const agendaJobTimeout = 30 * time.Second

// dayProvider yields today's agenda; projection.Agenda implements it.
type dayProvider interface {
	Current(ctx context.Context) (agenda.Day, error)
}

// AgendaJob logs today's agenda on a cron schedule.
type AgendaJob struct {
	cron   *cron.Cron
	days   dayProvider
	locale string
	logf   func(format string, args ...any)
}

// NewAgendaJob schedules the agenda log. schedule uses the six-field cron
// format with seconds first; an empty schedule disables the job.
func NewAgendaJob(schedule string, days dayProvider, locale string) (*AgendaJob, error) {
	job := &AgendaJob{
		cron:   cron.New(cron.WithSeconds()),
		days:   days,
		locale: locale,
		logf:   log.Printf,
	}
	if schedule == "" {
		return job, nil
	}
	if _, err := job.cron.AddFunc(schedule, job.runOnce); err != nil {
		return nil, fmt.Errorf("schedule agenda job %q: %w", schedule, err)
	}
	return job, nil
}

// Run starts the scheduler and blocks until ctx ends, then waits for a
// running job to finish.
func (j *AgendaJob) Run(ctx context.Context) error {
	j.cron.Start()
	<-ctx.Done()
	<-j.cron.Stop().Done()
	return nil
}

func (j *AgendaJob) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), agendaJobTimeout)
	defer cancel()
	if err := j.logAgenda(ctx); err != nil {
		j.logf("studies agenda: %v", err)
	}
}

func (j *AgendaJob) logAgenda(ctx context.Context) error {
	day, err := j.days.Current(ctx)
	if err != nil {
		return err
	}
	j.logf("studies agenda %s", day.Summary(j.locale))
	for _, line := range day.Lines(j.locale) {
		j.logf("studies agenda   %s", line)
	}
	return nil
}
