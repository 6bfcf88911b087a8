package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/trezcool/kampus/core"
)

var jobTimeout = 5 * time.Minute

// ShortageReminder emails students whose attendance is below the shortage threshold.
type ShortageReminder interface {
	RemindShortages(ctx context.Context) (int, error)
}

// Scheduler runs the periodic jobs of the API.
type Scheduler struct {
	cron   *cron.Cron
	logger core.Logger
}

// NewScheduler registers the shortage reminder on conf.Attendance.ReminderSchedule.
// Overlapping runs are skipped.
func NewScheduler(conf *core.Config, logger core.Logger, reminder ShortageReminder) (*Scheduler, error) {
	c := cron.New(cron.WithChain(cron.Recover(cronLogger{logger}), cron.SkipIfStillRunning(cronLogger{logger})))
	s := &Scheduler{cron: c, logger: logger}

	if !conf.Attendance.DisableReminderJobs {
		_, err := c.AddFunc(conf.Attendance.ReminderSchedule, func() {
			s.remindShortages(reminder)
		})
		if err != nil {
			return nil, errors.Wrapf(err, "scheduling shortage reminders (%q)", conf.Attendance.ReminderSchedule)
		}
	}
	return s, nil
}

func (s *Scheduler) remindShortages(reminder ShortageReminder) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	sent, err := reminder.RemindShortages(ctx)
	if err != nil {
		s.logger.Error("reminding attendance shortages", err)
		return
	}
	s.logger.Info("attendance shortage reminders sent", core.LogFields{"sent": sent})
}

// Jobs returns the number of scheduled jobs.
func (s *Scheduler) Jobs() int { return len(s.cron.Entries()) }

func (s *Scheduler) Start() { s.cron.Start() }

// Stop waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cronLogger adapts core.Logger to cron.Logger.
type cronLogger struct {
	logger core.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, cronFields(keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, err, cronFields(keysAndValues))
}

// cronFields pairs up cron's alternating keys and values.
func cronFields(keysAndValues []interface{}) core.LogFields {
	fields := make(core.LogFields, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return fields
}
