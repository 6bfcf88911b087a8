package jobs

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/kampus/core"
	logsvc "github.com/trezcool/kampus/services/logger"
)

type reminderFunc func(ctx context.Context) (int, error)

func (f reminderFunc) RemindShortages(ctx context.Context) (int, error) { return f(ctx) }

func TestNewScheduler(t *testing.T) {
	logger := logsvc.NewStdLogger(log.New(io.Discard, "", 0))
	noop := reminderFunc(func(context.Context) (int, error) { return 0, nil })

	t.Run("reminders disabled", func(t *testing.T) {
		s, err := NewScheduler(core.NewTestConfig(), logger, noop)
		require.NoError(t, err)
		assert.Zero(t, s.Jobs())
	})

	t.Run("reminders enabled", func(t *testing.T) {
		conf := core.NewTestConfig()
		conf.Attendance.DisableReminderJobs = false
		s, err := NewScheduler(conf, logger, noop)
		require.NoError(t, err)
		assert.Equal(t, 1, s.Jobs())

		s.Start()
		assert.NoError(t, s.Stop(context.Background()))
	})

	t.Run("invalid schedule", func(t *testing.T) {
		conf := core.NewTestConfig()
		conf.Attendance.DisableReminderJobs = false
		conf.Attendance.ReminderSchedule = "every day"
		_, err := NewScheduler(conf, logger, noop)
		assert.Error(t, err)
	})
}

func TestScheduler_remindShortages(t *testing.T) {
	logger := logsvc.NewStdLogger(log.New(io.Discard, "", 0))
	calls := 0
	s, err := NewScheduler(core.NewTestConfig(), logger, nil)
	require.NoError(t, err)

	s.remindShortages(reminderFunc(func(ctx context.Context) (int, error) {
		calls++
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		return 2, nil
	}))
	s.remindShortages(reminderFunc(func(context.Context) (int, error) {
		calls++
		return 0, errors.New("mail down")
	}))
	assert.Equal(t, 2, calls)
}
