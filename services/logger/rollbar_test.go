package logsvc

import (
	"bytes"
	"log"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/kampus/core"
	"github.com/trezcool/kampus/core/user"
)

func TestRollbarLogger_print(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStdLogger(log.New(&buf, "JOBS : ", 0))
	assert.Equal(t, "jobs", logger.component)

	usr := &user.User{ID: "stu-1"}
	logger.Info("reminders sent", core.LogFields{"sent": 3, "course": "CS101"}, usr)
	assert.Equal(t, "JOBS : INFO reminders sent course=CS101 sent=3 user=stu-1\n", buf.String())

	buf.Reset()
	logger.Warn("redis unreachable", errors.New("dial tcp: refused"), (*user.User)(nil))
	assert.Equal(t, "JOBS : WARN redis unreachable\n", buf.String())

	buf.Reset()
	logger.Error("sending email", errors.New("boom"))
	assert.Contains(t, buf.String(), "JOBS : ERROR sending email\n")
	assert.Contains(t, buf.String(), "boom")
}

func TestRollbarLogger_levels(t *testing.T) {
	var buf bytes.Buffer
	conf := core.NewTestConfig()
	conf.Debug = false
	logger := NewRollbarLogger(log.New(&buf, "", 0), conf)
	logger.Enable(false)

	logger.Debug("noisy")
	assert.Empty(t, buf.String())

	logger.Info("kept")
	assert.Equal(t, "INFO kept\n", buf.String())
}
