package logsvc

import (
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/trezcool/kampus/core"
	"github.com/trezcool/kampus/core/user"
)

type level int

const (
	levelDebug level = iota
	levelInfo
	levelWarn
	levelError
	levelFatal
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR", "FATAL"}

// RollbarLogger prints every entry to std and reports it to Rollbar when enabled.
// Entries are tagged with the component taken from the std prefix, e.g. "API : " gives "api".
type RollbarLogger struct {
	std       *log.Logger
	component string
	min       level
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	rollbar.SetEnabled(!conf.Debug && conf.RollbarToken != "")

	l := newLogger(std)
	if !conf.Debug {
		l.min = levelInfo
	}
	return l
}

// NewStdLogger returns a logger that only prints to std. Used in tests and tooling.
func NewStdLogger(std *log.Logger) *RollbarLogger {
	rollbar.SetEnabled(false)
	return newLogger(std)
}

func newLogger(std *log.Logger) *RollbarLogger {
	component := strings.ToLower(strings.Trim(std.Prefix(), " :"))
	return &RollbarLogger{std: std, component: component}
}

func (l RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// entry is what a log call boils down to once its args are sorted out.
type entry struct {
	msg    string
	err    error
	fields map[string]interface{}
	usr    *user.User
}

func (l RollbarLogger) newEntry(msg string, args []interface{}) entry {
	e := entry{msg: msg, fields: make(map[string]interface{})}
	if l.component != "" {
		e.fields["component"] = l.component
	}
	for _, arg := range args {
		switch a := arg.(type) {
		case nil:
		case error:
			if e.err == nil {
				e.err = a
			}
		case core.LogFields:
			for k, v := range a {
				e.fields[k] = v
			}
		case map[string]interface{}:
			for k, v := range a {
				e.fields[k] = v
			}
		case *user.User:
			if a != nil && e.usr == nil {
				e.usr = a
			}
		case user.User:
			if e.usr == nil {
				e.usr = &a
			}
		default:
			e.fields[fmt.Sprintf("arg%d", len(e.fields))] = a
		}
	}
	return e
}

func (l RollbarLogger) report(lvl level, e entry) {
	if e.usr != nil {
		rollbar.SetPerson(e.usr.ID, e.usr.Name, e.usr.Email)
	} else {
		rollbar.ClearPerson()
	}

	args := []interface{}{e.msg, e.fields}
	if e.err != nil {
		args = []interface{}{e.err, e.fields}
		e.fields["message"] = e.msg
	}
	switch lvl {
	case levelDebug:
		rollbar.Debug(args...)
	case levelInfo:
		rollbar.Info(args...)
	case levelWarn:
		rollbar.Warning(args...)
	case levelError:
		rollbar.Error(args...)
	default:
		rollbar.Critical(args...)
	}
}

// print writes one line: level, message and sorted key=value fields. Errors follow with their stack.
func (l RollbarLogger) print(lvl level, e entry) {
	var b strings.Builder
	b.WriteString(levelNames[lvl])
	b.WriteByte(' ')
	b.WriteString(e.msg)

	keys := make([]string, 0, len(e.fields))
	for k := range e.fields {
		if k != "component" && k != "message" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, e.fields[k])
	}
	if e.usr != nil {
		fmt.Fprintf(&b, " user=%s", e.usr.ID)
	}
	l.std.Println(b.String())
	if e.err != nil && lvl >= levelError {
		l.std.Printf("%+v\n", e.err)
	}
}

func (l RollbarLogger) log(lvl level, msg string, args []interface{}) {
	if lvl < l.min {
		return
	}
	e := l.newEntry(msg, args)
	l.report(lvl, e)
	l.print(lvl, e)
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) { l.log(levelDebug, msg, args) }

func (l RollbarLogger) Info(msg string, args ...interface{}) { l.log(levelInfo, msg, args) }

func (l RollbarLogger) Warn(msg string, args ...interface{}) { l.log(levelWarn, msg, args) }

func (l RollbarLogger) Error(msg string, args ...interface{}) { l.log(levelError, msg, args) }

func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	l.log(levelFatal, msg, args)
	rollbar.Wait()
	l.std.Fatal(msg)
}
