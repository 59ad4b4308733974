// Package logging provides the server's leveled, asynchronously
// flushed logging facility, backed by logrus.
package logging

import (
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

// entry is one queued log line, drained by the background flusher.
type entry struct {
	level logrus.Level
	msg   string
	data  logrus.Fields
}

// Logger is a bounded async ring of log entries flushed by one
// background goroutine, the Go analogue of a fixed-buffer ring
// flushed off a background thread.
type Logger struct {
	back  *logrus.Logger
	ring  chan entry
	once  sync.Once
	done  chan struct{}
	drain sync.WaitGroup
}

// New creates a Logger at the given level, draining into os.Stderr.
// ringSize bounds how many log lines may be queued; once the ring is
// full, further lines are written synchronously by the caller, tagged
// dropped=true. 1024 is a reasonable default for a single-process server.
func New(level logrus.Level, ringSize int) *Logger {
	if ringSize <= 0 {
		ringSize = 1024
	}
	back := logrus.New()
	back.SetOutput(os.Stderr)
	back.SetLevel(level)
	l := &Logger{
		back: back,
		ring: make(chan entry, ringSize),
		done: make(chan struct{}),
	}
	l.drain.Add(1)
	go l.run()
	return l
}

func (l *Logger) run() {
	defer l.drain.Done()
	for {
		select {
		case e, ok := <-l.ring:
			if !ok {
				return
			}
			l.back.WithFields(e.data).Log(e.level, e.msg)
		case <-l.done:
			l.flush()
			return
		}
	}
}

func (l *Logger) flush() {
	for {
		select {
		case e := <-l.ring:
			l.back.WithFields(e.data).Log(e.level, e.msg)
		default:
			return
		}
	}
}

func (l *Logger) enqueue(level logrus.Level, msg string, data logrus.Fields) {
	if !l.back.IsLevelEnabled(level) {
		return
	}
	select {
	case l.ring <- entry{level: level, msg: msg, data: data}:
	default:
		// ring full: bypass the ring and write synchronously, tagged
		// dropped, rather than wait for a free slot.
		l.back.WithField("dropped", true).Log(level, msg)
	}
}

func (l *Logger) Trace(msg string, data logrus.Fields) { l.enqueue(logrus.TraceLevel, msg, data) }
func (l *Logger) Debug(msg string, data logrus.Fields) { l.enqueue(logrus.DebugLevel, msg, data) }
func (l *Logger) Info(msg string, data logrus.Fields)  { l.enqueue(logrus.InfoLevel, msg, data) }
func (l *Logger) Warn(msg string, data logrus.Fields)  { l.enqueue(logrus.WarnLevel, msg, data) }
func (l *Logger) Error(msg string, data logrus.Fields) { l.enqueue(logrus.ErrorLevel, msg, data) }

// Fatal logs synchronously and calls os.Exit(1); it must not be queued
// because the process is about to terminate.
func (l *Logger) Fatal(msg string, data logrus.Fields) {
	l.back.WithFields(data).Fatal(msg)
}

// Close stops the background flusher after draining the ring.
func (l *Logger) Close() {
	l.once.Do(func() { close(l.done) })
	l.drain.Wait()
}

// ParseLevel maps a [logging] log_level value to a logrus.Level.
func ParseLevel(s string) (logrus.Level, error) {
	return logrus.ParseLevel(s)
}
