package scheduler

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"taskreminder/internal/pkg/logger"
	"time"

	"github.com/robfig/cron/v3"
)

var (
	// ErrStopped is returned when scheduling on a stopped engine.
	ErrStopped = errors.New("scheduler is stopped")
	// ErrNilJob is returned when scheduling without a job.
	ErrNilJob = errors.New("job must not be nil")
)

// Scheduler is a one-shot timer engine on top of cron. Timers are addressed
// by an opaque key; scheduling an existing key replaces its timer.
type Scheduler struct {
	cron    *cron.Cron
	log     logger.Logger
	mu      sync.Mutex // Guards timers and stopped
	timers  map[string]*timer
	stopped bool
}

type timer struct {
	id     cron.EntryID
	fireAt time.Time
}

// NewScheduler creates and starts a timer engine. loc is the location cron uses
// for its clock; fire instants are absolute, so it only affects log output.
func NewScheduler(log logger.Logger, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	cl := cronLogger{log: log}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl)),
	)
	c.Start()
	log.Info("Timer engine started.")
	return &Scheduler{
		cron:   c,
		log:    log,
		timers: make(map[string]*timer),
	}
}

// Schedule registers job to run once at fireAt. A fireAt that is not in the
// future fires immediately. An existing timer under key is replaced.
func (s *Scheduler) Schedule(key string, fireAt time.Time, job func()) error {
	if job == nil {
		return ErrNilJob
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrStopped
	}
	if prev, ok := s.timers[key]; ok {
		s.cron.Remove(prev.id)
		s.log.Debug(fmt.Sprintf("Replacing timer %d for key %q", prev.id, printable(key)))
	}

	t := &timer{fireAt: fireAt}
	t.id = s.cron.Schedule(newOneShot(fireAt), cron.FuncJob(func() { s.run(key, t, job) }))
	s.timers[key] = t
	s.log.Debug(fmt.Sprintf("Scheduled timer %d for key %q at %s", t.id, printable(key), fireAt.Format(time.RFC3339)))
	return nil
}

// Cancel removes the pending timer for key. It reports whether a timer was
// pending; cancelling an absent key is a no-op.
func (s *Scheduler) Cancel(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.timers[key]
	if !ok {
		return false
	}
	delete(s.timers, key)
	s.cron.Remove(t.id)
	s.log.Debug(fmt.Sprintf("Cancelled timer %d for key %q", t.id, printable(key)))
	return true
}

// Pending returns the number of live timers.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// FireAt reports when the timer for key is due.
func (s *Scheduler) FireAt(key string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.timers[key]
	if !ok {
		return time.Time{}, false
	}
	return t.fireAt, true
}

// Stop stops the engine and waits for running jobs to complete. Pending
// timers are dropped; their tasks remain in storage.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	dropped := len(s.timers)
	s.timers = make(map[string]*timer)
	s.mu.Unlock()

	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info(fmt.Sprintf("Timer engine stopped, %d pending timers dropped.", dropped))
}

// run executes job only if t is still the live timer for key. Once Cancel or a
// replacing Schedule has returned, this check fails and the job never runs.
func (s *Scheduler) run(key string, t *timer, job func()) {
	s.mu.Lock()
	if cur, ok := s.timers[key]; !ok || cur != t {
		s.mu.Unlock()
		return
	}
	delete(s.timers, key)
	s.cron.Remove(t.id)
	s.mu.Unlock()

	job()
}

// oneShot is a cron.Schedule that yields a single activation. cron asks for
// the next activation once when the entry is added and once after each run.
type oneShot struct {
	at    time.Time
	armed atomic.Bool
}

func newOneShot(at time.Time) *oneShot {
	o := &oneShot{at: at}
	o.armed.Store(true)
	return o
}

// Next implements cron.Schedule. The zero time tells cron never to run again.
func (o *oneShot) Next(now time.Time) time.Time {
	if !o.armed.Swap(false) {
		return time.Time{}
	}
	if o.at.After(now) {
		return o.at
	}
	return now
}

// cronLogger adapts the application logger to cron.Logger.
type cronLogger struct {
	log logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug(formatKV("cron: "+msg, keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error(formatKV("cron: "+msg, keysAndValues), err)
}

func formatKV(msg string, keysAndValues []interface{}) string {
	var b strings.Builder
	b.WriteString(msg)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fmt.Fprintf(&b, ", %v=%v", keysAndValues[i], keysAndValues[i+1])
	}
	return b.String()
}

func printable(key string) string {
	return strings.ReplaceAll(key, "\x00", "/")
}
