package service

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"sync"
	"taskreminder/internal/domain/entity"
	"taskreminder/internal/domain/repository"
	"taskreminder/internal/infrastructure/database/sqlite"
	"taskreminder/internal/pkg/logger"
	"testing"
	"time"
)

// virtualClock is a manually advanced clock.
type virtualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *virtualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *virtualClock) set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// fakeTimers is a TimerEngine driven by a virtualClock. Due jobs run
// synchronously from AdvanceTo/RunDue, in deadline order.
type fakeTimers struct {
	clock *virtualClock

	mu        sync.Mutex
	timers    map[string]fakeTimer
	failNext  error
	scheduled int
	stopped   bool
}

type fakeTimer struct {
	at  time.Time
	job func()
}

func newFakeTimers(clock *virtualClock) *fakeTimers {
	return &fakeTimers{clock: clock, timers: make(map[string]fakeTimer)}
}

func (f *fakeTimers) Schedule(key string, fireAt time.Time, job func()) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext != nil {
		err := f.failNext
		f.failNext = nil
		return err
	}
	f.timers[key] = fakeTimer{at: fireAt, job: job}
	f.scheduled++
	return nil
}

func (f *fakeTimers) Cancel(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.timers[key]
	delete(f.timers, key)
	return ok
}

func (f *fakeTimers) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.timers)
}

func (f *fakeTimers) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
	f.timers = make(map[string]fakeTimer)
}

func (f *fakeTimers) FireAt(key string) (time.Time, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.timers[key]
	return t.at, ok
}

// popDue removes and returns the earliest timer due at or before now.
func (f *fakeTimers) popDue(now time.Time) (func(), bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	keys := make([]string, 0, len(f.timers))
	for k, t := range f.timers {
		if !t.at.After(now) {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return nil, false
	}
	sort.Slice(keys, func(i, j int) bool { return f.timers[keys[i]].at.Before(f.timers[keys[j]].at) })
	t := f.timers[keys[0]]
	delete(f.timers, keys[0])
	return t.job, true
}

// RunDue fires everything due at the current virtual time.
func (f *fakeTimers) RunDue() {
	for {
		job, ok := f.popDue(f.clock.Now())
		if !ok {
			return
		}
		job()
	}
}

// AdvanceTo moves the clock to t, firing due timers in order on the way.
func (f *fakeTimers) AdvanceTo(t time.Time) {
	f.clock.set(t)
	f.RunDue()
}

// fakeMessenger records deliveries and can be told to fail.
type fakeMessenger struct {
	mu       sync.Mutex
	sent     []sentMessage
	attempts int
	failures int // Number of upcoming sends that fail; -1 fails forever
}

type sentMessage struct {
	UserID string
	Text   string
}

var errNetwork = errors.New("network unreachable")

func (m *fakeMessenger) Send(ctx context.Context, userID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts++
	if m.failures != 0 {
		if m.failures > 0 {
			m.failures--
		}
		return errNetwork
	}
	m.sent = append(m.sent, sentMessage{UserID: userID, Text: text})
	return nil
}

func (m *fakeMessenger) Sent() []sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentMessage(nil), m.sent...)
}

func (m *fakeMessenger) Attempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts
}

// flakyRepo wraps a repository and fails selected operations.
type flakyRepo struct {
	repository.TaskRepository
	failDelete     bool
	failFind       bool // FindAll
	failFindByName bool // FindByUserIDAndName
	// beforeDelete, when set, runs once ahead of the next Delete.
	beforeDelete func()
}

var errDisk = errors.New("disk I/O error")

func (r *flakyRepo) Delete(ctx context.Context, userID, name string) (int64, error) {
	if hook := r.beforeDelete; hook != nil {
		r.beforeDelete = nil
		hook()
	}
	if r.failDelete {
		return 0, errDisk
	}
	return r.TaskRepository.Delete(ctx, userID, name)
}

func (r *flakyRepo) FindByUserIDAndName(ctx context.Context, userID, name string) ([]*entity.Task, error) {
	if r.failFindByName {
		return nil, errDisk
	}
	return r.TaskRepository.FindByUserIDAndName(ctx, userID, name)
}

func (r *flakyRepo) FindAll(ctx context.Context) ([]*entity.Task, error) {
	if r.failFind {
		return nil, errDisk
	}
	return r.TaskRepository.FindAll(ctx)
}

func newSQLiteRepo(t *testing.T) repository.TaskRepository {
	t.Helper()
	db, err := sqlite.NewDB(filepath.Join(t.TempDir(), "tasks.db"), logger.Nop())
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	repo := sqlite.NewTaskRepository(db)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}
