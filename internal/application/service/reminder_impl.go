package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"taskreminder/internal/application/dto"
	"taskreminder/internal/domain/constant"
	"taskreminder/internal/domain/entity"
	"taskreminder/internal/domain/repository"
	appErrors "taskreminder/internal/pkg/errors"
	"taskreminder/internal/pkg/logger"
	"time"
)

// Options configures a ReminderService.
type Options struct {
	// Location is the canonical timezone task times are normalized into.
	Location *time.Location
	// SendTimeout bounds a single Messenger.Send call.
	SendTimeout time.Duration
	// Retry controls re-delivery after a failed send.
	Retry RetryPolicy
	// Clock returns the current time. Defaults to time.Now.
	Clock func() time.Time
}

type reminderService struct {
	taskRepo    repository.TaskRepository
	timers      TimerEngine
	messenger   Messenger
	log         logger.Logger
	loc         *time.Location
	now         func() time.Time
	sendTimeout time.Duration

	locks   *keyLock
	retries *retryState

	mu sync.Mutex
	// undeleted holds keys whose reminder was delivered but whose record
	// could not be deleted; a later attempt deletes without sending again.
	undeleted map[string]bool
}

// NewReminderService creates a new instance of ReminderService implementation.
func NewReminderService(
	taskRepo repository.TaskRepository,
	timers TimerEngine,
	messenger Messenger,
	log logger.Logger,
	opts Options,
) ReminderService {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = 10 * time.Second
	}
	return &reminderService{
		taskRepo:    taskRepo,
		timers:      timers,
		messenger:   messenger,
		log:         log,
		loc:         opts.Location,
		now:         opts.Clock,
		sendTimeout: opts.SendTimeout,
		locks:       newKeyLock(),
		retries:     newRetryState(opts.Retry),
		undeleted:   make(map[string]bool),
	}
}

// AddTask validates and stores a task, then registers its timer.
func (s *reminderService) AddTask(ctx context.Context, req dto.AddTaskRequest) (dto.TaskResponse, error) {
	name := strings.TrimSpace(req.Name)
	switch {
	case req.UserID == "":
		return dto.TaskResponse{}, appErrors.Validation(appErrors.ErrEmptyUserID)
	case name == "":
		return dto.TaskResponse{}, appErrors.Validation(appErrors.ErrEmptyTaskName)
	case req.Time.IsZero():
		return dto.TaskResponse{}, appErrors.Validation(appErrors.ErrInvalidDateTime)
	}

	at := req.Time.In(s.loc)
	if !at.After(s.now()) {
		return dto.TaskResponse{}, appErrors.Validation(appErrors.ErrTimeInPast)
	}

	key := entity.TaskKey(req.UserID, name)
	unlock := s.locks.Lock(key)
	defer unlock()

	existing, err := s.taskRepo.FindByUserIDAndName(ctx, req.UserID, name)
	if err != nil {
		s.log.Error(fmt.Sprintf("Failed to look up task %q for user %s", name, req.UserID), err)
		return dto.TaskResponse{}, appErrors.Storage(err)
	}
	if len(existing) > 0 {
		return dto.TaskResponse{}, appErrors.Validation(appErrors.ErrDuplicateTask)
	}

	task := &entity.Task{UserID: req.UserID, Name: name, ScheduledAt: at}
	if err := s.taskRepo.Insert(ctx, task); err != nil {
		s.log.Error(fmt.Sprintf("Failed to store task %q for user %s", name, req.UserID), err)
		return dto.TaskResponse{}, appErrors.Storage(err)
	}

	if err := s.timers.Schedule(key, at, s.fireFunc(req.UserID, name)); err != nil {
		s.log.Error(fmt.Sprintf("Failed to schedule task %q for user %s, rolling back", name, req.UserID), err)
		if _, delErr := s.taskRepo.Delete(ctx, req.UserID, name); delErr != nil {
			s.log.Error(fmt.Sprintf("Rollback of task %q for user %s failed", name, req.UserID), delErr)
		}
		return dto.TaskResponse{}, appErrors.Scheduling(err)
	}

	s.log.Info(fmt.Sprintf("Task %q for user %s scheduled at %s (%s)", name, req.UserID, at.Format(time.RFC3339), constant.StatePending))
	return dto.ToTaskResponse(task, s.loc), nil
}

// RemoveTask cancels the timer, then deletes the stored task.
func (s *reminderService) RemoveTask(ctx context.Context, userID, name string) (int64, error) {
	name = strings.TrimSpace(name)
	key := entity.TaskKey(userID, name)
	unlock := s.locks.Lock(key)
	defer unlock()

	return s.removeLocked(ctx, userID, name)
}

func (s *reminderService) removeLocked(ctx context.Context, userID, name string) (int64, error) {
	key := entity.TaskKey(userID, name)
	fireAt, hadTimer := s.timers.FireAt(key)
	cancelled := s.timers.Cancel(key)
	s.retries.clear(key)

	n, err := s.taskRepo.Delete(ctx, userID, name)
	if err != nil {
		s.log.Error(fmt.Sprintf("Failed to delete task %q for user %s", name, userID), err)
		if cancelled && hadTimer {
			s.restoreTimer(userID, name, fireAt)
		}
		return 0, appErrors.Storage(err)
	}
	s.setUndeleted(key, false)

	if n > 0 {
		s.log.Info(fmt.Sprintf("Task %q for user %s removed (%s -> %s), %d record(s)", name, userID, constant.StateCancelled, constant.StateGone, n))
	} else {
		s.log.Debug(fmt.Sprintf("No task %q for user %s to remove", name, userID))
	}
	return n, nil
}

// restoreTimer re-registers a timer cancelled ahead of a delete that failed.
// The deadline comes from the cancelled timer, not from storage.
func (s *reminderService) restoreTimer(userID, name string, fireAt time.Time) {
	key := entity.TaskKey(userID, name)
	if err := s.timers.Schedule(key, fireAt, s.fireFunc(userID, name)); err != nil {
		s.log.Error(fmt.Sprintf("Failed to restore timer for task %q of user %s; it stays stored without a timer until next startup", name, userID), err)
		return
	}
	s.log.Info(fmt.Sprintf("Restored timer for task %q of user %s at %s", name, userID, fireAt.Format(time.RFC3339)))
}

// RemoveAllTasks removes every task of a user. Each record goes through the
// per-key lock and timer cancel; listing repeats until a pass finds nothing,
// so tasks added meanwhile are removed too.
func (s *reminderService) RemoveAllTasks(ctx context.Context, userID string) (int64, error) {
	var total int64
	for {
		tasks, err := s.taskRepo.FindByUserID(ctx, userID)
		if err != nil {
			s.log.Error(fmt.Sprintf("Failed to list tasks of user %s for removal", userID), err)
			return total, appErrors.Storage(err)
		}
		if len(tasks) == 0 {
			break
		}

		var removed int64
		seen := make(map[string]bool, len(tasks))
		for _, task := range tasks {
			if seen[task.Name] {
				continue
			}
			seen[task.Name] = true

			unlock := s.locks.Lock(task.Key())
			n, err := s.removeLocked(ctx, userID, task.Name)
			unlock()
			if err != nil {
				return total, err
			}
			removed += n
		}
		total += removed
		if removed == 0 {
			// Listed records vanished under us; nothing left to chase.
			break
		}
	}

	s.log.Info(fmt.Sprintf("Removed %d task(s) of user %s", total, userID))
	return total, nil
}

// ListTasks returns the user's tasks in insertion order.
func (s *reminderService) ListTasks(ctx context.Context, userID string) ([]dto.TaskResponse, error) {
	tasks, err := s.taskRepo.FindByUserID(ctx, userID)
	if err != nil {
		s.log.Error(fmt.Sprintf("Failed to list tasks for user %s", userID), err)
		return nil, appErrors.Storage(err)
	}
	return dto.ToTaskResponseList(tasks, s.loc), nil
}

// Reconcile registers a timer for every stored task. Tasks whose time passed
// while the process was down fire immediately.
func (s *reminderService) Reconcile(ctx context.Context) (dto.ReconcileResult, error) {
	var result dto.ReconcileResult

	tasks, err := s.taskRepo.FindAll(ctx)
	if err != nil {
		s.log.Error("Failed to load tasks for reconciliation", err)
		return result, appErrors.Storage(err)
	}

	now := s.now()
	seen := make(map[string]bool, len(tasks))
	for _, task := range tasks {
		key := task.Key()
		if seen[key] {
			// Legacy duplicate; one timer serves all records under the key.
			continue
		}
		seen[key] = true

		unlock := s.locks.Lock(key)
		err := s.timers.Schedule(key, task.ScheduledAt, s.fireFunc(task.UserID, task.Name))
		unlock()

		switch {
		case err != nil:
			result.Failed++
			s.log.Error(fmt.Sprintf("Failed to schedule task %q for user %s during reconciliation", task.Name, task.UserID), err)
		case task.ScheduledAt.After(now):
			result.Scheduled++
		default:
			result.Overdue++
			s.log.Info(fmt.Sprintf("Task %q for user %s was due at %s while offline, firing now", task.Name, task.UserID, task.ScheduledAt.Format(time.RFC3339)))
		}
	}

	s.log.Info(fmt.Sprintf("Reconciliation complete. Scheduled: %d, Overdue: %d, Failed: %d", result.Scheduled, result.Overdue, result.Failed))
	return result, nil
}

// PendingTimers returns the number of live timers.
func (s *reminderService) PendingTimers() int {
	return s.timers.Pending()
}

// Stop stops the underlying timer engine.
func (s *reminderService) Stop() {
	s.timers.Stop()
}

func (s *reminderService) fireFunc(userID, name string) func() {
	return func() {
		s.fire(context.Background(), userID, name)
	}
}

// fire delivers the reminder for (userID, name) and deletes the task. It runs
// under the key lock, so a concurrent RemoveTask either completes before it
// (nothing is delivered) or after it (delivered, then removed).
func (s *reminderService) fire(ctx context.Context, userID, name string) {
	key := entity.TaskKey(userID, name)
	unlock := s.locks.Lock(key)
	defer unlock()

	if s.isUndeleted(key) {
		s.deleteFired(ctx, userID, name)
		return
	}

	tasks, err := s.taskRepo.FindByUserIDAndName(ctx, userID, name)
	if err != nil {
		s.log.Error(fmt.Sprintf("Failed to load task %q for user %s at fire time", name, userID), err)
		s.retryLater(userID, name)
		return
	}
	if len(tasks) == 0 {
		s.log.Debug(fmt.Sprintf("Task %q for user %s is gone, nothing to deliver", name, userID))
		s.retries.clear(key)
		return
	}
	if due := tasks[0].ScheduledAt; due.After(s.now()) {
		// Fired early (clock stepped back, or the record was replaced); re-arm at the stored time.
		s.log.Warn(fmt.Sprintf("Task %q for user %s is not due until %s, re-arming its timer", name, userID, due.Format(time.RFC3339)))
		if err := s.timers.Schedule(key, due, s.fireFunc(userID, name)); err != nil {
			s.log.Error(fmt.Sprintf("Failed to re-arm timer for task %q of user %s", name, userID), err)
		}
		return
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.sendTimeout)
	err = s.messenger.Send(sendCtx, userID, ReminderText(name))
	cancel()
	if err != nil {
		s.log.Error(fmt.Sprintf("Failed to deliver task %q to user %s", name, userID), appErrors.Delivery(err))
		s.retryLater(userID, name)
		return
	}

	s.retries.clear(key)
	s.log.Info(fmt.Sprintf("Delivered task %q to user %s (%s)", name, userID, constant.StateFired))
	s.deleteFired(ctx, userID, name)
}

func (s *reminderService) deleteFired(ctx context.Context, userID, name string) {
	key := entity.TaskKey(userID, name)
	if _, err := s.taskRepo.Delete(ctx, userID, name); err != nil {
		s.log.Error(fmt.Sprintf("Failed to delete delivered task %q for user %s", name, userID), err)
		s.setUndeleted(key, true)
		s.retryLater(userID, name)
		return
	}
	s.setUndeleted(key, false)
	s.retries.clear(key)
	s.log.Debug(fmt.Sprintf("Task %q for user %s is %s", name, userID, constant.StateGone))
}

func (s *reminderService) isUndeleted(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.undeleted[key]
}

func (s *reminderService) setUndeleted(key string, v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v {
		s.undeleted[key] = true
	} else {
		delete(s.undeleted, key)
	}
}

// retryLater reschedules the task on the retry backoff. When attempts run out
// the record stays pending in storage and is picked up again at next startup.
func (s *reminderService) retryLater(userID, name string) {
	key := entity.TaskKey(userID, name)
	delay, ok := s.retries.next(key)
	if !ok {
		s.log.Warn(fmt.Sprintf("Giving up on task %q for user %s for now; it stays pending until next startup", name, userID))
		return
	}
	at := s.now().Add(delay)
	if err := s.timers.Schedule(key, at, s.fireFunc(userID, name)); err != nil {
		s.log.Error(fmt.Sprintf("Failed to schedule retry for task %q of user %s", name, userID), err)
		return
	}
	s.log.Info(fmt.Sprintf("Retrying task %q for user %s at %s", name, userID, at.Format(time.RFC3339)))
}
