package service

import (
	"context"
	"taskreminder/internal/application/dto"
)

// ReminderService defines the interface for task scheduling business logic.
type ReminderService interface {
	// AddTask validates and stores a task, then registers its timer.
	// If the timer cannot be registered the stored task is removed again.
	AddTask(ctx context.Context, req dto.AddTaskRequest) (dto.TaskResponse, error)
	// RemoveTask cancels the timer and deletes the task. Removing an unknown
	// task is not an error and reports zero.
	RemoveTask(ctx context.Context, userID, name string) (int64, error)
	// RemoveAllTasks removes every task of a user (e.g., after unfollow).
	RemoveAllTasks(ctx context.Context, userID string) (int64, error)
	// ListTasks returns a user's pending tasks in insertion order.
	ListTasks(ctx context.Context, userID string) ([]dto.TaskResponse, error)
	// Reconcile registers timers for every stored task and fires the ones
	// that came due while the process was down. It must run once at startup.
	Reconcile(ctx context.Context) (dto.ReconcileResult, error)
	// PendingTimers returns the number of live timers.
	PendingTimers() int
	// Stop stops the underlying timer engine.
	Stop()
}
