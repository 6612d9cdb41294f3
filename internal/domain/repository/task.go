package repository

import (
	"context"
	"taskreminder/internal/domain/entity"
)

// TaskRepository defines the durable task store. Every mutating call commits
// before it returns.
type TaskRepository interface {
	// Insert appends a task. Uniqueness of (user, name) is not enforced here.
	Insert(ctx context.Context, task *entity.Task) error
	// Delete removes every task matching (user, name) and reports how many were removed.
	Delete(ctx context.Context, userID, name string) (int64, error)
	// FindByUserID retrieves all tasks for a user in insertion order.
	FindByUserID(ctx context.Context, userID string) ([]*entity.Task, error)
	// FindByUserIDAndName retrieves the tasks stored under (user, name).
	FindByUserIDAndName(ctx context.Context, userID, name string) ([]*entity.Task, error)
	// FindAll retrieves every stored task (used for reconciliation on startup).
	FindAll(ctx context.Context) ([]*entity.Task, error)
	// Close releases the underlying connection.
	Close() error
}
