package sqlite

import (
	"context"
	"fmt"
	"taskreminder/internal/domain/entity"
	"taskreminder/internal/domain/repository"

	"gorm.io/gorm"
)

type taskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new instance of TaskRepository.
func NewTaskRepository(db *gorm.DB) repository.TaskRepository {
	return &taskRepository{db: db}
}

// Insert appends a task.
func (r *taskRepository) Insert(ctx context.Context, task *entity.Task) error {
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("failed to insert task %q for user %s: %w", task.Name, task.UserID, err)
	}
	return nil
}

// Delete removes every task matching (user, name).
func (r *taskRepository) Delete(ctx context.Context, userID, name string) (int64, error) {
	res := r.db.WithContext(ctx).Where("user_id = ? AND name = ?", userID, name).Delete(&entity.Task{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete task %q for user %s: %w", name, userID, res.Error)
	}
	return res.RowsAffected, nil
}

// FindByUserID retrieves all tasks for a user, oldest insert first.
func (r *taskRepository) FindByUserID(ctx context.Context, userID string) ([]*entity.Task, error) {
	var tasks []*entity.Task
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("id asc").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("failed to find tasks by user_id %s: %w", userID, err)
	}
	return tasks, nil
}

// FindByUserIDAndName retrieves the tasks stored under (user, name).
func (r *taskRepository) FindByUserIDAndName(ctx context.Context, userID, name string) ([]*entity.Task, error) {
	var tasks []*entity.Task
	if err := r.db.WithContext(ctx).Where("user_id = ? AND name = ?", userID, name).Order("id asc").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("failed to find task %q for user %s: %w", name, userID, err)
	}
	return tasks, nil
}

// FindAll retrieves all tasks.
func (r *taskRepository) FindAll(ctx context.Context) ([]*entity.Task, error) {
	var tasks []*entity.Task
	if err := r.db.WithContext(ctx).Order("id asc").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("failed to find all tasks: %w", err)
	}
	return tasks, nil
}

// Close closes the database connection.
func (r *taskRepository) Close() error {
	return CloseDB(r.db)
}
