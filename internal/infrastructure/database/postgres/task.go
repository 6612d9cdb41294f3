// Package postgres implements the task store on PostgreSQL through a pgx connection pool.
package postgres

import (
	"context"
	"fmt"
	"taskreminder/internal/domain/entity"
	"taskreminder/internal/domain/repository"
	"taskreminder/internal/pkg/logger"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var schema = []string{`
	create table if not exists tasks (
		id bigserial primary key,
		user_id text not null,
		name text not null,
		scheduled_at timestamptz not null
	)`,
	`create index if not exists idx_tasks_user_name on tasks (user_id, name)`,
}

type taskRepository struct {
	pool *pgxpool.Pool
}

// NewTaskRepository connects to url, creates the schema if needed and returns the store.
func NewTaskRepository(ctx context.Context, url string, log logger.Logger) (repository.TaskRepository, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to create tasks schema: %w", err)
		}
	}
	log.Info("Connected to postgres, tasks schema ready.")
	return &taskRepository{pool: pool}, nil
}

// Insert appends a task.
func (r *taskRepository) Insert(ctx context.Context, task *entity.Task) error {
	var id int64
	err := r.pool.QueryRow(ctx,
		`insert into tasks (user_id, name, scheduled_at) values ($1, $2, $3) returning id`,
		task.UserID, task.Name, task.ScheduledAt,
	).Scan(&id)
	if err != nil {
		return fmt.Errorf("failed to insert task %q for user %s: %w", task.Name, task.UserID, err)
	}
	task.ID = uint(id)
	return nil
}

// Delete removes every task matching (user, name).
func (r *taskRepository) Delete(ctx context.Context, userID, name string) (int64, error) {
	tag, err := r.pool.Exec(ctx, `delete from tasks where user_id = $1 and name = $2`, userID, name)
	if err != nil {
		return 0, fmt.Errorf("failed to delete task %q for user %s: %w", name, userID, err)
	}
	return tag.RowsAffected(), nil
}

// FindByUserID retrieves all tasks for a user, oldest insert first.
func (r *taskRepository) FindByUserID(ctx context.Context, userID string) ([]*entity.Task, error) {
	rows, err := r.pool.Query(ctx,
		`select id, user_id, name, scheduled_at from tasks where user_id = $1 order by id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find tasks by user_id %s: %w", userID, err)
	}
	return scanTasks(rows)
}

// FindByUserIDAndName retrieves the tasks stored under (user, name).
func (r *taskRepository) FindByUserIDAndName(ctx context.Context, userID, name string) ([]*entity.Task, error) {
	rows, err := r.pool.Query(ctx,
		`select id, user_id, name, scheduled_at from tasks where user_id = $1 and name = $2 order by id`, userID, name)
	if err != nil {
		return nil, fmt.Errorf("failed to find task %q for user %s: %w", name, userID, err)
	}
	return scanTasks(rows)
}

// FindAll retrieves all tasks.
func (r *taskRepository) FindAll(ctx context.Context) ([]*entity.Task, error) {
	rows, err := r.pool.Query(ctx, `select id, user_id, name, scheduled_at from tasks order by id`)
	if err != nil {
		return nil, fmt.Errorf("failed to find all tasks: %w", err)
	}
	return scanTasks(rows)
}

// Close closes the pool.
func (r *taskRepository) Close() error {
	r.pool.Close()
	return nil
}

func scanTasks(rows pgx.Rows) ([]*entity.Task, error) {
	defer rows.Close()

	var tasks []*entity.Task
	for rows.Next() {
		var (
			task entity.Task
			id   int64
		)
		if err := rows.Scan(&id, &task.UserID, &task.Name, &task.ScheduledAt); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		task.ID = uint(id)
		tasks = append(tasks, &task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read tasks: %w", err)
	}
	return tasks, nil
}
