package dto

import (
	"taskreminder/internal/domain/constant"
	"taskreminder/internal/domain/entity"
	"time"
)

// AddTaskRequest is the DTO for scheduling a new task.
type AddTaskRequest struct {
	UserID string    `json:"user_id"`
	Name   string    `json:"name"`
	Time   time.Time `json:"time"`
}

// TaskResponse is the DTO for sending task information to the client (e.g., listing tasks).
type TaskResponse struct {
	ID          uint      `json:"id"`
	UserID      string    `json:"user_id"`
	Name        string    `json:"name"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Time        string    `json:"time"` // ScheduledAt in the canonical timezone, DisplayLayout
}

// ToTaskResponse converts an entity.Task to a TaskResponse DTO, rendering the time in loc.
func ToTaskResponse(t *entity.Task, loc *time.Location) TaskResponse {
	at := t.ScheduledAt.In(loc)
	return TaskResponse{
		ID:          t.ID,
		UserID:      t.UserID,
		Name:        t.Name,
		ScheduledAt: at,
		Time:        at.Format(constant.DisplayLayout),
	}
}

// ToTaskResponseList converts a slice of entity.Task to a slice of TaskResponse DTOs.
func ToTaskResponseList(tasks []*entity.Task, loc *time.Location) []TaskResponse {
	list := make([]TaskResponse, len(tasks))
	for i, t := range tasks {
		list[i] = ToTaskResponse(t, loc)
	}
	return list
}

// RemoveTaskResponse reports how many stored tasks a removal deleted.
type RemoveTaskResponse struct {
	Removed int64 `json:"removed"`
}

// ReconcileResult summarizes startup reconciliation.
type ReconcileResult struct {
	Scheduled int // Future tasks given a timer
	Overdue   int // Tasks whose time passed while offline, fired immediately
	Failed    int // Tasks the timer engine rejected
}
