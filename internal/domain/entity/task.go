package entity

import "time"

// Task represents a pending one-shot reminder.
type Task struct {
	ID          uint      `gorm:"primaryKey;autoIncrement"`
	UserID      string    `gorm:"column:user_id;index:idx_tasks_user_name"`
	Name        string    `gorm:"column:name;type:text;index:idx_tasks_user_name"`
	ScheduledAt time.Time `gorm:"column:scheduled_at;type:text;serializer:rfc3339"`
}

// TableName specifies the table name for the Task entity.
func (Task) TableName() string {
	return "tasks"
}

// Key returns the natural key of the task.
func (t *Task) Key() string {
	return TaskKey(t.UserID, t.Name)
}

// TaskKey builds the (user, name) key used to address timers. The scheduled
// time is deliberately not part of it.
func TaskKey(userID, name string) string {
	return userID + "\x00" + name
}
