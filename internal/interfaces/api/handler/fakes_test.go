package handler

import (
	"context"
	"net/http"
	"sync"
	"taskreminder/internal/application/dto"
	appErrors "taskreminder/internal/pkg/errors"
	"time"

	"github.com/line/line-bot-sdk-go/v7/linebot"
)

// fakeService is an in-memory ReminderService without timers.
type fakeService struct {
	mu      sync.Mutex
	tasks   []dto.TaskResponse
	now     time.Time
	failErr error
	removed []string
}

func (f *fakeService) AddTask(ctx context.Context, req dto.AddTaskRequest) (dto.TaskResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return dto.TaskResponse{}, f.failErr
	}
	if !req.Time.After(f.now) {
		return dto.TaskResponse{}, appErrors.Validation(appErrors.ErrTimeInPast)
	}
	for _, t := range f.tasks {
		if t.UserID == req.UserID && t.Name == req.Name {
			return dto.TaskResponse{}, appErrors.Validation(appErrors.ErrDuplicateTask)
		}
	}
	task := dto.TaskResponse{
		ID:          uint(len(f.tasks) + 1),
		UserID:      req.UserID,
		Name:        req.Name,
		ScheduledAt: req.Time,
		Time:        req.Time.Format("2006-01-02T15:04"),
	}
	f.tasks = append(f.tasks, task)
	return task, nil
}

func (f *fakeService) RemoveTask(ctx context.Context, userID, name string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return 0, f.failErr
	}
	var n int64
	kept := f.tasks[:0]
	for _, t := range f.tasks {
		if t.UserID == userID && t.Name == name {
			n++
			continue
		}
		kept = append(kept, t)
	}
	f.tasks = kept
	return n, nil
}

func (f *fakeService) RemoveAllTasks(ctx context.Context, userID string) (int64, error) {
	f.mu.Lock()
	f.removed = append(f.removed, userID)
	var names []string
	for _, t := range f.tasks {
		if t.UserID == userID {
			names = append(names, t.Name)
		}
	}
	f.mu.Unlock()

	var total int64
	for _, name := range names {
		n, _ := f.RemoveTask(ctx, userID, name)
		total += n
	}
	return total, nil
}

func (f *fakeService) ListTasks(ctx context.Context, userID string) ([]dto.TaskResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return nil, f.failErr
	}
	list := []dto.TaskResponse{}
	for _, t := range f.tasks {
		if t.UserID == userID {
			list = append(list, t)
		}
	}
	return list, nil
}

func (f *fakeService) Reconcile(ctx context.Context) (dto.ReconcileResult, error) {
	return dto.ReconcileResult{}, nil
}

func (f *fakeService) PendingTimers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tasks)
}

func (f *fakeService) Stop() {}

// fakeBot records outgoing LINE messages.
type fakeBot struct {
	events   []*linebot.Event
	parseErr error
	replies  [][]linebot.SendingMessage
	pushes   map[string][]linebot.SendingMessage
	profile  string
}

func (b *fakeBot) ParseRequest(r *http.Request) ([]*linebot.Event, error) {
	return b.events, b.parseErr
}

func (b *fakeBot) SendMessages(replyToken string, messages ...linebot.SendingMessage) error {
	b.replies = append(b.replies, messages)
	return nil
}

func (b *fakeBot) PushMessages(ctx context.Context, to string, messages ...linebot.SendingMessage) error {
	if b.pushes == nil {
		b.pushes = make(map[string][]linebot.SendingMessage)
	}
	b.pushes[to] = append(b.pushes[to], messages...)
	return nil
}

func (b *fakeBot) DisplayName(ctx context.Context, userID string) (string, error) {
	return b.profile, nil
}

// texts returns the text of every text message in msgs.
func texts(msgs []linebot.SendingMessage) []string {
	var out []string
	for _, m := range msgs {
		if tm, ok := m.(*linebot.TextMessage); ok {
			out = append(out, tm.Text)
		}
	}
	return out
}
