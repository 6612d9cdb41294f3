package handler

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"net/url"
	"taskreminder/internal/application/dto"
	"taskreminder/internal/application/service"
	appErrors "taskreminder/internal/pkg/errors"
	"taskreminder/internal/pkg/logger"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// TaskHandler serves the JSON task API.
type TaskHandler struct {
	reminderService service.ReminderService
	log             logger.Logger
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(reminderService service.ReminderService, log logger.Logger) *TaskHandler {
	return &TaskHandler{reminderService: reminderService, log: log}
}

type addTaskBody struct {
	Name string `json:"name"`
	Time string `json:"time"` // RFC 3339
}

type errorBody struct {
	Error string `json:"error"`
}

// List handles GET /api/users/:user_id/tasks.
func (h *TaskHandler) List(c echo.Context) error {
	tasks, err := h.reminderService.ListTasks(c.Request().Context(), c.Param("user_id"))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": tasks})
}

// Add handles POST /api/users/:user_id/tasks.
func (h *TaskHandler) Add(c echo.Context) error {
	var body addTaskBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "invalid JSON body"})
	}
	at, err := time.Parse(time.RFC3339, body.Time)
	if err != nil {
		return h.writeError(c, appErrors.Validation(appErrors.ErrInvalidDateTime))
	}

	task, err := h.reminderService.AddTask(c.Request().Context(), dto.AddTaskRequest{
		UserID: c.Param("user_id"),
		Name:   body.Name,
		Time:   at,
	})
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusCreated, task)
}

// Remove handles DELETE /api/users/:user_id/tasks/:name.
func (h *TaskHandler) Remove(c echo.Context) error {
	// echo leaves the param escaped when the path carries %2F.
	name, err := url.PathUnescape(c.Param("name"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "invalid task name"})
	}
	n, err := h.reminderService.RemoveTask(c.Request().Context(), c.Param("user_id"), name)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto.RemoveTaskResponse{Removed: n})
}

// APIAuth requires "Authorization: Bearer <token>" on every request. A missing
// or wrong token is answered with 401.
func APIAuth(token string) echo.MiddlewareFunc {
	return middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
		Validator: func(key string, c echo.Context) (bool, error) {
			return subtle.ConstantTimeCompare([]byte(key), []byte(token)) == 1, nil
		},
		ErrorHandler: func(err error, c echo.Context) error {
			return c.JSON(http.StatusUnauthorized, errorBody{Error: "unauthorized"})
		},
	})
}

// Health handles GET /healthz.
func (h *TaskHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"ok":             true,
		"pending_timers": h.reminderService.PendingTimers(),
	})
}

func (h *TaskHandler) writeError(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, appErrors.ErrDuplicateTask):
		status = http.StatusConflict
	case errors.Is(err, appErrors.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, appErrors.ErrScheduling):
		status = http.StatusServiceUnavailable
	default:
		h.log.Error("Task API request failed", err)
	}
	return c.JSON(status, errorBody{Error: appErrors.Reason(err)})
}
