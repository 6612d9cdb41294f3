package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"taskreminder/internal/application/dto"
	"taskreminder/internal/application/service"
	"taskreminder/internal/domain/constant"
	appErrors "taskreminder/internal/pkg/errors"
	"taskreminder/internal/pkg/logger"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/line/line-bot-sdk-go/v7/linebot"
)

// LineBot is the part of the LINE client the webhook handler uses.
type LineBot interface {
	ParseRequest(r *http.Request) ([]*linebot.Event, error)
	SendMessages(replyToken string, messages ...linebot.SendingMessage) error
	PushMessages(ctx context.Context, to string, messages ...linebot.SendingMessage) error
	DisplayName(ctx context.Context, userID string) (string, error)
}

const helpText = `Hi! I will help you keep track of your schedule.

Commands:
/add YYYY-MM-DD HH:MM <task> - add a task
/list - show your tasks
/remove <task> - remove a task`

// LineHandler handles incoming LINE webhook events.
type LineHandler struct {
	lineClient      LineBot
	reminderService service.ReminderService
	loc             *time.Location
	adminUserID     string
	log             logger.Logger
}

// NewLineHandler creates a new LineHandler. Command times are read in loc.
// adminUserID, when set, is notified of new followers.
func NewLineHandler(
	lineClient LineBot,
	reminderService service.ReminderService,
	loc *time.Location,
	adminUserID string,
	log logger.Logger,
) *LineHandler {
	return &LineHandler{
		lineClient:      lineClient,
		reminderService: reminderService,
		loc:             loc,
		adminUserID:     adminUserID,
		log:             log,
	}
}

// HandleWebhook is the main entry point for webhook requests.
func (h *LineHandler) HandleWebhook(c echo.Context) error {
	ctx := c.Request().Context()
	events, err := h.lineClient.ParseRequest(c.Request())
	if err != nil {
		if errors.Is(err, linebot.ErrInvalidSignature) {
			h.log.Warn("Invalid LINE signature received")
			return c.String(http.StatusBadRequest, "Invalid signature")
		}
		h.log.Error("Failed to parse LINE webhook request", err)
		return c.String(http.StatusInternalServerError, "Error parsing request")
	}

	for _, event := range events {
		h.log.Info(fmt.Sprintf("Processing event type: %s", event.Type))
		switch event.Type {
		case linebot.EventTypeMessage:
			h.handleMessageEvent(ctx, event)
		case linebot.EventTypeFollow:
			h.handleFollowEvent(ctx, event)
		case linebot.EventTypeUnfollow:
			h.handleUnfollowEvent(ctx, event)
		default:
			h.log.Info(fmt.Sprintf("Unhandled event type: %s", event.Type))
		}
	}

	return c.String(http.StatusOK, "OK")
}

// handleFollowEvent welcomes the user and notifies the admin.
func (h *LineHandler) handleFollowEvent(ctx context.Context, event *linebot.Event) {
	userID := event.Source.UserID
	h.log.Info(fmt.Sprintf("User %s followed the bot.", userID))

	if err := h.lineClient.SendMessages(event.ReplyToken, helpMessage()); err != nil {
		h.log.Error(fmt.Sprintf("Failed to send follow reply to user %s", userID), err)
	}

	if h.adminUserID == "" {
		h.log.Warn("MY_USER_ID is not set. Skipping admin notification for follow event.")
		return
	}

	var notification string
	if name, err := h.lineClient.DisplayName(ctx, userID); err != nil {
		h.log.Warn(fmt.Sprintf("Failed to get profile for follower %s: %v", userID, err))
		notification = fmt.Sprintf("User (ID: %s) followed the bot.", userID)
	} else {
		notification = fmt.Sprintf("User %q (ID: %s) followed the bot.", name, userID)
	}
	if err := h.lineClient.PushMessages(ctx, h.adminUserID, linebot.NewTextMessage(notification)); err != nil {
		h.log.Error(fmt.Sprintf("Failed to send follow notification to admin %s for follower %s", h.adminUserID, userID), err)
	}
}

// handleUnfollowEvent drops every task of a user who blocked the bot.
func (h *LineHandler) handleUnfollowEvent(ctx context.Context, event *linebot.Event) {
	userID := event.Source.UserID
	h.log.Info(fmt.Sprintf("User %s unfollowed or blocked the bot.", userID))

	if _, err := h.reminderService.RemoveAllTasks(ctx, userID); err != nil {
		h.log.Error(fmt.Sprintf("Failed to remove tasks of unfollowed user %s", userID), err)
	}
}

// handleMessageEvent processes message events.
func (h *LineHandler) handleMessageEvent(ctx context.Context, event *linebot.Event) {
	userID := event.Source.UserID

	message, ok := event.Message.(*linebot.TextMessage)
	if !ok {
		h.log.Info(fmt.Sprintf("Received non-text message type from %s", userID))
		return
	}
	h.log.Info(fmt.Sprintf("Received text message from %s: %s", userID, message.Text))

	replies := h.respond(ctx, userID, message.Text)
	if len(replies) == 0 {
		return
	}
	if err := h.lineClient.SendMessages(event.ReplyToken, replies...); err != nil {
		h.log.Error(fmt.Sprintf("Failed to send reply to user %s", userID), err)
	}
}

// respond executes a chat command and returns the reply.
func (h *LineHandler) respond(ctx context.Context, userID, text string) []linebot.SendingMessage {
	cmd := ParseCommand(text, h.loc)
	if cmd.Usage != "" {
		reply := cmd.Usage
		if cmd.Err != nil {
			reply = fmt.Sprintf("Invalid date format (%s). %s", appErrors.Reason(cmd.Err), cmd.Usage)
		}
		return textReply(reply)
	}

	switch cmd.Kind {
	case CommandHelp:
		return []linebot.SendingMessage{helpMessage()}
	case CommandAddPrompt:
		return textReply("Send the task as: /add YYYY-MM-DD HH:MM <task>")
	case CommandRemovePrompt:
		return textReply("Send the name of the task to remove: /remove <task>")
	case CommandList:
		return h.listReply(ctx, userID)
	case CommandAdd:
		return h.addReply(ctx, userID, cmd)
	case CommandRemove:
		return h.removeReply(ctx, userID, cmd.Name)
	default:
		return nil
	}
}

func (h *LineHandler) addReply(ctx context.Context, userID string, cmd Command) []linebot.SendingMessage {
	task, err := h.reminderService.AddTask(ctx, dto.AddTaskRequest{UserID: userID, Name: cmd.Name, Time: cmd.Time})
	if err != nil {
		return textReply(fmt.Sprintf("Could not add the task: %s.", appErrors.Reason(err)))
	}
	return textReply(fmt.Sprintf("Task '%s' added for %s.", task.Name, task.ScheduledAt.Format(constant.CommandLayout)))
}

func (h *LineHandler) removeReply(ctx context.Context, userID, name string) []linebot.SendingMessage {
	n, err := h.reminderService.RemoveTask(ctx, userID, name)
	switch {
	case err != nil:
		return textReply(fmt.Sprintf("Could not remove the task: %s.", appErrors.Reason(err)))
	case n == 0:
		return textReply(fmt.Sprintf("No task named '%s'.", name))
	default:
		return textReply(fmt.Sprintf("Task '%s' removed.", name))
	}
}

func (h *LineHandler) listReply(ctx context.Context, userID string) []linebot.SendingMessage {
	tasks, err := h.reminderService.ListTasks(ctx, userID)
	if err != nil {
		return textReply(fmt.Sprintf("Could not load your tasks: %s.", appErrors.Reason(err)))
	}
	if len(tasks) == 0 {
		return textReply("Your task list is empty.")
	}

	var builder strings.Builder
	builder.WriteString("Your tasks:")
	for _, t := range tasks {
		fmt.Fprintf(&builder, "\n%s - %s", t.ScheduledAt.Format(constant.CommandLayout), t.Name)
	}
	return textReply(builder.String())
}

func helpMessage() linebot.SendingMessage {
	quickReply := linebot.NewQuickReplyItems(
		linebot.NewQuickReplyButton("", linebot.NewMessageAction(ButtonAdd, ButtonAdd)),
		linebot.NewQuickReplyButton("", linebot.NewMessageAction(ButtonList, ButtonList)),
		linebot.NewQuickReplyButton("", linebot.NewMessageAction(ButtonRemove, ButtonRemove)),
	)
	return linebot.NewTextMessage(helpText).WithQuickReplies(quickReply)
}

func textReply(text string) []linebot.SendingMessage {
	return []linebot.SendingMessage{linebot.NewTextMessage(text)}
}
