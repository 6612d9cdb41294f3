package handler

import (
	"strings"
	"taskreminder/internal/domain/constant"
	appErrors "taskreminder/internal/pkg/errors"
	"time"
)

// CommandKind identifies a chat command.
type CommandKind int

const (
	CommandUnknown CommandKind = iota
	CommandHelp
	CommandAdd
	CommandList
	CommandRemove
	// Quick reply buttons that only prompt for the real command.
	CommandAddPrompt
	CommandRemovePrompt
)

// Quick reply labels.
const (
	ButtonAdd    = "Add task"
	ButtonList   = "Task list"
	ButtonRemove = "Remove task"
)

// Usage strings shown on malformed commands.
const (
	usageAdd    = "Use: /add YYYY-MM-DD HH:MM <task>"
	usageRemove = "Use: /remove <task>"
)

// Command is a parsed chat message.
type Command struct {
	Kind CommandKind
	Name string
	Time time.Time
	// Usage is set when the command was recognized but malformed.
	Usage string
	Err   error
}

// ParseCommand parses a chat message. /add times are read in loc.
func ParseCommand(text string, loc *time.Location) Command {
	text = strings.TrimSpace(text)
	switch text {
	case ButtonAdd:
		return Command{Kind: CommandAddPrompt}
	case ButtonList:
		return Command{Kind: CommandList}
	case ButtonRemove:
		return Command{Kind: CommandRemovePrompt}
	}

	head, rest, _ := strings.Cut(text, " ")
	// Group chats address bots as /cmd@botname.
	head, _, _ = strings.Cut(head, "@")
	rest = strings.TrimSpace(rest)

	switch strings.ToLower(head) {
	case "/start", "/help":
		return Command{Kind: CommandHelp}
	case "/list":
		return Command{Kind: CommandList}
	case "/remove":
		if rest == "" {
			return Command{Kind: CommandRemove, Usage: usageRemove}
		}
		return Command{Kind: CommandRemove, Name: rest}
	case "/add":
		return parseAdd(rest, loc)
	default:
		return Command{Kind: CommandUnknown}
	}
}

func parseAdd(args string, loc *time.Location) Command {
	fields := strings.Fields(args)
	if len(fields) < 3 {
		return Command{Kind: CommandAdd, Usage: usageAdd}
	}

	at, err := time.ParseInLocation(constant.CommandLayout, fields[0]+" "+fields[1], loc)
	if err != nil {
		return Command{Kind: CommandAdd, Usage: usageAdd, Err: appErrors.Validation(appErrors.ErrInvalidDateTime)}
	}

	// The name keeps its inner spacing; only the date and time are split off.
	name := strings.TrimSpace(args)
	for _, f := range fields[:2] {
		name = strings.TrimSpace(strings.TrimPrefix(name, f))
	}
	return Command{Kind: CommandAdd, Name: name, Time: at}
}
