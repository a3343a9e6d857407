package domain

import "strings"

type EventKind int

const (
	EventText EventKind = iota
	EventCommand
)

func (k EventKind) String() string {
	switch k {
	case EventText:
		return "text"
	case EventCommand:
		return "command"
	default:
		return "unknown"
	}
}

// Event is one inbound chat update, already split into command and args.
type Event struct {
	UpdateID int64
	ChatID   ChatID
	Kind     EventKind
	Command  string
	Args     string
	Text     string
}

// ParseEvent turns raw chat text into an Event. "/reply@bot 42" is the
// command "reply" with args "42".
func ParseEvent(updateID int64, chatID ChatID, text string) Event {
	event := Event{UpdateID: updateID, ChatID: chatID, Kind: EventText, Text: text}

	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "/") {
		return event
	}

	head, rest, _ := strings.Cut(trimmed[1:], " ")
	head, _, _ = strings.Cut(head, "@")
	if head == "" {
		return event
	}

	event.Kind = EventCommand
	event.Command = strings.ToLower(head)
	event.Args = strings.TrimSpace(rest)
	return event
}
