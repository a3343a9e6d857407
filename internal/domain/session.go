package domain

import (
	"fmt"
	"time"
)

type ChatID int64

type SessionKind string

const (
	SessionCompose SessionKind = "compose"
	SessionReply   SessionKind = "reply"
)

type Step string

const (
	StepTo      Step = "to"
	StepSubject Step = "subject"
	StepBody    Step = "body"
	StepDone    Step = "done"
)

// Steps lists the prompts a session walks through, in order.
func (k SessionKind) Steps() []Step {
	switch k {
	case SessionCompose:
		return []Step{StepTo, StepSubject, StepBody}
	case SessionReply:
		return []Step{StepBody}
	default:
		return nil
	}
}

func (k SessionKind) Valid() bool {
	return len(k.Steps()) > 0
}

type Session struct {
	ChatID    ChatID
	Kind      SessionKind
	Step      Step
	Fields    Draft
	CreatedAt time.Time
	ExpiresAt time.Time
}

func NewSession(chatID ChatID, kind SessionKind, seed Draft, now time.Time, ttl time.Duration) (Session, error) {
	steps := kind.Steps()
	if len(steps) == 0 {
		return Session{}, fmt.Errorf("unsupported session kind %q", kind)
	}
	if kind == SessionReply && seed.InReplyTo == "" {
		return Session{}, fmt.Errorf("reply session requires a message id")
	}

	return Session{
		ChatID:    chatID,
		Kind:      kind,
		Step:      steps[0],
		Fields:    seed,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}, nil
}

func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Advance stores input as the current step's field and moves to the next
// step, or to StepDone after the last one.
func (s Session) Advance(input string) (Session, error) {
	switch s.Step {
	case StepTo:
		s.Fields.To = input
	case StepSubject:
		s.Fields.Subject = input
	case StepBody:
		s.Fields.Body = input
	default:
		return s, fmt.Errorf("session for chat %d has no pending step", s.ChatID)
	}

	steps := s.Kind.Steps()
	for i, step := range steps {
		if step != s.Step {
			continue
		}
		if i+1 < len(steps) {
			s.Step = steps[i+1]
		} else {
			s.Step = StepDone
		}
		return s, nil
	}

	return s, fmt.Errorf("step %q is not part of a %s session", s.Step, s.Kind)
}

// Draft is what a finished session submits to the mail collaborator.
type Draft struct {
	To        string
	Subject   string
	Body      string
	InReplyTo string
}
