package application

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"sort"
	"strings"
	"time"

	"github.com/bnema/mailbot/internal/domain"
	"github.com/bnema/mailbot/internal/ports"
)

const DefaultSessionTTL = 10 * time.Minute

// SessionStore holds at most one session per chat. It belongs to the event
// loop and is not safe for concurrent use.
type SessionStore struct {
	clock    ports.Clock
	sessions map[domain.ChatID]domain.Session
}

func NewSessionStore(clock ports.Clock) *SessionStore {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	return &SessionStore{clock: clock, sessions: make(map[domain.ChatID]domain.Session)}
}

// Get returns the chat's active session. An expired session is dropped and
// reported as absent.
func (s *SessionStore) Get(chatID domain.ChatID) (domain.Session, bool) {
	session, ok := s.sessions[chatID]
	if !ok {
		return domain.Session{}, false
	}
	if session.Expired(s.clock.Now()) {
		delete(s.sessions, chatID)
		return domain.Session{}, false
	}
	return session, true
}

func (s *SessionStore) Put(session domain.Session) {
	s.sessions[session.ChatID] = session
}

func (s *SessionStore) Delete(chatID domain.ChatID) bool {
	_, ok := s.sessions[chatID]
	delete(s.sessions, chatID)
	return ok
}

// Sweep removes every session expired at now and returns them.
func (s *SessionStore) Sweep(now time.Time) []domain.Session {
	var expired []domain.Session
	for chatID, session := range s.sessions {
		if session.Expired(now) {
			expired = append(expired, session)
			delete(s.sessions, chatID)
		}
	}
	sort.Slice(expired, func(i, j int) bool { return expired[i].ChatID < expired[j].ChatID })
	return expired
}

func (s *SessionStore) Len() int {
	return len(s.sessions)
}

func (s *SessionStore) Summaries() []domain.SessionSummary {
	summaries := make([]domain.SessionSummary, 0, len(s.sessions))
	for _, session := range s.sessions {
		summaries = append(summaries, domain.SessionSummary{
			ChatID:    session.ChatID,
			Kind:      session.Kind,
			Step:      session.Step,
			ExpiresAt: session.ExpiresAt,
		})
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].ChatID < summaries[j].ChatID })
	return summaries
}

// ConversationMachine walks compose and reply sessions through their steps
// and submits the finished draft to the mail client.
type ConversationMachine struct {
	store  *SessionStore
	mail   ports.MailClient
	audit  ports.AuditLog
	clock  ports.Clock
	ttl    time.Duration
	logger *slog.Logger
}

type ConversationDeps struct {
	Store  *SessionStore
	Mail   ports.MailClient
	Audit  ports.AuditLog
	Clock  ports.Clock
	TTL    time.Duration
	Logger *slog.Logger
}

func NewConversationMachine(deps ConversationDeps) *ConversationMachine {
	if deps.Clock == nil {
		deps.Clock = ports.SystemClock{}
	}
	if deps.Store == nil {
		deps.Store = NewSessionStore(deps.Clock)
	}
	if deps.Audit == nil {
		deps.Audit = ports.NopAuditLog{}
	}
	if deps.TTL <= 0 {
		deps.TTL = DefaultSessionTTL
	}

	return &ConversationMachine{
		store:  deps.Store,
		mail:   deps.Mail,
		audit:  deps.Audit,
		clock:  deps.Clock,
		ttl:    deps.TTL,
		logger: defaultLogger(deps.Logger),
	}
}

func (m *ConversationMachine) Store() *SessionStore {
	return m.store
}

// Start opens a session for chatID, replacing any active one.
func (m *ConversationMachine) Start(ctx context.Context, chatID domain.ChatID, kind domain.SessionKind, seed domain.Draft) (string, error) {
	session, err := domain.NewSession(chatID, kind, seed, m.clock.Now(), m.ttl)
	if err != nil {
		return "", fmt.Errorf("start %s session: %w", kind, err)
	}

	previous, replaced := m.store.Get(chatID)
	m.store.Put(session)

	fields := map[string]any{"chat_id": int64(chatID), "kind": string(kind)}
	if seed.InReplyTo != "" {
		fields["in_reply_to"] = seed.InReplyTo
	}

	prompt := promptFor(session)
	if replaced {
		recordAudit(ctx, m.audit, m.logger, EventSessionReplaced, map[string]any{
			"chat_id":       int64(chatID),
			"previous_kind": string(previous.Kind),
			"previous_step": string(previous.Step),
			"kind":          string(kind),
		})
		return fmt.Sprintf("Your unfinished %s draft was discarded.\n%s", previous.Kind, prompt), nil
	}

	recordAudit(ctx, m.audit, m.logger, EventSessionStarted, fields)
	return prompt, nil
}

func (m *ConversationMachine) Cancel(ctx context.Context, chatID domain.ChatID) string {
	session, ok := m.store.Get(chatID)
	if !ok {
		return "Nothing to cancel."
	}

	m.store.Delete(chatID)
	recordAudit(ctx, m.audit, m.logger, EventSessionCancelled, map[string]any{
		"chat_id": int64(chatID),
		"kind":    string(session.Kind),
		"step":    string(session.Step),
	})
	return fmt.Sprintf("Cancelled the %s draft.", session.Kind)
}

// TextResult is what one inbound text did to a chat's session.
type TextResult struct {
	Reply string
	// Finished is the completed session, already removed from the store.
	// The caller hands it to Submit.
	Finished *domain.Session
}

// HandleText feeds text to the chat's active session. handled is false when
// the chat has no active session. It never calls the mail client, so it is
// safe to run on the event loop.
func (m *ConversationMachine) HandleText(ctx context.Context, chatID domain.ChatID, text string) (result TextResult, handled bool) {
	session, ok := m.store.Get(chatID)
	if !ok {
		return TextResult{}, false
	}

	input := strings.TrimSpace(text)
	if input == "" {
		return TextResult{Reply: promptFor(session)}, true
	}
	if session.Step == domain.StepTo {
		address, err := mail.ParseAddress(input)
		if err != nil {
			return TextResult{Reply: fmt.Sprintf("%q is not an email address. %s", input, promptFor(session))}, true
		}
		input = address.String()
		if address.Name == "" {
			input = address.Address
		}
	}

	next, err := session.Advance(input)
	if err != nil {
		m.store.Delete(chatID)
		m.logger.Warn("session advance failed", "chat_id", chatID, "error", err)
		return TextResult{Reply: "Something went wrong with this draft, start again."}, true
	}

	if next.Step != domain.StepDone {
		m.store.Put(next)
		recordAudit(ctx, m.audit, m.logger, EventSessionStep, map[string]any{
			"chat_id": int64(chatID),
			"kind":    string(next.Kind),
			"step":    string(next.Step),
		})
		return TextResult{Reply: promptFor(next)}, true
	}

	m.store.Delete(chatID)
	return TextResult{Finished: &next}, true
}

// Submit sends a finished draft to the mail client and returns the reply
// for the chat. It does not touch the session store and may run off the
// event loop.
func (m *ConversationMachine) Submit(ctx context.Context, session domain.Session) string {
	id, err := m.mail.Create(ctx, session.Fields)
	if err != nil {
		m.logger.Warn("draft submission failed", "chat_id", session.ChatID, "kind", session.Kind, "error", err)
		recordAudit(ctx, m.audit, m.logger, EventSessionFailed, map[string]any{
			"chat_id": int64(session.ChatID),
			"kind":    string(session.Kind),
			"error":   err.Error(),
		})
		return fmt.Sprintf("Could not save the draft: %v", err)
	}

	recordAudit(ctx, m.audit, m.logger, EventSessionSubmitted, map[string]any{
		"chat_id":  int64(session.ChatID),
		"kind":     string(session.Kind),
		"draft_id": id,
	})
	return fmt.Sprintf("Draft saved (%s).", id)
}

// Sweep drops expired sessions and returns how many were removed.
func (m *ConversationMachine) Sweep(ctx context.Context) int {
	expired := m.store.Sweep(m.clock.Now())
	for _, session := range expired {
		recordAudit(ctx, m.audit, m.logger, EventSessionExpired, map[string]any{
			"chat_id": int64(session.ChatID),
			"kind":    string(session.Kind),
			"step":    string(session.Step),
		})
	}
	return len(expired)
}

func promptFor(session domain.Session) string {
	switch session.Step {
	case domain.StepTo:
		return "Who is it for? Send an email address."
	case domain.StepSubject:
		return "Subject?"
	case domain.StepBody:
		if session.Kind == domain.SessionReply {
			return "Send the reply text."
		}
		return "Send the message body."
	default:
		return ""
	}
}
