package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bnema/mailbot/internal/domain"
	"github.com/bnema/mailbot/internal/ports/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConversation(t *testing.T, clock *manualClock) (*ConversationMachine, *mocks.MockMailClient, *memoryAudit) {
	t.Helper()

	mailClient := mocks.NewMockMailClient(t)
	audit := &memoryAudit{}
	machine := NewConversationMachine(ConversationDeps{
		Store: NewSessionStore(clock),
		Mail:  mailClient,
		Audit: audit,
		Clock: clock,
		TTL:   10 * time.Minute,
	})
	return machine, mailClient, audit
}

func TestComposeSessionSubmitsExactlyOneDraft(t *testing.T) {
	t.Parallel()

	clock := newManualClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	machine, mailClient, audit := newTestConversation(t, clock)
	ctx := context.Background()
	chat := domain.ChatID(42)

	mailClient.EXPECT().Create(mockAnyContext(), domain.Draft{To: "to@x.com", Subject: "Hi", Body: "Body text"}).
		Return("draft-1", nil).Once()

	prompt, err := machine.Start(ctx, chat, domain.SessionCompose, domain.Draft{})
	require.NoError(t, err)
	assert.Contains(t, prompt, "email address")

	steps := []struct {
		input string
		step  domain.Step
	}{
		{input: "to@x.com", step: domain.StepSubject},
		{input: "Hi", step: domain.StepBody},
	}
	for _, step := range steps {
		_, handled := machine.HandleText(ctx, chat, step.input)
		require.True(t, handled)
		session, ok := machine.Store().Get(chat)
		require.True(t, ok)
		assert.Equal(t, step.step, session.Step)
	}

	result, handled := machine.HandleText(ctx, chat, "Body text")
	require.True(t, handled)
	require.NotNil(t, result.Finished)
	assert.Empty(t, result.Reply)

	_, ok := machine.Store().Get(chat)
	assert.False(t, ok, "session deleted once the draft is complete")

	assert.Equal(t, "Draft saved (draft-1).", machine.Submit(ctx, *result.Finished))

	result, handled = machine.HandleText(ctx, chat, "late message")
	assert.False(t, handled)
	assert.Equal(t, TextResult{}, result)

	assert.Equal(t, []string{
		EventSessionStarted, EventSessionStep, EventSessionStep, EventSessionSubmitted,
	}, audit.Events())
}

func TestSessionDeletedWhenSubmitFails(t *testing.T) {
	t.Parallel()

	clock := newManualClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	machine, mailClient, audit := newTestConversation(t, clock)
	ctx := context.Background()

	mailClient.EXPECT().Create(mockAnyContext(), domain.Draft{Body: "thanks", InReplyTo: "msg-1"}).
		Return("", errors.New("quota exceeded")).Once()

	_, err := machine.Start(ctx, 7, domain.SessionReply, domain.Draft{InReplyTo: "msg-1"})
	require.NoError(t, err)

	result, handled := machine.HandleText(ctx, 7, "thanks")
	require.True(t, handled)
	require.NotNil(t, result.Finished)
	assert.Equal(t, 0, machine.Store().Len())
	assert.Contains(t, machine.Submit(ctx, *result.Finished), "quota exceeded")

	_, ok := audit.Last(EventSessionFailed)
	assert.True(t, ok)
}

func TestComposeRejectsInvalidRecipient(t *testing.T) {
	t.Parallel()

	clock := newManualClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	machine, _, _ := newTestConversation(t, clock)
	ctx := context.Background()

	_, err := machine.Start(ctx, 1, domain.SessionCompose, domain.Draft{})
	require.NoError(t, err)

	result, handled := machine.HandleText(ctx, 1, "not an address")
	require.True(t, handled)
	assert.Contains(t, result.Reply, "not an email address")
	assert.Nil(t, result.Finished)

	session, ok := machine.Store().Get(1)
	require.True(t, ok)
	assert.Equal(t, domain.StepTo, session.Step)

	_, handled = machine.HandleText(ctx, 1, "Ada <ada@example.com>")
	require.True(t, handled)
	session, ok = machine.Store().Get(1)
	require.True(t, ok)
	assert.Equal(t, domain.StepSubject, session.Step)
	assert.Equal(t, `"Ada" <ada@example.com>`, session.Fields.To)
}

func TestCancelDeletesSessionAtAnyStep(t *testing.T) {
	t.Parallel()

	for _, answered := range [][]string{nil, {"a@b.c"}, {"a@b.c", "subject"}} {
		clock := newManualClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
		machine, _, audit := newTestConversation(t, clock)
		ctx := context.Background()

		_, err := machine.Start(ctx, 5, domain.SessionCompose, domain.Draft{})
		require.NoError(t, err)
		for _, input := range answered {
			_, handled := machine.HandleText(ctx, 5, input)
			require.True(t, handled)
		}

		assert.Contains(t, machine.Cancel(ctx, 5), "Cancelled")
		assert.Equal(t, 0, machine.Store().Len())
		_, handled := machine.HandleText(ctx, 5, "body")
		assert.False(t, handled)
		assert.Contains(t, audit.Events(), EventSessionCancelled)
	}

	clock := newManualClock(time.Now())
	machine, _, _ := newTestConversation(t, clock)
	assert.Equal(t, "Nothing to cancel.", machine.Cancel(context.Background(), 5))
}

func TestStartOverridesActiveSession(t *testing.T) {
	t.Parallel()

	clock := newManualClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	machine, _, audit := newTestConversation(t, clock)
	ctx := context.Background()

	_, err := machine.Start(ctx, 9, domain.SessionCompose, domain.Draft{})
	require.NoError(t, err)
	_, _ = machine.HandleText(ctx, 9, "a@b.c")

	reply, err := machine.Start(ctx, 9, domain.SessionReply, domain.Draft{InReplyTo: "msg-2"})
	require.NoError(t, err)
	assert.Contains(t, reply, "discarded")

	session, ok := machine.Store().Get(9)
	require.True(t, ok)
	assert.Equal(t, domain.SessionReply, session.Kind)
	assert.Equal(t, 1, machine.Store().Len())

	fields, ok := audit.Last(EventSessionReplaced)
	require.True(t, ok)
	assert.Equal(t, "compose", fields["previous_kind"])
	assert.Equal(t, "subject", fields["previous_step"])
}

func TestSweepRemovesExpiredSessions(t *testing.T) {
	t.Parallel()

	clock := newManualClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	machine, _, audit := newTestConversation(t, clock)
	ctx := context.Background()

	_, err := machine.Start(ctx, 1, domain.SessionCompose, domain.Draft{})
	require.NoError(t, err)
	clock.Advance(5 * time.Minute)
	_, err = machine.Start(ctx, 2, domain.SessionCompose, domain.Draft{})
	require.NoError(t, err)

	clock.Advance(5 * time.Minute)
	assert.Equal(t, 1, machine.Sweep(ctx))
	assert.Equal(t, []domain.SessionSummary{{
		ChatID:    2,
		Kind:      domain.SessionCompose,
		Step:      domain.StepTo,
		ExpiresAt: time.Date(2026, 3, 1, 9, 15, 0, 0, time.UTC),
	}}, machine.Store().Summaries())
	assert.Contains(t, audit.Events(), EventSessionExpired)
}

func TestExpiredSessionIsAbsentBeforeSweep(t *testing.T) {
	t.Parallel()

	clock := newManualClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	machine, _, _ := newTestConversation(t, clock)

	_, err := machine.Start(context.Background(), 3, domain.SessionCompose, domain.Draft{})
	require.NoError(t, err)

	clock.Advance(10 * time.Minute)
	_, handled := machine.HandleText(context.Background(), 3, "a@b.c")
	assert.False(t, handled)
	assert.Equal(t, 0, machine.Store().Len())
}

func TestStartRejectsReplyWithoutMessageID(t *testing.T) {
	t.Parallel()

	machine, _, _ := newTestConversation(t, newManualClock(time.Now()))
	_, err := machine.Start(context.Background(), 1, domain.SessionReply, domain.Draft{})
	require.Error(t, err)
	assert.Equal(t, 0, machine.Store().Len())
}
