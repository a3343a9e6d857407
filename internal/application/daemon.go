package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/bnema/mailbot/internal/domain"
	"github.com/bnema/mailbot/internal/ports"
	"github.com/google/uuid"
)

const (
	DefaultSweepInterval    = time.Minute
	DefaultSnapshotInterval = 5 * time.Minute
	DefaultAskSystemPrompt  = "You are a concise assistant answering questions about the operator's mail. Reply in plain text."

	receiveBackoffMin = time.Second
	receiveBackoffMax = time.Minute
	finalSnapshotWait = 5 * time.Second
	outboxSize        = 64
)

const helpText = `Commands:
/compose - write a new draft
/reply <message id> - draft a reply to a message
/cancel - discard the draft in progress
/ask <question> - ask the assistant
/status - show bot status`

// Daemon is the interactive bot. One goroutine runs the event loop and owns
// the session store. Receiving updates, sending replies, answering /ask and
// saving drafts run in their own goroutines so the loop never waits on the
// network.
type Daemon struct {
	transport        ports.ChatTransport
	conversation     *ConversationMachine
	gate             *QueryGate
	scanner          *ContaminationScanner
	breakers         []*CircuitBreaker
	snapshots        ports.SnapshotRepository
	allowed          map[domain.ChatID]bool
	askSystemPrompt  string
	maxTurns         int
	sweepInterval    time.Duration
	snapshotInterval time.Duration
	audit            ports.AuditLog
	metrics          ports.Metrics
	clock            ports.Clock
	logger           *slog.Logger
	instanceID       string
	pid              int
	outbox           chan outboundMessage
}

type DaemonDeps struct {
	Transport    ports.ChatTransport
	Conversation *ConversationMachine
	Gate         *QueryGate
	// Breakers are reported by /status and in snapshots.
	Breakers         []*CircuitBreaker
	Snapshots        ports.SnapshotRepository
	AllowedChats     []domain.ChatID
	AskSystemPrompt  string
	MaxTurns         int
	SweepInterval    time.Duration
	SnapshotInterval time.Duration
	Audit            ports.AuditLog
	Metrics          ports.Metrics
	Clock            ports.Clock
	Logger           *slog.Logger
}

type outboundMessage struct {
	chatID domain.ChatID
	text   string
}

type askResult struct {
	chatID   domain.ChatID
	question string
	answer   string
	err      error
}

func NewDaemon(deps DaemonDeps) (*Daemon, error) {
	switch {
	case deps.Transport == nil:
		return nil, errors.New("daemon: chat transport is nil")
	case deps.Conversation == nil:
		return nil, errors.New("daemon: conversation machine is nil")
	case deps.Gate == nil:
		return nil, errors.New("daemon: query gate is nil")
	case len(deps.AllowedChats) == 0:
		return nil, errors.New("daemon: no allowed chats configured")
	}
	if deps.AskSystemPrompt == "" {
		deps.AskSystemPrompt = DefaultAskSystemPrompt
	}
	if deps.SweepInterval <= 0 {
		deps.SweepInterval = DefaultSweepInterval
	}
	if deps.SnapshotInterval <= 0 {
		deps.SnapshotInterval = DefaultSnapshotInterval
	}
	if deps.Audit == nil {
		deps.Audit = ports.NopAuditLog{}
	}
	if deps.Metrics == nil {
		deps.Metrics = ports.NopMetrics{}
	}
	if deps.Clock == nil {
		deps.Clock = ports.SystemClock{}
	}

	allowed := make(map[domain.ChatID]bool, len(deps.AllowedChats))
	for _, chatID := range deps.AllowedChats {
		allowed[chatID] = true
	}

	return &Daemon{
		transport:        deps.Transport,
		conversation:     deps.Conversation,
		gate:             deps.Gate,
		scanner:          NewContaminationScanner(deps.AskSystemPrompt),
		breakers:         deps.Breakers,
		snapshots:        deps.Snapshots,
		allowed:          allowed,
		askSystemPrompt:  deps.AskSystemPrompt,
		maxTurns:         deps.MaxTurns,
		sweepInterval:    deps.SweepInterval,
		snapshotInterval: deps.SnapshotInterval,
		audit:            deps.Audit,
		metrics:          deps.Metrics,
		clock:            deps.Clock,
		logger:           defaultLogger(deps.Logger).With("component", "daemon"),
		instanceID:       uuid.NewString(),
		pid:              os.Getpid(),
		outbox:           make(chan outboundMessage, outboxSize),
	}, nil
}

func (d *Daemon) InstanceID() string {
	return d.instanceID
}

// Run blocks until ctx is cancelled. A final snapshot is written on the way
// out.
func (d *Daemon) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var workers sync.WaitGroup
	defer workers.Wait()

	events := make(chan domain.Event)
	answers := make(chan askResult)

	workers.Add(2)
	go func() {
		defer workers.Done()
		d.receive(ctx, events)
	}()
	go func() {
		defer workers.Done()
		d.deliver(ctx)
	}()

	sweep := time.NewTicker(d.sweepInterval)
	defer sweep.Stop()
	snapshot := time.NewTicker(d.snapshotInterval)
	defer snapshot.Stop()

	d.logger.Info("daemon started", "instance_id", d.instanceID, "allowed_chats", len(d.allowed))
	recordAudit(ctx, d.audit, d.logger, EventDaemonStarted, map[string]any{"instance_id": d.instanceID, "pid": d.pid})
	d.writeSnapshot(ctx)

	for {
		select {
		case <-ctx.Done():
			d.shutdown()
			return nil
		case event := <-events:
			d.handle(ctx, event, answers, &workers)
			d.metrics.ActiveSessions(d.conversation.Store().Len())
		case result := <-answers:
			d.deliverAnswer(ctx, result)
		case <-sweep.C:
			if removed := d.conversation.Sweep(ctx); removed > 0 {
				d.logger.Info("expired sessions swept", "removed", removed)
			}
			d.metrics.ActiveSessions(d.conversation.Store().Len())
		case <-snapshot.C:
			d.writeSnapshot(ctx)
		}
	}
}

func (d *Daemon) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), finalSnapshotWait)
	defer cancel()

	d.writeSnapshot(ctx)
	recordAudit(ctx, d.audit, d.logger, EventDaemonStopped, map[string]any{"instance_id": d.instanceID, "pid": d.pid})
	d.logger.Info("daemon stopped", "instance_id", d.instanceID)
}

// receive long-polls the transport and forwards events to the loop.
func (d *Daemon) receive(ctx context.Context, events chan<- domain.Event) {
	backoff := receiveBackoffMin
	for {
		batch, err := d.transport.Receive(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			wait := backoff
			var rateLimited *domain.RateLimitError
			if errors.As(err, &rateLimited) && rateLimited.RetryAfter > 0 {
				wait = rateLimited.RetryAfter
			}
			d.logger.Warn("receive updates failed", "error", err, "retry_in", wait)

			if !sleepContext(ctx, wait) {
				return
			}
			backoff = min(backoff*2, receiveBackoffMax)
			continue
		}
		backoff = receiveBackoffMin

		for _, event := range batch {
			select {
			case events <- event:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (d *Daemon) handle(ctx context.Context, event domain.Event, answers chan<- askResult, workers *sync.WaitGroup) {
	if !d.allowed[event.ChatID] {
		d.logger.Warn("message from unknown chat ignored", "chat_id", event.ChatID)
		recordAudit(ctx, d.audit, d.logger, EventChatRejected, map[string]any{
			"chat_id":   int64(event.ChatID),
			"update_id": event.UpdateID,
		})
		return
	}

	switch event.Kind {
	case domain.EventCommand:
		d.handleCommand(ctx, event, answers, workers)
	case domain.EventText:
		result, handled := d.conversation.HandleText(ctx, event.ChatID, event.Text)
		if !handled {
			d.send(ctx, event.ChatID, "No draft in progress. /help lists the commands.")
			return
		}
		d.send(ctx, event.ChatID, result.Reply)
		if result.Finished != nil {
			d.submit(ctx, *result.Finished, workers)
		}
	default:
		d.logger.Warn("unsupported event kind", "kind", event.Kind)
	}
}

func (d *Daemon) handleCommand(ctx context.Context, event domain.Event, answers chan<- askResult, workers *sync.WaitGroup) {
	chatID := event.ChatID

	switch event.Command {
	case "start", "help":
		d.send(ctx, chatID, helpText)
	case "compose":
		d.startSession(ctx, chatID, domain.SessionCompose, domain.Draft{})
	case "reply":
		if event.Args == "" {
			d.send(ctx, chatID, "Usage: /reply <message id>")
			return
		}
		d.startSession(ctx, chatID, domain.SessionReply, domain.Draft{InReplyTo: event.Args})
	case "cancel":
		d.send(ctx, chatID, d.conversation.Cancel(ctx, chatID))
	case "ask":
		if event.Args == "" {
			d.send(ctx, chatID, "Usage: /ask <question>")
			return
		}
		d.ask(ctx, chatID, event.Args, answers, workers)
	case "status":
		d.send(ctx, chatID, d.statusText(ctx))
	default:
		d.send(ctx, chatID, fmt.Sprintf("Unknown command /%s. /help lists the commands.", event.Command))
	}
}

func (d *Daemon) startSession(ctx context.Context, chatID domain.ChatID, kind domain.SessionKind, seed domain.Draft) {
	prompt, err := d.conversation.Start(ctx, chatID, kind, seed)
	if err != nil {
		d.send(ctx, chatID, fmt.Sprintf("Could not start: %v", err))
		return
	}
	d.send(ctx, chatID, prompt)
}

// ask hands the question to a worker. The worker only talks to the query
// gate and posts its result back to the loop.
func (d *Daemon) ask(ctx context.Context, chatID domain.ChatID, question string, answers chan<- askResult, workers *sync.WaitGroup) {
	breaker := d.gate.Breaker()
	status, err := breaker.Status(ctx)
	if err != nil {
		d.logger.Warn("read agent breaker failed", "error", err)
		d.send(ctx, chatID, "The assistant is unavailable right now.")
		return
	}
	if status.Open {
		d.send(ctx, chatID, fmt.Sprintf("The assistant is paused after repeated failures. Try again after %s.",
			status.State.ReopensAt().UTC().Format("15:04 UTC")))
		return
	}

	query := domain.Query{Prompt: question, SystemPrompt: d.askSystemPrompt, MaxTurns: d.maxTurns}
	workers.Add(1)
	go func() {
		defer workers.Done()

		answer, err := d.gate.TryQuery(ctx, query)
		select {
		case answers <- askResult{chatID: chatID, question: question, answer: answer, err: err}:
		case <-ctx.Done():
		}
	}()
}

// submit saves a finished draft on a worker. The session is already gone
// from the store, so later texts from the chat start fresh.
func (d *Daemon) submit(ctx context.Context, session domain.Session, workers *sync.WaitGroup) {
	workers.Add(1)
	go func() {
		defer workers.Done()
		d.send(ctx, session.ChatID, d.conversation.Submit(ctx, session))
	}()
}

func (d *Daemon) deliverAnswer(ctx context.Context, result askResult) {
	breaker := d.gate.Breaker()
	fields := map[string]any{"chat_id": int64(result.chatID)}

	err := result.err
	if err == nil {
		err = d.scanner.Check(result.answer)
		if err != nil {
			if recordErr := breaker.RecordFailure(ctx, err.Error()); recordErr != nil {
				d.logger.Warn("record breaker failure failed", "error", recordErr)
			}
		}
	}

	switch {
	case err == nil:
		if recordErr := breaker.RecordSuccess(ctx); recordErr != nil {
			d.logger.Warn("record breaker success failed", "error", recordErr)
		}
		recordAudit(ctx, d.audit, d.logger, EventQueryAnswered, fields)
		answer := strings.TrimSpace(result.answer)
		if answer == "" {
			answer = "The assistant had nothing to say."
		}
		d.send(ctx, result.chatID, answer)
	case errors.Is(err, domain.ErrQueryBusy):
		d.send(ctx, result.chatID, "Another question is still being answered. Try again in a moment.")
	case errors.Is(err, domain.ErrContaminatedOutput):
		fields["error"] = err.Error()
		recordAudit(ctx, d.audit, d.logger, EventQueryFailed, fields)
		d.send(ctx, result.chatID, "The answer was withheld because it looked unsafe.")
	default:
		fields["error"] = err.Error()
		recordAudit(ctx, d.audit, d.logger, EventQueryFailed, fields)
		d.send(ctx, result.chatID, fmt.Sprintf("The assistant failed: %v", err))
	}
}

func (d *Daemon) statusText(ctx context.Context) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Drafts in progress: %d\n", d.conversation.Store().Len())
	for _, breaker := range d.breakers {
		status, err := breaker.Status(ctx)
		if err != nil {
			fmt.Fprintf(&b, "%s: unknown (%v)\n", breaker.Operation(), err)
			continue
		}
		if status.Open {
			fmt.Fprintf(&b, "%s: open until %s\n", status.Operation, status.State.ReopensAt().UTC().Format("15:04 UTC"))
			continue
		}
		fmt.Fprintf(&b, "%s: closed (%d/%d failures)\n", status.Operation, status.State.FailureCount, status.State.MaxFailures)
	}
	return strings.TrimRight(b.String(), "\n")
}

// send queues text for the chat. It never blocks; a reply that finds the
// outbox full is dropped and logged.
func (d *Daemon) send(ctx context.Context, chatID domain.ChatID, text string) {
	if text == "" {
		return
	}
	select {
	case d.outbox <- outboundMessage{chatID: chatID, text: text}:
	case <-ctx.Done():
	default:
		d.logger.Warn("outbox full, reply dropped", "chat_id", chatID)
	}
}

// deliver sends queued replies in order, waiting out rate limits.
func (d *Daemon) deliver(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-d.outbox:
			if err := sendWithBackoff(ctx, d.transport, msg.chatID, msg.text); err != nil && ctx.Err() == nil {
				d.logger.Warn("send message failed", "chat_id", msg.chatID, "error", err)
			}
		}
	}
}

func (d *Daemon) writeSnapshot(ctx context.Context) {
	if d.snapshots == nil {
		return
	}

	snapshot := domain.Snapshot{
		TakenAt:    d.clock.Now(),
		PID:        d.pid,
		InstanceID: d.instanceID,
		Sessions:   d.conversation.Store().Summaries(),
	}
	for _, breaker := range d.breakers {
		status, err := breaker.Status(ctx)
		if err != nil {
			d.logger.Warn("read breaker for snapshot failed", "operation", breaker.Operation(), "error", err)
			continue
		}
		snapshot.Breakers = append(snapshot.Breakers, status)
	}

	if err := d.snapshots.Save(ctx, snapshot); err != nil {
		d.logger.Warn("write snapshot failed", "error", err)
	}
}

func sleepContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
