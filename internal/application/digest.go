package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/bnema/mailbot/internal/domain"
	"github.com/bnema/mailbot/internal/ports"
	"github.com/google/uuid"
)

const DefaultDigestWindowHours = 24

// DigestPipeline is one scheduled triage run: fetch recent mail, classify it
// through the query gate, and notify the operator only when something needs
// attention.
type DigestPipeline struct {
	breaker      *CircuitBreaker
	mail         ports.MailClient
	gate         *QueryGate
	scanner      *ContaminationScanner
	notifier     ports.ChatTransport
	notifyChat   domain.ChatID
	windowHours  int
	systemPrompt string
	maxTurns     int
	audit        ports.AuditLog
	metrics      ports.Metrics
	newRunID     func() string
	logger       *slog.Logger
}

type DigestDeps struct {
	Breaker      *CircuitBreaker
	Mail         ports.MailClient
	Gate         *QueryGate
	Scanner      *ContaminationScanner
	Notifier     ports.ChatTransport
	NotifyChat   domain.ChatID
	WindowHours  int
	SystemPrompt string
	MaxTurns     int
	Audit        ports.AuditLog
	Metrics      ports.Metrics
	NewRunID     func() string
	Logger       *slog.Logger
}

func NewDigestPipeline(deps DigestDeps) (*DigestPipeline, error) {
	switch {
	case deps.Breaker == nil:
		return nil, errors.New("digest pipeline: breaker is nil")
	case deps.Mail == nil:
		return nil, errors.New("digest pipeline: mail client is nil")
	case deps.Gate == nil:
		return nil, errors.New("digest pipeline: query gate is nil")
	case deps.Notifier == nil:
		return nil, errors.New("digest pipeline: notifier is nil")
	}
	if deps.Scanner == nil {
		deps.Scanner = NewContaminationScanner(deps.SystemPrompt)
	}
	if deps.WindowHours <= 0 {
		deps.WindowHours = DefaultDigestWindowHours
	}
	if deps.Audit == nil {
		deps.Audit = ports.NopAuditLog{}
	}
	if deps.Metrics == nil {
		deps.Metrics = ports.NopMetrics{}
	}
	if deps.NewRunID == nil {
		deps.NewRunID = uuid.NewString
	}

	return &DigestPipeline{
		breaker:      deps.Breaker,
		mail:         deps.Mail,
		gate:         deps.Gate,
		scanner:      deps.Scanner,
		notifier:     deps.Notifier,
		notifyChat:   deps.NotifyChat,
		windowHours:  deps.WindowHours,
		systemPrompt: deps.SystemPrompt,
		maxTurns:     deps.MaxTurns,
		audit:        deps.Audit,
		metrics:      deps.Metrics,
		newRunID:     deps.NewRunID,
		logger:       defaultLogger(deps.Logger),
	}, nil
}

// Run performs one digest. The error is non-nil for failed and contaminated
// runs; errors.Is(err, domain.ErrReauthorizationRequired) marks the run that
// needs a human.
func (p *DigestPipeline) Run(ctx context.Context) (result domain.DigestResult, err error) {
	result.RunID = p.newRunID()
	logger := p.logger.With("run_id", result.RunID)

	defer func() {
		fields := map[string]any{
			"run_id":      result.RunID,
			"outcome":     string(result.Outcome),
			"fetched":     result.Fetched,
			"significant": len(result.Significant),
		}
		if err != nil {
			fields["error"] = err.Error()
		}
		p.metrics.DigestRun(result.Outcome)
		recordAudit(ctx, p.audit, logger, EventDigestRun, fields)
		logger.Info("digest run finished", "outcome", result.Outcome, "fetched", result.Fetched, "significant", len(result.Significant))
	}()

	open, err := p.breaker.IsOpen(ctx)
	if err != nil {
		result.Outcome = domain.DigestFailed
		return result, err
	}
	if open {
		result.Outcome = domain.DigestSkipped
		return result, nil
	}

	items, err := p.mail.List(ctx, p.windowHours)
	if err != nil {
		result.Outcome = domain.DigestFailed
		err = fmt.Errorf("list mail: %w", err)
		if errors.Is(err, domain.ErrReauthorizationRequired) {
			return result, err
		}
		return result, p.fail(ctx, err)
	}
	result.Fetched = len(items)
	if len(items) == 0 {
		result.Outcome = domain.DigestEmpty
		p.succeed(ctx, logger)
		return result, nil
	}

	answer, err := p.gate.Query(ctx, domain.Query{
		Prompt:       classificationPrompt(items, p.windowHours),
		SystemPrompt: p.systemPrompt,
		MaxTurns:     p.maxTurns,
	})
	if err != nil {
		result.Outcome = domain.DigestFailed
		return result, fmt.Errorf("classify mail: %w", err)
	}

	if err := p.scanner.Check(answer); err != nil {
		result.Outcome = domain.DigestContaminated
		logger.Warn("classification discarded", "error", err)
		return result, p.fail(ctx, err)
	}

	classifications, err := ParseClassifications(answer, items)
	if err != nil {
		result.Outcome = domain.DigestFailed
		return result, p.fail(ctx, err)
	}

	for _, classification := range classifications {
		if classification.Significant() {
			result.Significant = append(result.Significant, classification)
		}
	}
	if len(result.Significant) == 0 {
		result.Outcome = domain.DigestQuiet
		p.succeed(ctx, logger)
		return result, nil
	}

	if err := sendWithBackoff(ctx, p.notifier, p.notifyChat, FormatDigest(items, result.Significant)); err != nil {
		result.Outcome = domain.DigestFailed
		return result, p.fail(ctx, fmt.Errorf("send digest: %w", err))
	}

	result.Outcome = domain.DigestNotified
	p.succeed(ctx, logger)
	return result, nil
}

func (p *DigestPipeline) fail(ctx context.Context, err error) error {
	if recordErr := p.breaker.RecordFailure(ctx, err.Error()); recordErr != nil {
		return errors.Join(err, recordErr)
	}
	return err
}

func (p *DigestPipeline) succeed(ctx context.Context, logger *slog.Logger) {
	if err := p.breaker.RecordSuccess(ctx); err != nil {
		logger.Warn("record breaker success failed", "error", err)
	}
}

func classificationPrompt(items []domain.MailItem, windowHours int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Classify these %d messages received in the last %d hours.\n", len(items), windowHours)
	for _, item := range items {
		b.WriteString("\n")
		fmt.Fprintf(&b, "id: %s\n", item.ID)
		fmt.Fprintf(&b, "from: %s\n", item.From)
		fmt.Fprintf(&b, "subject: %s\n", item.Subject)
		if !item.ReceivedAt.IsZero() {
			fmt.Fprintf(&b, "received: %s\n", item.ReceivedAt.UTC().Format(time.RFC3339))
		}
		fmt.Fprintf(&b, "snippet: %s\n", item.Snippet)
	}
	return b.String()
}

var urgencyRank = map[domain.Urgency]int{
	domain.UrgencyHigh:   0,
	domain.UrgencyMedium: 1,
	domain.UrgencyLow:    2,
}

// FormatDigest renders the plain-text notification, most urgent first.
func FormatDigest(items []domain.MailItem, significant []domain.Classification) string {
	byID := make(map[string]domain.MailItem, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}

	sorted := append([]domain.Classification(nil), significant...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return urgencyRank[sorted[i].Urgency] < urgencyRank[sorted[j].Urgency]
	})

	var b strings.Builder
	fmt.Fprintf(&b, "%d of %d new messages need attention\n", len(sorted), len(items))
	for _, classification := range sorted {
		item := byID[classification.ItemID]
		b.WriteString("\n")
		fmt.Fprintf(&b, "[%s] %s: %s\n", strings.ToUpper(string(classification.Urgency)), item.From, item.Subject)
		if classification.Summary != "" {
			fmt.Fprintf(&b, "%s\n", classification.Summary)
		}
		fmt.Fprintf(&b, "(%s, /reply %s)\n", strings.ReplaceAll(string(classification.Category), "_", " "), item.ID)
	}
	return strings.TrimRight(b.String(), "\n")
}
