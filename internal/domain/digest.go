package domain

import "time"

type MailItem struct {
	ID         string
	ThreadID   string
	From       string
	Subject    string
	Snippet    string
	ReceivedAt time.Time
}

type Category string

const (
	CategoryActionRequired Category = "action_required"
	CategoryReplyNeeded    Category = "reply_needed"
	CategoryFYI            Category = "fyi"
	CategoryNewsletter     Category = "newsletter"
	CategoryPromotion      Category = "promotion"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryActionRequired, CategoryReplyNeeded, CategoryFYI, CategoryNewsletter, CategoryPromotion:
		return true
	default:
		return false
	}
}

type Urgency string

const (
	UrgencyHigh   Urgency = "high"
	UrgencyMedium Urgency = "medium"
	UrgencyLow    Urgency = "low"
)

func (u Urgency) Valid() bool {
	switch u {
	case UrgencyHigh, UrgencyMedium, UrgencyLow:
		return true
	default:
		return false
	}
}

type Classification struct {
	ItemID   string
	Category Category
	Urgency  Urgency
	Summary  string
}

func (c Classification) Significant() bool {
	if c.Urgency == UrgencyLow {
		return false
	}

	return c.Category != CategoryNewsletter && c.Category != CategoryPromotion
}

type DigestOutcome string

const (
	DigestSkipped      DigestOutcome = "skipped"
	DigestEmpty        DigestOutcome = "empty"
	DigestQuiet        DigestOutcome = "quiet"
	DigestNotified     DigestOutcome = "notified"
	DigestContaminated DigestOutcome = "contaminated"
	DigestFailed       DigestOutcome = "failed"
)

type DigestResult struct {
	RunID       string
	Outcome     DigestOutcome
	Fetched     int
	Significant []Classification
}

// Query is one request to the language-model collaborator.
type Query struct {
	Prompt       string
	SystemPrompt string
	MaxTurns     int
}
