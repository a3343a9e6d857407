// Package gmail lists recent inbox messages and creates drafts through the
// Gmail REST API.
package gmail

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bnema/mailbot/internal/domain"
	"github.com/bnema/mailbot/internal/ports"
	"golang.org/x/oauth2"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const (
	userID            = "me"
	defaultMaxResults = 50
)

// AccessTokenFunc yields a currently valid access token; the token cache's
// GetValidAccessToken bound to one account.
type AccessTokenFunc func(ctx context.Context) (string, error)

// RefreshFunc replaces an access token the API rejected, so that the next
// AccessTokenFunc call returns the new one.
type RefreshFunc func(ctx context.Context) error

type Options struct {
	AccessToken AccessTokenFunc
	// Refresh runs once per call after a 401. Nil surfaces the 401.
	Refresh RefreshFunc
	// Endpoint overrides the API base URL, for tests.
	Endpoint   string
	HTTPClient *http.Client
	Clock      ports.Clock
	MaxResults int64
}

type Client struct {
	service    *gmailapi.Service
	refresh    RefreshFunc
	clock      ports.Clock
	maxResults int64
}

var _ ports.MailClient = (*Client)(nil)

func NewClient(ctx context.Context, opts Options) (*Client, error) {
	if opts.AccessToken == nil {
		return nil, errors.New("gmail client needs an access token source")
	}
	if opts.Clock == nil {
		opts.Clock = ports.SystemClock{}
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = defaultMaxResults
	}

	base := http.DefaultTransport
	if opts.HTTPClient != nil && opts.HTTPClient.Transport != nil {
		base = opts.HTTPClient.Transport
	}
	httpClient := &http.Client{
		Transport: &oauth2.Transport{Source: cacheTokenSource{ctx: ctx, get: opts.AccessToken}, Base: base},
	}

	clientOpts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if opts.Endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(strings.TrimRight(opts.Endpoint, "/")+"/"))
	}

	service, err := gmailapi.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create gmail service: %w", err)
	}

	return &Client{service: service, refresh: opts.Refresh, clock: opts.Clock, maxResults: opts.MaxResults}, nil
}

// List returns inbox messages received in the last windowHours, newest first.
func (c *Client) List(ctx context.Context, windowHours int) ([]domain.MailItem, error) {
	if windowHours <= 0 {
		return nil, fmt.Errorf("window must be positive, got %d hours", windowHours)
	}

	since := c.clock.Now().Add(-time.Duration(windowHours) * time.Hour)
	query := fmt.Sprintf("in:inbox after:%d", since.Unix())

	var listed *gmailapi.ListMessagesResponse
	err := c.call(ctx, func() (err error) {
		listed, err = c.service.Users.Messages.List(userID).Q(query).MaxResults(c.maxResults).Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	items := make([]domain.MailItem, 0, len(listed.Messages))
	for _, ref := range listed.Messages {
		msg, err := c.metadata(ctx, ref.Id, "From", "Subject")
		if err != nil {
			return nil, err
		}
		items = append(items, domain.MailItem{
			ID:         msg.Id,
			ThreadID:   msg.ThreadId,
			From:       header(msg, "From"),
			Subject:    header(msg, "Subject"),
			Snippet:    msg.Snippet,
			ReceivedAt: time.UnixMilli(msg.InternalDate).UTC(),
		})
	}

	return items, nil
}

// Create stores draft as a Gmail draft and returns its id. A reply draft
// takes its recipient, subject and thread from the original message.
func (c *Client) Create(ctx context.Context, draft domain.Draft) (string, error) {
	threadID, references := "", ""
	if draft.InReplyTo != "" {
		original, err := c.metadata(ctx, draft.InReplyTo, "From", "Reply-To", "Subject", "Message-ID", "References")
		if err != nil {
			return "", err
		}
		draft, references = replyDraft(draft, original)
		threadID = original.ThreadId
	}

	raw, err := buildMessage(draft, references)
	if err != nil {
		return "", err
	}

	var created *gmailapi.Draft
	err = c.call(ctx, func() (err error) {
		created, err = c.service.Users.Drafts.Create(userID, &gmailapi.Draft{
			Message: &gmailapi.Message{
				Raw:      base64.RawURLEncoding.EncodeToString(raw),
				ThreadId: threadID,
			},
		}).Context(ctx).Do()
		return err
	})
	if err != nil {
		return "", fmt.Errorf("create draft: %w", err)
	}

	return created.Id, nil
}

func (c *Client) metadata(ctx context.Context, id string, headers ...string) (*gmailapi.Message, error) {
	var msg *gmailapi.Message
	err := c.call(ctx, func() (err error) {
		msg, err = c.service.Users.Messages.Get(userID, id).Format("metadata").MetadataHeaders(headers...).Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get message %s: %w", id, err)
	}
	return msg, nil
}

// call runs do and, when the API rejects the access token, refreshes it and
// runs do once more.
func (c *Client) call(ctx context.Context, do func() error) error {
	err := do()
	if c.refresh == nil || !unauthorized(err) {
		return err
	}

	if refreshErr := c.refresh(ctx); refreshErr != nil {
		return fmt.Errorf("refresh rejected access token: %w", refreshErr)
	}
	return do()
}

func unauthorized(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusUnauthorized
}

func header(msg *gmailapi.Message, name string) string {
	if msg.Payload == nil {
		return ""
	}
	for _, h := range msg.Payload.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

type cacheTokenSource struct {
	ctx context.Context
	get AccessTokenFunc
}

func (s cacheTokenSource) Token() (*oauth2.Token, error) {
	accessToken, err := s.get(s.ctx)
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}, nil
}
