// Package telegram talks to the Telegram Bot API with long polling.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bnema/mailbot/internal/domain"
	"github.com/bnema/mailbot/internal/ports"
	"golang.org/x/time/rate"
)

const (
	DefaultAPIURL      = "https://api.telegram.org"
	maxMessageRunes    = 4096
	maxResponseBytes   = 4 << 20
	defaultPollTimeout = 30 * time.Second
)

type Options struct {
	APIURL        string
	Token         string
	HTTPClient    *http.Client
	PollTimeout   time.Duration
	SendPerSecond float64
}

type Transport struct {
	baseURL     string
	token       string
	client      *http.Client
	pollTimeout time.Duration
	limiter     *rate.Limiter

	mu     sync.Mutex
	offset int64
}

var _ ports.ChatTransport = (*Transport)(nil)

type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	Description string          `json:"description"`
	ErrorCode   int             `json:"error_code"`
	Parameters  struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters"`
}

type update struct {
	UpdateID int64 `json:"update_id"`
	Message  *struct {
		Text string `json:"text"`
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
	} `json:"message"`
}

func NewTransport(opts Options) (*Transport, error) {
	if strings.TrimSpace(opts.Token) == "" {
		return nil, errors.New("telegram bot token is empty")
	}
	if opts.APIURL == "" {
		opts.APIURL = DefaultAPIURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = defaultPollTimeout
	}
	if opts.SendPerSecond <= 0 {
		opts.SendPerSecond = 1
	}

	return &Transport{
		baseURL:     strings.TrimRight(opts.APIURL, "/"),
		token:       opts.Token,
		client:      opts.HTTPClient,
		pollTimeout: opts.PollTimeout,
		limiter:     rate.NewLimiter(rate.Limit(opts.SendPerSecond), 1),
	}, nil
}

// Receive long-polls getUpdates and acknowledges everything it returns, text
// or not, by advancing the offset.
func (t *Transport) Receive(ctx context.Context) ([]domain.Event, error) {
	t.mu.Lock()
	offset := t.offset
	t.mu.Unlock()

	query := url.Values{}
	query.Set("timeout", strconv.Itoa(int(t.pollTimeout/time.Second)))
	query.Set("allowed_updates", `["message"]`)
	if offset > 0 {
		query.Set("offset", strconv.FormatInt(offset, 10))
	}

	var updates []update
	if err := t.call(ctx, http.MethodGet, "getUpdates", query, nil, &updates); err != nil {
		return nil, err
	}

	events := make([]domain.Event, 0, len(updates))
	for _, u := range updates {
		if u.UpdateID >= offset {
			offset = u.UpdateID + 1
		}
		if u.Message == nil || u.Message.Text == "" {
			continue
		}
		events = append(events, domain.ParseEvent(u.UpdateID, domain.ChatID(u.Message.Chat.ID), u.Message.Text))
	}

	t.mu.Lock()
	if offset > t.offset {
		t.offset = offset
	}
	t.mu.Unlock()

	return events, nil
}

// Send delivers text as plain text, split on the API's message size limit.
func (t *Transport) Send(ctx context.Context, chatID domain.ChatID, text string) error {
	if strings.TrimSpace(text) == "" {
		return errors.New("message text is empty")
	}

	for _, part := range splitMessage(text, maxMessageRunes) {
		if err := t.limiter.Wait(ctx); err != nil {
			return err
		}

		body := map[string]any{"chat_id": int64(chatID), "text": part}
		if err := t.call(ctx, http.MethodPost, "sendMessage", nil, body, nil); err != nil {
			return err
		}
	}

	return nil
}

func (t *Transport) call(ctx context.Context, method, apiMethod string, query url.Values, body any, result any) error {
	endpoint := t.baseURL + "/bot" + t.token + "/" + apiMethod
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", apiMethod, err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("create %s request: %s", apiMethod, t.redact(err))
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := t.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("telegram %s: %s", apiMethod, t.redact(err))
	}
	defer func() { _ = resp.Body.Close() }()

	var decoded apiResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&decoded); err != nil {
		return fmt.Errorf("decode %s response (status %d): %w", apiMethod, resp.StatusCode, err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || decoded.ErrorCode == http.StatusTooManyRequests {
		return &domain.RateLimitError{RetryAfter: time.Duration(decoded.Parameters.RetryAfter) * time.Second}
	}
	if !decoded.OK {
		return fmt.Errorf("telegram %s failed (status %d): %s", apiMethod, resp.StatusCode, decoded.Description)
	}

	if result == nil {
		return nil
	}
	if err := json.Unmarshal(decoded.Result, result); err != nil {
		return fmt.Errorf("decode %s result: %w", apiMethod, err)
	}
	return nil
}

// Request errors embed the URL, which embeds the bot token.
func (t *Transport) redact(err error) string {
	return strings.ReplaceAll(err.Error(), t.token, "<token>")
}

func splitMessage(text string, limit int) []string {
	runes := []rune(text)
	if len(runes) <= limit {
		return []string{text}
	}

	parts := make([]string, 0, len(runes)/limit+1)
	for len(runes) > limit {
		cut := limit
		for i := limit; i > limit/2; i-- {
			if runes[i-1] == '\n' {
				cut = i
				break
			}
		}
		parts = append(parts, string(runes[:cut]))
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		parts = append(parts, string(runes))
	}
	return parts
}
