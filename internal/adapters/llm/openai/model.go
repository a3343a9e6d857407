// Package openai streams chat completions from an OpenAI-compatible API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/bnema/mailbot/internal/domain"
	"github.com/bnema/mailbot/internal/ports"
	openai "github.com/sashabaranov/go-openai"
)

const (
	DefaultModel   = "gpt-4o-mini"
	continuePrompt = "Continue exactly where you stopped. Do not repeat anything."
)

type Options struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

type Model struct {
	client *openai.Client
	model  string
	logger *slog.Logger
}

var _ ports.LanguageModel = (*Model)(nil)

func NewModel(opts Options) (*Model, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("openai api key is empty")
	}
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	}
	if opts.HTTPClient != nil {
		cfg.HTTPClient = opts.HTTPClient
	}

	return &Model{client: openai.NewClientWithConfig(cfg), model: opts.Model, logger: opts.Logger}, nil
}

// Stream opens a streamed completion. When the model stops because it ran
// out of output tokens, the stream transparently asks it to continue, up to
// query.MaxTurns turns in total.
func (m *Model) Stream(ctx context.Context, query domain.Query) (ports.TextStream, error) {
	if strings.TrimSpace(query.Prompt) == "" {
		return nil, errors.New("prompt is empty")
	}

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if query.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: query.SystemPrompt})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: query.Prompt})

	req := openai.ChatCompletionRequest{Model: m.model, Messages: messages, Stream: true}

	m.logger.Debug("opening completion stream", "model", m.model, "max_turns", query.MaxTurns)
	current, err := m.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("open completion stream: %w", err)
	}

	maxTurns := query.MaxTurns
	if maxTurns <= 0 {
		maxTurns = 1
	}

	return &stream{ctx: ctx, client: m.client, req: req, current: current, turn: 1, maxTurns: maxTurns}, nil
}

type stream struct {
	ctx      context.Context
	client   *openai.Client
	req      openai.ChatCompletionRequest
	current  *openai.ChatCompletionStream
	turn     int
	maxTurns int
	finish   openai.FinishReason
	turnText strings.Builder
}

func (s *stream) Recv() (string, error) {
	for {
		if s.current == nil {
			return "", io.EOF
		}

		resp, err := s.current.Recv()
		if errors.Is(err, io.EOF) {
			if s.finish != openai.FinishReasonLength || s.turn >= s.maxTurns {
				return "", io.EOF
			}
			if err := s.nextTurn(); err != nil {
				return "", err
			}
			continue
		}
		if err != nil {
			return "", fmt.Errorf("receive completion chunk: %w", err)
		}

		if len(resp.Choices) == 0 {
			continue
		}
		choice := resp.Choices[0]
		if choice.FinishReason != "" {
			s.finish = choice.FinishReason
		}
		if choice.Delta.Content == "" {
			continue
		}

		s.turnText.WriteString(choice.Delta.Content)
		return choice.Delta.Content, nil
	}
}

func (s *stream) nextTurn() error {
	s.current.Close()
	s.current = nil

	s.req.Messages = append(s.req.Messages,
		openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: s.turnText.String()},
		openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: continuePrompt},
	)
	s.turnText.Reset()
	s.finish = ""

	next, err := s.client.CreateChatCompletionStream(s.ctx, s.req)
	if err != nil {
		return fmt.Errorf("open continuation stream: %w", err)
	}
	s.current = next
	s.turn++
	return nil
}

func (s *stream) Close() error {
	if s.current != nil {
		s.current.Close()
		s.current = nil
	}
	return nil
}
