package application

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/bnema/mailbot/internal/adapters/repo/jsonfile"
	"github.com/bnema/mailbot/internal/domain"
	"github.com/bnema/mailbot/internal/ports"
	"github.com/bnema/mailbot/internal/ports/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chunkStream replays chunks, then blocks on ctx when hang is set.
type chunkStream struct {
	ctx    context.Context
	chunks []string
	hang   bool
	err    error

	mu     sync.Mutex
	closed bool
}

func (s *chunkStream) Recv() (string, error) {
	if len(s.chunks) > 0 {
		chunk := s.chunks[0]
		s.chunks = s.chunks[1:]
		return chunk, nil
	}
	if s.err != nil {
		return "", s.err
	}
	if s.hang {
		<-s.ctx.Done()
		return "", s.ctx.Err()
	}
	return "", io.EOF
}

func (s *chunkStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *chunkStream) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func newTestGate(t *testing.T, model ports.LanguageModel, timeout time.Duration) *QueryGate {
	t.Helper()

	repo, err := jsonfile.NewCircuitRepository(t.TempDir())
	require.NoError(t, err)
	breaker, err := NewCircuitBreaker(domain.BreakerConfig{Operation: domain.OperationAgent, MaxFailures: 2, Cooldown: time.Minute}, BreakerDeps{Repo: repo})
	require.NoError(t, err)

	gate, err := NewQueryGate(QueryGateDeps{Model: model, Breaker: breaker, Timeout: timeout})
	require.NoError(t, err)
	return gate
}

func TestQueryGateAssemblesStreamedChunks(t *testing.T) {
	t.Parallel()

	model := mocks.NewMockLanguageModel(t)
	gate := newTestGate(t, model, time.Second)
	query := domain.Query{Prompt: "hello", SystemPrompt: "be brief", MaxTurns: 2}

	stream := &chunkStream{chunks: []string{"Hel", "lo ", "there"}}
	model.EXPECT().Stream(mockAnyContext(), query).Return(stream, nil).Once()

	answer, err := gate.Query(context.Background(), query)
	require.NoError(t, err)
	assert.Equal(t, "Hello there", answer)
	assert.True(t, stream.Closed())

	state, err := gate.Breaker().State(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, state.FailureCount)
}

func TestQueryGateTimeoutReleasesSlotAndRecordsFailure(t *testing.T) {
	t.Parallel()

	model := mocks.NewMockLanguageModel(t)
	gate := newTestGate(t, model, 20*time.Millisecond)

	model.EXPECT().Stream(mockAnyContext(), domain.Query{Prompt: "slow"}).
		RunAndReturn(func(ctx context.Context, _ domain.Query) (ports.TextStream, error) {
			return &chunkStream{ctx: ctx, chunks: []string{"partial"}, hang: true}, nil
		}).Once()
	model.EXPECT().Stream(mockAnyContext(), domain.Query{Prompt: "fast"}).
		Return(&chunkStream{chunks: []string{"ok"}}, nil).Once()

	_, err := gate.Query(context.Background(), domain.Query{Prompt: "slow"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	state, err := gate.Breaker().State(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, state.FailureCount)

	answer, err := gate.TryQuery(context.Background(), domain.Query{Prompt: "fast"})
	require.NoError(t, err, "slot released after timeout")
	assert.Equal(t, "ok", answer)
}

func TestQueryGateTryQueryFailsFastWhileBusy(t *testing.T) {
	t.Parallel()

	model := mocks.NewMockLanguageModel(t)
	gate := newTestGate(t, model, time.Second)

	started := make(chan struct{})
	release := make(chan struct{})
	model.EXPECT().Stream(mockAnyContext(), domain.Query{Prompt: "long"}).
		RunAndReturn(func(context.Context, domain.Query) (ports.TextStream, error) {
			close(started)
			<-release
			return &chunkStream{chunks: []string{"done"}}, nil
		}).Once()

	result := make(chan error, 1)
	go func() {
		_, err := gate.Query(context.Background(), domain.Query{Prompt: "long"})
		result <- err
	}()

	<-started
	_, err := gate.TryQuery(context.Background(), domain.Query{Prompt: "other"})
	assert.ErrorIs(t, err, domain.ErrQueryBusy)

	close(release)
	require.NoError(t, <-result)
}

func TestQueryGateStreamErrorRecordsFailure(t *testing.T) {
	t.Parallel()

	model := mocks.NewMockLanguageModel(t)
	gate := newTestGate(t, model, time.Second)

	model.EXPECT().Stream(mockAnyContext(), domain.Query{Prompt: "a"}).Return(nil, errors.New("401 unauthorized")).Once()
	model.EXPECT().Stream(mockAnyContext(), domain.Query{Prompt: "b"}).
		Return(&chunkStream{chunks: []string{"x"}, err: errors.New("connection reset")}, nil).Once()

	_, err := gate.Query(context.Background(), domain.Query{Prompt: "a"})
	assert.ErrorContains(t, err, "open model stream")
	_, err = gate.Query(context.Background(), domain.Query{Prompt: "b"})
	assert.ErrorContains(t, err, "read model stream")

	open, err := gate.Breaker().IsOpen(context.Background())
	require.NoError(t, err)
	assert.True(t, open)
}

func TestQueryGateParentCancellationIsNotAFailure(t *testing.T) {
	t.Parallel()

	model := mocks.NewMockLanguageModel(t)
	gate := newTestGate(t, model, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	model.EXPECT().Stream(mockAnyContext(), domain.Query{Prompt: "q"}).
		RunAndReturn(func(streamCtx context.Context, _ domain.Query) (ports.TextStream, error) {
			cancel()
			return &chunkStream{ctx: streamCtx, hang: true}, nil
		}).Once()

	_, err := gate.Query(ctx, domain.Query{Prompt: "q"})
	assert.ErrorIs(t, err, context.Canceled)

	state, err := gate.Breaker().State(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, state.FailureCount)
}
