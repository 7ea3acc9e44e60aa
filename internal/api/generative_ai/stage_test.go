package generativeAI

import (
	"context"
	"errors"
	"iter"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/waynai/waynai-go/internal/types"
)

type fakeGenerator struct {
	response string
	err      error
	requests []types.GenerationRequest
}

func (f *fakeGenerator) GenerateText(ctx context.Context, req types.GenerationRequest) (string, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func TestGenerateReturnsModelText(t *testing.T) {
	gen := &fakeGenerator{response: "부산 2박 3일 여행 일정입니다."}
	stage := NewGenerationStage(gen, slog.Default())

	text := stage.Generate(context.Background(), types.GenerationRequest{
		Prompt:      "부산 여행 일정을 알려줘",
		Temperature: 0.7,
	})

	assert.Equal(t, "부산 2박 3일 여행 일정입니다.", text)
	require.Len(t, gen.requests, 1)
	assert.Equal(t, "부산 여행 일정을 알려줘", gen.requests[0].Prompt)
	assert.InDelta(t, 0.7, gen.requests[0].Temperature, 0.001)
}

func TestGenerateFallsBackOnError(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("quota exceeded")}
	stage := NewGenerationStage(gen, slog.Default())

	text := stage.Generate(context.Background(), types.GenerationRequest{Prompt: "여행 일정"})

	assert.Equal(t, FallbackMessage, text)
}

func TestGenerateFallsBackOnEmptyText(t *testing.T) {
	gen := &fakeGenerator{response: ""}
	stage := NewGenerationStage(gen, slog.Default())

	text := stage.Generate(context.Background(), types.GenerationRequest{Prompt: "여행 일정"})

	assert.Equal(t, FallbackMessage, text)
}

func TestGenerateStreamEmitsSingleChunkThenCloses(t *testing.T) {
	gen := &fakeGenerator{response: "서울 당일치기 코스입니다."}
	stage := NewGenerationStage(gen, slog.Default())

	out := stage.GenerateStream(context.Background(), types.GenerationRequest{Prompt: "서울 여행"})

	var sb strings.Builder
	count := 0
	for chunk := range out {
		sb.WriteString(chunk.Text)
		count++
	}

	assert.Equal(t, 1, count)
	assert.Equal(t, "서울 당일치기 코스입니다.", sb.String())
}

func TestGenerateStreamConcatMatchesGenerate(t *testing.T) {
	gen := &fakeGenerator{response: "제주 3박 4일 일정입니다."}
	stage := NewGenerationStage(gen, slog.Default())
	req := types.GenerationRequest{Prompt: "제주 여행"}

	direct := stage.Generate(context.Background(), req)

	var sb strings.Builder
	for chunk := range stage.GenerateStream(context.Background(), req) {
		sb.WriteString(chunk.Text)
	}

	assert.Equal(t, direct, sb.String())
}

func TestGenerateStreamFailureYieldsFallbackChunk(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("backend unavailable")}
	stage := NewGenerationStage(gen, slog.Default())

	out := stage.GenerateStream(context.Background(), types.GenerationRequest{Prompt: "여행"})

	chunk, ok := <-out
	require.True(t, ok)
	assert.Equal(t, FallbackMessage, chunk.Text)

	_, ok = <-out
	assert.False(t, ok, "channel must close after the fallback chunk")
}

// fakeStreamGenerator yields canned chunks, optionally followed by an
// error; it also carries the blocking behavior for fallback paths.
type fakeStreamGenerator struct {
	fakeGenerator
	parts     []string
	streamErr error
	setupErr  error
}

func (f *fakeStreamGenerator) GenerateTextStream(ctx context.Context, req types.GenerationRequest) (iter.Seq2[*genai.GenerateContentResponse, error], error) {
	if f.setupErr != nil {
		return nil, f.setupErr
	}
	return func(yield func(*genai.GenerateContentResponse, error) bool) {
		for _, part := range f.parts {
			if !yield(textResponse(part), nil) {
				return
			}
		}
		if f.streamErr != nil {
			yield(nil, f.streamErr)
		}
	}, nil
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: text}}},
		}},
	}
}

func TestGenerateStreamDeliversIncrementalChunks(t *testing.T) {
	gen := &fakeStreamGenerator{parts: []string{"부산 ", "2박 3일 ", "일정입니다."}}
	stage := NewGenerationStage(gen, slog.Default())

	var chunks []string
	for chunk := range stage.GenerateStream(context.Background(), types.GenerationRequest{Prompt: "부산 여행"}) {
		chunks = append(chunks, chunk.Text)
	}

	assert.Equal(t, []string{"부산 ", "2박 3일 ", "일정입니다."}, chunks)
	assert.Equal(t, "부산 2박 3일 일정입니다.", strings.Join(chunks, ""))
}

func TestGenerateStreamSetupFailureFallsBackToBlocking(t *testing.T) {
	gen := &fakeStreamGenerator{
		fakeGenerator: fakeGenerator{response: "전체 응답입니다."},
		setupErr:      errors.New("stream unavailable"),
	}
	stage := NewGenerationStage(gen, slog.Default())

	out := stage.GenerateStream(context.Background(), types.GenerationRequest{Prompt: "여행"})

	chunk, ok := <-out
	require.True(t, ok)
	assert.Equal(t, "전체 응답입니다.", chunk.Text)
	_, ok = <-out
	assert.False(t, ok)
	require.Len(t, gen.requests, 1)
}

func TestGenerateStreamErrorBeforeOutputFallsBackToBlocking(t *testing.T) {
	gen := &fakeStreamGenerator{
		fakeGenerator: fakeGenerator{response: "차단 호출 응답입니다."},
		streamErr:     errors.New("stream reset"),
	}
	stage := NewGenerationStage(gen, slog.Default())

	var chunks []string
	for chunk := range stage.GenerateStream(context.Background(), types.GenerationRequest{Prompt: "여행"}) {
		chunks = append(chunks, chunk.Text)
	}

	assert.Equal(t, []string{"차단 호출 응답입니다."}, chunks)
}

func TestGenerateStreamMidStreamErrorEndsWithFallback(t *testing.T) {
	gen := &fakeStreamGenerator{
		parts:     []string{"첫 구간입니다. "},
		streamErr: errors.New("stream reset"),
	}
	stage := NewGenerationStage(gen, slog.Default())

	var chunks []string
	for chunk := range stage.GenerateStream(context.Background(), types.GenerationRequest{Prompt: "여행"}) {
		chunks = append(chunks, chunk.Text)
	}

	require.Len(t, chunks, 2)
	assert.Equal(t, "첫 구간입니다. ", chunks[0])
	assert.Equal(t, FallbackMessage, chunks[1])
	// The blocking path must not run a second generation.
	assert.Empty(t, gen.requests)
}

func TestGenerateStreamAbandonsSendOnCancel(t *testing.T) {
	gen := &fakeGenerator{response: "소비되지 않는 응답"}
	stage := NewGenerationStage(gen, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	out := stage.GenerateStream(ctx, types.GenerationRequest{Prompt: "여행"})
	cancel()

	select {
	case _, ok := <-out:
		if ok {
			// The send may have raced the cancel; the channel must still close.
			_, stillOpen := <-out
			assert.False(t, stillOpen)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not terminate after context cancellation")
	}
}
