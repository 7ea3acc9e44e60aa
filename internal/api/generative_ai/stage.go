package generativeAI

import (
	"context"
	"iter"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/genai"

	"github.com/waynai/waynai-go/app/observability/metrics"
	"github.com/waynai/waynai-go/internal/types"
)

// FallbackMessage is emitted to the user whenever the model call fails.
const FallbackMessage = "죄송합니다. AI 서비스에 일시적인 문제가 발생했습니다. 잠시 후 다시 시도해주세요."

// Generator is the model call contract used by the generation stage.
// *AIClient satisfies it; tests substitute their own.
type Generator interface {
	GenerateText(ctx context.Context, req types.GenerationRequest) (string, error)
}

var _ Generator = (*AIClient)(nil)

// StreamGenerator is implemented by backends that can deliver the answer
// incrementally. The stage falls back to the blocking call when the backend
// does not stream or when stream setup fails.
type StreamGenerator interface {
	Generator
	GenerateTextStream(ctx context.Context, req types.GenerationRequest) (iter.Seq2[*genai.GenerateContentResponse, error], error)
}

var _ StreamGenerator = (*AIClient)(nil)

// GenerationStage turns a finished prompt into answer text. Model
// failures never propagate upward: the stage degrades to a fixed
// apology message so the pipeline always produces output.
type GenerationStage struct {
	generator Generator
	logger    *slog.Logger
}

func NewGenerationStage(generator Generator, logger *slog.Logger) *GenerationStage {
	return &GenerationStage{
		generator: generator,
		logger:    logger,
	}
}

// Generate produces the complete answer text for the prompt. On model
// failure it returns the fallback message instead of an error.
func (g *GenerationStage) Generate(ctx context.Context, req types.GenerationRequest) string {
	ctx, span := otel.Tracer("GenerationStage").Start(ctx, "Generate", trace.WithAttributes(
		attribute.Int("prompt.length", len(req.Prompt)),
	))
	defer span.End()

	text, err := g.generator.GenerateText(ctx, req)
	if err != nil {
		g.logger.ErrorContext(ctx, "Model call failed, falling back to apology message", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Model call failed")
		countFallback(ctx)
		return FallbackMessage
	}
	if text == "" {
		g.logger.WarnContext(ctx, "Model returned empty text, falling back to apology message")
		span.SetStatus(codes.Error, "Empty model response")
		countFallback(ctx)
		return FallbackMessage
	}

	span.SetAttributes(attribute.Int("response.length", len(text)))
	span.SetStatus(codes.Ok, "Answer generated")
	return text
}

// GenerateStream produces the answer as a chunk stream. Backends that
// implement StreamGenerator deliver chunks as the model emits them; the
// full answer is the concatenation in emission order. Other backends, and
// streams that fail before producing output, degrade to one blocking call
// emitted as a single chunk. Failures surface as a fallback chunk, never
// as a dropped stream. The channel is unbuffered; the consumer drives
// delivery and a cancelled context abandons the send.
func (g *GenerationStage) GenerateStream(ctx context.Context, req types.GenerationRequest) <-chan types.StreamChunk {
	out := make(chan types.StreamChunk)
	go func() {
		defer close(out)
		if sg, ok := g.generator.(StreamGenerator); ok && g.streamIncremental(ctx, sg, req, out) {
			return
		}
		text := g.Generate(ctx, req)
		select {
		case out <- types.StreamChunk{Text: text}:
		case <-ctx.Done():
		}
	}()
	return out
}

// streamIncremental forwards model chunks as they arrive. It reports false
// while nothing has been emitted yet, letting the blocking path take over;
// after the first delivered chunk it always finishes the stream itself,
// ending with the apology message if the model fails mid-answer.
func (g *GenerationStage) streamIncremental(ctx context.Context, sg StreamGenerator, req types.GenerationRequest, out chan<- types.StreamChunk) bool {
	ctx, span := otel.Tracer("GenerationStage").Start(ctx, "GenerateStream", trace.WithAttributes(
		attribute.Int("prompt.length", len(req.Prompt)),
	))
	defer span.End()

	seq, err := sg.GenerateTextStream(ctx, req)
	if err != nil {
		g.logger.WarnContext(ctx, "Model stream setup failed, using blocking call", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Stream setup failed")
		return false
	}

	emitted := 0
	for resp, err := range seq {
		if err != nil {
			g.logger.ErrorContext(ctx, "Model stream failed",
				slog.Any("error", err), slog.Int("chunks", emitted))
			span.RecordError(err)
			span.SetStatus(codes.Error, "Model stream failed")
			if emitted == 0 {
				return false
			}
			countFallback(ctx)
			select {
			case out <- types.StreamChunk{Text: FallbackMessage}:
			case <-ctx.Done():
			}
			return true
		}
		text := resp.Text()
		if text == "" {
			continue
		}
		select {
		case out <- types.StreamChunk{Text: text}:
			emitted++
		case <-ctx.Done():
			return true
		}
	}

	if emitted == 0 {
		span.SetStatus(codes.Error, "Empty model stream")
		return false
	}
	span.SetAttributes(attribute.Int("chunks", emitted))
	span.SetStatus(codes.Ok, "Answer streamed")
	return true
}

func countFallback(ctx context.Context) {
	if m := metrics.Maybe(); m != nil {
		m.GenerationFallbacksTotal.Add(ctx, 1)
	}
}
