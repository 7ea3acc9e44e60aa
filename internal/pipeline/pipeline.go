package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Stage names one state of the per-request pipeline machine.
type Stage string

const (
	StageStart       Stage = "start"
	StageClassify    Stage = "classify"
	StageAggregate   Stage = "aggregate"
	StageBuildPrompt Stage = "build_prompt"
	StageGenerate    Stage = "generate"
	StageEmit        Stage = "emit"
	StageDone        Stage = "done"
	// StageFailed is reachable only from configuration defects. Runtime
	// failures are absorbed by each stage's own fallback.
	StageFailed Stage = "failed"
)

// StatusEvent is one progress notification emitted per state transition.
type StatusEvent struct {
	EventID   string    `json:"eventId"`
	Stage     Stage     `json:"stage"`
	Message   string    `json:"message"`
	Payload   any       `json:"payload,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Observer receives status events. A nil observer disables emission.
type Observer func(StatusEvent)

// Runner drives one request through its stages, emitting a status event per
// transition and bounding each stage with a timeout.
type Runner struct {
	observer     Observer
	stageTimeout time.Duration
	logger       *slog.Logger
}

func NewRunner(observer Observer, stageTimeout time.Duration, logger *slog.Logger) *Runner {
	return &Runner{
		observer:     observer,
		stageTimeout: stageTimeout,
		logger:       logger,
	}
}

// Emit publishes one status event without running a stage.
func (r *Runner) Emit(ctx context.Context, stage Stage, message string, payload any) {
	if r.observer == nil {
		return
	}
	r.observer(StatusEvent{
		EventID:   uuid.NewString(),
		Stage:     stage,
		Message:   message,
		Payload:   payload,
		Timestamp: time.Now(),
	})
	r.logger.DebugContext(ctx, "Pipeline stage", slog.String("stage", string(stage)), slog.String("message", message))
}

// Run emits the stage's event and executes fn under the stage timeout. An
// error from fn marks a configuration defect: the runner emits Failed and
// returns the error. Stages with runtime fallbacks must apply them inside fn
// and return nil.
func (r *Runner) Run(ctx context.Context, stage Stage, message string, fn func(ctx context.Context) error) error {
	r.Emit(ctx, stage, message, nil)

	stageCtx := ctx
	if r.stageTimeout > 0 {
		var cancel context.CancelFunc
		stageCtx, cancel = context.WithTimeout(ctx, r.stageTimeout)
		defer cancel()
	}

	if err := fn(stageCtx); err != nil {
		r.logger.ErrorContext(ctx, "Pipeline stage failed", slog.String("stage", string(stage)), slog.Any("error", err))
		r.Emit(ctx, StageFailed, fmt.Sprintf("%s 단계에서 오류가 발생했습니다", stage), nil)
		return fmt.Errorf("stage %s: %w", stage, err)
	}
	return nil
}
