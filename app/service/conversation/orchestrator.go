package conversation

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"supportbot/app/model"

	"github.com/google/uuid"
	"github.com/samber/oops"
)

// PromptBuilder turns stored turns into backend-ready prompt parts. It may
// fetch attachments and skips the ones it cannot get.
type PromptBuilder interface {
	Build(ctx context.Context, turns []model.Turn) ([]model.PromptPart, error)
}

// Generator calls the text-generation backend once, without retries.
type Generator interface {
	Generate(ctx context.Context, parts []model.PromptPart) (string, error)
}

type UsageRecorder interface {
	RecordCompletion(userID string)
}

type Orchestrator struct {
	ctx       context.Context
	store     *Store
	builder   PromptBuilder
	generator Generator
	usage     UsageRecorder

	sentinel string
	strip    bool
	timeout  time.Duration
	now      func() time.Time
}

// Handle answers the pending turn of conv. It is the debounce timer callback.
func (o *Orchestrator) Handle(conv *Conversation) {
	r, ok := conv.begin()
	if !ok {
		slog.Debug("Timer fired with nothing to answer", "user_id", conv.UserID())
		return
	}

	logger := slog.With(
		"user_id", conv.UserID(),
		"run_id", uuid.NewString(),
	)

	defer conv.finish(r.cycle)

	if err := oops.Recover(func() {
		o.process(conv, r, logger)
	}); err != nil {
		logger.Error("Orchestration failed", "error", err)
	}
}

func (o *Orchestrator) process(conv *Conversation, r run, logger *slog.Logger) {
	start := time.Now()

	raw := o.generate(r.turns, logger)

	reply, err := ParseResponse(raw, o.sentinel, o.strip)
	if err != nil {
		if !o.store.removeCycle(conv, r.cycle) {
			logger.Info("Pending turn settled during generation, dropping result", "reason", err)
			return
		}

		logger.Warn("Discarding question",
			"reason", err,
			"off_topic", errors.Is(err, ErrOffTopic),
			"response", raw,
		)

		o.deliver(logger, r.onComplete, false, "")
		return
	}

	if !conv.commit(r.cycle, reply, o.now()) {
		logger.Info("Pending turn settled during generation, dropping reply")
		return
	}

	o.deliver(logger, r.onComplete, true, reply)
	o.usage.RecordCompletion(conv.UserID())

	logger.Info("Answered question",
		"turns", len(r.turns),
		"duration", time.Since(start),
	)
}

// generate returns the raw backend text, or "" when the prompt could not be
// built or the backend failed.
func (o *Orchestrator) generate(turns []model.Turn, logger *slog.Logger) string {
	ctx, cancel := context.WithTimeout(o.ctx, o.timeout)
	defer cancel()

	parts, err := o.builder.Build(ctx, turns)
	if err != nil {
		logger.Error("Failed to build prompt", "error", err)
		return ""
	}

	text, err := o.generator.Generate(ctx, parts)
	if err != nil {
		logger.Error("Text generation failed", "parts", len(parts), "error", err)
		return ""
	}

	return text
}

func (o *Orchestrator) deliver(logger *slog.Logger, onComplete CompleteFunc, success bool, text string) {
	if onComplete == nil {
		return
	}

	var deliverErr error
	if err := oops.Recover(func() {
		deliverErr = onComplete(success, text)
	}); err != nil {
		deliverErr = err
	}

	if deliverErr != nil {
		logger.Error("Failed to deliver result", "success", success, "error", deliverErr)
	}
}
