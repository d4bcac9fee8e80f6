package conversation

import (
	"context"
	"log/slog"
	"time"

	"supportbot/app/client/llm"
	"supportbot/app/client/twitch"
	"supportbot/app/config"
	"supportbot/app/model"
	"supportbot/app/service/prompt"
	"supportbot/app/service/usage"

	"github.com/samber/do"
)

var _ do.Shutdownable = (*Service)(nil)

type Options struct {
	QuietPeriod  time.Duration
	Retention    time.Duration
	ReapInterval time.Duration
	Preamble     string
	Sentinel     string
	Strip        bool
	Timeout      time.Duration
}

// Service owns the conversation store and wires the detector, the
// orchestrator and the reaper around it.
type Service struct {
	store        *Store
	detector     *Detector
	orchestrator *Orchestrator
	reaper       *Reaper
}

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)
	twitchClient := do.MustInvoke[*twitch.Client](di)

	return NewService(
		do.MustInvoke[context.Context](di),
		do.MustInvoke[*prompt.Builder](di),
		do.MustInvoke[llm.Generator](di),
		do.MustInvoke[*usage.Tracker](di),
		twitchClient.BotUserID,
		Options{
			QuietPeriod:  cfg.Conversation.QuietPeriod,
			Retention:    cfg.Conversation.Retention,
			ReapInterval: cfg.Conversation.ReapInterval,
			Preamble:     cfg.Conversation.Preamble,
			Sentinel:     cfg.Conversation.OffTopicSentinel,
			Strip:        cfg.Conversation.StripClassification(),
			Timeout:      cfg.LLM.Timeout,
		},
	), nil
}

func NewService(
	ctx context.Context,
	builder PromptBuilder,
	generator Generator,
	usage UsageRecorder,
	botID func() string,
	opts Options,
) *Service {
	store := NewStore(opts.QuietPeriod, opts.Preamble)

	orchestrator := &Orchestrator{
		ctx:       ctx,
		store:     store,
		builder:   builder,
		generator: generator,
		usage:     usage,
		sentinel:  opts.Sentinel,
		strip:     opts.Strip,
		timeout:   opts.Timeout,
		now:       time.Now,
	}
	store.Bind(orchestrator.Handle)

	return &Service{
		store:        store,
		detector:     NewDetector(store, botID),
		orchestrator: orchestrator,
		reaper:       NewReaper(store, opts.ReapInterval, opts.Retention),
	}
}

// Submit records a user turn and (re)schedules the reply.
func (s *Service) Submit(userID string, turn *model.UserTurn, respondImmediately bool, onComplete CompleteFunc) *Conversation {
	return s.store.UpsertTurn(userID, turn, respondImmediately, onComplete)
}

func (s *Service) Classify(authorID, referencedID string) Outcome {
	return s.detector.Classify(authorID, referencedID)
}

func (s *Service) Store() *Store {
	return s.store
}

// RunReaper sweeps stale conversations until ctx is done.
func (s *Service) RunReaper(ctx context.Context) {
	s.reaper.Run(ctx)
}

func (s *Service) Shutdown() error {
	count := s.store.Clear()
	slog.Info("Conversation store closed", "dropped", count)

	return nil
}
