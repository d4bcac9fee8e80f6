package conversation

import (
	"context"
	"errors"
	"sync"
	"time"

	"supportbot/app/model"
)

type fakeBuilder struct{}

func (fakeBuilder) Build(_ context.Context, turns []model.Turn) ([]model.PromptPart, error) {
	parts := make([]model.PromptPart, 0, len(turns))

	for _, turn := range turns {
		switch t := turn.(type) {
		case *model.SystemTurn:
			sender := model.SenderAssistant
			if t.Preamble {
				sender = model.SenderSystem
			}
			parts = append(parts, model.PromptPart{Sender: sender, Text: t.Content})
		case *model.UserTurn:
			parts = append(parts, model.PromptPart{Sender: model.SenderUser, MessageID: t.MessageID, Text: t.Content})
		}
	}

	return parts, nil
}

type generation struct {
	text string
	err  error
	// wait blocks the call until closed
	wait chan struct{}
}

type fakeGenerator struct {
	mu          sync.Mutex
	generations []generation
	calls       [][]model.PromptPart
}

func (g *fakeGenerator) Generate(ctx context.Context, parts []model.PromptPart) (string, error) {
	g.mu.Lock()
	idx := len(g.calls)
	g.calls = append(g.calls, parts)
	var gen generation
	if idx < len(g.generations) {
		gen = g.generations[idx]
	} else {
		gen = generation{err: errors.New("no generation configured")}
	}
	g.mu.Unlock()

	if gen.wait != nil {
		select {
		case <-gen.wait:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	return gen.text, gen.err
}

func (g *fakeGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	return len(g.calls)
}

func (g *fakeGenerator) call(i int) []model.PromptPart {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.calls[i]
}

type fakeUsage struct {
	mu    sync.Mutex
	users []string
}

func (u *fakeUsage) RecordCompletion(userID string) {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.users = append(u.users, userID)
}

func (u *fakeUsage) count() int {
	u.mu.Lock()
	defer u.mu.Unlock()

	return len(u.users)
}

type delivery struct {
	success bool
	text    string
}

type recorder struct {
	mu         sync.Mutex
	deliveries []delivery
	err        error
	panicMsg   string
}

func (r *recorder) complete(success bool, text string) error {
	r.mu.Lock()
	r.deliveries = append(r.deliveries, delivery{success: success, text: text})
	err, panicMsg := r.err, r.panicMsg
	r.mu.Unlock()

	if panicMsg != "" {
		panic(panicMsg)
	}

	return err
}

func (r *recorder) all() []delivery {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]delivery(nil), r.deliveries...)
}

const testBotID = "bot"

func newTestService(quietPeriod time.Duration, generations ...generation) (*Service, *fakeGenerator, *fakeUsage) {
	generator := &fakeGenerator{generations: generations}
	tracker := &fakeUsage{}

	svc := NewService(
		context.Background(),
		fakeBuilder{},
		generator,
		tracker,
		func() string { return testBotID },
		Options{
			QuietPeriod:  quietPeriod,
			Retention:    time.Hour,
			ReapInterval: time.Minute,
			Preamble:     "preamble",
			Sentinel:     "NO",
			Strip:        true,
			Timeout:      time.Second,
		},
	)

	return svc, generator, tracker
}

func userTurn(id, content string) *model.UserTurn {
	return &model.UserTurn{MessageID: id, Content: content}
}

type panickingBuilder struct{}

func (panickingBuilder) Build(context.Context, []model.Turn) ([]model.PromptPart, error) {
	panic("nil attachment")
}
