package llm

import (
	"context"
	"net/http"
	"strings"

	"supportbot/app/config"
	"supportbot/app/model"

	"github.com/samber/oops"
	"github.com/tmc/langchaingo/llms"
	lcopenai "github.com/tmc/langchaingo/llms/openai"
)

type LangchainGenerator struct {
	cfg config.LLM
	llm llms.Model
}

func NewLangchain(cfg config.LLM) (*LangchainGenerator, error) {
	llm, err := lcopenai.New(
		lcopenai.WithToken(cfg.Token),
		lcopenai.WithBaseURL(cfg.BaseURL),
		lcopenai.WithModel(cfg.Model),
		lcopenai.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		lcopenai.WithCallback(LogCallbackHandler{}),
	)
	if err != nil {
		return nil, oops.In("llm").With("model", cfg.Model).Wrapf(err, "failed to create langchain client")
	}

	return &LangchainGenerator{
		cfg: cfg,
		llm: llm,
	}, nil
}

func (g *LangchainGenerator) Generate(ctx context.Context, parts []model.PromptPart) (string, error) {
	resp, err := g.llm.GenerateContent(ctx, toMessageContent(parts),
		llms.WithModel(g.cfg.Model),
		llms.WithMaxTokens(g.cfg.MaxTokens),
		llms.WithTemperature(g.cfg.Temperature),
	)
	if err != nil {
		return "", oops.In("llm").With("model", g.cfg.Model).Wrapf(err, "failed to generate content")
	}

	if len(resp.Choices) == 0 {
		return "", oops.In("llm").With("model", g.cfg.Model).Errorf("no content choices returned")
	}

	return strings.TrimSpace(resp.Choices[0].Content), nil
}

func toMessageContent(parts []model.PromptPart) []llms.MessageContent {
	groups := groupBySender(parts)
	messages := make([]llms.MessageContent, 0, len(groups))

	for _, group := range groups {
		msg := llms.MessageContent{
			Role: langchainRole(group[0].Sender),
		}

		for _, part := range group {
			if part.Image != nil {
				msg.Parts = append(msg.Parts, llms.ImageURLPart(dataURL(part.Image)))
				continue
			}

			msg.Parts = append(msg.Parts, llms.TextPart(part.Text))
		}

		messages = append(messages, msg)
	}

	return messages
}

func langchainRole(sender model.Sender) llms.ChatMessageType {
	switch sender {
	case model.SenderSystem:
		return llms.ChatMessageTypeSystem
	case model.SenderAssistant:
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}
