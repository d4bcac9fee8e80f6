package llm

import (
	"context"
	"net/http"
	"strings"

	"supportbot/app/config"
	"supportbot/app/model"

	"github.com/samber/oops"
	"github.com/sashabaranov/go-openai"
)

type OpenAIGenerator struct {
	cfg    config.LLM
	client *openai.Client
}

func NewOpenAI(cfg config.LLM) *OpenAIGenerator {
	clientConfig := openai.DefaultConfig(cfg.Token)
	clientConfig.BaseURL = cfg.BaseURL
	clientConfig.HTTPClient = &http.Client{
		Timeout: cfg.Timeout,
	}

	return &OpenAIGenerator{
		cfg:    cfg,
		client: openai.NewClientWithConfig(clientConfig),
	}
}

func (g *OpenAIGenerator) Generate(ctx context.Context, parts []model.PromptPart) (string, error) {
	aiResponse, err := g.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model:               g.cfg.Model,
			Messages:            toOpenAIMessages(parts),
			MaxCompletionTokens: g.cfg.MaxTokens,
			Temperature:         float32(g.cfg.Temperature),
		},
	)
	if err != nil {
		return "", oops.In("llm").With("model", g.cfg.Model).Wrapf(err, "failed to create chat completion")
	}

	if len(aiResponse.Choices) == 0 {
		return "", oops.In("llm").With("model", g.cfg.Model).Errorf("no chat completion found")
	}

	return strings.TrimSpace(aiResponse.Choices[0].Message.Content), nil
}

func toOpenAIMessages(parts []model.PromptPart) []openai.ChatCompletionMessage {
	groups := groupBySender(parts)
	messages := make([]openai.ChatCompletionMessage, 0, len(groups))

	for _, group := range groups {
		msg := openai.ChatCompletionMessage{
			Role: openAIRole(group[0].Sender),
		}

		if !hasImage(group) {
			texts := make([]string, 0, len(group))
			for _, part := range group {
				texts = append(texts, part.Text)
			}
			msg.Content = strings.Join(texts, "\n\n")
			messages = append(messages, msg)
			continue
		}

		for _, part := range group {
			if part.Image != nil {
				msg.MultiContent = append(msg.MultiContent, openai.ChatMessagePart{
					Type: openai.ChatMessagePartTypeImageURL,
					ImageURL: &openai.ChatMessageImageURL{
						URL:    dataURL(part.Image),
						Detail: openai.ImageURLDetailAuto,
					},
				})
				continue
			}

			msg.MultiContent = append(msg.MultiContent, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeText,
				Text: part.Text,
			})
		}

		messages = append(messages, msg)
	}

	return messages
}

func openAIRole(sender model.Sender) string {
	switch sender {
	case model.SenderSystem:
		return openai.ChatMessageRoleSystem
	case model.SenderAssistant:
		return openai.ChatMessageRoleAssistant
	default:
		return openai.ChatMessageRoleUser
	}
}
