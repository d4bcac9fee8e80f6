package llm

import (
	"context"
	"encoding/base64"
	"fmt"

	"supportbot/app/config"
	"supportbot/app/model"

	"github.com/samber/do"
)

// Generator produces a completion for a prompt in a single backend call.
type Generator interface {
	Generate(ctx context.Context, parts []model.PromptPart) (string, error)
}

func New(di *do.Injector) (Generator, error) {
	cfg := do.MustInvoke[*config.Config](di)

	switch cfg.LLM.Provider {
	case "openai":
		return NewOpenAI(cfg.LLM), nil
	case "langchain":
		return NewLangchain(cfg.LLM)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLM.Provider)
	}
}

// groupBySender splits parts into runs of consecutive parts with the same sender,
// each run becoming one chat message.
func groupBySender(parts []model.PromptPart) [][]model.PromptPart {
	var groups [][]model.PromptPart

	for _, part := range parts {
		last := len(groups) - 1
		if last >= 0 && groups[last][0].Sender == part.Sender {
			groups[last] = append(groups[last], part)
			continue
		}

		groups = append(groups, []model.PromptPart{part})
	}

	return groups
}

func hasImage(parts []model.PromptPart) bool {
	for _, part := range parts {
		if part.Image != nil {
			return true
		}
	}

	return false
}

func dataURL(img *model.Image) string {
	return fmt.Sprintf("data:%s;base64,%s", img.MIMEType, base64.StdEncoding.EncodeToString(img.Data))
}
