package prompt

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"

	"supportbot/app/config"
	"supportbot/app/model"

	"github.com/elliotchance/pie/v2"
	"github.com/gabriel-vasile/mimetype"
	"github.com/samber/do"
	"golang.org/x/sync/errgroup"
)

var linkRegex = regexp.MustCompile(`https://[^\s<>"']+`)

// Builder converts conversation turns into prompt parts, downloading image links
// found in user messages.
type Builder struct {
	client *http.Client
	cfg    config.Prompt
}

func New(di *do.Injector) (*Builder, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return NewBuilder(&http.Client{Timeout: cfg.Prompt.FetchTimeout}, cfg.Prompt), nil
}

func NewBuilder(client *http.Client, cfg config.Prompt) *Builder {
	return &Builder{
		client: client,
		cfg:    cfg,
	}
}

// ExtractLinks returns up to limit distinct https links from a chat message.
func ExtractLinks(text string, limit int) []string {
	links := pie.Map(linkRegex.FindAllString(text, -1), func(link string) string {
		return strings.TrimRight(link, ".,;:!?)")
	})
	links = pie.Unique(links)
	if len(links) > limit {
		links = links[:limit]
	}

	return links
}

type imageJob struct {
	turn int
	url  string
	img  *model.Image
}

func (b *Builder) Build(ctx context.Context, turns []model.Turn) ([]model.PromptPart, error) {
	jobs := b.collectJobs(turns)
	b.fetchAll(ctx, jobs)

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("prompt build aborted: %w", err)
	}

	images := make(map[int][]*imageJob)
	for _, job := range jobs {
		if job.img != nil {
			images[job.turn] = append(images[job.turn], job)
		}
	}

	parts := make([]model.PromptPart, 0, len(turns)+len(jobs))

	for i, turn := range turns {
		switch t := turn.(type) {
		case *model.SystemTurn:
			if strings.TrimSpace(t.Content) == "" {
				continue
			}

			sender := model.SenderAssistant
			if t.Preamble {
				sender = model.SenderSystem
			}

			parts = append(parts, model.PromptPart{
				Sender: sender,
				Text:   t.Content,
			})
		case *model.UserTurn:
			for _, job := range images[i] {
				parts = append(parts, model.PromptPart{
					Sender:    model.SenderUser,
					MessageID: t.MessageID,
					Image:     job.img,
				})
			}

			if strings.TrimSpace(t.Content) != "" {
				parts = append(parts, model.PromptPart{
					Sender:    model.SenderUser,
					MessageID: t.MessageID,
					Text:      t.Content,
				})
			}
		}
	}

	return parts, nil
}

func (b *Builder) collectJobs(turns []model.Turn) []*imageJob {
	var jobs []*imageJob

	for i, turn := range turns {
		userTurn, ok := turn.(*model.UserTurn)
		if !ok {
			continue
		}

		attachments := userTurn.Attachments
		if len(attachments) > b.cfg.MaxAttachments {
			attachments = attachments[:b.cfg.MaxAttachments]
		}

		for _, link := range attachments {
			jobs = append(jobs, &imageJob{turn: i, url: link})
		}
	}

	return jobs
}

// fetchAll downloads every job concurrently; failed jobs are left without an image.
func (b *Builder) fetchAll(ctx context.Context, jobs []*imageJob) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(b.cfg.FetchConcurrency, 1))

	for _, job := range jobs {
		g.Go(func() error {
			img, err := b.fetchImage(ctx, job.url)
			if err != nil {
				slog.Debug("Skipping attachment", "url", job.url, "error", err)
				return nil
			}

			job.img = img
			return nil
		})
	}

	_ = g.Wait()
}

func (b *Builder) fetchImage(ctx context.Context, link string) (*model.Image, error) {
	ctx, cancel := context.WithTimeout(ctx, b.fetchTimeout())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, b.cfg.MaxAttachmentBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}

	if int64(len(data)) > b.cfg.MaxAttachmentBytes {
		return nil, fmt.Errorf("attachment larger than %d bytes", b.cfg.MaxAttachmentBytes)
	}

	mime := mimetype.Detect(data)
	if !strings.HasPrefix(mime.String(), "image/") {
		return nil, fmt.Errorf("not an image: %s", mime.String())
	}

	return &model.Image{
		Name:     fileName(link, mime.Extension()),
		MIMEType: mime.String(),
		Data:     data,
	}, nil
}

func (b *Builder) fetchTimeout() time.Duration {
	if b.cfg.FetchTimeout <= 0 {
		return 15 * time.Second
	}

	return b.cfg.FetchTimeout
}

func fileName(link, extension string) string {
	u, err := url.Parse(link)
	if err != nil {
		return "attachment" + extension
	}

	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		return "attachment" + extension
	}

	return name
}
