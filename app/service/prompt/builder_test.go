package prompt

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"supportbot/app/config"
	"supportbot/app/model"

	"github.com/stretchr/testify/require"
)

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 64)...)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/peers.png", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(pngBytes)
	})
	mux.HandleFunc("/page.html", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html><body>not an image</body></html>"))
	})
	mux.HandleFunc("/huge.png", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(append(pngBytes, make([]byte, 4096)...))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return server
}

func newTestBuilder(server *httptest.Server) *Builder {
	return NewBuilder(server.Client(), config.Prompt{
		MaxAttachments:     2,
		MaxAttachmentBytes: 1024,
		FetchTimeout:       time.Second,
		FetchConcurrency:   2,
	})
}

func TestBuildOrdersParts(t *testing.T) {
	server := newTestServer(t)
	builder := newTestBuilder(server)

	turns := []model.Turn{
		&model.SystemTurn{Content: "preamble", Preamble: true},
		&model.UserTurn{MessageID: "1", Content: "torrent won't seed", Attachments: []string{server.URL + "/peers.png"}, Responded: true},
		&model.SystemTurn{Content: "Check your firewall."},
		&model.UserTurn{MessageID: "2", Content: "still stuck"},
	}

	parts, err := builder.Build(context.Background(), turns)
	require.NoError(t, err)
	require.Len(t, parts, 5)

	require.Equal(t, model.SenderSystem, parts[0].Sender)
	require.Equal(t, "preamble", parts[0].Text)

	require.NotNil(t, parts[1].Image)
	require.Equal(t, "image/png", parts[1].Image.MIMEType)
	require.Equal(t, "peers.png", parts[1].Image.Name)
	require.Equal(t, "1", parts[1].MessageID)

	require.Equal(t, "torrent won't seed", parts[2].Text)
	require.Equal(t, model.SenderAssistant, parts[3].Sender)
	require.Equal(t, "still stuck", parts[4].Text)
	require.Equal(t, model.SenderUser, parts[4].Sender)
}

func TestBuildSkipsUnusableAttachments(t *testing.T) {
	server := newTestServer(t)
	builder := newTestBuilder(server)

	turns := []model.Turn{
		&model.SystemTurn{Content: "preamble", Preamble: true},
		&model.UserTurn{MessageID: "1", Content: "look", Attachments: []string{
			server.URL + "/page.html",
			server.URL + "/missing.png",
			server.URL + "/peers.png",
		}},
		&model.UserTurn{MessageID: "2", Content: "and this", Attachments: []string{server.URL + "/huge.png"}},
	}

	parts, err := builder.Build(context.Background(), turns)
	require.NoError(t, err)

	// only the first two attachments are considered and neither is an image
	require.Len(t, parts, 3)
	for _, part := range parts {
		require.Nil(t, part.Image)
	}
}

func TestBuildSkipsEmptyText(t *testing.T) {
	builder := NewBuilder(http.DefaultClient, config.Prompt{MaxAttachments: 1, MaxAttachmentBytes: 1, FetchConcurrency: 1})

	parts, err := builder.Build(context.Background(), []model.Turn{
		&model.SystemTurn{Content: "preamble", Preamble: true},
		&model.UserTurn{MessageID: "1", Content: "   "},
	})
	require.NoError(t, err)
	require.Len(t, parts, 1)
}

func TestBuildCancelled(t *testing.T) {
	builder := NewBuilder(http.DefaultClient, config.Prompt{FetchConcurrency: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := builder.Build(ctx, []model.Turn{&model.SystemTurn{Content: "preamble", Preamble: true}})
	require.ErrorIs(t, err, context.Canceled)
}

func TestExtractLinks(t *testing.T) {
	links := ExtractLinks("see https://i.imgur.com/a.png and https://i.imgur.com/b.jpg, http://insecure.example/c.png", 5)
	require.ElementsMatch(t, []string{"https://i.imgur.com/a.png", "https://i.imgur.com/b.jpg"}, links)

	require.Len(t, ExtractLinks("https://a.example/1 https://a.example/2 https://a.example/3", 2), 2)
	require.Empty(t, ExtractLinks("no links here", 3))
}
