package twitch_irc

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"supportbot/app/client/twitch"
	"supportbot/app/config"
	"supportbot/app/model"

	irc "github.com/gempir/go-twitch-irc/v4"
	"github.com/samber/do"
)

var ErrNotConnected = errors.New("not connected to twitch irc")

type MessageHandler func(msg model.ChatMessage)

type Client struct {
	cfg       *config.Config
	apiClient *twitch.Client
	ircClient *irc.Client

	mutex             sync.RWMutex
	connected         bool
	connectedChannels map[string]bool
	messageHandler    MessageHandler
}

func NewClient(di *do.Injector) (*Client, error) {
	cfg := do.MustInvoke[*config.Config](di)
	apiClient := do.MustInvoke[*twitch.Client](di)

	client := &Client{
		cfg:               cfg,
		apiClient:         apiClient,
		connectedChannels: make(map[string]bool),
	}

	client.ircClient = irc.NewClient(cfg.Twitch.Username, "oauth:"+apiClient.AccessToken())
	client.setupIRCListeners()

	return client, nil
}

func (c *Client) setupIRCListeners() {
	c.ircClient.OnPrivateMessage(func(message irc.PrivateMessage) {
		c.mutex.RLock()
		handler := c.messageHandler
		c.mutex.RUnlock()

		if handler == nil {
			return
		}

		handler(toChatMessage(message))
	})

	c.ircClient.OnConnect(func() {
		c.setConnected(true)
		slog.Info("Connected to Twitch IRC")
	})

	c.ircClient.OnReconnectMessage(func(message irc.ReconnectMessage) {
		c.setConnected(false)
		slog.Info("Reconnecting to Twitch IRC")
	})
}

func toChatMessage(message irc.PrivateMessage) model.ChatMessage {
	msg := model.ChatMessage{
		Channel:           strings.ToLower(strings.TrimPrefix(message.Channel, "#")),
		ID:                message.ID,
		UserID:            message.User.ID,
		Username:          strings.ToLower(message.User.Name),
		Text:              strings.TrimSpace(message.Message),
		Badges:            message.User.Badges,
		FirstMessage:      message.Tags["first-msg"] == "1",
		Time:              message.Time,
		ReplyParentMsgID:  message.Tags["reply-parent-msg-id"],
		ReplyParentUserID: message.Tags["reply-parent-user-id"],

		ReplyParentUserLogin: strings.ToLower(message.Tags["reply-parent-user-login"]),
		ReplyParentBody:      strings.TrimSpace(message.Tags["reply-parent-msg-body"]),
	}

	// twitch prefixes replies with a mention of the parent author
	if login := msg.ReplyParentUserLogin; msg.IsReply() && login != "" {
		mention := "@" + login
		if len(msg.Text) >= len(mention) && strings.EqualFold(msg.Text[:len(mention)], mention) {
			msg.Text = strings.TrimSpace(msg.Text[len(mention):])
		}
	}

	return msg
}

func (c *Client) Run() error {
	defer c.setConnected(false)

	return c.ircClient.Connect()
}

func (c *Client) Disconnect() {
	if err := c.ircClient.Disconnect(); err != nil {
		slog.Debug("IRC disconnect", "error", err)
	}
}

func (c *Client) JoinChannel(channel string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.connectedChannels[channel] {
		return
	}

	c.ircClient.Join(channel)
	c.connectedChannels[channel] = true
}

func (c *Client) SetListener(listener MessageHandler) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.messageHandler = listener
}

// Reply posts text as a threaded reply to parentMsgID.
func (c *Client) Reply(channel, parentMsgID, text string) error {
	if !c.isConnected() {
		return ErrNotConnected
	}

	c.ircClient.Reply(channel, parentMsgID, text)

	return nil
}

func (c *Client) RunRefreshLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.refreshToken()
		}
	}
}

func (c *Client) refreshToken() {
	c.ircClient.SetIRCToken("oauth:" + c.apiClient.AccessToken())
}

func (c *Client) setConnected(connected bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.connected = connected
}

func (c *Client) isConnected() bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return c.connected
}
