package twitch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"supportbot/app/config"

	"github.com/nicklaw5/helix/v2"
	"github.com/samber/do"
	"github.com/samber/oops"
)

const refreshInterval = 30 * time.Minute

// Client keeps the bot's user access token fresh and knows the bot's own user ID.
type Client struct {
	cfg   *config.Config
	helix *helix.Client

	mu           sync.RWMutex
	accessToken  string
	refreshToken string
	botUserID    string
}

func NewClient(di *do.Injector) (*Client, error) {
	cfg := do.MustInvoke[*config.Config](di)

	helixClient, err := helix.NewClient(&helix.Options{
		ClientID:     cfg.Twitch.ClientID,
		ClientSecret: cfg.Twitch.ClientSecret,
		RefreshToken: cfg.Twitch.RefreshToken,
	})
	if err != nil {
		return nil, oops.In("twitch").Wrapf(err, "failed to create helix client")
	}

	c := &Client{
		cfg:          cfg,
		helix:        helixClient,
		refreshToken: cfg.Twitch.RefreshToken,
	}

	if err = c.refresh(); err != nil {
		return nil, err
	}

	if err = c.resolveBotUser(); err != nil {
		return nil, err
	}

	return c, nil
}

func (c *Client) AccessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.accessToken
}

// BotUserID is the numeric twitch ID of the bot account.
func (c *Client) BotUserID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.botUserID
}

func (c *Client) RunRefreshLoop(ctx context.Context) {
	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.refresh(); err != nil {
				slog.Error("Failed to refresh twitch token", "error", err)
			}
		}
	}
}

func (c *Client) refresh() error {
	c.mu.RLock()
	refreshToken := c.refreshToken
	c.mu.RUnlock()

	resp, err := c.helix.RefreshUserAccessToken(refreshToken)
	if err != nil {
		return oops.In("twitch").Wrapf(err, "failed to refresh user access token")
	}
	if resp.ErrorMessage != "" {
		return oops.In("twitch").With("status", resp.StatusCode).Errorf("failed to refresh user access token: %s", resp.ErrorMessage)
	}

	c.helix.SetUserAccessToken(resp.Data.AccessToken)

	c.mu.Lock()
	c.accessToken = resp.Data.AccessToken
	if resp.Data.RefreshToken != "" {
		c.refreshToken = resp.Data.RefreshToken
	}
	c.mu.Unlock()

	slog.Debug("Refreshed twitch access token")

	return nil
}

func (c *Client) resolveBotUser() error {
	resp, err := c.helix.GetUsers(&helix.UsersParams{
		Logins: []string{c.cfg.Twitch.Username},
	})
	if err != nil {
		return oops.In("twitch").Wrapf(err, "failed to get bot user")
	}
	if resp.ErrorMessage != "" || len(resp.Data.Users) == 0 {
		return oops.In("twitch").
			With("login", c.cfg.Twitch.Username, "status", resp.StatusCode).
			Errorf("bot user not found: %s", resp.ErrorMessage)
	}

	c.mu.Lock()
	c.botUserID = resp.Data.Users[0].ID
	c.mu.Unlock()

	slog.Info("Resolved bot user", "login", c.cfg.Twitch.Username, "user_id", resp.Data.Users[0].ID)

	return nil
}
