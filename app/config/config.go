package config

import (
	"os"
	"strings"
	"time"

	_ "embed"

	"github.com/go-playground/validator/v10"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

//go:embed preamble.txt
var defaultPreamble string

const defaultPath = "config.yaml"

type Config struct {
	Log          Log          `yaml:"log"`
	Twitch       Twitch       `yaml:"twitch"`
	LLM          LLM          `yaml:"llm"`
	Conversation Conversation `yaml:"conversation"`
	Usage        Usage        `yaml:"usage"`
	Prompt       Prompt       `yaml:"prompt"`
	Admin        Admin        `yaml:"admin"`
}

type LLM struct {
	// Backend implementation, "openai" or "langchain"
	Provider string `yaml:"provider" example:"openai" validate:"oneof=openai langchain"`
	// OpenAI-compatible base url
	BaseURL string `yaml:"base_url" example:"https://openrouter.ai/api/v1" validate:"required"`
	// API token
	Token string `yaml:"token" example:"sk-proj-abc123456789DEF789ghi012JKL345mno678PQR901stu234VWX" validate:"required"`
	// Model name, must accept images when attachments are expected
	Model string `yaml:"model" example:"google/gemini-2.0-flash-001" validate:"required"`
	// Sampling temperature
	Temperature float64 `yaml:"temperature" example:"0.7" validate:"gte=0,lte=2"`
	// Completion token limit
	MaxTokens int `yaml:"max_tokens" example:"1000" validate:"gt=0"`
	// Timeout of a single generation call
	Timeout time.Duration `yaml:"timeout" example:"60s" validate:"gt=0"`
}

type Twitch struct {
	// ClientID of the twitch application
	ClientID string `yaml:"client_id" example:"a1b2c3d4e5f6g7h8i9j0k1l2m3n4o5p" validate:"required"`
	// Client secret of the twitch application
	ClientSecret string `yaml:"client_secret" example:"abc123def456ghi789jkl012mno345pqr678stu901" validate:"required"`
	// Username of the bot account
	Username string `yaml:"username" example:"qbitsupportbot" validate:"required"`
	// Channel name of the channel
	Channel string `yaml:"channel" example:"qbittorrent" validate:"required"`
	// User refresh token of the bot account
	RefreshToken string `yaml:"refresh_token" example:"v1.abc123def456ghi789jkl012mno345pqr678stu901vwx234yz567" validate:"required"`
	// Disable notifications
	DisableNotifications bool `yaml:"disable_notifications" example:"false"`
	// Ignore chat
	IgnoreChat bool `yaml:"ignore_chat" example:"false"`
	// Badges that make a chatter privileged: never auto-answered, never capped
	PrivilegedBadges []string `yaml:"privileged_badges" example:"[broadcaster, moderator, vip]"`
	// Only chatters first seen within this window are answered without the ask command, negative disables the filter
	NewcomerWindow time.Duration `yaml:"newcomer_window" example:"1h"`
	// Prefix of the explicit invocation command
	AskCommand string `yaml:"ask_command" example:"!ask" validate:"required"`
}

type Conversation struct {
	// Debounce interval after the last message before a reply is generated
	QuietPeriod time.Duration `yaml:"quiet_period" example:"20m" validate:"gt=0"`
	// Inactive conversations are forgotten after this duration
	Retention time.Duration `yaml:"retention" example:"24h" validate:"gt=0"`
	// How often stale conversations are swept
	ReapInterval time.Duration `yaml:"reap_interval" example:"5m" validate:"gt=0"`
	// Drop the yes/no classification line before posting the reply
	StripClassificationLine *bool `yaml:"strip_classification_line" example:"true"`
	// First-line token marking an off-topic question
	OffTopicSentinel string `yaml:"off_topic_sentinel" example:"NO" validate:"required"`
	// Instruction preamble, embedded default when empty
	Preamble string `yaml:"preamble"`
}

type Usage struct {
	// Completed replies allowed per window
	Threshold int `yaml:"threshold" example:"10" validate:"gt=0"`
	// Rolling window
	Window time.Duration `yaml:"window" example:"24h" validate:"gt=0"`
	// Sent once when a chatter hits the cap
	CapMessage string `yaml:"cap_message" validate:"required"`
}

type Prompt struct {
	// Max images downloaded per message
	MaxAttachments int `yaml:"max_attachments" example:"4" validate:"gte=0"`
	// Max size of a single image
	MaxAttachmentBytes int64 `yaml:"max_attachment_bytes" example:"8388608" validate:"gt=0"`
	// Timeout of a single image download
	FetchTimeout time.Duration `yaml:"fetch_timeout" example:"15s" validate:"gt=0"`
	// Parallel downloads
	FetchConcurrency int `yaml:"fetch_concurrency" example:"4" validate:"gt=0"`
}

type Admin struct {
	// Listen address of the admin server, disabled when empty
	Listen string `yaml:"listen" example:"127.0.0.1:8080"`
}

type Log struct {
	// Enable debug records
	Debug bool `yaml:"debug" example:"false"`
	// Telegram logging config
	Telegram TelegramLog `yaml:"telegram"`
}

type TelegramLog struct {
	// Chat bot token, obtain it via BotFather
	Token string `yaml:"token" example:"1234567890:ABCdefGHIjklMNopQRstUVwxyZ-123456789"`
	// Chat ID to send messages to
	ChatID string `yaml:"chat_id" example:"1001234567890"`
}

func (c Conversation) StripClassification() bool {
	return c.StripClassificationLine == nil || *c.StripClassificationLine
}

func Load() (*Config, error) {
	return LoadFile(defaultPath)
}

func LoadFile(path string) (*Config, error) {
	var result Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, oops.With("path", path).Errorf("failed to read config file: %w", err)
	}

	if err = yaml.Unmarshal(data, &result); err != nil {
		return nil, oops.With("path", path).Errorf("failed to parse YAML config: %w", err)
	}

	result.applyDefaults()

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(result); err != nil {
		return nil, oops.Errorf("failed to validate config: %w", err)
	}

	return &result, nil
}

func (c *Config) applyDefaults() {
	if c.LLM.Provider == "" {
		c.LLM.Provider = "openai"
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = 1000
	}
	if c.LLM.Temperature == 0 {
		c.LLM.Temperature = 0.7
	}
	if c.LLM.Timeout == 0 {
		c.LLM.Timeout = time.Minute
	}

	c.Twitch.Channel = strings.ToLower(strings.TrimPrefix(c.Twitch.Channel, "#"))
	c.Twitch.Username = strings.ToLower(c.Twitch.Username)
	if c.Twitch.PrivilegedBadges == nil {
		c.Twitch.PrivilegedBadges = []string{"broadcaster", "moderator", "vip"}
	}
	if c.Twitch.NewcomerWindow == 0 {
		c.Twitch.NewcomerWindow = time.Hour
	}
	if c.Twitch.AskCommand == "" {
		c.Twitch.AskCommand = "!ask"
	}

	if c.Conversation.QuietPeriod == 0 {
		c.Conversation.QuietPeriod = 20 * time.Minute
	}
	if c.Conversation.Retention == 0 {
		c.Conversation.Retention = 24 * time.Hour
	}
	if c.Conversation.ReapInterval == 0 {
		c.Conversation.ReapInterval = 5 * time.Minute
	}
	if c.Conversation.OffTopicSentinel == "" {
		c.Conversation.OffTopicSentinel = "NO"
	}
	if strings.TrimSpace(c.Conversation.Preamble) == "" {
		c.Conversation.Preamble = strings.TrimSpace(defaultPreamble)
	}

	if c.Usage.Threshold == 0 {
		c.Usage.Threshold = 10
	}
	if c.Usage.Window == 0 {
		c.Usage.Window = 24 * time.Hour
	}
	if c.Usage.CapMessage == "" {
		c.Usage.CapMessage = "You've used this bot a lot recently. Please wait a while or ask a moderator."
	}

	if c.Prompt.MaxAttachments == 0 {
		c.Prompt.MaxAttachments = 4
	}
	if c.Prompt.MaxAttachmentBytes == 0 {
		c.Prompt.MaxAttachmentBytes = 8 << 20
	}
	if c.Prompt.FetchTimeout == 0 {
		c.Prompt.FetchTimeout = 15 * time.Second
	}
	if c.Prompt.FetchConcurrency == 0 {
		c.Prompt.FetchConcurrency = 4
	}
}
