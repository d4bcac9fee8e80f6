package mylog

import (
	"context"
	"log/slog"
	"os"

	"supportbot/app/config"

	"github.com/phsym/console-slog"
	slogmulti "github.com/samber/slog-multi"
	slogtelegram "github.com/samber/slog-telegram/v2"
)

// TelegramKey marks a record that should be forwarded to telegram regardless of level.
const TelegramKey = "telegram"

func Preinit() {
	slog.SetDefault(slog.New(consoleHandler(slog.LevelDebug)))
}

func Init(cfg *config.Config) error {
	level := slog.LevelInfo
	if cfg.Log.Debug {
		level = slog.LevelDebug
	}

	router := slogmulti.Router().Add(consoleHandler(level))

	if cfg.Log.Telegram.Token != "" {
		router = router.Add(
			slogtelegram.Option{
				Level:     slog.LevelDebug,
				Token:     cfg.Log.Telegram.Token,
				Username:  cfg.Log.Telegram.ChatID,
				AddSource: true,
			}.NewTelegramHandler(),
			forwardToTelegram,
		)
	}

	slog.SetDefault(slog.New(router.Handler()))

	return nil
}

func consoleHandler(level slog.Level) slog.Handler {
	return console.NewHandler(os.Stderr, &console.HandlerOptions{
		AddSource: true,
		Level:     level,
	})
}

func forwardToTelegram(_ context.Context, r slog.Record) bool {
	if r.Level >= slog.LevelError {
		return true
	}

	tagged := false
	r.Attrs(func(attr slog.Attr) bool {
		if attr.Key == TelegramKey {
			tagged = true
			return false
		}

		return true
	})

	return tagged
}
