package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"supportbot/app/client/llm"
	"supportbot/app/client/twitch"
	"supportbot/app/client/twitch_irc"
	"supportbot/app/config"
	"supportbot/app/service/admin"
	"supportbot/app/service/conversation"
	"supportbot/app/service/engine"
	"supportbot/app/service/prompt"
	"supportbot/app/service/queue"
	"supportbot/app/service/usage"
	"supportbot/app/util/mylog"

	"github.com/gofiber/fiber/v2/log"
	"github.com/samber/do"
)

func main() {
	di := do.New()
	defer di.Shutdown()
	defer log.Info("Waiting for services to finish...")

	mylog.Preinit()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	do.ProvideValue(di, appCtx)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	do.ProvideValue(di, cfg)

	if err = mylog.Init(cfg); err != nil {
		log.Fatalf("logging init failed: %v", err)
	}

	do.Provide(di, twitch.NewClient)
	do.Provide(di, twitch_irc.NewClient)
	do.Provide(di, llm.New)
	do.Provide(di, prompt.New)
	do.Provide(di, usage.New)
	do.Provide(di, conversation.New)
	do.Provide(di, queue.New)
	do.Provide(di, engine.New)
	do.Provide(di, admin.New)

	slog.Info("Service started", "channel", cfg.Twitch.Channel, "llm_provider", cfg.LLM.Provider)

	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		log.Info("Shutting down...")

		cancel()
	}()

	go do.MustInvoke[*twitch.Client](di).RunRefreshLoop(appCtx)
	go do.MustInvoke[*twitch_irc.Client](di).RunRefreshLoop(appCtx)

	go do.MustInvoke[*conversation.Service](di).RunReaper(appCtx)
	go do.MustInvoke[*admin.Service](di).Run(appCtx)
	go do.MustInvoke[*engine.Service](di).Run(appCtx)

	<-appCtx.Done()
}
