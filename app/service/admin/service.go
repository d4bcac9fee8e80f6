package admin

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"supportbot/app/config"
	"supportbot/app/service/conversation"
	"supportbot/app/service/usage"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/mark3labs/mcp-go/server"
	"github.com/samber/do"
	"github.com/samber/oops"
)

const shutdownTimeout = 5 * time.Second

var _ do.Shutdownable = (*Service)(nil)

// Service exposes conversation state over HTTP and MCP for operators.
type Service struct {
	listen          string
	conversationSvc *conversation.Service
	usageTracker    *usage.Tracker

	app       *fiber.App
	mcpServer *server.MCPServer
}

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return NewService(
		cfg.Admin.Listen,
		do.MustInvoke[*conversation.Service](di),
		do.MustInvoke[*usage.Tracker](di),
	), nil
}

func NewService(listen string, conversationSvc *conversation.Service, usageTracker *usage.Tracker) *Service {
	s := &Service{
		listen:          listen,
		conversationSvc: conversationSvc,
		usageTracker:    usageTracker,
	}

	s.mcpServer = s.newMCPServer()

	s.app = fiber.New(fiber.Config{
		AppName:               "supportbot",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})
	s.setupRoutes()

	return s
}

func (s *Service) setupRoutes() {
	s.app.Get("/healthz", s.healthz)

	api := s.app.Group("/api")
	api.Get("/conversations", s.listConversations)
	api.Get("/conversations/:user", s.getConversation)
	api.Delete("/conversations/:user", s.deleteConversation)
	api.Get("/usage/:user", s.getUsage)

	mcpHandler := server.NewStreamableHTTPServer(s.mcpServer, server.WithStateLess(true))
	s.app.All("/mcp", adaptor.HTTPHandler(mcpHandler))
}

// Run serves until ctx is done. A blank listen address disables the server.
func (s *Service) Run(ctx context.Context) {
	if s.listen == "" {
		slog.Info("Admin server disabled")
		return
	}

	go func() {
		<-ctx.Done()
		if err := s.app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			slog.Warn("Admin server shutdown", "error", err)
		}
	}()

	slog.Info("Admin server listening", "addr", s.listen)

	if err := s.app.Listen(s.listen); err != nil {
		slog.Error("Admin server stopped", "error", oops.In("admin").With("addr", s.listen).Wrap(err))
	}
}

func (s *Service) Shutdown() error {
	return s.app.ShutdownWithTimeout(shutdownTimeout)
}

func (s *Service) healthz(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":        "ok",
		"conversations": s.conversationSvc.Store().Len(),
	})
}

func (s *Service) listConversations(c *fiber.Ctx) error {
	return c.JSON(s.conversationViews())
}

func (s *Service) getConversation(c *fiber.Ctx) error {
	conv, ok := s.conversationSvc.Store().Get(c.Params("user"))
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "conversation not found")
	}

	return c.JSON(newConversationView(conv.Snapshot(), true))
}

func (s *Service) deleteConversation(c *fiber.Ctx) error {
	userID := c.Params("user")

	if !s.conversationSvc.Store().Remove(userID) {
		return fiber.NewError(fiber.StatusNotFound, "conversation not found")
	}

	slog.Info("Conversation removed by operator", "user_id", userID)

	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Service) getUsage(c *fiber.Ctx) error {
	return c.JSON(s.usageView(c.Params("user")))
}

func (s *Service) conversationViews() []ConversationView {
	snapshots := s.conversationSvc.Store().Snapshots()

	views := make([]ConversationView, 0, len(snapshots))
	for _, snapshot := range snapshots {
		views = append(views, newConversationView(snapshot, false))
	}

	return views
}

func (s *Service) usageView(userID string) UsageView {
	capped := s.usageTracker.IsCapMet(userID)

	return UsageView{
		UserID:    userID,
		Count:     s.usageTracker.Count(userID),
		Threshold: s.usageTracker.Threshold(),
		Capped:    capped,
		Informed:  s.usageTracker.IsCapInformed(userID),
	}
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
	}

	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}
