package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"supportbot/app/client/twitch"
	"supportbot/app/client/twitch_irc"
	"supportbot/app/config"
	"supportbot/app/model"
	"supportbot/app/service/conversation"
	"supportbot/app/service/prompt"
	"supportbot/app/service/queue"
	"supportbot/app/service/usage"

	"github.com/elliotchance/pie/v2"
	"github.com/samber/do"
)

const (
	retryDelay = time.Minute

	// chatters unseen for this long are forgotten by the newcomer filter
	seenRetention = 7 * 24 * time.Hour
	pruneInterval = time.Hour

	failureReply = "Failed, message deemed unrelated to the channel's support topic."
)

// Transport is the chat connection the intake loop reads from and replies through.
type Transport interface {
	SetListener(listener twitch_irc.MessageHandler)
	JoinChannel(channel string)
	Run() error
	Disconnect()
	Reply(channel, parentMsgID, text string) error
}

type Service struct {
	cfg             *config.Config
	conversationSvc *conversation.Service
	usageTracker    *usage.Tracker
	queueSvc        *queue.Service
	transport       Transport
	botID           func() string
	now             func() time.Time

	mu        sync.Mutex
	seen      map[string]sighting
	lastPrune time.Time
}

type sighting struct {
	first time.Time
	last  time.Time
}

func New(di *do.Injector) (*Service, error) {
	twitchClient := do.MustInvoke[*twitch.Client](di)

	return NewService(
		do.MustInvoke[*config.Config](di),
		do.MustInvoke[*conversation.Service](di),
		do.MustInvoke[*usage.Tracker](di),
		do.MustInvoke[*queue.Service](di),
		do.MustInvoke[*twitch_irc.Client](di),
		twitchClient.BotUserID,
	), nil
}

func NewService(
	cfg *config.Config,
	conversationSvc *conversation.Service,
	usageTracker *usage.Tracker,
	queueSvc *queue.Service,
	transport Transport,
	botID func() string,
) *Service {
	return &Service{
		cfg:             cfg,
		conversationSvc: conversationSvc,
		usageTracker:    usageTracker,
		queueSvc:        queueSvc,
		transport:       transport,
		botID:           botID,
		now:             time.Now,
		seen:            make(map[string]sighting),
	}
}

func (s *Service) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := s.runIteration(ctx); err != nil {
			slog.Error("Error running iteration", "error", err)

			select {
			case <-ctx.Done():
				return
			case <-time.After(retryDelay):
			}
		}
	}
}

func (s *Service) runIteration(ctx context.Context) error {
	s.transport.SetListener(s.onChatMessage)
	s.transport.JoinChannel(s.cfg.Twitch.Channel)

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.transport.Run()
	}()
	defer s.transport.Disconnect()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errCh:
			if err == nil {
				err = errors.New("connection closed")
			}
			return fmt.Errorf("irc client stopped: %w", err)
		case msg, ok := <-s.queueSvc.Channel():
			if !ok {
				return context.Canceled
			}

			start := time.Now()
			s.HandleMessage(msg)

			slog.Debug("Processed message",
				"user_id", msg.UserID,
				"username", msg.Username,
				"duration", time.Since(start))
		}
	}
}

func (s *Service) onChatMessage(msg model.ChatMessage) {
	if s.cfg.Twitch.IgnoreChat {
		return
	}

	s.queueSvc.Add(msg)
}

// HandleMessage applies the intake policy to a single chat message.
func (s *Service) HandleMessage(msg model.ChatMessage) {
	if msg.UserID == "" || msg.UserID == s.botID() {
		return
	}

	newcomer := s.observe(msg)

	text, explicit := s.parseCommand(msg.Text)

	logger := slog.With("user_id", msg.UserID, "username", msg.Username, "message_id", msg.ID)

	if explicit && msg.IsReply() && msg.ReplyParentUserID != msg.UserID && msg.ReplyParentUserID != s.botID() {
		s.askOnBehalf(msg, logger)
		return
	}

	if text == "" {
		return
	}

	respondImmediately := explicit
	followUp := false

	if msg.IsReply() {
		outcome := s.conversationSvc.Classify(msg.UserID, msg.ReplyParentUserID)
		logger.Debug("Classified reply", "outcome", outcome.String(), "parent_user_id", msg.ReplyParentUserID)

		switch outcome {
		case conversation.OutcomeFollowUp:
			followUp = true
			respondImmediately = true
		case conversation.OutcomeAnswered, conversation.OutcomeIgnored:
			return
		case conversation.OutcomeFallThrough:
		}
	}

	privileged := s.isPrivileged(msg)

	if !explicit && !followUp {
		if privileged {
			return
		}
		if !newcomer && !s.conversationSvc.Store().IsTracked(msg.UserID) {
			logger.Debug("Ignoring message from established chatter")
			return
		}
	}

	if !privileged && s.capped(msg, logger) {
		return
	}

	turn := s.newTurn(msg.ID, text)
	s.conversationSvc.Submit(msg.UserID, turn, respondImmediately, s.completion(msg, explicit))

	logger.Info("Tracked question",
		"explicit", explicit,
		"follow_up", followUp,
		"attachments", len(turn.Attachments))
}

// askOnBehalf answers the message msg replies to, as if its author had used
// the ask command. Replies and the failure notice go to the parent message.
func (s *Service) askOnBehalf(msg model.ChatMessage, logger *slog.Logger) {
	target := model.ChatMessage{
		Channel:  msg.Channel,
		ID:       msg.ReplyParentMsgID,
		UserID:   msg.ReplyParentUserID,
		Username: msg.ReplyParentUserLogin,
		Text:     msg.ReplyParentBody,
	}

	logger = logger.With("target_user_id", target.UserID, "target_message_id", target.ID)

	if target.Text == "" {
		logger.Debug("Ask on behalf without parent message body")
		return
	}

	if s.capped(target, logger) {
		return
	}

	turn := s.newTurn(target.ID, target.Text)
	s.conversationSvc.Submit(target.UserID, turn, true, s.completion(target, true))

	logger.Info("Tracked question on behalf of another chatter",
		"attachments", len(turn.Attachments))
}

// capped reports whether the author of msg hit the usage cap, telling them
// once per capped window.
func (s *Service) capped(msg model.ChatMessage, logger *slog.Logger) bool {
	if !s.usageTracker.IsCapMet(msg.UserID) {
		return false
	}

	if !s.usageTracker.IsCapInformed(msg.UserID) {
		s.usageTracker.MarkCapInformed(msg.UserID)
		s.conversationSvc.Store().MarkCapInformed(msg.UserID)

		logger.Warn("Usage cap reached", "capped_user_id", msg.UserID, "telegram", true)
		if err := s.send(msg, s.cfg.Usage.CapMessage); err != nil {
			logger.Error("Failed to send cap message", "error", err)
		}
	}

	return true
}

func (s *Service) newTurn(messageID, text string) *model.UserTurn {
	return &model.UserTurn{
		MessageID:   messageID,
		Content:     text,
		Attachments: prompt.ExtractLinks(text, s.cfg.Prompt.MaxAttachments),
	}
}

func (s *Service) completion(msg model.ChatMessage, explicit bool) conversation.CompleteFunc {
	return func(success bool, text string) error {
		if success {
			return s.send(msg, text)
		}
		if explicit {
			return s.send(msg, failureReply)
		}

		return nil
	}
}

// parseCommand strips the ask command prefix and reports whether it was present.
func (s *Service) parseCommand(text string) (string, bool) {
	text = strings.TrimSpace(text)

	cmd := strings.ToLower(s.cfg.Twitch.AskCommand)
	if cmd == "" || len(text) < len(cmd) || strings.ToLower(text[:len(cmd)]) != cmd {
		return text, false
	}

	rest := text[len(cmd):]
	if rest != "" && rest[0] != ' ' {
		return text, false
	}

	return strings.TrimSpace(rest), true
}

func (s *Service) isPrivileged(msg model.ChatMessage) bool {
	return pie.Any(s.cfg.Twitch.PrivilegedBadges, func(badge string) bool {
		_, ok := msg.Badges[badge]
		return ok
	})
}

// observe remembers when the author was first seen and reports whether they
// still count as a newcomer. A non-positive window disables the filter.
func (s *Service) observe(msg model.ChatMessage) bool {
	window := s.cfg.Twitch.NewcomerWindow
	if window <= 0 {
		return true
	}

	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked(now)

	seen, ok := s.seen[msg.UserID]
	if !ok {
		seen.first = now
	}
	seen.last = now
	s.seen[msg.UserID] = seen

	return msg.FirstMessage || now.Sub(seen.first) <= window
}

func (s *Service) pruneLocked(now time.Time) {
	if now.Sub(s.lastPrune) < pruneInterval {
		return
	}
	s.lastPrune = now

	for userID, seen := range s.seen {
		if now.Sub(seen.last) > seenRetention {
			delete(s.seen, userID)
		}
	}
}

func (s *Service) send(msg model.ChatMessage, text string) error {
	if s.cfg.Twitch.DisableNotifications {
		slog.Info("Reply suppressed",
			"user_id", msg.UserID,
			"text", text,
			"telegram", true)
		return nil
	}

	for _, chunk := range splitMessage(text, maxMessageLength) {
		if err := s.transport.Reply(msg.Channel, msg.ID, chunk); err != nil {
			return fmt.Errorf("failed to reply to %s: %w", msg.ID, err)
		}
	}

	slog.Info("Replied to message",
		"user_id", msg.UserID,
		"username", msg.Username,
		"text", text,
		"telegram", true)

	return nil
}
