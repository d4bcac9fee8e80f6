package queue

import (
	"log/slog"
	"sync"

	"supportbot/app/model"

	"github.com/samber/do"
)

const bufferSize = 64

var _ do.Shutdownable = (*Service)(nil)

// Service hands chat messages from the IRC goroutine to the intake loop in
// arrival order.
type Service struct {
	mu     sync.RWMutex
	closed bool
	queue  chan model.ChatMessage
}

func New(_ *do.Injector) (*Service, error) {
	return NewService(bufferSize), nil
}

func NewService(size int) *Service {
	return &Service{
		queue: make(chan model.ChatMessage, size),
	}
}

// Add enqueues msg, dropping it when the buffer is full or the queue is closed.
func (s *Service) Add(msg model.ChatMessage) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false
	}

	select {
	case s.queue <- msg:
		return true
	default:
		slog.Warn("message queue is full", "user_id", msg.UserID, "message_id", msg.ID)
		return false
	}
}

func (s *Service) Channel() <-chan model.ChatMessage {
	return s.queue
}

func (s *Service) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		close(s.queue)
	}

	return nil
}
