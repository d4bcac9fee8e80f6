package model

type Sender int

const (
	SenderSystem Sender = iota
	SenderUser
	SenderAssistant
)

func (s Sender) String() string {
	switch s {
	case SenderSystem:
		return "system"
	case SenderUser:
		return "user"
	case SenderAssistant:
		return "assistant"
	default:
		return "unknown"
	}
}

// PromptPart is a single backend-ready piece of a prompt. Exactly one of
// Text or Image is set.
type PromptPart struct {
	Sender    Sender
	MessageID string
	Text      string
	Image     *Image
}

type Image struct {
	Name     string
	MIMEType string
	Data     []byte
}
