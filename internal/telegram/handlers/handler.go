package handlers

import (
	"context"

	"github.com/futig/onboarding-bot/internal/entity"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Handler state constants. Message handlers are keyed by the conversation phase.
const (
	HandlerStateCallback      = "CALLBACK"
	HandlerStateAwaitingName  = string(entity.PhaseAwaitingName)
	HandlerStateAwaitingStep  = string(entity.PhaseAwaitingStep)
	HandlerStateCollecting    = string(entity.PhaseCollecting)
	HandlerStateExpertGrading = string(entity.PhaseExpertGrading)
)

// Message represents a normalized Telegram message
type Message struct {
	ChatID       int64
	UserID       int64
	Username     string
	MessageID    int
	Text         string
	Document     *tgbotapi.Document
	CallbackData string
	CallbackID   string
}

// Reply converts the message into the reply the onboarding engine understands
func (m *Message) Reply() entity.Reply {
	reply := entity.Reply{Text: m.Text}
	if m.Document != nil {
		reply.Document = &entity.Document{
			FileID:   m.Document.FileID,
			FileName: m.Document.FileName,
			Size:     int64(m.Document.FileSize),
		}
	}
	return reply
}

// Handler defines the interface for state-specific handlers
type Handler interface {
	// Handle processes a message for this state
	Handle(ctx context.Context, msg *Message) error

	// GetState returns the state this handler manages
	GetState() string
}

// BaseHandler provides common functionality for all handlers
type BaseHandler struct {
	stateName     string
	messageSender *MessageSender
}

// GetState implements Handler
func (h *BaseHandler) GetState() string {
	return h.stateName
}

// sendMessage is a convenience wrapper for messageSender.Send
func (h *BaseHandler) sendMessage(chatID int64, text string, markup interface{}) {
	if h.messageSender != nil {
		_ = h.messageSender.Send(chatID, text, markup)
	}
}

// validStates defines all valid handler states
var validStates = map[string]bool{
	HandlerStateCallback:      true,
	HandlerStateAwaitingName:  true,
	HandlerStateAwaitingStep:  true,
	HandlerStateCollecting:    true,
	HandlerStateExpertGrading: true,
}

// IsValidState checks if a state is valid for handler registration
func IsValidState(state string) bool {
	_, ok := validStates[state]
	return ok
}
