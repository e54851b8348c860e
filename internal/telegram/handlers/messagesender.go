package handlers

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/futig/onboarding-bot/internal/entity"
	"github.com/futig/onboarding-bot/internal/telegram/keyboard"
	"github.com/futig/onboarding-bot/internal/telegram/render"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// maxMessageRunes stays below the 4096 character limit of a Telegram message.
const maxMessageRunes = 4000

// API is the part of tgbotapi.BotAPI the handlers use
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// MessageSender provides centralized message sending functionality
type MessageSender struct {
	bot      API
	keyboard *keyboard.Builder
	logger   *zap.Logger
}

// NewMessageSender creates a new MessageSender
func NewMessageSender(bot API, kb *keyboard.Builder, logger *zap.Logger) *MessageSender {
	return &MessageSender{
		bot:      bot,
		keyboard: kb,
		logger:   logger,
	}
}

// Send sends a message to the specified chat. Long texts are split; markup goes with the last part.
func (s *MessageSender) Send(chatID int64, text string, markup interface{}) error {
	parts := splitMessage(text, maxMessageRunes)
	for i, part := range parts {
		msg := tgbotapi.NewMessage(chatID, part)
		if markup != nil && i == len(parts)-1 {
			msg.ReplyMarkup = markup
		}

		if _, err := s.bot.Send(msg); err != nil {
			s.logger.Error("failed to send message",
				zap.Error(err),
				zap.Int64("chat_id", chatID),
			)
			return err
		}
	}
	return nil
}

// SendDocument uploads a generated file, retrying transient failures
func (s *MessageSender) SendDocument(ctx context.Context, chatID int64, file *entity.ReportFile, markup interface{}) error {
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: file.FileName, Bytes: file.Data})
	doc.Caption = file.Caption
	if markup != nil {
		doc.ReplyMarkup = markup
	}

	if err := sendCritical(ctx, s.bot, doc); err != nil {
		s.logger.Error("failed to send document",
			zap.Error(err),
			zap.Int64("chat_id", chatID),
			zap.String("file_name", file.FileName),
		)
		return fmt.Errorf("send document: %w", err)
	}
	return nil
}

// SendTurn delivers everything one onboarding turn produced, in order:
// notices, the follow-up question, then the next step or the completion report.
func (s *MessageSender) SendTurn(ctx context.Context, chatID int64, turn *entity.Turn) error {
	for _, text := range render.RenderNotices(turn) {
		if err := s.Send(chatID, text, nil); err != nil {
			return err
		}
	}

	if turn.Ask != "" {
		if err := s.Send(chatID, turn.Ask, nil); err != nil {
			return err
		}
	}

	if turn.Next != nil {
		var markup interface{}
		if kb := s.keyboard.StepKeyboard(turn.Next); kb != nil {
			markup = *kb
		} else {
			markup = tgbotapi.NewRemoveKeyboard(true)
		}
		return s.Send(chatID, render.RenderPrompt(turn.Next), markup)
	}

	if turn.Completed && turn.Report != nil {
		return s.SendDocument(ctx, chatID, turn.Report, s.keyboard.CompletedKeyboard())
	}
	return nil
}

// splitMessage cuts text into parts of at most limit runes, preferring line breaks
func splitMessage(text string, limit int) []string {
	if utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	var parts []string
	runes := []rune(text)
	for len(runes) > limit {
		cut := limit
		for i := limit; i > limit/2; i-- {
			if runes[i-1] == '\n' {
				cut = i
				break
			}
		}
		parts = append(parts, string(runes[:cut]))
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		parts = append(parts, string(runes))
	}
	return parts
}
