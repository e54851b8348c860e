package keyboard

import (
	"fmt"

	"github.com/futig/onboarding-bot/internal/entity"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Button labels. The step buttons repeat the reply texts the engine accepts as plain text.
const (
	LabelDone       = "Готово ✅"
	LabelEvaluate   = "Оценить результат"
	LabelSkip       = "Пропустить"
	LabelOnboarding = "🚀 Продолжить онбординг"
	LabelReport     = "📊 Получить отчёт"
	LabelSummary    = "📄 Прогресс"
	LabelCancel     = "❌ Отмена"
)

// maxQueueButtons bounds the review queue keyboard.
const maxQueueButtons = 10

// Builder creates inline keyboards
type Builder struct{}

// NewBuilder creates a keyboard builder
func NewBuilder() *Builder {
	return &Builder{}
}

// StartKeyboard offers to continue the onboarding after registration
func (b *Builder) StartKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(LabelOnboarding, EncodeCallback(ActionMenu, MenuOnboarding)),
		),
	)
}

// StepKeyboard returns the buttons of a presented step, or nil when the step waits for text or a file.
func (b *Builder) StepKeyboard(p *entity.Prompt) *tgbotapi.InlineKeyboardMarkup {
	var markup tgbotapi.InlineKeyboardMarkup
	switch p.Expect {
	case entity.ExpectAcknowledge:
		markup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(LabelDone, EncodeStepSignal(entity.SignalDone, p.Step.ID)),
			),
		)
	case entity.ExpectEvaluate:
		markup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(LabelEvaluate, EncodeStepSignal(entity.SignalEvaluate, p.Step.ID)),
				tgbotapi.NewInlineKeyboardButtonData(LabelSkip, EncodeStepSignal(entity.SignalSkip, p.Step.ID)),
			),
		)
	default:
		return nil
	}
	return &markup
}

// CompletedKeyboard is shown once the curriculum is finished
func (b *Builder) CompletedKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(LabelReport, EncodeCallback(ActionMenu, MenuReport)),
			tgbotapi.NewInlineKeyboardButtonData(LabelSummary, EncodeCallback(ActionMenu, MenuSummary)),
		),
	)
}

// ReviewQueueKeyboard creates one button per submission waiting for an expert
func (b *Builder) ReviewQueueKeyboard(items []*entity.SubmissionDetails) tgbotapi.InlineKeyboardMarkup {
	rows := [][]tgbotapi.InlineKeyboardButton{}

	count := len(items)
	if count > maxQueueButtons {
		count = maxQueueButtons
	}

	for i := 0; i < count; i++ {
		item := items[i]
		label := fmt.Sprintf("%d. %s: %s", item.Step.Order, item.User.FullName, item.Step.Title)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, EncodeCallback(ActionReview, item.Submission.ID)),
		))
	}

	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// GradingKeyboard lets the expert leave the grading phase
func (b *Builder) GradingKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(LabelCancel, EncodeCallback(ActionReview, ReviewCancel)),
		),
	)
}
