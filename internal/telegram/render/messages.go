package render

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"

	"github.com/futig/onboarding-bot/internal/entity"
)

const (
	// Welcome messages
	MsgWelcome = `👋 Привет! Это бот онбординга HR-стажёров.

Что тебя ждёт:
• Три дня шагов: материалы, вопросы, задания и самооценка
• Автоматическая оценка ответов и проверка карты поиска
• Итоговый отчёт в Excel

Напиши, пожалуйста, своё полное имя для регистрации.`

	MsgWelcomeBack = `👋 С возвращением, %s!

Если хочешь изменить имя, напиши его. Продолжить онбординг: /onboarding`

	MsgRegistered = `Приятно познакомиться, %s! Регистрация завершена.`

	MsgHelp = `🤖 Команды бота:

/start - Регистрация
/onboarding - Продолжить онбординг (alias /labs)
/get_report - Получить отчёт в Excel
/summary - Прогресс в формате md, docx или pdf (например, /summary pdf)
/reset - Сбросить текущий шаг, ответы сохранятся
/expert - Задания на проверке (для экспертов)
/review <id> - Проверить задание (для экспертов)
/help - Показать эту справку`

	MsgReset = `🔄 Текущий шаг сброшен, ответы сохранены.

Продолжить: /onboarding`

	// Step hints
	MsgHintAcknowledge = `Нажми «Готово ✅», когда завершишь шаг.`
	MsgHintFreeText    = `👇 Напиши свой ответ ниже:`
	MsgHintDocument    = `👇 Загрузи файл карты поиска (Excel):`
	MsgHintEvaluate    = `Нажми «Оценить результат», чтобы получить оценку предыдущего ответа, или «Пропустить».`

	// Reports
	MsgGeneratingReport = `⏳ Генерирую отчёт по онбордингу с AI-оценками...

Это может занять 30-60 секунд ⏱️`
	MsgNoSubmissions = `⚠️ У тебя пока нет выполненных шагов онбординга.
Начни с команды /onboarding`

	// Expert review
	MsgNoPending    = `Нет заданий на проверке.`
	MsgQueueHeader  = `📋 Задания на проверке:`
	MsgQueueFooter  = `Выбери задание или введи /review <id>.`
	MsgGradePrompt  = `Введи оценку (1-5) и комментарий, например: «5 Отличная работа».`
	MsgGraded       = `✅ Задание оценено: %d / 5, статус «%s».`
	MsgReviewUsage  = `Использование: /review <id>`
	MsgReviewCancel = `Проверка отменена.`

	// Errors
	ErrGeneric            = `❌ Произошла ошибка. Попробуйте ещё раз или нажмите /start`
	ErrNotRegistered      = `❌ Сначала зарегистрируйся через /start`
	ErrForbidden          = `⛔ Команда доступна только экспертам.`
	ErrSubmissionNotFound = `❌ Задание не найдено.`
	ErrAlreadyReviewed    = `❌ Задание уже проверено.`
	ErrInvalidGrade       = `❌ Неверный формат. Используй: <оценка 1-5> <комментарий>`
	ErrInvalidFormat      = `❌ Формат должен быть md, docx или pdf.`
	ErrUnknownCommand     = `❌ Неизвестная команда. Используйте /help`
	ErrInvalidState       = `❌ Неверное состояние. Нажмите /onboarding чтобы продолжить.`
	ErrReportFailed       = `⚠️ Ошибка при генерации отчёта. Попробуй позже или обратись к наставнику.`
	ErrNetworkIssue       = `❌ Проблема с соединением. Попробуй чуть позже.`
	ErrServiceUnavailable = `❌ Сервис временно недоступен. Попробуй через пару минут.`
	ErrTimeout            = `❌ Операция заняла слишком много времени. Попробуй ещё раз.`
)

// RenderPrompt formats a presented step together with the hint for the expected reply
func RenderPrompt(p *entity.Prompt) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📌 Шаг %d: %s\n\n", p.Step.Order, p.Step.Title)
	if p.Step.Description != "" {
		b.WriteString(p.Step.Description)
		b.WriteString("\n\n")
	}
	if p.Step.ContentURL != nil && *p.Step.ContentURL != "" {
		fmt.Fprintf(&b, "🔗 Материал: %s\n", *p.Step.ContentURL)
	}
	if p.Step.EstimatedDuration > 0 {
		fmt.Fprintf(&b, "⏱ Оценочное время: %d мин\n", p.Step.EstimatedDuration)
	}
	b.WriteString("\n")

	switch p.Expect {
	case entity.ExpectAcknowledge:
		b.WriteString(MsgHintAcknowledge)
	case entity.ExpectFreeText:
		b.WriteString(MsgHintFreeText)
	case entity.ExpectDocument:
		b.WriteString(MsgHintDocument)
	case entity.ExpectEvaluate:
		b.WriteString(MsgHintEvaluate)
	case entity.ExpectCollection:
		b.WriteString(p.Lead)
	}
	return b.String()
}

// RenderNotice phrases one outcome of a turn
func RenderNotice(n entity.Notice) string {
	switch n.Kind {
	case entity.NoticeAcknowledgeRequired:
		return MsgHintAcknowledge
	case entity.NoticeAlreadyRecorded:
		return "Ответ на этот шаг уже сохранён. Продолжаем."
	case entity.NoticeStaleButton:
		return "Эта кнопка относится к уже пройденному шагу. Ответь на текущий шаг выше."
	case entity.NoticeTextRequired:
		return "Нужен текстовый ответ."
	case entity.NoticeDocumentRequired:
		return "Загрузи Excel-файл карты поиска."
	case entity.NoticeExcelRequired:
		return "Нужен Excel файл (.xlsx или .xls)."
	case entity.NoticeFileTooLarge:
		return "❌ Файл слишком большой. Загрузи файл до 20 МБ."
	case entity.NoticeFileUnreadable:
		return "Ошибка загрузки файла: " + n.Text
	case entity.NoticeFileAccepted:
		return "✅ Файл принят! Автопроверка пройдена."
	case entity.NoticeFileNeedsReview:
		return renderReviewNeeded(n)
	case entity.NoticeAnswerSaved:
		return "Ответ сохранён."
	case entity.NoticeEvaluationSkipped:
		return "Оценку пропустили. Двигаемся дальше."
	case entity.NoticeEvaluated:
		if n.Score != nil {
			return fmt.Sprintf("Оценка: %s / 5\n%s", formatScore(*n.Score), n.Text)
		}
		return "Оценка: " + n.Text
	case entity.NoticeEvaluationUnavailable:
		return "⚠️ " + n.Text
	case entity.NoticeTooFast:
		return fmt.Sprintf("⚠️ Очень быстро (%.1f мин при норме %d). Проверь, всё ли сделал.", n.Elapsed, n.Estimate)
	case entity.NoticeTooSlow:
		return fmt.Sprintf("ℹ️ Долго (%.1f мин при норме %d). Отметим это в прогрессе.", n.Elapsed, n.Estimate)
	case entity.NoticeVariantRecorded:
		if len(n.Counts) == 0 {
			return "✅ Записано."
		}
		return fmt.Sprintf("✅ Длина: %d символов", n.Counts[0].Count)
	case entity.NoticeCollectionSummary:
		return renderCollectionSummary(n)
	case entity.NoticeStructuredResult:
		return renderStructuredResult(n)
	case entity.NoticeSessionExpired:
		return "Сессия истекла. Введи /onboarding ещё раз."
	case entity.NoticeOnboardingComplete:
		return "🎉 Онбординг завершён! Отличная работа!"
	case entity.NoticeReportUnavailable:
		if strings.Contains(n.Text, entity.ErrNoSubmissions.Error()) {
			return MsgNoSubmissions
		}
		return ErrReportFailed
	default:
		return ""
	}
}

// RenderNotices phrases every notice of a turn, skipping unknown kinds
func RenderNotices(turn *entity.Turn) []string {
	var out []string
	for _, n := range turn.Notices {
		if text := RenderNotice(n); text != "" {
			out = append(out, text)
		}
	}
	return out
}

func renderReviewNeeded(n entity.Notice) string {
	var parts []string
	if len(n.Issues) > 0 {
		parts = append(parts, "⚠️ Замечания автопроверки:")
		for _, issue := range n.Issues {
			parts = append(parts, "• "+issue)
		}
	}
	if len(n.Suggestions) > 0 {
		parts = append(parts, "", "💡 Рекомендации:")
		for _, s := range n.Suggestions {
			parts = append(parts, "• "+s)
		}
	}
	parts = append(parts, "", "✅ Отправлено на проверку эксперту.")
	return strings.TrimLeft(strings.Join(parts, "\n"), "\n")
}

func renderCollectionSummary(n entity.Notice) string {
	var b strings.Builder
	if n.Text == string(entity.CollectionSequential) {
		b.WriteString("✅ Все варианты собраны!\n")
		for _, c := range n.Counts {
			fmt.Fprintf(&b, "\n• %s: %d символов", c.Name, c.Count)
		}
		return b.String()
	}

	b.WriteString("✅ Все данные собраны!\n")
	for _, c := range n.Counts {
		fmt.Fprintf(&b, "\n%s: %d элементов", c.Name, c.Count)
	}
	return b.String()
}

func renderStructuredResult(n entity.Notice) string {
	emoji := "⚠️"
	if n.Status == entity.SubmissionStatusApproved {
		emoji = "✅"
	}

	var b strings.Builder
	if n.Score != nil {
		fmt.Fprintf(&b, "%s Оценка: %.1f/5\n\n", emoji, *n.Score)
	}
	if len(n.Data) > 0 {
		b.WriteString("📊 Собранные данные:\n")
		b.WriteString(indentJSON(n.Data))
		b.WriteString("\n\n")
	}
	b.WriteString("💬 Отзыв:\n")
	b.WriteString(n.Text)
	if n.Status == entity.SubmissionStatusNeedsImprovement {
		b.WriteString("\n\nПопробуй доработать ответ.")
	}
	return b.String()
}

// RenderReviewQueue lists submissions waiting for an expert
func RenderReviewQueue(items []*entity.SubmissionDetails) string {
	if len(items) == 0 {
		return MsgNoPending
	}

	var b strings.Builder
	b.WriteString(MsgQueueHeader)
	b.WriteString("\n\n")
	for _, item := range items {
		fmt.Fprintf(&b, "• %s | %s | Шаг %d: %s | %s\n",
			item.Submission.ID, item.User.FullName, item.Step.Order, item.Step.Title,
			StatusLabel(item.Submission.Status))
	}
	b.WriteString("\n")
	b.WriteString(MsgQueueFooter)
	return b.String()
}

// RenderSubmission formats one submission for grading
func RenderSubmission(d *entity.SubmissionDetails) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📝 Задание %s\n", d.Submission.ID)
	fmt.Fprintf(&b, "Стажёр: %s", d.User.FullName)
	if u := d.User.DisplayUsername(); u != "" {
		fmt.Fprintf(&b, " (%s)", u)
	}
	fmt.Fprintf(&b, "\nШаг %d: %s\nСтатус: %s\n", d.Step.Order, d.Step.Title, StatusLabel(d.Submission.Status))
	fmt.Fprintf(&b, "\nОтвет: %s\n", valueOrDash(d.Submission.TextAnswer))
	if d.Submission.EvaluationScore != nil {
		fmt.Fprintf(&b, "Оценка AI: %s / 5\n", formatScore(*d.Submission.EvaluationScore))
	}
	fmt.Fprintf(&b, "Автопроверка: %s", valueOrDash(d.Submission.AutoCheckResult))
	return b.String()
}

// StatusLabel returns the Russian name of a submission status
func StatusLabel(s entity.SubmissionStatus) string {
	switch s {
	case entity.SubmissionStatusPending:
		return "ожидает проверки"
	case entity.SubmissionStatusChecked:
		return "проверено автоматически"
	case entity.SubmissionStatusApproved:
		return "принято"
	case entity.SubmissionStatusRejected:
		return "отклонено"
	case entity.SubmissionStatusNeedsImprovement:
		return "требует доработки"
	default:
		return string(s)
	}
}

func formatScore(v float64) string {
	if v == float64(int(v)) {
		return fmt.Sprintf("%d", int(v))
	}
	return fmt.Sprintf("%.1f", v)
}

func valueOrDash(s *string) string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return "-"
	}
	return *s
}

func indentJSON(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}

// ClassifyError analyzes an error and returns an appropriate user-friendly message
func ClassifyError(err error) string {
	if err == nil {
		return ErrGeneric
	}

	switch {
	case errors.Is(err, entity.ErrUserNotRegistered), errors.Is(err, entity.ErrUserNotFound):
		return ErrNotRegistered
	case errors.Is(err, entity.ErrForbidden):
		return ErrForbidden
	case errors.Is(err, entity.ErrSubmissionNotFound):
		return ErrSubmissionNotFound
	case errors.Is(err, entity.ErrTerminalStatus):
		return ErrAlreadyReviewed
	case errors.Is(err, entity.ErrInvalidScore):
		return ErrInvalidGrade
	case errors.Is(err, entity.ErrInvalidFormat):
		return ErrInvalidFormat
	case errors.Is(err, entity.ErrNoSubmissions):
		return MsgNoSubmissions
	case errors.Is(err, entity.ErrSessionExpired):
		return ErrInvalidState
	}

	// Check for timeout errors
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ErrTimeout
	}

	// Check for syscall errors (connection refused, etc.)
	if errors.Is(err, syscall.ECONNREFUSED) {
		return ErrServiceUnavailable
	}

	// Check for network errors
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return ErrTimeout
		}
		return ErrNetworkIssue
	}

	// Default to generic error
	return ErrGeneric
}
