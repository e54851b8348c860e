package onboarding

import (
	"context"
	"fmt"
	"strings"
)

// SummaryTitle heads the progress summary document.
const SummaryTitle = "Прогресс онбординга"

// Summary is a plain-text progress summary of a trainee. The caller picks the file format.
func (uc *OnboardingUsecase) Summary(ctx context.Context, telegramID int64) (string, error) {
	p, err := uc.Progress(ctx, telegramID)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Стажёр: %s\n", p.User.FullName)
	if p.User.Username != nil && *p.User.Username != "" {
		fmt.Fprintf(&b, "Telegram: @%s\n", *p.User.Username)
	}

	b.WriteString("Прогресс:\n")
	fmt.Fprintf(&b, "- Выполнено шагов: %d из %d\n", p.AttemptedSteps, p.TotalSteps)
	switch {
	case p.Completed():
		b.WriteString("- Онбординг завершён\n")
	case p.NextStep != nil:
		fmt.Fprintf(&b, "- Следующий шаг: %d. %s (день %d)\n", p.NextStep.Order, p.NextStep.Title, p.NextStep.Day())
	}
	if p.AverageLiveScore != nil {
		fmt.Fprintf(&b, "- Средняя оценка: %.1f / 5\n", *p.AverageLiveScore)
	} else {
		b.WriteString("- Средняя оценка: нет оценок\n")
	}

	b.WriteString("Предупреждения по времени:\n")
	fmt.Fprintf(&b, "- Слишком быстро: %d\n", p.TooFast)
	fmt.Fprintf(&b, "- Слишком медленно: %d", p.TooSlow)

	return b.String(), nil
}
