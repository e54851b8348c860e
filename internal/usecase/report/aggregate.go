package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/futig/onboarding-bot/internal/entity"
)

const (
	excellentThreshold = 8.0
	goodThreshold      = 6.0
	passThreshold      = 4.0
	weakDayThreshold   = 6.0

	curriculumDays = 3
)

// Aggregate groups scored entries by day and competency.
func Aggregate(user *entity.User, steps []*entity.Step, entries []entity.ReportEntry, now time.Time) *entity.Report {
	r := &entity.Report{
		User:        user,
		GeneratedAt: now,
		TotalSteps:  len(steps),
		Days:        make([]entity.DayReport, curriculumDays),
	}
	for i := range r.Days {
		r.Days[i].Day = i + 1
	}
	for _, step := range steps {
		r.Days[step.Day()-1].Total++
	}

	var all []float64
	perDay := make([][]float64, curriculumDays)
	perCompetency := make(map[string][]float64)

	for _, entry := range entries {
		day := &r.Days[entry.Step.Day()-1]
		day.Entries = append(day.Entries, entry)
		if entry.Submission.Status.Attempted() {
			day.Completed++
			r.CompletedSteps++
		}
		if entry.Score == nil {
			continue
		}
		r.ScoredAnswers++
		all = append(all, entry.Score.Score)
		perDay[day.Day-1] = append(perDay[day.Day-1], entry.Score.Score)
		if c := strings.TrimSpace(entry.Step.Competency); c != "" {
			perCompetency[c] = append(perCompetency[c], entry.Score.Score)
		}
	}

	r.Overall = average(all)
	for i := range r.Days {
		r.Days[i].Average = average(perDay[i])
	}

	for name, scores := range perCompetency {
		r.Competencies = append(r.Competencies, entity.CompetencyReport{
			Name:    name,
			Average: *average(scores),
			Scored:  len(scores),
		})
	}
	sort.Slice(r.Competencies, func(i, j int) bool { return r.Competencies[i].Name < r.Competencies[j].Name })

	return r
}

// Overview is the short verdict printed on the summary sheet.
func Overview(r *entity.Report) string {
	if r.Overall == nil {
		return "Недостаточно данных для формирования обзора."
	}

	var parts []string
	switch overall := *r.Overall; {
	case overall >= excellentThreshold:
		parts = append(parts, "🌟 Отличная работа! Стажёр показал высокий уровень понимания материала.")
	case overall >= goodThreshold:
		parts = append(parts, "✅ Хорошая работа. Стажёр справился с большинством заданий на достойном уровне.")
	case overall >= passThreshold:
		parts = append(parts, "⚠️ Удовлетворительно. Есть понимание основ, но требуется дополнительная проработка.")
	default:
		parts = append(parts, "❌ Требуется значительное улучшение. Рекомендуется повторное прохождение.")
	}

	if best := r.BestDay(); best != nil {
		parts = append(parts, fmt.Sprintf("🎯 Сильная сторона: День %d (средний балл %.1f/10)", best.Day, *best.Average))
	}
	if weak := r.WeakestDay(weakDayThreshold); weak != nil {
		parts = append(parts, fmt.Sprintf("📌 Требует внимания: День %d (средний балл %.1f/10)", weak.Day, *weak.Average))
	}
	return strings.Join(parts, "\n")
}

func average(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	avg := sum / float64(len(values))
	return &avg
}
