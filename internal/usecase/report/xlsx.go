package report

import (
	"bytes"
	"fmt"

	"github.com/futig/onboarding-bot/internal/entity"
	"github.com/unidoc/unioffice/spreadsheet"
)

const (
	summarySheet     = "Сводка"
	competencySheet  = "Компетенции"
	reportDateLayout = "02.01.2006 15:04"
)

// XLSXBuilder renders a report into an xlsx workbook: a summary sheet,
// one sheet per curriculum day and a competency sheet.
type XLSXBuilder struct{}

func NewXLSXBuilder() *XLSXBuilder {
	return &XLSXBuilder{}
}

var _ Builder = &XLSXBuilder{}

type styles struct {
	title   spreadsheet.CellStyle
	heading spreadsheet.CellStyle
	label   spreadsheet.CellStyle
	text    spreadsheet.CellStyle
}

func newStyles(wb *spreadsheet.Workbook) styles {
	font := func(size float64) spreadsheet.Font {
		f := wb.StyleSheet.AddFont()
		f.SetBold(true)
		f.SetSize(size)
		return f
	}
	style := func(f *spreadsheet.Font, wrapped bool) spreadsheet.CellStyle {
		cs := wb.StyleSheet.AddCellStyle()
		if f != nil {
			cs.SetFont(*f)
		}
		cs.SetWrapped(wrapped)
		return cs
	}

	title, heading, label := font(16), font(12), font(10)
	return styles{
		title:   style(&title, false),
		heading: style(&heading, false),
		label:   style(&label, false),
		text:    style(nil, true),
	}
}

// sheetWriter appends rows to a sheet from top to bottom.
type sheetWriter struct {
	sheet spreadsheet.Sheet
	st    styles
	row   int
}

func (w *sheetWriter) ref(col string) string {
	return fmt.Sprintf("%s%d", col, w.row)
}

func (w *sheetWriter) title(text string) {
	w.row++
	c := w.sheet.Cell(w.ref("A"))
	c.SetString(text)
	c.SetStyle(w.st.title)
	w.sheet.AddMergedCells(w.ref("A"), w.ref("D"))
	w.row++
}

func (w *sheetWriter) heading(text string) {
	w.row++
	c := w.sheet.Cell(w.ref("A"))
	c.SetString(text)
	c.SetStyle(w.st.heading)
	w.sheet.AddMergedCells(w.ref("A"), w.ref("D"))
}

func (w *sheetWriter) field(label, value string) {
	w.row++
	l := w.sheet.Cell(w.ref("A"))
	l.SetString(label)
	l.SetStyle(w.st.label)
	v := w.sheet.Cell(w.ref("B"))
	v.SetString(value)
	v.SetStyle(w.st.text)
	w.sheet.AddMergedCells(w.ref("B"), w.ref("D"))
}

func (w *sheetWriter) number(label string, value float64) {
	w.row++
	l := w.sheet.Cell(w.ref("A"))
	l.SetString(label)
	l.SetStyle(w.st.label)
	w.sheet.Cell(w.ref("B")).SetNumber(value)
}

func (w *sheetWriter) paragraph(text string) {
	w.row++
	c := w.sheet.Cell(w.ref("A"))
	c.SetString(text)
	c.SetStyle(w.st.text)
	w.sheet.AddMergedCells(w.ref("A"), w.ref("D"))
}

func (w *sheetWriter) skip() {
	w.row++
}

func (b *XLSXBuilder) Build(r *entity.Report) ([]byte, error) {
	wb := spreadsheet.New()
	defer wb.Close()

	st := newStyles(wb)
	newSheet := func(name string) *sheetWriter {
		sheet := wb.AddSheet()
		sheet.SetName(name)
		return &sheetWriter{sheet: sheet, st: st}
	}

	writeSummary(newSheet(summarySheet), r)
	for _, day := range r.Days {
		writeDay(newSheet(fmt.Sprintf("День %d", day.Day)), day)
	}
	writeCompetencies(newSheet(competencySheet), r)

	var buf bytes.Buffer
	if err := wb.Save(&buf); err != nil {
		return nil, fmt.Errorf("save workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSummary(w *sheetWriter, r *entity.Report) {
	w.title("ОТЧЕТ ПО ОНБОРДИНГУ HR TRAINEE")

	w.field("👤 Стажёр:", r.User.FullName)
	if r.User.Username != nil && *r.User.Username != "" {
		w.field("📱 Telegram:", "@"+*r.User.Username)
	}
	w.field("📅 Дата:", r.GeneratedAt.Format(reportDateLayout))
	w.skip()

	w.heading("🎯 ОБЩАЯ ОЦЕНКА")
	w.paragraph(scoreText(r.Overall))
	w.skip()

	w.heading("📝 КРАТКИЙ ОБЗОР")
	w.paragraph(Overview(r))
	w.skip()

	w.heading("📈 СТАТИСТИКА")
	w.number("Всего шагов:", float64(r.TotalSteps))
	w.number("Выполнено:", float64(r.CompletedSteps))
	w.number("Оценено LLM:", float64(r.ScoredAnswers))
	for _, day := range r.Days {
		if day.Average != nil {
			w.field(fmt.Sprintf("День %d (среднее):", day.Day), scoreText(day.Average))
		}
	}
}

func writeDay(w *sheetWriter, day entity.DayReport) {
	w.title(fmt.Sprintf("ДЕНЬ %d - ДЕТАЛЬНАЯ ОЦЕНКА", day.Day))

	for _, entry := range day.Entries {
		w.heading(fmt.Sprintf("Шаг %d: %s", entry.Step.Order, entry.Step.Title))

		answer, ok := gradableAnswer(entry.Submission)
		if !ok {
			w.field("✅ Статус:", statusText(entry.Submission.Status))
			w.skip()
			continue
		}

		if entry.Step.Description != "" {
			w.field("📋 Задание:", entry.Step.Description)
		}
		w.field("✍️ Ответ:", answer)
		if entry.Score != nil {
			w.field("⭐ Оценка:", fmt.Sprintf("%.1f / 10", entry.Score.Score))
			w.field("💬 Фидбек:", entry.Score.Feedback)
		}
		if minutes := entry.Submission.CompletionMinutes(); minutes != nil {
			w.field("⏱ Время:", fmt.Sprintf("%.0f мин", *minutes))
		}
		w.skip()
	}
}

func writeCompetencies(w *sheetWriter, r *entity.Report) {
	w.title("СВОДКА ПО КОМПЕТЕНЦИЯМ")
	if len(r.Competencies) == 0 {
		w.paragraph("Нет оценённых ответов с указанной компетенцией.")
		return
	}
	for _, c := range r.Competencies {
		avg := c.Average
		w.field(c.Name+":", fmt.Sprintf("%s (ответов: %d)", scoreText(&avg), c.Scored))
	}
}

func scoreText(score *float64) string {
	if score == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.1f / 10", *score)
}

func statusText(s entity.SubmissionStatus) string {
	switch s {
	case entity.SubmissionStatusChecked, entity.SubmissionStatusApproved:
		return "Выполнено"
	case entity.SubmissionStatusRejected:
		return "Отклонено"
	case entity.SubmissionStatusNeedsImprovement:
		return "Требует доработки"
	default:
		return "В процессе"
	}
}
