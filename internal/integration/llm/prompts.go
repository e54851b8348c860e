package llm

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/futig/onboarding-bot/internal/entity"
)

func scoreAnswerPrompt(answer, criteria string) string {
	return fmt.Sprintf(`Ты наставник для HR-стажёра. Оцени его ответ по шагу онбординга.

Описание шага:
%s

Ответ стажёра:
"""%s"""

Верни кратко оценку в формате:
Оценка: X (целое число от 1 до 5)
Комментарий: <кратко, 1-2 предложения>
`, criteria, answer)
}

func parseStructuredPrompt(raw, instruction string) string {
	return fmt.Sprintf(`Ты парсер текстовых данных в JSON.

ЗАДАЧА:
%s

ТЕКСТ ПОЛЬЗОВАТЕЛЯ:
%s

ВАЖНО:
1. Извлеки все ключевые данные из текста
2. Верни ТОЛЬКО валидный JSON, без дополнительного текста
3. Если данные неясны, делай разумные предположения
4. Сохраняй исходные формулировки пользователя

ФОРМАТ ОТВЕТА: только JSON объект, без markdown кодблоков.
`, instruction, raw)
}

func evaluateStructuredPrompt(step *entity.Step, data json.RawMessage) string {
	var criteria strings.Builder
	for _, name := range sortedKeys(step.EvaluationCriteria) {
		fmt.Fprintf(&criteria, "- %s: %s\n", name, step.EvaluationCriteria[name])
	}

	instruction := ""
	if step.EvaluationPrompt != nil {
		instruction = *step.EvaluationPrompt
	}

	return fmt.Sprintf(`Ты эксперт по оценке заданий онбординга.

ЗАДАНИЕ: %s
%s

%s

КРИТЕРИИ ОЦЕНКИ:
%s
ОТВЕТ ПОЛЬЗОВАТЕЛЯ:
%s

ЗАДАЧА:
1. Оцени ответ по каждому критерию (шкала 1-5)
2. Вычисли общую оценку (среднее)
3. Дай развернутый feedback с рекомендациями

ФОРМАТ ОТВЕТА (строго JSON):
{
    "score": 4.2,
    "criteria_scores": {
        "критерий1": 5,
        "критерий2": 4
    },
    "feedback": "Подробный feedback с тем, что хорошо и что можно улучшить"
}
`, step.Title, step.Description, instruction, criteria.String(), indentJSON(data))
}

func searchMapPrompt(dump entity.SheetDump) string {
	return fmt.Sprintf(`Ты эксперт по подбору персонала. Проанализируй заполненную карту поиска и найди логические несостыковки, ошибки или пропуски.

ДАННЫЕ КАРТЫ ПОИСКА:
%s

ЗАДАЧА:
1. Проверь соответствие требований вакансии и описания должности
2. Проверь логичность hard skills и soft skills
3. Проверь корректность отсекающих факторов
4. Найди противоречия между разными полями
5. Оцени полноту заполнения

ФОРМАТ ОТВЕТА (строго JSON):
{
    "valid": true/false,
    "issues": ["список найденных проблем"],
    "suggestions": ["рекомендации по улучшению"]
}

Если всё заполнено корректно и логично, верни valid: true с пустыми списками.
`, formatSheets(dump))
}

func reportScorePrompt(step *entity.Step, answer string) string {
	return fmt.Sprintf(`Ты наставник HR-стажёра. Оцени ответ стажёра на задание онбординга.

Задание (Шаг %d: %s):
%s

Ответ стажёра:
"""%s"""

Оцени ответ по шкале от 1 до 10 и дай краткий отзыв.

Формат ответа:
Оценка: [число от 1 до 10]
Отзыв: [2-3 предложения с конструктивной обратной связью]
Сильные стороны: [что хорошо]
Что улучшить: [конкретные рекомендации]
`, step.Order, step.Title, step.Description, answer)
}

// formatSheets renders a workbook dump as "=== sheet ===" blocks with one column per line.
func formatSheets(dump entity.SheetDump) string {
	var b strings.Builder
	for _, sheet := range dump {
		fmt.Fprintf(&b, "\n=== %s ===\n", sheet.Name)
		for _, col := range sheet.Columns {
			switch len(col.Values) {
			case 0:
				continue
			case 1:
				fmt.Fprintf(&b, "%s: %s\n", col.Name, col.Values[0])
			default:
				fmt.Fprintf(&b, "%s: [%s]\n", col.Name, strings.Join(col.Values, "; "))
			}
		}
	}
	return b.String()
}

func indentJSON(data json.RawMessage) string {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return string(data)
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return string(data)
	}
	return string(out)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
