// Package llmparse extracts machine-readable values from free-form model output.
package llmparse

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// Score bounds of live evaluation and report scoring.
const (
	LiveMin   = 1.0
	LiveMax   = 5.0
	ReportMin = 1.0
	ReportMax = 10.0

	// DefaultReportScore is used when no number can be found in the reply.
	DefaultReportScore = 5.0
)

var (
	liveDigitRe    = regexp.MustCompile(`[1-5]`)
	reportLabelRe  = regexp.MustCompile(`(?i)Оценка:\s*([0-9]+(?:[.,][0-9]+)?)`)
	reportNumberRe = regexp.MustCompile(`(?:^|[^0-9])((?:10|[1-9])(?:[.,][0-9])?)(?:[^0-9]|$)`)
)

// ExtractLiveScore returns the first digit 1-5 found in text, or nil.
func ExtractLiveScore(text string) *float64 {
	match := liveDigitRe.FindString(text)
	if match == "" {
		return nil
	}
	score, _ := strconv.ParseFloat(match, 64)
	return &score
}

// ExtractReportScore looks for "Оценка: X" first and then for the first
// standalone number from 1 to 10. The result is clamped to [1,10];
// DefaultReportScore is returned when nothing matches.
func ExtractReportScore(text string) float64 {
	if m := reportLabelRe.FindStringSubmatch(text); m != nil {
		if score, ok := parseDecimal(m[1]); ok {
			return ClampReport(score)
		}
	}
	if m := reportNumberRe.FindStringSubmatch(text); m != nil {
		if score, ok := parseDecimal(m[1]); ok {
			return ClampReport(score)
		}
	}
	return DefaultReportScore
}

func ClampLive(score float64) float64 {
	return clamp(score, LiveMin, LiveMax)
}

func ClampReport(score float64) float64 {
	return clamp(score, ReportMin, ReportMax)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func parseDecimal(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	return v, err == nil
}

// StripCodeFence removes a markdown code fence around a model reply.
// A ```json fence takes precedence over a bare ``` fence.
func StripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if i := strings.Index(text, "```json"); i >= 0 {
		rest := text[i+len("```json"):]
		if j := strings.Index(rest, "```"); j >= 0 {
			rest = rest[:j]
		}
		return strings.TrimSpace(rest)
	}
	if i := strings.Index(text, "```"); i >= 0 {
		rest := text[i+3:]
		if j := strings.Index(rest, "```"); j >= 0 {
			rest = rest[:j]
		}
		return strings.TrimSpace(rest)
	}
	return text
}

// DecodeJSON strips a code fence and unmarshals the remaining text into v.
func DecodeJSON(text string, v any) error {
	return json.Unmarshal([]byte(StripCodeFence(text)), v)
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
