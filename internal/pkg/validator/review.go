package validator

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/futig/onboarding-bot/internal/entity"
)

// Expert grade bounds
const (
	MinExpertScore = 1
	MaxExpertScore = 5
)

// ParseGrade splits an expert message "<score 1-5> <comment>".
func ParseGrade(text string) (int, string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, "", fmt.Errorf("%w: grade", entity.ErrMissingField)
	}

	head, comment, _ := strings.Cut(text, " ")
	score, err := strconv.Atoi(strings.TrimSpace(head))
	if err != nil {
		return 0, "", fmt.Errorf("%w: score must be a number, got %q", entity.ErrInvalidScore, head)
	}
	if err := ValidateExpertScore(score); err != nil {
		return 0, "", err
	}

	return score, strings.TrimSpace(comment), nil
}

func ValidateExpertScore(score int) error {
	if score < MinExpertScore || score > MaxExpertScore {
		return fmt.Errorf("%w: must be between %d and %d, got %d", entity.ErrInvalidScore, MinExpertScore, MaxExpertScore, score)
	}
	return nil
}

// ValidateReview validates a review submitted through the HTTP API
func (v *Validator) ValidateReview(req *entity.ReviewRequest) error {
	if req.ReviewerTelegramID == 0 {
		return fmt.Errorf("%w: reviewer_telegram_id", entity.ErrMissingField)
	}
	return ValidateExpertScore(req.Score)
}
