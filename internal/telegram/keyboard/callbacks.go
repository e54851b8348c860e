package keyboard

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/futig/onboarding-bot/internal/entity"
)

// Callback actions
const (
	ActionStep   = "step"
	ActionReview = "review"
	ActionMenu   = "action"
)

// Values of ActionMenu
const (
	MenuOnboarding = "onboarding"
	MenuReport     = "report"
	MenuSummary    = "summary"
	MenuExpert     = "expert"
)

// ReviewCancel is the ActionReview value that leaves the grading phase.
const ReviewCancel = "cancel"

// CallbackData represents parsed callback data
type CallbackData struct {
	Action string // "step", "review", "action"
	Value  string // The parameter
}

// ParseCallback parses callback data string
func ParseCallback(data string) (*CallbackData, error) {
	parts := strings.SplitN(data, ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return nil, fmt.Errorf("invalid callback format: %s", data)
	}

	return &CallbackData{
		Action: parts[0],
		Value:  parts[1],
	}, nil
}

// EncodeCallback creates callback data string
func EncodeCallback(action, value string) string {
	return fmt.Sprintf("%s:%s", action, value)
}

// EncodeStepSignal binds a step button to the step it was shown for: "step:<signal>:<step id>".
func EncodeStepSignal(signal entity.Signal, stepID int64) string {
	return EncodeCallback(ActionStep, fmt.Sprintf("%s:%d", signal, stepID))
}

// StepSignal maps a step button to the engine signal and the step it belongs to.
// ok is false for anything else, including buttons without a step id.
func (c *CallbackData) StepSignal() (entity.Signal, int64, bool) {
	if c.Action != ActionStep {
		return entity.SignalNone, 0, false
	}
	name, rawID, found := strings.Cut(c.Value, ":")
	if !found {
		return entity.SignalNone, 0, false
	}
	stepID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || stepID <= 0 {
		return entity.SignalNone, 0, false
	}
	switch s := entity.Signal(name); s {
	case entity.SignalDone, entity.SignalEvaluate, entity.SignalSkip:
		return s, stepID, true
	}
	return entity.SignalNone, 0, false
}
