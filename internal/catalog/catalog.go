// Package catalog loads the onboarding curriculum shipped with the binary.
package catalog

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"github.com/futig/onboarding-bot/internal/entity"
	"gopkg.in/yaml.v3"
)

//go:embed curriculum.yaml
var curriculumYAML []byte

type curriculumFile struct {
	Steps []stepSpec `yaml:"steps"`
}

type stepSpec struct {
	Order              int                        `yaml:"order"`
	Title              string                     `yaml:"title"`
	Description        string                     `yaml:"description"`
	Type               string                     `yaml:"type"`
	Duration           int                        `yaml:"duration"`
	URL                string                     `yaml:"url"`
	Competency         string                     `yaml:"competency"`
	CollectionFlow     *entity.CollectionFlowSpec `yaml:"collection_flow"`
	EvaluationPrompt   string                     `yaml:"evaluation_prompt"`
	EvaluationCriteria map[string]string          `yaml:"evaluation_criteria"`
	PassingScore       *float64                   `yaml:"passing_score"`
}

// Load parses the embedded curriculum.
func Load() ([]entity.Step, error) {
	return Parse(curriculumYAML)
}

// Parse decodes and validates a curriculum document. Steps are returned
// sorted by order. Any invalid step fails the whole catalog.
func Parse(data []byte) ([]entity.Step, error) {
	var file curriculumFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode curriculum: %w", err)
	}
	if len(file.Steps) == 0 {
		return nil, entity.ErrEmptyCatalog
	}

	steps := make([]entity.Step, 0, len(file.Steps))
	orders := make(map[int]bool, len(file.Steps))
	for _, spec := range file.Steps {
		step, err := spec.toStep()
		if err != nil {
			return nil, err
		}
		if orders[step.Order] {
			return nil, fmt.Errorf("%w: duplicate step order %d", entity.ErrInvalidParameter, step.Order)
		}
		orders[step.Order] = true
		steps = append(steps, step)
	}

	sort.Slice(steps, func(i, j int) bool { return steps[i].Order < steps[j].Order })
	return steps, nil
}

func (s stepSpec) toStep() (entity.Step, error) {
	step := entity.Step{
		Order:              s.Order,
		Title:              strings.TrimSpace(s.Title),
		Description:        strings.TrimSpace(s.Description),
		Type:               entity.StepType(s.Type),
		EstimatedDuration:  s.Duration,
		EvaluationCriteria: s.EvaluationCriteria,
		PassingScore:       entity.DefaultPassingScore,
		Competency:         s.Competency,
	}
	if s.URL != "" {
		url := s.URL
		step.ContentURL = &url
	}
	if prompt := strings.TrimSpace(s.EvaluationPrompt); prompt != "" {
		step.EvaluationPrompt = &prompt
	}
	if s.PassingScore != nil {
		step.PassingScore = *s.PassingScore
	}
	if s.CollectionFlow != nil {
		flow, err := s.CollectionFlow.Build()
		if err != nil {
			return entity.Step{}, fmt.Errorf("step %d: %w", s.Order, err)
		}
		step.Collection = flow
	}

	if err := step.Validate(); err != nil {
		return entity.Step{}, err
	}
	return step, nil
}
