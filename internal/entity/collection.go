package entity

import (
	"encoding/json"
	"fmt"
	"strings"
)

type CollectionKind string

const (
	CollectionTextParse          CollectionKind = "text_parse"
	CollectionSequential         CollectionKind = "sequential"
	CollectionSequentialDialogue CollectionKind = "sequential_dialogue"
)

// CollectionFlow is a parsed collection_flow configuration.
// Exactly one of TextParse, Sequential and Dialogue is set, matching Kind.
type CollectionFlow struct {
	Kind       CollectionKind
	TextParse  *TextParseFlow
	Sequential *SequentialFlow
	Dialogue   *DialogueFlow
}

type TextParseFlow struct {
	Prompt           string
	ParseInstruction string
}

type SequentialFlow struct {
	Variants []Variant
}

type Variant struct {
	Name   string
	Prompt string
}

type DialogueFlow struct {
	Sections []Section
}

type Section struct {
	Name      string
	Prompt    string
	FollowUps []string
}

func (s Section) HasFollowUps() bool {
	return len(s.FollowUps) > 0
}

// CollectionFlowSpec is the serialized form of a collection flow,
// shared by the catalog file and the steps.collection_flow column.
type CollectionFlowSpec struct {
	Type             string        `json:"type" yaml:"type"`
	Prompt           string        `json:"prompt,omitempty" yaml:"prompt,omitempty"`
	ParseInstruction string        `json:"parse_instruction,omitempty" yaml:"parse_instruction,omitempty"`
	Variants         []VariantSpec `json:"variants,omitempty" yaml:"variants,omitempty"`
	Sections         []SectionSpec `json:"sections,omitempty" yaml:"sections,omitempty"`
}

type VariantSpec struct {
	Name   string `json:"name" yaml:"name"`
	Prompt string `json:"prompt" yaml:"prompt"`
}

type SectionSpec struct {
	Name     string   `json:"name" yaml:"name"`
	Prompt   string   `json:"prompt" yaml:"prompt"`
	FollowUp []string `json:"follow_up,omitempty" yaml:"follow_up,omitempty"`
}

const defaultCollectionPrompt = "Введите данные:"

// Build converts the serialized form into a validated CollectionFlow.
func (s CollectionFlowSpec) Build() (*CollectionFlow, error) {
	kind := CollectionKind(s.Type)
	if kind == "" {
		kind = CollectionTextParse
	}

	flow := &CollectionFlow{Kind: kind}
	switch kind {
	case CollectionTextParse:
		flow.TextParse = &TextParseFlow{
			Prompt:           orDefault(s.Prompt, defaultCollectionPrompt),
			ParseInstruction: s.ParseInstruction,
		}
	case CollectionSequential:
		variants := make([]Variant, 0, len(s.Variants))
		for _, v := range s.Variants {
			variants = append(variants, Variant{Name: v.Name, Prompt: orDefault(v.Prompt, defaultCollectionPrompt)})
		}
		flow.Sequential = &SequentialFlow{Variants: variants}
	case CollectionSequentialDialogue:
		sections := make([]Section, 0, len(s.Sections))
		for _, sec := range s.Sections {
			followUps := make([]string, 0, len(sec.FollowUp))
			for _, f := range sec.FollowUp {
				if f = strings.TrimSpace(f); f != "" {
					followUps = append(followUps, f)
				}
			}
			sections = append(sections, Section{
				Name:      sec.Name,
				Prompt:    orDefault(sec.Prompt, defaultCollectionPrompt),
				FollowUps: followUps,
			})
		}
		flow.Dialogue = &DialogueFlow{Sections: sections}
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidCollectionFlow, s.Type)
	}

	if err := flow.Validate(); err != nil {
		return nil, err
	}
	return flow, nil
}

// Spec returns the serialized form of the flow.
func (f *CollectionFlow) Spec() CollectionFlowSpec {
	spec := CollectionFlowSpec{Type: string(f.Kind)}
	switch f.Kind {
	case CollectionTextParse:
		spec.Prompt = f.TextParse.Prompt
		spec.ParseInstruction = f.TextParse.ParseInstruction
	case CollectionSequential:
		for _, v := range f.Sequential.Variants {
			spec.Variants = append(spec.Variants, VariantSpec{Name: v.Name, Prompt: v.Prompt})
		}
	case CollectionSequentialDialogue:
		for _, s := range f.Dialogue.Sections {
			spec.Sections = append(spec.Sections, SectionSpec{Name: s.Name, Prompt: s.Prompt, FollowUp: s.FollowUps})
		}
	}
	return spec
}

func (f *CollectionFlow) Validate() error {
	switch f.Kind {
	case CollectionTextParse:
		if f.TextParse == nil {
			return fmt.Errorf("%w: text_parse configuration missing", ErrInvalidCollectionFlow)
		}
	case CollectionSequential:
		if f.Sequential == nil || len(f.Sequential.Variants) == 0 {
			return fmt.Errorf("%w: sequential flow has no variants", ErrInvalidCollectionFlow)
		}
		seen := make(map[string]bool, len(f.Sequential.Variants))
		for i, v := range f.Sequential.Variants {
			if v.Name == "" {
				return fmt.Errorf("%w: variant %d has no name", ErrInvalidCollectionFlow, i)
			}
			if seen[v.Name] {
				return fmt.Errorf("%w: duplicate variant %q", ErrInvalidCollectionFlow, v.Name)
			}
			seen[v.Name] = true
		}
	case CollectionSequentialDialogue:
		if f.Dialogue == nil || len(f.Dialogue.Sections) == 0 {
			return fmt.Errorf("%w: sequential_dialogue flow has no sections", ErrInvalidCollectionFlow)
		}
		seen := make(map[string]bool, len(f.Dialogue.Sections))
		for i, s := range f.Dialogue.Sections {
			if s.Name == "" {
				return fmt.Errorf("%w: section %d has no name", ErrInvalidCollectionFlow, i)
			}
			if seen[s.Name] {
				return fmt.Errorf("%w: duplicate section %q", ErrInvalidCollectionFlow, s.Name)
			}
			seen[s.Name] = true
		}
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidCollectionFlow, f.Kind)
	}
	return nil
}

// FirstPrompt returns the question that opens the collection dialogue.
func (f *CollectionFlow) FirstPrompt() string {
	switch f.Kind {
	case CollectionTextParse:
		return f.TextParse.Prompt
	case CollectionSequential:
		return f.Sequential.Variants[0].Prompt
	case CollectionSequentialDialogue:
		return f.Dialogue.Sections[0].Prompt
	}
	return ""
}

func (f *CollectionFlow) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.Spec())
}

func (f *CollectionFlow) UnmarshalJSON(data []byte) error {
	var spec CollectionFlowSpec
	if err := json.Unmarshal(data, &spec); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCollectionFlow, err)
	}
	built, err := spec.Build()
	if err != nil {
		return err
	}
	*f = *built
	return nil
}

// ParseCollectionFlow decodes a stored collection_flow blob. Empty input yields nil.
func ParseCollectionFlow(data []byte) (*CollectionFlow, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, nil
	}
	var flow CollectionFlow
	if err := json.Unmarshal(data, &flow); err != nil {
		return nil, err
	}
	return &flow, nil
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
