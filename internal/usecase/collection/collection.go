// Package collection interprets collection flows one reply at a time.
// It is pure: cursors live in the session state and every call returns the next one.
package collection

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/futig/onboarding-bot/internal/entity"
)

// Keys used in collected structured data.
const (
	ItemNameKey    = "название"
	VariantTextKey = "текст"
	VariantLenKey  = "длина"
)

// Outcome is the result of feeding one reply to a flow.
type Outcome struct {
	Cursor  *entity.CollectionCursor
	Ask     string
	Notices []entity.Notice
	Done    bool
	// Data is the collected result of a finished sequential or dialogue flow.
	// Text parse flows finish with nil Data and the raw reply in Raw.
	Data json.RawMessage
	Raw  string
}

// Start returns the initial cursor and the opening question of flow.
func Start(flow *entity.CollectionFlow) (*entity.CollectionCursor, string) {
	cur := &entity.CollectionCursor{Kind: flow.Kind}
	switch flow.Kind {
	case entity.CollectionSequential:
		cur.Sequential = &entity.SequentialCursor{}
	case entity.CollectionSequentialDialogue:
		cur.Dialogue = &entity.DialogueCursor{}
	}
	return cur, flow.FirstPrompt()
}

// Advance feeds text to flow at cursor. A cursor that does not match the flow is ErrSessionExpired.
func Advance(flow *entity.CollectionFlow, cur *entity.CollectionCursor, text string) (*Outcome, error) {
	if flow == nil || cur == nil || cur.Kind != flow.Kind {
		return nil, fmt.Errorf("%w: collection cursor does not match the step", entity.ErrSessionExpired)
	}

	switch flow.Kind {
	case entity.CollectionTextParse:
		return &Outcome{Cursor: cur, Done: true, Raw: text}, nil
	case entity.CollectionSequential:
		return advanceSequential(flow.Sequential, cur, text)
	case entity.CollectionSequentialDialogue:
		return advanceDialogue(flow.Dialogue, cur, text)
	}
	return nil, fmt.Errorf("%w: %q", entity.ErrInvalidCollectionFlow, flow.Kind)
}

func advanceSequential(flow *entity.SequentialFlow, cur *entity.CollectionCursor, text string) (*Outcome, error) {
	c := cur.Sequential
	if c == nil || c.VariantIndex >= len(flow.Variants) {
		return nil, fmt.Errorf("%w: sequential cursor out of range", entity.ErrSessionExpired)
	}

	variant := flow.Variants[c.VariantIndex]
	length := utf8.RuneCountInString(text)
	c.Collected = append(c.Collected, entity.VariantAnswer{Name: variant.Name, Text: text, Length: length})
	c.VariantIndex++

	out := &Outcome{
		Cursor: cur,
		Notices: []entity.Notice{{
			Kind:   entity.NoticeVariantRecorded,
			Text:   variant.Name,
			Counts: []entity.NamedCount{{Name: variant.Name, Count: length}},
		}},
	}

	if c.VariantIndex < len(flow.Variants) {
		out.Ask = flow.Variants[c.VariantIndex].Prompt
		return out, nil
	}

	summary := entity.Notice{Kind: entity.NoticeCollectionSummary, Text: string(entity.CollectionSequential)}
	var buf orderedObject
	for _, answer := range c.Collected {
		summary.Counts = append(summary.Counts, entity.NamedCount{Name: answer.Name, Count: answer.Length})
		value, err := newOrderedObject().
			set(VariantTextKey, answer.Text).
			set(VariantLenKey, answer.Length).
			bytes()
		if err != nil {
			return nil, err
		}
		buf.setRaw(answer.Name, value)
	}
	data, err := buf.bytes()
	if err != nil {
		return nil, err
	}

	out.Notices = append(out.Notices, summary)
	out.Done = true
	out.Data = data
	return out, nil
}

func advanceDialogue(flow *entity.DialogueFlow, cur *entity.CollectionCursor, text string) (*Outcome, error) {
	c := cur.Dialogue
	if c == nil || c.SectionIndex >= len(flow.Sections) {
		return nil, fmt.Errorf("%w: dialogue cursor out of range", entity.ErrSessionExpired)
	}
	section := flow.Sections[c.SectionIndex]
	out := &Outcome{Cursor: cur}

	if !c.AwaitingFollowUp {
		c.Items = splitItems(text)
		if !section.HasFollowUps() || len(c.Items) == 0 {
			return finishSection(flow, c, section, out)
		}
		c.ItemIndex, c.FollowUpIndex = 0, 0
		c.AwaitingFollowUp = true
		out.Ask = followUpPrompt(c.Items[0].Name, section.FollowUps[0])
		return out, nil
	}

	if c.ItemIndex >= len(c.Items) || c.FollowUpIndex >= len(section.FollowUps) {
		return nil, fmt.Errorf("%w: follow-up cursor out of range", entity.ErrSessionExpired)
	}

	item := &c.Items[c.ItemIndex]
	item.Answers = append(item.Answers, entity.FollowUpAnswer{Field: section.FollowUps[c.FollowUpIndex], Answer: text})

	c.FollowUpIndex++
	if c.FollowUpIndex < len(section.FollowUps) {
		out.Ask = followUpPrompt(item.Name, section.FollowUps[c.FollowUpIndex])
		return out, nil
	}

	c.ItemIndex++
	c.FollowUpIndex = 0
	if c.ItemIndex < len(c.Items) {
		out.Ask = followUpPrompt(c.Items[c.ItemIndex].Name, section.FollowUps[0])
		return out, nil
	}

	return finishSection(flow, c, section, out)
}

// finishSection stores the current items and moves to the next section or completes the flow.
func finishSection(flow *entity.DialogueFlow, c *entity.DialogueCursor, section entity.Section, out *Outcome) (*Outcome, error) {
	c.Sections = append(c.Sections, entity.CollectedSection{
		Name:         section.Name,
		HasFollowUps: section.HasFollowUps(),
		Items:        c.Items,
	})
	c.Items = nil
	c.ItemIndex, c.FollowUpIndex = 0, 0
	c.AwaitingFollowUp = false
	c.SectionIndex++

	if c.SectionIndex < len(flow.Sections) {
		out.Ask = flow.Sections[c.SectionIndex].Prompt
		return out, nil
	}

	summary := entity.Notice{Kind: entity.NoticeCollectionSummary, Text: string(entity.CollectionSequentialDialogue)}
	var buf orderedObject
	for _, s := range c.Sections {
		summary.Counts = append(summary.Counts, entity.NamedCount{Name: s.Name, Count: len(s.Items)})
		value, err := sectionValue(s)
		if err != nil {
			return nil, err
		}
		buf.setRaw(s.Name, value)
	}
	data, err := buf.bytes()
	if err != nil {
		return nil, err
	}

	out.Notices = append(out.Notices, summary)
	out.Done = true
	out.Data = data
	return out, nil
}

// sectionValue is a list of item names, or of item objects when the section asks follow-ups.
func sectionValue(s entity.CollectedSection) (json.RawMessage, error) {
	if !s.HasFollowUps {
		names := make([]string, len(s.Items))
		for i, item := range s.Items {
			names[i] = item.Name
		}
		return json.Marshal(names)
	}

	items := make([]json.RawMessage, len(s.Items))
	for i, item := range s.Items {
		obj := newOrderedObject().set(ItemNameKey, item.Name)
		for _, a := range item.Answers {
			obj.set(a.Field, a.Answer)
		}
		raw, err := obj.bytes()
		if err != nil {
			return nil, err
		}
		items[i] = raw
	}
	return json.Marshal(items)
}

// splitItems tokenises a comma separated list, dropping empty tokens.
func splitItems(text string) []entity.DialogueItem {
	var items []entity.DialogueItem
	for _, token := range strings.Split(text, ",") {
		if name := strings.TrimSpace(token); name != "" {
			items = append(items, entity.DialogueItem{Name: name})
		}
	}
	return items
}

func followUpPrompt(item, followUp string) string {
	return fmt.Sprintf("Для '%s' - %s?", item, followUp)
}

// orderedObject builds a JSON object that keeps insertion order of keys.
type orderedObject struct {
	keys   []string
	values []any
}

func newOrderedObject() *orderedObject {
	return &orderedObject{}
}

func (o *orderedObject) set(key string, value any) *orderedObject {
	o.keys = append(o.keys, key)
	o.values = append(o.values, value)
	return o
}

func (o *orderedObject) setRaw(key string, value json.RawMessage) {
	o.set(key, value)
}

func (o *orderedObject) bytes() (json.RawMessage, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(o.values[i])
		if err != nil {
			return nil, fmt.Errorf("encode %q: %w", key, err)
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
