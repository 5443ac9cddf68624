package hl7

import "strings"

// Delimiters holds the separator set a message declares in its MSH header.
// HL7v2 messages are self-describing: the character following "MSH" is the
// field separator, and the next four characters define the component,
// repetition, escape and subcomponent separators, in that order.
type Delimiters struct {
	Field        byte
	Component    byte
	Repetition   byte
	Escape       byte
	Subcomponent byte
}

// DefaultDelimiters returns the separator set used by virtually all HL7v2
// senders: |^~\&
func DefaultDelimiters() Delimiters {
	return Delimiters{
		Field:        '|',
		Component:    '^',
		Repetition:   '~',
		Escape:       '\\',
		Subcomponent: '&',
	}
}

// EncodingCharacters returns the MSH-2 value for this delimiter set.
func (d Delimiters) EncodingCharacters() string {
	return string([]byte{d.Component, d.Repetition, d.Escape, d.Subcomponent})
}

// Message is a tokenized HL7v2 message: an ordered sequence of segments plus
// the delimiter set they were split with. Messages are not mutated after
// tokenization.
type Message struct {
	Delimiters Delimiters
	Segments   []Segment
}

// Segment returns the first segment with the given 3-character ID.
func (m Message) Segment(id string) (Segment, bool) {
	for _, seg := range m.Segments {
		if seg.ID == id {
			return seg, true
		}
	}
	return Segment{}, false
}

// All returns every segment with the given ID, in message order.
// Used for repeatable segments such as NK1.
func (m Message) All(id string) []Segment {
	var result []Segment
	for _, seg := range m.Segments {
		if seg.ID == id {
			result = append(result, seg)
		}
	}
	return result
}

// Segment is one line of the message: a 3-character identifier followed by
// an ordered sequence of fields.
type Segment struct {
	ID     string
	fields []Field
}

// Field returns the field at the given 1-based position, following HL7
// numbering conventions: for MSH segments field 1 is the field separator
// itself, so MSH-9 in a tokenized segment is the ninth field as written in
// the standard, not the ninth token on the line. Out-of-range positions
// return a zero Field, which reads as an empty value.
func (s Segment) Field(position int) Field {
	idx := position - 1
	if idx < 0 || idx >= len(s.fields) {
		return Field{}
	}
	return s.fields[idx]
}

// NumFields returns the number of field positions present in the segment.
func (s Segment) NumFields() int {
	return len(s.fields)
}

// Field is one field position. A field may repeat; repetitions beyond the
// first are preserved in full.
type Field struct {
	Repetitions []Repetition
}

// First returns the first repetition.
func (f Field) First() Repetition {
	if len(f.Repetitions) == 0 {
		return Repetition{}
	}
	return f.Repetitions[0]
}

// Value returns the leading subcomponent of the leading component of the
// first repetition, trimmed. This is the common case of a simple field.
func (f Field) Value() string {
	return f.First().Component(1)
}

// Empty reports whether the field carries no value at all.
func (f Field) Empty() bool {
	for _, rep := range f.Repetitions {
		for _, comp := range rep.Components {
			for _, sub := range comp.Subcomponents {
				if strings.TrimSpace(sub) != "" {
					return false
				}
			}
		}
	}
	return true
}

// Repetition is one occurrence of a field: an ordered sequence of components.
type Repetition struct {
	Components []Component
}

// Component returns the leading subcomponent of the component at the given
// 1-based position, trimmed. Missing components read as "".
func (r Repetition) Component(position int) string {
	idx := position - 1
	if idx < 0 || idx >= len(r.Components) {
		return ""
	}
	if len(r.Components[idx].Subcomponents) == 0 {
		return ""
	}
	return strings.TrimSpace(r.Components[idx].Subcomponents[0])
}

// Component is an ordered sequence of subcomponents; all leaf values are
// strings. Escape sequences are preserved verbatim.
type Component struct {
	Subcomponents []string
}
