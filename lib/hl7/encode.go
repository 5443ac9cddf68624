package hl7

import "strings"

// SegmentTerminator is the terminator the standard mandates between segments.
const SegmentTerminator = "\r"

// Encode renders a tokenized message back to wire form using its own
// delimiter set. Parsing a syntactically valid message and encoding it again
// reproduces the original field content, which keeps the tokenizer honest
// about not dropping repetitions or subcomponents.
func Encode(msg Message) string {
	var b strings.Builder
	for i, seg := range msg.Segments {
		if i > 0 {
			b.WriteString(SegmentTerminator)
		}
		encodeSegment(&b, seg, msg.Delimiters)
	}
	return b.String()
}

func encodeSegment(b *strings.Builder, seg Segment, d Delimiters) {
	b.WriteString(seg.ID)
	fields := seg.fields
	if seg.ID == headerPrefix && len(fields) > 0 {
		// MSH-1 is the field separator itself; writing it as a regular
		// field would double it on the wire.
		fields = fields[1:]
	}
	for _, field := range fields {
		b.WriteByte(d.Field)
		encodeField(b, field, d)
	}
}

func encodeField(b *strings.Builder, field Field, d Delimiters) {
	for i, rep := range field.Repetitions {
		if i > 0 {
			b.WriteByte(d.Repetition)
		}
		for j, comp := range rep.Components {
			if j > 0 {
				b.WriteByte(d.Component)
			}
			b.WriteString(strings.Join(comp.Subcomponents, string(d.Subcomponent)))
		}
	}
}
