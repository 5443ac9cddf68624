package hl7

import (
	"errors"
	"strings"
)

// Tokenizer failure modes. These describe structural malformation of the
// wire format; semantic problems are reported by the admission parser.
var (
	// ErrEmptyMessage is returned for blank or whitespace-only input.
	ErrEmptyMessage = errors.New("hl7: empty message")
	// ErrMissingHeader is returned when the message does not begin with an MSH segment.
	ErrMissingHeader = errors.New("hl7: message does not start with MSH segment")
	// ErrMalformedDelimiters is returned when the MSH header declares fewer
	// than the four required encoding characters.
	ErrMalformedDelimiters = errors.New("hl7: MSH header declares fewer than 4 encoding characters")
)

const headerPrefix = "MSH"

// The MSH segment plus field separator plus four encoding characters.
const minHeaderLength = len(headerPrefix) + 5

// Parse tokenizes a raw HL7v2 message into segments, fields, components and
// subcomponents, using the delimiters the message declares in its own MSH
// header. It is a pure function: no side effects, no normalization of field
// content beyond splitting.
//
// Segment terminators are tolerated in any of the common forms (\r, \n,
// \r\n), and leading/trailing whitespace around the message and around
// individual segments is ignored. Many integration engines and test tools
// send \n-separated messages even though the standard mandates \r.
func Parse(raw string) (Message, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Message{}, ErrEmptyMessage
	}
	if !strings.HasPrefix(trimmed, headerPrefix) {
		return Message{}, ErrMissingHeader
	}
	// The delimiter declaration must fit on the MSH line itself: measuring
	// against the whole message would let a truncated header adopt the
	// segment terminator, or the first byte of the next segment, as a
	// delimiter.
	header := trimmed
	if idx := strings.IndexAny(trimmed, "\r\n"); idx != -1 {
		header = trimmed[:idx]
	}
	if len(header) < minHeaderLength {
		return Message{}, ErrMalformedDelimiters
	}

	delims := Delimiters{
		Field:        header[3],
		Component:    header[4],
		Repetition:   header[5],
		Escape:       header[6],
		Subcomponent: header[7],
	}
	// The four encoding characters run up to the second field separator; a
	// header like MSH|^~| smuggles a separator into the encoding characters
	// and is rejected rather than guessed at.
	if delims.Component == delims.Field || delims.Repetition == delims.Field ||
		delims.Escape == delims.Field || delims.Subcomponent == delims.Field {
		return Message{}, ErrMalformedDelimiters
	}

	msg := Message{Delimiters: delims}
	for _, line := range splitSegments(trimmed) {
		if line == "" {
			continue
		}
		msg.Segments = append(msg.Segments, tokenizeSegment(line, delims))
	}
	return msg, nil
}

// splitSegments normalizes segment terminators to \n and splits, trimming
// each segment line.
func splitSegments(raw string) []string {
	normalized := strings.ReplaceAll(raw, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")
	lines := strings.Split(normalized, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return lines
}

func tokenizeSegment(line string, d Delimiters) Segment {
	tokens := strings.Split(line, string(d.Field))
	seg := Segment{ID: tokens[0]}

	if seg.ID == headerPrefix {
		// MSH-1 is the field separator itself and MSH-2 the encoding
		// characters; neither is subject to component splitting, otherwise
		// the separators would shred their own declaration.
		seg.fields = append(seg.fields, literalField(string(d.Field)))
		if len(tokens) > 1 {
			seg.fields = append(seg.fields, literalField(tokens[1]))
		}
		for _, tok := range tokens[2:] {
			seg.fields = append(seg.fields, tokenizeField(tok, d))
		}
		return seg
	}

	for _, tok := range tokens[1:] {
		seg.fields = append(seg.fields, tokenizeField(tok, d))
	}
	return seg
}

func tokenizeField(raw string, d Delimiters) Field {
	var field Field
	for _, rep := range strings.Split(raw, string(d.Repetition)) {
		var repetition Repetition
		for _, comp := range strings.Split(rep, string(d.Component)) {
			repetition.Components = append(repetition.Components, Component{
				Subcomponents: strings.Split(comp, string(d.Subcomponent)),
			})
		}
		field.Repetitions = append(field.Repetitions, repetition)
	}
	return field
}

// literalField wraps a raw value as a single-component field without
// splitting it on any separator.
func literalField(value string) Field {
	return Field{Repetitions: []Repetition{{Components: []Component{{Subcomponents: []string{value}}}}}}
}
