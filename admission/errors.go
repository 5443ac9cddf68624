package admission

import "fmt"

// ParseErrorKind classifies semantic malformation of an otherwise
// well-formed HL7 message.
type ParseErrorKind string

const (
	// KindUnsupportedMessageType means MSH-9 is not one of the configured trigger events.
	KindUnsupportedMessageType ParseErrorKind = "unsupported-message-type"
	// KindMissingSegment means a required segment (PID, PV1) is absent.
	KindMissingSegment ParseErrorKind = "missing-segment"
	// KindInvalidField means a field is present but its value cannot be interpreted.
	KindInvalidField ParseErrorKind = "invalid-field"
	// KindMissingRequiredValue means a clinically required field is absent or empty.
	KindMissingRequiredValue ParseErrorKind = "missing-required-value"
)

// ParseError is the typed failure returned by Parse. Ref names the segment
// (e.g. "PID") or field (e.g. "PID-7") the error is about, so callers can
// report precisely which part of the message was rejected.
type ParseError struct {
	Kind  ParseErrorKind
	Ref   string
	Cause error
}

func (e *ParseError) Error() string {
	switch e.Kind {
	case KindUnsupportedMessageType:
		return fmt.Sprintf("admission: unsupported message type %q", e.Ref)
	case KindMissingSegment:
		return fmt.Sprintf("admission: missing required segment %s", e.Ref)
	case KindInvalidField:
		if e.Cause != nil {
			return fmt.Sprintf("admission: invalid value in field %s: %v", e.Ref, e.Cause)
		}
		return fmt.Sprintf("admission: invalid value in field %s", e.Ref)
	case KindMissingRequiredValue:
		return fmt.Sprintf("admission: missing required value in field %s", e.Ref)
	}
	return fmt.Sprintf("admission: parse error (%s) in %s", e.Kind, e.Ref)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

func unsupportedMessageType(found string) error {
	return &ParseError{Kind: KindUnsupportedMessageType, Ref: found}
}

func missingSegment(segmentID string) error {
	return &ParseError{Kind: KindMissingSegment, Ref: segmentID}
}

func invalidField(fieldRef string, cause error) error {
	return &ParseError{Kind: KindInvalidField, Ref: fieldRef, Cause: cause}
}

func missingRequiredValue(fieldRef string) error {
	return &ParseError{Kind: KindMissingRequiredValue, Ref: fieldRef}
}
