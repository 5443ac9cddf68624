// Package admission turns tokenized HL7 messages into typed hospice
// admission values. Parsing is strict about the fields the rest of the
// pipeline depends on: a clinically meaningful field that is missing or
// uninterpretable fails with a typed error instead of defaulting silently.
package admission

import (
	"strings"

	"github.com/hospicebridge/adtbridge/lib/hl7"
)

// DefaultTriggerEvent is the only message type this service handles unless
// the deployment configures compatible additions (e.g. ADT^A04).
const DefaultTriggerEvent = "ADT^A01"

// Config declares which MSH-9 trigger events the parser accepts.
type Config struct {
	TriggerEvents []string `koanf:"triggerevents"`
}

func DefaultConfig() Config {
	return Config{TriggerEvents: []string{DefaultTriggerEvent}}
}

// Parser validates and extracts admission messages. It holds only immutable
// configuration and is safe for concurrent use.
type Parser struct {
	triggerEvents map[string]struct{}
}

func NewParser(config Config) *Parser {
	events := config.TriggerEvents
	if len(events) == 0 {
		events = []string{DefaultTriggerEvent}
	}
	allowed := make(map[string]struct{}, len(events))
	for _, event := range events {
		allowed[strings.ToUpper(strings.TrimSpace(event))] = struct{}{}
	}
	return &Parser{triggerEvents: allowed}
}

// Parse validates segment presence and extracts a typed admission message.
// It is a pure function of its input: no clock, no I/O.
func (p *Parser) Parse(msg hl7.Message) (Message, error) {
	msh, ok := msg.Segment("MSH")
	if !ok {
		return Message{}, missingSegment("MSH")
	}
	triggerEvent := canonicalMessageType(msh.Field(9))
	if _, ok := p.triggerEvents[triggerEvent]; !ok {
		return Message{}, unsupportedMessageType(triggerEvent)
	}

	pid, ok := msg.Segment("PID")
	if !ok {
		return Message{}, missingSegment("PID")
	}
	pv1, ok := msg.Segment("PV1")
	if !ok {
		return Message{}, missingSegment("PV1")
	}

	result := Message{
		MessageControlID: msh.Field(10).Value(),
		TriggerEvent:     triggerEvent,
	}

	result.PatientID = pid.Field(3).Value()
	if result.PatientID == "" {
		return Message{}, missingRequiredValue("PID-3")
	}

	name := pid.Field(5).First()
	result.FamilyName = name.Component(1)
	result.GivenName = name.Component(2)

	if dobField := pid.Field(7); !dobField.Empty() {
		dob, err := hl7.ParseDate(dobField.Value())
		if err != nil {
			return Message{}, invalidField("PID-7", err)
		}
		result.DateOfBirth = &dob
	}

	sex, err := parseSex(pid.Field(8).Value())
	if err != nil {
		return Message{}, err
	}
	result.Sex = sex

	result.Address = parseAddress(pid.Field(11))
	result.Phone = pid.Field(13).Value()

	result.AdmissionType = pv1.Field(4).Value()
	result.AdmissionSource = pv1.Field(14).Value()
	result.AttendingProvider = parseProvider(pv1.Field(7))

	admitField := pv1.Field(44)
	if admitField.Empty() {
		return Message{}, missingRequiredValue("PV1-44")
	}
	admitTime, err := hl7.ParseDateTime(admitField.Value())
	if err != nil {
		return Message{}, invalidField("PV1-44", err)
	}
	result.AdmitTime = admitTime

	if dg1, ok := msg.Segment("DG1"); ok {
		if field := dg1.Field(3); !field.Empty() {
			result.PrimaryDiagnosis = &Diagnosis{
				Code: field.Value(),
				Text: field.First().Component(2),
			}
		}
	}

	for _, nk1 := range msg.All("NK1") {
		name := nk1.Field(2).First()
		result.NextOfKin = append(result.NextOfKin, NextOfKin{
			FamilyName:   name.Component(1),
			GivenName:    name.Component(2),
			Relationship: nk1.Field(3).Value(),
			Phone:        nk1.Field(5).Value(),
		})
	}

	return result, nil
}

// canonicalMessageType renders MSH-9 as TYPE^TRIGGER regardless of the
// message's own component separator, so configured trigger events compare
// against a stable form.
func canonicalMessageType(field hl7.Field) string {
	messageType := strings.ToUpper(field.First().Component(1))
	trigger := strings.ToUpper(field.First().Component(2))
	if trigger == "" {
		return messageType
	}
	return messageType + "^" + trigger
}

// parseSex maps HL7 table 0001 codes onto the internal enumeration. An empty
// field is treated as absent (unknown); a code outside the table is an error
// per the no-silent-defaults rule.
func parseSex(code string) (Sex, error) {
	switch strings.ToUpper(code) {
	case "":
		return SexUnknown, nil
	case "M":
		return SexMale, nil
	case "F":
		return SexFemale, nil
	case "O", "A":
		return SexOther, nil
	case "U", "N":
		return SexUnknown, nil
	}
	return "", invalidField("PID-8", nil)
}

func parseAddress(field hl7.Field) *Address {
	if field.Empty() {
		return nil
	}
	rep := field.First()
	return &Address{
		Street:     rep.Component(1),
		City:       rep.Component(3),
		State:      rep.Component(4),
		PostalCode: rep.Component(5),
	}
}

func parseProvider(field hl7.Field) *Provider {
	if field.Empty() {
		return nil
	}
	rep := field.First()
	return &Provider{
		ID:         rep.Component(1),
		FamilyName: rep.Component(2),
		GivenName:  rep.Component(3),
	}
}
