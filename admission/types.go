package admission

import "time"

// Sex is the administrative sex reported in PID-8.
type Sex string

const (
	SexMale    Sex = "male"
	SexFemale  Sex = "female"
	SexOther   Sex = "other"
	SexUnknown Sex = "unknown"
)

// Message is the typed result of parsing an ADT^A01 message. It is an
// immutable value: every required field (patient ID, admit time) is present
// and well-typed, and optional fields are zero values when the message left
// them empty.
type Message struct {
	// MessageControlID is MSH-10, carried for ACKs and audit logging.
	MessageControlID string
	// TriggerEvent is the canonical MSH-9 value, e.g. "ADT^A01".
	TriggerEvent string

	PatientID   string
	FamilyName  string
	GivenName   string
	DateOfBirth *time.Time
	Sex         Sex
	Address     *Address
	Phone       string

	AdmitTime         time.Time
	AdmissionType     string
	AdmissionSource   string
	AttendingProvider *Provider
	PrimaryDiagnosis  *Diagnosis

	NextOfKin []NextOfKin
}

// Address holds the PID-11 components this service cares about.
type Address struct {
	Street     string
	City       string
	State      string
	PostalCode string
}

// Provider identifies the attending provider from PV1-7.
type Provider struct {
	ID         string
	FamilyName string
	GivenName  string
}

// Diagnosis is the primary diagnosis from DG1-3, when the sender includes one.
type Diagnosis struct {
	Code string
	Text string
}

// NextOfKin is one NK1 entry. NK1 is optional and repeatable.
type NextOfKin struct {
	FamilyName   string
	GivenName    string
	Relationship string
	Phone        string
}
