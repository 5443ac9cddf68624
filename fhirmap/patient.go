// Package fhirmap renders parsed admissions and derived episode state as
// FHIR R4 Patient resources. Mapping is total: already-validated input
// always produces a resource, and values the mapper cannot place (such as an
// unmapped sex code) degrade to FHIR's "unknown" rather than failing, since
// this is the terminal stage of the pipeline.
package fhirmap

import (
	"time"

	"github.com/zorgbijjou/golang-fhir-models/fhir-models/fhir"

	"github.com/hospicebridge/adtbridge/admission"
	"github.com/hospicebridge/adtbridge/episode"
	"github.com/hospicebridge/adtbridge/lib/coding"
	"github.com/hospicebridge/adtbridge/lib/to"
)

const (
	// DefaultIdentifierSystem is the system URI for patient identifiers (MRNs).
	DefaultIdentifierSystem = "http://hospital.org/mrn"
	// DefaultExtensionBase is the namespace for the hospice episode
	// extensions; core FHIR Patient has no native field for episode state.
	DefaultExtensionBase = "http://hospice.example.org/StructureDefinition"
)

const (
	fhirDateLayout = "2006-01-02"
)

// Config holds the deployment-specific URIs the mapper emits.
type Config struct {
	IdentifierSystem string `koanf:"identifiersystem"`
	ExtensionBase    string `koanf:"extensionbase"`
}

func DefaultConfig() Config {
	return Config{
		IdentifierSystem: DefaultIdentifierSystem,
		ExtensionBase:    DefaultExtensionBase,
	}
}

// Mapper builds Patient resources. Immutable after construction.
type Mapper struct {
	identifierSystem string
	extensionBase    string
}

func New(config Config) *Mapper {
	if config.IdentifierSystem == "" {
		config.IdentifierSystem = DefaultIdentifierSystem
	}
	if config.ExtensionBase == "" {
		config.ExtensionBase = DefaultExtensionBase
	}
	return &Mapper{
		identifierSystem: config.IdentifierSystem,
		extensionBase:    config.ExtensionBase,
	}
}

// Patient maps one admission plus its derived episode attributes onto a FHIR
// Patient. Each resource traces back to exactly one admission message; no
// merging happens here.
func (m *Mapper) Patient(adm admission.Message, ep episode.Attributes) fhir.Patient {
	patient := fhir.Patient{
		Active: to.Ptr(true),
		Identifier: []fhir.Identifier{
			{
				System: to.Ptr(m.identifierSystem),
				Value:  to.Ptr(adm.PatientID),
			},
		},
		Name: []fhir.HumanName{
			{
				Use:    to.Ptr(fhir.NameUseOfficial),
				Family: to.Ptr(adm.FamilyName),
				Given:  []string{adm.GivenName},
			},
		},
		Gender: to.Ptr(gender(adm.Sex)),
	}

	if adm.DateOfBirth != nil {
		patient.BirthDate = to.Ptr(adm.DateOfBirth.Format(fhirDateLayout))
	}
	if adm.Address != nil {
		patient.Address = []fhir.Address{address(*adm.Address)}
	}
	if adm.Phone != "" {
		patient.Telecom = []fhir.ContactPoint{
			{
				System: to.Ptr(fhir.ContactPointSystemPhone),
				Value:  to.Ptr(adm.Phone),
				Use:    to.Ptr(fhir.ContactPointUseHome),
			},
		}
	}

	for _, nok := range adm.NextOfKin {
		patient.Contact = append(patient.Contact, contact(nok))
	}

	patient.Extension = m.episodeExtensions(adm, ep)
	return patient
}

func contact(nok admission.NextOfKin) fhir.PatientContact {
	name := &fhir.HumanName{}
	if nok.FamilyName != "" {
		name.Family = to.Ptr(nok.FamilyName)
	}
	if nok.GivenName != "" {
		name.Given = []string{nok.GivenName}
	}
	result := fhir.PatientContact{Name: name}
	if nok.Relationship != "" {
		result.Relationship = []fhir.CodeableConcept{
			coding.Concept(coding.RelationshipSystem, nok.Relationship),
		}
	}
	if nok.Phone != "" {
		result.Telecom = []fhir.ContactPoint{
			{
				System: to.Ptr(fhir.ContactPointSystemPhone),
				Value:  to.Ptr(nok.Phone),
			},
		}
	}
	return result
}

// episodeExtensions carries the hospice episode metadata, one extension per
// derived attribute, under the configured namespace.
func (m *Mapper) episodeExtensions(adm admission.Message, ep episode.Attributes) []fhir.Extension {
	extensions := []fhir.Extension{
		{Url: m.extensionBase + "/episode-classification", ValueString: to.Ptr(string(ep.Classification))},
		{Url: m.extensionBase + "/episode-status", ValueString: to.Ptr(ep.Status)},
		{Url: m.extensionBase + "/episode-effective-date", ValueDate: to.Ptr(ep.EffectiveDate.Format(fhirDateLayout))},
		{Url: m.extensionBase + "/used-fallback-date", ValueBoolean: to.Ptr(ep.UsedFallbackDate)},
		{Url: m.extensionBase + "/eob-workflow-triggered", ValueBoolean: to.Ptr(ep.EOBTriggered)},
		{Url: m.extensionBase + "/eob-trigger-reason", ValueString: to.Ptr(ep.EOBReason)},
		{Url: m.extensionBase + "/eob-event", ValueInteger: to.Ptr(ep.EOBEvent)},
		{Url: m.extensionBase + "/eob-stage", ValueInteger: to.Ptr(ep.EOBStage)},
		{Url: m.extensionBase + "/soc-roc-completed", ValueBoolean: to.Ptr(ep.SOCROCCompleted)},
	}
	if !adm.AdmitTime.IsZero() {
		extensions = append(extensions, fhir.Extension{
			Url:           m.extensionBase + "/admit-timestamp",
			ValueDateTime: to.Ptr(adm.AdmitTime.UTC().Format(time.RFC3339)),
		})
	}
	return extensions
}

// gender maps the internal sex enumeration onto the FHIR administrative
// gender code set. Anything unrecognized maps to unknown, never an error.
func gender(sex admission.Sex) fhir.AdministrativeGender {
	switch sex {
	case admission.SexMale:
		return fhir.AdministrativeGenderMale
	case admission.SexFemale:
		return fhir.AdministrativeGenderFemale
	case admission.SexOther:
		return fhir.AdministrativeGenderOther
	default:
		return fhir.AdministrativeGenderUnknown
	}
}

func address(addr admission.Address) fhir.Address {
	result := fhir.Address{Use: to.Ptr(fhir.AddressUseHome)}
	if addr.Street != "" {
		result.Line = []string{addr.Street}
	}
	if addr.City != "" {
		result.City = to.Ptr(addr.City)
	}
	if addr.State != "" {
		result.State = to.Ptr(addr.State)
	}
	if addr.PostalCode != "" {
		result.PostalCode = to.Ptr(addr.PostalCode)
	}
	return result
}
