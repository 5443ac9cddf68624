package fhirmap

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zorgbijjou/golang-fhir-models/fhir-models/fhir"

	"github.com/hospicebridge/adtbridge/admission"
	"github.com/hospicebridge/adtbridge/episode"
	"github.com/hospicebridge/adtbridge/lib/coding"
)

func sampleAdmission() admission.Message {
	dob := time.Date(1940, 1, 2, 0, 0, 0, 0, time.UTC)
	return admission.Message{
		PatientID:   "12345",
		FamilyName:  "DOE",
		GivenName:   "JOHN",
		DateOfBirth: &dob,
		Sex:         admission.SexMale,
		Address: &admission.Address{
			Street:     "123 MAIN ST",
			City:       "SPRINGFIELD",
			State:      "IL",
			PostalCode: "62704",
		},
		Phone:           "555-1234",
		AdmitTime:       time.Date(2024, 8, 15, 10, 0, 0, 0, time.UTC),
		AdmissionType:   "1",
		AdmissionSource: "9",
	}
}

func sampleAttributes() episode.Attributes {
	return episode.Attributes{
		Classification:  episode.ClassificationInitialSOC,
		Status:          episode.StatusCurrent,
		PreviousStatus:  episode.StatusPending,
		EffectiveDate:   time.Date(2024, 8, 15, 0, 0, 0, 0, time.UTC),
		EOBTriggered:    true,
		EOBReason:       episode.ReasonInitialAdmission,
		EOBEvent:        210,
		EOBStage:        2029,
		SOCROCCompleted: true,
	}
}

func extensionByURL(t *testing.T, patient fhir.Patient, url string) fhir.Extension {
	t.Helper()
	for _, ext := range patient.Extension {
		if ext.Url == url {
			return ext
		}
	}
	t.Fatalf("extension %s not found", url)
	return fhir.Extension{}
}

func TestMapper_Patient(t *testing.T) {
	mapper := New(DefaultConfig())

	t.Run("demographics", func(t *testing.T) {
		patient := mapper.Patient(sampleAdmission(), sampleAttributes())

		require.Len(t, patient.Identifier, 1)
		assert.Equal(t, DefaultIdentifierSystem, *patient.Identifier[0].System)
		assert.Equal(t, "12345", *patient.Identifier[0].Value)

		require.Len(t, patient.Name, 1)
		assert.Equal(t, fhir.NameUseOfficial, *patient.Name[0].Use)
		assert.Equal(t, "DOE", *patient.Name[0].Family)
		assert.Equal(t, []string{"JOHN"}, patient.Name[0].Given)

		require.NotNil(t, patient.BirthDate)
		assert.Equal(t, "1940-01-02", *patient.BirthDate)
		require.NotNil(t, patient.Gender)
		assert.Equal(t, fhir.AdministrativeGenderMale, *patient.Gender)
		require.NotNil(t, patient.Active)
		assert.True(t, *patient.Active)

		require.Len(t, patient.Address, 1)
		assert.Equal(t, []string{"123 MAIN ST"}, patient.Address[0].Line)
		assert.Equal(t, "SPRINGFIELD", *patient.Address[0].City)
		require.Len(t, patient.Telecom, 1)
		assert.Equal(t, "555-1234", *patient.Telecom[0].Value)
	})

	t.Run("episode extensions", func(t *testing.T) {
		patient := mapper.Patient(sampleAdmission(), sampleAttributes())

		classification := extensionByURL(t, patient, DefaultExtensionBase+"/episode-classification")
		assert.Equal(t, "Initial-SOC", *classification.ValueString)

		triggered := extensionByURL(t, patient, DefaultExtensionBase+"/eob-workflow-triggered")
		assert.True(t, *triggered.ValueBoolean)

		reason := extensionByURL(t, patient, DefaultExtensionBase+"/eob-trigger-reason")
		assert.Equal(t, episode.ReasonInitialAdmission, *reason.ValueString)

		effective := extensionByURL(t, patient, DefaultExtensionBase+"/episode-effective-date")
		assert.Equal(t, "2024-08-15", *effective.ValueDate)

		fallback := extensionByURL(t, patient, DefaultExtensionBase+"/used-fallback-date")
		assert.False(t, *fallback.ValueBoolean)

		event := extensionByURL(t, patient, DefaultExtensionBase+"/eob-event")
		assert.Equal(t, 210, *event.ValueInteger)

		admit := extensionByURL(t, patient, DefaultExtensionBase+"/admit-timestamp")
		assert.Equal(t, "2024-08-15T10:00:00Z", *admit.ValueDateTime)
	})

	t.Run("optional demographics omitted when absent", func(t *testing.T) {
		adm := sampleAdmission()
		adm.DateOfBirth = nil
		adm.Address = nil
		adm.Phone = ""

		patient := mapper.Patient(adm, sampleAttributes())
		assert.Nil(t, patient.BirthDate)
		assert.Empty(t, patient.Address)
		assert.Empty(t, patient.Telecom)
	})

	t.Run("next of kin become contacts", func(t *testing.T) {
		adm := sampleAdmission()
		adm.NextOfKin = []admission.NextOfKin{
			{FamilyName: "DOE", GivenName: "JANE", Relationship: "SPO", Phone: "555-5678"},
			{FamilyName: "DOE", GivenName: "JIMMY", Relationship: "CHD"},
		}

		patient := mapper.Patient(adm, sampleAttributes())

		require.Len(t, patient.Contact, 2)
		spouse := patient.Contact[0]
		require.NotNil(t, spouse.Name)
		assert.Equal(t, "JANE", spouse.Name.Given[0])
		require.Len(t, spouse.Relationship, 1)
		assert.True(t, coding.IncludesCode(spouse.Relationship[0], coding.RelationshipSystem, "SPO"))
		require.Len(t, spouse.Telecom, 1)
		assert.Equal(t, "555-5678", *spouse.Telecom[0].Value)
		assert.Empty(t, patient.Contact[1].Telecom)
	})

	t.Run("unmapped sex degrades to unknown", func(t *testing.T) {
		adm := sampleAdmission()
		adm.Sex = admission.Sex("indeterminate")

		patient := mapper.Patient(adm, sampleAttributes())
		assert.Equal(t, fhir.AdministrativeGenderUnknown, *patient.Gender)
	})

	t.Run("custom URIs", func(t *testing.T) {
		custom := New(Config{
			IdentifierSystem: "https://hospice.test/mrn",
			ExtensionBase:    "https://hospice.test/ext",
		})
		patient := custom.Patient(sampleAdmission(), sampleAttributes())
		assert.Equal(t, "https://hospice.test/mrn", *patient.Identifier[0].System)
		extensionByURL(t, patient, "https://hospice.test/ext/episode-status")
	})

	t.Run("serializes with resourceType Patient", func(t *testing.T) {
		patient := mapper.Patient(sampleAdmission(), sampleAttributes())
		data, err := json.Marshal(patient)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"resourceType":"Patient"`)
	})

	t.Run("deterministic", func(t *testing.T) {
		first := mapper.Patient(sampleAdmission(), sampleAttributes())
		second := mapper.Patient(sampleAdmission(), sampleAttributes())
		assert.Equal(t, first, second)
	})
}
