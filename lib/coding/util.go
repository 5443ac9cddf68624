package coding

import (
	"github.com/zorgbijjou/golang-fhir-models/fhir-models/fhir"

	"github.com/hospicebridge/adtbridge/lib/to"
)

// RelationshipSystem is the HL7v2 relationship code set (table 0063), used
// for the contact relationships carried in NK1 segments.
const RelationshipSystem = "http://terminology.hl7.org/CodeSystem/v2-0063"

// Concept builds a single-coding CodeableConcept.
func Concept(system string, code string) fhir.CodeableConcept {
	return fhir.CodeableConcept{
		Coding: []fhir.Coding{
			{
				System: to.Ptr(system),
				Code:   to.Ptr(code),
			},
		},
	}
}

func EqualsCode(coding fhir.Coding, system string, value string) bool {
	return coding.System != nil && *coding.System == system &&
		coding.Code != nil && *coding.Code == value
}

// IncludesCode reports whether the concept carries a coding with the given
// system and code.
func IncludesCode(codable fhir.CodeableConcept, system string, value string) bool {
	for _, c := range codable.Coding {
		if EqualsCode(c, system, value) {
			return true
		}
	}
	return false
}
