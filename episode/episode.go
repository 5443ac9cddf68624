// Package episode derives hospice episode state from a parsed admission
// message. Derivation is a total, deterministic function: ambiguous input
// resolves to a conservative classification instead of an error, because
// this stage must never block resource creation.
package episode

import (
	"strings"
	"time"

	"github.com/hospicebridge/adtbridge/admission"
)

// Classification is the hospice admission classification.
type Classification string

const (
	// ClassificationInitialSOC marks a genuinely new hospice admission (Start of Care).
	ClassificationInitialSOC Classification = "Initial-SOC"
	// ClassificationROC marks a readmission or resumption of an existing episode.
	ClassificationROC Classification = "ROC"
	// ClassificationOther is the conservative default for unconfigured codes.
	ClassificationOther Classification = "Other"
)

// Episode status values carried over from the upstream hospice EHR: an A01
// admit moves the episode from pending to current.
const (
	StatusPending = "PENDING"
	StatusCurrent = "CURRENT"
)

// EOB trigger reason codes, recorded so auditors can see which rule fired.
const (
	ReasonInitialAdmission = "initial-admission"
	ReasonNotInitial       = "not-initial-admission"
	ReasonInternalTransfer = "internal-transfer"
)

// Rules is the configured lookup table driving classification. The tables
// are loaded once at startup and never mutated afterwards.
type Rules struct {
	// InitialTypes are PV1-4 admission type codes classified as Initial-SOC.
	InitialTypes []string `koanf:"initialtypes"`
	// ResumptionTypes are PV1-4 codes classified as ROC.
	ResumptionTypes []string `koanf:"resumptiontypes"`
	// ExcludedSources are PV1-14 admission source codes that represent
	// internal transfers; they suppress the EOB workflow trigger.
	ExcludedSources []string `koanf:"excludedsources"`
	// EOBEvent and EOBStage identify the Election-of-Benefit workflow in the
	// downstream hospice EHR.
	EOBEvent int `koanf:"eobevent"`
	EOBStage int `koanf:"eobstage"`
}

// DefaultRules returns the deployment defaults: admission type 1 is an
// initial admission, 2/R are resumptions, and sources 4/T are internal
// transfers. The EOB workflow identifiers match the upstream hospice EHR
// (event 210, stage 2029).
func DefaultRules() Rules {
	return Rules{
		InitialTypes:    []string{"1"},
		ResumptionTypes: []string{"2", "R"},
		ExcludedSources: []string{"4", "T"},
		EOBEvent:        210,
		EOBStage:        2029,
	}
}

// Attributes is the derived hospice episode state for one admission.
// It depends only on the admission message and the reference date.
type Attributes struct {
	Classification Classification
	// Status and PreviousStatus record the episode transition the admit causes.
	Status         string
	PreviousStatus string
	// EffectiveDate is the admit time truncated to a calendar date (UTC).
	EffectiveDate time.Time
	// UsedFallbackDate is set when the admit time was absent and the
	// reference date was used instead; recorded as data for audit visibility.
	UsedFallbackDate bool
	// EOBTriggered reports whether Election-of-Benefit paperwork must start,
	// and EOBReason names the rule that decided it.
	EOBTriggered bool
	EOBReason    string
	EOBEvent     int
	EOBStage     int
	// SOCROCCompleted mirrors the upstream EHR behaviour: the A01 admit
	// marks the SOC or ROC visit as completed.
	SOCROCCompleted bool
}

// Engine classifies admissions against its configured rules. Safe for
// concurrent use; all state is immutable after construction.
type Engine struct {
	initial  map[string]struct{}
	resume   map[string]struct{}
	excluded map[string]struct{}
	eobEvent int
	eobStage int
}

func NewEngine(rules Rules) *Engine {
	return &Engine{
		initial:  codeSet(rules.InitialTypes),
		resume:   codeSet(rules.ResumptionTypes),
		excluded: codeSet(rules.ExcludedSources),
		eobEvent: rules.EOBEvent,
		eobStage: rules.EOBStage,
	}
}

// Derive computes the episode attributes for an admission. referenceDate is
// the caller-supplied notion of "now"; the engine never reads a wall clock,
// so identical inputs always yield identical output.
func (e *Engine) Derive(adm admission.Message, referenceDate time.Time) Attributes {
	attrs := Attributes{
		Classification:  e.classify(adm.AdmissionType),
		Status:          StatusCurrent,
		PreviousStatus:  StatusPending,
		EOBEvent:        e.eobEvent,
		EOBStage:        e.eobStage,
		SOCROCCompleted: true,
	}

	if !adm.AdmitTime.IsZero() {
		attrs.EffectiveDate = truncateToDate(adm.AdmitTime)
	} else {
		// Should not occur for messages that passed parsing, which requires
		// PV1-44. Recorded as data rather than treated as an error.
		attrs.EffectiveDate = truncateToDate(referenceDate)
		attrs.UsedFallbackDate = true
	}

	attrs.EOBTriggered, attrs.EOBReason = e.eobTrigger(attrs.Classification, adm.AdmissionSource)
	return attrs
}

func (e *Engine) classify(admissionType string) Classification {
	code := normalizeCode(admissionType)
	if _, ok := e.initial[code]; ok {
		return ClassificationInitialSOC
	}
	if _, ok := e.resume[code]; ok {
		return ClassificationROC
	}
	return ClassificationOther
}

// eobTrigger decides whether Election-of-Benefit paperwork starts: only for
// genuinely new hospice admissions, never for internal transfers.
func (e *Engine) eobTrigger(classification Classification, source string) (bool, string) {
	if classification != ClassificationInitialSOC {
		return false, ReasonNotInitial
	}
	if _, ok := e.excluded[normalizeCode(source)]; ok {
		return false, ReasonInternalTransfer
	}
	return true, ReasonInitialAdmission
}

func codeSet(codes []string) map[string]struct{} {
	set := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		set[normalizeCode(code)] = struct{}{}
	}
	return set
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func truncateToDate(t time.Time) time.Time {
	year, month, day := t.UTC().Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
