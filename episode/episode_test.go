package episode

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hospicebridge/adtbridge/admission"
)

var referenceDate = time.Date(2024, 8, 20, 14, 30, 0, 0, time.UTC)

func admissionWith(admissionType, source string, admitTime time.Time) admission.Message {
	return admission.Message{
		PatientID:       "12345",
		AdmissionType:   admissionType,
		AdmissionSource: source,
		AdmitTime:       admitTime,
	}
}

func TestEngine_Derive_Classification(t *testing.T) {
	engine := NewEngine(DefaultRules())
	admitTime := time.Date(2024, 8, 15, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name          string
		admissionType string
		want          Classification
	}{
		{name: "configured initial code", admissionType: "1", want: ClassificationInitialSOC},
		{name: "configured resumption code", admissionType: "2", want: ClassificationROC},
		{name: "resumption code is case-insensitive", admissionType: "r", want: ClassificationROC},
		{name: "unconfigured code", admissionType: "E", want: ClassificationOther},
		{name: "empty code", admissionType: "", want: ClassificationOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attrs := engine.Derive(admissionWith(tt.admissionType, "9", admitTime), referenceDate)
			assert.Equal(t, tt.want, attrs.Classification)
		})
	}
}

func TestEngine_Derive_EOBTrigger(t *testing.T) {
	engine := NewEngine(DefaultRules())
	admitTime := time.Date(2024, 8, 15, 10, 0, 0, 0, time.UTC)

	t.Run("initial admission from non-excluded source triggers EOB", func(t *testing.T) {
		attrs := engine.Derive(admissionWith("1", "9", admitTime), referenceDate)
		assert.True(t, attrs.EOBTriggered)
		assert.Equal(t, ReasonInitialAdmission, attrs.EOBReason)
		assert.Equal(t, 210, attrs.EOBEvent)
		assert.Equal(t, 2029, attrs.EOBStage)
	})
	t.Run("internal transfer suppresses EOB but not classification", func(t *testing.T) {
		attrs := engine.Derive(admissionWith("1", "4", admitTime), referenceDate)
		assert.False(t, attrs.EOBTriggered)
		assert.Equal(t, ReasonInternalTransfer, attrs.EOBReason)
		assert.Equal(t, ClassificationInitialSOC, attrs.Classification)
	})
	t.Run("resumption never triggers EOB", func(t *testing.T) {
		attrs := engine.Derive(admissionWith("2", "9", admitTime), referenceDate)
		assert.False(t, attrs.EOBTriggered)
		assert.Equal(t, ReasonNotInitial, attrs.EOBReason)
	})
	t.Run("custom rule tables", func(t *testing.T) {
		custom := NewEngine(Rules{
			InitialTypes:    []string{"HSP"},
			ExcludedSources: []string{"XFER"},
			EOBEvent:        300,
			EOBStage:        3001,
		})
		attrs := custom.Derive(admissionWith("hsp", "xfer", admitTime), referenceDate)
		assert.Equal(t, ClassificationInitialSOC, attrs.Classification)
		assert.False(t, attrs.EOBTriggered)
		assert.Equal(t, 300, attrs.EOBEvent)
	})
}

func TestEngine_Derive_EffectiveDate(t *testing.T) {
	engine := NewEngine(DefaultRules())

	t.Run("admit time truncated to calendar date", func(t *testing.T) {
		attrs := engine.Derive(admissionWith("1", "9", time.Date(2024, 8, 15, 23, 59, 59, 0, time.UTC)), referenceDate)
		assert.Equal(t, time.Date(2024, 8, 15, 0, 0, 0, 0, time.UTC), attrs.EffectiveDate)
		assert.False(t, attrs.UsedFallbackDate)
	})
	t.Run("missing admit time falls back to reference date", func(t *testing.T) {
		attrs := engine.Derive(admissionWith("1", "9", time.Time{}), referenceDate)
		assert.Equal(t, time.Date(2024, 8, 20, 0, 0, 0, 0, time.UTC), attrs.EffectiveDate)
		assert.True(t, attrs.UsedFallbackDate)
	})
}

func TestEngine_Derive_EpisodeTransition(t *testing.T) {
	engine := NewEngine(DefaultRules())
	attrs := engine.Derive(admissionWith("1", "9", referenceDate), referenceDate)

	assert.Equal(t, StatusCurrent, attrs.Status)
	assert.Equal(t, StatusPending, attrs.PreviousStatus)
	assert.True(t, attrs.SOCROCCompleted)
}

func TestEngine_Derive_Deterministic(t *testing.T) {
	engine := NewEngine(DefaultRules())
	adm := admissionWith("1", "9", time.Date(2024, 8, 15, 10, 0, 0, 0, time.UTC))

	first := engine.Derive(adm, referenceDate)
	second := engine.Derive(adm, referenceDate)
	require.Equal(t, first, second)
}
